package protocol

// LSP method constants.
const (
	// Lifecycle
	MethodInitialize    = "initialize"
	MethodInitialized   = "initialized"
	MethodShutdown      = "shutdown"
	MethodExit          = "exit"
	MethodSetTrace      = "$/setTrace"
	MethodCancelRequest = "$/cancelRequest"

	// Text document sync
	MethodDidOpen   = "textDocument/didOpen"
	MethodDidChange = "textDocument/didChange"
	MethodDidClose  = "textDocument/didClose"
	MethodDidSave   = "textDocument/didSave"

	// Notebook document sync
	MethodNotebookDidOpen   = "notebookDocument/didOpen"
	MethodNotebookDidChange = "notebookDocument/didChange"
	MethodNotebookDidSave   = "notebookDocument/didSave"
	MethodNotebookDidClose  = "notebookDocument/didClose"

	// Language features
	MethodHover             = "textDocument/hover"
	MethodCodeAction        = "textDocument/codeAction"
	MethodCodeActionResolve = "codeAction/resolve"
	MethodFormatting        = "textDocument/formatting"

	// Workspace
	MethodDidChangeConfiguration    = "workspace/didChangeConfiguration"
	MethodDidChangeWorkspaceFolders = "workspace/didChangeWorkspaceFolders"
	MethodExecuteCommand            = "workspace/executeCommand"

	// Client notifications (server -> client)
	MethodPublishDiagnostics     = "textDocument/publishDiagnostics"
	MethodLogMessage             = "window/logMessage"
	MethodShowMessage            = "window/showMessage"
	MethodWorkspaceConfiguration = "workspace/configuration"

	// Client requests (server -> client)
	MethodApplyEdit          = "workspace/applyEdit"
	MethodRegisterCapability = "client/registerCapability"
)
