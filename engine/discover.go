package engine

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ruffd-lsp/ruffd/settings"
)

const toolName = "ruff"

// Locator finds the engine executable for a document's settings and probes
// its version. Both the interpreter scripts-directory lookup and the version
// probe fork a process, so results are cached: scripts directories per
// interpreter path, versions per executable keyed by file mtime.
type Locator struct {
	logger *slog.Logger

	mu          sync.Mutex
	scriptsDirs map[string]string
	versions    map[string]versionEntry
	stdlibRoots map[string][]string
	lookPath    func(string) (string, error)
	commandOut  func(name string, args ...string) ([]byte, error)
}

type versionEntry struct {
	modTime time.Time
	version Version
}

// NewLocator creates a Locator.
func NewLocator(logger *slog.Logger) *Locator {
	return &Locator{
		logger:      logger,
		scriptsDirs: make(map[string]string),
		versions:    make(map[string]versionEntry),
		stdlibRoots: make(map[string][]string),
		lookPath:    exec.LookPath,
		commandOut: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

// Find locates the engine executable for the given settings and verifies it
// meets the minimum version. Lookup order: explicit path setting, the
// configured interpreter's scripts directory, then $PATH.
func (l *Locator) Find(s settings.Settings, min Version) (Executable, error) {
	path, err := l.findPath(s)
	if err != nil {
		return Executable{}, err
	}
	version, err := l.version(path)
	if err != nil {
		return Executable{}, err
	}
	if !version.AtLeast(min) {
		return Executable{}, fmt.Errorf("%w: need at least %s, found %s at %s", ErrVersion, min, version, path)
	}
	return Executable{Path: path, Version: version}, nil
}

func (l *Locator) findPath(s settings.Settings) (string, error) {
	for _, p := range s.Path {
		p = expand(p)
		if isExecutable(p) {
			l.logger.Debug("using engine from path setting", "path", p)
			return p, nil
		}
	}

	if len(s.Interpreter) > 0 {
		if dir, err := l.scriptsDir(expand(s.Interpreter[0])); err == nil {
			p := filepath.Join(dir, toolName)
			if isExecutable(p) {
				l.logger.Debug("using engine from interpreter environment", "path", p)
				return p, nil
			}
		} else {
			l.logger.Warn("cannot resolve interpreter scripts directory", "interpreter", s.Interpreter[0], "error", err)
		}
	}

	if p, err := l.lookPath(toolName); err == nil {
		l.logger.Debug("using engine from $PATH", "path", p)
		return p, nil
	}
	return "", ErrNotFound
}

// scriptsDir asks the interpreter where its scripts directory is.
func (l *Locator) scriptsDir(interpreter string) (string, error) {
	l.mu.Lock()
	dir, ok := l.scriptsDirs[interpreter]
	l.mu.Unlock()
	if ok {
		return dir, nil
	}

	out, err := l.commandOut(interpreter, "-c", "import sysconfig; print(sysconfig.get_path('scripts'))")
	if err != nil {
		return "", err
	}
	dir = strings.TrimSpace(string(out))

	l.mu.Lock()
	l.scriptsDirs[interpreter] = dir
	l.mu.Unlock()
	return dir, nil
}

// version probes `<path> --version`, caching by the executable's mtime so an
// upgraded binary (e.g. after pip install -U) invalidates the cache.
func (l *Locator) version(path string) (Version, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	l.mu.Lock()
	entry, ok := l.versions[path]
	l.mu.Unlock()
	if ok && entry.modTime.Equal(info.ModTime()) {
		return entry.version, nil
	}

	out, err := l.commandOut(path, "--version")
	if err != nil {
		return Version{}, fmt.Errorf("%w: probing version of %s: %v", ErrCrashed, path, err)
	}
	raw := strings.TrimSpace(string(out))
	raw = strings.TrimPrefix(raw, toolName+" ")
	version, err := ParseVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	l.mu.Lock()
	l.versions[path] = versionEntry{modTime: info.ModTime(), version: version}
	l.mu.Unlock()
	l.logger.Debug("probed engine version", "path", path, "version", version)
	return version, nil
}

// IsStdlibFile reports whether path belongs to the configured interpreter's
// standard library or site-packages tree. Used to skip linting library
// sources the user merely stepped into.
func (l *Locator) IsStdlibFile(s settings.Settings, path string) bool {
	if len(s.Interpreter) == 0 || path == "" {
		return false
	}
	interpreter := expand(s.Interpreter[0])

	l.mu.Lock()
	roots, ok := l.stdlibRoots[interpreter]
	l.mu.Unlock()
	if !ok {
		out, err := l.commandOut(interpreter, "-c",
			"import sysconfig, site; print('\\n'.join([sysconfig.get_path('stdlib'), sysconfig.get_path('purelib'), site.getusersitepackages()]))")
		if err != nil {
			l.logger.Warn("cannot resolve interpreter library paths", "interpreter", interpreter, "error", err)
			roots = []string{}
		} else {
			for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					roots = append(roots, line)
				}
			}
		}
		l.mu.Lock()
		l.stdlibRoots[interpreter] = roots
		l.mu.Unlock()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, root := range roots {
		if strings.HasPrefix(abs, root) {
			return true
		}
	}
	return false
}

func expand(p string) string {
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
