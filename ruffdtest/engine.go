package ruffdtest

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// FakeEngine describes the behavior of a stand-in engine binary. Install
// writes it as a shell script so server tests run without a real engine.
type FakeEngine struct {
	// Version is reported for --version probes (default 0.6.0).
	Version string
	// CheckJSON is printed for check runs; its exit code is CheckExit.
	CheckJSON string
	// CheckExit is the exit code for check runs (1 matches an engine that
	// found violations).
	CheckExit int
	// FixedSource is printed for check runs that carry --fix.
	FixedSource string
	// FormatOutput is printed for format runs.
	FormatOutput string
	// FormatDelay sleeps this many seconds before a format run responds.
	FormatDelay int
	// Explain is printed for --explain runs.
	Explain string
}

// Install writes the fake engine into a temp dir and returns its path. Use
// the path as the `path` setting so discovery finds it first.
func (f FakeEngine) Install(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()

	version := f.Version
	if version == "" {
		version = "0.6.0"
	}
	writeData := func(name, content string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
		return p
	}
	checkFile := writeData("check.json", f.CheckJSON)
	fixedFile := writeData("fixed.txt", f.FixedSource)
	formatFile := writeData("format.txt", f.FormatOutput)
	explainFile := writeData("explain.md", f.Explain)

	script := `#!/bin/sh
case "$1" in
--version)
	echo "ruff ` + version + `"
	exit 0
	;;
--explain)
	cat "` + explainFile + `"
	exit 0
	;;
format)
	cat > /dev/null
	sleep ` + strconv.Itoa(f.FormatDelay) + `
	cat "` + formatFile + `"
	exit 0
	;;
esac
for a in "$@"; do
	if [ "$a" = "--fix" ]; then
		cat > /dev/null
		cat "` + fixedFile + `"
		exit 0
	fi
done
cat > /dev/null
cat "` + checkFile + `"
exit ` + exitStr(f.CheckExit) + `
`
	path := filepath.Join(dir, "ruff")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("writing fake engine: %v", err)
	}
	return path
}

func exitStr(code int) string {
	switch code {
	case 0:
		return "0"
	case 1:
		return "1"
	default:
		return "2"
	}
}
