package linker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/pydevctl/internal/testutil/testlog"
)

type probeRunner struct {
	stdout string
	err    error
	calls  [][]string
}

func (r *probeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.err != nil {
		return nil, []byte("boom"), 1, r.err
	}
	return []byte(r.stdout), nil, 0, nil
}

func TestProbeParsesOutput(t *testing.T) {
	testlog.Start(t)
	runner := &probeRunner{stdout: "C:\\Python312\\python.exe\r\nTrue\r\n"}
	l := &Linker{Runner: runner, Python: "py"}

	interp, err := l.Probe(context.Background())
	if err != nil {
		t.Fatalf("probe: %v", err)
	}
	if interp.Executable != `C:\Python312\python.exe` || !interp.Is64Bit {
		t.Fatalf("unexpected interpreter: %+v", interp)
	}
	if runner.calls[0][0] != "py" || runner.calls[0][1] != "-c" {
		t.Fatalf("unexpected probe call: %q", runner.calls[0])
	}
}

func TestProbeRejectsGarbage(t *testing.T) {
	testlog.Start(t)
	for _, out := range []string{"", "only-one-line", "/usr/bin/python3\nmaybe\n", "\nTrue\n"} {
		l := &Linker{Runner: &probeRunner{stdout: out}}
		if _, err := l.Probe(context.Background()); !errors.Is(err, ErrProbeOutput) {
			t.Fatalf("expected ErrProbeOutput for %q, got %v", out, err)
		}
	}
}

func TestProbeRunnerFailure(t *testing.T) {
	testlog.Start(t)
	l := &Linker{Runner: &probeRunner{err: errors.New("not found")}}
	if _, err := l.Probe(context.Background()); err == nil {
		t.Fatalf("expected probe error")
	}
}

func TestLinkRequiresWindows(t *testing.T) {
	testlog.Start(t)
	l := &Linker{Runner: &probeRunner{stdout: "/usr/bin/python3\nTrue\n"}, GOOS: "linux"}
	if _, err := l.Link(context.Background(), t.TempDir()); !errors.Is(err, ErrUnsupportedOS) {
		t.Fatalf("expected ErrUnsupportedOS, got %v", err)
	}
}

func TestLinkReplacesEmptyArchDir(t *testing.T) {
	testlog.Start(t)
	install := t.TempDir()
	exe := filepath.Join(install, "python.exe")
	devDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(devDir, "x86"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	l := &Linker{Runner: &probeRunner{stdout: exe + "\nFalse\n"}, GOOS: "windows"}
	link, err := l.Link(context.Background(), devDir)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	if link != filepath.Join(devDir, "x86") {
		t.Fatalf("unexpected link path: %q", link)
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != install {
		t.Fatalf("unexpected link target: %q", target)
	}
}

func TestLinkDirReplacesExistingLink(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	first := filepath.Join(root, "first")
	second := filepath.Join(root, "second")
	for _, d := range []string{first, second} {
		if err := os.Mkdir(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	dest := filepath.Join(root, "x64")
	if err := LinkDir(first, dest); err != nil {
		t.Fatalf("first link: %v", err)
	}
	if err := LinkDir(second, dest); err != nil {
		t.Fatalf("second link: %v", err)
	}
	target, err := os.Readlink(dest)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if target != second {
		t.Fatalf("unexpected target: %q", target)
	}
	if _, err := os.Stat(first); err != nil {
		t.Fatalf("link target must survive relink: %v", err)
	}
}

func TestLinkDirRefusesNonEmptyDir(t *testing.T) {
	testlog.Start(t)
	root := t.TempDir()
	dest := filepath.Join(root, "x64")
	if err := os.MkdirAll(filepath.Join(dest, "include"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := LinkDir(t.TempDir(), dest); !errors.Is(err, ErrDestNotEmpty) {
		t.Fatalf("expected ErrDestNotEmpty, got %v", err)
	}
}
