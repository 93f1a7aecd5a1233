package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ExitNotFound is reported when the binary could not be started at all.
const ExitNotFound int32 = 127

// CommandRunner abstracts subprocess execution for extraction and probing.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

// tools command-runner implementation backed by os/exec.
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = ExitNotFound
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// CommandError carries the full context of a failed subprocess.
type CommandError struct {
	Name     string
	Args     []string
	ExitCode int32
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf(
		"command failed cmd=%s args=%q exit=%d stdout=%q stderr=%q: %v",
		e.Name,
		strings.Join(e.Args, " "),
		e.ExitCode,
		e.Stdout,
		e.Stderr,
		e.Err,
	)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Exec runs one command and folds a failure into a *CommandError.
func Exec(ctx context.Context, runner CommandRunner, name string, args ...string) ([]byte, error) {
	stdout, stderr, exitCode, err := runner.Run(ctx, name, args...)
	if err == nil {
		return stdout, nil
	}
	return stdout, &CommandError{
		Name:     name,
		Args:     args,
		ExitCode: exitCode,
		Stdout:   strings.TrimSpace(string(stdout)),
		Stderr:   strings.TrimSpace(string(stderr)),
		Err:      err,
	}
}
