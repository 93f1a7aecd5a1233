// Package pause keeps a console window open after a double-clicked run so
// the outcome can be read before the window closes.
package pause

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Prompter holds the streams Run talks to.
type Prompter struct {
	In  io.Reader
	Out io.Writer
	// Interactive reports whether In is an attached terminal.
	Interactive func() bool
}

// Default wires the process stdio.
func Default() *Prompter {
	return &Prompter{
		In:          os.Stdin,
		Out:         os.Stderr,
		Interactive: StdinIsTerminal,
	}
}

// StdinIsTerminal covers native consoles and Cygwin/MSYS ptys.
func StdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Run calls fn. Unless the caller is already in a terminal session (or force
// is set) it then prints any error and waits for Enter. A printed error comes
// back wrapped so Shown reports it; errors.Is still matches fn's error.
func (p *Prompter) Run(force bool, fn func() error) error {
	show := force || p.Interactive == nil || !p.Interactive()
	err := fn()
	if !show {
		return err
	}
	if err != nil {
		fmt.Fprintf(p.Out, "error: %v\n", err)
		err = &shownError{err: err}
	}
	fmt.Fprint(p.Out, "\nPress enter to exit")
	_, _ = bufio.NewReader(p.In).ReadString('\n')
	return err
}

type shownError struct {
	err error
}

func (e *shownError) Error() string { return e.err.Error() }
func (e *shownError) Unwrap() error { return e.err }

// Shown reports whether err was already printed by Run.
func Shown(err error) bool {
	var s *shownError
	return errors.As(err, &s)
}
