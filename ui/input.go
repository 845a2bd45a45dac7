package ui

import (
	"errors"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

// ErrInterrupt is returned when the operator presses Ctrl+C at a prompt.
var ErrInterrupt = errors.New("ui: input interrupted")

// ReadlineInput reads prompted lines with editing and a persistent history.
// End of input (Ctrl+D) is reported as io.EOF.
type ReadlineInput struct {
	rl *readline.Instance
}

// NewReadlineInput opens the terminal; historyFile may be empty.
func NewReadlineInput(historyFile string) (*ReadlineInput, error) {
	rl, err := readline.NewEx(&readline.Config{
		HistoryFile:       historyFile,
		HistoryLimit:      500,
		HistorySearchFold: true,
		InterruptPrompt:   "^C",
		EOFPrompt:         "quit",
	})
	if err != nil {
		return nil, err
	}
	return &ReadlineInput{rl: rl}, nil
}

// ReadLine shows prompt and returns the trimmed reply.
func (r *ReadlineInput) ReadLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	line, err := r.rl.Readline()
	switch {
	case errors.Is(err, readline.ErrInterrupt):
		return "", ErrInterrupt
	case errors.Is(err, io.EOF):
		return "", io.EOF
	case err != nil:
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Stdout is a writer that keeps output from clobbering the prompt line.
func (r *ReadlineInput) Stdout() io.Writer {
	return r.rl.Stdout()
}

// Close restores the terminal and flushes history.
func (r *ReadlineInput) Close() error {
	return r.rl.Close()
}
