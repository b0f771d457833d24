// Package prompt asks the user for missing run choices in the terminal.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels a prompt.
var ErrAborted = errors.New("prompt aborted")

// Choice is one entry of a select prompt.
type Choice struct {
	Name  string // shown to the user
	Value string // returned when selected
}

var (
	questionMark  = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Render("?")
	questionStyle = lipgloss.NewStyle().Bold(true)
	answerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	defaultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Terminal runs prompts as bubbletea programs.
type Terminal struct {
	In  io.Reader
	Out io.Writer
}

// NewTerminal returns a Terminal bound to the process stdin and stdout.
func NewTerminal() *Terminal {
	return &Terminal{In: os.Stdin, Out: os.Stdout}
}

// Input asks a free-text question. An empty answer yields def. The answer
// is trimmed.
func (t *Terminal) Input(ctx context.Context, question, def string) (string, error) {
	m, err := t.run(ctx, newInputModel(question, def))
	if err != nil {
		return "", err
	}
	im := m.(inputModel)
	if im.aborted {
		return "", ErrAborted
	}
	return im.answer(), nil
}

// Select asks the user to pick one of choices and returns its Value.
func (t *Terminal) Select(ctx context.Context, question string, choices []Choice) (string, error) {
	if len(choices) == 0 {
		return "", fmt.Errorf("no choices for %q", question)
	}
	m, err := t.run(ctx, newSelectModel(question, choices))
	if err != nil {
		return "", err
	}
	sm := m.(selectModel)
	if sm.aborted {
		return "", ErrAborted
	}
	return sm.choices[sm.cursor].Value, nil
}

func (t *Terminal) run(ctx context.Context, m tea.Model) (tea.Model, error) {
	var opts []tea.ProgramOption
	opts = append(opts, tea.WithContext(ctx))
	if t.In != nil {
		opts = append(opts, tea.WithInput(t.In))
	}
	if t.Out != nil {
		opts = append(opts, tea.WithOutput(t.Out))
	}

	final, err := tea.NewProgram(m, opts...).Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	return final, nil
}
