package prompt

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type inputModel struct {
	question string
	def      string
	input    textinput.Model
	done     bool
	aborted  bool
}

func newInputModel(question, def string) inputModel {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = def
	ti.Focus()
	return inputModel{question: question, def: def, input: ti}
}

func (m inputModel) answer() string {
	v := strings.TrimSpace(m.input.Value())
	if v == "" {
		return m.def
	}
	return v
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	head := questionMark + " " + questionStyle.Render(m.question) + " "
	switch {
	case m.done:
		return head + answerStyle.Render(m.answer()) + "\n"
	case m.aborted:
		return head + "\n"
	}
	if m.def != "" {
		head += defaultStyle.Render("("+m.def+")") + " "
	}
	return head + m.input.View()
}

type selectModel struct {
	question string
	choices  []Choice
	cursor   int
	done     bool
	aborted  bool
}

func newSelectModel(question string, choices []Choice) selectModel {
	return selectModel{question: question, choices: choices}
}

func (m selectModel) Init() tea.Cmd {
	return nil
}

func (m selectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "up", "k":
		m.cursor = (m.cursor - 1 + len(m.choices)) % len(m.choices)
	case "down", "j":
		m.cursor = (m.cursor + 1) % len(m.choices)
	case "enter":
		m.done = true
		return m, tea.Quit
	case "ctrl+c", "esc":
		m.aborted = true
		return m, tea.Quit
	}
	return m, nil
}

func (m selectModel) View() string {
	var b strings.Builder
	b.WriteString(questionMark + " " + questionStyle.Render(m.question) + " ")

	if m.done {
		b.WriteString(answerStyle.Render(m.choices[m.cursor].Name) + "\n")
		return b.String()
	}
	if m.aborted {
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString("\n")
	for i, c := range m.choices {
		if i == m.cursor {
			b.WriteString(answerStyle.Render("❯ " + c.Name))
		} else {
			b.WriteString("  " + c.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}
