// Package prompt holds the small terminal dialogs used by the interactive
// commands.
package prompt

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"
)

const width = 73

// ErrCancelled is returned when the user leaves a dialog without choosing.
var ErrCancelled = errors.New("cancelled")

// Pick shows options as a list and returns the chosen index.
func Pick(title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, fmt.Errorf("%s: nothing to pick", title)
	}
	l := list.New(make([]list.Item, len(options)), itemDelegate{options}, width, min(len(options)+6, 16))
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	m := listModel{Model: l, picked: -1}
	if _, err := tea.NewProgram(&m).Run(); err != nil {
		if errors.Is(err, tea.ErrInterrupted) {
			return -1, ErrCancelled
		}
		return -1, err
	}
	return m.picked, nil
}

// AskText reads one line, prefilled with value. validate may be nil. An
// interrupted prompt with nothing typed returns "" and no error.
func AskText(title, value, placeholder string, validate func(string) error) (string, error) {
	fmt.Println(title)
	input := textinput.New()
	input.Validate = validate
	input.Focus()
	input.Placeholder = placeholder
	input.SetValue(value)
	input.SetWidth(width)
	m := textModel{Model: input}
	_, err := tea.NewProgram(&m).Run()
	if err != nil {
		if m.Value() == "" {
			return "", nil
		}
		return "", err
	}
	return m.Value(), nil
}

type listModel struct {
	list.Model
	picked int
}

func (m listModel) Init() tea.Cmd { return nil }
func (m *listModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd := keypress(msg, "q"); cmd != nil {
		// read before exit, the global index resets afterwards
		m.picked = m.Model.GlobalIndex()
		return m, cmd
	}
	var cmd tea.Cmd
	m.Model, cmd = m.Model.Update(msg)
	return m, cmd
}

type textModel struct{ textinput.Model }

func (m textModel) Init() tea.Cmd { return textinput.Blink }
func (m *textModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if cmd := keypress(msg, "esc"); cmd != nil {
		return m, cmd
	}
	var cmd tea.Cmd
	m.Model, cmd = m.Model.Update(msg)
	return m, cmd
}

// keypress maps enter to quit and ctrl+c or the given key to interrupt.
func keypress(msg tea.Msg, cancel string) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch k := key.String(); k {
		case "enter":
			return tea.Quit
		case "ctrl+c", cancel:
			return tea.Interrupt
		}
	}
	return nil
}

type simpleItem string

var _ list.DefaultItem = (*simpleItem)(nil)

func (s simpleItem) FilterValue() string { return string(s) }
func (s simpleItem) Title() string       { return string(s) }
func (s simpleItem) Description() string { return "" }

type itemDelegate struct{ options []string }

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, i int, _ list.Item) {
	dd := list.NewDefaultDelegate()
	dd.ShowDescription = false
	dd.Render(w, m, i, simpleItem(d.options[i]))
}
