package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"pairmux/internal/config"
	"pairmux/internal/conflict"
	"pairmux/internal/logging"
	"pairmux/internal/pipeline"
)

var (
	confirmTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	confirmCursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62")).Bold(true)
	confirmMatchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	confirmWarnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	confirmHelpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	confirmPanelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

var (
	keyUp        = key.NewBinding(key.WithKeys("up", "k"))
	keyDown      = key.NewBinding(key.WithKeys("down", "j"))
	keyToggle    = key.NewBinding(key.WithKeys(" ", "space"))
	keyAll       = key.NewBinding(key.WithKeys("a"))
	keyNone      = key.NewBinding(key.WithKeys("n"))
	keyConfirm   = key.NewBinding(key.WithKeys("enter"))
	keyAbort     = key.NewBinding(key.WithKeys("q", "esc"))
	keyInterrupt = key.NewBinding(key.WithKeys("ctrl+c"))
)

// conflictModel asks which existing outputs to overwrite. Every record starts
// as skip; aborting keeps them all skipped. The prompt owns the terminal in raw
// mode, so ctrl+c arrives here as a key rather than as SIGINT and is recorded
// as an interrupt of the whole run.
type conflictModel struct {
	records     []conflict.Record
	overwrite   []bool
	cursor      int
	aborted     bool
	interrupted bool
	confirmed   bool
}

func newConflictModel(records []conflict.Record) *conflictModel {
	return &conflictModel{
		records:   records,
		overwrite: make([]bool, len(records)),
	}
}

func (m *conflictModel) Init() tea.Cmd {
	return nil
}

func (m *conflictModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, keyInterrupt):
		m.interrupted = true
		return m, tea.Quit
	case key.Matches(keyMsg, keyAbort):
		m.aborted = true
		return m, tea.Quit
	case key.Matches(keyMsg, keyConfirm):
		m.confirmed = true
		return m, tea.Quit
	case key.Matches(keyMsg, keyUp):
		m.cursor--
		if m.cursor < 0 {
			m.cursor = len(m.records) - 1
		}
	case key.Matches(keyMsg, keyDown):
		m.cursor++
		if m.cursor >= len(m.records) {
			m.cursor = 0
		}
	case key.Matches(keyMsg, keyToggle):
		if m.cursor >= 0 && m.cursor < len(m.overwrite) {
			m.overwrite[m.cursor] = !m.overwrite[m.cursor]
		}
	case key.Matches(keyMsg, keyAll):
		m.setAll(true)
	case key.Matches(keyMsg, keyNone):
		m.setAll(false)
	}
	return m, nil
}

func (m *conflictModel) setAll(value bool) {
	for i := range m.overwrite {
		m.overwrite[i] = value
	}
}

func (m *conflictModel) View() string {
	if m.confirmed || m.aborted || m.interrupted {
		return ""
	}
	var b strings.Builder
	b.WriteString(confirmTitleStyle.Render(fmt.Sprintf("%d existing outputs: choose which to overwrite", len(m.records))))
	b.WriteString("\n\n")
	for i, record := range m.records {
		mark := "[ ] skip     "
		if m.overwrite[i] {
			mark = "[x] overwrite"
		}
		sizes := fmt.Sprintf("existing %s, sources %s", formatBytes(record.ExistingOutputSize), formatBytes(record.CombinedSourceSize))
		if record.SizeMatches() {
			sizes = confirmMatchStyle.Render(sizes + " (looks complete)")
		} else {
			sizes = confirmWarnStyle.Render(sizes + " (size differs)")
		}
		line := fmt.Sprintf("%s  %s", mark, record.Task.Label())
		if i == m.cursor {
			line = confirmCursorStyle.Render(line)
		}
		b.WriteString(line + "  " + sizes + "\n")
	}
	b.WriteString("\n")
	b.WriteString(confirmHelpStyle.Render("space: toggle • a: all • n: none • enter: confirm • q/esc: skip all • ctrl+c: cancel run"))
	return confirmPanelStyle.Render(b.String()) + "\n"
}

func (m *conflictModel) decisions() []conflict.Decision {
	decisions := conflict.Uniform(len(m.records), conflict.Skip)
	if m.aborted {
		return decisions
	}
	for i, overwrite := range m.overwrite {
		if overwrite {
			decisions[i] = conflict.Overwrite
		}
	}
	return decisions
}

// tuiDecider runs the conflict prompt on the given terminal streams.
type tuiDecider struct {
	in  io.Reader
	out io.Writer
}

func (d tuiDecider) Decide(ctx context.Context, records []conflict.Record) ([]conflict.Decision, error) {
	program := tea.NewProgram(newConflictModel(records),
		tea.WithContext(ctx),
		tea.WithInput(d.in),
		tea.WithOutput(d.out),
	)
	final, err := program.Run()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil, context.Canceled
		}
		return nil, fmt.Errorf("conflict prompt: %w", err)
	}
	model, ok := final.(*conflictModel)
	if !ok {
		return nil, errors.New("conflict prompt: unexpected model")
	}
	return model.result()
}

// result is the prompt's answer: the decisions, or context.Canceled when the
// user pressed ctrl+c.
func (m *conflictModel) result() ([]conflict.Decision, error) {
	if m.interrupted {
		return nil, context.Canceled
	}
	return m.decisions(), nil
}

// chooseDecider maps the effective conflict policy to a Decider. "ask" needs
// an interactive terminal; without one every conflict is skipped.
func chooseDecider(policy string, interactive bool, logger *slog.Logger) pipeline.Decider {
	switch policy {
	case config.ConflictOverwrite:
		return pipeline.Always(conflict.Overwrite)
	case config.ConflictSkip:
		return pipeline.Always(conflict.Skip)
	}
	if interactive {
		return tuiDecider{in: os.Stdin, out: os.Stderr}
	}
	return pipeline.DeciderFunc(func(_ context.Context, records []conflict.Record) ([]conflict.Decision, error) {
		logging.WarnWithContext(logger, "existing outputs skipped without a terminal to ask", "conflicts_skipped",
			logging.Int("conflicts", len(records)),
			logging.String(logging.FieldErrorHint, "rerun with --overwrite or --skip-existing"),
			logging.String(logging.FieldImpact, "existing outputs are left untouched"),
		)
		return conflict.Uniform(len(records), conflict.Skip), nil
	})
}

// isInteractive is replaced in tests so a developer terminal never opens the prompt.
var isInteractive = terminalInteractive

func terminalInteractive() bool {
	in, out := os.Stdin.Fd(), os.Stderr.Fd()
	return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
		(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
}
