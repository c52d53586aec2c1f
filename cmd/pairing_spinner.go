package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zapgate/zapgate/internal/domain"
)

type pairingDoneMsg struct {
	result domain.PairingResult
}

type pairingSpinnerModel struct {
	spinner spinner.Model
	label   string
	start   tea.Cmd
	result  domain.PairingResult
	done    bool
}

func newPairingSpinnerModel(label string, start tea.Cmd) pairingSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return pairingSpinnerModel{
		spinner: s,
		label:   label,
		start:   start,
	}
}

func (m pairingSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.start)
}

func (m pairingSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case pairingDoneMsg:
		m.done = true
		m.result = msg.result
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m pairingSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

func runPairingSpinner(ctx context.Context, output io.Writer, start func(context.Context) domain.PairingResult) (domain.PairingResult, error) {
	startCmd := func() tea.Msg {
		return pairingDoneMsg{result: start(ctx)}
	}

	p := tea.NewProgram(
		newPairingSpinnerModel("Waiting for the connection to open...", startCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return domain.PairingResult{}, err
	}

	result, ok := finalModel.(pairingSpinnerModel)
	if !ok {
		return domain.PairingResult{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.result, nil
}
