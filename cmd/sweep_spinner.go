package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/quotaguard/internal/application"
)

type sweepDoneMsg struct {
	report application.SweepReport
	err    error
}

type sweepSpinnerModel struct {
	spinner spinner.Model
	label   string
	run     tea.Cmd
	report  application.SweepReport
	err     error
	done    bool
}

func newSweepSpinnerModel(label string, run tea.Cmd) sweepSpinnerModel {
	s := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("69"))),
	)

	return sweepSpinnerModel{
		spinner: s,
		label:   label,
		run:     run,
	}
}

func (m sweepSpinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m sweepSpinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case sweepDoneMsg:
		m.done = true
		m.report = msg.report
		m.err = msg.err
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m sweepSpinnerModel) View() string {
	if m.done {
		return ""
	}

	return fmt.Sprintf("%s %s", m.spinner.View(), m.label)
}

// runSweepSpinner runs the sweep while drawing a spinner on output.
func runSweepSpinner(ctx context.Context, output io.Writer, sweep func(context.Context) (application.SweepReport, error)) (application.SweepReport, error) {
	runCmd := func() tea.Msg {
		report, err := sweep(ctx)
		return sweepDoneMsg{report: report, err: err}
	}

	p := tea.NewProgram(
		newSweepSpinnerModel("Sweeping expired blocks and protections...", runCmd),
		tea.WithInput(nil),
		tea.WithOutput(output),
		tea.WithContext(ctx),
	)

	finalModel, err := p.Run()
	if err != nil {
		return application.SweepReport{}, err
	}

	result, ok := finalModel.(sweepSpinnerModel)
	if !ok {
		return application.SweepReport{}, fmt.Errorf("unexpected final spinner model type %T", finalModel)
	}

	return result.report, result.err
}
