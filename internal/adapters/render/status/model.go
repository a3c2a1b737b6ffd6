package status

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/quotaguard/internal/application"
	"github.com/bnema/quotaguard/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

const defaultBarWidth = 24

type renderReadyMsg struct{}

// tally summarizes the fleet shown above the per-account sections.
type tally struct {
	total     int
	blocked   int
	protected int
	nearLimit int
}

func tallyStatuses(statuses []application.AccountStatus, warningRatio float64) tally {
	t := tally{total: len(statuses)}
	for _, status := range statuses {
		switch {
		case status.IsBlocked():
			t.blocked++
		case status.Usage != nil && status.Usage.ReachedWarning(status.Account.DailyLimit, warningRatio):
			t.nearLimit++
		}
		if status.Account.AdministrativeProtection {
			t.protected++
		}
	}
	return t
}

type model struct {
	statuses []application.AccountStatus
	opts     RenderOptions
	styles   styles
	tally    tally
	output   string
}

func newModel(statuses []application.AccountStatus, opts RenderOptions) model {
	if opts.BarWidth <= 0 {
		opts.BarWidth = defaultBarWidth
	}
	if opts.WarningRatio <= 0 || opts.WarningRatio >= 1 {
		opts.WarningRatio = domain.DefaultWarningRatio
	}
	return model{
		statuses: statuses,
		opts:     opts,
		styles:   newStyles(opts.Plain),
		tally:    tallyStatuses(statuses, opts.WarningRatio),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.statuses, m.tally, m.opts, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

// Render draws the statuses once through a headless bubbletea program.
func Render(statuses []application.AccountStatus, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(statuses, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
