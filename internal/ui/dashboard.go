package ui

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/solana-amm/internal/monitor"
	"github.com/rovshanmuradov/solana-amm/internal/simulation"
	"github.com/rovshanmuradov/solana-amm/internal/ui/component"
	"github.com/rovshanmuradov/solana-amm/internal/ui/style"
)

type focus int

const (
	focusSwaps focus = iota
	focusLogs
)

// Dashboard главный экран: резервы и K рынка, последние свапы, алерты
// монитора инвариантов и хвост логов.
type Dashboard struct {
	services  *Services
	feed      *Feed
	throttler *SnapshotThrottler
	keys      KeyMap
	help      help.Model

	header *component.StatusHeader
	swaps  *component.Table
	price  *component.Sparkline
	logs   *component.LogPane

	snapshot SnapshotMsg
	selected int
	focus    focus
	report   *simulation.Report
	err      error

	width  int
	height int
}

// NewDashboard creates the dashboard model. throttler may be nil when the
// snapshots are driven by ticks only.
func NewDashboard(services *Services, feed *Feed, throttler *SnapshotThrottler) *Dashboard {
	header := &component.StatusHeader{
		Program: services.ProgramID.String(),
		Mode:    services.Mode,
		Running: true,
	}
	return &Dashboard{
		services:  services,
		feed:      feed,
		throttler: throttler,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		header:    header,
		swaps: component.NewTable(
			component.TableColumn{Header: "time", Width: 8},
			component.TableColumn{Header: "trader", Width: 11},
			component.TableColumn{Header: "in", Width: 10, Align: lipgloss.Right},
			component.TableColumn{Header: "out", Width: 10, Align: lipgloss.Right},
			component.TableColumn{Header: "reserve x", Width: 12, Align: lipgloss.Right},
			component.TableColumn{Header: "reserve y", Width: 12, Align: lipgloss.Right},
			component.TableColumn{Header: "status", Width: 28},
		),
		price: component.NewSparkline(40),
		logs:  component.NewLogPane(services.Logs, 80, 6),
	}
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(d.services.Refresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init initializes the dashboard
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.feed.Listen(), d.tick())
}

// Update handles messages
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width, d.height = msg.Width, msg.Height
		d.layout()
		return d, nil

	case tea.KeyMsg:
		return d.handleKey(msg)

	case tickMsg:
		if d.throttler != nil {
			d.throttler.FlushPending()
		}
		d.logs.Refresh()
		return d, d.tick()

	case SnapshotMsg:
		d.applySnapshot(msg)
		return d, d.feed.Listen()

	case SimulationDoneMsg:
		d.header.Running = false
		d.report, d.err = msg.Report, msg.Err
		d.applySnapshot(d.services.Snapshot())
		return d, d.feed.Listen()

	case ErrorMsg:
		d.err = fmt.Errorf("%s: %w", msg.Title, msg.Error)
		return d, d.feed.Listen()
	}
	return d, nil
}

func (d *Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, d.keys.Quit):
		return d, tea.Quit
	case key.Matches(msg, d.keys.Help):
		d.help.ShowAll = !d.help.ShowAll
	case key.Matches(msg, d.keys.Tab):
		if d.focus == focusSwaps {
			d.focus = focusLogs
		} else {
			d.focus = focusSwaps
		}
	case key.Matches(msg, d.keys.Up):
		if d.focus == focusSwaps {
			d.swaps.ScrollUp()
		}
	case key.Matches(msg, d.keys.Down):
		if d.focus == focusSwaps {
			d.swaps.ScrollDown()
		}
	case key.Matches(msg, d.keys.Left):
		if d.selected > 0 {
			d.selected--
			d.applySnapshot(d.snapshot)
		}
	case key.Matches(msg, d.keys.Right):
		if d.selected < len(d.snapshot.Snapshot.Markets)-1 {
			d.selected++
			d.applySnapshot(d.snapshot)
		}
	case key.Matches(msg, d.keys.Refresh):
		d.applySnapshot(d.services.Snapshot())
		d.logs.Refresh()
	case key.Matches(msg, d.keys.ToggleDebug):
		d.logs.ToggleDebug()
		d.logs.Refresh()
	}
	return d, nil
}

func (d *Dashboard) layout() {
	d.header.SetWidth(d.width)
	rows := d.height - 20
	logRows := rows / 3
	d.swaps.SetHeight(rows - logRows)
	d.logs.SetSize(max(d.width-4, 20), max(logRows, 3))
}

// current returns the selected market, nil before the first init event.
func (d *Dashboard) current() *monitor.MarketSnapshot {
	markets := d.snapshot.Snapshot.Markets
	if len(markets) == 0 {
		return nil
	}
	if d.selected >= len(markets) {
		d.selected = len(markets) - 1
	}
	return &markets[d.selected]
}

func (d *Dashboard) applySnapshot(msg SnapshotMsg) {
	d.snapshot = msg
	d.header.Updated = msg.Taken
	d.header.Alerts = len(msg.Snapshot.Alerts)

	m := d.current()
	if m == nil {
		return
	}
	d.header.Swaps = m.Stats.TotalSwaps
	d.header.Failed = m.Stats.FailedSwaps

	records := msg.Swaps[m.Vault]
	rows := make([]component.TableRow, 0, len(records))
	prices := make([]float64, 0, len(records))
	for _, r := range records {
		rows = append(rows, swapRow(r, m))
		if r.Success && r.ReserveX > 0 {
			prices = append(prices, float64(r.ReserveY)/float64(r.ReserveX))
		}
	}
	d.swaps.SetRows(rows)
	d.price.SetData(prices)
}

func swapRow(r monitor.SwapRecord, m *monitor.MarketSnapshot) component.TableRow {
	dir := "Y→X"
	if r.MintIn.Equals(m.MintX) {
		dir = "X→Y"
	}
	row := component.TableRow{Data: []string{
		r.Timestamp.Format("15:04:05"),
		component.ShortKey(r.Trader.String()),
		fmt.Sprintf("%d", r.AmountIn),
		fmt.Sprintf("%d", r.AmountOut),
		fmt.Sprintf("%d", r.ReserveX),
		fmt.Sprintf("%d", r.ReserveY),
		dir + " ok",
	}}
	if !r.Success {
		row.Data[3], row.Data[4], row.Data[5] = "-", "-", "-"
		row.Data[6] = dir + " " + r.Code
		row.Level = "warning"
	}
	return row
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	sections := []string{d.header.View()}

	top := lipgloss.JoinHorizontal(lipgloss.Top, d.marketView(), d.alertsView())
	sections = append(sections, top)

	swapsTitle := style.SubHeaderStyle.Render("Swaps")
	sections = append(sections, style.Panel(d.focus == focusSwaps).Render(swapsTitle+"\n"+d.swaps.View()))

	logsTitle := style.SubHeaderStyle.Render("Logs")
	sections = append(sections, style.Panel(d.focus == focusLogs).Render(logsTitle+"\n"+d.logs.View()))

	if footer := d.footerView(); footer != "" {
		sections = append(sections, footer)
	}
	sections = append(sections, d.help.View(d.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d *Dashboard) marketView() string {
	m := d.current()
	if m == nil {
		return style.PanelStyle.Width(56).Render(style.MutedStyle.Render("waiting for market..."))
	}

	palette := style.DefaultPalette()
	reserve := func(label string, v uint64, c lipgloss.Color) string {
		return style.LabelStyle.Render(label) + lipgloss.NewStyle().Foreground(c).Bold(true).Render(fmt.Sprintf("%d", v))
	}

	audit := style.MutedStyle.Render("not audited")
	if m.Audited && m.Balanced {
		audit = style.SuccessStyle.Render("balanced")
	} else if m.Audited {
		audit = style.ErrorStyle.Render("unbalanced")
	}

	lines := []string{
		style.TitleStyle.Render(fmt.Sprintf("Market %d/%d ", d.selected+1, len(d.snapshot.Snapshot.Markets))) +
			style.LabelStyle.Render(component.ShortKey(m.Vault.String())),
		reserve("X  ", m.ReserveX, palette.ReserveX) + "   " + reserve("Y  ", m.ReserveY, palette.ReserveY),
		style.LabelStyle.Render("K  ") + style.ValueStyle.Render(formatProduct(m.Product)),
		style.LabelStyle.Render("Y/X ") + d.price.View(),
		style.LabelStyle.Render("volume ") + fmt.Sprintf("x=%d y=%d", m.Stats.VolumeX, m.Stats.VolumeY),
		style.LabelStyle.Render("audit  ") + audit,
	}
	return style.PanelStyle.Width(56).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) alertsView() string {
	alerts := d.snapshot.Snapshot.Alerts
	lines := []string{style.SubHeaderStyle.Render("Invariant alerts")}
	if len(alerts) == 0 {
		lines = append(lines, style.SuccessStyle.Render("none"))
	}
	for i := len(alerts) - 1; i >= 0 && len(lines) < 7; i-- {
		a := alerts[i]
		lines = append(lines, style.Severity(a.Severity).Render(
			fmt.Sprintf("%s %s %s", a.Timestamp.Format("15:04:05"), a.Type, a.Message)))
	}
	width := max(d.width-60, 30)
	return style.PanelStyle.Width(width).Render(strings.Join(lines, "\n"))
}

func (d *Dashboard) footerView() string {
	if d.err != nil {
		return style.ErrorStyle.Render("error: " + d.err.Error())
	}
	if d.report == nil {
		return ""
	}
	held := style.SuccessStyle.Render("K held")
	if !d.report.ProductHeld() {
		held = style.ErrorStyle.Render("K rose")
	}
	var failures []string
	for _, code := range d.report.FailureCodes() {
		failures = append(failures, fmt.Sprintf("%s=%d", code, d.report.Failures[code]))
	}
	line := fmt.Sprintf("%s  swaps=%d failed=%d [%s] in %s",
		held, d.report.Swaps, d.report.Failed, strings.Join(failures, " "),
		d.report.Duration.Round(time.Millisecond))
	if d.report.Audit != nil {
		line += "\n" + d.report.Audit.String()
	}
	return line
}

// formatProduct группирует цифры K по три.
func formatProduct(k *big.Int) string {
	if k == nil {
		return "-"
	}
	s := k.String()
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return b.String()
}
