package render

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/jgoulah/billbuddy/internal/notify"
	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

const barWidth = 32

var (
	emerald = lipgloss.Color("#10B981")
	slate   = lipgloss.Color("#1F2937")
	muted   = lipgloss.Color("#6B7280")

	titleStyle   = lipgloss.NewStyle().Foreground(emerald).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(emerald).Padding(0, 1)
	navStyle     = lipgloss.NewStyle().Foreground(muted).Padding(0, 1)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(slate).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	selectStyle  = cellStyle.Background(lipgloss.Color("#D1FAE5")).Foreground(slate)
	costStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#047857")).Bold(true)
	profileStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(emerald).Padding(0, 1)
	tipStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(emerald).PaddingLeft(1)

	bannerStyles = map[notify.Kind]lipgloss.Style{
		notify.Info:    lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#3B82F6")).Padding(0, 1),
		notify.Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(emerald).Padding(0, 1),
		notify.Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#EF4444")).Padding(0, 1),
	}

	// hsl(i*45, 70%, 50%)
	slicePalette = []lipgloss.Color{"#D92626", "#D9A026", "#80D926", "#26D953", "#26D9D9", "#2653D9", "#8026D9", "#D926A6"}
)

// Terminal renders the dashboard as styled text. It implements Presenter,
// Canvas and notify.Sink over one writer.
type Terminal struct {
	mu       sync.Mutex
	out      io.Writer
	currency string
	drawn    int
}

// NewTerminal creates a terminal renderer writing to out
func NewTerminal(out io.Writer, currency string) *Terminal {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Terminal{out: out, currency: currency}
}

var (
	_ Presenter   = (*Terminal)(nil)
	_ Canvas      = (*Terminal)(nil)
	_ notify.Sink = (*Terminal)(nil)
)

func (t *Terminal) println(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, s)
}

func (t *Terminal) money(amount float64) string {
	return FormatCurrency(t.currency, amount)
}

func (t *Terminal) ShowLogin() {
	t.println(titleStyle.Render("BillBuddy") + mutedStyle.Render("  log in with: login <username>"))
}

func (t *Terminal) ShowApp(name string, role models.Role) {
	t.println(profileStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(name),
		mutedStyle.Render(role.DisplayName()),
	)))
}

func (t *Terminal) ShowSection(active state.View, nav []state.View) {
	items := make([]string, 0, len(nav))
	for _, v := range nav {
		label := strings.ToUpper(string(v[:1])) + string(v[1:])
		if v == active {
			items = append(items, activeStyle.Render(label))
		} else {
			items = append(items, navStyle.Render(label))
		}
	}
	t.println(lipgloss.JoinHorizontal(lipgloss.Top, items...))
}

func (t *Terminal) ShowViewing(label string) {
	t.println(mutedStyle.Render(label))
}

func (t *Terminal) ShowCustomers(list []models.Customer, selected *int) {
	if len(list) == 0 {
		t.println(mutedStyle.Render("No customers found."))
		return
	}

	rows := make([][]string, 0, len(list))
	selectedRow := -1
	for i, c := range list {
		phone := c.PhoneNo
		if phone == "" {
			phone = "N/A"
		}
		if selected != nil && *selected == c.CustomerID {
			selectedRow = i
		}
		rows = append(rows, []string{fmt.Sprint(c.CustomerID), c.CustomerName, c.EmailID, phone})
	}

	tbl := table.New().
		Headers("ID", "Name", "Email", "Phone").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == selectedRow:
				return selectStyle
			default:
				return cellStyle
			}
		})
	t.println(tbl.Render())
}

func (t *Terminal) ShowUsage(records []models.UsageRecord) {
	if len(records) == 0 {
		t.println(mutedStyle.Render("No usage records found."))
		return
	}

	rows := make([][]string, 0, len(records))
	for i, r := range records {
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			r.ApplicationName,
			fmt.Sprint(r.Qty),
			fmt.Sprintf("%d W", r.Watts),
			fmt.Sprintf("%g h", r.HoursDay),
			fmt.Sprintf("%.3f kWh", r.DailyKWh),
			t.money(r.DailyCost),
			r.DateTime,
			fmt.Sprintf("#%d", r.CustAppID),
		})
	}

	tbl := table.New().
		Headers("#", "Application", "Qty", "Watts", "Hrs/Day", "Daily kWh", "Daily Cost", "Date/Time", "Record").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 6:
				return cellStyle.Foreground(lipgloss.Color("#047857"))
			default:
				return cellStyle
			}
		})
	t.println(tbl.Render())
}

func (t *Terminal) ShowTotals(totals state.Totals) {
	card := func(label string, v float64) string {
		return profileStyle.Render(lipgloss.JoinVertical(lipgloss.Left, mutedStyle.Render(label), costStyle.Render(t.money(v))))
	}
	t.println(lipgloss.JoinHorizontal(lipgloss.Top,
		card("Today", totals.Day),
		card("This Month", totals.Month),
		card("This Year", totals.Year),
	))
}

func (t *Terminal) ShowSummary(cost float64, label string) {
	t.println(costStyle.Render(t.money(cost)) + "  " + mutedStyle.Render(label))
}

func (t *Terminal) ShowGeneralTips() {
	lines := []string{titleStyle.Render("Energy Saving Tips")}
	for _, tip := range GeneralTips {
		lines = append(lines, "• "+tip)
	}
	t.println(tipStyle.Render(strings.Join(lines, "\n")))
}

func (t *Terminal) ShowTip(appName, tip string) {
	t.println(tipStyle.Render(titleStyle.Render(appName) + "\n" + tip))
}

func (t *Terminal) ShowCatalog(apps []models.Application) {
	if len(apps) == 0 {
		t.println(mutedStyle.Render("No applications available."))
		return
	}
	rows := make([][]string, 0, len(apps))
	for _, a := range apps {
		rows = append(rows, []string{a.ApplicationName, fmt.Sprintf("%d W", a.Watts)})
	}
	tbl := table.New().Headers("Application", "Watts").Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	t.println(tbl.Render())
}

// Draw renders a chart and returns its handle
func (t *Terminal) Draw(c Chart) Handle {
	t.mu.Lock()
	t.drawn++
	id := t.drawn
	t.mu.Unlock()

	var body string
	switch {
	case c.Empty():
		body = mutedStyle.Render("(no data)")
	case c.Kind == Proportion:
		body = t.proportion(c)
	default:
		body = t.bars(c)
	}
	t.println(titleStyle.Render(c.Title) + "\n" + body)
	return &terminalChart{id: id}
}

func (t *Terminal) proportion(c Chart) string {
	var total float64
	for _, v := range c.Values {
		total += math.Max(v, 0)
	}
	width := labelWidth(c.Labels)

	lines := make([]string, 0, len(c.Values))
	for i, v := range c.Values {
		share := 0.0
		if total > 0 {
			share = math.Max(v, 0) / total
		}
		bar := lipgloss.NewStyle().Foreground(slicePalette[i%len(slicePalette)]).
			Render(strings.Repeat("█", int(math.Round(share*barWidth))))
		lines = append(lines, fmt.Sprintf("%-*s %s %5.1f%% %s", width, c.Labels[i], bar, share*100, t.money(v)))
	}
	return strings.Join(lines, "\n")
}

func (t *Terminal) bars(c Chart) string {
	var peak float64
	for _, v := range c.Values {
		peak = math.Max(peak, v)
	}
	width := labelWidth(c.Labels)
	style := lipgloss.NewStyle().Foreground(emerald)

	lines := []string{mutedStyle.Render(c.Unit)}
	for i, v := range c.Values {
		n := 0
		if peak > 0 {
			n = max(int(math.Round(v/peak*barWidth)), 0)
		}
		lines = append(lines, fmt.Sprintf("%-*s %s %s", width, c.Labels[i], style.Render(strings.Repeat("▇", n)), t.money(v)))
	}
	return strings.Join(lines, "\n")
}

func labelWidth(labels []string) int {
	w := 0
	for _, l := range labels {
		w = max(w, lipgloss.Width(l))
	}
	return w
}

// Show prints a banner
func (t *Terminal) Show(b notify.Banner) {
	style, ok := bannerStyles[b.Kind]
	if !ok {
		style = bannerStyles[notify.Info]
	}
	t.println(style.Render(b.Message))
}

// Dismiss is a no-op: printed banners scroll away on their own
func (t *Terminal) Dismiss(string) {}

type terminalChart struct {
	mu        sync.Mutex
	id        int
	destroyed bool
}

func (c *terminalChart) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed = true
}
