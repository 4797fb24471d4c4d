package render

import (
	"sync"

	"github.com/samber/lo"

	"github.com/jgoulah/billbuddy/internal/state"
	"github.com/jgoulah/billbuddy/pkg/models"
)

// Slot is one of the four chart areas
type Slot int

const (
	DashboardApp Slot = iota
	DashboardTime
	ReportApp
	ReportTime
)

// Slots lists every chart area
var Slots = []Slot{DashboardApp, DashboardTime, ReportApp, ReportTime}

func (s Slot) String() string {
	switch s {
	case DashboardApp:
		return "app-chart"
	case DashboardTime:
		return "time-chart"
	case ReportApp:
		return "report-app-chart"
	case ReportTime:
		return "report-time-chart"
	}
	return "unknown-chart"
}

// ChartKind selects how a chart is drawn
type ChartKind int

const (
	// Proportion shows each category's share of the total cost
	Proportion ChartKind = iota
	// Bars shows cost per time bucket
	Bars
)

// Chart is everything a canvas needs to draw one chart
type Chart struct {
	Slot   Slot
	Kind   ChartKind
	Title  string
	Unit   string
	Labels []string
	Values []float64
}

// Empty reports whether the chart has no data points
func (c Chart) Empty() bool {
	return len(c.Values) == 0
}

// Handle is a drawn chart. It must be destroyed before its slot is redrawn.
type Handle interface {
	Destroy()
}

// Canvas draws charts
type Canvas interface {
	Draw(c Chart) Handle
}

// Charts owns the handle of every slot and destroys the previous chart
// before drawing a new one in the same slot.
type Charts struct {
	mu       sync.Mutex
	canvas   Canvas
	currency string
	live     map[Slot]Handle
}

// NewCharts creates the chart registry over canvas
func NewCharts(canvas Canvas, currency string) *Charts {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Charts{canvas: canvas, currency: currency, live: make(map[Slot]Handle)}
}

// Breakdown draws the cost share per application in slot
func (c *Charts) Breakdown(slot Slot, data []models.AppCost) {
	c.draw(Chart{
		Slot:   slot,
		Kind:   Proportion,
		Title:  "Cost Breakdown (" + c.currency + ")",
		Labels: lo.Map(data, func(a models.AppCost, _ int) string { return a.ApplicationName }),
		Values: lo.Map(data, func(a models.AppCost, _ int) float64 { return a.TotalCost }),
	})
}

// TimeSeries draws cost per bucket in slot. unit is "Day", "Month" or "N/A".
func (c *Charts) TimeSeries(slot Slot, unit string, data []state.Bucket) {
	c.draw(Chart{
		Slot:   slot,
		Kind:   Bars,
		Title:  "Total Cost per " + unit + " (" + c.currency + ")",
		Unit:   unit,
		Labels: lo.Map(data, func(b state.Bucket, _ int) string { return b.Label }),
		Values: lo.Map(data, func(b state.Bucket, _ int) float64 { return b.Cost }),
	})
}

// Blank replaces both charts of a section with empty ones
func (c *Charts) Blank(app, timeSlot Slot) {
	c.Breakdown(app, nil)
	c.TimeSeries(timeSlot, "N/A", nil)
}

// DestroyAll releases every chart
func (c *Charts) DestroyAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for slot, h := range c.live {
		h.Destroy()
		delete(c.live, slot)
	}
}

// Live reports whether slot currently holds a chart
func (c *Charts) Live(slot Slot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.live[slot]
	return ok
}

func (c *Charts) draw(chart Chart) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.live[chart.Slot]; ok {
		old.Destroy()
		delete(c.live, chart.Slot)
	}
	if c.canvas == nil {
		return
	}
	c.live[chart.Slot] = c.canvas.Draw(chart)
}
