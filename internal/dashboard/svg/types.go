package svg

import "html/template"

// Series is one stacked layer of the bar chart.
type Series struct {
	Label  string
	Color  string
	Values []int
}

// LineOpts customises the line chart renderer.
type LineOpts struct {
	Title       string
	Description string
	StrokeColor string
	FillColor   string
	AxisColor   string
	GridColor   string
	Padding     float64
	ShowDots    bool
	TickCount   int
}

// BarOpts customises the stacked bar renderer.
type BarOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
}

// Defaults for the dashboard charts.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

var defaultColors = []string{"#2563eb", "#f59e0b", "#10b981", "#ef4444"}

// Renderer exposes the chart functions behind the dashboard renderer contract.
type Renderer struct{}

// StackedBars delegates to the package renderer.
func (Renderer) StackedBars(width, height int, labels []string, series []Series, opts BarOpts) (template.HTML, error) {
	return StackedBars(width, height, labels, series, opts)
}

// Line delegates to the package renderer.
func (Renderer) Line(width, height int, values []int, labels []string, opts LineOpts) (template.HTML, error) {
	return Line(width, height, values, labels, opts)
}
