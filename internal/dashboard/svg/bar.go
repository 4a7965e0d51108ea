package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// StackedBars renders one column per label with the series stacked bottom-up.
func StackedBars(width, height int, labels []string, series []Series, opts BarOpts) (template.HTML, error) {
	if len(series) == 0 {
		return "", fmt.Errorf("svg: at least one series required")
	}
	if len(labels) == 0 {
		return "", fmt.Errorf("svg: labels required")
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: series %q length must match labels", s.Label)
		}
	}

	maxStack := 0
	for i := range labels {
		total := 0
		for _, s := range series {
			if s.Values[i] > 0 {
				total += s.Values[i]
			}
		}
		if total > maxStack {
			maxStack = total
		}
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount, maxStack)
	if err != nil {
		return "", err
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	var b strings.Builder
	f.open(&b, fallback(opts.Title, "Bar chart"), fallback(opts.Description, "Stacked bar comparison"), "bar")
	f.grid(&b, axisColor, gridColor)

	groupWidth := f.plotW / float64(len(labels))
	barWidth := groupWidth * 0.6
	for i, label := range labels {
		x := f.padding + float64(i)*groupWidth + (groupWidth-barWidth)/2
		running := 0
		for j, s := range series {
			v := s.Values[i]
			if v <= 0 {
				continue
			}
			top := f.y(running + v)
			h := f.y(running) - top
			fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"%.2f\" height=\"%.2f\" fill=\"%s\"><title>%s %s: %d</title></rect>",
				x, top, barWidth, h, seriesColor(s, j), template.HTMLEscapeString(s.Label), template.HTMLEscapeString(label), v)
			running += v
		}
		f.xLabel(&b, x+barWidth/2, label, axisColor)
	}

	legendX := f.padding
	legendY := f.padding - 14
	if legendY < 12 {
		legendY = 12
	}
	for j, s := range series {
		fmt.Fprintf(&b, "<rect x=\"%.2f\" y=\"%.2f\" width=\"10\" height=\"10\" fill=\"%s\"></rect>", legendX, legendY-8, seriesColor(s, j))
		fmt.Fprintf(&b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"start\">%s</text>", legendX+14, legendY, axisColor, template.HTMLEscapeString(s.Label))
		legendX += 80
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

func seriesColor(s Series, i int) string {
	return fallback(s.Color, defaultColors[i%len(defaultColors)])
}
