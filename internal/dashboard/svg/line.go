package svg

import (
	"fmt"
	"html/template"
	"strings"
)

// Line renders a line chart of counts over labels.
func Line(width, height int, values []int, labels []string, opts LineOpts) (template.HTML, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("svg: series required")
	}
	if len(values) != len(labels) {
		return "", fmt.Errorf("svg: labels length must match series")
	}
	maxVal := 0
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
	}
	f, err := newFrame(width, height, opts.Padding, opts.TickCount, maxVal)
	if err != nil {
		return "", err
	}
	strokeColor := fallback(opts.StrokeColor, "#2563eb")
	fillColor := fallback(opts.FillColor, "rgba(37,99,235,0.12)")
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#cbd5e1")

	xAt := func(i int) float64 {
		if len(values) == 1 {
			return f.padding + f.plotW/2
		}
		return f.padding + float64(i)*f.plotW/float64(len(values)-1)
	}

	var path strings.Builder
	for i, v := range values {
		cmd := "L"
		if i == 0 {
			cmd = "M"
		}
		if i > 0 {
			path.WriteByte(' ')
		}
		fmt.Fprintf(&path, "%s%.2f %.2f", cmd, xAt(i), f.y(v))
	}

	var b strings.Builder
	f.open(&b, fallback(opts.Title, "Line chart"), fallback(opts.Description, "Trend data"), "line")
	f.grid(&b, axisColor, gridColor)

	base := f.padding + f.plotH
	fmt.Fprintf(&b, "<path d=\"%s L%.2f %.2f L%.2f %.2f Z\" fill=\"%s\" stroke=\"none\" aria-hidden=\"true\"></path>", path.String(), xAt(len(values)-1), base, xAt(0), base, fillColor)
	fmt.Fprintf(&b, "<path d=\"%s\" fill=\"none\" stroke=\"%s\" stroke-width=\"2\" stroke-linejoin=\"round\" stroke-linecap=\"round\"></path>", path.String(), strokeColor)

	for i, v := range values {
		if opts.ShowDots {
			fmt.Fprintf(&b, "<circle cx=\"%.2f\" cy=\"%.2f\" r=\"3\" fill=\"%s\"><title>%s: %d</title></circle>", xAt(i), f.y(v), strokeColor, template.HTMLEscapeString(labels[i]), v)
		}
		f.xLabel(&b, xAt(i), labels[i], axisColor)
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
