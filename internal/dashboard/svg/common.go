package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

type frame struct {
	width, height int
	padding       float64
	ticks         int
	plotW, plotH  float64
	max           int
}

func newFrame(width, height int, padding float64, ticks int, maxVal int) (frame, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if padding <= 0 {
		padding = DefaultPadding
	}
	if ticks <= 0 {
		ticks = DefaultTicks
	}
	f := frame{width: width, height: height, padding: padding, ticks: ticks}
	f.plotW = float64(width) - 2*padding
	f.plotH = float64(height) - 2*padding
	if f.plotW <= 0 || f.plotH <= 0 {
		return frame{}, fmt.Errorf("svg: viewport too small")
	}
	f.max = niceCeil(maxVal, ticks)
	return f, nil
}

// y maps a count onto the vertical axis.
func (f frame) y(v int) float64 {
	return f.padding + f.plotH - float64(v)/float64(f.max)*f.plotH
}

func (f frame) open(b *strings.Builder, title, desc, kind string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(b, "<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\" aria-labelledby=\"%s %s\">", f.width, f.height, titleID, descID)
	fmt.Fprintf(b, "<title id=\"%s\">%s</title>", titleID, template.HTMLEscapeString(title))
	fmt.Fprintf(b, "<desc id=\"%s\">%s</desc>", descID, template.HTMLEscapeString(desc))
}

func (f frame) grid(b *strings.Builder, axisColor, gridColor string) {
	for i := 0; i <= f.ticks; i++ {
		value := f.max * i / f.ticks
		y := f.y(value)
		fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke=\"%s\" stroke-width=\"0.5\" stroke-dasharray=\"2,4\" aria-hidden=\"true\"></line>", f.padding, y, f.padding+f.plotW, y, gridColor)
		fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"end\">%d</text>", f.padding-6, y+4, axisColor, value)
	}
	bottom := f.padding + f.plotH
	fmt.Fprintf(b, "<g stroke=\"%s\" aria-label=\"Sumbu\">", axisColor)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, f.padding, f.padding, bottom)
	fmt.Fprintf(b, "<line x1=\"%.2f\" y1=\"%.2f\" x2=\"%.2f\" y2=\"%.2f\" stroke-width=\"1\"></line>", f.padding, bottom, f.padding+f.plotW, bottom)
	b.WriteString("</g>")
}

func (f frame) xLabel(b *strings.Builder, x float64, label, color string) {
	fmt.Fprintf(b, "<text x=\"%.2f\" y=\"%.2f\" fill=\"%s\" font-size=\"10\" text-anchor=\"middle\">%s</text>", x, f.padding+f.plotH+14, color, template.HTMLEscapeString(label))
}

// Empty renders a placeholder chart carrying message.
func Empty(width, height int, message string) template.HTML {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	return template.HTML(fmt.Sprintf(
		"<svg xmlns=\"http://www.w3.org/2000/svg\" viewBox=\"0 0 %d %d\" role=\"img\"><text x=\"%d\" y=\"%d\" fill=\"#64748b\" font-size=\"12\" text-anchor=\"middle\">%s</text></svg>",
		width, height, width/2, height/2, template.HTMLEscapeString(message)))
}

// niceCeil rounds max up so every tick lands on an integer.
func niceCeil(maxVal, ticks int) int {
	if maxVal <= 0 {
		return ticks
	}
	step := int(math.Ceil(float64(maxVal) / float64(ticks)))
	return step * ticks
}

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}
