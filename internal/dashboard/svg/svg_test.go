package svg

import (
	"strings"
	"testing"
)

func TestStackedBarsProducesSVG(t *testing.T) {
	html, err := StackedBars(420, 220, []string{"ULP A", "ULP B"}, []Series{
		{Label: "PBPD", Values: []int{3, 0}},
		{Label: "HAR", Values: []int{1, 2}},
	}, BarOpts{Title: "Peruntukan per Unit"})
	if err != nil {
		t.Fatalf("bars renderer error: %v", err)
	}
	output := string(html)
	if !strings.HasPrefix(output, "<svg") {
		t.Fatalf("expected svg output, got %s", output)
	}
	// Zero-valued segments are not drawn: 3 segments plus 2 legend swatches.
	if got := strings.Count(output, "<rect"); got != 5 {
		t.Fatalf("expected 5 rects, got %d", got)
	}
	if !strings.Contains(output, "ULP B") || !strings.Contains(output, "HAR") {
		t.Fatalf("expected axis label and legend")
	}
}

func TestStackedBarsValidates(t *testing.T) {
	if _, err := StackedBars(0, 0, []string{"A"}, []Series{{Label: "PBPD", Values: []int{1, 2}}}, BarOpts{}); err == nil {
		t.Fatalf("expected length mismatch error")
	}
	if _, err := StackedBars(0, 0, nil, []Series{{Label: "PBPD"}}, BarOpts{}); err == nil {
		t.Fatalf("expected labels error")
	}
}

func TestLineProducesPath(t *testing.T) {
	html, err := Line(0, 0, []int{1, 4, 2}, []string{"2024-01", "2024-02", "2024-03"}, LineOpts{Title: "Tren Bulanan", ShowDots: true})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	output := string(html)
	if !strings.Contains(output, "<path") || strings.Count(output, "<circle") != 3 {
		t.Fatalf("unexpected line output: %s", output)
	}
	if !strings.Contains(output, "2024-02") {
		t.Fatalf("expected month label")
	}
}

func TestLineSinglePointAndEscaping(t *testing.T) {
	html, err := Line(300, 150, []int{0}, []string{"<bad>"}, LineOpts{})
	if err != nil {
		t.Fatalf("line renderer error: %v", err)
	}
	if strings.Contains(string(html), "<bad>") {
		t.Fatalf("label not escaped")
	}
}

func TestNiceCeil(t *testing.T) {
	cases := map[[2]int]int{{0, 5}: 5, {3, 5}: 5, {7, 5}: 10, {10, 5}: 10, {11, 4}: 12}
	for in, want := range cases {
		if got := niceCeil(in[0], in[1]); got != want {
			t.Fatalf("niceCeil(%d,%d)=%d want %d", in[0], in[1], got, want)
		}
	}
}

func TestEmpty(t *testing.T) {
	if !strings.Contains(string(Empty(0, 0, "Belum ada data")), "Belum ada data") {
		t.Fatalf("placeholder text missing")
	}
}
