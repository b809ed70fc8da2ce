package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/preisach/internal/model"
	"github.com/san-kum/preisach/internal/preisach"
)

func TestCanvasSetAndLine(t *testing.T) {
	c := NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(-1, 3)
	c.Set(100, 100)
	if !c.IsSet(0, 0) {
		t.Error("expected (0,0) set")
	}
	if c.IsSet(1, 0) {
		t.Error("expected (1,0) clear")
	}

	c.Clear()
	c.DrawLine(0, 0, 7, 7)
	for i := 0; i <= 7; i++ {
		if !c.IsSet(i, i) {
			t.Errorf("diagonal pixel %d not set", i)
		}
	}
	lines := strings.Split(strings.TrimRight(c.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Errorf("expected 2 rows, got %d", len(lines))
	}
}

func TestBoundsOf(t *testing.T) {
	b := BoundsOf([]float64{-1, 1}, []float64{2, 2}, 0.1)
	if math.Abs(b.XMin+1.2) > 1e-12 || math.Abs(b.XMax-1.2) > 1e-12 {
		t.Errorf("unexpected x bounds: %+v", b)
	}
	if b.YMin != 1.5 || b.YMax != 2.5 {
		t.Errorf("degenerate y span should widen to 1: %+v", b)
	}

	empty := BoundsOf(nil, nil, 0.1)
	if empty.XMin != -1 || empty.XMax != 1 {
		t.Errorf("empty bounds should default to [-1, 1]: %+v", empty)
	}
}

func TestPolylineCorners(t *testing.T) {
	c := NewCanvas(10, 5)
	b := Bounds{XMin: 0, XMax: 1, YMin: 0, YMax: 1}
	c.Polyline(b, []float64{0, 1}, []float64{1, 0})
	if !c.IsSet(0, 0) {
		t.Error("top-left corner should be set for (0, 1)")
	}
	if !c.IsSet(19, 19) {
		t.Error("bottom-right corner should be set for (1, 0)")
	}
}

func TestLoopPlotAndSeries(t *testing.T) {
	h := []float64{-1, 0, 1, 0, -1}
	m := []float64{-1, -0.5, 1, 0.5, -1}

	out := LoopPlot(h, m, m, 20, 8)
	if !strings.Contains(out, "h [") {
		t.Error("loop plot should include the axis ranges")
	}
	if SeriesChart(nil, nil, 20, 5) != "" {
		t.Error("empty prediction should render nothing")
	}
	if SeriesChart(m, m, 20, 5) == "" || SeriesChart(nil, m, 20, 5) == "" {
		t.Error("expected a chart")
	}
	if ResidualLine(m, m, 10) == "" {
		t.Error("expected a residual line")
	}
}

func TestDensityWireframe(t *testing.T) {
	mesh := preisach.Mesh{{Alpha: 0.5, Beta: 0.2}, {Alpha: 1, Beta: 0}}
	w := DensityWireframe(mesh, []float64{0.2, 0.4})
	if len(w.Edges) != 5 {
		t.Fatalf("expected triangle plus 2 sticks, got %d edges", len(w.Edges))
	}
	if h := w.Edges[4].End.Y - w.Edges[4].Start.Y; math.Abs(h-0.8) > 1e-12 {
		t.Errorf("tallest stick should be 0.8, got %f", h)
	}

	c := NewCanvas(30, 10)
	Render3D(c, w, NewCamera())
	if strings.Trim(c.String(), "⠀\n") == "" {
		t.Error("density render left the canvas blank")
	}

	if n := len(DensityWireframe(mesh, []float64{0, 0}).Edges); n != 3 {
		t.Errorf("zero density should draw only the plane, got %d edges", n)
	}
}

func TestThemes(t *testing.T) {
	SetTheme("ocean")
	if CurrentTheme.Name != "ocean" {
		t.Fatalf("expected ocean, got %s", CurrentTheme.Name)
	}
	NextTheme()
	if CurrentTheme.Name != ThemeNames()[0] {
		t.Errorf("NextTheme should wrap, got %s", CurrentTheme.Name)
	}
	if GetTheme("missing").Name != "cyberpunk" {
		t.Error("unknown theme should fall back to cyberpunk")
	}
}

func TestSummary(t *testing.T) {
	out := Summary("Fit", []Row{FloatRow("loss", 0.125), {Label: "status", Value: "ok"}})
	for _, want := range []string{"Fit", "loss", "0.125", "status", "ok"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q", want)
		}
	}
}

func TestSeparator(t *testing.T) {
	out := Separator(20)
	if !strings.Contains(out, "◆") {
		t.Errorf("separator missing marker: %q", out)
	}
	if n := strings.Count(out, "─"); n != 14 {
		t.Errorf("expected 14 rule characters, got %d", n)
	}
	if n := strings.Count(Separator(2), "─"); n != 0 {
		t.Errorf("narrow separator should have no rule, got %d", n)
	}
}

func newLiveModel(t *testing.T) *model.Model {
	t.Helper()
	opts := model.DefaultOptions()
	opts.FixedDomain = &[2]float64{-1, 1}
	md, err := model.New(opts, nil, nil)
	if err != nil {
		t.Fatalf("model.New failed: %v", err)
	}
	return md
}

func TestLiveSteps(t *testing.T) {
	md := newLiveModel(t)
	fields := []float64{0.5, 1, 0, -1}
	var tm tea.Model = NewLive(md, fields)

	for i := 0; i < len(fields)+2; i++ {
		tm, _ = tm.Update(TickMsg{})
	}
	l := tm.(Live)
	if l.pos != len(fields) {
		t.Fatalf("expected %d steps, got %d", len(fields), l.pos)
	}
	if l.running {
		t.Error("live view should stop at the end of the sequence")
	}
	if got := len(md.HistoryH()); got != len(fields) {
		t.Errorf("expected %d history steps, got %d", len(fields), got)
	}
	if !strings.Contains(l.View(), "DONE") {
		t.Error("view should report completion")
	}

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	l = tm.(Live)
	if l.pos != 0 || l.md.HasHistory() || !l.running {
		t.Error("reset should restore the initial model")
	}

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !strings.Contains(tm.View(), "DENSITY") {
		t.Error("d should switch to the density view")
	}
}

func TestLiveStopsOnDomainError(t *testing.T) {
	var tm tea.Model = NewLive(newLiveModel(t), []float64{0.2, 3})
	tm, _ = tm.Update(TickMsg{})
	tm, _ = tm.Update(TickMsg{})
	l := tm.(Live)
	if l.err == nil || l.running {
		t.Fatal("expected the out-of-domain field to stop the view")
	}
	if l.pos != 1 {
		t.Errorf("expected 1 applied step, got %d", l.pos)
	}
}
