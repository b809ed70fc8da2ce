package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/preisach/internal/model"
)

const (
	width           = 60
	height          = 20
	historyCapacity = 600
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(45)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(2)
)

type TickMsg time.Time

type view int

const (
	viewLoop view = iota
	viewDensity
)

// Live applies a field sequence to a model one step per tick and draws the
// traced loop. The model's history is extended in place.
type Live struct {
	md       *model.Model
	initial  *model.Model
	fields   []float64
	pos      int
	h, m     []float64
	canvas   *Canvas
	camera   *Camera
	view     view
	running  bool
	showHelp bool
	err      error
}

// NewLive prepares a live view. md is cloned so that reset can restore it.
func NewLive(md *model.Model, fields []float64) Live {
	return Live{
		md:      md,
		initial: md.Clone(),
		fields:  fields,
		h:       make([]float64, 0, historyCapacity),
		m:       make([]float64, 0, historyCapacity),
		canvas:  NewCanvas(width, height),
		camera:  NewCamera(),
		running: true,
	}
}

func (l Live) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second/30, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Update handles input events and steps the model.
func (l Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			l.running = !l.running
		case "r":
			l.reset()
		case "d":
			if l.view == viewLoop {
				l.view = viewDensity
			} else {
				l.view = viewLoop
			}
		case "x":
			l.camera.RotateX(0.1)
		case "X":
			l.camera.RotateX(-0.1)
		case "y":
			l.camera.RotateY(0.1)
		case "Y":
			l.camera.RotateY(-0.1)
		case "+", "=":
			l.camera.ZoomIn()
		case "-", "_":
			l.camera.ZoomOut()
		case "t":
			NextTheme()
		case "?":
			l.showHelp = !l.showHelp
		}
	case TickMsg:
		if l.running {
			l.step()
		}
		return l, tick()
	}
	return l, nil
}

// step applies the next field value.
func (l *Live) step() {
	if l.err != nil || l.pos >= len(l.fields) {
		l.running = false
		return
	}
	field := l.fields[l.pos]
	if err := l.md.ApplyField(field); err != nil {
		l.err = err
		l.running = false
		return
	}
	out, err := l.md.Evaluate(model.Current, nil, true)
	if err != nil {
		l.err = err
		l.running = false
		return
	}
	l.pos++

	l.h = append(l.h, field)
	l.m = append(l.m, out[0])
	if len(l.h) > historyCapacity {
		l.h = l.h[1:]
		l.m = l.m[1:]
	}
}

// reset restores the model and restarts the sequence.
func (l *Live) reset() {
	l.md = l.initial.Clone()
	l.pos = 0
	l.h = l.h[:0]
	l.m = l.m[:0]
	l.err = nil
	l.running = true
}

func (l *Live) draw() {
	l.canvas.Clear()
	switch l.view {
	case viewDensity:
		Render3D(l.canvas, DensityWireframe(l.md.Mesh(), l.md.Density()), l.camera)
	default:
		domain := l.md.ValidDomain()
		b := BoundsOf(domain[:], l.m, 0.05)
		l.canvas.Axes(b)
		l.canvas.Polyline(b, l.h, l.m)
	}
}

// View renders the TUI interface.
func (l Live) View() string {
	l.draw()
	canvasView := canvasStyle.Render(lipgloss.NewStyle().Foreground(CurrentTheme.Predicted).Render(l.canvas.String()))

	var s strings.Builder
	title := "HYSTERESIS LOOP"
	if l.view == viewDensity {
		title = "PREISACH DENSITY"
	}
	s.WriteString(headerStyle.Render(title) + "\n")

	switch {
	case l.err != nil:
		s.WriteString(StatusError.Render("ERROR") + "\n" + valueStyle.Render(l.err.Error()) + "\n\n")
	case l.pos >= len(l.fields):
		s.WriteString(StatusPaused.Render("DONE") + "\n\n")
	case l.running:
		s.WriteString(StatusRunning.Render("RUNNING") + "\n\n")
	default:
		s.WriteString(StatusPaused.Render("PAUSED") + "\n\n")
	}

	if len(l.m) > 1 {
		chart := asciigraph.Plot(l.m, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("Magnetization"))
		s.WriteString(graphStyle.Render(chart) + "\n\n")
	}

	progress := 1.0
	if len(l.fields) > 0 {
		progress = float64(l.pos) / float64(len(l.fields))
	}
	s.WriteString(labelStyle.Render("Step") + valueStyle.Render(fmt.Sprintf("%d/%d", l.pos, len(l.fields))) + "\n")
	s.WriteString(ProgressBar(progress, 24) + "\n")
	if n := len(l.h); n > 0 {
		s.WriteString(labelStyle.Render("Field") + valueStyle.Render(fmt.Sprintf("%.4g", l.h[n-1])) + "\n")
		s.WriteString(labelStyle.Render("Magnet.") + valueStyle.Render(fmt.Sprintf("%.4g", l.m[n-1])) + "\n")
	}

	s.WriteString("\nPARAMETERS\n")
	s.WriteString(labelStyle.Render("scale") + valueStyle.Render(fmt.Sprintf("%.4g", l.md.Scale())) + "\n")
	s.WriteString(labelStyle.Render("offset") + valueStyle.Render(fmt.Sprintf("%.4g", l.md.Offset())) + "\n")
	s.WriteString(labelStyle.Render("slope") + valueStyle.Render(fmt.Sprintf("%.4g", l.md.Slope())) + "\n")
	s.WriteString(labelStyle.Render("mesh") + valueStyle.Render(fmt.Sprintf("%d", l.md.NMeshPoints())) + "\n")
	s.WriteString(labelStyle.Render("theme") + valueStyle.Render(CurrentTheme.Name) + "\n")

	s.WriteString(helpStyle.Render("\n─────────────────────\nSP:Pause R:Reset Q:Quit\nD:View T:Theme ?:Help"))
	statsView := statsStyle.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if l.showHelp {
		return `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume             ║
║  R        - Reset and restart        ║
║  Q        - Quit                     ║
║  D        - Loop / density view      ║
║  X/Y      - Rotate density view      ║
║  +/-      - Zoom density view        ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
╚══════════════════════════════════════╝
` + "\n\n" + mainView
	}
	return mainView
}

// RunLive runs the live view until the user quits.
func RunLive(md *model.Model, fields []float64) error {
	_, err := tea.NewProgram(NewLive(md, fields), tea.WithAltScreen()).Run()
	return err
}
