package tui

import (
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xdraw "golang.org/x/image/draw"

	"github.com/robosharks/photosphere/internal/pano"
)

// panStepDegrees is the arrow-key pan increment.
const panStepDegrees = 5

type viewerModel struct {
	view *pano.View

	cols int
	rows int
}

func newViewerModel(v *pano.View) *viewerModel {
	return &viewerModel{view: v, cols: 80, rows: 24}
}

func (m *viewerModel) Init() tea.Cmd { return nil }

func (m *viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols = msg.Width
		m.rows = msg.Height
		return m, nil
	case tea.MouseMsg:
		// The pointer's column maps directly onto the mosaic's x axis;
		// the view wraps it modulo the mosaic width.
		cols := m.previewCols()
		if cols > 0 {
			m.view.SetOffset(msg.X * m.view.Width() / cols)
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "left":
			m.view.Pan(-m.view.Width() * panStepDegrees / 360)
		case "right":
			m.view.Pan(m.view.Width() * panStepDegrees / 360)
		case "r":
			m.view.SetOffset(0)
		}
		return m, nil
	}
	return m, nil
}

func (m *viewerModel) previewCols() int {
	if m.cols < 2 {
		return 0
	}
	return m.cols
}

// previewRows leaves two lines for the status bar and help.
func (m *viewerModel) previewRows() int {
	if m.rows <= 3 {
		return 1
	}
	return m.rows - 2
}

func (m *viewerModel) View() string {
	cols := m.previewCols()
	rows := m.previewRows()
	if cols == 0 {
		return ""
	}

	shifted := m.view.Render()

	// Downscale for the terminal only; the pan itself stays pixel-exact.
	// Nearest neighbour keeps missing-pose gaps visible as hard edges.
	preview := image.NewRGBA(image.Rect(0, 0, cols, rows*2))
	xdraw.NearestNeighbor.Scale(preview, preview.Bounds(), shifted, shifted.Bounds(), xdraw.Src, nil)

	var b strings.Builder
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top := preview.RGBAAt(x, y*2)
			bot := preview.RGBAAt(x, y*2+1)
			cell := lipgloss.NewStyle().
				Foreground(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", top.R, top.G, top.B))).
				Background(lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", bot.R, bot.G, bot.B)))
			b.WriteString(cell.Render("▀"))
		}
		b.WriteString("\n")
	}

	deg := m.view.Offset() * 360 / m.view.Width()
	b.WriteString(valueStyle.Render(fmt.Sprintf("offset %dpx (%d°)  %dx%d mosaic",
		m.view.Offset(), deg, m.view.Width(), m.view.Height())))
	b.WriteString(helpStyle.Render("  drag/move mouse to pan  ←/→: step  r: reset  q: quit"))
	return b.String()
}

// RunViewer opens the interactive panorama viewer over a stitched mosaic.
func RunViewer(mosaic *image.RGBA) error {
	v, err := pano.NewView(mosaic)
	if err != nil {
		return err
	}
	p := tea.NewProgram(newViewerModel(v), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err = p.Run()
	return err
}
