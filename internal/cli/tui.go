package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mapforge/pc2pgm/pkg/pointcloud"
	"github.com/mapforge/pc2pgm/pkg/slicer"
)

// Preview glyphs. One character covers a block of grid cells; a block is
// occupied if any covered cell is occupied.
const (
	glyphOccupied = "█"
	glyphFree     = "·"
	glyphUnknown  = " "
)

// sliceModel is the bubbletea model for interactive band tuning.
//
// Every parameter change rasterizes the preview cloud from scratch. The
// model never mutates a previous grid, matching the rest of the pipeline:
// parameters in, fresh grid out.
type sliceModel struct {
	cloud *pointcloud.Cloud

	zMin, zMax       float64 // current band
	fullMin, fullMax float64 // cloud z-range, band clamp limits
	step             float64 // band adjustment per key press
	resolution       float64
	minPoints        int

	grid *slicer.Grid
	geom slicer.Geometry
	err  error

	width, height int  // terminal size
	export        bool // set when the user confirmed with enter
}

// newSliceModel creates a model spanning the cloud's full z-range.
func newSliceModel(cloud *pointcloud.Cloud, cfg Config) sliceModel {
	zMin, zMax, _ := cloud.ZRange()
	step := (zMax - zMin) / 40
	if step < 0.01 {
		step = 0.01
	}
	m := sliceModel{
		cloud:      cloud,
		zMin:       zMin,
		zMax:       zMax,
		fullMin:    zMin,
		fullMax:    zMax,
		step:       step,
		resolution: cfg.Resolution,
		minPoints:  cfg.MinOccupiedPoints,
		width:      80,
		height:     24,
	}
	m.recompute()
	return m
}

func (m sliceModel) Init() tea.Cmd {
	return nil
}

func (m sliceModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "a":
			m.zMin = clamp(m.zMin+m.step, m.fullMin, m.zMax)
		case "z":
			m.zMin = clamp(m.zMin-m.step, m.fullMin, m.zMax)
		case "s":
			m.zMax = clamp(m.zMax+m.step, m.zMin, m.fullMax)
		case "x":
			m.zMax = clamp(m.zMax-m.step, m.zMin, m.fullMax)
		case "[":
			m.resolution *= 2
		case "]":
			if m.resolution/2 >= 0.001 {
				m.resolution /= 2
			}
		case "-", "_":
			if m.minPoints > 1 {
				m.minPoints--
			}
		case "+", "=":
			m.minPoints++
		case "enter":
			m.export = true
			return m, tea.Quit
		default:
			return m, nil
		}
		m.recompute()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// recompute rasterizes the preview cloud with the current parameters.
func (m *sliceModel) recompute() {
	m.grid, m.geom, m.err = slicer.Rasterize(m.cloud, slicer.Options{
		ZMin:              m.zMin,
		ZMax:              m.zMax,
		Resolution:        m.resolution,
		MinOccupiedPoints: m.minPoints,
	})
}

func (m sliceModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("pc2pgm slice"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
		StyleDim.Render("band"),
		StyleHighlight.Render(fmt.Sprintf("[%.3f, %.3f] m", m.zMin, m.zMax)),
		StyleDim.Render("res"),
		StyleHighlight.Render(fmt.Sprintf("%.3g m/px", m.resolution)),
		StyleDim.Render("min pts"),
		StyleHighlight.Render(fmt.Sprintf("%d", m.minPoints))))

	if m.err != nil {
		b.WriteString("\n" + StyleWarning.Render(m.err.Error()) + "\n")
	} else {
		b.WriteString(fmt.Sprintf("%s %dx%d cells, %d occupied, %d points in band\n",
			StyleDim.Render("grid"),
			m.grid.Width, m.grid.Height, m.grid.OccupiedCells(), m.grid.TotalPoints()))
		b.WriteString("\n")
		b.WriteString(m.renderPreview())
	}

	b.WriteString("\n")
	b.WriteString(StyleDim.Render("a/z bottom  s/x top  [/] resolution  -/+ threshold  ⏎ export  q quit"))
	b.WriteString("\n")
	return b.String()
}

// renderPreview draws the grid scaled down to the terminal viewport.
func (m sliceModel) renderPreview() string {
	maxW := m.width - 2
	maxH := m.height - 7
	if maxW < 10 {
		maxW = 10
	}
	if maxH < 5 {
		maxH = 5
	}

	sx := (m.grid.Width + maxW - 1) / maxW
	sy := (m.grid.Height + maxH - 1) / maxH
	if sx < 1 {
		sx = 1
	}
	if sy < 1 {
		sy = 1
	}

	var b strings.Builder
	for y := 0; y < m.grid.Height; y += sy {
		for x := 0; x < m.grid.Width; x += sx {
			b.WriteString(blockGlyph(m.grid, x, y, sx, sy))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// blockGlyph summarizes the sx by sy block of cells at (x, y).
func blockGlyph(grid *slicer.Grid, x, y, sx, sy int) string {
	sawFree := false
	for dy := 0; dy < sy && y+dy < grid.Height; dy++ {
		for dx := 0; dx < sx && x+dx < grid.Width; dx++ {
			switch grid.StateAt(x+dx, y+dy) {
			case slicer.CellOccupied:
				return StyleValue.Render(glyphOccupied)
			case slicer.CellFree:
				sawFree = true
			}
		}
	}
	if sawFree {
		return StyleDim.Render(glyphFree)
	}
	return glyphUnknown
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
