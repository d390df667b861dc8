package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mapforge/pc2pgm/pkg/pointcloud"
)

func testCloud() *pointcloud.Cloud {
	return &pointcloud.Cloud{Points: []pointcloud.Point{
		{X: 0, Y: 0, Z: 0},
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 1, Z: 1},
		{X: 2, Y: 2, Z: 2},
	}}
}

func keyMsg(s string) tea.KeyMsg {
	if s == "enter" {
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestSliceModelStartsWithFullRange(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())

	if m.zMin != 0 || m.zMax != 2 {
		t.Errorf("initial band = [%g, %g], want [0, 2]", m.zMin, m.zMax)
	}
	if m.grid == nil {
		t.Fatal("initial grid not computed")
	}
	if m.grid.TotalPoints() != 4 {
		t.Errorf("initial band points = %d, want 4", m.grid.TotalPoints())
	}
}

func TestSliceModelBandKeys(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())
	step := m.step

	next, _ := m.Update(keyMsg("a"))
	m = next.(sliceModel)
	if m.zMin != step {
		t.Errorf("z_min after 'a' = %g, want %g", m.zMin, step)
	}

	next, _ = m.Update(keyMsg("x"))
	m = next.(sliceModel)
	if m.zMax != 2-step {
		t.Errorf("z_max after 'x' = %g, want %g", m.zMax, 2-step)
	}
}

func TestSliceModelBandClamped(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())

	// Lowering the bottom below the cloud minimum stays clamped.
	for i := 0; i < 100; i++ {
		next, _ := m.Update(keyMsg("z"))
		m = next.(sliceModel)
	}
	if m.zMin != m.fullMin {
		t.Errorf("z_min = %g, want clamped to %g", m.zMin, m.fullMin)
	}

	// Raising the bottom never crosses the top.
	for i := 0; i < 1000; i++ {
		next, _ := m.Update(keyMsg("a"))
		m = next.(sliceModel)
	}
	if m.zMin > m.zMax {
		t.Errorf("z_min %g crossed z_max %g", m.zMin, m.zMax)
	}
}

func TestSliceModelThresholdKeys(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())
	start := m.minPoints

	next, _ := m.Update(keyMsg("+"))
	m = next.(sliceModel)
	if m.minPoints != start+1 {
		t.Errorf("min points after '+' = %d, want %d", m.minPoints, start+1)
	}

	// The threshold never drops below 1.
	for i := 0; i < 100; i++ {
		next, _ := m.Update(keyMsg("-"))
		m = next.(sliceModel)
	}
	if m.minPoints != 1 {
		t.Errorf("min points = %d, want 1", m.minPoints)
	}
}

func TestSliceModelEnterRequestsExport(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())

	next, cmd := m.Update(keyMsg("enter"))
	m = next.(sliceModel)
	if !m.export {
		t.Error("enter should set export")
	}
	if cmd == nil {
		t.Error("enter should quit the program")
	}
}

func TestSliceModelQuitWithoutExport(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())

	next, cmd := m.Update(keyMsg("q"))
	m = next.(sliceModel)
	if m.export {
		t.Error("q must not set export")
	}
	if cmd == nil {
		t.Error("q should quit the program")
	}
}

func TestSliceModelViewShowsParameters(t *testing.T) {
	m := newSliceModel(testCloud(), DefaultConfig())

	view := m.View()
	if !strings.Contains(view, "band") {
		t.Error("view is missing the band display")
	}
	if !strings.Contains(view, "q quit") {
		t.Error("view is missing the key help")
	}
}
