package gesture

import (
	"math"
	"testing"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubPicker hits target for any x below edge
type stubPicker struct {
	target *registry.Entry
	edge   float64
	calls  int
}

func (p *stubPicker) PickTop(x, y float64) *registry.Entry {
	p.calls++
	if x < p.edge {
		return p.target
	}
	return nil
}

func cube(name string) registry.Asset {
	mesh := &scene.Mesh{
		Positions: []geometry.Vector3{
			geometry.NewVector3(-1, -1, -1),
			geometry.NewVector3(1, -1, -1),
			geometry.NewVector3(1, 1, 1),
		},
		Material: scene.DefaultMaterial(),
	}
	return registry.Asset{Name: name, Node: scene.NewMeshNode(name, mesh)}
}

func setup(t *testing.T) (*registry.Registry, *registry.Entry, *stubPicker, *Controller) {
	t.Helper()
	reg := registry.New(registry.Options{
		Capacity:      2,
		TargetSize:    2,
		MinScale:      0.1,
		MaxScale:      5,
		LateralOffset: 1.5,
	})
	e := reg.Insert(cube("a"))
	pick := &stubPicker{target: e, edge: 100}
	ctrl := New(reg, pick, func() float64 { return 5 }, Options{DragSensitivity: 0.002, WheelSensitivity: 0.001})
	return reg, e, pick, ctrl
}

func TestPressOnEntryStartsDrag(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	var selected *registry.Entry
	ctrl.OnSelect = func(en *registry.Entry) { selected = en }

	ctrl.PointerDown(1, 10, 10)
	assert.Equal(t, Dragging, ctrl.State())
	assert.Equal(t, e, reg.Selected())
	assert.Equal(t, e, selected)
	assert.True(t, e.OutlineVisible())

	ctrl.PointerMove(1, 20, 30)
	// 0.002 * 5 = 0.01 world units per pixel, vertical inverted
	assert.InDelta(t, 0.1, e.Position().X, 1e-9)
	assert.InDelta(t, -0.2, e.Position().Y, 1e-9)
	require.Len(t, reg.Outlines(), 1)
	assert.InDelta(t, 0.1, reg.Outlines()[0].Center().X, 1e-9)

	ctrl.PointerUp(1)
	assert.Equal(t, Idle, ctrl.State())
}

func TestPressOnEmptySpaceKeepsSelection(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	reg.Select(e.ID)

	ctrl.PointerDown(1, 500, 10)
	assert.Equal(t, Idle, ctrl.State())
	assert.Equal(t, e, reg.Selected())

	ctrl.PointerMove(1, 600, 10)
	assert.Equal(t, 0.0, e.Position().X)
}

func TestPinchScales(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	reg.Select(e.ID)
	reg.SetScale(e.ID, 1.5)

	ctrl.PointerDown(1, 200, 100)
	ctrl.PointerDown(2, 300, 100)
	assert.Equal(t, Pinching, ctrl.State())

	// unchanged distance keeps the scale exactly
	ctrl.PointerMove(2, 300, 100)
	assert.Equal(t, 1.5, e.Scale())

	ctrl.PointerMove(2, 400, 100)
	assert.InDelta(t, 3.0, e.Scale(), 1e-12)

	ctrl.PointerMove(2, 2200, 100)
	assert.Equal(t, 5.0, e.Scale())

	ctrl.PointerMove(2, 200.01, 100)
	assert.Equal(t, 0.1, e.Scale())
}

func TestPinchCancelsDrag(t *testing.T) {
	_, e, _, ctrl := setup(t)

	ctrl.PointerDown(1, 10, 10)
	require.Equal(t, Dragging, ctrl.State())
	ctrl.PointerDown(2, 60, 10)
	assert.Equal(t, Pinching, ctrl.State())

	// first finger moving no longer drags
	ctrl.PointerMove(1, 0, 10)
	assert.Equal(t, 0.0, e.Position().X)
	assert.InDelta(t, 1.2, e.Scale(), 1e-12)
}

func TestPinchWithoutSelectionAppliesNothing(t *testing.T) {
	_, e, _, ctrl := setup(t)

	ctrl.PointerDown(1, 500, 0)
	ctrl.PointerDown(2, 600, 0)
	assert.Equal(t, Pinching, ctrl.State())

	ctrl.PointerMove(2, 900, 0)
	assert.Equal(t, 1.0, e.Scale())
}

func TestPointerCountChangeReturnsToIdle(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	reg.Select(e.ID)

	ctrl.PointerDown(1, 10, 10)
	ctrl.PointerDown(2, 60, 10)
	ctrl.PointerUp(2)
	assert.Equal(t, Idle, ctrl.State())

	// the remaining finger does not resume dragging
	ctrl.PointerMove(1, 50, 50)
	assert.Equal(t, 0.0, e.Position().X)

	ctrl.PointerDown(2, 60, 10)
	ctrl.PointerDown(3, 70, 10)
	assert.Equal(t, Idle, ctrl.State())
}

func TestDragOfRemovedEntryEnds(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	ctrl.PointerDown(1, 10, 10)
	reg.Remove(e.ID)

	ctrl.PointerMove(1, 20, 20)
	assert.Equal(t, Idle, ctrl.State())
}

func TestHoverOnlyReports(t *testing.T) {
	reg, _, _, ctrl := setup(t)
	var flips []bool
	ctrl.OnHover = func(hit bool) { flips = append(flips, hit) }

	assert.True(t, ctrl.Hover(10, 10))
	assert.True(t, ctrl.Hover(20, 10))
	assert.False(t, ctrl.Hover(500, 10))

	assert.Equal(t, []bool{true, false}, flips)
	assert.Nil(t, reg.Selected())
}

func TestDiscreteOperations(t *testing.T) {
	reg, e, _, ctrl := setup(t)

	// no selection: no-ops
	ctrl.ScaleBy(1)
	ctrl.RotateAbsolute(1)
	assert.Equal(t, 1.0, e.Scale())
	assert.Equal(t, 0.0, e.Rotation().Y)

	reg.Select(e.ID)
	ctrl.ScaleBy(0.5)
	assert.Equal(t, 1.5, e.Scale())
	ctrl.Wheel(-500)
	assert.InDelta(t, 1.0, e.Scale(), 1e-12)
	ctrl.SetScale(9)
	assert.Equal(t, 5.0, e.Scale())

	ctrl.RotateAbsolute(0.5)
	assert.Equal(t, 0.5, e.Rotation().Y)
	ctrl.RotateRelative(AxisY, 0.25)
	assert.InDelta(t, 0.75, e.Rotation().Y, 1e-12)
	ctrl.RotateRelative(AxisX, math.Pi/2)
	assert.InDelta(t, math.Pi/2, e.Rotation().X, 1e-12)
	ctrl.RotateRelative(AxisZ, 3*math.Pi)
	assert.InDelta(t, math.Pi, math.Abs(e.Rotation().Z), 1e-9)
}

func TestSamplerDiffsPointerSets(t *testing.T) {
	reg, e, _, ctrl := setup(t)
	reg.Select(e.ID)
	s := NewSampler(ctrl)

	s.Update([]Pointer{{ID: 0, X: 10, Y: 10}})
	assert.Equal(t, Dragging, ctrl.State())

	s.Update([]Pointer{{ID: 0, X: 20, Y: 10}})
	assert.InDelta(t, 0.1, e.Position().X, 1e-9)

	s.Update([]Pointer{{ID: 0, X: 20, Y: 10}, {ID: 1, X: 70, Y: 10}})
	assert.Equal(t, Pinching, ctrl.State())

	s.Update([]Pointer{{ID: 0, X: 20, Y: 10}, {ID: 1, X: 120, Y: 10}})
	assert.InDelta(t, 2.0, e.Scale(), 1e-12)

	s.Update(nil)
	assert.Equal(t, Idle, ctrl.State())
	assert.Equal(t, 0, ctrl.ActivePointers())
}
