package picking

import (
	"testing"

	"github.com/philipparndt/arstudio/internal/registry"
	"github.com/philipparndt/arstudio/pkg/geometry"
	"github.com/philipparndt/arstudio/pkg/scene"
	"github.com/philipparndt/arstudio/pkg/viewer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoPartAsset has a quad at z=0 nested two levels deep
func twoPartAsset(name string) registry.Asset {
	quad := &scene.Mesh{
		Positions: []geometry.Vector3{
			geometry.NewVector3(-1, -1, 0),
			geometry.NewVector3(1, -1, 0),
			geometry.NewVector3(1, 1, 0),
			geometry.NewVector3(-1, 1, 0),
		},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
		Material: scene.DefaultMaterial(),
	}
	root := scene.NewNode(name)
	group := scene.NewNode("group")
	root.Add(group)
	group.Add(scene.NewMeshNode("part", quad))
	return registry.Asset{Name: name, Node: root}
}

func setup() (*registry.Registry, *Service) {
	reg := registry.New(registry.Options{
		Capacity:      2,
		TargetSize:    2,
		MinScale:      0.1,
		MaxScale:      5,
		LateralOffset: 0,
	})
	cam := viewer.NewCamera(75, 5, 800, 600)
	return reg, New(reg, cam)
}

func TestPickOrdersNearestFirst(t *testing.T) {
	reg, svc := setup()
	far := reg.Insert(twoPartAsset("far"))
	near := reg.Insert(twoPartAsset("near"))
	reg.Translate(near.ID, geometry.NewVector3(0, 0, 1))

	hits := svc.Pick(400, 300)
	require.Len(t, hits, 2)
	assert.Equal(t, near.ID, hits[0].Entry.ID)
	assert.Equal(t, far.ID, hits[1].Entry.ID)
	assert.InDelta(t, 4, hits[0].Distance, 1e-9)
	assert.InDelta(t, 5, hits[1].Distance, 1e-9)
	assert.Equal(t, "part", hits[0].Node.Name)
}

func TestPickTopResolvesOwningEntry(t *testing.T) {
	reg, svc := setup()
	e := reg.Insert(twoPartAsset("only"))

	top := svc.PickTop(400, 300)
	require.NotNil(t, top)
	assert.Equal(t, e.ID, top.ID)
	assert.Same(t, e.Node, top.Node)
}

func TestPickMiss(t *testing.T) {
	reg, svc := setup()
	reg.Insert(twoPartAsset("only"))

	assert.Empty(t, svc.Pick(5, 5))
	assert.Nil(t, svc.PickTop(5, 5))
}

func TestPickDoesNotMutate(t *testing.T) {
	reg, svc := setup()
	e := reg.Insert(twoPartAsset("only"))

	svc.Pick(400, 300)
	assert.Nil(t, reg.Selected())
	assert.False(t, e.OutlineVisible())
	assert.Equal(t, 1, reg.Len())
}
