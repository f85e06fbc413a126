package renderer

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelRefSetOnce(t *testing.T) {
	var ref ModelRef
	assert.False(t, ref.Present())
	assert.False(t, ref.Set(nil))

	first, second := NewNode("first"), NewNode("second")
	assert.True(t, ref.Set(first))
	assert.False(t, ref.Set(second))
	assert.Same(t, first, ref.Get())
}

func TestSceneAddIsIdempotent(t *testing.T) {
	scene := NewScene()
	node := NewNode("helmet")

	scene.Add(node)
	scene.Add(node)
	scene.Add(nil)

	require.Len(t, scene.Children, 1)
	assert.True(t, scene.Contains(node))
}

func TestSceneAddDetachesFromParent(t *testing.T) {
	scene := NewScene()
	parent, child := NewNode("parent"), NewNode("child")
	parent.Add(child)

	scene.Add(child)

	assert.Empty(t, parent.Children)
	assert.Nil(t, child.Parent())
	assert.True(t, scene.Contains(child))
}

func TestNodeWorldMatrixFollowsParent(t *testing.T) {
	scene := NewScene()
	root, child := NewNode("root"), NewNode("child")
	root.Position = mgl32.Vec3{1, 0, 0}
	child.Position = mgl32.Vec3{0, 2, 0}
	root.Add(child)
	scene.Add(root)

	scene.UpdateWorldMatrices()

	assert.Equal(t, mgl32.Vec3{1, 2, 0}, child.WorldMatrix.Col(3).Vec3())
	assert.Same(t, root, child.Parent())
}

func TestNodeRotationXYKeepsOrientation(t *testing.T) {
	n := NewNode("helmet")
	n.Orientation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0})

	n.SetRotationXY(0.1, -0.2)
	x, y := n.RotationXY()

	assert.Equal(t, float32(0.1), x)
	assert.Equal(t, float32(-0.2), y)
	assert.Zero(t, n.Rotation.Z())
	assert.Equal(t, mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{1, 0, 0}), n.Orientation)
}

func TestNodeMeshCountCoversSubtree(t *testing.T) {
	root, child := NewNode("root"), NewNode("child")
	root.Meshes = []*Mesh{{}}
	child.Meshes = []*Mesh{{}, {}}
	root.Add(child)

	assert.Equal(t, 3, root.MeshCount())
}

func TestMaterialTextures(t *testing.T) {
	m := &Material{BaseColorTexture: &Texture{Key: "a"}, OcclusionTexture: &Texture{Key: "b"}}
	assert.Len(t, m.Textures(), 2)
	assert.Empty(t, DefaultMaterial.Textures())
}

func TestMappingString(t *testing.T) {
	assert.Equal(t, "equirectangular-reflection", EquirectangularReflectionMapping.String())
	assert.Equal(t, "uv", UVMapping.String())
}
