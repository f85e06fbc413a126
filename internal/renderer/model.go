package renderer

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// DefaultMaterial is used for primitives that reference no material
var DefaultMaterial = &Material{
	Name:              "default",
	BaseColorFactor:   [4]float32{1.0, 1.0, 1.0, 1.0},
	Metallic:          1.0,
	Roughness:         1.0,
	OcclusionStrength: 1.0,
}

// Texture is a decoded image waiting for (or already given) a GL id.
type Texture struct {
	Key   string      // Cache key, unique per source image
	Image image.Image // Decoded pixels, dropped after upload
	ID    uint32      // OpenGL texture ID, 0 until uploaded
}

// Material follows the glTF metallic-roughness model
type Material struct {
	// HOT DATA - Accessed every draw call
	BaseColorFactor   [4]float32
	EmissiveFactor    [3]float32
	Metallic          float32
	Roughness         float32
	OcclusionStrength float32

	BaseColorTexture         *Texture
	MetallicRoughnessTexture *Texture
	EmissiveTexture          *Texture
	OcclusionTexture         *Texture

	// COLD DATA
	Name        string
	DoubleSided bool
}

// Textures returns the material's non-nil textures.
func (m *Material) Textures() []*Texture {
	var out []*Texture
	for _, t := range []*Texture{m.BaseColorTexture, m.MetallicRoughnessTexture, m.EmissiveTexture, m.OcclusionTexture} {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// Mesh is one drawable primitive. InterleavedData holds 8 floats per vertex:
// position (3), texture coordinate (2), normal (3).
type Mesh struct {
	InterleavedData []float32
	Indices         []uint32
	Material        *Material
	VAO             uint32
	VBO             uint32
	EBO             uint32

	Name string
}

// VertexCount returns the number of vertices in InterleavedData.
func (m *Mesh) VertexCount() int {
	return len(m.InterleavedData) / 8
}

// Uploaded reports whether the mesh already has GPU buffers.
func (m *Mesh) Uploaded() bool {
	return m.VAO != 0
}

// Node is an element of the scene graph. Rotation is an XYZ Euler triple in
// radians applied on top of Orientation, so tweening the Euler angles never
// disturbs the orientation a node was authored with.
type Node struct {
	// HOT DATA - Accessed every frame in render loop
	WorldMatrix mgl32.Mat4
	Position    mgl32.Vec3
	Rotation    mgl32.Vec3
	Orientation mgl32.Quat
	Scale       mgl32.Vec3
	Meshes      []*Mesh
	Children    []*Node

	// COLD DATA
	Name   string
	parent *Node
}

func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Orientation: mgl32.QuatIdent(),
		Scale:       mgl32.Vec3{1, 1, 1},
		WorldMatrix: mgl32.Ident4(),
	}
}

// Add attaches child to n, detaching it from any previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.parent != nil {
		child.parent.remove(child)
	}
	child.parent = n
	n.Children = append(n.Children, child)
}

func (n *Node) remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return
		}
	}
}

func (n *Node) Parent() *Node {
	return n.parent
}

// RotationXY returns the Euler X and Y angles.
func (n *Node) RotationXY() (x, y float32) {
	return n.Rotation[0], n.Rotation[1]
}

// SetRotationXY sets the Euler X and Y angles, leaving Z alone.
func (n *Node) SetRotationXY(x, y float32) {
	n.Rotation[0] = x
	n.Rotation[1] = y
}

// LocalMatrix builds translation * rotation * scale (TRS order).
func (n *Node) LocalMatrix() mgl32.Mat4 {
	euler := mgl32.HomogRotate3DX(n.Rotation[0]).
		Mul4(mgl32.HomogRotate3DY(n.Rotation[1])).
		Mul4(mgl32.HomogRotate3DZ(n.Rotation[2]))
	rotationMatrix := euler.Mul4(n.Orientation.Mat4())
	scaleMatrix := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	translationMatrix := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	return translationMatrix.Mul4(rotationMatrix).Mul4(scaleMatrix)
}

// UpdateWorldMatrix recomputes WorldMatrix for n and its whole subtree.
func (n *Node) UpdateWorldMatrix(parent mgl32.Mat4) {
	n.WorldMatrix = parent.Mul4(n.LocalMatrix())
	for _, c := range n.Children {
		c.UpdateWorldMatrix(n.WorldMatrix)
	}
}

// Walk visits n and its descendants depth-first.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// MeshCount returns the number of meshes in the subtree.
func (n *Node) MeshCount() int {
	count := 0
	n.Walk(func(node *Node) { count += len(node.Meshes) })
	return count
}
