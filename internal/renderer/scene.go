package renderer

import "github.com/go-gl/mathgl/mgl32"

type Mapping int

const (
	UVMapping Mapping = iota
	EquirectangularReflectionMapping
)

func (m Mapping) String() string {
	switch m {
	case EquirectangularReflectionMapping:
		return "equirectangular-reflection"
	default:
		return "uv"
	}
}

// Environment is a linear HDR image used as the ambient and reflection source
// for every material in the scene. Pixels is tightly packed RGB, top row first.
type Environment struct {
	Width     int
	Height    int
	Pixels    []float32
	Mapping   Mapping
	TextureID uint32

	Source string
}

// Scene is the root container of everything the render pass draws.
type Scene struct {
	Children    []*Node
	Environment *Environment
}

func NewScene() *Scene {
	return &Scene{}
}

// Add inserts a root node. Adding a node that is already a root is a no-op.
func (s *Scene) Add(node *Node) {
	if node == nil || s.Contains(node) {
		return
	}
	if node.parent != nil {
		node.parent.remove(node)
	}
	s.Children = append(s.Children, node)
}

func (s *Scene) Contains(node *Node) bool {
	for _, c := range s.Children {
		if c == node {
			return true
		}
	}
	return false
}

// SetEnvironment installs env as the scene's ambient and reflection source.
func (s *Scene) SetEnvironment(env *Environment) {
	s.Environment = env
}

// UpdateWorldMatrices refreshes the world transform of every node.
func (s *Scene) UpdateWorldMatrices() {
	for _, c := range s.Children {
		c.UpdateWorldMatrix(mgl32.Ident4())
	}
}

// Walk visits every node of every root.
func (s *Scene) Walk(fn func(*Node)) {
	for _, c := range s.Children {
		c.Walk(fn)
	}
}

// ModelRef holds the loaded model's root. It starts empty and can be set
// exactly once; later calls to Set are ignored.
type ModelRef struct {
	node *Node
}

func (r *ModelRef) Get() *Node {
	return r.node
}

func (r *ModelRef) Present() bool {
	return r.node != nil
}

// Set stores node if the reference is still empty and reports whether it did.
func (r *ModelRef) Set(node *Node) bool {
	if r.node != nil || node == nil {
		return false
	}
	r.node = node
	return true
}
