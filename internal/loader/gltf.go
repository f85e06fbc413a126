package loader

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/url"
	"path"
	"strings"

	"Tilt3D/internal/logger"
	"Tilt3D/internal/renderer"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
)

// DecodeGLTF parses a glTF or GLB document and returns a single root node
// holding the default scene. External buffers and images are read from fsys.
func DecodeGLTF(r io.Reader, fsys fs.FS, location string) (*renderer.Node, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoderFS(r, fsys).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode gltf %s: %w", location, err)
	}

	b := &gltfBuilder{
		doc:       doc,
		fsys:      fsys,
		name:      strings.TrimSuffix(path.Base(location), path.Ext(location)),
		materials: make(map[int]*renderer.Material),
		images:    make(map[int]*renderer.Texture),
	}

	root := renderer.NewNode(b.name)
	for _, idx := range b.rootNodes() {
		child, err := b.node(idx, 0)
		if err != nil {
			return nil, fmt.Errorf("decode gltf %s: %w", location, err)
		}
		root.Add(child)
	}
	if root.MeshCount() == 0 {
		logger.Log.Warn("glTF has no drawable primitives", zap.String("location", location))
	}

	logger.Log.Debug("glTF decoded",
		zap.String("location", location),
		zap.Int("nodes", len(doc.Nodes)),
		zap.Int("meshes", root.MeshCount()),
		zap.Int("materials", len(b.materials)),
		zap.Int("images", len(b.images)))
	return root, nil
}

type gltfBuilder struct {
	doc       *gltf.Document
	fsys      fs.FS
	name      string
	materials map[int]*renderer.Material
	images    map[int]*renderer.Texture
}

// rootNodes lists the default scene's nodes, or every parentless node when
// the document declares no scene.
func (b *gltfBuilder) rootNodes() []int {
	if len(b.doc.Scenes) > 0 {
		scene := 0
		if b.doc.Scene != nil && *b.doc.Scene < len(b.doc.Scenes) {
			scene = *b.doc.Scene
		}
		return b.doc.Scenes[scene].Nodes
	}

	isChild := make([]bool, len(b.doc.Nodes))
	for _, n := range b.doc.Nodes {
		for _, c := range n.Children {
			if c < len(isChild) {
				isChild[c] = true
			}
		}
	}
	var roots []int
	for i := range b.doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots
}

// glTF forbids cycles, the depth guard only protects against broken files.
const maxNodeDepth = 64

func (b *gltfBuilder) node(idx, depth int) (*renderer.Node, error) {
	if idx < 0 || idx >= len(b.doc.Nodes) {
		return nil, fmt.Errorf("node %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return nil, fmt.Errorf("node %d nested deeper than %d", idx, maxNodeDepth)
	}
	src := b.doc.Nodes[idx]

	name := src.Name
	if name == "" {
		name = fmt.Sprintf("%s#node%d", b.name, idx)
	}
	n := renderer.NewNode(name)
	applyTransform(n, src)

	if src.Mesh != nil {
		meshes, err := b.mesh(*src.Mesh)
		if err != nil {
			return nil, err
		}
		n.Meshes = meshes
	}

	for _, c := range src.Children {
		child, err := b.node(c, depth+1)
		if err != nil {
			return nil, err
		}
		n.Add(child)
	}
	return n, nil
}

var identityMatrix = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func applyTransform(n *renderer.Node, src *gltf.Node) {
	m := src.MatrixOrDefault()
	if m != identityMatrix {
		var mat mgl32.Mat4
		for i, v := range m {
			mat[i] = float32(v)
		}
		n.Position = mat.Col(3).Vec3()
		sx, sy, sz := mat.Col(0).Vec3().Len(), mat.Col(1).Vec3().Len(), mat.Col(2).Vec3().Len()
		n.Scale = mgl32.Vec3{sx, sy, sz}
		if sx != 0 && sy != 0 && sz != 0 {
			rot := mgl32.Mat3FromCols(
				mat.Col(0).Vec3().Mul(1/sx),
				mat.Col(1).Vec3().Mul(1/sy),
				mat.Col(2).Vec3().Mul(1/sz),
			)
			n.Orientation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()
		}
		return
	}

	t := src.TranslationOrDefault()
	r := src.RotationOrDefault()
	s := src.ScaleOrDefault()
	n.Position = mgl32.Vec3{float32(t[0]), float32(t[1]), float32(t[2])}
	n.Orientation = mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}.Normalize()
	n.Scale = mgl32.Vec3{float32(s[0]), float32(s[1]), float32(s[2])}
}

func (b *gltfBuilder) mesh(idx int) ([]*renderer.Mesh, error) {
	if idx < 0 || idx >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", idx)
	}
	src := b.doc.Meshes[idx]

	var out []*renderer.Mesh
	for i, prim := range src.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			logger.Log.Warn("Skipping non-triangle primitive",
				zap.String("mesh", src.Name), zap.Int("primitive", i), zap.Int("mode", int(prim.Mode)))
			continue
		}
		mesh, err := b.primitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %q primitive %d: %w", src.Name, i, err)
		}
		mesh.Name = fmt.Sprintf("%s/%d", src.Name, i)
		out = append(out, mesh)
	}
	return out, nil
}

func (b *gltfBuilder) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	return b.doc.Accessors[idx], nil
}

func (b *gltfBuilder) primitive(prim *gltf.Primitive) (*renderer.Mesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, errors.New("missing POSITION attribute")
	}
	acr, err := b.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(b.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		if acr, err := b.accessor(idx); err == nil {
			if normals, err = modeler.ReadNormal(b.doc, acr, nil); err != nil {
				return nil, fmt.Errorf("read normals: %w", err)
			}
		}
	}

	var uvs [][2]float32
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		if acr, err := b.accessor(idx); err == nil {
			if uvs, err = modeler.ReadTextureCoord(b.doc, acr, nil); err != nil {
				return nil, fmt.Errorf("read texture coordinates: %w", err)
			}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := b.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(b.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("read indices: %w", err)
		}
		for _, i := range indices {
			if int(i) >= len(positions) {
				return nil, fmt.Errorf("index %d exceeds %d vertices", i, len(positions))
			}
		}
	}

	mesh := &renderer.Mesh{
		InterleavedData: Interleave(positions, uvs, normals),
		Indices:         indices,
		Material:        renderer.DefaultMaterial,
	}
	if prim.Material != nil {
		mat, err := b.material(*prim.Material)
		if err != nil {
			return nil, err
		}
		mesh.Material = mat
	}
	return mesh, nil
}

// Interleave packs vertices as position, uv, normal. Missing uvs become zero
// and missing normals point along +Z.
func Interleave(positions [][3]float32, uvs [][2]float32, normals [][3]float32) []float32 {
	data := make([]float32, 0, len(positions)*8)
	for i, p := range positions {
		var uv [2]float32
		if i < len(uvs) {
			uv = uvs[i]
		}
		n := [3]float32{0, 0, 1}
		if i < len(normals) {
			n = normals[i]
		}
		data = append(data, p[0], p[1], p[2], uv[0], uv[1], n[0], n[1], n[2])
	}
	return data
}

func (b *gltfBuilder) material(idx int) (*renderer.Material, error) {
	if mat, ok := b.materials[idx]; ok {
		return mat, nil
	}
	if idx < 0 || idx >= len(b.doc.Materials) {
		return nil, fmt.Errorf("material %d out of range", idx)
	}
	src := b.doc.Materials[idx]

	mat := &renderer.Material{
		Name:              src.Name,
		DoubleSided:       src.DoubleSided,
		BaseColorFactor:   [4]float32{1, 1, 1, 1},
		Metallic:          1,
		Roughness:         1,
		OcclusionStrength: 1,
		EmissiveFactor:    [3]float32{float32(src.EmissiveFactor[0]), float32(src.EmissiveFactor[1]), float32(src.EmissiveFactor[2])},
	}

	var err error
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		if pbr.BaseColorFactor != nil {
			f := *pbr.BaseColorFactor
			mat.BaseColorFactor = [4]float32{float32(f[0]), float32(f[1]), float32(f[2]), float32(f[3])}
		}
		if pbr.MetallicFactor != nil {
			mat.Metallic = float32(*pbr.MetallicFactor)
		}
		if pbr.RoughnessFactor != nil {
			mat.Roughness = float32(*pbr.RoughnessFactor)
		}
		if pbr.BaseColorTexture != nil {
			if mat.BaseColorTexture, err = b.texture(pbr.BaseColorTexture.Index); err != nil {
				return nil, err
			}
		}
		if pbr.MetallicRoughnessTexture != nil {
			if mat.MetallicRoughnessTexture, err = b.texture(pbr.MetallicRoughnessTexture.Index); err != nil {
				return nil, err
			}
		}
	}
	if src.EmissiveTexture != nil {
		if mat.EmissiveTexture, err = b.texture(src.EmissiveTexture.Index); err != nil {
			return nil, err
		}
	}
	if occ := src.OcclusionTexture; occ != nil && occ.Index != nil {
		if mat.OcclusionTexture, err = b.texture(*occ.Index); err != nil {
			return nil, err
		}
		if occ.Strength != nil {
			mat.OcclusionStrength = float32(*occ.Strength)
		}
	}

	b.materials[idx] = mat
	return mat, nil
}

func (b *gltfBuilder) texture(idx int) (*renderer.Texture, error) {
	if idx < 0 || idx >= len(b.doc.Textures) {
		return nil, fmt.Errorf("texture %d out of range", idx)
	}
	src := b.doc.Textures[idx]
	if src.Source == nil {
		return nil, nil
	}
	return b.image(*src.Source)
}

func (b *gltfBuilder) image(idx int) (*renderer.Texture, error) {
	if tex, ok := b.images[idx]; ok {
		return tex, nil
	}
	if idx < 0 || idx >= len(b.doc.Images) {
		return nil, fmt.Errorf("image %d out of range", idx)
	}
	src := b.doc.Images[idx]

	raw, err := b.imageBytes(src)
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", idx, err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("image %d: %w", idx, err)
	}

	logger.Log.Debug("Texture decoded",
		zap.Int("image", idx),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()))

	tex := &renderer.Texture{Key: fmt.Sprintf("%s#image%d", b.name, idx), Image: img}
	b.images[idx] = tex
	return tex, nil
}

func (b *gltfBuilder) imageBytes(img *gltf.Image) ([]byte, error) {
	switch {
	case img.BufferView != nil:
		if *img.BufferView < 0 || *img.BufferView >= len(b.doc.BufferViews) {
			return nil, fmt.Errorf("buffer view %d out of range", *img.BufferView)
		}
		return modeler.ReadBufferView(b.doc, b.doc.BufferViews[*img.BufferView])
	case img.IsEmbeddedResource():
		return img.MarshalData()
	case img.URI != "":
		name, err := url.PathUnescape(img.URI)
		if err != nil {
			name = img.URI
		}
		return fs.ReadFile(b.fsys, name)
	}
	return nil, errors.New("image has neither uri nor buffer view")
}
