package resource

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// Vertex is the fixed-layout vertex the draw list's vertex buffers
// expect: position, normal, and UV, matching the attributes the
// descriptor-set binding layout assumes per spec.md §4.6.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

// MeshData is one mesh primitive's CPU-side geometry, ready for
// vram.StageToBuffer upload into a vertex/index buffer pair.
type MeshData struct {
	Vertices []Vertex
	Indices  []uint32
}

// LoadMesh opens a .glb/.gltf file at path and returns its first mesh
// primitive. Grounded on
// mrigankad-gorenderengine/scene/gltf_loader.go:LoadGLTF/loadGLTFPrimitive,
// trimmed to the single-primitive shape this core's resource ids name
// (a scene with several primitives registers one resource id per
// primitive, as a manifest would enumerate them).
func LoadMesh(id, path string) (interface{}, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("resource: gltf open %q: %w", path, err)
	}
	if len(doc.Meshes) == 0 || len(doc.Meshes[0].Primitives) == 0 {
		return nil, fmt.Errorf("resource: %q has no mesh primitives", path)
	}
	return meshFromPrimitive(doc, doc.Meshes[0].Primitives[0])
}

func meshFromPrimitive(doc *gltf.Document, prim *gltf.Primitive) (*MeshData, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("resource: primitive has no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return nil, fmt.Errorf("resource: read positions: %w", err)
	}

	var normals [][3]float32
	var uvs [][2]float32
	if idx, ok := prim.Attributes["NORMAL"]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		uvs, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}

	verts := make([]Vertex, len(positions))
	for i, p := range positions {
		v := Vertex{Position: p}
		if i < len(normals) {
			v.Normal = normals[i]
		}
		if i < len(uvs) {
			v.UV = uvs[i]
		}
		verts[i] = v
	}

	var indices []uint32
	if prim.Indices != nil {
		indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return nil, fmt.Errorf("resource: read indices: %w", err)
		}
	}

	return &MeshData{Vertices: verts, Indices: indices}, nil
}
