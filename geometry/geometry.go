// Package geometry stages the map's renderable surfaces: raw face
// records become typed primitives, and primitives become indexed
// triangle meshes.
package geometry

import (
	"log"

	"github.com/pkg/errors"

	"github.com/DaviesX/ioq3-map-exporter/bsp"
)

// Primitive is one of the three drawable surface kinds. The set is
// closed; consumers switch over the concrete types.
type Primitive interface {
	isPrimitive()
}

// Polygon is a planar convex n-gon.
type Polygon struct {
	Vertices []bsp.DrawVert
	Indices  []int32
}

// TriangleSoup is an already-triangulated indexed list.
type TriangleSoup struct {
	Vertices []bsp.DrawVert
	Indices  []int32
}

// Patch is a grid of biquadratic Bezier control points with odd
// dimensions.
type Patch struct {
	Width, Height int
	ControlPoints []bsp.DrawVert
}

func (Polygon) isPrimitive()      {}
func (TriangleSoup) isPrimitive() {}
func (Patch) isPrimitive()        {}

// Surface binds a primitive to its shader-lump index.
type Surface struct {
	Primitive   Primitive
	ShaderIndex int32
}

// Build extracts a typed primitive for every usable face record, keyed
// by face ordinal. Faces with out-of-range slices, or patches whose
// width x height does not match their vertex count, are dropped with a
// warning; non-drawable kinds are dropped silently.
func Build(b *bsp.BSP) (map[int]Surface, error) {
	faces, err := bsp.Records[bsp.Surface](b, bsp.LumpFaces)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read the face lump")
	}
	vertices, err := bsp.Records[bsp.DrawVert](b, bsp.LumpVertexes)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read the vertex lump")
	}
	meshVerts, err := bsp.Records[bsp.MeshVert](b, bsp.LumpMeshVerts)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read the meshvert lump")
	}

	surfaces := make(map[int]Surface, len(faces))
	for i := range faces {
		face := &faces[i]

		if face.FirstVert < 0 || int(face.FirstVert)+int(face.NumVerts) > len(vertices) {
			log.Printf("[geometry] face %d: vertex range [%d,%d) outside lump, dropping", i, face.FirstVert, face.FirstVert+face.NumVerts)
			continue
		}
		faceVertices := make([]bsp.DrawVert, face.NumVerts)
		copy(faceVertices, vertices[face.FirstVert:int(face.FirstVert)+int(face.NumVerts)])

		switch face.SurfaceType {
		case bsp.SurfacePlanar, bsp.SurfaceTriangleSoup:
			if face.FirstIndex < 0 || int(face.FirstIndex)+int(face.NumIndexes) > len(meshVerts) {
				log.Printf("[geometry] face %d: index range [%d,%d) outside lump, dropping", i, face.FirstIndex, face.FirstIndex+face.NumIndexes)
				continue
			}
			faceIndices := make([]int32, face.NumIndexes)
			for j := range faceIndices {
				faceIndices[j] = int32(meshVerts[int(face.FirstIndex)+j])
			}

			var prim Primitive
			if face.SurfaceType == bsp.SurfacePlanar {
				prim = Polygon{Vertices: faceVertices, Indices: faceIndices}
			} else {
				prim = TriangleSoup{Vertices: faceVertices, Indices: faceIndices}
			}
			surfaces[i] = Surface{Primitive: prim, ShaderIndex: face.ShaderNum}

		case bsp.SurfacePatch:
			width, height := int(face.PatchWidth), int(face.PatchHeight)
			if width*height != int(face.NumVerts) {
				log.Printf("[geometry] face %d: patch %dx%d does not cover %d verts, dropping", i, width, height, face.NumVerts)
				continue
			}
			surfaces[i] = Surface{
				Primitive:   Patch{Width: width, Height: height, ControlPoints: faceVertices},
				ShaderIndex: face.ShaderNum,
			}

		default:
			// BAD, FLARE and anything newer are not drawable
		}
	}

	return surfaces, nil
}
