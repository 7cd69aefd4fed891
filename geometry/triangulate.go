package geometry

import (
	"github.com/DaviesX/ioq3-map-exporter/bsp"
)

// Mesh is an indexed triangle list in map space.
type Mesh struct {
	Vertices []bsp.DrawVert
	Indices  []uint32
}

// Triangulate flattens any primitive into a triangle mesh.
func Triangulate(prim Primitive, patchSubdivisions int) Mesh {
	switch p := prim.(type) {
	case Polygon:
		return TriangulatePolygon(p)
	case TriangleSoup:
		indices := make([]uint32, len(p.Indices))
		for i, idx := range p.Indices {
			indices[i] = uint32(idx)
		}
		return Mesh{Vertices: p.Vertices, Indices: indices}
	case Patch:
		return TessellatePatch(p, patchSubdivisions)
	}
	return Mesh{}
}

// TriangulatePolygon fans a convex polygon around its first vertex:
// (0,1,2), (0,2,3), ...
func TriangulatePolygon(polygon Polygon) Mesh {
	mesh := Mesh{Vertices: polygon.Vertices}
	n := len(polygon.Vertices)
	if n < 3 {
		return mesh
	}
	mesh.Indices = make([]uint32, 0, 3*(n-2))
	for i := 1; i < n-1; i++ {
		mesh.Indices = append(mesh.Indices, 0, uint32(i), uint32(i+1))
	}
	return mesh
}

func scaleAddVert(dst *bsp.DrawVert, src *bsp.DrawVert, weight float32) {
	for i := 0; i < 3; i++ {
		dst.Position[i] += src.Position[i] * weight
		dst.Normal[i] += src.Normal[i] * weight
	}
	for i := 0; i < 2; i++ {
		dst.ST[i] += src.ST[i] * weight
		dst.Lightmap[i] += src.Lightmap[i] * weight
	}
}

// bezierVert evaluates a quadratic Bezier over three control vertices.
// Colors accumulate in float space and round back to bytes.
func bezierVert(p0, p1, p2 *bsp.DrawVert, t float32) bsp.DrawVert {
	b0 := (1 - t) * (1 - t)
	b1 := 2 * (1 - t) * t
	b2 := t * t

	var v bsp.DrawVert
	scaleAddVert(&v, p0, b0)
	scaleAddVert(&v, p1, b1)
	scaleAddVert(&v, p2, b2)

	if length := v.Normal.Len(); length > 1e-6 {
		v.Normal = v.Normal.Mul(1 / length)
	}
	for i := 0; i < 4; i++ {
		v.Color[i] = uint8(float32(p0.Color[i])*b0 + float32(p1.Color[i])*b1 + float32(p2.Color[i])*b2 + 0.5)
	}
	return v
}

// TessellatePatch evaluates a WxH control grid as ((W-1)/2)x((H-1)/2)
// biquadratic sub-patches over a shared global vertex grid. Neighboring
// sub-patches write identical edge vertices into the same cells.
// Patches with even or undersized dimensions yield an empty mesh.
func TessellatePatch(patch Patch, subdivisions int) Mesh {
	if patch.Width < 3 || patch.Height < 3 || patch.Width%2 == 0 || patch.Height%2 == 0 {
		return Mesh{}
	}
	if subdivisions < 1 {
		subdivisions = 1
	}

	subPatchesX := (patch.Width - 1) / 2
	subPatchesY := (patch.Height - 1) / 2
	gridWidth := subPatchesX*subdivisions + 1
	gridHeight := subPatchesY*subdivisions + 1

	mesh := Mesh{Vertices: make([]bsp.DrawVert, gridWidth*gridHeight)}

	for py := 0; py < subPatchesY; py++ {
		for px := 0; px < subPatchesX; px++ {
			// the 3x3 control window of this sub-patch
			var control [3][3]*bsp.DrawVert
			for row := 0; row < 3; row++ {
				for col := 0; col < 3; col++ {
					control[row][col] = &patch.ControlPoints[(py*2+row)*patch.Width+(px*2+col)]
				}
			}

			for vy := 0; vy <= subdivisions; vy++ {
				for vx := 0; vx <= subdivisions; vx++ {
					tx := float32(vx) / float32(subdivisions)
					ty := float32(vy) / float32(subdivisions)

					var rows [3]bsp.DrawVert
					for row := 0; row < 3; row++ {
						rows[row] = bezierVert(control[row][0], control[row][1], control[row][2], tx)
					}
					final := bezierVert(&rows[0], &rows[1], &rows[2], ty)

					globalX := px*subdivisions + vx
					globalY := py*subdivisions + vy
					mesh.Vertices[globalY*gridWidth+globalX] = final
				}
			}
		}
	}

	mesh.Indices = make([]uint32, 0, 6*(gridWidth-1)*(gridHeight-1))
	for y := 0; y < gridHeight-1; y++ {
		for x := 0; x < gridWidth-1; x++ {
			v0 := uint32(y*gridWidth + x)
			v1 := uint32(y*gridWidth + x + 1)
			v2 := uint32((y+1)*gridWidth + x + 1)
			v3 := uint32((y+1)*gridWidth + x)
			mesh.Indices = append(mesh.Indices, v0, v2, v1)
			mesh.Indices = append(mesh.Indices, v0, v3, v2)
		}
	}

	return mesh
}
