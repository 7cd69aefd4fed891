package bsp

import (
	"bytes"
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// MaxQPath is the fixed width of name fields in the compiled file.
const MaxQPath = 64

type SurfaceType int32

const (
	SurfaceBad SurfaceType = iota
	SurfacePlanar
	SurfacePatch
	SurfaceTriangleSoup
	SurfaceFlare
)

// DrawVert is the on-disk vertex record, 44 bytes.
type DrawVert struct {
	Position mgl32.Vec3
	ST       mgl32.Vec2
	Lightmap mgl32.Vec2
	Normal   mgl32.Vec3
	Color    [4]uint8
}

// Surface is the on-disk face record, 104 bytes. The lightmap block is
// carried for stride fidelity only.
type Surface struct {
	ShaderNum   int32
	FogNum      int32
	SurfaceType SurfaceType

	FirstVert int32
	NumVerts  int32

	FirstIndex int32
	NumIndexes int32

	LightmapNum    int32
	LightmapX      int32
	LightmapY      int32
	LightmapWidth  int32
	LightmapHeight int32

	LightmapOrigin mgl32.Vec3
	LightmapVecs   [3]mgl32.Vec3

	PatchWidth  int32
	PatchHeight int32
}

// Shader is the on-disk shader-reference record, 72 bytes.
type Shader struct {
	Name         [MaxQPath]byte
	SurfaceFlags int32
	ContentFlags int32
}

func (s *Shader) ShaderName() string {
	if i := bytes.IndexByte(s.Name[:], 0); i >= 0 {
		return string(s.Name[:i])
	}
	return string(s.Name[:])
}

// MeshVert is one face-local index into the face's vertex slice.
type MeshVert int32

// Records decodes a whole lump as little-endian records of type T.
// The lump length must be an exact multiple of the record stride.
func Records[T any](b *BSP, kind LumpKind) ([]T, error) {
	lump := b.Lump(kind)

	var zero T
	stride := binary.Size(zero)
	if stride <= 0 {
		return nil, errors.Errorf("record type %T has no fixed size", zero)
	}
	if len(lump)%stride != 0 {
		return nil, errors.Wrapf(ErrInvalidLump, "lump %d: %d bytes, stride %d", kind, len(lump), stride)
	}

	out := make([]T, len(lump)/stride)
	if len(out) == 0 {
		return out, nil
	}
	if err := binary.Read(bytes.NewReader(lump), binary.LittleEndian, out); err != nil {
		return nil, errors.Wrapf(err, "Failed to decode lump %d", kind)
	}
	return out, nil
}
