// Package bsp decodes the compiled Quake 3 map container: a 17-lump
// IBSP file holding parallel arrays of vertices, faces, shader
// references and the entity text block.
package bsp

import (
	"bytes"
	"encoding/binary"
	"os"

	"github.com/pkg/errors"
)

const (
	// "IBSP" little endian
	Magic   = 0x50534249
	Version = 0x2E

	numLumps = 17
)

var (
	ErrFormat      = errors.New("not a valid IBSP v46 file")
	ErrInvalidLump = errors.New("lump length is not a multiple of the record stride")
)

type LumpKind int

const (
	LumpEntities LumpKind = iota
	LumpTextures
	LumpPlanes
	LumpNodes
	LumpLeafs
	LumpLeafFaces
	LumpLeafBrushes
	LumpModels
	LumpBrushes
	LumpBrushSides
	LumpVertexes
	LumpMeshVerts
	LumpEffects
	LumpFaces
	LumpLightmaps
	LumpLightvol
	LumpVisData
)

type header struct {
	Ident   int32
	Version int32
	Lumps   [numLumps]struct {
		Offset int32
		Length int32
	}
}

// BSP owns the whole file buffer; every lump is a sub-slice of it, so
// the views stay valid exactly as long as the BSP value is held.
type BSP struct {
	buffer []byte
	lumps  [numLumps][]byte
}

// Load reads a compiled map and splits it into lump views.
func Load(path string) (*BSP, error) {
	buffer, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read bsp %q", path)
	}
	b, err := Decode(buffer)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to decode bsp %q", path)
	}
	return b, nil
}

// Decode validates the header and carves the 17 lump views out of the
// given buffer. The buffer is retained, not copied.
func Decode(buffer []byte) (*BSP, error) {
	var h header
	if binary.Size(h) > len(buffer) {
		return nil, errors.Wrapf(ErrFormat, "file too small for header: %d bytes", len(buffer))
	}
	if err := binary.Read(bytes.NewReader(buffer), binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "Failed to read header")
	}

	if h.Ident != Magic {
		return nil, errors.Wrapf(ErrFormat, "bad magic 0x%08x", h.Ident)
	}
	if h.Version != Version {
		return nil, errors.Wrapf(ErrFormat, "bad version 0x%02x", h.Version)
	}

	b := &BSP{buffer: buffer}
	for i, l := range h.Lumps {
		if l.Offset < 0 || l.Length < 0 || int64(l.Offset)+int64(l.Length) > int64(len(buffer)) {
			return nil, errors.Wrapf(ErrFormat, "lump %d out of bounds (offset %d length %d)", i, l.Offset, l.Length)
		}
		b.lumps[i] = buffer[l.Offset : int(l.Offset)+int(l.Length)]
	}
	return b, nil
}

func (b *BSP) Lump(kind LumpKind) []byte {
	if kind < 0 || kind >= numLumps {
		return nil
	}
	return b.lumps[kind]
}

// EntityText returns the free-form entity block. The compiler pads the
// lump with a trailing NUL which is not part of the text.
func (b *BSP) EntityText() string {
	lump := b.Lump(LumpEntities)
	if i := bytes.IndexByte(lump, 0); i >= 0 {
		lump = lump[:i]
	}
	return string(lump)
}
