// Package material merges the map's compiled shader references with the
// parsed shader-script table into per-surface material definitions.
package material

import (
	"log"

	"github.com/pkg/errors"

	"github.com/DaviesX/ioq3-map-exporter/bsp"
	"github.com/DaviesX/ioq3-map-exporter/shader"
)

// noshader marks surfaces the compiler stripped; they reference no
// drawable material.
const noShaderSentinel = "noshader"

// CreateDefaultFn synthesizes a shader for a name the script table does
// not know. Returns false when nothing on disk backs the name either.
type CreateDefaultFn func(name string) (*shader.Shader, bool)

// Resolve builds the shader-lump-index -> material table. Every row is
// resolved from the script table first, then from disk; rows that
// resolve keep the compiler-baked surface/content flags, which are
// authoritative over whatever the script declared.
func Resolve(b *bsp.BSP, table map[string]*shader.Shader, createDefault CreateDefaultFn) (map[int32]*shader.Shader, error) {
	rows, err := bsp.Records[bsp.Shader](b, bsp.LumpTextures)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to read the shader lump")
	}

	materials := make(map[int32]*shader.Shader, len(rows))
	for i := range rows {
		row := &rows[i]
		name := row.ShaderName()
		if name == noShaderSentinel {
			continue
		}

		var resolved shader.Shader
		if def, ok := table[name]; ok {
			resolved = *def
		} else if def, ok := createDefault(name); ok {
			resolved = *def
		} else {
			log.Printf("[material] no shader script or texture for %q, dropping surface material %d", name, i)
			continue
		}

		resolved.SurfaceFlags = row.SurfaceFlags
		resolved.ContentFlags = row.ContentFlags
		materials[int32(i)] = &resolved
	}

	return materials, nil
}
