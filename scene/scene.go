// Package scene holds the renderer-agnostic output model and the
// assembler that populates it from staged map data.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Material is a resolved surface appearance.
type Material struct {
	Name string

	// Albedo is the OS path of the base color texture, empty when the
	// shader resolved to no usable layer.
	Albedo string

	// Emission is the OS path of the light image, empty when unset.
	Emission string

	EmissionIntensity float32
}

// Geometry is one triangulated surface in output (Y-up, meters) space.
type Geometry struct {
	Vertices    []mgl32.Vec3
	Normals     []mgl32.Vec3
	TextureUVs  []mgl32.Vec2
	LightmapUVs []mgl32.Vec2

	Indices []uint32

	// key into Scene.Materials
	MaterialID int32

	Transform mgl32.Mat4
}

type LightType int

const (
	LightPoint LightType = iota
	LightDirectional
	LightSpot
	LightArea
)

// Light is one output light. Cone angles are stored as cosines; area
// lights back-reference the geometry and material they originate from.
type Light struct {
	Type LightType

	Position  mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32

	CosInnerCone float32
	CosOuterCone float32

	GeometryIndex int
	MaterialID    int32
}

// NewLight returns a light with the model's defaults: white, pointing
// down -Z, unit intensity, 45 degree outer cone, no back-references.
func NewLight(lightType LightType) Light {
	return Light{
		Type:          lightType,
		Direction:     mgl32.Vec3{0, 0, -1},
		Color:         mgl32.Vec3{1, 1, 1},
		Intensity:     1,
		CosInnerCone:  1,
		CosOuterCone:  0.70710678,
		GeometryIndex: -1,
		MaterialID:    -1,
	}
}

// Sky is an environment map slot. The assembler currently leaves it
// unset; the field exists so consumers have a stable shape.
type Sky struct {
	Texture             string
	IntensityMultiplier float32
}

// Scene is the assembled output: geometry keyed by face ordinal,
// materials keyed by shader-lump index, and an ordered light list.
type Scene struct {
	Geometries map[int]*Geometry
	Materials  map[int32]*Material
	Lights     []Light
	Sky        *Sky
}
