// Package shader parses Quake 3 shader scripts: the human-authored
// .shader files that attach surface flags, light emission and texture
// stages to the names referenced by a compiled map.
package shader

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Surface flags set by surfaceparm directives. The compiler bakes the
// same bits into the map's shader lump.
const (
	SurfNoDamage    = 0x1
	SurfSlick       = 0x2
	SurfSky         = 0x4
	SurfLadder      = 0x8
	SurfNoImpact    = 0x10
	SurfNoMarks     = 0x20
	SurfFlesh       = 0x40
	SurfNoDraw      = 0x80
	SurfHint        = 0x100
	SurfSkip        = 0x200
	SurfNoLightmap  = 0x400
	SurfPointLight  = 0x800
	SurfMetalSteps  = 0x1000
	SurfNoSteps     = 0x2000
	SurfNonSolid    = 0x4000
	SurfLightFilter = 0x8000
	SurfAlphaShadow = 0x10000
	SurfNoDLight    = 0x20000
	SurfDust        = 0x40000
)

var surfaceParmBits = map[string]int32{
	"nodamage":    SurfNoDamage,
	"slick":       SurfSlick,
	"sky":         SurfSky,
	"ladder":      SurfLadder,
	"noimpact":    SurfNoImpact,
	"nomarks":     SurfNoMarks,
	"flesh":       SurfFlesh,
	"nodraw":      SurfNoDraw,
	"hint":        SurfHint,
	"skip":        SurfSkip,
	"nolightmap":  SurfNoLightmap,
	"pointlight":  SurfPointLight,
	"metalsteps":  SurfMetalSteps,
	"nosteps":     SurfNoSteps,
	"nonsolid":    SurfNonSolid,
	"lightfilter": SurfLightFilter,
	"alphashadow": SurfAlphaShadow,
	"nodlight":    SurfNoDLight,
	"dust":        SurfDust,
}

// SurfaceParmBit maps a surfaceparm token onto its flag bit; unknown
// tokens contribute nothing.
func SurfaceParmBit(parm string) int32 {
	return surfaceParmBits[strings.ToLower(parm)]
}

type WaveType int

const (
	WaveNone WaveType = iota
	WaveSine
	WaveTriangle
	WaveSquare
	WaveSawtooth
	WaveInverseSawtooth
)

func WaveTypeByName(name string) WaveType {
	switch strings.ToLower(name) {
	case "sin":
		return WaveSine
	case "triangle":
		return WaveTriangle
	case "square":
		return WaveSquare
	case "sawtooth":
		return WaveSawtooth
	case "inversesawtooth":
		return WaveInverseSawtooth
	}
	return WaveNone
}

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
)

var blendFactorsByName = map[string]BlendFactor{
	"gl_zero":                BlendZero,
	"gl_one":                 BlendOne,
	"gl_src_alpha":           BlendSrcAlpha,
	"gl_one_minus_src_alpha": BlendOneMinusSrcAlpha,
	"gl_dst_alpha":           BlendDstAlpha,
	"gl_one_minus_dst_alpha": BlendOneMinusDstAlpha,
	"gl_src_color":           BlendSrcColor,
	"gl_one_minus_src_color": BlendOneMinusSrcColor,
	"gl_dst_color":           BlendDstColor,
	"gl_one_minus_dst_color": BlendOneMinusDstColor,
}

// TCMod is the texture-coordinate modifier of one stage. The set is
// closed; consumers switch over the concrete types.
type TCMod interface {
	isTCMod()
}

type TCModNoOp struct{}

type TCModScale struct {
	S, T float32
}

type TCModScroll struct {
	S, T float32
}

type TCModRotate struct {
	DegreesPerSecond float32
}

type TCModTurb struct {
	Wave WaveType // optional, WaveNone when the script omits it
	Base, Amplitude, Phase, Frequency float32
}

type TCModStretch struct {
	Wave WaveType
	Base, Amplitude, Phase, Frequency float32
}

// TCModTransform applies uv' = M*uv + T with M = [m00 m01; m10 m11].
type TCModTransform struct {
	M00, M01, M10, M11 float32
	Translation        mgl32.Vec2
}

func (TCModNoOp) isTCMod()      {}
func (TCModScale) isTCMod()     {}
func (TCModScroll) isTCMod()    {}
func (TCModRotate) isTCMod()    {}
func (TCModTurb) isTCMod()      {}
func (TCModStretch) isTCMod()   {}
func (TCModTransform) isTCMod() {}

// TextureLayer is one rendering stage reduced to what the exporter
// consumes: a resolved texture path, its tcmod and its blend factors.
type TextureLayer struct {
	Path     string
	TCMod    TCMod
	BlendSrc BlendFactor
	BlendDst BlendFactor
}

// Sun is a q3map_sun directive.
type Sun struct {
	Color            mgl32.Vec3
	Intensity        float32
	YawDegrees       float32
	ElevationDegrees float32
}

// Shader is one parsed shader definition.
type Shader struct {
	Name string

	SurfaceFlags int32
	ContentFlags int32

	// nil unless the script carried q3map_sun
	Sun *Sun

	// q3map_surfacelight emissive intensity
	SurfaceLight float32

	// resolved q3map_lightimage path, empty when absent or missing on disk
	LightImage string

	Layers []TextureLayer
}
