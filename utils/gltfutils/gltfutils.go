// Package gltfutils carries the glTF document helpers and the JSON
// payloads of the two extensions the exporter emits.
package gltfutils

import (
	"io"

	"github.com/qmuntal/gltf"
)

func NewDocument() *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "ioq3-map-exporter"
	return doc
}

// ExportBinary encodes the document as a single .glb stream.
func ExportBinary(w io.Writer, doc *gltf.Document) error {
	encoder := gltf.NewEncoder(w)
	encoder.AsBinary = true
	return encoder.Encode(doc)
}

const (
	LightsPunctualExtension   = "KHR_lights_punctual"
	EmissiveStrengthExtension = "KHR_materials_emissive_strength"
)

// PunctualSpot is the spot block of a KHR_lights_punctual light, angles
// in radians.
type PunctualSpot struct {
	InnerConeAngle float32 `json:"innerConeAngle"`
	OuterConeAngle float32 `json:"outerConeAngle"`
}

// PunctualLight is one entry of the document-level light array.
type PunctualLight struct {
	Type      string        `json:"type"`
	Name      string        `json:"name,omitempty"`
	Color     [3]float32    `json:"color"`
	Intensity float32       `json:"intensity"`
	Spot      *PunctualSpot `json:"spot,omitempty"`
}

// PunctualLights is the document-level KHR_lights_punctual payload.
type PunctualLights struct {
	Lights []PunctualLight `json:"lights"`
}

// LightReference is the node-level KHR_lights_punctual payload.
type LightReference struct {
	Light int `json:"light"`
}

// EmissiveStrength is the material-level
// KHR_materials_emissive_strength payload.
type EmissiveStrength struct {
	EmissiveStrength float32 `json:"emissiveStrength"`
}

// UseExtension records an extension in extensionsUsed once.
func UseExtension(doc *gltf.Document, name string) {
	for _, used := range doc.ExtensionsUsed {
		if used == name {
			return
		}
	}
	doc.ExtensionsUsed = append(doc.ExtensionsUsed, name)
}
