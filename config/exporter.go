package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Exporter holds the tunables of the conversion pipeline. Values not set
// in a settings file keep their defaults.
type Exporter struct {
	// Number of segments each 3x3 Bezier sub-patch is divided into
	// along both axes.
	PatchSubdivisions int `yaml:"patch_subdivisions"`

	// Extensions probed, in order, when a shader references a texture
	// without one.
	TextureExtensions []string `yaml:"texture_extensions"`

	// Multiplier applied to point/spot/directional intensities on save.
	PunctualIntensityScale float32 `yaml:"punctual_intensity_scale"`

	// Multiplier applied to emissive strength on save.
	EmissiveIntensityScale float32 `yaml:"emissive_intensity_scale"`
}

func DefaultExporter() Exporter {
	return Exporter{
		PatchSubdivisions:      7,
		TextureExtensions:      []string{".tga", ".jpg", ".jpeg", ".png"},
		PunctualIntensityScale: 100.0,
		EmissiveIntensityScale: 1.0,
	}
}

var exporter = DefaultExporter()

func GetExporter() Exporter {
	return exporter
}

func SetExporter(e Exporter) {
	exporter = e
}

// LoadExporter overlays settings from a yaml file onto the defaults and
// installs the result.
func LoadExporter(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "Failed to read settings file %q", path)
	}

	e := DefaultExporter()
	if err := yaml.Unmarshal(data, &e); err != nil {
		return errors.Wrapf(err, "Failed to parse settings file %q", path)
	}
	if e.PatchSubdivisions < 1 {
		return errors.Errorf("patch_subdivisions must be >= 1, got %v", e.PatchSubdivisions)
	}

	SetExporter(e)
	return nil
}
