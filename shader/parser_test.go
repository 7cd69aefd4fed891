package shader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/DaviesX/ioq3-map-exporter/shader"
	"github.com/DaviesX/ioq3-map-exporter/vfs"
)

// newTestFS builds a mount tree carrying the given files.
func newTestFS(t *testing.T, files ...string) *vfs.FS {
	t.Helper()
	root := filepath.Join(t.TempDir(), vfs.MountSentinel)
	for _, name := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("image"), 0666); err != nil {
			t.Fatal(err)
		}
	}
	return vfs.NewFS(root)
}

func TestParseFileDirectives(t *testing.T) {
	fs := newTestFS(t,
		"textures/base_wall/concrete.tga",
		"textures/base_light/glow.jpg",
	)

	script := `
// base wall shaders
textures/base_wall/concrete
{
	surfaceparm nomarks
	surfaceparm NoDamage
	q3map_surfacelight 900
	q3map_lightimage textures/base_light/glow
	{
		map $lightmap
		rgbGen identity
	}
	{
		map textures/base_wall/concrete.tga
		blendFunc filter
	}
}

textures/skies/tim_hell
{
	surfaceparm sky
	surfaceparm noimpact
	q3map_sun 1.0 0.9 0.8 200 45 60
}
`
	table := shader.ParseFile(fs, "base.shader", []byte(script))
	if len(table) != 2 {
		t.Fatalf("got %d shaders; expected 2: %v", len(table), table)
	}

	concrete := table["textures/base_wall/concrete"]
	if concrete == nil {
		t.Fatal("concrete shader missing")
	}
	if concrete.SurfaceFlags != shader.SurfNoMarks|shader.SurfNoDamage {
		t.Errorf("surface flags=0x%x", concrete.SurfaceFlags)
	}
	if concrete.SurfaceLight != 900 {
		t.Errorf("surfacelight=%v", concrete.SurfaceLight)
	}
	if filepath.Base(concrete.LightImage) != "glow.jpg" {
		t.Errorf("lightimage=%q; expected resolved glow.jpg", concrete.LightImage)
	}
	// the $lightmap stage contributes no layer
	if len(concrete.Layers) != 1 {
		t.Fatalf("got %d layers; expected 1", len(concrete.Layers))
	}
	layer := concrete.Layers[0]
	if filepath.Base(layer.Path) != "concrete.tga" {
		t.Errorf("layer path=%q", layer.Path)
	}
	if layer.BlendSrc != shader.BlendDstColor || layer.BlendDst != shader.BlendZero {
		t.Errorf("filter blend=(%v,%v)", layer.BlendSrc, layer.BlendDst)
	}
	if _, ok := layer.TCMod.(shader.TCModNoOp); !ok {
		t.Errorf("tcmod=%T; expected NoOp", layer.TCMod)
	}

	sky := table["textures/skies/tim_hell"]
	if sky == nil || sky.Sun == nil {
		t.Fatal("sky shader or sun block missing")
	}
	if sky.Sun.Intensity != 200 || sky.Sun.YawDegrees != 45 || sky.Sun.ElevationDegrees != 60 {
		t.Errorf("sun=%+v", sky.Sun)
	}
	if sky.Sun.Color != (mgl32.Vec3{1.0, 0.9, 0.8}) {
		t.Errorf("sun color=%v", sky.Sun.Color)
	}
	if sky.SurfaceFlags != shader.SurfSky|shader.SurfNoImpact {
		t.Errorf("sky surface flags=0x%x", sky.SurfaceFlags)
	}
}

func TestParseFileTCMods(t *testing.T) {
	fs := newTestFS(t, "textures/fx/a.tga")

	script := `
fx/scale { { map textures/fx/a.tga tcmod scale 2 0.5 } }
fx/scroll { { map textures/fx/a.tga tcMod scroll 0.1 -0.2 } }
fx/rotate { { map textures/fx/a.tga tcmod rotate 30 } }
fx/turb { { map textures/fx/a.tga tcmod turb 0 0.2 0 0.5 } }
fx/turbwave { { map textures/fx/a.tga tcmod turb sin 0 0.2 0 0.5 } }
fx/stretch { { map textures/fx/a.tga tcmod stretch sin 0.8 0.2 0 1 } }
fx/transform { { map textures/fx/a.tga tcmod transform 1 0 0 1 0.5 0.25 } }
`
	table := shader.ParseFile(fs, "fx.shader", []byte(script))
	if len(table) != 7 {
		t.Fatalf("got %d shaders; expected 7", len(table))
	}

	mod := func(name string) shader.TCMod {
		sh := table[name]
		if sh == nil || len(sh.Layers) != 1 {
			t.Fatalf("shader %q missing its layer", name)
		}
		return sh.Layers[0].TCMod
	}

	if m, ok := mod("fx/scale").(shader.TCModScale); !ok || m.S != 2 || m.T != 0.5 {
		t.Errorf("scale=%#v", mod("fx/scale"))
	}
	if m, ok := mod("fx/scroll").(shader.TCModScroll); !ok || m.S != 0.1 || m.T != -0.2 {
		t.Errorf("scroll=%#v", mod("fx/scroll"))
	}
	if m, ok := mod("fx/rotate").(shader.TCModRotate); !ok || m.DegreesPerSecond != 30 {
		t.Errorf("rotate=%#v", mod("fx/rotate"))
	}
	if m, ok := mod("fx/turb").(shader.TCModTurb); !ok || m.Wave != shader.WaveNone || m.Base != 0 || m.Amplitude != 0.2 || m.Frequency != 0.5 {
		t.Errorf("turb=%#v", mod("fx/turb"))
	}
	if m, ok := mod("fx/turbwave").(shader.TCModTurb); !ok || m.Wave != shader.WaveSine || m.Amplitude != 0.2 {
		t.Errorf("turbwave=%#v", mod("fx/turbwave"))
	}
	if m, ok := mod("fx/stretch").(shader.TCModStretch); !ok || m.Wave != shader.WaveSine || m.Base != 0.8 {
		t.Errorf("stretch=%#v", mod("fx/stretch"))
	}
	if m, ok := mod("fx/transform").(shader.TCModTransform); !ok || m.M00 != 1 || m.M11 != 1 || m.Translation[0] != 0.5 || m.Translation[1] != 0.25 {
		t.Errorf("transform=%#v", mod("fx/transform"))
	}
}

func TestParseFileBlendFuncs(t *testing.T) {
	fs := newTestFS(t, "textures/fx/a.tga")

	script := `
fx/add { { map textures/fx/a.tga blendfunc add } }
fx/blend { { map textures/fx/a.tga blendfunc blend } }
fx/explicit { { map textures/fx/a.tga blendFunc GL_SRC_ALPHA GL_ONE_MINUS_DST_COLOR } }
fx/bad { { map textures/fx/a.tga blendfunc GL_NONSENSE } }
`
	table := shader.ParseFile(fs, "fx.shader", []byte(script))

	check := func(name string, src, dst shader.BlendFactor) {
		t.Helper()
		sh := table[name]
		if sh == nil || len(sh.Layers) != 1 {
			t.Fatalf("shader %q missing its layer", name)
		}
		if sh.Layers[0].BlendSrc != src || sh.Layers[0].BlendDst != dst {
			t.Errorf("%s blend=(%v,%v); expected (%v,%v)", name, sh.Layers[0].BlendSrc, sh.Layers[0].BlendDst, src, dst)
		}
	}
	check("fx/add", shader.BlendOne, shader.BlendOne)
	check("fx/blend", shader.BlendSrcAlpha, shader.BlendOneMinusSrcAlpha)
	check("fx/explicit", shader.BlendSrcAlpha, shader.BlendOneMinusDstColor)
	// a bad blendfunc keeps the opaque default
	check("fx/bad", shader.BlendOne, shader.BlendZero)
}

func TestParseFilePrunesMissingTextures(t *testing.T) {
	fs := newTestFS(t, "textures/fx/real.tga")

	script := `
fx/mixed
{
	q3map_lightimage textures/fx/ghost
	{ map textures/fx/ghost.tga }
	{ map textures/fx/real.tga }
}
`
	table := shader.ParseFile(fs, "fx.shader", []byte(script))
	sh := table["fx/mixed"]
	if sh == nil {
		t.Fatal("shader missing")
	}
	if len(sh.Layers) != 1 || filepath.Base(sh.Layers[0].Path) != "real.tga" {
		t.Errorf("layers=%v; expected only the real texture", sh.Layers)
	}
	if sh.LightImage != "" {
		t.Errorf("lightimage=%q; expected cleared", sh.LightImage)
	}
}

func TestParseFileDuplicateLaterWins(t *testing.T) {
	fs := newTestFS(t, "textures/fx/a.tga")

	script := `
fx/dup { q3map_surfacelight 100 }
fx/dup { q3map_surfacelight 200 }
`
	table := shader.ParseFile(fs, "dup.shader", []byte(script))
	if sh := table["fx/dup"]; sh == nil || sh.SurfaceLight != 200 {
		t.Errorf("got %+v; expected the later definition", sh)
	}
}

func TestParseFileRecovery(t *testing.T) {
	fs := newTestFS(t, "textures/fx/a.tga")

	script := `
}
fx/noopen
fx/good
{
	unknownKeyword someArg
	{ map textures/fx/a.tga unknownStageKeyword arg }
}
fx/unclosed
{
	surfaceparm sky
`
	table := shader.ParseFile(fs, "broken.shader", []byte(script))
	if table["fx/good"] == nil || len(table["fx/good"].Layers) != 1 {
		t.Errorf("recovery lost the well-formed shader: %v", table)
	}
	if _, exists := table["fx/unclosed"]; exists {
		t.Error("unclosed shader was not abandoned")
	}
}

func TestParseAllFirstScriptWins(t *testing.T) {
	fs := newTestFS(t, "textures/fx/a.tga")
	scripts := filepath.Join(fs.Root(), "scripts")
	if err := os.MkdirAll(scripts, 0777); err != nil {
		t.Fatal(err)
	}
	writeScript := func(name, content string) {
		if err := os.WriteFile(filepath.Join(scripts, name), []byte(content), 0666); err != nil {
			t.Fatal(err)
		}
	}
	writeScript("a.shader", "fx/dup { q3map_surfacelight 111 }\nfx/onlya { }\n")
	writeScript("b.shader", "fx/dup { q3map_surfacelight 222 }\nfx/onlyb { }\n")

	table, err := shader.ParseAll(fs)
	if err != nil {
		t.Fatal(err)
	}
	if sh := table["fx/dup"]; sh == nil || sh.SurfaceLight != 111 {
		t.Errorf("fx/dup=%+v; expected the first script's definition", sh)
	}
	if table["fx/onlya"] == nil || table["fx/onlyb"] == nil {
		t.Error("non-colliding shaders missing from merged table")
	}
}

func TestCreateDefault(t *testing.T) {
	fs := newTestFS(t, "textures/base_wall/concrete.jpg")

	sh, ok := shader.CreateDefault(fs, "textures/base_wall/concrete")
	if !ok {
		t.Fatal("expected a default shader")
	}
	if sh.Name != "textures/base_wall/concrete" {
		t.Errorf("name=%q", sh.Name)
	}
	if len(sh.Layers) != 1 || filepath.Base(sh.Layers[0].Path) != "concrete.jpg" {
		t.Errorf("layers=%v", sh.Layers)
	}
	if _, ok := sh.Layers[0].TCMod.(shader.TCModNoOp); !ok {
		t.Errorf("tcmod=%T", sh.Layers[0].TCMod)
	}

	if _, ok := shader.CreateDefault(fs, "textures/base_wall/missing"); ok {
		t.Error("default shader created for a missing texture")
	}
}
