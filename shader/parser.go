package shader

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/DaviesX/ioq3-map-exporter/config"
	"github.com/DaviesX/ioq3-map-exporter/vfs"
)

const (
	tokenOpen = iota
	tokenClose
	tokenWord
	tokenString
)

var lexer *lexmachine.Lexer

func init() {
	lexer = lexmachine.NewLexer()
	lexer.Add([]byte(`//[^\n]*`), skip)
	lexer.Add([]byte(`\s+`), skip)
	lexer.Add([]byte(`\{`), getToken(tokenOpen))
	lexer.Add([]byte(`\}`), getToken(tokenClose))
	lexer.Add([]byte(`"[^"]*"`), getToken(tokenString))
	lexer.Add([]byte(`[^ \t\n\r\{\}"]+`), getToken(tokenWord))
}

func getToken(tokenType int) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return s.Token(tokenType, string(m.Bytes), m), nil
	}
}

func skip(scan *lexmachine.Scanner, match *machines.Match) (interface{}, error) {
	return nil, nil
}

type token struct {
	kind int
	text string
	line int
}

// tokenize scans a whole script. Input the token table cannot match is
// skipped up to the scanner's failure position (at least one byte) so
// arbitrary input always terminates.
func tokenize(content []byte) ([]token, error) {
	scanner, err := lexer.Scanner(content)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to create shader scanner")
	}

	var tokens []token
	for itok, err, eos := scanner.Next(); !eos; itok, err, eos = scanner.Next() {
		if ui, is := err.(*machines.UnconsumedInput); is {
			if ui.FailTC > scanner.TC {
				scanner.TC = ui.FailTC
			} else {
				scanner.TC++
			}
			continue
		} else if err != nil {
			return tokens, errors.Wrapf(err, "Failed to scan shader script")
		}

		tok := itok.(*lexmachine.Token)
		text := string(tok.Lexeme)
		if tok.Type == tokenString {
			text = strings.Trim(text, `"`)
		}
		tokens = append(tokens, token{kind: tok.Type, text: text, line: tok.StartLine})
	}
	return tokens, nil
}

type parser struct {
	fs     *vfs.FS
	script string
	tokens []token
	pos    int
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, true
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// nextArg consumes one argument token; braces end the argument list.
func (p *parser) nextArg() string {
	t, ok := p.peek()
	if !ok || t.kind == tokenOpen || t.kind == tokenClose {
		return ""
	}
	p.pos++
	return t.text
}

func (p *parser) nextFloat() float32 {
	arg := p.nextArg()
	x, err := strconv.ParseFloat(arg, 32)
	if err != nil {
		return 0
	}
	return float32(x)
}

// ParseFile parses one shader script into name -> definition. A name
// redefined later in the same file replaces the earlier definition.
func ParseFile(fs *vfs.FS, scriptPath string, content []byte) map[string]*Shader {
	tokens, err := tokenize(content)
	if err != nil {
		log.Printf("[shader] %s: %v", scriptPath, err)
	}

	p := &parser{fs: fs, script: scriptPath, tokens: tokens}
	result := make(map[string]*Shader)

	for {
		name, ok := p.next()
		if !ok {
			break
		}
		if name.kind == tokenClose || name.kind == tokenOpen {
			// stray brace between shaders; resume at the next name
			continue
		}

		open, ok := p.peek()
		if !ok || open.kind != tokenOpen {
			log.Printf("[shader] %s:%d: expected '{' after shader name %q", scriptPath, name.line, name.text)
			continue
		}
		p.pos++

		sh, complete := p.parseShader(name.text)
		if !complete {
			log.Printf("[shader] %s:%d: unbalanced braces, abandoning shader %q", scriptPath, name.line, name.text)
			continue
		}
		p.prune(sh)
		result[sh.Name] = sh
	}

	return result
}

// parseShader consumes a shader body up to its closing brace. Returns
// complete=false when the script ends first.
func (p *parser) parseShader(name string) (*Shader, bool) {
	sh := &Shader{Name: name}

	for {
		t, ok := p.next()
		if !ok {
			return sh, false
		}
		switch t.kind {
		case tokenClose:
			return sh, true
		case tokenOpen:
			if layer, ok := p.parseStage(); ok {
				sh.Layers = append(sh.Layers, layer)
			}
		default:
			p.parseParameter(sh, t.text)
		}
	}
}

func (p *parser) parseParameter(sh *Shader, keyword string) {
	switch strings.ToLower(keyword) {
	case "surfaceparm":
		sh.SurfaceFlags |= SurfaceParmBit(p.nextArg())
	case "q3map_sun":
		sun := &Sun{}
		sun.Color[0] = p.nextFloat()
		sun.Color[1] = p.nextFloat()
		sun.Color[2] = p.nextFloat()
		sun.Intensity = p.nextFloat()
		sun.YawDegrees = p.nextFloat()
		sun.ElevationDegrees = p.nextFloat()
		sh.Sun = sun
	case "q3map_surfacelight":
		sh.SurfaceLight = p.nextFloat()
	case "q3map_lightimage":
		sh.LightImage = p.nextArg()
	case "q3map_sunlight":
		// worldspawn-level directive, nothing to keep here
	case "q3map_sunmangle":
		p.nextArg()
		p.nextArg()
		p.nextArg()
	default:
		// unknown top-level keyword: its arguments parse as further
		// unknown keywords and fall through harmlessly
	}
}

// parseStage consumes one { ... } stage block and reduces it to a
// texture layer. Stages bound to $lightmap/$whiteimage produce none.
func (p *parser) parseStage() (TextureLayer, bool) {
	layer := TextureLayer{
		TCMod:    TCModNoOp{},
		BlendSrc: BlendOne,
		BlendDst: BlendZero,
	}

	for {
		t, ok := p.next()
		if !ok {
			return TextureLayer{}, false
		}
		if t.kind == tokenClose {
			break
		}
		if t.kind == tokenOpen {
			p.skipBlock()
			continue
		}

		switch strings.ToLower(t.text) {
		case "map":
			path := p.nextArg()
			if path == "$lightmap" || path == "$whiteimage" {
				continue
			}
			layer.Path = path
		case "tcmod":
			p.parseTCMod(&layer)
		case "blendfunc":
			p.parseBlendFunc(&layer)
		default:
			// unknown stage keyword carries a single argument
			p.nextArg()
		}
	}

	if layer.Path == "" {
		return TextureLayer{}, false
	}
	return layer, true
}

func (p *parser) skipBlock() {
	depth := 1
	for depth > 0 {
		t, ok := p.next()
		if !ok {
			return
		}
		switch t.kind {
		case tokenOpen:
			depth++
		case tokenClose:
			depth--
		}
	}
}

func (p *parser) parseTCMod(layer *TextureLayer) {
	op := strings.ToLower(p.nextArg())
	switch op {
	case "scale":
		layer.TCMod = TCModScale{S: p.nextFloat(), T: p.nextFloat()}
	case "scroll":
		layer.TCMod = TCModScroll{S: p.nextFloat(), T: p.nextFloat()}
	case "rotate":
		layer.TCMod = TCModRotate{DegreesPerSecond: p.nextFloat()}
	case "turb":
		// the wave token is optional; a number in its place is the base
		mod := TCModTurb{}
		first := p.nextArg()
		mod.Wave = WaveTypeByName(first)
		if mod.Wave == WaveNone {
			if x, err := strconv.ParseFloat(first, 32); err == nil {
				mod.Base = float32(x)
			}
		} else {
			mod.Base = p.nextFloat()
		}
		mod.Amplitude = p.nextFloat()
		mod.Phase = p.nextFloat()
		mod.Frequency = p.nextFloat()
		layer.TCMod = mod
	case "stretch":
		layer.TCMod = TCModStretch{
			Wave:      WaveTypeByName(p.nextArg()),
			Base:      p.nextFloat(),
			Amplitude: p.nextFloat(),
			Phase:     p.nextFloat(),
			Frequency: p.nextFloat(),
		}
	case "transform":
		layer.TCMod = TCModTransform{
			M00: p.nextFloat(),
			M01: p.nextFloat(),
			M10: p.nextFloat(),
			M11: p.nextFloat(),
			Translation: mgl32.Vec2{p.nextFloat(), p.nextFloat()},
		}
	default:
		log.Printf("[shader] %s: unknown tcmod operation %q", p.script, op)
	}
}

func (p *parser) parseBlendFunc(layer *TextureLayer) {
	arg1 := p.nextArg()
	switch strings.ToLower(arg1) {
	case "add":
		layer.BlendSrc, layer.BlendDst = BlendOne, BlendOne
	case "filter":
		layer.BlendSrc, layer.BlendDst = BlendDstColor, BlendZero
	case "blend":
		layer.BlendSrc, layer.BlendDst = BlendSrcAlpha, BlendOneMinusSrcAlpha
	default:
		src, ok := blendFactorsByName[strings.ToLower(arg1)]
		if !ok {
			log.Printf("[shader] %s: invalid blendfunc source %q", p.script, arg1)
			return
		}
		arg2 := p.nextArg()
		dst, ok := blendFactorsByName[strings.ToLower(arg2)]
		if !ok {
			log.Printf("[shader] %s: invalid blendfunc destination %q", p.script, arg2)
			return
		}
		layer.BlendSrc, layer.BlendDst = src, dst
	}
}

// prune resolves texture layers against the mount tree and drops what
// is not backed by a file; a dangling lightimage is cleared.
func (p *parser) prune(sh *Shader) {
	exts := config.GetExporter().TextureExtensions

	kept := sh.Layers[:0]
	for _, layer := range sh.Layers {
		path, ok := p.fs.FindTexture(layer.Path, exts)
		if !ok {
			continue
		}
		layer.Path = path
		kept = append(kept, layer)
	}
	sh.Layers = kept

	if sh.LightImage != "" {
		if path, ok := p.fs.FindTexture(sh.LightImage, exts); ok {
			sh.LightImage = path
		} else {
			sh.LightImage = ""
		}
	}
}

// ParseAll parses every script under scripts/ in the mount tree. The
// scripts iterate alphabetically and the first definition of a name
// wins across files; within one file a later definition wins.
func ParseAll(fs *vfs.FS) (map[string]*Shader, error) {
	scripts, err := fs.ShaderScripts()
	if err != nil {
		return nil, err
	}

	table := make(map[string]*Shader)
	for _, scriptPath := range scripts {
		content, err := os.ReadFile(scriptPath)
		if err != nil {
			log.Printf("[shader] failed to read %q: %v", scriptPath, err)
			continue
		}
		for name, sh := range ParseFile(fs, scriptPath, content) {
			if _, exists := table[name]; !exists {
				table[name] = sh
			}
		}
	}
	return table, nil
}

// CreateDefault synthesizes the implicit shader of a bare texture
// reference: one no-op layer over the file found by extension probing.
func CreateDefault(fs *vfs.FS, name string) (*Shader, bool) {
	path, ok := fs.FindTexture(name, config.GetExporter().TextureExtensions)
	if !ok {
		return nil, false
	}
	return &Shader{
		Name: name,
		Layers: []TextureLayer{{
			Path:     path,
			TCMod:    TCModNoOp{},
			BlendSrc: BlendOne,
			BlendDst: BlendZero,
		}},
	}, true
}
