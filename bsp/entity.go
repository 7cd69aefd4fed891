package bsp

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/DaviesX/ioq3-map-exporter/utils"
)

const (
	defaultLightIntensity = 300.0
	defaultSpotRadius     = 64.0
)

// Entity is one record of the entity lump after classification.
type Entity interface {
	isEntity()
}

// GenericEntity is an unclassified key/value record. Duplicate keys
// keep the last occurrence.
type GenericEntity map[string]string

// PointLightEntity is a "light" entity with no resolvable target.
type PointLightEntity struct {
	Origin    mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
}

// SpotLightEntity is a "light" entity aimed at a targetname. SpotAngle
// is atan(radius/distance); the scene assembler owns the unit
// conversion when building cone cosines.
type SpotLightEntity struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
	Color     mgl32.Vec3
	Intensity float32
	SpotAngle float32
}

func (GenericEntity) isEntity()    {}
func (PointLightEntity) isEntity() {}
func (SpotLightEntity) isEntity()  {}

// Entities parses and classifies the map's entity lump.
func (b *BSP) Entities() []Entity {
	return ClassifyEntities(ParseEntityText(b.EntityText()))
}

// ParseEntityText tokenizes the brace-nested key/value stream into raw
// records. The parser is total: any byte sequence terminates with a
// (possibly empty) record list. Junk advances the cursor one byte so a
// malformed stream cannot livelock it.
func ParseEntityText(src string) []GenericEntity {
	var records []GenericEntity

	cursor := 0
	n := len(src)

	skipWhitespace := func() {
		for cursor < n {
			switch src[cursor] {
			case ' ', '\t', '\r', '\n', '\v', '\f':
				cursor++
			default:
				return
			}
		}
	}

	skipLineComment := func() bool {
		if cursor+1 < n && src[cursor] == '/' && src[cursor+1] == '/' {
			for cursor < n && src[cursor] != '\n' {
				cursor++
			}
			return true
		}
		return false
	}

	// reads a quoted string; empty result with ok=false when the next
	// token is not a quote
	readQuoted := func() (string, bool) {
		skipWhitespace()
		if cursor >= n || src[cursor] != '"' {
			return "", false
		}
		cursor++

		var token []byte
		for cursor < n {
			c := src[cursor]
			if c == '"' {
				break
			}
			if c == '\\' && cursor+1 < n {
				switch src[cursor+1] {
				case '"':
					token = append(token, '"')
					cursor += 2
					continue
				case '\\':
					token = append(token, '\\')
					cursor += 2
					continue
				case 'n':
					token = append(token, '\n')
					cursor += 2
					continue
				}
			}
			token = append(token, c)
			cursor++
		}
		if cursor < n {
			cursor++ // closing quote
		}
		return string(token), true
	}

	for cursor < n {
		skipWhitespace()
		if cursor >= n {
			break
		}
		if skipLineComment() {
			continue
		}

		if src[cursor] != '{' {
			cursor++
			continue
		}
		cursor++

		record := GenericEntity{}
		for cursor < n {
			skipWhitespace()
			if cursor >= n {
				break
			}
			if src[cursor] == '}' {
				cursor++
				break
			}
			if skipLineComment() {
				continue
			}

			key, ok := readQuoted()
			if !ok {
				if cursor < n && src[cursor] != '}' {
					cursor++
				}
				continue
			}
			value, _ := readQuoted()
			record[key] = value
		}
		records = append(records, record)
	}

	return records
}

// ClassifyEntities rebuilds raw records as typed entities. Light
// entities with a target that resolves to some other record's
// targetname become spot lights; the rest become point lights.
func ClassifyEntities(records []GenericEntity) []Entity {
	targets := make(map[string]mgl32.Vec3)
	for _, rec := range records {
		name, hasName := rec["targetname"]
		originText, hasOrigin := rec["origin"]
		if !hasName || !hasOrigin {
			continue
		}
		origin, err := utils.ParseVec3(originText)
		if err != nil {
			continue
		}
		targets[name] = origin
	}

	entities := make([]Entity, 0, len(records))
	for _, rec := range records {
		if rec["classname"] != "light" {
			entities = append(entities, rec)
			continue
		}

		origin, err := utils.ParseVec3(rec["origin"])
		if err != nil {
			origin = mgl32.Vec3{}
		}

		intensity := float32(defaultLightIntensity)
		if v, ok := rec["light"]; ok {
			intensity = utils.ParseFloatDefault(v, defaultLightIntensity)
		} else if v, ok := rec["_light"]; ok {
			intensity = utils.ParseFloatDefault(v, defaultLightIntensity)
		}

		color := mgl32.Vec3{1, 1, 1}
		if v, ok := rec["_color"]; ok {
			if c, err := utils.ParseColor(v); err == nil {
				color = c
			}
		}

		if targetOrigin, ok := targets[rec["target"]]; ok {
			toTarget := targetOrigin.Sub(origin)
			distance := toTarget.Len()

			direction := mgl32.Vec3{0, 0, -1}
			if distance > 0 {
				direction = toTarget.Mul(1 / distance)
			}
			if distance < 1 {
				distance = 1
			}

			radius := utils.ParseFloatDefault(rec["radius"], defaultSpotRadius)
			entities = append(entities, SpotLightEntity{
				Origin:    origin,
				Direction: direction,
				Color:     color,
				Intensity: intensity,
				SpotAngle: math32.Atan(radius / distance),
			})
			continue
		}

		entities = append(entities, PointLightEntity{
			Origin:    origin,
			Color:     color,
			Intensity: intensity,
		})
	}

	return entities
}
