package utils

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ParseVec3 reads three whitespace-separated floats, the format of
// entity "origin" fields and friends.
func ParseVec3(s string) (mgl32.Vec3, error) {
	fields := strings.Fields(s)
	if len(fields) != 3 {
		return mgl32.Vec3{}, errors.Errorf("Expected 3 components in %q, got %d", s, len(fields))
	}
	var v mgl32.Vec3
	for i, f := range fields {
		x, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return mgl32.Vec3{}, errors.Wrapf(err, "Bad vector component %q", f)
		}
		v[i] = float32(x)
	}
	return v, nil
}

// ParseColor reads an rgb triple that may be authored either in 0..1 or
// 0..255. If any component exceeds 1 the whole triple is treated as
// byte-scaled and divided by 255.
func ParseColor(s string) (mgl32.Vec3, error) {
	c, err := ParseVec3(s)
	if err != nil {
		return mgl32.Vec3{}, err
	}
	return NormalizeColor(c), nil
}

func NormalizeColor(c mgl32.Vec3) mgl32.Vec3 {
	if c[0] > 1 || c[1] > 1 || c[2] > 1 {
		return c.Mul(1.0 / 255.0)
	}
	return c
}

// ParseFloatDefault reads a single float, falling back to def on any
// parse failure. Entity values are free-form text, so junk means
// "use the default", not an error.
func ParseFloatDefault(s string, def float32) float32 {
	x, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return def
	}
	return float32(x)
}
