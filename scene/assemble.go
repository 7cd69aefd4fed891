package scene

import (
	"log"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/DaviesX/ioq3-map-exporter/bsp"
	"github.com/DaviesX/ioq3-map-exporter/geometry"
	"github.com/DaviesX/ioq3-map-exporter/shader"
	"github.com/DaviesX/ioq3-map-exporter/utils"
)

// MetersPerUnit converts Quake map units (inches) to meters.
const MetersPerUnit = 0.0254

const degToRad = math32.Pi / 180

// TransformPoint maps a Z-up map-space position into Y-up meter space:
// (x, y, z) -> (x, z, -y) scaled by MetersPerUnit.
func TransformPoint(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{p[0] * MetersPerUnit, p[2] * MetersPerUnit, -p[1] * MetersPerUnit}
}

// TransformDirection applies the axis swizzle without scaling.
func TransformDirection(d mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{d[0], d[2], -d[1]}
}

// Assemble combines staged surfaces, resolved materials and classified
// entities into one scene.
func Assemble(surfaces map[int]geometry.Surface, materials map[int32]*shader.Shader, entities []bsp.Entity, patchSubdivisions int) *Scene {
	out := &Scene{
		Geometries: make(map[int]*Geometry, len(surfaces)),
		Materials:  make(map[int32]*Material, len(materials)),
	}

	for _, entity := range entities {
		switch e := entity.(type) {
		case bsp.PointLightEntity:
			light := NewLight(LightPoint)
			light.Position = TransformPoint(e.Origin)
			light.Color = e.Color
			light.Intensity = e.Intensity
			out.Lights = append(out.Lights, light)

		case bsp.SpotLightEntity:
			light := NewLight(LightSpot)
			light.Position = TransformPoint(e.Origin)
			light.Direction = TransformDirection(e.Direction)
			light.Color = e.Color
			light.Intensity = e.Intensity

			outerRad := e.SpotAngle / 2 * degToRad
			light.CosOuterCone = math32.Cos(outerRad)
			light.CosInnerCone = math32.Cos(outerRad * 0.8)
			out.Lights = append(out.Lights, light)

		case bsp.GenericEntity:
			if e["classname"] == "worldspawn" {
				if sun, ok := worldspawnSun(e); ok {
					out.Lights = append(out.Lights, sun)
				}
			}
		}
	}

	materialIDs := make([]int32, 0, len(materials))
	for id := range materials {
		materialIDs = append(materialIDs, id)
	}
	sort.Slice(materialIDs, func(i, j int) bool { return materialIDs[i] < materialIDs[j] })

	for _, id := range materialIDs {
		def := materials[id]
		mat := &Material{
			Name:              def.Name,
			Emission:          def.LightImage,
			EmissionIntensity: def.SurfaceLight,
		}
		for _, layer := range def.Layers {
			if _, ok := layer.TCMod.(shader.TCModNoOp); ok {
				mat.Albedo = layer.Path
				break
			}
		}
		out.Materials[id] = mat

		if def.Sun != nil && def.Sun.Intensity > 0 {
			light := NewLight(LightDirectional)
			light.Color = def.Sun.Color
			light.Intensity = def.Sun.Intensity
			light.Direction = TransformDirection(sunTravelDirection(def.Sun.YawDegrees, def.Sun.ElevationDegrees))
			out.Lights = append(out.Lights, light)
		}
	}

	faceIndices := make([]int, 0, len(surfaces))
	for idx := range surfaces {
		faceIndices = append(faceIndices, idx)
	}
	sort.Ints(faceIndices)

	for _, idx := range faceIndices {
		surface := surfaces[idx]

		mat, ok := out.Materials[surface.ShaderIndex]
		if !ok {
			log.Printf("[scene] face %d references unresolved material %d, dropping", idx, surface.ShaderIndex)
			continue
		}

		mesh := geometry.Triangulate(surface.Primitive, patchSubdivisions)
		out.Geometries[idx] = toGeometry(mesh, surface.ShaderIndex)

		if mat.EmissionIntensity > 0 {
			light := NewLight(LightArea)
			light.Intensity = mat.EmissionIntensity
			light.GeometryIndex = idx
			light.MaterialID = surface.ShaderIndex
			out.Lights = append(out.Lights, light)
		}
	}

	return out
}

// toGeometry converts a map-space mesh into output space and flips the
// winding: the source is clockwise, the target counter-clockwise, so
// indices emit in reverse order.
func toGeometry(mesh geometry.Mesh, materialID int32) *Geometry {
	geo := &Geometry{
		Vertices:    make([]mgl32.Vec3, 0, len(mesh.Vertices)),
		Normals:     make([]mgl32.Vec3, 0, len(mesh.Vertices)),
		TextureUVs:  make([]mgl32.Vec2, 0, len(mesh.Vertices)),
		LightmapUVs: make([]mgl32.Vec2, 0, len(mesh.Vertices)),
		Indices:     make([]uint32, 0, len(mesh.Indices)),
		MaterialID:  materialID,
		Transform:   mgl32.Ident4(),
	}

	for i := range mesh.Vertices {
		v := &mesh.Vertices[i]
		geo.Vertices = append(geo.Vertices, TransformPoint(v.Position))
		geo.Normals = append(geo.Normals, TransformDirection(v.Normal))
		geo.TextureUVs = append(geo.TextureUVs, v.ST)
		geo.LightmapUVs = append(geo.LightmapUVs, v.Lightmap)
	}

	for i := len(mesh.Indices) - 1; i >= 0; i-- {
		geo.Indices = append(geo.Indices, mesh.Indices[i])
	}

	return geo
}

// sunTravelDirection turns yaw/elevation degrees into the direction
// light travels: the unit vector pointing at the sun, negated.
func sunTravelDirection(yawDegrees, elevationDegrees float32) mgl32.Vec3 {
	yaw := yawDegrees * degToRad
	elevation := elevationDegrees * degToRad

	toSun := mgl32.Vec3{
		math32.Cos(elevation) * math32.Cos(yaw),
		math32.Cos(elevation) * math32.Sin(yaw),
		math32.Sin(elevation),
	}
	return toSun.Mul(-1)
}

// worldspawnSun builds a directional light from the worldspawn's
// _sunlight fields.
func worldspawnSun(props bsp.GenericEntity) (Light, bool) {
	sunlight, ok := props["_sunlight"]
	if !ok {
		return Light{}, false
	}

	light := NewLight(LightDirectional)
	light.Intensity = utils.ParseFloatDefault(sunlight, 1)

	if v, ok := props["_sunlight_color"]; ok {
		if c, err := utils.ParseColor(v); err == nil {
			light.Color = c
		}
	}

	if v, ok := props["_sun_mangle"]; ok {
		if mangle, err := utils.ParseVec3(v); err == nil {
			yaw := mangle[0] * degToRad
			pitch := mangle[1] * degToRad
			toSun := mgl32.Vec3{
				math32.Cos(pitch) * math32.Cos(yaw),
				math32.Cos(pitch) * math32.Sin(yaw),
				math32.Sin(pitch),
			}
			light.Direction = TransformDirection(toSun.Mul(-1))
		}
	}

	return light, true
}
