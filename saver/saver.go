// Package saver serializes an assembled scene as glTF 2.0 with an
// external buffer and external, renamed texture images.
package saver

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/DaviesX/ioq3-map-exporter/config"
	"github.com/DaviesX/ioq3-map-exporter/scene"
	"github.com/DaviesX/ioq3-map-exporter/utils/gltfutils"
)

// Save writes <name>.gltf, <name>.bin and every referenced texture into
// outDir.
func Save(s *scene.Scene, outDir, name string) error {
	if err := os.MkdirAll(outDir, 0777); err != nil {
		return errors.Wrapf(err, "Failed to create output directory %q", outDir)
	}

	doc := gltfutils.NewDocument()

	// node 0 parents every mesh and light
	worldNode := &gltf.Node{Name: "Worldspawn"}
	doc.Nodes = append(doc.Nodes, worldNode)
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	textures := &textureAllocator{
		outDir:  outDir,
		indices: make(map[string]uint32),
	}

	gltfMaterials, err := exportMaterials(doc, s, textures)
	if err != nil {
		return err
	}
	exportGeometries(doc, worldNode, s, gltfMaterials)
	exportLights(doc, worldNode, s)

	if len(doc.Buffers) > 0 && len(doc.Buffers[0].Data) > 0 {
		binName := name + ".bin"
		if err := os.WriteFile(filepath.Join(outDir, binName), doc.Buffers[0].Data, 0666); err != nil {
			return errors.Wrapf(err, "Failed to write buffer %q", binName)
		}
		doc.Buffers[0].URI = binName
		doc.Buffers[0].Data = nil
	}

	gltfPath := filepath.Join(outDir, name+".gltf")
	if err := gltf.Save(doc, gltfPath); err != nil {
		return errors.Wrapf(err, "Failed to write %q", gltfPath)
	}
	return nil
}

// textureAllocator copies source images into the output directory and
// hands out one glTF texture per renamed file. The rename encodes the
// source directory (<dir>@<file>) so same-named files cannot collide.
type textureAllocator struct {
	outDir  string
	indices map[string]uint32
}

func (ta *textureAllocator) add(doc *gltf.Document, fromPath string) (uint32, error) {
	filename := filepath.Base(fromPath)
	if dir := filepath.Base(filepath.Dir(fromPath)); dir != "." && dir != string(filepath.Separator) {
		filename = dir + "@" + filename
	}

	if index, ok := ta.indices[filename]; ok {
		return index, nil
	}

	if err := copyFile(fromPath, filepath.Join(ta.outDir, filename)); err != nil {
		return 0, errors.Wrapf(err, "Failed to copy texture %q", fromPath)
	}

	doc.Images = append(doc.Images, &gltf.Image{URI: filename})
	imageIndex := uint32(len(doc.Images) - 1)

	doc.Textures = append(doc.Textures, &gltf.Texture{Source: gltf.Index(imageIndex)})
	textureIndex := uint32(len(doc.Textures) - 1)

	ta.indices[filename] = textureIndex
	return textureIndex, nil
}

func copyFile(from, to string) error {
	src, err := os.Open(from)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(to, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

// exportMaterials writes every scene material and returns the
// material-id -> glTF material index mapping.
func exportMaterials(doc *gltf.Document, s *scene.Scene, textures *textureAllocator) (map[int32]uint32, error) {
	scale := config.GetExporter().EmissiveIntensityScale

	ids := make([]int32, 0, len(s.Materials))
	for id := range s.Materials {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	mapping := make(map[int32]uint32, len(ids))
	for _, id := range ids {
		mat := s.Materials[id]

		metallic, roughness := float32(0), float32(1)
		gm := &gltf.Material{
			Name:        mat.Name,
			DoubleSided: true,
			PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
				MetallicFactor:  &metallic,
				RoughnessFactor: &roughness,
			},
		}

		if mat.Albedo != "" {
			index, err := textures.add(doc, mat.Albedo)
			if err != nil {
				return nil, err
			}
			gm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: index}
		}

		if mat.EmissionIntensity > 0 {
			gm.EmissiveFactor = [3]float32{1, 1, 1}

			if mat.Emission != "" {
				index, err := textures.add(doc, mat.Emission)
				if err != nil {
					return nil, err
				}
				gm.EmissiveTexture = &gltf.TextureInfo{Index: index}
			}

			if strength := mat.EmissionIntensity * scale; strength > 1 {
				gltfutils.UseExtension(doc, gltfutils.EmissiveStrengthExtension)
				if gm.Extensions == nil {
					gm.Extensions = gltf.Extensions{}
				}
				gm.Extensions[gltfutils.EmissiveStrengthExtension] = gltfutils.EmissiveStrength{
					EmissiveStrength: strength,
				}
			}
		}

		doc.Materials = append(doc.Materials, gm)
		mapping[id] = uint32(len(doc.Materials) - 1)
	}

	return mapping, nil
}

func exportGeometries(doc *gltf.Document, worldNode *gltf.Node, s *scene.Scene, gltfMaterials map[int32]uint32) {
	indices := make([]int, 0, len(s.Geometries))
	for idx := range s.Geometries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	for _, idx := range indices {
		geo := s.Geometries[idx]

		attributes := map[string]uint32{
			"POSITION": modeler.WritePosition(doc, vec3Slice(geo.Vertices)),
		}
		if len(geo.Normals) > 0 {
			attributes["NORMAL"] = modeler.WriteNormal(doc, vec3Slice(geo.Normals))
		}
		if len(geo.TextureUVs) > 0 {
			attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(doc, vec2Slice(geo.TextureUVs))
		}
		if len(geo.LightmapUVs) > 0 {
			attributes["TEXCOORD_1"] = modeler.WriteTextureCoord(doc, vec2Slice(geo.LightmapUVs))
		}
		indicesAccessor := modeler.WriteIndices(doc, geo.Indices)

		primitive := &gltf.Primitive{
			Indices:    gltf.Index(indicesAccessor),
			Attributes: attributes,
		}
		if materialIndex, ok := gltfMaterials[geo.MaterialID]; ok {
			primitive.Material = gltf.Index(materialIndex)
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{
			Name:       fmt.Sprintf("Geometry_%d", idx),
			Primitives: []*gltf.Primitive{primitive},
		})

		doc.Nodes = append(doc.Nodes, &gltf.Node{
			Name: fmt.Sprintf("Geometry_%d", idx),
			Mesh: gltf.Index(uint32(len(doc.Meshes) - 1)),
		})
		worldNode.Children = append(worldNode.Children, uint32(len(doc.Nodes)-1))
	}
}

func exportLights(doc *gltf.Document, worldNode *gltf.Node, s *scene.Scene) {
	scale := config.GetExporter().PunctualIntensityScale

	var lights []gltfutils.PunctualLight
	for _, light := range s.Lights {
		if light.Type == scene.LightArea {
			// area lights live on their emissive materials
			continue
		}

		index := len(lights)
		entry := gltfutils.PunctualLight{
			Name:      fmt.Sprintf("Light_%d", index),
			Color:     light.Color,
			Intensity: light.Intensity * scale,
		}
		switch light.Type {
		case scene.LightDirectional:
			entry.Type = "directional"
		case scene.LightSpot:
			entry.Type = "spot"
			entry.Spot = &gltfutils.PunctualSpot{
				InnerConeAngle: safeAcos(light.CosInnerCone),
				OuterConeAngle: safeAcos(light.CosOuterCone),
			}
		default:
			entry.Type = "point"
		}
		lights = append(lights, entry)

		node := &gltf.Node{
			Name:        fmt.Sprintf("LightNode_%d", index),
			Translation: light.Position,
			Extensions: gltf.Extensions{
				gltfutils.LightsPunctualExtension: gltfutils.LightReference{Light: index},
			},
		}
		if light.Type == scene.LightDirectional || light.Type == scene.LightSpot {
			node.Rotation = orientTowards(light.Direction)
		}

		doc.Nodes = append(doc.Nodes, node)
		worldNode.Children = append(worldNode.Children, uint32(len(doc.Nodes)-1))
	}

	if len(lights) > 0 {
		gltfutils.UseExtension(doc, gltfutils.LightsPunctualExtension)
		if doc.Extensions == nil {
			doc.Extensions = gltf.Extensions{}
		}
		doc.Extensions[gltfutils.LightsPunctualExtension] = gltfutils.PunctualLights{Lights: lights}
	}
}

// orientTowards builds the quaternion rotating the glTF light axis (-Z)
// onto the given direction.
func orientTowards(direction mgl32.Vec3) [4]float32 {
	z := direction.Mul(-1)
	if length := z.Len(); length > 1e-6 {
		z = z.Mul(1 / length)
	} else {
		z = mgl32.Vec3{0, 0, 1}
	}

	up := mgl32.Vec3{0, 1, 0}
	if math32.Abs(z.Dot(up)) > 0.99 {
		up = mgl32.Vec3{1, 0, 0}
	}

	x := up.Cross(z).Normalize()
	y := z.Cross(x).Normalize()

	q := mgl32.Mat4ToQuat(mgl32.Mat3FromCols(x, y, z).Mat4())
	return [4]float32{q.X(), q.Y(), q.Z(), q.W}
}

func safeAcos(cos float32) float32 {
	if cos >= 1 {
		return 0
	}
	if cos <= -1 {
		return math32.Pi
	}
	return math32.Acos(cos)
}

func vec3Slice(in []mgl32.Vec3) [][3]float32 {
	out := make([][3]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func vec2Slice(in []mgl32.Vec2) [][2]float32 {
	out := make([][2]float32, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
