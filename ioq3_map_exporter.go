package main

import (
	"flag"
	"log"
	"os"

	"github.com/DaviesX/ioq3-map-exporter/archive"
	"github.com/DaviesX/ioq3-map-exporter/bsp"
	"github.com/DaviesX/ioq3-map-exporter/config"
	"github.com/DaviesX/ioq3-map-exporter/geometry"
	"github.com/DaviesX/ioq3-map-exporter/material"
	"github.com/DaviesX/ioq3-map-exporter/saver"
	"github.com/DaviesX/ioq3-map-exporter/scene"
	"github.com/DaviesX/ioq3-map-exporter/shader"

	"github.com/pkg/errors"
)

func main() {
	var basePath, mapName, output, settings string
	var dump bool
	flag.StringVar(&basePath, "base-path", "", "Path to the directory holding the Quake 3 .pk3 archives")
	flag.StringVar(&mapName, "map", "", "Map name (e.g. q3dm1)")
	flag.StringVar(&output, "output", "", "Output directory")
	flag.StringVar(&settings, "settings", "", "Optional yaml file with exporter settings")
	flag.BoolVar(&dump, "dump", false, "Dump parsed shaders and entities to the log")
	flag.Parse()

	if basePath == "" || mapName == "" || output == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	if settings != "" {
		if err := config.LoadExporter(settings); err != nil {
			log.Fatalf("%v", err)
		}
	}

	if err := export(basePath, mapName, output, dump); err != nil {
		log.Fatalf("%v", err)
	}
}

func export(basePath, mapName, output string, dump bool) error {
	log.Printf("Starting ioq3-map-exporter")
	log.Printf("Base path: %s", basePath)
	log.Printf("Map: %s", mapName)
	log.Printf("Output: %s", output)

	archives, err := archive.List(basePath)
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		return errors.Errorf("no pk3 archives found in %q", basePath)
	}
	log.Printf("Found %d archives", len(archives))

	fs, err := archive.Mount(archives)
	if err != nil {
		return err
	}
	defer func() {
		if err := fs.Close(); err != nil {
			log.Printf("%v", err)
		}
	}()
	log.Printf("Mounted VFS at %s", fs.Root())

	mapPath := "maps/" + mapName + ".bsp"
	if !fs.Exists(mapPath) {
		return errors.Errorf("map %q not found in the mounted archives", mapPath)
	}
	b, err := bsp.Load(fs.Resolve(mapPath))
	if err != nil {
		return err
	}
	log.Printf("Loaded %s", mapPath)

	table, err := shader.ParseAll(fs)
	if err != nil {
		log.Printf("No shader scripts: %v", err)
		table = map[string]*shader.Shader{}
	}
	log.Printf("Parsed %d shaders", len(table))

	materials, err := material.Resolve(b, table, func(name string) (*shader.Shader, bool) {
		return shader.CreateDefault(fs, name)
	})
	if err != nil {
		return err
	}
	log.Printf("Resolved %d materials", len(materials))

	surfaces, err := geometry.Build(b)
	if err != nil {
		return err
	}
	log.Printf("Staged %d surfaces", len(surfaces))

	entities := b.Entities()
	log.Printf("Classified %d entities", len(entities))

	if dump {
		dumpParsed(table, entities)
	}

	assembled := scene.Assemble(surfaces, materials, entities, config.GetExporter().PatchSubdivisions)
	log.Printf("Assembled scene: %d geometries, %d materials, %d lights",
		len(assembled.Geometries), len(assembled.Materials), len(assembled.Lights))

	if err := saver.Save(assembled, output, mapName); err != nil {
		return err
	}
	log.Printf("Wrote %s", output)
	return nil
}
