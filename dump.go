package main

import (
	"log"
	"sort"

	"github.com/davecgh/go-spew/spew"

	"github.com/DaviesX/ioq3-map-exporter/bsp"
	"github.com/DaviesX/ioq3-map-exporter/shader"
)

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

// dumpParsed logs the shader table and the classified entity list, for
// inspecting what the pipeline extracted before assembly.
func dumpParsed(table map[string]*shader.Shader, entities []bsp.Entity) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	log.Printf("Dumping %d shaders", len(names))
	for _, name := range names {
		log.Printf("shader %q:\n%s", name, dumpConfig.Sdump(table[name]))
	}

	log.Printf("Dumping %d entities", len(entities))
	for i, entity := range entities {
		log.Printf("entity %d:\n%s", i, dumpConfig.Sdump(entity))
	}
}
