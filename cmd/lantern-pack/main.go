// Command lantern-pack assembles a packed scene file from a TOML scene
// manifest: images are decoded, primitive meshes generated and the whole
// scene written as a single .lant container the engine loads at runtime.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lantern-engine/lantern/engine/assets"
	"github.com/lantern-engine/lantern/engine/assets/loaders"
	"github.com/lantern-engine/lantern/engine/core"
)

func main() {
	output := flag.String("o", "", "output file (defaults to the manifest path with a .lant extension)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: lantern-pack [-o output.lant] manifest.toml\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	manifestPath := flag.Arg(0)
	outputPath := *output
	if outputPath == "" {
		outputPath = strings.TrimSuffix(manifestPath, filepath.Ext(manifestPath)) + ".lant"
	}

	scene, err := loaders.BuildScene(manifestPath)
	if err != nil {
		core.LogError("failed to build scene from %s: %v", manifestPath, err)
		os.Exit(1)
	}
	if err := assets.SaveSceneAsset(outputPath, scene); err != nil {
		core.LogError("failed to write %s: %v", outputPath, err)
		os.Exit(1)
	}
	core.LogInfo("packed %s into %s", manifestPath, outputPath)
}
