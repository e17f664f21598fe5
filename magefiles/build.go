//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Compiles the GLSL scene shaders into SPIR-V.
func (Build) Shaders() error {
	return buildShaders()
}

// Packs the demo scene manifest into the container the testbed loads.
func (Build) Assets() error {
	if _, err := executeCmd("go", withArgs("run", "./cmd/lantern-pack", "assets/scenes/demo.toml"), withStream()); err != nil {
		return err
	}
	return nil
}

// Builds the engine binary.
func (Build) Engine() error {
	mg.Deps(Build.Shaders, Build.Assets)
	if _, err := executeCmd("go", withArgs("build", "-o", "lantern", "."), withStream()); err != nil {
		return err
	}
	return nil
}

func buildShaders() error {
	if _, err := executeCmd("glslc", withArgs("shaders/scene.vert", "-o", "assets/shaders/scene.vert.spv"), withStream()); err != nil {
		return err
	}
	if _, err := executeCmd("glslc", withArgs("shaders/scene.frag", "-o", "assets/shaders/scene.frag.spv"), withStream()); err != nil {
		return err
	}
	return nil
}
