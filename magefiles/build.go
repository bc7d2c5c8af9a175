//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/target"
	"github.com/spaghettifunk/vesta/engine/config"
)

const (
	configFile = "vesta.toml"
	binaryPath = "bin/vesta"
)

type Build mg.Namespace

// Compiles every GLSL stage under the shader directory to SPIR-V next to
// its source. Stages whose output is newer than the source are skipped.
func (Build) Shaders() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	var sources []string
	for _, ext := range []string{"*.vert", "*.frag"} {
		matches, err := filepath.Glob(filepath.Join(cfg.Assets.Shaders, ext))
		if err != nil {
			return err
		}
		sources = append(sources, matches...)
	}
	if len(sources) == 0 {
		return fmt.Errorf("no shader sources found in %s", cfg.Assets.Shaders)
	}

	for _, src := range sources {
		dst := src + ".spv"
		stale, err := target.Path(dst, src)
		if err != nil {
			return err
		}
		if !stale {
			continue
		}
		if _, err := executeCmd("glslc", withArgs(src, "-o", dst), withStream()); err != nil {
			return err
		}
	}
	return nil
}

// Builds the shaders and the testbed binary into bin/.
func (Build) Engine() error {
	mg.Deps(Build.Shaders)
	if err := os.MkdirAll(filepath.Dir(binaryPath), 0o755); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", binaryPath, "."), withStream())
	return err
}

// Removes compiled shaders and the binary.
func (Build) Clean() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	spv, err := filepath.Glob(filepath.Join(cfg.Assets.Shaders, "*.spv"))
	if err != nil {
		return err
	}
	for _, f := range append(spv, binaryPath) {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
		if mg.Verbose() {
			fmt.Println("removed", strings.TrimSpace(f))
		}
	}
	return nil
}
