//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Compiles the shaders and runs the testbed.
func (Run) Engine() error {
	mg.Deps(Build.Shaders)
	fmt.Println("Run engine...")
	if _, err := executeCmd("go", withArgs("run", ".", "-config", configFile), withStream()); err != nil {
		return err
	}
	return nil
}

// Runs the testbed with the validation layer forced on.
func (Run) Validation() error {
	mg.Deps(Build.Shaders)
	if _, err := executeCmd("go", withArgs("run", ".", "-config", "vesta.validation.toml"), withStream()); err != nil {
		return err
	}
	return nil
}
