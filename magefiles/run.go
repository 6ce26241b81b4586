//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed until interrupted. FRAMES limits the number of frames.
func (Run) Testbed() error {
	mg.Deps(Build.Lint)
	args := []string{"run", ".", "-config", "configs/engine.toml"}
	if frames := os.Getenv("FRAMES"); frames != "" {
		args = append(args, "-frames", frames)
	}
	fmt.Println("Run testbed...")
	_, err := executeCmd("go", withArgs(args...), withStream())
	return err
}
