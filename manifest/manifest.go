// Package manifest handles forge.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/forgelabs/typeforge/pkg/classfile"
)

// Manifest represents a forge.toml project configuration.
type Manifest struct {
	Project Project      `toml:"project"`
	Input   Input        `toml:"input"`
	Output  OutputConfig `toml:"output"`

	// Dir is the directory containing the forge.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Input configures where base classes are resolved from.
type Input struct {
	ClassPath []string `toml:"class-path"`
}

// OutputConfig configures artifact emission.
type OutputConfig struct {
	Dir          string `toml:"dir"`
	TargetMajor  uint16 `toml:"target-major"`
	TargetMinor  uint16 `toml:"target-minor"`
	RandomNaming bool   `toml:"random-naming"`
	Bundle       string `toml:"bundle"` // bundle file name, "" for loose class files
}

// Load parses a forge.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "forge.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Input.ClassPath) == 0 {
		m.Input.ClassPath = []string{"classes"}
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "out"
	}
	if m.Output.TargetMajor == 0 {
		m.Output.TargetMajor = classfile.Java8
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a forge.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "forge.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ClassPathDirs returns absolute paths for the configured class path.
func (m *Manifest) ClassPathDirs() []string {
	var paths []string
	for _, d := range m.Input.ClassPath {
		paths = append(paths, filepath.Join(m.Dir, d))
	}
	return paths
}

// OutputDir returns the absolute artifact output directory.
func (m *Manifest) OutputDir() string {
	return filepath.Join(m.Dir, m.Output.Dir)
}
