// Package crates resolves crate names to their build-output directories.
package crates

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/example/binutils/internal/config"
)

// manifest is the subset of Cargo.toml the locator cares about.
type manifest struct {
	Package   *manifestPackage   `toml:"package"`
	Workspace *manifestWorkspace `toml:"workspace"`
}

type manifestPackage struct {
	Name string `toml:"name"`
}

type manifestWorkspace struct {
	Members []string `toml:"members"`
}

// Locate builds the crate-name -> bin-dir map from the configured crate
// locations. It is built once per run and read-only afterwards. Locations
// without a Cargo.toml are skipped; unparseable manifests are fatal.
func Locate(cfg *config.Config) (map[string]string, error) {
	locations := map[string]string{}

	for _, location := range cfg.CrateLocations {
		packages, err := Packages(config.ExpandTilde(location))
		if err != nil {
			return nil, err
		}
		for _, pkg := range packages {
			locations[pkg.Name] = BinDir(pkg.Dir)
		}
	}

	return locations, nil
}

// Package is one crate resolved under a workspace root.
type Package struct {
	Name string
	Dir  string
}

// Packages lists the crates under a workspace root: the root's own package,
// if it declares one, plus every resolvable workspace member. A root without
// a manifest yields nothing; members without one are skipped.
func Packages(root string) ([]Package, error) {
	m, ok, err := readManifest(root)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var packages []Package
	if m.Package != nil && m.Package.Name != "" {
		packages = append(packages, Package{Name: m.Package.Name, Dir: root})
	}

	if m.Workspace == nil {
		return packages, nil
	}

	for _, pattern := range m.Workspace.Members {
		matches, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid workspace member glob %q in %s: %w", pattern, root, err)
		}
		for _, member := range matches {
			mm, ok, err := readManifest(member)
			if err != nil {
				return nil, err
			}
			if !ok || mm.Package == nil || mm.Package.Name == "" {
				continue
			}
			packages = append(packages, Package{Name: mm.Package.Name, Dir: member})
		}
	}

	return packages, nil
}

func readManifest(dir string) (manifest, bool, error) {
	path := filepath.Join(dir, "Cargo.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return manifest{}, false, nil
		}
		return manifest{}, false, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return manifest{}, false, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}
	return m, true, nil
}

// BinDir is where the symlink generator places a crate's built binaries.
func BinDir(dir string) string {
	return filepath.Join(dir, "target", "debug")
}
