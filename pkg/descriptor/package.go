package descriptor

import (
	"maps"
	"slices"

	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
)

// Package is a parsed package descriptor.
type Package struct {
	UID      string                     `json:"uid,omitempty" toml:"uid,omitempty"`
	Name     string                     `json:"name,omitempty" toml:"name,omitempty"`
	Version  string                     `json:"version,omitempty" toml:"version,omitempty"`
	Mappings map[string]locator.Locator `json:"mappings,omitempty" toml:"mappings,omitempty"`

	path string
}

// Mapping is one declared mapping of a package.
type Mapping struct {
	Alias   string
	Locator locator.Locator
}

// LoadPackage reads the package descriptor in dir. A directory without
// package.json or package.toml is a package with no mappings.
func LoadPackage(dir string) (*Package, error) {
	path, ok := firstExisting(dir, PackageFile, PackageFileTOML)
	if !ok {
		return &Package{}, nil
	}

	p := &Package{path: path}
	if err := decodeFile(path, p); err != nil {
		return nil, err
	}
	for alias, loc := range p.Mappings {
		if alias == "" {
			return nil, errors.New(errors.ErrCodeInvalidDescriptor, "empty mapping alias in %s", path)
		}
		if loc.IsZero() {
			return nil, errors.New(errors.ErrCodeInvalidDescriptor, "mapping %q in %s has an empty locator", alias, path)
		}
	}
	return p, nil
}

// Path returns the descriptor file, or empty when the package has none.
func (p *Package) Path() string { return p.path }

// MappingLocators returns the mappings ordered by alias, with relative
// locations resolved against dir.
func (p *Package) MappingLocators(dir string) []Mapping {
	aliases := slices.Sorted(maps.Keys(p.Mappings))
	out := make([]Mapping, 0, len(aliases))
	for _, alias := range aliases {
		out = append(out, Mapping{Alias: alias, Locator: p.Mappings[alias].WithBase(dir)})
	}
	return out
}
