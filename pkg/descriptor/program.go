package descriptor

import (
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
)

// Descriptor file names, in lookup order.
const (
	ProgramFile     = "program.json"
	ProgramFileTOML = "program.toml"
	PackageFile     = "package.json"
	PackageFileTOML = "package.toml"
)

// PackageEntry is one entry of a program descriptor's packages map.
type PackageEntry struct {
	Locator locator.Locator `json:"locator" toml:"locator"`
}

// Program is a parsed program descriptor.
type Program struct {
	Boot     string                  `json:"boot,omitempty" toml:"boot,omitempty"`
	Packages map[string]PackageEntry `json:"packages,omitempty" toml:"packages,omitempty"`

	path string // descriptor file; empty for implicit programs
	dir  string // directory relative locations are resolved against
}

// Root is a package declared by a program descriptor.
type Root struct {
	ID      string
	Locator locator.Locator
}

// LoadProgram reads the program descriptor at uri.
//
// uri may name the descriptor file itself or a directory. A directory
// containing program.json (or program.toml) loads that descriptor; a
// directory without one is an implicit program with a single boot
// package rooted at the directory.
func LoadProgram(uri string) (*Program, error) {
	abs, err := filepath.Abs(uri)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve program uri %s", uri)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeLocationNotFound, err, "program not found at %s", abs)
	}

	if info.IsDir() {
		path, ok := firstExisting(abs, ProgramFile, ProgramFileTOML)
		if !ok {
			return implicitProgram(abs), nil
		}
		abs = path
	}

	p := &Program{path: abs, dir: filepath.Dir(abs)}
	if err := decodeFile(abs, p); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// implicitProgram builds the program for a bare package directory.
func implicitProgram(dir string) *Program {
	return &Program{
		Boot: dir,
		Packages: map[string]PackageEntry{
			dir: {Locator: locator.ForLocation(dir)},
		},
		dir: dir,
	}
}

// DefaultProgram returns the minimal descriptor synthesized for archives
// that ship without one: a single boot package rooted at the descriptor's
// own directory.
func DefaultProgram(id string) *Program {
	return &Program{
		Boot: id,
		Packages: map[string]PackageEntry{
			id: {Locator: locator.ForLocation("./")},
		},
	}
}

// WriteProgram persists p at path, creating parent directories.
func WriteProgram(path string, p *Program) error {
	data, err := encode(path, p)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode program descriptor")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks package ids, declared locators and the boot reference.
func (p *Program) Validate() error {
	for id, entry := range p.Packages {
		if err := errors.ValidatePackageID(id); err != nil {
			return err
		}
		if entry.Locator.IsZero() {
			return errors.New(errors.ErrCodeInvalidDescriptor, "package %q in %s has an empty locator", id, p.Path())
		}
	}
	if p.Boot != "" {
		if _, ok := p.Packages[p.Boot]; !ok {
			return errors.New(errors.ErrCodeInvalidDescriptor, "boot package %q is not declared in %s", p.Boot, p.Path())
		}
	}
	return nil
}

// Path returns the descriptor file path, or the program directory for
// implicit programs.
func (p *Program) Path() string {
	if p.path == "" {
		return p.dir
	}
	return p.path
}

// Dir returns the directory relative locations are resolved against.
func (p *Program) Dir() string { return p.dir }

// Implicit reports whether the program was synthesized from a bare directory.
func (p *Program) Implicit() bool { return p.path == "" }

// RootLocators returns the declared packages ordered by id, with relative
// locations resolved against the program directory.
func (p *Program) RootLocators() []Root {
	ids := slices.Sorted(maps.Keys(p.Packages))
	roots := make([]Root, 0, len(ids))
	for _, id := range ids {
		roots = append(roots, Root{ID: id, Locator: p.Packages[id].Locator.WithBase(p.dir)})
	}
	return roots
}

// Declared returns the locator declared for the package id, resolved
// against the program directory.
func (p *Program) Declared(id string) (locator.Locator, bool) {
	entry, ok := p.Packages[id]
	if !ok {
		return locator.Locator{}, false
	}
	return entry.Locator.WithBase(p.dir), true
}
