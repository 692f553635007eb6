package assembler

import (
	"github.com/matzehuels/stackload/pkg/program"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// Summary is the serializable result of an assembly.
type Summary struct {
	Program  string           `json:"program"`
	Implicit bool             `json:"implicit,omitempty"` // no program descriptor on disk
	Boot     string           `json:"boot,omitempty"`
	Packages []PackageSummary `json:"packages"`
}

// PackageSummary describes one sandbox package.
type PackageSummary struct {
	ID           string   `json:"id"`
	UID          string   `json:"uid,omitempty"`
	Location     string   `json:"location,omitempty"`
	Name         string   `json:"name,omitempty"`
	Version      string   `json:"version,omitempty"`
	Origin       string   `json:"origin,omitempty"`
	Discovered   bool     `json:"discovered"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Summarize reports every package registered in sb, sorted by id.
func Summarize(prog *program.Program, sb *sandbox.Sandbox) Summary {
	s := Summary{Program: prog.Path(), Implicit: prog.Descriptor().Implicit()}
	if boot := prog.Boot(); boot != nil {
		s.Boot = boot.ID()
	}
	for _, p := range sb.Packages() {
		loc := p.Locator()
		ps := PackageSummary{
			ID:         p.ID(),
			UID:        loc.UID,
			Location:   loc.Location,
			Origin:     p.Origin(),
			Discovered: p.Discovered(),
		}
		if d := p.Descriptor(); d != nil {
			ps.Name, ps.Version = d.Name, d.Version
		}
		for _, dep := range p.Dependencies() {
			ps.Dependencies = append(ps.Dependencies, dep.ID())
		}
		s.Packages = append(s.Packages, ps)
	}
	return s
}
