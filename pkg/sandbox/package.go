package sandbox

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/matzehuels/stackload/pkg/descriptor"
	"github.com/matzehuels/stackload/pkg/locator"
)

// Discovery states.
const (
	stateIdle int32 = iota
	stateDiscovering
	stateDiscovered
)

// Package is a uniquely identified unit of code registered in a [Sandbox].
type Package struct {
	state atomic.Int32

	mu      sync.RWMutex
	loc     locator.Locator
	origin  string
	desc    *descriptor.Package
	scanned string          // location the last mapping pass was scheduled for
	yielded map[string]bool // raw keys of mapping locators already handed out
	deps    map[*Package]struct{}
}

func newPackage(loc locator.Locator, origin string) *Package {
	return &Package{
		loc:     loc,
		origin:  origin,
		yielded: make(map[string]bool),
		deps:    make(map[*Package]struct{}),
	}
}

// ID returns the package identity: its uid if present, otherwise its location.
func (p *Package) ID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.loc.UID != "" {
		return p.loc.UID
	}
	return p.loc.Location
}

// Locator returns a copy of the resolved locator the package was created from.
func (p *Package) Locator() locator.Locator {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loc
}

// Dir returns the package's filesystem location, or empty for packages
// known only by uid.
func (p *Package) Dir() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.loc.Location
}

// Origin returns who requested the package first, if recorded.
func (p *Package) Origin() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.origin
}

// Descriptor returns the package descriptor read during discovery, or nil.
func (p *Package) Descriptor() *descriptor.Package {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.desc
}

// Discovering reports whether mapping discovery is in flight.
func (p *Package) Discovering() bool { return p.state.Load() == stateDiscovering }

// Discovered reports whether mapping discovery completed.
func (p *Package) Discovered() bool { return p.state.Load() == stateDiscovered }

// BeginDiscovery moves the package from idle to discovering. It returns
// false when discovery is already in flight or done.
func (p *Package) BeginDiscovery() bool {
	if !p.state.CompareAndSwap(stateIdle, stateDiscovering) {
		return false
	}
	p.mu.Lock()
	p.scanned = p.loc.Location
	p.mu.Unlock()
	return true
}

// Rescan reports whether the package gained a location after its
// discovery was claimed, which leaves the mappings at that location
// unread. It returns true at most once per location.
func (p *Package) Rescan() bool {
	if p.state.Load() == stateIdle {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loc.Location == "" || p.loc.Location == p.scanned {
		return false
	}
	p.scanned = p.loc.Location
	return true
}

// FinishDiscovery ends an in-flight discovery. ok marks the package
// discovered; otherwise it returns to idle so a later run can retry.
func (p *Package) FinishDiscovery(ok bool) {
	if ok {
		p.state.CompareAndSwap(stateDiscovering, stateDiscovered)
		return
	}
	p.state.CompareAndSwap(stateDiscovering, stateIdle)
}

// DiscoverMappings reads the package descriptor and returns the mapping
// locators not yet handed out by an earlier call, in alias order.
// Packages without a location have no mappings.
//
// Only the caller that won [Package.BeginDiscovery], or a later
// [Package.Rescan], may call it.
func (p *Package) DiscoverMappings() ([]locator.Locator, error) {
	dir := p.Dir()
	if dir == "" {
		return nil, nil
	}

	desc, err := descriptor.LoadPackage(dir)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.desc = desc

	var out []locator.Locator
	for _, m := range desc.MappingLocators(dir) {
		key := m.Locator.RawKey()
		if p.yielded[key] {
			continue
		}
		p.yielded[key] = true
		out = append(out, m.Locator)
	}
	return out, nil
}

// AddDependency records that a mapping of p resolved to child.
func (p *Package) AddDependency(child *Package) {
	if child == nil || child == p {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps[child] = struct{}{}
}

// Dependencies returns the packages p's mappings resolved to, sorted by ID.
func (p *Package) Dependencies() []*Package {
	p.mu.RLock()
	out := make([]*Package, 0, len(p.deps))
	for d := range p.deps {
		out = append(out, d)
	}
	p.mu.RUnlock()

	sortByID(out)
	return out
}

// adopt merges an alias locator into a package registered without a uid.
func (p *Package) adopt(loc locator.Locator) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loc = p.loc.Merge(loc)
}

func sortByID(pkgs []*Package) {
	slices.SortFunc(pkgs, func(a, b *Package) int {
		return strings.Compare(a.ID(), b.ID())
	})
}
