package program

import (
	"context"
	"maps"
	"os"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackload/pkg/descriptor"
	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// DefaultWorkers is the traversal concurrency when Options.Workers is unset.
const DefaultWorkers = 20

// Fetcher materializes remote locators (archives and provider references)
// on the local filesystem and returns the resulting directory.
//
// FetchLocator must be safe for concurrent use.
type Fetcher interface {
	FetchLocator(ctx context.Context, loc locator.Locator) (string, error)
}

// PackageForLocator turns a raw locator into a registered package.
// Returning a nil package with a nil error skips the locator.
type PackageForLocator func(ctx context.Context, loc locator.Locator) (*sandbox.Package, error)

// Options configures a [Program].
type Options struct {
	Workers int         // Traversal concurrency (default: DefaultWorkers)
	Logger  *log.Logger // Debug logging (default: log.Default())
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Program is the root unit of an assembly.
type Program struct {
	desc *descriptor.Program
	opts Options

	mu       sync.RWMutex
	packages map[string]*sandbox.Package // declared id -> package
}

// New creates a program for a parsed descriptor.
func New(desc *descriptor.Program, opts Options) *Program {
	return &Program{
		desc:     desc,
		opts:     opts.withDefaults(),
		packages: make(map[string]*sandbox.Package),
	}
}

// Descriptor returns the program descriptor.
func (p *Program) Descriptor() *descriptor.Program { return p.desc }

// Path returns the path the program was loaded from.
func (p *Program) Path() string { return p.desc.Path() }

// Package returns the package registered for a declared id.
func (p *Program) Package(id string) (*sandbox.Package, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pkg, ok := p.packages[id]
	return pkg, ok
}

// Boot returns the boot package, or nil when the program declares none or
// it was skipped.
func (p *Program) Boot() *sandbox.Package {
	pkg, _ := p.Package(p.desc.Boot)
	return pkg
}

// Packages returns the declared packages keyed by id.
func (p *Program) Packages() map[string]*sandbox.Package {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.packages)
}

func (p *Program) setPackage(id string, pkg *sandbox.Package) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.packages[id] = pkg
}

// ResolveLocator returns a resolved copy of loc. The argument is never
// modified.
//
// Resolution order:
//   - available=false: returned as is
//   - uid: returned as is, with empty fields filled from the package the
//     program declares under that id (no filesystem or fetch access)
//   - location: must exist on disk
//   - archive or provider: fetched through f, location set to the result
//
// A locator with none of these fails with INVALID_DESCRIPTOR.
func (p *Program) ResolveLocator(ctx context.Context, f Fetcher, loc locator.Locator) (locator.Locator, error) {
	switch {
	case loc.IsUnavailable():
		return loc, nil

	case loc.UID != "":
		if declared, ok := p.desc.Declared(loc.UID); ok {
			return loc.Merge(declared), nil
		}
		return loc, nil

	case loc.Location != "":
		if _, err := os.Stat(loc.Location); err != nil {
			return loc, errors.Wrap(errors.ErrCodeInvalidDescriptor,
				errors.Wrap(errors.ErrCodeLocationNotFound, err, "location %s does not exist", loc.Location),
				"resolve locator %s", loc)
		}
		return loc, nil

	case loc.IsRemote():
		if f == nil {
			return loc, errors.New(errors.ErrCodeInternal, "no fetcher for remote locator %s", loc)
		}
		dir, err := f.FetchLocator(ctx, loc)
		if err != nil {
			return loc, errors.Wrap(errors.ErrCodeFetch, err, "fetch %s", loc.Short())
		}
		return loc.WithLocation(dir), nil

	default:
		return loc, errors.New(errors.ErrCodeInvalidDescriptor, "no usable identity in locator %s", loc)
	}
}

// DiscoverPackages runs the traversal from every declared package of the
// program and records the package each declared id resolves to.
func (p *Program) DiscoverPackages(ctx context.Context, fn PackageForLocator) error {
	e := newEngine(ctx, p, fn)
	for _, root := range p.desc.RootLocators() {
		e.seeds = append(e.seeds, job{loc: root.Locator, rootID: root.ID})
	}
	return e.run()
}

// DiscoverFrom runs the traversal rooted at a single package. It returns
// immediately when another caller already claimed the package, unless the
// package has since gained a location whose mappings nobody read.
func (p *Program) DiscoverFrom(ctx context.Context, pkg *sandbox.Package, fn PackageForLocator) error {
	claimed := pkg.BeginDiscovery()
	if !claimed && !pkg.Rescan() {
		p.opts.Logger.Debug("skip claimed package", "id", pkg.ID())
		return nil
	}
	e := newEngine(ctx, p, fn)
	if claimed {
		e.claimed = append(e.claimed, pkg)
	}
	e.seeds = append(e.seeds, job{discover: pkg})
	return e.run()
}
