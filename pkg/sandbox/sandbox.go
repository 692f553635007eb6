package sandbox

import (
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stackload/pkg/errors"
	"github.com/matzehuels/stackload/pkg/locator"
)

// Sandbox is the deduplicating package registry of one assembly run.
// It is safe for concurrent use.
type Sandbox struct {
	logger *log.Logger

	mu         sync.Mutex
	program    string
	byUID      map[string]*Package
	byLocation map[string]*Package
	all        []*Package
}

// Option configures a [Sandbox].
type Option func(*Sandbox)

// WithLogger sets the logger used for registry events.
func WithLogger(l *log.Logger) Option {
	return func(s *Sandbox) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates an empty sandbox.
func New(opts ...Option) *Sandbox {
	s := &Sandbox{
		logger:     log.Default(),
		byUID:      make(map[string]*Package),
		byLocation: make(map[string]*Package),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureOptions describes who requests a package.
type EnsureOptions struct {
	Origin string // e.g. the id or alias that declared the locator
}

// EnsurePackageForLocator returns the package for a resolved locator,
// creating it when the identity is new. Concurrent calls for the same
// identity return the same *Package.
func (s *Sandbox) EnsurePackageForLocator(loc locator.Locator, opts EnsureOptions) (*Package, error) {
	switch loc.State() {
	case locator.Unavailable:
		return nil, errors.New(errors.ErrCodeInvalidLocator, "cannot register unavailable locator %s", loc)
	case locator.Unresolved:
		return nil, errors.New(errors.ErrCodeInvalidLocator, "cannot register unresolved locator %s", loc)
	}

	var where string
	if loc.Location != "" {
		loc.Location = filepath.Clean(loc.Location)
		where = loc.Location
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if loc.UID != "" {
		if p, ok := s.byUID[loc.UID]; ok {
			s.fillLocation(p, loc)
			return p, nil
		}
		if p, ok := s.byLocation[where]; ok && where != "" && p.Locator().UID == "" {
			p.adopt(loc)
			s.byUID[loc.UID] = p
			s.logger.Debug("alias package", "uid", loc.UID, "location", where)
			return p, nil
		}
	} else if p, ok := s.byLocation[where]; ok {
		return p, nil
	}

	p := newPackage(loc, opts.Origin)
	if loc.UID != "" {
		s.byUID[loc.UID] = p
	}
	if where != "" {
		if _, taken := s.byLocation[where]; !taken {
			s.byLocation[where] = p
		}
	}
	s.all = append(s.all, p)
	s.logger.Debug("register package", "id", p.ID(), "origin", opts.Origin)
	return p, nil
}

// fillLocation gives a uid-only package the location of a later locator.
// A package whose discovery already started reports the new location
// through [Package.Rescan]. Caller holds s.mu.
func (s *Sandbox) fillLocation(p *Package, loc locator.Locator) {
	if loc.Location == "" || p.Dir() != "" {
		return
	}
	p.adopt(loc)
	if _, taken := s.byLocation[loc.Location]; !taken {
		s.byLocation[loc.Location] = p
	}
}

// SetProgram binds the sandbox to the program at path. Binding the same
// program again is a no-op; binding a different one fails.
func (s *Sandbox) SetProgram(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.program {
	case "":
		s.program = path
		return nil
	case path:
		return nil
	default:
		return errors.New(errors.ErrCodeProgramConflict,
			"sandbox already bound to program %s, cannot bind %s", s.program, path)
	}
}

// Program returns the path of the bound program, or empty.
func (s *Sandbox) Program() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.program
}

// Package looks up a package by uid or location.
func (s *Sandbox) Package(id string) (*Package, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.byUID[id]; ok {
		return p, true
	}
	p, ok := s.byLocation[filepath.Clean(id)]
	return p, ok
}

// Packages returns every registered package sorted by ID.
func (s *Sandbox) Packages() []*Package {
	s.mu.Lock()
	out := make([]*Package, len(s.all))
	copy(out, s.all)
	s.mu.Unlock()

	sortByID(out)
	return out
}

// Len returns the number of distinct packages.
func (s *Sandbox) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.all)
}
