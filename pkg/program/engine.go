package program

import (
	"context"
	"fmt"
	"sync"

	"github.com/matzehuels/stackload/pkg/locator"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// job is either a locator to resolve or a package whose mappings to read.
type job struct {
	loc    locator.Locator
	rootID string // declared id, for root locators

	discover *sandbox.Package
}

type result struct {
	job
	pkg      *sandbox.Package  // resolved package (resolve jobs)
	mappings []locator.Locator // mapping locators (discover jobs)
	err      error
}

// waiter is someone interested in the package a raw locator resolves to.
type waiter struct {
	parent *sandbox.Package
	rootID string
}

// entry tracks one raw locator through resolution.
type entry struct {
	done    bool
	pkg     *sandbox.Package
	waiters []waiter
}

// engine is one traversal. Everything below the channels is owned by the
// collector goroutine.
type engine struct {
	ctx  context.Context
	prog *Program
	fn   PackageForLocator

	jobs    chan job
	results chan result
	wg      sync.WaitGroup

	seeds   []job
	pending int
	visited map[string]*entry
	claimed []*sandbox.Package
}

func newEngine(ctx context.Context, prog *Program, fn PackageForLocator) *engine {
	w := prog.opts.Workers
	return &engine{
		ctx:     ctx,
		prog:    prog,
		fn:      fn,
		jobs:    make(chan job, w*2),
		results: make(chan result, w*2),
		visited: make(map[string]*entry),
	}
}

// run starts the workers, drains the traversal and settles every claimed
// package: discovered on success, back to idle on failure.
func (e *engine) run() error {
	ctx, cancel := context.WithCancel(e.ctx)
	e.ctx = ctx

	for range e.prog.opts.Workers {
		e.wg.Add(1)
		go e.worker()
	}

	for _, j := range e.seeds {
		if j.discover != nil {
			e.enqueue(j)
			continue
		}
		e.request(j.loc, waiter{rootID: j.rootID})
	}

	err := e.collect()
	cancel()
	e.wg.Wait()

	for _, pkg := range e.claimed {
		pkg.FinishDiscovery(err == nil)
	}
	return err
}

func (e *engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case j := <-e.jobs:
			r := e.do(j)
			select {
			case e.results <- r:
			case <-e.ctx.Done():
				return
			}
		}
	}
}

func (e *engine) do(j job) result {
	r := result{job: j}
	if j.discover != nil {
		r.mappings, r.err = j.discover.DiscoverMappings()
		if r.err != nil {
			r.err = fmt.Errorf("discover mappings of %s: %w", j.discover.ID(), r.err)
		}
		return r
	}
	r.pkg, r.err = e.fn(e.ctx, j.loc)
	return r
}

// enqueue hands a job to the workers without blocking the collector.
func (e *engine) enqueue(j job) {
	e.pending++
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		select {
		case e.jobs <- j:
		case <-e.ctx.Done():
		}
	}()
}

// request registers interest in the package loc resolves to. Each raw
// locator is resolved once; later requesters are linked when it settles.
func (e *engine) request(loc locator.Locator, w waiter) {
	key := loc.RawKey()
	ent, ok := e.visited[key]
	if !ok {
		e.visited[key] = &entry{waiters: []waiter{w}}
		e.enqueue(job{loc: loc})
		return
	}
	if ent.done {
		e.settle(ent.pkg, w)
		return
	}
	ent.waiters = append(ent.waiters, w)
}

func (e *engine) settle(pkg *sandbox.Package, w waiter) {
	if pkg == nil {
		return
	}
	if w.parent != nil {
		w.parent.AddDependency(pkg)
	}
	if w.rootID != "" {
		e.prog.setPackage(w.rootID, pkg)
	}
}

func (e *engine) collect() error {
	if e.pending == 0 {
		return nil
	}
	for {
		select {
		case r := <-e.results:
			if err := e.handle(r); err != nil {
				return err
			}
			e.pending--
			if e.pending == 0 {
				return nil
			}
		case <-e.ctx.Done():
			return e.ctx.Err()
		}
	}
}

func (e *engine) handle(r result) error {
	if r.err != nil {
		return r.err
	}

	if r.discover != nil {
		for _, loc := range r.mappings {
			e.request(loc, waiter{parent: r.discover})
		}
		return nil
	}

	ent := e.visited[r.loc.RawKey()]
	ent.done, ent.pkg = true, r.pkg
	for _, w := range ent.waiters {
		e.settle(r.pkg, w)
	}
	ent.waiters = nil

	if r.pkg == nil {
		e.prog.opts.Logger.Debug("skip locator", "locator", r.loc.Short())
		return nil
	}
	switch {
	case r.pkg.BeginDiscovery():
		e.claimed = append(e.claimed, r.pkg)
		e.enqueue(job{discover: r.pkg})
		e.prog.opts.Logger.Debug("discover package", "id", r.pkg.ID())
	case r.pkg.Rescan():
		e.enqueue(job{discover: r.pkg})
		e.prog.opts.Logger.Debug("rescan package", "id", r.pkg.ID(), "location", r.pkg.Dir())
	}
	return nil
}
