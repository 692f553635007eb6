// Package pkg provides the core libraries for stackload program assembly.
//
// # Overview
//
// A program is a set of packages described by descriptors on disk. The
// program descriptor names a boot package and declares packages by id;
// each package descriptor maps aliases to locators of further packages.
// Assembly follows these mappings to a fixpoint, fetching remote archives
// as it goes, and records every distinct package exactly once.
//
// # Architecture
//
//	program.json / program.toml / package directory
//	         ↓
//	    [descriptor] (decode and validate descriptors)
//	         ↓
//	    [assembler] (classify locators, drive discovery)
//	         ↓                         ↘
//	    [program] (fixpoint engine)     [download] + [provider] (fetch archives)
//	         ↓
//	    [sandbox] (deduplicated package registry)
//	         ↓
//	    [render] (DOT / SVG of the package graph)
//
// # Quick Start
//
//	d, _ := download.New(cacheDir, download.Options{})
//	a := assembler.New(d, assembler.Options{})
//
//	sb := sandbox.New()
//	prog, err := a.AssembleProgram(ctx, sb, "./app", assembler.AssembleOptions{})
//	if err != nil {
//	    return err
//	}
//	for _, p := range sb.Packages() {
//	    fmt.Println(p.ID(), p.Dir())
//	}
//
// # Main Packages
//
// ## Domain
//
// [locator] - Where a package comes from: uid, filesystem location, remote
// archive or provider, or explicitly unavailable.
//
// [descriptor] - Program and package descriptors in JSON or TOML.
//
// [sandbox] - The registry of packages for one program, indexed by uid and
// location under one lock.
//
// [program] - Locator resolution and the concurrent discovery engine.
//
// [assembler] - Full assembly, adding packages to an assembled program,
// and provisioning programs from archive URLs.
//
// ## Infrastructure
//
// [download] - Archive fetching and unpacking (zip, tar, tar.gz) with a
// freshness index and ETag revalidation.
//
// [provider] - Code hosts (GitHub, GitLab) that turn provider locators into
// archive URLs.
//
// [cache] - Key-value backends (file, Redis, null) used as the download
// index.
//
// [httputil] - Retry with backoff for transient HTTP failures.
//
// [errors] - Coded errors shared by all packages.
//
// [observability] - Hooks for metrics and tracing.
//
// [render] - Graphviz output of an assembled program.
//
// # Testing
//
//	go test ./...                        # All tests
//	go test ./pkg/program/...            # Specific package
//	go test -tags integration ./pkg/...  # Include network tests
package pkg
