// Package program models an assembled program and drives package discovery.
//
// A [Program] wraps a parsed program descriptor. [Program.DiscoverPackages]
// is a fixpoint traversal: it resolves every root locator, registers the
// resulting packages through a caller-supplied [PackageForLocator]
// callback, reads each new package's mappings and feeds the mapping
// locators back into the same callback until no new locators appear.
//
// The traversal runs on a bounded worker pool. A single collector
// goroutine owns the pending-work counter and the visited set, so the
// call returns exactly once, after every branch has completed. Cycles
// terminate because a package's mappings are read only by the caller
// that wins its discovery claim (see sandbox.Package.BeginDiscovery).
//
// Any error aborts the whole traversal; there is no partial result.
package program
