// Package sandbox is the package registry for one assembly run.
//
// A [Sandbox] maps package identities to [Package] instances and never
// creates two packages for the same identity. Identity is the locator's
// uid when present, otherwise its cleaned filesystem location. A locator
// carrying both a uid and a location that matches a package registered
// without a uid adopts that package: the uid becomes an alias for it.
//
// Each package moves through a discovery state machine:
//
//	idle -> discovering -> discovered
//
// [Package.BeginDiscovery] is the re-entrancy guard: exactly one caller
// wins the idle -> discovering transition and reads the package's
// mappings; everyone else gets the same in-flight package back.
//
// A sandbox is bound to exactly one program (see [Sandbox.SetProgram]).
// Create a fresh sandbox for every assembly.
package sandbox
