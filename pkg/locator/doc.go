// Package locator describes where a package comes from.
//
// A [Locator] is a small value type that starts out as whatever a
// descriptor declared (a uid, a relative location, an archive URL, a
// provider reference, or an explicit "unavailable" marker) and ends up,
// after resolution, in exactly one of three terminal states:
//
//   - [Unavailable]: available is false; the package is skipped on purpose
//   - [Identified]: a uid is present and is the package identity
//   - [Located]: an absolute location on disk is present
//
// Locators are values. Every transformation ([Locator.WithBase],
// [Locator.Merge], [Locator.WithLocation]) returns a copy and never
// modifies the receiver, so a caller's locator is never changed behind
// its back.
//
// # Identity
//
// [Locator.Key] is the identity used by the package registry: the uid when
// one is present, otherwise the cleaned location.
//
//	loc := locator.ForLocation("/proj")
//	loc.Key()   // "location:/proj"
//	locator.ForUID("X").Key() // "uid:X"
package locator
