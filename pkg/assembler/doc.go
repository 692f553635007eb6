// Package assembler builds complete programs from program descriptors.
//
// [Assembler.AssembleProgram] loads a program descriptor, binds it to a
// sandbox and discovers every package reachable from it, downloading
// remote archives on the way. The result is all or nothing: either every
// reachable package is registered and discovered, or the first failure is
// returned.
//
// [Assembler.AddPackageToProgram] extends an assembled program with one
// more package, and [Assembler.ProvisionProgramForURL] turns an arbitrary
// archive URL into a program descriptor on disk, synthesizing one when
// the archive ships without it.
//
// # Locator Classification
//
// Every locator met during discovery is resolved and then classified:
//
//   - available=false: skipped, no package
//   - uid present: registered under the uid
//   - location present and on disk: registered under the location
//   - anything else: INVALID_DESCRIPTOR, aborting the assembly
package assembler
