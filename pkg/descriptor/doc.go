// Package descriptor reads and writes program and package descriptors.
//
// A program descriptor (program.json or program.toml) names the boot
// package and declares the packages that make up the program:
//
//	{
//	  "boot": "app/",
//	  "packages": {
//	    "app/": { "locator": { "location": "./" } }
//	  }
//	}
//
// A package descriptor (package.json or package.toml) declares the
// package's mappings, each of which is a locator for another package:
//
//	{
//	  "uid": "http://example.com/app",
//	  "mappings": {
//	    "util": { "location": "../util" },
//	    "lib":  { "archive": "https://github.com/owner/lib/archive/main.zip" },
//	    "opt":  { "uid": "optional", "available": false }
//	  }
//	}
//
// Relative locations are resolved against the directory of the
// descriptor that declares them. The descriptor format is chosen by file
// extension: JSON via encoding/json, TOML via [github.com/BurntSushi/toml].
package descriptor
