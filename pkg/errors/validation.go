package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidatePackageID validates a package id as used for the keys of a
// program descriptor's packages map.
//
// The rules are intentionally conservative:
//   - No empty ids
//   - No control characters or null bytes
//   - No backslashes
//   - Maximum length of 512 characters
func ValidatePackageID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDescriptor, "package id cannot be empty")
	}

	if len(id) > 512 {
		return New(ErrCodeInvalidDescriptor, "package id too long (max 512 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDescriptor, "package id contains invalid control characters")
		}
	}

	if strings.Contains(id, "\\") {
		return New(ErrCodeInvalidDescriptor, "package id contains invalid characters: %q", "\\")
	}

	return nil
}

// ValidateArchivePath validates the name of an entry inside an archive.
// It prevents entries from escaping the extraction directory.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No parent directory segments (..)
//   - No backslashes (Windows-style paths)
func ValidateArchivePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidArchive, "archive entry path cannot be empty")
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidArchive, "archive entry %q contains invalid characters", path)
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidArchive, "archive entry %q must be relative", path)
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidArchive, "archive entry %q cannot contain backslashes", path)
	}

	for _, seg := range strings.Split(path, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidArchive, "archive entry %q escapes the extraction directory", path)
		}
	}

	return nil
}

// ValidateArchiveURL validates an archive URL for safety.
// Only http, https and file schemes are accepted.
func ValidateArchiveURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidLocator, "archive URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") &&
		!strings.HasPrefix(rawURL, "https://") &&
		!strings.HasPrefix(rawURL, "file://") {
		return New(ErrCodeInvalidLocator, "archive URL must use http, https or file scheme: %s", rawURL)
	}

	return nil
}

// repoNameRegex matches owner/repo style names used by code-hosting providers.
var repoNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+(/[A-Za-z0-9_.-]+)+$`)

// ValidateRepoName validates an owner/repo name for a hosting provider.
func ValidateRepoName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidLocator, "provider package name cannot be empty")
	}
	if strings.Contains(name, "..") || !repoNameRegex.MatchString(name) {
		return New(ErrCodeInvalidLocator, "invalid provider package name: %q", name)
	}
	return nil
}
