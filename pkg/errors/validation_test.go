package errors

import (
	"strings"
	"testing"
)

func TestValidatePackageID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "app", false},
		{"path like", "github.com/owner/repo/archive/main.zip/", false},
		{"dotted", "my.package", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"null byte", "foo\x00bar", true},
		{"backslash", "foo\\bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePackageID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePackageID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateArchivePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"file", "package.json", false},
		{"nested", "repo-main/lib/index.js", false},
		{"dotted name", "repo/..hidden", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"parent", "../evil", true},
		{"nested parent", "repo/../../evil", true},
		{"backslash", "repo\\evil", true},
		{"control", "repo\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchivePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArchivePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidArchive) {
				t.Errorf("ValidateArchivePath(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidArchive)
			}
		})
	}
}

func TestValidateArchiveURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://github.com/o/r/archive/main.zip", false},
		{"http", "http://localhost:8080/a.tar.gz", false},
		{"file", "file:///tmp/a.zip", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com/a.zip", true},
		{"bare path", "/tmp/a.zip", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArchiveURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateArchiveURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRepoName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"owner repo", "pinf/loader", false},
		{"group subgroup", "group/sub/project", false},

		{"empty", "", true},
		{"single", "loader", true},
		{"traversal", "owner/../repo", true},
		{"spaces", "owner/my repo", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRepoName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
