package locator

import (
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestState(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want State
	}{
		{"empty", Locator{}, Unresolved},
		{"archive only", ForArchive("https://example.com/a.zip"), Unresolved},
		{"unavailable", Skipped(), Unavailable},
		{"unavailable wins over uid", Locator{UID: "X", Available: Skipped().Available}, Unavailable},
		{"uid", ForUID("X"), Identified},
		{"uid wins over location", Locator{UID: "X", Location: "/proj"}, Identified},
		{"location", ForLocation("/proj"), Located},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAvailableTrueIsNotUnavailable(t *testing.T) {
	yes := true
	loc := Locator{Location: "/proj", Available: &yes}
	if loc.IsUnavailable() {
		t.Error("available=true should not be unavailable")
	}
	if loc.State() != Located {
		t.Errorf("State() = %v, want located", loc.State())
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		loc  Locator
		want string
	}{
		{"uid", ForUID("X"), "uid:X"},
		{"uid and location", Locator{UID: "X", Location: "/a"}, "uid:X"},
		{"location cleaned", ForLocation("/proj/lib/../"), "location:/proj"},
		{"nothing", ForArchive("https://example.com/a.zip"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Key(); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithBaseDoesNotMutate(t *testing.T) {
	orig := ForLocation("./lib")
	got := orig.WithBase("/proj")

	if got.Location != filepath.Join("/proj", "lib") {
		t.Errorf("WithBase().Location = %q, want /proj/lib", got.Location)
	}
	if orig.Location != "./lib" {
		t.Errorf("receiver modified: %q", orig.Location)
	}

	abs := ForLocation("/abs").WithBase("/proj")
	if abs.Location != "/abs" {
		t.Errorf("absolute location rebased: %q", abs.Location)
	}
}

func TestMerge(t *testing.T) {
	loc := ForUID("X").Merge(Locator{UID: "Y", Location: "/proj", Archive: "https://e/a.zip"})

	if loc.UID != "X" {
		t.Errorf("UID = %q, want X (receiver wins)", loc.UID)
	}
	if loc.Location != "/proj" {
		t.Errorf("Location = %q, want /proj", loc.Location)
	}
	if loc.Archive != "https://e/a.zip" {
		t.Errorf("Archive = %q, want filled", loc.Archive)
	}

	merged := ForUID("X").Merge(Skipped())
	if !merged.IsUnavailable() {
		t.Error("availability not merged")
	}
}

func TestJSONRoundTripKeepsAvailable(t *testing.T) {
	var loc Locator
	if err := json.Unmarshal([]byte(`{"uid":"X","available":false}`), &loc); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if !loc.IsUnavailable() {
		t.Error("available:false lost in decoding")
	}
	if got := loc.String(); got != `{"uid":"X","available":false}` {
		t.Errorf("String() = %s", got)
	}
}

func TestShort(t *testing.T) {
	tests := []struct {
		loc  Locator
		want string
	}{
		{Skipped(), "(unavailable)"},
		{ForUID("X"), "X"},
		{ForLocation("/proj"), "/proj"},
		{ForArchive("https://e/a.zip"), "https://e/a.zip"},
		{Locator{Provider: "github", Name: "o/r"}, "github:o/r"},
		{Locator{Provider: "github", Name: "o/r", Revision: "v1"}, "github:o/r@v1"},
		{Locator{}, "(empty)"},
	}

	for _, tt := range tests {
		if got := tt.loc.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}
