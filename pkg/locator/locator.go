package locator

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// State classifies a locator by the information it carries.
type State int

const (
	// Unresolved means the locator carries no usable identity yet.
	Unresolved State = iota
	// Unavailable means the locator was explicitly marked available=false.
	Unavailable
	// Identified means the locator carries a uid.
	Identified
	// Located means the locator carries a filesystem location.
	Located
)

// String returns the state name used in logs and metrics labels.
func (s State) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case Identified:
		return "identified"
	case Located:
		return "located"
	default:
		return "unresolved"
	}
}

// Locator describes the source of a package.
type Locator struct {
	UID       string `json:"uid,omitempty" toml:"uid,omitempty"`             // Stable identity key
	Location  string `json:"location,omitempty" toml:"location,omitempty"`   // Filesystem path
	Archive   string `json:"archive,omitempty" toml:"archive,omitempty"`     // Remote archive URL
	Provider  string `json:"provider,omitempty" toml:"provider,omitempty"`   // External content provider
	Name      string `json:"name,omitempty" toml:"name,omitempty"`           // Provider-side package name
	Revision  string `json:"revision,omitempty" toml:"revision,omitempty"`   // Provider-side revision
	Available *bool  `json:"available,omitempty" toml:"available,omitempty"` // false: skip on purpose
}

// ForUID returns a locator identified by uid.
func ForUID(uid string) Locator { return Locator{UID: uid} }

// ForLocation returns a locator pointing at a filesystem path.
func ForLocation(path string) Locator { return Locator{Location: path} }

// ForArchive returns a locator pointing at a remote archive.
func ForArchive(url string) Locator { return Locator{Archive: url} }

// Skipped returns a locator marked as intentionally unavailable.
func Skipped() Locator {
	f := false
	return Locator{Available: &f}
}

// IsUnavailable reports whether the locator is explicitly marked available=false.
func (l Locator) IsUnavailable() bool {
	return l.Available != nil && !*l.Available
}

// IsRemote reports whether the locator refers to content that must be fetched.
func (l Locator) IsRemote() bool {
	return l.Archive != "" || l.Provider != ""
}

// IsZero reports whether the locator carries no information at all.
func (l Locator) IsZero() bool {
	return l == Locator{}
}

// State classifies the locator. Precedence follows resolution order:
// unavailable, then identified, then located.
func (l Locator) State() State {
	switch {
	case l.IsUnavailable():
		return Unavailable
	case l.UID != "":
		return Identified
	case l.Location != "":
		return Located
	default:
		return Unresolved
	}
}

// Key returns the registry identity of the locator: "uid:<uid>" when a
// uid is present, otherwise "location:<clean path>". Locators with
// neither return an empty key.
func (l Locator) Key() string {
	switch {
	case l.UID != "":
		return "uid:" + l.UID
	case l.Location != "":
		return "location:" + filepath.Clean(l.Location)
	default:
		return ""
	}
}

// RawKey returns a key covering every field, used to recognize the same
// declared locator before it is resolved.
func (l Locator) RawKey() string {
	return l.String()
}

// WithBase returns a copy whose relative location is joined onto dir.
// Absolute locations and locators without a location are returned as is.
func (l Locator) WithBase(dir string) Locator {
	if l.Location == "" || filepath.IsAbs(l.Location) || dir == "" {
		return l
	}
	l.Location = filepath.Join(dir, l.Location)
	return l
}

// WithLocation returns a copy with location set to path.
func (l Locator) WithLocation(path string) Locator {
	l.Location = path
	return l
}

// Merge returns a copy with every empty field filled from other.
func (l Locator) Merge(other Locator) Locator {
	if l.UID == "" {
		l.UID = other.UID
	}
	if l.Location == "" {
		l.Location = other.Location
	}
	if l.Archive == "" {
		l.Archive = other.Archive
	}
	if l.Provider == "" {
		l.Provider = other.Provider
	}
	if l.Name == "" {
		l.Name = other.Name
	}
	if l.Revision == "" {
		l.Revision = other.Revision
	}
	if l.Available == nil && other.Available != nil {
		v := *other.Available
		l.Available = &v
	}
	return l
}

// String renders the locator as compact JSON with a stable field order.
func (l Locator) String() string {
	data, err := json.Marshal(l)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// Short returns the most descriptive single field for log lines.
func (l Locator) Short() string {
	switch {
	case l.IsUnavailable():
		return "(unavailable)"
	case l.UID != "":
		return l.UID
	case l.Location != "":
		return l.Location
	case l.Archive != "":
		return l.Archive
	case l.Provider != "":
		return strings.TrimSuffix(l.Provider+":"+l.Name+"@"+l.Revision, "@")
	default:
		return "(empty)"
	}
}
