package descriptor

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/stackload/pkg/errors"
)

// decodeFile reads path and decodes it into v based on its extension.
func decodeFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "read descriptor %s", path)
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse descriptor %s", path)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(v); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidDescriptor, err, "parse descriptor %s", path)
		}
	}
	return nil
}

// encode marshals v according to the extension of path.
func encode(path string, v any) ([]byte, error) {
	if filepath.Ext(path) == ".toml" {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// firstExisting returns the first of names that exists as a file in dir.
func firstExisting(dir string, names ...string) (string, bool) {
	for _, name := range names {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}
