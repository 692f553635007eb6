package download

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/stackload/pkg/errors"
)

type format int

const (
	formatUnknown format = iota
	formatZip
	formatTarGz
	formatTar
)

func (f format) String() string {
	switch f {
	case formatZip:
		return "zip"
	case formatTarGz:
		return "tar.gz"
	case formatTar:
		return "tar"
	default:
		return "unknown"
	}
}

// sniff detects the archive format from its leading bytes.
func sniff(path string) (format, error) {
	f, err := os.Open(path)
	if err != nil {
		return formatUnknown, err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return formatUnknown, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, []byte("PK\x03\x04")), bytes.HasPrefix(head, []byte("PK\x05\x06")):
		return formatZip, nil
	case bytes.HasPrefix(head, []byte{0x1f, 0x8b}):
		return formatTarGz, nil
	case len(head) >= 262 && string(head[257:262]) == "ustar":
		return formatTar, nil
	default:
		return formatUnknown, nil
	}
}

// entry is one archive member.
type entry struct {
	name string // cleaned slash path, no trailing slash
	dir  bool
	mode os.FileMode
	open func() (io.ReadCloser, error)
}

// Extract unpacks the archive at src into dest, which must not exist yet
// or be empty.
func Extract(src, dest string) error {
	f, err := sniff(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "read archive %s", src)
	}

	switch f {
	case formatZip:
		return extractZip(src, dest)
	case formatTarGz, formatTar:
		return extractTar(src, dest, f == formatTarGz)
	default:
		return errors.New(errors.ErrCodeInvalidArchive, "unrecognized archive format: %s", src)
	}
}

func extractZip(src, dest string) error {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open zip %s", src)
	}
	defer zr.Close()

	var entries []entry
	for _, file := range zr.File {
		name, err := entryName(file.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		entries = append(entries, entry{
			name: name,
			dir:  file.FileInfo().IsDir(),
			mode: file.Mode(),
			open: file.Open,
		})
	}
	return writeEntries(entries, dest)
}

func extractTar(src string, dest string, gzipped bool) error {
	// The first pass collects names so a shared top-level directory can
	// be detected; the second pass writes the files.
	var names []string
	err := walkTar(src, gzipped, func(hdr *tar.Header, _ io.Reader) error {
		names = append(names, hdr.Name)
		return nil
	})
	if err != nil {
		return err
	}

	prefix := commonRoot(names)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	return walkTar(src, gzipped, func(hdr *tar.Header, r io.Reader) error {
		target, ok := targetPath(dest, hdr.Name, prefix)
		if !ok {
			return nil
		}
		if hdr.Typeflag == tar.TypeDir {
			return os.MkdirAll(target, 0o755)
		}
		return writeFile(target, hdr.FileInfo().Mode(), r)
	})
}

// walkTar calls fn for every directory and regular file in the archive.
// Other entry types (links, pax headers, devices) are skipped.
func walkTar(src string, gzipped bool, fn func(*tar.Header, io.Reader) error) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if gzipped {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open gzip %s", src)
		}
		defer gz.Close()
		r = gz
	}

	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArchive, err, "read tar %s", src)
		}
		if hdr.Typeflag != tar.TypeDir && hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := entryName(hdr.Name)
		if err != nil {
			return err
		}
		if name == "" {
			continue
		}
		hdr.Name = name
		if err := fn(hdr, tr); err != nil {
			return err
		}
	}
}

func writeEntries(entries []entry, dest string) error {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.name
	}
	prefix := commonRoot(names)

	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	for _, e := range entries {
		target, ok := targetPath(dest, e.name, prefix)
		if !ok {
			continue
		}
		if e.dir {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		rc, err := e.open()
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidArchive, err, "open entry %s", e.name)
		}
		err = writeFile(target, e.mode, rc)
		rc.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

// entryName validates and normalizes an archive member name.
func entryName(raw string) (string, error) {
	name := strings.TrimPrefix(raw, "./")
	name = strings.TrimSuffix(name, "/")
	if name == "" || name == "." {
		return "", nil
	}
	if err := errors.ValidateArchivePath(name); err != nil {
		return "", err
	}
	return name, nil
}

// commonRoot returns the single top-level directory shared by every name,
// or empty when there is none.
func commonRoot(names []string) string {
	var root string
	nested := false
	for _, name := range names {
		first, rest, found := strings.Cut(name, "/")
		if root == "" {
			root = first
		} else if first != root {
			return ""
		}
		if found && rest != "" {
			nested = true
		}
	}
	if !nested {
		return ""
	}
	return root
}

// targetPath maps an entry to its destination. ok is false for the
// stripped root directory itself.
func targetPath(dest, name, prefix string) (string, bool) {
	if prefix != "" {
		if name == prefix {
			return "", false
		}
		name = strings.TrimPrefix(name, prefix+"/")
	}
	return filepath.Join(dest, filepath.FromSlash(name)), true
}

func writeFile(target string, mode os.FileMode, r io.Reader) (err error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm|0o200)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write %s: %w", target, err)
	}
	return nil
}
