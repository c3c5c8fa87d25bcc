// Package archive reads image members out of an uploaded zip bundle.
package archive

import (
	"archive/zip"
	"bytes"
	"io"
	"path"
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// DefaultMaxEntryBytes bounds how much of a single member is materialized.
const DefaultMaxEntryBytes = 25 << 20

// Extractor gives row conversion access to named archive members.
// Names are matched exactly and case-sensitively.
type Extractor interface {
	HasEntry(name string) bool
	ReadEntry(name string) ([]byte, error)
}

// ZipArchive is an Extractor over an in-memory zip file. It is safe for
// concurrent readers.
type ZipArchive struct {
	entries  map[string]*zip.File
	order    []string
	maxEntry int64
}

// Option configures a ZipArchive.
type Option func(*ZipArchive)

// WithMaxEntryBytes overrides DefaultMaxEntryBytes. Values <= 0 keep the default.
func WithMaxEntryBytes(n int64) Option {
	return func(z *ZipArchive) {
		if n > 0 {
			z.maxEntry = n
		}
	}
}

// OpenZip indexes the members of a zip file held in data.
func OpenZip(data []byte, opts ...Option) (*ZipArchive, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "failed to open zip archive"),
			"upload a valid .zip file containing the spreadsheet and its images")
	}

	z := &ZipArchive{
		entries:  make(map[string]*zip.File, len(reader.File)),
		maxEntry: DefaultMaxEntryBytes,
	}
	for _, opt := range opts {
		opt(z)
	}
	for _, f := range reader.File {
		if f.FileInfo().IsDir() || isMetadataEntry(f.Name) {
			continue
		}
		z.entries[f.Name] = f
		z.order = append(z.order, f.Name)
	}
	return z, nil
}

// HasEntry reports whether name is a member of the archive.
func (z *ZipArchive) HasEntry(name string) bool {
	_, ok := z.entries[name]
	return ok
}

// ReadEntry returns the uncompressed bytes of member name. A missing member
// yields ErrEntryMissing; any other error means the member exists but could
// not be read.
func (z *ZipArchive) ReadEntry(name string) ([]byte, error) {
	f, ok := z.entries[name]
	if !ok {
		return nil, errors.Wrapf(errors.ErrEntryMissing, "%s", name)
	}
	if f.UncompressedSize64 > uint64(z.maxEntry) {
		return nil, errors.Newf("entry %s is %d bytes, limit is %d", name, f.UncompressedSize64, z.maxEntry)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open entry %s", name)
	}
	defer rc.Close()

	// Read one byte past the limit so a lying header cannot bypass the guard
	data, err := io.ReadAll(io.LimitReader(rc, z.maxEntry+1))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read entry %s", name)
	}
	if int64(len(data)) > z.maxEntry {
		return nil, errors.Newf("entry %s exceeds limit of %d bytes", name, z.maxEntry)
	}
	return data, nil
}

// Names lists archive members in archive order.
func (z *ZipArchive) Names() []string {
	out := make([]string, len(z.order))
	copy(out, z.order)
	return out
}

// FindSpreadsheet returns the name of the first .csv member, for uploads
// that bundle the spreadsheet inside the archive.
func (z *ZipArchive) FindSpreadsheet() (string, bool) {
	for _, name := range z.order {
		if strings.EqualFold(path.Ext(name), ".csv") {
			return name, true
		}
	}
	return "", false
}

// isMetadataEntry filters resource-fork and hidden files written by macOS
// archivers.
func isMetadataEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}
