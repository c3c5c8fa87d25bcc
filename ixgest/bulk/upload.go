package bulk

import (
	"bytes"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/archive"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
)

// Upload is a batch as received from an uploader. Spreadsheet may be empty
// when Archive is a zip carrying the spreadsheet itself.
type Upload struct {
	Spreadsheet []byte
	Archive     []byte
	Mapping     map[string]string
}

// zipMagic starts every non-empty zip file.
var zipMagic = []byte("PK\x03\x04")

// IsZip reports whether data looks like a zip archive.
func IsZip(data []byte) bool {
	return bytes.HasPrefix(data, zipMagic)
}

// ValidateUpload decodes the spreadsheet, opens the archive if one was
// given, and validates every row. Errors describe an unusable upload;
// row-level problems are in the report.
func (v *Validator) ValidateUpload(up Upload) (*Report, error) {
	var ar *archive.ZipArchive
	if len(up.Archive) > 0 {
		var err error
		ar, err = archive.OpenZip(up.Archive, archive.WithMaxEntryBytes(v.maxEntryBytes))
		if err != nil {
			return nil, errors.WithHint(
				errors.Wrap(errors.WithSecondaryError(errors.ErrInvalidRequest, err), "unreadable archive"),
				"images must be uploaded as a .zip archive")
		}
	}

	raw := up.Spreadsheet
	if len(raw) == 0 {
		if ar == nil {
			return nil, errors.NewInvalidRequestError("upload contains no spreadsheet")
		}
		name, ok := ar.FindSpreadsheet()
		if !ok {
			return nil, errors.WithHint(
				errors.NewInvalidRequestError("archive contains no .csv spreadsheet"),
				"include the spreadsheet in the .zip or upload it separately")
		}
		data, err := ar.ReadEntry(name)
		if err != nil {
			return nil, errors.Wrapf(errors.WithSecondaryError(errors.ErrInvalidRequest, err), "read spreadsheet %s", name)
		}
		raw = data
		v.logger.Debugw("Using spreadsheet from archive", "entry", name)
	}

	rows := tabular.DecodeWith(string(raw), v.delimiter)
	if ar == nil {
		return v.Validate(rows, up.Mapping, nil), nil
	}
	return v.Validate(rows, up.Mapping, ar), nil
}
