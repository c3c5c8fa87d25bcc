package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/bulk"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/tabular"
)

// Multipart form fields accepted by the bulk endpoints
const (
	formSpreadsheet = "spreadsheet" // .csv, or a .zip carrying the .csv and images
	formArchive     = "archive"     // .zip of images referenced by the spreadsheet
	formMapping     = "mapping"     // YAML or JSON object: header -> canonical field

	multipartMemory = 8 << 20
)

// errUploadTooLarge marks a request body over server.max_upload_mb
var errUploadTooLarge = errors.New("upload too large")

// parseUpload reads a multipart bulk upload. A zip in the spreadsheet field
// is treated as the archive, so zip-only batches need a single file.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (bulk.Upload, error) {
	var up bulk.Upload

	r.Body = http.MaxBytesReader(w, r.Body, s.uploadLimit())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return up, errors.WithHintf(errUploadTooLarge,
				"uploads are limited to %d bytes (server.max_upload_mb)", tooLarge.Limit)
		}
		return up, errors.WithSecondaryError(
			errors.NewInvalidRequestError("expected a multipart/form-data upload"), err)
	}
	defer r.MultipartForm.RemoveAll()

	spreadsheet, err := formFile(r, formSpreadsheet)
	if err != nil {
		return up, err
	}
	archive, err := formFile(r, formArchive)
	if err != nil {
		return up, err
	}

	if bulk.IsZip(spreadsheet) {
		if len(archive) > 0 {
			return up, errors.WithHint(
				errors.NewInvalidRequestError("both %s and %s are zip archives", formSpreadsheet, formArchive),
				"upload the spreadsheet as .csv, or put it inside the single .zip")
		}
		archive, spreadsheet = spreadsheet, nil
	}
	if len(spreadsheet) == 0 && len(archive) == 0 {
		return up, errors.WithHintf(
			errors.NewInvalidRequestError("upload contains no files"),
			"attach a .csv or .zip in the %q field", formSpreadsheet)
	}

	up.Spreadsheet = spreadsheet
	up.Archive = archive

	if raw := strings.TrimSpace(r.FormValue(formMapping)); raw != "" {
		mapping, err := tabular.LoadMapping(strings.NewReader(raw))
		if err != nil {
			return up, errors.WithSecondaryError(
				errors.NewInvalidRequestError("invalid %s field", formMapping), err)
		}
		up.Mapping = mapping
	}
	return up, nil
}

// formFile returns the content of a multipart file field, or nil when the
// field is absent.
func formFile(r *http.Request, field string) ([]byte, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read form field %s", field)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read form field %s", field)
	}
	return data, nil
}
