package tabular

import (
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
)

// FieldMap maps a zero-based column index to its canonical field name.
type FieldMap map[int]string

// ResolveFields maps each header cell to a canonical field name: the
// override for the header when one exists, otherwise the header lowercased.
// Override keys are matched against the trimmed, unquoted header text.
func ResolveFields(header []string, overrides map[string]string) FieldMap {
	fields := make(FieldMap, len(header))
	for i, cell := range header {
		name := StripQuotes(cell)
		if mapped, ok := overrides[name]; ok {
			fields[i] = strings.ToLower(strings.TrimSpace(mapped))
			continue
		}
		fields[i] = strings.ToLower(name)
	}
	return fields
}

// Columns returns the column indexes resolved to field, in column order.
func (m FieldMap) Columns(field string) []int {
	var cols []int
	for i := 0; i < len(m); i++ {
		if m[i] == field {
			cols = append(cols, i)
		}
	}
	return cols
}

// LoadMapping reads a header override mapping from YAML (or JSON, which is
// valid YAML):
//
//	"Monument Name": title
//	"Lat": latitude
func LoadMapping(r io.Reader) (map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read column mapping")
	}
	mapping := make(map[string]string)
	if len(strings.TrimSpace(string(data))) == 0 {
		return mapping, nil
	}
	if err := yaml.Unmarshal(data, &mapping); err != nil {
		return nil, errors.WithHint(
			errors.Wrap(err, "failed to parse column mapping"),
			"the mapping must be a flat object of header name to field name")
	}
	return mapping, nil
}
