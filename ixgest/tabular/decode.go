// Package tabular splits uploaded delimited text into rows of cells and maps
// header cells onto canonical monument fields.
package tabular

import (
	"strings"
)

// DefaultDelimiter separates cells when no other delimiter is configured.
const DefaultDelimiter = ','

const byteOrderMark = "\ufeff"

// Decode splits raw comma-delimited text into rows of cells.
// Decoding never fails; malformed input yields a best-effort split.
func Decode(raw string) [][]string {
	return DecodeWith(raw, DefaultDelimiter)
}

// DecodeWith splits raw text into rows using delim as the cell separator.
// A leading byte-order mark is dropped, CRLF line endings are accepted and
// whitespace-only lines are skipped. Cells keep their surrounding quotes;
// use StripQuotes when reading values.
func DecodeWith(raw string, delim rune) [][]string {
	raw = strings.TrimPrefix(raw, byteOrderMark)

	var rows [][]string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, SplitLine(line, delim))
	}
	return rows
}

// SplitLine splits one line at every delimiter that is not enclosed in a
// balanced pair of double quotes. An unterminated quote runs to the end of
// the line.
func SplitLine(line string, delim rune) []string {
	var cells []string
	var cell strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cell.WriteRune(r)
		case r == delim && !inQuotes:
			cells = append(cells, cell.String())
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	return append(cells, cell.String())
}

// StripQuotes trims whitespace, removes one pair of surrounding double
// quotes and collapses doubled quotes inside a quoted value.
func StripQuotes(cell string) string {
	cell = strings.TrimSpace(cell)
	if len(cell) >= 2 && strings.HasPrefix(cell, `"`) && strings.HasSuffix(cell, `"`) {
		cell = strings.ReplaceAll(cell[1:len(cell)-1], `""`, `"`)
		return strings.TrimSpace(cell)
	}
	return cell
}
