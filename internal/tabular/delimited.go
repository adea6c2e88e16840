package tabular

// delimited.go parses delimited text (CSV and friends) into a Table.
//
// The pipeline: detect the delimiter if none is given, split into non-blank
// lines, clip to the requested row window, tokenize each retained line with
// double-quote escaping, derive or synthesize headers, clip to the column
// window, and hand the windowed records to the shared assembly step.

import (
	"fmt"
	"regexp"
	"strings"
)

// delimiterCandidates are tried during auto-detection, in this order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

// detectSampleLines is how many leading non-blank lines auto-detection reads.
const detectSampleLines = 5

var lineBreak = regexp.MustCompile(`\r?\n`)

// ParseDelimited parses delimited text under the given options.
func ParseDelimited(text string, opts ParseOptions) (*Table, error) {
	if err := opts.validateRange(); err != nil {
		return nil, err
	}

	lines := splitLines(text)
	if len(lines) == 0 {
		return nil, newError(CodeEmptyFile, "file has no non-blank lines")
	}

	delim, err := resolveDelimiter(lines, opts.Delimiter)
	if err != nil {
		return nil, err
	}

	lines, err = windowLines(lines, opts)
	if err != nil {
		return nil, err
	}

	records := make([][]any, len(lines))
	for i, line := range lines {
		fields := splitFields(line, delim)
		rec := make([]any, len(fields))
		for j, f := range fields {
			rec[j] = f
		}
		records[i] = rec
	}

	return assembleTable(records, opts, nil)
}

// splitLines splits on \r?\n and drops blank lines.
func splitLines(text string) []string {
	var lines []string
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// resolveDelimiter returns the explicit delimiter, or auto-detects one from
// the first few non-blank lines. A candidate qualifies when it splits every
// sampled line into the same field count greater than one; the qualifying
// candidate with the highest field count wins. Comma is the fallback.
func resolveDelimiter(lines []string, explicit string) (rune, error) {
	if explicit != "" {
		runes := []rune(explicit)
		if len(runes) != 1 {
			return 0, newError(CodeParseError, "delimiter must be a single character, got %q", explicit)
		}
		return runes[0], nil
	}

	sample := lines
	if len(sample) > detectSampleLines {
		sample = sample[:detectSampleLines]
	}

	best, bestCount := ',', 0
	for _, cand := range delimiterCandidates {
		count := len(splitFields(sample[0], cand))
		if count <= 1 {
			continue
		}
		consistent := true
		for _, line := range sample[1:] {
			if len(splitFields(line, cand)) != count {
				consistent = false
				break
			}
		}
		if consistent && count > bestCount {
			best, bestCount = cand, count
		}
	}
	return best, nil
}

// windowLines clips lines to the 1-based inclusive [startRow, endRow] window.
func windowLines(lines []string, opts ParseOptions) ([]string, error) {
	start := opts.StartRow
	if start == 0 {
		start = 1
	}
	end := opts.EndRow
	if end == 0 || end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) {
		return nil, newError(CodeEmptyRange, "row window starts at %d but input has only %d rows", start, len(lines))
	}
	return lines[start-1 : end], nil
}

// splitFields tokenizes one line respecting double-quote escaping: a ""
// inside a quoted field is a literal quote, and delimiters inside quotes do
// not split.
func splitFields(line string, delim rune) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				b.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case r == delim && !inQuotes:
			fields = append(fields, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, b.String())
	return fields
}

// clipColumns applies the 1-based inclusive column window to one record.
// Returns nil when the window starts past the record's width.
func clipColumns(rec []any, opts ParseOptions) []any {
	start := opts.StartColumn
	if start == 0 {
		start = 1
	}
	end := opts.EndColumn
	if end == 0 || end > len(rec) {
		end = len(rec)
	}
	if start > len(rec) {
		return nil
	}
	return rec[start-1 : end]
}

// assembleTable is the shared back half of both parsers: header policy,
// duplicate-name disambiguation, column windowing, row building with empty
// cells coerced to null, the maxRows cap, and type inference.
func assembleTable(records [][]any, opts ParseOptions, warnings []string) (*Table, error) {
	headerSrc := clipColumns(records[0], opts)
	if len(headerSrc) == 0 {
		if opts.StartColumn > 0 || opts.EndColumn > 0 {
			return nil, newError(CodeEmptyRange, "column window yields zero columns")
		}
		return nil, newError(CodeNoColumns, "resolved header has zero columns")
	}

	var headers []string
	var data [][]any
	if opts.hasHeaders() {
		headers = make([]string, len(headerSrc))
		for i, v := range headerSrc {
			name := strings.TrimSpace(FormatValue(v))
			if name == "" {
				name = fmt.Sprintf("Column%d", i+1)
			}
			headers[i] = name
		}
		data = records[1:]
	} else {
		headers = make([]string, len(headerSrc))
		for i := range headerSrc {
			headers[i] = fmt.Sprintf("Column%d", i+1)
		}
		data = records
	}

	headers, warnings = dedupeHeaders(headers, warnings)

	rows := make([]Row, 0, len(data))
	for i, rec := range data {
		fields := clipColumns(rec, opts)
		if len(fields) != len(headers) {
			warnings = append(warnings, fmt.Sprintf(
				"row %d has %d fields, expected %d; padded or truncated to match", i+1, len(fields), len(headers)))
		}
		row := make(Row, len(headers))
		for j, name := range headers {
			var v any
			if j < len(fields) {
				v = fields[j]
			}
			if s, ok := v.(string); ok && s == "" {
				v = nil
			}
			row[name] = v
		}
		rows = append(rows, row)
		if opts.MaxRows > 0 && len(rows) >= opts.MaxRows {
			break
		}
	}

	t := &Table{Rows: rows, RowCount: len(rows), Warnings: warnings}
	t.Columns = make([]ColumnMetadata, len(headers))
	for i, name := range headers {
		if opts.inferTypes() {
			t.Columns[i] = InferColumn(name, t.ColumnValues(name))
		} else {
			t.Columns[i] = StringColumn(name)
		}
	}
	return t, nil
}

// dedupeHeaders disambiguates repeated header names with numeric suffixes,
// recording one warning per rename. "X, X, X" becomes "X, X_1, X_2".
func dedupeHeaders(headers []string, warnings []string) ([]string, []string) {
	seen := make(map[string]int, len(headers))
	out := make([]string, len(headers))
	for i, name := range headers {
		if n, dup := seen[name]; dup {
			renamed := fmt.Sprintf("%s_%d", name, n)
			for {
				if _, taken := seen[renamed]; !taken {
					break
				}
				n++
				renamed = fmt.Sprintf("%s_%d", name, n)
			}
			seen[name] = n + 1
			seen[renamed] = 1
			warnings = append(warnings, fmt.Sprintf("duplicate column name %q renamed to %q", name, renamed))
			out[i] = renamed
			continue
		}
		seen[name] = 1
		out[i] = name
	}
	return out, warnings
}
