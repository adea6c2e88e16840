package tabular

// spreadsheet.go parses workbook bytes (xlsx) into a Table via excelize.
//
// Semantics mirror the delimited parser, but operate over the sheet's native
// 2-D cell grid: numeric and date cells keep their native type instead of
// being read back as strings. Merged-cell reconciliation runs before header
// derivation so a merged header produces the same name in every covered
// column, which duplicate-name disambiguation then suffixes.

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// builtinDateNumFmts are the builtin number format IDs Excel uses for
// date/time cells.
var builtinDateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true, 20: true,
	21: true, 22: true, 45: true, 46: true, 47: true,
}

// ParseWorkbook parses workbook bytes under the given options.
func ParseWorkbook(data []byte, opts ParseOptions) (*Table, error) {
	if err := opts.validateRange(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, wrapError(CodeReadError, err, "failed to open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, newError(CodeNoSheets, "workbook contains no sheets")
	}

	sheet, err := resolveSheet(sheets, opts)
	if err != nil {
		return nil, err
	}

	var warnings []string
	if len(sheets) > 1 {
		others := make([]string, 0, len(sheets)-1)
		for _, s := range sheets {
			if s != sheet {
				others = append(others, s)
			}
		}
		warnings = append(warnings, fmt.Sprintf(
			"workbook has %d sheets; parsed %q (other sheets: %s)", len(sheets), sheet, strings.Join(others, ", ")))
	}

	grid, err := readGrid(f, sheet)
	if err != nil {
		return nil, wrapError(CodeReadError, err, "failed to read sheet %q", sheet)
	}

	if err := reconcileMerges(f, sheet, grid); err != nil {
		return nil, wrapError(CodeReadError, err, "failed to resolve merged cells in sheet %q", sheet)
	}

	records := dropEmptyRows(grid)
	if len(records) == 0 {
		return nil, newError(CodeEmptySheet, "sheet %q has no non-empty rows", sheet)
	}

	records, err = windowRecords(records, opts)
	if err != nil {
		return nil, err
	}

	// excelize trims trailing empty cells per row; square the grid so short
	// rows read as empty cells rather than width mismatches.
	width := 0
	for _, rec := range records {
		if len(rec) > width {
			width = len(rec)
		}
	}
	for i, rec := range records {
		for len(rec) < width {
			rec = append(rec, nil)
		}
		records[i] = rec
	}

	return assembleTable(records, opts, warnings)
}

// resolveSheet picks the target sheet: an explicit name wins over an explicit
// index; with neither, the first sheet in workbook order is used. The index
// is 0-based.
func resolveSheet(sheets []string, opts ParseOptions) (string, error) {
	if opts.SheetName != "" {
		for _, s := range sheets {
			if s == opts.SheetName {
				return s, nil
			}
		}
		return "", newError(CodeSheetNotFound, "sheet %q not found (available: %s)",
			opts.SheetName, strings.Join(sheets, ", "))
	}
	if opts.SheetIndex != nil {
		idx := *opts.SheetIndex
		if idx < 0 || idx >= len(sheets) {
			return "", newError(CodeInvalidSheetIndex, "sheet index %d out of range (workbook has %d sheets)", idx, len(sheets))
		}
		return sheets[idx], nil
	}
	return sheets[0], nil
}

// readGrid materializes the sheet as a grid of typed cells.
func readGrid(f *excelize.File, sheet string) ([][]any, error) {
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	dateStyles := make(map[int]bool)
	grid := make([][]any, len(raw))
	for r, row := range raw {
		grid[r] = make([]any, len(row))
		for c, cell := range row {
			if cell == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			grid[r][c] = typedCell(f, sheet, axis, cell, dateStyles)
		}
	}
	return grid, nil
}

// typedCell converts one raw cell string to its native scalar. Numbers stay
// float64 unless the cell carries a date number format, in which case the
// Excel serial is converted to a time. Booleans come back as "0"/"1" raw
// values with a boolean cell type.
func typedCell(f *excelize.File, sheet, axis, raw string, dateStyles map[int]bool) any {
	ct, err := f.GetCellType(sheet, axis)
	if err != nil {
		return raw
	}

	switch ct {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeDate:
		if t, ok := parseDate(raw); ok {
			return t
		}
		return raw
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeFormula:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw
		}
		if isDateStyled(f, sheet, axis, dateStyles) {
			if t, err := excelize.ExcelDateToTime(n, false); err == nil {
				return t
			}
		}
		return n
	default:
		return raw
	}
}

// isDateStyled reports whether the cell's number format is a date format.
// Style lookups are cached by style ID; a sheet typically reuses a handful.
func isDateStyled(f *excelize.File, sheet, axis string, cache map[int]bool) bool {
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	if isDate, ok := cache[styleID]; ok {
		return isDate
	}

	isDate := false
	if style, err := f.GetStyle(styleID); err == nil && style != nil {
		if builtinDateNumFmts[style.NumFmt] {
			isDate = true
		} else if style.CustomNumFmt != nil {
			isDate = looksLikeDateFormat(*style.CustomNumFmt)
		}
	}
	cache[styleID] = isDate
	return isDate
}

// looksLikeDateFormat checks a custom number format code for date tokens.
func looksLikeDateFormat(code string) bool {
	code = strings.ToLower(code)
	// Strip quoted literals and color specifiers before scanning for tokens.
	for {
		i := strings.IndexByte(code, '"')
		if i < 0 {
			break
		}
		j := strings.IndexByte(code[i+1:], '"')
		if j < 0 {
			break
		}
		code = code[:i] + code[i+j+2:]
	}
	return strings.ContainsAny(code, "ymdhs")
}

// reconcileMerges copies each merge rectangle's top-left value into every
// other covered cell that is currently empty. A rectangle whose top-left
// cell is itself empty is skipped. Cells that already hold a value are left
// untouched. Rows shorter than the rectangle are widened as needed.
func reconcileMerges(f *excelize.File, sheet string, grid [][]any) error {
	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return err
	}

	for _, m := range merges {
		sc, sr, err := excelize.CellNameToCoordinates(m.GetStartAxis())
		if err != nil {
			return err
		}
		ec, er, err := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err != nil {
			return err
		}
		if sr > len(grid) {
			continue
		}
		top := cellAt(grid, sr-1, sc-1)
		if isEmptyCell(top) {
			continue
		}
		for r := sr; r <= er && r <= len(grid); r++ {
			for c := sc; c <= ec; c++ {
				if r == sr && c == sc {
					continue
				}
				row := grid[r-1]
				for len(row) < c {
					row = append(row, nil)
				}
				grid[r-1] = row
				if isEmptyCell(row[c-1]) {
					row[c-1] = top
				}
			}
		}
	}
	return nil
}

func cellAt(grid [][]any, r, c int) any {
	if r >= len(grid) || c >= len(grid[r]) {
		return nil
	}
	return grid[r][c]
}

func isEmptyCell(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// dropEmptyRows removes rows whose every cell is empty, mirroring the
// blank-line handling of the delimited parser.
func dropEmptyRows(grid [][]any) [][]any {
	var out [][]any
	for _, row := range grid {
		empty := true
		for _, v := range row {
			if !isEmptyCell(v) {
				empty = false
				break
			}
		}
		if !empty {
			out = append(out, row)
		}
	}
	return out
}

// windowRecords clips records to the 1-based inclusive row window.
func windowRecords(records [][]any, opts ParseOptions) ([][]any, error) {
	start := opts.StartRow
	if start == 0 {
		start = 1
	}
	end := opts.EndRow
	if end == 0 || end > len(records) {
		end = len(records)
	}
	if start > len(records) {
		return nil, newError(CodeEmptyRange, "row window starts at %d but sheet has only %d non-empty rows", start, len(records))
	}
	return records[start-1 : end], nil
}
