package tabular

// infer.go aggregates per-cell classifier votes into one column type.
//
// Nulls are excluded from the vote. A column whose non-null values all share
// one type gets that type; with mixed types, a type holding at least 80% of
// the non-null values wins; otherwise the column falls back to string. A
// column with no non-null values is string with NonNullCount 0.

// majorityShare is the minimum share of non-null values a type needs to win
// a mixed-type column.
const majorityShare = 0.8

// maxSampleValues caps the raw non-null values recorded per column.
const maxSampleValues = 5

// InferColumn classifies every value of a column and derives its metadata.
func InferColumn(name string, values []any) ColumnMetadata {
	meta := ColumnMetadata{Name: name, Type: TypeString}

	counts := make(map[ColumnType]int, 4)
	for _, v := range values {
		ct := Classify(v)
		if ct == TypeNull {
			meta.NullCount++
			continue
		}
		meta.NonNullCount++
		counts[ct]++
		if len(meta.SampleValues) < maxSampleValues {
			meta.SampleValues = append(meta.SampleValues, v)
		}
	}

	if meta.NonNullCount == 0 {
		return meta
	}

	if len(counts) == 1 {
		for ct := range counts {
			meta.Type = ct
		}
		return meta
	}

	best, bestCount := TypeString, 0
	for ct, n := range counts {
		if n > bestCount {
			best, bestCount = ct, n
		}
	}
	if float64(bestCount) >= majorityShare*float64(meta.NonNullCount) {
		meta.Type = best
	}
	return meta
}

// StringColumn builds metadata for a column when inference is disabled:
// type string, zero counts, no samples.
func StringColumn(name string) ColumnMetadata {
	return ColumnMetadata{Name: name, Type: TypeString}
}

// ReinferColumns rebuilds every column's metadata from the table's current
// rows, preserving column names and order. RowCount is refreshed as well.
// This runs after every pipeline step: even a column a step did not touch
// gets its stats refreshed, because row-affecting steps change null ratios.
func ReinferColumns(t *Table) {
	for i, col := range t.Columns {
		t.Columns[i] = InferColumn(col.Name, t.ColumnValues(col.Name))
	}
	t.RowCount = len(t.Rows)
}
