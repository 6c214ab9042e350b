package parser

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"
)

// CSVParser flattens tabular files into text, one row per line with cells
// joined by " | " so row structure survives chunking.
type CSVParser struct{}

// Extensions lists the tabular format family
func (p *CSVParser) Extensions() []string {
	return []string{"csv", "tsv"}
}

// Parse flattens rows into pipe-delimited lines
func (p *CSVParser) Parse(_ context.Context, data []byte, fileName string) *Result {
	res := &Result{Metadata: baseMetadata(fileName, len(data))}

	r := csv.NewReader(strings.NewReader(string(data)))
	if strings.HasSuffix(strings.ToLower(fileName), ".tsv") {
		r.Comma = '\t'
	}
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	records, err := r.ReadAll()
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("failed to parse table: %v", err))
		return res
	}
	if len(records) == 0 {
		res.Warnings = append(res.Warnings, "file contains no rows")
		return res
	}

	var b strings.Builder
	for _, row := range records {
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		b.WriteString(strings.Join(row, " | "))
		b.WriteByte('\n')
	}

	res.Content = strings.TrimRight(b.String(), "\n")
	res.Metadata["RowCount"] = fmt.Sprintf("%d", len(records))
	return res
}
