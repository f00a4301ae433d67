package roster

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

// LoadXLSX reads the laureate roster spreadsheet. Expected layout: first
// sheet, a header row, then one laureate per row with columns
// full_name, year_awarded, country, gender, language.
func LoadXLSX(path string) ([]domain.Laureate, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open roster %s: %w", path, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("roster %s has no sheets", path)
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read roster rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("roster %s has no laureate rows", path)
	}

	out := make([]domain.Laureate, 0, len(rows)-1)
	for i, row := range rows[1:] {
		laureate, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("roster row %d: %w", i+2, err)
		}
		if laureate.FullName == "" {
			continue
		}
		out = append(out, laureate)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("roster %s yielded no laureates", path)
	}
	return out, nil
}

func parseRow(row []string) (domain.Laureate, error) {
	var l domain.Laureate
	l.FullName = strings.TrimSpace(cell(row, 0))
	if l.FullName == "" {
		return l, nil
	}
	l.LastName = domain.SurnameOf(l.FullName)

	yearText := strings.TrimSpace(cell(row, 1))
	if yearText != "" {
		year, err := strconv.Atoi(yearText)
		if err != nil {
			return l, fmt.Errorf("bad year %q for %s", yearText, l.FullName)
		}
		l.YearAwarded = year
	}

	l.Country = strings.TrimSpace(cell(row, 2))
	l.Gender = strings.ToLower(strings.TrimSpace(cell(row, 3)))
	l.Language = strings.TrimSpace(cell(row, 4))
	return l, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return row[idx]
}
