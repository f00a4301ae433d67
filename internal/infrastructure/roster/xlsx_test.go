package roster

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeRoster(t *testing.T, rows [][]any) string {
	t.Helper()
	file := excelize.NewFile()
	sheet := file.GetSheetName(0)
	for i, row := range rows {
		cellRef, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, file.SetSheetRow(sheet, cellRef, &row))
	}
	path := filepath.Join(t.TempDir(), "laureates.xlsx")
	require.NoError(t, file.SaveAs(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	path := writeRoster(t, [][]any{
		{"full_name", "year_awarded", "country", "gender", "language"},
		{"Toni Morrison", 1993, "United States", "Female", "English"},
		{"Kazuo Ishiguro", 2017, "United Kingdom", "Male", "English"},
	})

	laureates, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, laureates, 2)

	require.Equal(t, "Toni Morrison", laureates[0].FullName)
	require.Equal(t, "Morrison", laureates[0].LastName)
	require.Equal(t, 1993, laureates[0].YearAwarded)
	require.Equal(t, "female", laureates[0].Gender)
}

func TestLoadXLSXSkipsBlankRows(t *testing.T) {
	path := writeRoster(t, [][]any{
		{"full_name", "year_awarded"},
		{"", ""},
		{"Olga Tokarczuk", 2018},
	})

	laureates, err := LoadXLSX(path)
	require.NoError(t, err)
	require.Len(t, laureates, 1)
	require.Equal(t, "Tokarczuk", laureates[0].LastName)
}

func TestLoadXLSXRejectsBadYear(t *testing.T) {
	path := writeRoster(t, [][]any{
		{"full_name", "year_awarded"},
		{"Bob Dylan", "two thousand sixteen"},
	})

	_, err := LoadXLSX(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Bob Dylan")
}

func TestLoadXLSXEmptyRoster(t *testing.T) {
	path := writeRoster(t, [][]any{{"full_name", "year_awarded"}})
	_, err := LoadXLSX(path)
	require.Error(t, err)
}
