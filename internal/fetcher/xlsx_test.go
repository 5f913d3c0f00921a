package fetcher

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

type testSheet struct {
	name string
	rows [][]string
}

func createTestXLSX(t *testing.T, sheets ...testSheet) []byte {
	t.Helper()
	f := xlsx.NewFile()
	for _, s := range sheets {
		sheet, err := f.AddSheet(s.name)
		require.NoError(t, err)
		for _, rowData := range s.rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestReadXLSX_Basic(t *testing.T) {
	data := createTestXLSX(t, testSheet{"Каталог", [][]string{
		{"ID товара", "Название товара или услуги", "Цена"},
		{"1", "Дверь Гранит", "18000"},
		{"2", "Дверь Соло", "9900"},
	}})

	rows, err := ReadXLSX(data, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ID товара", "Название товара или услуги", "Цена"}, rows[0])
	assert.Equal(t, []string{"1", "Дверь Гранит", "18000"}, rows[1])
	assert.Equal(t, []string{"2", "Дверь Соло", "9900"}, rows[2])
}

func TestReadXLSX_FirstSheetOnly(t *testing.T) {
	data := createTestXLSX(t,
		testSheet{"First", [][]string{{"a", "b"}}},
		testSheet{"Second", [][]string{{"x", "y"}, {"1", "2"}}},
	)

	rows, err := ReadXLSX(data, XLSXOptions{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestReadXLSX_SkipRows(t *testing.T) {
	data := createTestXLSX(t, testSheet{"Sheet1", [][]string{
		{"Выгрузка от 01.03"},
		{"Название", "Цена"},
		{"Дверь", "100"},
	}})

	rows, err := ReadXLSX(data, XLSXOptions{SkipRows: 1})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Название", "Цена"}, rows[0])
}

func TestReadXLSX_SheetName(t *testing.T) {
	data := createTestXLSX(t,
		testSheet{"First", [][]string{{"a", "b"}}},
		testSheet{"Second", [][]string{{"x", "y"}, {"1", "2"}}},
	)

	rows, err := ReadXLSX(data, XLSXOptions{SheetName: "Second"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"x", "y"}, rows[0])
	assert.Equal(t, []string{"1", "2"}, rows[1])
}

func TestReadXLSX_SheetNameNotFound(t *testing.T) {
	data := createTestXLSX(t, testSheet{"Sheet1", [][]string{{"a"}}})

	_, err := ReadXLSX(data, XLSXOptions{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestReadXLSX_SheetIndexOutOfRange(t *testing.T) {
	data := createTestXLSX(t, testSheet{"Sheet1", [][]string{{"a"}}})

	_, err := ReadXLSX(data, XLSXOptions{SheetIndex: 5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadXLSX_Garbage(t *testing.T) {
	_, err := ReadXLSX([]byte("definitely not a workbook"), XLSXOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xlsx: open workbook")
}

func TestReadXLSX_TrailingBlankCellsTrimmed(t *testing.T) {
	data := createTestXLSX(t, testSheet{"Sheet1", [][]string{
		{"Название", "Цена", "Параметр: Цвет"},
		{"Дверь", "100", ""},
	}})

	rows, err := ReadXLSX(data, XLSXOptions{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"Дверь", "100"}, rows[1])
}
