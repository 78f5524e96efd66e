package spreadsheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadCSV(t *testing.T) {
	data := []byte("\xef\xbb\xbfname, city ,num_teachers\nColegio A,Quito,40\n,,\nColegio B,Cuenca\n")
	table, err := Read("leads.csv", data)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "city", "num_teachers"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"Colegio B", "Cuenca", ""}, table.Rows[1])
	assert.Equal(t, 1, table.ColumnIndex("CITY"))
	assert.Equal(t, -1, table.ColumnIndex("stage"))
}

func TestReadCSVSemicolon(t *testing.T) {
	table, err := Read("leads.csv", []byte("name;pais\nColegio A;Perú\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "pais"}, table.Columns)
	assert.Equal(t, "Perú", table.Rows[0][1])
}

func TestReadXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"name", "stage"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Colegio A", "En Proceso"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := Read("leads.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "stage"}, table.Columns)
	assert.Equal(t, [][]string{{"Colegio A", "En Proceso"}}, table.Rows)
}

func TestReadJSON(t *testing.T) {
	table, err := Read("data.json", []byte(`[{"name":"Ana","age":30},{"name":"Luis","email":"l@x.com"}]`))
	require.NoError(t, err)
	assert.Equal(t, []string{"age", "name", "email"}, table.Columns)
	assert.Equal(t, []string{"30", "Ana", ""}, table.Rows[0])

	recs := table.Records(1)
	require.Len(t, recs, 1)
	assert.Equal(t, "Ana", recs[0]["name"])
}

func TestReadRejectsUnknownFormats(t *testing.T) {
	_, err := Read("old.xls", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("notes.docx", []byte("x"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Read("empty.csv", []byte("\n\n"))
	assert.ErrorIs(t, err, ErrEmpty)
}
