package utils

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestNormalizeColumnName(t *testing.T) {
	cases := map[string]string{
		"  Sensação Térmica ": "sensacao_termica",
		"UR":                  "ur",
		"Mes-Ano":             "mes-ano",
		"idade":               "idade",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeColumnName(in), in)
	}
}

func TestNormalizeColumnNames(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a"}, series.String, "Sexo"),
		series.New([]string{"b"}, series.String, "SEXO "),
		series.New([]string{"c"}, series.String, "Idade"),
	)
	out, err := NormalizeColumnNames(df)
	require.NoError(t, err)
	assert.Equal(t, []string{"sexo", "sexo_2", "idade"}, out.Names())
	assert.Equal(t, []string{"Sexo", "SEXO ", "Idade"}, df.Names())
}

func TestResolveColumn(t *testing.T) {
	df := dataframe.New(
		series.New([]int{1}, series.Int, "Sensacao_Termica"),
		series.New([]int{1}, series.Int, "mes-ano"),
	)
	for in, want := range map[string]string{
		"Sensacao_Termica": "Sensacao_Termica",
		"sensacao_termica": "Sensacao_Termica",
		"sensacao-termica": "Sensacao_Termica",
		"MES_ANO":          "mes-ano",
	} {
		got, ok := ResolveColumn(df, in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ResolveColumn(df, "idade")
	assert.False(t, ok)
}

func TestMissingHelpers(t *testing.T) {
	f := FloatSeries([]float64{1, math.NaN(), 3}, "f")
	s := NullableSeries([]interface{}{"a", nil}, series.String, "s")

	assert.Equal(t, 1, MissingCount(f))
	assert.Equal(t, 1, MissingCount(s))
	assert.True(t, IsNumeric(f))
	assert.False(t, IsNumeric(s))
	assert.Equal(t, []float64{1, 3}, Observed(Floats(f)))
	assert.Equal(t, "99", ValueString(series.New([]float64{99}, series.Float, "x").Elem(0)))
	assert.True(t, Contains([]string{"a", "b"}, "b"))
}

func TestSaveToExcelAndCSV(t *testing.T) {
	dir := t.TempDir()
	df := dataframe.New(
		series.New([]float64{1.5, math.NaN()}, series.Float, "tmedia"),
		series.New([]interface{}{nil, "f"}, series.String, "sexo"),
	)

	xlsxPath := filepath.Join(dir, "out.xlsx")
	require.NoError(t, SaveToExcel(df, xlsxPath))
	f, err := excelize.OpenFile(xlsxPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"tmedia", "sexo"}, rows[0])
	assert.Equal(t, "1.5", rows[1][0])
	// 缺失值留空
	assert.Equal(t, "f", rows[2][1])
	assert.Equal(t, "", rows[2][0])

	csvPath := filepath.Join(dir, "out.csv")
	require.NoError(t, SaveToCSV(df, csvPath))
	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tmedia,sexo\n")
}

func TestPidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thermal.pid")
	require.NoError(t, WritePidFile(path))
	pid, err := ReadPidFile(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)

	require.NoError(t, os.WriteFile(path, []byte("nope"), 0644))
	_, err = ReadPidFile(path)
	assert.Error(t, err)
}
