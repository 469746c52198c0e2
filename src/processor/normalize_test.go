package processor

import (
	"math"
	"testing"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func groupedReadings() dataframe.DataFrame {
	return dataframe.New(
		series.New([]string{"01-2024", "01-2024", "01-2024", "02-2024", "02-2024", "02-2024"}, series.String, "mes-ano"),
		series.New([]float64{20, 22, 24, 30, 31, 35}, series.Float, "tmedia"),
		series.New([]float64{5, 5, 5, 1, 2, 3}, series.Float, "vento"),
	)
}

func TestNormalizeGroupedStandard(t *testing.T) {
	n := Normalizer{Method: MethodStandard, Columns: []string{"tmedia", "vento"}, GroupColumn: "mes-ano", Suffix: "_norm"}

	out, art := n.Normalize(groupedReadings())
	require.NoError(t, out.Err)
	assert.Equal(t, "mes-ano", art.GroupColumn)
	assert.Nil(t, art.Global)
	require.Contains(t, art.Groups, "01-2024")
	require.Contains(t, art.Groups, "02-2024")

	vals := floatsOf(t, out, "tmedia_norm")
	for _, block := range [][]float64{vals[:3], vals[3:]} {
		assert.InDelta(t, 0, stat.Mean(block, nil), 1e-9)
		assert.InDelta(t, 1, stat.StdDev(block, nil), 1e-9)
	}

	// 组内零方差
	assertFloats(t, []float64{0, 0, 0}, floatsOf(t, out, "vento_norm")[:3])

	// 原列保留
	assertFloats(t, []float64{20, 22, 24, 30, 31, 35}, floatsOf(t, out, "tmedia"))
}

func TestNormalizeMethods(t *testing.T) {
	cases := []struct {
		name string
		m    Method
		in   []float64
		want []float64
	}{
		{"minmax", MethodMinMax, []float64{0, 5, 10}, []float64{0, 0.5, 1}},
		{"robust", MethodRobust, []float64{1, 2, 3, 4, 5}, []float64{-1, -0.5, 0, 0.5, 1}},
		{"maxabs", MethodMaxAbs, []float64{-4, 2, 1}, []float64{-1, 0.5, 0.25}},
		{"missing kept", MethodMinMax, []float64{0, nan, 10}, []float64{0, nan, 1}},
		{"constant minmax", MethodMinMax, []float64{7, 7}, []float64{0, 0}},
		{"single standard", MethodStandard, []float64{3}, []float64{0}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			df := dataframe.New(series.New(tc.in, series.Float, "x"))
			n := Normalizer{Method: tc.m, Suffix: "_norm"}

			out, art := n.Normalize(df)
			assertFloats(t, tc.want, floatsOf(t, out, "x_norm"))
			assert.Equal(t, tc.m.String(), art.Global["x"].Method)
		})
	}
}

func TestNormalizeL2ScalesRows(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{3, 0, 3, 0}, series.Float, "a"),
		series.New([]float64{4, 5, nan, 0}, series.Float, "b"),
	)
	n := Normalizer{Method: MethodL2, Suffix: "_n"}

	out, art := n.Normalize(df)
	assertFloats(t, []float64{0.6, 0, 1, 0}, floatsOf(t, out, "a_n"))
	// 缺失值不计入范数，零范数行保持原值
	assertFloats(t, []float64{0.8, 1, nan, 0}, floatsOf(t, out, "b_n"))
	assert.Equal(t, []string{"a", "b"}, art.RowNorm)
	assert.Empty(t, art.Global)

	for i := 0; i < 2; i++ {
		a, b := floatsOf(t, out, "a_n")[i], floatsOf(t, out, "b_n")[i]
		assert.InDelta(t, 1, a*a+b*b, 1e-9)
	}
}

func TestNormalizeL2WithGroupsAndOtherMethods(t *testing.T) {
	n := Normalizer{
		Method:      MethodStandard,
		Methods:     map[string]Method{"tmedia": MethodL2, "vento": MethodL2},
		GroupColumn: "mes-ano",
		Suffix:      "_norm",
	}

	out, art := n.Normalize(groupedReadings())
	assert.Equal(t, "mes-ano", art.GroupColumn)
	assert.Equal(t, []string{"tmedia", "vento"}, art.RowNorm)

	tm, ve := floatsOf(t, out, "tmedia_norm"), floatsOf(t, out, "vento_norm")
	assert.InDelta(t, 20/math.Sqrt(425), tm[0], 1e-9)
	assert.InDelta(t, 5/math.Sqrt(425), ve[0], 1e-9)
	for i := range tm {
		assert.InDelta(t, 1, tm[i]*tm[i]+ve[i]*ve[i], 1e-9)
	}
}

func TestNormalizePerColumnMethods(t *testing.T) {
	n := Normalizer{
		Method:  MethodStandard,
		Methods: map[string]Method{"vento": MethodMaxAbs},
		Suffix:  "_norm",
	}

	out, art := n.Normalize(groupedReadings())
	assert.NotContains(t, out.Names(), "tmedia_norm")
	assertFloats(t, []float64{1, 1, 1, 0.2, 0.4, 0.6}, floatsOf(t, out, "vento_norm"))
	assert.Equal(t, "maxabs", art.Global["vento"].Method)
}

func TestNormalizeAbsentGroupFallsBackToGlobal(t *testing.T) {
	n := Normalizer{Method: MethodMinMax, Columns: []string{"tmedia", "mes-ano"}, GroupColumn: "periodo", Suffix: "_norm"}

	out, art := n.Normalize(groupedReadings())
	assert.Empty(t, art.GroupColumn)
	assert.Contains(t, art.Global, "tmedia")
	// 非数值列跳过
	assert.NotContains(t, art.Global, "mes-ano")
	vals := floatsOf(t, out, "tmedia_norm")
	assert.InDelta(t, 0, vals[0], 1e-9)
	assert.InDelta(t, 1, vals[5], 1e-9)
}

func TestNormalizeOverwriteInPlace(t *testing.T) {
	n := Normalizer{Method: MethodMinMax, Columns: []string{"vento"}}
	df := groupedReadings()

	out, _ := n.Normalize(df)
	assert.Equal(t, df.Names(), out.Names())
	assertFloats(t, []float64{1, 1, 1, 0, 0.25, 0.5}, floatsOf(t, out, "vento"))
	// 输入不变
	assertFloats(t, []float64{5, 5, 5, 1, 2, 3}, utils.Floats(df.Col("vento")))
}

func TestScalerTransformMissing(t *testing.T) {
	p := FitScaler(MethodStandard, []float64{1, 2, 3})
	assert.True(t, math.IsNaN(p.Transform(math.NaN())))
	assert.InDelta(t, 0, p.Transform(2), 1e-9)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("MinMax")
	require.NoError(t, err)
	assert.Equal(t, MethodMinMax, m)

	_, err = ParseMethod("quantile")
	assert.ErrorIs(t, err, ErrUnknownMethod)
}
