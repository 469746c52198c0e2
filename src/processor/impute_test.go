package processor

import (
	"testing"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	cases := map[string]Strategy{
		"median":          Median{},
		"MEAN":            Mean{},
		"mode":            Mode{},
		"zero":            Constant{Value: "0"},
		"ffill":           Forward{},
		"backward":        Backward{},
		"none":            Leave{},
		"constant:Calor":  Constant{Value: "Calor"},
		"rolling_mean_48": RollingInterpolate{Window: 48},
		"rolling-mean-6":  RollingInterpolate{Window: 6},
	}
	for tag, want := range cases {
		got, err := ParseStrategy(tag)
		require.NoError(t, err, tag)
		assert.Equal(t, want, got, tag)
	}

	for _, tag := range []string{"magic", "rolling_mean_x", "rolling_mean_0", ""} {
		_, err := ParseStrategy(tag)
		assert.ErrorIs(t, err, ErrUnknownStrategy, tag)
	}
}

func TestImputeBackward(t *testing.T) {
	df := dataframe.New(series.New([]interface{}{1, nil, nil, 4}, series.Int, "p5"))

	out, counts := NewImputer(map[string]Strategy{"p5": Backward{}}, nil, nil).Impute(df)

	assert.Equal(t, series.Int, out.Col("p5").Type())
	assertFloats(t, []float64{1, 4, 4, 4}, floatsOf(t, out, "p5"))
	assert.Equal(t, 2, counts["p5"])
}

func TestImputeForwardFillsLeadingGap(t *testing.T) {
	df := dataframe.New(series.New([]float64{nan, 2, nan, 5, nan}, series.Float, "x"))

	out, _ := NewImputer(map[string]Strategy{"x": Forward{}}, nil, nil).Impute(df)
	assertFloats(t, []float64{2, 2, 2, 5, 5}, floatsOf(t, out, "x"))
}

func TestImputeRollingInterpolate(t *testing.T) {
	df := dataframe.New(series.New(
		[]float64{100, 110, 120, nan, nan, nan, nan, nan, 180, 190, 200},
		series.Float, "rsolartot",
	))

	out, counts := NewImputer(map[string]Strategy{"rsolartot": RollingInterpolate{Window: 48}}, nil, nil).Impute(df)
	assert.Equal(t, 5, counts["rsolartot"])

	got := floatsOf(t, out, "rsolartot")
	for i := 3; i <= 7; i++ {
		assert.Greater(t, got[i], 100.0, "index %d", i)
		assert.Less(t, got[i], 200.0, "index %d", i)
	}
	assert.Equal(t, 180.0, got[8])
}

func TestRollingInterpolateNarrowWindow(t *testing.T) {
	// 窗口内没有观测值时退化为线性插值
	got := rollingInterpolate([]float64{10, nan, nan, 40, nan}, 1)
	assertFloats(t, []float64{10, 20, 30, 40, 40}, got)

	got = rollingInterpolate([]float64{nan, nan, 6, 8}, 2)
	assertFloats(t, []float64{6, 6, 6, 8}, got)
}

func TestImputeMedianMean(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{1, nan, 3, 10}, series.Float, "peso"),
		series.New([]interface{}{1, nil, 2, 2}, series.Int, "idade"),
		series.New([]interface{}{1, nil, 2, 2}, series.Int, "p1"),
	)
	spec := map[string]Strategy{"peso": Median{}, "idade": Mean{}, "p1": Median{}}

	out, _ := NewImputer(spec, nil, nil).Impute(df)

	assertFloats(t, []float64{1, 3, 3, 10}, floatsOf(t, out, "peso"))

	// 小数填充值使整数列转为浮点
	assert.Equal(t, series.Float, out.Col("idade").Type())
	assertFloats(t, []float64{1, 5.0 / 3, 2, 2}, floatsOf(t, out, "idade"))

	assert.Equal(t, series.Int, out.Col("p1").Type())
	assertFloats(t, []float64{1, 2, 2, 2}, floatsOf(t, out, "p1"))
}

func TestImputeModeTieFirstAppearance(t *testing.T) {
	df := dataframe.New(series.New([]interface{}{"b", "a", nil, "a", "b"}, series.String, "sexo"))

	out, _ := NewImputer(map[string]Strategy{"sexo": Mode{}}, nil, nil).Impute(df)
	assert.Equal(t, []string{"b", "a", "b", "a", "b"}, out.Col("sexo").Records())

	assert.Equal(t, 2.0, modeFloat([]float64{2, 1, nan, 1, 2}))
}

func TestImputeConstant(t *testing.T) {
	df := dataframe.New(
		series.New([]interface{}{"leve", nil}, series.String, "vestimenta"),
		series.New([]float64{1.5, nan}, series.Float, "tmin"),
		series.New([]float64{1.5, nan}, series.Float, "tmax"),
	)
	spec := map[string]Strategy{
		"vestimenta": Constant{Value: "desconhecido"},
		"tmin":       Constant{Value: "-1"},
		"tmax":       Constant{Value: "n/a"},
	}

	out, _ := NewImputer(spec, nil, nil).Impute(df)
	assert.Equal(t, []string{"leve", "desconhecido"}, out.Col("vestimenta").Records())
	assertFloats(t, []float64{1.5, -1}, floatsOf(t, out, "tmin"))

	// 非数值常量使数值列转为字符串
	assert.Equal(t, series.String, out.Col("tmax").Type())
	assert.Equal(t, []string{"1.5", "n/a"}, out.Col("tmax").Records())
}

func TestImputeDefaults(t *testing.T) {
	df := dataframe.New(
		series.New([]interface{}{"a", nil, "a", "c"}, series.String, "cat"),
		series.New([]float64{4, nan, 8, 1}, series.Float, "num"),
		series.New([]interface{}{"2024-01-01", nil, "2024-01-03", nil}, series.String, "data"),
	)

	// 数值默认策略对类别列回退为众数
	out, counts := NewImputer(nil, Median{}, Median{}, "data").Impute(df)
	assert.Equal(t, []string{"a", "a", "a", "c"}, out.Col("cat").Records())
	assertFloats(t, []float64{4, 4, 8, 1}, floatsOf(t, out, "num"))
	assert.Equal(t, 2, utils.MissingCount(out.Col("data")))
	assert.NotContains(t, counts, "data")

	// 未配置的数值列遇到非数值常量默认值时填 0
	out, _ = NewImputer(nil, Constant{Value: "missing"}, Mode{}, "data").Impute(df)
	assertFloats(t, []float64{4, 0, 8, 1}, floatsOf(t, out, "num"))
}

func TestImputeEntirelyMissingUnchanged(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{nan, nan, nan}, series.Float, "chuva_tot"),
		series.New([]float64{1, 2, 3}, series.Float, "complete"),
	)

	out, counts := NewImputer(map[string]Strategy{"chuva_tot": Median{}}, Mean{}, Mode{}).Impute(df)
	assertFloats(t, []float64{nan, nan, nan}, floatsOf(t, out, "chuva_tot"))
	assert.Empty(t, counts)
}

func TestImputeNoMissingInvariant(t *testing.T) {
	strategies := []Strategy{
		Median{}, Mean{}, Mode{}, Constant{Value: "7"}, Forward{}, Backward{}, RollingInterpolate{Window: 3},
	}
	numeric := []float64{nan, 3, nan, nan, 9, nan, 12, nan}
	text := []interface{}{nil, "a", nil, "b", "b", nil, "c", nil}

	for _, st := range strategies {
		df := dataframe.New(
			series.New(numeric, series.Float, "n"),
			series.New(text, series.String, "s"),
		)
		out, _ := NewImputer(map[string]Strategy{"n": st, "s": st}, nil, nil).Impute(df)
		assert.Zero(t, utils.MissingCount(out.Col("n")), st.String())
		assert.Zero(t, utils.MissingCount(out.Col("s")), st.String())
	}
}

func TestImputeLeave(t *testing.T) {
	df := dataframe.New(series.New([]float64{1, nan}, series.Float, "x"))

	out, counts := NewImputer(map[string]Strategy{"x": Leave{}}, nil, nil).Impute(df)
	assertFloats(t, []float64{1, nan}, floatsOf(t, out, "x"))
	assert.Empty(t, counts)
}
