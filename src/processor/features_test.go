package processor

import (
	"math"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMI(t *testing.T) {
	assert.InDelta(t, 22.857, BMI(70, 175), 1e-3)
	assert.True(t, math.IsNaN(BMI(70, 0)))
	assert.True(t, math.IsNaN(BMI(math.NaN(), 175)))
	assert.True(t, math.IsNaN(BMI(70, math.NaN())))
}

func TestBMIClass(t *testing.T) {
	cases := map[float64]string{
		17:   BMIUnderweight,
		18.5: BMINormal,
		24.9: BMINormal,
		25:   BMIOverweight,
		32:   BMIObesity1,
		39.9: BMIObesity2,
		45:   BMIObesity3,
	}
	for bmi, want := range cases {
		got, ok := BMIClass(bmi)
		require.True(t, ok)
		assert.Equal(t, want, got, "bmi %v", bmi)
	}
	_, ok := BMIClass(math.NaN())
	assert.False(t, ok)
}

func TestClimateFormulas(t *testing.T) {
	assert.InDelta(t, 31.049, HeatIndex(30, 50), 1e-3)
	assert.InDelta(t, 17.0, DewPoint(25, 60), 1e-9)
	assert.InDelta(t, 13.7, WetBulb(20, 50), 0.05)

	assert.True(t, math.IsNaN(HeatIndex(math.NaN(), 50)))
	assert.True(t, math.IsNaN(DewPoint(25, math.NaN())))
	assert.True(t, math.IsNaN(WetBulb(math.NaN(), 50)))
}

func TestAddDerivedFeatures(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{70, 90, nan}, series.Float, "peso"),
		series.New([]float64{175, 0, 160}, series.Float, "altura"),
		series.New([]float64{25, 30, 20}, series.Float, "tmedia"),
		series.New([]float64{60, 0, nan}, series.Float, "ur"),
	)
	fc, err := NewFeatureCalculator([]string{"imc_classe", "imc", "heat_index", "dew_point", "wet_bulb", "t*u", "t/u"})
	require.NoError(t, err)

	out := fc.Add(df)
	require.NoError(t, out.Err)

	imc := floatsOf(t, out, FeatureBMI)
	assert.InDelta(t, 22.857, imc[0], 1e-3)
	assert.True(t, math.IsNaN(imc[1]))
	assert.True(t, math.IsNaN(imc[2]))
	assert.Equal(t, []bool{false, true, true}, missingOf(t, out, FeatureBMIClass))
	assert.Equal(t, BMINormal, out.Col(FeatureBMIClass).Elem(0).String())

	assertFloats(t, []float64{17, 10, nan}, floatsOf(t, out, FeatureDewPoint))
	assertFloats(t, []float64{1500, 0, nan}, floatsOf(t, out, FeatureTTimesU))
	assertFloats(t, []float64{1500, 0, nan}, floatsOf(t, out, TimesUAlias))

	// 除数为 0 时为缺失而不是无穷
	ratio := floatsOf(t, out, FeatureTOverU)
	assert.InDelta(t, 25.0/60, ratio[0], 1e-9)
	assert.True(t, math.IsNaN(ratio[1]))

	assert.Contains(t, out.Names(), FeatureHeatIndex)
	assert.Contains(t, out.Names(), FeatureWetBulb)
	assert.NotContains(t, df.Names(), FeatureBMI)
}

func TestAddDerivedFeaturesSkipsMissingSources(t *testing.T) {
	df := dataframe.New(
		series.New([]float64{21}, series.Float, "temperatura"),
		series.New([]float64{70}, series.Float, "peso"),
	)
	fc, err := NewFeatureCalculator([]string{"bmi", "bmi_class", "heat_index"})
	require.NoError(t, err)

	out := fc.Add(df)
	assert.Equal(t, []string{"temperatura", "peso"}, out.Names())

	// umidade 作为湿度列的备选
	df = df.Mutate(series.New([]float64{50}, series.Float, "umidade"))
	out = fc.Add(df)
	assert.Contains(t, out.Names(), FeatureHeatIndex)
}

func TestUnknownFeatureTag(t *testing.T) {
	_, err := NewFeatureCalculator([]string{"imc", "utci_plus"})
	assert.ErrorIs(t, err, ErrUnknownFeature)
}
