package processor

import (
	"math"
	"testing"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = math.NaN()

func floatsOf(t *testing.T, df dataframe.DataFrame, col string) []float64 {
	t.Helper()
	require.Contains(t, df.Names(), col)
	return utils.Floats(df.Col(col))
}

func missingOf(t *testing.T, df dataframe.DataFrame, col string) []bool {
	t.Helper()
	require.Contains(t, df.Names(), col)
	s := df.Col(col)
	out := make([]bool, s.Len())
	for i := range out {
		out[i] = utils.IsMissing(s.Elem(i))
	}
	return out
}

// assertFloats NaN 与 NaN 视为相等
func assertFloats(t *testing.T, want, got []float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		if math.IsNaN(want[i]) {
			assert.True(t, math.IsNaN(got[i]), "index %d: want NaN, got %v", i, got[i])
			continue
		}
		assert.InDelta(t, want[i], got[i], 1e-9, "index %d", i)
	}
}
