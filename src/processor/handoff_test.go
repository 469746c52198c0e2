package processor

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTrainer struct {
	target string
	cols   []string
	err    error
}

func (f *fakeTrainer) Compare(_ context.Context, features dataframe.DataFrame, target string) (dataframe.DataFrame, error) {
	f.target = target
	f.cols = features.Names()
	if f.err != nil {
		return dataframe.DataFrame{}, f.err
	}
	return dataframe.New(
		series.New([]string{"rf", "lr"}, series.String, "model"),
		series.New([]float64{0.8, 0.6}, series.Float, "score"),
	), nil
}

func handoffFrame() dataframe.DataFrame {
	return dataframe.New(
		series.New([]float64{1, 2, 3}, series.Float, "tmedia_norm"),
		series.New([]int{0, 1, 0}, series.Int, "sexo_cod"),
		series.New([]string{"a", "b", "c"}, series.String, "sexo"),
		series.New([]int{1, 2, 3}, series.Int, "Sensacao_Termica"),
	)
}

func TestResolveTarget(t *testing.T) {
	col, err := ResolveTarget(handoffFrame(), "sensacao-termica")
	require.NoError(t, err)
	assert.Equal(t, "Sensacao_Termica", col)

	_, err = ResolveTarget(handoffFrame(), "conforto")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}

func TestFeatureMatrix(t *testing.T) {
	x, names, y, err := FeatureMatrix(handoffFrame(), "sensacao_termica")
	require.NoError(t, err)

	r, c := x.Dims()
	assert.Equal(t, 3, r)
	assert.Equal(t, 2, c)
	assert.Equal(t, []string{"tmedia_norm", "sexo_cod"}, names)
	assert.Equal(t, []float64{1, 2, 3}, y)
	assert.Equal(t, 1.0, x.At(1, 1))

	_, _, _, err = FeatureMatrix(handoffFrame(), "sexo")
	assert.Error(t, err)
}

func TestHandoff(t *testing.T) {
	tr := &fakeTrainer{}
	ranking, err := Handoff(context.Background(), tr, handoffFrame(), "SENSACAO_TERMICA")
	require.NoError(t, err)
	assert.Equal(t, "Sensacao_Termica", tr.target)
	assert.Len(t, tr.cols, 4)
	assert.Equal(t, 2, ranking.Nrow())

	tr.err = errors.New("boom")
	_, err = Handoff(context.Background(), tr, handoffFrame(), "sensacao_termica")
	assert.ErrorIs(t, err, tr.err)

	_, err = Handoff(context.Background(), tr, handoffFrame(), "missing")
	assert.ErrorIs(t, err, ErrTargetNotFound)
}
