package processor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Artifacts 一次运行产生的可回放参数
type Artifacts struct {
	RunID           string              `json:"run_id"`
	LabelMaps       map[string]LabelMap `json:"label_maps"`
	EncodingSuffix  string              `json:"encoding_suffix"`
	MissingCategory string              `json:"missing_category"`
	OneHotColumns   map[string][]string `json:"onehot_columns,omitempty"`
	Scalers         *ScalerArtifact     `json:"scaler_params,omitempty"`
	Imputed         map[string]int      `json:"imputed,omitempty"`
}

// Bundle 按类别组织的参数集合，交给实验追踪或与模型一起保存
func (a *Artifacts) Bundle() map[string]interface{} {
	return map[string]interface{}{
		"label_maps":     a.LabelMaps,
		"scaler_params":  a.Scalers,
		"onehot_columns": a.OneHotColumns,
		"imputed":        a.Imputed,
	}
}

// Apply 在新数据上回放编码和标准化(不重新拟合)
// 未见过的类别编码为 UnknownCode，未见过的分组标准化结果为缺失
func (a *Artifacts) Apply(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	out := df.Copy()

	for _, col := range sortedKeys(a.LabelMaps) {
		if !utils.HasColumn(out, col) {
			continue
		}
		out = out.Mutate(a.replayLabels(out.Col(col), a.LabelMaps[col]))
	}

	for _, col := range sortedKeys(a.OneHotColumns) {
		if !utils.HasColumn(out, col) {
			continue
		}
		names := a.OneHotColumns[col]
		cats := make([]string, len(names))
		for i, name := range names {
			cats[i] = strings.TrimPrefix(name, col+"_")
		}
		cols, _ := indicatorColumns(out.Col(col), cats)
		for _, s := range cols {
			out = out.Mutate(s)
		}
	}

	if a.Scalers == nil {
		return out, out.Err
	}
	var err error
	out, err = a.Scalers.apply(out)
	if err != nil {
		return df, err
	}
	return out, out.Err
}

func (a *Artifacts) replayLabels(s series.Series, inverse LabelMap) series.Series {
	codes := make(map[string]int, len(inverse))
	for code, cat := range inverse {
		codes[cat] = code
	}
	vals := make([]int, s.Len())
	for i := 0; i < s.Len(); i++ {
		e := s.Elem(i)
		cat := a.MissingCategory
		if !utils.IsMissing(e) {
			cat = utils.ValueString(e)
		}
		code, ok := codes[cat]
		if !ok {
			code = UnknownCode
		}
		vals[i] = code
	}
	return series.New(vals, series.Int, s.Name+a.EncodingSuffix)
}

func (sa *ScalerArtifact) apply(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	var (
		out dataframe.DataFrame
		err error
	)
	if sa.GroupColumn == "" {
		out = sa.applyGlobal(df)
	} else if out, err = sa.applyGroups(df); err != nil {
		return df, err
	}
	return scaleRows(out, sa.RowNorm, sa.Suffix), nil
}

func (sa *ScalerArtifact) applyGlobal(df dataframe.DataFrame) dataframe.DataFrame {
	out := df
	for _, col := range sortedKeys(sa.Global) {
		if !utils.HasColumn(out, col) {
			continue
		}
		p := sa.Global[col]
		vals := utils.Floats(out.Col(col))
		for i, v := range vals {
			vals[i] = p.Transform(v)
		}
		out = out.Mutate(utils.FloatSeries(vals, col+sa.Suffix))
	}
	return out
}

// applyGroups 未见过的分组结果为缺失
func (sa *ScalerArtifact) applyGroups(df dataframe.DataFrame) (dataframe.DataFrame, error) {
	out := df
	if !utils.HasColumn(out, sa.GroupColumn) {
		return df, fmt.Errorf("group column %q not in table", sa.GroupColumn)
	}
	keys := groupKeys(out.Col(sa.GroupColumn))

	cols := make(map[string]struct{})
	for _, params := range sa.Groups {
		for col := range params {
			cols[col] = struct{}{}
		}
	}
	for _, col := range sortedKeys(cols) {
		if !utils.HasColumn(out, col) {
			continue
		}
		vals := utils.Floats(out.Col(col))
		for i, v := range vals {
			p, ok := sa.Groups[keys[i]][col]
			if !ok {
				vals[i] = math.NaN()
				continue
			}
			vals[i] = p.Transform(v)
		}
		out = out.Mutate(utils.FloatSeries(vals, col+sa.Suffix))
	}
	return out, nil
}

func groupKeys(s series.Series) []string {
	keys := make([]string, s.Len())
	for i := range keys {
		keys[i] = UnknownGroup
		if e := s.Elem(i); !utils.IsMissing(e) {
			keys[i] = utils.ValueString(e)
		}
	}
	return keys
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
