package processor

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"gonum.org/v1/gonum/floats"
)

// Method 标准化方法
type Method int

const (
	MethodStandard Method = iota
	MethodMinMax
	MethodRobust
	MethodMaxAbs
	MethodL2
)

func (m Method) String() string {
	switch m {
	case MethodMinMax:
		return "minmax"
	case MethodRobust:
		return "robust"
	case MethodMaxAbs:
		return "maxabs"
	case MethodL2:
		return "l2"
	default:
		return "standard"
	}
}

// ParseMethod 未知方法名返回错误，不做默认回退
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard", "zscore":
		return MethodStandard, nil
	case "minmax", "min_max":
		return MethodMinMax, nil
	case "robust":
		return MethodRobust, nil
	case "maxabs", "max":
		return MethodMaxAbs, nil
	case "l2", "unit":
		return MethodL2, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// ScalerParams 单列(或单组单列)的拟合参数
type ScalerParams struct {
	Method string  `json:"method"`
	Mean   float64 `json:"mean,omitempty"`
	Std    float64 `json:"std,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Median float64 `json:"median,omitempty"`
	IQR    float64 `json:"iqr,omitempty"`
	MaxAbs float64 `json:"max_abs,omitempty"`
	Count  int     `json:"count"`
}

// FitScaler 在非缺失值上拟合
// l2 按行缩放，没有按列拟合的参数，见 scaleRows
func FitScaler(m Method, obs []float64) ScalerParams {
	p := ScalerParams{Method: m.String(), Count: len(obs)}
	if len(obs) == 0 {
		return p
	}
	switch m {
	case MethodStandard:
		p.Mean = mean(obs)
		if std := sampleStd(obs); !math.IsNaN(std) {
			p.Std = std
		}
	case MethodMinMax:
		p.Min, p.Max = floats.Min(obs), floats.Max(obs)
	case MethodRobust:
		p.Median = median(obs)
		p.IQR = percentile(obs, 75) - percentile(obs, 25)
	case MethodMaxAbs:
		p.MaxAbs = maxAbs(obs)
	}
	return p
}

// Transform 缺失值保持缺失；零方差(零尺度)时使用固定回退
func (p ScalerParams) Transform(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	switch p.Method {
	case "minmax":
		if r := p.Max - p.Min; r != 0 {
			return (v - p.Min) / r
		}
		return 0
	case "robust":
		scale := p.IQR
		if scale == 0 {
			scale = 1
		}
		return (v - p.Median) / scale
	case "maxabs":
		scale := p.MaxAbs
		if scale == 0 {
			scale = 1
		}
		return v / scale
	case "l2":
		return v
	default:
		if p.Std == 0 {
			return 0
		}
		return (v - p.Mean) / p.Std
	}
}

// ScalerArtifact 标准化参数，按组时 Groups[组][列]，否则 Global[列]
type ScalerArtifact struct {
	GroupColumn string                             `json:"group_column,omitempty"`
	Suffix      string                             `json:"suffix"`
	Global      map[string]ScalerParams            `json:"global,omitempty"`
	Groups      map[string]map[string]ScalerParams `json:"groups,omitempty"`
	// RowNorm 按行缩放为单位 L2 范数的列
	RowNorm []string `json:"row_norm,omitempty"`
}

// Normalizer 数值列标准化，可按分组列独立拟合
type Normalizer struct {
	Method Method
	// Columns 为 nil 时处理所有数值列
	Columns []string
	// Methods 非空时只处理其中的列，每列使用各自的方法
	Methods     map[string]Method
	GroupColumn string
	Suffix      string
}

func (n Normalizer) methodFor(col string) Method {
	if m, ok := n.Methods[col]; ok {
		return m
	}
	return n.Method
}

// columns 需要标准化的列: 存在且为数值类型
func (n Normalizer) columns(df dataframe.DataFrame) []string {
	var candidates []string
	switch {
	case len(n.Methods) > 0:
		for col := range n.Methods {
			candidates = append(candidates, col)
		}
		sort.Strings(candidates)
	case n.Columns == nil:
		candidates = df.Names()
	default:
		candidates = n.Columns
	}

	var cols []string
	for _, col := range candidates {
		if utils.HasColumn(df, col) && utils.IsNumeric(df.Col(col)) {
			cols = append(cols, col)
		}
	}
	return cols
}

// Normalize 返回新表和拟合参数
func (n Normalizer) Normalize(df dataframe.DataFrame) (dataframe.DataFrame, *ScalerArtifact) {
	out := df.Copy()
	art := &ScalerArtifact{Suffix: n.Suffix}
	cols := n.columns(out)
	if len(cols) == 0 {
		return out, art
	}

	grouped := n.GroupColumn != "" && utils.HasColumn(out, n.GroupColumn)
	var keys []string
	var groups map[string][]int
	if grouped {
		art.GroupColumn = n.GroupColumn
		art.Groups = make(map[string]map[string]ScalerParams)
		keys, groups = groupIndices(out, n.GroupColumn)
	} else {
		art.Global = make(map[string]ScalerParams)
	}

	for _, col := range cols {
		m := n.methodFor(col)
		if m == MethodL2 {
			art.RowNorm = append(art.RowNorm, col)
			continue
		}
		vals := utils.Floats(out.Col(col))
		res := make([]float64, len(vals))

		if !grouped {
			p := FitScaler(m, utils.Observed(vals))
			for i, v := range vals {
				res[i] = p.Transform(v)
			}
			art.Global[col] = p
		} else {
			for _, key := range keys {
				idx := groups[key]
				block := make([]float64, 0, len(idx))
				for _, i := range idx {
					if !math.IsNaN(vals[i]) {
						block = append(block, vals[i])
					}
				}
				p := FitScaler(m, block)
				for _, i := range idx {
					res[i] = p.Transform(vals[i])
				}
				if art.Groups[key] == nil {
					art.Groups[key] = make(map[string]ScalerParams)
				}
				art.Groups[key][col] = p
			}
		}
		out = out.Mutate(utils.FloatSeries(res, col+n.Suffix))
	}

	// 行范数只依赖本行，分组与否结果相同
	out = scaleRows(out, art.RowNorm, n.Suffix)
	return out, art
}

// scaleRows 每行在 cols 上缩放为单位 L2 范数
// 缺失值不计入范数并保持缺失，零范数行保持原值
func scaleRows(df dataframe.DataFrame, cols []string, suffix string) dataframe.DataFrame {
	var present []string
	for _, col := range cols {
		if utils.HasColumn(df, col) {
			present = append(present, col)
		}
	}
	if len(present) == 0 {
		return df
	}

	vals := make([][]float64, len(present))
	for j, col := range present {
		vals[j] = utils.Floats(df.Col(col))
	}
	row := make([]float64, 0, len(present))
	for i := 0; i < df.Nrow(); i++ {
		row = row[:0]
		for j := range present {
			if !math.IsNaN(vals[j][i]) {
				row = append(row, vals[j][i])
			}
		}
		if len(row) == 0 {
			continue
		}
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		for j := range present {
			vals[j][i] /= norm
		}
	}

	out := df
	for j, col := range present {
		out = out.Mutate(utils.FloatSeries(vals[j], col+suffix))
	}
	return out
}

// groupIndices 分组键按首次出现排序，缺失键归入 UnknownGroup
func groupIndices(df dataframe.DataFrame, col string) ([]string, map[string][]int) {
	s := df.Col(col)
	var keys []string
	groups := make(map[string][]int)
	for i := 0; i < s.Len(); i++ {
		key := UnknownGroup
		if e := s.Elem(i); !utils.IsMissing(e) {
			key = utils.ValueString(e)
		}
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], i)
	}
	return keys, groups
}
