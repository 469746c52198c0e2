package processor

import (
	"fmt"
	"sort"
	"strings"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// EncodingMethod 类别编码方式
type EncodingMethod int

const (
	EncodeLabel EncodingMethod = iota
	EncodeOneHot
	// EncodeDummy 即 drop_first 的 one-hot
	EncodeDummy
)

func (m EncodingMethod) String() string {
	switch m {
	case EncodeOneHot:
		return "onehot"
	case EncodeDummy:
		return "dummy"
	default:
		return "label"
	}
}

func ParseEncodingMethod(s string) (EncodingMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "label":
		return EncodeLabel, nil
	case "onehot", "one_hot", "one-hot":
		return EncodeOneHot, nil
	case "dummy":
		return EncodeDummy, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
}

// LabelMap 编码 -> 原始类别
type LabelMap map[int]string

// UnknownCode 回放时未见过的类别
const UnknownCode = -1

// Encoder 类别列编码，原列保留
type Encoder struct {
	Method          EncodingMethod
	Columns         []string
	Suffix          string
	DropFirst       bool
	MissingCategory string
}

// Encode 返回新表、label 编码的反向映射和 one-hot 生成的列名
func (e Encoder) Encode(df dataframe.DataFrame) (dataframe.DataFrame, map[string]LabelMap, map[string][]string) {
	out := df.Copy()
	labels := make(map[string]LabelMap)
	onehot := make(map[string][]string)

	for _, col := range e.Columns {
		if !utils.HasColumn(out, col) {
			continue
		}
		switch e.Method {
		case EncodeLabel:
			s, inverse := e.labelEncode(out.Col(col))
			out = out.Mutate(s)
			labels[col] = inverse
		default:
			cols, names := e.oneHot(out.Col(col))
			for _, s := range cols {
				out = out.Mutate(s)
			}
			onehot[col] = names
		}
	}
	return out, labels, onehot
}

func (e Encoder) categoryOf(el series.Element) string {
	if utils.IsMissing(el) {
		return e.MissingCategory
	}
	return utils.ValueString(el)
}

// labelEncode 按首次出现顺序分配编码，缺失值先映射为缺失类别
func (e Encoder) labelEncode(s series.Series) (series.Series, LabelMap) {
	codes := make(map[string]int)
	inverse := make(LabelMap)
	out := make([]int, s.Len())
	for i := 0; i < s.Len(); i++ {
		cat := e.categoryOf(s.Elem(i))
		code, ok := codes[cat]
		if !ok {
			code = len(codes)
			codes[cat] = code
			inverse[code] = cat
		}
		out[i] = code
	}
	return series.New(out, series.Int, s.Name+e.Suffix), inverse
}

// oneHot 类别按字典序展开为 <列>_<类别> 的 0/1 列，缺失行全为 0
func (e Encoder) oneHot(s series.Series) ([]series.Series, []string) {
	seen := make(map[string]bool)
	var cats []string
	for i := 0; i < s.Len(); i++ {
		el := s.Elem(i)
		if utils.IsMissing(el) {
			continue
		}
		v := utils.ValueString(el)
		if !seen[v] {
			seen[v] = true
			cats = append(cats, v)
		}
	}
	sort.Strings(cats)
	if (e.DropFirst || e.Method == EncodeDummy) && len(cats) > 0 {
		cats = cats[1:]
	}
	return indicatorColumns(s, cats)
}

func indicatorColumns(s series.Series, cats []string) ([]series.Series, []string) {
	cols := make([]series.Series, 0, len(cats))
	names := make([]string, 0, len(cats))
	for _, cat := range cats {
		name := s.Name + "_" + cat
		vals := make([]int, s.Len())
		for i := 0; i < s.Len(); i++ {
			el := s.Elem(i)
			if !utils.IsMissing(el) && utils.ValueString(el) == cat {
				vals[i] = 1
			}
		}
		cols = append(cols, series.New(vals, series.Int, name))
		names = append(names, name)
	}
	return cols, names
}
