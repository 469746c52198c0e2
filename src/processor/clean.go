package processor

import (
	"strconv"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Cleaner 按值替换(精确匹配)，作用于所有列
type Cleaner struct {
	subs map[string]*string
}

// NewCleaner 替换表中 nil 表示替换为缺失
func NewCleaner(subs map[string]*string) *Cleaner {
	copied := make(map[string]*string, len(subs))
	for k, v := range subs {
		if v != nil {
			s := *v
			v = &s
		}
		copied[k] = v
	}
	return &Cleaner{subs: copied}
}

// Clean 返回替换后的新表
func (c *Cleaner) Clean(df dataframe.DataFrame) dataframe.DataFrame {
	if len(c.subs) == 0 {
		return df.Copy()
	}
	out := df.Copy()
	for _, name := range out.Names() {
		s, changed := c.cleanSeries(out.Col(name))
		if !changed {
			continue
		}
		out = out.Mutate(s)
	}
	return out
}

func (c *Cleaner) cleanSeries(s series.Series) (series.Series, bool) {
	n := s.Len()
	values := make([]interface{}, n)
	texts := make([]interface{}, n)
	changed := false
	asString := false

	for i := 0; i < n; i++ {
		e := s.Elem(i)
		if utils.IsMissing(e) {
			continue
		}
		key := utils.ValueString(e)
		repl, ok := c.subs[key]
		if !ok {
			values[i] = e.Val()
			texts[i] = key
			continue
		}
		changed = true
		if repl == nil {
			continue
		}
		v, fits := literalFor(*repl, s.Type())
		if !fits {
			asString = true
		}
		values[i] = v
		texts[i] = *repl
	}

	if !changed {
		return s, false
	}
	// 替换值与列类型不兼容时整列转为字符串
	if asString {
		return series.New(texts, series.String, s.Name), true
	}
	return series.New(values, s.Type(), s.Name), true
}

// literalFor 将文本字面量转换为列类型的值
func literalFor(lit string, t series.Type) (interface{}, bool) {
	switch t {
	case series.Float:
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return lit, false
		}
		return f, true
	case series.Int:
		i, err := strconv.Atoi(lit)
		if err != nil {
			return lit, false
		}
		return i, true
	case series.Bool:
		b, err := strconv.ParseBool(lit)
		if err != nil {
			return lit, false
		}
		return b, true
	default:
		return lit, true
	}
}
