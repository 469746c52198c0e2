package processor

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ColumnKind 列的语义类型
type ColumnKind int

const (
	KindString ColumnKind = iota
	KindDate
	KindTime
	KindFloat
	KindInt
)

func (k ColumnKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	default:
		return "string"
	}
}

// ParseColumnKind 解析配置中的类型名
func ParseColumnKind(s string) (ColumnKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "date", "datetime":
		return KindDate, nil
	case "time":
		return KindTime, nil
	case "float", "float64":
		return KindFloat, nil
	case "int", "int64", "integer":
		return KindInt, nil
	case "string", "categorical", "category":
		return KindString, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// TypeSpec 列名 -> 语义类型
type TypeSpec map[string]ColumnKind

// ParseTypeSpec 解析类型配置，所有错误合并返回
func ParseTypeSpec(raw map[string]string) (TypeSpec, error) {
	spec := make(TypeSpec, len(raw))
	var errs []error
	for col, kind := range raw {
		k, err := ParseColumnKind(kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("column %s: %w", col, err))
			continue
		}
		spec[col] = k
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return spec, nil
}

// Columns 某一类型的列，按列名排序
func (ts TypeSpec) Columns(kind ColumnKind) []string {
	var cols []string
	for col, k := range ts {
		if k == kind {
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}

const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04:05"
	ClockLayout    = "15:04:05"
)

// 日优先的日期格式，依次尝试
var dateLayouts = []string{
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006 15:04:05",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	time.RFC3339,
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
}

// excel 序列日期的合理范围(1900-01-01 .. 9999-12-31)
const (
	minExcelSerial = 1
	maxExcelSerial = 2958465
)

// Coercer 按类型配置转换列，转换失败的值变为缺失
type Coercer struct {
	spec TypeSpec
}

func NewCoercer(spec TypeSpec) *Coercer {
	return &Coercer{spec: spec}
}

// Coerce 只处理同时存在于表和类型配置中的列
func (c *Coercer) Coerce(df dataframe.DataFrame) dataframe.DataFrame {
	out := df.Copy()

	cols := make([]string, 0, len(c.spec))
	for col := range c.spec {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	for _, col := range cols {
		if !utils.HasColumn(out, col) {
			continue
		}
		out = out.Mutate(coerceSeries(out.Col(col), c.spec[col]))
	}
	return out
}

func coerceSeries(s series.Series, kind ColumnKind) series.Series {
	n := s.Len()
	values := make([]interface{}, n)

	switch kind {
	case KindFloat:
		if s.Type() == series.Float {
			return s.Copy()
		}
		floats := make([]float64, n)
		for i := 0; i < n; i++ {
			floats[i] = math.NaN()
			if e := s.Elem(i); !utils.IsMissing(e) {
				if f, ok := ParseDecimal(utils.ValueString(e)); ok {
					floats[i] = f
				}
			}
		}
		return series.New(floats, series.Float, s.Name)

	case KindInt:
		if s.Type() == series.Int {
			return s.Copy()
		}
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !utils.IsMissing(e) {
				if v, ok := ParseInteger(utils.ValueString(e)); ok {
					values[i] = v
				}
			}
		}
		return series.New(values, series.Int, s.Name)

	case KindDate:
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !utils.IsMissing(e) {
				if t, hasClock, ok := ParseDate(utils.ValueString(e)); ok {
					if hasClock {
						values[i] = t.Format(DateTimeLayout)
					} else {
						values[i] = t.Format(DateLayout)
					}
				}
			}
		}
		return series.New(values, series.String, s.Name)

	case KindTime:
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !utils.IsMissing(e) {
				if t, ok := ParseClock(utils.ValueString(e)); ok {
					values[i] = t.Format(ClockLayout)
				}
			}
		}
		return series.New(values, series.String, s.Name)

	default:
		for i := 0; i < n; i++ {
			if e := s.Elem(i); !utils.IsMissing(e) {
				values[i] = utils.ValueString(e)
			}
		}
		return series.New(values, series.String, s.Name)
	}
}

// ParseDecimal 支持小数逗号: "23,5" -> 23.5
func ParseDecimal(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// ParseInteger 可空整数，小数值视为失败(不取整)
func ParseInteger(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

// ParseDate 日优先解析日期，hasClock 表示带有非零的时刻
func ParseDate(raw string) (t time.Time, hasClock bool, ok bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, hasTimeOfDay(t), true
		}
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= minExcelSerial && f <= maxExcelSerial {
		t := ExcelSerialToTime(f)
		return t, hasTimeOfDay(t), true
	}
	return time.Time{}, false, false
}

// ParseClock 先尝试 HH:MM:SS，再尝试 HH:MM；也接受完整日期时间和 excel 的日内小数
func ParseClock(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, _, ok := ParseDate(s); ok && strings.ContainsAny(s, ":T") {
		return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f < 1 {
		secs := int(math.Round(f * 86400))
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(secs) * time.Second), true
	}
	return time.Time{}, false
}

// ExcelSerialToTime excel序列日期转time.Time
// 基准日 1899-12-30 已经抵消了 1900 年闰年错误(仅对 60 以后的序列号有效)
func ExcelSerialToTime(serial float64) time.Time {
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	days := int(serial)
	fraction := serial - float64(days)
	secs := int(math.Round(fraction * 86400))
	return base.AddDate(0, 0, days).Add(time.Duration(secs) * time.Second)
}

func hasTimeOfDay(t time.Time) bool {
	return t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0
}
