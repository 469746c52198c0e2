package processor

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Strategy 缺失值填充策略(封闭集合)
type Strategy interface {
	fmt.Stringer
	isStrategy()
}

type (
	Median   struct{}
	Mean     struct{}
	Mode     struct{}
	Forward  struct{}
	Backward struct{}
	// Leave 保持原样
	Leave    struct{}
	Constant struct{ Value string }
	// RollingInterpolate 先用尾随窗口均值填充，再线性插值
	RollingInterpolate struct{ Window int }
)

func (Median) isStrategy()             {}
func (Mean) isStrategy()               {}
func (Mode) isStrategy()               {}
func (Forward) isStrategy()            {}
func (Backward) isStrategy()           {}
func (Leave) isStrategy()              {}
func (Constant) isStrategy()           {}
func (RollingInterpolate) isStrategy() {}

func (Median) String() string     { return "median" }
func (Mean) String() string       { return "mean" }
func (Mode) String() string       { return "mode" }
func (Forward) String() string    { return "forward" }
func (Backward) String() string   { return "backward" }
func (Leave) String() string      { return "none" }
func (c Constant) String() string { return "constant:" + c.Value }
func (r RollingInterpolate) String() string {
	return "rolling_mean_" + strconv.Itoa(r.Window)
}

// ParseStrategy 解析策略名
// median|mean|mode|zero|forward|ffill|backward|bfill|none|constant:<值>|rolling_mean_<N>
func ParseStrategy(tag string) (Strategy, error) {
	raw := strings.TrimSpace(tag)
	t := strings.ToLower(raw)
	switch t {
	case "median":
		return Median{}, nil
	case "mean":
		return Mean{}, nil
	case "mode", "most_frequent":
		return Mode{}, nil
	case "zero":
		return Constant{Value: "0"}, nil
	case "forward", "ffill":
		return Forward{}, nil
	case "backward", "bfill":
		return Backward{}, nil
	case "none", "leave":
		return Leave{}, nil
	}
	if strings.HasPrefix(t, "constant:") {
		return Constant{Value: raw[len("constant:"):]}, nil
	}
	for _, prefix := range []string{"rolling_mean_", "rolling-mean-"} {
		if strings.HasPrefix(t, prefix) {
			n, err := strconv.Atoi(t[len(prefix):])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("%w: %q (window must be a positive integer)", ErrUnknownStrategy, tag)
			}
			return RollingInterpolate{Window: n}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, tag)
}

// numericOnly 只对数值列有意义的策略
func numericOnly(st Strategy) bool {
	switch st.(type) {
	case Median, Mean, RollingInterpolate:
		return true
	}
	return false
}

// Imputer 按列策略填充缺失值，未列出的列按类型使用默认策略
type Imputer struct {
	spec               map[string]Strategy
	defaultNumeric     Strategy
	defaultCategorical Strategy
	skip               map[string]struct{}
}

// NewImputer skip 中的列不使用默认策略(显式配置仍然生效)
func NewImputer(spec map[string]Strategy, defaultNumeric, defaultCategorical Strategy, skip ...string) *Imputer {
	im := &Imputer{
		spec:               make(map[string]Strategy, len(spec)),
		defaultNumeric:     defaultNumeric,
		defaultCategorical: defaultCategorical,
		skip:               make(map[string]struct{}, len(skip)),
	}
	for col, st := range spec {
		im.spec[col] = st
	}
	for _, col := range skip {
		im.skip[col] = struct{}{}
	}
	if im.defaultNumeric == nil {
		im.defaultNumeric = Median{}
	}
	if im.defaultCategorical == nil {
		im.defaultCategorical = Mode{}
	}
	return im
}

// Impute 返回填充后的新表和每列填充的个数
func (im *Imputer) Impute(df dataframe.DataFrame) (dataframe.DataFrame, map[string]int) {
	out := df.Copy()
	counts := make(map[string]int)

	for _, col := range out.Names() {
		s := out.Col(col)
		filled, n := imputeSeries(s, im.strategyFor(col, s))
		if n == 0 {
			continue
		}
		out = out.Mutate(filled)
		counts[col] = n
	}
	return out, counts
}

// strategyFor 实际用于该列的策略
func (im *Imputer) strategyFor(col string, s series.Series) Strategy {
	numeric := utils.IsNumeric(s)
	st, explicit := im.spec[col]
	if !explicit {
		if _, skip := im.skip[col]; skip {
			return Leave{}
		}
		if numeric {
			st = im.defaultNumeric
		} else {
			st = im.defaultCategorical
		}
	}

	if numeric {
		// 未配置的数值列遇到非数值常量时用 0 填充
		if c, ok := st.(Constant); ok && !explicit {
			if _, isNum := ParseDecimal(c.Value); !isNum {
				return Constant{Value: "0"}
			}
		}
		return st
	}
	if numericOnly(st) {
		return Mode{}
	}
	return st
}

func imputeSeries(s series.Series, st Strategy) (series.Series, int) {
	missing := utils.MissingCount(s)
	if missing == 0 || missing == s.Len() {
		return s, 0
	}
	if _, ok := st.(Leave); ok {
		return s, 0
	}

	var out series.Series
	if utils.IsNumeric(s) {
		out = imputeNumeric(s, st)
	} else {
		out = imputeText(s, st)
	}
	return out, missing - utils.MissingCount(out)
}

func imputeNumeric(s series.Series, st Strategy) series.Series {
	vals := utils.Floats(s)
	obs := utils.Observed(vals)

	switch st := st.(type) {
	case Median:
		fillMissing(vals, median(obs))
	case Mean:
		fillMissing(vals, mean(obs))
	case Mode:
		fillMissing(vals, modeFloat(vals))
	case Constant:
		f, ok := ParseDecimal(st.Value)
		if !ok {
			// 非数值常量，整列转为字符串
			return imputeText(s, st)
		}
		fillMissing(vals, f)
	case Forward:
		forwardFill(vals)
		backwardFill(vals)
	case Backward:
		backwardFill(vals)
		forwardFill(vals)
	case RollingInterpolate:
		vals = rollingInterpolate(vals, st.Window)
	}
	return numericSeries(vals, s.Type(), s.Name)
}

// numericSeries 整数列在填充值全为整数时保持整数类型，否则转为浮点
func numericSeries(vals []float64, t series.Type, name string) series.Series {
	if t == series.Int {
		ints := make([]interface{}, len(vals))
		integral := true
		for i, v := range vals {
			if math.IsNaN(v) {
				continue
			}
			if !isIntegral(v) {
				integral = false
				break
			}
			ints[i] = int(v)
		}
		if integral {
			return series.New(ints, series.Int, name)
		}
	}
	return utils.FloatSeries(vals, name)
}

func fillMissing(vals []float64, fill float64) {
	if math.IsNaN(fill) {
		return
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = fill
		}
	}
}

// modeFloat 出现次数最多的值，次数相同时取最先出现的
func modeFloat(vals []float64) float64 {
	counts := make(map[float64]int)
	best, bestCount := math.NaN(), 0
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		counts[v]++
	}
	for _, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if c := counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}

func forwardFill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
			continue
		}
		last = v
	}
}

func backwardFill(vals []float64) {
	next := math.NaN()
	for i := len(vals) - 1; i >= 0; i-- {
		if math.IsNaN(vals[i]) {
			vals[i] = next
			continue
		}
		next = vals[i]
	}
}

// rollingInterpolate 缺失位置取尾随窗口 [i-window+1, i] 内已观测值的均值(至少一个)，
// 剩余缺口线性插值，首尾缺口用最近的值填充
func rollingInterpolate(vals []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(vals))
	copy(out, vals)

	for i, v := range vals {
		if !math.IsNaN(v) {
			continue
		}
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		sum, cnt := 0.0, 0
		for j := lo; j <= i; j++ {
			if !math.IsNaN(vals[j]) {
				sum += vals[j]
				cnt++
			}
		}
		if cnt > 0 {
			out[i] = sum / float64(cnt)
		}
	}

	interpolateLinear(out)
	return out
}

func interpolateLinear(vals []float64) {
	prev := -1
	for i, v := range vals {
		if math.IsNaN(v) {
			continue
		}
		if prev >= 0 && i-prev > 1 {
			step := (v - vals[prev]) / float64(i-prev)
			for j := prev + 1; j < i; j++ {
				vals[j] = vals[prev] + step*float64(j-prev)
			}
		}
		prev = i
	}
	// 尾部沿用最后一个值，头部沿用第一个值
	forwardFill(vals)
	backwardFill(vals)
}

func imputeText(s series.Series, st Strategy) series.Series {
	n := s.Len()
	vals := make([]string, n)
	present := make([]bool, n)
	for i := 0; i < n; i++ {
		if e := s.Elem(i); !utils.IsMissing(e) {
			vals[i] = utils.ValueString(e)
			present[i] = true
		}
	}

	switch st := st.(type) {
	case Constant:
		for i := range vals {
			if !present[i] {
				vals[i], present[i] = st.Value, true
			}
		}
	case Forward:
		fillTextForward(vals, present)
		fillTextBackward(vals, present)
	case Backward:
		fillTextBackward(vals, present)
		fillTextForward(vals, present)
	default:
		if fill, ok := modeText(vals, present); ok {
			for i := range vals {
				if !present[i] {
					vals[i], present[i] = fill, true
				}
			}
		}
	}

	values := make([]interface{}, n)
	for i := range vals {
		if present[i] {
			values[i] = vals[i]
		}
	}
	return series.New(values, series.String, s.Name)
}

func modeText(vals []string, present []bool) (string, bool) {
	counts := make(map[string]int)
	for i, v := range vals {
		if present[i] {
			counts[v]++
		}
	}
	best, bestCount := "", 0
	for i, v := range vals {
		if present[i] && counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best, bestCount > 0
}

func fillTextForward(vals []string, present []bool) {
	last, ok := "", false
	for i := range vals {
		if present[i] {
			last, ok = vals[i], true
			continue
		}
		if ok {
			vals[i], present[i] = last, true
		}
	}
}

func fillTextBackward(vals []string, present []bool) {
	next, ok := "", false
	for i := len(vals) - 1; i >= 0; i-- {
		if present[i] {
			next, ok = vals[i], true
			continue
		}
		if ok {
			vals[i], present[i] = next, true
		}
	}
}
