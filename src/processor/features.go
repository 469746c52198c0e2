package processor

import (
	"fmt"
	"math"
	"strings"

	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// 衍生特征的输出列名
const (
	FeatureBMI       = "imc"
	FeatureBMIClass  = "imc_classe"
	FeatureHeatIndex = "heat_index"
	FeatureDewPoint  = "dew_point"
	FeatureWetBulb   = "wet_bulb"
	FeatureTTimesU   = "t*u"
	FeatureTOverU    = "t/u"
)

// TimesUAlias t*u 的别名列
const TimesUAlias = "t_u"

var featureAliases = map[string]string{
	"imc":        FeatureBMI,
	"bmi":        FeatureBMI,
	"imc_classe": FeatureBMIClass,
	"bmi_class":  FeatureBMIClass,
	"heat_index": FeatureHeatIndex,
	"dew_point":  FeatureDewPoint,
	"wet_bulb":   FeatureWetBulb,
	"tu_stull":   FeatureWetBulb,
	"t*u":        FeatureTTimesU,
	"t_u":        FeatureTTimesU,
	"t/u":        FeatureTOverU,
}

// 计算顺序固定: imc_classe 依赖 imc
var featureOrder = []string{
	FeatureBMI,
	FeatureBMIClass,
	FeatureHeatIndex,
	FeatureDewPoint,
	FeatureWetBulb,
	FeatureTTimesU,
	FeatureTOverU,
}

// BMI 分级
const (
	BMIUnderweight = "underweight"
	BMINormal      = "normal"
	BMIOverweight  = "overweight"
	BMIObesity1    = "obesity_1"
	BMIObesity2    = "obesity_2"
	BMIObesity3    = "obesity_3"
)

// FeatureCalculator 按标签计算衍生特征，缺少源列的标签跳过
type FeatureCalculator struct {
	tags map[string]bool
}

func NewFeatureCalculator(tags []string) (*FeatureCalculator, error) {
	fc := &FeatureCalculator{tags: make(map[string]bool, len(tags))}
	for _, tag := range tags {
		name, ok := featureAliases[strings.ToLower(strings.TrimSpace(tag))]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, tag)
		}
		fc.tags[name] = true
	}
	return fc, nil
}

// Tags 生效的特征名(按计算顺序)
func (fc *FeatureCalculator) Tags() []string {
	var out []string
	for _, name := range featureOrder {
		if fc.tags[name] {
			out = append(out, name)
		}
	}
	return out
}

// Add 返回带衍生特征列的新表
func (fc *FeatureCalculator) Add(df dataframe.DataFrame) dataframe.DataFrame {
	out := df.Copy()
	temp := firstPresent(out, "tmedia", "temperatura")
	hum := firstPresent(out, "ur", "umidade")

	for _, name := range fc.Tags() {
		switch name {
		case FeatureBMI:
			if utils.HasColumn(out, "peso") && utils.HasColumn(out, "altura") {
				out = out.Mutate(combine(out, "peso", "altura", FeatureBMI, BMI))
			}
		case FeatureBMIClass:
			if utils.HasColumn(out, FeatureBMI) {
				out = out.Mutate(bmiClassSeries(out.Col(FeatureBMI)))
			}
		case FeatureHeatIndex:
			if temp != "" && hum != "" {
				out = out.Mutate(combine(out, temp, hum, FeatureHeatIndex, HeatIndex))
			}
		case FeatureDewPoint:
			if temp != "" && hum != "" {
				out = out.Mutate(combine(out, temp, hum, FeatureDewPoint, DewPoint))
			}
		case FeatureWetBulb:
			if temp != "" && hum != "" {
				out = out.Mutate(combine(out, temp, hum, FeatureWetBulb, WetBulb))
			}
		case FeatureTTimesU:
			if temp != "" && hum != "" {
				out = out.Mutate(combine(out, temp, hum, FeatureTTimesU, product))
				out = out.Mutate(combine(out, temp, hum, TimesUAlias, product))
			}
		case FeatureTOverU:
			if temp != "" && hum != "" {
				out = out.Mutate(combine(out, temp, hum, FeatureTOverU, ratio))
			}
		}
	}
	return out
}

func firstPresent(df dataframe.DataFrame, names ...string) string {
	for _, n := range names {
		if utils.HasColumn(df, n) {
			return n
		}
	}
	return ""
}

// combine 逐行计算 f(a, b)，任一输入缺失则结果缺失
func combine(df dataframe.DataFrame, a, b, name string, f func(x, y float64) float64) series.Series {
	xs := utils.Floats(df.Col(a))
	ys := utils.Floats(df.Col(b))
	out := make([]float64, len(xs))
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsNaN(ys[i]) {
			out[i] = math.NaN()
			continue
		}
		v := f(xs[i], ys[i])
		if math.IsInf(v, 0) {
			v = math.NaN()
		}
		out[i] = v
	}
	return utils.FloatSeries(out, name)
}

func bmiClassSeries(bmi series.Series) series.Series {
	vals := utils.Floats(bmi)
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		if c, ok := BMIClass(v); ok {
			out[i] = c
		}
	}
	return series.New(out, series.String, FeatureBMIClass)
}

// BMI 体重(kg) / (身高(cm)/100)^2，身高为 0 时缺失
func BMI(weight, height float64) float64 {
	if math.IsNaN(weight) || math.IsNaN(height) || height == 0 {
		return math.NaN()
	}
	m := height / 100
	return weight / (m * m)
}

// BMIClass BMI 分级，缺失返回 false
func BMIClass(bmi float64) (string, bool) {
	switch {
	case math.IsNaN(bmi):
		return "", false
	case bmi < 18.5:
		return BMIUnderweight, true
	case bmi < 25:
		return BMINormal, true
	case bmi < 30:
		return BMIOverweight, true
	case bmi < 35:
		return BMIObesity1, true
	case bmi < 40:
		return BMIObesity2, true
	default:
		return BMIObesity3, true
	}
}

// HeatIndex Rothfusz 回归(摄氏度系数)
func HeatIndex(t, rh float64) float64 {
	if math.IsNaN(t) || math.IsNaN(rh) {
		return math.NaN()
	}
	return -8.78469475556 +
		1.61139411*t +
		2.33854883889*rh -
		0.14611605*t*rh -
		0.012308094*t*t -
		0.0164248277778*rh*rh +
		0.002211732*t*t*rh +
		0.00072546*t*rh*rh -
		0.000003582*t*t*rh*rh
}

// DewPoint 线性近似 T - (100 - RH)/5
func DewPoint(t, rh float64) float64 {
	if math.IsNaN(t) || math.IsNaN(rh) {
		return math.NaN()
	}
	return t - (100-rh)/5
}

// WetBulb Stull (2011) 湿球温度近似
func WetBulb(t, rh float64) float64 {
	if math.IsNaN(t) || math.IsNaN(rh) || rh < 0 {
		return math.NaN()
	}
	return t*math.Atan(0.151977*math.Sqrt(rh+8.313659)) +
		math.Atan(t+rh) -
		math.Atan(rh-1.676331) +
		0.00391838*math.Pow(rh, 1.5)*math.Atan(0.023101*rh) -
		4.686035
}

func product(x, y float64) float64 { return x * y }

// ratio 除数为 0 时缺失
func ratio(x, y float64) float64 {
	if y == 0 {
		return math.NaN()
	}
	return x / y
}
