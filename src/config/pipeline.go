package config

import "sort"

// Pipeline 数据处理流水线配置
// 所有字段均为原始字符串/映射，由 processor 在构建时解析和校验
type Pipeline struct {
	// 清洗: 原值 -> 替换值，nil 表示缺失
	Substitutions map[string]*string `json:"substitutions" yaml:"substitutions" ignored:"true"`

	// 类型转换: 列名 -> date|time|float|int|string
	ColumnTypes map[string]string `json:"column_types" yaml:"column_types" ignored:"true"`
	DateColumn  string            `json:"date_column" yaml:"date_column" split_words:"true"`
	TimeColumn  string            `json:"time_column" yaml:"time_column" split_words:"true"`

	// 缺失值填充
	ImputationSpec             map[string]string `json:"imputation" yaml:"imputation" ignored:"true"`
	DefaultNumericStrategy     string            `json:"default_numeric_strategy" yaml:"default_numeric_strategy" split_words:"true" validate:"required"`
	DefaultCategoricalStrategy string            `json:"default_categorical_strategy" yaml:"default_categorical_strategy" split_words:"true" validate:"required"`

	// 月份分组
	CreateMonthYear bool   `json:"create_month_year" yaml:"create_month_year" split_words:"true"`
	GroupColumn     string `json:"group_column" yaml:"group_column" split_words:"true" validate:"required_if=CreateMonthYear true"`

	// 衍生特征
	DerivedFeatureTags []string `json:"derived_features" yaml:"derived_features" split_words:"true"`

	// 编码
	Encode          bool     `json:"encode" yaml:"encode" split_words:"true"`
	EncodingMethod  string   `json:"encoding_method" yaml:"encoding_method" split_words:"true" validate:"omitempty,oneof=label onehot dummy"`
	EncodeColumns   []string `json:"encode_columns" yaml:"encode_columns" split_words:"true"`
	EncodingSuffix  string   `json:"encoding_suffix" yaml:"encoding_suffix" split_words:"true"`
	DropFirst       bool     `json:"drop_first" yaml:"drop_first" split_words:"true"`
	MissingCategory string   `json:"missing_category" yaml:"missing_category" split_words:"true"`

	// 标准化
	Normalize                bool              `json:"normalize" yaml:"normalize" split_words:"true"`
	NormalizationMethod      string            `json:"normalization_method" yaml:"normalization_method" split_words:"true" validate:"omitempty,oneof=standard minmax robust maxabs l2 max unit"`
	NormalizeColumns         []string          `json:"normalize_columns" yaml:"normalize_columns" split_words:"true"`
	NormalizeMethods         map[string]string `json:"normalize_methods" yaml:"normalize_methods" ignored:"true"`
	NormalizationGroupColumn string            `json:"normalization_group_column" yaml:"normalization_group_column" split_words:"true"`
	NormalizationSuffix      string            `json:"normalization_suffix" yaml:"normalization_suffix" split_words:"true" validate:"required_if=Normalize true"`
}

func strPtr(s string) *string { return &s }

// DefaultPipeline 返回项目默认配置(每次调用返回新值)
func DefaultPipeline() Pipeline {
	columnTypes := map[string]string{
		"data":       "date",
		"hora":       "time",
		"idade":      "int",
		"sexo":       "string",
		"vestimenta": "string",
	}
	for _, c := range []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8"} {
		columnTypes[c] = "int"
	}
	for _, c := range []string{
		"peso", "altura",
		"tev", "utci", "sst", "ste", "psti", "wbgt", "wci", "tek", "te", "pst",
		"tmedia", "tmax", "tmin", "tu", "ur", "ur_max", "ur_min",
		"rsolarmed", "rsolartot",
		"vel_vento", "dir_vento", "sd_dirvento", "vel_vento_max", "dir_max_vento",
		"chuva_tot",
	} {
		columnTypes[c] = "float"
	}

	return Pipeline{
		Substitutions: map[string]*string{
			"NAN": nil,
			"nan": nil,
			"":    nil,
			"-":   nil,
			"x":   nil,
			"99":  nil,
			"F":   strPtr("f"),
		},
		ColumnTypes: columnTypes,
		DateColumn:  "data",
		TimeColumn:  "hora",
		ImputationSpec: map[string]string{
			"p5":         "backward",
			"p6":         "backward",
			"p7":         "backward",
			"p8":         "backward",
			"vestimenta": "backward",
			"rsolartot":  "rolling_mean_48",
			"rsolarmed":  "rolling_mean_48",
			"idade":      "median",
			"peso":       "median",
			"altura":     "median",
			"sexo":       "mode",
		},
		DefaultNumericStrategy:     "median",
		DefaultCategoricalStrategy: "mode",
		CreateMonthYear:            true,
		GroupColumn:                "mes-ano",
		DerivedFeatureTags:         []string{"imc", "imc_classe", "heat_index", "dew_point", "t*u", "t/u"},
		Encode:                     true,
		EncodingMethod:             "label",
		EncodingSuffix:             "_cod",
		MissingCategory:            "__missing__",
		Normalize:                  true,
		NormalizationMethod:        "standard",
		NormalizationGroupColumn:   "mes-ano",
		NormalizationSuffix:        "_norm",
	}
}

// CategoricalColumns 类型为 string 的列，按列名排序
func (p Pipeline) CategoricalColumns() []string {
	var cols []string
	for col, kind := range p.ColumnTypes {
		switch kind {
		case "string", "categorical", "category":
			cols = append(cols, col)
		}
	}
	sort.Strings(cols)
	return cols
}
