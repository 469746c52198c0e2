// data.go
package processor

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"ThermalComfort/src/config"
	"ThermalComfort/src/metrics"
	"ThermalComfort/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/google/uuid"
)

// DataProcessor 按固定顺序组合各处理步骤:
// 列名标准化 -> 清洗 -> 类型转换 -> 缺失值填充 -> 月份分组 -> 衍生特征 -> 编码 -> 标准化
type DataProcessor struct {
	cfg        config.Pipeline
	logger     Logger
	rec        *metrics.Recorder
	cleaner    *Cleaner
	coercer    *Coercer
	imputer    *Imputer
	grouper    *TemporalGrouper
	features   *FeatureCalculator
	encoder    *Encoder
	normalizer *Normalizer
}

// NewDataProcessor 解析并校验配置，配置错误在这里返回
func NewDataProcessor(cfg config.Pipeline, logger Logger, rec *metrics.Recorder) (*DataProcessor, error) {
	if logger == nil {
		logger = nopLogger{}
	}
	var errs []error

	// 1. 类型
	types, err := ParseTypeSpec(cfg.ColumnTypes)
	if err != nil {
		errs = append(errs, err)
	}

	// 2. 填充策略
	spec := make(map[string]Strategy, len(cfg.ImputationSpec))
	for col, tag := range cfg.ImputationSpec {
		st, err := ParseStrategy(tag)
		if err != nil {
			errs = append(errs, fmt.Errorf("imputation for %s: %w", col, err))
			continue
		}
		spec[col] = st
	}
	defNum, err := ParseStrategy(cfg.DefaultNumericStrategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("default numeric strategy: %w", err))
	}
	defCat, err := ParseStrategy(cfg.DefaultCategoricalStrategy)
	if err != nil {
		errs = append(errs, fmt.Errorf("default categorical strategy: %w", err))
	}

	// 3. 衍生特征
	features, err := NewFeatureCalculator(cfg.DerivedFeatureTags)
	if err != nil {
		errs = append(errs, err)
	}

	// 4. 编码
	encMethod, err := ParseEncodingMethod(cfg.EncodingMethod)
	if err != nil {
		errs = append(errs, err)
	}

	// 5. 标准化
	normMethod, err := ParseMethod(cfg.NormalizationMethod)
	if err != nil {
		errs = append(errs, err)
	}
	perColumn := make(map[string]Method, len(cfg.NormalizeMethods))
	for col, name := range cfg.NormalizeMethods {
		m, err := ParseMethod(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("normalization for %s: %w", col, err))
			continue
		}
		perColumn[col] = m
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, errors.Join(errs...))
	}

	p := &DataProcessor{
		cfg:      cfg,
		logger:   logger,
		rec:      rec,
		cleaner:  NewCleaner(cfg.Substitutions),
		coercer:  NewCoercer(types),
		imputer:  NewImputer(spec, defNum, defCat, append(types.Columns(KindDate), types.Columns(KindTime)...)...),
		features: features,
	}

	if cfg.CreateMonthYear {
		p.grouper = &TemporalGrouper{
			DateColumn:   cfg.DateColumn,
			TimeColumn:   cfg.TimeColumn,
			OutputColumn: cfg.GroupColumn,
		}
	}

	if cfg.Encode {
		cols := cfg.EncodeColumns
		if cols == nil {
			cols = append(types.Columns(KindString), FeatureBMIClass)
		}
		p.encoder = &Encoder{
			Method:          encMethod,
			Columns:         cols,
			Suffix:          cfg.EncodingSuffix,
			DropFirst:       cfg.DropFirst,
			MissingCategory: cfg.MissingCategory,
		}
	}

	if cfg.Normalize {
		p.normalizer = &Normalizer{
			Method:      normMethod,
			Columns:     cfg.NormalizeColumns,
			Methods:     perColumn,
			GroupColumn: cfg.NormalizationGroupColumn,
			Suffix:      cfg.NormalizationSuffix,
		}
	}
	return p, nil
}

// Run 执行完整流水线，输入表不会被修改
func (p *DataProcessor) Run(df dataframe.DataFrame) (result dataframe.DataFrame, art *Artifacts, err error) {
	defer func() { p.rec.RunFinished(err, result.Nrow()) }()

	if df.Err != nil {
		return dataframe.DataFrame{}, nil, fmt.Errorf("input table: %w", df.Err)
	}

	art = &Artifacts{
		RunID:           uuid.NewString(),
		LabelMaps:       map[string]LabelMap{},
		EncodingSuffix:  p.cfg.EncodingSuffix,
		MissingCategory: p.cfg.MissingCategory,
	}
	out := df
	p.logger.Info(fmt.Sprintf("run %s: %d rows, %d columns", art.RunID, df.Nrow(), df.Ncol()))

	steps := []struct {
		name string
		fn   func() error
	}{
		{"normalize_names", func() error {
			var err error
			out, err = utils.NormalizeColumnNames(out)
			return err
		}},
		{"clean", func() error {
			out = p.cleaner.Clean(out)
			return out.Err
		}},
		{"coerce", func() error {
			out = p.coercer.Coerce(out)
			return out.Err
		}},
		{"impute", func() error {
			var counts map[string]int
			out, counts = p.imputer.Impute(out)
			art.Imputed = counts
			for _, col := range sortedKeys(counts) {
				p.rec.Imputed(col, counts[col])
				p.logger.Debug(fmt.Sprintf("imputed %d values in %s", counts[col], col))
			}
			p.warnUnfilled(out)
			return out.Err
		}},
		{"month_year", func() error {
			if p.grouper != nil {
				out = p.grouper.Group(out)
			}
			return out.Err
		}},
		{"derived_features", func() error {
			out = p.features.Add(out)
			return out.Err
		}},
		{"encode", func() error {
			if p.encoder == nil {
				return nil
			}
			var labels map[string]LabelMap
			out, labels, art.OneHotColumns = p.encoder.Encode(out)
			art.LabelMaps = labels
			return out.Err
		}},
		{"normalize", func() error {
			if p.normalizer == nil {
				return nil
			}
			out, art.Scalers = p.normalizer.Normalize(out)
			return out.Err
		}},
	}

	for _, s := range steps {
		if err := p.step(s.name, s.fn); err != nil {
			return dataframe.DataFrame{}, nil, err
		}
	}

	p.logger.Info(fmt.Sprintf("run %s finished: %d rows, %d columns", art.RunID, out.Nrow(), out.Ncol()))
	return out, art, nil
}

func (p *DataProcessor) step(name string, fn func() error) error {
	defer p.rec.ObserveStep(name, time.Now())
	if err := fn(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// warnUnfilled 完全缺失的列无法填充，保持原样
func (p *DataProcessor) warnUnfilled(df dataframe.DataFrame) {
	for _, col := range df.Names() {
		s := df.Col(col)
		if s.Len() > 0 && utils.MissingCount(s) == s.Len() {
			p.logger.Warning(fmt.Sprintf("column %s is entirely missing and was left unchanged", col))
		}
	}
}

// Summarize 处理结果概要
func Summarize(df dataframe.DataFrame) map[string]interface{} {
	missing := make(map[string]int)
	total := 0
	for _, col := range df.Names() {
		if n := utils.MissingCount(df.Col(col)); n > 0 {
			missing[col] = n
			total += n
		}
	}
	cols := df.Names()
	sort.Strings(cols)
	return map[string]interface{}{
		"total_rows":     df.Nrow(),
		"total_columns":  df.Ncol(),
		"columns":        cols,
		"missing_values": total,
		"missing_by_col": missing,
		"last_updated":   time.Now(),
	}
}
