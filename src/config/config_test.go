package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"data_dir": "surveys",
		"output_dir": "out",
		"email": {"server": "imap.example.com:993", "check_interval": "2m"},
		"pipeline": {
			"normalization_method": "robust",
			"imputation": {"tmedia": "mean"},
			"substitutions": {"--": null, "M": "m"}
		}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "surveys", cfg.DataDir)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 2*time.Minute, cfg.Email.CheckInterval.Duration())
	assert.Equal(t, "robust", cfg.Pipeline.NormalizationMethod)

	// 文件中的映射与默认值合并
	assert.Equal(t, "mean", cfg.Pipeline.ImputationSpec["tmedia"])
	assert.Equal(t, "backward", cfg.Pipeline.ImputationSpec["p5"])
	require.Contains(t, cfg.Pipeline.Substitutions, "--")
	assert.Nil(t, cfg.Pipeline.Substitutions["--"])
	require.NotNil(t, cfg.Pipeline.Substitutions["M"])
	assert.Equal(t, "m", *cfg.Pipeline.Substitutions["M"])

	// 未给出的字段保留默认值
	assert.Equal(t, "_norm", cfg.Pipeline.NormalizationSuffix)
	assert.Equal(t, 1, cfg.HeaderRow)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
data_dir: surveys
output_dir: out
email:
  check_interval: 90s
pipeline:
  encoding_method: onehot
  drop_first: true
  derived_features: [imc, wet_bulb]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Email.CheckInterval.Duration())
	assert.Equal(t, "onehot", cfg.Pipeline.EncodingMethod)
	assert.True(t, cfg.Pipeline.DropFirst)
	assert.Equal(t, []string{"imc", "wet_bulb"}, cfg.Pipeline.DerivedFeatureTags)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"data_dir": "surveys", "output_dir": "out"}`)

	t.Setenv("THERMAL_OUTPUT_DIR", "/tmp/processed")
	t.Setenv("THERMAL_PIPELINE_NORMALIZATION_METHOD", "minmax")
	t.Setenv("THERMAL_EMAIL_CHECK_INTERVAL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/processed", cfg.OutputDir)
	assert.Equal(t, "minmax", cfg.Pipeline.NormalizationMethod)
	assert.Equal(t, 30*time.Second, cfg.Email.CheckInterval.Duration())
}

func TestLoadInvalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{
		"data_dir": "surveys",
		"output_dir": "out",
		"header_row": 0,
		"pipeline": {"normalization_method": "zscore"}
	}`)

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "HeaderRow")
	assert.Contains(t, err.Error(), "NormalizationMethod")
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.json", `{"data_dir": `)

	_, err := Load(path)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadConfigsWithPipelineFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{"data_dir": "surveys", "output_dir": "out"}`)
	writeFile(t, dir, "pipeline.yaml", `
normalization_method: maxabs
group_column: periodo
`)

	cfg, pipe, err := loadConfigs(dir, "config.json", "pipeline.yaml")
	require.NoError(t, err)
	require.NotNil(t, pipe)
	assert.Equal(t, "maxabs", cfg.Pipeline.NormalizationMethod)
	assert.Equal(t, "periodo", pipe.GroupColumn)

	// 流水线文件不存在时沿用应用配置
	cfg, _, err = loadConfigs(dir, "config.json", "absent.yaml")
	require.NoError(t, err)
	assert.Equal(t, "standard", cfg.Pipeline.NormalizationMethod)
}

func TestLoadConfigsCombinesErrors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.json", `{broken`)
	writeFile(t, dir, "pipeline.json", `{broken`)

	_, _, err := loadConfigs(dir, "config.json", "pipeline.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config")
	assert.Contains(t, err.Error(), "Pipeline")
}

func TestDefaultPipelineIsFresh(t *testing.T) {
	a := DefaultPipeline()
	a.ColumnTypes["data"] = "string"
	a.Substitutions["99"] = strPtr("99")

	b := DefaultPipeline()
	assert.Equal(t, "date", b.ColumnTypes["data"])
	assert.Nil(t, b.Substitutions["99"])
	assert.Equal(t, []string{"sexo", "vestimenta"}, b.CategoricalColumns())
}

func TestDurationJSON(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalJSON([]byte(`"1h30m"`)))
	assert.Equal(t, 90*time.Minute, d.Duration())

	out, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"1h30m0s"`, string(out))

	assert.Error(t, d.UnmarshalJSON([]byte(`"soon"`)))
}
