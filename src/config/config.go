package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// EnvPrefix 环境变量前缀，如 THERMAL_DATA_DIR
const EnvPrefix = "THERMAL"

// ErrInvalidConfig 配置校验失败
var ErrInvalidConfig = errors.New("invalid config")

// Config 结构体定义了应用程序的配置结构
type Config struct {
	Email struct {
		Server        string   `json:"server" yaml:"server" split_words:"true" validate:"omitempty,hostname_port"` // 邮件服务器地址
		Username      string   `json:"username" yaml:"username" split_words:"true"`                                // 邮箱用户名
		Password      string   `json:"password" yaml:"password" split_words:"true"`                                // 邮箱密码
		TargetSubject string   `json:"target_subject" yaml:"target_subject" split_words:"true"`                    // 需要匹配的邮件主题
		CheckInterval Duration `json:"check_interval" yaml:"check_interval" split_words:"true"`                    // 检查新邮件的间隔时间
	} `json:"email" yaml:"email" split_words:"true"`

	DataDir    string `json:"data_dir" yaml:"data_dir" split_words:"true" validate:"required"`     // 待处理问卷文件目录
	OutputDir  string `json:"output_dir" yaml:"output_dir" split_words:"true" validate:"required"` // 处理结果输出目录
	SheetName  string `json:"sheet_name" yaml:"sheet_name" split_words:"true"`
	HeaderRow  int    `json:"header_row" yaml:"header_row" split_words:"true" validate:"gte=1"`
	LogName    string `json:"log_name" yaml:"log_name" split_words:"true"`
	LogMaxSize string `json:"log_max_size" yaml:"log_max_size" split_words:"true"`
	Schedule   string `json:"schedule" yaml:"schedule" split_words:"true"` // cron 表达式
	Watch      bool   `json:"watch" yaml:"watch" split_words:"true"`
	HTTPAddr   string `json:"http_addr" yaml:"http_addr" split_words:"true"`
	PidFile    string `json:"pid_file" yaml:"pid_file" split_words:"true"`

	SendEmail struct {
		Server        string `json:"server" yaml:"server" split_words:"true" validate:"omitempty,hostname_port"` // 邮件服务器地址
		Username      string `json:"username" yaml:"username" split_words:"true"`                                // 邮箱用户名
		Password      string `json:"password" yaml:"password" split_words:"true"`                                // 邮箱密码
		To            string `json:"to" yaml:"to" split_words:"true" validate:"omitempty,email"`                 // 报告收件人
		TargetSubject string `json:"target_subject" yaml:"target_subject" split_words:"true"`                    // 报告邮件主题
	} `json:"send_email" yaml:"send_email" split_words:"true"`

	Tracking struct {
		Endpoint string `json:"endpoint" yaml:"endpoint" split_words:"true" validate:"omitempty,url"`
		Token    string `json:"token" yaml:"token" split_words:"true"`
		Project  string `json:"project" yaml:"project" split_words:"true"`
	} `json:"tracking" yaml:"tracking" split_words:"true"`

	Pipeline Pipeline `json:"pipeline" yaml:"pipeline" split_words:"true"`
}

// Default 默认配置
func Default() *Config {
	cfg := &Config{
		DataDir:    "data",
		OutputDir:  "output",
		HeaderRow:  1,
		LogName:    "app.log",
		LogMaxSize: "10 * 1024 * 1024",
		Schedule:   "@every 5m",
		Watch:      true,
		HTTPAddr:   ":8080",
		PidFile:    "thermal.pid",
		Pipeline:   DefaultPipeline(),
	}
	cfg.Email.CheckInterval = Duration(5 * time.Minute)
	return cfg
}

var (
	once             sync.Once
	instance         *Config
	pipelineInstance *Pipeline
	mu               sync.RWMutex
)

// LoadConfig 加载应用配置和流水线配置(只加载一次)
// pipelineFile 为空或不存在时使用应用配置中的 pipeline 段
func LoadConfig(configFolder, configFile, pipelineFile string) (*Config, error) {
	var err error
	once.Do(func() {
		instance, pipelineInstance, err = loadConfigs(configFolder, configFile, pipelineFile)
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// Load 读取单个配置文件，依次叠加默认值、文件内容、环境变量，然后校验
func Load(path string) (*Config, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, fmt.Errorf("解析Config失败: %w", err)
	}
	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigs(configFolder, configFile, pipelineFile string) (*Config, *Pipeline, error) {
	appFile := filepath.Join(configFolder, configFile)

	configData, err := readFile(appFile)
	if err != nil {
		return nil, nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var (
		pipePath string
		pipeData []byte
	)
	if pipelineFile != "" {
		pipePath = filepath.Join(configFolder, pipelineFile)
		if _, statErr := os.Stat(pipePath); statErr == nil {
			pipeData, err = readFile(pipePath)
			if err != nil {
				return nil, nil, fmt.Errorf("读取流水线配置文件失败: %w", err)
			}
		}
	}

	cfgChan := make(chan *Config, 1)
	pipeChan := make(chan *Pipeline, 1)
	errChan := make(chan error, 2)

	go parseConfig(appFile, configData, cfgChan, errChan)
	if pipeData != nil {
		go parsePipeline(pipePath, pipeData, pipeChan, errChan)
	} else {
		pipeChan <- nil
	}

	cfg, pipe, err := waitForResults(cfgChan, pipeChan, errChan)
	if err != nil {
		return nil, nil, err
	}
	if pipe != nil {
		cfg.Pipeline = *pipe
	}
	if err := finish(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, &cfg.Pipeline, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// decode 根据扩展名选择 JSON 或 YAML
func decode(path string, data []byte, out interface{}) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}

func parseConfig(path string, data []byte, resultChan chan<- *Config, errChan chan<- error) {
	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		errChan <- fmt.Errorf("解析Config失败: %w", err)
		return
	}
	resultChan <- cfg
}

func parsePipeline(path string, data []byte, resultChan chan<- *Pipeline, errChan chan<- error) {
	p := DefaultPipeline()
	if err := decode(path, data, &p); err != nil {
		errChan <- fmt.Errorf("解析Pipeline失败: %w", err)
		return
	}
	resultChan <- &p
}

func waitForResults(
	cfgChan <-chan *Config,
	pipeChan <-chan *Pipeline,
	errChan <-chan error,
) (*Config, *Pipeline, error) {
	var (
		cfg      *Config
		pipe     *Pipeline
		gotPipe  bool
		loadErrs []error
	)

	for i := 0; i < 2; i++ {
		select {
		case c := <-cfgChan:
			cfg = c
		case p := <-pipeChan:
			pipe = p
			gotPipe = true
		case err := <-errChan:
			loadErrs = append(loadErrs, err)
		}
	}

	if len(loadErrs) > 0 {
		return nil, nil, combineErrors(loadErrs)
	}

	if cfg == nil || !gotPipe {
		return nil, nil, fmt.Errorf("部分配置未加载成功")
	}

	return cfg, pipe, nil
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("配置加载遇到多个错误: %w", errors.Join(errs...))
}

// finish 环境变量覆盖 + 校验
func finish(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("读取环境变量失败: %w", err)
	}
	return Validate(cfg)
}

var validate = validator.New()

// Validate 结构体校验，所有字段错误合并返回
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	errs := []error{ErrInvalidConfig}
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("%s: failed on %q", fe.Namespace(), fe.Tag()))
	}
	return errors.Join(errs...)
}

// GetPipeline 返回流水线配置副本
func (c *Config) GetPipeline() Pipeline {
	mu.RLock()
	defer mu.RUnlock()
	return c.Pipeline
}

// SetPipeline 替换流水线配置(热更新)
func (c *Config) SetPipeline(p Pipeline) {
	mu.Lock()
	defer mu.Unlock()
	c.Pipeline = p
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON、YAML和环境变量的解析
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
// 用于从JSON字符串解析Duration
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return d.Decode(s)
}

// MarshalJSON 实现json.Marshaler接口
// 用于将Duration序列化为JSON字符串
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML 实现yaml.Unmarshaler接口
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return d.Decode(s)
}

// Decode 实现envconfig.Decoder接口
func (d *Duration) Decode(value string) error {
	dur, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }
