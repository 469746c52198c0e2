package processor

import "errors"

// 配置错误，在构建 DataProcessor 时返回
var (
	ErrUnknownStrategy = errors.New("unknown imputation strategy")
	ErrUnknownMethod   = errors.New("unknown normalization method")
	ErrUnknownEncoding = errors.New("unknown encoding method")
	ErrUnknownKind     = errors.New("unknown column kind")
	ErrUnknownFeature  = errors.New("unknown derived feature")
	ErrTargetNotFound  = errors.New("target column not found")
)

// Logger 流水线使用的日志接口，storage.Logger 满足该接口
type Logger interface {
	Debug(msg string)
	Info(msg string)
	Warning(msg string)
}

type nopLogger struct{}

func (nopLogger) Debug(string)   {}
func (nopLogger) Info(string)    {}
func (nopLogger) Warning(string) {}
