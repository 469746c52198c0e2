package datapush

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sort"
	"strings"
	"time"

	"ThermalComfort/src/processor"

	"github.com/go-gota/gota/dataframe"
)

// 常量定义
const (
	RETRY_TIMES    = 5
	RETRY_INTERVAL = 2 * time.Second
	PUSH_TIMEOUT   = 30 * time.Second
)

// Blob 推送到实验追踪服务的命名文件
type Blob struct {
	Name        string
	ContentType string
	Content     []byte
}

// Tracker 实验追踪服务
type Tracker interface {
	Push(ctx context.Context, runID string, blobs []Blob) error
}

// TrackingResponse 追踪服务响应
type TrackingResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	RunURL  string `json:"run_url,omitempty"`
}

// HTTPTracker 以 multipart/form-data 上传运行产物
type HTTPTracker struct {
	Endpoint      string
	Token         string
	Project       string
	Client        *http.Client
	RetryTimes    int
	RetryInterval time.Duration
}

func NewHTTPTracker(endpoint, token, project string) *HTTPTracker {
	return &HTTPTracker{
		Endpoint:      endpoint,
		Token:         token,
		Project:       project,
		Client:        &http.Client{Timeout: PUSH_TIMEOUT},
		RetryTimes:    RETRY_TIMES,
		RetryInterval: RETRY_INTERVAL,
	}
}

// Push 上传失败时按间隔重试，4xx 响应不重试
func (t *HTTPTracker) Push(ctx context.Context, runID string, blobs []Blob) error {
	if len(blobs) == 0 {
		return nil
	}
	body, contentType, err := t.encode(runID, blobs)
	if err != nil {
		return err
	}

	return retry(ctx, func() error {
		return t.send(ctx, body, contentType)
	}, t.RetryTimes, t.RetryInterval)
}

func (t *HTTPTracker) encode(runID string, blobs []Blob) ([]byte, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	fields := [][2]string{{"project", t.Project}, {"run_id", runID}}
	for _, f := range fields {
		if err := writer.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("写入表单字段失败: %w", err)
		}
	}

	for _, b := range blobs {
		part, err := writer.CreateFormFile("artifact", b.Name)
		if err != nil {
			return nil, "", fmt.Errorf("创建表单文件失败: %w", err)
		}
		if _, err := part.Write(b.Content); err != nil {
			return nil, "", fmt.Errorf("复制文件内容失败: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("关闭写入器失败: %w", err)
	}
	return body.Bytes(), writer.FormDataContentType(), nil
}

// errPermanent 不需要重试的错误
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

func (t *HTTPTracker) send(ctx context.Context, body []byte, contentType string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errPermanent{fmt.Errorf("创建请求失败: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)
	if t.Token != "" {
		req.Header.Set("Authorization", "Bearer "+t.Token)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("追踪服务返回 %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		if resp.StatusCode < 500 {
			return errPermanent{err}
		}
		return err
	}

	var result TrackingResponse
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, &result); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	if result.ErrCode != 0 {
		return fmt.Errorf("上传失败: %s", result.ErrMsg)
	}
	return nil
}

// 重试函数
func retry(ctx context.Context, fn func() error, times int, interval time.Duration) error {
	if times < 1 {
		times = 1
	}
	var err error
	for i := 0; i < times; i++ {
		if err = fn(); err == nil {
			return nil
		}
		var perm errPermanent
		if errors.As(err, &perm) {
			return perm.err
		}
		if i < times-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(interval):
			}
		}
	}
	return fmt.Errorf("重试 %d 次后失败: %w", times, err)
}

// RunBlobs 处理结果表(CSV)和参数集合中的每一项(JSON)
func RunBlobs(df dataframe.DataFrame, art *processor.Artifacts) ([]Blob, error) {
	var csv bytes.Buffer
	if err := df.WriteCSV(&csv); err != nil {
		return nil, fmt.Errorf("写入CSV失败: %w", err)
	}
	blobs := []Blob{{Name: "processed.csv", ContentType: "text/csv", Content: csv.Bytes()}}
	if art == nil {
		return blobs, nil
	}

	bundle := art.Bundle()
	keys := make([]string, 0, len(bundle))
	for k := range bundle {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		data, err := json.MarshalIndent(bundle[k], "", "  ")
		if err != nil {
			return nil, fmt.Errorf("序列化 %s 失败: %w", k, err)
		}
		blobs = append(blobs, Blob{Name: k + ".json", ContentType: "application/json", Content: data})
	}
	return blobs, nil
}
