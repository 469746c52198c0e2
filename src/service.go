package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ThermalComfort/src/config"
	"ThermalComfort/src/datapush"
	"ThermalComfort/src/datasource/email"
	"ThermalComfort/src/datasource/file"
	"ThermalComfort/src/processor"
	"ThermalComfort/src/storage"
	"ThermalComfort/src/utils"
	"ThermalComfort/src/web"

	"github.com/go-gota/gota/dataframe"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// maxParallelFiles 同时处理的文件数
const maxParallelFiles = 4

// service 串联读取、流水线、输出和推送
type service struct {
	cfg     *config.Config
	logger  *storage.Logger
	proc    *processor.DataProcessor
	tracker datapush.Tracker // 未配置时为 nil
	state   *web.State
	opts    file.Options

	mu       sync.Mutex
	inflight map[string]bool
}

func newService(cfg *config.Config, logger *storage.Logger, proc *processor.DataProcessor) *service {
	s := &service{
		cfg:      cfg,
		logger:   logger,
		proc:     proc,
		state:    &web.State{},
		opts:     file.Options{SheetName: cfg.SheetName, HeaderRow: cfg.HeaderRow},
		inflight: make(map[string]bool),
	}
	if cfg.Tracking.Endpoint != "" {
		s.tracker = datapush.NewHTTPTracker(cfg.Tracking.Endpoint, cfg.Tracking.Token, cfg.Tracking.Project)
	}
	return s
}

// acquire 同一文件同时只处理一次
func (s *service) acquire(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[path] {
		return false
	}
	s.inflight[path] = true
	return true
}

func (s *service) release(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, path)
}

// processFile 处理单个文件并写出结果，返回输出文件路径
func (s *service) processFile(ctx context.Context, path string) ([]string, error) {
	if !s.acquire(path) {
		s.logger.Debug("skip " + path + ": already running")
		return nil, nil
	}
	defer s.release(path)

	t1 := time.Now()
	status := web.RunStatus{File: filepath.Base(path)}
	defer func() {
		if status.Finished.IsZero() {
			status.Finished = time.Now()
		}
		s.state.Record(status)
	}()

	outputs, art, err := s.run(path)
	if err != nil {
		status.Error = err.Error()
		s.logger.Error(fmt.Sprintf("处理文件失败 %s: %v", path, err))
		return nil, err
	}
	status.Artifacts = art.artifacts
	status.Summary = art.summary
	status.Finished = time.Now()
	s.logger.Info(fmt.Sprintf("处理完成 %s，耗时: %v", filepath.Base(path), time.Since(t1)))

	// 推送和报告失败不影响处理结果
	if s.tracker != nil {
		blobs, err := datapush.RunBlobs(art.table, art.artifacts)
		if err == nil {
			err = s.tracker.Push(ctx, art.artifacts.RunID, blobs)
		}
		if err != nil {
			s.logger.Warning(fmt.Sprintf("推送运行结果失败(run %s): %v", art.artifacts.RunID, err))
		}
	}
	if s.cfg.SendEmail.To != "" {
		body := reportBody(status)
		if err := email.SendReport(s.cfg, body, outputs[0]); err != nil {
			s.logger.Warning("发送报告失败: " + err.Error())
		}
	}
	return outputs, nil
}

type runResult struct {
	table     dataframe.DataFrame
	artifacts *processor.Artifacts
	summary   map[string]interface{}
}

func (s *service) run(path string) ([]string, runResult, error) {
	df, err := file.Load(path, s.opts)
	if err != nil {
		return nil, runResult{}, err
	}
	out, art, err := s.proc.Run(df)
	if err != nil {
		return nil, runResult{}, err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	xlsxPath := filepath.Join(s.cfg.OutputDir, base+"_processed.xlsx")
	csvPath := filepath.Join(s.cfg.OutputDir, base+"_processed.csv")
	artPath := filepath.Join(s.cfg.OutputDir, base+"_artifacts.json")

	if err := utils.SaveToExcel(out, xlsxPath); err != nil {
		return nil, runResult{}, err
	}
	if err := utils.SaveToCSV(out, csvPath); err != nil {
		return nil, runResult{}, err
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return nil, runResult{}, fmt.Errorf("marshal artifacts: %w", err)
	}
	if err := os.WriteFile(artPath, data, 0644); err != nil {
		return nil, runResult{}, fmt.Errorf("write artifacts: %w", err)
	}

	return []string{xlsxPath, csvPath, artPath}, runResult{
		table:     out,
		artifacts: art,
		summary:   processor.Summarize(out),
	}, nil
}

// processAll 处理数据目录下所有文件，单个文件失败不影响其它文件
func (s *service) processAll(ctx context.Context) error {
	files, err := file.ListSupported(s.cfg.DataDir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		s.logger.Info("数据目录中没有可处理的文件")
		return nil
	}

	var (
		mu     sync.Mutex
		failed int
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFiles)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if _, err := s.processFile(ctx, path); err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

// reprocess 重新处理数据目录，错误只记录日志
func (s *service) reprocess(ctx context.Context) {
	if err := s.processAll(ctx); err != nil {
		s.logger.Error("重新处理失败: " + err.Error())
	}
}

// webServer POST /reprocess 由路由自行放到后台执行，这里同步调用
func (s *service) webServer(ctx context.Context, gatherer prometheus.Gatherer) *web.Server {
	return &web.Server{
		Logger:    s.logger,
		Gatherer:  gatherer,
		State:     s.state,
		Reprocess: func() { s.reprocess(ctx) },
	}
}

// checkMail 拉取目标邮件，附件保存到数据目录
// watch 关闭时直接处理保存的文件
func (s *service) checkMail(ctx context.Context, svc email.MailService, handler email.EmailHandler) {
	emails, err := email.CheckAndProcessEmails(svc, s.cfg.Email.TargetSubject, s.logger)
	if err != nil {
		s.logger.Error("检查处理邮件失败: " + err.Error())
		return
	}
	for _, e := range emails {
		saved, err := handler.Handle(e)
		if err != nil {
			s.logger.Error(fmt.Sprintf("处理邮件失败(UID:%d): %v", e.UID, err))
			continue
		}
		if s.cfg.Watch {
			continue
		}
		for _, path := range saved {
			s.processFile(ctx, path)
		}
	}
}

func reportBody(rs web.RunStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "文件: %s\n", rs.File)
	fmt.Fprintf(&b, "完成时间: %s\n", rs.Finished.Format(time.DateTime))
	if rs.Summary != nil {
		fmt.Fprintf(&b, "行数: %v\n列数: %v\n缺失值: %v\n",
			rs.Summary["total_rows"], rs.Summary["total_columns"], rs.Summary["missing_values"])
	}
	if rs.Artifacts != nil {
		fmt.Fprintf(&b, "run: %s\n", rs.Artifacts.RunID)
	}
	return b.String()
}
