package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"ThermalComfort/src/config"
	"ThermalComfort/src/datasource/email"
	"ThermalComfort/src/datasource/file"
	"ThermalComfort/src/metrics"
	"ThermalComfort/src/processor"
	"ThermalComfort/src/storage"
	"ThermalComfort/src/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron"
)

const (
	configFolder = "./config"
	pipelineFile = "pipeline.yaml"
)

// configFile 优先使用 config.yaml
func configFile() string {
	if _, err := os.Stat(filepath.Join(configFolder, "config.yaml")); err == nil {
		return "config.yaml"
	}
	return "config.json"
}

func main() {
	cfg, err := config.LoadConfig(configFolder, configFile(), pipelineFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.NewRecorder(reg)

	// 配置错误在启动时终止
	proc, err := processor.NewDataProcessor(cfg.GetPipeline(), logger, rec)
	if err != nil {
		logger.Fatal(err.Error())
		log.Fatal("Failed to build pipeline:", err)
	}

	for _, dir := range []string{cfg.DataDir, cfg.OutputDir} {
		if err := file.EnsureDir(dir); err != nil {
			log.Fatal("Failed to create directory:", err)
		}
	}
	if cfg.PidFile != "" {
		if err := utils.WritePidFile(cfg.PidFile); err != nil {
			logger.Warning("写入 pid 文件失败: " + err.Error())
		}
		defer os.Remove(cfg.PidFile)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := newService(cfg, logger, proc)
	if err := svc.processAll(ctx); err != nil {
		logger.Error("初始处理失败: " + err.Error())
	}

	// 设置定时任务
	c := cron.New()
	if err := c.AddFunc(cfg.Schedule, func() {
		if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
			logger.Error("日志轮转失败: " + err.Error())
		}
	}); err != nil {
		logger.Error("创建定时任务失败: " + err.Error())
		return
	}

	if cfg.Email.Server != "" {
		emailClient := email.NewEmailClient(cfg.Email.Server, cfg.Email.Username, cfg.Email.Password, logger)
		handler := email.NewAttachmentHandler(cfg.Email.TargetSubject, cfg.DataDir, svc.opts, logger)

		// 使用配置中的检查间隔
		interval := time.Duration(cfg.Email.CheckInterval).String()
		cronSpec := fmt.Sprintf("@every %s", interval)
		if err := c.AddFunc(cronSpec, func() {
			logger.Info(fmt.Sprintf("开始定时检查(间隔: %v)...", interval))
			svc.checkMail(ctx, emailClient, handler)
		}); err != nil {
			logger.Error("创建定时任务失败: " + err.Error())
			return
		}
		logger.Info(fmt.Sprintf("邮件监控服务已启动(检查间隔: %v)", interval))
	}

	c.Start()
	defer c.Stop()

	if cfg.Watch {
		monitor, err := file.NewFileMonitor(cfg.DataDir)
		if err != nil {
			logger.Error("启动目录监控失败: " + err.Error())
		} else {
			defer monitor.Close()
			go func() {
				err := monitor.Watch(ctx, func(path string) {
					logger.Info("检测到文件更新: " + path)
					svc.processFile(ctx, path)
				})
				if err != nil {
					logger.Error("目录监控出错: " + err.Error())
				}
			}()
		}
	}

	// SIGHUP: 重新打开日志并重新处理
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("Received SIGHUP, reprocessing...")
				if err := logger.Reopen(""); err != nil {
					logger.Error("重新打开日志失败: " + err.Error())
				}
				svc.reprocess(ctx)
			}
		}
	}()

	server := svc.webServer(ctx, reg)
	logger.Info(fmt.Sprintf("服务已启动(%s)，按Ctrl+C退出", cfg.HTTPAddr))
	if err := server.ListenAndServe(ctx, cfg.HTTPAddr); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("HTTP 服务出错: " + err.Error())
		stop()
	}

	<-ctx.Done()
	logger.Info("shutting down...")
}
