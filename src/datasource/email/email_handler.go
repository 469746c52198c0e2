// email_handler.go
package email

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ThermalComfort/src/datasource/file"
	"ThermalComfort/src/storage"
)

// ====================== 邮件处理器实现 ======================

// EmailHandler 邮件处理器接口，返回保存的文件路径
type EmailHandler interface {
	Handle(email *Email) ([]string, error)
}

// AttachmentHandler 把目标邮件中可读取的问卷附件保存到数据目录
type AttachmentHandler struct {
	TargetSubject string          // 目标邮件主题关键词
	DataDir       string          // 附件保存目录
	Options       file.Options    // 附件校验时的读取选项
	logger        *storage.Logger // 可为 nil
	processedUIDs map[uint32]bool // 已处理邮件UID记录
	mu            sync.RWMutex    // 保护processedUIDs的读写锁
}

func NewAttachmentHandler(subject, dataDir string, opts file.Options, logger *storage.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		TargetSubject: subject,
		DataDir:       dataDir,
		Options:       opts,
		logger:        logger,
		processedUIDs: make(map[uint32]bool),
	}
}

// IsProcessed 检查邮件是否已处理过（线程安全）
func (h *AttachmentHandler) IsProcessed(uid uint32) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.processedUIDs[uid]
}

func (h *AttachmentHandler) markAsProcessed(uid uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.processedUIDs[uid] = true
}

// Handle 处理单个邮件，无法读取为表格的附件跳过
func (h *AttachmentHandler) Handle(email *Email) ([]string, error) {
	if h.IsProcessed(email.UID) {
		return nil, nil
	}

	if !strings.Contains(email.Subject, h.TargetSubject) {
		h.info(fmt.Sprintf("跳过主题不匹配的邮件: %s", email.Subject))
		return nil, nil
	}

	h.info(fmt.Sprintf("处理邮件: %s 发件人: %s 日期: %s",
		email.Subject, email.From, email.Date.Format("2006-01-02 15:04:05")))

	if err := file.EnsureDir(h.DataDir); err != nil {
		return nil, fmt.Errorf("创建目录失败: %w", err)
	}

	var saved []string
	for _, att := range email.Attachments {
		name := filepath.Base(att.Filename)
		if !file.Supported(name) {
			continue
		}
		if _, err := att.Table(h.Options); err != nil {
			h.warn(fmt.Sprintf("附件 %s 无法读取: %v", name, err))
			continue
		}

		filePath := filepath.Join(h.DataDir, name)
		if err := os.WriteFile(filePath, att.Content, 0644); err != nil {
			return saved, fmt.Errorf("保存附件失败: %w", err)
		}
		h.info(fmt.Sprintf("附件已保存到: %s", filePath))
		saved = append(saved, filePath)
	}

	// 有附件保存成功才标记为已处理
	if len(saved) > 0 {
		h.markAsProcessed(email.UID)
	}
	return saved, nil
}

func (h *AttachmentHandler) info(msg string) {
	if h.logger != nil {
		h.logger.Info(msg)
	}
}

func (h *AttachmentHandler) warn(msg string) {
	if h.logger != nil {
		h.logger.Warning(msg)
	}
}
