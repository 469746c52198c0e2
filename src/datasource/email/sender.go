// sender.go
package email

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/smtp"
	"os"
	"strings"

	"ThermalComfort/src/config"

	"github.com/jordan-wright/email"
)

// NewReport 构建处理结果报告邮件，附件不存在时返回错误
func NewReport(c *config.Config, body string, attachments ...string) (*email.Email, error) {
	if c.SendEmail.Username == "" || c.SendEmail.To == "" {
		return nil, errors.New("send_email.username and send_email.to are required")
	}

	e := email.NewEmail()
	e.From = fmt.Sprintf("Thermal Comfort <%s>", c.SendEmail.Username)
	e.To = []string{c.SendEmail.To}
	e.Subject = c.SendEmail.TargetSubject
	if e.Subject == "" {
		e.Subject = "Thermal comfort report"
	}
	e.Text = []byte(body)

	for _, path := range attachments {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("附件文件不存在: %s", path)
		}
		if _, err := e.AttachFile(path); err != nil {
			return nil, fmt.Errorf("附件添加失败: %w", err)
		}
	}
	return e, nil
}

// SendReport 通过 SMTP(显式 TLS)发送报告
func SendReport(c *config.Config, body string, attachments ...string) error {
	e, err := NewReport(c, body, attachments...)
	if err != nil {
		return err
	}

	// 确保服务器地址包含端口
	smtpAddr := c.SendEmail.Server
	if !strings.Contains(smtpAddr, ":") {
		smtpAddr += ":465" // 默认 SSL 端口
	}
	host := strings.Split(smtpAddr, ":")[0]

	err = e.SendWithTLS(
		smtpAddr,
		smtp.PlainAuth("", c.SendEmail.Username, c.SendEmail.Password, host),
		&tls.Config{ServerName: host},
	)
	if err != nil {
		return fmt.Errorf("邮件发送失败: %w (Server: %s)", err, smtpAddr)
	}
	return nil
}
