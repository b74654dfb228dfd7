package notify

import (
	"fmt"
	"log/slog"
	"strings"

	"sellerhub/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailNotifier 通过 SMTP 发送注册相关邮件。
type EmailNotifier struct {
	cfg    *config.EmailConfig
	logger *slog.Logger
}

// NewEmailNotifier 创建一个新的邮件通知器。
func NewEmailNotifier(cfg *config.EmailConfig, logger *slog.Logger) *EmailNotifier {
	return &EmailNotifier{
		cfg:    cfg,
		logger: logger,
	}
}

// SendCredentials 发送注册时下发的登录凭据。
//
// SMTP 未配置时跳过（注册响应已经携带凭据，发信只是补充渠道）。
func (n *EmailNotifier) SendCredentials(toEmail string, password string) error {
	if n == nil || n.cfg == nil || n.cfg.SMTPHost == "" || n.cfg.SMTPUser == "" || n.cfg.FromEmail == "" {
		if n != nil && n.logger != nil {
			n.logger.Warn("email config missing, skip credentials mail")
		}
		return nil
	}
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("empty recipient")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", n.cfg.FromEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "[SellerHub] 卖家账号已开通")

	body := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <div style="max-width: 520px; margin: 0 auto; padding: 16px;">
    <h2>SellerHub 账号已开通</h2>
    <p>登录邮箱：%s</p>
    <p>初始密码：</p>
    <div style="font-size: 22px; font-weight: bold; letter-spacing: 2px;">%s</div>
    <p>请登录后及时修改密码。</p>
  </div>
</body>
</html>`, toEmail, password)
	m.SetBody("text/html", body)

	d := gomail.NewDialer(n.cfg.SMTPHost, n.cfg.SMTPPort, n.cfg.SMTPUser, n.cfg.SMTPPass)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if n.logger != nil {
		n.logger.Info("credentials email sent", slog.String("to", toEmail))
	}
	return nil
}
