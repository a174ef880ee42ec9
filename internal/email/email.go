package email

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"time"

	"transparency-monitor/internal/config"
)

// Service handles email operations
type Service struct {
	config *config.EmailConfig
}

// NewService creates a new email service
func NewService(cfg *config.EmailConfig) *Service {
	return &Service{
		config: cfg,
	}
}

// SendAssessmentReceived confirms that a self-assessment was received
func (s *Service) SendAssessmentReceived(to, orgName string, cycleYear int) error {
	subject := fmt.Sprintf("Autoavaliação recebida - Ciclo %d", cycleYear)

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Autoavaliação recebida</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2e7d32;">Autoavaliação recebida</h2>
        <p>A autoavaliação de transparência do órgão <strong>%s</strong> referente ao ciclo %d foi recebida com sucesso.</p>
        <p>A equipe de análise examinará as respostas e as evidências enviadas. Após a análise inicial, o órgão será notificado sobre o resultado e sobre o prazo para apresentação de recurso.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2e7d32; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Acompanhar avaliação</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, orgName, cycleYear, s.config.PortalURL)

	return s.sendEmail(to, subject, body)
}

// SendReturnedForAppeal notifies the organization that the first-pass
// analysis is done and the appeal window is open
func (s *Service) SendReturnedForAppeal(to, orgName string, firstPassScore, totalPossible int, deadline time.Time) error {
	subject := "Resultado da análise inicial - Prazo para recurso aberto"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Prazo para recurso</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1565c0;">Análise inicial concluída</h2>
        <p>A análise inicial da autoavaliação do órgão <strong>%s</strong> foi concluída.</p>
        <div style="background-color: #e3f2fd; border-left: 4px solid #1565c0; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Pontuação após análise inicial:</strong> %d de %d pontos</p>
            <p style="margin: 5px 0;"><strong>Prazo final para recurso:</strong> %s</p>
        </div>
        <p>Caso o órgão discorde de algum item da análise, é possível apresentar recurso dentro do prazo de 5 dias úteis indicado acima. Após o prazo, o resultado da análise inicial será considerado aceito.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #1565c0; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Apresentar recurso</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, orgName, firstPassScore, totalPossible, deadline.Format("02/01/2006 15:04"), s.config.PortalURL)

	return s.sendEmail(to, subject, body)
}

// SendAppealReceived confirms that an appeal was received
func (s *Service) SendAppealReceived(to, orgName string) error {
	subject := "Recurso recebido"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Recurso recebido</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1565c0;">Recurso recebido</h2>
        <p>O recurso apresentado pelo órgão <strong>%s</strong> foi recebido e está em análise.</p>
        <p>O órgão será notificado quando a análise final for concluída e a pontuação definitiva for publicada.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, orgName)

	return s.sendEmail(to, subject, body)
}

// SendAppealDeadlineExpired notifies the organization that the appeal
// window closed without an appeal, making the first-pass result stand
func (s *Service) SendAppealDeadlineExpired(to, orgName string, firstPassScore, totalPossible int) error {
	subject := "Prazo para recurso encerrado"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Prazo encerrado</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #e65100;">Prazo para recurso encerrado</h2>
        <p>O prazo para apresentação de recurso do órgão <strong>%s</strong> foi encerrado sem manifestação.</p>
        <div style="background-color: #fff3e0; border-left: 4px solid #e65100; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0;"><strong>Pontuação da análise inicial:</strong> %d de %d pontos</p>
        </div>
        <p>O resultado da análise inicial será mantido e seguirá para a finalização da avaliação.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, orgName, firstPassScore, totalPossible)

	return s.sendEmail(to, subject, body)
}

// SendFinalScorePublished notifies the organization of its final score
func (s *Service) SendFinalScorePublished(to, orgName string, finalScore, totalPossible int, cycleYear int) error {
	subject := fmt.Sprintf("Pontuação final publicada - Ciclo %d", cycleYear)

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Pontuação final</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2e7d32;">Avaliação finalizada</h2>
        <p>A avaliação de transparência do órgão <strong>%s</strong> referente ao ciclo %d foi finalizada.</p>
        <div style="background-color: #e8f5e9; border-left: 4px solid #2e7d32; padding: 15px; margin: 20px 0;">
            <p style="margin: 5px 0; font-size: 18px;"><strong>Pontuação final:</strong> %d de %d pontos</p>
        </div>
        <p>O detalhamento por requisito está disponível no portal.</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="%s" style="background-color: #2e7d32; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">Ver resultado detalhado</a>
        </div>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, orgName, cycleYear, finalScore, totalPossible, s.config.PortalURL)

	return s.sendEmail(to, subject, body)
}

// SendVerificationCode sends a one-time code for password recovery or
// first access
func (s *Service) SendVerificationCode(to, name, code string, expiresIn time.Duration) error {
	subject := "Código de verificação"

	body := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Código de verificação</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #1565c0;">Código de verificação</h2>
        <p>Olá %s,</p>
        <p>Use o código abaixo para continuar:</p>
        <div style="text-align: center; margin: 30px 0;">
            <span style="font-size: 32px; letter-spacing: 8px; font-weight: bold; color: #1565c0;">%s</span>
        </div>
        <p>O código expira em %d minutos e pode ser usado apenas uma vez.</p>
        <p>Se você não solicitou este código, ignore esta mensagem.</p>
        <hr style="border: none; border-top: 1px solid #eee; margin: 20px 0;">
        <p style="color: #999; font-size: 12px;">Esta é uma mensagem automática. Por favor, não responda.</p>
    </div>
</body>
</html>
`, name, code, int(expiresIn.Minutes()))

	return s.sendEmail(to, subject, body)
}

// sendEmail sends an email using SMTP
func (s *Service) sendEmail(to, subject, body string) error {
	headers := make(map[string]string)
	headers["From"] = s.config.SMTPFrom
	headers["To"] = to
	headers["Subject"] = subject
	headers["MIME-Version"] = "1.0"
	headers["Content-Type"] = "text/html; charset=UTF-8"

	var message bytes.Buffer
	for k, v := range headers {
		message.WriteString(fmt.Sprintf("%s: %s\r\n", k, v))
	}
	message.WriteString("\r\n")
	message.WriteString(body)

	addr := net.JoinHostPort(s.config.SMTPHost, s.config.SMTPPort)
	slog.Debug("Attempting to connect to SMTP server",
		"address", addr,
		"host", s.config.SMTPHost,
		"port", s.config.SMTPPort,
	)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		slog.Error("Failed to connect to SMTP server",
			"address", addr,
			"error", err,
		)
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer func(conn net.Conn) {
		err := conn.Close()
		if err != nil {
			slog.Error("Failed to close SMTP connection", "error", err)
		}
	}(conn)

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		slog.Error("Failed to create SMTP client", "error", err)
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func(client *smtp.Client) {
		err := client.Close()
		if err != nil {
			slog.Error("Failed to close SMTP client", "error", err)
		}
	}(client)

	// Authenticate only if credentials are provided. For development
	// (e.g., Mailpit) no authentication is needed.
	if s.config.SMTPUsername != "" && s.config.SMTPPassword != "" {
		auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
		_ = client.Auth(auth)
	}

	if err := client.Mail(s.config.SMTPFrom); err != nil {
		slog.Error("Failed to set sender",
			"from", s.config.SMTPFrom,
			"error", err,
		)
		return fmt.Errorf("failed to set sender: %w", err)
	}

	if err := client.Rcpt(to); err != nil {
		slog.Error("Failed to set recipient",
			"to", to,
			"error", err,
		)
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		slog.Error("Failed to initiate data transfer", "error", err)
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	defer func(wc io.WriteCloser) {
		err := wc.Close()
		if err != nil {
			slog.Error("Failed to close write closer", "error", err)
		}
	}(wc)

	if _, err := wc.Write(message.Bytes()); err != nil {
		slog.Error("Failed to write message", "error", err)
		return fmt.Errorf("failed to write message: %w", err)
	}

	slog.Info("Email sent successfully", "to", to)

	return nil
}
