// Package email arma y envía los mails de verificación y reset.
package email

import "github.com/dropDatabas3/studytrack/internal/observability/logger"

// Sender es el transporte de salida (SMTP real o log en dev).
type Sender interface {
	Send(to string, subject string, htmlBody string, textBody string) error
}

// LogSender escribe el mail al log en lugar de enviarlo. Para desarrollo
// local sin SMTP configurado.
type LogSender struct{}

func (LogSender) Send(to, subject, htmlBody, textBody string) error {
	logger.Named("email.log").Info("outbound email (not sent)",
		logger.String("to", to),
		logger.String("subject", subject),
		logger.Int("html_bytes", len(htmlBody)),
		logger.String("text", textBody),
	)
	return nil
}
