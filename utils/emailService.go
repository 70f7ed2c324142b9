package utils

import (
	"context"
	"fmt"
	"html"
	"mime"
	"net/smtp"
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"

	"subminder/apperror"
	"subminder/config"
	"subminder/logger"
	"subminder/models"
)

// SMTPNotifier sends reminder mails through a plain SMTP relay with PLAIN auth.
type SMTPNotifier struct {
	host     string
	port     string
	from     string
	password string
	send     func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg *config.Config) *SMTPNotifier {
	return &SMTPNotifier{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		from:     cfg.EmailSender,
		password: cfg.Password,
		send:     smtp.SendMail,
	}
}

func (n *SMTPNotifier) Send(ctx context.Context, notice models.ReminderNotice) error {
	if notice.RecipientEmail == "" {
		return apperror.Dispatch(errors.New("no recipient address"), "subscription %s", notice.SubscriptionID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body := RenderReminderEmail(notice)
	return n.SendEmail([]string{notice.RecipientEmail}, subject, body)
}

// SendEmail delivers one html mail.
func (n *SMTPNotifier) SendEmail(to []string, subject string, htmlBody string) error {
	// MIME basics
	msg := "MIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n"
	msg += fmt.Sprintf("From: Subminder <%s>\r\n", n.from)
	msg += fmt.Sprintf("To: %s\r\n", strings.Join(to, ","))
	msg += fmt.Sprintf("Subject: %s\r\n\r\n", encodeHeader(subject))
	msg += htmlBody

	auth := smtp.PlainAuth("", n.from, n.password, n.host)
	if err := n.send(n.host+":"+n.port, auth, n.from, to, []byte(msg)); err != nil {
		return apperror.Dispatch(err, "smtp send to %s", strings.Join(to, ","))
	}
	return nil
}

// encodeHeader RFC 2047 encodes v after flattening its control characters.
func encodeHeader(v string) string {
	return mime.QEncoding.Encode("UTF-8", flattenControl(v))
}

func flattenControl(v string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
}

// LogNotifier only logs the rendered subject. For local development.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, notice models.ReminderNotice) error {
	subject, _ := RenderReminderEmail(notice)
	n.log.Infow("reminder email (not sent)",
		"to", notice.RecipientEmail,
		"subject", subject,
		"subscriptionId", notice.SubscriptionID,
		"tier", notice.Tier,
	)
	return nil
}

// NewNotifier picks the mail transport named by MAIL_PROVIDER.
func NewNotifier(cfg *config.Config, log *logger.Logger) (Notifier, error) {
	switch cfg.MailProvider {
	case "", "smtp":
		return NewSMTPNotifier(cfg), nil
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, errors.New("MAIL_PROVIDER=sendgrid needs SENDGRID_API_KEY")
		}
		return NewSendgridNotifier(cfg.SendgridAPIKey, cfg.EmailSender), nil
	case "log":
		return NewLogNotifier(log), nil
	default:
		return nil, errors.Newf("unknown MAIL_PROVIDER %q", cfg.MailProvider)
	}
}

// RenderReminderEmail builds the subject and html body for notice.
func RenderReminderEmail(notice models.ReminderNotice) (subject string, body string) {
	platform := html.EscapeString(notice.PlatformName)
	name := html.EscapeString(notice.Username)
	if name == "" {
		name = "there"
	}
	amount := formatAmount(notice)
	due := notice.DueDate.Format("January 2, 2006")

	plain := flattenControl(notice.PlatformName)

	var title, lead string
	switch notice.Tier {
	case models.TierDueToday:
		subject = fmt.Sprintf("%s payment is due today", plain)
		title = "Payment Due Today"
		lead = fmt.Sprintf(`<p>Your <strong>%s</strong> payment of <strong>%s</strong> is due <strong>today</strong>.</p>`, platform, amount)
	case models.TierOneDay:
		subject = fmt.Sprintf("%s renews tomorrow", plain)
		title = "Payment Due Tomorrow"
		lead = fmt.Sprintf(`<p>Your <strong>%s</strong> subscription renews <strong>tomorrow</strong> (%s) for <strong>%s</strong>.</p>`, platform, due, amount)
	default:
		subject = fmt.Sprintf("Reminder: %s renews in %d days", plain, notice.DaysLeft)
		title = "Upcoming Payment"
		lead = fmt.Sprintf(`<p>Your <strong>%s</strong> subscription renews in <strong>%d days</strong> on %s for <strong>%s</strong>.</p>`, platform, notice.DaysLeft, due, amount)
	}

	content := fmt.Sprintf(`
		<p>Hi %s,</p>
		%s
		<div class="info-box">
			Already paid? Mark it as paid in your dashboard so we can track the next billing date.
		</div>
		<p>Don't want this subscription anymore? Cancel it with the provider before the due date.</p>
	`, name, lead)

	return subject, getEmailTemplate(title, content)
}

func formatAmount(notice models.ReminderNotice) string {
	places := int32(2)
	if notice.Currency == models.CurrencyJPY {
		places = 0
	}
	return notice.Amount.StringFixed(places) + " " + string(notice.Currency)
}

// HTML wrapper shared by every outgoing mail
func getEmailTemplate(title string, bodyContent string) string {
	return fmt.Sprintf(`
	<!DOCTYPE html>
	<html>
	<head>
		<style>
			body { font-family: 'Helvetica Neue', Helvetica, Arial, sans-serif; background-color: #F6F6F6; margin: 0; padding: 0; }
			.container { max-width: 600px; margin: 40px auto; background: #FFFFFF; border-radius: 8px; overflow: hidden; }
			.header { background-color: #1F2A44; padding: 30px; text-align: center; }
			.header h1 { color: #FFFFFF; margin: 0; font-size: 24px; letter-spacing: 1px; }
			.content { padding: 40px 30px; color: #1F2A44; line-height: 1.6; }
			.footer { background-color: #F6F6F6; padding: 20px; text-align: center; font-size: 12px; color: #666666; }
			.info-box { background: #E8F0FE; padding: 15px; border-radius: 4px; border-left: 4px solid #4F7CFF; margin: 20px 0; }
		</style>
	</head>
	<body>
		<div class="container">
			<div class="header">
				<h1>SUBMINDER</h1>
			</div>
			<div class="content">
				<h2>%s</h2>
				%s
			</div>
			<div class="footer">
				You are receiving this because reminders are on for this subscription.
			</div>
		</div>
	</body>
	</html>
	`, title, bodyContent)
}
