package utils

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"subminder/apperror"
	"subminder/models"
)

type SendgridNotifier struct {
	client *sendgrid.Client
	from   *mail.Email
}

func NewSendgridNotifier(apiKey, sender string) *SendgridNotifier {
	return &SendgridNotifier{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail("Subminder", sender),
	}
}

func (n *SendgridNotifier) Send(ctx context.Context, notice models.ReminderNotice) error {
	if notice.RecipientEmail == "" {
		return apperror.Dispatch(errors.New("no recipient address"), "subscription %s", notice.SubscriptionID)
	}

	subject, body := RenderReminderEmail(notice)
	to := mail.NewEmail(notice.Username, notice.RecipientEmail)
	message := mail.NewSingleEmail(n.from, subject, to, subject, body)

	resp, err := n.client.SendWithContext(ctx, message)
	if err != nil {
		return apperror.Dispatch(err, "sendgrid send to %s", notice.RecipientEmail)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperror.Dispatch(errors.Newf("status %d: %s", resp.StatusCode, resp.Body), "sendgrid send to %s", notice.RecipientEmail)
	}
	return nil
}
