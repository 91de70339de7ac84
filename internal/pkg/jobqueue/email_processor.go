package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ManuelReschke/Lernhub/internal/pkg/mail"
)

const sendEmailTimeout = 30 * time.Second

// processSendEmailJob renders the notification template and hands it to the mailer.
func (q *Queue) processSendEmailJob(ctx context.Context, job *Job) error {
	if q.mailer == nil {
		return errors.New("no mail sender configured")
	}
	payload, err := SendEmailJobPayloadFromMap(job.Payload)
	if err != nil {
		return fmt.Errorf("invalid send_email payload: %w", err)
	}
	if payload.Recipient == "" {
		return errors.New("send_email payload missing recipient")
	}

	subject, body, err := mail.Render(payload.TemplateID, payload.Data)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendEmailTimeout)
	defer cancel()
	return q.mailer.Send(sendCtx, payload.Recipient, subject, body)
}
