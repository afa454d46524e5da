package mailer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"

	tpl "github.com/oksasatya/otp-auth-gateway/pkg/mailer/templates"
)

// Outcome tells the consumer how to settle a delivery.
type Outcome int

const (
	// Ack removes the message; it was sent.
	Ack Outcome = iota
	// Requeue returns the message for another attempt.
	Requeue
	// Drop discards a message that can never be sent.
	Drop
)

// Worker renders queued EmailJobs and hands them to a Sender.
type Worker struct {
	Sender  Sender
	Logger  *logrus.Logger
	Timeout time.Duration
}

func NewWorker(sender Sender, logger *logrus.Logger) *Worker {
	return &Worker{Sender: sender, Logger: logger, Timeout: 15 * time.Second}
}

// Handle processes one message body.
func (w *Worker) Handle(ctx context.Context, body []byte) Outcome {
	var job EmailJob
	if err := json.Unmarshal(body, &job); err != nil {
		w.Logger.WithError(err).Warn("bad email job")
		return Drop
	}
	if !job.Valid() {
		w.Logger.WithField("template", job.Template).Warn("incomplete email job")
		return Drop
	}

	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		s, t, h, err := tpl.Render(job.Template, job.Data)
		if err != nil {
			w.Logger.WithError(err).WithField("template", job.Template).Error("render failed")
			return Drop
		}
		subject, text, html = s, t, h
	}

	c, cancel := context.WithTimeout(ctx, w.Timeout)
	defer cancel()
	if err := w.Sender.Send(c, job.To, subject, text, html); err != nil {
		w.Logger.WithError(err).WithField("template", job.Template).Error("send failed")
		return Requeue
	}
	w.Logger.WithField("template", job.Template).Info("email sent")
	return Ack
}
