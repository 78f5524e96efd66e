package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/infra/mail"
)

var jobsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "crm_email_jobs_total",
		Help: "Queued campaign emails by outcome",
	},
	[]string{"status"},
)

// Mailer delivers one email synchronously.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

type Worker struct {
	Channel *amqp.Channel
	Mailer  Mailer
	Log     *zap.Logger
}

func NewWorker(ch *amqp.Channel, mailer Mailer, log *zap.Logger) *Worker {
	return &Worker{Channel: ch, Mailer: mailer, Log: log}
}

// Start consumes the email queue until ctx is done or the channel closes.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.Channel.Qos(5, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}
	msgs, err := w.Channel.ConsumeWithContext(ctx,
		QueueName,
		"crm-email-worker",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	w.Log.Info("email worker started", zap.String("queue", QueueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				w.Log.Warn("email queue channel closed")
				return nil
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks delivered mail and dead-letters everything else. SMTP failures
// are not requeued so a bad address cannot loop forever.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var job EmailJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.Log.Error("malformed email job", zap.Error(err))
		jobsTotal.WithLabelValues("malformed").Inc()
		d.Nack(false, false)
		return
	}

	if err := w.Mailer.Send(ctx, job.Message); err != nil {
		w.Log.Error("email job failed",
			zap.String("job_id", job.ID),
			zap.Strings("to", job.Message.To),
			zap.Error(err))
		jobsTotal.WithLabelValues("failed").Inc()
		d.Nack(false, false)
		return
	}

	w.Log.Debug("email job sent", zap.String("job_id", job.ID), zap.Strings("to", job.Message.To))
	jobsTotal.WithLabelValues("sent").Inc()
	d.Ack(false)
}
