package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/xavierca1/muyu-crm/internal/infra/mail"
)

// EmailJob is the payload published for each queued email.
type EmailJob struct {
	ID      string       `json:"id"`
	Message mail.Message `json:"message"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type EmailProducer struct {
	Ch publisher
}

func NewProducer(ch *amqp.Channel) *EmailProducer {
	return &EmailProducer{Ch: ch}
}

// Dispatch queues msg for the email worker.
func (p *EmailProducer) Dispatch(ctx context.Context, msg mail.Message) error {
	if len(msg.To) == 0 {
		return errors.New("email without recipients")
	}

	job := EmailJob{ID: uuid.New().String(), Message: msg}
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode email job: %w", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			MessageId:    job.ID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}

	jobsTotal.WithLabelValues("queued").Inc()
	return nil
}
