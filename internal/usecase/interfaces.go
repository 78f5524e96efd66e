package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/muyu-crm/internal/infra/mail"
)

// EmailService sends one message synchronously.
type EmailService interface {
	Send(ctx context.Context, msg mail.Message) error
	Address() string
}

// EmailDispatcher hands a message off for delivery, either to the broker
// or straight to SMTP.
type EmailDispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message) error
}

type WhatsAppService interface {
	Configured() bool
	SendText(ctx context.Context, input whatsapp.SendTextInput) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash, salt string) (ok bool, needsUpgrade bool)
}

type TokenService interface {
	Issue(p entity.Principal) (string, time.Time, error)
	Parse(raw string) (entity.Principal, error)
}

type ChatModel interface {
	Configured() bool
	Complete(ctx context.Context, system, user string) (string, error)
}

type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}
