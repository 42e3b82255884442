package contact

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/smartbill/core"
)

// Message is a message sent through the public contact form.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Body      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type NewMessage struct {
	Name    string `json:"name" validate:"required,notblank,max=100"`
	Email   string `json:"email" validate:"required,email,max=255"`
	Subject string `json:"subject" validate:"required,notblank,max=150"`
	Body    string `json:"message" validate:"required,notblank,max=1000"`
}

func (nm *NewMessage) Validate(validate *validator.Validate) error {
	nm.Name = core.CleanString(nm.Name)
	nm.Email = core.CleanString(nm.Email, true /* lower */)
	nm.Subject = core.CleanString(nm.Subject)
	nm.Body = core.CleanString(nm.Body)
	return validate.Struct(nm)
}

type (
	Repository interface {
		CreateMessage(ctx context.Context, m Message, exec ...core.DBExecutor) (Message, error)
		// QueryMessages lists messages, newest first.
		QueryMessages(ctx context.Context, exec ...core.DBExecutor) ([]Message, error)
	}

	Service interface {
		Create(ctx context.Context, nm NewMessage) (Message, error)
		Query(ctx context.Context) ([]Message, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, nm NewMessage) (Message, error) {
	return svc.repo.CreateMessage(ctx, Message{
		Name:      nm.Name,
		Email:     nm.Email,
		Subject:   nm.Subject,
		Body:      nm.Body,
		CreatedAt: time.Now().UTC(),
	})
}

func (svc *service) Query(ctx context.Context) ([]Message, error) {
	return svc.repo.QueryMessages(ctx)
}
