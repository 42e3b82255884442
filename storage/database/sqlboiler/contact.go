package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/contact"
)

type contactRow struct {
	ID        string    `boil:"id"`
	Name      string    `boil:"name"`
	Email     string    `boil:"email"`
	Subject   string    `boil:"subject"`
	Message   string    `boil:"message"`
	CreatedAt time.Time `boil:"created_at"`
}

type contactRepository struct {
	repository
}

var _ contact.Repository = (*contactRepository)(nil) // interface compliance check

func NewContactRepository(exec core.DBExecutor) contact.Repository {
	return &contactRepository{repository{exec: exec}}
}

func (repo contactRepository) unboil(row contactRow) contact.Message {
	return contact.Message{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Subject:   row.Subject,
		Body:      row.Message,
		CreatedAt: row.CreatedAt.UTC(),
	}
}

func (repo contactRepository) CreateMessage(ctx context.Context, m contact.Message, exec ...core.DBExecutor) (contact.Message, error) {
	var row contactRow
	err := queries.Raw(
		`INSERT INTO "contact_messages" ("id", "name", "email", "subject", "message", "created_at") VALUES ($1, $2, $3, $4, $5, $6) RETURNING *`,
		uuid.New().String(), m.Name, m.Email, m.Subject, m.Body, m.CreatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return contact.Message{}, errors.Wrap(err, "inserting contact message")
	}
	return repo.unboil(row), nil
}

func (repo contactRepository) QueryMessages(ctx context.Context, exec ...core.DBExecutor) ([]contact.Message, error) {
	var rows []contactRow
	err := newQuery(qm.From(`"contact_messages"`), qm.OrderBy("created_at DESC")).Bind(ctx, repo.getExec(exec), &rows)
	if err != nil {
		return nil, errors.Wrap(err, "querying contact messages")
	}
	msgs := make([]contact.Message, 0, len(rows))
	for _, row := range rows {
		msgs = append(msgs, repo.unboil(row))
	}
	return msgs, nil
}
