package boiledrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/complaint"
)

type complaintRow struct {
	ID             string    `boil:"id"`
	UserID         string    `boil:"user_id"`
	Subject        string    `boil:"subject"`
	Description    string    `boil:"description"`
	Status         string    `boil:"status"`
	ResolutionDate null.Time `boil:"resolution_date"`
	CreatedAt      time.Time `boil:"created_at"`
	UpdatedAt      time.Time `boil:"updated_at"`

	UserName null.String `boil:"user_name"`
}

type complaintRepository struct {
	repository
}

var _ complaint.Repository = (*complaintRepository)(nil) // interface compliance check

func NewComplaintRepository(exec core.DBExecutor) complaint.Repository {
	return &complaintRepository{repository{exec: exec}}
}

func (repo complaintRepository) unboil(row complaintRow) complaint.Complaint {
	c := complaint.Complaint{
		ID:          row.ID,
		UserID:      row.UserID,
		Subject:     row.Subject,
		Description: row.Description,
		Status:      row.Status,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
		UserName:    row.UserName.String,
	}
	if row.ResolutionDate.Valid {
		date := row.ResolutionDate.Time.UTC()
		c.ResolutionDate = &date
	}
	return c
}

func (repo complaintRepository) selectMods(mods ...qm.QueryMod) []qm.QueryMod {
	return append([]qm.QueryMod{
		qm.Select("cp.*", "u.name AS user_name"),
		qm.From(`"complaints" AS cp`),
		qm.LeftOuterJoin(`"users" AS u ON u.id = cp.user_id`),
	}, mods...)
}

func (repo complaintRepository) CreateComplaint(ctx context.Context, c complaint.Complaint, exec ...core.DBExecutor) (complaint.Complaint, error) {
	c.ID = uuid.New().String()
	_, err := queries.Raw(
		`INSERT INTO "complaints" ("id", "user_id", "subject", "description", "status", "resolution_date", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		c.ID, c.UserID, c.Subject, c.Description, c.Status, null.TimeFromPtr(c.ResolutionDate), c.CreatedAt.UTC(), c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return complaint.Complaint{}, errors.Wrap(err, "inserting complaint")
	}
	return repo.GetComplaint(ctx, c.ID, exec...)
}

func (repo complaintRepository) QueryComplaints(ctx context.Context, filter complaint.QueryFilter, exec ...core.DBExecutor) ([]complaint.Complaint, error) {
	var mods []qm.QueryMod
	if filter.UserID != "" {
		mods = append(mods, qm.Where("cp.user_id = ?", filter.UserID))
	}
	if filter.Status != "" {
		mods = append(mods, qm.Where("cp.status = ?", filter.Status))
	}
	mods = append(mods, qm.OrderBy("cp.created_at DESC"))

	var rows []complaintRow
	if err := newQuery(repo.selectMods(mods...)...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying complaints")
	}
	complaints := make([]complaint.Complaint, 0, len(rows))
	for _, row := range rows {
		complaints = append(complaints, repo.unboil(row))
	}
	return complaints, nil
}

func (repo complaintRepository) GetComplaint(ctx context.Context, id string, exec ...core.DBExecutor) (complaint.Complaint, error) {
	if !isUUID(id) {
		return complaint.Complaint{}, complaint.ErrNotFound
	}
	var row complaintRow
	err := newQuery(repo.selectMods(qm.Where("cp.id = ?", id), qm.Limit(1))...).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return complaint.Complaint{}, trapNoRowsErr(err, complaint.ErrNotFound, "finding complaint")
	}
	return repo.unboil(row), nil
}

func (repo complaintRepository) UpdateComplaint(ctx context.Context, c complaint.Complaint, exec ...core.DBExecutor) (complaint.Complaint, error) {
	res, err := queries.Raw(
		`UPDATE "complaints" SET "status" = $2, "resolution_date" = $3, "updated_at" = $4 WHERE "id" = $1`,
		c.ID, c.Status, null.TimeFromPtr(c.ResolutionDate), c.UpdatedAt.UTC(),
	).ExecContext(ctx, repo.getExec(exec))
	if err = checkAffected(res, err, complaint.ErrNotFound, "updating complaint"); err != nil {
		return complaint.Complaint{}, err
	}
	return repo.GetComplaint(ctx, c.ID, exec...)
}

func (repo complaintRepository) DeleteComplaint(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return complaint.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "complaints" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return checkAffected(res, err, complaint.ErrNotFound, "deleting complaint")
}
