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
	"github.com/trezcool/smartbill/core/report"
)

type reportRow struct {
	ID         string    `boil:"id"`
	SenderID   string    `boil:"sender_id"`
	SenderRole string    `boil:"sender_role"`
	ReportType string    `boil:"report_type"`
	Content    string    `boil:"content"`
	CreatedAt  time.Time `boil:"created_at"`
	UpdatedAt  time.Time `boil:"updated_at"`

	SenderName null.String `boil:"sender_name"`
}

type reportRepository struct {
	repository
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(exec core.DBExecutor) report.Repository {
	return &reportRepository{repository{exec: exec}}
}

func (repo reportRepository) unboil(row reportRow) report.Report {
	return report.Report{
		ID:         row.ID,
		SenderID:   row.SenderID,
		SenderRole: row.SenderRole,
		ReportType: row.ReportType,
		Content:    row.Content,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
		SenderName: row.SenderName.String,
	}
}

func (repo reportRepository) selectMods(mods ...qm.QueryMod) []qm.QueryMod {
	return append([]qm.QueryMod{
		qm.Select("r.*", "u.name AS sender_name"),
		qm.From(`"reports" AS r`),
		qm.LeftOuterJoin(`"users" AS u ON u.id = r.sender_id`),
	}, mods...)
}

func (repo reportRepository) CreateReport(ctx context.Context, r report.Report, exec ...core.DBExecutor) (report.Report, error) {
	var row reportRow
	err := queries.Raw(
		`INSERT INTO "reports" ("id", "sender_id", "sender_role", "report_type", "content", "created_at", "updated_at")
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING *`,
		uuid.New().String(), r.SenderID, r.SenderRole, r.ReportType, r.Content, r.CreatedAt.UTC(), r.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return report.Report{}, errors.Wrap(err, "inserting report")
	}
	return repo.unboil(row), nil
}

func (repo reportRepository) QueryReports(ctx context.Context, senderID string, exec ...core.DBExecutor) ([]report.Report, error) {
	var mods []qm.QueryMod
	if senderID != "" {
		mods = append(mods, qm.Where("r.sender_id = ?", senderID))
	}
	mods = append(mods, qm.OrderBy("r.created_at DESC"))

	var rows []reportRow
	if err := newQuery(repo.selectMods(mods...)...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying reports")
	}
	reports := make([]report.Report, 0, len(rows))
	for _, row := range rows {
		reports = append(reports, repo.unboil(row))
	}
	return reports, nil
}

func (repo reportRepository) GetReport(ctx context.Context, id string, exec ...core.DBExecutor) (report.Report, error) {
	if !isUUID(id) {
		return report.Report{}, report.ErrNotFound
	}
	var row reportRow
	err := newQuery(repo.selectMods(qm.Where("r.id = ?", id), qm.Limit(1))...).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound, "finding report")
	}
	return repo.unboil(row), nil
}

func (repo reportRepository) UpdateReport(ctx context.Context, r report.Report, exec ...core.DBExecutor) (report.Report, error) {
	var row reportRow
	err := queries.Raw(
		`UPDATE "reports" SET "report_type" = $2, "content" = $3, "updated_at" = $4 WHERE "id" = $1 RETURNING *`,
		r.ID, r.ReportType, r.Content, r.UpdatedAt.UTC(),
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return report.Report{}, trapNoRowsErr(err, report.ErrNotFound, "updating report")
	}
	updated := repo.unboil(row)
	updated.SenderName = r.SenderName
	return updated, nil
}

func (repo reportRepository) DeleteReport(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return report.ErrNotFound
	}
	res, err := queries.Raw(`DELETE FROM "reports" WHERE "id" = $1`, id).ExecContext(ctx, repo.getExec(exec))
	return checkAffected(res, err, report.ErrNotFound, "deleting report")
}
