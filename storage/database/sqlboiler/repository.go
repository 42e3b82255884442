// Package boiledrepos implements the repositories on top of the sqlboiler query builder.
package boiledrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
)

var dialect = drivers.Dialect{
	LQ:                   '"',
	RQ:                   '"',
	UseIndexPlaceholders: true,
	UseDefaultKeyword:    true,
}

// newQuery builds a postgres query from mods.
func newQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

type repository struct {
	exec core.DBExecutor
}

// getExec returns the executor provided by the service (a transaction) or the repository's.
func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// exists tells whether the query built from mods returns any row.
func (repo repository) exists(ctx context.Context, exec []core.DBExecutor, mods ...qm.QueryMod) (bool, error) {
	mods = append([]qm.QueryMod{qm.Select("1")}, mods...)
	mods = append(mods, qm.Limit(1))

	var one int
	err := newQuery(mods...).QueryRowContext(ctx, repo.getExec(exec)).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// trapNoRowsErr maps "no rows" errors to notFound.
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// orderBy turns ordering into an ORDER BY mod, falling back to dflt.
func orderBy(ordering []core.DBOrdering, dflt string) qm.QueryMod {
	if len(ordering) == 0 {
		return qm.OrderBy(dflt)
	}
	orderList := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		orderList = append(orderList, ord.String())
	}
	return qm.OrderBy(strings.Join(orderList, ", "))
}

// searchMod matches `search` case-insensitively on any of cols.
func searchMod(search string, cols ...string) qm.QueryMod {
	val := "%" + search + "%"
	clauses := make([]string, 0, len(cols))
	args := make([]interface{}, 0, len(cols))
	for _, col := range cols {
		clauses = append(clauses, col+" ILIKE ?")
		args = append(args, val)
	}
	return qm.Where(strings.Join(clauses, " OR "), args...)
}

// checkAffected wraps err, or returns notFound when the statement touched no rows.
func checkAffected(res sql.Result, err error, notFound error, msg string) error {
	if err != nil {
		return errors.Wrap(err, msg)
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, msg)
	}
	if cnt == 0 {
		return notFound
	}
	return nil
}
