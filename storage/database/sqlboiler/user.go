package boiledrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/storage/database"
)

type userRow struct {
	ID           string      `boil:"id"`
	Name         string      `boil:"name"`
	Email        string      `boil:"email"`
	PhoneNumber  null.String `boil:"phone_number"`
	Address      string      `boil:"address"`
	Image        null.String `boil:"image"`
	Role         string      `boil:"role"`
	IsActive     bool        `boil:"is_active"`
	PasswordHash []byte      `boil:"password_hash"`
	CreatedAt    time.Time   `boil:"created_at"`
	UpdatedAt    time.Time   `boil:"updated_at"`
	LastLogin    null.Time   `boil:"last_login"`
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(exec core.DBExecutor) user.Repository {
	return &userRepository{repository{exec: exec}}
}

func (repo userRepository) boil(usr user.User) userRow {
	return userRow{
		ID:           usr.ID,
		Name:         usr.Name,
		Email:        usr.Email,
		PhoneNumber:  null.NewString(usr.PhoneNumber, usr.PhoneNumber != ""),
		Address:      usr.Address,
		Image:        null.NewString(usr.Image, usr.Image != ""),
		Role:         usr.Role,
		IsActive:     usr.IsActive,
		PasswordHash: usr.PasswordHash,
		CreatedAt:    usr.CreatedAt.UTC(),
		UpdatedAt:    usr.UpdatedAt.UTC(),
		LastLogin:    null.NewTime(usr.LastLogin.UTC(), !usr.LastLogin.IsZero()),
	}
}

func (repo userRepository) unboil(row userRow) user.User {
	return user.User{
		ID:           row.ID,
		Name:         row.Name,
		Email:        row.Email,
		PhoneNumber:  row.PhoneNumber.String,
		Address:      row.Address,
		Image:        row.Image.String,
		Role:         row.Role,
		IsActive:     row.IsActive,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    row.LastLogin.Time.UTC(),
	}
}

// trapUniqueErr maps unique constraint violations to their domain errors.
func (repo userRepository) trapUniqueErr(err error, msg string) error {
	switch {
	case database.IsUniqueViolation(err, "users_email_key"):
		return user.ErrEmailExists
	case database.IsUniqueViolation(err, "users_phone_number_key"):
		return user.ErrPhoneExists
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, email, phone string, excludedIDs []string, exec ...core.DBExecutor) error {
	mods := []qm.QueryMod{qm.Select("email"), qm.From(`"users"`)}
	if phone != "" {
		mods = append(mods, qm.Expr(qm.Where("email = ?", email), qm.Or("phone_number = ?", phone)))
	} else {
		mods = append(mods, qm.Where("email = ?", email))
	}
	if len(excludedIDs) > 0 {
		mods = append(mods, qm.Where("NOT (id = ANY(?::uuid[]))", pq.Array(excludedIDs)))
	}
	mods = append(mods, qm.Limit(1))

	var row struct {
		Email string `boil:"email"`
	}
	err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &row)
	switch {
	case errors.Cause(err) == sql.ErrNoRows:
		return nil
	case err != nil:
		return errors.Wrap(err, "checking user uniqueness")
	case row.Email == email:
		return user.ErrEmailExists
	}
	return user.ErrPhoneExists
}

const userColumns = `"id", "name", "email", "phone_number", "address", "image", "role", "is_active", "password_hash", "created_at", "updated_at", "last_login"`

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	usr.ID = uuid.New().String()
	u := repo.boil(usr)

	var row userRow
	err := queries.Raw(
		`INSERT INTO "users" (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12) RETURNING *`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.Address, u.Image, u.Role, u.IsActive, u.PasswordHash, u.CreatedAt, u.UpdatedAt, u.LastLogin,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		return user.User{}, repo.trapUniqueErr(err, "inserting user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]user.User, error) {
	mods := []qm.QueryMod{qm.From(`"users"`)}

	if filter != nil {
		// users with Name, Email or PhoneNumber matching the search keyword
		if filter.Search != "" {
			mods = append(mods, searchMod(filter.Search, "name", "email", "phone_number"))
		}
		// users with any of the provided roles
		if len(filter.Roles) > 0 {
			roles := make([]interface{}, 0, len(filter.Roles))
			for _, role := range filter.Roles {
				roles = append(roles, role)
			}
			mods = append(mods, qm.WhereIn("role IN ?", roles...))
		}
		if filter.IsActive != nil {
			mods = append(mods, qm.Where("is_active = ?", *filter.IsActive))
		}
		if !filter.CreatedFrom.IsZero() {
			mods = append(mods, qm.Where("created_at >= ?", filter.CreatedFrom.UTC()))
		}
		if !filter.CreatedTo.IsZero() {
			mods = append(mods, qm.Where("created_at <= ?", filter.CreatedTo.UTC()))
		}
	}
	mods = append(mods, orderBy(ordering, "created_at DESC"))

	var rows []userRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &rows); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, repo.unboil(row))
	}
	return users, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	mods := []qm.QueryMod{qm.From(`"users"`)}
	switch {
	case filter.ID != "":
		if !isUUID(filter.ID) {
			return user.User{}, user.ErrNotFound
		}
		mods = append(mods, qm.Where("id = ?", filter.ID))
	case filter.Email != "":
		mods = append(mods, qm.Where("email = ?", filter.Email))
	default:
		return user.User{}, user.ErrNotFound
	}
	mods = append(mods, qm.Limit(1))

	var row userRow
	if err := newQuery(mods...).Bind(ctx, repo.getExec(exec), &row); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	u := repo.boil(usr)

	var row userRow
	err := queries.Raw(
		`UPDATE "users" SET "name" = $2, "email" = $3, "phone_number" = $4, "address" = $5, "image" = $6, "role" = $7,
		"is_active" = $8, "password_hash" = $9, "updated_at" = $10, "last_login" = $11 WHERE "id" = $1 RETURNING *`,
		u.ID, u.Name, u.Email, u.PhoneNumber, u.Address, u.Image, u.Role, u.IsActive, u.PasswordHash, u.UpdatedAt, u.LastLogin,
	).Bind(ctx, repo.getExec(exec), &row)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, repo.trapUniqueErr(err, "updating user")
	}
	return repo.unboil(row), nil
}

func (repo userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo userRepository) DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	res, err := queries.Raw(`DELETE FROM "users" WHERE "id" = ANY($1::uuid[])`, pq.Array(ids)).ExecContext(ctx, repo.getExec(exec))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return int(cnt), nil
}
