package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query() []user.User {
	users := make([]user.User, 0, len(repo.db.table))
	for _, u := range repo.db.table {
		users = append(users, u)
	}
	return users
}

func (repo *userRepository) CheckUniqueness(_ context.Context, email, phone string, excludedIDs []string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, usr := range repo.db.table {
		if core.StringInSlice(usr.ID, excludedIDs) {
			continue
		}
		if usr.Email == email {
			return user.ErrEmailExists
		}
		if phone != "" && usr.PhoneNumber == phone {
			return user.ErrPhoneExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	usr.ID = newID()
	repo.db.table[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	users := repo.query()
	repo.db.RUnlock()

	if filter != nil && !filter.IsEmpty() {
		search := strings.ToLower(filter.Search)
		filtered := make([]user.User, 0, len(users))
		for _, u := range users {
			// users with search keyword matching any Name, Email or PhoneNumber ?
			if search != "" &&
				!strings.Contains(strings.ToLower(u.Name), search) &&
				!strings.Contains(strings.ToLower(u.Email), search) &&
				!strings.Contains(u.PhoneNumber, search) {
				continue
			}
			// users with any of the specified roles
			if len(filter.Roles) > 0 && !core.StringInSlice(u.Role, filter.Roles) {
				continue
			}
			if filter.IsActive != nil && u.IsActive != *filter.IsActive {
				continue
			}
			if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
				continue
			}
			if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
				continue
			}
			filtered = append(filtered, u)
		}
		users = filtered
	}

	sortUsers(users, ordering)
	return users, nil
}

// sortUsers sorts by the first supported ordering, newest first by default.
func sortUsers(users []user.User, ordering []core.DBOrdering) {
	ord := core.DBOrdering{Field: "created_at"}
	if len(ordering) > 0 {
		ord = ordering[0]
	}
	less := func(i, j int) bool {
		a, b := users[i], users[j]
		switch ord.Field {
		case "name":
			return a.Name < b.Name
		case "email":
			return a.Email < b.Email
		case "role":
			return a.Role < b.Role
		case "last_login":
			return a.LastLogin.Before(b.LastLogin)
		case "updated_at":
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	}
	sort.SliceStable(users, func(i, j int) bool {
		if ord.Ascending {
			return less(i, j)
		}
		return less(j, i)
	})
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.table[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	if filter.Email != "" {
		for _, usr := range repo.db.table {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	repo.db.table[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}
