package customer

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

var ErrNotFound = core.NewNotFoundError("customer not found")

type (
	Repository interface {
		CreateCustomer(ctx context.Context, c Customer, exec ...core.DBExecutor) (Customer, error)
		// QueryCustomers lists customers, newest first.
		// QueryFilter.Search does a case-insensitive match on one of Customer.Name, Customer.Email or Customer.PhoneNumber.
		QueryCustomers(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Customer, error)
		GetCustomer(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Customer, error)
		UpdateCustomer(ctx context.Context, c Customer, exec ...core.DBExecutor) (Customer, error)
		DeleteCustomer(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service interface {
		Create(ctx context.Context, nc NewCustomer) (Customer, user.User, error)
		Query(ctx context.Context, filter *QueryFilter) ([]Customer, error)
		GetByID(ctx context.Context, id string) (Customer, error)
		GetByUserID(ctx context.Context, userID string) (Customer, error)
		Update(ctx context.Context, c Customer, uc UpdateCustomer) (Customer, error)
		Delete(ctx context.Context, c Customer) error
	}

	service struct {
		tx      core.Transactor
		repo    Repository
		usrRepo user.Repository
		usrSvc  user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(tx core.Transactor, repo Repository, usrRepo user.Repository, usrSvc user.Service) Service {
	return &service{
		tx:      tx,
		repo:    repo,
		usrRepo: usrRepo,
		usrSvc:  usrSvc,
	}
}

// Create registers the customer account & its profile in a single transaction.
func (svc *service) Create(ctx context.Context, nc NewCustomer) (Customer, user.User, error) {
	now := time.Now().UTC()
	usr := user.User{
		Name:        nc.Name,
		Email:       nc.Email,
		PhoneNumber: nc.PhoneNumber,
		Address:     nc.Address,
		Role:        user.RoleCustomer,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nc.Password); err != nil {
		return Customer{}, user.User{}, errors.Wrap(err, "setting password")
	}

	var cust Customer
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if usr, err = svc.usrRepo.CreateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "creating user")
		}
		cust, err = svc.repo.CreateCustomer(ctx, Customer{
			UserID:       usr.ID,
			CustomerType: nc.CustomerType,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, exec)
		return errors.Wrap(err, "creating customer")
	})
	if err != nil {
		return Customer{}, user.User{}, err
	}

	svc.usrSvc.SendWelcomeMail(usr)
	return withUser(cust, usr), usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter) ([]Customer, error) {
	if filter == nil {
		filter = new(QueryFilter)
	}
	filter.Clean()
	return svc.repo.QueryCustomers(ctx, filter)
}

func (svc *service) GetByID(ctx context.Context, id string) (Customer, error) {
	return svc.repo.GetCustomer(ctx, GetFilter{ID: id})
}

func (svc *service) GetByUserID(ctx context.Context, userID string) (Customer, error) {
	return svc.repo.GetCustomer(ctx, GetFilter{UserID: userID})
}

// Update saves a validated UpdateCustomer; account details go to the User, the rest to the profile.
func (svc *service) Update(ctx context.Context, c Customer, uc UpdateCustomer) (Customer, error) {
	now := time.Now().UTC()
	var updated Customer

	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		usr, err := svc.usrRepo.GetUser(ctx, user.GetFilter{ID: c.UserID}, exec)
		if err != nil {
			return errors.Wrap(err, "finding customer user")
		}
		usr.Name = uc.Name
		usr.Email = uc.Email
		usr.PhoneNumber = uc.PhoneNumber
		usr.Address = uc.Address
		usr.UpdatedAt = now
		if usr, err = svc.usrRepo.UpdateUser(ctx, usr, exec); err != nil {
			return errors.Wrap(err, "updating customer user")
		}

		c.CustomerType = uc.CustomerType
		c.UpdatedAt = now
		if c, err = svc.repo.UpdateCustomer(ctx, c, exec); err != nil {
			return errors.Wrap(err, "updating customer")
		}
		updated = withUser(c, usr)
		return nil
	})
	return updated, err
}

// Delete removes the customer profile along with its account.
func (svc *service) Delete(ctx context.Context, c Customer) error {
	return svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.DeleteCustomer(ctx, c.ID, exec); err != nil {
			return errors.Wrap(err, "deleting customer")
		}
		_, err := svc.usrRepo.DeleteUsersByID(ctx, []string{c.UserID}, exec)
		return errors.Wrap(err, "deleting customer user")
	})
}

func withUser(c Customer, usr user.User) Customer {
	c.UserID = usr.ID
	c.Name = usr.Name
	c.Email = usr.Email
	c.PhoneNumber = usr.PhoneNumber
	c.Address = usr.Address
	return c
}
