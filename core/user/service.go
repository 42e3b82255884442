package user

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/smartbill/core"
)

var (
	// errors
	ErrNotFound     = core.NewNotFoundError("user not found")
	ErrEmailExists  = errors.New("a user with this email already exists")
	ErrPhoneExists  = errors.New("a user with this phone number already exists")
	ErrInvalidToken = errors.New("invalid value")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrEmailExists or ErrPhoneExists if another user (not in excludedIDs) uses them.
		CheckUniqueness(ctx context.Context, email, phone string, excludedIDs []string, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name, User.Email or User.PhoneNumber.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		UpdateOrCreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CheckUniqueness(ctx context.Context, email, phone string, excludedUsers ...User) error
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		QueryStaff(ctx context.Context, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Update(ctx context.Context, usr User, uu UpdateUser) (User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		Delete(ctx context.Context, ids ...string) error
		DeleteAccount(ctx context.Context, usr User, reason string) error
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, data ResetUserPassword) error
		SendWelcomeMail(usr User)
	}

	service struct {
		repo     Repository
		mailSvc  core.EmailService
		logger   core.Logger
		tokenGen tokenGenerator
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, logger core.Logger, conf *core.Config) Service {
	return &service{
		repo:     repo,
		mailSvc:  mailSvc,
		logger:   logger,
		tokenGen: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *service) CheckUniqueness(ctx context.Context, email, phone string, excludedUsers ...User) error {
	ids := make([]string, 0, len(excludedUsers))
	for _, u := range excludedUsers {
		ids = append(ids, u.ID)
	}
	if err := svc.repo.CheckUniqueness(ctx, email, phone, ids); err != nil {
		var field string
		switch err {
		case ErrEmailExists:
			field = "email"
		case ErrPhoneExists:
			field = "phone_number"
		default:
			return errors.Wrap(err, "checking user uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		Name:        nu.Name,
		Email:       nu.Email,
		PhoneNumber: nu.PhoneNumber,
		Address:     nu.Address,
		Role:        nu.Role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.SendWelcomeMail(usr)
	return usr, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	ordering = core.CleanOrdering(ordering, "name", "email", "role", "is_active", "created_at", "updated_at", "last_login")
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

// QueryStaff lists admins & meter readers.
func (svc *service) QueryStaff(ctx context.Context, ordering []core.DBOrdering) ([]User, error) {
	return svc.Query(ctx, &QueryFilter{Roles: []string{RoleAdmin, RoleMeterReader}}, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// Update saves a validated UpdateUser on usr.
func (svc *service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	usr.PhoneNumber = uu.PhoneNumber
	usr.Address = uu.Address
	usr.Image = uu.Image
	usr.Role = uu.Role
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteUsersByID(ctx, ids)
	return err
}

// DeleteAccount deletes the account of a user who asked for it and lets them know by email.
func (svc *service) DeleteAccount(ctx context.Context, usr User, reason string) error {
	if _, err := svc.repo.DeleteUsersByID(ctx, []string{usr.ID}); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	svc.logger.Info(fmt.Sprintf("account deleted: %s", usr.Email), map[string]interface{}{"reason": reason})
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Your account has been deleted",
		TemplateName: "account_deleted",
		TemplateData: map[string]interface{}{
			"Name":   usr.Name,
			"Reason": reason,
		},
	})
	return nil
}

func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	svc.sendPasswordResetMail(usr)
	return nil
}

func (svc *service) sendPasswordResetMail(usr User) {
	uid := EncodeUID(usr)
	token := svc.tokenGen.makeToken(usr)
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]interface{}{
			"Name": usr.Name,
			"Path": fmt.Sprintf("/password-reset/%s/%s", uid, token),
		},
	})
}

func (svc *service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	uidErr := core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "uid", Error: ErrInvalidToken.Error()})

	id, err := decodeUID(data.UID)
	if err != nil {
		return uidErr
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return uidErr
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokenGen.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(ErrInvalidToken, core.FieldError{Field: "token", Error: ErrInvalidToken.Error()})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	return nil
}

func (svc *service) SendWelcomeMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Welcome to SmartBill",
		TemplateName: "welcome",
		TemplateData: map[string]interface{}{
			"Name":        usr.Name,
			"Email":       usr.Email,
			"AccountType": RoleName(usr.Role),
		},
	})
}

// RoleName returns the display name of a role.
func RoleName(role string) string {
	for _, r := range Roles {
		if r.Value == role {
			return r.Name
		}
	}
	return role
}
