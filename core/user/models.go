package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/smartbill/core"
)

// Roles
const (
	RoleSuperAdmin  = "superadmin"
	RoleAdmin       = "admin"
	RoleMeterReader = "meterreader"
	RoleCustomer    = "customer"
)

var (
	AdminRoles = []string{RoleSuperAdmin, RoleAdmin}
	StaffRoles = []string{RoleSuperAdmin, RoleAdmin, RoleMeterReader}
	AllRoles   = []string{RoleSuperAdmin, RoleAdmin, RoleMeterReader, RoleCustomer}

	rolePriorities = map[string]int{
		RoleSuperAdmin:  40,
		RoleAdmin:       30,
		RoleMeterReader: 20,
		RoleCustomer:    10,
	}

	Roles = []Role{
		{Name: "Customer", Value: RoleCustomer},
		{Name: "Meter Reader", Value: RoleMeterReader},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Super Admin", Value: RoleSuperAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PhoneNumber  string    `json:"phone_number"`
	Address      string    `json:"address"`
	Image        string    `json:"image,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
	LastLogin    time.Time `json:"last_login"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) HasAnyRole(roles ...string) bool {
	return core.StringInSlice(u.Role, roles)
}

func (u *User) IsSuperAdmin() bool  { return u.Role == RoleSuperAdmin }
func (u *User) IsAdmin() bool       { return u.HasAnyRole(AdminRoles...) }
func (u *User) IsMeterReader() bool { return u.Role == RoleMeterReader }
func (u *User) IsCustomer() bool    { return u.Role == RoleCustomer }
func (u *User) IsStaff() bool       { return u.HasAnyRole(StaffRoles...) }

// AccountType tells the front end which portal the user belongs to.
func (u *User) AccountType() string {
	if u.IsCustomer() {
		return "customer"
	}
	return "user"
}

// NewUser contains information needed to create a new staff User.
type NewUser struct {
	Name            string `json:"name" validate:"required,notblank,max=100"`
	Email           string `json:"email" validate:"required,email,max=255"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,phone"`
	Address         string `json:"address" validate:"max=255"`
	Role            string `json:"role" validate:"required,role"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.PhoneNumber = core.NormalizePhone(nu.PhoneNumber)
	nu.Address = core.CleanString(nu.Address)
	nu.Role = core.CleanString(nu.Role, true /* lower */)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email, nu.PhoneNumber)
}

// UpdateUser defines what information may be provided to modify an existing User.
// Empty fields are left unchanged.
type UpdateUser struct {
	Name            string `json:"name" validate:"max=100"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	PhoneNumber     string `json:"phone_number" validate:"omitempty,phone"`
	Address         string `json:"address" validate:"max=255"`
	Image           string `json:"image" validate:"max=255"`
	IsActive        *bool  `json:"is_active"`
	Role            string `json:"role" validate:"omitempty,role"`
	Password        string `json:"password" validate:"omitempty"`
	PasswordConfirm string `json:"password_confirm" validate:"required_with=Password,eqfield=Password"`
}

// Validate cleans the update against the original User and checks it.
// On success, every field of uu holds the value to be saved.
func (uu *UpdateUser) Validate(ctx context.Context, origUsr User, validate *validator.Validate, svc Service) error {
	uu.Name = cleanOr(uu.Name, origUsr.Name)
	uu.Email = cleanOr(core.CleanString(uu.Email, true /* lower */), origUsr.Email)
	uu.PhoneNumber = cleanOr(core.NormalizePhone(uu.PhoneNumber), origUsr.PhoneNumber)
	uu.Address = cleanOr(uu.Address, origUsr.Address)
	uu.Image = cleanOr(uu.Image, origUsr.Image)
	uu.Role = cleanOr(core.CleanString(uu.Role, true /* lower */), origUsr.Role)

	if err := validate.Struct(uu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, uu.Email, uu.PhoneNumber, origUsr)
}

func cleanOr(val, orig string) string {
	if val = core.CleanString(val); val != "" {
		return val
	}
	return orig
}

type ResetUserPassword struct {
	Token           string `json:"token,omitempty" validate:"required"`
	UID             string `json:"uid,omitempty" validate:"required"`
	Password        string `json:"password,omitempty" validate:"required"`
	PasswordConfirm string `json:"password_confirm,omitempty" validate:"required,eqfield=Password"`
}

func (rp ResetUserPassword) Validate(validate *validator.Validate) error { return validate.Struct(rp) }

// DeleteAccount is sent by users closing their own account.
type DeleteAccount struct {
	Password string `json:"password" validate:"required"`
	Reason   string `json:"reason" validate:"max=1000"`
}

func (da *DeleteAccount) Validate(validate *validator.Validate) error {
	da.Reason = core.CleanString(da.Reason)
	return validate.Struct(da)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	Roles       []string  `query:"role"`
	IsActive    *bool     `query:"is_active"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// GetFilter selects a single User; the first non-empty field wins.
type GetFilter struct {
	ID    string
	Email string
}
