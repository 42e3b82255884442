package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/smartbill/core/user"
)

// rolesRequired only lets through users with one of roles.
// It must run after authenticator.required.
func rolesRequired(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr := contextUser(ctx)
			if usr.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

var (
	superAdminOnly = rolesRequired(user.RoleSuperAdmin)
	adminOnly      = rolesRequired(user.AdminRoles...)
	staffOnly      = rolesRequired(user.StaffRoles...)
	readerOnly     = rolesRequired(user.RoleMeterReader)
)

// objectLoader loads the object an endpoint works on, given the authenticated user.
// It returns an error when the object is missing or hidden from the user.
type objectLoader func(ctx echo.Context, usr user.User) (interface{}, error)

// loadObject stores the object found by load in the echo.Context for the next handlers.
func loadObject(load objectLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := load(ctx, contextUser(ctx))
			if err != nil {
				return err
			}
			ctx.Set(objContextKey, obj)
			return next(ctx)
		}
	}
}
