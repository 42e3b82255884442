package tests

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/smartbill/apps/api/echo"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/tests"
)

const pwd = "Sup3r$ecret"

func Test_userApi_login(t *testing.T) {
	testutil.ResetDB(t, db)

	testutil.CreateUser(t, usrRepo, "Abebe Kebede", "abebe@test.et", pwd, user.RoleAdmin, true)
	testutil.CreateUser(t, usrRepo, "Old Timer", "old@test.et", pwd, user.RoleMeterReader, false)

	body := func(email, password string) []byte {
		return marchallObj(t, LoginRequest{Email: email, Password: password})
	}
	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"email": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown email", body: body("nobody@test.et", pwd), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "wrong password", body: body("abebe@test.et", "nope"), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "invalid email or password"}),
		},
		{
			name: "inactive user", body: body("old@test.et", pwd), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/users/login"
	}
	runHTTPTests(t, tests)

	t.Run("logged in", func(t *testing.T) {
		rec := serve(http.MethodPost, "/api/users/login", "", body(" ABEBE@test.et ", pwd))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp LoginResponse
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "user", resp.AccountType)
		require.NotNil(t, resp.User)
		assert.Equal(t, "abebe@test.et", resp.User.Email)
		assert.False(t, resp.User.LastLogin.IsZero())
		assert.NotContains(t, rec.Body.String(), "password")

		// the token is usable straight away
		rec = serve(http.MethodGet, "/api/users/profile", resp.Token)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func Test_userApi_refreshToken(t *testing.T) {
	testutil.ResetDB(t, db)

	naughty := testutil.CreateUser(t, usrRepo, "N Dog", "ndog@test.et", "", user.RoleCustomer, false)
	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)

	now := time.Now()
	unrefreshableClaims := GetUserClaims(conf, reader, now.Add(-2*conf.Server.JWTRefreshExpirationDelta).Unix())
	unrefreshableToken, err := GenerateToken(conf, unrefreshableClaims)
	require.NoError(t, err)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Inactive user not allowed", token: getToken(t, naughty), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"})},
		{name: "Refresh period expired", token: unrefreshableToken, wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"})},
		{name: "Token refreshed", token: getToken(t, reader)},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/users/token-refresh"
	}
	runHTTPTests(t, tests)

	t.Run("original issue time is kept", func(t *testing.T) {
		origIat := now.Add(-time.Hour).Unix()
		token, err := GenerateToken(conf, GetUserClaims(conf, reader, origIat))
		require.NoError(t, err)

		rec := serve(http.MethodPost, "/api/users/token-refresh", token)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp LoginResponse
		decode(t, rec, &resp)

		claims := new(Claims)
		_, err = jwt.ParseWithClaims(resp.Token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(conf.SecretKey), nil
		})
		require.NoError(t, err)
		assert.Equal(t, origIat, claims.OrigIssuedAt)
		assert.Equal(t, reader.ID, claims.Subject)
		assert.Equal(t, user.RoleMeterReader, claims.Role)
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	testutil.ResetDB(t, db)
	mailSvc.Reset()

	usr := testutil.CreateUser(t, usrRepo, "Abebe Kebede", "abebe@test.et", pwd, user.RoleCustomer, true)

	rec := serve(http.MethodPost, "/api/users/password-reset", "", []byte(`{"email": "unknown@test.et"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, mailSvc.Sent())

	rec = serve(http.MethodPost, "/api/users/password-reset", "", []byte(`{"email": "abebe@test.et"}`))
	assert.Equal(t, http.StatusOK, rec.Code)
	msg, ok := mailSvc.Last()
	require.True(t, ok)
	assert.Equal(t, usr.Email, msg.To[0].Address)

	// the mail holds a /password-reset/<uid>/<token> link
	i := strings.Index(msg.TextContent, "/password-reset/")
	require.NotEqual(t, -1, i, msg.TextContent)
	parts := strings.Split(strings.Fields(msg.TextContent[i:])[0], "/")
	require.Len(t, parts, 4)
	uid, token := parts[2], parts[3]

	newPwd := "N3w&Improved"
	tests := []httpTest{
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: "bad-token", Password: newPwd, PasswordConfirm: newPwd}),
			wantData: marchallObj(t, map[string]string{"token": user.ErrInvalidToken.Error()}),
		},
		{
			name: "weak password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, map[string]string{"password": "password cannot be entirely numeric"}),
		},
		{
			name: "password reset",
			body: marchallObj(t, user.ResetUserPassword{UID: uid, Token: token, Password: newPwd, PasswordConfirm: newPwd}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = "/api/users/password-reset-confirm"
	}
	runHTTPTests(t, tests)

	rec = serve(http.MethodPost, "/api/users/login", "", marchallObj(t, LoginRequest{Email: usr.Email, Password: newPwd}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_userApi_profile(t *testing.T) {
	testutil.ResetDB(t, db)

	usr := testutil.CreateUser(t, usrRepo, "Abebe Kebede", "abebe@test.et", pwd, user.RoleMeterReader, true)
	superAdmin := testutil.CreateUser(t, usrRepo, "Boss", "boss@test.et", pwd, user.RoleSuperAdmin, true)
	token := getToken(t, usr)

	tests := []httpTest{
		{name: "Auth required", method: http.MethodGet, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "get profile", method: http.MethodGet, token: token, wantData: marchallObj(t, usr)},
		{
			name: "cannot change own role", method: http.MethodPut, token: token, wantCode: http.StatusForbidden,
			body: []byte(`{"role": "admin"}`), wantData: marchallObj(t, errForbidden),
		},
		{
			name: "cannot (de)activate self", method: http.MethodPut, token: token, wantCode: http.StatusForbidden,
			body: []byte(`{"is_active": false}`), wantData: marchallObj(t, errForbidden),
		},
		{
			name: "invalid phone", method: http.MethodPut, token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"phone_number": "12345"}`), wantData: marchallObj(t, map[string]string{"phone_number": "phone number must be of format 251XXXXXXXXX"}),
		},
		{
			name: "email taken", method: http.MethodPut, token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"email": "boss@test.et"}`), wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{
			name: "wrong password on delete", method: http.MethodDelete, token: token, wantCode: http.StatusBadRequest,
			body: []byte(`{"password": "nope"}`), wantData: marchallObj(t, map[string]string{"password": "invalid password"}),
		},
		{
			name: "superadmins cannot delete their account", method: http.MethodDelete, token: getToken(t, superAdmin), wantCode: http.StatusForbidden,
			body: marchallObj(t, map[string]string{"password": pwd}), wantData: marchallObj(t, errForbidden),
		},
	}
	for i := range tests {
		tests[i].path = "/api/users/profile"
	}
	runHTTPTests(t, tests)

	t.Run("update profile", func(t *testing.T) {
		rec := serve(http.MethodPut, "/api/users/profile", token, []byte(`{"name": " Abebe B. ", "phone_number": "0911223344"}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, "Abebe B.", got.Name)
		assert.Equal(t, "251911223344", got.PhoneNumber)
		assert.Equal(t, usr.Email, got.Email)
		assert.Equal(t, user.RoleMeterReader, got.Role)
	})

	t.Run("delete account", func(t *testing.T) {
		mailSvc.Reset()
		rec := serve(http.MethodDelete, "/api/users/profile", token, marchallObj(t, map[string]string{"password": pwd, "reason": "moving"}))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		msg, ok := mailSvc.Last()
		require.True(t, ok)
		assert.Equal(t, usr.Email, msg.To[0].Address)

		rec = serve(http.MethodGet, "/api/users/profile", token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func Test_userApi_roles(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)

	runHTTPTests(t, []httpTest{
		{name: "Admin required", method: http.MethodGet, path: "/api/users/roles", token: getToken(t, reader), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "roles", method: http.MethodGet, path: "/api/users/roles", token: getToken(t, admin), wantData: marchallObj(t, user.Roles)},
	})
}

func Test_userApi_manageUsers(t *testing.T) {
	testutil.ResetDB(t, db)

	now := time.Now()
	superAdmin := testutil.CreateUser(t, usrRepo, "Boss", "boss@test.et", pwd, user.RoleSuperAdmin, true, now.Add(-3*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true, now.Add(-2*time.Hour))
	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true, now.Add(-time.Hour))
	cust := testutil.CreateUser(t, usrRepo, "Customer", "cust@test.et", "", user.RoleCustomer, true, now)
	bossToken := getToken(t, superAdmin)

	newUsr := user.NewUser{
		Name:            "New Reader",
		Email:           "new.reader@test.et",
		PhoneNumber:     "0911000000",
		Role:            user.RoleMeterReader,
		Password:        pwd,
		PasswordConfirm: pwd,
	}

	tests := []httpTest{
		{name: "Superadmin required", method: http.MethodGet, path: "/api/users", token: getToken(t, admin), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{
			name: "staff listed by default", method: http.MethodGet, path: "/api/users", token: bossToken,
			wantData: marchallList(t, reader, admin, superAdmin),
		},
		{name: "filter by role", method: http.MethodGet, path: "/api/users?role=customer", token: bossToken, wantData: marchallList(t, cust)},
		{name: "retrieve", method: http.MethodGet, path: "/api/users/" + reader.ID, token: bossToken, wantData: marchallObj(t, reader)},
		{name: "not found", method: http.MethodGet, path: "/api/users/unknown", token: bossToken, wantCode: http.StatusNotFound},
		{
			name: "create (invalid)", method: http.MethodPost, path: "/api/users", token: bossToken, wantCode: http.StatusBadRequest,
			body: []byte(`{"name": "x", "email": "bad", "role": "king", "password": "a", "password_confirm": "b"}`),
		},
		{
			name: "create (email taken)", method: http.MethodPost, path: "/api/users", token: bossToken, wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.NewUser{Name: "Dup", Email: "admin@test.et", Role: user.RoleAdmin, Password: pwd, PasswordConfirm: pwd}),
			wantData: marchallObj(t, map[string]string{"email": user.ErrEmailExists.Error()}),
		},
		{name: "cannot delete self", method: http.MethodDelete, path: "/api/users/" + superAdmin.ID, token: bossToken, wantCode: http.StatusForbidden},
	}
	runHTTPTests(t, tests)

	t.Run("create", func(t *testing.T) {
		mailSvc.Reset()
		rec := serve(http.MethodPost, "/api/users", bossToken, marchallObj(t, newUsr))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got user.User
		decode(t, rec, &got)
		assert.NotEmpty(t, got.ID)
		assert.Equal(t, "251911000000", got.PhoneNumber)
		assert.True(t, got.IsActive)

		rec = serve(http.MethodPost, "/api/users/login", "", marchallObj(t, LoginRequest{Email: newUsr.Email, Password: pwd}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := serve(http.MethodPut, "/api/users/"+reader.ID, bossToken, []byte(`{"role": "admin", "is_active": false}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var got user.User
		decode(t, rec, &got)
		assert.Equal(t, user.RoleAdmin, got.Role)
		assert.False(t, got.IsActive)
		assert.Equal(t, reader.Name, got.Name)
	})

	t.Run("delete", func(t *testing.T) {
		rec := serve(http.MethodDelete, "/api/users/"+cust.ID, bossToken)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = serve(http.MethodGet, "/api/users/"+cust.ID, bossToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
