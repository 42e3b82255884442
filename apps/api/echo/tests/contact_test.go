package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core/contact"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/tests"
)

func Test_contactApi(t *testing.T) {
	testutil.ResetDB(t, db)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin@test.et", "", user.RoleAdmin, true)
	_, custUsr := testutil.CreateCustomer(t, usrRepo, custRepo, "Almaz", "almaz@test.et", "", "Residential")
	adminToken := getToken(t, admin)

	tests := []httpTest{
		{
			name: "invalid", method: http.MethodPost, path: "/api/contact",
			body: []byte(`{"name": "Abebe", "email": "not-an-email", "subject": "Hello", "message": " "}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"email":   "email must be a valid email address",
				"message": "this field is required",
			}),
		},
		{name: "list: auth required", method: http.MethodGet, path: "/api/contact", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "list: staff only", method: http.MethodGet, path: "/api/contact", token: getToken(t, custUsr), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "list: empty", method: http.MethodGet, path: "/api/contact", token: adminToken, wantData: marchallList(t)},
	}
	runHTTPTests(t, tests)

	t.Run("send anonymously", func(t *testing.T) {
		var msg contact.Message
		rec := serve(http.MethodPost, "/api/contact", "", []byte(`{"name": " Abebe ", "email": "Abebe@Mail.ET", "subject": "Meter", "message": "When will my meter be installed?"}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, &msg)
		assert.Equal(t, "Abebe", msg.Name)
		assert.Equal(t, "abebe@mail.et", msg.Email)

		var msgs []contact.Message
		decode(t, serve(http.MethodGet, "/api/contact", adminToken), &msgs)
		if assert.Len(t, msgs, 1) {
			assert.Equal(t, msg.ID, msgs[0].ID)
		}
	})
}
