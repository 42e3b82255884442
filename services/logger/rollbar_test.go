package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/core/user"
)

func TestRollbarLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", TestMode: true})

	usr := user.User{ID: "u-1", Name: "Abebe Kebede", Email: "abebe@test.et", Role: user.RoleCustomer}
	logger.Error("bill generation failed", errors.New("boom"), map[string]interface{}{"customer_id": "c-1"}, usr)

	out := buf.String()
	assert.Contains(t, out, "ERROR: bill generation failed")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, "customer_id:c-1")
	assert.Contains(t, out, "user: u-1 <abebe@test.et> [customer]")

	args := logger.prepare("msg", []interface{}{usr, "extra"})
	assert.Equal(t, []interface{}{"msg", "extra"}, args)
}
