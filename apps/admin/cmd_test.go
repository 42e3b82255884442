package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/ioutil"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core/billing"
	"github.com/trezcool/smartbill/core/user"
	"github.com/trezcool/smartbill/storage/database/dummy"
	"github.com/trezcool/smartbill/tests"
)

const pwd = "Sup3r$ecret"

var (
	db       *dummydb.DB
	usrRepo  user.Repository
	billRepo billing.Repository
)

func setup(t *testing.T) *commandLine {
	// set up DB & repos
	db = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	billRepo = dummydb.NewBillRepository(db)

	// start CLI
	return &commandLine{
		usrRepo:  usrRepo,
		billRepo: billRepo,
		out:      ioutil.Discard,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "payment_refunds", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

type pwdExtra struct {
	pwd string
}

func mockPasswordPrompt(tt cliTest) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		if extra, ok := tt.extra.(pwdExtra); ok {
			return []byte(extra.pwd), nil
		}
		return nil, nil
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Awe", "awe@test.et", pwd, user.RoleAdmin, true)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "email but no password", args: []string{"resetpassword", "-email", "lol@test.et"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-email", "lol@test.et"}, extra: pwdExtra{pwd: "N3w$ecret"}, wantErr: user.ErrNotFound},
		{name: "weak password", args: []string{"resetpassword", "-email", usr.Email}, extra: pwdExtra{pwd: "12345678"}, wantErrStr: "password cannot be entirely numeric"},
		{name: "reset", args: []string{"resetpassword", "-email", usr.Email}, extra: pwdExtra{pwd: "N3w$ecret"}},
		{name: "reset: email is cleaned", args: []string{"resetpassword", "-email", " AWE@test.et "}, extra: pwdExtra{pwd: "0ther$Ecret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPasswordPrompt(tt)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				require.NoError(t, err)
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash), "failed to update new password")
				assert.NoError(t, refreshedUsr.CheckPassword(tt.extra.(pwdExtra).pwd))
				usr = refreshedUsr
			}
		})
	}
}

func Test_commandLine_createSuperUser(t *testing.T) {
	cli := setup(t)

	reader := testutil.CreateUser(t, usrRepo, "Kebede", "kebede@test.et", "", user.RoleMeterReader, false)

	tests := []cliTest{
		{name: "no args", args: []string{"createsuperuser"}, wantErr: errHelp},
		{name: "name required", args: []string{"createsuperuser", "-email", "boss@test.et"}, extra: pwdExtra{pwd: pwd}, wantErr: errHelp},
		{name: "password required", args: []string{"createsuperuser", "-email", "boss@test.et", "-name", "Boss"}, wantErr: errHelp},
		{
			name: "password similar to email", args: []string{"createsuperuser", "-email", "boss@test.et", "-name", "Boss"},
			extra: pwdExtra{pwd: "Boss@test.et1"}, wantErrStr: "password cannot be similar to user attributes",
		},
		{name: "create", args: []string{"createsuperuser", "-email", "Boss@Test.et", "-name", "Boss"}, extra: pwdExtra{pwd: pwd}},
		{name: "promote", args: []string{"createsuperuser", "-email", reader.Email, "-name", "Kebede Alemu"}, extra: pwdExtra{pwd: pwd}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		mockPasswordPrompt(tt)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}

	t.Run("saved", func(t *testing.T) {
		boss, err := usrRepo.GetUser(context.Background(), user.GetFilter{Email: "boss@test.et"})
		require.NoError(t, err)
		assert.Equal(t, "Boss", boss.Name)
		assert.Equal(t, user.RoleSuperAdmin, boss.Role)
		assert.True(t, boss.IsActive)
		assert.NoError(t, boss.CheckPassword(pwd))

		promoted, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: reader.ID})
		require.NoError(t, err)
		assert.Equal(t, "Kebede Alemu", promoted.Name)
		assert.Equal(t, user.RoleSuperAdmin, promoted.Role)
		assert.True(t, promoted.IsActive)
	})
}

func Test_commandLine_markOverdue(t *testing.T) {
	cli := setup(t)

	reader := testutil.CreateUser(t, usrRepo, "Reader", "reader@test.et", "", user.RoleMeterReader, true)
	cust, _ := testutil.CreateCustomer(t, usrRepo, dummydb.NewCustomerRepository(db), "Almaz", "almaz@test.et", "", "Residential")
	trf := testutil.CreateTariff(t, dummydb.NewTariffRepository(db), "Residential", decimal.NewFromInt(2))
	rdg := testutil.CreateReading(t, dummydb.NewReadingRepository(db), reader.ID, cust.ID, decimal.NewFromInt(10), time.Now())

	late := testutil.CreateBill(t, billRepo, cust, rdg, trf, billing.StatusUnpaid, time.Now().AddDate(0, -1, -1))
	testutil.CreateBill(t, billRepo, cust, rdg, trf, billing.StatusUnpaid, time.Now())
	testutil.CreateBill(t, billRepo, cust, rdg, trf, billing.StatusPaid, time.Now().AddDate(0, -2, 0))

	var out bytes.Buffer
	cli.out = &out
	require.NoError(t, cli.run([]string{"admin", "markoverdue"}))
	assert.Equal(t, "1 bill(s) marked overdue\n", out.String())

	bill, err := billRepo.GetBill(context.Background(), late.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusOverdue, bill.Status)
}
