package user

import (
	"log"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/smartbill/core"
	"github.com/trezcool/smartbill/fs"
)

type stdLogger struct{ *log.Logger }

func (l stdLogger) Debug(msg string, _ ...interface{}) { l.Println(msg) }
func (l stdLogger) Info(msg string, _ ...interface{})  { l.Println(msg) }
func (l stdLogger) Warn(msg string, _ ...interface{})  { l.Println(msg) }
func (l stdLogger) Error(msg string, _ ...interface{}) { l.Println(msg) }
func (l stdLogger) Fatal(msg string, _ ...interface{}) { l.Fatalln(msg) }

func TestCheckPassword(t *testing.T) {
	LoadCommonPasswords(appfs.FS, stdLogger{log.New(os.Stderr, "TEST : ", 0)})

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1#", want: pwdMinLenTag},
		{name: "whitespace", pwd: "Ab1# xyzw", want: pwdNoSpaceTag},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumTag},
		{name: "no upper", pwd: "wxyz#9876", want: pwdComplexityTag},
		{name: "no special", pwd: "Wxyz09876", want: pwdComplexityTag},
		{name: "similar to email", pwd: "Abebe@test1", attrs: []string{"abebe@test.et"}, want: pwdAttrSimTag},
		{name: "common", pwd: "P@$$w0rd", want: pwdNoCommonTag},
		{name: "valid", pwd: "Wxyz#9876Q", attrs: []string{"Abebe Kebede", "abebe@test.et"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CheckPassword(tt.pwd, tt.attrs...))
		})
	}
}

func TestNewUserValidation(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	valid := NewUser{
		Name:            "Abebe Kebede",
		Email:           "abebe@test.et",
		PhoneNumber:     "251911223344",
		Role:            RoleMeterReader,
		Password:        "Wxyz#9876Q",
		PasswordConfirm: "Wxyz#9876Q",
	}

	tests := []struct {
		name     string
		mutate   func(nu *NewUser)
		wantErrs map[string]string
	}{
		{name: "valid", mutate: func(nu *NewUser) {}},
		{
			name:   "invalid role",
			mutate: func(nu *NewUser) { nu.Role = "janitor" },
			wantErrs: map[string]string{"role": "invalid role"},
		},
		{
			name:   "bad phone",
			mutate: func(nu *NewUser) { nu.PhoneNumber = "0911" },
			wantErrs: map[string]string{"phone_number": "phone number must be of format 251XXXXXXXXX"},
		},
		{
			name:   "weak password",
			mutate: func(nu *NewUser) { nu.Password, nu.PasswordConfirm = "wxyz#9876", "wxyz#9876" },
			wantErrs: map[string]string{"password": pwdComplexityText},
		},
		{
			name:   "password mismatch",
			mutate: func(nu *NewUser) { nu.PasswordConfirm = "Wxyz#9876R" },
			wantErrs: map[string]string{"password_confirm": "password_confirm must be equal to Password"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := valid
			tt.mutate(&nu)
			err := validate.Struct(nu)
			if tt.wantErrs == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok)
			got := make(map[string]string, len(vErrs))
			for _, vErr := range vErrs {
				got[vErr.Field()] = vErr.Translate(translator)
			}
			assert.Equal(t, tt.wantErrs, got)
		})
	}
}
