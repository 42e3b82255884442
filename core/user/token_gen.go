package user

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	NowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// tokenGenerator makes & verifies password reset tokens of the form "<issued>-<signature>",
// where issued is the unix time of issue in base 36.
// The signature covers the user's password hash and last login, so a token stops working
// once the password is changed or the user signs in again.
type tokenGenerator struct {
	key     []byte
	timeout time.Duration
}

func newTokenGenerator(secretKey string, timeout time.Duration) tokenGenerator {
	key := sha256.Sum256([]byte("smartbill/password-reset:" + secretKey))
	return tokenGenerator{key: key[:], timeout: timeout}
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

func (gen tokenGenerator) makeToken(usr User) string {
	issued := strconv.FormatInt(NowFunc().Unix(), 36)
	return issued + "-" + gen.sign(usr, issued)
}

func (gen tokenGenerator) verifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) != 2 || parts[1] == "" {
		return errInvalidToken
	}
	issued, err := strconv.ParseInt(parts[0], 36, 64)
	if err != nil {
		return errInvalidToken
	}
	if !hmac.Equal([]byte(parts[1]), []byte(gen.sign(usr, parts[0]))) {
		return errInvalidToken
	}
	if NowFunc().Sub(time.Unix(issued, 0)) > gen.timeout {
		return errTokenExpired
	}
	return nil
}

func (gen tokenGenerator) sign(usr User, issued string) string {
	mac := hmac.New(sha256.New, gen.key)
	mac.Write([]byte(usr.ID))
	mac.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		mac.Write([]byte(usr.LastLogin.UTC().Format(time.RFC3339)))
	}
	mac.Write([]byte(issued))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
