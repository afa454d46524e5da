package helpers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Redis keys of the self-hosted identity provider.

func KeyEmailToken(uid string) string         { return "idp:token:" + uid }
func KeyEmailTokenAttempts(uid string) string { return "idp:token:attempts:" + uid }
func KeyAccount(uid string) string            { return "idp:account:" + uid }
func KeyAccountByEmail(email string) string   { return "idp:account:email:" + email }
func KeySession(sid string) string            { return "idp:session:" + sid }

// GenOTPCode generates a secure random 6-digit OTP code as a zero-padded string
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
