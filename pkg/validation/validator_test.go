package validation

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

type signUpPayload struct {
	FullName string `json:"fullName" validate:"required,fullname"`
	Email    string `json:"email" validate:"required,email"`
}

type verifyPayload struct {
	AccountID string `json:"accountId" validate:"required,accountid"`
	Password  string `json:"password" validate:"required,otp"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	Configure(v)
	return v
}

func TestToDetails_UsesJSONNames(t *testing.T) {
	err := newValidator().Struct(signUpPayload{FullName: "A", Email: "nope"})

	details := ToDetails(err)

	assert.Equal(t, "must be between 2 and 128 characters", details["fullName"])
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestToDetails_OTPAlias(t *testing.T) {
	v := newValidator()

	assert.NoError(t, v.Struct(verifyPayload{AccountID: "abc", Password: "012345"}))

	details := ToDetails(v.Struct(verifyPayload{AccountID: "abc", Password: "12ab"}))
	assert.Equal(t, "must be a 6 digit code", details["password"])

	details = ToDetails(v.Struct(verifyPayload{}))
	assert.Equal(t, "is required", details["accountId"])
	assert.Equal(t, "is required", details["password"])
}

func TestToDetails_InvalidJSON(t *testing.T) {
	var dst map[string]any
	err := json.Unmarshal([]byte("{"), &dst)

	assert.Equal(t, map[string]string{"payload": "invalid json"}, ToDetails(err))
	assert.Equal(t, map[string]string{"payload": "invalid payload"}, ToDetails(errors.New("other")))
	assert.Nil(t, ToDetails(nil))
}
