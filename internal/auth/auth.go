// Package auth defines the token validation collaborator used by the
// request pipeline. Real JWT validation lives behind the Validator
// interface and is out of scope here.
package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidToken is returned when a credential cannot be validated.
var ErrInvalidToken = errors.New("auth: invalid token")

// Principal identifies an authenticated caller.
type Principal struct {
	UserID int64
}

// Validator turns a bearer token into a principal or rejects it.
type Validator interface {
	Validate(ctx context.Context, token string) (Principal, error)
}

// StaticValidator accepts any non-empty token except the literal "invalid".
// Tokens of the form "user:<id>" carry the caller's user id; anything else
// maps to user 1. It mirrors the placeholder gateway validation that real
// JWT checking will replace.
type StaticValidator struct{}

// Validate implements Validator.
func (StaticValidator) Validate(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" || token == "invalid" {
		return Principal{}, ErrInvalidToken
	}
	if id, ok := strings.CutPrefix(token, "user:"); ok {
		uid, err := strconv.ParseInt(id, 10, 64)
		if err != nil || uid <= 0 {
			return Principal{}, ErrInvalidToken
		}
		return Principal{UserID: uid}, nil
	}
	return Principal{UserID: 1}, nil
}
