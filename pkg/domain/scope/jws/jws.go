package jws

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/expfab/expfab/pkg/domain/scope/key"
)

var ErrInvalidToken error = errors.New("invalid token")

// NewJWS signs for claim and returns a JWS (JSON Web Signature) token string
//
// # Args
//
// - k: Key to sign
//
// - claims: Claims to be signed
//
// # Returns
//
// - string: JWT token string
//
// - error: from [jwt.Token.SignedString]
func NewJWS[C jwt.Claims](k key.Key, claims C) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(k.ToSign())
}

// VerifyJWS verifies a JWS (JSON Web Signature) token and returns the claims
//
// # Args
//
// - k: Key to verify the token with
//
// - token: JWT token string
//
// # Returns
//
// - C: Claims. The type C should be a pointer to a struct that implements [jwt.Claims].
//
// - error: [ErrInvalidToken] when the token is malformed, expired, signed
// with another key or signed with another algorithm,
// or any other errors from [jwt.ParseWithClaims]
func VerifyJWS[C jwt.Claims](k key.Key, token string) (C, error) {
	now := time.Now()

	_c := *new(C)

	{
		rc := reflect.ValueOf(_c)
		if rc.Kind() != reflect.Ptr {
			return *new(C), errors.New("claims type must be a pointer")
		}

		val := reflect.New(rc.Type().Elem()).Interface()
		cp := val.(C)
		_c = cp
	}

	tok, err := jwt.ParseWithClaims(token, _c, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != k.Alg() {
			return nil, fmt.Errorf("%w: unexpected algorithm: %s", ErrInvalidToken, t.Method.Alg())
		}
		if !k.Exp().After(now) {
			return nil, fmt.Errorf("%w: verification key is expired", ErrInvalidToken)
		}
		return k.ToVerify(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return *new(C), errors.Join(ErrInvalidToken, err)
		}
		if errors.Is(err, jwt.ErrSignatureInvalid) {
			return *new(C), errors.Join(ErrInvalidToken, err)
		}
		if errors.Is(err, jwt.ErrTokenExpired) {
			return *new(C), errors.Join(ErrInvalidToken, err)
		}
		return *new(C), err
	}
	if c, ok := tok.Claims.(C); ok {
		return c, nil
	} else {
		return *new(C), fmt.Errorf("%w: unexpected claims type: %T", ErrInvalidToken, tok.Claims)
	}
}
