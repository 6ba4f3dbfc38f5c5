package jwt

import (
	"errors"
	"time"

	jw "github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns an HS256 token carrying uid in the "sub" claim.
func (s *Signer) Issue(uid string) (string, error) {
	now := s.now()
	claims := jw.MapClaims{
		"sub": uid,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	return jw.NewWithClaims(jw.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse validates an HS256 token and returns the user id from the "sub" claim.
func (s *Signer) Parse(tok string) (string, error) {
	t, err := jw.Parse(tok, func(t *jw.Token) (any, error) {
		return s.secret, nil
	}, jw.WithValidMethods([]string{jw.SigningMethodHS256.Alg()}), jw.WithTimeFunc(s.now))
	if err != nil || !t.Valid {
		return "", ErrInvalidToken
	}
	mc, ok := t.Claims.(jw.MapClaims)
	if !ok {
		return "", errors.New("bad claims")
	}
	uid, _ := mc["sub"].(string)
	if uid == "" {
		return "", errors.New("no subject")
	}
	return uid, nil
}
