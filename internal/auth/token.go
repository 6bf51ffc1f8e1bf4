package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	TokenDuration = 24 * time.Hour
	CookieName    = "auth_token"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RolePatient  Role = "patient"
	RoleLab      Role = "lab"
	RoleLabAdmin Role = "lab_admin"
)

// Claims is the token issued by the identity service. Center is set for lab
// staff only.
type Claims struct {
	Role   Role   `json:"role"`
	Email  string `json:"email,omitempty"`
	Center string `json:"center,omitempty"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: TokenDuration, now: time.Now}
}

func (i *Issuer) Issue(id Identity) (string, error) {
	if id.Subject == "" {
		return "", errors.New("token subject is empty")
	}
	now := i.now()
	claims := Claims{
		Role:   id.Role,
		Email:  id.Email,
		Center: id.CenterID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *Issuer) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
