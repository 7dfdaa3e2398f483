package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the acting user's portal.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher || r == RoleStudent
}

// Identity is the already-authenticated caller handed to engine operations.
// ProfileID is the teacher id for teachers and the student id for students.
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	ProfileID string
}

// Claims represents JWT payload.
type Claims struct {
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	ProfileID string `json:"pid,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into the engine's caller identity.
func (c Claims) Identity() Identity {
	return Identity{UserID: c.Subject, Email: c.Email, Role: c.Role, ProfileID: c.ProfileID}
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

var nowFunc = time.Now

// Issue signs an access token for id.
func Issue(id Identity, issuer, key string, ttl time.Duration) (Token, error) {
	if !id.Role.Valid() {
		return Token{}, errors.New("unknown role")
	}
	now := nowFunc()
	exp := now.Add(ttl)
	claims := Claims{
		Email:     id.Email,
		Role:      id.Role,
		ProfileID: id.ProfileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return Token{}, err
	}
	return Token{AccessToken: signed, ExpiresAt: exp}, nil
}

// Parse validates a token and returns claims.
func Parse(tokenStr, key, issuer string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(key), nil
	}, jwt.WithTimeFunc(nowFunc))
	if err != nil {
		return Claims{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if issuer != "" && claims.Issuer != issuer {
		return Claims{}, errors.New("issuer mismatch")
	}
	if !claims.Role.Valid() {
		return Claims{}, errors.New("unknown role")
	}
	return *claims, nil
}
