package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/docgate/docgate/internal/models"
	"github.com/docgate/docgate/pkg/middleware"
	"github.com/golang-jwt/jwt/v5"
)

// GenerateAccessToken creates a signed HS256 access token for the user
func GenerateAccessToken(secret string, u *models.User, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub":                u.Username,
		"preferred_username": u.Username,
		"email":              u.Email,
		"iat":                time.Now().Unix(),
		"exp":                time.Now().Add(ttl).Unix(),
	}
	jt := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return jt.SignedString([]byte(secret))
}

// JWTVerifier verifies access tokens issued by this service with the shared
// secret. Satisfies middleware.Verifier.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	parsed, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mc, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("unexpected claims type %T", parsed.Claims)
	}
	return &claimsToken{claims: mc}, nil
}

// claimsToken adapts jwt.MapClaims to the middleware.Token interface
type claimsToken struct {
	claims jwt.MapClaims
}

func (t *claimsToken) Claims(v interface{}) error {
	b, err := json.Marshal(map[string]interface{}(t.claims))
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
