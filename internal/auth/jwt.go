package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DevClaims are the claims carried by development tokens.
type DevClaims struct {
	UserID string `json:"uid"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier issues and validates HS256 tokens for local development,
// where no Firebase project or emulator is available.
type JWTVerifier struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

// NewJWTVerifier creates a verifier for tokens signed with signingKey.
func NewJWTVerifier(signingKey, issuer string) (*JWTVerifier, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("jwt verifier: signing key is required")
	}
	return &JWTVerifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		now:        time.Now,
	}, nil
}

// Issue creates a signed token for uid valid for ttl.
func (v *JWTVerifier) Issue(uid, email string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := DevClaims{
		UserID: uid,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.signingKey)
}

// Verify validates a development token and returns the caller identity.
func (v *JWTVerifier) Verify(_ context.Context, idToken string) (*Identity, error) {
	if idToken == "" {
		return nil, ErrMissingToken
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(idToken, &DevClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.signingKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*DevClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if v.issuer != "" && !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, claims.Issuer)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}

	return &Identity{
		UID:   claims.UserID,
		Email: claims.Email,
		Claims: map[string]interface{}{
			"iss": claims.Issuer,
			"sub": claims.Subject,
		},
	}, nil
}
