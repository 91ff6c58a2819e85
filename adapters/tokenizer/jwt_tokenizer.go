package tokenizer

import (
	"crypto/rand"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wrenlabs/popsign/core"
	"github.com/wrenlabs/popsign/ports"
)

const AudienceSession = "session:wallet"

// JWTCodec implements the SessionCodec interface using JWT. Records are
// signed with a per-instance secret so a modified store entry fails to parse
// and gets evicted on the next read.
type JWTCodec struct {
	secret []byte
}

// NewJWTCodec creates a new JWT session codec with the given secret.
func NewJWTCodec(secret []byte) ports.SessionCodec {
	return &JWTCodec{secret: secret}
}

// NewRandomSecret generates a fresh HMAC secret for a codec instance.
func NewRandomSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}
	return secret, nil
}

// Encode converts a Session to a signed record
func (c *JWTCodec) Encode(session *core.Session) (string, error) {
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   session.Address,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.IssuedAt),
			Audience:  jwt.ClaimStrings{AudienceSession},
		},
		UID: session.UID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	record, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session record: %w", err)
	}

	return record, nil
}

// Decode converts a signed record back to a Session
func (c *JWTCodec) Decode(record string) (*core.Session, error) {
	token, err := jwt.ParseWithClaims(record, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithAudience(AudienceSession))

	if err != nil {
		return nil, fmt.Errorf("failed to parse session record: %w", err)
	}

	if !token.Valid {
		return nil, core.ErrSessionInvalid
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return nil, core.ErrSessionInvalid
	}

	return &core.Session{
		UID:       claims.UID,
		Address:   claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
