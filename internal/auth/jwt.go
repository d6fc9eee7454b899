package auth

import (
	"crypto/rsa"
	"crypto/subtle"
	"errors"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/reserveiviagens/rsv360-media-service/internal/utils"
)

// Verifier authorizes bearer tokens: a static admin token, an RS256 JWT, or
// both may be configured. The pipeline itself only consumes the yes/no.
type Verifier struct {
	pub        *rsa.PublicKey
	adminToken string
}

func NewVerifier(pubKeyPath, adminToken string) (*Verifier, error) {
	v := &Verifier{adminToken: adminToken}
	if pubKeyPath != "" {
		b, err := os.ReadFile(pubKeyPath)
		if err != nil {
			return nil, err
		}
		pub, err := jwt.ParseRSAPublicKeyFromPEM(b)
		if err != nil {
			return nil, err
		}
		v.pub = pub
	}
	if v.pub == nil && v.adminToken == "" {
		return nil, errors.New("auth: no public key and no admin token configured")
	}
	return v, nil
}

// VerifyToken returns the authenticated subject for a valid token.
func (v *Verifier) VerifyToken(token string) (string, error) {
	if v.adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(v.adminToken)) == 1 {
		return "admin", nil
	}
	if v.pub == nil {
		return "", errors.New("invalid token")
	}
	t, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.pub, nil
	})
	if err != nil {
		return "", err
	}
	if !t.Valid {
		return "", errors.New("invalid token")
	}
	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	// try common claim keys
	if s, ok := claims["user_id"].(string); ok {
		return s, nil
	}
	if s, ok := claims["sub"].(string); ok {
		return s, nil
	}
	return "", errors.New("user id not found in token")
}

// Middleware rejects requests without a valid bearer token.
func (v *Verifier) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			return utils.JSONError(c, fiber.StatusUnauthorized, "authentication token required")
		}
		token := strings.TrimPrefix(header, "Bearer ")
		uid, err := v.VerifyToken(token)
		if err != nil {
			return utils.JSONError(c, fiber.StatusForbidden, "invalid authentication token")
		}
		c.Locals("user_id", uid)
		return c.Next()
	}
}
