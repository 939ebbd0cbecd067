package exports

import (
	"errors"
	"time"

	"leadinbox_backend/platform/config"

	"github.com/golang-jwt/jwt/v5"
)

const tokenType = "export"

var errTokenInvalid = errors.New("invalid export token")

// MintToken signs a short-lived download token. The subject records the
// operator that requested it.
func MintToken(cfg config.ExportConfig, subject string, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(cfg.GetExportTokenTTL())
	claims := jwt.MapClaims{
		"sub":  subject,
		"type": tokenType,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.GetServiceTokenSecret()))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyToken parses a download token and returns its subject. Service tokens
// share the signing secret but carry a different type claim, so they are
// rejected here.
func VerifyToken(cfg config.ExportConfig, raw string) (string, error) {
	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.GetServiceTokenSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return "", errTokenInvalid
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errTokenInvalid
	}
	if typ, _ := claims["type"].(string); typ != tokenType {
		return "", errTokenInvalid
	}

	subject, _ := claims["sub"].(string)
	return subject, nil
}
