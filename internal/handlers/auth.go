package handlers

import (
	"crypto/subtle"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
)

var errInvalidAPIKey = errors.New("invalid API key")

// NewAuthMiddleware checks the bearer token against the shared secret.
// A missing or malformed header is 401, a wrong token is 403.
func NewAuthMiddleware(secret, keyLookup string) fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  keyLookup,
		AuthScheme: "Bearer",
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if secret == "" || subtle.ConstantTimeCompare([]byte(key), []byte(secret)) != 1 {
				return false, errInvalidAPIKey
			}
			return true, nil
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if errors.Is(err, keyauth.ErrMissingOrMalformedAPIKey) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Missing or malformed bearer token",
				})
			}
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Invalid API key",
			})
		},
	})
}
