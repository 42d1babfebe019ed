// middleware/auth.go
package middleware

import (
	"fmt"
	"log"
	"strings"

	"holder-rewards/models"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

// WalletAuthMiddleware verifies the HS256 session token issued at wallet
// login and attaches the lower-cased wallet to c.Locals("wallet").
func WalletAuthMiddleware(secret string) fiber.Handler {
	key := []byte(strings.TrimSpace(secret))

	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		if tokenString == "" || tokenString == authHeader {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No token provided"})
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
			}
			return key, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			log.Printf("❌ [WALLET_AUTH] Rejected token for %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
		}
		wallet, _ := claims["wallet"].(string)
		wallet = models.NormalizeAddress(wallet)
		if wallet == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Token carries no wallet"})
		}

		c.Locals("wallet", wallet)
		return c.Next()
	}
}
