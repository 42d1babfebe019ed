// handlers/reward_routes.go
package handlers

import (
	"holder-rewards/middleware"
	"holder-rewards/services"

	"github.com/gofiber/fiber/v2"
)

func SetupRewardRoutes(app *fiber.App, rewardService *services.RewardService, jwtSecret string) {
	// 🔐 Every reward route acts on the session wallet only
	secured := app.Group("/rewards", middleware.WalletAuthMiddleware(jwtSecret))

	secured.Post("/claim", rewardService.ClaimReward)
	secured.Get("/history/:wallet", rewardService.GetClaimHistory)
	secured.Get("/history/:wallet/stream", rewardService.StreamClaimHistorySSE)
	secured.Get("/:wallet", rewardService.GetUserReward)
}

func SetupAuthRoutes(app *fiber.App, authService *services.WalletAuthService, limiter *middleware.LoginRateLimiter) {
	// 🔓 Public: the signature is the credential
	auth := app.Group("/auth")
	auth.Post("/nonce", authService.RequestNonce)
	auth.Post("/verify", limiter.Handler(), authService.VerifyLogin)
}
