// services/wallet_auth_service.go
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"holder-rewards/models"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNonceNotFound    = errors.New("nonce expired or not found")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrInvalidWallet    = errors.New("invalid wallet address")
)

// LoginMessage is the exact text a wallet signs (EIP-191 personal_sign).
func LoginMessage(nonce string) string {
	return "Login nonce: " + nonce
}

// WalletAuthService issues session tokens to wallets that prove key ownership
// by signing a one-time nonce.
type WalletAuthService struct {
	DB       *gorm.DB
	secret   []byte
	nonceTTL time.Duration
	tokenTTL time.Duration
	now      func() time.Time
}

func NewWalletAuthService(db *gorm.DB, secret string, nonceTTL, tokenTTL time.Duration, now func() time.Time) *WalletAuthService {
	if now == nil {
		now = time.Now
	}
	return &WalletAuthService{
		DB:       db,
		secret:   []byte(strings.TrimSpace(secret)),
		nonceTTL: nonceTTL,
		tokenTTL: tokenTTL,
		now:      now,
	}
}

// IssueNonce stores a fresh 6-digit nonce for wallet, replacing any earlier one.
func (s *WalletAuthService) IssueNonce(ctx context.Context, wallet string) (string, error) {
	if !common.IsHexAddress(wallet) {
		return "", ErrInvalidWallet
	}
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	row := models.LoginNonce{
		Wallet:    models.NormalizeAddress(wallet),
		Nonce:     fmt.Sprintf("%06d", n.Int64()+100000),
		CreatedAt: s.now().UTC(),
	}
	err = s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "wallet"}},
		DoUpdates: clause.AssignmentColumns([]string{"nonce", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return "", storageError("store login nonce", err)
	}
	return row.Nonce, nil
}

// VerifySignature consumes wallet's nonce and, if signature recovers to
// wallet, returns a signed session token.
func (s *WalletAuthService) VerifySignature(ctx context.Context, wallet, signature string) (string, error) {
	if !common.IsHexAddress(wallet) {
		return "", ErrInvalidWallet
	}
	wallet = models.NormalizeAddress(wallet)

	var row models.LoginNonce
	err := s.DB.WithContext(ctx).Where("wallet = ?", wallet).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNonceNotFound
	}
	if err != nil {
		return "", storageError("load login nonce", err)
	}

	// Single use, whether or not the signature checks out.
	if err := s.DB.WithContext(ctx).Where("wallet = ? AND nonce = ?", wallet, row.Nonce).Delete(&models.LoginNonce{}).Error; err != nil {
		return "", storageError("consume login nonce", err)
	}
	if s.now().Sub(row.CreatedAt) > s.nonceTTL {
		return "", ErrNonceNotFound
	}

	recovered, err := recoverSigner(LoginMessage(row.Nonce), signature)
	if err != nil || !strings.EqualFold(recovered.Hex(), wallet) {
		return "", ErrInvalidSignature
	}
	return s.issueToken(wallet)
}

func (s *WalletAuthService) issueToken(wallet string) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"wallet": wallet,
		"iat":    now.Unix(),
		"exp":    now.Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// SweepExpiredNonces deletes nonces past their TTL.
func (s *WalletAuthService) SweepExpiredNonces(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("created_at <= ?", s.now().UTC().Add(-s.nonceTTL)).
		Delete(&models.LoginNonce{})
	if res.Error != nil {
		return 0, storageError("sweep login nonces", res.Error)
	}
	return res.RowsAffected, nil
}

func recoverSigner(message, signature string) (common.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return common.Address{}, err
	}
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes")
	}
	// Wallets produce v in {27,28}; SigToPub expects {0,1}.
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// --- Handlers ---

// RequestNonce handles POST /auth/nonce.
func (s *WalletAuthService) RequestNonce(c *fiber.Ctx) error {
	var req struct {
		Wallet string `json:"wallet"`
	}
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Wallet) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Wallet required"})
	}
	nonce, err := s.IssueNonce(c.UserContext(), req.Wallet)
	if errors.Is(err, ErrInvalidWallet) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid wallet address"})
	}
	if err != nil {
		log.Printf("[Auth] ❌ Failed to issue nonce for %s: %v", req.Wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Failed to issue nonce"})
	}
	return c.JSON(fiber.Map{
		"success": true,
		"nonce":   nonce,
		"message": LoginMessage(nonce),
	})
}

// VerifyLogin handles POST /auth/verify.
func (s *WalletAuthService) VerifyLogin(c *fiber.Ctx) error {
	var req struct {
		Wallet    string `json:"wallet"`
		Signature string `json:"signature"`
	}
	if err := c.BodyParser(&req); err != nil || req.Wallet == "" || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Wallet & signature required"})
	}

	token, err := s.VerifySignature(c.UserContext(), req.Wallet, req.Signature)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidWallet):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Invalid wallet address"})
	case errors.Is(err, ErrNonceNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"success": false, "error": "Nonce expired or not found. Request new nonce."})
	case errors.Is(err, ErrInvalidSignature):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"success": false, "error": "Invalid signature"})
	default:
		log.Printf("[Auth] ❌ Verify error for %s: %v", req.Wallet, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"success": false, "error": "Verification failed"})
	}

	wallet := models.NormalizeAddress(req.Wallet)
	log.Printf("[Auth] ✅ Session issued for %s", wallet)
	return c.JSON(fiber.Map{"success": true, "token": token, "wallet": wallet})
}
