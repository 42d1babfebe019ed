package services

import (
	"context"
	"crypto/ecdsa"
	"testing"
	"time"

	"holder-rewards/models"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func personalSign(t *testing.T, key *ecdsa.PrivateKey, message string) string {
	t.Helper()
	sig, err := ethcrypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

func TestWalletLoginIssuesSessionToken(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	auth := NewWalletAuthService(db, "secret", 5*time.Minute, 24*time.Hour, clock.Now)
	ctx := context.Background()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	wallet := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()

	nonce, err := auth.IssueNonce(ctx, wallet)
	require.NoError(t, err)
	assert.Len(t, nonce, 6)

	token, err := auth.VerifySignature(ctx, wallet, personalSign(t, key, LoginMessage(nonce)))
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil },
		jwt.WithTimeFunc(clock.Now))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, models.NormalizeAddress(wallet), claims["wallet"])

	// Nonce is single use
	_, err = auth.VerifySignature(ctx, wallet, personalSign(t, key, LoginMessage(nonce)))
	assert.ErrorIs(t, err, ErrNonceNotFound)
}

func TestWalletLoginRejectsWrongSigner(t *testing.T) {
	db := setupTestDB(t)
	auth := NewWalletAuthService(db, "secret", 5*time.Minute, time.Hour, newTestClock().Now)
	ctx := context.Background()

	owner, _ := ethcrypto.GenerateKey()
	attacker, _ := ethcrypto.GenerateKey()
	wallet := ethcrypto.PubkeyToAddress(owner.PublicKey).Hex()

	nonce, err := auth.IssueNonce(ctx, wallet)
	require.NoError(t, err)
	_, err = auth.VerifySignature(ctx, wallet, personalSign(t, attacker, LoginMessage(nonce)))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = auth.VerifySignature(ctx, wallet, "0xdeadbeef")
	assert.ErrorIs(t, err, ErrNonceNotFound)
}

func TestWalletLoginNonceExpires(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	auth := NewWalletAuthService(db, "secret", 5*time.Minute, time.Hour, clock.Now)
	ctx := context.Background()

	key, _ := ethcrypto.GenerateKey()
	wallet := ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
	nonce, err := auth.IssueNonce(ctx, wallet)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)
	_, err = auth.VerifySignature(ctx, wallet, personalSign(t, key, LoginMessage(nonce)))
	assert.ErrorIs(t, err, ErrNonceNotFound)
}

func TestIssueNonceRejectsBadWallet(t *testing.T) {
	auth := NewWalletAuthService(setupTestDB(t), "secret", time.Minute, time.Hour, nil)
	_, err := auth.IssueNonce(context.Background(), "not-a-wallet")
	assert.ErrorIs(t, err, ErrInvalidWallet)
}

func TestSweepExpiredNonces(t *testing.T) {
	db := setupTestDB(t)
	clock := newTestClock()
	auth := NewWalletAuthService(db, "secret", time.Minute, time.Hour, clock.Now)
	ctx := context.Background()

	_, err := auth.IssueNonce(ctx, walletA)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	_, err = auth.IssueNonce(ctx, walletB)
	require.NoError(t, err)

	n, err := auth.SweepExpiredNonces(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
