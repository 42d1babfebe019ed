// services/usdt_transfer.go
package services

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
)

const erc20TransferABI = `[{"inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}]`

var erc20ABI = mustParseABI(erc20TransferABI)

// EthBackend is the subset of ethclient.Client needed to send and confirm a transfer.
type EthBackend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// USDTConfig configures the treasury wallet and token contract.
type USDTConfig struct {
	TokenAddress string
	PrivateKey   string
	ChainID      int64
	Decimals     int32
	PollInterval time.Duration
}

// USDTTransferer pays rewards from the treasury wallet with ERC20 transfer().
type USDTTransferer struct {
	backend      EthBackend
	token        common.Address
	key          *ecdsa.PrivateKey
	from         common.Address
	signer       types.Signer
	decimals     int32
	pollInterval time.Duration

	// nonce assignment and broadcast must not interleave across claims
	mu sync.Mutex
}

func NewUSDTTransferer(backend EthBackend, cfg USDTConfig) (*USDTTransferer, error) {
	if !common.IsHexAddress(cfg.TokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", cfg.TokenAddress)
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(cfg.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("load treasury key: %w", err)
	}
	if cfg.Decimals <= 0 {
		cfg.Decimals = 6
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &USDTTransferer{
		backend:      backend,
		token:        common.HexToAddress(cfg.TokenAddress),
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		signer:       types.LatestSignerForChainID(big.NewInt(cfg.ChainID)),
		decimals:     cfg.Decimals,
		pollInterval: cfg.PollInterval,
	}, nil
}

// Transfer sends amount to the recipient and waits until the transaction is mined.
func (t *USDTTransferer) Transfer(ctx context.Context, to string, amount decimal.Decimal) (string, error) {
	if !common.IsHexAddress(to) {
		return "", &TransferError{Reason: "invalid recipient address"}
	}
	units := amount.Shift(t.decimals).Truncate(0).BigInt()
	if units.Sign() <= 0 {
		return "", &TransferError{Reason: "amount rounds to zero"}
	}
	data, err := erc20ABI.Pack("transfer", common.HexToAddress(to), units)
	if err != nil {
		return "", fmt.Errorf("pack transfer: %w", err)
	}

	signed, err := t.broadcast(ctx, data)
	if err != nil {
		return "", err
	}
	log.Printf("[Payout] 📤 USDT transfer broadcast: %s to %s | txHash: %s", amount, to, signed.Hash().Hex())

	receipt, err := t.waitMined(ctx, signed.Hash())
	if err != nil {
		return "", &TransferError{Reason: fmt.Sprintf("awaiting receipt for %s", signed.Hash().Hex()), Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", &TransferError{Reason: fmt.Sprintf("transaction %s reverted", signed.Hash().Hex())}
	}
	return signed.Hash().Hex(), nil
}

func (t *USDTTransferer) broadcast(ctx context.Context, data []byte) (*types.Transaction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nonce, err := t.backend.PendingNonceAt(ctx, t.from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{From: t.from, To: &t.token, Data: data})
	if err != nil {
		return nil, &TransferError{Reason: "gas estimation failed", Err: err}
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &t.token,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, t.signer, t.key)
	if err != nil {
		return nil, fmt.Errorf("sign transfer: %w", err)
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, &TransferError{Reason: "send transaction", Err: err}
	}
	return signed, nil
}

func (t *USDTTransferer) waitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()
	for {
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			log.Printf("[Payout] ⚠️ Receipt lookup for %s failed: %v", hash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
