package services

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	mu            sync.Mutex
	nonce         uint64
	sent          []*types.Transaction
	receiptStatus uint64
	pendingPolls  int
	sendErr       error
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nonce, nil
}

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(30_000_000_000), nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 60_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	f.nonce++
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingPolls > 0 {
		f.pendingPolls--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.receiptStatus, TxHash: hash}, nil
}

const testTokenAddress = "0xc2132D05D31c914a87C6611C10748AEb04B58e8F"

func newTestTransferer(t *testing.T, backend *fakeBackend) *USDTTransferer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	tr, err := NewUSDTTransferer(backend, USDTConfig{
		TokenAddress: testTokenAddress,
		PrivateKey:   "0x" + hex.EncodeToString(crypto.FromECDSA(key)),
		ChainID:      137,
		Decimals:     6,
		PollInterval: time.Millisecond,
	})
	require.NoError(t, err)
	return tr
}

func TestUSDTTransferEncodesScaledAmount(t *testing.T) {
	backend := &fakeBackend{receiptStatus: types.ReceiptStatusSuccessful, pendingPolls: 2}
	tr := newTestTransferer(t, backend)

	ref, err := tr.Transfer(context.Background(), walletA, decimal.RequireFromString("1.64"))
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)
	tx := backend.sent[0]
	assert.Equal(t, tx.Hash().Hex(), ref)
	assert.Equal(t, common.HexToAddress(testTokenAddress), *tx.To())

	method, err := erc20ABI.MethodById(tx.Data()[:4])
	require.NoError(t, err)
	assert.Equal(t, "transfer", method.Name)
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(walletA), args[0].(common.Address))
	assert.Equal(t, int64(1_640_000), args[1].(*big.Int).Int64())
}

func TestUSDTTransferReverted(t *testing.T) {
	backend := &fakeBackend{receiptStatus: types.ReceiptStatusFailed}
	_, err := newTestTransferer(t, backend).Transfer(context.Background(), walletA, decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrTransferFailure)
}

func TestUSDTTransferRejectsBadInput(t *testing.T) {
	tr := newTestTransferer(t, &fakeBackend{receiptStatus: types.ReceiptStatusSuccessful})

	_, err := tr.Transfer(context.Background(), "nope", decimal.NewFromInt(1))
	assert.ErrorIs(t, err, ErrTransferFailure)

	_, err = tr.Transfer(context.Background(), walletA, decimal.RequireFromString("0.0000001"))
	assert.ErrorIs(t, err, ErrTransferFailure)
}

func TestUSDTTransferSendError(t *testing.T) {
	backend := &fakeBackend{sendErr: errors.New("nonce too low")}
	_, err := newTestTransferer(t, backend).Transfer(context.Background(), walletA, decimal.NewFromInt(1))
	var te *TransferError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "send transaction", te.Reason)
}

func TestNewUSDTTransfererValidatesConfig(t *testing.T) {
	_, err := NewUSDTTransferer(&fakeBackend{}, USDTConfig{TokenAddress: "bad", PrivateKey: "00"})
	assert.Error(t, err)
	_, err = NewUSDTTransferer(&fakeBackend{}, USDTConfig{TokenAddress: testTokenAddress, PrivateKey: "zz"})
	assert.Error(t, err)
}
