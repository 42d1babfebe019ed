// services/ownership.go
package services

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"strings"

	"holder-rewards/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"
)

const erc721OwnerABI = `[{"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}]`

const erc1155BalanceABI = `[{"inputs":[{"name":"account","type":"address"},{"name":"id","type":"uint256"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

var (
	erc721ABI  = mustParseABI(erc721OwnerABI)
	erc1155ABI = mustParseABI(erc1155BalanceABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// ContractCaller is the read-only subset of the Ethereum RPC the verifier uses.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// EthOwnershipVerifier checks ERC721/ERC1155 ownership with eth_call.
type EthOwnershipVerifier struct {
	client  ContractCaller
	limiter *rate.Limiter
}

// NewEthOwnershipVerifier throttles RPC calls to rps per second; rps <= 0 disables throttling.
func NewEthOwnershipVerifier(client ContractCaller, rps float64) *EthOwnershipVerifier {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return &EthOwnershipVerifier{client: client, limiter: limiter}
}

// Verify reports whether wallet owns tokenID of contractAddress. Malformed
// addresses and unknown standards are "not owned", not errors.
func (v *EthOwnershipVerifier) Verify(ctx context.Context, contractAddress, tokenID, wallet string, standard models.TokenStandard) (bool, error) {
	if !common.IsHexAddress(wallet) || !common.IsHexAddress(contractAddress) {
		return false, nil
	}
	id, ok := parseTokenID(tokenID)
	if !ok {
		return false, nil
	}
	owner := common.HexToAddress(wallet)
	contract := common.HexToAddress(contractAddress)

	switch standard {
	case models.StandardERC721:
		out, err := v.call(ctx, erc721ABI, contract, "ownerOf", id)
		if err != nil {
			return false, err
		}
		addr, ok := out[0].(common.Address)
		if !ok {
			return false, fmt.Errorf("ownerOf returned %T", out[0])
		}
		return addr == owner, nil
	case models.StandardERC1155:
		out, err := v.call(ctx, erc1155ABI, contract, "balanceOf", owner, id)
		if err != nil {
			return false, err
		}
		balance, ok := out[0].(*big.Int)
		if !ok {
			return false, fmt.Errorf("balanceOf returned %T", out[0])
		}
		return balance.Sign() > 0, nil
	default:
		log.Printf("[Ownership] ⚠️ Unknown token standard %q for %s/%s", standard, contractAddress, tokenID)
		return false, nil
	}
}

func (v *EthOwnershipVerifier) call(ctx context.Context, contractABI abi.ABI, contract common.Address, method string, args ...interface{}) ([]interface{}, error) {
	if err := v.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := v.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, contract.Hex(), err)
	}
	out, err := contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s returned no values", method)
	}
	return out, nil
}

// parseTokenID accepts decimal or 0x-prefixed hex token ids.
func parseTokenID(raw string) (*big.Int, bool) {
	raw = strings.TrimSpace(raw)
	base := 10
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		raw = raw[2:]
		base = 16
	}
	if raw == "" {
		return nil, false
	}
	id, ok := new(big.Int).SetString(raw, base)
	if !ok || id.Sign() < 0 {
		return nil, false
	}
	return id, true
}
