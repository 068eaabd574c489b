package adapter

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/savings-metrics/internal/models"
	"github.com/shopspring/decimal"
)

// ERC20 balanceOf ABI
const erc20ABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// WalletDirectory resolves the custodial wallet that holds a user's synthetic asset
type WalletDirectory interface {
	WalletAddress(ctx context.Context, userID string) (address string, found bool, err error)
}

// CallerPool hands out contract callers and fails over when one is rate limited
type CallerPool interface {
	Caller() ContractCaller
	OnRateLimited(ctx context.Context) error
}

// CurrentPricer quotes the synthetic asset now
type CurrentPricer interface {
	CurrentPrice(ctx context.Context) (models.PricePoint, error)
}

// SyntheticBalanceReader values a user's on-chain synthetic asset holding in deposit currency
type SyntheticBalanceReader struct {
	wallets  WalletDirectory
	pool     CallerPool
	prices   CurrentPricer
	token    common.Address
	decimals int32
	abi      abi.ABI
}

// NewSyntheticBalanceReader creates a reader for the ERC-20 token at tokenAddress
func NewSyntheticBalanceReader(wallets WalletDirectory, pool CallerPool, prices CurrentPricer, tokenAddress string, decimals int) (*SyntheticBalanceReader, error) {
	if !common.IsHexAddress(tokenAddress) {
		return nil, fmt.Errorf("invalid token address %q", tokenAddress)
	}
	parsedABI, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &SyntheticBalanceReader{
		wallets:  wallets,
		pool:     pool,
		prices:   prices,
		token:    common.HexToAddress(tokenAddress),
		decimals: int32(decimals),
		abi:      parsedABI,
	}, nil
}

// GetBalance returns token balance times current price. A user without a wallet holds nothing.
func (r *SyntheticBalanceReader) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	address, found, err := r.wallets.WalletAddress(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve wallet for user %s: %w", userID, err)
	}
	if !found {
		return decimal.Zero, nil
	}
	if !common.IsHexAddress(address) {
		return decimal.Zero, fmt.Errorf("user %s has invalid wallet address %q", userID, address)
	}

	units, err := r.TokenBalance(ctx, common.HexToAddress(address))
	if err != nil {
		return decimal.Zero, err
	}
	if units.IsZero() {
		return decimal.Zero, nil
	}

	price, err := r.prices.CurrentPrice(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to price synthetic balance: %w", err)
	}
	if !price.Valid() {
		return decimal.Zero, fmt.Errorf("%w: current price %s", ErrInvalidPrice, price.Price)
	}
	return units.Mul(price.Price), nil
}

// TokenBalance returns the owner's token balance scaled by the token decimals
func (r *SyntheticBalanceReader) TokenBalance(ctx context.Context, owner common.Address) (decimal.Decimal, error) {
	data, err := r.abi.Pack("balanceOf", owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf: %w", err)
	}
	msg := ethereum.CallMsg{To: &r.token, Data: data}

	var result []byte
	for {
		result, err = r.pool.Caller().CallContract(ctx, msg, nil)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return decimal.Zero, ctx.Err()
		}
		if !IsRateLimitError(err) {
			return decimal.Zero, fmt.Errorf("%w: balanceOf call failed: %w", ErrProviderUnavailable, err)
		}
		if failoverErr := r.pool.OnRateLimited(ctx); failoverErr != nil {
			return decimal.Zero, failoverErr
		}
	}

	out, err := r.abi.Unpack("balanceOf", result)
	if err != nil || len(out) != 1 {
		return decimal.Zero, fmt.Errorf("failed to unpack balanceOf result: %v", err)
	}
	raw, ok := out[0].(*big.Int)
	if !ok {
		return decimal.Zero, fmt.Errorf("unexpected balanceOf result type %T", out[0])
	}
	return decimal.NewFromBigInt(raw, -r.decimals), nil
}
