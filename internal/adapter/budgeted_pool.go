package adapter

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
)

// CallBudget gates upstream calls against a shared budget
type CallBudget interface {
	Wait(ctx context.Context, n int) error
}

// BudgetedPool charges every contract call against a CallBudget before it reaches the pool's caller
type BudgetedPool struct {
	pool   CallerPool
	budget CallBudget
}

// NewBudgetedPool wraps pool so each call first waits for budget
func NewBudgetedPool(pool CallerPool, budget CallBudget) *BudgetedPool {
	return &BudgetedPool{pool: pool, budget: budget}
}

// Caller returns the pool's current caller behind the budget
func (p *BudgetedPool) Caller() ContractCaller {
	return budgetedCaller{caller: p.pool.Caller(), budget: p.budget}
}

// OnRateLimited delegates failover to the wrapped pool
func (p *BudgetedPool) OnRateLimited(ctx context.Context) error {
	return p.pool.OnRateLimited(ctx)
}

type budgetedCaller struct {
	caller ContractCaller
	budget CallBudget
}

func (c budgetedCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.budget.Wait(ctx, 1); err != nil {
		return nil, err
	}
	return c.caller.CallContract(ctx, msg, blockNumber)
}
