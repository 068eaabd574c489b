// Package service implements the savings metrics reconciliation engine.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/savings-metrics/internal/errors"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
	"github.com/savings-metrics/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Provider interfaces for dependency injection

// LedgerProvider returns a user's savings transactions
type LedgerProvider interface {
	GetTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
}

// LendingPositionProvider returns a user's current pool-share lending positions
type LendingPositionProvider interface {
	GetPositions(ctx context.Context, userID string) ([]models.LendingPosition, error)
}

// SyntheticBalanceProvider returns a user's current synthetic asset balance in deposit currency
type SyntheticBalanceProvider interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// PriceOracle quotes the synthetic asset in deposit currency
type PriceOracle interface {
	PriceAt(ctx context.Context, at time.Time) (models.PricePoint, error)
	CurrentPrice(ctx context.Context) (models.PricePoint, error)
}

// Provider names used in errors and logs
const (
	ProviderLedger           = "ledger"
	ProviderLendingPositions = "lending_positions"
	ProviderSyntheticBalance = "synthetic_balance"
)

// EngineConfig configures asset classification and price lookups
type EngineConfig struct {
	LendingSymbol          string
	SyntheticSymbols       []string
	PriceLookupConcurrency int
}

// SavingsMetricsService computes the unified savings view of a user
type SavingsMetricsService struct {
	ledger     LedgerProvider
	positions  LendingPositionProvider
	balances   SyntheticBalanceProvider
	classifier *LedgerClassifier
	synthetic  *SyntheticCalculator
	now        func() time.Time
}

// NewSavingsMetricsService creates a new savings metrics service
func NewSavingsMetricsService(
	ledger LedgerProvider,
	positions LendingPositionProvider,
	balances SyntheticBalanceProvider,
	oracle PriceOracle,
	cfg EngineConfig,
) *SavingsMetricsService {
	return &SavingsMetricsService{
		ledger:     ledger,
		positions:  positions,
		balances:   balances,
		classifier: NewLedgerClassifier(cfg.LendingSymbol, cfg.SyntheticSymbols),
		synthetic:  NewSyntheticCalculator(NewPriceResolver(NewSharedQuote(oracle), cfg.PriceLookupConcurrency)),
		now:        time.Now,
	}
}

// providerSnapshot is everything read from the providers for one computation
type providerSnapshot struct {
	transactions     []models.Transaction
	positions        []models.LendingPosition
	syntheticBalance decimal.Decimal
}

// ComputeSavingsMetrics reconciles ledger, positions and prices into a SavingsMetrics value.
// A failing provider fails the whole computation; a failing price lookup only degrades it.
func (s *SavingsMetricsService) ComputeSavingsMetrics(ctx context.Context, userID string) (*models.SavingsMetrics, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperrors.NewInvalidParameterError("userId", "must not be empty")
	}

	logger := logging.FromContext(ctx).WithUser(userID)
	ctx = withCurrentQuote(logging.WithLogger(ctx, logger))
	start := s.now()

	snapshot, err := s.fetch(ctx, userID)
	if err != nil {
		logger.WithError(err).Warn("Savings metrics computation failed")
		return nil, err
	}

	deposits := s.classifier.Classify(snapshot.transactions)
	lending := ComputeLending(snapshot.positions, deposits.Lending)
	synthetic, err := s.synthetic.Compute(ctx, snapshot.syntheticBalance, deposits.Synthetic)
	if err != nil {
		return nil, err
	}

	metrics := Aggregate(userID, lending, synthetic.ProtocolMetrics, snapshot.syntheticBalance, s.now().UTC())

	logProtocol(logger, types.ProtocolLending, lending.ProtocolMetrics, lending.Deposits)
	logProtocol(logger, types.ProtocolSynthetic, synthetic.ProtocolMetrics, synthetic.Deposits)

	logger.WithFields(map[string]interface{}{
		"lendingDeposits":   lending.Deposits,
		"syntheticDeposits": synthetic.Deposits,
		"skippedDeposits":   synthetic.SkippedDeposits,
		"duration":          s.now().Sub(start).String(),
	}).Info("Savings metrics computed")

	return metrics, nil
}

// fetch reads the three providers concurrently
func (s *SavingsMetricsService) fetch(ctx context.Context, userID string) (*providerSnapshot, error) {
	snapshot := &providerSnapshot{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		txs, err := s.ledger.GetTransactions(gctx, userID)
		if err != nil {
			return providerError(ProviderLedger, err)
		}
		snapshot.transactions = txs
		return nil
	})
	g.Go(func() error {
		positions, err := s.positions.GetPositions(gctx, userID)
		if err != nil {
			return providerError(ProviderLendingPositions, err)
		}
		snapshot.positions = positions
		return nil
	})
	g.Go(func() error {
		balance, err := s.balances.GetBalance(gctx, userID)
		if err != nil {
			return providerError(ProviderSyntheticBalance, err)
		}
		snapshot.syntheticBalance = balance
		return nil
	})

	if err := g.Wait(); err != nil {
		// a caller that went away is not a provider failure
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return snapshot, nil
}

// logProtocol records one protocol's reconciliation at debug level
func logProtocol(logger *logging.Logger, protocol types.ProtocolID, m models.ProtocolMetrics, deposits int) {
	logger.WithFields(map[string]interface{}{
		"protocol":       protocol,
		"deposits":       deposits,
		"totalDeposited": m.TotalDeposited.String(),
		"rewards":        m.Rewards.String(),
		"withdrawn":      m.Withdrawn.String(),
	}).Debug("Protocol reconciled")
}

// providerError wraps a provider failure so callers can tell it apart from a degraded result
func providerError(provider string, err error) error {
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) && catErr.Category == apperrors.CategoryProvider {
		return err
	}

	var timeout interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &timeout) && timeout.Timeout()) {
		return apperrors.NewProviderTimeoutError(provider, err)
	}
	return apperrors.NewProviderUnavailableError(provider, err)
}

// Aggregate assembles the unified view from both protocol outcomes.
// Current stake is what the user holds right now across both protocols.
func Aggregate(
	userID string,
	lending LendingResult,
	synthetic models.ProtocolMetrics,
	syntheticBalance decimal.Decimal,
	computedAt time.Time,
) *models.SavingsMetrics {
	currentStake := nonNegative(syntheticBalance).Add(nonNegative(lending.AvailableBalance))

	return &models.SavingsMetrics{
		UserID:           userID,
		TotalStake:       currentStake,
		CurrentStake:     currentStake,
		LifetimeRewards:  lending.Rewards.Add(synthetic.Rewards),
		LifetimeUnbonded: lending.Withdrawn.Add(synthetic.Withdrawn),
		Lending:          lending.ProtocolMetrics,
		Synthetic:        synthetic,
		ComputedAt:       computedAt,
	}
}
