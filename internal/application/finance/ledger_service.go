package finance

import (
	"context"
	"errors"
	"fmt"

	"github.com/pharmacy/backend/internal/application/uow"
	"github.com/pharmacy/backend/internal/application/validation"
	"github.com/pharmacy/backend/internal/domain/finance"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OpenAccountCommand opens a cash account with an optional opening balance
type OpenAccountCommand struct {
	Name           string          `json:"name" validate:"required,max=100"`
	Currency       string          `json:"currency" validate:"required,len=3"`
	OpeningBalance decimal.Decimal `json:"opening_balance" validate:"-"`
}

// LedgerService is the application entry point for the financial ledger
type LedgerService struct {
	scope  uow.TransactionScope
	clock  shared.Clock
	logger *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(scope uow.TransactionScope, clock shared.Clock, logger *zap.Logger) *LedgerService {
	if clock == nil {
		clock = shared.SystemClock{}
	}
	return &LedgerService{scope: scope, clock: clock, logger: logger}
}

func (s *LedgerService) ledger(repos uow.Repositories) *finance.Ledger {
	return finance.NewLedger(repos.Accounts(), repos.Transactions(), s.clock)
}

// OpenAccount creates an account and posts a non-zero opening balance as an Adjustment
func (s *LedgerService) OpenAccount(ctx context.Context, cmd OpenAccountCommand) (*finance.Account, error) {
	if err := validation.Struct(cmd); err != nil {
		return nil, err
	}

	var account *finance.Account
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		a, err := finance.NewAccount(cmd.Name, cmd.Currency, s.clock.Now())
		if err != nil {
			return err
		}
		if err := repos.Accounts().Create(ctx, a); err != nil {
			return err
		}
		if !cmd.OpeningBalance.IsZero() {
			tx, err := s.ledger(repos).Post(ctx, a.ID, finance.PostRequest{
				Type:        finance.TransactionTypeAdjustment,
				Amount:      cmd.OpeningBalance,
				Description: "Opening balance",
			})
			if err != nil {
				return err
			}
			a.Balance = tx.BalanceAfter
		}
		account = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Account opened",
		zap.Int64("account_id", account.ID),
		zap.String("name", account.Name),
		zap.String("opening_balance", account.Balance.String()),
	)
	return account, nil
}

// Post records a transaction against an account
func (s *LedgerService) Post(ctx context.Context, accountID int64, req finance.PostRequest) (*finance.Transaction, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "post",
		telemetry.SpanAttrAccountID, accountID, telemetry.SpanAttrAmount, req.Amount.String())
	defer span.End()

	var tx *finance.Transaction
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		tx, err = s.ledger(repos).Post(ctx, accountID, req)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return tx, nil
}

// Reconcile checks one account. Drift is logged at error level and returned.
func (s *LedgerService) Reconcile(ctx context.Context, accountID int64) error {
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		return s.ledger(repos).Reconcile(ctx, accountID)
	})
	if err != nil && shared.KindOf(err) == shared.KindReconciliation {
		s.logger.Error("Account does not reconcile", zap.Int64("account_id", accountID), zap.Error(err))
	}
	return err
}

// ReconcileAll checks every account and returns the first failure
func (s *LedgerService) ReconcileAll(ctx context.Context) error {
	var accounts []finance.Account
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		accounts, err = repos.Accounts().FindAll(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("list accounts: %w", err)
	}
	for _, a := range accounts {
		if err := s.Reconcile(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}

// Statement returns the account's transactions with running balances
func (s *LedgerService) Statement(ctx context.Context, accountID int64) (*finance.Statement, error) {
	var stmt *finance.Statement
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		var err error
		stmt, err = s.ledger(repos).Statement(ctx, accountID)
		return err
	})
	return stmt, err
}

// EnsureAccount returns the account with accountID, opening it from cmd when the
// ledger has no accounts yet. A fresh database assigns the first account ID 1, so a
// configured ID that the new account does not receive is an error.
func (s *LedgerService) EnsureAccount(ctx context.Context, accountID int64, cmd OpenAccountCommand) (*finance.Account, error) {
	var (
		existing *finance.Account
		count    int
	)
	err := s.scope.Execute(ctx, func(repos uow.Repositories) error {
		a, err := repos.Accounts().FindByID(ctx, accountID)
		if err == nil {
			existing = a
			return nil
		}
		if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		all, err := repos.Accounts().FindAll(ctx)
		if err != nil {
			return err
		}
		count = len(all)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("look up account %d: %w", accountID, err)
	}
	if existing != nil {
		return existing, nil
	}
	if count > 0 {
		return nil, shared.NewKindError(shared.KindNotFound, "ACCOUNT_NOT_FOUND",
			fmt.Sprintf("account %d does not exist", accountID))
	}

	account, err := s.OpenAccount(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if account.ID != accountID {
		return nil, fmt.Errorf("bootstrapped account received id %d, configured id is %d", account.ID, accountID)
	}
	return account, nil
}
