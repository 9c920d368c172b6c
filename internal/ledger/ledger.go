package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/snowmuffin/game-hub-nest-sub001/internal/infrastructure/repository"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/metrics"
	"github.com/snowmuffin/game-hub-nest-sub001/internal/model"
	"github.com/snowmuffin/game-hub-nest-sub001/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultMaxAttempts = 5

// Event is published after a balance change commits.
type Event struct {
	WalletID      int64                 `json:"wallet_id"`
	WalletKey     string                `json:"wallet_key"`
	UserID        int64                 `json:"user_id"`
	TransactionID int64                 `json:"transaction_id"`
	Type          model.TransactionType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	Version       int64                 `json:"version"`
}

// Publisher receives committed ledger events. Failures are logged and
// never undo the commit.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Result is the transaction a ledger call produced. Applied is false
// when the reference had already been recorded and the original row is
// returned instead.
type Result struct {
	Transaction model.WalletTransaction
	Wallet      model.Wallet
	Applied     bool
}

type Option func(*Ledger)

func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) { l.publisher = p }
}

func WithRetryBackoff(d time.Duration) Option {
	return func(l *Ledger) { l.backoff = d }
}

// Ledger is the only writer of wallet balances. Every change runs in one
// DB transaction that locks the wallet row, compares its version, and
// appends the matching WalletTransaction.
type Ledger struct {
	repo        *repository.WalletRepository
	maxAttempts int
	backoff     time.Duration
	publisher   Publisher
	metrics     *metrics.EconomyMetrics
}

func New(repo *repository.WalletRepository, opts ...Option) *Ledger {
	l := &Ledger{
		repo:        repo,
		maxAttempts: defaultMaxAttempts,
		backoff:     5 * time.Millisecond,
		metrics:     metrics.Economy(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Credit adds amount to the wallet for key, creating the wallet on first
// use. txType must be a credit type.
func (l *Ledger) Credit(ctx context.Context, key WalletKey, amount decimal.Decimal, txType model.TransactionType, ref string) (*Result, error) {
	if !txType.IsCredit() {
		return nil, fmt.Errorf("%w: %s is not a credit", ErrInvalidTransactionType, txType)
	}
	return l.apply(ctx, key, amount, txType, ref, "")
}

// Debit removes amount from the wallet for key. It fails with
// ErrInsufficientFunds, writing nothing, when the available balance is
// short.
func (l *Ledger) Debit(ctx context.Context, key WalletKey, amount decimal.Decimal, txType model.TransactionType, ref string) (*Result, error) {
	if !txType.IsDebit() {
		return nil, fmt.Errorf("%w: %s is not a debit", ErrInvalidTransactionType, txType)
	}
	return l.apply(ctx, key, amount, txType, ref, "")
}

func (l *Ledger) apply(ctx context.Context, key WalletKey, amount decimal.Decimal, txType model.TransactionType, ref, desc string) (*Result, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	amount = amount.Round(8)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var out *Result
	err := l.retry(ctx, func() error {
		return l.repo.Transaction(ctx, func(repo *repository.WalletRepository) error {
			w, err := repo.EnsureWallet(ctx, key.newWallet())
			if err != nil {
				return fmt.Errorf("ensure wallet %s: %w", key, err)
			}
			res, err := l.applyLocked(ctx, repo, w, txType, amount, ref, desc)
			if err != nil {
				return err
			}
			out = res
			return nil
		})
	})
	l.observe(txType, err, out)
	if err != nil {
		return nil, err
	}
	if out.Applied {
		l.publish(ctx, out)
	}
	return out, nil
}

// applyLocked runs inside a transaction with w freshly read and locked.
func (l *Ledger) applyLocked(
	ctx context.Context,
	repo *repository.WalletRepository,
	w model.Wallet,
	txType model.TransactionType,
	amount decimal.Decimal,
	ref, desc string,
) (*Result, error) {
	if ref != "" {
		prev, err := repo.FindByReference(ctx, w.ID, txType, ref)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return &Result{Transaction: *prev, Wallet: w, Applied: false}, nil
		}
	}
	if !w.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrWalletInactive, w.WalletKey)
	}

	before := w.Balance
	var after decimal.Decimal
	if txType.IsCredit() {
		after = before.Add(amount)
	} else {
		if w.Available().LessThan(amount) {
			return nil, fmt.Errorf("%w: wallet %s has %s, needs %s", ErrInsufficientFunds, w.WalletKey, w.Available(), amount)
		}
		after = before.Sub(amount)
	}

	if err := repo.SwapBalance(ctx, w.ID, w.Version, after); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, fmt.Errorf("%w: wallet %s", ErrLedgerConflict, w.WalletKey)
		}
		return nil, err
	}

	row := model.WalletTransaction{
		WalletID:      w.ID,
		UserID:        w.UserID,
		Type:          txType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Description:   desc,
		Status:        model.TxStatusCompleted,
	}
	if ref != "" {
		r := ref
		row.ReferenceID = &r
	}
	if err := repo.InsertTransaction(ctx, &row); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: duplicate reference %s", ErrLedgerConflict, ref)
		}
		return nil, err
	}

	w.Balance = after
	w.Version++
	return &Result{Transaction: row, Wallet: w, Applied: true}, nil
}

// Transfer moves amount between two wallets of the same currency in a
// single DB transaction. Rows are locked in wallet key order.
func (l *Ledger) Transfer(ctx context.Context, from, to WalletKey, amount decimal.Decimal, ref string) (out, in *Result, err error) {
	if err := from.Validate(); err != nil {
		return nil, nil, err
	}
	if err := to.Validate(); err != nil {
		return nil, nil, err
	}
	if from.String() == to.String() || from.CurrencyID != to.CurrencyID {
		return nil, nil, ErrInvalidTransfer
	}
	amount = amount.Round(8)
	if !amount.IsPositive() {
		return nil, nil, ErrInvalidAmount
	}
	if ref == "" {
		ref = "transfer_" + uuid.NewString()
	}

	err = l.retry(ctx, func() error {
		return l.repo.Transaction(ctx, func(repo *repository.WalletRepository) error {
			first, second := from, to
			if second.String() < first.String() {
				first, second = second, first
			}
			wallets := map[string]model.Wallet{}
			for _, k := range []WalletKey{first, second} {
				w, err := repo.EnsureWallet(ctx, k.newWallet())
				if err != nil {
					return fmt.Errorf("ensure wallet %s: %w", k, err)
				}
				wallets[k.String()] = w
			}

			o, err := l.applyLocked(ctx, repo, wallets[from.String()], model.TxTransferOut, amount, ref,
				"transfer to "+to.String())
			if err != nil {
				return err
			}
			i, err := l.applyLocked(ctx, repo, wallets[to.String()], model.TxTransferIn, amount, ref,
				"transfer from "+from.String())
			if err != nil {
				return err
			}
			out, in = o, i
			return nil
		})
	})
	l.observe(model.TxTransferOut, err, out)
	if err != nil {
		return nil, nil, err
	}
	if out.Applied {
		l.publish(ctx, out)
	}
	if in.Applied {
		l.publish(ctx, in)
	}
	return out, in, nil
}

// Balance returns the stored wallet for key.
func (l *Ledger) Balance(ctx context.Context, key WalletKey) (model.Wallet, error) {
	if err := key.Validate(); err != nil {
		return model.Wallet{}, err
	}
	w, err := l.repo.GetWalletByKey(ctx, key.String())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Wallet{}, fmt.Errorf("%w: %s", ErrWalletNotFound, key)
	}
	return w, err
}

func (l *Ledger) UserWallets(ctx context.Context, userID int64) ([]model.Wallet, error) {
	return l.repo.ListUserWallets(ctx, userID)
}

func (l *Ledger) Transactions(ctx context.Context, walletID int64, limit, offset int) ([]model.WalletTransaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return l.repo.ListTransactions(ctx, walletID, limit, offset)
}

// Deactivate disables a wallet. Wallets are never deleted.
func (l *Ledger) Deactivate(ctx context.Context, key WalletKey) error {
	n, err := l.repo.SetActive(ctx, key.String(), false)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrWalletNotFound, key)
	}
	return nil
}

// VerifyChain walks a wallet's history and checks every row against its
// predecessor and the final row against the stored balance.
func (l *Ledger) VerifyChain(ctx context.Context, walletID int64) error {
	w, err := l.repo.GetWallet(ctx, walletID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: id %d", ErrWalletNotFound, walletID)
	}
	if err != nil {
		return err
	}

	prev := decimal.Zero
	err = l.repo.EachTransaction(ctx, walletID, 500, func(t model.WalletTransaction) error {
		if !t.BalanceBefore.Equal(prev) {
			return fmt.Errorf("%w: tx %d starts at %s, previous ended at %s", ErrChainBroken, t.ID, t.BalanceBefore, prev)
		}
		if !t.BalanceBefore.Add(t.Signed()).Equal(t.BalanceAfter) {
			return fmt.Errorf("%w: tx %d %s %s does not reach %s", ErrChainBroken, t.ID, t.BalanceBefore, t.Signed(), t.BalanceAfter)
		}
		prev = t.BalanceAfter
		return nil
	})
	if err != nil {
		return err
	}
	if !prev.Equal(w.Balance) {
		return fmt.Errorf("%w: history ends at %s, wallet holds %s", ErrChainBroken, prev, w.Balance)
	}
	return nil
}

func (l *Ledger) retry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, ErrLedgerConflict) {
			return err
		}
		if attempt == l.maxAttempts {
			break
		}
		l.metrics.ObserveLedgerRetry()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * l.backoff):
		}
	}
	return fmt.Errorf("after %d attempts: %w", l.maxAttempts, err)
}

func (l *Ledger) observe(txType model.TransactionType, err error, res *Result) {
	result := "applied"
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		result = "insufficient_funds"
	case errors.Is(err, ErrLedgerConflict):
		result = "conflict"
	case err != nil:
		result = "error"
	case res != nil && !res.Applied:
		result = "replayed"
	}
	l.metrics.ObserveLedgerOp(string(txType), result)
}

func (l *Ledger) publish(ctx context.Context, res *Result) {
	if l.publisher == nil {
		return
	}
	ev := Event{
		WalletID:      res.Wallet.ID,
		WalletKey:     res.Wallet.WalletKey,
		UserID:        res.Wallet.UserID,
		TransactionID: res.Transaction.ID,
		Type:          res.Transaction.Type,
		Amount:        res.Transaction.Amount,
		BalanceAfter:  res.Transaction.BalanceAfter,
		Version:       res.Wallet.Version,
	}
	if err := l.publisher.Publish(ctx, ev); err != nil {
		logger.WithError(err).WithField("wallet_key", ev.WalletKey).Warn("ledger event publish failed")
	}
}
