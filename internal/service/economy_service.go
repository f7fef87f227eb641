package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"economy-ledger/internal/domain"
	"economy-ledger/internal/errors"
	"economy-ledger/internal/ledger"
)

const tracerName = "economy-ledger/internal/service"

// EconomyService is the entry point used by the HTTP handlers and by game
// side actions. It keeps no state of its own: every call resolves the
// attached ledger and forwards to it.
type EconomyService struct {
	host      *Host
	publisher domain.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewEconomyService(host *Host, publisher domain.Publisher, logger *slog.Logger) *EconomyService {
	return &EconomyService{
		host:      host,
		publisher: publisher,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

type ExchangeRequest struct {
	FromAccountID string
	ToAccountID   string
	Amount        int64
}

// Supply summarises the money in circulation.
type Supply struct {
	Total int64 `json:"total"`
	ledger.Stats
}

func (s *EconomyService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	_, span := s.tracer.Start(ctx, "EconomyService.ListAccounts")
	defer span.End()

	l, err := s.ledger(span)
	if err != nil {
		return nil, err
	}
	accounts := l.Accounts()
	span.SetAttributes(attribute.Int("accounts.count", len(accounts)))
	return accounts, nil
}

// GetAccount returns the account, creating it on first reference.
func (s *EconomyService) GetAccount(ctx context.Context, accountID string) (domain.Account, error) {
	_, span := s.tracer.Start(ctx, "EconomyService.GetAccount",
		trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Account{}, fail(span, err)
	}
	l, err := s.ledger(span)
	if err != nil {
		return domain.Account{}, err
	}
	return l.GetAccount(id), nil
}

func (s *EconomyService) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	_, span := s.tracer.Start(ctx, "EconomyService.ListTransactions")
	defer span.End()

	l, err := s.ledger(span)
	if err != nil {
		return nil, err
	}
	return l.Transactions(), nil
}

func (s *EconomyService) ListAccountTransactions(ctx context.Context, accountID string) ([]domain.Transaction, error) {
	_, span := s.tracer.Start(ctx, "EconomyService.ListAccountTransactions",
		trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	id, err := parseAccountID(accountID)
	if err != nil {
		return nil, fail(span, err)
	}
	l, err := s.ledger(span)
	if err != nil {
		return nil, err
	}
	return l.AccountTransactions(id), nil
}

// Exchange parses the request ids and transfers the amount.
func (s *EconomyService) Exchange(ctx context.Context, req *ExchangeRequest) (domain.Transaction, error) {
	from, err := parseAccountID(req.FromAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	to, err := parseAccountID(req.ToAccountID)
	if err != nil {
		return domain.Transaction{}, err
	}
	return s.ExchangeIDs(ctx, from, to, req.Amount)
}

// ExchangeIDs transfers amount between two accounts identified directly,
// as game side actions do. A successful transaction is published after the
// ledger has released its lock; publish failures are logged only.
func (s *EconomyService) ExchangeIDs(ctx context.Context, from, to uuid.UUID, amount int64) (domain.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "EconomyService.Exchange",
		trace.WithAttributes(
			attribute.String("exchange.from", from.String()),
			attribute.String("exchange.to", to.String()),
			attribute.Int64("exchange.amount", amount),
		))
	defer span.End()

	s.logger.Info("Processing exchange",
		"from", from,
		"to", to,
		"amount", amount)

	l, err := s.ledger(span)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx, err := l.Exchange(from, to, amount)
	if err != nil {
		return domain.Transaction{}, fail(span, err)
	}
	span.SetAttributes(
		attribute.String("transaction.id", tx.ID.String()),
		attribute.Int64("transaction.sequence", int64(tx.Sequence)),
	)

	// The transaction is committed; a caller going away must not drop its event.
	if err := s.publisher.PublishTransaction(context.WithoutCancel(ctx), tx); err != nil {
		s.logger.Warn("Failed to publish transaction",
			"transaction_id", tx.ID,
			"error", err)
		span.AddEvent("publish failed", trace.WithAttributes(attribute.String("error", err.Error())))
	}
	return tx, nil
}

// Lock freezes the account and returns its state afterwards.
func (s *EconomyService) Lock(ctx context.Context, accountID string) (domain.Account, error) {
	return s.setLocked(ctx, accountID, true)
}

// Unlock lifts a lock and returns the account state afterwards.
func (s *EconomyService) Unlock(ctx context.Context, accountID string) (domain.Account, error) {
	return s.setLocked(ctx, accountID, false)
}

func (s *EconomyService) setLocked(ctx context.Context, accountID string, locked bool) (domain.Account, error) {
	name := "EconomyService.Unlock"
	if locked {
		name = "EconomyService.Lock"
	}
	_, span := s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("account.id", accountID)))
	defer span.End()

	id, err := parseAccountID(accountID)
	if err != nil {
		return domain.Account{}, fail(span, err)
	}
	l, err := s.ledger(span)
	if err != nil {
		return domain.Account{}, err
	}

	if locked {
		l.Lock(id)
	} else {
		l.Unlock(id)
	}
	return l.GetAccount(id), nil
}

// Supply reports the total balance and ledger counters.
func (s *EconomyService) Supply(ctx context.Context) (Supply, error) {
	_, span := s.tracer.Start(ctx, "EconomyService.Supply")
	defer span.End()

	l, err := s.ledger(span)
	if err != nil {
		return Supply{}, err
	}
	total, err := l.TotalSupply()
	if err != nil {
		return Supply{}, fail(span, err)
	}
	return Supply{Total: total, Stats: l.Stats()}, nil
}

func (s *EconomyService) ledger(span trace.Span) (*ledger.Ledger, error) {
	l, err := s.host.Ledger()
	if err != nil {
		s.logger.Warn("Economy state unavailable")
		return nil, fail(span, err)
	}
	return l, nil
}

func parseAccountID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.ErrInvalidAccountID.WithDetails(err.Error())
	}
	return id, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
