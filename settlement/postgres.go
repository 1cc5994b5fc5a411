package settlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hivepay/hivepay/types"
)

// PostgresStore persists order intents in PostgreSQL. The partial
// unique index on settled_tx_ref enforces the one-transfer-one-order
// rule at the database level.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS order_intents (
    id TEXT PRIMARY KEY,
    cart_ref TEXT NOT NULL,
    memo TEXT NOT NULL,
    expected_amount NUMERIC(16,3) NOT NULL,
    expected_currency TEXT NOT NULL,
    status TEXT NOT NULL,
    settled_tx_ref TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS order_intents_tx_ref
    ON order_intents (settled_tx_ref) WHERE settled_tx_ref <> '';
`

// NewPostgresStore connects with the DSN and ensures the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is empty")
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping reports database reachability for health checks.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Create(ctx context.Context, intent *types.OrderIntent) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO order_intents (id, cart_ref, memo, expected_amount, expected_currency, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, intent.ID, intent.CartRef, intent.Memo, intent.ExpectedAmount, string(intent.ExpectedCurrency),
		string(intent.Status), intent.CreatedAt, intent.ExpiresAt)
	if err != nil {
		return types.NewGatewayError(types.ErrStoreFailure, fmt.Sprintf("create order: %v", err))
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*types.OrderIntent, error) {
	row := p.pool.QueryRow(ctx, `
SELECT id, cart_ref, memo, expected_amount, expected_currency, status, settled_tx_ref, created_at, expires_at
FROM order_intents
WHERE id = $1
`, id)

	var intent types.OrderIntent
	var amount decimal.Decimal
	var currency, status string
	err := row.Scan(&intent.ID, &intent.CartRef, &intent.Memo, &amount, &currency,
		&status, &intent.SettledTxRef, &intent.CreatedAt, &intent.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewGatewayError(types.ErrOrderNotFound,
				fmt.Sprintf("order %s not found", id))
		}
		return nil, types.NewGatewayError(types.ErrStoreFailure, fmt.Sprintf("get order: %v", err))
	}

	intent.ExpectedAmount = amount
	intent.ExpectedCurrency = types.Currency(currency)
	intent.Status = types.OrderStatus(status)
	return &intent, nil
}

// Settle performs the compare-and-swap transition pending -> settled.
// Exactly one concurrent caller's UPDATE matches; everyone else falls
// through to the status re-read and sees the settled row.
func (p *PostgresStore) Settle(ctx context.Context, id, txRef string) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
UPDATE order_intents
SET status = $3, settled_tx_ref = $2
WHERE id = $1 AND status = $4
`, id, txRef, string(types.OrderSettled), string(types.OrderPending))
	if err != nil {
		if isUniqueViolation(err) {
			return false, types.NewGatewayError(types.ErrTxRefConsumed,
				fmt.Sprintf("transfer %s already settled another order", txRef))
		}
		return false, types.NewGatewayError(types.ErrStoreFailure, fmt.Sprintf("settle order: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	intent, err := p.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if intent.Status == types.OrderSettled {
		return false, nil
	}
	// Expired rows can still settle; retry the swap from that state.
	tag, err = p.pool.Exec(ctx, `
UPDATE order_intents
SET status = $3, settled_tx_ref = $2
WHERE id = $1 AND status = $4
`, id, txRef, string(types.OrderSettled), string(types.OrderExpired))
	if err != nil {
		if isUniqueViolation(err) {
			return false, types.NewGatewayError(types.ErrTxRefConsumed,
				fmt.Sprintf("transfer %s already settled another order", txRef))
		}
		return false, types.NewGatewayError(types.ErrStoreFailure, fmt.Sprintf("settle order: %v", err))
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	intent, err = p.Get(ctx, id)
	if err != nil {
		return false, err
	}
	if intent.Status == types.OrderSettled {
		return false, nil
	}
	return false, types.NewGatewayError(types.ErrStoreFailure,
		fmt.Sprintf("order %s in unexpected status %s", id, intent.Status))
}

func (p *PostgresStore) MarkExpired(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, `
UPDATE order_intents
SET status = $2
WHERE id = $1 AND status = $3
`, id, string(types.OrderExpired), string(types.OrderPending))
	if err != nil {
		return types.NewGatewayError(types.ErrStoreFailure, fmt.Sprintf("expire order: %v", err))
	}
	if tag.RowsAffected() == 0 {
		// Already settled/expired or missing; missing surfaces via Get.
		if _, err := p.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
