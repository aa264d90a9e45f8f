package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Real-Dev-Squad/website-backend/internal/types"
)

// DefaultDinero is credited to a wallet on first access.
const DefaultDinero int64 = 1000

const stockColumns = `id, name, quantity, price, created_at, updated_at`

func scanStock(row pgx.Row) (types.Stock, error) {
	var s types.Stock
	err := row.Scan(&s.ID, &s.Name, &s.Quantity, &s.Price, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (p *PostgresBackend) ListStocks(ctx context.Context) ([]types.Stock, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+stockColumns+` FROM stocks ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stocks: %w", err)
	}
	defer rows.Close()

	stocks := []types.Stock{}
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, s)
	}
	return stocks, rows.Err()
}

func (p *PostgresBackend) CreateStock(ctx context.Context, dto types.StockCreateDto) (*types.Stock, error) {
	s, err := scanStock(p.pool.QueryRow(ctx,
		`INSERT INTO stocks (name, quantity, price) VALUES ($1, $2, $3) RETURNING `+stockColumns,
		dto.Name, dto.Quantity, dto.Price,
	))
	if err != nil {
		return nil, wrapErr(err, "failed to create stock")
	}
	return &s, nil
}

func (p *PostgresBackend) UpsertStock(ctx context.Context, dto types.StockCreateDto) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO stocks (name, quantity, price) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO NOTHING`,
		dto.Name, dto.Quantity, dto.Price,
	)
	return wrapErr(err, "failed to upsert stock")
}

func (p *PostgresBackend) GetStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, id uuid.UUID) (*types.Stock, error) {
	s, err := scanStock(dbTx.QueryRow(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, wrapErr(err, "failed to get stock")
	}
	return &s, nil
}

func (p *PostgresBackend) UpdateStockTx(ctx context.Context, dbTx pgx.Tx, stock types.Stock) error {
	_, err := dbTx.Exec(ctx,
		`UPDATE stocks SET quantity = $2, price = $3, updated_at = NOW() WHERE id = $1`,
		stock.ID, stock.Quantity, stock.Price,
	)
	return wrapErr(err, "failed to update stock")
}

func (p *PostgresBackend) getOrCreateWallet(ctx context.Context, q pgx.Tx, userID uuid.UUID, forUpdate bool) (*types.Wallet, error) {
	defaults := map[string]int64{types.CurrencyDinero: DefaultDinero, types.CurrencyNeelam: 0}
	_, err := q.Exec(ctx,
		`INSERT INTO wallets (user_id, currencies) VALUES ($1, $2) ON CONFLICT (user_id) DO NOTHING`,
		userID, defaults,
	)
	if err != nil {
		return nil, wrapErr(err, "failed to create wallet")
	}

	query := `SELECT user_id, currencies, updated_at FROM wallets WHERE user_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var w types.Wallet
	if err := q.QueryRow(ctx, query, userID).Scan(&w.UserID, &w.Currencies, &w.UpdatedAt); err != nil {
		return nil, wrapErr(err, "failed to get wallet")
	}
	if w.Currencies == nil {
		w.Currencies = map[string]int64{}
	}
	return &w, nil
}

func (p *PostgresBackend) GetWallet(ctx context.Context, userID uuid.UUID) (*types.Wallet, error) {
	var wallet *types.Wallet
	err := p.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		wallet, err = p.getOrCreateWallet(ctx, tx, userID, false)
		return err
	})
	return wallet, err
}

func (p *PostgresBackend) GetWalletForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID uuid.UUID) (*types.Wallet, error) {
	return p.getOrCreateWallet(ctx, dbTx, userID, true)
}

func (p *PostgresBackend) UpdateWalletTx(ctx context.Context, dbTx pgx.Tx, wallet types.Wallet) error {
	_, err := dbTx.Exec(ctx,
		`UPDATE wallets SET currencies = $2, updated_at = NOW() WHERE user_id = $1`,
		wallet.UserID, wallet.Currencies,
	)
	return wrapErr(err, "failed to update wallet")
}

// GetUserStockForUpdateTx returns storage.ErrNotFound when the user holds none of the stock.
func (p *PostgresBackend) GetUserStockForUpdateTx(ctx context.Context, dbTx pgx.Tx, userID, stockID uuid.UUID) (*types.UserStock, error) {
	var us types.UserStock
	err := dbTx.QueryRow(ctx, `
		SELECT user_id, stock_id, stock_name, quantity, initial_stock_value
		FROM user_stocks WHERE user_id = $1 AND stock_id = $2 FOR UPDATE`,
		userID, stockID,
	).Scan(&us.UserID, &us.StockID, &us.StockName, &us.Quantity, &us.InitialStockValue)
	if err != nil {
		return nil, wrapErr(err, "failed to get user stock")
	}
	return &us, nil
}

func (p *PostgresBackend) UpsertUserStockTx(ctx context.Context, dbTx pgx.Tx, us types.UserStock) error {
	_, err := dbTx.Exec(ctx, `
		INSERT INTO user_stocks (user_id, stock_id, stock_name, quantity, initial_stock_value)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, stock_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			initial_stock_value = EXCLUDED.initial_stock_value`,
		us.UserID, us.StockID, us.StockName, us.Quantity, us.InitialStockValue,
	)
	return wrapErr(err, "failed to upsert user stock")
}

func (p *PostgresBackend) ListUserStocks(ctx context.Context, userID uuid.UUID) ([]types.UserStock, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, stock_id, stock_name, quantity, initial_stock_value
		FROM user_stocks WHERE user_id = $1 AND quantity > 0 ORDER BY stock_name`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user stocks: %w", err)
	}
	defer rows.Close()

	stocks := []types.UserStock{}
	for rows.Next() {
		var us types.UserStock
		if err := rows.Scan(&us.UserID, &us.StockID, &us.StockName, &us.Quantity, &us.InitialStockValue); err != nil {
			return nil, fmt.Errorf("failed to scan user stock: %w", err)
		}
		stocks = append(stocks, us)
	}
	return stocks, rows.Err()
}
