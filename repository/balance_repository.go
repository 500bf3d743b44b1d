package repository

import (
	"context"
	"fmt"

	"splitledger/database"
	"splitledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const ledgerColumns = `id, group_id, user_a_id, user_b_id, currency, amount, created_at, updated_at`

// BalanceRepository implements the BalanceRepository interface over the pair ledger
type BalanceRepository struct {
	q queryable
}

// NewBalanceRepository creates a new balance repository
func NewBalanceRepository(db *database.DB) *BalanceRepository {
	return &BalanceRepository{q: db.Pool}
}

// newBalanceRepositoryWithTx creates a new balance repository with a transaction
func newBalanceRepositoryWithTx(tx queryable) *BalanceRepository {
	return &BalanceRepository{q: tx}
}

func scanLedgerRow(row pgx.Row) (*models.LedgerRow, error) {
	var r models.LedgerRow
	err := row.Scan(
		&r.ID,
		&r.GroupID,
		&r.UserA,
		&r.UserB,
		&r.Currency,
		&r.Amount,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *BalanceRepository) queryRows(ctx context.Context, query string, args ...any) ([]*models.LedgerRow, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*models.LedgerRow{}
	for rows.Next() {
		row, err := scanLedgerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance rows: %w", err)
	}
	return result, nil
}

// Apply adds delta to the pair row in a single upsert so concurrent writers never lose an update
func (r *BalanceRepository) Apply(ctx context.Context, key models.PairKey, delta decimal.Decimal) (*models.LedgerRow, error) {
	if key.UserA >= key.UserB {
		return nil, fmt.Errorf("pair key is not canonical: %d, %d", key.UserA, key.UserB)
	}

	query := `
		INSERT INTO balances (group_id, user_a_id, user_b_id, currency, amount)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT ON CONSTRAINT balances_pair_key
		DO UPDATE SET amount = balances.amount + EXCLUDED.amount, updated_at = NOW()
		RETURNING ` + ledgerColumns

	row, err := scanLedgerRow(r.q.QueryRow(ctx, query, key.GroupID, key.UserA, key.UserB, key.Currency, delta))
	if err != nil {
		return nil, fmt.Errorf("failed to apply balance delta for users %d/%d: %w", key.UserA, key.UserB, err)
	}
	return row, nil
}

// GetPair returns every row between two users
func (r *BalanceRepository) GetPair(ctx context.Context, userID, friendID int64, forUpdate bool) ([]*models.LedgerRow, error) {
	key := models.NewPairKey(nil, userID, friendID, "")

	query := `
		SELECT ` + ledgerColumns + `
		FROM balances
		WHERE user_a_id = $1 AND user_b_id = $2
		ORDER BY group_id NULLS FIRST, currency
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := r.queryRows(ctx, query, key.UserA, key.UserB)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances between %d and %d: %w", userID, friendID, err)
	}
	return rows, nil
}

// GetByUser returns every row involving the user
func (r *BalanceRepository) GetByUser(ctx context.Context, userID int64) ([]*models.LedgerRow, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM balances
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY group_id NULLS FIRST, user_a_id, user_b_id, currency
	`

	rows, err := r.queryRows(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances for user %d: %w", userID, err)
	}
	return rows, nil
}

// GetByGroup returns every row scoped to the group
func (r *BalanceRepository) GetByGroup(ctx context.Context, groupID int64) ([]*models.LedgerRow, error) {
	query := `
		SELECT ` + ledgerColumns + `
		FROM balances
		WHERE group_id = $1
		ORDER BY user_a_id, user_b_id, currency
	`

	rows, err := r.queryRows(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances for group %d: %w", groupID, err)
	}
	return rows, nil
}

// DeleteDirect removes the rows between two users that are not scoped to a group
func (r *BalanceRepository) DeleteDirect(ctx context.Context, userID, friendID int64) (int64, error) {
	key := models.NewPairKey(nil, userID, friendID, "")

	query := `
		DELETE FROM balances
		WHERE group_id IS NULL AND user_a_id = $1 AND user_b_id = $2
	`

	result, err := r.q.Exec(ctx, query, key.UserA, key.UserB)
	if err != nil {
		return 0, fmt.Errorf("failed to delete balances between %d and %d: %w", userID, friendID, err)
	}
	return result.RowsAffected(), nil
}
