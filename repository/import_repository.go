package repository

import (
	"context"
	"errors"
	"fmt"

	"splitledger/database"
	"splitledger/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ImportRepository implements the ImportRepository interface
type ImportRepository struct {
	q queryable
}

// NewImportRepository creates a new import repository
func NewImportRepository(db *database.DB) *ImportRepository {
	return &ImportRepository{q: db.Pool}
}

// newImportRepositoryWithTx creates a new import repository with a transaction
func newImportRepositoryWithTx(tx queryable) *ImportRepository {
	return &ImportRepository{q: tx}
}

// FindIdentity returns the local mapping of an external record
func (r *ImportRepository) FindIdentity(ctx context.Context, provider string, entityType models.ExternalIdentityType, externalID string) (*models.ExternalIdentity, error) {
	query := `
		SELECT provider, entity_type, external_id, local_id
		FROM external_identities
		WHERE provider = $1 AND entity_type = $2 AND external_id = $3
	`

	var identity models.ExternalIdentity
	err := r.q.QueryRow(ctx, query, provider, entityType, externalID).Scan(
		&identity.Provider,
		&identity.EntityType,
		&identity.ExternalID,
		&identity.LocalID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find %s %s identity %s: %w", provider, entityType, externalID, err)
	}
	return &identity, nil
}

// LinkIdentity creates a mapping or points an existing one at a new local id
func (r *ImportRepository) LinkIdentity(ctx context.Context, identity *models.ExternalIdentity) error {
	query := `
		INSERT INTO external_identities (provider, entity_type, external_id, local_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (provider, entity_type, external_id)
		DO UPDATE SET local_id = EXCLUDED.local_id, updated_at = NOW()
	`

	_, err := r.q.Exec(ctx, query, identity.Provider, identity.EntityType, identity.ExternalID, identity.LocalID)
	if err != nil {
		return fmt.Errorf("failed to link %s %s identity %s: %w", identity.Provider, identity.EntityType, identity.ExternalID, err)
	}
	return nil
}

// ClaimImportedBalance locks the pair's imported amount for the rest of the transaction,
// creating a zero row first so concurrent imports of a new pair serialize on it
func (r *ImportRepository) ClaimImportedBalance(ctx context.Context, key models.PairKey) (decimal.Decimal, error) {
	claim := `
		INSERT INTO imported_balances (user_a_id, user_b_id, currency, amount)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_a_id, user_b_id, currency) DO NOTHING
	`
	if _, err := r.q.Exec(ctx, claim, key.UserA, key.UserB, key.Currency); err != nil {
		return decimal.Zero, fmt.Errorf("failed to claim imported %s balance for %d/%d: %w", key.Currency, key.UserA, key.UserB, err)
	}

	query := `
		SELECT amount
		FROM imported_balances
		WHERE user_a_id = $1 AND user_b_id = $2 AND currency = $3
		FOR UPDATE
	`

	var amount decimal.Decimal
	if err := r.q.QueryRow(ctx, query, key.UserA, key.UserB, key.Currency).Scan(&amount); err != nil {
		return decimal.Zero, fmt.Errorf("failed to get imported %s balance for %d/%d: %w", key.Currency, key.UserA, key.UserB, err)
	}
	return amount, nil
}

// SetImportedBalance records the amount most recently imported for the pair
func (r *ImportRepository) SetImportedBalance(ctx context.Context, key models.PairKey, amount decimal.Decimal) error {
	query := `
		INSERT INTO imported_balances (user_a_id, user_b_id, currency, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a_id, user_b_id, currency)
		DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
	`

	if _, err := r.q.Exec(ctx, query, key.UserA, key.UserB, key.Currency, amount); err != nil {
		return fmt.Errorf("failed to set imported %s balance for %d/%d: %w", key.Currency, key.UserA, key.UserB, err)
	}
	return nil
}
