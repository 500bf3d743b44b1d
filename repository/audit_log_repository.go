package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"splitledger/database"
	"splitledger/models"
)

// AuditLogRepository implements the AuditLogRepository interface
type AuditLogRepository struct {
	q queryable
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{q: db.Pool}
}

// newAuditLogRepositoryWithTx creates a new audit log repository with a transaction
func newAuditLogRepositoryWithTx(tx queryable) *AuditLogRepository {
	return &AuditLogRepository{q: tx}
}

// Record appends an entry to the expense audit log
func (r *AuditLogRepository) Record(ctx context.Context, entry *models.ExpenseAuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal audit metadata: %w", err)
		}
	}

	query := `
		INSERT INTO expense_audit_log (expense_id, action, actor_id, metadata)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		entry.ExpenseID,
		entry.Action,
		entry.ActorID,
		metadataJSON,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record %s audit for expense %d: %w", entry.Action, entry.ExpenseID, err)
	}

	return nil
}

// GetByExpense returns the audit trail of an expense, oldest first
func (r *AuditLogRepository) GetByExpense(ctx context.Context, expenseID int64) ([]*models.ExpenseAuditEntry, error) {
	query := `
		SELECT id, expense_id, action, actor_id, metadata, created_at
		FROM expense_audit_log
		WHERE expense_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.q.Query(ctx, query, expenseID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log for expense %d: %w", expenseID, err)
	}
	defer rows.Close()

	entries := []*models.ExpenseAuditEntry{}
	for rows.Next() {
		var entry models.ExpenseAuditEntry
		var metadataJSON []byte

		err := rows.Scan(
			&entry.ID,
			&entry.ExpenseID,
			&entry.Action,
			&entry.ActorID,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit entries: %w", err)
	}

	return entries, nil
}
