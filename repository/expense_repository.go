package repository

import (
	"context"
	"errors"
	"fmt"

	"splitledger/database"
	"splitledger/models"

	"github.com/jackc/pgx/v5"
)

const expenseColumns = `e.id, e.group_id, e.paid_by, e.added_by, e.name, e.category, e.split_type,
	e.amount, e.currency, e.expense_date, e.status, e.created_at, e.updated_at`

// ExpenseRepository implements the ExpenseRepository interface
type ExpenseRepository struct {
	q queryable
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *database.DB) *ExpenseRepository {
	return &ExpenseRepository{q: db.Pool}
}

// newExpenseRepositoryWithTx creates a new expense repository with a transaction
func newExpenseRepositoryWithTx(tx queryable) *ExpenseRepository {
	return &ExpenseRepository{q: tx}
}

func scanExpense(row pgx.Row) (*models.Expense, error) {
	var e models.Expense
	err := row.Scan(
		&e.ID,
		&e.GroupID,
		&e.PaidBy,
		&e.AddedBy,
		&e.Name,
		&e.Category,
		&e.SplitType,
		&e.Amount,
		&e.Currency,
		&e.ExpenseDate,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts the expense and its participants
func (r *ExpenseRepository) Create(ctx context.Context, expense *models.Expense) error {
	if expense.Status == "" {
		expense.Status = models.ExpenseStatusActive
	}

	query := `
		INSERT INTO expenses (group_id, paid_by, added_by, name, category, split_type, amount, currency, expense_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		expense.GroupID,
		expense.PaidBy,
		expense.AddedBy,
		expense.Name,
		expense.Category,
		expense.SplitType,
		expense.Amount,
		expense.Currency,
		expense.ExpenseDate,
		expense.Status,
	).Scan(&expense.ID, &expense.CreatedAt, &expense.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}

	return r.insertParticipants(ctx, expense)
}

func (r *ExpenseRepository) insertParticipants(ctx context.Context, expense *models.Expense) error {
	query := `
		INSERT INTO expense_participants (expense_id, user_id, amount)
		VALUES ($1, $2, $3)
	`

	for _, p := range expense.Participants {
		p.ExpenseID = expense.ID
		if _, err := r.q.Exec(ctx, query, expense.ID, p.UserID, p.Amount); err != nil {
			return fmt.Errorf("failed to add participant %d to expense %d: %w", p.UserID, expense.ID, err)
		}
	}
	return nil
}

func (r *ExpenseRepository) loadParticipants(ctx context.Context, expenses []*models.Expense) error {
	if len(expenses) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(expenses))
	byID := make(map[int64]*models.Expense, len(expenses))
	for _, e := range expenses {
		e.Participants = []*models.ExpenseParticipant{}
		ids = append(ids, e.ID)
		byID[e.ID] = e
	}

	query := `
		SELECT expense_id, user_id, amount
		FROM expense_participants
		WHERE expense_id = ANY($1)
		ORDER BY expense_id, user_id
	`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to get expense participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.ExpenseParticipant
		if err := rows.Scan(&p.ExpenseID, &p.UserID, &p.Amount); err != nil {
			return fmt.Errorf("failed to scan expense participant: %w", err)
		}
		if e, ok := byID[p.ExpenseID]; ok {
			e.Participants = append(e.Participants, &p)
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense participants: %w", err)
	}
	return nil
}

// GetByID returns the expense with its participants
func (r *ExpenseRepository) GetByID(ctx context.Context, id int64, forUpdate bool) (*models.Expense, error) {
	query := `SELECT ` + expenseColumns + ` FROM expenses e WHERE e.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	expense, err := scanExpense(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense %d: %w", id, err)
	}

	if err := r.loadParticipants(ctx, []*models.Expense{expense}); err != nil {
		return nil, err
	}
	return expense, nil
}

// Update rewrites the expense and replaces its participants
func (r *ExpenseRepository) Update(ctx context.Context, expense *models.Expense) error {
	query := `
		UPDATE expenses
		SET paid_by = $1, name = $2, category = $3, split_type = $4, amount = $5,
		    currency = $6, expense_date = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, query,
		expense.PaidBy,
		expense.Name,
		expense.Category,
		expense.SplitType,
		expense.Amount,
		expense.Currency,
		expense.ExpenseDate,
		expense.ID,
	).Scan(&expense.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("expense %d not found", expense.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update expense %d: %w", expense.ID, err)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM expense_participants WHERE expense_id = $1`, expense.ID); err != nil {
		return fmt.Errorf("failed to clear participants of expense %d: %w", expense.ID, err)
	}
	return r.insertParticipants(ctx, expense)
}

// MarkDeleted flips the expense status to deleted
func (r *ExpenseRepository) MarkDeleted(ctx context.Context, id int64) error {
	query := `
		UPDATE expenses
		SET status = $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.q.Exec(ctx, query, models.ExpenseStatusDeleted, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %d: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("expense %d not found", id)
	}
	return nil
}

func (r *ExpenseRepository) list(ctx context.Context, query string, limit int, args ...any) ([]*models.Expense, error) {
	query += ` ORDER BY e.expense_date DESC, e.id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := []*models.Expense{}
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, expense)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	// rows must be closed before the participant query runs on the same connection
	rows.Close()

	if err := r.loadParticipants(ctx, expenses); err != nil {
		return nil, err
	}
	return expenses, nil
}

// ListWithFriend returns active expenses both users take part in
func (r *ExpenseRepository) ListWithFriend(ctx context.Context, userID, friendID int64, limit int) ([]*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		WHERE e.status = 'active'
		  AND EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = e.id AND p.user_id = $1)
		  AND EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = e.id AND p.user_id = $2)
	`

	expenses, err := r.list(ctx, query, limit, userID, friendID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses between %d and %d: %w", userID, friendID, err)
	}
	return expenses, nil
}

// ListByGroup returns active expenses of a group
func (r *ExpenseRepository) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		WHERE e.status = 'active' AND e.group_id = $1
	`

	expenses, err := r.list(ctx, query, limit, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for group %d: %w", groupID, err)
	}
	return expenses, nil
}

// ListByUser returns active expenses the user takes part in
func (r *ExpenseRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.Expense, error) {
	query := `
		SELECT ` + expenseColumns + `
		FROM expenses e
		WHERE e.status = 'active'
		  AND EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = e.id AND p.user_id = $1)
	`

	expenses, err := r.list(ctx, query, limit, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses for user %d: %w", userID, err)
	}
	return expenses, nil
}
