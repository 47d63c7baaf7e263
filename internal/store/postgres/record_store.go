package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// RecordStore implements domain.RecordStore using PostgreSQL.
type RecordStore struct {
	client *Client
}

// NewRecordStore creates a new RecordStore backed by the given client.
func NewRecordStore(client *Client) *RecordStore {
	return &RecordStore{client: client}
}

const recordColumns = `
	id, owner, fund_code, fund_name, arbitrage_type, status,
	initial_operation, final_operation, profit, profit_rate,
	created_at, updated_at`

// dailyTotalQuery must match domain.ArbitrageRecord.CountsToward.
const dailyTotalQuery = `
	SELECT COALESCE(SUM(initial_amount), 0)
	FROM arbitrage_records
	WHERE owner = $1 AND fund_code = $2 AND initial_date = $3
	  AND arbitrage_type = 'premium' AND status IN ('in_progress', 'completed')`

// CreateWithinCap takes a transaction-scoped advisory lock on
// owner+fund+date, so concurrent creators for the same key queue behind
// each other while other keys proceed.
func (s *RecordStore) CreateWithinCap(ctx context.Context, rec domain.ArbitrageRecord, check func(float64) error) error {
	initialJSON, finalJSON, err := encodeOperations(rec)
	if err != nil {
		return fmt.Errorf("postgres: create record %s: %w", rec.ID, err)
	}

	return s.client.InTx(ctx, func(tx pgx.Tx) error {
		date := rec.InitialOperation.Date
		if _, err := tx.Exec(ctx,
			`SELECT pg_advisory_xact_lock(hashtext($1::text || '|' || $2::text || '|' || $3::text))`,
			rec.Owner, rec.FundCode, date,
		); err != nil {
			return fmt.Errorf("postgres: lock daily total: %w", err)
		}

		if check != nil {
			var total float64
			if err := tx.QueryRow(ctx, dailyTotalQuery, rec.Owner, rec.FundCode, date).Scan(&total); err != nil {
				return fmt.Errorf("postgres: daily total: %w", err)
			}
			if err := check(total); err != nil {
				return err
			}
		}

		const query = `
			INSERT INTO arbitrage_records (
				id, owner, fund_code, fund_name, arbitrage_type, status,
				initial_date, initial_amount, initial_operation, final_operation,
				profit, profit_rate, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
			ON CONFLICT (id) DO NOTHING`

		tag, err := tx.Exec(ctx, query,
			rec.ID, rec.Owner, rec.FundCode, rec.FundName,
			string(rec.Type), string(rec.Status),
			date, rec.InitialOperation.Amount, initialJSON, finalJSON,
			rec.Profit, rec.ProfitRate, rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: create record %s: %w", rec.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("postgres: create record %s: %w", rec.ID, domain.ErrAlreadyExists)
		}
		return nil
	})
}

// Get retrieves a single record by owner and ID.
func (s *RecordStore) Get(ctx context.Context, owner, id string) (domain.ArbitrageRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM arbitrage_records WHERE id = $1 AND owner = $2`
	r, err := scanRecord(s.client.Pool().QueryRow(ctx, query, id, owner))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ArbitrageRecord{}, domain.ErrNotFound
		}
		return domain.ArbitrageRecord{}, fmt.Errorf("postgres: get record %s: %w", id, err)
	}
	return r, nil
}

// Update locks the row with SELECT ... FOR UPDATE, applies fn and writes the
// mutable columns back in the same transaction.
func (s *RecordStore) Update(ctx context.Context, owner, id string, fn func(*domain.ArbitrageRecord) error) (domain.ArbitrageRecord, error) {
	var out domain.ArbitrageRecord
	err := s.client.InTx(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + recordColumns + ` FROM arbitrage_records WHERE id = $1 AND owner = $2 FOR UPDATE`
		r, err := scanRecord(tx.QueryRow(ctx, query, id, owner))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrNotFound
			}
			return fmt.Errorf("postgres: load record %s: %w", id, err)
		}
		if err := fn(&r); err != nil {
			return err
		}

		initialJSON, finalJSON, err := encodeOperations(r)
		if err != nil {
			return fmt.Errorf("postgres: update record %s: %w", id, err)
		}
		const update = `
			UPDATE arbitrage_records SET
				fund_name = $1, status = $2, initial_operation = $3, final_operation = $4,
				profit = $5, profit_rate = $6, updated_at = $7
			WHERE id = $8 AND owner = $9`
		if _, err := tx.Exec(ctx, update,
			r.FundName, string(r.Status), initialJSON, finalJSON,
			r.Profit, r.ProfitRate, r.UpdatedAt, id, owner,
		); err != nil {
			return fmt.Errorf("postgres: update record %s: %w", id, err)
		}
		out = r
		return nil
	})
	if err != nil {
		return domain.ArbitrageRecord{}, err
	}
	return out, nil
}

// Delete removes the owner's record.
func (s *RecordStore) Delete(ctx context.Context, owner, id string) error {
	tag, err := s.client.Pool().Exec(ctx, `DELETE FROM arbitrage_records WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("postgres: delete record %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the owner's records, newest first.
func (s *RecordStore) List(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	if filter.Owner == "" {
		return nil, domain.NewValidationError("owner", "is required")
	}
	return s.ListAll(ctx, filter)
}

// ListAll returns records across owners, newest first.
func (s *RecordStore) ListAll(ctx context.Context, filter domain.RecordFilter) ([]domain.ArbitrageRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM arbitrage_records WHERE 1=1`
	args := []any{}
	argIdx := 1

	if filter.Owner != "" {
		query += fmt.Sprintf(" AND owner = $%d", argIdx)
		args = append(args, filter.Owner)
		argIdx++
	}
	if filter.FundCode != "" {
		query += fmt.Sprintf(" AND fund_code = $%d", argIdx)
		args = append(args, filter.FundCode)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *filter.Since)
		argIdx++
	}
	if filter.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *filter.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filter.Limit)
		argIdx++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list records: %w", err)
	}
	defer rows.Close()

	out := []domain.ArbitrageRecord{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list records rows: %w", err)
	}
	return out, nil
}

// DailySubscriptionTotal sums qualifying premium subscriptions.
func (s *RecordStore) DailySubscriptionTotal(ctx context.Context, owner, fundCode, date string) (float64, error) {
	var total float64
	if err := s.client.Pool().QueryRow(ctx, dailyTotalQuery, owner, fundCode, date).Scan(&total); err != nil {
		return 0, fmt.Errorf("postgres: daily total: %w", err)
	}
	return total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (domain.ArbitrageRecord, error) {
	var (
		r                      domain.ArbitrageRecord
		arbType, status        string
		initialJSON, finalJSON []byte
	)
	if err := row.Scan(
		&r.ID, &r.Owner, &r.FundCode, &r.FundName, &arbType, &status,
		&initialJSON, &finalJSON, &r.Profit, &r.ProfitRate,
		&r.CreatedAt, &r.UpdatedAt,
	); err != nil {
		return domain.ArbitrageRecord{}, err
	}
	r.Type = domain.ArbType(arbType)
	r.Status = domain.RecordStatus(status)
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()

	if err := json.Unmarshal(initialJSON, &r.InitialOperation); err != nil {
		return domain.ArbitrageRecord{}, fmt.Errorf("decode initial_operation: %w", err)
	}
	if len(finalJSON) > 0 {
		var op domain.Operation
		if err := json.Unmarshal(finalJSON, &op); err != nil {
			return domain.ArbitrageRecord{}, fmt.Errorf("decode final_operation: %w", err)
		}
		r.FinalOperation = &op
	}
	return r, nil
}

func encodeOperations(r domain.ArbitrageRecord) (initial, final []byte, err error) {
	initial, err = json.Marshal(r.InitialOperation)
	if err != nil {
		return nil, nil, err
	}
	if r.FinalOperation != nil {
		final, err = json.Marshal(r.FinalOperation)
		if err != nil {
			return nil, nil, err
		}
	}
	return initial, final, nil
}

var _ domain.RecordStore = (*RecordStore)(nil)
