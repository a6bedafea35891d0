package signal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/algotrade/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

const selectColumns = `id, symbol, action, confidence, entry_price, stop_loss, target,
	risk_reward, reasoning, strategy, timeframe, ts`

// SQLiteStore persists signals in a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if needed) the database at dsn.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; a single connection also keeps
	// ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save inserts a signal.
func (s *SQLiteStore) Save(ctx context.Context, sig core.Signal) (core.Signal, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
		(`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID, sig.Symbol, string(sig.Action), sig.Confidence, sig.EntryPrice,
		sig.StopLoss, sig.Target, sig.RiskReward, sig.Reasoning, sig.Strategy,
		sig.Timeframe, sig.Timestamp.UnixNano(),
	)
	if err != nil {
		return core.Signal{}, err
	}
	return sig, nil
}

// GetByID retrieves a signal by ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*core.Signal, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM signals WHERE id = ?`, id)

	sig, err := scanSignal(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrNotFound
		}
		return nil, err
	}
	return &sig, nil
}

// List returns matching signals, most recently saved first.
func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]core.Signal, error) {
	where, args := filter.where()

	q := `SELECT ` + selectColumns + ` FROM signals` + where + ` ORDER BY rowid DESC`
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		q += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.Signal{}
	for rows.Next() {
		sig, err := scanSignal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of matching signals.
func (s *SQLiteStore) Count(ctx context.Context, filter ListFilter) (int, error) {
	where, args := filter.where()

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM signals`+where, args...).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (f ListFilter) where() (string, []any) {
	var conds []string
	var args []any

	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if f.Strategy != "" {
		conds = append(conds, "strategy = ?")
		args = append(args, f.Strategy)
	}
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.MinConfidence > 0 {
		conds = append(conds, "confidence >= ?")
		args = append(args, f.MinConfidence)
	}
	if !f.From.IsZero() {
		conds = append(conds, "ts >= ?")
		args = append(args, f.From.UnixNano())
	}
	if !f.To.IsZero() {
		conds = append(conds, "ts <= ?")
		args = append(args, f.To.UnixNano())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSignal(row scanner) (core.Signal, error) {
	var sig core.Signal
	var action string
	var ts int64

	err := row.Scan(
		&sig.ID,
		&sig.Symbol,
		&action,
		&sig.Confidence,
		&sig.EntryPrice,
		&sig.StopLoss,
		&sig.Target,
		&sig.RiskReward,
		&sig.Reasoning,
		&sig.Strategy,
		&sig.Timeframe,
		&ts,
	)
	if err != nil {
		return core.Signal{}, err
	}

	sig.Action = core.Action(action)
	sig.Timestamp = time.Unix(0, ts).UTC()
	return sig, nil
}
