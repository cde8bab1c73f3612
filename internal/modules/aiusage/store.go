package aiusage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoUsage is returned by Remaining when the user has never been charged.
var ErrNoUsage = errors.New("no usage recorded")

// Store keeps one ai_usage row per signed-in user.
type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ Ledger = (*Store)(nil)

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, now: time.Now}
}

// monthOf is the quota period key, e.g. "2024-11".
func monthOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UseToken charges one flow call in a single statement. A row from an earlier
// month is refilled to DefaultTokens before the charge. It returns
// ErrInsufficientTokens when nothing was charged: the balance is spent or the
// row does not exist yet.
func (s *Store) UseToken(ctx context.Context, uid string) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE ai_usage
		SET tokens_remaining = CASE
				WHEN last_reset_month < $2 THEN $3 - 1
				ELSE tokens_remaining - 1
			END,
			last_reset_month = $2
		WHERE uid = $1
		  AND (last_reset_month < $2 OR tokens_remaining > 0)
	`, uid, monthOf(s.now()), DefaultTokens)
	if err != nil {
		return fmt.Errorf("charge flow call for %s: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientTokens
	}
	return nil
}

// EnsureUser creates the row of uid with a full allowance. Existing rows are kept.
func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	if _, err := s.db.Exec(ctx, `
		INSERT INTO ai_usage (uid, tokens_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, DefaultTokens, monthOf(s.now())); err != nil {
		return fmt.Errorf("create usage row for %s: %w", uid, err)
	}
	return nil
}

// Remaining returns the stored balance of uid and the month it belongs to.
func (s *Store) Remaining(ctx context.Context, uid string) (int, string, error) {
	var (
		remaining int
		month     string
	)
	err := s.db.QueryRow(ctx,
		`SELECT tokens_remaining, last_reset_month FROM ai_usage WHERE uid = $1`, uid,
	).Scan(&remaining, &month)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, "", ErrNoUsage
	}
	if err != nil {
		return 0, "", fmt.Errorf("read usage of %s: %w", uid, err)
	}
	return remaining, month, nil
}
