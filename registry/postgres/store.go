package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/averix07/goRefresh/registry"
)

// Store implements the refresh-token registry over database/sql
// (satisfied by a pgx stdlib *sql.DB).
type Store struct {
	db     *sql.DB
	leeway time.Duration
	grace  time.Duration
}

// NewStore constructs a registry bound to the given database handle.
// expiryLeeway bounds the tolerated clock skew on expiry checks;
// retentionGrace controls how long [Store.DeleteExpired] keeps records
// past their expiry.
func NewStore(db *sql.DB, expiryLeeway, retentionGrace time.Duration) *Store {
	return &Store{
		db:     db,
		leeway: expiryLeeway,
		grace:  retentionGrace,
	}
}

// Create inserts a fresh ACTIVE record.
func (s *Store) Create(ctx context.Context, rec *registry.Record) error {
	if rec.Status != registry.StatusActive {
		return errors.New("new records must be created active")
	}

	query := `
		INSERT INTO refresh_tokens
			(token_id, secret_hash, family_id, user_id, status, issued_at, expires_at, previous_token_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.TokenID,
		rec.SecretHash[:],
		rec.FamilyID,
		rec.UserID,
		rec.Status.String(),
		time.Unix(rec.IssuedAt, 0).UTC(),
		time.Unix(rec.ExpiresAt, 0).UTC(),
		nullableID(rec.PreviousTokenID),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return nil
}

// Get returns the record matching the presented secret hash, or
// [registry.ErrRecordNotFound].
func (s *Store) Get(ctx context.Context, secretHash [32]byte) (*registry.Record, error) {
	query := `
		SELECT token_id, family_id, user_id, status, issued_at, expires_at, previous_token_id
		FROM refresh_tokens
		WHERE secret_hash = $1
	`
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, secretHash[:]))
	if err != nil {
		return nil, err
	}
	rec.SecretHash = secretHash
	return rec, nil
}

// Rotate performs the atomic ACTIVE -> ROTATED compare-and-set and inserts
// the successor in one transaction. When the conditional UPDATE hits zero
// rows the current row is re-read FOR UPDATE to classify the outcome; on a
// reuse signal the whole family is revoked inside the same transaction.
func (s *Store) Rotate(ctx context.Context, providedHash [32]byte, successor *registry.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC()

	cas := `
		UPDATE refresh_tokens
		SET status = 'rotated'
		WHERE secret_hash = $1 AND status = 'active' AND expires_at > $2
	`
	res, err := tx.ExecContext(ctx, cas, providedHash[:], now.Add(-s.leeway))
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}

	if rows == 0 {
		return s.classifyLoss(ctx, tx, providedHash, now)
	}

	insert := `
		INSERT INTO refresh_tokens
			(token_id, secret_hash, family_id, user_id, status, issued_at, expires_at, previous_token_id)
		VALUES ($1, $2, $3, $4, 'active', $5, $6, $7)
	`
	_, err = tx.ExecContext(ctx, insert,
		successor.TokenID,
		successor.SecretHash[:],
		successor.FamilyID,
		successor.UserID,
		time.Unix(successor.IssuedAt, 0).UTC(),
		time.Unix(successor.ExpiresAt, 0).UTC(),
		nullableID(successor.PreviousTokenID),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return nil
}

// classifyLoss re-reads the row after a zero-row compare-and-set. The
// transition is never blindly retried; the stored status decides the error.
func (s *Store) classifyLoss(ctx context.Context, tx *sql.Tx, providedHash [32]byte, now time.Time) error {
	query := `
		SELECT status, family_id, expires_at
		FROM refresh_tokens
		WHERE secret_hash = $1
		FOR UPDATE
	`
	var (
		rawStatus string
		familyID  string
		expiresAt time.Time
	)
	err := tx.QueryRowContext(ctx, query, providedHash[:]).Scan(&rawStatus, &familyID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}

	status, err := registry.ParseStatus(rawStatus)
	if err != nil {
		return err
	}

	switch status {
	case registry.StatusRevoked:
		return registry.ErrRecordRevoked
	case registry.StatusRotated:
		revoke := `
			UPDATE refresh_tokens
			SET status = 'revoked'
			WHERE family_id = $1 AND status <> 'revoked'
		`
		if _, err := tx.ExecContext(ctx, revoke, familyID); err != nil {
			return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
		}
		return registry.ErrRecordRotated
	default:
		// Still active: the compare-and-set can only have missed on expiry.
		if !expiresAt.After(now.Add(-s.leeway)) {
			return registry.ErrRecordExpired
		}
		return fmt.Errorf("%w: unclassifiable rotate outcome", registry.ErrUnavailable)
	}
}

// RevokeFamily moves every non-revoked record of the family to REVOKED.
// Idempotent; returns the number of records transitioned.
func (s *Store) RevokeFamily(ctx context.Context, familyID string) (int, error) {
	query := `
		UPDATE refresh_tokens
		SET status = 'revoked'
		WHERE family_id = $1 AND status <> 'revoked'
	`
	res, err := s.db.ExecContext(ctx, query, familyID)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return int(rows), nil
}

// DeleteExpired removes records whose expiry plus the retention grace
// window has passed. Revoked records are safe to drop regardless of
// storage pressure; expired ones stop being reuse evidence after grace.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM refresh_tokens
		WHERE expires_at < $1
	`
	res, err := s.db.ExecContext(ctx, query, time.Now().UTC().Add(-(s.leeway + s.grace)))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}
	return rows, nil
}

func scanRecord(row *sql.Row) (*registry.Record, error) {
	var (
		rec       registry.Record
		rawStatus string
		issuedAt  time.Time
		expiresAt time.Time
		prev      sql.NullString
	)
	err := row.Scan(&rec.TokenID, &rec.FamilyID, &rec.UserID, &rawStatus, &issuedAt, &expiresAt, &prev)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, registry.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", registry.ErrUnavailable, err)
	}

	rec.Status, err = registry.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	rec.IssuedAt = issuedAt.Unix()
	rec.ExpiresAt = expiresAt.Unix()
	if prev.Valid {
		rec.PreviousTokenID = prev.String
	}

	return &rec, nil
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
