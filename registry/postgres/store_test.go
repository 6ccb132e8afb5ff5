package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/averix07/goRefresh/registry"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New failed: %v", err)
	}

	store := NewStore(db, 0, time.Hour)
	return store, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		_ = db.Close()
	}
}

func testHash(b byte) [32]byte {
	var out [32]byte
	for i := 0; i < len(out); i++ {
		out[i] = b
	}
	return out
}

func testHashSlice(b byte) []byte {
	h := testHash(b)
	return h[:]
}

func testRecord(tokenID string, hash [32]byte) *registry.Record {
	now := time.Now()
	return &registry.Record{
		TokenID:    tokenID,
		UserID:     "u1",
		FamilyID:   "f1",
		SecretHash: hash,
		Status:     registry.StatusActive,
		IssuedAt:   now.Unix(),
		ExpiresAt:  now.Add(time.Hour).Unix(),
	}
}

func TestCreateInsertsRecord(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rec := testRecord("t1", testHash(1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(
			rec.TokenID,
			rec.SecretHash[:],
			rec.FamilyID,
			rec.UserID,
			"active",
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			nil,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Create(context.Background(), rec); err != nil {
		t.Fatalf("create failed: %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token_id, family_id, user_id, status, issued_at, expires_at, previous_token_id")).
		WithArgs(testHashSlice(1)).
		WillReturnRows(sqlmock.NewRows([]string{"token_id", "family_id", "user_id", "status", "issued_at", "expires_at", "previous_token_id"}))

	_, err := store.Get(context.Background(), testHash(1))
	if !errors.Is(err, registry.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestGetScansRecord(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	now := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{"token_id", "family_id", "user_id", "status", "issued_at", "expires_at", "previous_token_id"}).
		AddRow("t2", "f1", "u1", "rotated", now, now.Add(time.Hour), "t1")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT token_id, family_id, user_id, status, issued_at, expires_at, previous_token_id")).
		WithArgs(testHashSlice(2)).
		WillReturnRows(rows)

	rec, err := store.Get(context.Background(), testHash(2))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if rec.TokenID != "t2" || rec.Status != registry.StatusRotated || rec.PreviousTokenID != "t1" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.ExpiresAt != now.Add(time.Hour).Unix() {
		t.Fatalf("unexpected expiry: %d", rec.ExpiresAt)
	}
}

func TestRotateWinnerCommitsSuccessor(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	successor := testRecord("t2", testHash(2))
	successor.PreviousTokenID = "t1"

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(testHashSlice(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WithArgs(
			successor.TokenID,
			successor.SecretHash[:],
			successor.FamilyID,
			successor.UserID,
			sqlmock.AnyArg(),
			sqlmock.AnyArg(),
			"t1",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.Rotate(context.Background(), testHash(1), successor); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}
}

func TestRotateZeroRowsNotFound(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(testHashSlice(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, family_id, expires_at")).
		WithArgs(testHashSlice(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "family_id", "expires_at"}))
	mock.ExpectRollback()

	err := store.Rotate(context.Background(), testHash(1), testRecord("t2", testHash(2)))
	if !errors.Is(err, registry.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRotateZeroRowsReuseRevokesFamily(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(testHashSlice(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, family_id, expires_at")).
		WithArgs(testHashSlice(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "family_id", "expires_at"}).
			AddRow("rotated", "f1", time.Now().UTC().Add(time.Hour)))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'revoked'")).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	err := store.Rotate(context.Background(), testHash(1), testRecord("t2", testHash(2)))
	if !errors.Is(err, registry.ErrRecordRotated) {
		t.Fatalf("expected ErrRecordRotated, got %v", err)
	}
}

func TestRotateZeroRowsRevoked(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(testHashSlice(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, family_id, expires_at")).
		WithArgs(testHashSlice(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "family_id", "expires_at"}).
			AddRow("revoked", "f1", time.Now().UTC().Add(time.Hour)))
	mock.ExpectRollback()

	err := store.Rotate(context.Background(), testHash(1), testRecord("t2", testHash(2)))
	if !errors.Is(err, registry.ErrRecordRevoked) {
		t.Fatalf("expected ErrRecordRevoked, got %v", err)
	}
}

func TestRotateZeroRowsExpired(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens")).
		WithArgs(testHashSlice(1), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, family_id, expires_at")).
		WithArgs(testHashSlice(1)).
		WillReturnRows(sqlmock.NewRows([]string{"status", "family_id", "expires_at"}).
			AddRow("active", "f1", time.Now().UTC().Add(-time.Minute)))
	mock.ExpectRollback()

	err := store.Rotate(context.Background(), testHash(1), testRecord("t2", testHash(2)))
	if !errors.Is(err, registry.ErrRecordExpired) {
		t.Fatalf("expected ErrRecordExpired, got %v", err)
	}
}

func TestRevokeFamilyCountsTransitions(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("SET status = 'revoked'")).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.RevokeFamily(context.Background(), "f1")
	if err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 transitions, got %d", n)
	}
}

func TestDeleteExpiredSweep(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM refresh_tokens")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := store.DeleteExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 deletions, got %d", n)
	}
}

func TestCreateBackendErrorWrapsUnavailable(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO refresh_tokens")).
		WillReturnError(errors.New("connection refused"))

	err := store.Create(context.Background(), testRecord("t1", testHash(1)))
	if !errors.Is(err, registry.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
