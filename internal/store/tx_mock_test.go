package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/carrierd/carrierd/internal/model"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Store{db: sqlx.NewDb(db, "sqlmock"), dialect: dialects["sqlite"]}, mock
}

func TestInTxAuditFailureRollsBackMutation(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE carriers SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	c := &model.Carrier{ID: "c1", Name: "x", Callsign: "ABC-123", CurrentLocation: "Sol", Version: 3}
	err := s.InTx(ctx, func(tx *Tx) error {
		if err := tx.UpdateCarrier(ctx, c); err != nil {
			return err
		}
		return tx.InsertAuditEntry(ctx, &model.AuditEntry{
			ID: "a1", KeyID: "k1", CarrierID: "c1", Timestamp: time.Now(), Type: model.AuditJump, Source: model.SourceOther,
		})
	})
	if err == nil {
		t.Fatal("expected error from failed audit insert")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUpdateCarrierNoRowsIsConflict(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE carriers SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c := &model.Carrier{ID: "c1", Version: 7}
	err := s.InTx(ctx, func(tx *Tx) error { return tx.UpdateCarrier(ctx, c) })
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if c.Version != 7 {
		t.Errorf("version changed to %d on conflict", c.Version)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInTxCommitFailure(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := s.InTx(ctx, func(tx *Tx) error {
		return tx.InsertAuditEntry(ctx, &model.AuditEntry{ID: "a1", Timestamp: time.Now()})
	})
	if err == nil {
		t.Fatal("expected commit error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
