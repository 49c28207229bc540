package state

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/SUMERGeg/lostfound/flow"
)

func newMockPostgres(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(sqlx.NewDb(db, "sqlmock")), mock
}

func stateColumns() []string {
	return []string{"user_id", "step", "payload", "updated_at"}
}

func TestPostgresGetRoundTrip(t *testing.T) {
	store, mock := newMockPostgres(t)

	p := flow.NewPayload(flow.FlowLost, time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	p.Listing.Category = "keys"
	data, err := flow.EncodePayload(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	step := flow.StepFor(flow.FlowLost, flow.StageAttributes)

	mock.ExpectQuery(`SELECT user_id, step, payload, updated_at FROM dialog_states`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(stateColumns()).
			AddRow("u1", string(step), data, time.Now()))

	rec, ok, err := store.Get(context.Background(), "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if rec.Step != step || rec.Payload.Listing.Category != "keys" {
		t.Fatalf("rec = %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresGetAbsent(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT user_id, step, payload, updated_at FROM dialog_states`).
		WithArgs("u1").
		WillReturnError(sql.ErrNoRows)

	_, ok, err := store.Get(context.Background(), "u1")
	if err != nil || ok {
		t.Fatalf("absent row: ok=%v err=%v", ok, err)
	}
}

func TestPostgresGetCorruptPayloadTreatedAsAbsent(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectQuery(`SELECT user_id, step, payload, updated_at FROM dialog_states`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(stateColumns()).
			AddRow("u1", "lost_category", []byte("{broken"), time.Now()))

	_, ok, err := store.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("corrupt payload must not error: %v", err)
	}
	if ok {
		t.Fatal("corrupt payload must surface as absent")
	}
}

func TestPostgresPutUpserts(t *testing.T) {
	store, mock := newMockPostgres(t)
	step := flow.StepFor(flow.FlowFound, flow.StageConfirm)

	mock.ExpectExec(`INSERT INTO dialog_states`).
		WithArgs("u1", string(step), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	p := flow.NewPayload(flow.FlowFound, time.Now())
	if err := store.Put(context.Background(), "u1", step, p); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestPostgresSweepCountsDeletedRows(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM dialog_states WHERE updated_at`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := store.Sweep(context.Background(), 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if removed != 3 {
		t.Fatalf("removed = %d", removed)
	}
}

func TestPostgresSweepRowsAffectedError(t *testing.T) {
	store, mock := newMockPostgres(t)

	mock.ExpectExec(`DELETE FROM dialog_states WHERE updated_at`).
		WillReturnResult(sqlmock.NewErrorResult(errors.New("driver gone")))

	if _, err := store.Sweep(context.Background(), 30*time.Minute); err == nil {
		t.Fatal("rows-affected failure must be reported")
	}
}
