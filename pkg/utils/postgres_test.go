package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestHealthCheck_PingSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectPing()
	if err := HealthCheck(context.Background(), db, time.Second); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestHealthCheck_WrapsPingError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	pingErr := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(pingErr)
	err = HealthCheck(context.Background(), db, time.Second)
	if !errors.Is(err, pingErr) {
		t.Fatalf("expected wrapped ping error, got %v", err)
	}
}

func TestPostgresPoolConfig_Defaults(t *testing.T) {
	c := PostgresPoolConfig{}.withDefaults()
	if c.MaxOpenConns != 25 || c.PingTimeout != 5*time.Second || c.ConnectAttempts != 5 {
		t.Fatalf("unexpected defaults: %+v", c)
	}
}

func TestOpenPostgres_RetriesUntilServerAnswers(t *testing.T) {
	dsn := "sqlmock_open_retry"
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	mock.ExpectPing().WillReturnError(errors.New("the database system is starting up"))
	mock.ExpectPing()

	db, err := openPostgres(context.Background(), "sqlmock", dsn, PostgresPoolConfig{
		ConnectAttempts: 3,
		RetryDelay:      time.Millisecond,
	})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	defer db.Close()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenPostgres_GivesUpAfterAttempts(t *testing.T) {
	dsn := "sqlmock_open_give_up"
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer mockDB.Close()

	refused := errors.New("connection refused")
	mock.ExpectPing().WillReturnError(refused)
	mock.ExpectPing().WillReturnError(refused)

	_, err = openPostgres(context.Background(), "sqlmock", dsn, PostgresPoolConfig{
		ConnectAttempts: 2,
		RetryDelay:      time.Millisecond,
	})
	if !errors.Is(err, refused) {
		t.Fatalf("expected wrapped ping error, got %v", err)
	}
}
