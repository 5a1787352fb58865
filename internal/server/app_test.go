package server

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/medlogbook/internal/server/config"
	"github.com/dmitrijs2005/medlogbook/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRM struct {
	repomanager.RepositoryManager
	migrated int
	err      error
}

func (f *fakeRM) RunMigrations(ctx context.Context, db *sql.DB) error {
	f.migrated++
	return f.err
}

func stubOpen(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		assert.Equal(t, "pgx", driver)
		return db, nil
	}
	t.Cleanup(func() { sqlOpen = orig })
	return mock
}

func testConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.EndpointAddrGRPC = "127.0.0.1:0"
	return c
}

func TestNewApp_RunsMigrations(t *testing.T) {
	stubOpen(t)
	rm := &fakeRM{}
	var logs bytes.Buffer

	app, err := newApp(context.Background(), testConfig(), rm, &logs)
	require.NoError(t, err)
	assert.Equal(t, 1, rm.migrated)
	assert.NotNil(t, app.services.Workflow)
	assert.NotNil(t, app.services.Actors)
	assert.Contains(t, logs.String(), "Migrations applied")
}

func TestNewApp_SkipsMigrations(t *testing.T) {
	stubOpen(t)
	rm := &fakeRM{}
	c := testConfig()
	c.RunMigrations = false

	_, err := newApp(context.Background(), c, rm, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Zero(t, rm.migrated)
}

func TestNewApp_MigrationError(t *testing.T) {
	mock := stubOpen(t)
	mock.ExpectClose()

	_, err := newApp(context.Background(), testConfig(), &fakeRM{err: errors.New("bad sql")}, &bytes.Buffer{})
	require.ErrorContains(t, err, "migrations error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewApp_OpenError(t *testing.T) {
	orig := sqlOpen
	sqlOpen = func(driver, dsn string) (*sql.DB, error) { return nil, errors.New("no driver") }
	t.Cleanup(func() { sqlOpen = orig })

	_, err := newApp(context.Background(), testConfig(), &fakeRM{}, &bytes.Buffer{})
	require.ErrorContains(t, err, "db init error")
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	mock := stubOpen(t)
	mock.ExpectClose()

	app, err := newApp(context.Background(), testConfig(), &fakeRM{}, &bytes.Buffer{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop after cancel")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}
