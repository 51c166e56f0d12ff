// Package dbtest opens throwaway in-memory databases for package tests.
package dbtest

import (
	"fmt"
	"testing"

	"github.com/gartstein/directory/internal/directory/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// DSN returns a private shared-cache in-memory sqlite DSN with foreign keys on.
func DSN() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
}

// New returns a migrated repository that is closed when the test ends.
func New(t testing.TB) *db.Repository {
	t.Helper()
	repo, err := db.NewRepository(&db.Config{
		Driver:       db.DriverSQLite,
		DSN:          DSN(),
		MaxOpenConns: 1,
		LogLevel:     logger.Silent,
	})
	require.NoError(t, err, "failed to open test database")
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
