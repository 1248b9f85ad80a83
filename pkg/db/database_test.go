package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"magento-importer/pkg/models"
)

func TestDSN(t *testing.T) {
	cfg := NewDefaultDBConfig()
	cfg.Username, cfg.Password, cfg.Database = "root", "secret", "medusa"
	assert.Equal(t, "root:secret@tcp(127.0.0.1:3306)/medusa?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())

	cfg.Driver, cfg.Port = "Postgres", 5432
	assert.Contains(t, cfg.DSN(), "host=127.0.0.1 user=root password=secret dbname=medusa port=5432")
	assert.Contains(t, cfg.DSN(), "search_path=public")

	cfg.Driver, cfg.Database = "sqlite", "/tmp/catalog.db"
	assert.Equal(t, "/tmp/catalog.db?_busy_timeout=5000", cfg.DSN())

	cfg.Database = "file:catalog.db?cache=shared"
	assert.Equal(t, "file:catalog.db?cache=shared&_busy_timeout=5000", cfg.DSN())
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultDBConfig()
	assert.Len(t, cfg.Validate(), 2)

	cfg.Driver = "oracle"
	cfg.Database = "x"
	assert.Len(t, cfg.Validate(), 1)

	cfg.Driver = DriverSQLite
	assert.Empty(t, cfg.Validate())
}

func TestOpenSQLiteMigrates(t *testing.T) {
	cfg := &Config{Driver: DriverSQLite, Database: filepath.Join(t.TempDir(), "c.db"), AutoMigrate: true}
	gdb, err := Open(cfg)
	require.NoError(t, err)
	for _, table := range models.CatalogTables() {
		assert.True(t, gdb.Migrator().HasTable(table))
	}
}

func TestOpenSQLiteUsesOneConnection(t *testing.T) {
	cfg := &Config{Driver: DriverSQLite, Database: filepath.Join(t.TempDir(), "c.db"), MaxOpenConns: 20}
	gdb, err := Open(cfg)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}
