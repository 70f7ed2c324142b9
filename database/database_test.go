package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subminder/config"
	"subminder/models"
)

func TestDialector(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql", "sqlite"} {
		d, err := Dialector(&config.Config{DBDriver: driver, DBName: "subminder"})
		require.NoError(t, err, driver)
		assert.Equal(t, driver, d.Name())
	}

	_, err := Dialector(&config.Config{DBDriver: "mongo"})
	assert.Error(t, err)
}

func TestConnectDb_SqliteMigrates(t *testing.T) {
	cfg := &config.Config{
		DBDriver: "sqlite",
		DBDsn:    filepath.Join(t.TempDir(), "test.db"),
	}

	db, err := ConnectDb(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	assert.True(t, db.Migrator().HasTable(&models.User{}))
	assert.True(t, db.Migrator().HasTable(&models.Subscription{}))
	assert.True(t, db.Migrator().HasColumn(&models.Subscription{}, "price_amount"))
	assert.True(t, db.Migrator().HasColumn(&models.Subscription{}, "last_reminder_sent"))
	assert.True(t, db.Config.TranslateError)
}
