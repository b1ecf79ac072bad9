package database

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testItem struct {
	ID   int64  `gorm:"primaryKey"`
	Code string `gorm:"size:32;uniqueIndex"`
}

func TestOpen_SQLite(t *testing.T) {
	db, err := Open(Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: logger.Silent,
		Logger:   zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	defer Close(db)

	require.NoError(t, Migrate(db, &testItem{}))
	require.NoError(t, db.Create(&testItem{Code: "A"}).Error)

	// TranslateError 打开后唯一键冲突可以用 errors.Is 判断
	err = db.Create(&testItem{Code: "A"}).Error
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey), "got %v", err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(Options{Driver: "mysql", DSN: "x"})
	assert.Error(t, err)
}

func TestMigrate_NoModels(t *testing.T) {
	assert.NoError(t, Migrate(nil))
}
