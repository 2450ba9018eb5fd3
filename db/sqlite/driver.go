package sqlite

import (
	"fmt"
	"sync/atomic"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open creates a GORM *DB backed by a SQLite file.
func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}

var memSeq atomic.Int64

// OpenMemory creates a GORM *DB backed by a private in-memory SQLite
// database. Each call gets its own database; the shared cache keeps all
// pooled connections pointed at the same one.
func OpenMemory() (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:groupwarden_mem_%d?mode=memory&cache=shared", memSeq.Add(1))
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
}
