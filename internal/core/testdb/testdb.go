// Package testdb opens a migrated in-memory SQLite database for repository and integration specs.
package testdb

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/audit"
	roleDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/role"
	sessionDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/session"
	userDatamodel "github.com/frahmantamala/school-admin/internal/core/datamodel/user"
)

// Open returns a fresh database. The pool is pinned to one connection because every
// new ":memory:" connection would otherwise see an empty database.
func Open() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&userDatamodel.User{},
		&sessionDatamodel.Session{},
		&roleDatamodel.Role{},
		&auditDatamodel.AuditLog{},
	); err != nil {
		return nil, err
	}
	return db, nil
}
