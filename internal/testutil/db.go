// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jewelcraft/storefront/internal/domain"
)

// NewDB opens a migrated sqlite database in a per-test temp directory.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "storefront_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// SeedCategory inserts an active category.
func SeedCategory(t testing.TB, db *gorm.DB, name string) domain.Category {
	t.Helper()
	c := domain.Category{Name: name, Status: domain.CategoryActive}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// SeedProduct inserts p as given, without availability derivation.
func SeedProduct(t testing.TB, db *gorm.DB, p domain.Product) domain.Product {
	t.Helper()
	require.NoError(t, db.Create(&p).Error)
	return p
}
