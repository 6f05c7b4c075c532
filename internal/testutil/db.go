// Package testutil builds in-memory databases for package tests.
package testutil

import (
	"testing"
	"time"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a private in-memory SQLite database with every table migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func SeedUser(t testing.TB, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	u := &models.User{Name: email, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(u).Error)
	return u
}

func SeedCategory(t testing.TB, db *gorm.DB, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, db.Create(c).Error)
	return c
}

func SeedProduct(t testing.TB, db *gorm.DB, name, price string, stock int, categoryID *uint) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Stock:      stock,
		CategoryID: categoryID,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func Stock(t testing.TB, db *gorm.DB, productID uint) int {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	return p.Stock
}
