// Package testutil builds throwaway databases and accounts for package tests.
package testutil

import (
	"fmt"
	"testing"

	"anoa.com/alumninetwork/internal/bootstrap"
	"anoa.com/alumninetwork/internal/entity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated, role-seeded in-memory database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, bootstrap.Migrate(db))
	require.NoError(t, bootstrap.SeedRoles(db))
	return db
}

// CreateUser inserts a confirmed account with the given role and password.
func CreateUser(t *testing.T, db *gorm.DB, username, role, plaintext string) *entity.User {
	t.Helper()

	var r entity.Role
	require.NoError(t, db.Where("name = ?", role).First(&r).Error)

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.MinCost)
	require.NoError(t, err)

	user := &entity.User{
		Username:     username,
		Email:        username + "@alumni.test",
		PasswordHash: string(hashed),
		RoleID:       &r.ID,
		Role:         r,
		IsActive:     true,
	}
	require.NoError(t, db.Omit("Role").Create(user).Error)

	profile := &entity.Profile{UserID: user.ID, FullName: "Full " + username}
	require.NoError(t, db.Create(profile).Error)
	user.Profile = profile
	return user
}
