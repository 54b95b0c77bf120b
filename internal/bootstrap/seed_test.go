package bootstrap

import (
	"fmt"
	"testing"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/pkg/password"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestSeedRolesIsIdempotent(t *testing.T) {
	db := newDB(t)
	require.NoError(t, Migrate(db))

	require.NoError(t, SeedRoles(db))
	require.NoError(t, SeedRoles(db))

	var count int64
	require.NoError(t, db.Model(&entity.Role{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestSeedAdminUser(t *testing.T) {
	db := newDB(t)
	require.NoError(t, Migrate(db))
	require.NoError(t, SeedRoles(db))
	hasher := password.NewBcryptHasher(bcrypt.MinCost)

	require.NoError(t, SeedAdminUser(db, hasher, "root@alumni.test", "admin-pass"))
	require.NoError(t, SeedAdminUser(db, hasher, "root@alumni.test", "admin-pass"))

	var admin entity.User
	require.NoError(t, db.Preload("Role").Preload("Profile").Where("email = ?", "root@alumni.test").First(&admin).Error)
	assert.Equal(t, entity.RoleAdmin, admin.Role.Name)
	assert.True(t, hasher.Verify("admin-pass", admin.PasswordHash))
	require.NotNil(t, admin.Profile)
	assert.Equal(t, "Administrator", admin.Profile.FullName)

	assert.Error(t, SeedAdminUser(db, hasher, "", ""))
}
