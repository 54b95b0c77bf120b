package bootstrap

import (
	"errors"
	"log"

	"anoa.com/alumninetwork/internal/entity"
	"anoa.com/alumninetwork/pkg/password"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.Role{},
		&entity.User{},
		&entity.Profile{},
		&entity.SignupOTP{},
		&entity.PendingSignup{},
		&entity.Message{},
		&entity.LoginLog{},
	)
}

func SeedRoles(db *gorm.DB) error {
	defaultRoles := []entity.Role{
		{Name: entity.RoleAdmin, Description: "Administrator"},
		{Name: entity.RoleStaff, Description: "Staff"},
		{Name: entity.RoleStudent, Description: "Student"},
	}

	for _, role := range defaultRoles {
		var count int64
		if err := db.Model(&entity.Role{}).
			Where("name = ?", role.Name).
			Count(&count).Error; err != nil {
			return err
		}

		if count == 0 {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// SeedAdminUser creates the bootstrap administrator. It is the only account not created through approval.
func SeedAdminUser(db *gorm.DB, hasher password.Hasher, email, plaintext string) error {
	if email == "" || plaintext == "" {
		return errors.New("admin email and password are required")
	}

	var adminRole entity.Role
	if err := db.Where("name = ?", entity.RoleAdmin).First(&adminRole).Error; err != nil {
		return err
	}

	var count int64
	if err := db.Model(&entity.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin user already exists, skipping seed")
		return nil
	}

	hashed, err := hasher.Hash(plaintext)
	if err != nil {
		return err
	}

	return db.Transaction(func(tx *gorm.DB) error {
		adminUser := entity.User{
			Username:     "admin",
			Email:        email,
			PasswordHash: hashed,
			RoleID:       &adminRole.ID,
			IsActive:     true,
		}
		if err := tx.Create(&adminUser).Error; err != nil {
			return err
		}

		adminProfile := entity.Profile{
			UserID:   adminUser.ID,
			FullName: "Administrator",
			ProfileFields: entity.ProfileFields{
				Bio:         "System Administrator",
				SocialLinks: entity.DefaultSocialLinks(),
			},
		}
		if err := tx.Create(&adminProfile).Error; err != nil {
			return err
		}

		log.Printf("Admin user seeded: %s", email)
		return nil
	})
}
