package database

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/bigsauer/rp-exotics-platform/internal/models"
	"github.com/bigsauer/rp-exotics-platform/internal/permissions"
	"github.com/bigsauer/rp-exotics-platform/pkg/crypto"
)

// AutoMigrate applies the schema for every persistent model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Dealer{},
		&models.DealerHistoryEntry{},
		&models.Deal{},
		&models.DealDocument{},
		&models.WorkflowEntry{},
		&models.ActivityEntry{},
		&models.DocumentType{},
		&models.AuditLog{},
		&models.StockCounter{},
	)
}

// SeedData inserts the built-in document catalogue and team roster. Seeding
// is idempotent; existing rows are left untouched. Seeded users receive the
// supplied password and must change it on first login.
func SeedData(db *gorm.DB, seedPassword string) error {
	if err := seedDocumentTypes(db); err != nil {
		return fmt.Errorf("seed document types: %w", err)
	}
	if err := seedUsers(db, seedPassword); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	return nil
}

func seedDocumentTypes(db *gorm.DB) error {
	for _, docType := range models.SeedDocumentTypes() {
		dt := docType
		if err := db.Where("name = ?", dt.Name).FirstOrCreate(&dt).Error; err != nil {
			return err
		}
	}
	return nil
}

type seedUser struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
}

var teamRoster = []seedUser{
	{FirstName: "Parker", LastName: "Gelber", Email: "parker@rpexotics.com", Role: models.RoleSales},
	{FirstName: "Brennan", LastName: "Sauer", Email: "brennan@rpexotics.com", Role: models.RoleSales},
	{FirstName: "Dan", LastName: "Mudd", Email: "dan@rpexotics.com", Role: models.RoleSales},
	{FirstName: "Chris", LastName: "Murphy", Email: "chris@rpexotics.com", Role: models.RoleAdmin},
	{FirstName: "Lynn", LastName: "", Email: "lynn@rpexotics.com", Role: models.RoleFinance},
	{FirstName: "Adiana", LastName: "Palica", Email: "adiana@rpexotics.com", Role: models.RoleSales},
	{FirstName: "Brett", LastName: "M", Email: "brett@rpexotics.com", Role: models.RoleSales},
	{FirstName: "Tammie", LastName: "W", Email: "tammie@rpexotics.com", Role: models.RoleAdmin},
}

func seedUsers(db *gorm.DB, seedPassword string) error {
	if seedPassword == "" {
		return nil
	}

	hash, err := crypto.HashPassword(seedPassword)
	if err != nil {
		return err
	}

	for _, member := range teamRoster {
		var count int64
		if err := db.Model(&models.User{}).Where("email = ?", member.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		grants, err := json.Marshal(permissions.Grants(member.Role))
		if err != nil {
			return err
		}

		user := models.User{
			Username:     strings.SplitN(member.Email, "@", 2)[0],
			Email:        member.Email,
			PasswordHash: hash,
			Role:         member.Role,
			Permissions:  grants,
			Profile: models.UserProfile{
				FirstName:   member.FirstName,
				LastName:    member.LastName,
				DisplayName: strings.TrimSpace(member.FirstName + " " + member.LastName),
			},
			IsActive:           true,
			EmailVerified:      true,
			MustChangePassword: true,
		}
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}
