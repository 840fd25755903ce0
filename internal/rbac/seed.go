package rbac

import (
	"fmt"

	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// Seed materializes the registry as Role and RolePermission rows. Existing
// roles keep their ids; their permission sets are replaced so the database
// always matches the registry exactly.
func Seed(db *gorm.DB, reg *Registry) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, name := range reg.Roles() {
			var role models.Role
			if err := tx.Where("name = ?", name).FirstOrCreate(&role, models.Role{Name: name}).Error; err != nil {
				return fmt.Errorf("failed to seed role %q: %w", name, err)
			}

			if err := tx.Where("role_id = ?", role.ID).Delete(&models.RolePermission{}).Error; err != nil {
				return fmt.Errorf("failed to clear permissions for role %q: %w", name, err)
			}

			for _, perm := range reg.Permissions(name) {
				rp := models.RolePermission{
					RoleID:         role.ID,
					PermissionType: string(perm),
				}
				if err := tx.Create(&rp).Error; err != nil {
					return fmt.Errorf("failed to seed permission %q for role %q: %w", perm, name, err)
				}
			}
		}
		return nil
	})
}
