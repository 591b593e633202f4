package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/diewo77/seo-backoffice/gate"
	"github.com/diewo77/seo-backoffice/internal/models"
)

type permissionSeed struct {
	ResourceType string
	Action       gate.Action
	Description  string
}

// crud lists the five standard actions plus resource wildcard for resource.
func crud(resource, label string) []permissionSeed {
	return []permissionSeed{
		{resource, gate.WildcardAll, "All " + label + " actions"},
		{resource, gate.ActionList, "List " + label + "s"},
		{resource, gate.ActionView, "View " + label + " details"},
		{resource, gate.ActionCreate, "Create " + label + "s"},
		{resource, gate.ActionUpdate, "Edit " + label + "s"},
		{resource, gate.ActionDelete, "Delete " + label + "s"},
	}
}

func permissionSeeds() []permissionSeed {
	seeds := []permissionSeed{
		{gate.WildcardAll, gate.WildcardAll, "Full system access"},
		{gate.WildcardAll, gate.ActionList, "List any resource"},
		{gate.WildcardAll, gate.ActionView, "View any resource"},
	}
	seeds = append(seeds, crud("client", "client")...)

	seeds = append(seeds, crud("invoice", "invoice")...)
	seeds = append(seeds,
		permissionSeed{"invoice", gate.ActionFinalize, "Finalize invoices"},
		permissionSeed{"invoice", gate.ActionTransition, "Change invoice status"},
		permissionSeed{"invoice", gate.ActionExport, "Download invoice PDFs"},
	)

	seeds = append(seeds, crud("contract", "contract")...)
	seeds = append(seeds,
		permissionSeed{"contract", gate.ActionTransition, "Change contract status"},
		permissionSeed{"contract", gate.ActionExport, "Download contract PDFs"},
	)

	seeds = append(seeds, crud("proposal", "proposal")...)
	seeds = append(seeds,
		permissionSeed{"proposal", gate.ActionTransition, "Change proposal status"},
		permissionSeed{"proposal", gate.ActionExport, "Download proposal PDFs"},
	)

	seeds = append(seeds, crud("report", "report")...)
	seeds = append(seeds,
		permissionSeed{"report", gate.ActionGenerate, "Generate reports with AI"},
		permissionSeed{"report", gate.ActionPublish, "Publish reports"},
		permissionSeed{"report", gate.ActionExport, "Download report PDFs"},
	)

	seeds = append(seeds, crud("ticket", "ticket")...)
	seeds = append(seeds, permissionSeed{"ticket", gate.ActionTransition, "Change ticket status"})

	seeds = append(seeds, crud("template", "template")...)
	seeds = append(seeds,
		permissionSeed{"template", gate.ActionSetDefault, "Choose the default template"},
		permissionSeed{"template", gate.ActionExport, "Preview and render templates"},
	)

	seeds = append(seeds, crud("metric", "metric snapshot")...)

	seeds = append(seeds,
		permissionSeed{"company", gate.WildcardAll, "All company settings"},
		permissionSeed{"company", gate.ActionView, "View company settings"},
		permissionSeed{"company", gate.ActionUpdate, "Edit company settings"},
		permissionSeed{"user", gate.WildcardAll, "All user management"},
		permissionSeed{"user", gate.ActionList, "List users"},
		permissionSeed{"user", gate.ActionView, "View user details"},
		permissionSeed{"user", gate.ActionUpdate, "Edit users"},
	)
	seeds = append(seeds, crud("profile", "profile")...)
	return seeds
}

// SeedPermissions creates the resource:action permissions. Idempotent.
func SeedPermissions(conn *gorm.DB) error {
	for _, p := range permissionSeeds() {
		perm := models.Permission{
			ResourceType: p.ResourceType,
			Action:       string(p.Action),
			Description:  p.Description,
		}
		err := conn.Where("resource_type = ? AND action = ?", p.ResourceType, string(p.Action)).
			FirstOrCreate(&perm).Error
		if err != nil {
			return fmt.Errorf("seed permission %s:%s: %w", p.ResourceType, p.Action, err)
		}
	}
	return nil
}

// System profile names.
const (
	ProfileAdmin          = "admin"
	ProfileAccountManager = "account_manager"
	ProfileViewer         = "viewer"
)

type profileSeed struct {
	Name        string
	Description string
	Permissions []gate.Permission
}

var profileSeeds = []profileSeed{
	{
		Name:        ProfileAdmin,
		Description: "Full system administrator with all permissions",
		Permissions: []gate.Permission{gate.PermissionSuperAdmin},
	},
	{
		Name:        ProfileAccountManager,
		Description: "Runs client accounts: documents, reports, tickets and templates",
		Permissions: []gate.Permission{
			"client:*", "invoice:*", "contract:*", "proposal:*", "report:*",
			"ticket:*", "template:*", "metric:*", "company:view",
		},
	},
	{
		Name:        ProfileViewer,
		Description: "Read-only access to all resources",
		Permissions: []gate.Permission{"*:list", "*:view"},
	},
}

// SeedProfiles creates the system profiles and syncs their permissions.
// Idempotent.
func SeedProfiles(conn *gorm.DB) error {
	if err := SeedPermissions(conn); err != nil {
		return err
	}
	for _, p := range profileSeeds {
		var profile models.Profile
		err := conn.Where("name = ?", p.Name).First(&profile).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			profile = models.Profile{Name: p.Name, Description: p.Description, IsSystem: true}
			if err := conn.Create(&profile).Error; err != nil {
				return fmt.Errorf("create profile %s: %w", p.Name, err)
			}
		case err != nil:
			return fmt.Errorf("load profile %s: %w", p.Name, err)
		}

		perms := make([]models.Permission, 0, len(p.Permissions))
		for _, code := range p.Permissions {
			resource, action := code.Parse()
			var perm models.Permission
			if err := conn.Where("resource_type = ? AND action = ?", resource, string(action)).First(&perm).Error; err != nil {
				return fmt.Errorf("profile %s: permission %s: %w", p.Name, code, err)
			}
			perms = append(perms, perm)
		}
		if err := conn.Model(&profile).Association("Permissions").Replace(perms); err != nil {
			return fmt.Errorf("assign permissions to %s: %w", p.Name, err)
		}
	}
	return nil
}

// ProfileByName loads a profile without its permissions.
func ProfileByName(conn *gorm.DB, name string) (*models.Profile, error) {
	var p models.Profile
	if err := conn.Where("name = ?", name).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
