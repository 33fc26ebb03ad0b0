package services

import (
	"testing"

	"github.com/mwrueen/offtix-back/internal/models"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type permissionTestEnv struct {
	db      *gorm.DB
	service *PermissionService
}

func setupPermissionTestEnv(t *testing.T) permissionTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.CompanyMember{},
		&models.Designation{},
		&models.Project{},
		&models.ProjectMember{},
	)
	require.NoError(t, err)

	companyRepo := repository.NewCompanyRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	service := NewPermissionService(companyRepo, projectRepo)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	return permissionTestEnv{db: db, service: service}
}

func createPermTestUser(t *testing.T, db *gorm.DB, email string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		Name:         email,
		Email:        email,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestResolveCompanyPermissions(t *testing.T) {
	env := setupPermissionTestEnv(t)

	owner := createPermTestUser(t, env.db, "owner@example.com", models.UserRoleUser)
	admin := createPermTestUser(t, env.db, "admin@example.com", models.UserRoleSuperadmin)
	hr := createPermTestUser(t, env.db, "hr@example.com", models.UserRoleUser)
	dangling := createPermTestUser(t, env.db, "dangling@example.com", models.UserRoleUser)
	stranger := createPermTestUser(t, env.db, "stranger@example.com", models.UserRoleUser)

	company := &models.Company{
		Name:         "Acme",
		OwnerID:      owner.ID,
		Designations: models.DefaultDesignations(),
	}
	require.NoError(t, env.db.Create(company).Error)
	require.NoError(t, env.db.Create(&models.CompanyMember{
		CompanyID: company.ID, UserID: hr.ID, Designation: "HR Manager",
	}).Error)
	require.NoError(t, env.db.Create(&models.CompanyMember{
		CompanyID: company.ID, UserID: dangling.ID, Designation: "Wizard",
	}).Error)

	t.Run("owner gets full permissions", func(t *testing.T) {
		perms, err := env.service.ResolveCompanyPermissionsByID(owner, company.ID)
		require.NoError(t, err)
		require.Equal(t, models.FullPermissions(), perms)
	})

	t.Run("superadmin overrides membership", func(t *testing.T) {
		perms, err := env.service.ResolveCompanyPermissionsByID(admin, company.ID)
		require.NoError(t, err)
		require.Equal(t, models.FullPermissions(), perms)
	})

	t.Run("member gets designation permissions", func(t *testing.T) {
		perms, err := env.service.ResolveCompanyPermissionsByID(hr, company.ID)
		require.NoError(t, err)
		require.True(t, perms.AddEmployee)
		require.True(t, perms.EditEmployee)
		require.False(t, perms.CreateProject)
		require.False(t, perms.DeleteDesignation)
	})

	t.Run("dangling designation falls back to defaults", func(t *testing.T) {
		perms, err := env.service.ResolveCompanyPermissionsByID(dangling, company.ID)
		require.NoError(t, err)
		require.Equal(t, models.DefaultMemberPermissions(), perms)
	})

	t.Run("non-member gets nothing", func(t *testing.T) {
		perms, err := env.service.ResolveCompanyPermissionsByID(stranger, company.ID)
		require.NoError(t, err)
		require.Equal(t, models.PermissionSet{}, perms)
	})

	t.Run("missing company", func(t *testing.T) {
		_, err := env.service.ResolveCompanyPermissionsByID(owner, 9999)
		require.ErrorIs(t, err, ErrCompanyNotFound)
	})
}

func TestResolveProjectAccess(t *testing.T) {
	env := setupPermissionTestEnv(t)

	companyOwner := createPermTestUser(t, env.db, "ceo@example.com", models.UserRoleUser)
	projectOwner := createPermTestUser(t, env.db, "lead@example.com", models.UserRoleUser)
	member := createPermTestUser(t, env.db, "dev@example.com", models.UserRoleUser)
	colleague := createPermTestUser(t, env.db, "colleague@example.com", models.UserRoleUser)
	admin := createPermTestUser(t, env.db, "admin@example.com", models.UserRoleSuperadmin)

	company := &models.Company{Name: "Acme", OwnerID: companyOwner.ID}
	require.NoError(t, env.db.Create(company).Error)
	// A company member who is not on the project's own member list.
	require.NoError(t, env.db.Create(&models.CompanyMember{
		CompanyID: company.ID, UserID: colleague.ID, Designation: "Employee",
	}).Error)

	project := &models.Project{Name: "Launch", OwnerID: projectOwner.ID, CompanyID: &company.ID}
	require.NoError(t, env.db.Create(project).Error)
	require.NoError(t, env.db.Create(&models.ProjectMember{
		ProjectID: project.ID, UserID: member.ID,
	}).Error)

	cases := []struct {
		name  string
		actor *models.User
		want  ProjectAccess
	}{
		{"project owner writes", projectOwner, ProjectAccessWrite},
		{"project member writes", member, ProjectAccessWrite},
		{"superadmin writes", admin, ProjectAccessWrite},
		{"company owner reads", companyOwner, ProjectAccessRead},
		{"company membership alone grants nothing", colleague, ProjectAccessNone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			access, _, err := env.service.ResolveProjectAccessByID(tc.actor, project.ID)
			require.NoError(t, err)
			require.Equal(t, tc.want, access)
		})
	}

	t.Run("missing project", func(t *testing.T) {
		_, _, err := env.service.ResolveProjectAccessByID(projectOwner, 9999)
		require.ErrorIs(t, err, ErrProjectNotFound)
	})

	t.Run("superadmin is not the owner", func(t *testing.T) {
		require.True(t, env.service.IsProjectOwner(projectOwner, project))
		require.False(t, env.service.IsProjectOwner(admin, project))
	})
}
