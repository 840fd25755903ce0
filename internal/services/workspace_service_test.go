package services

import (
	"testing"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// WorkspaceServiceTestSuite defines the test suite for WorkspaceService
type WorkspaceServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *WorkspaceService
}

// SetupTest runs before each test
func (suite *WorkspaceServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Milestone{},
		&models.Sprint{},
		&models.Task{},
		&models.TaskDependency{},
		&models.Comment{},
		&models.Attachment{},
		&models.WorkspaceProjectAccess{},
		&models.ActivityLog{},
		&models.Notification{},
	)
	suite.Require().NoError(err)

	userRepo := repository.NewUserRepository(suite.db)
	audit := NewAuditService(repository.NewActivityRepository(suite.db), userRepo)
	notification := NewNotificationService(repository.NewNotificationRepository(suite.db))

	suite.service = NewWorkspaceService(
		repository.NewWorkspaceRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewAccessRepository(suite.db),
		audit,
		notification,
	)
}

// TearDownTest runs after each test
func (suite *WorkspaceServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *WorkspaceServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashedpassword"}
	suite.db.Create(user)
	return user
}

func (suite *WorkspaceServiceTestSuite) createTestProject(workspaceID uint64, name string) *models.Project {
	project := &models.Project{Name: name, WorkspaceID: workspaceID}
	suite.db.Create(project)
	return project
}

func (suite *WorkspaceServiceTestSuite) TestCreateWorkspaceEnrollsOwnerAsAdmin() {
	owner := suite.createTestUser("owner")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.NoError(err)

	var member models.WorkspaceMember
	err = suite.db.Where("workspace_id = ? AND user_id = ?", ws.ID, owner.ID).First(&member).Error
	suite.NoError(err)
	suite.True(member.IsAdmin)
}

func (suite *WorkspaceServiceTestSuite) TestAddMemberRequiresManager() {
	owner := suite.createTestUser("owner")
	plain := suite.createTestUser("plain")
	newcomer := suite.createTestUser("newcomer")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{
		WorkspaceID: ws.ID,
		ActorID:     owner.ID,
		UserID:      plain.ID,
	})
	suite.Require().NoError(err)

	// A non-admin member cannot manage membership.
	_, err = suite.service.AddMember(AddMemberInput{
		WorkspaceID: ws.ID,
		ActorID:     plain.ID,
		UserID:      newcomer.ID,
	})
	suite.ErrorIs(err, ErrNotWorkspaceManager)
}

func (suite *WorkspaceServiceTestSuite) TestAddMemberRejectsDuplicate() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.ErrorIs(err, ErrAlreadyMember)
}

func (suite *WorkspaceServiceTestSuite) TestAddMemberNotifiesNewMember() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.NoError(err)

	var notifications []models.Notification
	suite.db.Where("recipient_id = ?", member.ID).Find(&notifications)
	suite.Require().Len(notifications, 1)
	suite.Equal(models.NotificationMemberAdded, notifications[0].NotificationType)
}

func (suite *WorkspaceServiceTestSuite) TestOwnerCannotBeRemoved() {
	owner := suite.createTestUser("owner")
	admin := suite.createTestUser("admin")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: admin.ID, IsAdmin: true})
	suite.Require().NoError(err)

	// Not even another admin can remove the owner.
	err = suite.service.RemoveMember(admin.ID, ws.ID, owner.ID)
	suite.ErrorIs(err, ErrOwnerNotRemovable)

	err = suite.service.RemoveMember(owner.ID, ws.ID, owner.ID)
	suite.ErrorIs(err, ErrOwnerNotRemovable)
}

func (suite *WorkspaceServiceTestSuite) TestDeleteWorkspaceOwnerOnly() {
	owner := suite.createTestUser("owner")
	admin := suite.createTestUser("admin")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)

	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: admin.ID, IsAdmin: true})
	suite.Require().NoError(err)

	err = suite.service.DeleteWorkspace(admin.ID, ws.ID, "")
	suite.ErrorIs(err, ErrNotWorkspaceOwner)

	err = suite.service.DeleteWorkspace(owner.ID, ws.ID, "shutting down")
	suite.NoError(err)

	// The audit entry was written before the rows vanished.
	var entries []models.ActivityLog
	suite.db.Where("action = ? AND content_type = ?", ActionDelete, models.KindWorkspace).Find(&entries)
	suite.Require().Len(entries, 1)
	suite.Equal("shutting down", entries[0].Reason)
}

func (suite *WorkspaceServiceTestSuite) TestGrantProjectAccessRejectsCrossWorkspace() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)
	other, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Other", OwnerID: owner.ID})
	suite.Require().NoError(err)

	wsMember, err := suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)

	foreignProject := suite.createTestProject(other.ID, "Foreign")

	_, err = suite.service.GrantProjectAccess(GrantAccessInput{
		ActorID:           owner.ID,
		WorkspaceID:       ws.ID,
		WorkspaceMemberID: wsMember.ID,
		ProjectID:         foreignProject.ID,
		CanView:           true,
	})
	suite.ErrorIs(err, ErrGrantCrossWorkspace)
}

// Granting twice for the same member and project replaces the existing
// row instead of stacking a second one.
func (suite *WorkspaceServiceTestSuite) TestGrantProjectAccessUpserts() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)
	wsMember, err := suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)
	project := suite.createTestProject(ws.ID, "Project")

	_, err = suite.service.GrantProjectAccess(GrantAccessInput{
		ActorID:           owner.ID,
		WorkspaceID:       ws.ID,
		WorkspaceMemberID: wsMember.ID,
		ProjectID:         project.ID,
		CanView:           true,
	})
	suite.Require().NoError(err)

	grant, err := suite.service.GrantProjectAccess(GrantAccessInput{
		ActorID:           owner.ID,
		WorkspaceID:       ws.ID,
		WorkspaceMemberID: wsMember.ID,
		ProjectID:         project.ID,
		CanView:           true,
		CanEdit:           true,
	})
	suite.NoError(err)
	suite.True(grant.CanEdit)

	var count int64
	suite.db.Model(&models.WorkspaceProjectAccess{}).
		Where("workspace_member_id = ? AND project_id = ?", wsMember.ID, project.ID).
		Count(&count)
	suite.Equal(int64(1), count)
}

// An edit-only grant persists can_view=false exactly as given; the flag
// must not pick up a column default on insert.
func (suite *WorkspaceServiceTestSuite) TestGrantPersistsExplicitFalseFlags() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)
	wsMember, err := suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)
	project := suite.createTestProject(ws.ID, "Project")

	grant, err := suite.service.GrantProjectAccess(GrantAccessInput{
		ActorID:           owner.ID,
		WorkspaceID:       ws.ID,
		WorkspaceMemberID: wsMember.ID,
		ProjectID:         project.ID,
		CanView:           false,
		CanEdit:           false,
	})
	suite.Require().NoError(err)

	var stored models.WorkspaceProjectAccess
	suite.Require().NoError(suite.db.First(&stored, grant.ID).Error)
	suite.False(stored.CanView)
	suite.False(stored.CanEdit)
}

func (suite *WorkspaceServiceTestSuite) TestRevokeMissingGrant() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)
	wsMember, err := suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)
	project := suite.createTestProject(ws.ID, "Project")

	err = suite.service.RevokeProjectAccess(owner.ID, ws.ID, wsMember.ID, project.ID)
	suite.ErrorIs(err, ErrGrantNotFound)
}

func (suite *WorkspaceServiceTestSuite) TestUpdateMemberRole() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	role := &models.Role{Name: "Project Admin"}
	suite.db.Create(role)

	ws, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Workspace", OwnerID: owner.ID})
	suite.Require().NoError(err)
	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: ws.ID, ActorID: owner.ID, UserID: member.ID})
	suite.Require().NoError(err)

	isAdmin := true
	updated, err := suite.service.UpdateMember(owner.ID, ws.ID, member.ID, UpdateMemberInput{
		IsAdmin: &isAdmin,
		RoleID:  &role.ID,
	})
	suite.NoError(err)
	suite.True(updated.IsAdmin)
	suite.Require().NotNil(updated.RoleID)
	suite.Equal(role.ID, *updated.RoleID)

	cleared, err := suite.service.UpdateMember(owner.ID, ws.ID, member.ID, UpdateMemberInput{ClearRole: true})
	suite.NoError(err)
	suite.Nil(cleared.RoleID)
}

func (suite *WorkspaceServiceTestSuite) TestListWorkspacesForUser() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")

	owned, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Owned", OwnerID: owner.ID})
	suite.Require().NoError(err)
	joined, err := suite.service.CreateWorkspace(CreateWorkspaceInput{Name: "Joined", OwnerID: member.ID})
	suite.Require().NoError(err)
	_, err = suite.service.AddMember(AddMemberInput{WorkspaceID: joined.ID, ActorID: member.ID, UserID: owner.ID})
	suite.Require().NoError(err)

	workspaces, err := suite.service.ListWorkspaces(owner.ID)
	suite.NoError(err)

	ids := make([]uint64, 0, len(workspaces))
	for _, ws := range workspaces {
		ids = append(ids, ws.ID)
	}
	suite.ElementsMatch([]uint64{owned.ID, joined.ID}, ids)
}

func TestWorkspaceServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WorkspaceServiceTestSuite))
}
