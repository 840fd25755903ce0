package services

import (
	"testing"
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/rbac"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AccessServiceTestSuite defines the test suite for AccessService
type AccessServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AccessService
}

// SetupTest runs before each test
func (suite *AccessServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.RolePermission{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Project{},
		&models.ProjectMember{},
		&models.WorkspaceProjectAccess{},
	)
	suite.Require().NoError(err)

	suite.service = NewAccessService(
		repository.NewUserRepository(suite.db),
		repository.NewWorkspaceRepository(suite.db),
		repository.NewProjectRepository(suite.db),
		repository.NewAccessRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *AccessServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// Helper functions to create test data
func (suite *AccessServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
	}
	suite.db.Create(user)
	return user
}

func (suite *AccessServiceTestSuite) createTestWorkspace(name string, ownerID uint64) *models.Workspace {
	ws := &models.Workspace{
		Name:    name,
		OwnerID: ownerID,
	}
	suite.db.Create(ws)
	return ws
}

func (suite *AccessServiceTestSuite) createTestMember(workspaceID, userID uint64, isAdmin bool) *models.WorkspaceMember {
	member := &models.WorkspaceMember{
		WorkspaceID: workspaceID,
		UserID:      userID,
		IsAdmin:     isAdmin,
		JoinedAt:    time.Now(),
	}
	suite.db.Create(member)
	return member
}

func (suite *AccessServiceTestSuite) createTestProject(workspaceID uint64, name string, visibility models.Visibility) *models.Project {
	project := &models.Project{
		Name:        name,
		WorkspaceID: workspaceID,
		Visibility:  visibility,
	}
	suite.db.Create(project)
	return project
}

func (suite *AccessServiceTestSuite) createTestProjectMember(projectID, userID uint64) *models.ProjectMember {
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		JoinedAt:  time.Now(),
	}
	suite.db.Create(member)
	return member
}

func (suite *AccessServiceTestSuite) createTestGrant(memberID, projectID uint64, canView, canEdit bool) *models.WorkspaceProjectAccess {
	grant := &models.WorkspaceProjectAccess{
		WorkspaceMemberID: memberID,
		ProjectID:         projectID,
		CanView:           canView,
		CanEdit:           canEdit,
		GrantedAt:         time.Now(),
	}
	suite.db.Create(grant)
	return grant
}

func (suite *AccessServiceTestSuite) createRoleWithPermission(name string, perm rbac.Permission) *models.Role {
	role := &models.Role{Name: name}
	suite.db.Create(role)
	suite.db.Create(&models.RolePermission{RoleID: role.ID, PermissionType: string(perm)})
	return role
}

func (suite *AccessServiceTestSuite) TestProjectMemberCanViewAndEdit() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)
	suite.createTestProjectMember(project.ID, member.ID)

	canView, err := suite.service.CanViewProject(member.ID, project)
	suite.NoError(err)
	suite.True(canView)

	canEdit, err := suite.service.CanEditProject(member.ID, project)
	suite.NoError(err)
	suite.True(canEdit)
}

func (suite *AccessServiceTestSuite) TestWorkspaceOwnerCanViewAndEdit() {
	owner := suite.createTestUser("owner")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	canView, err := suite.service.CanViewProject(owner.ID, project)
	suite.NoError(err)
	suite.True(canView)

	canEdit, err := suite.service.CanEditProject(owner.ID, project)
	suite.NoError(err)
	suite.True(canEdit)
}

func (suite *AccessServiceTestSuite) TestWorkspaceAdminCanViewAndEdit() {
	owner := suite.createTestUser("owner")
	admin := suite.createTestUser("admin")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	suite.createTestMember(ws.ID, admin.ID, true)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	canView, err := suite.service.CanViewProject(admin.ID, project)
	suite.NoError(err)
	suite.True(canView)

	canEdit, err := suite.service.CanEditProject(admin.ID, project)
	suite.NoError(err)
	suite.True(canEdit)
}

func (suite *AccessServiceTestSuite) TestPlainMemberCannotSeePrivateProject() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	suite.createTestMember(ws.ID, member.ID, false)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	canView, err := suite.service.CanViewProject(member.ID, project)
	suite.NoError(err)
	suite.False(canView)
}

func (suite *AccessServiceTestSuite) TestPublicProjectVisibleToWorkspaceMembersOnly() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	outsider := suite.createTestUser("outsider")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	suite.createTestMember(ws.ID, member.ID, false)
	project := suite.createTestProject(ws.ID, "Public Project", models.VisibilityPublic)

	canView, err := suite.service.CanViewProject(member.ID, project)
	suite.NoError(err)
	suite.True(canView)

	// Public means public within the workspace, not to the world.
	canView, err = suite.service.CanViewProject(outsider.ID, project)
	suite.NoError(err)
	suite.False(canView)

	// Visibility alone never grants edit.
	canEdit, err := suite.service.CanEditProject(member.ID, project)
	suite.NoError(err)
	suite.False(canEdit)
}

func (suite *AccessServiceTestSuite) TestExplicitGrantAllowsView() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	wsMember := suite.createTestMember(ws.ID, member.ID, false)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)
	suite.createTestGrant(wsMember.ID, project.ID, true, false)

	canView, err := suite.service.CanViewProject(member.ID, project)
	suite.NoError(err)
	suite.True(canView)

	canEdit, err := suite.service.CanEditProject(member.ID, project)
	suite.NoError(err)
	suite.False(canEdit)
}

func (suite *AccessServiceTestSuite) TestExplicitGrantAllowsEdit() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	wsMember := suite.createTestMember(ws.ID, member.ID, false)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)
	suite.createTestGrant(wsMember.ID, project.ID, true, true)

	canEdit, err := suite.service.CanEditProject(member.ID, project)
	suite.NoError(err)
	suite.True(canEdit)
}

// Grants only widen access. A row with can_view=false confers nothing and
// never blocks the public-visibility rule.
func (suite *AccessServiceTestSuite) TestEmptyGrantDoesNotBlockPublicVisibility() {
	owner := suite.createTestUser("owner")
	member := suite.createTestUser("member")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	wsMember := suite.createTestMember(ws.ID, member.ID, false)
	public := suite.createTestProject(ws.ID, "Public Project", models.VisibilityPublic)
	private := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)
	suite.createTestGrant(wsMember.ID, public.ID, false, false)
	suite.createTestGrant(wsMember.ID, private.ID, false, false)

	canView, err := suite.service.CanViewProject(member.ID, public)
	suite.NoError(err)
	suite.True(canView)

	// On a private project an empty grant is as good as no grant.
	canView, err = suite.service.CanViewProject(member.ID, private)
	suite.NoError(err)
	suite.False(canView)
}

func (suite *AccessServiceTestSuite) TestGrantDoesNotMaskAdminAccess() {
	owner := suite.createTestUser("owner")
	admin := suite.createTestUser("admin")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	wsMember := suite.createTestMember(ws.ID, admin.ID, true)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)
	suite.createTestGrant(wsMember.ID, project.ID, false, false)

	canView, err := suite.service.CanViewProject(admin.ID, project)
	suite.NoError(err)
	suite.True(canView)
}

func (suite *AccessServiceTestSuite) TestRolePermissionGrantsEditToWorkspaceMember() {
	owner := suite.createTestUser("owner")
	editor := suite.createTestUser("editor")
	role := suite.createRoleWithPermission("Project Admin", rbac.PermProjectEdit)
	suite.db.Model(editor).Update("role_id", role.ID)

	ws := suite.createTestWorkspace("Workspace", owner.ID)
	suite.createTestMember(ws.ID, editor.ID, false)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	canEdit, err := suite.service.CanEditProject(editor.ID, project)
	suite.NoError(err)
	suite.True(canEdit)
}

func (suite *AccessServiceTestSuite) TestRolePermissionDoesNotReachAcrossWorkspaces() {
	owner := suite.createTestUser("owner")
	editor := suite.createTestUser("editor")
	role := suite.createRoleWithPermission("Project Admin", rbac.PermProjectEdit)
	suite.db.Model(editor).Update("role_id", role.ID)

	// The editor has the permission but is not a member of this workspace.
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	canEdit, err := suite.service.CanEditProject(editor.ID, project)
	suite.NoError(err)
	suite.False(canEdit)
}

func (suite *AccessServiceTestSuite) TestHasRolePermissionDefaultDeny() {
	user := suite.createTestUser("norole")

	has, err := suite.service.HasRolePermission(user.ID, rbac.PermProjectEdit)
	suite.NoError(err)
	suite.False(has)

	// An unknown user is a denial, not an error.
	has, err = suite.service.HasRolePermission(99999, rbac.PermProjectEdit)
	suite.NoError(err)
	suite.False(has)
}

func (suite *AccessServiceTestSuite) TestAssigneeCanViewTaskWithoutProjectAccess() {
	owner := suite.createTestUser("owner")
	assignee := suite.createTestUser("assignee")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	task := &models.Task{Title: "Task", AssigneeID: &assignee.ID}

	canView, err := suite.service.CanViewTask(assignee.ID, task, project)
	suite.NoError(err)
	suite.True(canView)
}

func (suite *AccessServiceTestSuite) TestAssigneeGetsLimitedEditScope() {
	owner := suite.createTestUser("owner")
	assignee := suite.createTestUser("assignee")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	task := &models.Task{Title: "Task", AssigneeID: &assignee.ID}

	scope, err := suite.service.CanEditTask(assignee.ID, task, project)
	suite.NoError(err)
	suite.True(scope.CanEdit)
	suite.False(scope.AllFields)
	suite.ElementsMatch(EditableTaskFields, scope.Fields)
}

func (suite *AccessServiceTestSuite) TestProjectEditorGetsFullEditScope() {
	owner := suite.createTestUser("owner")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	task := &models.Task{Title: "Task"}

	scope, err := suite.service.CanEditTask(owner.ID, task, project)
	suite.NoError(err)
	suite.True(scope.CanEdit)
	suite.True(scope.AllFields)
}

func (suite *AccessServiceTestSuite) TestTaskEditPermissionGrantsFullEditScope() {
	owner := suite.createTestUser("owner")
	editor := suite.createTestUser("editor")
	role := suite.createRoleWithPermission("Task Editor", rbac.PermTaskEdit)
	suite.db.Model(editor).Update("role_id", role.ID)

	ws := suite.createTestWorkspace("Workspace", owner.ID)
	suite.createTestMember(ws.ID, editor.ID, false)
	public := suite.createTestProject(ws.ID, "Public Project", models.VisibilityPublic)
	private := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	task := &models.Task{Title: "Task"}

	scope, err := suite.service.CanEditTask(editor.ID, task, public)
	suite.NoError(err)
	suite.True(scope.CanEdit)
	suite.True(scope.AllFields)

	// The permission only reaches projects the editor can view.
	scope, err = suite.service.CanEditTask(editor.ID, task, private)
	suite.NoError(err)
	suite.False(scope.CanEdit)
}

func (suite *AccessServiceTestSuite) TestBystanderGetsNoEditScope() {
	owner := suite.createTestUser("owner")
	bystander := suite.createTestUser("bystander")
	ws := suite.createTestWorkspace("Workspace", owner.ID)
	project := suite.createTestProject(ws.ID, "Private Project", models.VisibilityPrivate)

	task := &models.Task{Title: "Task"}

	scope, err := suite.service.CanEditTask(bystander.ID, task, project)
	suite.NoError(err)
	suite.False(scope.CanEdit)
}

func (suite *AccessServiceTestSuite) TestAccessibleProjectsUnionOfRules() {
	owner := suite.createTestUser("owner")
	user := suite.createTestUser("user")

	// Owned workspace: everything is visible.
	ownWs := suite.createTestWorkspace("Own", user.ID)
	owned := suite.createTestProject(ownWs.ID, "Owned", models.VisibilityPrivate)

	// Foreign workspace: direct membership, a grant and a public project.
	ws := suite.createTestWorkspace("Foreign", owner.ID)
	wsMember := suite.createTestMember(ws.ID, user.ID, false)
	direct := suite.createTestProject(ws.ID, "Direct", models.VisibilityPrivate)
	suite.createTestProjectMember(direct.ID, user.ID)
	granted := suite.createTestProject(ws.ID, "Granted", models.VisibilityPrivate)
	suite.createTestGrant(wsMember.ID, granted.ID, true, false)
	public := suite.createTestProject(ws.ID, "Public", models.VisibilityPublic)
	suite.createTestProject(ws.ID, "Hidden", models.VisibilityPrivate)

	// A workspace the user has nothing to do with.
	otherWs := suite.createTestWorkspace("Other", owner.ID)
	suite.createTestProject(otherWs.ID, "Unreachable", models.VisibilityPublic)

	projects, err := suite.service.AccessibleProjects(user.ID)
	suite.NoError(err)

	ids := make([]uint64, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	suite.ElementsMatch([]uint64{owned.ID, direct.ID, granted.ID, public.ID}, ids)
}

func TestAccessServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AccessServiceTestSuite))
}
