package services

import (
	"testing"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuditServiceTestSuite defines the test suite for AuditService
type AuditServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuditService
}

// SetupTest runs before each test
func (suite *AuditServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.Role{},
		&models.ActivityLog{},
	)
	suite.Require().NoError(err)

	suite.service = NewAuditService(
		repository.NewActivityRepository(suite.db),
		repository.NewUserRepository(suite.db),
	)
}

// TearDownTest runs after each test
func (suite *AuditServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuditServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashedpassword"}
	suite.db.Create(user)
	return user
}

func (suite *AuditServiceTestSuite) allEntries() []models.ActivityLog {
	var entries []models.ActivityLog
	suite.db.Order("id").Find(&entries)
	return entries
}

func testContext() AuditContext {
	wsID := uint64(10)
	projectID := uint64(20)
	return AuditContext{
		WorkspaceID:   &wsID,
		WorkspaceName: "Workspace",
		ProjectID:     &projectID,
		ProjectName:   "Project",
	}
}

func (suite *AuditServiceTestSuite) TestLogCreateDenormalizesContext() {
	actor := suite.createTestUser("actor")

	suite.service.LogCreate(&actor.ID, models.KindTask, 42,
		Snapshot{"title": Scalar("Task")}, testContext(), "")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)

	entry := entries[0]
	suite.Equal(ActionCreate, entry.Action)
	suite.Equal(models.KindTask, entry.ContentType)
	suite.Equal(uint64(42), entry.ObjectID)
	suite.Require().NotNil(entry.WorkspaceID)
	suite.Equal(uint64(10), *entry.WorkspaceID)
	suite.Require().NotNil(entry.ProjectID)
	suite.Equal(uint64(20), *entry.ProjectID)
	suite.Equal("Workspace", entry.ExtraInfo["workspace_name"])
	suite.Equal("Project", entry.ExtraInfo["project_name"])
	suite.Nil(entry.OldValue)
	suite.NotNil(entry.NewValue)
}

// Updates store the complete before and after state; the diff lives only
// in extra_info.changed_fields.
func (suite *AuditServiceTestSuite) TestLogUpdateStoresFullSnapshots() {
	actor := suite.createTestUser("actor")

	before := Snapshot{
		"title":  Scalar("Old"),
		"status": Scalar("To-do"),
	}
	after := Snapshot{
		"title":  Scalar("New"),
		"status": Scalar("To-do"),
	}
	suite.service.LogUpdate(&actor.ID, models.KindTask, 42, before, after, testContext(), "rename")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)

	entry := entries[0]
	suite.Equal(ActionUpdate, entry.Action)
	suite.Equal("rename", entry.Reason)
	suite.Contains(entry.OldValue, "title")
	suite.Contains(entry.OldValue, "status")
	suite.Contains(entry.NewValue, "title")
	suite.Contains(entry.NewValue, "status")
	suite.Equal([]any{"title"}, entry.ExtraInfo["changed_fields"])
}

// A save that changed nothing is still recorded, with an empty
// changed_fields list.
func (suite *AuditServiceTestSuite) TestLogUpdateNoOpRecordsEmptyChangeList() {
	actor := suite.createTestUser("actor")

	snap := Snapshot{"title": Scalar("Same")}
	suite.service.LogUpdate(&actor.ID, models.KindTask, 42, snap, snap, testContext(), "")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)
	suite.Equal(ActionUpdate, entries[0].Action)
	suite.Equal([]any{}, entries[0].ExtraInfo["changed_fields"])
}

func (suite *AuditServiceTestSuite) TestLogEventMergesDetailIntoExtra() {
	suite.service.LogEvent(nil, ActionStatusChange, models.KindTask, 42, nil, nil,
		models.JSONMap{"from": "To-do", "to": "Done"}, testContext(), "")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)

	entry := entries[0]
	suite.Nil(entry.UserID)
	suite.Equal("To-do", entry.ExtraInfo["from"])
	suite.Equal("Done", entry.ExtraInfo["to"])
	suite.Equal("Workspace", entry.ExtraInfo["workspace_name"])
}

// Task-level context carries the whole ancestry by name, so history
// stays readable after a rename or delete anywhere up the chain.
func (suite *AuditServiceTestSuite) TestTaskContextDenormalizesAncestry() {
	tc := &TaskContext{
		Task:      &models.Task{Title: "Task"},
		Sprint:    &models.Sprint{Name: "Sprint"},
		Milestone: &models.Milestone{Name: "Milestone"},
		Project:   &models.Project{Name: "Project"},
		Workspace: &models.Workspace{Name: "Workspace"},
	}
	tc.Task.ID = 7
	tc.Sprint.ID = 6
	tc.Milestone.ID = 5
	tc.Project.ID = 4
	tc.Workspace.ID = 3

	suite.service.LogCreate(nil, models.KindTask, tc.Task.ID,
		Snapshot{"title": Scalar("Task")}, TaskAuditContext(tc), "")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)

	extra := entries[0].ExtraInfo
	suite.Equal("Milestone", extra["milestone_name"])
	suite.EqualValues(5, extra["milestone_id"])
	suite.Equal("Sprint", extra["sprint_name"])
	suite.EqualValues(6, extra["sprint_id"])
	suite.Equal("Task", extra["task_title"])
	suite.EqualValues(7, extra["task_id"])
}

// Events can carry their own before and after state, like a status
// change recording the task on both sides of the transition.
func (suite *AuditServiceTestSuite) TestLogEventCarriesStateAndReason() {
	actor := suite.createTestUser("actor")

	before := Snapshot{"status": Scalar("To-do")}
	after := Snapshot{"status": Scalar("Done")}
	suite.service.LogEvent(&actor.ID, ActionStatusChange, models.KindTask, 42,
		before, after, models.JSONMap{"from": "To-do", "to": "Done"}, testContext(), "finished early")

	entries := suite.allEntries()
	suite.Require().Len(entries, 1)

	entry := entries[0]
	suite.Equal("finished early", entry.Reason)
	suite.Contains(entry.OldValue, "status")
	suite.Contains(entry.NewValue, "status")
}

// An entry with an unknown entity kind is dropped, not persisted.
func (suite *AuditServiceTestSuite) TestWriteDropsUnknownEntityKind() {
	suite.service.LogEvent(nil, ActionCreate, models.EntityKind("Gadget"), 1, nil, nil, nil, AuditContext{}, "")

	suite.Empty(suite.allEntries())
}

func (suite *AuditServiceTestSuite) TestActivityForEntityNewestFirst() {
	actor := suite.createTestUser("actor")

	for i := 0; i < 3; i++ {
		suite.service.LogEvent(&actor.ID, ActionStatusChange, models.KindTask, 42, nil, nil, nil, testContext(), "")
	}
	suite.service.LogEvent(&actor.ID, ActionStatusChange, models.KindTask, 99, nil, nil, nil, testContext(), "")

	entries, err := suite.service.ActivityForEntity(models.KindTask, 42, 0)
	suite.NoError(err)
	suite.Require().Len(entries, 3)
	suite.True(entries[0].ID > entries[1].ID)
	suite.True(entries[1].ID > entries[2].ID)
}

func (suite *AuditServiceTestSuite) TestResolveUserDisplayFallback() {
	user := suite.createTestUser("alice")

	suite.Equal("alice", suite.service.ResolveUserDisplay(user.ID))
	suite.Equal("user:999", suite.service.ResolveUserDisplay(999))
}

func (suite *AuditServiceTestSuite) TestSummarizeCountsByDimension() {
	actor := suite.createTestUser("actor")

	suite.service.LogCreate(&actor.ID, models.KindTask, 1, Snapshot{"title": Scalar("a")}, testContext(), "")
	suite.service.LogCreate(&actor.ID, models.KindProject, 2, Snapshot{"name": Scalar("b")}, testContext(), "")
	suite.service.LogEvent(&actor.ID, ActionStatusChange, models.KindTask, 1, nil, nil, nil, testContext(), "")

	summary, err := suite.service.Summarize(7)
	suite.NoError(err)
	suite.Equal(int64(3), summary.Total)
	suite.Equal(int64(2), summary.ByAction[ActionCreate])
	suite.Equal(int64(1), summary.ByAction[ActionStatusChange])
	suite.Equal(int64(2), summary.ByEntity[string(models.KindTask)])
	suite.Equal(int64(3), summary.ByUser[actor.ID])
}

func TestAuditServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceTestSuite))
}
