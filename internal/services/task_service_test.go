package services

import (
	"testing"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *TaskService

	owner     *models.User
	workspace *models.Workspace
	project   *models.Project
	milestone *models.Milestone
	sprint    *models.Sprint
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
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
		&models.Milestone{},
		&models.Sprint{},
		&models.Task{},
		&models.TaskDependency{},
		&models.Comment{},
		&models.Attachment{},
		&models.ActivityLog{},
		&models.Notification{},
	)
	suite.Require().NoError(err)

	userRepo := repository.NewUserRepository(suite.db)
	workspaceRepo := repository.NewWorkspaceRepository(suite.db)
	projectRepo := repository.NewProjectRepository(suite.db)
	milestoneRepo := repository.NewMilestoneRepository(suite.db)
	sprintRepo := repository.NewSprintRepository(suite.db)
	taskRepo := repository.NewTaskRepository(suite.db)

	hierarchy := NewHierarchyService(workspaceRepo, projectRepo, milestoneRepo, sprintRepo, taskRepo)
	access := NewAccessService(userRepo, workspaceRepo, projectRepo, repository.NewAccessRepository(suite.db))
	audit := NewAuditService(repository.NewActivityRepository(suite.db), userRepo)
	notification := NewNotificationService(repository.NewNotificationRepository(suite.db))
	completion := NewCompletionService(hierarchy, repository.NewCascadeRepository(suite.db), projectRepo, workspaceRepo, audit, notification)

	suite.service = NewTaskService(taskRepo, hierarchy, access, audit, notification, completion)

	// One containment chain shared by every test.
	suite.owner = &models.User{Username: "owner", PasswordHash: "hashedpassword"}
	suite.db.Create(suite.owner)
	suite.workspace = &models.Workspace{Name: "Workspace", OwnerID: suite.owner.ID}
	suite.db.Create(suite.workspace)
	suite.project = &models.Project{Name: "Project", WorkspaceID: suite.workspace.ID, Status: models.StageInProgress}
	suite.db.Create(suite.project)
	suite.milestone = &models.Milestone{ProjectID: suite.project.ID, Name: "Milestone", Status: models.StageInProgress}
	suite.db.Create(suite.milestone)
	suite.sprint = &models.Sprint{MilestoneID: suite.milestone.ID, Name: "Sprint", Status: models.StageInProgress}
	suite.db.Create(suite.sprint)
}

// TearDownTest runs after each test
func (suite *TaskServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *TaskServiceTestSuite) createTestUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hashedpassword"}
	suite.db.Create(user)
	return user
}

func (suite *TaskServiceTestSuite) fullScope() TaskEditScope {
	return TaskEditScope{CanEdit: true, AllFields: true}
}

func (suite *TaskServiceTestSuite) assigneeScope() TaskEditScope {
	return TaskEditScope{CanEdit: true, Fields: EditableTaskFields}
}

func (suite *TaskServiceTestSuite) TestCreateTaskDefaults() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "New task",
	})
	suite.NoError(err)
	suite.Equal(models.TaskStatusTodo, task.Status)
	suite.Equal(models.TaskPriorityMedium, task.Priority)
	suite.Require().NotNil(task.ReporterID)
	suite.Equal(suite.owner.ID, *task.ReporterID)

	var count int64
	suite.db.Model(&models.ActivityLog{}).
		Where("action = ? AND content_type = ?", ActionCreate, models.KindTask).
		Count(&count)
	suite.Equal(int64(1), count)
}

func (suite *TaskServiceTestSuite) TestCreateTaskRequiresTitle() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
	})
	suite.ErrorIs(err, ErrTaskTitleRequired)
}

func (suite *TaskServiceTestSuite) TestCreateTaskNotifiesAssignee() {
	assignee := suite.createTestUser("assignee")

	_, err := suite.service.CreateTask(CreateTaskInput{
		SprintID:   suite.sprint.ID,
		ActorID:    suite.owner.ID,
		Title:      "Assigned task",
		AssigneeID: &assignee.ID,
	})
	suite.NoError(err)

	var notifications []models.Notification
	suite.db.Where("recipient_id = ?", assignee.ID).Find(&notifications)
	suite.Require().Len(notifications, 1)
	suite.Equal(models.NotificationAssignment, notifications[0].NotificationType)
}

// Assigning a task to yourself does not generate a notification.
func (suite *TaskServiceTestSuite) TestSelfAssignmentNotNotified() {
	_, err := suite.service.CreateTask(CreateTaskInput{
		SprintID:   suite.sprint.ID,
		ActorID:    suite.owner.ID,
		Title:      "Own task",
		AssigneeID: &suite.owner.ID,
	})
	suite.NoError(err)

	var count int64
	suite.db.Model(&models.Notification{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *TaskServiceTestSuite) TestUpdateTaskLimitedScopeRejectsTitle() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Task",
	})
	suite.Require().NoError(err)

	newTitle := "Renamed"
	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Title: &newTitle}, suite.assigneeScope())
	suite.ErrorIs(err, ErrFieldNotEditable)

	// The rejection happened before any write.
	var stored models.Task
	suite.db.First(&stored, task.ID)
	suite.Equal("Task", stored.Title)
}

func (suite *TaskServiceTestSuite) TestUpdateTaskLimitedScopeAllowsStatus() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Task",
	})
	suite.Require().NoError(err)

	status := models.TaskStatusInProgress
	updated, err := suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Status: &status}, suite.assigneeScope())
	suite.NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)
}

func (suite *TaskServiceTestSuite) TestUpdateTaskStatusEdgeLogged() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Task",
	})
	suite.Require().NoError(err)

	status := models.TaskStatusInProgress
	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Status: &status}, suite.fullScope())
	suite.NoError(err)

	var entries []models.ActivityLog
	suite.db.Where("action = ?", ActionStatusChange).Find(&entries)
	suite.Require().Len(entries, 1)
	suite.Equal("To-do", entries[0].ExtraInfo["from"])
	suite.Equal("In Progress", entries[0].ExtraInfo["to"])
}

func (suite *TaskServiceTestSuite) TestUpdateTaskToDoneRunsCascade() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Only task",
	})
	suite.Require().NoError(err)

	status := models.TaskStatusDone
	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Status: &status}, suite.fullScope())
	suite.NoError(err)

	var sprint models.Sprint
	suite.db.First(&sprint, suite.sprint.ID)
	suite.Equal(models.StageCompleted, sprint.Status)

	var project models.Project
	suite.db.First(&project, suite.project.ID)
	suite.Equal(models.StageCompleted, project.Status)
}

// Saving unrelated fields of an already-done task must not re-trigger
// the cascade.
func (suite *TaskServiceTestSuite) TestSavingDoneTaskDoesNotRetrigger() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Only task",
	})
	suite.Require().NoError(err)

	status := models.TaskStatusDone
	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Status: &status}, suite.fullScope())
	suite.Require().NoError(err)

	var before int64
	suite.db.Model(&models.ActivityLog{}).Where("action = ?", ActionAutoCompleted).Count(&before)

	desc := "postmortem notes"
	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{Description: &desc}, suite.fullScope())
	suite.NoError(err)

	var after int64
	suite.db.Model(&models.ActivityLog{}).Where("action = ?", ActionAutoCompleted).Count(&after)
	suite.Equal(before, after)
}

func (suite *TaskServiceTestSuite) TestUpdateTaskAssigneeChangeNotifies() {
	assignee := suite.createTestUser("assignee")
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Task",
	})
	suite.Require().NoError(err)

	_, err = suite.service.UpdateTask(suite.owner.ID, task.ID, UpdateTaskInput{AssigneeID: &assignee.ID}, suite.fullScope())
	suite.NoError(err)

	var notifications []models.Notification
	suite.db.Where("recipient_id = ?", assignee.ID).Find(&notifications)
	suite.Require().Len(notifications, 1)
	suite.Equal(models.NotificationAssignment, notifications[0].NotificationType)
}

func (suite *TaskServiceTestSuite) TestDeleteTaskLogsFinalState() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Doomed task",
	})
	suite.Require().NoError(err)

	err = suite.service.DeleteTask(suite.owner.ID, task.ID, "cleanup")
	suite.NoError(err)

	var entries []models.ActivityLog
	suite.db.Where("action = ? AND object_id = ?", ActionDelete, task.ID).Find(&entries)
	suite.Require().Len(entries, 1)
	suite.Equal("cleanup", entries[0].Reason)
	suite.Contains(entries[0].OldValue, "title")

	_, err = suite.service.GetTask(task.ID)
	suite.ErrorIs(err, ErrTaskNotFound)
}

func (suite *TaskServiceTestSuite) TestAddDependencyRejectsSelfLoop() {
	task, err := suite.service.CreateTask(CreateTaskInput{
		SprintID: suite.sprint.ID,
		ActorID:  suite.owner.ID,
		Title:    "Task",
	})
	suite.Require().NoError(err)

	_, err = suite.service.AddDependency(suite.owner.ID, task.ID, task.ID, "")
	suite.ErrorIs(err, ErrSelfDependency)
}

func (suite *TaskServiceTestSuite) TestAddDependencyRejectsDuplicate() {
	a, err := suite.service.CreateTask(CreateTaskInput{SprintID: suite.sprint.ID, ActorID: suite.owner.ID, Title: "A"})
	suite.Require().NoError(err)
	b, err := suite.service.CreateTask(CreateTaskInput{SprintID: suite.sprint.ID, ActorID: suite.owner.ID, Title: "B"})
	suite.Require().NoError(err)

	dep, err := suite.service.AddDependency(suite.owner.ID, a.ID, b.ID, "")
	suite.NoError(err)
	suite.Equal(models.DependencyBlockedBy, dep.Type)

	_, err = suite.service.AddDependency(suite.owner.ID, a.ID, b.ID, "")
	suite.ErrorIs(err, ErrDuplicateDependency)
}

func (suite *TaskServiceTestSuite) TestAddDependencyRejectsMissingTarget() {
	task, err := suite.service.CreateTask(CreateTaskInput{SprintID: suite.sprint.ID, ActorID: suite.owner.ID, Title: "Task"})
	suite.Require().NoError(err)

	_, err = suite.service.AddDependency(suite.owner.ID, task.ID, 99999, "")
	suite.ErrorIs(err, ErrDependencyTargetGone)
}

// ListTasks must never leak tasks from projects the caller cannot see,
// even when the caller filters to such a project explicitly.
func (suite *TaskServiceTestSuite) TestListTasksIntersectsAccessibleProjects() {
	outsider := suite.createTestUser("outsider")

	_, err := suite.service.CreateTask(CreateTaskInput{SprintID: suite.sprint.ID, ActorID: suite.owner.ID, Title: "Hidden task"})
	suite.Require().NoError(err)

	tasks, total, err := suite.service.ListTasks(outsider.ID, repository.TaskFilter{
		ProjectIDs: []uint64{suite.project.ID},
	})
	suite.NoError(err)
	suite.Empty(tasks)
	suite.Equal(int64(0), total)

	tasks, total, err = suite.service.ListTasks(suite.owner.ID, repository.TaskFilter{})
	suite.NoError(err)
	suite.Len(tasks, 1)
	suite.Equal(int64(1), total)
}

func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
