package repository_test

import (
	"testing"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// CascadeRepositoryTestSuite defines the test suite for CascadeRepository
type CascadeRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo repository.CascadeRepository
}

// SetupTest runs before each test
func (suite *CascadeRepositoryTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.Workspace{},
		&models.Project{},
		&models.Milestone{},
		&models.Sprint{},
		&models.Task{},
	)
	suite.Require().NoError(err)

	suite.repo = repository.NewCascadeRepository(suite.db)
}

// TearDownTest runs after each test
func (suite *CascadeRepositoryTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *CascadeRepositoryTestSuite) createTestSprint(status models.StageStatus) *models.Sprint {
	sprint := &models.Sprint{MilestoneID: 1, Name: "Sprint", Status: status}
	suite.db.Create(sprint)
	return sprint
}

func (suite *CascadeRepositoryTestSuite) createTestTask(sprintID uint64, status models.TaskStatus) *models.Task {
	task := &models.Task{SprintID: sprintID, Title: "Task", Status: status}
	suite.db.Create(task)
	return task
}

func (suite *CascadeRepositoryTestSuite) TestCountSprintTasks() {
	sprint := suite.createTestSprint(models.StageInProgress)
	suite.createTestTask(sprint.ID, models.TaskStatusDone)
	suite.createTestTask(sprint.ID, models.TaskStatusDone)
	suite.createTestTask(sprint.ID, models.TaskStatusInProgress)

	counts, err := suite.repo.CountSprintTasks(sprint.ID)
	suite.NoError(err)
	suite.Equal(int64(3), counts.Total)
	suite.Equal(int64(2), counts.Terminal)
	suite.False(counts.AllTerminal())

	suite.db.Model(&models.Task{}).
		Where("sprint_id = ?", sprint.ID).
		Update("status", models.TaskStatusDone)

	counts, err = suite.repo.CountSprintTasks(sprint.ID)
	suite.NoError(err)
	suite.True(counts.AllTerminal())
}

// A childless container is never all-terminal; vacuous completion would
// close empty sprints the moment they are created.
func (suite *CascadeRepositoryTestSuite) TestEmptySprintNeverAllTerminal() {
	sprint := suite.createTestSprint(models.StageNotStarted)

	counts, err := suite.repo.CountSprintTasks(sprint.ID)
	suite.NoError(err)
	suite.Equal(int64(0), counts.Total)
	suite.False(counts.AllTerminal())
}

func (suite *CascadeRepositoryTestSuite) TestMarkSprintCompletedWinsOnce() {
	sprint := suite.createTestSprint(models.StageInProgress)

	won, err := suite.repo.MarkSprintCompleted(sprint.ID)
	suite.NoError(err)
	suite.True(won)

	// The second caller loses the compare-and-set.
	won, err = suite.repo.MarkSprintCompleted(sprint.ID)
	suite.NoError(err)
	suite.False(won)

	var stored models.Sprint
	suite.db.First(&stored, sprint.ID)
	suite.Equal(models.StageCompleted, stored.Status)
}

func (suite *CascadeRepositoryTestSuite) TestMarkMissingRowLoses() {
	won, err := suite.repo.MarkMilestoneCompleted(99999)
	suite.NoError(err)
	suite.False(won)
}

func (suite *CascadeRepositoryTestSuite) TestCountMilestoneSprints() {
	milestone := &models.Milestone{ProjectID: 1, Name: "Milestone", Status: models.StageInProgress}
	suite.db.Create(milestone)

	done := &models.Sprint{MilestoneID: milestone.ID, Name: "Done", Status: models.StageCompleted}
	suite.db.Create(done)
	open := &models.Sprint{MilestoneID: milestone.ID, Name: "Open", Status: models.StageInProgress}
	suite.db.Create(open)

	counts, err := suite.repo.CountMilestoneSprints(milestone.ID)
	suite.NoError(err)
	suite.Equal(int64(2), counts.Total)
	suite.Equal(int64(1), counts.Terminal)
}

func TestCascadeRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(CascadeRepositoryTestSuite))
}
