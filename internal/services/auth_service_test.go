package services

import (
	"testing"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// AuthServiceTestSuite defines the test suite for AuthService
type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

// SetupTest runs before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.User{}, &models.Role{})
	suite.Require().NoError(err)

	suite.service = NewAuthService(repository.NewUserRepository(suite.db))
}

// TearDownTest runs after each test
func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) TestSignupAndLogin() {
	user, err := suite.service.Signup(SignupInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	})
	suite.NoError(err)
	suite.NotZero(user.ID)
	suite.NotEqual("correct-horse", user.PasswordHash)

	loggedIn, err := suite.service.Login(LoginInput{Username: "alice", Password: "correct-horse"})
	suite.NoError(err)
	suite.Equal(user.ID, loggedIn.ID)
}

func (suite *AuthServiceTestSuite) TestSignupTrimsUsername() {
	user, err := suite.service.Signup(SignupInput{Username: "  alice  ", Password: "correct-horse"})
	suite.NoError(err)
	suite.Equal("alice", user.Username)
}

func (suite *AuthServiceTestSuite) TestSignupRejectsShortPassword() {
	_, err := suite.service.Signup(SignupInput{Username: "alice", Password: "short"})
	suite.ErrorIs(err, ErrPasswordTooShort)
}

func (suite *AuthServiceTestSuite) TestSignupRejectsDuplicateUsername() {
	_, err := suite.service.Signup(SignupInput{Username: "alice", Password: "correct-horse"})
	suite.Require().NoError(err)

	_, err = suite.service.Signup(SignupInput{Username: "alice", Password: "different-pass"})
	suite.ErrorIs(err, ErrUsernameTaken)
}

// Unknown usernames and wrong passwords fail identically, so a caller
// cannot probe which usernames exist.
func (suite *AuthServiceTestSuite) TestLoginBadCredentials() {
	_, err := suite.service.Signup(SignupInput{Username: "alice", Password: "correct-horse"})
	suite.Require().NoError(err)

	_, err = suite.service.Login(LoginInput{Username: "alice", Password: "wrong"})
	suite.ErrorIs(err, ErrInvalidCredentials)

	_, err = suite.service.Login(LoginInput{Username: "nobody", Password: "correct-horse"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginSuspendedAccount() {
	user, err := suite.service.Signup(SignupInput{Username: "alice", Password: "correct-horse"})
	suite.Require().NoError(err)
	suite.db.Model(user).Update("suspended", true)

	_, err = suite.service.Login(LoginInput{Username: "alice", Password: "correct-horse"})
	suite.ErrorIs(err, ErrUserSuspended)

	// Wrong password on a suspended account still reads as bad
	// credentials; the suspension is disclosed to the holder only.
	_, err = suite.service.Login(LoginInput{Username: "alice", Password: "wrong"})
	suite.ErrorIs(err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestAssignRole() {
	user, err := suite.service.Signup(SignupInput{Username: "alice", Password: "correct-horse"})
	suite.Require().NoError(err)

	role := &models.Role{Name: "Admin"}
	suite.db.Create(role)

	suite.NoError(suite.service.AssignRole(user.ID, &role.ID))

	stored, err := suite.service.GetUser(user.ID)
	suite.NoError(err)
	suite.Require().NotNil(stored.RoleID)
	suite.Equal(role.ID, *stored.RoleID)

	suite.NoError(suite.service.AssignRole(user.ID, nil))
	stored, err = suite.service.GetUser(user.ID)
	suite.NoError(err)
	suite.Nil(stored.RoleID)

	suite.ErrorIs(suite.service.AssignRole(99999, nil), ErrUserNotFound)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
