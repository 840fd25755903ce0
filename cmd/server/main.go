package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/loomplan/loomplan-api/internal/config"
	"github.com/loomplan/loomplan-api/internal/database"
	"github.com/loomplan/loomplan-api/internal/handlers"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/rbac"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/loomplan/loomplan-api/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set Gin mode
	gin.SetMode(cfg.GinMode)

	// Connect to database
	if err := database.Connect(cfg); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.Migrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	db := database.GetDB()
	if err := database.AddIndexes(db); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	// Seed the conventional roles and their permission table
	registry := rbac.DefaultRegistry()
	if err := rbac.Seed(db, registry); err != nil {
		log.Fatalf("Failed to seed roles: %v", err)
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	workspaceRepo := repository.NewWorkspaceRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	milestoneRepo := repository.NewMilestoneRepository(db)
	sprintRepo := repository.NewSprintRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	accessRepo := repository.NewAccessRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	cascadeRepo := repository.NewCascadeRepository(db)

	// Services
	hierarchy := services.NewHierarchyService(workspaceRepo, projectRepo, milestoneRepo, sprintRepo, taskRepo)
	accessService := services.NewAccessService(userRepo, workspaceRepo, projectRepo, accessRepo)
	auditService := services.NewAuditService(activityRepo, userRepo)
	notificationService := services.NewNotificationService(notificationRepo)
	completionService := services.NewCompletionService(hierarchy, cascadeRepo, projectRepo, workspaceRepo, auditService, notificationService)
	authService := services.NewAuthService(userRepo)
	workspaceService := services.NewWorkspaceService(workspaceRepo, projectRepo, accessRepo, auditService, notificationService)
	projectService := services.NewProjectService(projectRepo, milestoneRepo, sprintRepo, workspaceRepo, hierarchy, accessService, auditService, notificationService)
	taskService := services.NewTaskService(taskRepo, hierarchy, accessService, auditService, notificationService, completionService)
	commentService := services.NewCommentService(commentRepo, taskRepo, notificationService)
	aiService := services.NewAIService(cfg.OpenAIAPIKey)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, accessService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
	projectHandler := handlers.NewProjectHandler(projectService, accessService, hierarchy)
	taskHandler := handlers.NewTaskHandler(taskService, projectService, accessService, hierarchy, aiService)
	activityHandler := handlers.NewActivityHandler(auditService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	commentHandler := handlers.NewCommentHandler(commentService, projectService, accessService, hierarchy)

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,
		"tcp",
		redisAddr,
		"",
		"",
		[]byte(cfg.SessionSecret),
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax
	})
	r.Use(sessions.Sessions("loomplan_session", store))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Loomplan API is running",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authHandler.Signup)
			auth.POST("/login", authHandler.Login)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", middleware.RequireAuth(), authHandler.GetCurrentUser)
		}

		// User administration (permission-checked in the handler)
		users := api.Group("/users")
		users.Use(middleware.RequireAuth())
		{
			users.PUT("/:id/role", authHandler.AssignRole)
		}

		// Workspace routes (protected)
		workspaces := api.Group("/workspaces")
		workspaces.Use(middleware.RequireAuth())
		{
			workspaces.POST("", workspaceHandler.CreateWorkspace)
			workspaces.GET("", workspaceHandler.ListWorkspaces)

			scoped := workspaces.Group("/:id", middleware.RequireWorkspaceAccess())
			{
				scoped.GET("", workspaceHandler.GetWorkspace)
				scoped.PUT("", workspaceHandler.UpdateWorkspace)
				scoped.DELETE("", workspaceHandler.DeleteWorkspace)
				scoped.GET("/members", workspaceHandler.ListMembers)
				scoped.POST("/members", middleware.RequireWorkspaceManager(), workspaceHandler.AddMember)
				scoped.PUT("/members/:userID", middleware.RequireWorkspaceManager(), workspaceHandler.UpdateMember)
				scoped.DELETE("/members/:userID", middleware.RequireWorkspaceManager(), workspaceHandler.RemoveMember)
				scoped.POST("/grants", middleware.RequireWorkspaceManager(), workspaceHandler.GrantAccess)
				scoped.DELETE("/grants/:memberID/projects/:projectID", middleware.RequireWorkspaceManager(), workspaceHandler.RevokeAccess)
				scoped.POST("/projects", projectHandler.CreateProject)
				scoped.GET("/activity", activityHandler.WorkspaceActivity)
			}
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth())
		{
			projects.GET("", projectHandler.ListProjects)

			view := projects.Group("/:id", middleware.RequireProjectView(accessService))
			{
				view.GET("", projectHandler.GetProject)
				view.GET("/members", projectHandler.ListProjectMembers)
				view.GET("/milestones", projectHandler.ListMilestones)
				view.GET("/activity", activityHandler.ProjectActivity)
				view.GET("/comments", commentHandler.ListProjectComments)
				view.POST("/comments", commentHandler.CreateProjectComment)
			}

			edit := projects.Group("/:id", middleware.RequireProjectEdit(accessService))
			{
				edit.PUT("", projectHandler.UpdateProject)
				edit.DELETE("", projectHandler.DeleteProject)
				edit.POST("/archive", projectHandler.ArchiveProject)
				edit.POST("/unarchive", projectHandler.UnarchiveProject)
				edit.POST("/members", projectHandler.AddProjectMember)
				edit.DELETE("/members/:userID", projectHandler.RemoveProjectMember)
				edit.POST("/milestones", projectHandler.CreateMilestone)
			}
		}

		// Milestone routes (protected; access resolved per request)
		milestones := api.Group("/milestones")
		milestones.Use(middleware.RequireAuth())
		{
			milestones.GET("/:id", projectHandler.GetMilestone)
			milestones.PUT("/:id", projectHandler.UpdateMilestone)
			milestones.DELETE("/:id", projectHandler.DeleteMilestone)
			milestones.GET("/:id/sprints", projectHandler.ListSprints)
			milestones.POST("/:id/sprints", projectHandler.CreateSprint)
		}

		// Sprint routes (protected; access resolved per request)
		sprints := api.Group("/sprints")
		sprints.Use(middleware.RequireAuth())
		{
			sprints.GET("/:id", projectHandler.GetSprint)
			sprints.PUT("/:id", projectHandler.UpdateSprint)
			sprints.DELETE("/:id", projectHandler.DeleteSprint)
			sprints.POST("/:id/tasks", taskHandler.CreateTask)
			sprints.GET("/:id/comments", commentHandler.ListSprintComments)
			sprints.POST("/:id/comments", commentHandler.CreateSprintComment)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth())
		{
			tasks.GET("", taskHandler.ListTasks)
			tasks.POST("/generate", taskHandler.GenerateTasks)

			taskView := tasks.Group("/:id", middleware.RequireTaskView(accessService, hierarchy))
			{
				taskView.GET("", taskHandler.GetTask)
				taskView.GET("/dependencies", taskHandler.ListDependencies)
				taskView.GET("/activity", activityHandler.TaskActivity)
				taskView.GET("/comments", commentHandler.ListTaskComments)
				taskView.POST("/comments", commentHandler.CreateTaskComment)
				taskView.GET("/attachments", commentHandler.ListTaskAttachments)
				taskView.POST("/attachments", commentHandler.RecordTaskAttachment)
			}

			taskEdit := tasks.Group("/:id", middleware.RequireTaskEdit(accessService, hierarchy))
			{
				taskEdit.PATCH("", taskHandler.UpdateTask)
				taskEdit.DELETE("", taskHandler.DeleteTask)
				taskEdit.POST("/dependencies", taskHandler.AddDependency)
				taskEdit.DELETE("/dependencies/:dependsOnID", taskHandler.RemoveDependency)
			}
		}

		// Comment deletion (author-checked in the service)
		comments := api.Group("/comments")
		comments.Use(middleware.RequireAuth())
		{
			comments.DELETE("/:id", commentHandler.DeleteComment)
		}

		// Notifications (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}

		// Activity (protected)
		activity := api.Group("/activity")
		activity.Use(middleware.RequireAuth())
		{
			activity.GET("/me", activityHandler.MyActivity)
			activity.GET("/summary", activityHandler.Summary)
		}
	}

	// Start server
	addr := ":" + cfg.ServerPort
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
