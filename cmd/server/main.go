package main

import (
	"log"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/mwrueen/offtix-back/internal/config"
	"github.com/mwrueen/offtix-back/internal/database"
	"github.com/mwrueen/offtix-back/internal/handlers"
	"github.com/mwrueen/offtix-back/internal/middleware"
	"github.com/mwrueen/offtix-back/internal/realtime"
	"github.com/mwrueen/offtix-back/internal/repository"
	"github.com/mwrueen/offtix-back/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

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

	// Initialize Gin router
	r := gin.Default()

	// Setup session middleware with Redis
	redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
	store, err := redisStore.NewStore(
		10,        // Redis pool size
		"tcp",     // network type
		redisAddr, // Redis address from config
		"",        // username (empty for default user)
		"",        // password (empty = no password)
		[]byte(cfg.SessionSecret), // authentication key
	)
	if err != nil {
		log.Fatalf("Failed to create Redis store: %v", err)
	}
	// Configure session options based on environment
	isProduction := cfg.GinMode == "release"
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: 2, // SameSite=Lax (1=Strict, 2=Lax, 3=None)
	})
	r.Use(sessions.Sessions("offtix_session", store))

	db := database.GetDB()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	taskRoleRepo := repository.NewTaskRoleRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	invitationRepo := repository.NewInvitationRepository(db)

	// Realtime hub for notification delivery
	hub := realtime.NewHub()

	// Initialize AI service
	var aiService *services.AIService
	if cfg.OpenAIAPIKey != "" {
		aiService = services.NewAIService(cfg.OpenAIAPIKey)
	}

	// Services
	permissionService := services.NewPermissionService(companyRepo, projectRepo)
	notificationService := services.NewNotificationService(notificationRepo, hub)
	authService := services.NewAuthService(userRepo)
	companyService := services.NewCompanyService(companyRepo, userRepo, permissionService, notificationService)
	projectService := services.NewProjectService(projectRepo, userRepo, permissionService, notificationService)
	taskService := services.NewTaskService(taskRepo, projectRepo, userRepo, permissionService)
	taskRoleService := services.NewTaskRoleService(taskRoleRepo, userRepo, permissionService, aiService)
	workflowService := services.NewWorkflowService(taskRepo, taskRoleRepo, userRepo, permissionService, notificationService)
	invitationService := services.NewInvitationService(invitationRepo, companyRepo, userRepo, permissionService, notificationService)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	companyHandler := handlers.NewCompanyHandler(companyService, permissionService)
	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService, workflowService)
	taskRoleHandler := handlers.NewTaskRoleHandler(taskRoleService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, hub)
	invitationHandler := handlers.NewInvitationHandler(invitationService)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Offtix API is running",
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
			auth.GET("/me", middleware.RequireAuth(), middleware.LoadUser(), authHandler.GetCurrentUser)
		}

		// Company routes (protected)
		companies := api.Group("/companies")
		companies.Use(middleware.RequireAuth(), middleware.LoadUser())
		{
			companies.POST("", companyHandler.CreateCompany)
			companies.GET("", companyHandler.ListCompanies)
			companies.GET("/:id", companyHandler.GetCompany)
			companies.GET("/:id/permissions", companyHandler.GetMyPermissions)
			companies.GET("/:id/employees", companyHandler.ListEmployees)
			companies.POST("/:id/employees", companyHandler.AddMember)
			companies.PATCH("/:id/employees/:userId/salary", companyHandler.UpdateMemberSalary)
			companies.PATCH("/:id/employees/:userId/designation", companyHandler.UpdateMemberDesignation)
			companies.DELETE("/:id/employees/:userId", companyHandler.RemoveMember)
			companies.POST("/:id/designations", companyHandler.AddDesignation)
			companies.PATCH("/:id/designations/:designationId", companyHandler.UpdateDesignationPermissions)
			companies.DELETE("/:id/designations/:designationId", companyHandler.DeleteDesignation)
			companies.PUT("/:id/settings", companyHandler.UpdateSettings)
			companies.POST("/:id/holidays", companyHandler.AddHoliday)
			companies.DELETE("/:id/holidays/:holidayId", companyHandler.RemoveHoliday)
			companies.POST("/:id/invitations", invitationHandler.SendInvitation)
			companies.GET("/:id/invitations", invitationHandler.ListCompanyInvitations)
		}

		// Invitation routes addressed to the current user (protected)
		invitations := api.Group("/invitations")
		invitations.Use(middleware.RequireAuth(), middleware.LoadUser())
		{
			invitations.GET("", invitationHandler.ListMyInvitations)
			invitations.POST("/:token/accept", invitationHandler.AcceptInvitation)
			invitations.POST("/:token/decline", invitationHandler.DeclineInvitation)
		}

		// Project routes (protected)
		projects := api.Group("/projects")
		projects.Use(middleware.RequireAuth(), middleware.LoadUser())
		{
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PUT("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
			projects.POST("/:id/members", projectHandler.AddMember)
			projects.DELETE("/:id/members/:userId", projectHandler.RemoveMember)
			projects.GET("/:id/statuses", projectHandler.ListStatuses)
			projects.GET("/:id/tasks", taskHandler.ListTasks)
			projects.GET("/:id/roles", taskRoleHandler.ListRoles)
			projects.POST("/:id/roles", taskRoleHandler.CreateRole)
			projects.PUT("/:id/roles/reorder", taskRoleHandler.ReorderRoles)
			projects.POST("/:id/roles/initialize", taskRoleHandler.InitializeDefaultRoles)
			projects.POST("/:id/roles/suggest", taskRoleHandler.SuggestRoles)
			projects.PUT("/:id/roles/:roleId", taskRoleHandler.UpdateRole)
			projects.DELETE("/:id/roles/:roleId", taskRoleHandler.DeleteRole)
		}

		// Task routes (protected)
		tasks := api.Group("/tasks")
		tasks.Use(middleware.RequireAuth(), middleware.LoadUser())
		{
			tasks.POST("", taskHandler.CreateTask)
			tasks.GET("/:id", taskHandler.GetTask)
			tasks.PATCH("/:id", taskHandler.UpdateTask)
			tasks.DELETE("/:id", taskHandler.DeleteTask)
			tasks.GET("/:id/can-transition", taskHandler.CanTransition)
			tasks.PUT("/:id/role-assignments", taskHandler.UpdateRoleAssignments)
			tasks.POST("/:id/workflow/start", taskHandler.StartWorkflow)
			tasks.POST("/:id/workflow/complete", taskHandler.CompleteRole)
			tasks.POST("/:id/workflow/skip", taskHandler.SkipRole)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(middleware.RequireAuth(), middleware.LoadUser())
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.GET("/subscribe", notificationHandler.Subscribe)
			notifications.PATCH("/:id/read", notificationHandler.MarkRead)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
		}
	}

	// Start server
	log.Printf("Server starting on %s", cfg.ServerAddr)
	if err := r.Run(cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
