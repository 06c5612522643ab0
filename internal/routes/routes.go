package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"telecare-server/internal/config"
	"telecare-server/internal/handlers"
	"telecare-server/internal/middleware"
	"telecare-server/internal/models"
	"telecare-server/internal/scheduling"
)

// SetupRoutes wires the scheduling core and registers all application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, loc *time.Location, log zerolog.Logger) {
	store := scheduling.NewStore(db)
	clock := scheduling.NewSystemClock(loc)

	resolver := scheduling.NewSlotResolver(store, store, store, clock, cfg.SlotMinutes)
	coordinator := scheduling.NewBookingCoordinator(store, store, store, store, clock, cfg.SlotMinutes, log)
	reminders := scheduling.NewReminderEngine(store, clock, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(db, resolver, coordinator, store, cfg.SlotDaysAhead, log)
	availabilityHandler := handlers.NewAvailabilityHandler(db)
	notificationHandler := handlers.NewNotificationHandler(db)
	cronHandler := handlers.NewCronHandler(reminders, log)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Scheduled jobs, guarded by the shared cron key rather than a JWT.
		cronRoutes := public.Group("/cron")
		cronRoutes.Use(middleware.CronKeyMiddleware(cfg))
		{
			cronRoutes.POST("/appointment-reminders", cronHandler.RunReminders)
			cronRoutes.GET("/appointment-reminders", cronHandler.RunReminders)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.Auth(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		{
			// Doctor directory, accessible to any authenticated user.
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RequireRole(models.RoleAdmin))
			{
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
			}
		}

		// Slot calendar for a doctor, browsed by patients before booking.
		private.GET("/doctors/:id/slots", appointmentHandler.GetDoctorSlots)

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", middleware.RequireRole(models.RolePatient), appointmentHandler.BookAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateStatus)
		}

		availabilityRoutes := private.Group("/availability")
		availabilityRoutes.Use(middleware.RequireRole(models.RoleDoctor))
		{
			availabilityRoutes.GET("", availabilityHandler.GetAvailability)
			availabilityRoutes.PUT("", availabilityHandler.SaveAvailability)
		}

		notificationRoutes := private.Group("/notifications")
		{
			notificationRoutes.GET("", notificationHandler.GetNotifications)
			notificationRoutes.PATCH("/:id/read", notificationHandler.MarkRead)
			notificationRoutes.PATCH("/read-all", notificationHandler.MarkAllRead)
			notificationRoutes.DELETE("/:id", notificationHandler.Dismiss)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
