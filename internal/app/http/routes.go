package routes

import (
	adminapi "studio-app/internal/api/admin"
	announcementsapi "studio-app/internal/api/announcements"
	attendanceapi "studio-app/internal/api/attendance"
	authapi "studio-app/internal/api/auth"
	billingapi "studio-app/internal/api/billing"
	classesapi "studio-app/internal/api/classes"
	plansapi "studio-app/internal/api/plans"
	publicapi "studio-app/internal/api/public"
	settingsapi "studio-app/internal/api/settings"
	studentsapi "studio-app/internal/api/students"
	stripewebhooks "studio-app/internal/api/stripewebhook"
	"studio-app/internal/app/http/middleware"
	"studio-app/internal/infra/stripeclient"
	"studio-app/internal/reconcile"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Deps carries everything the route handlers need. Constructed once in main.
type Deps struct {
	DB       *gorm.DB
	Provider *stripeclient.Client
	Engine   *reconcile.Engine
	EnvPath  string
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	authH := authapi.NewHandler(deps.DB)
	studentsH := studentsapi.NewHandler(deps.DB)
	plansH := plansapi.NewHandler(deps.DB, deps.Provider)
	classesH := classesapi.NewHandler(deps.DB)
	attendanceH := attendanceapi.NewHandler(deps.DB)
	announcementsH := announcementsapi.NewHandler(deps.DB)
	billingH := billingapi.NewHandler(deps.DB, deps.Provider, deps.Engine)
	webhookH := stripewebhooks.NewHandler(deps.DB, deps.Provider, deps.Engine)
	publicH := publicapi.NewHandler(deps.DB, deps.Provider)
	settingsH := settingsapi.NewHandler(deps.EnvPath)
	adminH := adminapi.NewHandler(deps.DB)

	// Webhook stays outside the sanitizer: signature verification needs the
	// raw body byte for byte.
	r.POST("/webhook", webhookH.Handle)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/login", authH.Login)
	public.POST("/public/register-studio", publicH.RegisterStudio)
	public.GET("/plans", plansH.List)

	public.GET("/auth/google", authH.GoogleStart)
	public.GET("/auth/google/callback", authH.GoogleCallback)

	// Authenticated staff
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware())

	auth.GET("/me", authH.Me)
	auth.POST("/change-password", authH.ChangePassword)

	auth.POST("/students", studentsH.Create)
	auth.GET("/students", studentsH.List)
	auth.GET("/students/:id", studentsH.Get)
	auth.PUT("/students/:id", studentsH.Update)
	auth.DELETE("/students/:id", studentsH.Delete)

	auth.POST("/plans", plansH.Create)
	auth.GET("/plans/:id", plansH.Get)
	auth.PUT("/plans/:id", plansH.Update)
	auth.DELETE("/plans/:id", plansH.Delete)

	auth.POST("/classes", classesH.Create)
	auth.GET("/classes", classesH.List)
	auth.GET("/classes/:id", classesH.Get)
	auth.PUT("/classes/:id", classesH.Update)
	auth.DELETE("/classes/:id", classesH.Delete)

	auth.POST("/attendance", attendanceH.Mark)
	auth.POST("/attendance/bulk", attendanceH.MarkBulk)
	auth.GET("/attendance", attendanceH.ByClassAndDate)
	auth.GET("/students/:id/attendance", attendanceH.ByStudent)
	auth.POST("/absences", attendanceH.ReportAbsence)
	auth.GET("/absences", attendanceH.ListAbsences)
	auth.PATCH("/absences/:id", attendanceH.ReviewAbsence)

	auth.POST("/announcements", announcementsH.Create)
	auth.GET("/announcements", announcementsH.List)
	auth.PUT("/announcements/:id", announcementsH.Update)
	auth.DELETE("/announcements/:id", announcementsH.Delete)

	auth.POST("/stripe/subscriptions", billingH.CreateSubscription)
	auth.PATCH("/stripe/subscriptions/:id", billingH.ChangePlan)
	auth.DELETE("/stripe/subscriptions/:id", billingH.CancelSubscription)
	auth.GET("/students/:id/subscription", billingH.GetStudentSubscription)
	auth.GET("/stripe/payments", billingH.ListPayments)
	auth.GET("/stripe/invoices", billingH.ListInvoices)
	auth.GET("/stripe/invoices/:id/pdf", billingH.InvoicePDF)

	// Admin only
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/stats", adminH.Stats)
	admin.GET("/students/:id", adminH.StudentDetail)
	admin.POST("/sync-plans", plansH.SyncFromStripe)
	admin.GET("/settings", settingsH.Get)
	admin.PUT("/settings", settingsH.Update)
}
