package server

import (
	"time"

	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/auth"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/dependency"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func SetupRoutes(deps *dependency.Manager) {
	router := deps.Router
	router.Use(enableCORS)

	setupHealthEndpoint(deps)
	setupAPIRoutes(router, deps)
}

func setupHealthEndpoint(deps *dependency.Manager) {
	router := deps.Router
	mongodb := deps.Mongodb
	redisClient := deps.Redis
	cfg := deps.Config

	router.GET("/health", func(c *gin.Context) {
		log.Info("Health check endpoint requested")

		mongoStatus := "ok"
		if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
			mongoStatus = "error: " + err.Error()
		}

		redisStatus := "ok"
		if err := redisClient.Client.Ping(c.Request.Context()).Err(); err != nil {
			redisStatus = "error: " + err.Error()
		}

		c.JSON(200, gin.H{
			"status":    "ok",
			"service":   cfg.App.Name,
			"version":   cfg.App.Version,
			"mongodb":   mongoStatus,
			"redis":     redisStatus,
			"timestamp": time.Now().UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	})

	router.GET("health/detailed", func(c *gin.Context) {
		log.Info("Detailed health check endpoint requested")

		c.JSON(200, gin.H{
			"status":  "operational",
			"service": cfg.App.Name,
			"version": cfg.App.Version,
			"components": gin.H{
				"database": gin.H{
					"mongodb": getStatus(isMongoConnected(mongodb, c)),
					"redis":   getStatus(isRedisConnected(redisClient.Client, c)),
				},
				"services": gin.H{
					"auth":       "operational",
					"attendance": "operational",
					"cache":      "operational",
				},
			},
		})
	})
}

func setupAPIRoutes(router *gin.Engine, deps *dependency.Manager) {
	authMiddleware := middleware.NewAuthMiddleware(deps.Config.Security.JwtKey)
	requireAuth := authMiddleware.RequireAuth()
	staffOnly := authMiddleware.RequireRole(auth.RoleAdmin, auth.RolePastor, auth.RoleLeader)
	adminOnly := authMiddleware.RequireRole(auth.RoleAdmin)

	api := router.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login",
			setRouteName("login"),
			deps.AuthHandler.Login)
		authGroup.POST("/register",
			setRouteName("register"),
			requireAuth, adminOnly,
			deps.AuthHandler.Register)
		// refresh verifies the token's signature itself so an expired
		// token can still be renewed
		authGroup.POST("/refresh",
			setRouteName("refreshToken"),
			deps.AuthHandler.RefreshToken)
		authGroup.GET("/profile",
			setRouteName("getProfile"),
			requireAuth,
			deps.AuthHandler.GetProfile)
		authGroup.PUT("/profile",
			setRouteName("updateProfile"),
			requireAuth,
			deps.AuthHandler.UpdateProfile)
		authGroup.PUT("/change-password",
			setRouteName("changePassword"),
			requireAuth,
			deps.AuthHandler.ChangePassword)
	}

	members := api.Group("/members", requireAuth)
	{
		members.POST("",
			setRouteName("createMember"),
			staffOnly,
			deps.MemberHandler.CreateMember)
		members.GET("",
			setRouteName("getMembers"),
			deps.MemberHandler.GetMembers)
		members.GET("/:id",
			setRouteName("getMemberById"),
			deps.MemberHandler.GetMemberByID)
		members.PUT("/:id",
			setRouteName("updateMember"),
			staffOnly,
			deps.MemberHandler.UpdateMember)
		members.DELETE("/:id",
			setRouteName("deleteMember"),
			adminOnly,
			deps.MemberHandler.DeleteMember)
	}

	cells := api.Group("/cells", requireAuth)
	{
		cells.POST("",
			setRouteName("createCell"),
			staffOnly,
			deps.CellHandler.CreateCell)
		cells.GET("",
			setRouteName("getCells"),
			deps.CellHandler.GetCells)
		cells.GET("/:id",
			setRouteName("getCellById"),
			deps.CellHandler.GetCellByID)
	}

	sessions := api.Group("/sessions", requireAuth)
	{
		sessions.POST("",
			setRouteName("createSession"),
			staffOnly,
			deps.SessionHandler.CreateSession)
		sessions.GET("",
			setRouteName("getSessions"),
			deps.SessionHandler.GetSessions)
		sessions.GET("/:id",
			setRouteName("getSessionById"),
			deps.SessionHandler.GetSessionByID)
		sessions.PUT("/:id",
			setRouteName("updateSession"),
			staffOnly,
			deps.SessionHandler.UpdateSession)
		sessions.PATCH("/:id/close",
			setRouteName("closeSession"),
			staffOnly,
			deps.SessionHandler.CloseSession)
	}

	qr := api.Group("/qr", requireAuth)
	{
		qr.POST("/generate/:memberId",
			setRouteName("generateQRCode"),
			staffOnly,
			deps.QRTokenHandler.GenerateQRCode)
		qr.POST("/generate-batch",
			setRouteName("generateBatchQRCodes"),
			staffOnly,
			deps.QRTokenHandler.GenerateBatchQRCodes)
		qr.GET("/active/:memberId",
			setRouteName("getActiveQRCodes"),
			deps.QRTokenHandler.GetActiveQRCodes)
		qr.POST("/validate",
			setRouteName("validateQRCode"),
			deps.QRTokenHandler.ValidateQRCode)
		qr.DELETE("/revoke/:tokenId",
			setRouteName("revokeQRCode"),
			authMiddleware.RequireRole(auth.RoleAdmin, auth.RoleLeader),
			deps.QRTokenHandler.RevokeQRCode)
		qr.GET("/stats",
			setRouteName("getQRCodeStats"),
			deps.QRTokenHandler.GetQRCodeStats)
	}

	attendanceGroup := api.Group("/attendance", requireAuth)
	{
		attendanceGroup.POST("/scan",
			setRouteName("scanQRCode"),
			deps.AttendanceHandler.ScanQRCode)
		attendanceGroup.POST("/manual",
			setRouteName("recordManualAttendance"),
			staffOnly,
			deps.AttendanceHandler.RecordManualAttendance)
		attendanceGroup.GET("",
			setRouteName("getAttendance"),
			deps.AttendanceHandler.GetAttendance)
		attendanceGroup.GET("/session/:sessionId",
			setRouteName("getSessionAttendance"),
			deps.AttendanceHandler.GetSessionAttendance)
		attendanceGroup.PUT("/:id",
			setRouteName("updateAttendance"),
			staffOnly,
			deps.AttendanceHandler.UpdateAttendance)
		attendanceGroup.DELETE("/:id",
			setRouteName("deleteAttendance"),
			adminOnly,
			deps.AttendanceHandler.DeleteAttendance)
	}

	dashboardGroup := api.Group("/dashboard", requireAuth)
	{
		dashboardGroup.GET("/summary",
			setRouteName("getDashboardSummary"),
			deps.DashboardHandler.GetSummary)
		dashboardGroup.GET("/analytics",
			setRouteName("getDashboardAnalytics"),
			deps.DashboardHandler.GetAnalytics)
		dashboardGroup.GET("/member/:memberId",
			setRouteName("getMemberDashboard"),
			deps.DashboardHandler.GetMemberDashboard)
	}

	exportGroup := api.Group("/export", requireAuth, staffOnly)
	{
		exportGroup.GET("/attendance",
			setRouteName("exportAttendance"),
			deps.ExportHandler.ExportAttendance)
		exportGroup.GET("/members",
			setRouteName("exportMembers"),
			deps.ExportHandler.ExportMembers)
		exportGroup.GET("/sessions",
			setRouteName("exportSessions"),
			deps.ExportHandler.ExportSessions)
		exportGroup.GET("/report",
			setRouteName("exportReport"),
			deps.ExportHandler.ExportReport)
	}
}

func setRouteName(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("route_name", name)
		c.Next()
	}
}

func isMongoConnected(mongodb *clients.MongoDB, c *gin.Context) bool {
	if err := mongodb.Client.Ping(c.Request.Context(), nil); err != nil {
		return false
	}
	return true
}

func isRedisConnected(redisClient *redis.Client, c *gin.Context) bool {
	if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
		return false
	}
	return true
}

func enableCORS(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if c.Request.Method == "OPTIONS" {
		c.AbortWithStatus(204)
		return
	}

	c.Next()
}

func getStatus(b bool) string {
	if b {
		return "connected"
	}
	return "disconnected"
}
