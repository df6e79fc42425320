package dependency

import (
	"github.com/Tkapesa/Necf-Attendance-System/src/clients"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/attendance"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/auth"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cache"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/cell"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/config"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/dashboard"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/export"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/member"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/qrtoken"
	"github.com/Tkapesa/Necf-Attendance-System/src/internal/session"
	"github.com/gin-gonic/gin"
)

type Manager struct {
	Router            *gin.Engine
	Config            *config.Configuration
	Mongodb           *clients.MongoDB
	Redis             *clients.RedisClient
	RabbitMQ          *clients.RabbitMQ
	Publisher         *clients.ActivityPublisher
	CacheService      cache.Service
	AuthHandler       auth.Handler
	MemberHandler     member.Handler
	CellHandler       cell.Handler
	SessionHandler    session.Handler
	QRTokenHandler    qrtoken.Handler
	AttendanceHandler attendance.Handler
	DashboardHandler  dashboard.Handler
	ExportHandler     export.Handler
}

func NewDependencyManager(router *gin.Engine,
	mongodb *clients.MongoDB,
	redisClient *clients.RedisClient,
	rabbitMQ *clients.RabbitMQ,
	cfg *config.Configuration) *Manager {
	cacheService := cache.NewCacheService(redisClient.Client, cfg)
	publisher := clients.NewActivityPublisher(cfg, rabbitMQ.Channel)

	collections := cfg.Database.Collections
	userRepo := auth.NewUserRepository(mongodb, collections.Users)
	memberRepo := member.NewMemberRepository(mongodb, collections.Members)
	cellRepo := cell.NewCellRepository(mongodb, collections.Cells)
	sessionRepo := session.NewSessionRepository(mongodb, collections.Sessions)
	tokenRepo := qrtoken.NewTokenRepository(mongodb, collections.QRTokens)
	attendanceRepo := attendance.NewAttendanceRepository(mongodb, collections.Attendance, collections.Members)

	attendanceSource := attendance.NewMemberAttendanceSource(attendanceRepo, sessionRepo)

	authService := auth.NewAuthService(userRepo, cfg)
	memberService := member.NewMemberService(memberRepo, cellRepo, cfg)
	cellService := cell.NewCellService(cellRepo)
	sessionService := session.NewSessionService(sessionRepo, cfg)
	renderer := qrtoken.NewPNGRenderer(cfg.QRCode.ImageSize)
	tokenService := qrtoken.NewTokenService(tokenRepo, memberRepo, renderer, cfg)
	attendanceService := attendance.NewAttendanceService(attendanceRepo, memberRepo, sessionRepo, tokenRepo, cfg)
	dashboardService := dashboard.NewDashboardService(memberRepo, cellRepo, sessionRepo, attendanceRepo, tokenRepo, attendanceSource)
	exportService := export.NewExportService(attendanceRepo, memberRepo, sessionRepo, cellRepo)

	return &Manager{
		Router:            router,
		Config:            cfg,
		Mongodb:           mongodb,
		Redis:             redisClient,
		RabbitMQ:          rabbitMQ,
		Publisher:         publisher,
		CacheService:      cacheService,
		AuthHandler:       auth.NewHandler(cfg, authService, publisher),
		MemberHandler:     member.NewHandler(cfg, memberService, attendanceSource),
		CellHandler:       cell.NewHandler(cfg, cellService),
		SessionHandler:    session.NewHandler(cfg, sessionService),
		QRTokenHandler:    qrtoken.NewHandler(cfg, tokenService, cacheService, publisher),
		AttendanceHandler: attendance.NewHandler(cfg, attendanceService, publisher),
		DashboardHandler:  dashboard.NewHandler(cfg, dashboardService, cacheService),
		ExportHandler:     export.NewHandler(cfg, exportService),
	}
}
