package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/classsync/classsync-api/internal/middleware"
	"github.com/classsync/classsync-api/internal/models"
)

// Handlers groups every HTTP handler mounted under the API prefix.
type Handlers struct {
	Auth          *AuthHandler
	Users         *UserHandler
	AllowList     *AllowedStudentHandler
	Subjects      *SubjectHandler
	Attendance    *AttendanceHandler
	Calendar      *CalendarHandler
	Board         *BoardHandler
	Resources     *ResourceHandler
	Configuration *ConfigurationHandler
	Audit         *AuditHandler
	Metrics       *MetricsHandler
}

// RouterDeps carries the middleware dependencies for route registration.
type RouterDeps struct {
	Tokens middleware.TokenValidator
	Audit  middleware.AuditWriter
	Logger *zap.Logger
}

// RegisterRoutes mounts the API below group. Anything not under /auth
// requires a valid access token; writes to shared data are admin-only and audited.
func RegisterRoutes(group *gin.RouterGroup, h Handlers, deps RouterDeps) {
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, action, resource, deps.Logger)
	}

	auth := group.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/refresh", h.Auth.Refresh)
	// Download tokens are self-authenticating so links work from a browser tab.
	group.GET("/downloads/:token", h.Resources.Download)

	secured := group.Group("")
	secured.Use(middleware.JWT(deps.Tokens))
	secured.POST("/auth/logout", h.Auth.Logout)
	secured.POST("/auth/logout-all", h.Auth.LogoutAll)
	secured.GET("/auth/sessions", h.Auth.Sessions)
	secured.POST("/auth/change-password", h.Auth.ChangePassword)
	secured.GET("/auth/me", h.Auth.Me)

	// Reads available to every signed-in user.
	secured.GET("/subjects", h.Subjects.List)
	secured.GET("/timetable", h.Calendar.Timetable)
	secured.GET("/holidays", h.Calendar.ListHolidays)
	secured.GET("/monthly-stats", h.Calendar.ListMonthlyStats)
	secured.GET("/monthly-stats/compute", h.Calendar.ComputeMonthlyStats)
	secured.GET("/attendance/me", h.Attendance.Mine)
	secured.GET("/notices", h.Board.ListNotices)
	secured.GET("/polls", h.Board.ListPolls)
	secured.POST("/polls/:id/vote", middleware.RequireRoles(models.RoleStudent), h.Board.Vote)
	secured.GET("/assignments", h.Board.ListAssignments)
	secured.GET("/resources", h.Resources.List)
	secured.GET("/resources/:id/download-url", h.Resources.DownloadURL)
	secured.GET("/configuration", h.Configuration.List)
	secured.GET("/configuration/:key", h.Configuration.Get)

	admin := secured.Group("")
	admin.Use(middleware.AdminOnly())

	admin.GET("/users", h.Users.List)
	admin.POST("/users", audit(models.AuditActionCreate, "user"), h.Users.CreateAdmin)
	admin.GET("/users/:id", h.Users.Get)
	admin.PATCH("/users/:id", audit(models.AuditActionUpdate, "user"), h.Users.Update)
	admin.GET("/students", h.Users.Students)

	admin.GET("/allowed-students", h.AllowList.List)
	admin.POST("/allowed-students", audit(models.AuditActionCreate, "allowed_student"), h.AllowList.Create)
	admin.DELETE("/allowed-students/:id", audit(models.AuditActionDelete, "allowed_student"), h.AllowList.Delete)

	admin.POST("/subjects", audit(models.AuditActionCreate, "subject"), h.Subjects.Create)
	admin.PATCH("/subjects/:id", audit(models.AuditActionUpdate, "subject"), h.Subjects.UpdateCode)
	admin.DELETE("/subjects/:id", audit(models.AuditActionDelete, "subject"), h.Subjects.Delete)

	admin.GET("/attendance/roster", h.Attendance.Roster)
	admin.POST("/attendance/sessions", audit(models.AuditActionAttendanceMark, "attendance"), h.Attendance.Submit)
	admin.GET("/attendance/sessions", h.Attendance.Sessions)
	admin.GET("/attendance/students/:id", h.Attendance.Student)
	admin.GET("/attendance/subjects/:subject", h.Attendance.SubjectReport)
	admin.GET("/attendance/subjects/:subject/export", h.Attendance.ExportSubject)
	admin.GET("/attendance/counters/:id", h.Attendance.GetCounter)
	admin.DELETE("/attendance/counters/:id", audit(models.AuditActionDelete, "attendance_counter"), h.Attendance.DeleteCounter)

	admin.POST("/holidays", audit(models.AuditActionCreate, "holiday"), h.Calendar.CreateHoliday)
	admin.DELETE("/holidays/:id", audit(models.AuditActionDelete, "holiday"), h.Calendar.DeleteHoliday)
	admin.PUT("/timetable/:day", audit(models.AuditActionUpdate, "timetable"), h.Calendar.UpsertTimetableDay)
	admin.DELETE("/timetable/:day", audit(models.AuditActionDelete, "timetable"), h.Calendar.DeleteTimetableDay)
	admin.POST("/monthly-stats", audit(models.AuditActionCreate, "monthly_stats"), h.Calendar.SaveMonthlyStats)
	admin.DELETE("/monthly-stats/:id", audit(models.AuditActionDelete, "monthly_stats"), h.Calendar.DeleteMonthlyStats)
	admin.GET("/monthly-stats/export", h.Calendar.ExportMonthlyStats)

	admin.POST("/notices", audit(models.AuditActionCreate, "notice"), h.Board.CreateNotice)
	admin.DELETE("/notices/:id", audit(models.AuditActionDelete, "notice"), h.Board.DeleteNotice)
	admin.POST("/polls", audit(models.AuditActionCreate, "poll"), h.Board.CreatePoll)
	admin.PUT("/polls/:id/status", audit(models.AuditActionUpdate, "poll"), h.Board.SetPollClosed)
	admin.DELETE("/polls/:id", audit(models.AuditActionDelete, "poll"), h.Board.DeletePoll)
	admin.POST("/assignments", audit(models.AuditActionCreate, "assignment"), h.Board.CreateAssignment)
	admin.DELETE("/assignments/:id", audit(models.AuditActionDelete, "assignment"), h.Board.DeleteAssignment)

	admin.POST("/resources/links", audit(models.AuditActionCreate, "resource"), h.Resources.CreateLink)
	admin.POST("/resources/files", audit(models.AuditActionCreate, "resource"), h.Resources.Upload)
	admin.DELETE("/resources/:id", audit(models.AuditActionDelete, "resource"), h.Resources.Delete)

	admin.PUT("/configuration", audit(models.AuditActionUpdate, "configuration"), h.Configuration.Update)
	admin.GET("/audit-logs", h.Audit.List)
	admin.DELETE("/configuration/:key", audit(models.AuditActionDelete, "configuration"), h.Configuration.Reset)

	if h.Metrics != nil {
		admin.GET("/metrics/summary", h.Metrics.Summary)
	}
}
