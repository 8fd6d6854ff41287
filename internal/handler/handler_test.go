package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/dto"
	"github.com/classsync/classsync-api/internal/models"
	"github.com/classsync/classsync-api/internal/service"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

type tokenStub struct{}

// ValidateToken accepts "admin-token" and "student-token".
func (tokenStub) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "admin-token":
		return &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}, nil
	case "student-token":
		return &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent}, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditStub struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (a *auditStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *auditStub) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []models.AuditLog{}
	for _, l := range a.logs {
		if filter.Resource == "" || l.Resource == filter.Resource {
			out = append(out, *l)
		}
	}
	return out, nil
}

type userStub struct {
	filter models.UserFilter
	actor  string
}

func (u *userStub) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	u.filter = filter
	return []models.User{}, &models.Pagination{Page: filter.Page, PageSize: 20}, nil
}

func (u *userStub) ListStudents(ctx context.Context) ([]models.StudentRef, error) {
	return []models.StudentRef{{ID: "s1", RollNumber: "21CS001"}}, nil
}

func (u *userStub) Get(ctx context.Context, id string) (*models.User, error) {
	return &models.User{ID: id, PasswordHash: "secret-hash"}, nil
}

func (u *userStub) CreateAdmin(ctx context.Context, req service.CreateAdminRequest, actorID string) (*models.User, error) {
	u.actor = actorID
	return &models.User{ID: "new-admin", Email: req.Email, Role: models.RoleAdmin}, nil
}

func (u *userStub) Update(ctx context.Context, id string, req models.UpdateUserRequest, actorID string) (*models.User, error) {
	u.actor = actorID
	return &models.User{ID: id}, nil
}

type attendanceStub struct {
	lastReq      models.BulkAttendanceRequest
	lastMarkedBy string
	lastStudent  string
	applyErr     error
}

func (s *attendanceStub) ApplyBulkAttendance(ctx context.Context, req models.BulkAttendanceRequest, markedBy string) (*dto.BulkAttendanceResult, error) {
	if s.applyErr != nil {
		return nil, s.applyErr
	}
	s.lastReq = req
	s.lastMarkedBy = markedBy
	present := 0
	for _, mark := range req.Marks {
		if mark.IsPresent {
			present++
		}
	}
	return &dto.BulkAttendanceResult{SessionID: "session-1", Subject: req.Subject, Processed: len(req.Marks), Present: present, Absent: len(req.Marks) - present}, nil
}

func (s *attendanceStub) MyAttendance(ctx context.Context, studentID string) (*dto.MyAttendanceResponse, error) {
	s.lastStudent = studentID
	return &dto.MyAttendanceResponse{StudentID: studentID, Subjects: []dto.SubjectAttendance{}}, nil
}

func (s *attendanceStub) SubjectReport(ctx context.Context, subject string) (*dto.SubjectReportResponse, error) {
	return &dto.SubjectReportResponse{Subject: subject, Rows: []dto.StudentAttendanceRow{}}, nil
}

func (s *attendanceStub) Roster(ctx context.Context) ([]dto.RosterEntry, error) {
	return []dto.RosterEntry{{StudentID: "student-1", RollNumber: "CS01", IsPresent: true}}, nil
}

func (s *attendanceStub) GetCounter(ctx context.Context, id string) (*dto.SubjectAttendance, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "counter not found")
}

func (s *attendanceStub) DeleteCounter(ctx context.Context, id string) error {
	return nil
}

func (s *attendanceStub) ListSessions(ctx context.Context, subject string, limit int) ([]models.AttendanceSession, error) {
	return []models.AttendanceSession{}, nil
}

type exportStub struct {
	lastFormat service.ExportFormat
}

func (s *exportStub) ExportSubjectAttendance(ctx context.Context, subject string, format service.ExportFormat) (*service.ExportFile, error) {
	s.lastFormat = format
	return &service.ExportFile{Filename: subject + ".csv", ContentType: "text/csv", Data: []byte("roll,name\n")}, nil
}

func (s *exportStub) ExportMonthlyStats(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error) {
	s.lastFormat = format
	return &service.ExportFile{Filename: "monthly.csv", ContentType: "text/csv", Data: []byte("month\n")}, nil
}

type monthlyStub struct {
	currentCalls int
	computed     [2]int
}

func (s *monthlyStub) Compute(ctx context.Context, year, month int) (*dto.MonthlyStatsResponse, error) {
	s.computed = [2]int{year, month}
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	return &dto.MonthlyStatsResponse{Year: year, Month: month}, nil
}

func (s *monthlyStub) ComputeCurrent(ctx context.Context) (*dto.MonthlyStatsResponse, error) {
	s.currentCalls++
	return &dto.MonthlyStatsResponse{Year: 2026, Month: 10, ComputedAt: time.Now()}, nil
}

func (s *monthlyStub) Save(ctx context.Context, req models.SaveMonthlyStatRequest) (*models.MonthlyStat, error) {
	return &models.MonthlyStat{ID: "stat-1"}, nil
}

func (s *monthlyStub) SaveComputed(ctx context.Context, year, month int, notes *string) (*models.MonthlyStat, error) {
	return &models.MonthlyStat{ID: "stat-2"}, nil
}

func (s *monthlyStub) List(ctx context.Context) ([]models.MonthlyStat, error) {
	return []models.MonthlyStat{}, nil
}

func (s *monthlyStub) Delete(ctx context.Context, id string) error {
	return nil
}

type noticeStub struct {
	created []models.CreateNoticeRequest
	page    int
	size    int
}

func (s *noticeStub) List(ctx context.Context, page, size int) ([]models.Notice, *models.Pagination, error) {
	s.page, s.size = page, size
	return []models.Notice{}, &models.Pagination{Page: page, PageSize: size}, nil
}

func (s *noticeStub) Create(ctx context.Context, req models.CreateNoticeRequest, authorID string) (*models.Notice, error) {
	s.created = append(s.created, req)
	return &models.Notice{ID: "notice-1", Title: req.Title, CreatedBy: authorID}, nil
}

func (s *noticeStub) Delete(ctx context.Context, id string) error {
	return nil
}

type pollStub struct {
	voter    string
	position int
	closed   *bool
}

func (s *pollStub) List(ctx context.Context, userID string) ([]models.Poll, error) {
	return []models.Poll{}, nil
}

func (s *pollStub) Create(ctx context.Context, req models.CreatePollRequest, authorID string) (*models.Poll, error) {
	return &models.Poll{ID: "poll-1", Question: req.Question}, nil
}

func (s *pollStub) Vote(ctx context.Context, pollID, userID string, req models.VotePollRequest) (*models.Poll, error) {
	s.voter = userID
	if req.Position != nil {
		s.position = *req.Position
	}
	return &models.Poll{ID: pollID, MyVote: req.Position}, nil
}

func (s *pollStub) SetClosed(ctx context.Context, id string, closed bool) error {
	s.closed = &closed
	return nil
}

func (s *pollStub) Delete(ctx context.Context, id string) error {
	return nil
}

type assignmentStub struct {
	upcoming bool
	subject  string
}

func (s *assignmentStub) List(ctx context.Context, subject string, upcomingOnly bool) ([]models.Assignment, error) {
	s.subject, s.upcoming = subject, upcomingOnly
	return []models.Assignment{}, nil
}

func (s *assignmentStub) Create(ctx context.Context, req models.CreateAssignmentRequest, authorID string) (*models.Assignment, error) {
	return &models.Assignment{ID: "assignment-1", Title: req.Title}, nil
}

func (s *assignmentStub) Delete(ctx context.Context, id string) error {
	return nil
}

type resourceStub struct {
	limit    int64
	uploaded *models.UploadResourceRequest
	file     *os.File
	resource *models.Resource
}

func (s *resourceStub) MaxFileSize() int64 { return s.limit }

func (s *resourceStub) List(ctx context.Context, subject string) ([]models.Resource, error) {
	return []models.Resource{}, nil
}

func (s *resourceStub) CreateLink(ctx context.Context, req models.CreateLinkResourceRequest, authorID string) (*models.Resource, error) {
	return &models.Resource{ID: "res-1", Kind: models.ResourceKindLink, URL: &req.URL}, nil
}

func (s *resourceStub) Upload(ctx context.Context, req models.UploadResourceRequest, authorID string) (*models.Resource, error) {
	s.uploaded = &req
	return &models.Resource{ID: "res-2", Kind: models.ResourceKindFile, FileName: &req.FileName}, nil
}

func (s *resourceStub) DownloadURL(ctx context.Context, id, baseURL string) (*models.ResourceDownload, error) {
	return &models.ResourceDownload{URL: baseURL + "/token"}, nil
}

func (s *resourceStub) Open(ctx context.Context, token string) (*os.File, *models.Resource, error) {
	if s.file == nil || token != "good" {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	return s.file, s.resource, nil
}

func (s *resourceStub) Delete(ctx context.Context, id string) error {
	return nil
}

type configurationStub struct {
	lastReq   models.UpdateConfigurationRequest
	lastActor string
	updateErr error
}

func (m *configurationStub) List(ctx context.Context) ([]dto.ConfigurationItem, error) {
	return []dto.ConfigurationItem{{Key: "class.name", Value: "ClassSync", Type: "STRING"}}, nil
}

func (m *configurationStub) Get(ctx context.Context, key string) (*dto.ConfigurationItem, error) {
	if key != "class.name" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "configuration not found")
	}
	return &dto.ConfigurationItem{Key: key, Value: "ClassSync", Type: "STRING"}, nil
}

func (m *configurationStub) Update(ctx context.Context, req models.UpdateConfigurationRequest, actorID string) ([]dto.ConfigurationItem, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	m.lastReq = req
	m.lastActor = actorID
	return []dto.ConfigurationItem{}, nil
}

func (m *configurationStub) Reset(ctx context.Context, key, actorID string) (*dto.ConfigurationItem, error) {
	m.lastActor = actorID
	return &dto.ConfigurationItem{Key: key, Value: "ClassSync", Type: "STRING", Default: true}, nil
}

type authStub struct {
	lastMeta   models.ClientMeta
	lastUser   string
	lastToken  string
	refreshErr error
}

func (a *authStub) Login(ctx context.Context, req models.LoginRequest, meta models.ClientMeta) (*models.LoginResponse, error) {
	a.lastMeta = meta
	return &models.LoginResponse{TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"}, User: models.UserInfo{Email: req.Email}}, nil
}

func (a *authStub) Register(ctx context.Context, req models.RegisterRequest, meta models.ClientMeta) (*models.LoginResponse, error) {
	a.lastMeta = meta
	return &models.LoginResponse{User: models.UserInfo{Email: req.Email, RollNumber: req.RollNumber}}, nil
}

func (a *authStub) Refresh(ctx context.Context, req models.RefreshTokenRequest, meta models.ClientMeta) (*models.TokenPair, error) {
	if a.refreshErr != nil {
		return nil, a.refreshErr
	}
	a.lastToken = req.RefreshToken
	return &models.TokenPair{AccessToken: "access-2", RefreshToken: "refresh-2"}, nil
}

func (a *authStub) Logout(ctx context.Context, userID, refreshToken string, meta models.ClientMeta) error {
	a.lastUser, a.lastToken = userID, refreshToken
	return nil
}

func (a *authStub) LogoutAll(ctx context.Context, userID string, meta models.ClientMeta) (int64, error) {
	a.lastUser = userID
	return 3, nil
}

func (a *authStub) Sessions(ctx context.Context, userID string) ([]models.RefreshSession, error) {
	return []models.RefreshSession{{ID: "s1", UserID: userID, TokenHash: "secret-hash"}}, nil
}

func (a *authStub) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	a.lastUser = userID
	return nil
}

func (a *authStub) Me(ctx context.Context, userID string) (*models.UserInfo, error) {
	return &models.UserInfo{ID: userID}, nil
}

type subjectStub struct {
	lastQuery string
	updated   *models.UpdateSubjectRequest
}

func (s *subjectStub) List(ctx context.Context, query string) ([]models.Subject, error) {
	s.lastQuery = query
	return []models.Subject{{ID: "s1", Name: "Networks"}}, nil
}

func (s *subjectStub) Create(ctx context.Context, req models.CreateSubjectRequest) (*models.Subject, error) {
	return &models.Subject{ID: "s2", Name: req.Name, Code: req.Code}, nil
}

func (s *subjectStub) UpdateCode(ctx context.Context, id string, req models.UpdateSubjectRequest) (*models.Subject, error) {
	if id != "s1" {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
	}
	s.updated = &req
	return &models.Subject{ID: id, Name: "Networks", Code: req.Code}, nil
}

func (s *subjectStub) Delete(ctx context.Context, id string) error { return nil }

type testDeps struct {
	auth          *authStub
	attendance    *attendanceStub
	exports       *exportStub
	monthly       *monthlyStub
	notices       *noticeStub
	polls         *pollStub
	assignments   *assignmentStub
	resources     *resourceStub
	configuration *configurationStub
	subjects      *subjectStub
	users         *userStub
	audit         *auditStub
}

func newTestAPI(t *testing.T) (*gin.Engine, *testDeps) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	deps := &testDeps{
		auth:          &authStub{},
		attendance:    &attendanceStub{},
		exports:       &exportStub{},
		monthly:       &monthlyStub{},
		notices:       &noticeStub{},
		polls:         &pollStub{},
		assignments:   &assignmentStub{},
		resources:     &resourceStub{limit: 32},
		configuration: &configurationStub{},
		subjects:      &subjectStub{},
		users:         &userStub{},
		audit:         &auditStub{},
	}
	router := gin.New()
	RegisterRoutes(router.Group("/api/v1"), Handlers{
		Auth:          NewAuthHandler(deps.auth),
		Attendance:    NewAttendanceHandler(deps.attendance, deps.exports),
		Calendar:      NewCalendarHandler(nil, nil, deps.monthly, deps.exports),
		Board:         NewBoardHandler(deps.notices, deps.polls, deps.assignments),
		Resources:     NewResourceHandler(deps.resources, "http://localhost/api/v1/downloads"),
		Configuration: NewConfigurationHandler(deps.configuration),
		Subjects:      NewSubjectHandler(deps.subjects),
		Users:         NewUserHandler(deps.users),
		Audit:         NewAuditHandler(deps.audit, time.UTC),
	}, RouterDeps{Tokens: tokenStub{}, Audit: deps.audit})
	return router, deps
}

func doJSON(router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, _ := json.Marshal(v)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
