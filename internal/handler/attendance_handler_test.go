package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classsync/classsync-api/internal/service"
	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

func TestAttendanceSubmit(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPost, "/api/v1/attendance/sessions", "admin-token",
		`{"subject":"Math","marks":[{"student_id":"s1","is_present":true},{"student_id":"s2","is_present":false}]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	assert.Equal(t, "Math", deps.attendance.lastReq.Subject)
	assert.Len(t, deps.attendance.lastReq.Marks, 2)
	assert.Equal(t, "admin-1", deps.attendance.lastMarkedBy)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(2), data["processed"])
	assert.Equal(t, float64(1), data["present"])
	assert.Equal(t, float64(1), data["absent"])
	require.Len(t, deps.audit.logs, 1)
}

func TestAttendanceSubmitInvalidBody(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPost, "/api/v1/attendance/sessions", "admin-token", `{"subject":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, deps.attendance.lastReq.Subject)
	assert.Empty(t, deps.audit.logs)
}

func TestAttendanceSubmitServiceError(t *testing.T) {
	router, deps := newTestAPI(t)
	deps.attendance.applyErr = appErrors.Clone(appErrors.ErrConflict, "attendance already recorded")

	w := doJSON(router, http.MethodPost, "/api/v1/attendance/sessions", "admin-token",
		`{"subject":"Math","marks":[{"student_id":"s1","is_present":true}]}`)
	require.Equal(t, http.StatusConflict, w.Code)

	errBody := decodeEnvelope(t, w)["error"].(map[string]interface{})
	assert.Equal(t, "CONFLICT", errBody["code"])
	assert.Empty(t, deps.audit.logs)
}

func TestAttendanceCounterNotFound(t *testing.T) {
	router, _ := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/attendance/counters/missing", "admin-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAttendanceExportSubject(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/attendance/subjects/Math/export", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormatCSV, deps.exports.lastFormat)
	assert.Equal(t, `attachment; filename=Math.csv`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "roll,name\n", w.Body.String())

	w = doJSON(router, http.MethodGet, "/api/v1/attendance/subjects/Math/export?format=xlsx", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMonthlyStatsCompute(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/monthly-stats/compute", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, deps.monthly.currentCalls)

	w = doJSON(router, http.MethodGet, "/api/v1/monthly-stats/compute?year=2026&month=2", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]int{2026, 2}, deps.monthly.computed)

	w = doJSON(router, http.MethodGet, "/api/v1/monthly-stats/compute?year=2026&month=13", "student-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/monthly-stats/compute?year=abc", "student-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
