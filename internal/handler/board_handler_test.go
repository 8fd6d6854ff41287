package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoardNoticePagination(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/notices?page=3&page_size=5", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, deps.notices.page)
	assert.Equal(t, 5, deps.notices.size)

	w = doJSON(router, http.MethodGet, "/api/v1/notices?page=x", "student-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardCreateNotice(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPost, "/api/v1/notices", "admin-token", `{"title":"Exam","content":"Monday","priority":"HIGH"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, deps.notices.created, 1)
	assert.Equal(t, "Exam", deps.notices.created[0].Title)

	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "admin-1", data["created_by"])
}

func TestBoardPollStatus(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPut, "/api/v1/polls/p1/status?closed=true", "admin-token", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	require.NotNil(t, deps.polls.closed)
	assert.True(t, *deps.polls.closed)

	w = doJSON(router, http.MethodPut, "/api/v1/polls/p1/status?closed=maybe", "admin-token", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBoardAssignmentsFilter(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/assignments?subject=Math&upcoming=true", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Math", deps.assignments.subject)
	assert.True(t, deps.assignments.upcoming)
}
