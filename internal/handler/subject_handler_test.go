package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubjectListPassesQuery(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/subjects?q=net", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "net", deps.subjects.lastQuery)
	assert.Len(t, decodeEnvelope(t, w)["data"], 1)
}

func TestSubjectUpdateCode(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPatch, "/api/v1/subjects/s1", "student-token", map[string]string{"code": "CS1"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Nil(t, deps.subjects.updated)

	w = doJSON(router, http.MethodPatch, "/api/v1/subjects/s1", "admin-token", map[string]string{"code": "CS1"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, deps.subjects.updated)
	assert.Equal(t, "CS1", *deps.subjects.updated.Code)

	w = doJSON(router, http.MethodPatch, "/api/v1/subjects/zz", "admin-token", map[string]string{"code": "CS1"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodPatch, "/api/v1/subjects/s1", "admin-token", "{")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
