package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/classsync/classsync-api/pkg/errors"
)

func TestConfigurationHandlerUpdate(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPut, "/api/v1/configuration", "admin-token",
		`{"items":[{"key":"class.name","value":"CSE-A"},{"key":"notifications.notices","value":"false"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, deps.configuration.lastReq.Items, 2)
	assert.Equal(t, "CSE-A", deps.configuration.lastReq.Items[0].Value)
	assert.Equal(t, "admin-1", deps.configuration.lastActor)
}

func TestConfigurationHandlerInvalidBody(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodPut, "/api/v1/configuration", "admin-token", `invalid`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, deps.configuration.lastActor)
}

func TestConfigurationHandlerServiceError(t *testing.T) {
	router, deps := newTestAPI(t)
	deps.configuration.updateErr = appErrors.Clone(appErrors.ErrValidation, "unknown configuration key")

	w := doJSON(router, http.MethodPut, "/api/v1/configuration", "admin-token", `{"items":[{"key":"nope","value":"1"}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, deps.audit.logs)
}

func TestConfigurationHandlerGet(t *testing.T) {
	router, _ := newTestAPI(t)

	w := doJSON(router, http.MethodGet, "/api/v1/configuration/class.name", "student-token", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/configuration/missing", "student-token", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfigurationHandlerResetIsAdminOnly(t *testing.T) {
	router, deps := newTestAPI(t)

	w := doJSON(router, http.MethodDelete, "/api/v1/configuration/class.name", "student-token", nil)
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(router, http.MethodDelete, "/api/v1/configuration/class.name", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin-1", deps.configuration.lastActor)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, true, data["isDefault"])
}
