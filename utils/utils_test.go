package utils

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDashlessUUID(t *testing.T) {
	uuid := GenerateDashlessUUID()

	assert.Len(t, uuid, 32)
	assert.False(t, strings.Contains(uuid, "-"), "Generated UUID should not contain dashes, got %s", uuid)
	assert.NotEqual(t, uuid, GenerateDashlessUUID())
}

// Helper function to create a test Gin context
func createTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/test", nil)
	return c, w
}

func TestGinError(t *testing.T) {
	c, w := createTestContext()

	GinError(c, http.StatusTeapot, "Generic error")

	assert.Equal(t, http.StatusTeapot, w.Code)
	var response APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Generic error", response.Error)
	assert.Empty(t, response.Code)
	assert.True(t, c.IsAborted(), "Context should be aborted")
}

func TestGinErrorCode(t *testing.T) {
	c, w := createTestContext()

	GinErrorCode(c, http.StatusConflict, "not_pending", "suggestion is not pending")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"suggestion is not pending","code":"not_pending"}`, w.Body.String())
}

func TestGinErrorHelpers(t *testing.T) {
	testCases := []struct {
		name       string
		helperFunc func(*gin.Context, string)
		wantStatus int
		wantCode   string
	}{
		{"BadRequest", GinBadRequest, http.StatusBadRequest, "validation"},
		{"Unauthorized", GinUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"Forbidden", GinForbidden, http.StatusForbidden, "forbidden"},
		{"NotFound", GinNotFound, http.StatusNotFound, "not_found"},
		{"InternalServerError", GinInternalServerError, http.StatusInternalServerError, "internal"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, w := createTestContext()
			tc.helperFunc(c, tc.name+" test")

			assert.Equal(t, tc.wantStatus, w.Code)
			var response APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tc.name+" test", response.Error)
			assert.Equal(t, tc.wantCode, response.Code)
			assert.True(t, c.IsAborted(), "Context should be aborted")
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", "json", &buf)

	logger.Info().Msg("hidden")
	logger.Warn().Str("environment_id", "env1").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"environment_id":"env1"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestNewLogger_UnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("chatty", "json", &buf)

	logger.Debug().Msg("debug line")
	logger.Info().Msg("info line")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line")
}
