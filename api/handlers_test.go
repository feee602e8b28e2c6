package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"lexshare/config"
	"lexshare/db"
	"lexshare/inflight"
	"lexshare/models"
	"lexshare/share"
	"lexshare/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testJWTSecret is a fixed secret for generating tokens during tests.
const testJWTSecret = "test-integration-secret-key-needs-to-be-long-enough"

type testServer struct {
	router *gin.Engine
	store  *db.Database
	guard  *inflight.MemoryGuard
	cfg    *config.Config
}

// setupTestServer builds the full router over a temporary file store.
func setupTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DbFilePath:    filepath.Join(t.TempDir(), "test_api_db.json"),
		SaveInterval:  time.Hour,
		JwtSecret:     testJWTSecret,
		TokenLifetime: time.Hour,
		BcryptCost:    4, // Minimum bcrypt cost for faster tests
		AdminEmails:   []string{"admin@example.com"},
	}
	store, err := db.NewDatabase(cfg)
	require.NoError(t, err, "Failed to initialize test database")
	t.Cleanup(func() { _ = store.Close() })

	guard := inflight.NewMemoryGuard(time.Minute)
	router := NewRouter(Deps{
		Service: share.NewService(store),
		Store:   store,
		Guard:   guard,
		Config:  cfg,
	})
	return &testServer{router: router, store: store, guard: guard, cfg: cfg}
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		panic(fmt.Sprintf("Failed to create request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// marshalJSONBody marshals data into a request body.
func marshalJSONBody(t *testing.T, data any) *bytes.Buffer {
	bodyBytes, err := json.Marshal(data)
	require.NoError(t, err, "Failed to marshal JSON body for request")
	return bytes.NewBuffer(bodyBytes)
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "body: %s", rr.Body.String())
	return out
}

// createTestUserAndLogin signs up and logs in a new user, returning the user's ID and token.
func createTestUserAndLogin(t *testing.T, router *gin.Engine, email string) (userID, token string) {
	signup := performRequest(router, http.MethodPost, "/auth/signup", marshalJSONBody(t, gin.H{
		"email":      email,
		"password":   "password123",
		"first_name": "Test",
		"last_name":  "User",
	}), "")
	require.Equal(t, http.StatusCreated, signup.Code, signup.Body.String())
	userID = decode[ProfileResponse](t, signup).ID

	login := performRequest(router, http.MethodPost, "/auth/login", marshalJSONBody(t, gin.H{
		"email":    email,
		"password": "password123",
	}), "")
	require.Equal(t, http.StatusOK, login.Code, "Login failed during test user creation")
	token = decode[LoginResponse](t, login).Token
	require.NotEmpty(t, token)
	return userID, token
}

func publishBody(title string, dossierIDs ...string) gin.H {
	dossiers := make([]gin.H, 0, len(dossierIDs))
	for _, id := range dossierIDs {
		dossiers = append(dossiers, gin.H{"id": id, "name": "Dossier " + id})
	}
	return gin.H{
		"title":    title,
		"category": "civil",
		"tags":     []string{"Contratti"},
		"content":  gin.H{"dossiers": dossiers},
	}
}

func publish(t *testing.T, router *gin.Engine, token, title string, dossierIDs ...string) share.EnvironmentView {
	rr := performRequest(router, http.MethodPost, "/shared-environments", marshalJSONBody(t, publishBody(title, dossierIDs...)), token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decode[share.EnvironmentView](t, rr)
}

func assertAPIError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) utils.APIError {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	body := decode[utils.APIError](t, rr)
	assert.Equal(t, code, body.Code)
	assert.NotEmpty(t, body.Error)
	return body
}

// --- Authentication Endpoint Tests ---

func TestAuthEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("Signup Success", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/signup", marshalJSONBody(t, gin.H{
			"email": "test.signup@example.com", "password": "password123", "first_name": "Test", "last_name": "Signup",
		}), "")
		assert.Equal(t, http.StatusCreated, rr.Code)

		var responseBody map[string]any
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &responseBody))
		assert.Equal(t, "test.signup@example.com", responseBody["email"])
		assert.Equal(t, false, responseBody["is_admin"])
		assert.NotContains(t, responseBody, "password_hash", "Password hash should not be in signup response")
	})

	t.Run("Signup Duplicate Email", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/signup", marshalJSONBody(t, gin.H{
			"email": "TEST.signup@example.com", "password": "anotherpassword", "first_name": "Dup", "last_name": "User",
		}), "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode[utils.APIError](t, rr).Error, "already exists")
	})

	t.Run("Signup Missing Fields", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/signup", marshalJSONBody(t, gin.H{
			"email": "missing.fields@example.com", "first_name": "Missing", "last_name": "Fields",
		}), "")
		body := assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
		assert.Equal(t, "is required", body.Fields["password"])
	})

	t.Run("Admin E-mail Gets Admin Flag", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/signup", marshalJSONBody(t, gin.H{
			"email": "Admin@Example.com", "password": "password123", "first_name": "Ada", "last_name": "Min",
		}), "")
		require.Equal(t, http.StatusCreated, rr.Code)
		assert.True(t, decode[ProfileResponse](t, rr).IsAdmin)
	})

	t.Run("Login And Me", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/login", marshalJSONBody(t, gin.H{
			"email": "test.signup@example.com", "password": "password123",
		}), "")
		require.Equal(t, http.StatusOK, rr.Code)
		token := decode[LoginResponse](t, rr).Token

		me := performRequest(ts.router, http.MethodGet, "/profiles/me", nil, token)
		require.Equal(t, http.StatusOK, me.Code)
		assert.Equal(t, "test.signup@example.com", decode[ProfileResponse](t, me).Email)

		logout := performRequest(ts.router, http.MethodPost, "/auth/logout", nil, token)
		assert.Equal(t, http.StatusNoContent, logout.Code)
	})

	t.Run("Login Invalid Password", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/login", marshalJSONBody(t, gin.H{
			"email": "test.signup@example.com", "password": "wrongpassword",
		}), "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Contains(t, decode[utils.APIError](t, rr).Error, "Invalid email or password")
	})

	t.Run("Login Invalid JSON", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email": "x"`), "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decode[utils.APIError](t, rr).Error, "Invalid request body")
	})
}

// --- Shared Environment Endpoint Tests ---

func TestEnvironmentEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	_, ownerToken := createTestUserAndLogin(t, ts.router, "owner@example.com")
	_, otherToken := createTestUserAndLogin(t, ts.router, "other@example.com")

	env := publish(t, ts.router, ownerToken, "Obbligazioni Civili", "d1", "d2", "d3")
	assert.Equal(t, 1, env.CurrentVersion)
	assert.True(t, env.IsOwner)
	assert.Equal(t, []string{"contratti"}, env.Tags)

	t.Run("Publish Requires Auth", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/shared-environments", marshalJSONBody(t, publishBody("Anonymous", "d1")), "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("Publish Validation", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/shared-environments", marshalJSONBody(t, publishBody("ab", "d1")), ownerToken)
		body := assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
		assert.Contains(t, body.Fields, "title")

		rr = performRequest(ts.router, http.MethodPost, "/shared-environments", marshalJSONBody(t, publishBody("No content")), ownerToken)
		body = assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
		assert.Contains(t, body.Fields, "content")
	})

	t.Run("Anonymous Get And List", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodGet, "/shared-environments/"+env.ID, nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[share.EnvironmentView](t, rr)
		assert.False(t, got.IsOwner)
		assert.Equal(t, 1, got.ViewCount)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments?tags=contratti&sort=popular", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, decode[share.ListResult](t, rr).Total)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments?page=92233720368547760&limit=100", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		far := decode[share.ListResult](t, rr)
		assert.Empty(t, far.Environments)
		assert.Equal(t, 1, far.Total)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments?page=0", nil, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		rr = performRequest(ts.router, http.MethodGet, "/shared-environments?sort=alphabetical", nil, "")
		assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
	})

	t.Run("Metadata Update", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPut, "/shared-environments/"+env.ID, marshalJSONBody(t, gin.H{"description": "Updated"}), ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[share.EnvironmentView](t, rr)
		assert.Equal(t, "Updated", got.Description)
		assert.Equal(t, 1, got.CurrentVersion)

		rr = performRequest(ts.router, http.MethodPut, "/shared-environments/"+env.ID, marshalJSONBody(t, gin.H{"description": "Mine now"}), otherToken)
		assertAPIError(t, rr, http.StatusForbidden, CodeNotOwner)

		rr = performRequest(ts.router, http.MethodPut, "/shared-environments/missing", marshalJSONBody(t, gin.H{"description": "x"}), ownerToken)
		assertAPIError(t, rr, http.StatusNotFound, CodeNotFound)
	})

	t.Run("Versioned Update And Restore", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPut, "/shared-environments/"+env.ID, marshalJSONBody(t, gin.H{
			"content":     gin.H{"dossiers": []gin.H{{"id": "d4"}}},
			"changelog":   "Only d4",
			"versionMode": "replace",
		}), ownerToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, 2, decode[share.EnvironmentView](t, rr).CurrentVersion)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments/"+env.ID+"/versions", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		versions := decode[[]struct {
			ID       string `json:"id"`
			Version  int    `json:"version"`
			Replaced bool   `json:"replaced"`
		}](t, rr)
		require.Len(t, versions, 2)
		assert.True(t, versions[0].Replaced)
		assert.False(t, versions[1].Replaced)

		rr = performRequest(ts.router, http.MethodPost, fmt.Sprintf("/shared-environments/%s/versions/%s/restore", env.ID, versions[0].ID), nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		restored := decode[share.EnvironmentView](t, rr)
		assert.Equal(t, 3, restored.CurrentVersion)
		assert.Len(t, restored.Content.Dossiers, 3)
	})

	t.Run("Withdraw Hides From Others", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rr := performRequest(ts.router, http.MethodPost, "/shared-environments/"+env.ID+"/withdraw", nil, ownerToken)
			require.Equal(t, http.StatusOK, rr.Code)
		}
		rr := performRequest(ts.router, http.MethodGet, "/shared-environments/"+env.ID, nil, otherToken)
		assertAPIError(t, rr, http.StatusNotFound, CodeNotFound)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments/my", nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		mine := decode[[]share.EnvironmentView](t, rr)
		require.Len(t, mine, 1)
		assert.False(t, mine[0].IsActive)

		rr = performRequest(ts.router, http.MethodPost, "/shared-environments/"+env.ID+"/republish", nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.True(t, decode[share.EnvironmentView](t, rr).IsActive)
	})

	t.Run("Delete", func(t *testing.T) {
		doomed := publish(t, ts.router, ownerToken, "Short lived", "d1")
		rr := performRequest(ts.router, http.MethodDelete, "/shared-environments/"+doomed.ID, nil, otherToken)
		assertAPIError(t, rr, http.StatusForbidden, CodeNotOwner)
		rr = performRequest(ts.router, http.MethodDelete, "/shared-environments/"+doomed.ID, nil, ownerToken)
		assert.Equal(t, http.StatusNoContent, rr.Code)
		rr = performRequest(ts.router, http.MethodGet, "/shared-environments/"+doomed.ID, nil, ownerToken)
		assertAPIError(t, rr, http.StatusNotFound, CodeNotFound)
	})
}

// --- Engagement Endpoint Tests ---

func TestEngagementEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	_, ownerToken := createTestUserAndLogin(t, ts.router, "owner@example.com")
	otherID, otherToken := createTestUserAndLogin(t, ts.router, "other@example.com")
	env := publish(t, ts.router, ownerToken, "Engaging", "d1")
	likePath := "/shared-environments/" + env.ID + "/like"

	t.Run("Toggle Like Twice", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, likePath, nil, otherToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, share.LikeState{Liked: true, LikeCount: 1}, decode[share.LikeState](t, rr))

		rr = performRequest(ts.router, http.MethodPost, likePath, nil, otherToken)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, share.LikeState{Liked: false, LikeCount: 0}, decode[share.LikeState](t, rr))
	})

	t.Run("Set Like State", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			rr := performRequest(ts.router, http.MethodPost, likePath, marshalJSONBody(t, gin.H{"liked": true}), otherToken)
			require.Equal(t, http.StatusOK, rr.Code)
			assert.Equal(t, share.LikeState{Liked: true, LikeCount: 1}, decode[share.LikeState](t, rr))
		}
	})

	t.Run("Like In Flight Is Rejected", func(t *testing.T) {
		key := inflight.Key("like", otherID, env.ID)
		ok, err := ts.guard.TryAcquire(context.Background(), key)
		require.NoError(t, err)
		require.True(t, ok)

		rr := performRequest(ts.router, http.MethodPost, likePath, nil, otherToken)
		assertAPIError(t, rr, http.StatusConflict, CodeBusy)

		require.NoError(t, ts.guard.Release(context.Background(), key))
		rr = performRequest(ts.router, http.MethodPost, likePath, marshalJSONBody(t, gin.H{"liked": true}), otherToken)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Anonymous Download", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, "/shared-environments/"+env.ID+"/download", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		dl := decode[share.Download](t, rr)
		assert.Len(t, dl.Content.Dossiers, 1)
		assert.False(t, dl.IncludeNotes)
	})

	t.Run("Reports", func(t *testing.T) {
		path := "/shared-environments/" + env.ID + "/report"
		rr := performRequest(ts.router, http.MethodPost, path, marshalJSONBody(t, gin.H{"reason": "spam"}), otherToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

		rr = performRequest(ts.router, http.MethodPost, path, marshalJSONBody(t, gin.H{"reason": "copyright"}), otherToken)
		assertAPIError(t, rr, http.StatusConflict, CodeDuplicateReport)

		rr = performRequest(ts.router, http.MethodPost, path, marshalJSONBody(t, gin.H{"reason": "boring"}), ownerToken)
		assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)

		rr = performRequest(ts.router, http.MethodPost, path, marshalJSONBody(t, gin.H{}), otherToken)
		body := assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
		assert.Contains(t, body.Fields, "reason")
	})
}

// --- Suggestion Endpoint Tests ---

func TestSuggestionEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	_, ownerToken := createTestUserAndLogin(t, ts.router, "owner@example.com")
	_, otherToken := createTestUserAndLogin(t, ts.router, "other@example.com")
	env := publish(t, ts.router, ownerToken, "Suggestible", "d1", "d2")
	suggestPath := "/shared-environments/" + env.ID + "/suggestions"

	suggest := func(t *testing.T, ids ...string) string {
		dossiers := make([]gin.H, 0, len(ids))
		for _, id := range ids {
			dossiers = append(dossiers, gin.H{"id": id})
		}
		rr := performRequest(ts.router, http.MethodPost, suggestPath, marshalJSONBody(t, gin.H{
			"content": gin.H{"dossiers": dossiers}, "message": "More dossiers",
		}), otherToken)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		return decode[struct {
			ID string `json:"id"`
		}](t, rr).ID
	}
	pendingCount := func(t *testing.T) int {
		rr := performRequest(ts.router, http.MethodGet, "/shared-environments-suggestions/pending-count", nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		return decode[PendingCountResponse](t, rr).Count
	}

	t.Run("Owner Cannot Suggest", func(t *testing.T) {
		rr := performRequest(ts.router, http.MethodPost, suggestPath, marshalJSONBody(t, gin.H{
			"content": gin.H{"dossiers": []gin.H{{"id": "d9"}}},
		}), ownerToken)
		assertAPIError(t, rr, http.StatusBadRequest, CodeSelfSuggestion)
	})

	t.Run("Approve With Default Modes", func(t *testing.T) {
		id := suggest(t, "d2", "d3")
		assert.Equal(t, 1, pendingCount(t))

		rr := performRequest(ts.router, http.MethodPost, "/shared-environments-suggestions/"+id+"/approve", nil, otherToken)
		assertAPIError(t, rr, http.StatusForbidden, CodeNotOwner)

		rr = performRequest(ts.router, http.MethodPost, "/shared-environments-suggestions/"+id+"/approve", nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		resp := decode[ApproveResponse](t, rr)
		assert.Equal(t, models.SuggestionApproved, resp.Suggestion.Status)
		assert.Equal(t, 2, resp.Environment.CurrentVersion)
		assert.Len(t, resp.Environment.Content.Dossiers, 3)
		assert.Equal(t, 0, pendingCount(t))

		rr = performRequest(ts.router, http.MethodPost, "/shared-environments-suggestions/"+id+"/reject", nil, ownerToken)
		assertAPIError(t, rr, http.StatusConflict, CodeNotPending)
	})

	t.Run("Reject With Note", func(t *testing.T) {
		id := suggest(t, "d7")
		rr := performRequest(ts.router, http.MethodPost, "/shared-environments-suggestions/"+id+"/reject",
			marshalJSONBody(t, gin.H{"reviewNote": "Duplicate content"}), ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "Duplicate content", decode[models.Suggestion](t, rr).ReviewNote)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments-suggestions/received?status=rejected", nil, ownerToken)
		require.Equal(t, http.StatusOK, rr.Code)
		received := decode[[]share.SuggestionView](t, rr)
		require.Len(t, received, 1)
		assert.Equal(t, "Suggestible", received[0].EnvironmentTitle)

		rr = performRequest(ts.router, http.MethodGet, "/shared-environments-suggestions/sent", nil, otherToken)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]share.SuggestionView](t, rr), 2)
	})

	t.Run("Unknown Merge Mode", func(t *testing.T) {
		id := suggest(t, "d8")
		rr := performRequest(ts.router, http.MethodPost, "/shared-environments-suggestions/"+id+"/approve",
			marshalJSONBody(t, gin.H{"mergeMode": "splice"}), ownerToken)
		body := assertAPIError(t, rr, http.StatusBadRequest, CodeValidation)
		assert.Contains(t, body.Fields, "mergeMode")
		assert.Equal(t, 1, pendingCount(t))
	})
}

// --- Admin Endpoint Tests ---

func TestAdminEndpoints(t *testing.T) {
	ts := setupTestServer(t)
	_, ownerToken := createTestUserAndLogin(t, ts.router, "owner@example.com")
	_, otherToken := createTestUserAndLogin(t, ts.router, "other@example.com")
	_, adminToken := createTestUserAndLogin(t, ts.router, "admin@example.com")
	env := publish(t, ts.router, ownerToken, "Moderated", "d1")

	rr := performRequest(ts.router, http.MethodPost, "/shared-environments/"+env.ID+"/report", marshalJSONBody(t, gin.H{"reason": "spam"}), otherToken)
	require.Equal(t, http.StatusCreated, rr.Code)
	reportID := decode[struct {
		ID string `json:"id"`
	}](t, rr).ID

	rr = performRequest(ts.router, http.MethodGet, "/admin/shared-environment-reports", nil, ownerToken)
	assertAPIError(t, rr, http.StatusForbidden, "forbidden")

	rr = performRequest(ts.router, http.MethodGet, "/admin/shared-environment-reports?status=pending", nil, adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	reports := decode[[]share.ReportView](t, rr)
	require.Len(t, reports, 1)
	assert.Equal(t, "Moderated", reports[0].EnvironmentTitle)

	rr = performRequest(ts.router, http.MethodPut, "/admin/shared-environment-reports/"+reportID, marshalJSONBody(t, gin.H{"status": "dismissed"}), adminToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, models.ReportDismissed, decode[models.Report](t, rr).Status)

	rr = performRequest(ts.router, http.MethodDelete, "/admin/shared-environments/"+env.ID, nil, adminToken)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = performRequest(ts.router, http.MethodGet, "/shared-environments/"+env.ID, nil, adminToken)
	assertAPIError(t, rr, http.StatusNotFound, CodeNotFound)
}

func TestOperationalEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	rr := performRequest(ts.router, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)

	performRequest(ts.router, http.MethodGet, "/shared-environments", nil, "")
	rr = performRequest(ts.router, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `route="/shared-environments"`)
}
