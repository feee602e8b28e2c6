package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"lexshare/api"
	"lexshare/client"
	"lexshare/config"
	"lexshare/db"
	"lexshare/inflight"
	"lexshare/models"
	"lexshare/share"
	"lexshare/snapshot"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testServer wraps the real router so tests can count requests and intercept like calls.
type testServer struct {
	*httptest.Server
	handler   http.Handler
	requests  atomic.Int64
	interrupt atomic.Pointer[func(w http.ResponseWriter, r *http.Request) bool]
}

func newTestServer(t *testing.T) *testServer {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		DbFilePath:    filepath.Join(t.TempDir(), "client_db.json"),
		SaveInterval:  time.Hour,
		JwtSecret:     "client-test-secret-key-long-enough-for-hs256",
		TokenLifetime: time.Hour,
		BcryptCost:    4,
		AdminEmails:   []string{"admin@example.com"},
	}
	store, err := db.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	router := api.NewRouter(api.Deps{
		Service: share.NewService(store),
		Store:   store,
		Guard:   inflight.NewMemoryGuard(time.Minute),
		Config:  cfg,
	})

	ts := &testServer{handler: router}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.requests.Add(1)
		if hook := ts.interrupt.Load(); hook != nil && (*hook)(w, r) {
			return
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	return ts
}

// intercept routes requests whose path ends in suffix to fn instead of the router.
func (ts *testServer) intercept(suffix string, fn http.HandlerFunc) {
	hook := func(w http.ResponseWriter, r *http.Request) bool {
		if !strings.HasSuffix(r.URL.Path, suffix) {
			return false
		}
		fn(w, r)
		return true
	}
	ts.interrupt.Store(&hook)
}

func (ts *testServer) clearIntercept() { ts.interrupt.Store(nil) }

// login signs up email and returns a client authenticated as that user.
func (ts *testServer) login(t *testing.T, email string) *client.Client {
	body, err := json.Marshal(map[string]string{
		"email": email, "password": "password123", "first_name": "Test", "last_name": "User",
	})
	require.NoError(t, err)
	resp, err := http.Post(ts.URL+"/auth/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	c := client.New(ts.URL, client.WithTimeout(5*time.Second))
	require.NoError(t, c.Login(context.Background(), email, "password123"))
	return c
}

func dossier(id string) json.RawMessage {
	return json.RawMessage(`{"id":"` + id + `","name":"Dossier ` + id + `"}`)
}

func publish(t *testing.T, c *client.Client, title string) share.EnvironmentView {
	env, err := c.Publish(context.Background(), share.PublishInput{
		Title:    title,
		Category: models.CategoryCivil,
		Content:  models.Content{Dossiers: []json.RawMessage{dossier("d1")}},
	})
	require.NoError(t, err)
	return env
}

func TestErrorClassification(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	other := ts.login(t, "other@example.com")
	ctx := context.Background()
	env := publish(t, owner, "Classified")

	t.Run("NotFound", func(t *testing.T) {
		_, err := other.Get(ctx, "missing")
		assert.ErrorIs(t, err, share.ErrNotFound)
		var rerr *client.RemoteError
		require.ErrorAs(t, err, &rerr)
		assert.Equal(t, http.StatusNotFound, rerr.Status)
		assert.Equal(t, "not_found", rerr.Code)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := owner.Publish(ctx, share.PublishInput{
			Title:    "ab",
			Category: models.CategoryCivil,
			Content:  models.Content{Dossiers: []json.RawMessage{dossier("d1")}},
		})
		var verr *share.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "title", verr.Field)
		assert.True(t, share.IsValidation(err))
	})

	t.Run("Domain Errors", func(t *testing.T) {
		_, err := other.UpdateMetadata(ctx, env.ID, share.MetadataPatch{Description: ptr("hijack")})
		assert.ErrorIs(t, err, share.ErrNotOwner)

		_, err = owner.Suggest(ctx, env.ID, models.Content{Dossiers: []json.RawMessage{dossier("d2")}}, "")
		assert.ErrorIs(t, err, share.ErrSelfSuggestion)

		_, err = other.Report(ctx, env.ID, models.ReasonSpam, "")
		require.NoError(t, err)
		_, err = other.Report(ctx, env.ID, models.ReasonOther, "again")
		assert.ErrorIs(t, err, share.ErrDuplicateReport)

		_, err = owner.ListReports(ctx, "")
		assert.ErrorIs(t, err, share.ErrForbidden)
	})

	t.Run("Network", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		c := client.New(dead.URL)
		_, err := c.Get(ctx, env.ID)
		var nerr *client.NetworkError
		require.ErrorAs(t, err, &nerr)
		assert.Contains(t, nerr.Op, "GET /shared-environments/")
	})
}

func TestToggleLike_OptimisticAndCorrected(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	fan := ts.login(t, "fan@example.com")
	ctx := context.Background()
	env := publish(t, owner, "Likeable")

	_, err := fan.Get(ctx, env.ID)
	require.NoError(t, err)
	state, ok := fan.LikeState(env.ID)
	require.True(t, ok)
	assert.Equal(t, share.LikeState{Liked: false, LikeCount: 0}, state)

	got, err := fan.ToggleLike(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, share.LikeState{Liked: true, LikeCount: 1}, got)

	got, err = fan.ToggleLike(ctx, env.ID)
	require.NoError(t, err)
	assert.Equal(t, share.LikeState{Liked: false, LikeCount: 0}, got)
	assert.False(t, fan.IsBusy(env.ID))
}

func TestToggleLike_RollbackAndBusy(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	fan := ts.login(t, "fan@example.com")
	ctx := context.Background()
	env := publish(t, owner, "Flaky")
	_, err := fan.Get(ctx, env.ID)
	require.NoError(t, err)

	entered := make(chan struct{})
	proceed := make(chan struct{})
	ts.intercept("/like", func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-proceed
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"store unavailable"}`))
	})
	t.Cleanup(ts.clearIntercept)

	done := make(chan error, 1)
	go func() {
		_, err := fan.ToggleLike(ctx, env.ID)
		done <- err
	}()
	<-entered

	optimistic, _ := fan.LikeState(env.ID)
	assert.Equal(t, share.LikeState{Liked: true, LikeCount: 1}, optimistic, "state changes before the server answers")
	assert.True(t, fan.IsBusy(env.ID))

	_, err = fan.ToggleLike(ctx, env.ID)
	assert.ErrorIs(t, err, inflight.ErrBusy, "second toggle must not reach the server")

	close(proceed)
	err = <-done
	var rerr *client.RemoteError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusServiceUnavailable, rerr.Status)

	restored, _ := fan.LikeState(env.ID)
	assert.Equal(t, share.LikeState{Liked: false, LikeCount: 0}, restored)
	assert.False(t, fan.IsBusy(env.ID))
}

func TestCaches_InvalidatedByMutations(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	other := ts.login(t, "other@example.com")
	ctx := context.Background()
	env := publish(t, owner, "Cached")

	t.Run("Listing", func(t *testing.T) {
		first, err := other.List(ctx, share.ListParams{Sort: share.SortRecent})
		require.NoError(t, err)
		assert.Equal(t, 1, first.Total)

		before := ts.requests.Load()
		again, err := other.List(ctx, share.ListParams{Sort: share.SortRecent})
		require.NoError(t, err)
		assert.Equal(t, first.Total, again.Total)
		assert.Equal(t, before, ts.requests.Load(), "cached listing must not hit the server")

		_, err = other.Download(ctx, env.ID)
		require.NoError(t, err)
		refreshed, err := other.List(ctx, share.ListParams{Sort: share.SortRecent})
		require.NoError(t, err)
		require.Len(t, refreshed.Environments, 1)
		assert.Equal(t, 1, refreshed.Environments[0].DownloadCount)
	})

	t.Run("PendingCount", func(t *testing.T) {
		n, err := owner.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		sug, err := other.Suggest(ctx, env.ID, models.Content{Dossiers: []json.RawMessage{dossier("d2")}}, "Add d2")
		require.NoError(t, err)

		// The owner's cache is only dropped by the owner's own mutations.
		n, err = owner.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		owner.Invalidate()
		n, err = owner.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, updated, err := owner.Approve(ctx, sug.ID, share.ApproveInput{})
		require.NoError(t, err)
		assert.Equal(t, 2, updated.CurrentVersion)
		assert.Len(t, updated.Content.Dossiers, 2)

		n, err = owner.PendingCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		_, err = owner.Reject(ctx, sug.ID, "late")
		assert.ErrorIs(t, err, share.ErrNotPending)
	})
}

func TestList_ResponseOvertakenByMutationIsNotCached(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	other := ts.login(t, "other@example.com")
	ctx := context.Background()
	env := publish(t, owner, "Racing")

	// The first listing is answered from the state before the download, then held
	// back until the download has gone through.
	entered := make(chan struct{})
	proceed := make(chan struct{})
	var once sync.Once
	ts.intercept("/shared-environments", func(w http.ResponseWriter, r *http.Request) {
		rec := httptest.NewRecorder()
		ts.handler.ServeHTTP(rec, r)
		if r.Method == http.MethodGet {
			once.Do(func() {
				close(entered)
				<-proceed
			})
		}
		for k, v := range rec.Header() {
			w.Header()[k] = v
		}
		w.WriteHeader(rec.Code)
		_, _ = w.Write(rec.Body.Bytes())
	})
	t.Cleanup(ts.clearIntercept)

	done := make(chan share.ListResult, 1)
	go func() {
		res, err := other.List(ctx, share.ListParams{})
		assert.NoError(t, err)
		done <- res
	}()
	<-entered

	_, err := other.Download(ctx, env.ID)
	require.NoError(t, err)
	close(proceed)

	stale := <-done
	require.Len(t, stale.Environments, 1)
	assert.Equal(t, 0, stale.Environments[0].DownloadCount)

	fresh, err := other.List(ctx, share.ListParams{})
	require.NoError(t, err)
	require.Len(t, fresh.Environments, 1)
	assert.Equal(t, 1, fresh.Environments[0].DownloadCount, "listing fetched before the download must not be served after it")
}

func TestWorkflow_PublishSnapshotVersionsRestore(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.login(t, "owner@example.com")
	ctx := context.Background()

	ws := snapshotState()
	env, err := owner.PublishSnapshot(ctx, share.PublishInput{
		Title:    "Obbligazioni Civili",
		Category: models.CategoryCivil,
	}, ws, selectAll())
	require.NoError(t, err)
	assert.Len(t, env.Content.Dossiers, 2)
	assert.Empty(t, env.Content.Annotations, "notes are excluded unless includeNotes is set")

	_, err = owner.UpdateWithVersion(ctx, env.ID, share.VersionedUpdate{
		Content:     models.Content{Dossiers: []json.RawMessage{dossier("d9")}},
		Changelog:   "Trimmed",
		VersionMode: models.VersionReplace,
	})
	require.NoError(t, err)

	versions, err := owner.Versions(ctx, env.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.True(t, versions[0].Replaced)

	restored, err := owner.Restore(ctx, env.ID, versions[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.CurrentVersion)
	assert.Len(t, restored.Content.Dossiers, 2)

	withdrawn, err := owner.Withdraw(ctx, env.ID)
	require.NoError(t, err)
	assert.False(t, withdrawn.IsActive)
	republished, err := owner.Republish(ctx, env.ID)
	require.NoError(t, err)
	assert.True(t, republished.IsActive)

	mine, err := owner.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	require.NoError(t, owner.Delete(ctx, env.ID))
	_, err = owner.Get(ctx, env.ID)
	assert.ErrorIs(t, err, share.ErrNotFound)
}

func ptr[T any](v T) *T { return &v }

func snapshotState() snapshot.WorkingState {
	return snapshot.WorkingState{
		Dossiers:    []json.RawMessage{dossier("d1"), dossier("d2"), dossier("d3")},
		Annotations: []json.RawMessage{json.RawMessage(`{"id":"n1","text":"see art. 1218"}`)},
	}
}

func selectAll() snapshot.Selection {
	return snapshot.Selection{Dossiers: []string{"d1", "d2"}, Annotations: []string{"n1"}}
}
