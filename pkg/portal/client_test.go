package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) SessionStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLoginNewUserRedirectsToRequestForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/auth/login", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "U1", body["identifier"])
		assert.Equal(t, "3", body["role_class"])
		assert.Equal(t, "p", body["password"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":      true,
			"identifier":  "U1",
			"role_class":  "3",
			"is_new_user": true,
			"is_approved": false,
			"token":       "tok-1",
		})
	}))
	defer server.Close()

	store := newTestStore(t)
	client := NewClient(server.URL, store)

	sess, err := client.Login(context.Background(), "U1", "3", "p")
	require.NoError(t, err)

	// session persisted and navigation resolves to the request form
	saved, err := store.Current()
	require.NoError(t, err)
	assert.Equal(t, "U1", saved.Identifier)
	assert.Equal(t, ViewRequest, Resolve(sess))
}

func TestFailedLoginLeavesStoreUnchanged(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": false,
			"error":  map[string]string{"code": "INVALID_CREDENTIALS", "message": "invalid credentials"},
		})
	}))
	defer server.Close()

	store := newTestStore(t)
	client := NewClient(server.URL, store)

	_, err := client.Login(context.Background(), "U1", "3", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSubmitValidationIssuesNoNetworkCall(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	_, err := client.Submit(context.Background(), RequestInput{
		Models:            nil,
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
		Justification:     "need access",
	})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, int64(0), hits.Load())
}

func TestSubmitEmptyJustificationFails(t *testing.T) {
	client := NewClient("http://127.0.0.1:0", newTestStore(t))

	_, err := client.Submit(context.Background(), RequestInput{
		Models:            []string{"gpt-a"},
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
		Justification:     "   ",
	})

	var valErr *ValidationError
	assert.ErrorAs(t, err, &valErr)
}

func TestListPendingSortedNewestFirst(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// deliberately out of order
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"requests": []map[string]any{
				{"id": "r2", "created_at": base.Add(time.Hour)},
				{"id": "r1", "created_at": base},
				{"id": "r3", "created_at": base.Add(2 * time.Hour)},
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	pending, err := client.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "r3", pending[0].ID)
	assert.Equal(t, "r2", pending[1].ID)
	assert.Equal(t, "r1", pending[2].ID)
}

func TestLogoutClearsPersistedSession(t *testing.T) {
	var sawBearer atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "identifier": "U1", "token": "tok-1"})
		case "/auth/logout":
			sawBearer.Store(r.Header.Get("Authorization") == "Bearer tok-1")
			_ = json.NewEncoder(w).Encode(map[string]any{"status": true})
		}
	}))
	defer server.Close()

	store := newTestStore(t)
	client := NewClient(server.URL, store)

	_, err := client.Login(context.Background(), "U1", "3", "p")
	require.NoError(t, err)

	require.NoError(t, client.Logout(context.Background()))
	assert.True(t, sawBearer.Load())

	_, err = store.Current()
	assert.ErrorIs(t, err, ErrNoSession)

	// a logged-out visitor resolves to login after a restart
	restarted := NewClient(server.URL, store)
	sess, err := restarted.CurrentSession()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, ViewLogin, Resolve(sess))
}

func TestRestartRestoresToken(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth.Store(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "state": "pending"})
	}))
	defer server.Close()

	store := newTestStore(t)
	require.NoError(t, store.Save(&Session{Identifier: "U1", Token: "tok-saved"}))

	client := NewClient(server.URL, store)
	_, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-saved", gotAuth.Load())
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	client := NewClient(server.URL, newTestStore(t))

	_, err := client.FetchCatalog(context.Background())

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestServerValidationErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": false,
			"error":  map[string]string{"code": "VALIDATION_FAILED", "message": "justification required"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	_, err := client.Submit(context.Background(), RequestInput{
		Models:            []string{"gpt-a"},
		PromptsPerDay:     10,
		TokensPerResponse: 1500,
		Justification:     "ok",
	})

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "justification required", valErr.Message)
}

func TestFetchCatalog(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/catalog", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": true,
			"catalog": map[string]any{
				"models":                  []string{"gpt-a", "gpt-b"},
				"default_prompts_per_day": 10,
				"max_tokens_per_response": 1500,
			},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	catalog, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"gpt-a", "gpt-b"}, catalog.Models)
	assert.Equal(t, 10, catalog.DefaultPromptsPerDay)
	assert.Equal(t, 1500, catalog.MaxTokensPerResponse)
}

func TestApproveAllReturnsCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/requests/approve-all", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "approved": 4})
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	count, err := client.ApproveAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestApproveByRoleClassTargetsPath(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/admin/requests/approve-all/2", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": true, "approved": 1})
	}))
	defer server.Close()

	client := NewClient(server.URL, newTestStore(t))

	count, err := client.ApproveByRoleClass(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
