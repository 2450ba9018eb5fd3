package roblox

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

func newTestClient(users, groups *httptest.Server) *Client {
	cfg := ClientConfig{Cookie: "test-cookie", Timeout: 2 * time.Second}
	if users != nil {
		cfg.UsersURL = users.URL
	}
	if groups != nil {
		cfg.GroupsURL = groups.URL
	}
	return NewClient(cfg)
}

func TestResolveUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/usernames/users", r.URL.Path)

		var body struct {
			Usernames []string `json:"usernames"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, []string{"Alice"}, body.Usernames)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": 1000, "name": "Alice"}},
		})
	}))
	defer srv.Close()

	id, err := newTestClient(srv, nil).ResolveUserID(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), id)
}

func TestResolveUserID_EmptyData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"data": []interface{}{}})
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).ResolveUserID(context.Background(), "Ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserInfo(t *testing.T) {
	created := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/users/1000", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":          1000,
			"name":        "Alice",
			"displayName": "AliceDisplay",
			"created":     created,
		})
	}))
	defer srv.Close()

	info, err := newTestClient(srv, nil).GetUserInfo(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, "Alice", info.Username)
	assert.Equal(t, "AliceDisplay", info.DisplayName)
	assert.True(t, info.CreatedAt.Equal(created))
	assert.Positive(t, info.AgeDays())
}

func TestGetUserInfo_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, nil).GetUserInfo(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetRankInGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v2/users/1000/groups/roles", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{
				{
					"group": map[string]interface{}{"id": 100},
					"role":  map[string]interface{}{"id": 3, "name": "Corporal", "rank": 30},
				},
				{
					"group": map[string]interface{}{"id": 200},
					"role":  map[string]interface{}{"id": 9, "name": "Guest", "rank": 1},
				},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(nil, srv)
	rank, err := c.GetRankInGroup(context.Background(), 100, 1000)
	require.NoError(t, err)
	assert.Equal(t, 30, rank)

	// Not a member → rank 0, no error.
	rank, err = c.GetRankInGroup(context.Background(), 999, 1000)
	require.NoError(t, err)
	assert.Equal(t, 0, rank)

	ids, err := c.GetGroupMemberships(context.Background(), 1000)
	require.NoError(t, err)
	assert.Equal(t, []int64{100, 200}, ids)
}

func TestGetRoles_SortedAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/groups/100/roles", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"roles": []map[string]interface{}{
				{"id": 5, "name": "Commander", "rank": 50},
				{"id": 1, "name": "Recruit", "rank": 10},
				{"id": 3, "name": "Corporal", "rank": 30},
			},
		})
	}))
	defer srv.Close()

	roles, err := newTestClient(nil, srv).GetRoles(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, 10, roles[0].Rank)
	assert.Equal(t, 30, roles[1].Rank)
	assert.Equal(t, 50, roles[2].Rank)
}

func TestSetRank_ResolvesRoleID(t *testing.T) {
	var patched struct {
		RoleID int64 `json:"roleId"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/groups/100/roles":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"roles": []map[string]interface{}{
					{"id": 1, "name": "Recruit", "rank": 10},
					{"id": 3, "name": "Corporal", "rank": 30},
				},
			})
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/groups/100/users/1000":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	err := newTestClient(nil, srv).SetRank(context.Background(), 100, 1000, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(3), patched.RoleID)
}

func TestSetRank_UnknownRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"roles": []map[string]interface{}{{"id": 1, "name": "Recruit", "rank": 10}},
		})
	}))
	defer srv.Close()

	err := newTestClient(nil, srv).SetRank(context.Background(), 100, 1000, 99)
	assert.Error(t, err)
}

func TestCSRFRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			// First call: challenge with a fresh token.
			assert.Empty(t, r.Header.Get("X-CSRF-TOKEN"))
			w.Header().Set("X-CSRF-TOKEN", "fresh-token")
			w.WriteHeader(http.StatusForbidden)
			return
		}
		// Retry must carry the token.
		assert.Equal(t, "fresh-token", r.Header.Get("X-CSRF-TOKEN"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": 1000}},
		})
	}))
	defer srv.Close()

	id, err := newTestClient(srv, nil).ResolveUserID(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), id)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListJoinRequests_Paginates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/groups/100/join-requests", r.URL.Path)
		if r.URL.Query().Get("cursor") == "" {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"nextPageCursor": "page2",
				"data": []map[string]interface{}{
					{"requester": map[string]interface{}{"userId": 1, "username": "A"}},
				},
			})
			return
		}
		require.Equal(t, "page2", r.URL.Query().Get("cursor"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"nextPageCursor": "",
			"data": []map[string]interface{}{
				{"requester": map[string]interface{}{"userId": 2, "username": "B"}},
			},
		})
	}))
	defer srv.Close()

	reqs, err := newTestClient(nil, srv).ListJoinRequests(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, reqs, 2)
	assert.Equal(t, "A", reqs[0].Username)
	assert.Equal(t, int64(2), reqs[1].UserID)
}

func TestResolveJoinRequest_MethodPerOutcome(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/groups/100/join-requests/users/1000", r.URL.Path)
		methods = append(methods, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(nil, srv)
	require.NoError(t, c.ResolveJoinRequest(context.Background(), 100, 1000, true))
	require.NoError(t, c.ResolveJoinRequest(context.Background(), 100, 1000, false))
	assert.Equal(t, []string{http.MethodPost, http.MethodDelete}, methods)
}

func TestAPIError_IncludesStatusAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"errors":[{"message":"throttled"}]}`))
	}))
	defer srv.Close()

	_, err := newTestClient(nil, srv).GetRoles(context.Background(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
	assert.Contains(t, err.Error(), "throttled")
}
