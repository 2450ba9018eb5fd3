package roblox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

const csrfHeader = "X-CSRF-TOKEN"

// ClientConfig holds connection settings for the Roblox web APIs.
type ClientConfig struct {
	// Cookie is the .ROBLOSECURITY value of the bot account. Read-only
	// endpoints work without it; group mutations do not.
	Cookie    string
	UsersURL  string
	GroupsURL string
	Timeout   time.Duration
}

// Client implements Provider against the public Roblox web APIs.
type Client struct {
	http      *http.Client
	cookie    string
	usersURL  string
	groupsURL string

	mu   sync.Mutex
	csrf string
}

// NewClient creates a Roblox API client.
func NewClient(cfg ClientConfig) *Client {
	usersURL := cfg.UsersURL
	if usersURL == "" {
		usersURL = "https://users.roblox.com"
	}
	groupsURL := cfg.GroupsURL
	if groupsURL == "" {
		groupsURL = "https://groups.roblox.com"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		cookie:    cfg.Cookie,
		usersURL:  usersURL,
		groupsURL: groupsURL,
	}
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("roblox: api returned %d: %s", e.Status, e.Body)
}

// do sends a JSON request. Mutating calls carry the auth cookie and the
// CSRF token; a 403 with a fresh token header is retried once.
func (c *Client) do(ctx context.Context, method, url string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	retried := false
	for {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.cookie != "" {
			req.AddCookie(&http.Cookie{Name: ".ROBLOSECURITY", Value: c.cookie})
		}
		if method != http.MethodGet {
			c.mu.Lock()
			if c.csrf != "" {
				req.Header.Set(csrfHeader, c.csrf)
			}
			c.mu.Unlock()
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("roblox: %s %s: %w", method, url, err)
		}

		if resp.StatusCode == http.StatusForbidden && !retried {
			if token := resp.Header.Get(csrfHeader); token != "" {
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				c.mu.Lock()
				c.csrf = token
				c.mu.Unlock()
				retried = true
				continue
			}
		}

		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			io.Copy(io.Discard, resp.Body)
			return ErrUserNotFound
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &apiError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
		}
		if out == nil {
			io.Copy(io.Discard, resp.Body)
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func (c *Client) ResolveUserID(ctx context.Context, username string) (int64, error) {
	var resp struct {
		Data []struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	body := map[string]interface{}{
		"usernames":          []string{username},
		"excludeBannedUsers": true,
	}
	if err := c.do(ctx, http.MethodPost, c.usersURL+"/v1/usernames/users", body, &resp); err != nil {
		return 0, err
	}
	if len(resp.Data) == 0 {
		return 0, ErrUserNotFound
	}
	return resp.Data[0].ID, nil
}

func (c *Client) GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	var resp struct {
		ID          int64     `json:"id"`
		Name        string    `json:"name"`
		DisplayName string    `json:"displayName"`
		Created     time.Time `json:"created"`
	}
	url := fmt.Sprintf("%s/v1/users/%d", c.usersURL, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	return &UserInfo{
		UserID:      resp.ID,
		Username:    resp.Name,
		DisplayName: resp.DisplayName,
		CreatedAt:   resp.Created,
	}, nil
}

type userGroupRole struct {
	Group struct {
		ID int64 `json:"id"`
	} `json:"group"`
	Role struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
		Rank int    `json:"rank"`
	} `json:"role"`
}

func (c *Client) userGroupRoles(ctx context.Context, userID int64) ([]userGroupRole, error) {
	var resp struct {
		Data []userGroupRole `json:"data"`
	}
	url := fmt.Sprintf("%s/v2/users/%d/groups/roles", c.groupsURL, userID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) GetRankInGroup(ctx context.Context, groupID, userID int64) (int, error) {
	entries, err := c.userGroupRoles(ctx, userID)
	if err != nil {
		return 0, err
	}
	for _, e := range entries {
		if e.Group.ID == groupID {
			return e.Role.Rank, nil
		}
	}
	return 0, nil // not a member
}

func (c *Client) GetGroupMemberships(ctx context.Context, userID int64) ([]int64, error) {
	entries, err := c.userGroupRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.Group.ID)
	}
	return ids, nil
}

func (c *Client) GetRoles(ctx context.Context, groupID int64) ([]Role, error) {
	var resp struct {
		Roles []Role `json:"roles"`
	}
	url := fmt.Sprintf("%s/v1/groups/%d/roles", c.groupsURL, groupID)
	if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, err
	}
	sort.Slice(resp.Roles, func(i, j int) bool { return resp.Roles[i].Rank < resp.Roles[j].Rank })
	return resp.Roles, nil
}

func (c *Client) SetRank(ctx context.Context, groupID, userID int64, rank int) error {
	roles, err := c.GetRoles(ctx, groupID)
	if err != nil {
		return err
	}
	var roleID int64
	for _, r := range roles {
		if r.Rank == rank {
			roleID = r.ID
			break
		}
	}
	if roleID == 0 {
		return fmt.Errorf("roblox: group %d has no role with rank %d", groupID, rank)
	}
	url := fmt.Sprintf("%s/v1/groups/%d/users/%d", c.groupsURL, groupID, userID)
	return c.do(ctx, http.MethodPatch, url, map[string]int64{"roleId": roleID}, nil)
}

func (c *Client) Promote(ctx context.Context, groupID, userID int64) (*Role, error) {
	return c.step(ctx, groupID, userID, +1)
}

func (c *Client) Demote(ctx context.Context, groupID, userID int64) (*Role, error) {
	return c.step(ctx, groupID, userID, -1)
}

// step moves the user one position in the role sequence.
func (c *Client) step(ctx context.Context, groupID, userID int64, delta int) (*Role, error) {
	roles, err := c.GetRoles(ctx, groupID)
	if err != nil {
		return nil, err
	}
	current, err := c.GetRankInGroup(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, r := range roles {
		if r.Rank == current {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx == -1 || next < 0 || next >= len(roles) {
		return nil, fmt.Errorf("roblox: user %d has no adjacent role in group %d", userID, groupID)
	}
	target := roles[next]
	url := fmt.Sprintf("%s/v1/groups/%d/users/%d", c.groupsURL, groupID, userID)
	if err := c.do(ctx, http.MethodPatch, url, map[string]int64{"roleId": target.ID}, nil); err != nil {
		return nil, err
	}
	return &target, nil
}

func (c *Client) ListJoinRequests(ctx context.Context, groupID int64) ([]JoinRequest, error) {
	var requests []JoinRequest
	cursor := ""
	for {
		var resp struct {
			NextPageCursor string `json:"nextPageCursor"`
			Data           []struct {
				Requester struct {
					UserID   int64  `json:"userId"`
					Username string `json:"username"`
				} `json:"requester"`
				Created time.Time `json:"created"`
			} `json:"data"`
		}
		url := fmt.Sprintf("%s/v1/groups/%d/join-requests?limit=100", c.groupsURL, groupID)
		if cursor != "" {
			url += "&cursor=" + cursor
		}
		if err := c.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
			return nil, err
		}
		for _, d := range resp.Data {
			requests = append(requests, JoinRequest{
				UserID:    d.Requester.UserID,
				Username:  d.Requester.Username,
				CreatedAt: d.Created,
			})
		}
		if resp.NextPageCursor == "" {
			return requests, nil
		}
		cursor = resp.NextPageCursor
	}
}

func (c *Client) ResolveJoinRequest(ctx context.Context, groupID, userID int64, accept bool) error {
	url := fmt.Sprintf("%s/v1/groups/%d/join-requests/users/%d", c.groupsURL, groupID, userID)
	method := http.MethodDelete
	if accept {
		method = http.MethodPost
	}
	return c.do(ctx, method, url, nil, nil)
}
