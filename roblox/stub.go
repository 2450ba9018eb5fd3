package roblox

import (
	"context"
	"fmt"
	"sync"
)

// RankChange records one mutation made through a Stub.
type RankChange struct {
	GroupID int64
	UserID  int64
	Rank    int
}

// Resolution records one resolved join request.
type Resolution struct {
	GroupID int64
	UserID  int64
	Accept  bool
}

// Stub is an in-memory Provider for tests. Zero-value maps are allocated by
// NewStub; mutate the exported fields to set up fixtures.
type Stub struct {
	mu sync.Mutex

	UsersByName map[string]int64
	Infos       map[int64]*UserInfo
	GroupRoles  map[int64][]Role          // groupID → roles ascending by rank
	Ranks       map[int64]map[int64]int   // groupID → userID → rank value
	Memberships map[int64][]int64         // userID → group IDs
	Pending     map[int64][]JoinRequest   // groupID → pending requests

	RankChanges []RankChange
	Resolutions []Resolution

	// Err, when set, is returned by every call. Simulates provider outage.
	Err error
}

// NewStub creates an empty Stub.
func NewStub() *Stub {
	return &Stub{
		UsersByName: make(map[string]int64),
		Infos:       make(map[int64]*UserInfo),
		GroupRoles:  make(map[int64][]Role),
		Ranks:       make(map[int64]map[int64]int),
		Memberships: make(map[int64][]int64),
		Pending:     make(map[int64][]JoinRequest),
	}
}

// SetRankOf sets a fixture rank for a user in a group.
func (s *Stub) SetRankOf(groupID, userID int64, rank int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Ranks[groupID] == nil {
		s.Ranks[groupID] = make(map[int64]int)
	}
	s.Ranks[groupID][userID] = rank
}

func (s *Stub) ResolveUserID(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	id, ok := s.UsersByName[username]
	if !ok {
		return 0, ErrUserNotFound
	}
	return id, nil
}

func (s *Stub) GetUserInfo(_ context.Context, userID int64) (*UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	info, ok := s.Infos[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	return info, nil
}

func (s *Stub) GetRankInGroup(_ context.Context, groupID, userID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	return s.Ranks[groupID][userID], nil
}

func (s *Stub) GetRoles(_ context.Context, groupID int64) ([]Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	roles := make([]Role, len(s.GroupRoles[groupID]))
	copy(roles, s.GroupRoles[groupID])
	return roles, nil
}

func (s *Stub) GetGroupMemberships(_ context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	ids := make([]int64, len(s.Memberships[userID]))
	copy(ids, s.Memberships[userID])
	return ids, nil
}

func (s *Stub) SetRank(_ context.Context, groupID, userID int64, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if s.Ranks[groupID] == nil {
		s.Ranks[groupID] = make(map[int64]int)
	}
	s.Ranks[groupID][userID] = rank
	s.RankChanges = append(s.RankChanges, RankChange{GroupID: groupID, UserID: userID, Rank: rank})
	return nil
}

func (s *Stub) Promote(ctx context.Context, groupID, userID int64) (*Role, error) {
	return s.step(groupID, userID, +1)
}

func (s *Stub) Demote(ctx context.Context, groupID, userID int64) (*Role, error) {
	return s.step(groupID, userID, -1)
}

func (s *Stub) step(groupID, userID int64, delta int) (*Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	roles := s.GroupRoles[groupID]
	current := s.Ranks[groupID][userID]
	idx := -1
	for i, r := range roles {
		if r.Rank == current {
			idx = i
			break
		}
	}
	next := idx + delta
	if idx == -1 || next < 0 || next >= len(roles) {
		return nil, fmt.Errorf("stub: user %d has no adjacent role in group %d", userID, groupID)
	}
	target := roles[next]
	if s.Ranks[groupID] == nil {
		s.Ranks[groupID] = make(map[int64]int)
	}
	s.Ranks[groupID][userID] = target.Rank
	s.RankChanges = append(s.RankChanges, RankChange{GroupID: groupID, UserID: userID, Rank: target.Rank})
	return &target, nil
}

func (s *Stub) ListJoinRequests(_ context.Context, groupID int64) ([]JoinRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	reqs := make([]JoinRequest, len(s.Pending[groupID]))
	copy(reqs, s.Pending[groupID])
	return reqs, nil
}

func (s *Stub) ResolveJoinRequest(_ context.Context, groupID, userID int64, accept bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	pending := s.Pending[groupID]
	for i, r := range pending {
		if r.UserID == userID {
			s.Pending[groupID] = append(pending[:i], pending[i+1:]...)
			break
		}
	}
	s.Resolutions = append(s.Resolutions, Resolution{GroupID: groupID, UserID: userID, Accept: accept})
	return nil
}
