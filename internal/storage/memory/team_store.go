package memory

import (
	"context"
	"sort"
	"sync"

	"marathon-league/internal/domain"
	"marathon-league/internal/storage"
)

// TeamStore is an in-memory implementation of storage.TeamStore.
type TeamStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Team        // keyed by team_id
	roster map[string][]string            // team_id -> competitor IDs
	byComp map[string]map[string]string   // game_id -> competitor_id -> team_id
}

// NewTeamStore creates a new in-memory team store.
func NewTeamStore() *TeamStore {
	return &TeamStore{
		data:   make(map[string]*domain.Team),
		roster: make(map[string][]string),
		byComp: make(map[string]map[string]string),
	}
}

// Compile-time interface check.
var _ storage.TeamStore = (*TeamStore)(nil)

// Insert adds a new team. Returns ErrDuplicateKey if team_id exists.
func (s *TeamStore) Insert(_ context.Context, t *domain.Team) error {
	if t == nil || t.TeamID == "" || t.GameID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TeamID]; exists {
		return storage.ErrDuplicateKey
	}

	teamCopy := *t
	s.data[t.TeamID] = &teamCopy
	return nil
}

// GetByID retrieves a team by its ID. Returns ErrNotFound if not exists.
func (s *TeamStore) GetByID(_ context.Context, teamID string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, exists := s.data[teamID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	teamCopy := *t
	return &teamCopy, nil
}

// GetByGame retrieves all teams for a game, ordered by team_id ASC.
func (s *TeamStore) GetByGame(_ context.Context, gameID string) ([]*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Team
	for _, t := range s.data {
		if t.GameID == gameID {
			teamCopy := *t
			result = append(result, &teamCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TeamID < result[j].TeamID
	})

	return result, nil
}

// AddRosterEntry assigns a competitor to a team. Returns ErrDuplicateKey
// if the competitor is already rostered in the game.
func (s *TeamStore) AddRosterEntry(_ context.Context, e *domain.RosterEntry) error {
	if e == nil || e.TeamID == "" || e.GameID == "" || e.CompetitorID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.TeamID]; !exists {
		return storage.ErrNotFound
	}

	game := s.byComp[e.GameID]
	if game == nil {
		game = make(map[string]string)
		s.byComp[e.GameID] = game
	}
	if _, exists := game[e.CompetitorID]; exists {
		return storage.ErrDuplicateKey
	}

	game[e.CompetitorID] = e.TeamID
	s.roster[e.TeamID] = append(s.roster[e.TeamID], e.CompetitorID)
	return nil
}

// GetRoster retrieves the competitor IDs on a team, ordered ASC.
func (s *TeamStore) GetRoster(_ context.Context, teamID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.data[teamID]; !exists {
		return nil, storage.ErrNotFound
	}

	result := append([]string(nil), s.roster[teamID]...)
	sort.Strings(result)
	return result, nil
}

// GetTeamForCompetitor resolves the team a competitor plays for in a game.
func (s *TeamStore) GetTeamForCompetitor(_ context.Context, gameID, competitorID string) (*domain.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, exists := s.byComp[gameID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	teamID, exists := game[competitorID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	teamCopy := *s.data[teamID]
	return &teamCopy, nil
}
