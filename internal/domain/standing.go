package domain

// LeagueStanding is the cached per-team summary row for a game.
// Corresponds to league_standings table in PostgreSQL.
//
// Derived entirely from point breakdowns and always recomputable from
// source data; the cache is an optimization, never a source of truth.
// Record counts include confirmed records only.
type LeagueStanding struct {
	GameID        string  `json:"gameId"`
	TeamID        string  `json:"teamId"`
	TeamName      string  `json:"teamName"`
	Rank          int     `json:"rank"` // standard competition ranking on totalPoints desc
	RacesCount    int     `json:"racesCount"`
	Wins          int     `json:"wins"`
	Podiums       int     `json:"podiums"` // top-3 finishes
	WorldRecords  int     `json:"worldRecords"`
	CourseRecords int     `json:"courseRecords"`
	TotalPoints   int     `json:"totalPoints"`
	AveragePoints float64 `json:"averagePoints"` // totalPoints / racesCount, 0 when no races
	LastUpdatedAt int64   `json:"lastUpdatedAt"`
}
