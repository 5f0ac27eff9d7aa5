package domain

// Team is one fantasy roster within a game.
// Corresponds to teams table in PostgreSQL.
type Team struct {
	TeamID    string // PRIMARY KEY
	GameID    string // league/game this team plays in
	Name      string // display name
	CreatedAt int64  // record creation timestamp (ms)
}

// RosterEntry assigns a competitor to a team for a game. Roster
// composition itself (drafting, salary caps) is an external concern; the
// engine only needs the competitor→team mapping for aggregation.
type RosterEntry struct {
	TeamID       string // FK to teams
	GameID       string // denormalized for competitor lookups
	CompetitorID string // athlete identifier
	CreatedAt    int64  // record creation timestamp (ms)
}
