package models

import (
	"fmt"
	"strings"
	"time"
)

// Settings holds the per-session game configuration the page persists
// between rounds.
type Settings struct {
	PlaylistURI string `json:"playlist_uri,omitempty"`
	Volume      int    `json:"volume,omitempty"`
	Shuffle     bool   `json:"shuffle,omitempty"`
}

// Session is a named party session: the players at the table and how many
// rounds they have played.
type Session struct {
	id        string
	sequence  int
	name      string
	players   []string
	settings  Settings
	rounds    int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewSession creates a session with the given sequence, name and players.
// The ID is assigned by the repository on Create.
func NewSession(sequence int, name string, players []string) *Session {
	now := time.Now()
	return &Session{
		sequence:  sequence,
		name:      name,
		players:   players,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Sequence() int         { return s.sequence }
func (s *Session) Name() string          { return s.name }
func (s *Session) Players() []string     { return s.players }
func (s *Session) Settings() Settings    { return s.settings }
func (s *Session) Rounds() int           { return s.rounds }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) DeletedAt() *time.Time { return s.deletedAt }

func (s *Session) SetID(id string)             { s.id = id }
func (s *Session) SetName(name string)         { s.name = name }
func (s *Session) SetPlayers(players []string) { s.players = players }
func (s *Session) SetSettings(set Settings)    { s.settings = set }
func (s *Session) SetRounds(rounds int)        { s.rounds = rounds }
func (s *Session) SetCreatedAt(t time.Time)    { s.createdAt = t }
func (s *Session) SetUpdatedAt(t time.Time)    { s.updatedAt = t }
func (s *Session) SetDeletedAt(t *time.Time)   { s.deletedAt = t }

// IncrementRounds bumps the round counter by one.
func (s *Session) IncrementRounds() {
	s.rounds++
}

// Validate checks the session's data before persistence.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.name) == "" {
		return fmt.Errorf("session name is required")
	}
	if len(s.players) == 0 {
		return fmt.Errorf("session needs at least one player")
	}
	for _, player := range s.players {
		if strings.TrimSpace(player) == "" {
			return fmt.Errorf("player names must not be blank")
		}
	}
	if s.rounds < 0 {
		return fmt.Errorf("rounds must not be negative")
	}
	return nil
}
