package postgres

import (
	"time"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
)

// Player is a registered email address.
type Player struct {
	Email     string    `gorm:"primaryKey;type:varchar(320)"`
	Name      string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

// Game is one finished game.
type Game struct {
	ID         string    `gorm:"primaryKey;type:varchar(64)"`
	Player1    string    `gorm:"index;not null"`
	Player2    string    `gorm:"index;not null"`
	Winner     string    `gorm:"not null"`
	Loser      string    `gorm:"not null"`
	Forfeit    bool      `gorm:"not null;default:false"`
	StartedAt  time.Time `gorm:"not null"`
	FinishedAt time.Time `gorm:"index;not null"`
}

// Card is one catalog card.
type Card struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	Slug          string  `gorm:"uniqueIndex;not null"`
	Name          string  `gorm:"not null"`
	Power         int     `gorm:"not null;default:0"`
	StrikeRate    float64 `gorm:"not null;default:0"`
	Wickets       int     `gorm:"not null;default:0"`
	MatchesPlayed int     `gorm:"not null;default:0"`
	RunsScored    int     `gorm:"not null;default:0"`
	HighestScore  int     `gorm:"not null;default:0"`
	ImageRef      string  `gorm:"not null;default:''"`
}

// CardWin counts the turns a card won on one attribute.
type CardWin struct {
	CardID    int64  `gorm:"primaryKey;autoIncrement:false"`
	Attribute string `gorm:"primaryKey;type:varchar(32)"`
	Wins      int    `gorm:"not null;default:0"`
}

func (Player) TableName() string  { return "players" }
func (Game) TableName() string    { return "games" }
func (Card) TableName() string    { return "cards" }
func (CardWin) TableName() string { return "card_wins" }

func cardFromEngine(c engine.Card, slug string) Card {
	return Card{
		Slug:          slug,
		Name:          c.Name,
		Power:         c.Power,
		StrikeRate:    c.StrikeRate,
		Wickets:       c.Wickets,
		MatchesPlayed: c.MatchesPlayed,
		RunsScored:    c.RunsScored,
		HighestScore:  c.HighestScore,
		ImageRef:      c.ImageRef,
	}
}

func (c Card) toEngine() engine.Card {
	return engine.Card{
		ID:            c.ID,
		Slug:          c.Slug,
		Name:          c.Name,
		Power:         c.Power,
		StrikeRate:    c.StrikeRate,
		Wickets:       c.Wickets,
		MatchesPlayed: c.MatchesPlayed,
		RunsScored:    c.RunsScored,
		HighestScore:  c.HighestScore,
		ImageRef:      c.ImageRef,
	}
}

func gameFromResult(r service.GameResult) Game {
	return Game{
		ID:         r.GameID,
		Player1:    r.Player1,
		Player2:    r.Player2,
		Winner:     r.Winner,
		Loser:      r.Loser,
		Forfeit:    r.Forfeit,
		StartedAt:  r.StartedAt.UTC(),
		FinishedAt: r.FinishedAt.UTC(),
	}
}

// historyEntry is g seen from player's side.
func (g Game) historyEntry(player string) service.HistoryEntry {
	opponent := g.Player2
	if g.Player2 == player {
		opponent = g.Player1
	}
	return service.HistoryEntry{
		GameID:     g.ID,
		Opponent:   opponent,
		Won:        g.Winner == player,
		Forfeit:    g.Forfeit,
		FinishedAt: g.FinishedAt.UTC(),
	}
}
