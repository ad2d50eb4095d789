package engine

import (
	"errors"
	"strings"
)

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrEmptyDeck        = errors.New("deck is empty")
	ErrSelfMatch        = errors.New("player cannot be matched against themselves")
	ErrAlreadyMatched   = errors.New("match already has two players")
	ErrNotMatched       = errors.New("match is still waiting for an opponent")
	ErrStaleTurn        = errors.New("turn number does not match the current turn")
	ErrNotParticipant   = errors.New("player is not part of this match")
	ErrNoTurnPlayed     = errors.New("no turn has been played yet")
	ErrEmptyCatalog     = errors.New("card catalog is empty")
)

// Attribute names one of the numeric statistics printed on a card.
type Attribute string

const (
	Power         Attribute = "power"
	StrikeRate    Attribute = "strike_rate"
	Wickets       Attribute = "wickets"
	MatchesPlayed Attribute = "matches_played"
	RunsScored    Attribute = "runs_scored"
	HighestScore  Attribute = "highest_score"
)

// Attributes lists every playable attribute in display order.
var Attributes = []Attribute{Power, StrikeRate, Wickets, MatchesPlayed, RunsScored, HighestScore}

var attributeAliases = map[string]Attribute{
	"matches":    MatchesPlayed,
	"runs":       RunsScored,
	"highest":    HighestScore,
	"strikerate": StrikeRate,
}

// ParseAttribute resolves a user-supplied attribute name. Matching is case
// insensitive and treats '-' and ' ' as '_'.
func ParseAttribute(name string) (Attribute, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	norm = strings.NewReplacer("-", "_", " ", "_").Replace(norm)

	for _, attr := range Attributes {
		if string(attr) == norm {
			return attr, nil
		}
	}
	if attr, ok := attributeAliases[norm]; ok {
		return attr, nil
	}
	return "", ErrUnknownAttribute
}

// Valid reports whether a is one of the known attributes.
func (a Attribute) Valid() bool {
	for _, attr := range Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// Card is an immutable snapshot of a cricket player's statistics.
type Card struct {
	ID            int64             `json:"id"`
	Slug          string            `json:"slug,omitempty"`
	Name          string            `json:"name"`
	Power         int               `json:"power"`
	StrikeRate    float64           `json:"strike_rate"`
	Wickets       int               `json:"wickets"`
	MatchesPlayed int               `json:"matches_played"`
	RunsScored    int               `json:"runs_scored"`
	HighestScore  int               `json:"highest_score"`
	ImageRef      string            `json:"image_ref,omitempty"`
	Wins          map[Attribute]int `json:"wins,omitempty"`
}

// Value returns the numeric value of attr on the card.
func (c Card) Value(attr Attribute) (float64, bool) {
	switch attr {
	case Power:
		return float64(c.Power), true
	case StrikeRate:
		return c.StrikeRate, true
	case Wickets:
		return float64(c.Wickets), true
	case MatchesPlayed:
		return float64(c.MatchesPlayed), true
	case RunsScored:
		return float64(c.RunsScored), true
	case HighestScore:
		return float64(c.HighestScore), true
	}
	return 0, false
}

// Outcome is a turn result seen from one player's side.
type Outcome string

const (
	OutcomeWon  Outcome = "won"
	OutcomeLost Outcome = "lost"
	OutcomeDraw Outcome = "draw"
)

// TurnResult records one resolved turn. CardA/CardB are the top cards of
// player A and player B at the time of the comparison.
type TurnResult struct {
	Turn          int       `json:"turn"`
	Player        string    `json:"player"`
	Attribute     Attribute `json:"attribute"`
	Winner        string    `json:"winner,omitempty"`
	Loser         string    `json:"loser,omitempty"`
	Draw          bool      `json:"draw"`
	CardA         Card      `json:"card_a"`
	CardB         Card      `json:"card_b"`
	ValueA        float64   `json:"value_a"`
	ValueB        float64   `json:"value_b"`
	GameOver      bool      `json:"game_over"`
	OverallWinner string    `json:"overall_winner,omitempty"`
	OverallLoser  string    `json:"overall_loser,omitempty"`
	NextTurn      string    `json:"next_turn,omitempty"`
}

// WinningCard returns the card that won the turn. ok is false on a draw.
func (r TurnResult) WinningCard(playerA string) (Card, bool) {
	if r.Draw {
		return Card{}, false
	}
	if r.Winner == playerA {
		return r.CardA, true
	}
	return r.CardB, true
}

// LosingCard returns the card that lost the turn. ok is false on a draw.
func (r TurnResult) LosingCard(playerA string) (Card, bool) {
	if r.Draw {
		return Card{}, false
	}
	if r.Winner == playerA {
		return r.CardB, true
	}
	return r.CardA, true
}
