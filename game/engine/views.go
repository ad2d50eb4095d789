package engine

// TurnView is a turn result seen from one player's side. It only carries the
// two cards that were compared on that turn, never the rest of either deck.
type TurnView struct {
	GameID        string    `json:"game_id"`
	Turn          int       `json:"turn"`
	PlayedBy      string    `json:"played_by"`
	Attribute     Attribute `json:"attribute"`
	Outcome       Outcome   `json:"outcome"`
	Winner        string    `json:"winner,omitempty"`
	YourCard      Card      `json:"your_card"`
	OpponentCard  Card      `json:"opponent_card"`
	YourValue     float64   `json:"your_value"`
	OpponentValue float64   `json:"opponent_value"`
	YourCards     int       `json:"your_cards"`
	OpponentCards int       `json:"opponent_cards"`
	NextTurn      string    `json:"next_turn,omitempty"`
	YourTurn      bool      `json:"your_turn"`
	GameOver      bool      `json:"game_over"`
	OverallWinner string    `json:"overall_winner,omitempty"`
	YouWon        bool      `json:"you_won"`
}

// StateView is the current state of a match seen by one player.
type StateView struct {
	GameID        string `json:"game_id"`
	Player        string `json:"player"`
	Opponent      string `json:"opponent,omitempty"`
	Matched       bool   `json:"matched"`
	Active        bool   `json:"active"`
	TurnOwner     string `json:"turn_owner,omitempty"`
	YourTurn      bool   `json:"your_turn"`
	TopCard       *Card  `json:"top_card,omitempty"`
	YourCards     int    `json:"your_cards"`
	OpponentCards int    `json:"opponent_cards"`
	TurnNumber    int    `json:"turn_number"`
	Winner        string `json:"winner,omitempty"`
}

// ViewTurn projects r onto player's perspective. playerA identifies which
// side of r is CardA. Deck sizes are taken from the caller because r does
// not carry them.
func ViewTurn(gameID string, r TurnResult, player, playerA string, yourCards, opponentCards int) TurnView {
	v := TurnView{
		GameID:        gameID,
		Turn:          r.Turn,
		PlayedBy:      r.Player,
		Attribute:     r.Attribute,
		Winner:        r.Winner,
		YourCards:     yourCards,
		OpponentCards: opponentCards,
		NextTurn:      r.NextTurn,
		YourTurn:      r.NextTurn == player,
		GameOver:      r.GameOver,
		OverallWinner: r.OverallWinner,
		YouWon:        r.GameOver && r.OverallWinner == player,
	}

	if player == playerA {
		v.YourCard, v.OpponentCard = r.CardA, r.CardB
		v.YourValue, v.OpponentValue = r.ValueA, r.ValueB
	} else {
		v.YourCard, v.OpponentCard = r.CardB, r.CardA
		v.YourValue, v.OpponentValue = r.ValueB, r.ValueA
	}

	switch {
	case r.Draw:
		v.Outcome = OutcomeDraw
	case r.Winner == player:
		v.Outcome = OutcomeWon
	default:
		v.Outcome = OutcomeLost
	}
	return v
}

// TurnView returns the last resolved turn from player's perspective.
func (m *Match) TurnView(player string) (TurnView, error) {
	if !m.HasPlayer(player) {
		return TurnView{}, ErrNotParticipant
	}
	if m.last == nil {
		return TurnView{}, ErrNoTurnPlayed
	}
	yours, theirs := m.deckSizes(player)
	return ViewTurn(m.id, *m.last, player, m.playerA, yours, theirs), nil
}

// StateView returns the current match state from player's perspective. Only
// the player's own top card is revealed.
func (m *Match) StateView(player string) (StateView, error) {
	if !m.HasPlayer(player) {
		return StateView{}, ErrNotParticipant
	}

	opponent, _ := m.Opponent(player)
	yours, theirs := m.deckSizes(player)
	v := StateView{
		GameID:        m.id,
		Player:        player,
		Opponent:      opponent,
		Matched:       m.matched,
		Active:        m.active,
		TurnOwner:     m.turnOwner,
		YourTurn:      m.active && m.turnOwner == player,
		YourCards:     yours,
		OpponentCards: theirs,
		TurnNumber:    m.turnNumber,
		Winner:        m.winner,
	}

	deck := m.deckA
	if player == m.playerB {
		deck = m.deckB
	}
	if top, ok := deck.Top(); ok {
		v.TopCard = &top
	}
	return v, nil
}

func (m *Match) deckSizes(player string) (int, int) {
	if player == m.playerA {
		return m.deckA.Len(), m.deckB.Len()
	}
	return m.deckB.Len(), m.deckA.Len()
}
