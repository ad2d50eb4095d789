package engine

// Match holds the in-memory state of one game between two players: the two
// decks, whose turn it is, and the last resolved turn. A Match is not safe
// for concurrent use; callers serialize access per match.
type Match struct {
	id         string
	playerA    string
	playerB    string
	deckA      Deck
	deckB      Deck
	turnOwner  string
	matched    bool
	active     bool
	turnNumber int
	last       *TurnResult
	winner     string
}

// NewMatch creates a pending match with one seated player.
func NewMatch(id, playerA string) *Match {
	return &Match{
		id:      id,
		playerA: playerA,
	}
}

// Join seats the second player, deals the decks and hands the first turn to
// starter, which must be one of the two players.
func (m *Match) Join(playerB string, deckA, deckB Deck, starter string) error {
	if m.matched {
		return ErrAlreadyMatched
	}
	if playerB == m.playerA {
		return ErrSelfMatch
	}
	if deckA.Len() == 0 || deckB.Len() == 0 {
		return ErrEmptyDeck
	}
	if starter != m.playerA && starter != playerB {
		return ErrNotParticipant
	}

	m.playerB = playerB
	m.deckA = NewDeck(deckA.cards...)
	m.deckB = NewDeck(deckB.cards...)
	m.turnOwner = starter
	m.matched = true
	m.active = true
	return nil
}

// PlayTurn resolves one turn for player using attr.
//
// seq is the turn number the caller believes it is playing (TurnNumber()+1).
// Zero means "the current turn". When seq names the turn that was just
// resolved by the same player with the same attribute, the stored result is
// returned and nothing changes, so a retried request is applied only once.
func (m *Match) PlayTurn(player string, attr Attribute, seq int) (TurnResult, error) {
	if !m.matched {
		return TurnResult{}, ErrNotMatched
	}
	if !m.HasPlayer(player) {
		return TurnResult{}, ErrNotParticipant
	}

	if seq != 0 && m.last != nil && seq == m.last.Turn {
		if m.last.Player != player {
			return TurnResult{}, ErrNotYourTurn
		}
		if m.last.Attribute != attr {
			return TurnResult{}, ErrStaleTurn
		}
		return *m.last, nil
	}

	if !m.active {
		return TurnResult{}, ErrEmptyDeck
	}
	if player != m.turnOwner {
		return TurnResult{}, ErrNotYourTurn
	}
	if seq != 0 && seq != m.turnNumber+1 {
		return TurnResult{}, ErrStaleTurn
	}

	cardA, okA := m.deckA.Top()
	cardB, okB := m.deckB.Top()
	if !okA || !okB {
		return TurnResult{}, ErrEmptyDeck
	}

	valueA, okA := cardA.Value(attr)
	valueB, okB := cardB.Value(attr)
	if !okA || !okB {
		return TurnResult{}, ErrUnknownAttribute
	}

	m.turnNumber++
	result := TurnResult{
		Turn:      m.turnNumber,
		Player:    player,
		Attribute: attr,
		CardA:     cardA,
		CardB:     cardB,
		ValueA:    valueA,
		ValueB:    valueB,
	}

	switch {
	case valueA > valueB:
		m.award(&m.deckA, &m.deckB)
		m.turnOwner = m.playerA
		result.Winner, result.Loser = m.playerA, m.playerB
	case valueB > valueA:
		m.award(&m.deckB, &m.deckA)
		m.turnOwner = m.playerB
		result.Winner, result.Loser = m.playerB, m.playerA
	default:
		// Draw: each side keeps its card, which goes to the bottom of its own deck.
		m.deckA.rotate()
		m.deckB.rotate()
		m.turnOwner = m.other(player)
		result.Draw = true
	}

	if m.deckA.Len() == 0 || m.deckB.Len() == 0 {
		m.active = false
		m.winner, result.OverallLoser = m.playerA, m.playerB
		if m.deckA.Len() == 0 {
			m.winner, result.OverallLoser = m.playerB, m.playerA
		}
		m.turnOwner = ""
		result.GameOver = true
		result.OverallWinner = m.winner
	}
	result.NextTurn = m.turnOwner

	m.last = &result
	return result, nil
}

// award moves both top cards to the bottom of the winning deck, the winner's
// own card first.
func (m *Match) award(winner, loser *Deck) {
	own := winner.pop()
	taken := loser.pop()
	winner.push(own, taken)
}

func (m *Match) other(player string) string {
	if player == m.playerA {
		return m.playerB
	}
	return m.playerA
}

// ID returns the match identifier.
func (m *Match) ID() string { return m.id }

// PlayerA returns the player who opened the match.
func (m *Match) PlayerA() string { return m.playerA }

// PlayerB returns the second player, empty while pending.
func (m *Match) PlayerB() string { return m.playerB }

// Matched reports whether both seats are filled.
func (m *Match) Matched() bool { return m.matched }

// Active reports whether turns can still be played.
func (m *Match) Active() bool { return m.active }

// TurnOwner returns the player expected to choose the next attribute.
func (m *Match) TurnOwner() string { return m.turnOwner }

// TurnNumber returns the number of resolved turns.
func (m *Match) TurnNumber() int { return m.turnNumber }

// Winner returns the overall winner once the match is over.
func (m *Match) Winner() string { return m.winner }

// DeckA returns a copy of player A's deck.
func (m *Match) DeckA() Deck { return NewDeck(m.deckA.cards...) }

// DeckB returns a copy of player B's deck.
func (m *Match) DeckB() Deck { return NewDeck(m.deckB.cards...) }

// LastResult returns the most recently resolved turn.
func (m *Match) LastResult() (TurnResult, bool) {
	if m.last == nil {
		return TurnResult{}, false
	}
	return *m.last, true
}

// HasPlayer reports whether player holds a seat.
func (m *Match) HasPlayer(player string) bool {
	return player != "" && (player == m.playerA || player == m.playerB)
}

// Opponent returns the other seated player.
func (m *Match) Opponent(player string) (string, bool) {
	if !m.HasPlayer(player) {
		return "", false
	}
	return m.other(player), true
}
