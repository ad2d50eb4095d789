// Command autoplay plays complete matches against a running server through
// the REST API, one bot per seat. It is a smoke test for the match flow and
// a quick way to compare calling strategies.
//
//	autoplay -url http://localhost:8080 -games 20 -a rank -b random
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/engine"
	"github.com/wricardo/cricket-trumps/game/service"
)

// Seat is one bot player.
type Seat struct {
	Player   string
	Strategy Strategy
}

// Outcome summarizes one played game.
type Outcome struct {
	GameID  string
	Winner  string
	Turns   int
	Forfeit bool
}

// Runner drives games between two seats.
type Runner struct {
	client   *Client
	log      *zap.Logger
	maxTurns int
	delay    time.Duration
}

// PlayGame matches both seats and plays until the game ends. A game still
// running after maxTurns is conceded by the seat holding fewer cards.
func (r *Runner) PlayGame(ctx context.Context, a, b Seat) (*Outcome, error) {
	first, err := r.client.RequestMatch(ctx, a.Player)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", a.Player, err)
	}
	second, err := r.client.RequestMatch(ctx, b.Player)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", b.Player, err)
	}
	if second.State != service.StateMatched || second.GameID != first.GameID {
		return nil, fmt.Errorf("seats were not paired: %s vs %s", first.GameID, second.GameID)
	}
	gameID := second.GameID
	seats := map[string]Seat{service.NormalizePlayer(a.Player): a, service.NormalizePlayer(b.Player): b}
	r.log.Debug("matched", zap.String("game", gameID), zap.String("starts", second.TurnOwner))

	for turns := 0; ; turns++ {
		state, err := r.client.State(ctx, gameID, a.Player)
		if err != nil {
			return nil, err
		}
		if !state.Active {
			return &Outcome{GameID: gameID, Winner: state.Winner, Turns: turns}, nil
		}
		if turns >= r.maxTurns {
			return r.concede(ctx, gameID, state, a.Player, b.Player, turns)
		}

		owner := seats[state.TurnOwner]
		if owner.Player == "" {
			return nil, fmt.Errorf("unknown turn owner %q", state.TurnOwner)
		}
		view := state
		if owner.Player != a.Player {
			if view, err = r.client.State(ctx, gameID, owner.Player); err != nil {
				return nil, err
			}
		}
		if view.TopCard == nil {
			return nil, fmt.Errorf("turn owner %s has no card", owner.Player)
		}

		attr := owner.Strategy.Choose(*view.TopCard)
		ack, err := r.client.PlayTurn(ctx, gameID, owner.Player, attr, view.TurnNumber+1)
		if err != nil {
			return nil, fmt.Errorf("turn %d: %w", view.TurnNumber+1, err)
		}
		r.log.Debug("turn",
			zap.Int("turn", ack.Turn),
			zap.String("player", owner.Player),
			zap.String("card", ack.YourCard.Name),
			zap.String("attribute", string(attr)),
			zap.String("outcome", string(ack.Outcome)))

		if ack.GameOver {
			return &Outcome{GameID: gameID, Winner: ack.OverallWinner, Turns: turns + 1}, nil
		}
		if r.delay > 0 {
			time.Sleep(r.delay)
		}
	}
}

func (r *Runner) concede(ctx context.Context, gameID string, state *engine.StateView, a, b string, turns int) (*Outcome, error) {
	loser := a
	if state.YourCards > state.OpponentCards {
		loser = b
	}
	res, err := r.client.Leave(ctx, loser)
	if err != nil {
		return nil, fmt.Errorf("concede: %w", err)
	}
	r.log.Info("turn limit reached, conceded", zap.String("game", gameID), zap.String("player", loser))
	return &Outcome{GameID: gameID, Winner: res.Winner, Turns: turns, Forfeit: true}, nil
}

func strategyFor(name string, catalog []engine.Card, seed uint64) (Strategy, error) {
	switch name {
	case "rank":
		return NewRankStrategy(catalog), nil
	case "random":
		return NewRandomStrategy(seed), nil
	default:
		return nil, errors.New("unknown strategy " + name + " (use rank or random)")
	}
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	games := flag.Int("games", 10, "Number of games to play")
	playerA := flag.String("player-a", "bot-a@autoplay.local", "First seat")
	playerB := flag.String("player-b", "bot-b@autoplay.local", "Second seat")
	stratA := flag.String("a", "rank", "Strategy of the first seat (rank or random)")
	stratB := flag.String("b", "random", "Strategy of the second seat (rank or random)")
	maxTurns := flag.Int("max-turns", 500, "Turns before the trailing seat concedes")
	seed := flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for the random strategy")
	delayMs := flag.Int("delay", 0, "Delay between turns in milliseconds (0 = no delay)")
	verbose := flag.Bool("v", false, "Verbose output")
	flag.Parse()

	logger, _ := zap.NewProduction()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	ctx := context.Background()
	client := NewClient(*serverURL)

	catalog, err := client.Cards(ctx)
	if err != nil {
		logger.Fatal("failed to load catalog", zap.Error(err))
	}

	sa, err := strategyFor(*stratA, catalog, *seed)
	if err != nil {
		logger.Fatal("seat a", zap.Error(err))
	}
	sb, err := strategyFor(*stratB, catalog, *seed+1)
	if err != nil {
		logger.Fatal("seat b", zap.Error(err))
	}

	runner := &Runner{client: client, log: logger, maxTurns: *maxTurns, delay: time.Duration(*delayMs) * time.Millisecond}
	a := Seat{Player: *playerA, Strategy: sa}
	b := Seat{Player: *playerB, Strategy: sb}

	wins := map[string]int{}
	for i := 0; i < *games; i++ {
		// Alternate who queues first so the starting seat varies.
		first, second := a, b
		if i%2 == 1 {
			first, second = b, a
		}
		out, err := runner.PlayGame(ctx, first, second)
		if err != nil {
			logger.Error("game failed", zap.Int("game", i+1), zap.Error(err))
			os.Exit(1)
		}
		wins[out.Winner]++
		logger.Info("game over",
			zap.Int("game", i+1),
			zap.String("id", out.GameID),
			zap.String("winner", out.Winner),
			zap.Int("turns", out.Turns),
			zap.Bool("forfeit", out.Forfeit))
	}

	fmt.Printf("%s (%s): %d wins\n", a.Player, *stratA, wins[service.NormalizePlayer(a.Player)])
	fmt.Printf("%s (%s): %d wins\n", b.Player, *stratB, wins[service.NormalizePlayer(b.Player)])
}
