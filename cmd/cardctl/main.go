// Command cardctl manages the card catalog and reads match history from the
// configured store.
//
//	cardctl import --file cards/cricket_legends.json
//	cardctl list
//	cardctl history --player ana@example.com --limit 5
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/wricardo/cricket-trumps/game/config"
	"github.com/wricardo/cricket-trumps/game/service"
	"github.com/wricardo/cricket-trumps/storage"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "cardctl:", err)
		os.Exit(1)
	}
}

func newApp(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "cardctl",
		Usage:  "manage the cricket trumps card catalog",
		Writer: stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "load environment variables from this file first",
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "store driver (sqlite or postgres)",
				Sources: cli.EnvVars("TRUMPS_STORE"),
			},
			&cli.StringFlag{
				Name:    "sqlite-path",
				Usage:   "sqlite database file",
				Sources: cli.EnvVars("TRUMPS_SQLITE_PATH"),
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "postgres connection string",
				Sources: cli.EnvVars("TRUMPS_POSTGRES_DSN"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if path := cmd.String("env-file"); path != "" {
				if err := godotenv.Load(path); err != nil {
					return ctx, fmt.Errorf("load env file: %w", err)
				}
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "upsert the cards of a card set file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Usage: "card set JSON file", Required: true},
				},
				Action: runImport,
			},
			{
				Name:   "list",
				Usage:  "list the catalog",
				Action: runList,
			},
			{
				Name:  "history",
				Usage: "show a player's finished games",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "player", Usage: "player email", Required: true},
					&cli.IntFlag{Name: "limit", Usage: "maximum entries", Value: 20},
				},
				Action: runHistory,
			},
		},
	}
}

// openStore builds the config from the environment, applies flag overrides
// and opens the store.
func openStore(ctx context.Context, cmd *cli.Command) (storage.Store, error) {
	values := map[string]string{}
	for _, key := range []string{"TRUMPS_STORE", "TRUMPS_SQLITE_PATH", "TRUMPS_POSTGRES_DSN"} {
		if v, ok := os.LookupEnv(key); ok {
			values[key] = v
		}
	}
	if cmd.IsSet("store") {
		values["TRUMPS_STORE"] = cmd.String("store")
	}
	if cmd.IsSet("sqlite-path") {
		values["TRUMPS_SQLITE_PATH"] = cmd.String("sqlite-path")
	}
	if cmd.IsSet("postgres-dsn") {
		values["TRUMPS_POSTGRES_DSN"] = cmd.String("postgres-dsn")
	}

	cfg, err := config.LoadFrom(values)
	if err != nil {
		return nil, err
	}
	return storage.Open(ctx, cfg, zap.NewNop())
}

func runImport(ctx context.Context, cmd *cli.Command) error {
	set, err := config.LoadCardFile(cmd.String("file"))
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.UpsertCards(ctx, set.Cards)
	if err != nil {
		return fmt.Errorf("import %s: %w", set.Name, err)
	}
	fmt.Fprintf(cmd.Root().Writer, "imported %d cards from %q\n", n, set.Name)
	return nil
}

func runList(ctx context.Context, cmd *cli.Command) error {
	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	cards, err := store.ListCards(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLUG\tNAME\tPOWER\tSR\tWKTS\tMATCHES\tRUNS\tHS")
	for _, c := range cards {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%.2f\t%d\t%d\t%d\t%d\n",
			c.Slug, c.Name, c.Power, c.StrikeRate, c.Wickets, c.MatchesPlayed, c.RunsScored, c.HighestScore)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.Root().Writer, "%d cards\n", len(cards))
	return nil
}

func runHistory(ctx context.Context, cmd *cli.Command) error {
	player := service.NormalizePlayer(cmd.String("player"))
	if player == "" {
		return fmt.Errorf("player is required")
	}

	store, err := openStore(ctx, cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.MatchHistory(ctx, player, cmd.Int("limit"))
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(cmd.Root().Writer, "no finished games for %s\n", player)
		return nil
	}

	tw := tabwriter.NewWriter(cmd.Root().Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GAME\tOPPONENT\tRESULT\tFINISHED")
	for _, e := range entries {
		result := "lost"
		if e.Won {
			result = "won"
		}
		if e.Forfeit {
			result += " (forfeit)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.GameID, e.Opponent, result, e.FinishedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
