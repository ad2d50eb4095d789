// Package config provides runtime configuration and card seed files for the
// cricket trumps match server.
//
// The config package handles:
//   - Reading TRUMPS_* environment variables into Config
//   - Validating ports, store selection, timeouts and the starter policy
//   - Loading card seed files (JSON) from the cards directory
//   - Deriving card slugs from names and validating seed sets
//
// Seed File Format:
//
//	{
//	  "name": "Cricket Legends",
//	  "description": "Test and ODI greats",
//	  "cards": [
//	    {"name": "Sachin Tendulkar", "power": 98, "strike_rate": 86.2,
//	     "wickets": 46, "matches_played": 463, "runs_scored": 18426,
//	     "highest_score": 200}
//	  ]
//	}
//
// Usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sets, err := config.NewManager(cfg.CardsDir)
//	if err != nil {
//		log.Fatal(err)
//	}
//	seed, err := sets.LoadSet(cfg.SeedSet)
package config
