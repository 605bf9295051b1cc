// fit-import replays FIT activity files through the gait classifier and
// stores the resulting ride summaries in the session database.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/db"
	"github.com/tetratrack/gaitd/internal/fitimport"
)

var (
	dbPath     = flag.String("db", "gaitd.db", "Path to the session database")
	configPath = flag.String("config", "", "Tuning config JSON file (built-in defaults when empty)")
	dryRun     = flag.Bool("dry-run", false, "Print summaries without storing them")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: fit-import [flags] <activity.fit> [more.fit ...]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}

	var database *db.DB
	if !*dryRun {
		var err error
		database, err = db.Open(*dbPath)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer database.Close()
		if err := database.MigrateUp(); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
	}

	for _, path := range flag.Args() {
		summary, err := fitimport.ImportFile(path, tuning)
		if err != nil {
			log.Fatalf("Failed to import %s: %v", path, err)
		}

		fmt.Printf("%s: session %s, %s ride, %.0f m, %d transitions, %.1f s gallop\n",
			path, summary.SessionID,
			summary.EndedAt.Sub(summary.StartedAt).Round(time.Second),
			summary.DistanceM, len(summary.Transitions), summary.GallopSeconds)

		if database != nil {
			if err := database.SaveSummary(summary); err != nil {
				log.Fatalf("Failed to store %s: %v", path, err)
			}
		}
	}
}
