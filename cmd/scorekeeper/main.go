// Command scorekeeper runs the draft-league REST API server, or analyzes a
// single replay from the command line with -analyze.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/draftleague/scorekeeper/internal/api"
	"github.com/draftleague/scorekeeper/internal/auth"
	"github.com/draftleague/scorekeeper/internal/config"
	"github.com/draftleague/scorekeeper/internal/league"
	"github.com/draftleague/scorekeeper/internal/sheets"
	"github.com/draftleague/scorekeeper/internal/showdown/replay"
	"github.com/draftleague/scorekeeper/internal/smogon"
	"github.com/draftleague/scorekeeper/internal/storage"
	"github.com/draftleague/scorekeeper/internal/storage/repository"
	"github.com/draftleague/scorekeeper/internal/version"
)

var (
	port       = flag.Int("port", 0, "API server port (overrides config)")
	dbPath     = flag.String("db-path", "", "Database path (default: ~/.scorekeeper/data.db)")
	analyzeURL = flag.String("analyze", "", "Analyze a single replay URL and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if cfg.Server.DebugMode {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	if *analyzeURL != "" {
		analyzeOnce(cfg, *analyzeURL)
		return
	}

	serve(cfg)
}

// replayClient builds the replay fetcher from the configured timeout and
// inter-request delay.
func replayClient(cfg *config.Config) *replay.Client {
	timeout, err := cfg.GetReplayTimeout()
	if err != nil {
		log.Fatalf("Invalid replay timeout: %v", err)
	}
	delay, err := cfg.GetReplayRateDelay()
	if err != nil {
		log.Fatalf("Invalid replay rate delay: %v", err)
	}
	return replay.NewClientWith(timeout, delay)
}

// analyzeOnce fetches one replay and prints the tallies.
func analyzeOnce(cfg *config.Config, url string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	analysis, err := replayClient(cfg).Analyze(ctx, url)
	if err != nil {
		log.Fatalf("Failed to analyze replay: %v", err)
	}

	fmt.Printf("Replay: %s\n", analysis.ReplayID)
	fmt.Printf("Winner: %s %s\n\n", analysis.Winner, analysis.Score)
	for _, p := range analysis.Players {
		fmt.Printf("%s (%s)\n", p.Name, p.Slot)
		for _, mon := range p.Pokemon {
			fmt.Printf("  %-20s kills=%d deaths=%d\n", mon.Name, mon.Kills, mon.Deaths)
		}
		fmt.Println()
	}
	if analysis.Unresolved > 0 {
		fmt.Printf("Unresolved faints: %d\n", analysis.Unresolved)
		for _, note := range analysis.Notes {
			fmt.Printf("  %s\n", note)
		}
	}
}

func serve(cfg *config.Config) {
	fmt.Printf("Draft League Scorekeeper %s\n", version.GetVersion())
	fmt.Println("========================")
	fmt.Println()

	dataDir, err := config.Dir()
	if err != nil {
		log.Fatalf("Failed to locate data directory: %v", err)
	}

	finalDBPath := *dbPath
	if finalDBPath == "" {
		finalDBPath = cfg.Database.Path
	}
	if finalDBPath == "" {
		finalDBPath = filepath.Join(dataDir, "data.db")
	}
	fmt.Printf("Database: %s\n", finalDBPath)

	dbConfig := storage.DefaultConfig(finalDBPath)
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.AutoMigrate = cfg.Database.AutoMigrate
	db, err := storage.Open(dbConfig)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	bindings := repository.NewBindingsRepository(db.Conn())
	ledger := repository.NewLedgerRepository(db.Conn())
	replays := repository.NewReplaysRepository(db.Conn())

	credsDir := cfg.Auth.CredentialsDir
	if credsDir == "" {
		credsDir = filepath.Join(dataDir, "credentials")
	}
	pollInterval, err := cfg.GetAuthPollInterval()
	if err != nil {
		log.Fatalf("Invalid auth poll interval: %v", err)
	}

	broker, err := auth.NewBroker(auth.Config{
		CredentialsDir: credsDir,
		Passphrase:     cfg.Auth.Passphrase,
		AuthorizeURL:   cfg.Auth.AuthorizeURL,
		PollInterval:   pollInterval,
		ClientID:       cfg.Auth.ClientID,
		ClientSecret:   cfg.Auth.ClientSecret,
	}, ledger, notifyAuthorize, probeSheet)
	if err != nil {
		log.Fatalf("Failed to create credential broker: %v", err)
	}

	svc := league.NewService(league.NewBoardOpener(broker), bindings, replays)

	timeout, err := cfg.GetServerTimeout()
	if err != nil {
		log.Fatalf("Invalid server timeout: %v", err)
	}
	serverPort := cfg.Server.Port
	if *port != 0 {
		serverPort = *port
	}

	server := api.NewServer(&api.Config{
		Port:              serverPort,
		Timeout:           timeout,
		DefaultGeneration: cfg.Smogon.DefaultGeneration,
	}, api.Deps{
		Board:    svc,
		Analyzer: replayClient(cfg),
		Bindings: bindings,
		Sets:     smogon.NewClient(),
	})

	if err := server.Start(); err != nil {
		log.Fatalf("Failed to start API server: %v", err)
	}

	fmt.Println()
	fmt.Printf("API server running at http://localhost:%d\n", serverPort)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println()
	fmt.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("API server stopped.")
}

// notifyAuthorize surfaces the authorization URL. The chat dispatcher tails
// the server log and relays the link to the user.
func notifyAuthorize(tenant int64, authURL string) {
	log.Printf("authorization required for tenant %d: %s", tenant, authURL)
}

// probeSheet verifies a token can open the sheet by fetching its metadata.
func probeSheet(ctx context.Context, ts oauth2.TokenSource, sheetLink string) error {
	client, err := sheets.NewClient(ctx, ts)
	if err != nil {
		return err
	}
	_, err = client.OpenWorkbook(ctx, sheetLink)
	return err
}
