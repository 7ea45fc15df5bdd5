// Command salient-analyze scores a dialogue transcript and reports which
// utterances the current turn depends on.
//
// The transcript is a JSON document with a history array and a current
// utterance:
//
//	{"history": [{"id": 1, "text": "...", "speaker": "a"}, ...],
//	 "current": {"id": 9, "text": "...", "speaker": "b"}}
//
// The result is written to stdout as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/scrypster/salient/internal/config"
	"github.com/scrypster/salient/internal/engine"
	"github.com/scrypster/salient/internal/oracle"
	"github.com/scrypster/salient/internal/storage"
	"github.com/scrypster/salient/internal/storage/postgres"
	"github.com/scrypster/salient/internal/storage/sqlite"
	"github.com/scrypster/salient/pkg/types"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file (optional, uses env vars by default)")
	inputPath  = flag.String("input", "-", "Path to transcript JSON file, or - for stdin")
	useAnchors = flag.Bool("anchors", false, "Consult the anchor store and boost related candidates")
	promote    = flag.Bool("promote", false, "Promote important utterances into the anchor store (implies -anchors)")
	healthCmd  = flag.Bool("health", false, "Check oracle provider health and exit")
	pretty     = flag.Bool("pretty", true, "Indent the JSON output")
)

// transcript is the CLI input document.
type transcript struct {
	History []types.Utterance `json:"history"`
	Current types.Utterance   `json:"current"`
}

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadConfigFromFile(*configPath)
	} else {
		cfg, err = config.LoadConfig()
	}
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	orc, err := oracle.New(cfg.OracleConfig())
	if err != nil {
		log.Fatalf("Failed to create oracle: %v", err)
	}

	if *healthCmd {
		runHealthCheck(ctx, orc)
		return
	}

	tr, err := readTranscript(*inputPath)
	if err != nil {
		log.Fatalf("Failed to read transcript: %v", err)
	}
	if err := tr.Current.Validate(); err != nil {
		log.Fatalf("Invalid current utterance: %v", err)
	}

	opts := cfg.EngineOptions()

	var result *types.AnalyzeResult
	if *useAnchors || *promote {
		store, err := openAnchorStore(ctx, cfg, orc, tr.Current.Text)
		if err != nil {
			log.Fatalf("Failed to open anchor store: %v", err)
		}
		defer func() { _ = store.Close() }()

		result, err = engine.AnalyzeWithAnchors(ctx, orc, tr.History, tr.Current, store, opts)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}

		if *promote {
			added, err := engine.PromoteAnchors(ctx, orc, result, store, opts)
			if err != nil {
				log.Fatalf("Anchor promotion failed: %v", err)
			}
			log.Printf("Promoted %d anchor(s)", added)
		}
	} else {
		result, err = engine.Analyze(ctx, orc, tr.History, tr.Current, opts)
		if err != nil {
			log.Fatalf("Analysis failed: %v", err)
		}
	}

	if err := writeResult(os.Stdout, result, *pretty); err != nil {
		log.Fatalf("Failed to write result: %v", err)
	}
}

// runHealthCheck probes the oracle provider and exits non-zero on failure.
func runHealthCheck(ctx context.Context, orc oracle.Oracle) {
	checker, ok := orc.(interface {
		HealthCheck(ctx context.Context) error
	})
	if !ok {
		fmt.Println("OK (local oracle, no provider to check)")
		return
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := checker.HealthCheck(ctx); err != nil {
		log.Fatalf("Health check failed: %v", err)
	}
	fmt.Println("OK")
}

// readTranscript loads the input document from a file or stdin.
func readTranscript(path string) (*transcript, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer func() { _ = f.Close() }()
		r = f
	}

	var tr transcript
	if err := json.NewDecoder(r).Decode(&tr); err != nil {
		return nil, fmt.Errorf("invalid transcript JSON: %w", err)
	}
	return &tr, nil
}

// openAnchorStore creates the configured anchor store. Postgres stores need
// the embedding dimension up front, so the current turn is embedded once to
// probe it.
func openAnchorStore(ctx context.Context, cfg *config.Config, orc oracle.Oracle, probeText string) (storage.AnchorStore, error) {
	switch cfg.Anchors.Store {
	case "memory", "":
		return engine.NewAnchorMemory(cfg.Anchors.Capacity), nil
	case "sqlite":
		return sqlite.NewAnchorStore(cfg.Anchors.Path, cfg.Anchors.Capacity)
	case "postgres":
		vec, err := orc.Embed(ctx, probeText)
		if err != nil {
			return nil, fmt.Errorf("probing embedding dimension: %w", err)
		}
		return postgres.Open(ctx, cfg.Anchors.DSN, cfg.Anchors.Capacity, len(vec))
	default:
		return nil, fmt.Errorf("unknown anchor store %q", cfg.Anchors.Store)
	}
}

// writeResult encodes the analysis result as JSON.
func writeResult(w io.Writer, result *types.AnalyzeResult, indent bool) error {
	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}
