// Command kitchend is the reasoning core's HTTP/SSE server: it loads
// configuration, wires the session store, resource monitor, retrieval
// router, compound lookup client, and LLM backend into one orchestrate
// pipeline, and serves the API surface described in spec §4.12.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/kitchencore/reasoner/pkg/api"
	"github.com/kitchencore/reasoner/pkg/compounds"
	"github.com/kitchencore/reasoner/pkg/config"
	"github.com/kitchencore/reasoner/pkg/llm"
	"github.com/kitchencore/reasoner/pkg/orchestrate"
	"github.com/kitchencore/reasoner/pkg/resourcemon"
	"github.com/kitchencore/reasoner/pkg/retrieval"
	"github.com/kitchencore/reasoner/pkg/session"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("Warning: could not load %s: %v", envPath, err)
		log.Printf("Continuing with existing environment variables...")
	} else {
		log.Printf("Loaded environment from %s", envPath)
	}

	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	ctx := context.Background()
	cfg, err := config.Load(ctx, *configDir)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := slog.Default()

	var sessions session.Store
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		if err := session.Migrate(dsn); err != nil {
			log.Fatalf("Failed to migrate session store: %v", err)
		}
		store, err := session.NewPGStore(ctx, dsn)
		if err != nil {
			log.Fatalf("Failed to connect to session store: %v", err)
		}
		defer store.Close()
		sessions = store
		log.Println("Connected to Postgres session store")
	} else {
		sessions = session.NewMemStore()
		log.Println("DATABASE_URL not set, using in-memory session store")
	}

	monitor := resourcemon.New(cfg.Resource, resourcemon.GopsutilSampler{}, nil)

	var compoundsClient *compounds.Client
	if cfg.Compounds.BaseURL != "" {
		lookup := compounds.NewPubchemLookup(cfg.Compounds.BaseURL, nil)
		compoundsClient = compounds.New(cfg.Compounds, lookup)
	}

	llmAddr := getEnv("REASONER_LLM_ADDR", "localhost:50051")
	llmClient, err := llm.NewClient(llmAddr, logger)
	if err != nil {
		log.Fatalf("Failed to connect to LLM backend: %v", err)
	}
	defer llmClient.Close()

	pipeline := &orchestrate.Pipeline{
		Config:    *cfg,
		Monitor:   monitor,
		Sessions:  sessions,
		Fetcher:   retrieval.NoopFetcher{},
		Compounds: compoundsClient,
		Client:    llmClient,
		Identity: orchestrate.PolicyIdentity{
			RegistryVersion: getEnv("REASONER_REGISTRY_VERSION", "v1"),
			RegistryHash:    getEnv("REASONER_REGISTRY_HASH", "unset"),
			OntologyVersion: getEnv("REASONER_ONTOLOGY_VERSION", "v1"),
			PolicyID:        getEnv("REASONER_POLICY_ID", "default"),
			PolicyVersion:   getEnv("REASONER_POLICY_VERSION", "v1"),
			PolicyHash:      getEnv("REASONER_POLICY_HASH", "unset"),
		},
		Log: logger,
	}

	server := api.NewServer(cfg.HTTP, sessions, pipeline, monitor, logger)

	port := cfg.HTTP.Port
	if port == "" {
		port = getEnv("HTTP_PORT", "8080")
	}

	log.Printf("Starting kitchend")
	log.Printf("HTTP port: %s", port)
	log.Printf("Config directory: %s", *configDir)
	log.Printf("Health check: http://localhost:%s/health", port)

	httpServer := &http.Server{
		Addr:    ":" + port,
		Handler: server.Engine(),
	}
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
