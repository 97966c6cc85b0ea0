package main

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/receiptos/receiptos/internal/backend"
	"github.com/receiptos/receiptos/internal/receipt"
	"github.com/receiptos/receiptos/internal/scanning"
	"github.com/receiptos/receiptos/internal/server"
	"github.com/receiptos/receiptos/internal/service"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "--version" || arg == "-version" || arg == "-v" {
			fmt.Println(version)
			os.Exit(0)
		}
	}

	fs := ff.NewFlagSet("receiptos")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		dbPath         = fs.StringLong("db", "receiptos.db", "Local receipt store file path")
		mock           = fs.StringLong("mock", "false", "Set to 'true' to keep receipts locally instead of calling the backend")
		backendURL     = fs.StringLong("backend-url", backend.DefaultBaseURL, "Receipt backend API base URL")
		backendTimeout = fs.DurationLong("backend-timeout", 0, "Backend request timeout (0 for none)")
		loadSamples    = fs.BoolLong("load-samples", "Replace the local collection with the bundled samples (mock mode only)")
		sensitive      = fs.StringLong("sensitive-keywords", "", "Comma-separated extra data-item keywords that mark a receipt HIGH risk")
		scannerType    = fs.StringLong("scanner", "none", "Scanner for images and scanned PDFs: 'none', 'gemini' or 'ollama'")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL      = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel    = fs.StringLong("ollama-model", "qwen2-vl", "Ollama vision model name (e.g., qwen2-vl, llava)")
		authUser       = fs.StringLong("auth-user", "", "Basic auth username (optional)")
		authPass       = fs.StringLong("auth-pass", "", "Basic auth password (optional)")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("RECEIPTOS"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Check version flag after parsing
	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	classifier := receipt.DefaultClassifier
	if *sensitive != "" {
		classifier = classifier.WithItemKeywords(strings.Split(*sensitive, ",")...)
	}

	// Initialize local store
	slog.Info("Opening local store...", "path", *dbPath)
	store, err := receipt.NewBoltStore(*dbPath)
	if err != nil {
		slog.Error("Failed to open local store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	local := service.LocalModeEnabled(*mock)
	client := backend.NewClient(*backendURL, *backendTimeout)
	receiptService := service.NewService(store, client, local)

	if *loadSamples {
		if !local {
			slog.Warn("Ignoring --load-samples outside mock mode")
		} else {
			samples, err := receiptService.LoadSamples()
			if err != nil {
				slog.Error("Failed to load samples", "error", err)
				os.Exit(1)
			}
			slog.Info("Loaded sample receipts", "count", len(samples))
		}
	}

	scanner, err := newScanner(*scannerType, *geminiKey, *geminiModel, *ollamaURL, *ollamaModel)
	if err != nil {
		slog.Error("Failed to initialize scanner", "type", *scannerType, "error", err)
		os.Exit(1)
	}
	if scanner != nil {
		defer scanner.Close()
	}

	basicAuth := server.BasicAuth{
		Username: *authUser,
		Password: *authPass,
	}
	srv := server.NewServer(receiptService, scanning.NewExtractor(scanner), classifier, basicAuth)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := srv.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr), "local_mode", local, "backend", *backendURL)
	if *authUser != "" || *authPass != "" {
		slog.Info("Basic auth enabled", "user", *authUser)
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}

// newScanner builds the configured transcription model; "none" leaves uploads text-only
func newScanner(kind, geminiKey, geminiModel, ollamaURL, ollamaModel string) (scanning.Scanner, error) {
	switch kind {
	case "none", "":
		slog.Info("No scanner configured; image uploads will be refused")
		return nil, nil
	case "gemini":
		apiKey := geminiKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
		}
		if apiKey == "" {
			return nil, errors.New("gemini API key is required: set --gemini-key or GEMINI_API_KEY")
		}
		slog.Info("Initializing Gemini scanner...", "model", geminiModel)
		gemini, err := scanning.NewGemini(apiKey, geminiModel)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	case "ollama":
		slog.Info("Initializing Ollama scanner...", "url", ollamaURL, "model", ollamaModel)
		ollama, err := scanning.NewOllama(ollamaURL, ollamaModel)
		if err != nil {
			return nil, err
		}
		return ollama, nil
	}
	return nil, fmt.Errorf("invalid scanner type %q (valid: none, gemini, ollama)", kind)
}
