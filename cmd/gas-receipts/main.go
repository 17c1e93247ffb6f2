package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/masoncfrancis/gasreceiptautomation/internal/extraction"
	"github.com/masoncfrancis/gasreceiptautomation/internal/lubelogger"
	"github.com/masoncfrancis/gasreceiptautomation/internal/submission"
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

	// Optional .env file for local development
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	fs := ff.NewFlagSet("gas-receipts")
	var (
		port           = fs.IntLong("port", 8080, "HTTP server port")
		lubeloggerURL  = fs.StringLong("lubelogger-url", "", "LubeLogger base URL (or set LUBELOGGER_URL env var)")
		geminiKey      = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel    = fs.StringLong("gemini-model", "gemini-2.0-flash-lite", "Google Gemini model name")
		auth0Domain    = fs.StringLong("auth0-domain", "", "Auth0 tenant domain; leave empty to disable authentication")
		auth0Audience  = fs.StringLong("auth0-audience", "", "Auth0 API audience")
		auth0Issuer    = fs.StringLong("auth0-issuer", "", "Token issuer URL (defaults to https://<domain>/)")
		auth0Algorithm = fs.StringLong("auth0-algorithm", "RS256", "Token signature algorithm")
		showVersion    = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("GAS_RECEIPTS"),
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

	// Get LubeLogger URL from flag or environment
	backendURL := *lubeloggerURL
	if backendURL == "" {
		backendURL = os.Getenv("LUBELOGGER_URL")
	}
	if backendURL == "" {
		slog.Error("LubeLogger URL is required. Set --lubelogger-url flag or LUBELOGGER_URL environment variable")
		os.Exit(1)
	}

	// Get Gemini API key from flag or environment
	apiKey := *geminiKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("Gemini API key is required. Set --gemini-key flag or GEMINI_API_KEY environment variable")
		os.Exit(1)
	}

	slog.Info("Initializing Gemini extractor...", "model", *geminiModel)
	extractor, err := extraction.NewGemini(apiKey, *geminiModel)
	if err != nil {
		slog.Error("Failed to initialize Gemini", "error", err)
		os.Exit(1)
	}
	defer extractor.Close()

	slog.Info("Initializing LubeLogger client...", "url", backendURL)
	logbook := lubelogger.NewClient(backendURL)

	service := submission.NewService(extractor, logbook)

	authConfig := submission.AuthConfig{
		Domain:     *auth0Domain,
		Audience:   *auth0Audience,
		Issuer:     *auth0Issuer,
		Algorithms: []string{*auth0Algorithm},
	}
	guard, err := submission.NewAuthGuard(authConfig)
	if err != nil {
		slog.Error("Failed to initialize authentication", "error", err)
		os.Exit(1)
	}
	if guard == nil {
		slog.Warn("Authentication is disabled; all routes are open")
	}

	server := submission.NewServer(service, guard)

	// Start server in goroutine
	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
