package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ctr-research/SurveyPipe/internal/api"
	"github.com/ctr-research/SurveyPipe/internal/booking"
	"github.com/ctr-research/SurveyPipe/internal/cache"
	"github.com/ctr-research/SurveyPipe/internal/genai"
	"github.com/ctr-research/SurveyPipe/internal/notify"
	"github.com/ctr-research/SurveyPipe/internal/scheduler"
	"github.com/ctr-research/SurveyPipe/internal/store"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for SurveyPipe state data
	DefaultStateDir = "/var/lib/surveypipe"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "surveypipe.db"
	// DefaultCacheFileName is the default session snapshot database filename
	DefaultCacheFileName = "sessions.db"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	slog.Info("Bootstrapping SurveyPipe with configured modules")
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	if err := run(flags); err != nil {
		slog.Error("SurveyPipe failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("SurveyPipe exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL    string
	StateDir       string
	CachePath      string
	OpenAIKey      string
	APIAddr        string
	EmailServiceID string
	TwilioSID      string
	ReminderCron   string
	PurgeCron      string
}

// Flags holds command line flag values
type Flags struct {
	stateDir     *string
	dbDSN        *string
	cachePath    *string
	openaiKey    *string
	apiAddr      *string
	reminderCron *string
	purgeCron    *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StateDir:       os.Getenv("SURVEYPIPE_STATE_DIR"),
		CachePath:      os.Getenv("SESSION_CACHE_PATH"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		APIAddr:        os.Getenv("API_ADDR"),
		EmailServiceID: os.Getenv("EMAILJS_SERVICE_ID"),
		TwilioSID:      os.Getenv("TWILIO_ACCOUNT_SID"),
		ReminderCron:   os.Getenv("REMINDER_CRON"),
		PurgeCron:      os.Getenv("PURGE_CRON"),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No SURVEYPIPE_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("SURVEYPIPE_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}
	if config.CachePath == "" {
		config.CachePath = filepath.Join(config.StateDir, DefaultCacheFileName)
		slog.Debug("No cache path provided, defaulting to state directory", "cache_path", config.CachePath)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SURVEYPIPE_STATE_DIR", config.StateDir,
		"SESSION_CACHE_PATH", config.CachePath,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"EMAILJS_SERVICE_ID_SET", config.EmailServiceID != "",
		"TWILIO_ACCOUNT_SID_SET", config.TwilioSID != "",
		"REMINDER_CRON", config.ReminderCron,
		"PURGE_CRON", config.PurgeCron)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:     flag.String("state-dir", config.StateDir, "state directory for SurveyPipe data (overrides $SURVEYPIPE_STATE_DIR)"),
		dbDSN:        flag.String("db-dsn", config.DatabaseURL, "database DSN for the record store (overrides $DATABASE_URL)"),
		cachePath:    flag.String("cache-path", config.CachePath, "path of the session snapshot database (overrides $SESSION_CACHE_PATH)"),
		openaiKey:    flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key for debrief generation (overrides $OPENAI_API_KEY)"),
		apiAddr:      flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		reminderCron: flag.String("reminder-cron", config.ReminderCron, "cron schedule for interview reminders (overrides $REMINDER_CRON)"),
		purgeCron:    flag.String("purge-cron", config.PurgeCron, "cron schedule for snapshot purges (overrides $PURGE_CRON)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"cachePath", *flags.cachePath,
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"reminderCron", *flags.reminderCron,
		"purgeCron", *flags.purgeCron)

	// Update file paths if the state directory was overridden on the command line
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}
	if *flags.cachePath == config.CachePath && config.CachePath == filepath.Join(config.StateDir, DefaultCacheFileName) && *flags.stateDir != config.StateDir {
		*flags.cachePath = filepath.Join(*flags.stateDir, DefaultCacheFileName)
		slog.Debug("Updated cache path based on state directory", "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	// Ensure state directory exists if we're using a file-based DSN
	if !strings.Contains(*flags.dbDSN, "postgres://") && !strings.Contains(*flags.dbDSN, "host=") {
		stateDir := filepath.Dir(*flags.dbDSN)
		slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
		if err := os.MkdirAll(stateDir, 0755); err != nil {
			slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
			return err
		}
	}
	if *flags.cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(*flags.cachePath), 0755); err != nil {
			slog.Error("Failed to create cache directory", "error", err, "cache_path", *flags.cachePath)
			return err
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == "postgres" {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
		}
		storeOpts = append(storeOpts, store.WithDSN(*flags.dbDSN))
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	return genaiOpts
}

// openStore selects the record store backend from the DSN.
func openStore(flags Flags) (store.Store, error) {
	storeOpts := buildStoreOptions(flags)
	if len(storeOpts) == 0 {
		return store.NewInMemoryStore(), nil
	}
	if store.DetectDSNType(*flags.dbDSN) == "postgres" {
		return store.NewPostgresStore(storeOpts...)
	}
	return store.NewSQLiteStore(storeOpts...)
}

// buildNotifier assembles the configured notification channels. A deployment
// without email or SMS credentials runs silently.
func buildNotifier() notify.Notifier {
	var channels notify.MultiNotifier
	if os.Getenv("EMAILJS_SERVICE_ID") != "" {
		email, err := notify.NewEmailNotifier()
		if err != nil {
			slog.Error("Email notifier configuration failed", "error", err)
		} else {
			channels = append(channels, email)
		}
	}
	if os.Getenv("TWILIO_ACCOUNT_SID") != "" {
		sms, err := notify.NewSMSNotifier()
		if err != nil {
			slog.Error("SMS notifier configuration failed", "error", err)
		} else {
			channels = append(channels, sms)
		}
	}
	if len(channels) == 0 {
		slog.Warn("No notification channels configured, booking notifications disabled")
		return nil
	}
	return channels
}

func run(flags Flags) error {
	st, err := openStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	snapshots, err := cache.Open(*flags.cachePath, nil)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	notifier := buildNotifier()
	bookingScheduler := booking.NewScheduler(st, notifier)

	serverOpts := []api.ServerOption{
		api.WithScheduler(bookingScheduler),
		api.WithCache(snapshots),
	}
	if gaClient, err := genai.NewClient(buildGenAIOptions(flags)...); err != nil {
		slog.Warn("GenAI client not configured, debriefs fall back to static descriptions", "error", err)
	} else {
		serverOpts = append(serverOpts, api.WithDebrief(gaClient))
	}

	srv := api.NewServer(st, *flags.apiAddr, serverOpts...)

	cronScheduler := scheduler.NewScheduler()
	defer cronScheduler.Stop()
	maintenance := scheduler.NewMaintenance(st, notifier, scheduler.WithPurger(snapshots))
	if err := maintenance.Register(cronScheduler, *flags.reminderCron, *flags.purgeCron); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}
