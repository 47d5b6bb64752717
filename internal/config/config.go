package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const AppName = "Winnow"

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Tool    ToolConfig
	Tracing TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	SpaPath            string
	Dev                bool
	OutcomeRetention   time.Duration
}

// StorageConfig locates the session document, the run result file and the
// collection and metadata directories under one root.
type StorageConfig struct {
	Root string
}

type ToolConfig struct {
	// Command is the program and fixed arguments; the run payload is appended.
	Command   string
	Timeout   time.Duration
	WaitDelay time.Duration
}

type TracingConfig struct {
	Enabled  bool
	Endpoint string
}

// Overrides come from the command line and win over the environment.
// Empty fields are ignored.
type Overrides struct {
	Port        string
	StorageRoot string
	SpaPath     string
	LogFile     string
	Dev         bool
}

func Load() *Config {
	return LoadWith(Overrides{})
}

func LoadWith(o Overrides) *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	dev := o.Dev || getEnvAsBool("WINNOW_DEV", false)
	storageRoot := getEnv("STORAGE_PATH", defaultStorageRoot(dev))

	environment := "production"
	if dev {
		environment = "development"
	}

	cfg := &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "8001"),
			Environment:        getEnv("GO_ENV", environment),
			LogFilePath:        getEnv("LOG_FILE_PATH", ""),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:8001"),
			SpaPath:            getEnv("SPA_PATH", "./www-data"),
			Dev:                dev,
			OutcomeRetention:   getEnvAsDuration("OUTCOME_RETENTION", time.Hour),
		},
		Storage: StorageConfig{
			Root: storageRoot,
		},
		Tool: ToolConfig{
			Command:   getEnv("TOOL_COMMAND", "python3 cli.py --tool-script"),
			Timeout:   getEnvAsDuration("TOOL_TIMEOUT", 6*time.Hour),
			WaitDelay: getEnvAsDuration("TOOL_WAIT_DELAY", 5*time.Second),
		},
		Tracing: TracingConfig{
			Enabled:  getEnvAsBool("OTEL_ENABLED", false),
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}

	if o.Port != "" {
		cfg.App.Port = o.Port
	}
	if o.StorageRoot != "" {
		cfg.Storage.Root = o.StorageRoot
	}
	if o.SpaPath != "" {
		cfg.App.SpaPath = o.SpaPath
	}
	if o.LogFile != "" {
		cfg.App.LogFilePath = o.LogFile
	}
	return cfg
}

// IsProduction selects the JSON console encoder.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// LogFile defaults to logs/winnow.log under the storage root.
func (c *Config) LogFile() string {
	if c.App.LogFilePath != "" {
		return c.App.LogFilePath
	}
	return filepath.Join(c.Storage.Root, "logs", "winnow.log")
}

// ToolCommand splits the configured command on whitespace.
func (c *Config) ToolCommand() []string {
	return strings.Fields(c.Tool.Command)
}

func (s StorageConfig) DataDir() string        { return filepath.Join(s.Root, "data") }
func (s StorageConfig) DataFile() string       { return filepath.Join(s.DataDir(), "session.json") }
func (s StorageConfig) RunFile() string        { return filepath.Join(s.DataDir(), "run.json") }
func (s StorageConfig) CollectionsDir() string { return filepath.Join(s.DataDir(), "corpus-files") }
func (s StorageConfig) MetadataDir() string    { return filepath.Join(s.DataDir(), "metadata-files") }
func (s StorageConfig) RunsDir() string        { return filepath.Join(s.DataDir(), "runs") }

// EnsureLayout creates every storage directory.
func (s StorageConfig) EnsureLayout() error {
	for _, dir := range []string{s.CollectionsDir(), s.MetadataDir(), s.RunsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// defaultStorageRoot is the working directory in dev mode and the per-user
// application directory otherwise.
func defaultStorageRoot(dev bool) string {
	if dev {
		return "."
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, "."+strings.ToLower(AppName))
	}
	return "."
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90m") or plain seconds ("5400").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds := getEnvAsInt(key, -1); seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
