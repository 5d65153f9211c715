package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/newssaga/sagaengine/pkg/adapter"
	"github.com/newssaga/sagaengine/pkg/archive"
	"github.com/newssaga/sagaengine/pkg/oracle"
	"github.com/newssaga/sagaengine/pkg/repository"
	"github.com/newssaga/sagaengine/pkg/utils/logging"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	backendFile      = "file"
	backendSQLite    = "sqlite"
	backendFirestore = "firestore"
	backendGCS       = "gcs"

	llmGemini = "gemini"
	llmOpenAI = "openai"
)

// config holds configuration values
type config struct {
	configFile string
	logLevel   string
	logFormat  string

	// Repository
	backend    string
	sagaDir    string
	sqlitePath string
	project    string
	database   string
	bucket     string
	prefix     string

	// Archive
	archiveDir    string
	archiveBucket string

	// Oracle
	llm            string
	geminiAPIKey   string
	geminiProject  string
	geminiLocation string
	geminiModel    string
	openaiAPIKey   string
	openaiBaseURL  string
	openaiModel    string
	maxAttempts    int64
	retryDelay     time.Duration
	timeout        time.Duration
}

// fileConfig is the layout of the optional YAML file given by --config.
// Credentials are read from flags or environment only.
type fileConfig struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Repository struct {
		Backend  string `yaml:"backend"`
		Dir      string `yaml:"dir"`
		SQLite   string `yaml:"sqlite"`
		Project  string `yaml:"project"`
		Database string `yaml:"database"`
		Bucket   string `yaml:"bucket"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"repository"`

	Archive struct {
		Dir    string `yaml:"dir"`
		Bucket string `yaml:"bucket"`
	} `yaml:"archive"`

	Oracle struct {
		Backend     string        `yaml:"backend"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url"`
		Project     string        `yaml:"project"`
		Location    string        `yaml:"location"`
		MaxAttempts int64         `yaml:"max_attempts"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"oracle"`
}

func loadFileConfig(path string) (*fileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read config file", goerr.V("path", path))
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, goerr.Wrap(err, "failed to parse config file", goerr.V("path", path))
	}
	return &fc, nil
}

// applyString overwrites dst with v unless the flag was given explicitly
func applyString(c *cli.Command, name string, dst *string, v string) {
	if v != "" && !c.IsSet(name) {
		*dst = v
	}
}

// apply fills settings not given by flag or environment from the config file
func (cfg *config) apply(c *cli.Command, fc *fileConfig) {
	applyString(c, "log-level", &cfg.logLevel, fc.Log.Level)
	applyString(c, "log-format", &cfg.logFormat, fc.Log.Format)

	applyString(c, "backend", &cfg.backend, fc.Repository.Backend)
	applyString(c, "saga-dir", &cfg.sagaDir, fc.Repository.Dir)
	applyString(c, "sqlite-path", &cfg.sqlitePath, fc.Repository.SQLite)
	applyString(c, "project", &cfg.project, fc.Repository.Project)
	applyString(c, "database", &cfg.database, fc.Repository.Database)
	applyString(c, "bucket", &cfg.bucket, fc.Repository.Bucket)
	applyString(c, "prefix", &cfg.prefix, fc.Repository.Prefix)

	applyString(c, "archive-dir", &cfg.archiveDir, fc.Archive.Dir)
	applyString(c, "archive-bucket", &cfg.archiveBucket, fc.Archive.Bucket)

	applyString(c, "llm", &cfg.llm, fc.Oracle.Backend)
	applyString(c, "gemini-project", &cfg.geminiProject, fc.Oracle.Project)
	applyString(c, "gemini-location", &cfg.geminiLocation, fc.Oracle.Location)
	switch cfg.llm {
	case llmGemini:
		applyString(c, "gemini-model", &cfg.geminiModel, fc.Oracle.Model)
	case llmOpenAI:
		applyString(c, "openai-model", &cfg.openaiModel, fc.Oracle.Model)
		applyString(c, "openai-base-url", &cfg.openaiBaseURL, fc.Oracle.BaseURL)
	}
	if fc.Oracle.MaxAttempts > 0 && !c.IsSet("oracle-attempts") {
		cfg.maxAttempts = fc.Oracle.MaxAttempts
	}
	if fc.Oracle.RetryDelay > 0 && !c.IsSet("oracle-retry-delay") {
		cfg.retryDelay = fc.Oracle.RetryDelay
	}
	if fc.Oracle.Timeout > 0 && !c.IsSet("oracle-timeout") {
		cfg.timeout = fc.Oracle.Timeout
	}
}

// setup loads the config file, if any, and attaches the configured logger to ctx
func (cfg *config) setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	if cfg.configFile != "" {
		fc, err := loadFileConfig(cfg.configFile)
		if err != nil {
			return nil, err
		}
		cfg.apply(c, fc)
	}

	format, err := logging.ParseFormat(cfg.logFormat)
	if err != nil {
		return nil, err
	}

	var w io.Writer = c.Root().ErrWriter
	if w == nil {
		w = os.Stderr
	}
	logger := logging.New(cfg.logLevel, w, logging.WithFormat(format))
	logging.SetDefault(logger)
	return logging.With(ctx, logger), nil
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to YAML config file",
			Sources:     cli.EnvVars("SAGA_CONFIG"),
			Destination: &cfg.configFile,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("SAGA_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       "console",
			Sources:     cli.EnvVars("SAGA_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "backend",
			Usage:       "Saga store backend (file, sqlite, firestore, gcs)",
			Value:       backendFile,
			Sources:     cli.EnvVars("SAGA_BACKEND"),
			Destination: &cfg.backend,
		},
		&cli.StringFlag{
			Name:        "saga-dir",
			Usage:       "Directory of saga records for the file backend",
			Value:       "data/sagas",
			Sources:     cli.EnvVars("SAGA_DIR"),
			Destination: &cfg.sagaDir,
		},
		&cli.StringFlag{
			Name:        "sqlite-path",
			Usage:       "Database file for the sqlite backend",
			Value:       "data/sagas.db",
			Sources:     cli.EnvVars("SAGA_SQLITE_PATH"),
			Destination: &cfg.sqlitePath,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for the gcs backend",
			Sources:     cli.EnvVars("SAGA_BUCKET"),
			Destination: &cfg.bucket,
		},
		&cli.StringFlag{
			Name:        "prefix",
			Usage:       "Object prefix of saga records for the gcs backend",
			Value:       "sagas",
			Sources:     cli.EnvVars("SAGA_PREFIX"),
			Destination: &cfg.prefix,
		},
	}
}

// archiveFlags returns flags selecting where daily briefings are archived
func archiveFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "archive-dir",
			Usage:       "Directory of raw daily briefings",
			Value:       "data/archive",
			Sources:     cli.EnvVars("SAGA_ARCHIVE_DIR"),
			Destination: &cfg.archiveDir,
		},
		&cli.StringFlag{
			Name:        "archive-bucket",
			Usage:       "Cloud Storage bucket of raw daily briefings, overrides --archive-dir",
			Sources:     cli.EnvVars("SAGA_ARCHIVE_BUCKET"),
			Destination: &cfg.archiveBucket,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "llm",
			Usage:       "Oracle backend (gemini, openai)",
			Value:       llmGemini,
			Sources:     cli.EnvVars("SAGA_LLM"),
			Destination: &cfg.llm,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key, Vertex AI is used when empty",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini model name",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "API key of the OpenAI compatible endpoint",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Base URL of the OpenAI compatible endpoint",
			Sources:     cli.EnvVars("OPENAI_BASE_URL"),
			Destination: &cfg.openaiBaseURL,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "Model name of the OpenAI compatible endpoint",
			Sources:     cli.EnvVars("OPENAI_MODEL"),
			Destination: &cfg.openaiModel,
		},
		&cli.IntFlag{
			Name:        "oracle-attempts",
			Usage:       "Attempts per oracle question",
			Value:       oracle.DefaultMaxAttempts,
			Sources:     cli.EnvVars("SAGA_ORACLE_ATTEMPTS"),
			Destination: &cfg.maxAttempts,
		},
		&cli.DurationFlag{
			Name:        "oracle-retry-delay",
			Usage:       "Delay between oracle attempts",
			Value:       oracle.DefaultRetryDelay,
			Sources:     cli.EnvVars("SAGA_ORACLE_RETRY_DELAY"),
			Destination: &cfg.retryDelay,
		},
		&cli.DurationFlag{
			Name:        "oracle-timeout",
			Usage:       "Timeout of a single oracle attempt",
			Value:       oracle.DefaultTimeout,
			Sources:     cli.EnvVars("SAGA_ORACLE_TIMEOUT"),
			Destination: &cfg.timeout,
		},
	}
}

// newRepository creates the saga store selected by --backend. The returned
// function releases the backend and is never nil.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, func(), error) {
	nop := func() {}

	switch cfg.backend {
	case backendFile:
		repo, err := repository.NewFile(cfg.sagaDir)
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to create repository")
		}
		return repo, nop, nil

	case backendSQLite:
		repo, err := repository.NewSQLite(ctx, cfg.sqlitePath)
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to create repository")
		}
		return repo, closer(ctx, repo), nil

	case backendFirestore:
		if cfg.project == "" {
			return nil, nop, goerr.New("project is required")
		}
		if cfg.database == "" {
			return nil, nop, goerr.New("database is required")
		}
		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database)
		if err != nil {
			return nil, nop, goerr.Wrap(err, "failed to create repository")
		}
		return repo, closer(ctx, repo), nil

	case backendGCS:
		storage, err := cfg.newStorage(ctx, cfg.bucket)
		if err != nil {
			return nil, nop, err
		}
		return repository.NewObjectStore(storage, cfg.prefix), nop, nil

	default:
		return nil, nop, goerr.New("unknown backend", goerr.V("backend", cfg.backend))
	}
}

func closer(ctx context.Context, c io.Closer) func() {
	return func() {
		if err := c.Close(); err != nil {
			logging.From(ctx).Warn("failed to close repository", "error", err)
		}
	}
}

// newLLM creates the model client selected by --llm
func (cfg *config) newLLM(ctx context.Context) (adapter.LLM, error) {
	switch cfg.llm {
	case llmGemini:
		if cfg.geminiAPIKey == "" {
			if cfg.geminiProject == "" {
				return nil, goerr.New("gemini-api-key or gemini-project is required")
			}
			if cfg.geminiLocation == "" {
				return nil, goerr.New("gemini-location is required")
			}
		}
		gemini, err := adapter.NewGemini(ctx, adapter.GeminiConfig{
			APIKey:   cfg.geminiAPIKey,
			Project:  cfg.geminiProject,
			Location: cfg.geminiLocation,
		}, adapter.WithGenerativeModel(cfg.geminiModel))
		if err != nil {
			return nil, err
		}
		return gemini, nil

	case llmOpenAI:
		if cfg.openaiAPIKey == "" {
			return nil, goerr.New("openai-api-key is required")
		}
		client, err := adapter.NewOpenAI(cfg.openaiAPIKey,
			adapter.WithOpenAIBaseURL(cfg.openaiBaseURL),
			adapter.WithOpenAIModel(cfg.openaiModel),
		)
		if err != nil {
			return nil, err
		}
		return client, nil

	default:
		return nil, goerr.New("unknown llm backend", goerr.V("llm", cfg.llm))
	}
}

// newOracle creates the oracle client on top of newLLM
func (cfg *config) newOracle(ctx context.Context) (*oracle.Client, error) {
	llm, err := cfg.newLLM(ctx)
	if err != nil {
		return nil, err
	}
	return oracle.New(llm,
		oracle.WithMaxAttempts(int(cfg.maxAttempts)),
		oracle.WithRetryDelay(cfg.retryDelay),
		oracle.WithTimeout(cfg.timeout),
	), nil
}

// newArchive creates the raw briefing archive
func (cfg *config) newArchive(ctx context.Context) (*archive.Archive, error) {
	if cfg.archiveBucket != "" {
		storage, err := cfg.newStorage(ctx, cfg.archiveBucket)
		if err != nil {
			return nil, err
		}
		return archive.NewObject(storage, ""), nil
	}
	if cfg.archiveDir == "" {
		return nil, goerr.New("archive-dir is required")
	}
	return archive.NewDir(cfg.archiveDir), nil
}

// newStorage creates a new Storage adapter instance
func (cfg *config) newStorage(ctx context.Context, bucketName string) (adapter.Storage, error) {
	if bucketName == "" {
		return nil, goerr.New("bucket name is required")
	}

	storage, err := adapter.NewStorage(ctx, bucketName)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage")
	}
	return storage, nil
}
