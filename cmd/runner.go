package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/radiotx/internal/repositories"
	"github.com/desertthunder/radiotx/internal/scraper"
	"github.com/desertthunder/radiotx/internal/server"
	"github.com/desertthunder/radiotx/internal/services"
	"github.com/desertthunder/radiotx/internal/shared"
	"github.com/desertthunder/radiotx/internal/storage"
	"github.com/desertthunder/radiotx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// cliSessionID keys the token used by CLI commands in the session store.
const cliSessionID = "cli"

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	store      storage.BlobStore
	sessions   server.SessionStore
	clients    tasks.ClientFactory
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Store, Sessions and Clients are built from the config when nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Store      storage.BlobStore
	Sessions   server.SessionStore
	Clients    tasks.ClientFactory
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.HTTPTimeout()}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		sessions:   opts.Sessions,
		clients:    opts.Clients,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, authCommand, scrapeCommand, syncCommand,
		mergeCommand, processBucketCommand, playlistsCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while a TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// loadConfig re-reads the config from path (plus environment), replacing the current one.
func (r *Runner) loadConfig(path string) error {
	config, err := shared.ResolveConfig(path)
	if err != nil {
		return err
	}
	r.config = config
	r.configPath = path
	r.httpClient.Timeout = config.HTTPTimeout()
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(config.Log.Level))
	return nil
}

// openDatabase opens the configured sqlite database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	if r.config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// sessionStore returns the injected store or the sqlite one. The returned func releases it.
func (r *Runner) sessionStore() (server.SessionStore, func(), error) {
	if r.sessions != nil {
		return r.sessions, func() {}, nil
	}
	db, err := r.openDatabase()
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewSessionRepository(db), func() { db.Close() }, nil
}

// blobStore returns the injected store or an S3 store for the configured bucket.
func (r *Runner) blobStore(ctx context.Context) (storage.BlobStore, error) {
	if r.store != nil {
		return r.store, nil
	}
	if r.config.Storage.Bucket == "" {
		return nil, fmt.Errorf("%w: storage.bucket (or S3_BUCKET) is not set", shared.ErrMissingConfig)
	}
	s3Store, err := storage.NewS3Store(ctx, r.config.Storage, r.logger)
	if err != nil {
		return nil, err
	}
	return s3Store, nil
}

func (r *Runner) spotifyOptions() []services.SpotifyOption {
	return []services.SpotifyOption{
		services.WithHTTPClient(r.httpClient),
		services.WithRateLimit(r.config.HTTP.RateLimit),
		services.WithLogger(r.logger),
	}
}

// clientFactory returns the injected factory or one backed by Spotify that persists refreshed tokens.
func (r *Runner) clientFactory(sessions server.SessionStore) tasks.ClientFactory {
	if r.clients != nil {
		return r.clients
	}
	onRefresh := func(id string, s services.Session) {
		if err := sessions.Save(id, s); err != nil {
			r.logger.Error("failed to persist refreshed token", "session_id", id, "error", err)
		}
	}
	return tasks.SpotifyClientFactory(r.config.Credentials.Spotify.Map(), onRefresh, r.spotifyOptions()...)
}

// cliCredentials loads the token stored by `radiotx auth`.
func (r *Runner) cliCredentials(sessions server.SessionStore) (tasks.Credentials, error) {
	data, err := sessions.Load(cliSessionID)
	if err != nil {
		return tasks.Credentials{}, fmt.Errorf("failed to load session: %w", err)
	}
	session := services.Session(data)
	if !services.IsAuthenticated(session) && session[services.KeyRefreshToken] == "" {
		return tasks.Credentials{}, fmt.Errorf("%w: run 'radiotx auth' first", shared.ErrNotAuthenticated)
	}
	return tasks.Credentials{SessionID: cliSessionID, Session: session}, nil
}

func (r *Runner) scrapeJob(store storage.BlobStore) *scraper.Job {
	s := scraper.New(r.httpClient, r.config.Scraper.UserAgent, r.logger)
	return scraper.NewJob(s, store, r.config.Storage.Bucket, r.config.Scraper.Stations, r.config.Scraper.RateLimit, r.logger)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
