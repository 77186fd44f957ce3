package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soundleaf/folderplay/internal/ai"
	"github.com/soundleaf/folderplay/internal/lyrics"
	"github.com/soundleaf/folderplay/internal/player"
	"github.com/soundleaf/folderplay/internal/prefs"
	"github.com/soundleaf/folderplay/internal/shared"
	"github.com/soundleaf/folderplay/internal/source"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config    *shared.Config
	db        *sql.DB
	store     prefs.Store
	sources   *prefs.Sources
	playback  *prefs.Playback
	lyrics    *lyrics.Client
	blurbs    *ai.Client
	newPlayer func() (player.Player, error)
	logger    *log.Logger
	output    io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config    *shared.Config
	Store     prefs.Store
	NewPlayer func() (player.Player, error)
	Logger    *log.Logger
	Output    io.Writer
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

	r := &Runner{
		config:    opts.Config,
		logger:    opts.Logger,
		output:    opts.Output,
		newPlayer: opts.NewPlayer,
		lyrics:    lyrics.NewClient(opts.Config.Lyrics.APIURL, opts.Logger),
		blurbs:    ai.NewClient(opts.Config.AI, opts.Logger),
	}
	if r.newPlayer == nil {
		r.newPlayer = func() (player.Player, error) {
			return player.NewMPV(player.DefaultBinary, opts.Logger)
		}
	}
	if opts.Store != nil {
		r.attachStore(opts.Store)
	}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, configCommand, sourcesCommand, browseCommand, queueCommand, playCommand, infoCommand, resetCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureStore opens the preference database on first use.
func (r *Runner) ensureStore() error {
	if r.store != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	store, err := prefs.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to prepare database: %w", err)
	}

	r.db = db
	r.attachStore(store)
	return nil
}

func (r *Runner) attachStore(store prefs.Store) {
	r.store = store
	r.sources = prefs.NewSources(store)
	r.playback = prefs.NewPlayback(store)
}

// resolveSource finds a configured source by ID, name, or list position.
func (r *Runner) resolveSource(ctx context.Context, ref string) (source.Config, error) {
	configs, err := r.sources.List(ctx)
	if err != nil {
		return source.Config{}, err
	}
	if len(configs) == 0 {
		return source.Config{}, fmt.Errorf("%w: no sources configured", shared.ErrSourceNotFound)
	}
	if ref == "" {
		return configs[0], nil
	}

	for _, cfg := range configs {
		if cfg.ID == ref || strings.EqualFold(cfg.Name, ref) {
			return cfg, nil
		}
	}

	var position int
	if _, err := fmt.Sscanf(ref, "%d", &position); err == nil && position >= 1 && position <= len(configs) {
		return configs[position-1], nil
	}
	return source.Config{}, fmt.Errorf("%w: %s", shared.ErrSourceNotFound, ref)
}

// webdavOptions maps config onto transport limits.
func (r *Runner) webdavOptions() source.WebDAVOptions {
	opts := source.DefaultWebDAVOptions()
	if r.config.WebDAV.Timeout > 0 {
		opts.Timeout = secondsToDuration(r.config.WebDAV.Timeout)
	}
	if r.config.WebDAV.RequestsPerSecond > 0 {
		opts.RequestsPerSecond = float64(r.config.WebDAV.RequestsPerSecond)
	}
	return opts
}

func (r *Runner) openSource(cfg source.Config) source.Source {
	return source.New(cfg, r.webdavOptions(), r.logger)
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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
