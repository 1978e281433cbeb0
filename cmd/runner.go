package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/skysync/internal/providers"
	"github.com/desertthunder/skysync/internal/rclone"
	"github.com/desertthunder/skysync/internal/repositories"
	"github.com/desertthunder/skysync/internal/shared"
	"github.com/desertthunder/skysync/internal/tasks"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config   *shared.Config
	registry *providers.Registry
	logger   *log.Logger
	output   io.Writer

	db      *sql.DB
	manager *tasks.Manager
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config   *shared.Config
	Registry *providers.Registry
	Manager  *tasks.Manager
	Logger   *log.Logger
	Output   io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Registry == nil {
		opts.Registry = providers.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:   opts.Config,
		registry: opts.Registry,
		manager:  opts.Manager,
		logger:   opts.Logger,
		output:   opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, providersCommand, credentialsCommand, tasksCommand, daemonCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// bootstrap opens the database and wires the task manager on first use.
// Commands injected with a manager (tests) skip all of it.
func (r *Runner) bootstrap() error {
	if r.manager != nil {
		return nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	key, err := shared.LoadOrCreateKey(r.config.Secrets.KeyPath)
	if err != nil {
		db.Close()
		return err
	}
	secrets, err := shared.NewAESSecretStore(key)
	if err != nil {
		db.Close()
		return err
	}

	executor := rclone.NewExecutor(r.config.Rclone, r.registry, r.logger)

	r.db = db
	r.manager = tasks.NewManager(
		repositories.NewCredentialRepository(db),
		repositories.NewTaskRepository(db, secrets),
		repositories.NewRunRepository(db),
		r.registry,
		executor,
		r.logger,
	)
	return nil
}

// Close releases the database connection held by a bootstrapped runner.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
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

// parseAttrs turns repeated key=value flags into an attribute map. Values are
// coerced to bool or int when they parse as one, so schema-typed fields like
// ports round-trip without a JSON payload.
func parseAttrs(pairs []string) (map[string]any, error) {
	attrs := map[string]any{}
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: attribute %q is not key=value", shared.ErrInvalidFlag, pair)
		}
		switch {
		case value == "true" || value == "false":
			attrs[key] = value == "true"
		default:
			if n, err := strconv.Atoi(value); err == nil {
				attrs[key] = n
			} else {
				attrs[key] = value
			}
		}
	}
	return attrs, nil
}

// collectAttrs merges a JSON attribute payload with key=value overrides.
func collectAttrs(cmd *cli.Command) (map[string]any, error) {
	attrs := map[string]any{}
	if raw := cmd.String("attrs-json"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
			return nil, fmt.Errorf("%w: attrs-json: %v", shared.ErrInvalidFlag, err)
		}
	}
	pairs, err := parseAttrs(cmd.StringSlice("attr"))
	if err != nil {
		return nil, err
	}
	for k, v := range pairs {
		attrs[k] = v
	}
	return attrs, nil
}
