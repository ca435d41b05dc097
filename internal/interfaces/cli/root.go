// Package cli implements the cronos operator tool: read-only alert and agenda
// queries, digest publishing, schema migrations and a local due calculator.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/application/digest"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// skipConfigAnnotation marks commands that run without configuration.
const skipConfigAnnotation = "cronos/skip-config"

type cliContextKey struct{}

// Backend is the set of services the query commands run against.
type Backend interface {
	AlertsService() alerts.Service
	AgendaService() agenda.Service
	WindowResolver() alerts.WindowResolver
	Publisher() (digest.Publisher, error)
	Close()
}

// BackendFactory dials the backend once configuration is loaded.
type BackendFactory func(ctx context.Context, cfg *config.Config, logger logging.Logger) (Backend, error)

type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	Timeout      time.Duration
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Timeout      time.Duration

	factory BackendFactory
	once    sync.Once
	backend Backend
	err     error
}

// Backend dials on first use and reuses the result afterwards.
func (c *CLIContext) Backend(ctx context.Context) (Backend, error) {
	c.once.Do(func() {
		if c.factory == nil {
			c.err = errors.New(errors.ErrCodeServiceUnavailable, "no backend configured")
			return
		}
		c.backend, c.err = c.factory(ctx, c.Config, c.Logger)
	})
	return c.backend, c.err
}

func (c *CLIContext) close() {
	if c.backend != nil {
		c.backend.Close()
	}
}

// NewRootCommand builds the command tree. factory is only invoked by commands
// that need the database.
func NewRootCommand(factory BackendFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "cronos",
		Short:   "cronos operator CLI",
		Long:    "Operator tool for the cronos compliance service: inspect alert buckets and\nagendas, publish tenant digests, and manage the database schema.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return persistentPreRun(cmd, opts, factory)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if cliCtx, err := GetCLIContext(cmd); err == nil {
				cliCtx.close()
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: CRONOS_* environment)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", "table", "output format (table, json)")
	pf.DurationVar(&opts.Timeout, "timeout", 60*time.Second, "operation timeout")

	cmd.AddCommand(
		NewAlertsCmd(),
		NewAgendaCmd(),
		NewDigestCmd(),
		NewMigrateCmd(),
		NewDueCmd(),
	)
	return cmd
}

func persistentPreRun(cmd *cobra.Command, opts *RootOptions, factory BackendFactory) error {
	switch strings.ToLower(opts.OutputFormat) {
	case "table", "json":
	default:
		return errors.Newf(errors.ErrCodeValidation, "unknown output format %q", opts.OutputFormat)
	}

	logger, err := logging.NewLogger(logging.LogConfig{
		Level:            opts.LogLevel,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("logger initialization failed: %w", err)
	}

	cliCtx := &CLIContext{
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Timeout:      opts.Timeout,
		factory:      factory,
	}

	if cmd.Annotations[skipConfigAnnotation] == "" {
		cfg, err := config.LoadOrEnv(opts.ConfigPath)
		if err != nil {
			return fmt.Errorf("config initialization failed: %w", err)
		}
		cliCtx.Config = cfg
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// GetCLIContext extracts the CLIContext stored by the root command.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.New(errors.ErrCodeInternal, "CLIContext not found in command context")
	}
	return cliCtx, nil
}

// backendFor returns the dialled backend and a context bounded by --timeout.
func backendFor(cmd *cobra.Command) (Backend, context.Context, context.CancelFunc, error) {
	cliCtx, err := GetCLIContext(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cliCtx.Timeout)
	b, err := cliCtx.Backend(ctx)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	return b, ctx, cancel, nil
}

// Execute runs the CLI.
func Execute(factory BackendFactory) error {
	rootCmd := NewRootCommand(factory)
	if err := rootCmd.Execute(); err != nil {
		PrintError(rootCmd, err)
		return err
	}
	return nil
}

type tableProvider interface {
	TableHeaders() []string
	TableRows() [][]string
}

// PrintResult writes data as JSON or, when it can render itself, as a table.
func PrintResult(cmd *cobra.Command, data interface{}) error {
	format := "table"
	if cliCtx, err := GetCLIContext(cmd); err == nil {
		format = cliCtx.OutputFormat
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	if tp, ok := data.(tableProvider); ok {
		fmt.Fprint(cmd.OutOrStdout(), FormatTable(tp.TableHeaders(), tp.TableRows()))
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%+v\n", data)
	return nil
}

func PrintError(cmd *cobra.Command, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())
}

func PrintSuccess(cmd *cobra.Command, msg string) {
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %s\n", msg)
}

// FormatTable renders headers and rows as an aligned ASCII table.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			if len(row[i]) > widths[i] {
				widths[i] = len(row[i])
			}
		}
	}

	var sb strings.Builder
	writeRow := func(cells []string) {
		for i := range headers {
			if i > 0 {
				sb.WriteString("  ")
			}
			val := ""
			if i < len(cells) {
				val = cells[i]
			}
			if i == len(headers)-1 {
				sb.WriteString(val)
			} else {
				sb.WriteString(padRight(val, widths[i]))
			}
		}
		sb.WriteString("\n")
	}

	writeRow(headers)
	seps := make([]string, len(widths))
	for i, w := range widths {
		seps[i] = strings.Repeat("-", w)
	}
	writeRow(seps)
	for _, row := range rows {
		writeRow(row)
	}
	return sb.String()
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
