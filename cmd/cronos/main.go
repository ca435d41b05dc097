// Command cronos is the operator CLI.
package main

import (
	"context"
	"os"

	"github.com/MosandosSantos/cronos-sub000/internal/application/agenda"
	"github.com/MosandosSantos/cronos-sub000/internal/application/alerts"
	"github.com/MosandosSantos/cronos-sub000/internal/bootstrap"
	"github.com/MosandosSantos/cronos-sub000/internal/config"
	"github.com/MosandosSantos/cronos-sub000/internal/infrastructure/monitoring/logging"
	"github.com/MosandosSantos/cronos-sub000/internal/interfaces/cli"
)

// Build-time variables injected via ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func init() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate
}

// containerBackend exposes the container services to the CLI.
type containerBackend struct {
	*bootstrap.Container
}

func (b containerBackend) AlertsService() alerts.Service          { return b.Alerts }
func (b containerBackend) AgendaService() agenda.Service          { return b.Agenda }
func (b containerBackend) WindowResolver() alerts.WindowResolver { return b.Windows }

func newBackend(ctx context.Context, cfg *config.Config, logger logging.Logger) (cli.Backend, error) {
	c, err := bootstrap.New(ctx, cfg, logger, bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return containerBackend{c}, nil
}

func main() {
	if err := cli.Execute(newBackend); err != nil {
		os.Exit(1)
	}
}
