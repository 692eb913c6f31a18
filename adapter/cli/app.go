package cli

import (
	"github.com/felixgeelhaar/worksync/adapter/api"
	"github.com/felixgeelhaar/worksync/internal/fas"
	healthQueries "github.com/felixgeelhaar/worksync/internal/health/application/queries"
	ledgerCommands "github.com/felixgeelhaar/worksync/internal/ledger/application/commands"
	ledgerQueries "github.com/felixgeelhaar/worksync/internal/ledger/application/queries"
	"github.com/felixgeelhaar/worksync/pkg/config"
)

// App holds the CLI application dependencies.
type App struct {
	Config *config.Config

	// Server is started by the serve command.
	Server *api.Server

	// Ledger
	ListErrorsHandler     *ledgerQueries.ListErrorsHandler
	UpdateStatusHandler   *ledgerCommands.UpdateStatusHandler
	IncrementRetryHandler *ledgerCommands.IncrementRetryHandler

	// Health
	SyncStatusHandler *healthQueries.GetSyncStatusHandler

	// Puller is nil when no external system is configured.
	Puller *fas.Puller
}

var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
