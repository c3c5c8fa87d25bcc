package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
	"github.com/team-monumental/monuments-and-memorials-sub000/logger"
	"github.com/team-monumental/monuments-and-memorials-sub000/server"
)

// ServerCmd starts the HTTP API
var ServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Long: `Start the bulk ingestion HTTP API.

Endpoints:
  POST /api/monuments/bulk/validate   Validate an upload, save nothing
  POST /api/monuments/bulk/create     Validate and start an ingestion job
  GET  /api/monuments/bulk/jobs/{id}  Poll a job
  GET  /ws/monuments/bulk/jobs/{id}   Stream a job's progress

Edits to the active am.toml are applied without a restart.`,
	RunE: runServer,
}

var (
	serverPortFlag int
	serverDBFlag   string
)

func init() {
	ServerCmd.Flags().IntVarP(&serverPortFlag, "port", "p", 0, "Port to listen on (default: server.port)")
	ServerCmd.Flags().StringVar(&serverDBFlag, "db", "", "Database path (default: database.path)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, serverDBFlag)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(a.pipeline, a.probe, cfg, logger.Logger)

	if path := am.ActiveConfigFile(); path != "" {
		watchConfig(ctx, path, srv)
	}

	port := cfg.Server.Port
	if serverPortFlag != 0 {
		port = serverPortFlag
	}
	addr := fmt.Sprintf(":%d", port)
	pterm.Success.Printfln("Listening on http://localhost%s", addr)

	return srv.Serve(ctx, addr)
}

// watchConfig reloads the config file on change and pushes it into srv.
// A watcher that cannot start only costs hot reload.
func watchConfig(ctx context.Context, path string, srv *server.Server) {
	cw, err := am.NewConfigWatcher(path)
	if err != nil {
		logger.Logger.Warnw("Config hot reload disabled", "path", path, logger.FieldError, err)
		return
	}
	cw.OnReload(srv.ApplyConfig)
	cw.Start()
	logger.Logger.Infow("Watching config", "path", path)

	go func() {
		<-ctx.Done()
		cw.Stop()
	}()
}
