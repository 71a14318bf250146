package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"sndiag/internal/config"
	"sndiag/internal/database"
	"sndiag/internal/logger"
	"sndiag/internal/notify"
	"sndiag/internal/servicenow"
	"sndiag/internal/tools"
)

// RunMCP serves the MCP tools over stdin/stdout. Logs go to file (or
// stderr in debug mode) so stdout stays a clean protocol stream.
func RunMCP(args []string) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 1
	}
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--instance", "-i":
			if i+1 < len(args) {
				i++
				cfg.ServiceNow.InstanceURL = args[i]
			}
		case "--debug":
			cfg.Log.Mode = "debug"
			cfg.Log.Level = "debug"
		}
	}

	logger.Init(cfg.Log)

	if err := database.Init(cfg.Database, cfg.IsDebug()); err != nil {
		logger.Log.Error().Err(err).Msg("database init failed")
		return 1
	}
	defer database.Close()

	notifyMgr := notify.NewManager()
	notifyMgr.Reload(cfg.Notify)

	defaultInstance := ""
	if cfg.ServiceNow.InstanceURL != "" {
		defaultInstance = servicenow.NormalizeInstanceURL(cfg.ServiceNow.InstanceURL)
	}

	deps := &tools.Deps{
		Client:          servicenow.NewClient(cfg.RequestTimeout()),
		DefaultInstance: defaultInstance,
		DefaultCreds: servicenow.Credentials{
			Username: cfg.ServiceNow.Username,
			Password: cfg.ServiceNow.Password,
		},
		Runs:     database.NewCheckRunRepo(),
		Notifier: notifyMgr,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tools.RunStdio(ctx, deps); err != nil && ctx.Err() == nil {
		logger.Log.Error().Err(err).Msg("MCP stdio server failed")
		return 1
	}
	return 0
}
