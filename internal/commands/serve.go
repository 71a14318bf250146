package commands

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"sndiag/internal/config"
	"sndiag/internal/database"
	"sndiag/internal/handlers"
	"sndiag/internal/logger"
	"sndiag/internal/notify"
	"sndiag/internal/servicenow"
	"sndiag/internal/tools"
	"sndiag/internal/version"
	"sndiag/internal/web"
)

func RunServe(args []string) int {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		return 1
	}

	// CLI arg overrides
	portOverride := false
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--port", "-p":
			if i+1 < len(args) {
				i++
				fmt.Sscanf(args[i], "%d", &cfg.Server.Port)
				portOverride = true
			}
		case "--bind", "-b":
			if i+1 < len(args) {
				i++
				cfg.Server.Bind = args[i]
			}
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

	// Persist an explicit --port so the next start reuses it
	if portOverride {
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: config save failed: %v\n", err)
		} else {
			fmt.Printf("port %d saved to config file\n", cfg.Server.Port)
		}
	}

	// Init logger
	logger.Init(cfg.Log)
	logger.Log.Info().Str("version", version.Version).Msg("sndiag starting...")

	// Init database
	if err := database.Init(cfg.Database, cfg.IsDebug()); err != nil {
		logger.Log.Error().Err(err).Msg("database init failed")
		return 1
	}
	defer database.Close()

	// Notification channels
	notifyMgr := notify.NewManager()
	notifyMgr.Reload(cfg.Notify)

	// ServiceNow client and configured defaults
	client := servicenow.NewClient(cfg.RequestTimeout())
	defaultInstance := ""
	if cfg.ServiceNow.InstanceURL != "" {
		defaultInstance = servicenow.NormalizeInstanceURL(cfg.ServiceNow.InstanceURL)
	}
	defaultCreds := servicenow.Credentials{
		Username: cfg.ServiceNow.Username,
		Password: cfg.ServiceNow.Password,
	}

	runsRepo := database.NewCheckRunRepo()

	checksHandler := handlers.NewChecksHandler(client, defaultInstance, defaultCreds, runsRepo, notifyMgr)
	runsHandler := handlers.NewRunsHandler()
	systemHandler := handlers.NewSystemHandler(notifyMgr)

	router := web.NewRouter()

	// Diagnostics
	router.POST("/api/v1/connect", checksHandler.Connect)
	router.GET("/api/v1/checks/embeddables-enabled", checksHandler.EmbeddablesEnabled)
	router.GET("/api/v1/checks/embeddables-plugin", checksHandler.EmbeddablesPlugin)
	router.GET("/api/v1/checks/client-access-plugin", checksHandler.ClientAccessPlugin)
	router.GET("/api/v1/checks/cors-rule", checksHandler.CORSRule)
	router.GET("/api/v1/checks/embeddables", checksHandler.Embeddables)
	router.GET("/api/v1/checks/embeddables/by-name", checksHandler.EmbeddablesByName)
	router.POST("/api/v1/checks/run-all", checksHandler.RunAll)

	// Run history
	router.GET("/api/v1/runs", runsHandler.List)

	// Health
	router.GET("/api/v1/health", systemHandler.Health)

	// MCP clients probe OAuth discovery endpoints before connecting
	router.GET("/.well-known/oauth-authorization-server", handlers.OAuthNoop)
	router.GET("/.well-known/oauth-protected-resource", handlers.OAuthNoop)

	// MCP over streamable HTTP; the SDK handler owns method dispatch
	mcpHandler := tools.NewHTTPHandler(&tools.Deps{
		Client:          client,
		DefaultInstance: defaultInstance,
		DefaultCreds:    defaultCreds,
		Runs:            runsRepo,
		Notifier:        notifyMgr,
	})
	router.Handle("*", cfg.MCP.Path, mcpHandler.ServeHTTP)

	ready := &web.ReadyFlag{}

	handler := web.Chain(
		router,
		web.RecoveryMiddleware,
		web.RequestIDMiddleware,
		web.RequestLogMiddleware,
		web.CORSMiddleware(cfg.Server.CORSOrigins),
		web.ReadinessMiddleware(ready),
	)

	// Port availability probe before committing to startup
	testAddr := fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port)
	ln, err := net.Listen("tcp", testAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "port %d is already in use, cannot start\n", cfg.Server.Port)
		logger.Log.Error().Int("port", cfg.Server.Port).Err(err).Msg("port in use")
		return 1
	}
	ln.Close()

	addr := cfg.ListenAddr()
	srv := &http.Server{Addr: addr, Handler: handler}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Log.Info().Msg("shutting down...")
		srv.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error().Err(err).Msg("server start failed")
		}
	}()

	// Listener is up; release the readiness gate
	ready.Set()
	logger.Log.Info().
		Str("addr", addr).
		Str("mcp_path", cfg.MCP.Path).
		Str("instance", defaultInstance).
		Msg("sndiag serving")
	fmt.Printf("sndiag %s listening on http://%s (MCP at %s)\n", version.Version, addr, cfg.MCP.Path)

	<-done
	logger.Log.Info().Msg("server stopped")
	return 0
}
