// Command tudescuento-mcp serves the TuDescuento CRM over the Model Context
// Protocol. All configuration comes from the environment; see internal/config.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tudescuento/mcp-server-go/internal/config"
	"github.com/tudescuento/mcp-server-go/internal/crm"
	"github.com/tudescuento/mcp-server-go/internal/crmtools"
	"github.com/tudescuento/mcp-server-go/internal/engine"
	"github.com/tudescuento/mcp-server-go/internal/httpapi"
	"github.com/tudescuento/mcp-server-go/internal/logctx"
	"github.com/tudescuento/mcp-server-go/internal/metrics"
	"github.com/tudescuento/mcp-server-go/mcp"
	"github.com/tudescuento/mcp-server-go/mcpservice"
	"github.com/tudescuento/mcp-server-go/sessions/memoryhost"
	"github.com/tudescuento/mcp-server-go/storage"
	"github.com/tudescuento/mcp-server-go/storage/memory"
	"github.com/tudescuento/mcp-server-go/storage/redis"
	"github.com/tudescuento/mcp-server-go/streaminghttp"
)

const instructions = "Asistente de Tu Descuento Colombia. Usa las herramientas para consultar categorías, membresías, descuentos y comercios aliados, y para registrar leads y casos de soporte."

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tudescuento-mcp: %v\n", err)
		os.Exit(1)
	}

	log := logctx.NewLogger(os.Stdout, logctx.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server.run.fail", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	m := metrics.New()

	crmOpts := []crm.Option{
		crm.WithTimeout(cfg.CRMTimeout),
		crm.WithLogger(log),
		crm.WithMetrics(m),
	}
	if cfg.CRMCacheTTL > 0 {
		cache, err := newCache(ctx, cfg)
		if err != nil {
			return err
		}
		defer cache.Close()
		crmOpts = append(crmOpts, crm.WithCache(cache, cfg.CRMCacheTTL))
	}
	client, err := crm.New(cfg.APIURL, cfg.APIKey, crmOpts...)
	if err != nil {
		return err
	}

	resources := mcpservice.MultiResources{crmtools.Resources()}
	if cfg.ResourcesDir != "" {
		docs, err := mcpservice.NewFSResources(cfg.ResourcesDir, mcpservice.WithFSLogger(log))
		if err != nil {
			return fmt.Errorf("resources dir: %w", err)
		}
		go func() {
			if err := docs.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("resources.watch.fail", slog.String("err", err.Error()))
			}
		}()
		resources = append(resources, docs)
	}

	eng := engine.NewEngine(
		mcpservice.Registries{
			Tools:     mcpservice.NewToolsContainer(crmtools.Tools(client)...),
			Prompts:   crmtools.Prompts(),
			Resources: resources,
		},
		engine.WithServerInfo(mcp.ImplementationInfo{Name: cfg.ServerName, Version: cfg.ServerVersion}),
		engine.WithInstructions(instructions),
		engine.WithLogger(log),
		engine.WithMetrics(m),
	)

	store := memoryhost.New(
		memoryhost.WithIdleTTL(cfg.SessionIdleTTL),
		memoryhost.WithMaxSessions(cfg.MaxSessions),
		memoryhost.WithLogger(log),
	)
	defer store.Close()
	if err := m.TrackActiveSessions(store.Count); err != nil {
		return err
	}

	transport := streaminghttp.New(store, eng,
		streaminghttp.WithStrategy(cfg.Transport),
		streaminghttp.WithKeepAlive(cfg.SSEKeepAlive),
		streaminghttp.WithMaxBodyBytes(cfg.MaxBodyBytes),
		streaminghttp.WithLogger(log),
		streaminghttp.WithMetrics(m),
	)

	api := httpapi.New(httpapi.Options{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		Sessions:      store,
		MCP:           transport,
		Metrics:       m,
		CORSOrigins:   cfg.CORSOrigins(),
		Logger:        log,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server.listen.ok",
			slog.String("addr", srv.Addr),
			slog.String("transport", string(cfg.Transport)),
			slog.String("mcp_path", httpapi.MCPPath),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("server.shutdown.start")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := transport.Shutdown(shutdownCtx); err != nil {
		log.Warn("transport.shutdown.fail", slog.String("err", err.Error()))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Info("server.shutdown.ok")
	return nil
}

// newCache picks the CRM catalog cache backend: redis when REDIS_ADDR is set,
// an in-process LRU otherwise.
func newCache(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.RedisAddr != "" {
		s, err := redis.Dial(ctx, cfg.RedisAddr, cfg.RedisKeyPrefix)
		if err != nil {
			return nil, fmt.Errorf("crm cache: %w", err)
		}
		return s, nil
	}
	size := cfg.CRMCacheMax
	if size <= 0 {
		size = 256
	}
	s, err := memory.New(size)
	if err != nil {
		return nil, fmt.Errorf("crm cache: %w", err)
	}
	return s, nil
}
