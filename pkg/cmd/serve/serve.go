package serve

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/lightshow/pkg/api"
	"github.com/igolaizola/lightshow/pkg/ngrok"
	"github.com/igolaizola/lightshow/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr         string
	CDNDir       string
	CacheControl string
	Credentials  map[string]string
	// Tunnel exposes the server through ngrok.
	Tunnel bool
}

// Serve exposes the datastore read api and, optionally, the published
// bundles of a local file store.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("serve: server started")
	defer log.Println("serve: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("serve: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("serve: couldn't start orm store: %w", err)
	}
	defer func() { _ = store.Stop() }()

	handler := api.NewRouter(store, &api.RouterConfig{
		Debug:        cfg.Debug,
		CDNDir:       cfg.CDNDir,
		CacheControl: cfg.CacheControl,
		Credentials:  cfg.Credentials,
	})

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("serve: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("serve: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: handler,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("Starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v\n", err)
			cancel()
		}
	}()

	if cfg.Tunnel {
		u, closeTunnel, err := ngrok.Run(ctx, strconv.Itoa(port), 30*time.Second)
		if err != nil {
			_ = server.Close()
			return fmt.Errorf("serve: %w", err)
		}
		defer closeTunnel()
		log.Printf("serve: public api %s/api\n", u)
		if cfg.CDNDir != "" {
			log.Printf("serve: public cdn %s/cdn\n", u)
		}
	}

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: couldn't shutdown server: %w", err)
	}
	return nil
}
