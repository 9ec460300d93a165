package run

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jiaming2012/ward-market/src/eventconsumers"
	"github.com/jiaming2012/ward-market/src/simulation-api/router"
	"github.com/jiaming2012/ward-market/src/worker"
)

func NewHTTPHandler(app *App, events http.Handler) http.Handler {
	r := mux.NewRouter()
	router.SetupHandler(r, app.World, events)

	// Add HTTP instrumentation for the whole server.
	return otelhttp.NewHandler(r, "/")
}

// Serve runs the control surface, the notification consumers and the tick
// scheduler until ctx is cancelled.
func Serve(ctx context.Context, app *App) error {
	cfg := app.Config

	if _, err := app.Seed(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	if err := eventconsumers.NewEventLogger().Start(app.Bus); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	if cfg.Notifications.SlackWebhookURL != "" {
		if err := eventconsumers.NewSlackNotifier(cfg.Notifications.SlackWebhookURL).Start(app.Bus); err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	hub := eventconsumers.NewWebsocketHub()
	if err := hub.Start(ctx, app.Bus); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	wg := &sync.WaitGroup{}
	if cfg.Scheduler.Enabled {
		worker.NewTickScheduler(app.World, cfg.Scheduler.TickInterval, wg).Start(ctx)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      NewHTTPHandler(app, hub),
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", srv.Addr)
		srvErr <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-srvErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}

	wg.Wait()
	app.Bus.WaitAsync()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
