package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/tuanvumaihuynh/pantry-sync/internal/config"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/apierr"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/metric"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/middleware"
	"github.com/tuanvumaihuynh/pantry-sync/internal/http/swagger"
	"github.com/tuanvumaihuynh/pantry-sync/internal/service"
	"github.com/tuanvumaihuynh/pantry-sync/internal/storage/db"
)

var tracer = otel.Tracer("internal/http")

// BarcodeCache drops cached barcode resolutions.
type BarcodeCache interface {
	Forget(ctx context.Context, barcode string) (bool, error)
}

// Service represents the HTTP service.
type Service struct {
	cfg      config.HTTP
	authCfg  config.Auth
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *metric.Metrics
	health   db.HealthChecker

	inventorySvc service.InventoryService
	shoppingSvc  service.ShoppingService
	barcodeCache BarcodeCache
}

type CleanupFunc func(ctx context.Context) error

// New creates the HTTP service. barcodeCache may be nil when barcode
// resolutions are not cached.
func New(
	cfg config.HTTP,
	authCfg config.Auth,
	log *slog.Logger,
	health db.HealthChecker,
	inventorySvc service.InventoryService,
	shoppingSvc service.ShoppingService,
	barcodeCache BarcodeCache,
) *Service {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Service{
		cfg:          cfg,
		authCfg:      authCfg,
		logger:       log.With(slog.String("service", "http")),
		registry:     registry,
		metrics:      metric.New(registry),
		health:       health,
		inventorySvc: inventorySvc,
		shoppingSvc:  shoppingSvc,
		barcodeCache: barcodeCache,
	}
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	handler, err := s.Handler()
	if err != nil {
		return nil, err
	}

	return s.RunWithServer(ctx, handler)
}

// Handler builds the router with every middleware and route registered.
func (s *Service) Handler() (http.Handler, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		if err := swagger.Register(r); err != nil {
			return nil, fmt.Errorf("register swagger: %w", err)
		}
	}

	s.RegisterHandlers(r)
	return r, nil
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("http server stopped", slog.Any("error", err))
		}
	}()

	s.logger.InfoContext(ctx, "http server listening", slog.String("addr", ln.Addr().String()))

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsOrigins),
		middleware.Logging(s.logger),
	)
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := s.newHandler()

	r.Get("/healthz", s.handle(h.Healthz))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(s.authCfg.JWTSecret, s.logger))

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", s.handle(h.ListInventoryItems))
			r.Post("/", s.handle(h.AddInventoryItem))
			r.Get("/expiring", s.handle(h.ExpiringSummary))
			r.Get("/stats", s.handle(h.InventoryStats))
			r.Get("/export", s.handle(h.ExportInventoryCSV))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handle(h.GetInventoryItem))
				r.Patch("/", s.handle(h.UpdateInventoryItem))
				r.Delete("/", s.handle(h.DeleteInventoryItem))
				r.Post("/adjust", s.handle(h.AdjustInventoryQuantity))
			})
		})

		r.Route("/shopping", func(r chi.Router) {
			r.Get("/", s.handle(h.ListShoppingItems))
			r.Post("/", s.handle(h.AddShoppingItem))
			r.Post("/from-inventory/{inventoryItemId}", s.handle(h.AddShoppingItemFromInventory))
			r.Post("/clear-checked", s.handle(h.ClearChecked))
			r.Post("/import", s.handle(h.ImportCheckedToInventory))
			r.Post("/suggest", s.handle(h.SuggestLowStock))

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handle(h.GetShoppingItem))
				r.Patch("/", s.handle(h.UpdateShoppingItem))
				r.Delete("/", s.handle(h.DeleteShoppingItem))
			})
		})

		r.Post("/expiry/classify", s.handle(h.ClassifyExpiry))

		r.Get("/barcodes/{barcode}", s.handle(h.LookupBarcode))
		if s.barcodeCache != nil {
			r.Delete("/barcodes/{barcode}/cache", s.handle(h.ForgetBarcode))
		}
	})

	r.Handle(middleware.MetricsPath, promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		ErrorLog: log.Default(),
	}))
}

// handlerFunc is an HTTP handler that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error", slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

type handler struct {
	*healthHandler
	*inventoryHandler
	*shoppingHandler
	*barcodeHandler
}

func (s *Service) newHandler() *handler {
	return &handler{
		healthHandler:    newHealthHandler(s.health),
		inventoryHandler: newInventoryHandler(s.inventorySvc),
		shoppingHandler:  newShoppingHandler(s.shoppingSvc),
		barcodeHandler:   newBarcodeHandler(s.inventorySvc, s.barcodeCache),
	}
}
