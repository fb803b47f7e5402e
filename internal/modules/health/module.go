package health

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"tier_bot/internal/modules/config"
	"tier_bot/internal/modules/health/service"
	locks "tier_bot/internal/modules/locks/service"
	"tier_bot/internal/runner"
	"tier_bot/pkg/logger"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type Config struct {
	Addr       string // например ":8080"
	Portfolios []int64
}

func NewConfig(cfg *config.Config) Config {
	return Config{
		Addr:       fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort),
		Portfolios: cfg.Session.Portfolios,
	}
}

// LockCounter: сколько локов сейчас держится.
type LockCounter interface {
	Active(kind locks.Kind) int
}

func NewMux(state *service.State, engine Engine, ticks TickSubmitter, lc LockCounter, cfg Config) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /livez", func(w http.ResponseWriter, r *http.Request) {
		// liveness: процесс жив
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		// readiness: все модули стартовали
		if !state.Ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"ready":     state.Ready(),
			"uptimeSec": int64(state.Uptime().Seconds()),
			"batches":   state.Batches(),
			"locks": map[string]int{
				string(locks.KindSell): lc.Active(locks.KindSell),
				string(locks.KindBuy):  lc.Active(locks.KindBuy),
			},
			"lastTickUnix": func() int64 {
				t := state.LastTick()
				if t.IsZero() {
					return 0
				}
				return t.Unix()
			}(),
		}
		writeJSON(w, http.StatusOK, resp)
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	a := &admin{engine: engine, ticks: ticks, portfolios: cfg.Portfolios}
	a.register(mux)

	return mux
}

func RunHTTP(lc fx.Lifecycle, cfg Config, mux *http.ServeMux, state *service.State) {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("[HTTP] serve: %v", err)
				}
			}()
			logger.Info("[HTTP] admin listening on %s", cfg.Addr)
			state.SetReady(true)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			state.SetReady(false)
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("health",
		fx.Provide(
			service.NewState,
			NewConfig,
			func(r *runner.Runner) Engine { return r },
			func(rt *runner.Router) TickSubmitter { return rt },
			func(m *locks.Manager) LockCounter { return m },
			NewMux,
		),
		fx.Invoke(RunHTTP),
	)
}
