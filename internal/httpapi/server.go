// Package httpapi exposes the dialer and bank-SMS HTTP surface of
// spec §6, grounded on the teacher's internal/health/health.go
// (gorilla/mux, JSON responses, Start/Stop http.Server lifecycle).
// It carries no auth/session issuance beyond the shared dialer bearer
// token, no CORS, and no admin UI — those are explicit Non-goals.
package httpapi

import (
    "context"
    "fmt"
    "net/http"

    "github.com/gorilla/mux"
    "github.com/dialerhub/core/internal/config"
    "github.com/dialerhub/core/internal/db"
    "github.com/dialerhub/core/pkg/logger"
)

type Server struct {
    cfg    config.HTTPConfig
    server *http.Server
}

// NewServer wires the /dialer routes behind the bearer-token
// middleware (spec §6: "all requests authenticated with a shared
// bearer token"). /sms/ingest is registered on the root router and
// is not behind the bearer-token middleware.
func NewServer(httpCfg config.HTTPConfig, dialerCfg config.DialerConfig, billingCfg config.BillingConfig,
    smsCfg config.SMSConfig, conn *db.DB, cache *db.Cache) *Server {

    router := mux.NewRouter()
    h := &handlers{dialerCfg: dialerCfg, billingCfg: billingCfg, smsCfg: smsCfg, conn: conn, cache: cache}

    dialer := router.PathPrefix("/dialer").Subrouter()
    dialer.Use(bearerAuth(dialerCfg.Token))
    dialer.HandleFunc("/next-batch", h.nextBatch).Methods(http.MethodGet)
    dialer.HandleFunc("/report-result", h.reportResult).Methods(http.MethodPost)
    dialer.HandleFunc("/register-scenarios", h.registerScenarios).Methods(http.MethodPost)
    dialer.HandleFunc("/register-outbound-lines", h.registerOutboundLines).Methods(http.MethodPost)

    router.HandleFunc("/sms/ingest", h.smsIngest).Methods(http.MethodGet)

    addr := fmt.Sprintf("%s:%d", httpCfg.ListenAddress, httpCfg.Port)
    return &Server{
        cfg: httpCfg,
        server: &http.Server{
            Addr:         addr,
            Handler:      router,
            ReadTimeout:  httpCfg.ReadTimeout,
            WriteTimeout: httpCfg.WriteTimeout,
        },
    }
}

func (s *Server) Start() error {
    logger.WithField("addr", s.server.Addr).Info("dialer HTTP surface started")
    err := s.server.ListenAndServe()
    if err == http.ErrServerClosed {
        return nil
    }
    return err
}

func (s *Server) Stop() error {
    ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
    defer cancel()
    return s.server.Shutdown(ctx)
}

// bearerAuth enforces spec §6's shared dialer token on every /dialer route.
func bearerAuth(token string) mux.MiddlewareFunc {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            got := r.Header.Get("Authorization")
            if got != "Bearer "+token {
                writeError(w, http.StatusUnauthorized, "invalid or missing bearer token")
                return
            }
            next.ServeHTTP(w, r)
        })
    }
}
