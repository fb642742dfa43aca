package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"photo-fusion-server/modules/common/config"
	"photo-fusion-server/modules/common/hub"
	"photo-fusion-server/modules/common/session"
	"photo-fusion-server/modules/common/stats"
)

const maxParamsBytes = 64 << 10

// Server wires the session store, the websocket hub and the stats counter
// to the HTTP API.
type Server struct {
	cfg       *config.Config
	sessions  *session.Manager
	hub       *hub.Hub
	counter   stats.Counter
	limiter   *ipLimiter
	startTime time.Time
}

func New(cfg *config.Config, sessions *session.Manager, h *hub.Hub, counter stats.Counter) *Server {
	return &Server{
		cfg:       cfg,
		sessions:  sessions,
		hub:       h,
		counter:   counter,
		limiter:   newIPLimiter(cfg.RateLimitPerMinute, cfg.TrustedProxies),
		startTime: time.Now(),
	}
}

// Router - 라우터 설정
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(requestID, accessLog, enableCORS)

	r.HandleFunc("/", s.healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.getMetrics).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWebSocket)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/modes", s.listModes).Methods(http.MethodGet)
	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)

	api.HandleFunc("/sessions/{id}/pokefusion/random", s.limiter.middleware(s.randomPokemon)).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{id}/{mode}", s.getPage).Methods(http.MethodGet)
	page := api.PathPrefix("/sessions/{id}/{mode}").Subrouter()
	page.HandleFunc("/image", s.uploadImage).Methods(http.MethodPost)
	page.HandleFunc("/params", s.setParams).Methods(http.MethodPut)
	page.HandleFunc("/generate", s.limiter.middleware(s.generate)).Methods(http.MethodPost)
	page.HandleFunc("/reset", s.reset).Methods(http.MethodPost)
	page.HandleFunc("/retry", s.retry).Methods(http.MethodPost)
	page.HandleFunc("/download", s.download).Methods(http.MethodGet)

	// preflight requests need a matching route for the CORS middleware to run
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(http.ResponseWriter, *http.Request) {})

	return r
}
