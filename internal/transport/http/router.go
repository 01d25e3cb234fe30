package http

import (
	"net/http"

	"company-quiz-service/internal/metrics"
	"github.com/gorilla/mux"
)

// RouterDeps wires NewRouter. Metrics and MetricsHandler are optional.
type RouterDeps struct {
	Handler        *Handler
	WS             *WSHandler
	Auth           *Authenticator
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
}

// NewRouter mounts health and metrics endpoints openly and everything else
// behind token authentication.
func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(d.Metrics.Middleware(routeTemplate))

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	if d.MetricsHandler != nil {
		r.Handle("/metrics", d.MetricsHandler).Methods(http.MethodGet)
	}

	api := r.NewRoute().Subrouter()
	api.Use(d.Auth.Middleware)
	d.Handler.register(api)
	if d.WS != nil {
		api.HandleFunc("/ws/notifications/{userID:[0-9]+}", d.WS.ServeWS).Methods(http.MethodGet)
	}
	return r
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
