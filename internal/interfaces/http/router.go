package httpinterface

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func newRouter(opts ServiceOpts) http.Handler {
	auth := authenticator{opts.AuthSecret}
	trades := escrowHandler{opts.EscrowSvc}
	events := newEventHandler(opts.EventSvc)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/trades", trades.listTrades)
	mux.HandleFunc("GET /v1/trades/{id}", trades.getTrade)
	mux.HandleFunc("POST /v1/trades", auth.required(trades.startTrade))
	mux.HandleFunc("POST /v1/trades/{id}/cells/{cell}", auth.required(trades.addTokenToTrade))
	mux.HandleFunc("DELETE /v1/trades/{id}/cells/{cell}", auth.required(trades.removeTokenFromTrade))
	mux.HandleFunc("POST /v1/trades/{id}/readiness", auth.required(trades.changeUserReadiness))

	mux.HandleFunc("GET /v1/events", events.streamEvents)
	mux.HandleFunc("GET /v1/webhooks", auth.required(events.listWebhooks))
	mux.HandleFunc("POST /v1/webhooks", auth.required(events.addWebhook))
	mux.HandleFunc("DELETE /v1/webhooks/{id}", auth.required(events.removeWebhook))

	mux.Handle("GET /metrics", promhttp.Handler())

	for id, handler := range opts.RegistryHandlers {
		prefix := fmt.Sprintf("/registries/%s", id)
		mux.Handle(prefix+"/", http.StripPrefix(prefix, handler))
	}

	return withLogger(mux)
}
