package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes attaches the full operator HTTP surface to mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /system/info", h.SystemInfo)
	mux.HandleFunc("GET /queue/status", h.QueueStatus)

	mux.HandleFunc("POST /order/collect/{shopId}", h.CollectOrders)
	mux.HandleFunc("GET /order/search", h.SearchOrders)
	mux.HandleFunc("GET /order/{id}", h.GetOrder)

	mux.Handle("GET /metrics", promhttp.Handler())
}
