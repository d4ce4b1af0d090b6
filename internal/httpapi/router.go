package httpapi

import "net/http"

// NewRouter wires the API routes. observers may be nil when the websocket
// hub is disabled.
func NewRouter(svc *Service, observers http.HandlerFunc) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/events", svc.handleEvents)
	mux.HandleFunc("/api/agents", svc.handleListAgents)
	mux.HandleFunc("/api/agents/", svc.handleAgent)
	if observers != nil {
		mux.HandleFunc("/ws/observers", observers)
	}
	return mux
}
