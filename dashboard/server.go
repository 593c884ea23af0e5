package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stratusdeck/stratusdeck/weatherapi"
)

// WebServer exposes the dashboard over HTTP: REST endpoints for the
// render model and user commands, a WebSocket channel pushing view
// updates, and the static web UI.
type WebServer struct {
	store     *Store
	history   *History
	server    *http.Server
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map
	broadcast chan []byte
	done      chan struct{}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Version   string          `json:"version,omitempty"`
	Dashboard DashboardHealth `json:"dashboard"`
	System    SystemHealth    `json:"system"`
}

// DashboardHealth represents store-specific health information
type DashboardHealth struct {
	IsRunning   bool   `json:"is_running"`
	Generation  uint64 `json:"generation"`
	Place       string `json:"place"`
	Loading     bool   `json:"loading"`
	HasForecast bool   `json:"has_forecast"`
	Error       string `json:"error,omitempty"`
}

// SystemHealth represents system-level health information
type SystemHealth struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines,omitempty"`
}

// NewWebServer creates a web server for the given store. The history is
// optional and may be nil.
func NewWebServer(store *Store, history *History, port int) *WebServer {
	if port <= 0 {
		return nil // Web server disabled
	}

	mux := http.NewServeMux()
	ws := &WebServer{
		store:     store,
		history:   history,
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	// Register API routes
	mux.HandleFunc("/api/health", ws.healthHandler)
	mux.HandleFunc("/api/ready", ws.readinessHandler)
	mux.HandleFunc("/api/status", ws.statusHandler)
	mux.HandleFunc("/api/view", ws.viewHandler)
	mux.HandleFunc("/api/query", ws.queryHandler)
	mux.HandleFunc("/api/select", ws.selectHandler)
	mux.HandleFunc("/api/refresh", ws.refreshHandler)
	mux.HandleFunc("/api/refresh-location", ws.refreshLocationHandler)
	mux.HandleFunc("/api/history", ws.historyHandler)
	mux.HandleFunc("/api/ws", ws.wsHandler)

	// Serve static files from web folder
	fs := http.FileServer(http.Dir("./web/dist"))
	mux.Handle("/", fs)

	return ws
}

// Start starts the web server
func (ws *WebServer) Start() error {
	if ws == nil {
		return nil // Web server disabled
	}

	go ws.handleBroadcasts()
	go ws.pumpViews()
	go ws.broadcastStatus()

	go func() {
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't crash the main application
			fmt.Printf("Web server error: %v\n", err)
		}
	}()

	return nil
}

// Stop gracefully stops the web server
func (ws *WebServer) Stop(ctx context.Context) error {
	if ws == nil {
		return nil // Web server disabled
	}

	// Signal goroutines to stop
	close(ws.done)

	// Close all WebSocket connections
	ws.clients.Range(func(key, value any) bool {
		if conn, ok := key.(*websocket.Conn); ok {
			conn.Close()
		}
		return true
	})

	return ws.server.Shutdown(ctx)
}

// healthHandler handles the /api/health endpoint
func (ws *WebServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := ws.buildHealth()

	w.Header().Set("Content-Type", "application/json")
	if health.Status != "healthy" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(health); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// readinessHandler handles the /api/ready endpoint
func (ws *WebServer) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	running := ws.store.IsRunning()

	ready := map[string]any{
		"ready":     running,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")

	if !running {
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	if err := json.NewEncoder(w).Encode(ready); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statusHandler handles the /api/status endpoint (detailed status)
func (ws *WebServer) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"store":     ws.store.GetStatus(),
		"clients":   ws.clientCount(),
		"history":   ws.history != nil,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// viewHandler handles the /api/view endpoint returning the current
// render model
func (ws *WebServer) viewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	view := ws.store.GetView()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(view); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// queryHandler handles the /api/query endpoint feeding search box edits
func (ws *WebServer) queryHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ws.store.UpdateQuery(req.Query)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"accepted": true})
}

// selectHandler handles the /api/select endpoint picking a candidate
func (ws *WebServer) selectHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var place weatherapi.Place
	if err := json.NewDecoder(r.Body).Decode(&place); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := place.Coordinate().Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ws.store.SelectCandidate(place)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"accepted": true})
}

// refreshHandler handles the /api/refresh endpoint
func (ws *WebServer) refreshHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.store.Refresh()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"accepted": true})
}

// refreshLocationHandler handles the /api/refresh-location endpoint
func (ws *WebServer) refreshLocationHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ws.store.RefreshLocation()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"accepted": true})
}

// historyHandler handles the /api/history endpoint
func (ws *WebServer) historyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if ws.history == nil {
		http.Error(w, "History not configured", http.StatusNotFound)
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	entries, err := ws.history.RecentEntries(r.Context(), limit)
	if err != nil {
		http.Error(w, "Failed to load history", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"count":   len(entries),
		"entries": entries,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// wsHandler handles WebSocket connections
func (ws *WebServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		fmt.Printf("WebSocket upgrade error: %v\n", err)
		return
	}

	// Register new client under a session ID
	sessionID := uuid.New().String()
	ws.clients.Store(conn, sessionID)
	fmt.Printf("WebSocket client %s connected. Total clients: %d\n", sessionID, ws.clientCount())

	// Send the current view immediately
	ws.sendViewToClient(conn)

	// Handle client disconnection
	defer func() {
		ws.clients.Delete(conn)
		conn.Close()
		fmt.Printf("WebSocket client %s disconnected. Total clients: %d\n", sessionID, ws.clientCount())
	}()

	// Read messages from client (ping/pong, close)
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				fmt.Printf("WebSocket error: %v\n", err)
			}
			break
		}
	}
}

// handleBroadcasts sends messages to all connected clients
func (ws *WebServer) handleBroadcasts() {
	for {
		select {
		case message := <-ws.broadcast:
			ws.clients.Range(func(key, value any) bool {
				conn, ok := key.(*websocket.Conn)
				if !ok {
					return true
				}

				err := conn.WriteMessage(websocket.TextMessage, message)
				if err != nil {
					fmt.Printf("WebSocket write error: %v\n", err)
					conn.Close()
					ws.clients.Delete(conn)
				}
				return true
			})
		case <-ws.done:
			return
		}
	}
}

// pumpViews forwards every published view to connected clients.
func (ws *WebServer) pumpViews() {
	views, cancel := ws.store.Subscribe()
	defer cancel()

	for {
		select {
		case view, ok := <-views:
			if !ok {
				return
			}

			message, err := json.Marshal(map[string]any{
				"type": "view_update",
				"view": view,
			})
			if err != nil {
				fmt.Printf("Failed to marshal view update: %v\n", err)
				continue
			}

			select {
			case ws.broadcast <- message:
			case <-ws.done:
				return
			}
		case <-ws.done:
			return
		}
	}
}

// broadcastStatus periodically broadcasts status updates
func (ws *WebServer) broadcastStatus() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if ws.clientCount() == 0 {
				continue
			}

			message, err := json.Marshal(ws.buildStatusData())
			if err != nil {
				fmt.Printf("Failed to marshal status data: %v\n", err)
				continue
			}

			select {
			case ws.broadcast <- message:
			case <-ws.done:
				return
			}
		case <-ws.done:
			return
		}
	}
}

// sendViewToClient sends the current view to a specific client
func (ws *WebServer) sendViewToClient(conn *websocket.Conn) {
	data := map[string]any{
		"type": "view_update",
		"view": ws.store.GetView(),
	}
	if err := conn.WriteJSON(data); err != nil {
		fmt.Printf("Failed to send initial view: %v\n", err)
	}
}

// buildHealth builds the health response from the store state
func (ws *WebServer) buildHealth() HealthResponse {
	running := ws.store.IsRunning()
	view := ws.store.GetView()

	health := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   "1.0.0",
		Dashboard: DashboardHealth{
			IsRunning:   running,
			Generation:  view.Generation,
			Place:       view.PlaceLabel,
			Loading:     view.Request.Loading,
			HasForecast: view.Forecast != nil,
			Error:       view.Request.Error,
		},
		System: SystemHealth{
			Uptime:     formatUptime(time.Since(ws.startTime)),
			Goroutines: runtime.NumGoroutine(),
		},
	}

	if !running {
		health.Status = "unhealthy"
	}

	return health
}

// buildStatusData builds the periodic status broadcast payload
func (ws *WebServer) buildStatusData() map[string]any {
	return map[string]any{
		"type":      "status_update",
		"health":    ws.buildHealth(),
		"status":    ws.store.GetStatus(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
}

// clientCount counts the connected WebSocket clients
func (ws *WebServer) clientCount() int {
	count := 0
	ws.clients.Range(func(key, value any) bool {
		count++
		return true
	})
	return count
}

// formatUptime formats a duration as a string with seconds rounded to integer
func formatUptime(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm%ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
