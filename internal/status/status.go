// Package status exposes the reflector's peer table and live
// connect/disconnect events over HTTP and WebSocket, the DOMAIN STACK
// observability surface wired on top of the reflector/blocklist core.
package status

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dbehnke/ysf-gateway/internal/logging"
)

// PeerView is the JSON-serializable snapshot of one reflector peer.
type PeerView struct {
	Callsign string `json:"callsign"`
	Address  string `json:"address"`
}

// Event is broadcast to every connected WebSocket client on peer
// connect/disconnect.
type Event struct {
	Type     string `json:"type"` // "connect" or "disconnect"
	Callsign string `json:"callsign"`
}

// Snapshotter is implemented by whatever owns the live peer table
// (typically *reflector.Reflector); status never mutates it.
type Snapshotter interface {
	Peers() []PeerView
}

// Server serves /status (JSON snapshot) and /events (WebSocket feed).
type Server struct {
	instanceID string
	snapshot   Snapshotter
	router     *mux.Router
	upgrader   websocket.Upgrader
	log        *logging.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// New builds a Server with a fresh process-scoped instance ID.
func New(snapshot Snapshotter, log *logging.Logger) *Server {
	s := &Server{
		instanceID: uuid.NewString(),
		snapshot:   snapshot,
		router:     mux.NewRouter(),
		upgrader:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		log:        log.WithComponent("status"),
		clients:    make(map[*websocket.Conn]struct{}),
	}
	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/peers", s.handlePeers).Methods(http.MethodGet)
	s.router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	return s
}

// Handler returns the http.Handler to mount.
func (s *Server) Handler() http.Handler { return s.router }

// InstanceID returns this process's UUID, included in every snapshot.
func (s *Server) InstanceID() string { return s.instanceID }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		InstanceID string     `json:"instance_id"`
		Peers      []PeerView `json:"peers"`
	}{InstanceID: s.instanceID, Peers: s.snapshot.Peers()}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshot.Peers())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed")
		return
	}
	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	go func() {
		defer s.removeClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (s *Server) removeClient(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, conn)
	s.mu.Unlock()
	_ = conn.Close()
}

// Broadcast pushes ev to every connected client, dropping any that
// error (they are removed on their next failed write or read).
func (s *Server) Broadcast(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteJSON(ev); err != nil {
			go s.removeClient(conn)
		}
	}
}
