// Package stubserver implements a self-contained notification server used by
// the coursewire dev command and the integration tests. It serves the same
// REST and push surface as the production API: a hydration list endpoint,
// the two read-state mutations, and a websocket push channel.
package stubserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/coursewire/coursewire-go/database"
	"github.com/coursewire/coursewire-go/middleware"
	"github.com/coursewire/coursewire-go/types"
)

// Server is the stub notification server. Create with New, serve its
// Handler, and release with Close.
type Server struct {
	db       *database.Database
	token    string
	handler  http.Handler
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
}

// New creates a stub server backed by a SQLite database at dbPath
// (":memory:" for ephemeral). Requests must carry the given bearer token;
// an empty token disables the check.
func New(dbPath, token string) (*Server, error) {
	db, err := database.New(dbPath, database.NotificationSchema())
	if err != nil {
		return nil, fmt.Errorf("opening stub database: %w", err)
	}

	s := &Server{
		db:    db,
		token: token,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/notifications/", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id:[0-9]+}/mark_read/", s.handleMarkRead).Methods(http.MethodPatch)
	r.HandleFunc("/notifications/mark_all_read/", s.handleMarkAllRead).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	var h http.Handler = r
	h = middleware.RequireBearer(token)(h)
	h = middleware.Logging(log.Logger)(h)
	h = middleware.Recovery()(h)
	s.handler = h

	return s, nil
}

// Handler returns the HTTP handler serving the notification API.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close drops all push connections and closes the database.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = map[*websocket.Conn]struct{}{}
	s.mu.Unlock()

	for _, c := range conns {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		c.Close()
	}
	return s.db.Close()
}

// DropConnections closes every push connection without shutting the server
// down. Clients see an abnormal close and are expected to reconnect.
func (s *Server) DropConnections() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[*websocket.Conn]struct{})
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// notificationRow is the database representation of a notification.
// created_at is stored as RFC 3339 text.
type notificationRow struct {
	ID        int64         `db:"id"`
	Title     string        `db:"title"`
	Message   string        `db:"message"`
	Type      string        `db:"notification_type"`
	Read      bool          `db:"is_read"`
	CreatedAt string        `db:"created_at"`
	Data      types.JSONMap `db:"data"`
}

func (r notificationRow) toNotification() types.Notification {
	created, err := time.Parse(time.RFC3339Nano, r.CreatedAt)
	if err != nil {
		created = time.Time{}
	}
	return types.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      types.ParseNotificationType(r.Type),
		Read:      r.Read,
		CreatedAt: created,
		Data:      r.Data,
	}
}

// Create inserts a notification and pushes it to all connected clients. The
// returned notification carries the server-assigned id.
func (s *Server) Create(n types.Notification) (types.Notification, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Type == "" {
		n.Type = types.NotificationTypeAnnouncement
	}

	res, err := s.db.DB().Exec(
		`INSERT INTO notifications (title, message, notification_type, is_read, created_at, data)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.Title, n.Message, string(n.Type), n.Read,
		n.CreatedAt.Format(time.RFC3339Nano), n.Data,
	)
	if err != nil {
		return types.Notification{}, fmt.Errorf("inserting notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return types.Notification{}, fmt.Errorf("reading inserted id: %w", err)
	}
	n.ID = id

	s.push(n)
	return n, nil
}

// push delivers one notification to every connected push client.
func (s *Server) push(n types.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.conns {
		if err := c.WriteJSON(n); err != nil {
			log.Warn().Err(err).Msg("Push write failed, dropping connection")
			c.Close()
			delete(s.conns, c)
		}
	}
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	var rows []notificationRow
	err := s.db.DB().Select(&rows,
		`SELECT id, title, message, notification_type, is_read, created_at, data
		 FROM notifications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		log.Error().Err(err).Msg("Listing notifications failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	list := types.NotificationList{Results: make([]types.Notification, 0, len(rows))}
	for _, row := range rows {
		list.Results = append(list.Results, row.toNotification())
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	res, err := s.db.DB().Exec(`UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("Mark-read failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	if _, err := s.db.DB().Exec(`UPDATE notifications SET is_read = 1`); err != nil {
		log.Error().Err(err).Msg("Mark-all-read failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.conns[conn] = struct{}{}
	total := len(s.conns)
	s.mu.Unlock()

	log.Debug().
		Str("client_id", r.Header.Get("X-Client-ID")).
		Int("connections", total).
		Msg("Push client connected")

	// Inbound frames are ignored; the read loop only detects disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
		log.Debug().Msg("Push client disconnected")
	}()
}
