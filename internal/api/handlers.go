// Package api exposes the bridge's HTTP surface: the WebSocket publish
// endpoint, liveness and stats endpoints, and optional token issuance.
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"printwatch/internal/auth"
	"printwatch/internal/relay"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Listeners are dashboards and ad-hoc tooling on the printer network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Handler struct {
	hub  *relay.Hub
	pump *relay.Pump
	auth *auth.Manager
	log  logrus.FieldLogger
}

func NewHandler(hub *relay.Hub, pump *relay.Pump, authMgr *auth.Manager, log logrus.FieldLogger) *Handler {
	return &Handler{hub: hub, pump: pump, auth: authMgr, log: log}
}

// HandleWebSocket upgrades the connection and hands it to the hub. History
// replay and keep-alive are the hub's and client pumps' business.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	client := relay.NewClient(h.hub, conn)
	h.hub.Register(client)
	go client.WritePump()
	go client.ReadPump()
}

func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// HandleStats reports forwarding counters. Reads are atomic snapshots and
// never contend with the broadcast path.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := struct {
		Listeners      int64   `json:"listeners"`
		LinesForwarded int64   `json:"lines_forwarded"`
		LinesDropped   int64   `json:"lines_dropped"`
		UptimeSec      float64 `json:"uptime_s"`
	}{
		Listeners:      h.hub.Listeners(),
		LinesForwarded: h.hub.Forwarded(),
		LinesDropped:   h.pump.Dropped(),
		UptimeSec:      h.hub.Uptime().Seconds(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// HandleToken exchanges an API key (X-API-Key header) or a username and
// password (JSON body) for a short-lived listener token.
func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	subject, err := h.authenticate(r)
	if err != nil {
		h.log.WithError(err).Info("token request rejected")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	token, ttl, err := h.auth.GenerateToken(subject)
	if err != nil {
		h.log.WithError(err).Error("token generation failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tokenResponse{Token: token, ExpiresIn: int64(ttl.Seconds())})
}

func (h *Handler) authenticate(r *http.Request) (string, error) {
	if key := r.Header.Get("X-API-Key"); key != "" {
		if h.auth.ValidateAPIKey(key) {
			return "api-key", nil
		}
		return "", auth.ErrInvalidCredentials
	}

	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return "", auth.ErrInvalidCredentials
	}
	if err := h.auth.AuthenticateUser(req.Username, req.Password); err != nil {
		return "", err
	}
	return req.Username, nil
}

// RequireAuth gates an endpoint behind a listener token when auth is
// enabled. The token travels as ?token= (WebSocket clients cannot always
// set headers) or an Authorization bearer header.
func (h *Handler) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.auth.Enabled() {
			next(w, r)
			return
		}

		token := r.URL.Query().Get("token")
		if token == "" {
			header := r.Header.Get("Authorization")
			if parts := strings.SplitN(header, " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if _, err := h.auth.ValidateToken(token); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
