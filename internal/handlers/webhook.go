package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"raidcall/internal/notify"
)

// gatewayUpdate is the JSON body the bot gateway posts for each incoming
// message or button press
type gatewayUpdate struct {
	UserID     int64  `json:"user_id"`
	ChatID     int64  `json:"chat_id"`
	Text       string `json:"text"`
	PhotoRef   string `json:"photo_ref,omitempty"`
	Caption    string `json:"caption,omitempty"`
	IsCallback bool   `json:"is_callback,omitempty"`
}

type gatewayReply struct {
	Text    string            `json:"text,omitempty"`
	Buttons [][]notify.Button `json:"buttons,omitempty"`
	Menu    string            `json:"menu,omitempty"`
}

// UpdateServer is the HTTP surface the gateway delivers updates to. Requests
// must carry a bearer token signed with the shared gateway secret.
type UpdateServer struct {
	router *Router
	secret []byte
}

// NewUpdateServer creates the update endpoint handler
func NewUpdateServer(router *Router, secret string) *UpdateServer {
	return &UpdateServer{router: router, secret: []byte(secret)}
}

// Mux returns the route table for the bot process
func (s *UpdateServer) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /updates", s.handleUpdate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *UpdateServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.authorize(r); err != nil {
		log.Printf("Rejected gateway update: %v", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var up gatewayUpdate
	if err := json.NewDecoder(r.Body).Decode(&up); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	update := Update{
		UserID:   up.UserID,
		ChatID:   up.ChatID,
		Text:     up.Text,
		PhotoRef: up.PhotoRef,
		Caption:  up.Caption,
	}

	handle := s.router.HandleMessage
	if up.IsCallback {
		handle = s.router.HandleCallback
	}
	res, err := handle(r.Context(), update)
	if err != nil {
		log.Printf("Update from user %d failed: %v", up.UserID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	out := gatewayReply{Text: res.Text, Buttons: res.Buttons, Menu: res.Menu}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Printf("Failed to encode reply: %v", err)
	}
}

func (s *UpdateServer) authorize(r *http.Request) error {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return fmt.Errorf("missing bearer token")
	}
	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("invalid token: %w", err)
	}
	return nil
}
