package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gorilla/websocket"
)

// Dashboard → Agent messages
type ClientMessage struct {
	Type   string `json:"type"`
	SortBy string `json:"sort_by,omitempty"`
	PID    int32  `json:"pid,omitempty"`
}

// Agent → Dashboard messages
type ServerMessage struct {
	Type      string           `json:"type"`
	Stats     *SystemStats     `json:"stats,omitempty"`
	Processes []ProcessSample  `json:"processes,omitempty"`
	Result    *TerminateResult `json:"result,omitempty"`
	Hostname  string           `json:"hostname,omitempty"`
	OS        string           `json:"os,omitempty"`
	Message   string           `json:"message,omitempty"`
}

type Server struct {
	config   *Config
	sampler  *Sampler
	upgrader websocket.Upgrader
}

func newServer(config *Config, sampler *Sampler) *Server {
	return &Server{
		config:  config,
		sampler: sampler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return mux
}

// handleWebSocket services one dashboard connection. Every request is an
// independent sampling pass; the RateCache serializes passes from
// concurrent connections internally.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !checkAuth(r, s.config.Token) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(conn, "invalid message")
			continue
		}

		switch msg.Type {
		case "get_system_stats":
			stats, err := collectSystemStats(ctx, s.sampler.gpu, s.config.CPUSampleInterval())
			if err != nil {
				s.sendError(conn, err.Error())
				continue
			}
			s.sendMessage(conn, ServerMessage{Type: "system_stats", Stats: &stats})

		case "get_processes":
			start := time.Now()
			result, err := s.sampler.Sample(ctx, msg.SortBy)
			if err != nil {
				s.sendError(conn, err.Error())
				continue
			}
			if n := len(result.Skipped); n > 0 {
				log.Printf("sample pass: %d samples, skipped %v in %s",
					len(result.Samples), result.Skipped, time.Since(start).Round(time.Millisecond))
			}
			s.sendMessage(conn, ServerMessage{Type: "processes", Processes: result.Samples})

		case "terminate_process":
			if msg.PID == 0 {
				s.sendError(conn, "pid required")
				continue
			}
			res := terminateProcess(msg.PID)
			log.Printf("terminate pid %d: success=%v", msg.PID, res.Success)
			s.sendMessage(conn, ServerMessage{Type: "terminate_result", Result: &res})

		case "machine_info":
			hostname, _ := os.Hostname()
			s.sendMessage(conn, ServerMessage{
				Type:     "machine_info",
				Hostname: hostname,
				OS:       runtime.GOOS + "/" + runtime.GOARCH,
			})

		default:
			s.sendError(conn, "unknown message type: "+msg.Type)
		}
	}
}

func (s *Server) sendMessage(conn *websocket.Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) sendError(conn *websocket.Conn, message string) {
	s.sendMessage(conn, ServerMessage{Type: "error", Message: message})
}
