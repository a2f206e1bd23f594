// Package api exposes the vehicle state and command surface over HTTP.
// Commands go through the dispatcher; state reads go straight to the engine.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m4a3/weathervane/internal/cache"
	"github.com/m4a3/weathervane/internal/dispatcher"
	"github.com/m4a3/weathervane/internal/sim"
)

type Server struct {
	eng   *sim.Engine
	disp  *dispatcher.Dispatcher
	track *cache.TrackCache
	log   *slog.Logger
	mux   *http.ServeMux
}

// NewServer builds the HTTP surface. track may be nil; /track then reports
// an empty history.
func NewServer(eng *sim.Engine, disp *dispatcher.Dispatcher, track *cache.TrackCache, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{eng: eng, disp: disp, track: track, log: log, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

// Command endpoint paths and the dispatcher commands they map to.
var commandRoutes = map[string]string{
	"/command/takeoff":      dispatcher.CmdTakeoff,
	"/command/land":         dispatcher.CmdLand,
	"/command/pilot-yaw":    dispatcher.CmdPilotYaw,
	"/command/relax":        dispatcher.CmdRelax,
	"/command/wind":         dispatcher.CmdSetWind,
	"/command/params":       dispatcher.CmdSetParams,
	"/command/flight/start": dispatcher.CmdStartFlight,
	"/command/flight/end":   dispatcher.CmdEndFlight,
}

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)
	s.mux.HandleFunc("/track", s.trackHistory)
	s.mux.HandleFunc("/stream", s.streamSSE)

	for path, cmd := range commandRoutes {
		s.mux.HandleFunc(path, s.command(cmd))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, st)
}

// trackHistory serves the recent snapshot history, oldest first. The n
// query parameter limits the count.
func (s *Server) trackHistory(w http.ResponseWriter, r *http.Request) {
	if s.track == nil {
		writeJSON(w, []sim.Snapshot{})
		return
	}

	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			http.Error(w, "n must be a non-negative integer", http.StatusBadRequest)
			return
		}
		n = v
	}
	writeJSON(w, s.track.Recent(n))
}

// command returns a handler that decodes the JSON body, if any, into the
// event payload and dispatches it.
func (s *Server) command(cmd string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST only", http.StatusMethodNotAllowed)
			return
		}

		payload := map[string]any{}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
		}

		result, err := s.disp.Dispatch(dispatcher.Event{
			Command:   cmd,
			Payload:   payload,
			Timestamp: time.Now(),
		})
		if err != nil {
			s.log.Debug("command rejected", "command", cmd, "error", err)
			status := http.StatusBadRequest
			if strings.HasPrefix(err.Error(), "queue full") {
				status = http.StatusServiceUnavailable
			}
			http.Error(w, err.Error(), status)
			return
		}

		writeJSON(w, map[string]any{"status": "accepted", "command": cmd, "result": result})
	}
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(st)
			fmt.Fprintf(w, "event: state\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
