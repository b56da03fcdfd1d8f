// Package http exposes a gateway's producer status over a small
// read-only HTTP endpoint, adapted from the example corpus's CiA-309-5
// gateway server: same net/http.ServeMux-and-ListenAndServe shape,
// with the CiA-309 SDO/PDO/NMT routes dropped in favor of a single OTA
// status route, since this server's only job is letting an operator
// poll transfer progress without going through the hostlink stream.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/fieldmesh/loraota/pkg/producer"
)

// StatusServer serves a producer's current snapshot as JSON.
type StatusServer struct {
	producer *producer.Producer
	serveMux *http.ServeMux
}

// NewStatusServer builds a server backed by p.
func NewStatusServer(p *producer.Producer) *StatusServer {
	s := &StatusServer{producer: p}
	s.serveMux = http.NewServeMux()
	s.serveMux.HandleFunc("/status", s.handleStatus)
	return s
}

// ListenAndServe blocks, serving the status endpoint at addr.
func (s *StatusServer) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s.serveMux)
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	snap := s.producer.Snapshot()
	resp := statusResponse{
		Destination: s.producer.Destination(),
		State:       s.producer.State().String(),
		InProgress:  snap.InProgress,
		NotAcked:    snap.NotAcked,
		LastAcked:   snap.LastAcked,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
