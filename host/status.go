package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// Status is the JSON body served at GET /status.
type Status struct {
	State      string
	PID        int    `json:",omitempty"`
	ExitCode   *int   `json:",omitempty"`
	Listen     string `json:",omitempty"`
	Connected  bool
	Peer       string `json:",omitempty"`
	StopReason string `json:",omitempty"`
}

// Status returns a snapshot of the host.
func (h *Host) Status() Status {
	h.mut.Lock()
	defer h.mut.Unlock()

	st := Status{State: h.state.String()}
	if h.proc != nil {
		st.PID = h.proc.pid()
		if h.proc.hasExited() {
			code := h.proc.exitCode()
			st.ExitCode = &code
		}
	}
	if h.server != nil && h.state != stateStopped {
		st.Listen = h.server.Addr()
		st.Connected = h.server.IsConnected()
		st.Peer = h.server.PeerAddr()
	}
	if h.stopReason != StopReasonNone {
		st.StopReason = h.stopReason.String()
	}
	return st
}

// StatusHandler returns an HTTP handler serving the host status.
func (h *Host) StatusHandler() http.Handler {
	router := httprouter.New()
	router.GET("/status", h.status)
	return router
}

func (h *Host) status(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	b, err := json.Marshal(h.Status())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Add("Content-Type", "application/json")
	w.Write(b)
}

func (h *Host) serveStatus(addr string) (*http.Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for status on %s: %w", addr, err)
	}
	server := &http.Server{Handler: h.StatusHandler()}
	go func() {
		err := server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.log.Warnf("status server error: %s", err)
		}
	}()
	h.log.Infow("serving status", "Addr", listener.Addr().String())
	return server, nil
}
