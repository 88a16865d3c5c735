package server

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/b0ase/path402/apps/poeminter/internal/bridge"
	"github.com/b0ase/path402/apps/poeminter/internal/dataset"
	"github.com/b0ase/path402/apps/poeminter/internal/ledger"
	"github.com/b0ase/path402/apps/poeminter/internal/session"
	"github.com/b0ase/path402/apps/poeminter/internal/settlement"
)

const maxDatasetBytes = 10 << 20

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /api/assets", s.handleAssets)
	mux.HandleFunc("POST /api/dataset", s.handleDataset)
	mux.HandleFunc("POST /api/account", s.handleAccount)
	mux.HandleFunc("POST /api/mint", s.handleMint)
	mux.HandleFunc("POST /api/bridge", s.handleBridge)
	mux.HandleFunc("POST /api/settle", s.handleSettle)
	mux.HandleFunc("GET /api/ledger", s.handleLedger)
	mux.HandleFunc("GET /api/proof", s.handleProof)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeFailure maps pipeline errors onto HTTP status codes.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		settleErr *settlement.ValidationError
		bridgeErr *bridge.ValidationError
		deviceErr *session.DeviceError
	)
	body := map[string]string{"error": err.Error()}
	code := http.StatusInternalServerError

	switch {
	case errors.As(err, &settleErr):
		code = http.StatusBadRequest
		body["reason"] = string(settleErr.Reason)
		if settleErr.Asset != "" {
			body["asset"] = settleErr.Asset
		}
	case errors.As(err, &bridgeErr):
		code = http.StatusBadRequest
		body["reason"] = "invalid_prefix"
		body["chain"] = bridgeErr.Chain
	case errors.As(err, &deviceErr):
		code = http.StatusForbidden
		body["reason"] = "uncertified_device"
		body["device_id"] = deviceErr.DeviceID
	case errors.Is(err, dataset.ErrUnreadable):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrNothingToProcess):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, session.ErrOperationInFlight):
		code = http.StatusTooManyRequests
	case errors.Is(err, session.ErrInvalidState):
		code = http.StatusConflict
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	nodeID := s.daemon.NodeID()
	if len(nodeID) > 16 {
		nodeID = nodeID[:16]
	}
	writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"version":   s.version,
		"node_id":   nodeID,
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"node_id":   s.daemon.NodeID(),
		"uptime_ms": s.daemon.Uptime().Milliseconds(),
		"attestor":  s.daemon.AttestorAddress(),
		"ledger":    s.daemon.LedgerDriver(),
		"session":   s.session.Snapshot(),
	})
}

type assetView struct {
	ID             string `json:"id"`
	DisplayName    string `json:"display_name"`
	Symbol         string `json:"symbol"`
	Glyph          string `json:"glyph"`
	Color          string `json:"color"`
	AddressPattern string `json:"address_pattern"`
}

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	list := s.session.Assets()
	out := make([]assetView, 0, len(list))
	for _, a := range list {
		out = append(out, assetView{a.ID, a.DisplayName, a.Symbol, a.Glyph, a.Color, a.Pattern()})
	}
	writeJSON(w, out)
}

// handleDataset loads a dataset from a multipart "file" field or the raw body.
// POST /api/dataset
func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxDatasetBytes)

	var src io.Reader = r.Body
	if mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); strings.HasPrefix(mt, "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, 400, "multipart field \"file\" required: "+err.Error())
			return
		}
		defer file.Close()
		src = file
	}

	n, err := s.session.LoadDataset(src)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"samples": n,
		"state":   s.session.State(),
	})
}

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	res, err := s.session.Account()
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	art, entry, err := s.session.Mint(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"entry": entry,
		"proof": art,
	})
}

func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON body: "+err.Error())
		return
	}
	entry, err := s.session.Bridge(r.Context(), req.Address)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, entry)
}

func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	var req settlement.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, 400, "invalid JSON body: "+err.Error())
		return
	}
	receipt, err := s.session.Settle(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, receipt)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	kind, err := ledger.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, 400, err.Error())
		return
	}
	entries, err := s.session.Ledger(r.Context(), kind)
	if err != nil {
		writeError(w, 500, err.Error())
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleProof(w http.ResponseWriter, r *http.Request) {
	art := s.session.Proof()
	if art == nil {
		writeError(w, 404, "no proof yet, mint first")
		return
	}
	writeJSON(w, art)
}
