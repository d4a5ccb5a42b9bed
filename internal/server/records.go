package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/checkout"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

const maxListLimit = 100

type TranscriptsResponse struct {
	Transcripts []*storage.Conversation `json:"transcripts"`
}

type OrdersResponse struct {
	Orders []*checkout.Order `json:"orders"`
}

// recordRoutes exposes recorded transcripts and placed orders. They are
// only mounted when a store is configured.
func (s *Server) recordRoutes(r chi.Router) {
	r.Route("/v1/transcripts", func(r chi.Router) {
		r.Get("/", s.handleListTranscripts)
		r.Get("/{transcriptID}", s.handleGetTranscript)
		r.Delete("/{transcriptID}", s.handleDeleteTranscript)
	})
	r.Route("/v1/orders", func(r chi.Router) {
		r.Get("/", s.handleListOrders)
		r.Get("/{orderID}", s.handleGetOrder)
	})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	convs, err := s.store.ListConversations(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TranscriptsResponse{Transcripts: convs})
}

func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	conv, err := s.store.GetConversation(r.Context(), chi.URLParam(r, "transcriptID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (s *Server) handleDeleteTranscript(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteConversation(r.Context(), chi.URLParam(r, "transcriptID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	opts, ok := listOptions(w, r)
	if !ok {
		return
	}
	orders, err := s.store.ListOrders(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OrdersResponse{Orders: orders})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.store.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// listOptions reads ?limit=&offset=. limit defaults to and is capped at
// maxListLimit.
func listOptions(w http.ResponseWriter, r *http.Request) (storage.ListOptions, bool) {
	opts := storage.ListOptions{Limit: maxListLimit}
	q := r.URL.Query()

	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &opts.Limit}, {"offset", &opts.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid "+p.name+": "+v)
			return storage.ListOptions{}, false
		}
		*p.dst = n
	}

	if opts.Limit == 0 || opts.Limit > maxListLimit {
		opts.Limit = maxListLimit
	}
	return opts, true
}
