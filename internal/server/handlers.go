package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/api/middleware"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/catalog"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/conversation"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/llm"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/session"
)

// TurnsResponse carries the turns an operation appended and the session
// state afterwards.
type TurnsResponse struct {
	Turns   []conversation.View `json:"turns"`
	Session session.Snapshot    `json:"session"`
}

type CatalogResponse struct {
	Categories []string        `json:"categories"`
	Items      []catalog.Entry `json:"items"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type imageRequest struct {
	// Image is a base64 data URL.
	Image string `json:"image"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type cartItemRequest struct {
	ID       int64 `json:"id"`
	Quantity *int  `json:"quantity,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	if s.catalog == nil || s.catalog.Current() == nil {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	var idx *catalog.Index
	if s.catalog != nil {
		idx = s.catalog.Current()
	}
	if idx == nil {
		writeError(w, r, session.ErrNoCatalog)
		return
	}

	resp := CatalogResponse{Categories: idx.Categories()}
	if category := r.URL.Query().Get("category"); category != "" {
		resp.Items = idx.ByCategory(category)
	} else {
		resp.Items = idx.All()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create(r.Context())
	middleware.AddLogField(r.Context(), "session_id", sess.ID)
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

// session resolves the path's session, writing the error response when it
// does not exist.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := chi.URLParam(r, "sessionID")
	middleware.AddLogField(r.Context(), "session_id", id)
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	middleware.AddLogField(r.Context(), "session_id", id)
	if err := s.sessions.Delete(id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req messageRequest
	if !decodeBody(w, r, &req) {
		return
	}
	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.Send(r.Context(), req.Text)
	})
}

// handleImage accepts either a JSON body with a data URL or raw image bytes
// with an image/* content type.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var (
		data      []byte
		mediaType string
	)
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var req imageRequest
		if !decodeBody(w, r, &req) {
			return
		}
		img, err := llm.ParseDataURL(req.Image)
		if err != nil {
			writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, err.Error())
			return
		}
		data, mediaType = img.Data, img.MediaType
	} else {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, errTypeInvalidRequest, "failed to read image")
			return
		}
		data = body
		if strings.HasPrefix(contentType, "image/") {
			mediaType = contentType
		}
	}

	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.SendImage(r.Context(), data, mediaType)
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.Retry(r.Context())
	})
}

func (s *Server) handleMode(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	mode, err := session.ParseMode(req.Mode)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, err.Error())
		return
	}
	sess.SetMode(r.Context(), mode)
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleBeginCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.BeginCheckout(r.Context())
	})
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.Cancel(r.Context())
	})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.respondTurns(w, r, sess, func() ([]conversation.View, error) {
		return sess.Pay(r.Context())
	})
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Cart())
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	summary, err := sess.ClearCart(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleAddItem adds one unit, or sets the quantity when one is given.
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		summary session.CartSummary
		err     error
	)
	if req.Quantity != nil {
		summary, err = sess.SetCartQuantity(r.Context(), req.ID, *req.Quantity)
	} else {
		summary, err = sess.AddToCart(r.Context(), req.ID)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleSetItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	var req cartItemRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, "quantity is required")
		return
	}

	summary, err := sess.SetCartQuantity(r.Context(), id, *req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	id, ok := itemID(w, r)
	if !ok {
		return
	}
	summary, err := sess.RemoveFromCart(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) respondTurns(w http.ResponseWriter, r *http.Request, sess *session.Session, op func() ([]conversation.View, error)) {
	turns, err := op()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TurnsResponse{Turns: turns, Session: sess.Snapshot()})
}

func itemID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "itemID")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, fmt.Sprintf("invalid item id %q", raw))
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeErrorMessage(w, http.StatusRequestEntityTooLarge, errTypeInvalidRequest, "request body too large")
			return false
		}
		writeErrorMessage(w, http.StatusBadRequest, errTypeInvalidRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
