package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tahirahmadin/shopify-ai-search-demo/internal/api/middleware"
	"github.com/tahirahmadin/shopify-ai-search-demo/internal/storage"
)

const defaultPersistTimeout = 5 * time.Second

// Recorder copies turns to a transcript store. Failures are logged and never
// reach the caller, so a broken store cannot stall a conversation.
type Recorder struct {
	store   storage.ConversationStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewRecorder returns a recorder writing to store. A nil store disables
// recording.
func NewRecorder(store storage.ConversationStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, timeout: defaultPersistTimeout}
}

// Start creates the transcript for a session.
func (r *Recorder) Start(ctx context.Context, sessionID string, metadata map[string]string) {
	if r == nil || r.store == nil {
		return
	}

	persistCtx, cancel := buildPersistenceContext(ctx, r.timeout)
	defer cancel()

	meta := make(map[string]string, len(metadata)+1)
	for k, v := range metadata {
		meta[k] = v
	}
	if reqID := middleware.GetRequestID(persistCtx); reqID != "" {
		meta["request_id"] = reqID
	}

	if err := r.store.CreateConversation(persistCtx, &storage.Conversation{ID: sessionID, Metadata: meta}); err != nil {
		r.logger.Error("failed to create conversation",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}

// Record stores t under sessionID. Sensitive user input is redacted.
func (r *Recorder) Record(ctx context.Context, sessionID string, t Turn) {
	if r == nil || r.store == nil {
		return
	}

	persistCtx, cancel := buildPersistenceContext(ctx, r.timeout)
	defer cancel()

	msg := &storage.Message{
		ID:        "msg_" + uuid.New().String(),
		Role:      string(t.From),
		Content:   t.Text,
		Intent:    string(t.Intent),
		Raw:       t.Raw,
		IsError:   t.IsError,
		CreatedAt: t.Time,
	}
	if t.Sensitive {
		msg.Content = redacted
	}

	err := r.store.AddMessage(persistCtx, sessionID, msg)
	if errors.Is(err, storage.ErrNotFound) {
		// The transcript may have failed to start; try once more.
		if cerr := r.store.CreateConversation(persistCtx, &storage.Conversation{ID: sessionID}); cerr == nil {
			err = r.store.AddMessage(persistCtx, sessionID, msg)
		}
	}
	if err != nil {
		r.logger.Error("failed to store message",
			slog.String("session_id", sessionID),
			slog.String("role", msg.Role),
			slog.String("error", err.Error()),
		)
	}
}

// buildPersistenceContext detaches from the caller's cancellation so a
// disconnecting client does not drop its transcript, keeping the request id
// and a short timeout.
func buildPersistenceContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	base := context.Background()
	if reqID := middleware.GetRequestID(ctx); reqID != "" {
		base = middleware.WithRequestID(base, reqID)
	}

	if timeout <= 0 {
		return context.WithCancel(base)
	}

	return context.WithTimeout(base, timeout)
}
