package live

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fundwise/fundwise/internal/pubsub"
	"github.com/fundwise/fundwise/internal/rest"
	"github.com/fundwise/fundwise/pkg/user"
	log "github.com/sirupsen/logrus"
)

const bufferSize = 32

// Handler streams the current user's topic as server-sent events.
type Handler struct {
	pubSub    *pubsub.PubSub
	keepAlive time.Duration
}

func NewLiveHandler(pubSub *pubsub.PubSub, keepAlive time.Duration) *Handler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &Handler{pubSub: pubSub, keepAlive: keepAlive}
}

// Stream godoc
// @Summary Live updates
// @Description Server-sent events of the current user: recorded transactions and budget alerts.
// @Tags Live
// @Produce text/event-stream
// @Success 200
// @Router /api/live [get]
// @Security XUserId
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	userId, err := user.CurrentId(r.Context())
	if err != nil {
		rest.WriteError(w, http.StatusForbidden)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		rest.WriteError(w, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	messages := make(chan pubsub.Message, bufferSize)
	topic := pubsub.UserTopic(userId)
	unsubscribe := h.pubSub.Subscribe(topic, func(m pubsub.Message) error {
		select {
		case messages <- m:
		default:
			log.Warnf("live stream of user %d is not keeping up, dropping %s", userId, m.Type)
		}
		return nil
	})
	defer unsubscribe()
	log.Debugf("live stream opened for user %d", userId)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			log.Debugf("live stream closed for user %d", userId)
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case m := <-messages:
			if err := writeEvent(w, m); err != nil {
				log.Errorf("failed to write %s to live stream: %v", m.Type, err)
				continue
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, m pubsub.Message) error {
	data, err := json.Marshal(m.Data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\n", m.Type); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
