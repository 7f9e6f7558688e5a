package httpinterface

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-escrow/internal/core/application"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second
)

type eventHandler struct {
	eventSvc application.EventService
	upgrader websocket.Upgrader
}

func newEventHandler(eventSvc application.EventService) *eventHandler {
	return &eventHandler{
		eventSvc: eventSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// streamEvents upgrades the connection to a websocket on which every event
// of the requested topic is written as a JSON text message.
func (h *eventHandler) streamEvents(w http.ResponseWriter, req *http.Request) {
	topic := req.URL.Query().Get("topic")
	stream, cancelStream, err := h.eventSvc.StreamEvents(topic)
	if err != nil {
		writeError(w, err)
		return
	}
	defer cancelStream()

	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.WithError(err).Debug("failed to upgrade event stream connection")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writer goroutine.
	go func() {
		defer func() {
			cancel()
			conn.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-stream:
				if !ok {
					//nolint
					conn.WriteControl(
						websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"),
						time.Now().Add(writeWait),
					)
					return
				}
				//nolint
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop, only needed to detect closed connections.
	for {
		//nolint
		conn.SetReadDeadline(time.Now().Add(pongWait))
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *eventHandler) addWebhook(w http.ResponseWriter, req *http.Request) {
	body := addWebhookRequest{}
	if err := decodeBody(req, &body); err != nil {
		writeError(w, err)
		return
	}

	id, err := h.eventSvc.AddWebhook(body.Topic, body.Endpoint, body.Secret)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, addWebhookResponse{id})
}

func (h *eventHandler) listWebhooks(w http.ResponseWriter, req *http.Request) {
	hooks, err := h.eventSvc.ListWebhooks(req.URL.Query().Get("topic"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listWebhooksResponse{hooks})
}

func (h *eventHandler) removeWebhook(w http.ResponseWriter, req *http.Request) {
	if err := h.eventSvc.RemoveWebhook(req.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
