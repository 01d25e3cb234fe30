package http

import (
	"encoding/json"
	"net/http"
	"time"

	"company-quiz-service/internal/app"
	"company-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// WSOptions tunes the live notification channel.
type WSOptions struct {
	RateLimit  float64 // inbound messages per second
	RateBurst  int
	SendBuffer int
}

// WSHandler serves the per-user live notification channel.
type WSHandler struct {
	notifications *app.NotificationService
	hub           *app.Hub
	log           *zap.Logger
	opts          WSOptions
	upgrader      websocket.Upgrader
}

func NewWSHandler(notifications *app.NotificationService, hub *app.Hub, log *zap.Logger, opts WSOptions) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 10
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 20
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	return &WSHandler{
		notifications: notifications,
		hub:           hub,
		log:           log,
		opts:          opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type pagePayload struct {
	Page int `json:"page"`
}

type viewPayload struct {
	ID int64 `json:"id"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(msg string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}

// ServeWS upgrades the request and streams the user's notifications. The
// first frame is page 1 of the stored notifications.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	userID := pathID(r, "userID")
	if actor != userID {
		writeError(w, h.log, domain.ErrForbidden)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Attach(userID)
	log := h.log.With(zap.Int64("user_id", userID), zap.String("conn_id", sub.ID.String()))
	log.Debug("ws connected")

	send := make(chan outboundMessage[any], h.opts.SendBuffer)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(msg); err != nil {
					log.Debug("ws write failed", zap.Error(err))
					_ = conn.Close()
					return
				}
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					_ = conn.Close()
					return
				}
			}
		}
	}()

	enqueue := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-sub.Events():
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: string(ev.Kind), Payload: ev.Notification}:
				case <-writerDone:
					return
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.sendPage(r, enqueue, userID, 1)

	limiter := rate.NewLimiter(rate.Limit(h.opts.RateLimit), h.opts.RateBurst)
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if !limiter.Allow() {
			enqueue(errorMessage("rate limit exceeded"))
			continue
		}
		switch inbound.Type {
		case "page":
			var payload pagePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				enqueue(errorMessage("invalid page payload"))
				continue
			}
			h.sendPage(r, enqueue, userID, payload.Page)
		case "view":
			var payload viewPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.ID == 0 {
				enqueue(errorMessage("invalid view payload"))
				continue
			}
			// The updated event reaches every connection of the user through the hub.
			if _, err := h.notifications.MarkViewed(r.Context(), userID, payload.ID); err != nil {
				enqueue(errorMessage(err.Error()))
			}
		default:
			enqueue(errorMessage("unsupported message type"))
		}
	}

	h.hub.Detach(sub)
	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
	log.Debug("ws disconnected")
}

func (h *WSHandler) sendPage(r *http.Request, enqueue func(outboundMessage[any]), userID int64, page int) {
	out, err := h.notifications.Page(r.Context(), userID, userID, page)
	if err != nil {
		h.log.Warn("ws page failed", zap.Int64("user_id", userID), zap.Error(err))
		enqueue(errorMessage("could not load notifications"))
		return
	}
	enqueue(outboundMessage[any]{Type: "notifications", Payload: out})
}
