package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/workhub-dev/workhub/internal/httpx"
	"github.com/workhub-dev/workhub/internal/model"
	"github.com/workhub-dev/workhub/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandlerFunc consumes an inbound socket event from an authenticated user.
type HandlerFunc func(ctx context.Context, userID string, data json.RawMessage)

// Gateway owns the websocket endpoint: it registers connections with the hub,
// runs chat over conversation rooms, and routes named domain events to
// handlers wired up at boot.
type Gateway struct {
	hub      *Hub
	store    store.Store
	handlers map[string]HandlerFunc
}

func NewGateway(hub *Hub, st store.Store) *Gateway {
	return &Gateway{hub: hub, store: st, handlers: make(map[string]HandlerFunc)}
}

// Handle wires an inbound event name to a handler. Not safe to call after the
// server starts accepting connections.
func (g *Gateway) Handle(event string, fn HandlerFunc) {
	g.handlers[event] = fn
}

// Hub exposes the presence registry for lifecycle components.
func (g *Gateway) Hub() *Hub { return g.hub }

// Serve upgrades the request and pumps inbound frames until disconnect.
func (g *Gateway) Serve(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	connID := uuid.New().String()
	g.hub.Register(connID, userID, ws)
	defer func() {
		g.hub.Deregister(connID)
		_ = ws.Close()
	}()

	ctx := c.Request().Context()
	for {
		_, frame, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var evt Event
		if err := json.Unmarshal(frame, &evt); err != nil {
			continue
		}
		g.dispatch(ctx, connID, userID, evt)
	}
}

type joinConversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID string `json:"conversation_id"`
	Body           string `json:"body"`
}

func (g *Gateway) dispatch(ctx context.Context, connID, userID string, evt Event) {
	switch evt.Event {
	case EventJoinConversation:
		var p joinConversationPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			return
		}
		conv, err := g.store.ConversationByID(ctx, p.ConversationID)
		if err != nil || (conv.ClientID != userID && conv.ServiceProviderID != userID) {
			return
		}
		g.hub.JoinRoom(connID, conv.ID)
	case EventSendNewMessage:
		var p sendMessagePayload
		if err := json.Unmarshal(evt.Data, &p); err != nil || p.Body == "" {
			return
		}
		conv, err := g.store.ConversationByID(ctx, p.ConversationID)
		if err != nil || (conv.ClientID != userID && conv.ServiceProviderID != userID) {
			return
		}
		msg := &model.Message{ConversationID: conv.ID, SenderID: userID, Body: p.Body}
		// Durable first, fan-out second: the broadcast is best effort.
		if err := g.store.SaveMessage(ctx, msg); err != nil {
			slog.Error("save message", "conversation", conv.ID, "err", err)
			return
		}
		g.hub.BroadcastRoom(conv.ID, EventNewMessage, msg)
	default:
		if fn, ok := g.handlers[evt.Event]; ok {
			fn(ctx, userID, evt.Data)
		}
	}
}

// Messages returns the persisted history of a conversation the caller
// belongs to.
func (g *Gateway) Messages(c echo.Context) error {
	userID, ok := httpx.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	conv, err := g.store.ConversationByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpx.Error(c, err)
	}
	if conv.ClientID != userID && conv.ServiceProviderID != userID {
		return httpx.Error(c, store.ErrNotFound)
	}
	msgs, err := g.store.Messages(c.Request().Context(), conv.ID, httpx.PageFromQuery(c))
	if err != nil {
		return httpx.Error(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"messages": msgs})
}
