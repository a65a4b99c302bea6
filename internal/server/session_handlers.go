package server

import (
	"context"
	"encoding/json"

	"bloodconnect/internal/middleware"
	"bloodconnect/internal/notifications"
	"bloodconnect/internal/session"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// GetSession handles GET /api/session. A failed profile read answers 200 with
// the retryable unavailable state.
func (s *Server) GetSession(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	identity := &session.Identity{UID: currentUID(c)}
	if claims := currentClaims(c); claims != nil {
		identity.Phone = claims.Phone
	}
	return c.JSON(s.sessionService.Resolve(ctx, identity))
}

// IssueWSTicket handles POST /api/ws/ticket
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	sessionID := ""
	if claims := currentClaims(c); claims != nil {
		sessionID = claims.SessionID
	}
	ticket, err := s.authService.IssueWSTicket(ctx, currentUID(c), sessionID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": 60,
	})
}

type socketCommand struct {
	Type string `json:"type"`
}

// SessionSocketHandler returns the /api/ws handler. Each connection gets its own
// session machine seeded from the identity sequence; the hub reads the profile
// once the connection is registered. The client may send {"type":"resync"} to
// receive its current snapshot again.
func (s *Server) SessionSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		uid, _ := conn.Locals("userID").(string)
		sessionID, _ := conn.Locals("sessionID").(string)
		if uid == "" || s.sessionHub == nil {
			_ = conn.Close()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		signedIn := s.sessionService.IdentityEvent(session.Identity{UID: uid}, s.authService.CurrentIdentitySeq(ctx, uid))
		cancel()

		client, _, err := s.sessionHub.Register(uid, sessionID, conn, signedIn)
		if err != nil {
			middleware.Logger.Warn("session socket rejected", "uid", uid, "error", err)
			if frame := socketErrorFrame(err); frame != nil {
				_ = conn.WriteMessage(websocket.TextMessage, frame)
			}
			_ = conn.Close()
			return
		}
		defer s.sessionHub.UnregisterClient(client)

		client.IncomingHandler = func(cl *notifications.Client, data []byte) {
			var cmd socketCommand
			if json.Unmarshal(data, &cmd) == nil && cmd.Type == "resync" {
				s.sessionHub.Resend(cl)
			}
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}

// socketErrorFrame is the message sent before a rejected socket is closed.
func socketErrorFrame(err error) []byte {
	frame, encErr := notifications.EncodeEnvelope(notifications.TypeError, err.Error())
	if encErr != nil {
		return nil
	}
	return frame
}
