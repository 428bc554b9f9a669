package server

import (
	"encoding/json"
	"log"

	"github.com/kvo5/marvel-madness/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func isWebSocketUpgrade(c *fiber.Ctx) bool {
	return websocket.IsWebSocketUpgrade(c)
}

// ViewsWebsocketHandler streams revalidate events to connected viewers so they can refetch
// the views a mutation invalidated.
func (s *Server) ViewsWebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		key, _ := conn.Locals("viewerKey").(string)
		if key == "" || s.hub == nil {
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame("live updates unavailable"))
			if cerr := conn.Close(); cerr != nil {
				log.Printf("websocket close error: %v", cerr)
			}
			return
		}

		client, err := s.hub.Register(key, conn)
		if err != nil {
			log.Printf("WebSocket views: failed to register %s: %v", key, err)
			_ = conn.WriteMessage(websocket.TextMessage, errorFrame(err.Error()))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}

// errorFrame encodes msg as a failed ActionResult.
func errorFrame(msg string) []byte {
	frame, err := json.Marshal(models.ActionResult{Error: msg})
	if err != nil {
		return []byte(`{"success":false}`)
	}
	return frame
}
