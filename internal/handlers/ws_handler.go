package handlers

import (
	"net/http"
	"time"

	"graminstore-backend/internal/auth"
	"graminstore-backend/internal/ledger"
	"graminstore-backend/internal/logger"
	"graminstore-backend/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browsers cannot set an Authorization header on a websocket, so
	// the token travels in the path and origin checks stay with CORS
	// at the proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsCommand struct {
	Type string `json:"type"`
	Days int    `json:"days"`
}

// OrderSocket upgrades the connection and attaches it to the hub for
// order fan-out. The token comes as a path parameter; an invalid one
// closes the socket with a policy violation after the upgrade, matching
// how browsers expect websocket auth failures to surface.
func OrderSocket(hub *ws.Hub, store *ledger.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Get().WithError(err).Debug("websocket upgrade failed")
			return
		}

		claims, err := auth.ValidateToken(c.Param("token"))
		if err != nil {
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "invalid token"),
				time.Now().Add(time.Second),
			)
			conn.Close()
			return
		}

		role := ws.RoleUser
		if claims.UserType == auth.UserTypeMerchant {
			role = ws.RoleMerchant
		}

		client := ws.NewClient(conn)
		hub.Register(role, claims.UserID, client)
		defer func() {
			hub.Unregister(role, claims.UserID, client)
			client.Close()
		}()

		client.Send(ws.Event{
			Type:      "connected",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})

		for {
			var cmd wsCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}

			switch cmd.Type {
			case "ping":
				client.Send(ws.Event{Type: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
			case "get_orders":
				if role != ws.RoleMerchant {
					continue
				}
				days := cmd.Days
				if days <= 0 || days > 365 {
					days = 7
				}
				rows, err := store.ListByPeriod(claims.UserID, days, 100, 0)
				if err != nil {
					logger.Get().WithError(err).Warn("websocket orders query failed")
					continue
				}
				client.Send(ws.Event{
					Type:       "orders_update",
					Data:       socketOrders(rows),
					MerchantID: claims.UserID,
					Timestamp:  time.Now().UTC().Format(time.RFC3339),
				})
			}
		}
	}
}

func socketOrders(rows []ledger.Row) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		entry := transactionJSON(row)
		entry["is_guest_order"] = row.GuestUserID != nil
		out = append(out, entry)
	}
	return out
}
