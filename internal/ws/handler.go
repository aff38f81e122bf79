// Package ws is the event gateway: it accepts WebSocket connections,
// translates inbound events into registry/session messages, and drains
// the per-client outbox back over the wire. It carries no game logic.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/registry"
	"github.com/flashrush/quiz-backend/internal/session"
	"github.com/flashrush/quiz-backend/internal/types"
)

const writeTimeout = 3 * time.Second

func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		clog := log.With(zap.String("conn", connID))
		clog.Debug("connected")

		// The session actor owns this channel once we join; it closes
		// it on leave/shutdown, which ends the writer goroutine.
		out := make(chan types.ServerMessage, 16)

		// cur tracks the session this connection belongs to.
		var cur *session.Session

		// Until a create/join succeeds, out is still ours: close it on
		// exit so the writer goroutine is released for connections that
		// only probed codes or never joined.
		defer func() {
			if cur == nil {
				close(out)
			}
		}()

		// A disconnect is an implicit leave; the registry no-ops if the
		// connection never joined anything.
		defer reg.Send(registry.LeaveMember{ConnID: connID})

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, _ := json.Marshal(msg)
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"bad json"}`))
				continue
			}

			switch cm.Type {
			case "create-session":
				if cur != nil {
					continue
				}
				reply := make(chan *session.Session, 1)
				reg.Send(registry.Create{ConnID: connID, Nickname: cm.Nickname, Outbox: out, Reply: reply})
				cur = <-reply

			case "join-session":
				if cur != nil {
					continue
				}
				reply := make(chan *session.Session, 1)
				reg.Send(registry.JoinSession{Code: cm.Code, ConnID: connID, Nickname: cm.Nickname, Outbox: out, Reply: reply})
				if s := <-reply; s != nil {
					cur = s
				} else {
					clog.Debug("join failed", zap.String("code", cm.Code))
				}

			case "get-session":
				// Pre-join probe; members already receive snapshots.
				if cur != nil {
					continue
				}
				reply := make(chan *session.Session, 1)
				reg.Send(registry.Get{Code: cm.Code, Reply: reply})
				s := <-reply
				if s == nil {
					out <- types.ServerMessage{Type: "session"}
					continue
				}
				view := make(chan types.SessionView, 1)
				s.Send(session.Fetch{Reply: view})
				select {
				case v := <-view:
					out <- types.ServerMessage{Type: "session", Session: &v}
				case <-time.After(writeTimeout):
					// Session shut down before replying.
					out <- types.ServerMessage{Type: "session"}
				}

			case "set-questions":
				if cur == nil {
					continue
				}
				cur.Send(session.SetQuestions{ClientID: connID, Questions: cm.Questions})

			case "set-settings":
				if cur == nil || cm.Settings == nil {
					continue
				}
				cur.Send(session.SetSettings{ClientID: connID, Settings: *cm.Settings})

			case "set-leader":
				if cur == nil {
					continue
				}
				cur.Send(session.SetLeader{ClientID: connID, NextLeader: cm.NextLeader})

			case "start-game":
				if cur == nil {
					continue
				}
				cur.Send(session.StartGame{ClientID: connID})

			case "submit-answer":
				if cur == nil {
					continue
				}
				cur.Send(session.SubmitAnswer{ClientID: connID, Text: cm.Text})

			default:
				_ = conn.Write(r.Context(), websocket.MessageText,
					[]byte(`{"type":"error","error":"unknown type"}`))
			}
		}
	}
}
