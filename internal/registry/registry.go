// Package registry owns the set of live sessions: the code -> session
// map and the connection -> session index. A single goroutine serializes
// creation, lookup, and removal, so generated codes are checked for
// uniqueness by the same owner that inserts them.
package registry

import (
	"context"
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/game"
	"github.com/flashrush/quiz-backend/internal/session"
	"github.com/flashrush/quiz-backend/internal/types"
)

const codeLength = 4

type Msg interface{ isRegistryMsg() }

// Create makes a new session with the caller as sole member and leader.
type Create struct {
	ConnID   string
	Nickname string
	Outbox   chan types.ServerMessage
	Reply    chan *session.Session
}

// JoinSession adds the caller to an existing session. Reply is nil when
// the code is unknown or the caller already belongs to another session.
type JoinSession struct {
	Code     string
	ConnID   string
	Nickname string
	Outbox   chan types.ServerMessage
	Reply    chan *session.Session
}

type Get struct {
	Code  string
	Reply chan *session.Session
}

type GetByMember struct {
	ConnID string
	Reply  chan *session.Session
}

// LeaveMember removes a connection from whatever session it belongs to.
type LeaveMember struct{ ConnID string }

// Remove drops a session from the maps. Posted by a session's onEmpty
// hook once its last member has left.
type Remove struct{ Code string }

type ShutdownAll struct{}

func (Create) isRegistryMsg()      {}
func (JoinSession) isRegistryMsg() {}
func (Get) isRegistryMsg()         {}
func (GetByMember) isRegistryMsg() {}
func (LeaveMember) isRegistryMsg() {}
func (Remove) isRegistryMsg()      {}
func (ShutdownAll) isRegistryMsg() {}

type Registry struct {
	inbox    chan Msg
	sessions map[string]*session.Session // code -> session
	members  map[string]string           // conn id -> code
	clock    clockwork.Clock
	log      *zap.Logger
	sessLog  *zap.Logger // unscoped; sessions tag themselves by code
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, clock clockwork.Clock, log *zap.Logger) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:    make(chan Msg, 64),
		sessions: make(map[string]*session.Session),
		members:  make(map[string]string),
		clock:    clock,
		log:      log.Named("registry"),
		sessLog:  log,
		ctx:      ctx,
		cancel:   cancel,
	}
	go r.loop()
	return r
}

func (r *Registry) Send(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

func (r *Registry) Inbox() chan<- Msg { return r.inbox }

func (r *Registry) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Create:
				if _, taken := r.members[msg.ConnID]; taken {
					msg.Reply <- nil
					break
				}
				code := r.newCode()
				s := session.New(r.ctx, code, msg.ConnID, msg.Nickname, r.clock, r.sessLog, r.removeLater(code))
				r.sessions[code] = s
				r.members[msg.ConnID] = code
				s.Send(session.Join{ClientID: msg.ConnID, Name: msg.Nickname, Outbox: msg.Outbox})
				r.log.Info("session created", zap.String("code", code))
				msg.Reply <- s

			case JoinSession:
				code := canonical(msg.Code)
				s := r.sessions[code]
				if s == nil {
					r.log.Debug("join failed", zap.String("code", code), zap.Error(game.ErrSessionNotFound))
					msg.Reply <- nil
					break
				}
				if prev, taken := r.members[msg.ConnID]; taken && prev != code {
					msg.Reply <- nil
					break
				}
				r.members[msg.ConnID] = code
				s.Send(session.Join{ClientID: msg.ConnID, Name: msg.Nickname, Outbox: msg.Outbox})
				msg.Reply <- s

			case Get:
				msg.Reply <- r.sessions[canonical(msg.Code)] // May be nil

			case GetByMember:
				code, ok := r.members[msg.ConnID]
				if !ok {
					msg.Reply <- nil
					break
				}
				msg.Reply <- r.sessions[code]

			case LeaveMember:
				code, ok := r.members[msg.ConnID]
				if !ok {
					break
				}
				delete(r.members, msg.ConnID)
				if s := r.sessions[code]; s != nil {
					s.Send(session.Leave{ClientID: msg.ConnID})
				}

			case Remove:
				delete(r.sessions, msg.Code)
				r.log.Info("session removed", zap.String("code", msg.Code))

			case ShutdownAll:
				r.shutdown()
				return
			}
		}
	}
}

// removeLater builds the onEmpty hook handed to a session. It re-enters
// the registry through the inbox, since the session actor calls it from
// its own goroutine.
func (r *Registry) removeLater(code string) func(string) {
	return func(string) { r.Send(Remove{Code: code}) }
}

func (r *Registry) shutdown() {
	for code, s := range r.sessions {
		s.Send(session.Shutdown{})
		delete(r.sessions, code)
	}
	clear(r.members)
	r.cancel()
}

// newCode generates a 4-letter uppercase code not used by any live
// session. Runs inside the registry loop, so check-then-insert is
// atomic.
func (r *Registry) newCode() string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for {
		code := make([]byte, codeLength)
		for i := range code {
			num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
			if err != nil {
				// crypto/rand failing is a platform problem; surfacing
				// it per-create buys nothing.
				panic(err)
			}
			code[i] = charset[num.Int64()]
		}
		if _, taken := r.sessions[string(code)]; !taken {
			return string(code)
		}
		r.log.Debug("collision on code, regenerating")
	}
}

func canonical(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }
