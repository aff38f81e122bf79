// Package session runs one goroutine per live session. Every mutation
// of a session's state flows through its inbox, so membership, scoring,
// and round timers are serialized without locks, and unrelated sessions
// never contend with each other.
package session

import (
	"context"
	"strconv"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/game"
	"github.com/flashrush/quiz-backend/internal/types"
)

type Msg interface{ isSessionMsg() }

type Join struct {
	ClientID string
	Name     string
	Outbox   chan types.ServerMessage // where this client receives server messages
}

func (Join) isSessionMsg() {}

type Leave struct{ ClientID string }

func (Leave) isSessionMsg() {}

type SetQuestions struct {
	ClientID  string
	Questions []game.Question
}

func (SetQuestions) isSessionMsg() {}

type SetSettings struct {
	ClientID string
	Settings game.Settings
}

func (SetSettings) isSessionMsg() {}

type SetLeader struct {
	ClientID   string
	NextLeader string
}

func (SetLeader) isSessionMsg() {}

type StartGame struct{ ClientID string }

func (StartGame) isSessionMsg() {}

type SubmitAnswer struct {
	ClientID string
	Text     string
}

func (SubmitAnswer) isSessionMsg() {}

// Fetch is a one-shot snapshot request, serving the get-session event.
type Fetch struct{ Reply chan types.SessionView }

func (Fetch) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

// GetState reflects internal state without data races. Test-only.
type GetState struct{ Reply chan View }

func (GetState) isSessionMsg() {}

type View struct {
	NumClients int
	RoundOpen  bool
	State      game.State
}

// Timer-driven messages. Each carries the round generation it was armed
// for; fires from a superseded round are dropped on arrival.
type countdownTick struct{ value int }

func (countdownTick) isSessionMsg() {}

type roundTimeout struct{ gen int }

func (roundTimeout) isSessionMsg() {}

type earlyEndFire struct{ gen int }

func (earlyEndFire) isSessionMsg() {}

type advanceFire struct{ gen int }

func (advanceFire) isSessionMsg() {}

type Session struct {
	inbox   chan Msg
	state   game.State
	round   *roundState
	gen     int // bumps once per opened round
	clients map[string]chan types.ServerMessage

	countdownTimer clockwork.Timer
	advanceTimer   clockwork.Timer

	clock   clockwork.Clock
	log     *zap.Logger
	onEmpty func(code string) // registry hook; fired when the last member leaves
	ctx     context.Context
	cancel  context.CancelFunc
}

func New(parent context.Context, code, leaderID, leaderName string, clock clockwork.Clock, log *zap.Logger, onEmpty func(code string)) *Session {
	ctx, cancel := context.WithCancel(parent)

	s := &Session{
		inbox:   make(chan Msg, 64),
		state:   game.NewState(code, leaderID, leaderName),
		clients: make(map[string]chan types.ServerMessage),
		clock:   clock,
		log:     log.With(zap.String("session", code)),
		onEmpty: onEmpty,
		ctx:     ctx,
		cancel:  cancel,
	}

	go s.loop()
	return s
}

func (s *Session) Code() string { return s.state.Code }

// Send delivers a message to the session actor, or drops it if the
// session has already shut down.
func (s *Session) Send(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

// Expose the inbox so tests can send messages directly.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			s.shutdown()
			return

		case m := <-s.inbox:
			switch msg := m.(type) {
			case Join:
				s.state.AddMember(msg.ClientID, msg.Name)
				s.clients[msg.ClientID] = msg.Outbox
				s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

			case Leave:
				if s.handleLeave(msg.ClientID) {
					return
				}

			case SetQuestions:
				if err := s.state.SetQuestions(msg.ClientID, msg.Questions); err != nil {
					s.log.Debug("set-questions dropped", zap.String("client", msg.ClientID), zap.Error(err))
					break
				}
				s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

			case SetSettings:
				if err := s.state.SetSettings(msg.ClientID, msg.Settings); err != nil {
					s.log.Debug("set-settings dropped", zap.String("client", msg.ClientID), zap.Error(err))
					break
				}
				s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

			case SetLeader:
				if err := s.state.SetLeader(msg.ClientID, msg.NextLeader); err != nil {
					s.log.Debug("set-leader dropped", zap.String("client", msg.ClientID), zap.Error(err))
					break
				}
				s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

			case StartGame:
				s.handleStart(msg.ClientID)

			case SubmitAnswer:
				s.handleAnswer(msg.ClientID, msg.Text)

			case Fetch:
				msg.Reply <- *s.snapshot()

			case GetState:
				view := View{
					NumClients: len(s.clients),
					RoundOpen:  s.round != nil && !s.round.ended,
					State:      s.state,
				}
				view.State.Members = append([]game.Participant(nil), s.state.Members...)
				msg.Reply <- view

			case countdownTick:
				s.handleCountdown(msg.value)

			case roundTimeout:
				if s.roundLive(msg.gen) {
					s.endRound()
				}

			case earlyEndFire:
				if s.roundLive(msg.gen) {
					s.endRound()
				}

			case advanceFire:
				s.handleAdvance(msg.gen)

			case Shutdown:
				s.shutdown()
				return
			}
		}
	}
}

func (s *Session) handleLeave(clientID string) (done bool) {
	if ch, ok := s.clients[clientID]; ok {
		close(ch)
		delete(s.clients, clientID)
	}
	// A leaver must not linger on the round leaderboard or block the
	// all-answered predicate.
	if s.round != nil {
		delete(s.round.elapsed, clientID)
	}
	if s.state.RemoveMember(clientID) {
		s.log.Info("last member left, destroying session")
		if s.onEmpty != nil {
			s.onEmpty(s.state.Code)
		}
		s.shutdown()
		return true
	}
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})
	if s.roundLive(s.gen) && s.state.AllAnsweredCorrectly() {
		s.scheduleEarlyEnd()
	}
	return false
}

func (s *Session) handleStart(clientID string) {
	if err := s.state.Start(clientID); err != nil {
		s.log.Debug("start-game dropped", zap.String("client", clientID), zap.Error(err))
		return
	}
	s.log.Info("game starting", zap.Int("questions", len(s.state.Questions)))
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})
	s.broadcast(types.ServerMessage{Type: "countdown", Countdown: countdownStart})
	s.countdownTimer = s.clock.AfterFunc(countdownInterval, func() {
		s.post(countdownTick{value: countdownStart - 1})
	})
}

func (s *Session) handleCountdown(value int) {
	if s.state.Status != game.StatusStarting {
		return
	}
	if value >= 1 {
		s.broadcast(types.ServerMessage{Type: "countdown", Countdown: value})
		s.countdownTimer = s.clock.AfterFunc(countdownInterval, func() {
			s.post(countdownTick{value: value - 1})
		})
		return
	}
	s.state.BeginPlay()
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})
	if q := s.state.CurrentQuestion(); q != nil {
		s.openRound(q)
	} else {
		s.finishGame()
	}
}

func (s *Session) handleAnswer(clientID, text string) {
	if !s.roundLive(s.gen) {
		s.log.Debug("answer dropped", zap.String("client", clientID), zap.Error(game.ErrNoActiveRound))
		return
	}
	p := s.state.Member(clientID)
	if p == nil {
		return
	}
	if p.CorrectThisRound {
		// Soft no-op: no score change, re-ack the recorded time.
		if prior, ok := s.round.elapsed[clientID]; ok {
			s.sendTo(clientID, types.ServerMessage{Type: "correct", ElapsedMs: prior.Milliseconds()})
		}
		return
	}

	elapsed := s.clock.Since(s.round.startedAt)
	if s.state.CheckAnswer(text) {
		s.state.MarkCorrect(clientID, strconv.FormatInt(elapsed.Milliseconds(), 10))
		s.round.elapsed[clientID] = elapsed
		s.sendTo(clientID, types.ServerMessage{Type: "correct", ElapsedMs: elapsed.Milliseconds()})
	} else {
		s.state.MarkWrong(clientID)
	}
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

	if s.state.AllAnsweredCorrectly() {
		s.scheduleEarlyEnd()
	}
}

func (s *Session) handleAdvance(gen int) {
	if gen != s.gen || s.state.Status != game.StatusOngoing {
		return
	}
	if q := s.state.Advance(); q != nil {
		s.openRound(q)
	} else {
		s.finishGame()
	}
}

func (s *Session) snapshot() *types.SessionView {
	members := make([]game.Participant, len(s.state.Members))
	copy(members, s.state.Members)
	return &types.SessionView{
		Code:          s.state.Code,
		LeaderID:      s.state.LeaderID,
		Status:        s.state.Status,
		Members:       members,
		Settings:      s.state.Settings,
		QuestionCount: len(s.state.Questions),
		CurrentIndex:  s.state.CurrentIndex,
	}
}

func (s *Session) broadcast(msg types.ServerMessage) {
	for id, ch := range s.clients {
		select {
		case ch <- msg:
			// ok
		default:
			// Client is slow/full - drop them.
			close(ch)
			delete(s.clients, id)
		}
	}
}

func (s *Session) sendTo(clientID string, msg types.ServerMessage) {
	ch, ok := s.clients[clientID]
	if !ok {
		return
	}
	select {
	case ch <- msg:
	default:
		close(ch)
		delete(s.clients, clientID)
	}
}

// post is how timer callbacks re-enter the actor. The ctx guard keeps
// late fires from blocking forever after shutdown.
func (s *Session) post(m Msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) shutdown() {
	s.teardownRound()
	if s.countdownTimer != nil {
		s.countdownTimer.Stop()
	}
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
	}
	for id, ch := range s.clients {
		close(ch) // Tell client no more messages
		delete(s.clients, id)
	}
	s.cancel()
}
