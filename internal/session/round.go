package session

import (
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/flashrush/quiz-backend/internal/game"
	"github.com/flashrush/quiz-backend/internal/types"
)

const (
	// Answer window for one question.
	roundDuration = 10 * time.Second
	// Results stay on screen this long before the next question.
	resultsPause = 3 * time.Second
	// Once everyone has answered, slower-but-racing submissions get
	// this much more time instead of an instant cutoff.
	earlyEndGrace = 1 * time.Second

	countdownStart    = 3
	countdownInterval = 1 * time.Second

	// Rows on the fastest-correct leaderboard.
	maxRoundResults = 3
)

// roundState is the transient state of the currently open answer
// window. At most one exists per session, and it is torn down exactly
// once: both the window timeout and the all-answered path funnel into
// endRound, where the ended flag makes the first trigger win.
type roundState struct {
	gen       int
	startedAt time.Time
	ended     bool
	elapsed   map[string]time.Duration // correct answers only, by participant id

	windowTimer clockwork.Timer
	earlyTimer  clockwork.Timer
}

// roundLive reports whether the given generation's answer window is
// still open. Fires from superseded or already-ended rounds fail this.
func (s *Session) roundLive(gen int) bool {
	return s.round != nil && !s.round.ended && s.round.gen == gen
}

// openRound presents a question: clears per-round member state, records
// the start time, and arms the window timer. Any prior round is torn
// down first so two window timers can never be live at once.
func (s *Session) openRound(q *game.Question) {
	s.teardownRound()
	s.state.ResetRound()

	s.gen++
	gen := s.gen
	s.round = &roundState{
		gen:       gen,
		startedAt: s.clock.Now(),
		elapsed:   make(map[string]time.Duration),
	}
	s.round.windowTimer = s.clock.AfterFunc(roundDuration, func() {
		s.post(roundTimeout{gen: gen})
	})

	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})
	s.broadcast(types.ServerMessage{Type: "question", Question: &types.QuestionView{
		Prompt:  s.state.PresentedPrompt(q),
		Options: s.state.PresentedOptions(q),
	}})
	s.log.Info("round opened", zap.Int("round", gen), zap.Int("question", s.state.CurrentIndex))
}

// endRound performs round teardown exactly once: broadcasts results,
// wipes transient display state, and schedules advancement after the
// results pause. Callers re-check roundLive first, and the ended flag
// guards the body itself.
func (s *Session) endRound() {
	if s.round == nil || s.round.ended {
		return
	}
	s.round.ended = true
	gen := s.round.gen

	results := s.roundResults()
	s.teardownRound()

	s.broadcast(types.ServerMessage{Type: "round-results", Results: results})
	s.state.WipeMiniStatus()
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})

	s.advanceTimer = s.clock.AfterFunc(resultsPause, func() {
		s.post(advanceFire{gen: gen})
	})
	s.log.Info("round ended", zap.Int("round", gen), zap.Int("correct", len(results)))
}

// scheduleEarlyEnd arms the early cutoff once all current members have
// answered correctly: min(remaining window, grace period).
func (s *Session) scheduleEarlyEnd() {
	if s.round == nil || s.round.ended || s.round.earlyTimer != nil {
		return
	}
	remaining := roundDuration - s.clock.Since(s.round.startedAt)
	delay := earlyEndGrace
	if remaining < delay {
		delay = remaining
	}
	if delay < 0 {
		delay = 0
	}
	gen := s.round.gen
	s.round.earlyTimer = s.clock.AfterFunc(delay, func() {
		s.post(earlyEndFire{gen: gen})
	})
}

// roundResults returns the fastest correct responders of the open
// round, ascending by elapsed time. Participants who left mid-round
// were already pruned from the elapsed map.
func (s *Session) roundResults() []types.RoundResult {
	if s.round == nil {
		return nil
	}
	results := make([]types.RoundResult, 0, len(s.round.elapsed))
	for id, d := range s.round.elapsed {
		p := s.state.Member(id)
		if p == nil {
			continue
		}
		results = append(results, types.RoundResult{ID: id, Name: p.Name, ElapsedMs: d.Milliseconds()})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ElapsedMs < results[j].ElapsedMs })
	if len(results) > maxRoundResults {
		results = results[:maxRoundResults]
	}
	return results
}

// teardownRound cancels the round's timers and discards its state.
func (s *Session) teardownRound() {
	if s.round == nil {
		return
	}
	if s.round.windowTimer != nil {
		s.round.windowTimer.Stop()
	}
	if s.round.earlyTimer != nil {
		s.round.earlyTimer.Stop()
	}
	s.round = nil
}

func (s *Session) finishGame() {
	s.state.EndGame()
	s.broadcast(types.ServerMessage{Type: "session", Session: s.snapshot()})
	s.log.Info("game finished")
}
