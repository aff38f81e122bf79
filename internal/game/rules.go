package game

import (
	"math/rand"

	"github.com/flashrush/quiz-backend/internal/fuzzy"
)

// Stubbed in tests to pin question order.
var shuffleQuestions = func(qs []Question) {
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// Start validates the caller and question set, resets all scores, and
// moves the session to StatusStarting with the cursor before the first
// question. The question order is shuffled independently per game.
func (s *State) Start(callerID string) error {
	if !s.IsLeader(callerID) {
		return ErrNotLeader
	}
	// A finished session is terminal; restarting mid-game would rewind
	// the question cursor.
	if s.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	if len(s.Questions) == 0 {
		return ErrEmptyQuestionSet
	}
	for i := range s.Members {
		s.Members[i].Score = 0
		s.Members[i].CorrectThisRound = false
		s.Members[i].MiniStatus = ""
	}
	shuffleQuestions(s.Questions)
	s.Status = StatusStarting
	s.CurrentIndex = -1
	return nil
}

// BeginPlay transitions StatusStarting -> StatusOngoing once the
// countdown has run.
func (s *State) BeginPlay() {
	if s.Status == StatusStarting {
		s.Status = StatusOngoing
	}
}

// CurrentQuestion moves the cursor onto the first question when called
// with the cursor still at its pre-game position, then returns the
// question under the cursor. Nil means the set is exhausted.
func (s *State) CurrentQuestion() *Question {
	if s.CurrentIndex < 0 {
		s.CurrentIndex = 0
	}
	return s.ActiveQuestion()
}

// Advance moves the cursor forward one question. Nil means the set is
// exhausted and the game should end. The cursor never moves outside
// StatusOngoing.
func (s *State) Advance() *Question {
	if s.Status != StatusOngoing {
		return nil
	}
	s.CurrentIndex++
	return s.ActiveQuestion()
}

// ActiveQuestion returns the question under the cursor without moving
// it, or nil when the cursor is out of range.
func (s *State) ActiveQuestion() *Question {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// expectedAnswer honors the answerByTerm setting: with it on, the card
// is flipped and the prompt side is what participants must supply.
func (s *State) expectedAnswer(q *Question) string {
	if s.Settings.AnswerByTerm {
		return q.Prompt
	}
	return q.Answer
}

// PresentedPrompt is the text shown to participants for the active
// question, honoring the answerByTerm flip.
func (s *State) PresentedPrompt(q *Question) string {
	if s.Settings.AnswerByTerm {
		return q.Answer
	}
	return q.Prompt
}

// PresentedOptions returns the shuffled answer choices for the active
// question in multiple-choice mode, or nil otherwise.
func (s *State) PresentedOptions(q *Question) []string {
	if !s.Settings.MultipleChoice || len(q.Distractors) == 0 {
		return nil
	}
	options := make([]string, 0, len(q.Distractors)+1)
	options = append(options, s.expectedAnswer(q))
	options = append(options, q.Distractors...)
	rand.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}

// CheckAnswer compares a submission against the active question through
// the fuzzy matcher.
func (s *State) CheckAnswer(text string) bool {
	q := s.ActiveQuestion()
	if q == nil {
		return false
	}
	return fuzzy.Match(text, s.expectedAnswer(q))
}

// ResetRound clears every member's per-round fields. Called when a new
// question is presented.
func (s *State) ResetRound() {
	for i := range s.Members {
		s.Members[i].CorrectThisRound = false
		s.Members[i].MiniStatus = ""
	}
}

// WipeMiniStatus clears the transient per-round display values after
// results have been shown.
func (s *State) WipeMiniStatus() {
	for i := range s.Members {
		s.Members[i].MiniStatus = ""
	}
}

// MarkCorrect credits a first correct answer for the round and reports
// whether credit was applied. Repeat calls for an already-correct
// participant change nothing.
func (s *State) MarkCorrect(id, miniStatus string) bool {
	p := s.Member(id)
	if p == nil || p.CorrectThisRound {
		return false
	}
	p.CorrectThisRound = true
	p.MiniStatus = miniStatus
	p.Score += ScoreAward
	return true
}

// MarkWrong flags a missed submission without touching the score.
func (s *State) MarkWrong(id string) {
	p := s.Member(id)
	if p == nil || p.CorrectThisRound {
		return
	}
	p.MiniStatus = MiniStatusWrong
}

// AllAnsweredCorrectly reports whether every current member has
// answered this round's question correctly. A session with no members
// is never eligible.
func (s *State) AllAnsweredCorrectly() bool {
	if len(s.Members) == 0 {
		return false
	}
	for i := range s.Members {
		if !s.Members[i].CorrectThisRound {
			return false
		}
	}
	return true
}

// EndGame awards a win to every member tied at the top score and moves
// the session to its terminal state.
func (s *State) EndGame() {
	top := 0
	for i := range s.Members {
		if s.Members[i].Score > top {
			top = s.Members[i].Score
		}
	}
	if top > 0 {
		for i := range s.Members {
			if s.Members[i].Score == top {
				s.Members[i].Wins++
			}
		}
	}
	s.Status = StatusFinished
}
