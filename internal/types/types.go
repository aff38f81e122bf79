package types

import "github.com/flashrush/quiz-backend/internal/game"

// Client -> server events. Type matches the wire event names:
// "create-session" | "join-session" | "set-questions" | "set-settings" |
// "set-leader" | "get-session" | "start-game" | "submit-answer"
type ClientMessage struct {
	Type       string          `json:"type"`
	Code       string          `json:"code,omitempty"`
	Nickname   string          `json:"nickname,omitempty"`
	Text       string          `json:"text,omitempty"`
	Questions  []game.Question `json:"questions,omitempty"`
	Settings   *game.Settings  `json:"settings,omitempty"`
	NextLeader string          `json:"nextLeaderId,omitempty"`
}

// SessionView is the snapshot broadcast to members after every
// mutation. Question contents stay server-side; clients only see the
// count and cursor.
type SessionView struct {
	Code          string             `json:"code"`
	LeaderID      string             `json:"leaderId"`
	Status        game.Status        `json:"status"`
	Members       []game.Participant `json:"members"`
	Settings      game.Settings      `json:"settings"`
	QuestionCount int                `json:"questionCount"`
	CurrentIndex  int                `json:"currentIndex"`
}

type QuestionView struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options,omitempty"`
}

// RoundResult is one row of the fastest-correct leaderboard.
type RoundResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ElapsedMs int64  `json:"elapsedMs"`
}

// Server -> client messages.
// Type: "session" | "countdown" | "question" | "round-results" | "correct" | "error"
// Countdown and ElapsedMs stay explicit on the wire: a 0 ms answer is a
// legitimate timing, not an absent field.
type ServerMessage struct {
	Type      string        `json:"type"`
	Session   *SessionView  `json:"session,omitempty"`
	Countdown int           `json:"countdown"`
	Question  *QuestionView `json:"question,omitempty"`
	Results   []RoundResult `json:"results,omitempty"`
	ElapsedMs int64         `json:"elapsedMs"`
	Error     string        `json:"error,omitempty"`
}
