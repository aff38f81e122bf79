package game

import "errors"

var ErrSessionNotFound = errors.New("session not found")
var ErrNotLeader = errors.New("caller is not the session leader")
var ErrNotMember = errors.New("target is not a session member")
var ErrEmptyQuestionSet = errors.New("question set is empty")
var ErrAlreadyStarted = errors.New("game already started")
var ErrNoActiveRound = errors.New("no active round")

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusStarting Status = "starting"
	StatusOngoing  Status = "ongoing"
	StatusFinished Status = "finished"
)

// ScoreAward is the fixed number of points for a correct answer.
// Speed orders the round leaderboard but does not change point value.
const ScoreAward = 100

// MiniStatusWrong marks a participant whose last submission missed.
const MiniStatusWrong = "wrong"

type Settings struct {
	AnswerByTerm   bool `json:"answerByTerm"`
	MultipleChoice bool `json:"multipleChoice"`
}

type Question struct {
	Prompt      string   `json:"prompt"`
	Answer      string   `json:"answer"`
	Distractors []string `json:"distractors,omitempty"`
}

type Participant struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Score            int    `json:"score"`
	Wins             int    `json:"wins"`
	CorrectThisRound bool   `json:"correctThisRound"`
	MiniStatus       string `json:"miniStatus,omitempty"`
}

// State is the full mutable state of one session. It is owned by a
// single session actor; nothing here is safe for concurrent use.
type State struct {
	Code         string
	LeaderID     string
	Members      []Participant // join order; first member is the initial leader
	Questions    []Question
	Settings     Settings
	Status       Status
	CurrentIndex int
}

func NewState(code, leaderID, leaderName string) State {
	return State{
		Code:         code,
		LeaderID:     leaderID,
		Members:      []Participant{{ID: leaderID, Name: leaderName}},
		Status:       StatusWaiting,
		CurrentIndex: -1,
	}
}

func (s *State) Member(id string) *Participant {
	for i := range s.Members {
		if s.Members[i].ID == id {
			return &s.Members[i]
		}
	}
	return nil
}

func (s *State) IsLeader(id string) bool { return s.LeaderID == id }

// AddMember appends a participant in join order. Re-joining with an id
// that is already a member is a no-op.
func (s *State) AddMember(id, name string) {
	if s.Member(id) != nil {
		return
	}
	s.Members = append(s.Members, Participant{ID: id, Name: name})
	if len(s.Members) == 1 {
		s.LeaderID = id
	}
}

// RemoveMember drops a participant. If the leader leaves, the next
// member by join order is promoted. Reports whether the session is now
// empty.
func (s *State) RemoveMember(id string) (empty bool) {
	for i := range s.Members {
		if s.Members[i].ID == id {
			s.Members = append(s.Members[:i], s.Members[i+1:]...)
			break
		}
	}
	if len(s.Members) == 0 {
		s.LeaderID = ""
		return true
	}
	if s.LeaderID == id {
		s.LeaderID = s.Members[0].ID
	}
	return false
}

// SetLeader transfers leadership. Only the current leader may call it,
// and the target must be a member.
func (s *State) SetLeader(callerID, nextID string) error {
	if !s.IsLeader(callerID) {
		return ErrNotLeader
	}
	if s.Member(nextID) == nil {
		return ErrNotMember
	}
	s.LeaderID = nextID
	return nil
}

// SetQuestions replaces the question set. Leader only, and only before
// the game starts.
func (s *State) SetQuestions(callerID string, questions []Question) error {
	if !s.IsLeader(callerID) {
		return ErrNotLeader
	}
	if s.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	// Copy: the caller's slice came off the wire and outlives this call.
	s.Questions = append([]Question(nil), questions...)
	return nil
}

func (s *State) SetSettings(callerID string, settings Settings) error {
	if !s.IsLeader(callerID) {
		return ErrNotLeader
	}
	if s.Status != StatusWaiting {
		return ErrAlreadyStarted
	}
	s.Settings = settings
	return nil
}
