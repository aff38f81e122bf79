package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoQuestions() []Question {
	return []Question{
		{Prompt: "Capital of France", Answer: "Paris"},
		{Prompt: "Capital of Japan", Answer: "Tokyo"},
	}
}

func startedState(t *testing.T) *State {
	t.Helper()
	s := NewState("ABCD", "p1", "Ana")
	s.AddMember("p2", "Ben")
	require.NoError(t, s.SetQuestions("p1", twoQuestions()))
	require.NoError(t, s.Start("p1"))
	s.BeginPlay()
	return &s
}

func TestStart_RequiresLeader(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	s.AddMember("p2", "Ben")
	s.Questions = twoQuestions()

	assert.ErrorIs(t, s.Start("p2"), ErrNotLeader)
	assert.Equal(t, StatusWaiting, s.Status)
}

func TestStart_EmptyQuestionSetStaysWaiting(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	require.NoError(t, s.SetQuestions("p1", nil))

	assert.ErrorIs(t, s.Start("p1"), ErrEmptyQuestionSet)
	assert.Equal(t, StatusWaiting, s.Status)
}

func TestStart_ResetsScoresAndShuffles(t *testing.T) {
	orig := shuffleQuestions
	var shuffled bool
	shuffleQuestions = func(qs []Question) { shuffled = true }
	defer func() { shuffleQuestions = orig }()

	s := NewState("ABCD", "p1", "Ana")
	s.Members[0].Score = 300
	require.NoError(t, s.SetQuestions("p1", twoQuestions()))
	require.NoError(t, s.Start("p1"))

	assert.True(t, shuffled)
	assert.Equal(t, 0, s.Members[0].Score)
	assert.Equal(t, StatusStarting, s.Status)
	assert.Equal(t, -1, s.CurrentIndex)
}

func TestStart_OnlyFromWaiting(t *testing.T) {
	s := startedState(t)
	assert.ErrorIs(t, s.Start("p1"), ErrAlreadyStarted)

	s.EndGame()
	assert.ErrorIs(t, s.Start("p1"), ErrAlreadyStarted)
	assert.Equal(t, StatusFinished, s.Status)
}

func TestSetQuestions_RejectedAfterStart(t *testing.T) {
	s := startedState(t)
	assert.ErrorIs(t, s.SetQuestions("p1", nil), ErrAlreadyStarted)
	assert.Len(t, s.Questions, 2)
}

func TestCursor_AdvancesForwardAndTerminates(t *testing.T) {
	s := startedState(t)

	first := s.CurrentQuestion()
	require.NotNil(t, first)
	assert.Equal(t, 0, s.CurrentIndex)

	// Repeat calls do not move the cursor.
	assert.Equal(t, first, s.CurrentQuestion())
	assert.Equal(t, 0, s.CurrentIndex)

	require.NotNil(t, s.Advance())
	assert.Equal(t, 1, s.CurrentIndex)

	assert.Nil(t, s.Advance())
}

func TestAdvance_OnlyWhileOngoing(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	s.Questions = twoQuestions()

	assert.Nil(t, s.Advance())
	assert.Equal(t, -1, s.CurrentIndex)
}

func TestMarkCorrect_NoDoubleCredit(t *testing.T) {
	s := startedState(t)
	s.CurrentQuestion()

	assert.True(t, s.MarkCorrect("p1", "120"))
	assert.Equal(t, ScoreAward, s.Member("p1").Score)
	assert.Equal(t, "120", s.Member("p1").MiniStatus)

	assert.False(t, s.MarkCorrect("p1", "450"))
	assert.Equal(t, ScoreAward, s.Member("p1").Score)
	assert.Equal(t, "120", s.Member("p1").MiniStatus)
}

func TestMarkWrong_DoesNotTouchCorrect(t *testing.T) {
	s := startedState(t)
	s.CurrentQuestion()

	s.MarkWrong("p2")
	assert.Equal(t, MiniStatusWrong, s.Member("p2").MiniStatus)
	assert.Equal(t, 0, s.Member("p2").Score)

	s.MarkCorrect("p2", "90")
	s.MarkWrong("p2")
	assert.Equal(t, "90", s.Member("p2").MiniStatus)
}

func TestCheckAnswer_FuzzyAndFlipped(t *testing.T) {
	s := startedState(t)
	q := s.CurrentQuestion()
	require.NotNil(t, q)

	assert.True(t, s.CheckAnswer(q.Answer))
	assert.True(t, s.CheckAnswer("  the "+q.Answer+"!"))
	assert.False(t, s.CheckAnswer("wrong answer"))

	// answerByTerm flips the card: the prompt side is now expected.
	s.Settings.AnswerByTerm = true
	assert.True(t, s.CheckAnswer(q.Prompt))
	assert.False(t, s.CheckAnswer(q.Answer))
	assert.Equal(t, q.Answer, s.PresentedPrompt(q))
}

func TestPresentedOptions_MultipleChoice(t *testing.T) {
	s := startedState(t)
	s.Questions[0].Distractors = []string{"Lyon", "Marseille", "Nice"}
	q := s.CurrentQuestion()
	require.NotNil(t, q)

	assert.Nil(t, s.PresentedOptions(q))

	s.Settings.MultipleChoice = true
	options := s.PresentedOptions(q)
	assert.Len(t, options, 4)
	assert.Contains(t, options, q.Answer)
}

func TestAllAnsweredCorrectly(t *testing.T) {
	s := startedState(t)
	s.CurrentQuestion()

	assert.False(t, s.AllAnsweredCorrectly())

	s.MarkCorrect("p1", "50")
	assert.False(t, s.AllAnsweredCorrectly())

	s.MarkCorrect("p2", "80")
	assert.True(t, s.AllAnsweredCorrectly())

	// A leaver stops blocking (and a session with nobody left is never
	// eligible).
	s.ResetRound()
	s.MarkCorrect("p1", "50")
	assert.False(t, s.AllAnsweredCorrectly())
	s.RemoveMember("p2")
	assert.True(t, s.AllAnsweredCorrectly())
	s.RemoveMember("p1")
	assert.False(t, s.AllAnsweredCorrectly())
}

func TestRemoveMember_PromotesByJoinOrder(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	s.AddMember("p2", "Ben")
	s.AddMember("p3", "Cid")

	empty := s.RemoveMember("p1")
	assert.False(t, empty)
	assert.Equal(t, "p2", s.LeaderID)

	s.RemoveMember("p2")
	assert.Equal(t, "p3", s.LeaderID)

	assert.True(t, s.RemoveMember("p3"))
}

func TestSetLeader_Authorization(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	s.AddMember("p2", "Ben")

	assert.ErrorIs(t, s.SetLeader("p2", "p2"), ErrNotLeader)
	assert.Equal(t, "p1", s.LeaderID)

	assert.ErrorIs(t, s.SetLeader("p1", "ghost"), ErrNotMember)
	assert.Equal(t, "p1", s.LeaderID)

	require.NoError(t, s.SetLeader("p1", "p2"))
	assert.Equal(t, "p2", s.LeaderID)
}

func TestAddMember_DuplicateSafe(t *testing.T) {
	s := NewState("ABCD", "p1", "Ana")
	s.AddMember("p1", "Ana again")
	assert.Len(t, s.Members, 1)
	assert.Equal(t, "Ana", s.Members[0].Name)
}

func TestEndGame_TiedLeadersAllWin(t *testing.T) {
	s := startedState(t)
	s.Member("p1").Score = 200
	s.Member("p2").Score = 200

	s.EndGame()
	assert.Equal(t, StatusFinished, s.Status)
	assert.Equal(t, 1, s.Member("p1").Wins)
	assert.Equal(t, 1, s.Member("p2").Wins)
}

func TestEndGame_ZeroScoresAwardNothing(t *testing.T) {
	s := startedState(t)
	s.EndGame()
	assert.Equal(t, 0, s.Member("p1").Wins)
	assert.Equal(t, 0, s.Member("p2").Wins)
}

func TestEndGame_SingleTopScorer(t *testing.T) {
	s := startedState(t)
	s.Member("p1").Score = 300
	s.Member("p2").Score = 100

	s.EndGame()
	assert.Equal(t, 1, s.Member("p1").Wins)
	assert.Equal(t, 0, s.Member("p2").Wins)
}
