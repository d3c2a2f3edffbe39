package service

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	attemptsRepo "github.com/IT-Nick/testbot/internal/domain/attempts/repository"
	"github.com/IT-Nick/testbot/internal/domain/events"
	"github.com/IT-Nick/testbot/internal/domain/model"
	testsRepo "github.com/IT-Nick/testbot/internal/domain/tests/repository"
	usersRepo "github.com/IT-Nick/testbot/internal/domain/users/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testID = "test_demo"
	userID = int64(1001)
	chatID = int64(1001)
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.AttemptFinished
}

func (p *recordingPublisher) PublishAttemptFinished(_ context.Context, e events.AttemptFinished) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	svc       *AttemptService
	tests     *testsRepo.MemoryTestRepository
	attempts  *attemptsRepo.MemoryAttemptRepository
	users     *usersRepo.MemoryUserRepository
	clock     *fakeClock
	publisher *recordingPublisher
}

// newFixture: активный тест из двух вопросов (Q1 = a, Q2 = c), лимит 1 минута
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		tests:     testsRepo.NewMemoryTestRepository(),
		attempts:  attemptsRepo.NewMemoryAttemptRepository(),
		users:     usersRepo.NewMemoryUserRepository(),
		clock:     &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		publisher: &recordingPublisher{},
	}
	f.svc = NewAttemptService(f.attempts, f.tests, f.users, f.publisher,
		Settings{GracePeriod: 3 * time.Second, MaxScore: 100}, zap.NewNop())
	f.svc.SetClock(f.clock.Now)

	def := model.TestDefinition{ID: testID, Name: "Grammar", Level: "B1", QuestionCount: 2, TimeLimitMinutes: 1, CreatedAt: f.clock.Now()}
	require.NoError(t, f.tests.CreateDefinition(ctx, def))
	require.NoError(t, f.tests.SaveQuestion(ctx, model.Question{TestID: testID, Number: 1, Text: "Q1", OptionA: "a1", OptionB: "b1", OptionC: "c1", OptionD: "d1", Correct: model.OptionA}))
	require.NoError(t, f.tests.SaveQuestion(ctx, model.Question{TestID: testID, Number: 2, Text: "Q2", OptionA: "a2", OptionB: "b2", OptionC: "c2", OptionD: "d2", Correct: model.OptionC}))
	require.NoError(t, f.tests.PublishActiveTest(ctx, model.NewActiveTest(def, f.clock.Now())))
	return f
}

func TestStart_NoActiveTest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.tests.UnpublishActiveTest(context.Background(), testID))

	_, err := f.svc.Start(context.Background(), userID, chatID, false)
	assert.ErrorIs(t, err, model.ErrNoActiveTest)
}

func TestStart_NoQuestionsLeavesNoAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.tests.UnpublishActiveTest(ctx, testID))
	empty := model.TestDefinition{ID: "test_empty", QuestionCount: 3, TimeLimitMinutes: 5}
	require.NoError(t, f.tests.CreateDefinition(ctx, empty))
	require.NoError(t, f.tests.PublishActiveTest(ctx, model.NewActiveTest(empty, f.clock.Now())))

	_, err := f.svc.Start(ctx, userID, chatID, false)
	require.ErrorIs(t, err, model.ErrNoQuestions)

	attempt, err := f.attempts.GetAttemptByUser(ctx, userID, "test_empty")
	require.NoError(t, err)
	assert.Nil(t, attempt)
}

func TestStart_MintsTokenAndAllotsGrace(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Start(context.Background(), userID, chatID, false)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{7}$`), res.Attempt.Token)
	assert.False(t, res.Resumed)
	assert.Equal(t, time.Minute+3*time.Second, res.Allotted)
	assert.Len(t, res.Questions, 2)
	assert.Empty(t, res.Answers)
	assert.Equal(t, f.clock.Now(), res.Attempt.StartedAt)
}

func TestStart_ResumeKeepsTokenAndStartTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, first.Attempt.Token, 1, model.OptionB))

	f.clock.Advance(20 * time.Second)
	second, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)

	assert.True(t, second.Resumed)
	assert.Equal(t, first.Attempt.Token, second.Attempt.Token)
	assert.Equal(t, first.Attempt.StartedAt, second.Attempt.StartedAt)
	assert.Equal(t, map[int]model.Option{1: model.OptionB}, second.Answers)
	assert.Equal(t, 43*time.Second, second.Remaining(f.clock.Now()))
}

func TestStart_RefusesCompletedAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	_, created, err := f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)
	require.True(t, created)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Start(ctx, userID, chatID, false)
	require.ErrorIs(t, err, model.ErrAlreadyCompleted)

	var completed *model.AlreadyCompletedError
	require.True(t, errors.As(err, &completed))
	assert.Equal(t, res.Attempt.Token, completed.Token)

	attempt, err := f.attempts.GetAttemptByUser(ctx, userID, testID)
	require.NoError(t, err)
	assert.Equal(t, res.Attempt.StartedAt, attempt.StartedAt)

	scores, err := f.attempts.ListScores(ctx, testID)
	require.NoError(t, err)
	assert.Len(t, scores, 1)
}

func TestStart_RetakeClearsPreviousAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.Start(ctx, userID, chatID, true)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, first.Attempt.Token, 1, model.OptionA))
	_, _, err = f.svc.Finish(ctx, first.Attempt.Token, false)
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	second, err := f.svc.Start(ctx, userID, chatID, true)
	require.NoError(t, err)

	assert.NotEqual(t, first.Attempt.Token, second.Attempt.Token)
	assert.Equal(t, f.clock.Now(), second.Attempt.StartedAt)
	assert.Empty(t, second.Answers)
	score, err := f.attempts.GetScoreByToken(ctx, first.Attempt.Token)
	require.NoError(t, err)
	assert.Nil(t, score)
}

func TestStart_RetriesTokenCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.attempts.CreateAttempt(ctx, model.Attempt{Token: "TAKEN00", TestID: testID, UserID: 7})
	require.NoError(t, err)

	tokens := []string{"TAKEN00", "TAKEN00", "FRESH01"}
	f.svc.newToken = func() (string, error) {
		token := tokens[0]
		tokens = tokens[1:]
		return token, nil
	}

	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	assert.Equal(t, "FRESH01", res.Attempt.Token)
}

func TestSubmitAnswer_UpsertKeepsLatest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	token := res.Attempt.Token

	require.NoError(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionB))
	require.NoError(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionB))
	require.NoError(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionA))

	assert.Equal(t, 1, f.attempts.AnswerCount(token))
	answers, err := f.svc.Answers(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, model.OptionA, answers[1])
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	token := res.Attempt.Token

	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, token, 1, model.Option("e")), model.ErrInvalidAnswer)
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, token, 3, model.OptionA), model.ErrInvalidAnswer)
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, "NOPE000", 1, model.OptionA), model.ErrAttemptNotFound)

	f.clock.Advance(64 * time.Second)
	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionA), model.ErrAttemptFinished)
}

func TestSubmitAnswer_AfterFinishIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	_, _, err = f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 1, model.OptionA), model.ErrAttemptFinished)
}

func TestFinish_ExactlyOnceUnderRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	token := res.Attempt.Token
	require.NoError(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionA))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []*model.Score
		seen    []*model.Score
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(auto bool) {
			defer wg.Done()
			<-start
			score, created, err := f.svc.Finish(ctx, token, auto)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, score)
			if created {
				winners = append(winners, score)
			}
		}(i%2 == 0)
	}
	close(start)
	wg.Wait()

	require.Len(t, winners, 1)
	scores, err := f.attempts.ListScores(ctx, testID)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, *winners[0], scores[0])
	for _, s := range seen {
		assert.Equal(t, winners[0].AutoFinished, s.AutoFinished)
		assert.Equal(t, 1, s.CorrectAnswers)
	}
	assert.Equal(t, 1, f.publisher.count())
}

func TestFinish_AutoCountsUnansweredAsWrong(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 1, model.OptionA))

	f.clock.Advance(63 * time.Second)
	score, created, err := f.svc.Finish(ctx, res.Attempt.Token, true)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, 1, score.CorrectAnswers)
	assert.Equal(t, 2, score.TotalQuestions)
	assert.True(t, score.AutoFinished)
	assert.Equal(t, 0, score.TimeLeft)
	assert.Equal(t, 50, score.Score)
}

func TestFinish_ManualAfterDeadlineIsAuto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 1, model.OptionA))

	f.clock.Advance(70 * time.Second)
	score, created, err := f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)
	require.True(t, created)

	assert.True(t, score.AutoFinished)
	assert.Equal(t, 0, score.TimeLeft)
	assert.Equal(t, 1, score.CorrectAnswers)
}

func TestFinish_ManualWithinGraceStaysManual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)

	f.clock.Advance(61 * time.Second)
	score, _, err := f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)

	assert.False(t, score.AutoFinished)
	assert.Equal(t, 0, score.TimeLeft)
}

func TestFinish_EndToEndManual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 1, model.OptionA))
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 2, model.OptionB))

	f.clock.Advance(10 * time.Second)
	score, created, err := f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, model.Score{
		Token:          res.Attempt.Token,
		TestID:         testID,
		UserID:         userID,
		TotalQuestions: 2,
		CorrectAnswers: 1,
		Score:          50,
		MaxScore:       100,
		FinishedAt:     f.clock.Now(),
		TimeLeft:       50,
		AutoFinished:   false,
	}, *score)

	require.Equal(t, 1, f.publisher.count())
	assert.Equal(t, res.Attempt.Token, f.publisher.events[0].Token)
}

func TestReopen_ClearsAnswersAndScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	token := res.Attempt.Token
	require.NoError(t, f.svc.SubmitAnswer(ctx, token, 1, model.OptionA))
	_, _, err = f.svc.Finish(ctx, token, false)
	require.NoError(t, err)

	reopened, err := f.svc.Reopen(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, token, reopened.Token)

	assert.Zero(t, f.attempts.AnswerCount(token))
	score, err := f.attempts.GetScoreByToken(ctx, token)
	require.NoError(t, err)
	assert.Nil(t, score)

	f.clock.Advance(5 * time.Minute)
	again, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	assert.False(t, again.Resumed)
	assert.Equal(t, f.clock.Now(), again.Attempt.StartedAt)
	assert.Empty(t, again.Answers)
}

func TestReopen_ByTokenAndMissing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)

	reopened, err := f.svc.Reopen(ctx, toLower(res.Attempt.Token))
	require.NoError(t, err)
	assert.Equal(t, userID, reopened.UserID)

	_, err = f.svc.Reopen(ctx, res.Attempt.Token)
	assert.ErrorIs(t, err, model.ErrAttemptNotFound)
	_, err = f.svc.Reopen(ctx, "999")
	assert.ErrorIs(t, err, model.ErrAttemptNotFound)
}

func TestGetResult_ReviewGating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 1, model.OptionA))
	require.NoError(t, f.svc.SubmitAnswer(ctx, res.Attempt.Token, 2, model.OptionB))
	_, _, err = f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)

	closed, err := f.svc.GetResult(ctx, "", userID, false)
	require.NoError(t, err)
	assert.False(t, closed.ResultsOpen)
	assert.Nil(t, closed.Review)
	assert.Equal(t, 1, closed.Score.CorrectAnswers)

	require.NoError(t, f.tests.SetResultsOpen(ctx, true))
	open, err := f.svc.GetResult(ctx, "", userID, false)
	require.NoError(t, err)
	require.True(t, open.ResultsOpen)
	require.Len(t, open.Review, 2)

	assert.Equal(t, model.OptionA, open.Review[0].Question.Correct)
	assert.Equal(t, model.OptionA, open.Review[0].Selected)
	assert.True(t, open.Review[0].IsCorrect())
	assert.Equal(t, model.OptionC, open.Review[1].Question.Correct)
	assert.Equal(t, model.OptionB, open.Review[1].Selected)
	assert.False(t, open.Review[1].IsCorrect())
}

func TestGetResult_Access(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	res, err := f.svc.Start(ctx, userID, chatID, false)
	require.NoError(t, err)

	_, err = f.svc.GetResult(ctx, "", userID, false)
	assert.ErrorIs(t, err, model.ErrNoResult)

	_, _, err = f.svc.Finish(ctx, res.Attempt.Token, false)
	require.NoError(t, err)

	tests := []struct {
		name        string
		identifier  string
		requesterID int64
		isAdmin     bool
		wantErr     error
	}{
		{name: "self by empty identifier", identifier: "", requesterID: userID},
		{name: "self by own id", identifier: "1001", requesterID: userID},
		{name: "self by lowercase token", identifier: toLower(res.Attempt.Token), requesterID: userID},
		{name: "stranger by id", identifier: "1001", requesterID: 5, wantErr: model.ErrForbidden},
		{name: "stranger by token", identifier: res.Attempt.Token, requesterID: 5, wantErr: model.ErrForbidden},
		{name: "admin by id", identifier: "1001", requesterID: 5, isAdmin: true},
		{name: "admin by token", identifier: res.Attempt.Token, requesterID: 5, isAdmin: true},
		{name: "admin unknown user", identifier: "77", requesterID: 5, isAdmin: true, wantErr: model.ErrNoResult},
		{name: "unknown token", identifier: "ZZZZZZZ", requesterID: userID, wantErr: model.ErrNoResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.svc.GetResult(ctx, tt.identifier, tt.requesterID, tt.isAdmin)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, res.Attempt.Token, result.Score.Token)
		})
	}
}

func TestTopResults_OrderingAndAverages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.users.SetFullName(ctx, 1, "Alice Doe"))
	require.NoError(t, f.users.UpsertUser(ctx, 2, "bob"))

	base := f.clock.Now()
	for _, s := range []model.Score{
		{Token: "T1", TestID: testID, UserID: 1, Score: 50, TimeLeft: 10, FinishedAt: base.Add(3 * time.Minute)},
		{Token: "T2", TestID: testID, UserID: 2, Score: 100, TimeLeft: 20, FinishedAt: base.Add(2 * time.Minute)},
		{Token: "T3", TestID: testID, UserID: 3, Score: 50, TimeLeft: 30, FinishedAt: base.Add(4 * time.Minute)},
		{Token: "T4", TestID: testID, UserID: 4, Score: 50, TimeLeft: 30, FinishedAt: base.Add(1 * time.Minute)},
		{Token: "T5", TestID: "other", UserID: 5, Score: 100, FinishedAt: base},
	} {
		_, err := f.attempts.InsertScore(ctx, s)
		require.NoError(t, err)
	}

	summary, err := f.svc.TopResults(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Participants)
	assert.InDelta(t, 62.5, summary.AverageScore, 0.001)
	// (50 + 40 + 30 + 30) / 4 секунд
	assert.Equal(t, 37500*time.Millisecond, summary.AverageTimeSpent)

	require.Len(t, summary.Top, 3)
	assert.Equal(t, "T2", summary.Top[0].Token)
	assert.Equal(t, "bob", summary.Top[0].Username)
	assert.Equal(t, "T4", summary.Top[1].Token)
	assert.Equal(t, "T3", summary.Top[2].Token)
}

func TestTopResults_Empty(t *testing.T) {
	f := newFixture(t)
	summary, err := f.svc.TopResults(context.Background(), 8)
	require.NoError(t, err)
	assert.Zero(t, summary.Participants)
	assert.Empty(t, summary.Top)
}

func TestOpenAttempts_SkipsFinished(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a, err := f.svc.Start(ctx, 1, 1, false)
	require.NoError(t, err)
	b, err := f.svc.Start(ctx, 2, 2, false)
	require.NoError(t, err)
	_, _, err = f.svc.Finish(ctx, a.Attempt.Token, false)
	require.NoError(t, err)

	_, open, err := f.svc.OpenAttempts(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, b.Attempt.Token, open[0].Token)
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
