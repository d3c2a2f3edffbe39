package testflow

import (
	"context"
	"sync"
	"testing"
	"time"

	attemptsRepo "github.com/IT-Nick/testbot/internal/domain/attempts/repository"
	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/events"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/domain/sessions"
	testsRepo "github.com/IT-Nick/testbot/internal/domain/tests/repository"
	usersRepo "github.com/IT-Nick/testbot/internal/domain/users/repository"
	usersService "github.com/IT-Nick/testbot/internal/domain/users/service"
	"github.com/IT-Nick/testbot/internal/infra/telegram"
	"github.com/IT-Nick/testbot/internal/infra/timer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	adminID  = int64(1)
	userID   = int64(1001)
	chatID   = int64(5001)
	demoTest = "test_demo"
)

type sentMessage struct {
	ID     int
	ChatID int64
	Text   string
	KB     telegram.Keyboard
}

type fakeMessenger struct {
	mu      sync.Mutex
	seq     int
	sent    []sentMessage
	edits   []sentMessage
	deleted []int
}

func (m *fakeMessenger) Send(chatID int64, text string, kb telegram.Keyboard) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.sent = append(m.sent, sentMessage{ID: m.seq, ChatID: chatID, Text: text, KB: kb})
	return m.seq, nil
}

func (m *fakeMessenger) Edit(chatID int64, messageID int, text string, kb telegram.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edits = append(m.edits, sentMessage{ID: messageID, ChatID: chatID, Text: text, KB: kb})
	return nil
}

func (m *fakeMessenger) Delete(_ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) lastSent() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

func (m *fakeMessenger) lastEdit() sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edits[len(m.edits)-1]
}

// fakeScheduler запоминает задачи, тики вызываются тестом вручную
type fakeScheduler struct {
	mu       sync.Mutex
	jobs     map[string]timer.Job
	interval map[string]time.Duration
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[string]timer.Job{}, interval: map[string]time.Duration{}}
}

func (s *fakeScheduler) Every(key string, interval time.Duration, job timer.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[key] = job
	s.interval[key] = interval
}

func (s *fakeScheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	delete(s.jobs, key)
	return ok
}

func (s *fakeScheduler) active(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[key]
	return ok
}

// fire выполняет тик и снимает задачу, если она завершилась
func (s *fakeScheduler) fire(t *testing.T, key string) bool {
	t.Helper()
	s.mu.Lock()
	job, ok := s.jobs[key]
	s.mu.Unlock()
	require.True(t, ok, "no job for %s", key)

	done := job(context.Background())
	if done {
		s.Cancel(key)
	}
	return done
}

type staticTexts struct{}

func (staticTexts) Text(_ context.Context, key string) string { return "[" + key + "]" }

type runnerFixture struct {
	runner    *Runner
	svc       *attemptsService.AttemptService
	tests     *testsRepo.MemoryTestRepository
	attempts  *attemptsRepo.MemoryAttemptRepository
	users     *usersRepo.MemoryUserRepository
	store     *sessions.MemoryStore
	messenger *fakeMessenger
	scheduler *fakeScheduler

	mu  sync.Mutex
	now time.Time
}

func (f *runnerFixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *runnerFixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *runnerFixture) session(t *testing.T) *model.Session {
	t.Helper()
	s, err := f.store.Get(context.Background(), userID)
	require.NoError(t, err)
	return s
}

// newRunnerFixture: тест из трех вопросов (b, a, d), лимит 1 минута, льготное окно 3 секунды
func newRunnerFixture(t *testing.T) *runnerFixture {
	t.Helper()
	ctx := context.Background()

	f := &runnerFixture{
		tests:     testsRepo.NewMemoryTestRepository(),
		attempts:  attemptsRepo.NewMemoryAttemptRepository(),
		users:     usersRepo.NewMemoryUserRepository(),
		store:     sessions.NewMemoryStore(),
		messenger: &fakeMessenger{},
		scheduler: newFakeScheduler(),
		now:       time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC),
	}
	f.svc = attemptsService.NewAttemptService(f.attempts, f.tests, f.users, events.NewLogPublisher(zap.NewNop()),
		attemptsService.Settings{GracePeriod: 3 * time.Second, MaxScore: 100}, zap.NewNop())
	f.svc.SetClock(f.clock)

	def := model.TestDefinition{ID: demoTest, Name: "Demo", Level: "A2", QuestionCount: 3, TimeLimitMinutes: 1}
	require.NoError(t, f.tests.CreateDefinition(ctx, def))
	questions := sampleQuestions()
	questions[2].Correct = model.OptionD
	for _, q := range questions {
		q.TestID = demoTest
		require.NoError(t, f.tests.SaveQuestion(ctx, q))
	}
	require.NoError(t, f.tests.PublishActiveTest(ctx, model.NewActiveTest(def, f.clock())))

	require.NoError(t, f.users.UpsertUser(ctx, userID, "student"))

	f.runner = NewRunner(Deps{
		Attempts:  f.svc,
		Catalog:   f.tests,
		Users:     usersService.NewUserService(f.users),
		Texts:     staticTexts{},
		Sessions:  f.store,
		Scheduler: f.scheduler,
		Messenger: f.messenger,
		IsAdmin:   func(id int64) bool { return id == adminID },
		Tick:      15 * time.Second,
		Logger:    zap.NewNop(),
	})
	return f
}

func TestBegin_AsksForNameFirst(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)

	require.NoError(t, f.runner.Begin(ctx, userID, chatID))
	assert.Equal(t, "["+model.AskFullNameKey+"]", f.messenger.lastSent().Text)
	assert.Equal(t, model.ModeAwaitingName, f.session(t).Mode)

	handled, err := f.runner.CaptureName(ctx, userID, chatID, "Ян")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Contains(t, f.messenger.lastSent().Text, "от 3 до 64")
	assert.Equal(t, model.ModeAwaitingName, f.session(t).Mode)

	handled, err = f.runner.CaptureName(ctx, userID, chatID, "  Иван   Петров ")
	require.NoError(t, err)
	assert.True(t, handled)

	session := f.session(t)
	require.NotNil(t, session)
	assert.Equal(t, model.ModeInTest, session.Mode)
	assert.NotEmpty(t, session.Token)
	assert.True(t, f.scheduler.active(session.Token))
	assert.Equal(t, 15*time.Second, f.scheduler.interval[session.Token])

	question := f.messenger.lastSent()
	assert.Equal(t, session.QuestionMessageID, question.ID)
	assert.Contains(t, question.Text, "Вопрос 1/3")
	assert.NotZero(t, session.TimerMessageID)
}

func TestCaptureName_IgnoresTextOutsideNameStep(t *testing.T) {
	f := newRunnerFixture(t)

	handled, err := f.runner.CaptureName(context.Background(), userID, chatID, "hello")
	require.NoError(t, err)
	assert.False(t, handled)
}

func TestBegin_KnownNameStartsImmediately(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	require.NoError(t, f.users.SetFullName(ctx, userID, "Иван Петров"))

	require.NoError(t, f.runner.Begin(ctx, userID, chatID))
	session := f.session(t)
	require.NotNil(t, session)
	assert.Equal(t, model.ModeInTest, session.Mode)
}

func TestBegin_AdminAlwaysAskedForName(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	require.NoError(t, f.users.UpsertUser(ctx, adminID, "admin"))
	require.NoError(t, f.users.SetFullName(ctx, adminID, "Admin User"))

	require.NoError(t, f.runner.Begin(ctx, adminID, adminID))
	s, err := f.store.Get(ctx, adminID)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAwaitingName, s.Mode)
}

func startedFixture(t *testing.T) (*runnerFixture, *model.Session) {
	t.Helper()
	f := newRunnerFixture(t)
	require.NoError(t, f.users.SetFullName(context.Background(), userID, "Иван Петров"))
	require.NoError(t, f.runner.Begin(context.Background(), userID, chatID))
	return f, f.session(t)
}

func TestBegin_NoActiveTest(t *testing.T) {
	ctx := context.Background()
	f := newRunnerFixture(t)
	require.NoError(t, f.users.SetFullName(ctx, userID, "Иван Петров"))
	require.NoError(t, f.tests.UnpublishActiveTest(ctx, demoTest))

	require.NoError(t, f.runner.Begin(ctx, userID, chatID))
	assert.Equal(t, "["+model.NoActiveTestKey+"]", f.messenger.lastSent().Text)
	assert.Nil(t, f.session(t))
}

func TestBegin_AlreadyCompletedShowsToken(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.FinishAnyway(ctx, userID))

	require.NoError(t, f.runner.Begin(ctx, userID, chatID))
	text := f.messenger.lastSent().Text
	assert.Contains(t, text, "уже прошли")
	assert.Contains(t, text, session.Token)
	assert.Contains(t, text, "/result")
}

func TestAnswer_SavesAndAdvances(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)

	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))

	answers, err := f.svc.Answers(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, map[int]model.Option{1: model.OptionB}, answers)

	edit := f.messenger.lastEdit()
	assert.Equal(t, session.QuestionMessageID, edit.ID)
	assert.Contains(t, edit.Text, "Вопрос 2/3")
	assert.Equal(t, 1, f.session(t).Index)

	// повторный ответ заменяет прежний
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionC)))
	answers, err = f.svc.Answers(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, model.OptionC, answers[1])
}

func TestAnswer_InvalidData(t *testing.T) {
	ctx := context.Background()
	f, _ := startedFixture(t)

	assert.ErrorIs(t, f.runner.Answer(ctx, userID, "garbage"), ErrInvalidSelection)
	assert.ErrorIs(t, f.runner.Answer(ctx, userID, AnswerData(9, model.OptionA)), ErrInvalidSelection)
}

func TestAnswer_WithoutSession(t *testing.T) {
	f := newRunnerFixture(t)
	assert.ErrorIs(t, f.runner.Answer(context.Background(), userID, AnswerData(1, model.OptionA)), ErrNoSession)
}

func TestAnswer_AfterDeadlineFinishesAutomatically(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	f.advance(70 * time.Second)

	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.Zero(t, score.CorrectAnswers)
	assert.Nil(t, f.session(t))
	assert.False(t, f.scheduler.active(session.Token))
	assert.Contains(t, f.messenger.lastSent().Text, "["+model.TimeIsUpKey+"]")
}

func TestFinishAnyway_AfterDeadlineCountsAsTimeUp(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))
	f.advance(70 * time.Second)

	require.NoError(t, f.runner.FinishAnyway(ctx, userID))

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.Zero(t, score.TimeLeft)
	assert.Equal(t, 1, score.CorrectAnswers)
	assert.Nil(t, f.session(t))
	assert.Contains(t, f.messenger.lastSent().Text, "["+model.TimeIsUpKey+"]")
	assert.NotContains(t, f.messenger.lastSent().Text, "["+model.AttemptSubmittedKey+"]")
}

func TestNavigate_MarksSkippedAndClamps(t *testing.T) {
	ctx := context.Background()
	f, _ := startedFixture(t)

	require.NoError(t, f.runner.Navigate(ctx, userID, -1))
	assert.Equal(t, 0, f.session(t).Index)

	require.NoError(t, f.runner.Navigate(ctx, userID, 1))
	s := f.session(t)
	assert.Equal(t, 1, s.Index)
	assert.Equal(t, []int{1}, s.Skipped)
	assert.Contains(t, f.messenger.lastEdit().Text, "Пропущены вопросы: 1")

	require.NoError(t, f.runner.Navigate(ctx, userID, 1))
	require.NoError(t, f.runner.Navigate(ctx, userID, 1))
	assert.Equal(t, 2, f.session(t).Index)

	// ответ на пропущенный вопрос убирает его из списка
	require.NoError(t, f.runner.Navigate(ctx, userID, -2))
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionA)))
	assert.NotContains(t, f.session(t).Skipped, 1)
}

func TestRequestFinish_ConfirmsWhenUnanswered(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))

	require.NoError(t, f.runner.RequestFinish(ctx, userID))
	edit := f.messenger.lastEdit()
	assert.Contains(t, edit.Text, "2, 3")
	assert.Equal(t, model.FinishAnywayKey, edit.KB[0][0].Unique)

	require.NoError(t, f.runner.Continue(ctx, userID))
	assert.Contains(t, f.messenger.lastEdit().Text, "Вопрос 2/3")

	require.NoError(t, f.runner.FinishAnyway(ctx, userID))
	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 1, score.CorrectAnswers)
	assert.False(t, score.AutoFinished)
	assert.Nil(t, f.session(t))
	assert.False(t, f.scheduler.active(session.Token))
	assert.Contains(t, f.messenger.deleted, session.TimerMessageID)
	assert.Contains(t, f.messenger.deleted, session.QuestionMessageID)
	assert.Contains(t, f.messenger.lastSent().Text, session.Token)
}

func TestRequestFinish_AllAnsweredFinishesDirectly(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	for n, o := range map[int]model.Option{1: model.OptionB, 2: model.OptionA, 3: model.OptionD} {
		require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(n, o)))
	}

	require.NoError(t, f.runner.RequestFinish(ctx, userID))
	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.Equal(t, 100, score.Score)
	assert.Contains(t, f.messenger.lastSent().Text, "["+model.AttemptSubmittedKey+"]")
}

func TestTick_UpdatesCountdownThenFinishes(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)

	f.advance(15 * time.Second)
	assert.False(t, f.scheduler.fire(t, session.Token))
	edit := f.messenger.lastEdit()
	assert.Equal(t, session.TimerMessageID, edit.ID)
	assert.Contains(t, edit.Text, "00:48")

	f.advance(50 * time.Second)
	assert.True(t, f.scheduler.fire(t, session.Token))

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.Zero(t, score.TimeLeft)
	assert.Nil(t, f.session(t))
	assert.Contains(t, f.messenger.lastSent().Text, "["+model.TimeIsUpKey+"]")
}

func TestTick_StopsWhenAlreadyScored(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	job := f.scheduler.jobs[session.Token]
	require.NoError(t, f.runner.FinishAnyway(ctx, userID))
	sent := len(f.messenger.sent)

	assert.True(t, job(ctx))
	assert.Len(t, f.messenger.sent, sent)
}

func TestCancel_KeepsAnswersAndResumes(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))

	require.NoError(t, f.runner.Cancel(ctx, userID, chatID))
	assert.Nil(t, f.session(t))
	// время попытки идет, таймер остается
	assert.True(t, f.scheduler.active(session.Token))
	assert.Contains(t, f.messenger.lastSent().Text, "Ответы сохранены")

	f.advance(20 * time.Second)
	require.NoError(t, f.runner.Begin(ctx, userID, chatID))
	resumed := f.session(t)
	require.NotNil(t, resumed)
	assert.Equal(t, session.Token, resumed.Token)
	// первый неотвеченный вопрос
	assert.Equal(t, 1, resumed.Index)
	assert.True(t, f.scheduler.active(session.Token))
}

func TestCancel_TimerFinishesAbandonedAttempt(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))
	require.NoError(t, f.runner.Cancel(ctx, userID, chatID))
	edits := len(f.messenger.edits)
	sent := len(f.messenger.sent)

	// до дедлайна тик без сессии ничего не правит
	f.advance(30 * time.Second)
	assert.False(t, f.scheduler.fire(t, session.Token))
	assert.Len(t, f.messenger.edits, edits)
	assert.Len(t, f.messenger.sent, sent)

	f.advance(40 * time.Second)
	assert.True(t, f.scheduler.fire(t, session.Token))

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.Equal(t, 1, score.CorrectAnswers)
	assert.False(t, f.scheduler.active(session.Token))
	last := f.messenger.lastSent()
	assert.Equal(t, chatID, last.ChatID)
	assert.Contains(t, last.Text, "["+model.TimeIsUpKey+"]")
}

func TestCancel_NothingToCancel(t *testing.T) {
	f := newRunnerFixture(t)
	require.NoError(t, f.runner.Cancel(context.Background(), userID, chatID))
	assert.Contains(t, f.messenger.lastSent().Text, "нечего отменять")
}

func TestLock_ReleasesUserEntries(t *testing.T) {
	ctx := context.Background()
	f, _ := startedFixture(t)
	require.NoError(t, f.runner.Answer(ctx, userID, AnswerData(1, model.OptionB)))
	require.NoError(t, f.runner.Navigate(ctx, userID, 1))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			unlock := f.runner.lock(id)
			unlock()
		}(int64(2000 + i%5))
	}
	wg.Wait()

	f.runner.mu.Lock()
	defer f.runner.mu.Unlock()
	assert.Empty(t, f.runner.locks)
}

func TestResumeAfterDeadlineFinishes(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	require.NoError(t, f.runner.Cancel(ctx, userID, chatID))

	f.advance(2 * time.Minute)
	require.NoError(t, f.runner.Begin(ctx, userID, chatID))

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.Nil(t, f.session(t))
	assert.False(t, f.scheduler.active(session.Token))
}

func TestAbandon_DropsSessionAndNotifies(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)

	attempt, err := f.svc.Reopen(ctx, session.Token)
	require.NoError(t, err)
	f.runner.Abandon(ctx, *attempt)

	assert.Nil(t, f.session(t))
	assert.False(t, f.scheduler.active(session.Token))
	assert.Contains(t, f.messenger.lastSent().Text, "открыл вам тест заново")
}

func TestRecover_ReschedulesOpenAttempts(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)

	// перезапуск: таймеров и сессий нет
	f.scheduler = newFakeScheduler()
	f.runner.scheduler = f.scheduler
	require.NoError(t, f.store.Delete(ctx, userID))
	f.advance(10 * time.Second)

	n, err := f.runner.Recover(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, f.scheduler.active(session.Token))

	restored := f.session(t)
	require.NotNil(t, restored)
	assert.Equal(t, session.Token, restored.Token)
	assert.NotZero(t, restored.QuestionMessageID)
	assert.Contains(t, f.messenger.lastSent().Text, "Вопрос 1/3")
}

func TestRecover_FinishesOverdueAttempts(t *testing.T) {
	ctx := context.Background()
	f, session := startedFixture(t)
	f.scheduler = newFakeScheduler()
	f.runner.scheduler = f.scheduler
	f.advance(5 * time.Minute)

	_, err := f.runner.Recover(ctx)
	require.NoError(t, err)

	_, score, err := f.svc.GetAttempt(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, score)
	assert.True(t, score.AutoFinished)
	assert.False(t, f.scheduler.active(session.Token))
}

func TestRecover_NoActiveTest(t *testing.T) {
	f := newRunnerFixture(t)
	require.NoError(t, f.tests.UnpublishActiveTest(context.Background(), demoTest))

	n, err := f.runner.Recover(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
