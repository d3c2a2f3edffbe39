package testflow

import (
	"context"
	"errors"
	"fmt"
	"html"
	"sync"
	"time"

	attemptsService "github.com/IT-Nick/testbot/internal/domain/attempts/service"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"github.com/IT-Nick/testbot/internal/domain/sessions"
	usersService "github.com/IT-Nick/testbot/internal/domain/users/service"
	"github.com/IT-Nick/testbot/internal/infra/telegram"
	"github.com/IT-Nick/testbot/internal/infra/timer"
	"go.uber.org/zap"
)

var (
	ErrInvalidSelection = errors.New("invalid selection")
	ErrNoSession        = errors.New("no test in progress")
)

// Attempts операции над попытками
type Attempts interface {
	Start(ctx context.Context, userID, chatID int64, retake bool) (*attemptsService.StartResult, error)
	GetAttempt(ctx context.Context, token string) (*model.Attempt, *model.Score, error)
	Answers(ctx context.Context, token string) (map[int]model.Option, error)
	SubmitAnswer(ctx context.Context, token string, number int, option model.Option) error
	Finish(ctx context.Context, token string, auto bool) (*model.Score, bool, error)
	OpenAttempts(ctx context.Context) (*model.ActiveTest, []model.Attempt, error)
	Allotted(test model.ActiveTest) time.Duration
	Now() time.Time
}

// Catalog тесты и вопросы
type Catalog interface {
	GetActiveTest(ctx context.Context) (*model.ActiveTest, error)
	GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error)
	GetQuestions(ctx context.Context, testID string) ([]model.Question, error)
}

// Users имена участников
type Users interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	SetFullName(ctx context.Context, telegramID int64, fullName string) (string, error)
}

// Texts редактируемые тексты бота
type Texts interface {
	Text(ctx context.Context, key string) string
}

// Messenger исходящие сообщения
type Messenger interface {
	Send(chatID int64, text string, kb telegram.Keyboard) (int, error)
	Edit(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	Delete(chatID int64, messageID int) error
}

// Scheduler периодические задачи по ключу
type Scheduler interface {
	Every(key string, interval time.Duration, job timer.Job)
	Cancel(key string) bool
}

// Runner ведет пользователя через прохождение теста: сессия, таймер, сообщения
type Runner struct {
	attempts  Attempts
	catalog   Catalog
	users     Users
	texts     Texts
	sessions  sessions.Store
	scheduler Scheduler
	messenger Messenger
	isAdmin   func(int64) bool
	interval  time.Duration
	logger    *zap.Logger

	mu    sync.Mutex
	locks map[int64]*userLock
}

// Deps зависимости Runner
type Deps struct {
	Attempts  Attempts
	Catalog   Catalog
	Users     Users
	Texts     Texts
	Sessions  sessions.Store
	Scheduler Scheduler
	Messenger Messenger
	IsAdmin   func(int64) bool
	Tick      time.Duration
	Logger    *zap.Logger
}

func NewRunner(d Deps) *Runner {
	return &Runner{
		attempts:  d.Attempts,
		catalog:   d.Catalog,
		users:     d.Users,
		texts:     d.Texts,
		sessions:  d.Sessions,
		scheduler: d.Scheduler,
		messenger: d.Messenger,
		isAdmin:   d.IsAdmin,
		interval:  d.Tick,
		logger:    d.Logger,
		locks:     make(map[int64]*userLock),
	}
}

type userLock struct {
	sync.Mutex
	refs int
}

// lock сериализует действия одного пользователя; запись удаляется, когда ее никто не держит
func (r *Runner) lock(userID int64) func() {
	r.mu.Lock()
	l, ok := r.locks[userID]
	if !ok {
		l = &userLock{}
		r.locks[userID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, userID)
		}
		r.mu.Unlock()
	}
}

func (r *Runner) send(chatID int64, text string) {
	if _, err := r.messenger.Send(chatID, text, nil); err != nil {
		r.logger.Warn("failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Runner) remove(chatID int64, messageID int) {
	if messageID == 0 {
		return
	}
	if err := r.messenger.Delete(chatID, messageID); err != nil {
		r.logger.Debug("failed to delete message", zap.Int64("chat_id", chatID), zap.Int("message_id", messageID), zap.Error(err))
	}
}

// ActiveTestCard карточка активного теста или model.ErrNoActiveTest
func (r *Runner) ActiveTestCard(ctx context.Context) (string, telegram.Keyboard, error) {
	active, err := r.catalog.GetActiveTest(ctx)
	if err != nil {
		return "", nil, err
	}
	if active == nil {
		return "", nil, model.ErrNoActiveTest
	}
	text, kb := ActiveTestCard(*active)
	return text, kb, nil
}

// Begin нажатие «Начать»: запрос имени или сразу старт попытки
func (r *Runner) Begin(ctx context.Context, userID, chatID int64) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if session != nil && session.Mode == model.ModeInTest {
		return r.start(ctx, userID, chatID, session)
	}

	needName := r.isAdmin(userID)
	if !needName {
		user, err := r.users.GetUserByTelegramID(ctx, userID)
		if err != nil {
			return err
		}
		needName = user == nil || user.FullName == ""
	}
	if needName {
		if err := r.sessions.Set(ctx, model.Session{UserID: userID, ChatID: chatID, Mode: model.ModeAwaitingName}); err != nil {
			return err
		}
		r.send(chatID, r.texts.Text(ctx, model.AskFullNameKey))
		return nil
	}
	return r.start(ctx, userID, chatID, session)
}

// CaptureName принимает имя, если бот его ждет. handled=false значит текст не для этого шага
func (r *Runner) CaptureName(ctx context.Context, userID, chatID int64, text string) (bool, error) {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if session == nil || session.Mode != model.ModeAwaitingName {
		return false, nil
	}

	name, err := r.users.SetFullName(ctx, userID, text)
	if errors.Is(err, usersService.ErrInvalidFullName) {
		r.send(chatID, "❗ Имя должно быть от 3 до 64 символов.\n\n"+r.texts.Text(ctx, model.AskFullNameKey))
		return true, nil
	}
	if err != nil {
		return true, err
	}

	r.send(chatID, fmt.Sprintf("✅ Спасибо, <b>%s</b>. Начинаем тест...", html.EscapeString(name)))
	return true, r.start(ctx, userID, chatID, nil)
}

// start начинает или продолжает попытку; prev прежняя сессия, ее сообщения удаляются
func (r *Runner) start(ctx context.Context, userID, chatID int64, prev *model.Session) error {
	res, err := r.attempts.Start(ctx, userID, chatID, r.isAdmin(userID))
	if err != nil {
		return r.startFailed(ctx, userID, chatID, err)
	}

	if prev != nil {
		r.remove(prev.ChatID, prev.TimerMessageID)
		r.remove(prev.ChatID, prev.QuestionMessageID)
	}

	token := res.Attempt.Token
	left := res.Remaining(r.attempts.Now())
	if left <= 0 {
		// попытка просрочена, пока пользователь отсутствовал
		_ = r.sessions.Delete(ctx, userID)
		r.scheduler.Cancel(token)
		return r.finishExpired(ctx, res.Attempt)
	}

	session := model.Session{
		UserID: userID,
		ChatID: chatID,
		Mode:   model.ModeInTest,
		Token:  token,
		TestID: res.Attempt.TestID,
		Index:  firstUnanswered(res.Questions, res.Answers),
	}
	if res.Resumed {
		r.send(chatID, "▶️ Продолжаем вашу попытку. Время идет с момента первого старта.")
	}

	session.TimerMessageID, err = r.messenger.Send(chatID, CountdownText(left, res.Allotted), nil)
	if err != nil {
		return err
	}
	text, kb := QuestionView(res.Questions, session.Index, res.Answers, nil)
	session.QuestionMessageID, err = r.messenger.Send(chatID, text, kb)
	if err != nil {
		return err
	}
	if err := r.sessions.Set(ctx, session); err != nil {
		return err
	}

	r.scheduler.Every(token, r.interval, r.tickJob(userID, token))
	r.logger.Info("attempt started",
		zap.Int64("user_id", userID),
		zap.String("token", token),
		zap.String("test_id", res.Attempt.TestID),
		zap.Bool("resumed", res.Resumed),
		zap.Duration("left", left),
	)
	return nil
}

func (r *Runner) startFailed(ctx context.Context, userID, chatID int64, err error) error {
	_ = r.sessions.Delete(ctx, userID)

	var completed *model.AlreadyCompletedError
	switch {
	case errors.As(err, &completed):
		r.send(chatID, fmt.Sprintf("❌ Вы уже прошли этот тест.\n\n🔑 Ваш токен: <code>%s</code>\n📊 Чтобы узнать результат, отправьте /result", completed.Token))
	case errors.Is(err, model.ErrNoActiveTest):
		r.send(chatID, r.texts.Text(ctx, model.NoActiveTestKey))
	case errors.Is(err, model.ErrNoQuestions):
		r.send(chatID, "❌ В тесте пока нет вопросов.")
	default:
		return err
	}
	return nil
}

// current сессия в режиме теста или ErrNoSession
func (r *Runner) current(ctx context.Context, userID int64) (*model.Session, error) {
	session, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.Mode != model.ModeInTest || session.Token == "" {
		return nil, ErrNoSession
	}
	return session, nil
}

// view состояние попытки для отрисовки
type view struct {
	questions []model.Question
	answers   map[int]model.Option
}

func (r *Runner) load(ctx context.Context, session *model.Session) (*view, error) {
	questions, err := r.catalog.GetQuestions(ctx, session.TestID)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, model.ErrNoQuestions
	}
	answers, err := r.attempts.Answers(ctx, session.Token)
	if err != nil {
		return nil, err
	}
	session.Index = min(max(session.Index, 0), len(questions)-1)
	return &view{questions: questions, answers: answers}, nil
}

func (r *Runner) renderQuestion(ctx context.Context, session *model.Session, v *view) error {
	text, kb := QuestionView(v.questions, session.Index, v.answers, session.Skipped)
	if session.QuestionMessageID == 0 {
		id, err := r.messenger.Send(session.ChatID, text, kb)
		if err != nil {
			return err
		}
		session.QuestionMessageID = id
		return r.sessions.Set(ctx, *session)
	}
	if err := r.messenger.Edit(session.ChatID, session.QuestionMessageID, text, kb); err != nil {
		return err
	}
	return r.sessions.Set(ctx, *session)
}

// Answer сохраняет выбранный вариант и переходит к следующему вопросу
func (r *Runner) Answer(ctx context.Context, userID int64, data string) error {
	number, option, ok := ParseAnswerData(data)
	if !ok {
		return ErrInvalidSelection
	}

	unlock := r.lock(userID)
	defer unlock()

	session, err := r.current(ctx, userID)
	if err != nil {
		return err
	}

	err = r.attempts.SubmitAnswer(ctx, session.Token, number, option)
	switch {
	case errors.Is(err, model.ErrInvalidAnswer):
		return ErrInvalidSelection
	case errors.Is(err, model.ErrAttemptFinished):
		// время вышло раньше очередного тика
		return r.expire(ctx, session)
	case errors.Is(err, model.ErrAttemptNotFound):
		r.drop(ctx, session)
		return ErrNoSession
	case err != nil:
		return err
	}

	v, err := r.load(ctx, session)
	if err != nil {
		return err
	}
	session.ClearSkipped(number)
	for i, q := range v.questions {
		if q.Number == number && i+1 < len(v.questions) {
			session.Index = i + 1
		}
	}
	return r.renderQuestion(ctx, session, v)
}

// Navigate перемещение на delta вопросов; уход вперед с неотвеченного отмечает его пропущенным
func (r *Runner) Navigate(ctx context.Context, userID int64, delta int) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.current(ctx, userID)
	if err != nil {
		return err
	}
	v, err := r.load(ctx, session)
	if err != nil {
		return err
	}

	next := min(max(session.Index+delta, 0), len(v.questions)-1)
	if next == session.Index {
		return nil
	}
	if delta > 0 {
		q := v.questions[session.Index]
		if _, answered := v.answers[q.Number]; !answered {
			session.MarkSkipped(q.Number)
		}
	}
	session.Index = next
	return r.renderQuestion(ctx, session, v)
}

// RequestFinish завершает попытку или просит подтверждения, если есть вопросы без ответа
func (r *Runner) RequestFinish(ctx context.Context, userID int64) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.current(ctx, userID)
	if err != nil {
		return err
	}
	v, err := r.load(ctx, session)
	if err != nil {
		return err
	}

	unanswered := attemptsService.Unanswered(v.questions, v.answers)
	if len(unanswered) == 0 {
		return r.finish(ctx, session)
	}
	text, kb := ConfirmFinishView(unanswered)
	return r.messenger.Edit(session.ChatID, session.QuestionMessageID, text, kb)
}

// FinishAnyway завершение после подтверждения
func (r *Runner) FinishAnyway(ctx context.Context, userID int64) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.current(ctx, userID)
	if err != nil {
		return err
	}
	return r.finish(ctx, session)
}

// Continue возврат к вопросу из подтверждения
func (r *Runner) Continue(ctx context.Context, userID int64) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.current(ctx, userID)
	if err != nil {
		return err
	}
	v, err := r.load(ctx, session)
	if err != nil {
		return err
	}
	return r.renderQuestion(ctx, session, v)
}

// finish ручное завершение
func (r *Runner) finish(ctx context.Context, session *model.Session) error {
	score, created, err := r.attempts.Finish(ctx, session.Token, false)
	if errors.Is(err, model.ErrAttemptNotFound) {
		r.drop(ctx, session)
		return ErrNoSession
	}
	if err != nil {
		return err
	}
	r.drop(ctx, session)
	if created {
		key := model.AttemptSubmittedKey
		if score.AutoFinished {
			key = model.TimeIsUpKey
		}
		r.send(session.ChatID, SubmittedText(r.texts.Text(ctx, key), score.Token))
	}
	return nil
}

// expire автоматическое завершение из обработчика пользователя
func (r *Runner) expire(ctx context.Context, session *model.Session) error {
	r.drop(ctx, session)
	attempt, _, err := r.attempts.GetAttempt(ctx, session.Token)
	if err != nil {
		return err
	}
	return r.finishExpired(ctx, *attempt)
}

func (r *Runner) finishExpired(ctx context.Context, attempt model.Attempt) error {
	score, created, err := r.attempts.Finish(ctx, attempt.Token, true)
	if err != nil {
		return err
	}
	if created {
		r.send(attempt.ChatID, SubmittedText(r.texts.Text(ctx, model.TimeIsUpKey), score.Token))
	}
	return nil
}

// drop останавливает таймер, удаляет сообщения попытки и сессию
func (r *Runner) drop(ctx context.Context, session *model.Session) {
	r.scheduler.Cancel(session.Token)
	r.clear(ctx, session)
}

// clear убирает сообщения теста и сессию, таймер попытки не трогает
func (r *Runner) clear(ctx context.Context, session *model.Session) {
	r.remove(session.ChatID, session.TimerMessageID)
	r.remove(session.ChatID, session.QuestionMessageID)
	if err := r.sessions.Delete(ctx, session.UserID); err != nil {
		r.logger.Warn("failed to delete session", zap.Int64("user_id", session.UserID), zap.Error(err))
	}
}

// Cancel прерывает прохождение: ответы сохраняются, попытку можно продолжить
func (r *Runner) Cancel(ctx context.Context, userID, chatID int64) error {
	unlock := r.lock(userID)
	defer unlock()

	session, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return err
	}
	if session == nil {
		r.send(chatID, "ℹ️ Сейчас нечего отменять.")
		return nil
	}
	if session.Mode == model.ModeAwaitingName {
		if err := r.sessions.Delete(ctx, userID); err != nil {
			return err
		}
		r.send(chatID, "❌ Запуск теста отменен.")
		return nil
	}

	// тик остается: без сессии он не правит отсчет, но завершит попытку по истечении времени
	r.clear(ctx, session)
	r.send(chatID, "⏸ Тест прерван. Ответы сохранены, продолжить можно через /get_test.\nВремя попытки продолжает идти.")
	return nil
}

// Abandon снимает таймер и сессию попытки, переоткрытой администратором
func (r *Runner) Abandon(ctx context.Context, attempt model.Attempt) {
	unlock := r.lock(attempt.UserID)
	defer unlock()

	r.scheduler.Cancel(attempt.Token)
	session, err := r.sessions.Get(ctx, attempt.UserID)
	if err != nil {
		r.logger.Warn("failed to load session", zap.Int64("user_id", attempt.UserID), zap.Error(err))
	}
	if session != nil && session.Token == attempt.Token {
		r.drop(ctx, session)
	}
	r.send(attempt.ChatID, "🔄 Администратор открыл вам тест заново. Начать: /get_test")
}

// allotted выделенное время попытки по описанию теста
func (r *Runner) allotted(ctx context.Context, testID string) (time.Duration, error) {
	def, err := r.catalog.GetDefinition(ctx, testID)
	if err != nil {
		return 0, err
	}
	if def == nil {
		return 0, model.ErrTestNotFound
	}
	return r.attempts.Allotted(model.NewActiveTest(*def, time.Time{})), nil
}

// tickJob обновляет обратный отсчет и завершает попытку по истечении времени
func (r *Runner) tickJob(userID int64, token string) timer.Job {
	return func(ctx context.Context) bool {
		unlock := r.lock(userID)
		defer unlock()

		done, err := r.tick(ctx, userID, token)
		if err != nil {
			r.logger.Error("timer tick failed", zap.String("token", token), zap.Error(err))
		}
		return done
	}
}

func (r *Runner) tick(ctx context.Context, userID int64, token string) (bool, error) {
	attempt, score, err := r.attempts.GetAttempt(ctx, token)
	if errors.Is(err, model.ErrAttemptNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	if score != nil {
		return true, nil
	}

	allotted, err := r.allotted(ctx, attempt.TestID)
	if err != nil {
		return false, err
	}

	session, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	if session != nil && session.Token != token {
		session = nil
	}

	left := attempt.Remaining(r.attempts.Now(), allotted)
	if left > 0 {
		if session != nil && session.TimerMessageID != 0 {
			if err := r.messenger.Edit(session.ChatID, session.TimerMessageID, CountdownText(left, allotted), nil); err != nil {
				r.logger.Warn("failed to update countdown", zap.String("token", token), zap.Error(err))
			}
		}
		return false, nil
	}

	if err := r.finishExpired(ctx, *attempt); err != nil {
		// повторим на следующем тике
		return false, err
	}
	if session != nil {
		r.remove(session.ChatID, session.TimerMessageID)
		r.remove(session.ChatID, session.QuestionMessageID)
		if err := r.sessions.Delete(ctx, userID); err != nil {
			r.logger.Warn("failed to delete session", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return true, nil
}

// Recover после перезапуска возобновляет таймеры незавершенных попыток активного теста
func (r *Runner) Recover(ctx context.Context) (int, error) {
	_, attempts, err := r.attempts.OpenAttempts(ctx)
	if errors.Is(err, model.ErrNoActiveTest) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, attempt := range attempts {
		if err := r.recoverAttempt(ctx, attempt); err != nil {
			r.logger.Error("failed to recover attempt", zap.String("token", attempt.Token), zap.Error(err))
			continue
		}
		recovered++
	}
	return recovered, nil
}

func (r *Runner) recoverAttempt(ctx context.Context, attempt model.Attempt) error {
	unlock := r.lock(attempt.UserID)
	defer unlock()

	allotted, err := r.allotted(ctx, attempt.TestID)
	if err != nil {
		return err
	}
	left := attempt.Remaining(r.attempts.Now(), allotted)
	if left <= 0 {
		done, err := r.tick(ctx, attempt.UserID, attempt.Token)
		if err != nil || !done {
			r.scheduler.Every(attempt.Token, r.interval, r.tickJob(attempt.UserID, attempt.Token))
		}
		return err
	}

	session, err := r.sessions.Get(ctx, attempt.UserID)
	if err != nil {
		return err
	}
	if session == nil || session.Token != attempt.Token {
		session = &model.Session{
			UserID: attempt.UserID,
			ChatID: attempt.ChatID,
			Mode:   model.ModeInTest,
			Token:  attempt.Token,
			TestID: attempt.TestID,
		}
	}

	// старые сообщения могли пропасть, отправляем новые
	r.remove(session.ChatID, session.TimerMessageID)
	r.remove(session.ChatID, session.QuestionMessageID)
	session.TimerMessageID, err = r.messenger.Send(session.ChatID,
		"🔁 Бот был перезапущен, тест продолжается.\n\n"+CountdownText(left, allotted), nil)
	if err != nil {
		return err
	}
	session.QuestionMessageID = 0

	v, err := r.load(ctx, session)
	if err != nil {
		return err
	}
	if err := r.renderQuestion(ctx, session, v); err != nil {
		return err
	}

	r.scheduler.Every(attempt.Token, r.interval, r.tickJob(attempt.UserID, attempt.Token))
	return nil
}

func firstUnanswered(questions []model.Question, answers map[int]model.Option) int {
	for i, q := range questions {
		if _, ok := answers[q.Number]; !ok {
			return i
		}
	}
	return 0
}
