package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/IT-Nick/testbot/internal/domain/events"
	"github.com/IT-Nick/testbot/internal/domain/model"
	"go.uber.org/zap"
)

const maxTokenAttempts = 5

// Repository хранилище попыток, ответов и итогов
type Repository interface {
	CreateAttempt(ctx context.Context, a model.Attempt) (bool, error)
	GetAttemptByToken(ctx context.Context, token string) (*model.Attempt, error)
	GetAttemptByUser(ctx context.Context, userID int64, testID string) (*model.Attempt, error)
	ListOpenAttempts(ctx context.Context, testID string) ([]model.Attempt, error)
	UpsertAnswer(ctx context.Context, a model.Answer) error
	GetAnswers(ctx context.Context, token string) ([]model.Answer, error)
	InsertScore(ctx context.Context, s model.Score) (bool, error)
	GetScoreByToken(ctx context.Context, token string) (*model.Score, error)
	GetLatestScore(ctx context.Context, userID int64, testID string) (*model.Score, error)
	ListScores(ctx context.Context, testID string) ([]model.Score, error)
	DeleteAttempt(ctx context.Context, token string) error
}

// TestCatalog доступ к тестам только на чтение
type TestCatalog interface {
	GetActiveTest(ctx context.Context) (*model.ActiveTest, error)
	GetDefinition(ctx context.Context, testID string) (*model.TestDefinition, error)
	GetQuestions(ctx context.Context, testID string) ([]model.Question, error)
	GetProgramState(ctx context.Context) (*model.ProgramState, error)
}

// UserDirectory имена участников для рейтинга
type UserDirectory interface {
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
}

// Settings параметры подсчета и времени
type Settings struct {
	GracePeriod time.Duration
	MaxScore    int
}

// StartResult начатая или продолженная попытка
type StartResult struct {
	Attempt   model.Attempt
	Test      model.ActiveTest
	Questions []model.Question
	Answers   map[int]model.Option
	Resumed   bool
	Allotted  time.Duration
}

// Remaining оставшееся время попытки
func (r *StartResult) Remaining(now time.Time) time.Duration {
	return r.Attempt.Remaining(now, r.Allotted)
}

// AttemptService логика прохождения теста
type AttemptService struct {
	attemptRepo Repository
	catalog     TestCatalog
	users       UserDirectory
	publisher   events.Publisher
	settings    Settings
	logger      *zap.Logger

	now      func() time.Time
	newToken func() (string, error)
	locks    *keyedMutex
}

// NewAttemptService создает новый экземпляр AttemptService
func NewAttemptService(
	attemptRepo Repository,
	catalog TestCatalog,
	users UserDirectory,
	publisher events.Publisher,
	settings Settings,
	logger *zap.Logger,
) *AttemptService {
	return &AttemptService{
		attemptRepo: attemptRepo,
		catalog:     catalog,
		users:       users,
		publisher:   publisher,
		settings:    settings,
		logger:      logger,
		now:         time.Now,
		newToken:    NewToken,
		locks:       newKeyedMutex(),
	}
}

// SetClock подменяет источник времени
func (s *AttemptService) SetClock(now func() time.Time) {
	s.now = now
}

// Now текущее время сервиса
func (s *AttemptService) Now() time.Time {
	return s.now()
}

// Allotted выделенное время: лимит теста плюс льготное окно
func (s *AttemptService) Allotted(test model.ActiveTest) time.Duration {
	return test.TimeLimit() + s.settings.GracePeriod
}

func (s *AttemptService) activeTest(ctx context.Context) (*model.ActiveTest, error) {
	active, err := s.catalog.GetActiveTest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get active test: %w", err)
	}
	if active == nil {
		return nil, model.ErrNoActiveTest
	}
	return active, nil
}

// Start начинает попытку активного теста или продолжает незавершенную.
// retake разрешает повторное прохождение: прежняя попытка пользователя удаляется
func (s *AttemptService) Start(ctx context.Context, userID, chatID int64, retake bool) (*StartResult, error) {
	active, err := s.activeTest(ctx)
	if err != nil {
		return nil, err
	}

	questions, err := s.catalog.GetQuestions(ctx, active.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, model.ErrNoQuestions
	}

	if retake {
		prev, err := s.attemptRepo.GetAttemptByUser(ctx, userID, active.TestID)
		if err != nil {
			return nil, fmt.Errorf("failed to get previous attempt: %w", err)
		}
		if prev != nil {
			if err := s.deleteAttempt(ctx, prev.Token); err != nil {
				return nil, err
			}
		}
	} else {
		score, err := s.attemptRepo.GetLatestScore(ctx, userID, active.TestID)
		if err != nil {
			return nil, fmt.Errorf("failed to get latest score: %w", err)
		}
		if score != nil {
			return nil, &model.AlreadyCompletedError{Token: score.Token}
		}
	}

	attempt, resumed, err := s.obtainAttempt(ctx, userID, chatID, active.TestID)
	if err != nil {
		return nil, err
	}

	answers, err := s.attemptRepo.GetAnswers(ctx, attempt.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}

	return &StartResult{
		Attempt:   *attempt,
		Test:      *active,
		Questions: questions,
		Answers:   model.AnswerMap(answers),
		Resumed:   resumed,
		Allotted:  s.Allotted(*active),
	}, nil
}

// obtainAttempt возвращает существующую попытку или создает новую с уникальным токеном
func (s *AttemptService) obtainAttempt(ctx context.Context, userID, chatID int64, testID string) (*model.Attempt, bool, error) {
	existing, err := s.attemptRepo.GetAttemptByUser(ctx, userID, testID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get attempt: %w", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	for i := 0; i < maxTokenAttempts; i++ {
		token, err := s.newToken()
		if err != nil {
			return nil, false, fmt.Errorf("failed to generate token: %w", err)
		}
		attempt := model.Attempt{
			Token:     token,
			TestID:    testID,
			UserID:    userID,
			ChatID:    chatID,
			StartedAt: s.now(),
		}
		created, err := s.attemptRepo.CreateAttempt(ctx, attempt)
		if errors.Is(err, model.ErrDuplicateToken) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to create attempt: %w", err)
		}
		if created {
			return &attempt, false, nil
		}
		// параллельный старт того же пользователя успел раньше
		existing, err := s.attemptRepo.GetAttemptByUser(ctx, userID, testID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get attempt: %w", err)
		}
		if existing != nil {
			return existing, true, nil
		}
	}
	return nil, false, fmt.Errorf("failed to mint a unique token: %w", model.ErrDuplicateToken)
}

// GetAttempt возвращает попытку и ее итог, если он есть
func (s *AttemptService) GetAttempt(ctx context.Context, token string) (*model.Attempt, *model.Score, error) {
	attempt, err := s.attemptRepo.GetAttemptByToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt == nil {
		return nil, nil, model.ErrAttemptNotFound
	}
	score, err := s.attemptRepo.GetScoreByToken(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get score: %w", err)
	}
	return attempt, score, nil
}

// Answers ответы попытки по номеру вопроса
func (s *AttemptService) Answers(ctx context.Context, token string) (map[int]model.Option, error) {
	answers, err := s.attemptRepo.GetAnswers(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get answers: %w", err)
	}
	return model.AnswerMap(answers), nil
}

// SubmitAnswer сохраняет или заменяет ответ на вопрос
func (s *AttemptService) SubmitAnswer(ctx context.Context, token string, number int, option model.Option) error {
	if _, ok := model.ParseOption(string(option)); !ok {
		return fmt.Errorf("%w: option %q", model.ErrInvalidAnswer, option)
	}

	unlock := s.locks.Lock(token)
	defer unlock()

	attempt, score, err := s.GetAttempt(ctx, token)
	if err != nil {
		return err
	}
	if score != nil {
		return model.ErrAttemptFinished
	}

	questions, err := s.catalog.GetQuestions(ctx, attempt.TestID)
	if err != nil {
		return fmt.Errorf("failed to get questions: %w", err)
	}
	if !hasQuestion(questions, number) {
		return fmt.Errorf("%w: question %d", model.ErrInvalidAnswer, number)
	}

	limit, err := s.timeLimit(ctx, attempt.TestID)
	if err != nil {
		return err
	}
	if limit > 0 && attempt.Remaining(s.now(), limit+s.settings.GracePeriod) <= 0 {
		return model.ErrAttemptFinished
	}

	err = s.attemptRepo.UpsertAnswer(ctx, model.Answer{
		Token:          token,
		TestID:         attempt.TestID,
		QuestionNumber: number,
		Selected:       option,
		UpdatedAt:      s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to save answer: %w", err)
	}
	return nil
}

func hasQuestion(questions []model.Question, number int) bool {
	for _, q := range questions {
		if q.Number == number {
			return true
		}
	}
	return false
}

func (s *AttemptService) timeLimit(ctx context.Context, testID string) (time.Duration, error) {
	def, err := s.catalog.GetDefinition(ctx, testID)
	if err != nil {
		return 0, fmt.Errorf("failed to get definition: %w", err)
	}
	if def == nil {
		return 0, nil
	}
	return time.Duration(def.TimeLimitMinutes) * time.Minute, nil
}

// Finish подсчитывает и сохраняет итог ровно один раз на токен.
// created=false значит итог уже был сохранен другим вызовом и возвращается он
func (s *AttemptService) Finish(ctx context.Context, token string, auto bool) (*model.Score, bool, error) {
	unlock := s.locks.Lock(token)
	defer unlock()

	attempt, existing, err := s.GetAttempt(ctx, token)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	questions, err := s.catalog.GetQuestions(ctx, attempt.TestID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get questions: %w", err)
	}
	answers, err := s.Answers(ctx, token)
	if err != nil {
		return nil, false, err
	}
	limit, err := s.timeLimit(ctx, attempt.TestID)
	if err != nil {
		return nil, false, err
	}

	now := s.now()
	// после дедлайна ручное завершение считается истечением времени
	if !auto && limit > 0 && attempt.Remaining(now, limit+s.settings.GracePeriod) <= 0 {
		auto = true
	}
	timeLeft := 0
	if !auto {
		left := limit - now.Sub(attempt.StartedAt)
		if left > 0 {
			// льготное окно в оставшееся время не входит
			timeLeft = min(int(left.Seconds()), int(limit.Seconds()))
		}
	}

	correct := CountCorrect(questions, answers)
	score := model.Score{
		Token:          token,
		TestID:         attempt.TestID,
		UserID:         attempt.UserID,
		TotalQuestions: len(questions),
		CorrectAnswers: correct,
		Score:          ComputeScore(correct, len(questions), s.settings.MaxScore),
		MaxScore:       s.settings.MaxScore,
		FinishedAt:     now,
		TimeLeft:       timeLeft,
		AutoFinished:   auto,
	}

	created, err := s.attemptRepo.InsertScore(ctx, score)
	if err != nil {
		return nil, false, fmt.Errorf("failed to save score: %w", err)
	}
	if !created {
		stored, err := s.attemptRepo.GetScoreByToken(ctx, token)
		if err != nil {
			return nil, false, fmt.Errorf("failed to get score: %w", err)
		}
		return stored, false, nil
	}

	if err := s.publisher.PublishAttemptFinished(ctx, events.NewAttemptFinished(score)); err != nil {
		s.logger.Warn("failed to publish attempt finished", zap.String("token", token), zap.Error(err))
	}
	return &score, true, nil
}

// GetResult итог по активному тесту. Пустой identifier означает самого запрашивающего,
// цифры трактуются как user_id, иначе как токен. Чужие итоги доступны только администратору
func (s *AttemptService) GetResult(ctx context.Context, identifier string, requesterID int64, isAdmin bool) (*model.Result, error) {
	active, err := s.activeTest(ctx)
	if err != nil {
		return nil, err
	}

	var score *model.Score
	id := strings.TrimSpace(identifier)
	switch {
	case id == "":
		score, err = s.attemptRepo.GetLatestScore(ctx, requesterID, active.TestID)
	case isDigits(id):
		userID, perr := strconv.ParseInt(id, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("%w: %s", model.ErrNoResult, id)
		}
		if !isAdmin && userID != requesterID {
			return nil, model.ErrForbidden
		}
		score, err = s.attemptRepo.GetLatestScore(ctx, userID, active.TestID)
	default:
		score, err = s.attemptRepo.GetScoreByToken(ctx, strings.ToUpper(id))
		if err == nil && score != nil {
			if score.TestID != active.TestID {
				score = nil
			} else if !isAdmin && score.UserID != requesterID {
				return nil, model.ErrForbidden
			}
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	if score == nil {
		return nil, model.ErrNoResult
	}

	state, err := s.catalog.GetProgramState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get program state: %w", err)
	}

	result := &model.Result{Score: *score, ResultsOpen: state.ResultsOpen}
	if !state.ResultsOpen {
		return result, nil
	}

	questions, err := s.catalog.GetQuestions(ctx, score.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	answers, err := s.Answers(ctx, score.Token)
	if err != nil {
		return nil, err
	}
	result.Review = BuildReview(questions, answers)
	return result, nil
}

// Reopen удаляет ответы и итог попытки активного теста, позволяя пройти тест заново
func (s *AttemptService) Reopen(ctx context.Context, identifier string) (*model.Attempt, error) {
	active, err := s.activeTest(ctx)
	if err != nil {
		return nil, err
	}

	var attempt *model.Attempt
	id := strings.TrimSpace(identifier)
	switch {
	case id == "":
		return nil, model.ErrAttemptNotFound
	case isDigits(id):
		userID, perr := strconv.ParseInt(id, 10, 64)
		if perr != nil {
			return nil, model.ErrAttemptNotFound
		}
		attempt, err = s.attemptRepo.GetAttemptByUser(ctx, userID, active.TestID)
	default:
		attempt, err = s.attemptRepo.GetAttemptByToken(ctx, strings.ToUpper(id))
		if err == nil && attempt != nil && attempt.TestID != active.TestID {
			attempt = nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	if attempt == nil {
		return nil, model.ErrAttemptNotFound
	}

	if err := s.deleteAttempt(ctx, attempt.Token); err != nil {
		return nil, err
	}
	return attempt, nil
}

func (s *AttemptService) deleteAttempt(ctx context.Context, token string) error {
	unlock := s.locks.Lock(token)
	defer unlock()
	if err := s.attemptRepo.DeleteAttempt(ctx, token); err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}
	return nil
}

// OpenAttempts незавершенные попытки активного теста
func (s *AttemptService) OpenAttempts(ctx context.Context) (*model.ActiveTest, []model.Attempt, error) {
	active, err := s.activeTest(ctx)
	if err != nil {
		return nil, nil, err
	}
	attempts, err := s.attemptRepo.ListOpenAttempts(ctx, active.TestID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list open attempts: %w", err)
	}
	return active, attempts, nil
}

// TopResults сводка по активному тесту и лучшие limit участников:
// балл по убыванию, затем оставшееся время по убыванию, затем время завершения
func (s *AttemptService) TopResults(ctx context.Context, limit int) (*model.ResultsSummary, error) {
	active, err := s.activeTest(ctx)
	if err != nil {
		return nil, err
	}
	scores, err := s.attemptRepo.ListScores(ctx, active.TestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scores: %w", err)
	}

	summary := &model.ResultsSummary{Test: *active}
	if len(scores) == 0 {
		return summary, nil
	}

	users := make(map[int64]struct{}, len(scores))
	var totalScore int
	var totalSpent time.Duration
	for _, sc := range scores {
		users[sc.UserID] = struct{}{}
		totalScore += sc.Score
		spent := active.TimeLimit() - time.Duration(sc.TimeLeft)*time.Second
		if spent > 0 {
			totalSpent += spent
		}
	}
	summary.Participants = len(users)
	summary.AverageScore = float64(totalScore) / float64(len(scores))
	summary.AverageTimeSpent = totalSpent / time.Duration(len(scores))

	ranked := make([]model.Score, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.TimeLeft != b.TimeLeft {
			return a.TimeLeft > b.TimeLeft
		}
		return a.FinishedAt.Before(b.FinishedAt)
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	for _, sc := range ranked {
		row := model.RankedScore{Score: sc}
		user, err := s.users.GetUserByTelegramID(ctx, sc.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if user != nil {
			row.FullName = user.FullName
			row.Username = user.Username
		}
		summary.Top = append(summary.Top, row)
	}
	return summary, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
