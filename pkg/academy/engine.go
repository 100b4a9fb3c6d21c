package academy

import (
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"ryabotIsland/pkg/config"
	"ryabotIsland/pkg/models"
	"ryabotIsland/pkg/storage"
)

// Причины отказа в найме
const (
	ReasonOK           = "ok"
	ReasonCooldown     = "cooldown"
	ReasonLimitReached = "limit_reached"
)

// Engine Движок найма и обучения рабочих. Вся последовательность
// проверка-списание-запись для одного аккаунта выполняется под его мьютексом,
// чтобы двойное нажатие кнопки не приводило к двойному найму или
// перерасходу учебных мест.
type Engine struct {
	repo     storage.Repository
	game     config.Game
	messages config.Messages
	now      func() time.Time

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func NewEngine(repo storage.Repository, game config.Game, messages config.Messages) *Engine {
	return &Engine{
		repo:     repo,
		game:     game,
		messages: messages,
		now:      time.Now,
		locks:    make(map[int64]*sync.Mutex),
	}
}

// HireDecision Результат проверки возможности найма
type HireDecision struct {
	Allowed    bool
	Reason     string
	RetryAfter time.Duration
}

// HireResult Результат попытки найма
type HireResult struct {
	Success bool
	Message string
	Cost    int
}

// SlotsInfo Занятость учебных мест
type SlotsInfo struct {
	Used      int
	Total     int
	Available int
}

// TrainingResult Результат постановки на обучение
type TrainingResult struct {
	Success bool
	Message string
}

// ActiveTraining Идущее обучение с остатком времени
type ActiveTraining struct {
	Profession string
	TimeLeft   time.Duration
}

// accountLock Мьютекс аккаунта, создаётся при первом обращении
func (e *Engine) accountLock(telegramID int64) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[telegramID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[telegramID] = lock
	}

	return lock
}

// CanHireWorker Проверяет возможность найма без побочных эффектов.
// Дневной счётчик не сбрасывается в базе, смена даты учитывается при чтении.
func (e *Engine) CanHireWorker(telegramID int64) (HireDecision, error) {
	cooldown, err := e.repo.GetCooldown(telegramID)
	if err != nil {
		return HireDecision{}, errors.Wrap(err, "read hire cooldown")
	}

	if cooldown == nil {
		return HireDecision{Allowed: true, Reason: ReasonOK}, nil
	}

	now := e.now()

	sinceLastHire := now.Sub(cooldown.LastHireTime)
	if sinceLastHire < e.game.HireCooldown() {
		return HireDecision{
			Reason:     ReasonCooldown,
			RetryAfter: e.game.HireCooldown() - sinceLastHire,
		}, nil
	}

	hiresToday := cooldown.HiresCount
	if cooldown.ResetDate != dateOf(now) {
		hiresToday = 0
	}
	if hiresToday >= e.game.HireDailyLimit {
		return HireDecision{Reason: ReasonLimitReached}, nil
	}

	return HireDecision{Allowed: true, Reason: ReasonOK}, nil
}

// HireWorker Нанимает разнорабочего. Стоимость растёт с каждым
// не переобученным рабочим и не уменьшается обратно.
func (e *Engine) HireWorker(telegramID int64) (HireResult, error) {
	lock := e.accountLock(telegramID)
	lock.Lock()
	defer lock.Unlock()

	decision, err := e.CanHireWorker(telegramID)
	if err != nil {
		return HireResult{}, err
	}
	if !decision.Allowed {
		return HireResult{Message: e.rejectionMessage(decision)}, nil
	}

	counts, err := e.repo.CountWorkersByType(telegramID)
	if err != nil {
		return HireResult{}, errors.Wrap(err, "count workers")
	}
	totalWorkers := 0
	for _, n := range counts {
		totalWorkers += n
	}
	cost := e.game.HireCost(totalWorkers)

	account, err := e.repo.GetAccount(telegramID)
	if err != nil {
		return HireResult{}, errors.Wrap(err, "get account")
	}
	if account.Ryabucks < cost {
		return HireResult{Cost: cost, Message: fmt.Sprintf(e.messages.Hire.NoFunds, cost)}, nil
	}

	// Списание с контролем баланса закрывает гонку двух одновременных наймов
	if err := e.repo.ApplyAccountDelta(telegramID, storage.AccountDelta{Ryabucks: -cost}); err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return HireResult{Cost: cost, Message: fmt.Sprintf(e.messages.Hire.NoFunds, cost)}, nil
		}
		return HireResult{}, errors.Wrap(err, "debit hire cost")
	}

	now := e.now()
	_, err = e.repo.InsertWorker(
		telegramID,
		models.WorkerTypeLaborer,
		models.WorkerStatuses.Idle,
		now,
		now.Add(e.game.HireCooldown()),
	)
	if err != nil {
		return HireResult{}, errors.Wrap(err, "insert worker")
	}

	if err := e.repo.UpsertCooldown(telegramID, now, dateOf(now)); err != nil {
		return HireResult{}, errors.Wrap(err, "update cooldown")
	}

	return HireResult{
		Success: true,
		Cost:    cost,
		Message: fmt.Sprintf(e.messages.Hire.Success, cost),
	}, nil
}

// TrainingSlotsInfo Занятость учебных мест, всего мест задаёт конфигурация
func (e *Engine) TrainingSlotsInfo(telegramID int64) (SlotsInfo, error) {
	used, err := e.repo.CountActiveTrainings(telegramID)
	if err != nil {
		return SlotsInfo{}, errors.Wrap(err, "count active trainings")
	}

	total := e.game.TrainingBaseSlots

	return SlotsInfo{
		Used:      used,
		Total:     total,
		Available: total - used,
	}, nil
}

// StartTraining Отправляет свободного рабочего учиться на профессию.
// Проверки идут в фиксированном порядке: рабочие, места, профессия, баланс.
func (e *Engine) StartTraining(telegramID int64, profession string) (TrainingResult, error) {
	lock := e.accountLock(telegramID)
	lock.Lock()
	defer lock.Unlock()

	counts, err := e.repo.CountWorkersByType(telegramID)
	if err != nil {
		return TrainingResult{}, errors.Wrap(err, "count workers")
	}
	if counts[models.WorkerTypeLaborer] == 0 {
		return TrainingResult{Message: e.messages.Training.NoWorkers}, nil
	}

	slots, err := e.TrainingSlotsInfo(telegramID)
	if err != nil {
		return TrainingResult{}, err
	}
	if slots.Available <= 0 {
		return TrainingResult{Message: e.messages.Training.NoSlots}, nil
	}

	info, ok := e.game.Professions[profession]
	if !ok {
		return TrainingResult{Message: e.messages.Training.Unknown}, nil
	}

	account, err := e.repo.GetAccount(telegramID)
	if err != nil {
		return TrainingResult{}, errors.Wrap(err, "get account")
	}
	if account.Ryabucks < info.Cost {
		return TrainingResult{Message: fmt.Sprintf(e.messages.Training.NoFunds, info.Cost)}, nil
	}

	idle, err := e.repo.Workers(telegramID, storage.WorkerFilter{
		WorkerType: models.WorkerTypeLaborer,
		Status:     models.WorkerStatuses.Idle,
	})
	if err != nil {
		return TrainingResult{}, errors.Wrap(err, "find idle worker")
	}
	if len(idle) == 0 {
		return TrainingResult{Message: e.messages.Training.NoWorkers}, nil
	}
	worker := idle[0]

	if err := e.repo.ApplyAccountDelta(telegramID, storage.AccountDelta{Ryabucks: -info.Cost}); err != nil {
		if errors.Is(err, storage.ErrInsufficientBalance) {
			return TrainingResult{Message: fmt.Sprintf(e.messages.Training.NoFunds, info.Cost)}, nil
		}
		return TrainingResult{}, errors.Wrap(err, "debit training cost")
	}

	now := e.now()
	if _, err := e.repo.InsertTraining(telegramID, profession, worker.ID, now, now.Add(info.Duration())); err != nil {
		return TrainingResult{}, errors.Wrap(err, "insert training")
	}

	if err := e.repo.UpdateWorkerStatus(worker.ID, models.WorkerStatuses.Training); err != nil {
		return TrainingResult{}, errors.Wrap(err, "mark worker training")
	}

	hours, minutes := splitDuration(info.Duration())

	return TrainingResult{
		Success: true,
		Message: fmt.Sprintf(e.messages.Training.Success, info.Name, hours, minutes),
	}, nil
}

// ActiveTrainings Идущие обучения с остатком времени до выпуска
func (e *Engine) ActiveTrainings(telegramID int64) ([]ActiveTraining, error) {
	units, err := e.repo.Trainings(telegramID, storage.TrainingFilter{
		Status: models.TrainingStatuses.Training,
	})
	if err != nil {
		return nil, errors.Wrap(err, "query active trainings")
	}

	now := e.now()
	var active []ActiveTraining
	for _, unit := range units {
		left := unit.CompletedAt.Sub(now)
		if left > 0 {
			active = append(active, ActiveTraining{
				Profession: unit.UnitType,
				TimeLeft:   left,
			})
		}
	}

	return active, nil
}

// CompleteTrainings Завершает созревшие обучения и возвращает число
// выпускников. Вызывается при открытии меню академии, фонового таймера нет:
// специалист появляется не раньше следующего визита игрока после срока.
// Повторный вызов без новых созревших обучений ничего не меняет.
func (e *Engine) CompleteTrainings(telegramID int64) (int, error) {
	lock := e.accountLock(telegramID)
	lock.Lock()
	defer lock.Unlock()

	now := e.now()
	due, err := e.repo.Trainings(telegramID, storage.TrainingFilter{
		Status:    models.TrainingStatuses.Training,
		DueBefore: &now,
	})
	if err != nil {
		return 0, errors.Wrap(err, "query due trainings")
	}

	completed := 0
	for _, unit := range due {
		if _, err := e.repo.InsertSpecialist(telegramID, unit.UnitType); err != nil {
			return completed, errors.Wrap(err, "insert specialist")
		}
		if err := e.repo.UpdateTrainingStatus(unit.ID, models.TrainingStatuses.Completed); err != nil {
			return completed, errors.Wrap(err, "complete training")
		}
		if err := e.repo.UpdateWorkerStatus(unit.WorkerID, models.WorkerStatuses.Consumed); err != nil {
			return completed, errors.Wrap(err, "consume worker")
		}
		completed++
	}

	return completed, nil
}

// HiredWorkersCount Рабочие по типам, без переобученных
func (e *Engine) HiredWorkersCount(telegramID int64) (map[string]int, error) {
	return e.repo.CountWorkersByType(telegramID)
}

// SpecialistsCount Специалисты по профессиям, без выбывших
func (e *Engine) SpecialistsCount(telegramID int64) (map[string]int, error) {
	return e.repo.CountSpecialistsByType(telegramID)
}

// HireStatusMessage Текст статуса найма для биржи труда
func (e *Engine) HireStatusMessage(telegramID int64) (string, error) {
	decision, err := e.CanHireWorker(telegramID)
	if err != nil {
		return "", err
	}

	if !decision.Allowed {
		return e.rejectionMessage(decision), nil
	}

	counts, err := e.repo.CountWorkersByType(telegramID)
	if err != nil {
		return "", errors.Wrap(err, "count workers")
	}
	totalWorkers := 0
	for _, n := range counts {
		totalWorkers += n
	}

	return fmt.Sprintf(e.messages.Hire.StatusReady, e.game.HireCost(totalWorkers)), nil
}

func (e *Engine) rejectionMessage(decision HireDecision) string {
	switch decision.Reason {
	case ReasonCooldown:
		hours, minutes := splitDuration(decision.RetryAfter)
		return fmt.Sprintf(e.messages.Hire.Cooldown, hours, minutes)
	case ReasonLimitReached:
		return e.messages.Hire.LimitReached
	}

	return e.messages.Hire.LimitReached
}

// splitDuration Часы и минуты для человекочитаемых сообщений
func splitDuration(d time.Duration) (int, int) {
	total := int(d.Seconds())
	return total / 3600, (total % 3600) / 60
}

func dateOf(t time.Time) string {
	return t.Format("2006-01-02")
}
