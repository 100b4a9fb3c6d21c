package storage

import (
	"time"

	"github.com/pkg/errors"

	"ryabotIsland/pkg/models"
)

// ErrNotFound запись не найдена
var ErrNotFound = errors.New("record not found")

// ErrInsufficientBalance списание больше текущего баланса
var ErrInsufficientBalance = errors.New("insufficient balance")

// AccountDelta Относительное изменение ресурсов аккаунта.
// Применяется атомарно на стороне хранилища, а не через чтение-изменение-запись.
type AccountDelta struct {
	Ryabucks   int
	RBTC       float64
	Energy     int
	Experience int
}

// WorkerFilter Фильтр выборки рабочих, пустое поле не фильтрует
type WorkerFilter struct {
	WorkerType string
	Status     string
}

// TrainingFilter Фильтр выборки обучений
type TrainingFilter struct {
	Status    string
	DueBefore *time.Time
}

// IslandStats Сводная статистика острова
type IslandStats struct {
	TotalPlayers    int
	ActiveToday     int
	ActiveTrainings int
	Specialists     int
}

// Repository Единая абстракция хранилища. Движок академии зависит только
// от этого интерфейса, конкретная база подключается в точке входа.
type Repository interface {
	GetAccount(telegramID int64) (*models.Account, error)
	CreateAccount(telegramID int64, username string) (*models.Account, error)
	ApplyAccountDelta(telegramID int64, delta AccountDelta) error
	SetAccountState(telegramID int64, state, activityData string) error
	ClearAccountState(telegramID int64) error
	CompleteTutorial(telegramID int64, ryabucks, energy int) error

	InsertWorker(telegramID int64, workerType, status string, hiredAt, nextAvailableAt time.Time) (uint, error)
	UpdateWorkerStatus(workerID uint, status string) error
	Workers(telegramID int64, filter WorkerFilter) ([]models.HiredWorker, error)
	CountWorkersByType(telegramID int64) (map[string]int, error)

	GetCooldown(telegramID int64) (*models.HireCooldown, error)
	UpsertCooldown(telegramID int64, lastHire time.Time, resetDate string) error

	InsertTraining(telegramID int64, unitType string, workerID uint, startedAt, completedAt time.Time) (uint, error)
	Trainings(telegramID int64, filter TrainingFilter) ([]models.TrainingUnit, error)
	CountActiveTrainings(telegramID int64) (int, error)
	UpdateTrainingStatus(trainingID uint, status string) error

	InsertSpecialist(telegramID int64, specialistType string) (uint, error)
	CountSpecialistsByType(telegramID int64) (map[string]int, error)

	IslandStats() (*IslandStats, error)
}
