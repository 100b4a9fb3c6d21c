package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	workerIdle     = "idle"
	workerTraining = "training"
	workerConsumed = "consumed"
)

const (
	trainingActive    = "training"
	trainingCompleted = "completed"
)

const (
	specialistAvailable = "available"
	specialistDead      = "dead"
)

// WorkerTypeLaborer единственный тип наёмного рабочего
const WorkerTypeLaborer = "laborer"

// Account Модель аккаунта игрока
type Account struct {
	gorm.Model
	TelegramID        int64 `gorm:"uniqueIndex"`
	Username          string
	Language          string
	Level             int
	Experience        int
	Energy            int
	Ryabucks          int
	RBTC              float64
	GoldenShards      int
	QuantumKeys       int
	LandPlots         int
	TutorialCompleted bool
	CurrentState      string
	ActivityData      string
	LastActive        time.Time
}

// HiredWorker Модель наёмного разнорабочего
type HiredWorker struct {
	gorm.Model
	AccountID       int64  `gorm:"index"`
	WorkerType      string `gorm:"index"`
	Status          string `gorm:"index"`
	HiredAt         time.Time
	NextAvailableAt time.Time
}

// HireCooldown Модель ограничений найма, одна запись на аккаунт
type HireCooldown struct {
	gorm.Model
	AccountID    int64 `gorm:"uniqueIndex"`
	LastHireTime time.Time
	HiresCount   int
	ResetDate    string // YYYY-MM-DD
}

// TrainingUnit Модель обучения, превращает рабочего в специалиста
type TrainingUnit struct {
	gorm.Model
	AccountID   int64  `gorm:"index"`
	UnitType    string // профессия
	Status      string `gorm:"index"`
	StartedAt   time.Time
	CompletedAt time.Time
	WorkerID    uint
}

// TrainedSpecialist Модель готового специалиста
type TrainedSpecialist struct {
	gorm.Model
	AccountID      int64 `gorm:"index"`
	SpecialistType string
	Level          int
	Status         string
	LastWorked     *time.Time
}

type workerStatuses struct {
	Idle     string // свободен
	Training string // на обучении
	Consumed string // переобучен в специалиста
}

// WorkerStatuses Статусы рабочего
var WorkerStatuses = workerStatuses{
	Idle:     workerIdle,
	Training: workerTraining,
	Consumed: workerConsumed,
}

type trainingStatuses struct {
	Training  string // идёт обучение
	Completed string // обучение завершено
}

// TrainingStatuses Статусы обучения
var TrainingStatuses = trainingStatuses{
	Training:  trainingActive,
	Completed: trainingCompleted,
}

type specialistStatuses struct {
	Available string // доступен для работы
	Dead      string // выбыл
}

// SpecialistStatuses Статусы специалиста
var SpecialistStatuses = specialistStatuses{
	Available: specialistAvailable,
	Dead:      specialistDead,
}
