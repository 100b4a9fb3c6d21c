package postgres

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ryabotIsland/pkg/models"
	"ryabotIsland/pkg/storage"
)

// Repository Реализация storage.Repository поверх gorm.
// Соединение открывается в точке входа и передаётся сюда готовым.
type Repository struct {
	db           *gorm.DB
	maxEnergy    int
	baseRyabucks int
}

func NewRepository(db *gorm.DB, maxEnergy, baseRyabucks int) *Repository {
	return &Repository{
		db:           db,
		maxEnergy:    maxEnergy,
		baseRyabucks: baseRyabucks,
	}
}

func (r *Repository) GetAccount(telegramID int64) (*models.Account, error) {
	var account models.Account
	err := r.db.Where("telegram_id = ?", telegramID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "get account")
	}

	return &account, nil
}

func (r *Repository) CreateAccount(telegramID int64, username string) (*models.Account, error) {
	account := models.Account{
		TelegramID: telegramID,
		Username:   username,
		Language:   "ru",
		Level:      1,
		Energy:     r.maxEnergy,
		Ryabucks:   r.baseRyabucks,
		LandPlots:  1,
		LastActive: time.Now(),
	}

	if err := r.db.Create(&account).Error; err != nil {
		return nil, errors.Wrapf(err, "create account %d", telegramID)
	}

	return &account, nil
}

// ApplyAccountDelta Применяет относительные изменения ресурсов одним UPDATE.
// Отрицательное изменение рябаксов защищено условием на баланс: если денег
// не хватает, запись не меняется и возвращается ErrInsufficientBalance.
func (r *Repository) ApplyAccountDelta(telegramID int64, delta storage.AccountDelta) error {
	updates := map[string]interface{}{
		"last_active": time.Now(),
	}

	if delta.Ryabucks != 0 {
		updates["ryabucks"] = gorm.Expr("ryabucks + ?", delta.Ryabucks)
	}
	if delta.RBTC != 0 {
		updates["rbtc"] = gorm.Expr("rbtc + ?", delta.RBTC)
	}
	if delta.Experience != 0 {
		updates["experience"] = gorm.Expr("experience + ?", delta.Experience)
	}
	if delta.Energy != 0 {
		// Энергия зажимается в [0, max]
		updates["energy"] = gorm.Expr(
			"CASE WHEN energy + ? < 0 THEN 0 WHEN energy + ? > ? THEN ? ELSE energy + ? END",
			delta.Energy, delta.Energy, r.maxEnergy, r.maxEnergy, delta.Energy,
		)
	}

	tx := r.db.Model(&models.Account{}).Where("telegram_id = ?", telegramID)
	if delta.Ryabucks < 0 {
		tx = tx.Where("ryabucks >= ?", -delta.Ryabucks)
	}

	result := tx.Updates(updates)
	if result.Error != nil {
		return errors.Wrap(result.Error, "apply account delta")
	}

	if result.RowsAffected == 0 {
		if _, err := r.GetAccount(telegramID); err != nil {
			return err
		}
		return storage.ErrInsufficientBalance
	}

	return nil
}

func (r *Repository) SetAccountState(telegramID int64, state, activityData string) error {
	err := r.db.Model(&models.Account{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"current_state": state,
			"activity_data": activityData,
		}).Error

	return errors.Wrap(err, "set account state")
}

func (r *Repository) ClearAccountState(telegramID int64) error {
	return r.SetAccountState(telegramID, "", "")
}

// CompleteTutorial Отмечает туториал завершённым и начисляет награду
func (r *Repository) CompleteTutorial(telegramID int64, ryabucks, energy int) error {
	err := r.db.Model(&models.Account{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"tutorial_completed": true,
			"ryabucks":           gorm.Expr("ryabucks + ?", ryabucks),
			"energy": gorm.Expr(
				"CASE WHEN energy + ? > ? THEN ? ELSE energy + ? END",
				energy, r.maxEnergy, r.maxEnergy, energy,
			),
		}).Error

	return errors.Wrap(err, "complete tutorial")
}

func (r *Repository) InsertWorker(telegramID int64, workerType, status string, hiredAt, nextAvailableAt time.Time) (uint, error) {
	worker := models.HiredWorker{
		AccountID:       telegramID,
		WorkerType:      workerType,
		Status:          status,
		HiredAt:         hiredAt,
		NextAvailableAt: nextAvailableAt,
	}

	if err := r.db.Create(&worker).Error; err != nil {
		return 0, errors.Wrapf(err, "insert worker for %d", telegramID)
	}

	return worker.ID, nil
}

func (r *Repository) UpdateWorkerStatus(workerID uint, status string) error {
	result := r.db.Model(&models.HiredWorker{}).
		Where("id = ?", workerID).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update worker status")
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (r *Repository) Workers(telegramID int64, filter storage.WorkerFilter) ([]models.HiredWorker, error) {
	tx := r.db.Where("account_id = ?", telegramID)
	if filter.WorkerType != "" {
		tx = tx.Where("worker_type = ?", filter.WorkerType)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}

	var workers []models.HiredWorker
	if err := tx.Order("id").Find(&workers).Error; err != nil {
		return nil, errors.Wrap(err, "query workers")
	}

	return workers, nil
}

// CountWorkersByType Количество рабочих по типам, без переобученных
func (r *Repository) CountWorkersByType(telegramID int64) (map[string]int, error) {
	var rows []struct {
		WorkerType string
		Total      int
	}

	err := r.db.Model(&models.HiredWorker{}).
		Select("worker_type, COUNT(*) AS total").
		Where("account_id = ? AND status <> ?", telegramID, models.WorkerStatuses.Consumed).
		Group("worker_type").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count workers")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.WorkerType] = row.Total
	}

	return counts, nil
}

// GetCooldown Возвращает nil без ошибки, если записи ещё нет
func (r *Repository) GetCooldown(telegramID int64) (*models.HireCooldown, error) {
	var cooldown models.HireCooldown
	err := r.db.Where("account_id = ?", telegramID).First(&cooldown).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "get cooldown")
	}

	return &cooldown, nil
}

// UpsertCooldown Единственная запись на аккаунт. Счётчик наймов растёт в
// пределах одной даты сброса и начинается заново при смене даты.
func (r *Repository) UpsertCooldown(telegramID int64, lastHire time.Time, resetDate string) error {
	cooldown := models.HireCooldown{
		AccountID:    telegramID,
		LastHireTime: lastHire,
		HiresCount:   1,
		ResetDate:    resetDate,
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_hire_time": lastHire,
			"hires_count":    gorm.Expr("CASE WHEN reset_date = ? THEN hires_count + 1 ELSE 1 END", resetDate),
			"reset_date":     resetDate,
		}),
	}).Create(&cooldown).Error

	return errors.Wrap(err, "upsert cooldown")
}

func (r *Repository) InsertTraining(telegramID int64, unitType string, workerID uint, startedAt, completedAt time.Time) (uint, error) {
	unit := models.TrainingUnit{
		AccountID:   telegramID,
		UnitType:    unitType,
		Status:      models.TrainingStatuses.Training,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		WorkerID:    workerID,
	}

	if err := r.db.Create(&unit).Error; err != nil {
		return 0, errors.Wrapf(err, "insert training for %d", telegramID)
	}

	return unit.ID, nil
}

func (r *Repository) Trainings(telegramID int64, filter storage.TrainingFilter) ([]models.TrainingUnit, error) {
	tx := r.db.Where("account_id = ?", telegramID)
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.DueBefore != nil {
		tx = tx.Where("completed_at <= ?", *filter.DueBefore)
	}

	var units []models.TrainingUnit
	if err := tx.Order("completed_at").Find(&units).Error; err != nil {
		return nil, errors.Wrap(err, "query trainings")
	}

	return units, nil
}

func (r *Repository) CountActiveTrainings(telegramID int64) (int, error) {
	var total int64
	err := r.db.Model(&models.TrainingUnit{}).
		Where("account_id = ? AND status = ?", telegramID, models.TrainingStatuses.Training).
		Count(&total).Error
	if err != nil {
		return 0, errors.Wrap(err, "count active trainings")
	}

	return int(total), nil
}

func (r *Repository) UpdateTrainingStatus(trainingID uint, status string) error {
	result := r.db.Model(&models.TrainingUnit{}).
		Where("id = ?", trainingID).
		Update("status", status)
	if result.Error != nil {
		return errors.Wrap(result.Error, "update training status")
	}
	if result.RowsAffected == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (r *Repository) InsertSpecialist(telegramID int64, specialistType string) (uint, error) {
	specialist := models.TrainedSpecialist{
		AccountID:      telegramID,
		SpecialistType: specialistType,
		Level:          1,
		Status:         models.SpecialistStatuses.Available,
	}

	if err := r.db.Create(&specialist).Error; err != nil {
		return 0, errors.Wrapf(err, "insert specialist for %d", telegramID)
	}

	return specialist.ID, nil
}

// CountSpecialistsByType Количество специалистов по профессиям, без выбывших
func (r *Repository) CountSpecialistsByType(telegramID int64) (map[string]int, error) {
	var rows []struct {
		SpecialistType string
		Total          int
	}

	err := r.db.Model(&models.TrainedSpecialist{}).
		Select("specialist_type, COUNT(*) AS total").
		Where("account_id = ? AND status <> ?", telegramID, models.SpecialistStatuses.Dead).
		Group("specialist_type").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "count specialists")
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.SpecialistType] = row.Total
	}

	return counts, nil
}

// IslandStats Сводные счётчики. Ошибки базы возвращаются как есть,
// без подмены значениями "для вида".
func (r *Repository) IslandStats() (*storage.IslandStats, error) {
	var stats storage.IslandStats

	var total int64
	if err := r.db.Model(&models.Account{}).Count(&total).Error; err != nil {
		return nil, errors.Wrap(err, "count players")
	}
	stats.TotalPlayers = int(total)

	now := time.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var active int64
	err := r.db.Model(&models.Account{}).
		Where("last_active >= ?", dayStart).
		Count(&active).Error
	if err != nil {
		return nil, errors.Wrap(err, "count active players")
	}
	stats.ActiveToday = int(active)

	var trainings int64
	err = r.db.Model(&models.TrainingUnit{}).
		Where("status = ?", models.TrainingStatuses.Training).
		Count(&trainings).Error
	if err != nil {
		return nil, errors.Wrap(err, "count trainings")
	}
	stats.ActiveTrainings = int(trainings)

	var specialists int64
	err = r.db.Model(&models.TrainedSpecialist{}).
		Where("status <> ?", models.SpecialistStatuses.Dead).
		Count(&specialists).Error
	if err != nil {
		return nil, errors.Wrap(err, "count specialists")
	}
	stats.Specialists = int(specialists)

	return &stats, nil
}
