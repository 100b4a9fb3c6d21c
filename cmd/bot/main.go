package main

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ryabotIsland/pkg/academy"
	"ryabotIsland/pkg/config"
	"ryabotIsland/pkg/models"
	pgstore "ryabotIsland/pkg/storage/postgres"
	"ryabotIsland/pkg/telegram"
)

func main() {
	cfg, err := config.Init()
	if err != nil {
		log.Fatal("Не удалось загрузить конфигурацию: ", err)
	}

	db, err := openDatabase(cfg)
	if err != nil {
		log.Fatal("Не удалось подключиться к базе данных: ", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.HiredWorker{},
		&models.HireCooldown{},
		&models.TrainingUnit{},
		&models.TrainedSpecialist{},
	)
	if err != nil {
		log.Fatal("Не удалось выполнить миграцию: ", err)
	}

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal("Не удалось инициализировать Telegram Bot API: ", err)
	}

	repo := pgstore.NewRepository(db, cfg.Game.MaxEnergy, cfg.Game.BaseRyabucks)
	engine := academy.NewEngine(repo, cfg.Game, cfg.Messages)

	islandBot := telegram.NewBot(bot, engine, repo, cfg)
	if err := islandBot.Start(); err != nil {
		log.Fatal(err)
	}
}

// openDatabase выбирает драйвер по конфигурации, по умолчанию postgres
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(cfg.DBDSN), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
	}

	return nil, errors.Errorf("неизвестный драйвер базы данных: %s", cfg.DBDriver)
}
