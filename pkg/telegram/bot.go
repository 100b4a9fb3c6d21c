package telegram

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ryabotIsland/pkg/academy"
	"ryabotIsland/pkg/config"
	"ryabotIsland/pkg/storage"
)

const parseModeHTML = "HTML"

// Кнопки главного меню академии
const (
	callbackAcademy       = "academy"
	callbackLaborExchange = "labor_exchange"
	callbackHireWorker    = "hire_worker"
	callbackTrainingClass = "training_class"
	callbackTrainPrefix   = "train:"
)

// Состояние аккаунта: игрок выбирает профессию в учебном классе
const stateTrainingClass = "training_class"

// Bot Основная структура приложения
type Bot struct {
	bot         *tgbotapi.BotAPI
	engine      *academy.Engine
	repo        storage.Repository
	adminChatID int64
	game        config.Game
	messages    config.Messages
}

func NewBot(bot *tgbotapi.BotAPI, engine *academy.Engine, repo storage.Repository, cfg *config.Config) *Bot {
	return &Bot{
		bot:         bot,
		engine:      engine,
		repo:        repo,
		adminChatID: cfg.AdminID,
		game:        cfg.Game,
		messages:    cfg.Messages,
	}
}

// Start запуск бота
func (b *Bot) Start() error {
	log.Printf("Авторизация в аккаунте: %s", b.bot.Self.UserName)

	// Инициализируем канал обновлений
	updates := b.initUpdatesChannel()
	// Получаем обновления из Telegram API
	b.handleUpdates(updates)

	return nil
}

// initUpdatesChannel инициализация канала обновлений
func (b *Bot) initUpdatesChannel() tgbotapi.UpdatesChannel {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	return b.bot.GetUpdatesChan(updateConfig)
}

// handleUpdates инкапсулирует логику для работы с обновлениями.
// Каждое обновление уходит в свою горутину, сериализацию по аккаунту
// обеспечивает движок академии.
func (b *Bot) handleUpdates(updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message != nil {
			go b.handleMessage(update.Message)
		} else if update.CallbackQuery != nil {
			go b.handleCallback(update.CallbackQuery)
		}
	}
}
