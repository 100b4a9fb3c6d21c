package telegram

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"ryabotIsland/pkg/models"
	"ryabotIsland/pkg/storage"
)

// Кнопки меню академии
var academyMenuButtons = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("💼 Биржа труда", callbackLaborExchange),
		tgbotapi.NewInlineKeyboardButtonData("📚 Учебный класс", callbackTrainingClass),
	),
)

// Кнопки биржи труда
var laborExchangeButtons = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🤝 Нанять рабочего", callbackHireWorker),
	),
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Академия", callbackAcademy),
	),
)

// handleMessage обработка входящих сообщений
func (b *Bot) handleMessage(message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "stats":
		b.handleStats(message)
	}
}

// handleStart создаёт аккаунт при первом контакте и показывает академию
func (b *Bot) handleStart(message *tgbotapi.Message) {
	account, err := b.ensureAccount(message.Chat.ID, message.From.UserName)
	if err != nil {
		log.Println("Ошибка создания аккаунта:", err)
		b.sendText(message.Chat.ID, b.messages.Menu.TryAgain)
		return
	}

	// Новичку один раз выдаются подъёмные
	if !account.TutorialCompleted {
		err := b.repo.CompleteTutorial(message.Chat.ID, b.game.TutorialRyabucks, b.game.TutorialEnergy)
		if err != nil {
			log.Println("Ошибка начисления подъёмных:", err)
		} else {
			b.sendText(message.Chat.ID, fmt.Sprintf(
				b.messages.Menu.TutorialReward, b.game.TutorialRyabucks, b.game.TutorialEnergy,
			))
		}
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, b.messages.Menu.Welcome)
	msg.ReplyMarkup = academyMenuButtons
	if _, err := b.bot.Send(msg); err != nil {
		log.Println("Ошибка отправки приветствия:", err)
	}
}

// handleStats статистика острова, только для администратора
func (b *Bot) handleStats(message *tgbotapi.Message) {
	if message.Chat.ID != b.adminChatID {
		return
	}

	stats, err := b.repo.IslandStats()
	if err != nil {
		log.Println("Ошибка получения статистики:", err)
		b.sendText(message.Chat.ID, b.messages.Menu.TryAgain)
		return
	}

	text := fmt.Sprintf(
		"📊 Остров Рябот\n\n👥 Игроков: %d\n🟢 Активны сегодня: %d\n📖 Идёт обучений: %d\n🎓 Специалистов: %d",
		stats.TotalPlayers, stats.ActiveToday, stats.ActiveTrainings, stats.Specialists,
	)
	b.sendText(message.Chat.ID, text)
}

// handleCallback обработка нажатий кнопок
func (b *Bot) handleCallback(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID

	if _, err := b.ensureAccount(chatID, callbackQuery.From.UserName); err != nil {
		log.Println("Ошибка получения аккаунта:", err)
		b.answerCallback(callbackQuery.ID, b.messages.Menu.TryAgain)
		return
	}

	switch {
	case callbackQuery.Data == callbackAcademy:
		b.showAcademy(callbackQuery)
	case callbackQuery.Data == callbackLaborExchange:
		b.showLaborExchange(callbackQuery)
	case callbackQuery.Data == callbackHireWorker:
		b.hireWorker(callbackQuery)
	case callbackQuery.Data == callbackTrainingClass:
		b.showTrainingClass(callbackQuery)
	case strings.HasPrefix(callbackQuery.Data, callbackTrainPrefix):
		b.startTraining(callbackQuery, strings.TrimPrefix(callbackQuery.Data, callbackTrainPrefix))
	}
}

// showAcademy меню академии. Сначала завершаем созревшие обучения,
// затем показываем актуальные счётчики.
func (b *Bot) showAcademy(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID

	if err := b.repo.ClearAccountState(chatID); err != nil {
		log.Println("Ошибка сброса состояния:", err)
	}

	graduated, err := b.engine.CompleteTrainings(chatID)
	if err != nil {
		log.Println("Ошибка завершения обучений:", err)
		b.answerCallback(callbackQuery.ID, b.messages.Menu.TryAgain)
		return
	}
	if graduated > 0 {
		b.answerCallbackAlert(callbackQuery.ID, fmt.Sprintf(b.messages.Training.Completed, graduated))
	} else {
		b.answerCallback(callbackQuery.ID, "")
	}

	workers, err := b.engine.HiredWorkersCount(chatID)
	if err != nil {
		log.Println("Ошибка счётчика рабочих:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	trainings, err := b.engine.ActiveTrainings(chatID)
	if err != nil {
		log.Println("Ошибка списка обучений:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	specialists, err := b.engine.SpecialistsCount(chatID)
	if err != nil {
		log.Println("Ошибка счётчика специалистов:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}
	totalSpecialists := 0
	for _, n := range specialists {
		totalSpecialists += n
	}

	text := fmt.Sprintf(
		b.messages.Menu.Academy,
		workers[models.WorkerTypeLaborer],
		len(trainings),
		totalSpecialists,
	)
	b.editMessage(chatID, callbackQuery.Message.MessageID, text, academyMenuButtons)
}

// showLaborExchange биржа труда со статусом найма
func (b *Bot) showLaborExchange(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID
	b.answerCallback(callbackQuery.ID, "")

	if err := b.repo.ClearAccountState(chatID); err != nil {
		log.Println("Ошибка сброса состояния:", err)
	}

	status, err := b.engine.HireStatusMessage(chatID)
	if err != nil {
		log.Println("Ошибка статуса найма:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	workers, err := b.engine.HiredWorkersCount(chatID)
	if err != nil {
		log.Println("Ошибка счётчика рабочих:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	text := fmt.Sprintf(b.messages.Menu.LaborExchange, workers[models.WorkerTypeLaborer], status)
	b.editMessage(chatID, callbackQuery.Message.MessageID, text, laborExchangeButtons)
}

// hireWorker попытка найма по кнопке
func (b *Bot) hireWorker(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID

	result, err := b.engine.HireWorker(chatID)
	if err != nil {
		// Ошибка хранилища не превращается в игровой отказ
		log.Println("Ошибка найма:", err)
		b.answerCallbackAlert(callbackQuery.ID, b.messages.Menu.TryAgain)
		return
	}

	b.answerCallbackAlert(callbackQuery.ID, result.Message)
	b.showLaborExchange(callbackQuery)
}

// showTrainingClass учебный класс: места, идущие обучения, выбор профессии
func (b *Bot) showTrainingClass(callbackQuery *tgbotapi.CallbackQuery) {
	chatID := callbackQuery.Message.Chat.ID
	b.answerCallback(callbackQuery.ID, "")

	if err := b.repo.SetAccountState(chatID, stateTrainingClass, ""); err != nil {
		log.Println("Ошибка записи состояния:", err)
	}

	slots, err := b.engine.TrainingSlotsInfo(chatID)
	if err != nil {
		log.Println("Ошибка учебных мест:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	trainings, err := b.engine.ActiveTrainings(chatID)
	if err != nil {
		log.Println("Ошибка списка обучений:", err)
		b.sendText(chatID, b.messages.Menu.TryAgain)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(b.messages.Training.SlotsStatus, slots.Used, slots.Total))
	for _, training := range trainings {
		name := training.Profession
		if profession, ok := b.game.Professions[training.Profession]; ok {
			name = profession.Name
		}
		sb.WriteString(fmt.Sprintf("\n%s — осталось %s", name, formatTimeLeft(training.TimeLeft)))
	}

	b.editMessage(chatID, callbackQuery.Message.MessageID, sb.String(), b.professionKeyboard())
}

// startTraining постановка на обучение по кнопке профессии
func (b *Bot) startTraining(callbackQuery *tgbotapi.CallbackQuery, profession string) {
	chatID := callbackQuery.Message.Chat.ID

	result, err := b.engine.StartTraining(chatID, profession)
	if err != nil {
		log.Println("Ошибка обучения:", err)
		b.answerCallbackAlert(callbackQuery.ID, b.messages.Menu.TryAgain)
		return
	}

	b.answerCallbackAlert(callbackQuery.ID, result.Message)
	b.showTrainingClass(callbackQuery)
}

// ensureAccount получает аккаунт, при первом контакте создаёт его
func (b *Bot) ensureAccount(telegramID int64, username string) (*models.Account, error) {
	account, err := b.repo.GetAccount(telegramID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return b.repo.CreateAccount(telegramID, sanitizeUsername(username))
}
