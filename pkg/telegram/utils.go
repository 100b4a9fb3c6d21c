package telegram

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/forPelevin/gomoji"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// sanitizeUsername убираем смайлы из имени перед записью в базу
func sanitizeUsername(username string) string {
	return strings.TrimSpace(gomoji.RemoveEmojis(username))
}

// formatTimeLeft остаток времени в виде "2ч 30мин"
func formatTimeLeft(d time.Duration) string {
	total := int(d.Seconds())
	hours := total / 3600
	minutes := (total % 3600) / 60

	return fmt.Sprintf("%dч %dмин", hours, minutes)
}

// professionKeyboard клавиатура выбора профессии, по две кнопки в ряд
func (b *Bot) professionKeyboard() tgbotapi.InlineKeyboardMarkup {
	keys := make([]string, 0, len(b.game.Professions))
	for key := range b.game.Professions {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, key := range keys {
		profession := b.game.Professions[key]
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(
			fmt.Sprintf("%s %d💵", profession.Name, profession.Cost),
			callbackTrainPrefix+key,
		))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔙 Академия", callbackAcademy),
	))

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// sendText отправка простого сообщения
func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseModeHTML
	if _, err := b.bot.Send(msg); err != nil {
		log.Println("Ошибка отправки сообщения:", err)
	}
}

// editMessage правка сообщения с клавиатурой
func (b *Bot) editMessage(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	msg.ParseMode = parseModeHTML
	if _, err := b.bot.Send(msg); err != nil {
		log.Println("Ошибка правки сообщения:", err)
	}
}

// answerCallback короткий ответ на нажатие кнопки
func (b *Bot) answerCallback(callbackID, text string) {
	callback := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.bot.Request(callback); err != nil {
		log.Println("Ошибка ответа на колбек:", err)
	}
}

// answerCallbackAlert ответ с всплывающим окном
func (b *Bot) answerCallbackAlert(callbackID, text string) {
	callback := tgbotapi.NewCallbackWithAlert(callbackID, text)
	if _, err := b.bot.Request(callback); err != nil {
		log.Println("Ошибка ответа на колбек:", err)
	}
}
