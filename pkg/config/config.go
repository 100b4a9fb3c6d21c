package config

import (
	"log"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	TelegramToken string
	AdminID       int64
	DBDriver      string
	DBDSN         string
	Game          Game
	Messages      Messages
}

// Game Игровые константы биржи труда и академии
type Game struct {
	MaxEnergy         int                   `mapstructure:"max_energy"`
	BaseRyabucks      int                   `mapstructure:"base_ryabucks"`
	HireBaseCost      int                   `mapstructure:"hire_base_cost"`
	HireCostIncrement int                   `mapstructure:"hire_cost_increment"`
	HireCooldownHours float64               `mapstructure:"hire_cooldown_hours"`
	HireDailyLimit    int                   `mapstructure:"hire_daily_limit"`
	TrainingBaseSlots int                   `mapstructure:"training_base_slots"`
	TutorialRyabucks  int                   `mapstructure:"tutorial_ryabucks"`
	TutorialEnergy    int                   `mapstructure:"tutorial_energy"`
	Professions       map[string]Profession `mapstructure:"professions"`
}

// Profession Описание профессии: цена и длительность обучения
type Profession struct {
	Name      string  `mapstructure:"name"`
	Cost      int     `mapstructure:"cost"`
	TimeHours float64 `mapstructure:"time_hours"`
}

type Messages struct {
	Hire     HireMessages
	Training TrainingMessages
	Menu     MenuMessages
}

type HireMessages struct {
	Success      string `mapstructure:"hireSuccess"`
	Cooldown     string `mapstructure:"hireCooldown"`
	LimitReached string `mapstructure:"hireLimitReached"`
	NoFunds      string `mapstructure:"hireNoFunds"`
	StatusReady  string `mapstructure:"hireStatusReady"`
}

type TrainingMessages struct {
	Success     string `mapstructure:"trainingSuccess"`
	NoWorkers   string `mapstructure:"trainingNoWorkers"`
	NoSlots     string `mapstructure:"trainingNoSlots"`
	Unknown     string `mapstructure:"trainingUnknown"`
	NoFunds     string `mapstructure:"trainingNoFunds"`
	Completed   string `mapstructure:"trainingCompleted"`
	SlotsStatus string `mapstructure:"trainingSlotsStatus"`
}

type MenuMessages struct {
	Welcome        string `mapstructure:"welcome"`
	TutorialReward string `mapstructure:"tutorialReward"`
	Academy        string `mapstructure:"academy"`
	LaborExchange  string `mapstructure:"laborExchange"`
	TryAgain       string `mapstructure:"tryAgain"`
}

// HireCost Расчёт стоимости найма от количества текущих рабочих
func (g Game) HireCost(currentWorkers int) int {
	return g.HireBaseCost + g.HireCostIncrement*currentWorkers
}

// HireCooldown Минимальный интервал между наймами
func (g Game) HireCooldown() time.Duration {
	return time.Duration(g.HireCooldownHours * float64(time.Hour))
}

// Duration Длительность обучения профессии
func (p Profession) Duration() time.Duration {
	return time.Duration(p.TimeHours * float64(time.Hour))
}

func Init() (*Config, error) {
	// Подключаем файл .env
	if err := godotenv.Load(); err != nil {
		log.Print("No .env file found")
	}

	if err := setUpViper(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := fromEnv(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setUpViper() error {
	viper.AddConfigPath("configs")
	viper.SetConfigName("main")

	setDefaults()

	return viper.ReadInConfig()
}

func unmarshal(cfg *Config) error {
	if err := viper.UnmarshalKey("game", &cfg.Game); err != nil {
		return err
	}

	if err := viper.UnmarshalKey("messages.hire", &cfg.Messages.Hire); err != nil {
		return err
	}

	if err := viper.UnmarshalKey("messages.training", &cfg.Messages.Training); err != nil {
		return err
	}

	return viper.UnmarshalKey("messages.menu", &cfg.Messages.Menu)
}

func fromEnv(cfg *Config) error {
	if err := viper.BindEnv("TOKEN"); err != nil {
		return err
	}
	cfg.TelegramToken = viper.GetString("token")

	if err := viper.BindEnv("ADMIN_ID"); err != nil {
		return err
	}
	cfg.AdminID, _ = strconv.ParseInt(viper.GetString("admin_id"), 10, 64)

	if err := viper.BindEnv("DB_DRIVER"); err != nil {
		return err
	}
	cfg.DBDriver = viper.GetString("DB_DRIVER")
	if cfg.DBDriver == "" {
		cfg.DBDriver = "postgres"
	}

	if err := viper.BindEnv("DSN"); err != nil {
		return err
	}
	cfg.DBDSN = viper.GetString("DSN")

	return nil
}

// setDefaults Значения по умолчанию, перекрываются configs/main.yml
func setDefaults() {
	game := DefaultGame()

	viper.SetDefault("game.max_energy", game.MaxEnergy)
	viper.SetDefault("game.base_ryabucks", game.BaseRyabucks)
	viper.SetDefault("game.hire_base_cost", game.HireBaseCost)
	viper.SetDefault("game.hire_cost_increment", game.HireCostIncrement)
	viper.SetDefault("game.hire_cooldown_hours", game.HireCooldownHours)
	viper.SetDefault("game.hire_daily_limit", game.HireDailyLimit)
	viper.SetDefault("game.training_base_slots", game.TrainingBaseSlots)
	viper.SetDefault("game.tutorial_ryabucks", game.TutorialRyabucks)
	viper.SetDefault("game.tutorial_energy", game.TutorialEnergy)

	for key, p := range game.Professions {
		viper.SetDefault("game.professions."+key+".name", p.Name)
		viper.SetDefault("game.professions."+key+".cost", p.Cost)
		viper.SetDefault("game.professions."+key+".time_hours", p.TimeHours)
	}

	msgs := DefaultMessages()

	viper.SetDefault("messages.hire.hireSuccess", msgs.Hire.Success)
	viper.SetDefault("messages.hire.hireCooldown", msgs.Hire.Cooldown)
	viper.SetDefault("messages.hire.hireLimitReached", msgs.Hire.LimitReached)
	viper.SetDefault("messages.hire.hireNoFunds", msgs.Hire.NoFunds)
	viper.SetDefault("messages.hire.hireStatusReady", msgs.Hire.StatusReady)

	viper.SetDefault("messages.training.trainingSuccess", msgs.Training.Success)
	viper.SetDefault("messages.training.trainingNoWorkers", msgs.Training.NoWorkers)
	viper.SetDefault("messages.training.trainingNoSlots", msgs.Training.NoSlots)
	viper.SetDefault("messages.training.trainingUnknown", msgs.Training.Unknown)
	viper.SetDefault("messages.training.trainingNoFunds", msgs.Training.NoFunds)
	viper.SetDefault("messages.training.trainingCompleted", msgs.Training.Completed)
	viper.SetDefault("messages.training.trainingSlotsStatus", msgs.Training.SlotsStatus)

	viper.SetDefault("messages.menu.welcome", msgs.Menu.Welcome)
	viper.SetDefault("messages.menu.tutorialReward", msgs.Menu.TutorialReward)
	viper.SetDefault("messages.menu.academy", msgs.Menu.Academy)
	viper.SetDefault("messages.menu.laborExchange", msgs.Menu.LaborExchange)
	viper.SetDefault("messages.menu.tryAgain", msgs.Menu.TryAgain)
}

// DefaultGame Базовый игровой баланс
func DefaultGame() Game {
	return Game{
		MaxEnergy:         100,
		BaseRyabucks:      1000,
		HireBaseCost:      30,
		HireCostIncrement: 5,
		HireCooldownHours: 24,
		HireDailyLimit:    3,
		TrainingBaseSlots: 2,
		TutorialRyabucks:  500,
		TutorialEnergy:    20,
		Professions: map[string]Profession{
			"builder":   {Name: "👷 Строитель", Cost: 100, TimeHours: 2},
			"farmer":    {Name: "👨‍🌾 Фермер", Cost: 100, TimeHours: 2},
			"woodman":   {Name: "🧑‍🚒 Лесник", Cost: 120, TimeHours: 3},
			"soldier":   {Name: "💂 Солдат", Cost: 150, TimeHours: 4},
			"fisherman": {Name: "🎣 Рыбак", Cost: 110, TimeHours: 2.5},
			"scientist": {Name: "👨‍🔬 Ученый", Cost: 200, TimeHours: 6},
			"cook":      {Name: "👨‍🍳 Повар", Cost: 130, TimeHours: 3},
			"teacher":   {Name: "👨‍🏫 Учитель", Cost: 180, TimeHours: 5},
			"doctor":    {Name: "🧑‍⚕️ Доктор", Cost: 220, TimeHours: 8},
		},
	}
}

// DefaultMessages Тексты по умолчанию, перекрываются configs/main.yml
func DefaultMessages() Messages {
	return Messages{
		Hire: HireMessages{
			Success:      "✅ Разнорабочий нанят! Потрачено: %d💵",
			Cooldown:     "⏰ Следующий найм через: %dч %dмин",
			LimitReached: "🚫 Достигнут лимит найма! Улучшите подписку.",
			NoFunds:      "❌ Недостаточно рябаксов! Нужно: %d💵",
			StatusReady:  "💼 Можно нанять рабочего. Стоимость: %d💵",
		},
		Training: TrainingMessages{
			Success:     "✅ %s отправлен на обучение!\n⏰ Завершится через: %dч %dмин",
			NoWorkers:   "❌ Нет свободных разнорабочих! Наймите их на бирже труда.",
			NoSlots:     "❌ Все учебные места заняты! Дождитесь окончания обучения.",
			Unknown:     "❌ Неизвестная профессия!",
			NoFunds:     "❌ Недостаточно рябаксов! Нужно: %d💵",
			Completed:   "🎓 Обучение завершено! Выпустилось специалистов: %d",
			SlotsStatus: "📚 Учебные места: %d/%d",
		},
		Menu: MenuMessages{
			Welcome:        "🏝 Добро пожаловать на Остров Рябот!",
			TutorialReward: "🎁 Подъёмные новичка: %d💵 и %d⚡",
			Academy:        "🏫 Академия\n\n👷 Разнорабочих: %d\n📖 На обучении: %d\n🎓 Специалистов: %d",
			LaborExchange:  "💼 Биржа труда\n\n👷 Разнорабочих: %d\n\n%s",
			TryAgain:       "⚠️ Произошла ошибка. Попробуйте позже.",
		},
	}
}
