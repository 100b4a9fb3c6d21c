package academy

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ryabotIsland/pkg/config"
	"ryabotIsland/pkg/models"
	"ryabotIsland/pkg/storage"
	"ryabotIsland/pkg/storage/postgres"
)

const testAccountID int64 = 100500

var testDBSeq int64

// fakeClock управляемое время для проверок кулдаунов и сроков обучения
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestRepository Репозиторий поверх sqlite в памяти.
// Имя базы уникально на тест, иначе пул соединений gorm увидит разные базы.
func newTestRepository(t *testing.T, game config.Game) *postgres.Repository {
	t.Helper()

	dsn := fmt.Sprintf("file:academy_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	err = db.AutoMigrate(
		&models.Account{},
		&models.HiredWorker{},
		&models.HireCooldown{},
		&models.TrainingUnit{},
		&models.TrainedSpecialist{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return postgres.NewRepository(db, game.MaxEnergy, game.BaseRyabucks)
}

func newTestEngine(t *testing.T, game config.Game, clock *fakeClock) (*Engine, *postgres.Repository) {
	t.Helper()

	repo := newTestRepository(t, game)
	engine := NewEngine(repo, game, config.DefaultMessages())
	engine.now = clock.Now

	if _, err := repo.CreateAccount(testAccountID, "islander"); err != nil {
		t.Fatalf("create account: %v", err)
	}

	return engine, repo
}

func balance(t *testing.T, repo *postgres.Repository) int {
	t.Helper()

	account, err := repo.GetAccount(testAccountID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}

	return account.Ryabucks
}

func mustHire(t *testing.T, engine *Engine) HireResult {
	t.Helper()

	result, err := engine.HireWorker(testAccountID)
	if err != nil {
		t.Fatalf("HireWorker: %v", err)
	}
	if !result.Success {
		t.Fatalf("hire rejected: %s", result.Message)
	}

	return result
}

// noCooldownGame баланс без кулдауна и с большим дневным лимитом,
// чтобы проверять стоимость и обучение отдельно от ограничений найма
func noCooldownGame() config.Game {
	game := config.DefaultGame()
	game.HireCooldownHours = 0
	game.HireDailyLimit = 100
	return game
}

func TestHireCostGrowsPerWorker(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, noCooldownGame(), clock)

	wantCosts := []int{30, 35, 40}
	wantBalance := 1000
	for i, want := range wantCosts {
		result := mustHire(t, engine)
		if result.Cost != want {
			t.Fatalf("hire %d: cost = %d, want %d", i+1, result.Cost, want)
		}
		wantBalance -= want
		if got := balance(t, repo); got != wantBalance {
			t.Fatalf("hire %d: balance = %d, want %d", i+1, got, wantBalance)
		}
	}

	counts, err := engine.HiredWorkersCount(testAccountID)
	if err != nil {
		t.Fatalf("HiredWorkersCount: %v", err)
	}
	if counts[models.WorkerTypeLaborer] != 3 {
		t.Fatalf("laborers = %d, want 3", counts[models.WorkerTypeLaborer])
	}
}

func TestHireRejectedWithinCooldown(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, config.DefaultGame(), clock)

	mustHire(t, engine)
	clock.Advance(time.Hour)

	decision, err := engine.CanHireWorker(testAccountID)
	if err != nil {
		t.Fatalf("CanHireWorker: %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected rejection within cooldown")
	}
	if decision.Reason != ReasonCooldown {
		t.Fatalf("reason = %q, want %q", decision.Reason, ReasonCooldown)
	}
	retry := int(decision.RetryAfter.Seconds())
	if retry <= 0 || retry > 86400 {
		t.Fatalf("retry after = %ds, want (0, 86400]", retry)
	}

	result, err := engine.HireWorker(testAccountID)
	if err != nil {
		t.Fatalf("HireWorker: %v", err)
	}
	if result.Success {
		t.Fatal("second hire within cooldown must fail")
	}
	if !strings.Contains(result.Message, "23ч") {
		t.Fatalf("cooldown message without remaining time: %s", result.Message)
	}
}

func TestHireRejectedAfterDailyLimit(t *testing.T) {
	game := config.DefaultGame()
	game.HireCooldownHours = 0

	clock := newFakeClock(time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, game, clock)

	for i := 0; i < game.HireDailyLimit; i++ {
		mustHire(t, engine)
		clock.Advance(time.Minute)
	}

	decision, err := engine.CanHireWorker(testAccountID)
	if err != nil {
		t.Fatalf("CanHireWorker: %v", err)
	}
	if decision.Allowed || decision.Reason != ReasonLimitReached {
		t.Fatalf("decision = %+v, want limit_reached", decision)
	}

	result, err := engine.HireWorker(testAccountID)
	if err != nil {
		t.Fatalf("HireWorker: %v", err)
	}
	if result.Success {
		t.Fatal("fourth hire of the day must fail")
	}

	// Следующий день: счётчик обнуляется лениво, наём снова доступен
	clock.Advance(24 * time.Hour)
	mustHire(t, engine)
}

func TestHireRejectedOnInsufficientFunds(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, noCooldownGame(), clock)

	if err := repo.ApplyAccountDelta(testAccountID, storage.AccountDelta{Ryabucks: -980}); err != nil {
		t.Fatalf("drain balance: %v", err)
	}

	result, err := engine.HireWorker(testAccountID)
	if err != nil {
		t.Fatalf("HireWorker: %v", err)
	}
	if result.Success {
		t.Fatal("hire with balance 20 must fail")
	}
	if !strings.Contains(result.Message, "30") {
		t.Fatalf("message must name the cost: %s", result.Message)
	}
	if got := balance(t, repo); got != 20 {
		t.Fatalf("balance changed on rejected hire: %d", got)
	}
}

func TestStartTrainingRequiresIdleLaborer(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, noCooldownGame(), clock)

	result, err := engine.StartTraining(testAccountID, "builder")
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if result.Success {
		t.Fatal("training without laborers must fail")
	}
	if result.Message != config.DefaultMessages().Training.NoWorkers {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestStartTrainingRespectsSlotLimit(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, noCooldownGame(), clock)

	// Денег хватит на трёх рабочих и три обучения
	if err := repo.ApplyAccountDelta(testAccountID, storage.AccountDelta{Ryabucks: 1000}); err != nil {
		t.Fatalf("top up: %v", err)
	}

	for i := 0; i < 3; i++ {
		mustHire(t, engine)
	}

	for i := 0; i < 2; i++ {
		result, err := engine.StartTraining(testAccountID, "builder")
		if err != nil {
			t.Fatalf("StartTraining %d: %v", i+1, err)
		}
		if !result.Success {
			t.Fatalf("StartTraining %d rejected: %s", i+1, result.Message)
		}
	}

	slots, err := engine.TrainingSlotsInfo(testAccountID)
	if err != nil {
		t.Fatalf("TrainingSlotsInfo: %v", err)
	}
	if slots.Used != 2 || slots.Available != 0 {
		t.Fatalf("slots = %+v, want used 2, available 0", slots)
	}

	result, err := engine.StartTraining(testAccountID, "builder")
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if result.Success {
		t.Fatal("third training with two slots must fail")
	}
	if result.Message != config.DefaultMessages().Training.NoSlots {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestStartTrainingUnknownProfession(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, noCooldownGame(), clock)

	mustHire(t, engine)

	result, err := engine.StartTraining(testAccountID, "astronaut")
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if result.Success {
		t.Fatal("unknown profession must fail")
	}
	if result.Message != config.DefaultMessages().Training.Unknown {
		t.Fatalf("unexpected message: %s", result.Message)
	}
}

func TestStartTrainingInsufficientFunds(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, noCooldownGame(), clock)

	mustHire(t, engine)

	// После найма остаётся 970, доктор стоит 220
	if err := repo.ApplyAccountDelta(testAccountID, storage.AccountDelta{Ryabucks: -900}); err != nil {
		t.Fatalf("drain balance: %v", err)
	}

	result, err := engine.StartTraining(testAccountID, "doctor")
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if result.Success {
		t.Fatal("training without funds must fail")
	}
	if !strings.Contains(result.Message, "220") {
		t.Fatalf("message must name the cost: %s", result.Message)
	}
}

func TestCompleteTrainingsRoundTrip(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, noCooldownGame(), clock)

	mustHire(t, engine)
	if got := balance(t, repo); got != 970 {
		t.Fatalf("balance after hire = %d, want 970", got)
	}

	result, err := engine.StartTraining(testAccountID, "builder")
	if err != nil {
		t.Fatalf("StartTraining: %v", err)
	}
	if !result.Success {
		t.Fatalf("StartTraining rejected: %s", result.Message)
	}
	if got := balance(t, repo); got != 870 {
		t.Fatalf("balance after training = %d, want 870", got)
	}

	// До срока выпуска ничего не завершается
	done, err := engine.CompleteTrainings(testAccountID)
	if err != nil {
		t.Fatalf("CompleteTrainings: %v", err)
	}
	if done != 0 {
		t.Fatalf("early completion: %d", done)
	}

	clock.Advance(2*time.Hour + time.Second)

	done, err = engine.CompleteTrainings(testAccountID)
	if err != nil {
		t.Fatalf("CompleteTrainings: %v", err)
	}
	if done != 1 {
		t.Fatalf("completed = %d, want 1", done)
	}

	specialists, err := engine.SpecialistsCount(testAccountID)
	if err != nil {
		t.Fatalf("SpecialistsCount: %v", err)
	}
	if specialists["builder"] != 1 {
		t.Fatalf("specialists = %v, want builder:1", specialists)
	}

	// Рабочий переобучен и больше не числится
	workers, err := engine.HiredWorkersCount(testAccountID)
	if err != nil {
		t.Fatalf("HiredWorkersCount: %v", err)
	}
	if workers[models.WorkerTypeLaborer] != 0 {
		t.Fatalf("consumed worker still counted: %v", workers)
	}

	trainings, err := engine.ActiveTrainings(testAccountID)
	if err != nil {
		t.Fatalf("ActiveTrainings: %v", err)
	}
	if len(trainings) != 0 {
		t.Fatalf("active trainings remain: %v", trainings)
	}

	// Повторный вызов ничего не находит
	done, err = engine.CompleteTrainings(testAccountID)
	if err != nil {
		t.Fatalf("CompleteTrainings: %v", err)
	}
	if done != 0 {
		t.Fatalf("second sweep completed %d", done)
	}
}

func TestConcurrentHireSingleSuccess(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, repo := newTestEngine(t, config.DefaultGame(), clock)

	var successes int64
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := engine.HireWorker(testAccountID)
			if err != nil {
				t.Errorf("HireWorker: %v", err)
				return
			}
			if result.Success {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("successful hires = %d, want 1", successes)
	}

	workers, err := repo.Workers(testAccountID, storage.WorkerFilter{})
	if err != nil {
		t.Fatalf("Workers: %v", err)
	}
	if len(workers) != 1 {
		t.Fatalf("workers in store = %d, want 1", len(workers))
	}
	if got := balance(t, repo); got != 970 {
		t.Fatalf("balance = %d, want 970", got)
	}
}

func TestActiveTrainingsReportTimeLeft(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	engine, _ := newTestEngine(t, noCooldownGame(), clock)

	mustHire(t, engine)
	if result, err := engine.StartTraining(testAccountID, "soldier"); err != nil || !result.Success {
		t.Fatalf("StartTraining: %v %+v", err, result)
	}

	clock.Advance(time.Hour)

	trainings, err := engine.ActiveTrainings(testAccountID)
	if err != nil {
		t.Fatalf("ActiveTrainings: %v", err)
	}
	if len(trainings) != 1 {
		t.Fatalf("trainings = %d, want 1", len(trainings))
	}
	if trainings[0].Profession != "soldier" {
		t.Fatalf("profession = %s, want soldier", trainings[0].Profession)
	}
	if trainings[0].TimeLeft != 3*time.Hour {
		t.Fatalf("time left = %s, want 3h", trainings[0].TimeLeft)
	}
}
