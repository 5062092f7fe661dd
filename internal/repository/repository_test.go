// Package repository tests use testcontainers-go to spin up a
// PostgreSQL container and run against the real schema.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"osrs-game-engine/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container, applies the schema, and
// returns a connection pool. Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, pool))

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

func createTestPlayer(t *testing.T, pool *pgxpool.Pool, discordID int64) *model.Player {
	t.Helper()
	player, err := NewPlayerRepository(pool).Create(context.Background(), discordID, "testplayer", 25)
	require.NoError(t, err)
	return player
}

func createTestItem(t *testing.T, pool *pgxpool.Pool, item *model.Item) int64 {
	t.Helper()
	id, err := NewItemRepository(pool).Upsert(context.Background(), item)
	require.NoError(t, err)
	return id
}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	player, err := repo.Create(ctx, 12345, "testplayer", 25)
	require.NoError(t, err)
	assert.Equal(t, int64(12345), player.DiscordID)
	assert.Equal(t, "testplayer", player.Username)
	assert.Equal(t, int64(25), player.Coins)
	// Fresh derived levels: 22 skills at 1 plus hitpoints at 10.
	assert.Equal(t, 32, player.TotalLevel)
	assert.Equal(t, 3, player.CombatLevel)
	assert.Equal(t, model.PlayerStatusActive, player.Status)

	// Every skill row must exist from the start.
	skills, err := NewSkillRepository(pool).GetAll(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, skills, len(model.AllSkills))

	hp, err := NewSkillRepository(pool).Get(ctx, player.ID, model.SkillHitpoints)
	require.NoError(t, err)
	assert.Equal(t, 10, hp.Level)
	assert.Equal(t, int64(1154), hp.Experience)
}

func TestPlayerRepository_GetOrCreate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	player, created, err := repo.GetOrCreate(ctx, 12345, "testplayer", 25)
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := repo.GetOrCreate(ctx, 12345, "testplayer", 25)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, player.ID, again.ID)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_AdjustCoins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	updated, err := repo.AdjustCoins(ctx, player.ID, 500)
	require.NoError(t, err)
	assert.Equal(t, int64(525), updated.Coins)

	updated, err = repo.AdjustCoins(ctx, player.ID, -525)
	require.NoError(t, err)
	assert.Equal(t, int64(0), updated.Coins)

	// Debit past zero fails without changing the row.
	_, err = repo.AdjustCoins(ctx, player.ID, -1)
	assert.ErrorIs(t, err, ErrInsufficientCoins)

	current, err := repo.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current.Coins)

	_, err = repo.AdjustCoins(ctx, 99999, 100)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	itemID := createTestItem(t, pool, &model.Item{Name: "Coins bag", Tradeable: true, Stackable: true})
	invRepo := NewInventoryRepository(pool)
	require.NoError(t, invRepo.InsertSlot(ctx, player.ID, model.ContainerInventory, 0, itemID, 5))

	_, err := NewAchievementRepository(pool).Award(ctx, player.ID, "first_victory")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, player.ID))

	_, err = repo.GetByID(ctx, player.ID)
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	skills, err := NewSkillRepository(pool).GetAll(ctx, player.ID)
	require.NoError(t, err)
	assert.Empty(t, skills)

	slots, err := invRepo.GetSlots(ctx, player.ID, model.ContainerInventory)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

// ============================================================================
// SkillRepository Tests
// ============================================================================

func TestSkillRepository_SetExperience(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSkillRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	require.NoError(t, repo.SetExperience(ctx, player.ID, model.SkillAttack, 1154, 10))

	skill, err := repo.Get(ctx, player.ID, model.SkillAttack)
	require.NoError(t, err)
	assert.Equal(t, int64(1154), skill.Experience)
	assert.Equal(t, 10, skill.Level)

	// The guard refuses a regression.
	err = repo.SetExperience(ctx, player.ID, model.SkillAttack, 100, 2)
	assert.ErrorIs(t, err, ErrSkillNotFound)

	skill, err = repo.Get(ctx, player.ID, model.SkillAttack)
	require.NoError(t, err)
	assert.Equal(t, int64(1154), skill.Experience)
}

func TestSkillRepository_SumLevels(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSkillRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	sum, err := repo.SumLevels(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 32, sum)

	require.NoError(t, repo.SetExperience(ctx, player.ID, model.SkillCooking, 101333, 50))

	sum, err = repo.SumLevels(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 81, sum)
}

func TestSkillRepository_CombatLevels(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewSkillRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	levels, err := repo.CombatLevels(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, levels, 7)
	assert.Equal(t, 10, levels[model.SkillHitpoints])
	assert.Equal(t, 1, levels[model.SkillAttack])
}

// ============================================================================
// InventoryRepository Tests
// ============================================================================

func TestInventoryRepository_SlotLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInventoryRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{Name: "Feather", Tradeable: true, Stackable: true})

	slot, err := repo.GetSlot(ctx, player.ID, model.ContainerInventory, 0)
	require.NoError(t, err)
	assert.Nil(t, slot)

	require.NoError(t, repo.InsertSlot(ctx, player.ID, model.ContainerInventory, 0, itemID, 10))
	require.NoError(t, repo.AddQuantity(ctx, player.ID, model.ContainerInventory, 0, itemID, 5))

	slot, err = repo.GetSlot(ctx, player.ID, model.ContainerInventory, 0)
	require.NoError(t, err)
	require.NotNil(t, slot)
	assert.Equal(t, int64(15), slot.Quantity)

	// Removing more than held fails without changing the slot.
	err = repo.RemoveQuantity(ctx, player.ID, model.ContainerInventory, 0, 20)
	assert.ErrorIs(t, err, ErrShortQuantity)

	require.NoError(t, repo.RemoveQuantity(ctx, player.ID, model.ContainerInventory, 0, 15))

	// Emptied slots are swept away.
	slot, err = repo.GetSlot(ctx, player.ID, model.ContainerInventory, 0)
	require.NoError(t, err)
	assert.Nil(t, slot)
}

func TestInventoryRepository_FirstFreeSlot(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInventoryRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{Name: "Feather", Tradeable: true, Stackable: true})

	free, err := repo.FirstFreeSlot(ctx, player.ID, model.ContainerInventory)
	require.NoError(t, err)
	assert.Equal(t, 0, free)

	require.NoError(t, repo.InsertSlot(ctx, player.ID, model.ContainerInventory, 0, itemID, 1))

	free, err = repo.FirstFreeSlot(ctx, player.ID, model.ContainerInventory)
	require.NoError(t, err)
	assert.Equal(t, 1, free)
}

func TestInventoryRepository_Equipment(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewInventoryRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{
		Name: "Bronze sword", Tradeable: true, Equipable: true, EquipSlot: model.EquipSlotWeapon,
	})

	worn, err := repo.GetEquipSlot(ctx, player.ID, model.EquipSlotWeapon)
	require.NoError(t, err)
	assert.Nil(t, worn)

	require.NoError(t, repo.SetEquipSlot(ctx, player.ID, model.EquipSlotWeapon, itemID, 1))

	worn, err = repo.GetEquipSlot(ctx, player.ID, model.EquipSlotWeapon)
	require.NoError(t, err)
	require.NotNil(t, worn)
	assert.Equal(t, itemID, worn.ItemID)

	require.NoError(t, repo.ClearEquipSlot(ctx, player.ID, model.EquipSlotWeapon))

	worn, err = repo.GetEquipSlot(ctx, player.ID, model.EquipSlotWeapon)
	require.NoError(t, err)
	assert.Nil(t, worn)
}

// ============================================================================
// ItemRepository Tests
// ============================================================================

func TestItemRepository_UpsertWithRequirements(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewItemRepository(pool)
	ctx := context.Background()

	id, err := repo.Upsert(ctx, &model.Item{
		Name:      "Rune scimitar",
		Tradeable: true,
		Equipable: true,
		EquipSlot: model.EquipSlotWeapon,
		BaseValue: 15000,
		Requirements: []model.Requirement{
			model.LevelRequirement{Skill: model.SkillAttack, Level: 40},
		},
	})
	require.NoError(t, err)

	item, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Rune scimitar", item.Name)
	require.Len(t, item.Requirements, 1)
	req, ok := item.Requirements[0].(model.LevelRequirement)
	require.True(t, ok)
	assert.Equal(t, model.SkillAttack, req.Skill)
	assert.Equal(t, 40, req.Level)

	// Upsert by name updates in place.
	id2, err := repo.Upsert(ctx, &model.Item{Name: "Rune scimitar", Tradeable: true, BaseValue: 16000})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrItemNotFound)
}

// ============================================================================
// OrderRepository Tests
// ============================================================================

func TestOrderRepository_FillLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{Name: "Lobster", Tradeable: true})

	order, err := repo.Create(ctx, player.ID, itemID, model.OrderSideBuy, 10, 150)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusActive, order.Status)
	assert.Equal(t, int64(10), order.Remaining())

	order, err = repo.ApplyFill(ctx, order.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(6), order.Remaining())
	assert.Equal(t, model.OrderStatusActive, order.Status)

	// Overfilling is refused.
	_, err = repo.ApplyFill(ctx, order.ID, 7)
	assert.ErrorIs(t, err, ErrOverfill)

	order, err = repo.ApplyFill(ctx, order.ID, 6)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCompleted, order.Status)

	// A completed order cannot be filled again.
	_, err = repo.ApplyFill(ctx, order.ID, 1)
	assert.ErrorIs(t, err, ErrOverfill)
}

func TestOrderRepository_Cancel(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{Name: "Lobster", Tradeable: true})

	order, err := repo.Create(ctx, player.ID, itemID, model.OrderSideSell, 10, 150)
	require.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusCancelled, cancelled.Status)

	_, err = repo.Cancel(ctx, order.ID)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestOrderRepository_RestingBookExcludesOwnOrders(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool)
	ctx := context.Background()
	buyer := createTestPlayer(t, pool, 1)
	seller := createTestPlayer(t, pool, 2)
	itemID := createTestItem(t, pool, &model.Item{Name: "Lobster", Tradeable: true})

	_, err := repo.Create(ctx, seller.ID, itemID, model.OrderSideSell, 5, 100)
	require.NoError(t, err)
	_, err = repo.Create(ctx, buyer.ID, itemID, model.OrderSideSell, 5, 90)
	require.NoError(t, err)

	// The buyer's own resting sell must not appear as a counterparty.
	book, err := repo.RestingBook(ctx, itemID, model.OrderSideBuy, 150, buyer.ID)
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.Equal(t, seller.ID, book[0].PlayerID)

	// Price-incompatible asks stay off the view.
	book, err = repo.RestingBook(ctx, itemID, model.OrderSideBuy, 99, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, book)
}

func TestOrderRepository_GuidePrice(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewOrderRepository(pool)
	ctx := context.Background()
	buyer := createTestPlayer(t, pool, 1)
	seller := createTestPlayer(t, pool, 2)
	itemID := createTestItem(t, pool, &model.Item{Name: "Lobster", Tradeable: true, BaseValue: 120})

	since := time.Now().Add(-24 * time.Hour)

	// No trades yet: the catalog base value stands in.
	price, err := repo.GuidePrice(ctx, itemID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(120), price)

	buy, err := repo.Create(ctx, buyer.ID, itemID, model.OrderSideBuy, 10, 200)
	require.NoError(t, err)
	sell, err := repo.Create(ctx, seller.ID, itemID, model.OrderSideSell, 10, 100)
	require.NoError(t, err)

	_, err = repo.InsertTrade(ctx, itemID, buy.ID, sell.ID, 6, 100)
	require.NoError(t, err)
	_, err = repo.InsertTrade(ctx, itemID, buy.ID, sell.ID, 2, 200)
	require.NoError(t, err)

	// Volume-weighted: (6*100 + 2*200) / 8.
	price, err = repo.GuidePrice(ctx, itemID, since)
	require.NoError(t, err)
	assert.Equal(t, int64(125), price)
}

// ============================================================================
// AchievementRepository Tests
// ============================================================================

func TestAchievementRepository_AwardIsIdempotent(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	created, err := repo.Award(ctx, player.ID, "first_victory")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.Award(ctx, player.ID, "first_victory")
	require.NoError(t, err)
	assert.False(t, created)

	achievements, err := repo.List(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, achievements, 1)
}

func TestAchievementRepository_CollectionLog(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)
	itemID := createTestItem(t, pool, &model.Item{Name: "Dragon chainbody", Tradeable: true})

	created, err := repo.LogCollection(ctx, player.ID, itemID)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = repo.LogCollection(ctx, player.ID, itemID)
	require.NoError(t, err)
	assert.False(t, created)

	entries, err := repo.ListCollection(ctx, player.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAchievementRepository_CompleteQuestAwardsPointsOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewAchievementRepository(pool)
	players := NewPlayerRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	questID, err := repo.UpsertQuest(ctx, "Dragon Slayer", 2)
	require.NoError(t, err)

	created, err := repo.CompleteQuest(ctx, player.ID, questID)
	require.NoError(t, err)
	assert.True(t, created)

	// Replaying must not double-count the points.
	created, err = repo.CompleteQuest(ctx, player.ID, questID)
	require.NoError(t, err)
	assert.False(t, created)

	current, err := players.GetByID(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, current.QuestPoints)

	done, err := repo.HasQuest(ctx, player.ID, questID)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = repo.CompleteQuest(ctx, player.ID, 99999)
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

// ============================================================================
// BattleRepository Tests
// ============================================================================

func TestBattleRepository_GetOrInitRating(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBattleRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	br, err := repo.GetOrInitRating(ctx, player.ID, model.BattleCategoryDuel, 1500, 350)
	require.NoError(t, err)
	assert.Equal(t, 1500.0, br.Rating)
	assert.Equal(t, 350.0, br.Uncertainty)
	assert.Equal(t, 0, br.Wins)

	br.Rating = 1516
	br.Uncertainty = 332.5
	br.Wins = 1
	br.Streak = 1
	br.BestStreak = 1
	require.NoError(t, repo.SaveRating(ctx, br))

	// Re-init returns the saved row, not fresh defaults.
	br, err = repo.GetOrInitRating(ctx, player.ID, model.BattleCategoryDuel, 1500, 350)
	require.NoError(t, err)
	assert.Equal(t, 1516.0, br.Rating)
	assert.Equal(t, 1, br.Wins)
	require.NotNil(t, br.LastBattle)
}

func TestBattleRepository_GrowUncertaintyGuard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBattleRepository(pool)
	ctx := context.Background()
	player := createTestPlayer(t, pool, 12345)

	br, err := repo.GetOrInitRating(ctx, player.ID, model.BattleCategoryDuel, 1500, 100)
	require.NoError(t, err)

	ok, err := repo.GrowUncertainty(ctx, player.ID, model.BattleCategoryDuel, 110, br.RDUpdatedAt)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second pass holding the stale timestamp loses the guard.
	ok, err = repo.GrowUncertainty(ctx, player.ID, model.BattleCategoryDuel, 121, br.RDUpdatedAt)
	require.NoError(t, err)
	assert.False(t, ok)

	current, err := repo.GetRating(ctx, player.ID, model.BattleCategoryDuel)
	require.NoError(t, err)
	assert.Equal(t, 110.0, current.Uncertainty)
}

func TestBattleRepository_Records(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewBattleRepository(pool)
	ctx := context.Background()
	a := createTestPlayer(t, pool, 1)
	b := createTestPlayer(t, pool, 2)

	winner := a.ID
	rec, err := repo.InsertRecord(ctx, &model.BattleRecord{
		Category: model.BattleCategoryDuel,
		PlayerA:  a.ID,
		PlayerB:  b.ID,
		WinnerID: &winner,
		Duration: 45,
		Payload:  []byte(`{"damage_by_a":99,"damage_by_b":60}`),
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	records, err := repo.ListRecords(ctx, b.ID, model.BattleCategoryDuel, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)

	records, err = repo.ListRecords(ctx, b.ID, model.BattleCategoryCreature, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

// ============================================================================
// TournamentRepository Tests
// ============================================================================

func TestTournamentRepository_MatchLifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewTournamentRepository(pool)
	ctx := context.Background()
	a := createTestPlayer(t, pool, 1)
	b := createTestPlayer(t, pool, 2)

	tournament, err := repo.Create(ctx, "Weekly duels", model.BattleCategoryTourney, 1)
	require.NoError(t, err)
	assert.Equal(t, model.TournamentStatusActive, tournament.Status)
	assert.Equal(t, 1, tournament.CurrentRound)

	match, err := repo.InsertMatch(ctx, &model.TournamentMatch{
		TournamentID: tournament.ID,
		Round:        1,
		Position:     0,
		Player1:      &a.ID,
		Player2:      &b.ID,
		Status:       model.MatchStatusPending,
	})
	require.NoError(t, err)

	unfinished, err := repo.CountUnfinished(ctx, tournament.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, unfinished)

	match.WinnerID = &a.ID
	match.Status = model.MatchStatusCompleted
	require.NoError(t, repo.UpdateMatch(ctx, match))

	unfinished, err = repo.CountUnfinished(ctx, tournament.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, unfinished)

	got, err := repo.GetMatchByPosition(ctx, tournament.ID, 1, 0)
	require.NoError(t, err)
	require.NotNil(t, got.WinnerID)
	assert.Equal(t, a.ID, *got.WinnerID)

	_, err = repo.GetMatchByPosition(ctx, tournament.ID, 2, 0)
	assert.ErrorIs(t, err, ErrMatchNotFound)
}
