package tests

import (
	"context"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/michaelmgp/obs/internal/adapter/storage"
	"github.com/michaelmgp/obs/internal/core/domain"
	"github.com/michaelmgp/obs/internal/core/service"
)

type testEnv struct {
	mysql   *sqlx.DB
	redis   *redis.Client
	store   *storage.MySQLStore
	cache   *storage.RedisCache
	cleanup func()
}

func setupTestEnv(t *testing.T) *testEnv {
	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		mysqlDSN = "root:root@tcp(localhost:3306)/obs?parseTime=true"
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	db, err := sqlx.Open("mysql", mysqlDSN)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		db.Close()
		t.Skipf("Redis not available: %v", err)
	}

	return &testEnv{
		mysql: db,
		redis: rdb,
		store: storage.NewMySQLStore(db),
		cache: storage.NewRedisCache(rdb),
		cleanup: func() {
			rdb.Close()
			db.Close()
		},
	}
}

func (env *testEnv) purgeItem(t *testing.T, name string) {
	t.Helper()
	ctx := context.Background()

	var ids []int64
	if err := env.mysql.SelectContext(ctx, &ids, `SELECT id FROM items WHERE name = ?`, name); err != nil {
		t.Fatalf("lookup test item: %v", err)
	}

	for _, id := range ids {
		env.mysql.ExecContext(ctx, `DELETE FROM orders WHERE item_id = ?`, id)
		env.mysql.ExecContext(ctx, `DELETE FROM inventory_transactions WHERE item_id = ?`, id)
		env.mysql.ExecContext(ctx, `DELETE FROM inventory WHERE item_id = ?`, id)
		env.mysql.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	}
}

func TestIntegration_FullOrderFlow(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	const itemName = "Integration Flow Item"
	env.purgeItem(t, itemName)
	defer env.purgeItem(t, itemName)

	ctx := context.Background()
	logger := zap.NewNop()

	items := service.NewItemService(env.store)
	transactions := service.NewTransactionService(env.store, logger)
	orders := service.NewOrderService(env.store, env.cache, logger)

	item, err := items.Create(ctx, domain.Item{Name: itemName, Price: 2500})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	if _, err := transactions.Record(ctx, domain.InventoryTransaction{
		ItemID: item.ID, Qty: 11, Type: domain.TypeTopUp,
	}); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	// a warm-up order so the concurrent burst always has a last row to lock
	warmup, err := orders.Place(ctx, item.ID, 1, uuid.NewString())
	if err != nil {
		t.Fatalf("warm-up order failed: %v", err)
	}
	if warmup.Price != 2500 {
		t.Errorf("expected snapshotted price 2500, got %d", warmup.Price)
	}

	const (
		totalRequests = 20
		remaining     = 10
	)

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
	)

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := orders.Place(ctx, item.ID, 1, uuid.NewString()); err == nil {
				succeeded.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := succeeded.Load(); got != remaining {
		t.Errorf("expected exactly %d successful orders, got %d", remaining, got)
	}

	var stock int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE item_id = ?`, item.ID).Scan(&stock)
	if stock != 0 {
		t.Errorf("expected stock 0 after sellout, got %d", stock)
	}

	var orderNos []string
	if err := env.mysql.SelectContext(ctx, &orderNos,
		`SELECT order_no FROM orders WHERE item_id = ?`, item.ID); err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orderNos) != remaining+1 {
		t.Fatalf("expected %d orders, got %d", remaining+1, len(orderNos))
	}

	nums := make([]int64, 0, len(orderNos))
	seen := make(map[string]bool, len(orderNos))
	for _, no := range orderNos {
		if seen[no] {
			t.Errorf("order number %s issued twice", no)
		}
		seen[no] = true

		n, err := domain.ParseOrderNo(no)
		if err != nil {
			t.Fatalf("bad order number %q: %v", no, err)
		}
		nums = append(nums, n)
	}

	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	for i := 1; i < len(nums); i++ {
		if nums[i] != nums[i-1]+1 {
			t.Errorf("gap in order numbers: %d then %d", nums[i-1], nums[i])
		}
	}

	if _, err := orders.Place(ctx, item.ID, 1, uuid.NewString()); err == nil {
		t.Fatal("expected failure, the item is sold out")
	}
}

func TestIntegration_DuplicateRequest(t *testing.T) {
	env := setupTestEnv(t)
	defer env.cleanup()

	const itemName = "Integration Replay Item"
	env.purgeItem(t, itemName)
	defer env.purgeItem(t, itemName)

	ctx := context.Background()
	logger := zap.NewNop()

	items := service.NewItemService(env.store)
	transactions := service.NewTransactionService(env.store, logger)
	orders := service.NewOrderService(env.store, env.cache, logger)

	item, err := items.Create(ctx, domain.Item{Name: itemName, Price: 100})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	if _, err := transactions.Record(ctx, domain.InventoryTransaction{
		ItemID: item.ID, Qty: 5, Type: domain.TypeTopUp,
	}); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	requestID := uuid.NewString()
	defer env.redis.Del(ctx, "order:"+requestID)

	if _, err := orders.Place(ctx, item.ID, 1, requestID); err != nil {
		t.Fatalf("first placement failed: %v", err)
	}

	_, err = orders.Place(ctx, item.ID, 1, requestID)
	if err == nil {
		t.Fatal("expected the replay to be rejected")
	}

	var count int
	env.mysql.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE item_id = ?`, item.ID).Scan(&count)
	if count != 1 {
		t.Errorf("expected 1 order, got %d", count)
	}

	var stock int
	env.mysql.QueryRowContext(ctx, `SELECT stock FROM inventory WHERE item_id = ?`, item.ID).Scan(&stock)
	if stock != 4 {
		t.Errorf("expected stock 4, got %d", stock)
	}
}
