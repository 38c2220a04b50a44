package devicesync_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/easybuilders/merchantpro_backend/config"
	"github.com/easybuilders/merchantpro_backend/devicesync"
	"github.com/easybuilders/merchantpro_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupIntegration(t *testing.T) (*gorm.DB, *config.RedisStore) {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "merchantpro_test")

	db := config.ConnectDatabaseWithRetry()
	cache := config.ConnectRedis()
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db, cache
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestReconcilerAppliesBatchWithIndependentItems(t *testing.T) {
	db, cache := setupIntegration(t)
	ctx := context.Background()

	if err := db.Create(&models.Store{Code: "SOW", Name: "Soweto Branch"}).Error; err != nil {
		t.Fatalf("seed store: %v", err)
	}
	customer, err := models.CreateCustomer(ctx, db, &models.NewCustomer{Name: "Thabo Traders"})
	if err != nil {
		t.Fatalf("seed customer: %v", err)
	}

	reconciler := devicesync.NewReconciler(db, cache, config.NewLogger())

	goodInvoice := mustJSON(t, models.NewInvoice{
		StoreCode:   "SOW",
		CustomerId:  customer.ID,
		InvoiceDate: "2026-02-01",
		DueDate:     "2026-03-01",
		Items: []models.NewLineItem{
			{Description: "Bricks", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.RequireFromString("2.50"), VatRate: decimal.NewFromInt(15)},
		},
	})

	resp, err := reconciler.Process(ctx, &devicesync.SyncRequest{
		DeviceId: "till-1",
		Queue: []models.QueuedItem{
			{ClientKey: "k-inv-1", Action: models.SyncActionCreate, EntityType: models.SyncEntityInvoice, Payload: goodInvoice},
			{ClientKey: "k-bad-1", Action: models.SyncActionCreate, EntityType: models.SyncEntityInvoice, Payload: mustJSON(t, models.NewInvoice{
				StoreCode:   "SOW",
				CustomerId:  999999,
				InvoiceDate: "2026-02-01",
				DueDate:     "2026-03-01",
				Items:       []models.NewLineItem{{Description: "x", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(10)}},
			})},
			{ClientKey: "k-cus-1", Action: models.SyncActionCreate, EntityType: models.SyncEntityCustomer, Payload: mustJSON(t, models.NewCustomer{Name: "Lindiwe Hardware"})},
		},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Processed != 2 {
		t.Fatalf("expected 2 processed, got %d (errors: %+v)", resp.Processed, resp.Errors)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].Index != 1 {
		t.Fatalf("expected the missing-customer item to fail alone, got %+v", resp.Errors)
	}

	// The good invoice committed with a freshly allocated number.
	var invoice models.Invoice
	if err := db.Preload("Items").Where("store_code = ?", "SOW").First(&invoice).Error; err != nil {
		t.Fatalf("load invoice: %v", err)
	}
	if invoice.InvoiceNumber != "SOW-1001" {
		t.Fatalf("expected number SOW-1001, got %s", invoice.InvoiceNumber)
	}
	if invoice.Total.String() != "287.5" {
		t.Fatalf("expected total 287.5, got %s", invoice.Total)
	}

	// Every received item left a reconciliation log row.
	var logCount int64
	if err := db.Model(&models.SyncQueueRecord{}).Where("device_id = ?", "till-1").Count(&logCount).Error; err != nil {
		t.Fatalf("count log: %v", err)
	}
	if logCount != 3 {
		t.Fatalf("expected 3 log rows, got %d", logCount)
	}
}

func TestReconcilerDeduplicatesReplayedBatch(t *testing.T) {
	db, cache := setupIntegration(t)
	ctx := context.Background()

	reconciler := devicesync.NewReconciler(db, cache, config.NewLogger())
	batch := &devicesync.SyncRequest{
		DeviceId: "till-2",
		Queue: []models.QueuedItem{
			{ClientKey: "k-cus-dup", Action: models.SyncActionCreate, EntityType: models.SyncEntityCustomer, Payload: mustJSON(t, models.NewCustomer{Name: "Sipho Spares"})},
		},
	}

	first, err := reconciler.Process(ctx, batch)
	if err != nil || first.Processed != 1 {
		t.Fatalf("first upload: %v %+v", err, first)
	}
	second, err := reconciler.Process(ctx, batch)
	if err != nil {
		t.Fatalf("replayed upload: %v", err)
	}
	if second.Processed != 1 || len(second.Errors) != 0 {
		t.Fatalf("replay must succeed without errors, got %+v", second)
	}

	var count int64
	if err := db.Model(&models.Customer{}).Where("name = ?", "Sipho Spares").Count(&count).Error; err != nil {
		t.Fatalf("count customers: %v", err)
	}
	if count != 1 {
		t.Fatalf("replayed create must not duplicate; got %d customers", count)
	}
}

func TestChangeFeedReturnsRowsAfterWatermark(t *testing.T) {
	db, _ := setupIntegration(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Minute)
	if _, err := models.CreateCustomer(ctx, db, &models.NewCustomer{Name: "Feed Customer"}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	feed, err := devicesync.ChangesSince(ctx, db, before)
	if err != nil {
		t.Fatalf("ChangesSince: %v", err)
	}
	if !feed.Success || feed.Since == "" {
		t.Fatalf("feed must report success and echo since, got %+v", feed)
	}
	if len(feed.Data.Customers) != 1 {
		t.Fatalf("expected 1 customer change, got %d", len(feed.Data.Customers))
	}
	if feed.ServerTime.IsZero() {
		t.Fatal("server_time must be set")
	}

	// Nothing after the server watermark.
	later, err := devicesync.ChangesSince(ctx, db, feed.ServerTime.Add(time.Second))
	if err != nil {
		t.Fatalf("ChangesSince(later): %v", err)
	}
	if len(later.Data.Customers) != 0 {
		t.Fatalf("expected empty feed, got %d customers", len(later.Data.Customers))
	}
}

func TestChangeFeedCapsEachEntityList(t *testing.T) {
	db, _ := setupIntegration(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Minute)

	customers := make([]models.Customer, 0, 1001)
	for i := 0; i < 1001; i++ {
		customers = append(customers, models.Customer{
			AccountNo: fmt.Sprintf("BULK-%04d", i),
			Name:      fmt.Sprintf("Bulk Customer %04d", i),
		})
	}
	if err := db.CreateInBatches(&customers, 200).Error; err != nil {
		t.Fatalf("seed customers: %v", err)
	}

	feed, err := devicesync.ChangesSince(ctx, db, before)
	if err != nil {
		t.Fatalf("ChangesSince: %v", err)
	}
	if len(feed.Data.Customers) != 1000 {
		t.Fatalf("expected the feed capped at 1000 rows, got %d", len(feed.Data.Customers))
	}
	for i := 1; i < len(feed.Data.Customers); i++ {
		prev, cur := feed.Data.Customers[i-1], feed.Data.Customers[i]
		if cur.UpdatedAt.Before(prev.UpdatedAt) ||
			(cur.UpdatedAt.Equal(prev.UpdatedAt) && cur.ID < prev.ID) {
			t.Fatalf("feed not ascending at index %d: %+v then %+v", i, prev, cur)
		}
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("merchantpro-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("merchantpro-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=merchantpro_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
