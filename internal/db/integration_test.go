//go:build integration

package db

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/models"
)

// mysqlConfig reads the MySQL test server location from the environment.
// Tests are skipped unless BOMSYNC_TEST_MYSQL_HOST is set, e.g.
//
//	BOMSYNC_TEST_MYSQL_HOST=127.0.0.1 go test -tags integration ./internal/db/
func mysqlConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()

	host := os.Getenv("BOMSYNC_TEST_MYSQL_HOST")
	if host == "" {
		t.Skip("BOMSYNC_TEST_MYSQL_HOST not set; skipping MySQL integration tests")
	}
	port := 3306
	if p := os.Getenv("BOMSYNC_TEST_MYSQL_PORT"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			t.Fatalf("BOMSYNC_TEST_MYSQL_PORT = %q: %v", p, err)
		}
		port = n
	}
	user := os.Getenv("BOMSYNC_TEST_MYSQL_USER")
	if user == "" {
		user = "root"
	}

	return config.DatabaseConfig{
		Driver:   "mysql",
		Host:     host,
		Port:     port,
		User:     user,
		Password: os.Getenv("BOMSYNC_TEST_MYSQL_PASSWORD"),
	}
}

// scratchDatabase creates a uniquely named database on the test server and
// drops it when the test completes.
func scratchDatabase(t *testing.T) config.DatabaseConfig {
	t.Helper()

	cfg := mysqlConfig(t)
	cfg.Name = fmt.Sprintf("bomsync_test_%d", time.Now().UnixNano())

	adminDB, err := ConnectAdmin(cfg)
	if err != nil {
		t.Fatalf("ConnectAdmin: %v", err)
	}
	if err := CreateDatabase(adminDB, cfg.Name); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	t.Cleanup(func() {
		DropDatabase(adminDB, cfg.Name)
	})
	return cfg
}

func TestIntegration_ConnectAdmin(t *testing.T) {
	cfg := mysqlConfig(t)
	db, err := ConnectAdmin(cfg)
	if err != nil {
		t.Fatalf("ConnectAdmin: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestIntegration_CreateAndConnect(t *testing.T) {
	cfg := scratchDatabase(t)

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect to new database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	if err := sqlDB.Ping(); err != nil {
		t.Fatalf("ping new database: %v", err)
	}
}

func TestIntegration_AutoMigrate(t *testing.T) {
	cfg := scratchDatabase(t)

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	var tables []string
	if err := db.Raw("SHOW TABLES").Scan(&tables).Error; err != nil {
		t.Fatalf("SHOW TABLES: %v", err)
	}
	tableSet := make(map[string]bool)
	for _, tbl := range tables {
		tableSet[tbl] = true
	}
	for _, expected := range []string{"racks", "history_events"} {
		if !tableSet[expected] {
			t.Errorf("expected table %q not found; got tables: %v", expected, tables)
		}
	}
}

func TestIntegration_AutoMigrate_TableColumns(t *testing.T) {
	cfg := scratchDatabase(t)

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	type columnInfo struct {
		Field string `gorm:"column:Field"`
	}

	var rackCols []columnInfo
	if err := db.Raw("DESCRIBE racks").Scan(&rackCols).Error; err != nil {
		t.Fatalf("DESCRIBE racks: %v", err)
	}
	rackColSet := make(map[string]bool)
	for _, c := range rackCols {
		rackColSet[c.Field] = true
	}
	for _, col := range []string{"item_number", "name", "status", "remote_id", "last_refreshed_at"} {
		if !rackColSet[col] {
			t.Errorf("racks table missing column %q", col)
		}
	}

	var eventCols []columnInfo
	if err := db.Raw("DESCRIBE history_events").Scan(&eventCols).Error; err != nil {
		t.Fatalf("DESCRIBE history_events: %v", err)
	}
	eventColSet := make(map[string]bool)
	for _, c := range eventCols {
		eventColSet[c.Field] = true
	}
	for _, col := range []string{"id", "rack_item_number", "event_type", "status_before", "status_after", "summary", "details"} {
		if !eventColSet[col] {
			t.Errorf("history_events table missing column %q", col)
		}
	}
}

func TestIntegration_Reset(t *testing.T) {
	cfg := scratchDatabase(t)

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}

	rack := models.Rack{ItemNumber: "RACK-0001", Name: "Compute Rack A", Status: "synced"}
	if err := db.Create(&rack).Error; err != nil {
		t.Fatalf("create rack: %v", err)
	}

	if err := Reset(db); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	var count int64
	db.Model(&models.Rack{}).Count(&count)
	if count != 0 {
		t.Errorf("rack count after reset = %d, want 0", count)
	}
}

func TestIntegration_Idempotent(t *testing.T) {
	cfg := scratchDatabase(t)

	adminDB, err := ConnectAdmin(cfg)
	if err != nil {
		t.Fatalf("ConnectAdmin: %v", err)
	}
	// CreateDatabase twice; second call is a no-op.
	if err := CreateDatabase(adminDB, cfg.Name); err != nil {
		t.Fatalf("CreateDatabase (2nd): %v", err)
	}

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (1st): %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate (2nd): %v", err)
	}
}

func TestIntegration_AutoMigrate_Error(t *testing.T) {
	cfg := scratchDatabase(t)

	db, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	err = AutoMigrate(db)
	if err == nil {
		t.Fatal("expected error from AutoMigrate with closed DB")
	}
	if !strings.Contains(err.Error(), "db: auto-migrate") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "db: auto-migrate")
	}
}
