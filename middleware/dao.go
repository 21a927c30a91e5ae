package middleware

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"graphbench/structs"

	"github.com/BurntSushi/toml"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	log "github.com/sirupsen/logrus"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"
)

// db
var db *sql.DB

// BuildDSN returns the driver name and data source name for dbConfig.
func BuildDSN(dbConfig structs.DatabaseConfig) (string, string, error) {
	switch dbConfig.Driver {
	case "", DriverMySQL:
		host := dbConfig.Host
		if host == "" {
			host = "127.0.0.1:3306"
		}
		// DSN: [username[:password]@][protocol[(address)]]/dbname[?param1=value1&...&paramN=valueN]
		dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username,
			dbConfig.Password,
			host,
			dbConfig.DBName,
		)
		return DriverMySQL, dsn, nil
	case DriverSQLite:
		path := dbConfig.Path
		if path == "" {
			path = "graphbench.db"
		}
		return DriverSQLite, "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)", nil
	default:
		return "", "", fmt.Errorf("unsupported database driver %q", dbConfig.Driver)
	}
}

// ConnectToDB opens the shared connection pool, creating it on first use.
func ConnectToDB(dbConfig structs.DatabaseConfig) (*sql.DB, error) {
	if db != nil {
		return db, nil
	}

	driver, dsn, err := BuildDSN(dbConfig)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		// a single writer avoids SQLITE_BUSY under concurrent handlers
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)
		conn.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error pinging the database: %w", err)
	}

	db = conn
	log.Infof("Database connection pool initialized successfully, driver=%s", driver)
	return db, nil
}

func CloseDB() {
	if db != nil {
		err := db.Close()
		if err != nil {
			log.Errorf("Error closing the database connection pool: %v", err)
		} else {
			log.Infof("Database connection pool closed.")
		}
		db = nil
	}
}

// LoadConfig reads the TOML configuration file and fills in defaults.
func LoadConfig(path string) (*structs.Config, error) {
	var cfg structs.Config
	// Get absolute path for clearer error messages if file not found
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("error getting absolute path for %s: %w", path, err)
	}

	log.Infof("Attempting to load configuration from: %s", absPath)

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("error decoding TOML file %s: %w", path, err)
	}
	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyDefaults fills unset values in cfg.
func ApplyDefaults(cfg *structs.Config) {
	if cfg.Server.Addr == "" {
		log.Warningf("Server addr not specified, using default :8000")
		cfg.Server.Addr = ":8000"
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 120
	}
	if cfg.Server.MaxGraphSize <= 0 {
		cfg.Server.MaxGraphSize = 2000
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverMySQL
	}
	if cfg.Redis.TTLSeconds <= 0 {
		cfg.Redis.TTLSeconds = 3600
	}
	if cfg.Redis.MaxIdle <= 0 {
		cfg.Redis.MaxIdle = 4
	}
	if cfg.Redis.MemoryEntries <= 0 {
		cfg.Redis.MemoryEntries = 64
	}
	if len(cfg.Etcd.Endpoints) == 0 {
		cfg.Etcd.Endpoints = []string{"localhost:2379"}
	}
	if cfg.Etcd.DialTimeoutSeconds <= 0 {
		cfg.Etcd.DialTimeoutSeconds = 5
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Dir == "" {
		cfg.Log.Dir = "./logs"
	}

	b := &cfg.Benchmark
	if len(b.GraphSizes) == 0 {
		b.GraphSizes = []int{100, 200, 400, 800}
	}
	if len(b.ProcessorCounts) == 0 {
		b.ProcessorCounts = []int{1, 2, 4, 8}
	}
	if b.Density <= 0 || b.Density > 1 {
		b.Density = 0.3
	}
	if b.Repeats <= 0 {
		b.Repeats = 3
	}
	if b.Seed == 0 {
		b.Seed = 42
	}
	if b.PoolSize <= 0 {
		b.PoolSize = 1
	}
}
