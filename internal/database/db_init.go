package database

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Database represents the main database connection and its caches
type Database struct {
	// Main database connection for all application data
	mainDB *sql.DB

	MainMutex sync.RWMutex

	// Database configuration
	dbconfig *DBConfig

	// Caches
	OrgCache *OrganizationCache // LRU cache for organization lookups

	WG       *sync.WaitGroup
	StopChan chan struct{} // Channel to signal shutdown
}

// DBConfig represents database configuration
type DBConfig struct {
	// Directory to store database files
	DataDir string
	// Database file name inside DataDir
	FileName string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// Performance settings
	WALMode   bool   // Write-Ahead Logging
	SyncMode  string // OFF, NORMAL, FULL
	CacheSize int    // KB
	TempStore string // MEMORY, FILE

	// Organization cache settings
	OrgCacheSize   int           // Maximum number of cached organizations
	OrgCacheExpiry time.Duration // Cache expiry duration

	// Lifetime of REST tokens, 0 = never expire
	TokenTTL time.Duration

	// Interval for expired session and token cleanup, 0 disables the cleanup loop
	CleanupInterval time.Duration
}

// DefaultDBConfig returns default database configuration
func DefaultDBConfig() (dbconfig *DBConfig) {
	return &DBConfig{
		DataDir:         "./data",
		FileName:        "volontulo.sq3",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 0, // Unlimited for SQLite
		WALMode:         true,
		SyncMode:        "NORMAL",
		CacheSize:       -16384, // 16MB cache
		TempStore:       "MEMORY",
		OrgCacheSize:    1024,
		OrgCacheExpiry:  5 * time.Minute,
		CleanupInterval: 15 * time.Minute,
	}
}

// OpenDatabase opens the main database, applies migrations and starts background tasks
func OpenDatabase(dbconfig *DBConfig) (*Database, error) {
	if dbconfig == nil {
		dbconfig = DefaultDBConfig()
	}
	if dbconfig.FileName == "" {
		dbconfig.FileName = "volontulo.sq3"
	}

	db := &Database{
		dbconfig: dbconfig,
		WG:       &sync.WaitGroup{},
		StopChan: make(chan struct{}),
	}

	if err := db.initMainDB(); err != nil {
		return nil, fmt.Errorf("failed to initialize main database: %w", err)
	}

	// Run migrations to ensure all tables exist
	if err := db.Migrate(); err != nil {
		db.mainDB.Close()
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}

	if wasClean, err := db.CheckPreviousShutdown(); err != nil {
		log.Printf("[DATABASE] Warning: Failed to check previous shutdown state: %v", err)
	} else if !wasClean {
		log.Printf("[DATABASE] WARNING: Previous shutdown was not clean")
	}

	hostname, _ := os.Hostname()
	if err := db.InitializeSystemStatus("go-volontulo", os.Getpid(), hostname); err != nil {
		log.Printf("[DATABASE] Warning: Failed to initialize system status: %v", err)
	}

	db.OrgCache = NewOrganizationCache(dbconfig.OrgCacheSize, dbconfig.OrgCacheExpiry)

	if dbconfig.CleanupInterval > 0 {
		db.WG.Add(1)
		go db.CronDB(dbconfig.CleanupInterval)
	}

	log.Printf("[DATABASE] initialized: dir=%s file=%s wal=%t orgCache=%d/%s",
		dbconfig.DataDir, dbconfig.FileName, dbconfig.WALMode, dbconfig.OrgCacheSize, dbconfig.OrgCacheExpiry)
	return db, nil
}

// IsDBshutdown reports whether Shutdown has been called
func (db *Database) IsDBshutdown() bool {
	if db == nil {
		return true
	}
	select {
	case <-db.StopChan:
		return true
	default:
		return false
	}
}

// initMainDB initializes the main database connection
func (db *Database) initMainDB() error {
	dbPath := filepath.Join(db.dbconfig.DataDir, db.dbconfig.FileName)
	log.Printf("[DATABASE] Initializing main database at: %s", dbPath)

	if err := createDirIfNotExists(db.dbconfig.DataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// foreign_keys and busy_timeout are per connection, so they go into the DSN
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=30000", dbPath)
	mainDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return fmt.Errorf("failed to open main database: %w", err)
	}

	mainDB.SetMaxOpenConns(db.dbconfig.MaxOpenConns)
	mainDB.SetMaxIdleConns(db.dbconfig.MaxIdleConns)
	mainDB.SetConnMaxLifetime(db.dbconfig.ConnMaxLifetime)

	if err := mainDB.Ping(); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to ping main database: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to ping main database: %w", err)
	}

	if err := db.applySQLitePragmas(mainDB); err != nil {
		if cerr := mainDB.Close(); cerr != nil {
			return fmt.Errorf("failed to apply SQLite pragmas: %w; also failed to close mainDB: %v", err, cerr)
		}
		return fmt.Errorf("failed to apply SQLite pragmas: %w", err)
	}

	db.mainDB = mainDB
	return nil
}

// applySQLitePragmas applies performance and configuration pragmas to SQLite connection
func (db *Database) applySQLitePragmas(conn *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA cache_size = %d", db.dbconfig.CacheSize),
		fmt.Sprintf("PRAGMA synchronous = %s", db.dbconfig.SyncMode),
		fmt.Sprintf("PRAGMA temp_store = %s", db.dbconfig.TempStore),
	}

	if db.dbconfig.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
		pragmas = append(pragmas, "PRAGMA wal_autocheckpoint = 1000")
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute pragma '%s': %w", pragma, err)
		}
	}

	return nil
}

func createDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
