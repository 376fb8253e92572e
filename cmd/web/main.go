// go-volontulo web server: REST API, token auth and the static pages admin
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	prof "github.com/go-while/go-cpu-mem-profiler"
	"github.com/volontulo/go-volontulo/internal/config"
	"github.com/volontulo/go-volontulo/internal/database"
	"github.com/volontulo/go-volontulo/internal/i18n"
	"github.com/volontulo/go-volontulo/internal/mailer"
	"github.com/volontulo/go-volontulo/internal/offers"
	"github.com/volontulo/go-volontulo/internal/web"
)

var (
	// command-line flags
	configFile  string
	dataDir     string
	webport     int
	webssl      bool
	webcertFile string
	webkeyFile  string
	language    string
	pprofAddr   string
	debug       bool
)

var appVersion = "-unset-"

const shutdownTimeout = 30 * time.Second

func main() {
	config.AppVersion = appVersion

	flag.StringVar(&configFile, "config", "", "Path to a config file (yaml, toml or json). VOLONTULO_* environment variables override it")
	flag.StringVar(&dataDir, "data", "", "Directory holding the database (default: ./data)")
	flag.IntVar(&webport, "webport", 0, "Web server port (default: 11880)")
	flag.BoolVar(&webssl, "webssl", false, "Enable SSL")
	flag.StringVar(&webcertFile, "websslcert", "", "SSL certificate file (/path/to/fullchain.pem)")
	flag.StringVar(&webkeyFile, "websslkey", "", "SSL key file (/path/to/privkey.pem)")
	flag.StringVar(&language, "lang", "", "Default response language: pl or en (default: pl)")
	flag.StringVar(&pprofAddr, "pprof", "", "Serve pprof and write periodic memory profiles, e.g. 127.0.0.1:51111 (default: off)")
	flag.BoolVar(&debug, "debug", false, "Enable gin debug mode and verbose session logging")
	flag.Parse()

	log.Printf("Starting go-volontulo: Web Server (version: %s)", appVersion)

	mainConfig, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("[WEB]: Failed to load configuration: %v", err)
	}
	webConfig := &mainConfig.Web

	// Override config with command-line flags if provided
	if webport > 0 {
		webConfig.ListenPort = webport
		log.Printf("[WEB]: Overriding listen port with command-line flag: %d", webConfig.ListenPort)
	}
	if webssl {
		webConfig.SSL = true
		log.Printf("[WEB]: SSL enabled via command-line flag")
	}
	if webcertFile != "" {
		webConfig.CertFile = webcertFile
	}
	if webkeyFile != "" {
		webConfig.KeyFile = webkeyFile
	}
	if language != "" {
		webConfig.Language = language
	}
	if debug {
		webConfig.Debug = true
	}
	if dataDir != "" {
		mainConfig.Database.DataDir = dataDir
	}
	if err := mainConfig.Validate(); err != nil {
		log.Fatalf("[WEB]: Invalid configuration: %v", err)
	}

	if pprofAddr != "" {
		profiler := prof.NewProf()
		go profiler.PprofWeb(pprofAddr)
		profiler.StartMemProfile(5*time.Minute, 30*time.Second)
		log.Printf("[WEB]: pprof listening on %s", pprofAddr)
	}

	db, err := database.OpenDatabase(dbConfigFrom(mainConfig))
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize database: %v", err)
	}

	tr, err := i18n.New(webConfig.Language)
	if err != nil {
		log.Fatalf("[WEB]: Failed to load translations: %v", err)
	}

	mail, err := mailer.New(mainConfig.Mail, nil)
	if err != nil {
		log.Fatalf("[WEB]: Failed to initialize mailer: %v", err)
	}

	svc := offers.NewService(db, mail, mainConfig.Mail.AdminEmails)
	server := web.NewServer(db, webConfig, svc, tr)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	webServerErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			webServerErrChan <- err
		}
	}()

	protocol := "http"
	if webConfig.SSL {
		protocol = "https"
	}
	log.Printf("[WEB]: Server started on %s://localhost:%d. Press Ctrl+C to gracefully shutdown...", protocol, webConfig.ListenPort)

	updateFileChan := make(chan bool, 1)
	go monitorUpdateFile(updateFileChan, 60*time.Second)

	select {
	case <-sigChan:
		log.Printf("[WEB]: Received shutdown signal, initiating graceful shutdown...")
	case err := <-webServerErrChan:
		log.Printf("[WEB]: Web server failed: %v", err)
	case <-updateFileChan:
		log.Printf("[WEB]: Update file detected, initiating graceful shutdown for update...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[WEB]: Error stopping web server: %v", err)
	}

	// flush queued notifications before the database goes away
	mail.Stop()

	if err := db.Shutdown(); err != nil {
		log.Fatalf("[WEB]: Failed to shutdown database: %v", err)
	}
	log.Printf("[WEB]: Graceful shutdown completed")
} // end main

// dbConfigFrom maps the database section onto the storage settings
func dbConfigFrom(cfg *config.MainConfig) *database.DBConfig {
	dbConfig := database.DefaultDBConfig()
	dbConfig.DataDir = cfg.Database.DataDir
	dbConfig.WALMode = cfg.Database.WALMode
	dbConfig.OrgCacheSize = cfg.Database.OrgCacheSize
	dbConfig.OrgCacheExpiry = cfg.Database.OrgCacheExpiry
	dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	dbConfig.CleanupInterval = cfg.Database.SessionCleanupInt
	dbConfig.TokenTTL = cfg.Web.TokenTTL
	return dbConfig
}
