package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Wikid82/warden/internal/api/routes"
	"github.com/Wikid82/warden/internal/config"
	"github.com/Wikid82/warden/internal/database"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/server"
	"github.com/Wikid82/warden/internal/services"
	"github.com/Wikid82/warden/internal/version"
)

func main() {
	// Setup logging with rotation
	logDir := filepath.Join("data", "logs")
	_ = os.MkdirAll(logDir, 0o755)

	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, "warden.log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	// Log to both stdout and file
	mw := io.MultiWriter(os.Stdout, rotator)
	log.SetOutput(mw)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.Init(cfg.Environment == "development", mw)

	if cfg.TokenSecret == "" {
		log.Fatal("WARDEN_TOKEN_SECRET must be set")
	}

	// Handle CLI commands
	if len(os.Args) > 1 && os.Args[1] == "token" {
		mintToken(cfg, os.Args[2:])
		return
	}

	log.Printf("starting %s daemon version %s", version.Name, version.Full())

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.CheckSchemaVersion(db); err != nil {
		log.Fatalf("schema check: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	runSvc := services.NewRunService(db)
	run, err := runSvc.RecordStartup(cfg.SocketPath)
	if err != nil {
		log.Fatalf("record startup: %v", err)
	}

	// Sweep expired temporary elevation grants in the background.
	grants := services.NewGrantService(db, services.NewPolicyService(db), cfg.MaxTemporarySeconds)
	scheduler := cron.New()
	if _, err := scheduler.AddFunc("@every 1m", func() {
		if _, err := grants.ExpireTemporary(); err != nil {
			logger.Log().WithError(err).Error("expire temporary grants")
		}
	}); err != nil {
		log.Fatalf("schedule grant expiry: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv, err := server.New(db, cfg, routes.Deps{RunID: run.ID, StartTime: run.StartTime})
	if err != nil {
		log.Fatalf("build server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("listening on %s", cfg.SocketPath)
	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Print("shutdown complete")
}

// mintToken issues a scope token for an operator or agent process.
//
//	pedm token <account-name> <domain-name> <account-sid> <domain-sid> <scopes> [ttl-hours]
func mintToken(cfg config.Config, args []string) {
	if len(args) != 5 && len(args) != 6 {
		log.Fatalf("Usage: %s token <account-name> <domain-name> <account-sid> <domain-sid> <scope,scope,...> [ttl-hours]", os.Args[0])
	}

	user := models.User{
		AccountName: args[0],
		DomainName:  args[1],
		AccountSid:  args[2],
		DomainSid:   args[3],
	}
	scopes := strings.Split(args[4], ",")

	ttl := 24 * time.Hour
	if len(args) == 6 {
		hours, err := strconv.Atoi(args[5])
		if err != nil || hours <= 0 {
			log.Fatalf("ttl-hours must be a positive integer, got %q", args[5])
		}
		ttl = time.Duration(hours) * time.Hour
	}

	token, err := services.NewTokenService(cfg.TokenSecret).Mint(user, scopes, ttl)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	os.Stdout.WriteString(token + "\n")
}
