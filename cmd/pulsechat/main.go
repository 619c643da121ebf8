package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"pulsechat/internal/app"
	"pulsechat/pkg/config"
	"pulsechat/pkg/logger"
	"pulsechat/pkg/shutdown"
)

// build metadata - set via ldflags during build/release
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Init()

	addrVal, dbVal, cfgVal, setFlags := config.ParseCommandFlags()
	cfgPath := config.ResolveConfigPath(cfgVal, setFlags["config"])

	cfg, envUsed, err := config.LoadEffective(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Logging.Level != "" && os.Getenv("PULSECHAT_LOG_LEVEL") == "" {
		logger.InitWithLevel(cfg.Logging.Level)
	}

	// flags win over env, env wins over file
	addr := cfg.Addr()
	if setFlags["addr"] {
		addr = addrVal
	}
	dbPath := cfg.Storage.DBPath
	if setFlags["db"] || dbPath == "" {
		dbPath = dbVal
	}
	source := "config"
	if envUsed {
		source = "env"
	}
	if setFlags["addr"] || setFlags["db"] {
		source = "flags"
	}

	eff := config.Effective{Config: cfg, Addr: addr, DBPath: dbPath, Source: source}

	a, err := app.New(eff, version, commit, buildDate)
	if err != nil {
		shutdown.Abort("startup failed", err, dbPath)
	}

	ctx, cancel := shutdown.SetupSignalHandler(context.Background())
	defer cancel()
	if err := a.Run(ctx); err != nil {
		shutdown.Abort("server failed", err, dbPath)
	}
}
