package main

import (
	"context"
	"flag"
	"slotbook/cmd/internal/app"
	"slotbook/cmd/internal/config"
	"slotbook/cmd/internal/domain/entity"
	"slotbook/cmd/internal/logger"

	"github.com/labstack/gommon/log"
	"go.uber.org/zap"
)

func main() {
	tenantFlag := flag.String("tenant", "", "tenant id")
	nameFlag := flag.String("name", "", "business name")
	namespaceFlag := flag.String("namespace", "", "isolation namespace (schema name or table prefix)")
	modeFlag := flag.String("mode", string(entity.IsolationPrefix), "isolation mode: prefix or schema")
	seedFlag := flag.Bool("seed", false, "seed default policy and working hours")
	servicesFlag := flag.String("services", "", "services to create, e.g. Haircut:30,Coloring:90")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration: ", err)
	}
	if err := logger.Init(cfg.LogLevel, cfg.Env, cfg.ServiceName+"-migrate"); err != nil {
		log.Fatal("failed to initialize logger: ", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	if *tenantFlag == "" || *namespaceFlag == "" {
		lg.Fatal("-tenant and -namespace are required")
	}
	services, err := app.ParseServices(*servicesFlag)
	if err != nil {
		lg.Fatal("invalid -services", zap.Error(err))
	}

	db, err := app.OpenDB(cfg)
	if err != nil {
		lg.Fatal("failed to initialize database", zap.Error(err))
	}

	lg.Info("provisioning tenant", zap.String("tenant", *tenantFlag), zap.String("namespace", *namespaceFlag))
	err = app.Provision(context.Background(), db, app.TenantSpec{
		ID:        *tenantFlag,
		Name:      *nameFlag,
		Namespace: *namespaceFlag,
		Mode:      entity.IsolationMode(*modeFlag),
		Seed:      *seedFlag,
		Services:  services,
	})
	if err != nil {
		lg.Fatal("provisioning failed", zap.Error(err))
	}
	lg.Info("provisioning finished")
}
