package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/config"
	"github.com/xavierca1/muyu-crm/internal/entity"
	"github.com/xavierca1/muyu-crm/internal/infra/auth"
	"github.com/xavierca1/muyu-crm/internal/infra/database"
	"github.com/xavierca1/muyu-crm/internal/infra/logger"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

// defaultAccounts are created when missing. Each password is read from the
// named env var; accounts without one are skipped.
var defaultAccounts = []struct {
	user   usecase.SeedUser
	envKey string
}{
	{usecase.SeedUser{Username: "admin", Email: "admin@muyu.com", FullName: "Administrador", Role: entity.RoleAdmin}, "SEED_ADMIN_PASSWORD"},
	{usecase.SeedUser{Username: "ventas1", Email: "ventas1@muyu.com", FullName: "Ventas Uno", Role: entity.RoleSales}, "SEED_SALES_PASSWORD"},
	{usecase.SeedUser{Username: "ventas2", Email: "ventas2@muyu.com", FullName: "Ventas Dos", Role: entity.RoleSales}, "SEED_SALES_PASSWORD"},
	{usecase.SeedUser{Username: "soporte1", Email: "soporte1@muyu.com", FullName: "Soporte Uno", Role: entity.RoleSupport}, "SEED_SUPPORT_PASSWORD"},
	{usecase.SeedUser{Username: "soporte2", Email: "soporte2@muyu.com", FullName: "Soporte Dos", Role: entity.RoleSupport}, "SEED_SUPPORT_PASSWORD"},
}

func main() {
	godotenv.Load()
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	if _, err := database.Migrate(ctx, db); err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}

	var seeds []usecase.SeedUser
	for _, a := range defaultAccounts {
		pass := os.Getenv(a.envKey)
		if pass == "" {
			zlog.Warn("seed password not set, skipping", zap.String("username", a.user.Username), zap.String("env", a.envKey))
			continue
		}
		u := a.user
		u.Password = pass
		seeds = append(seeds, u)
	}

	users := usecase.NewUserUseCase(database.NewUserRepository(db), auth.NewHasher(), usecase.NewClock(cfg.Location()), zlog)
	report, err := users.SeedDefaults(ctx, seeds)
	if err != nil {
		zlog.Fatal("seed failed", zap.Error(err))
	}
	zlog.Info("seed finished", zap.Strings("created", report.Created), zap.Strings("existing", report.Existing))
}
