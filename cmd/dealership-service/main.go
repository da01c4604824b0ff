package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/AutoDreams/AutoDreams/internal/common/config"
	"github.com/AutoDreams/AutoDreams/internal/common/db"
	"github.com/AutoDreams/AutoDreams/internal/common/logger"
	commonserver "github.com/AutoDreams/AutoDreams/internal/common/server"
	"github.com/AutoDreams/AutoDreams/internal/common/tracing"
	"github.com/AutoDreams/AutoDreams/internal/credential"
	"github.com/AutoDreams/AutoDreams/internal/inventory"
	"github.com/AutoDreams/AutoDreams/internal/ledger"
	"github.com/AutoDreams/AutoDreams/internal/review"
	"github.com/AutoDreams/AutoDreams/internal/seed"
	"github.com/AutoDreams/AutoDreams/internal/server"
)

var (
	configPath = flag.String("config", "configs/dealership-service.json", "配置文件路径")
	consulHost = flag.String("consul-config-host", "", "从 Consul KV 加载配置时的 Consul 地址")
	consulPort = flag.Int("consul-config-port", 8500, "Consul 端口")
	consulKey  = flag.String("consul-config-key", "config/dealership-service", "Consul KV 配置键")
	noSeed     = flag.Bool("no-seed", false, "跳过演示数据写入")
)

// loadConfig 本地文件优先；指定了 -consul-config-host 时改走 Consul KV。
func loadConfig() (*config.Config, error) {
	if *consulHost != "" {
		return config.LoadConfigFromConsulKV(*consulHost, *consulPort, *consulKey)
	}
	return config.LoadConfig(*configPath)
}

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := loadConfig()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.New(logger.Options{
		Backend: cfg.Log.Backend,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Path:    cfg.Log.Path,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 连接数据库并迁移表结构
	gdb, err := db.NewMySQL(
		cfg.Database.Host, cfg.Database.Port,
		cfg.Database.User, cfg.Database.Password, cfg.Database.Database,
		cfg.Database.MaxIdle, cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	err = gdb.AutoMigrate(
		&credential.User{}, &credential.Client{}, &credential.Employee{},
		&inventory.Vehicle{}, &ledger.Order{}, &review.Review{},
	)
	if err != nil {
		log.Fatalf("failed to migrate schema: %v", err)
	}

	if !*noSeed {
		if err := seed.Run(context.Background(), gdb); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	srv := server.New(cfg, log, gdb)
	if err := commonserver.RunHTTPServer(cfg, log, srv.Router()); err != nil {
		log.Fatalf("dealership-service exited with error: %v", err)
	}
}
