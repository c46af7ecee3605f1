package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/plantao-dev/broker-scheduler/backend/internal/config"
	"github.com/plantao-dev/broker-scheduler/backend/internal/repository"
	"github.com/plantao-dev/broker-scheduler/backend/internal/seed"
	"github.com/plantao-dev/broker-scheduler/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int

	flag.IntVar(&op, "op", 0, "operação a executar (1: inserir corretores aleatórios, 2: inserir plantões de exemplo)")
	flag.IntVar(&n, "n", 5, "quantidade de registros a inserir")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("não foi possível carregar a configuração", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("não foi possível criar o pool de conexões", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open does not connect, so ping before touching the tables.
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("não foi possível conectar ao banco de dados", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		slog.Error("nenhuma operação informada")
	case 1:
		if n <= 0 {
			slog.Error("informe uma quantidade válida de corretores")
		} else {
			cnt := n
			for i := 0; i < n; i++ {
				broker, err := utils.GenerateRandomBroker(cfg.Seed.Broker.Password, cfg.Email.UserDomain)
				if err != nil {
					slog.Error("não foi possível gerar o corretor aleatório", slog.String("error", err.Error()))
					continue
				}

				if err := repo.CreateBroker(broker); err != nil {
					slog.Error("não foi possível inserir o corretor", slog.String("error", err.Error()))
					continue
				}

				cnt--
			}

			slog.Info("corretores inseridos", slog.Int("count", n-cnt))
		}
	case 2:
		seed.SeedSampleLocations(repo)
	default:
		slog.Error("operação inválida")
	}
}
