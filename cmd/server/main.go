package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Parknogyung/ticket-reservation/internal/config"
	"github.com/Parknogyung/ticket-reservation/internal/database"
	"github.com/Parknogyung/ticket-reservation/internal/handler"
	"github.com/Parknogyung/ticket-reservation/internal/lock"
	"github.com/Parknogyung/ticket-reservation/internal/queue"
	"github.com/Parknogyung/ticket-reservation/internal/repository"
	"github.com/Parknogyung/ticket-reservation/internal/router"
	"github.com/Parknogyung/ticket-reservation/internal/service"
	"github.com/Parknogyung/ticket-reservation/internal/store"
	"github.com/Parknogyung/ticket-reservation/internal/waitingroom"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer db.Close()

	st := store.NewMySQLStore(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	// Redis backs seat locks, the waiting room and the rate limiter.
	// Without it the process falls back to in-memory versions, which
	// only hold up on a single node.
	rdb := config.NewRedisClient()
	var (
		locks   lock.Provider
		waiting waitingroom.RankedSet
		active  waitingroom.RankedSet
	)
	if rdb != nil {
		locks = lock.NewRedisProvider(rdb)
		waiting = waitingroom.NewRedisSet(rdb, "queue:waiting")
		active = waitingroom.NewRedisSet(rdb, "queue:active")
	} else {
		log.Println("redis unavailable, using in-memory locks and queues (single node only)")
		locks = lock.NewMemoryProvider()
		waiting = waitingroom.NewMemorySet()
		active = waitingroom.NewMemorySet()
	}

	catalog := service.NewCatalog(st)
	gate := service.NewAdmissionGate(waiting, active, cfg.Admission)
	reservations := service.NewReservationCoordinator(locks, st, cfg.Lock)
	settlements := service.NewSettlementCoordinator(st, locks, cfg.Lock)

	go func() {
		if err := queue.StartSettlementConsumer(); err != nil {
			log.Printf("settlement consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, tokens),
		Admission:   handler.NewAdmissionHandler(gate, catalog),
		Catalog:     handler.NewCatalogHandler(catalog, gate),
		Reservation: handler.NewReservationHandler(reservations),
		Settlement:  handler.NewSettlementHandler(settlements),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
