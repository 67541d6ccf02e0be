package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/gatheraa/event-seat-booking/internal/config"
	"github.com/gatheraa/event-seat-booking/internal/coupon"
	"github.com/gatheraa/event-seat-booking/internal/database"
	"github.com/gatheraa/event-seat-booking/internal/handler"
	"github.com/gatheraa/event-seat-booking/internal/queue"
	"github.com/gatheraa/event-seat-booking/internal/repository"
	"github.com/gatheraa/event-seat-booking/internal/router"
	"github.com/gatheraa/event-seat-booking/internal/scheduler"
	"github.com/gatheraa/event-seat-booking/internal/service"
	"github.com/gatheraa/event-seat-booking/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	if err := migrations.Apply(startupCtx, db); err != nil {
		cancelStartup()
		log.Fatalf("migrations: %v", err)
	}
	cancelStartup()

	// Redis backs the cart store only.  When it is unreachable the
	// service still boots; carts report unavailable and bookings skip
	// cart clearing.
	var carts *repository.CartStore
	if rdb := config.NewRedisClient(); rdb != nil {
		carts = repository.NewCartStore(rdb, time.Duration(cfg.CartTTLMin)*time.Minute)
	} else {
		log.Println("redis unavailable, cart endpoints disabled")
	}

	seatRepo := repository.NewSeatRepo(db)
	bookingRepo := repository.NewBookingRepo(db)

	var coupons coupon.Validator = coupon.Disabled{}
	if cfg.CouponServiceURL != "" {
		coupons = coupon.NewHTTPValidator(cfg.CouponServiceURL)
	} else {
		log.Println("COUPON_SERVICE_URL not set, promo codes disabled")
	}

	inventory := service.NewInventoryService(db, seatRepo)
	pricing := service.NewPricingEngine(coupons)
	holdTTL := time.Duration(cfg.HoldTTLMin) * time.Minute

	var bookings *service.BookingService
	if carts != nil {
		bookings = service.NewBookingService(inventory, bookingRepo, carts, pricing, queue.PublishBookingEvent, holdTTL, cfg.Currency)
	} else {
		bookings = service.NewBookingService(inventory, bookingRepo, nil, pricing, queue.PublishBookingEvent, holdTTL, cfg.Currency)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sweep := scheduler.New(bookings, inventory, time.Duration(cfg.SweepIntervalSec)*time.Second)

	// The consumer runs its own reconnect loop forever, so it stays
	// outside the group; it dies with the process.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			log.Printf("booking consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	invHandler := handler.NewInventoryHandler(inventory)
	router.RegisterRoutes(e, invHandler)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings), handler.NewCartHandler(carts))
	router.RegisterAdmin(e, invHandler)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweep.Start(gctx)
		return nil
	})
	g.Go(func() error {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("server: %v", err)
	}
	log.Println("server stopped")
}
