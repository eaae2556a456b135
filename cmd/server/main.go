package main // Entry point package

import (
	"log"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-seat-sync/internal/config"
	"github.com/iliyamo/cinema-seat-sync/internal/handler"
	"github.com/iliyamo/cinema-seat-sync/internal/hub"
	"github.com/iliyamo/cinema-seat-sync/internal/middleware"
	"github.com/iliyamo/cinema-seat-sync/internal/queue"
	"github.com/iliyamo/cinema-seat-sync/internal/room"
	"github.com/iliyamo/cinema-seat-sync/internal/router"
	"github.com/iliyamo/cinema-seat-sync/internal/service"
)

func main() {
	cfg := config.Load() // Load environment config

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.Printf("redis unavailable, rate limiting and caching disabled: %v", err)
	}

	var events handler.EventSink
	if ev := config.LoadEventsConfig(); ev.Enabled {
		pub := service.NewEventPublisher(ev)
		defer pub.Close()
		events = pub
		if ev.Consume {
			go queue.StartSeatEventConsumer(ev)
		}
		log.Printf("publishing seat events to queue %s", ev.Queue)
	}

	seatRoom := room.New() // Single process-wide room
	clients := hub.New()   // Connected WebSocket clients
	seats := handler.NewSeatHandler(seatRoom, clients, events)

	httpLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb).Middleware()
	msgLimit := middleware.NewTokenBucket(config.LoadMessageRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, clients)
	router.RegisterRealtime(e, cfg.WSPath, handler.NewWSHandler(cfg, seats, clients, msgLimit), httpLimit)
	router.RegisterPublic(e, handler.NewRoomHandler(seatRoom), httpLimit, cache)

	addr := ":" + cfg.Port
	log.Printf("listening on %s, websocket at %s (env=%s)", addr, cfg.WSPath, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
