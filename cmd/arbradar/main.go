package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"arbradar/internal/application/port"
	"arbradar/internal/application/usecase/radar"
	"arbradar/internal/domain/engine"
	"arbradar/internal/infrastructure/config"
	"arbradar/internal/infrastructure/exchange"
	"arbradar/internal/infrastructure/logger"
	"arbradar/internal/infrastructure/metrics"
	"arbradar/internal/infrastructure/publish"
	"arbradar/internal/interfaces/console"

	// venue packages register their factories in init()
	_ "arbradar/internal/infrastructure/exchange/binance"
	_ "arbradar/internal/infrastructure/exchange/bybit"
	_ "arbradar/internal/infrastructure/exchange/gate"
	_ "arbradar/internal/infrastructure/exchange/hyperliquid"
	_ "arbradar/internal/infrastructure/exchange/mexc"
	_ "arbradar/internal/infrastructure/exchange/okx"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "configs/config.toml", "path to config.toml")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger.Setup(*debug)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Str("config", *configPath).Msg("load config failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collectors, feeds := buildVenues(cfg)
	if len(collectors) == 0 {
		log.Fatal().Msg("no exchange enabled")
	}

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics listening")
	}

	pub := radar.NewNoopPublisher()
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		pub = publish.NewRedis(rdb, cfg.Redis.Prefix)
		log.Info().Str("addr", cfg.Redis.Addr).Str("prefix", cfg.Redis.Prefix).Msg("publishing to redis")
	}
	defer pub.Close()

	mapper := exchange.NewSymbolMapper()
	svc := radar.NewService(radar.ServiceDeps{
		Collectors:       collectors,
		Feeds:            feeds,
		Sink:             console.NewSink(),
		Publisher:        pub,
		RefreshEvery:     time.Duration(cfg.App.RefreshSec) * time.Second,
		TopRows:          cfg.App.TopRows,
		MinVolume:        cfg.App.MinVolume24h,
		SqueezeExchanges: cfg.App.SqueezeExchanges,
		FundingIntervals: cfg.FundingIntervals,
		ArbConfig: engine.ArbConfig{
			MinNetEdge:         cfg.Arbitrage.MinNetEdge,
			GapWarningPct:      cfg.Arbitrage.GapWarningPct,
			GapCutoffPct:       cfg.Arbitrage.GapCutoffPct,
			GapPenaltyWeight:   cfg.Arbitrage.GapPenaltyWeight,
			DefaultSpreadBps:   cfg.Arbitrage.DefaultSpreadBps,
			StabilityWindowMin: cfg.Arbitrage.StabilityWindowMin,
			Fees:               cfg.Fees,
		},
		SqueezeConfig: engine.SqueezeConfig{
			LookbackWindowMin:  cfg.Squeeze.LookbackMin,
			OIShockMax:         cfg.Squeeze.Maxima.OI,
			PriceMoveMax:       cfg.Squeeze.Maxima.Price,
			CrowdingMax:        cfg.Squeeze.Maxima.Crowding,
			FundingAccelMax:    cfg.Squeeze.Maxima.Accel,
			LiquidityStressMax: cfg.Squeeze.Maxima.Liquidity,
			WeightOIShock:      cfg.Squeeze.Weights.OI,
			WeightPriceMove:    cfg.Squeeze.Weights.Price,
			WeightCrowding:     cfg.Squeeze.Weights.Crowding,
			WeightFundingAccel: cfg.Squeeze.Weights.Accel,
			WeightLiquidity:    cfg.Squeeze.Weights.Liquidity,
			FundingExtremePct:  cfg.Squeeze.ExtremeFundingPct,
		},
		CommonSymbols: mapper.FindCommonSymbols,
	})

	log.Info().
		Str("config", *configPath).
		Int("exchanges", len(collectors)).
		Int("feeds", len(feeds)).
		Int("refresh_sec", cfg.App.RefreshSec).
		Msg("arbradar started")

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("radar exited")
	}
}

// buildVenues walks the configured exchanges in name order and instantiates
// whatever the registries know how to build.
func buildVenues(cfg *config.Config) ([]port.Collector, []port.PriceFeed) {
	venues := make([]string, 0, len(cfg.Exchange))
	for v := range cfg.Exchange {
		venues = append(venues, v)
	}
	sort.Strings(venues)

	var collectors []port.Collector
	var feeds []port.PriceFeed
	for _, venue := range venues {
		vc := cfg.Exchange[venue]
		if !vc.Enabled {
			log.Warn().Str("exchange", venue).Msg("disabled by config")
			continue
		}

		c, ok := exchange.NewCollector(venue, vc.BaseURL)
		if !ok {
			log.Warn().Str("exchange", venue).Msg("no collector for this venue")
			continue
		}
		collectors = append(collectors, c)

		if !vc.Stream {
			continue
		}
		f, ok := exchange.NewFeed(venue, vc.WsURL)
		if !ok {
			log.Warn().Str("exchange", venue).Msg("no live feed for this venue")
			continue
		}
		feeds = append(feeds, f)
	}
	return collectors, feeds
}
