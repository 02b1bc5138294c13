package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"arbradar/internal/domain/model"
)

// ErrNoVenuesEnabled means the exchange table left nothing to collect from.
var ErrNoVenuesEnabled = errors.New("no exchange enabled")

type Config struct {
	App       AppConfig       `toml:"app"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Redis     RedisConfig     `toml:"redis"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Squeeze   SqueezeConfig   `toml:"squeeze"`

	Fees             model.FeeTable         `toml:"fees"`
	FundingIntervals map[string]int         `toml:"funding_intervals"`
	Exchange         map[string]VenueConfig `toml:"exchange"`
}

type AppConfig struct {
	RefreshSec       int      `toml:"refresh_sec"`
	TopRows          int      `toml:"top_rows"`
	MinVolume24h     float64  `toml:"min_volume_24h"`
	SqueezeExchanges []string `toml:"squeeze_exchanges"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type RedisConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Prefix  string `toml:"prefix"`
}

type ArbitrageConfig struct {
	GapWarningPct      float64 `toml:"gap_warning_pct"`
	GapCutoffPct       float64 `toml:"gap_cutoff_pct"`
	StabilityWindowMin int     `toml:"stability_window_min"`
	GapPenaltyWeight   float64 `toml:"gap_penalty_weight"`
	DefaultSpreadBps   float64 `toml:"default_spread_bps"`
	MinNetEdge         float64 `toml:"min_net_edge"`
}

type SqueezeConfig struct {
	LookbackMin       int           `toml:"lookback_min"`
	ExtremeFundingPct float64       `toml:"extreme_funding_pct"`
	Weights           SqueezeScales `toml:"weights"`
	Maxima            SqueezeScales `toml:"maxima"`
}

// SqueezeScales carries one number per squeeze component, used both for
// weights and for normalization maxima.
type SqueezeScales struct {
	OI        float64 `toml:"oi"`
	Price     float64 `toml:"price"`
	Crowding  float64 `toml:"crowding"`
	Accel     float64 `toml:"accel"`
	Liquidity float64 `toml:"liquidity"`
}

type VenueConfig struct {
	Enabled bool   `toml:"enabled"`
	Stream  bool   `toml:"stream"`
	BaseURL string `toml:"base_url"`
	WsURL   string `toml:"ws_url"`
}

// Venues lists every known venue, in the order tables render them.
func Venues() []string {
	return []string{"binance", "bybit", "okx", "gate", "mexc", "hyperliquid"}
}

func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.RefreshSec <= 0 {
		cfg.App.RefreshSec = 10
	}
	if cfg.App.TopRows <= 0 {
		cfg.App.TopRows = 50
	}
	if cfg.App.MinVolume24h == 0 {
		cfg.App.MinVolume24h = 1_000_000
	}
	cfg.App.SqueezeExchanges = normalizeVenueList(cfg.App.SqueezeExchanges)

	if strings.TrimSpace(cfg.Redis.Prefix) == "" {
		cfg.Redis.Prefix = "arbradar"
	}

	arb := &cfg.Arbitrage
	if arb.GapWarningPct == 0 {
		arb.GapWarningPct = 0.05
	}
	if arb.GapCutoffPct == 0 {
		arb.GapCutoffPct = 0.10
	}
	if arb.StabilityWindowMin <= 0 {
		arb.StabilityWindowMin = 60
	}
	if arb.GapPenaltyWeight == 0 {
		arb.GapPenaltyWeight = 0.5
	}
	if arb.DefaultSpreadBps == 0 {
		arb.DefaultSpreadBps = 5.0
	}

	sq := &cfg.Squeeze
	if sq.LookbackMin <= 0 {
		sq.LookbackMin = 60
	}
	if sq.ExtremeFundingPct == 0 {
		sq.ExtremeFundingPct = 0.05
	}
	fillScales(&sq.Weights, SqueezeScales{OI: 0.30, Price: 0.20, Crowding: 0.20, Accel: 0.15, Liquidity: 0.15})
	fillScales(&sq.Maxima, SqueezeScales{OI: 10, Price: 5, Crowding: 0.1, Accel: 0.05, Liquidity: 50})

	cfg.Fees = mergeFees(cfg.Fees)
	cfg.FundingIntervals = mergeIntervals(cfg.FundingIntervals)

	if len(cfg.Exchange) == 0 {
		cfg.Exchange = make(map[string]VenueConfig, len(Venues()))
		for _, v := range Venues() {
			cfg.Exchange[v] = VenueConfig{Enabled: true}
		}
		return
	}
	lowered := make(map[string]VenueConfig, len(cfg.Exchange))
	for venue, vc := range cfg.Exchange {
		lowered[strings.ToLower(strings.TrimSpace(venue))] = vc
	}
	cfg.Exchange = lowered
}

func fillScales(s *SqueezeScales, def SqueezeScales) {
	if s.OI == 0 {
		s.OI = def.OI
	}
	if s.Price == 0 {
		s.Price = def.Price
	}
	if s.Crowding == 0 {
		s.Crowding = def.Crowding
	}
	if s.Accel == 0 {
		s.Accel = def.Accel
	}
	if s.Liquidity == 0 {
		s.Liquidity = def.Liquidity
	}
}

// mergeFees overlays user entries onto the stock table, so a partial [fees]
// block only overrides the venues it names.
func mergeFees(user model.FeeTable) model.FeeTable {
	out := model.DefaultFees()
	for venue, sched := range user {
		out[strings.ToLower(strings.TrimSpace(venue))] = sched
	}
	return out
}

func mergeIntervals(user map[string]int) map[string]int {
	out := model.DefaultFundingIntervals()
	for venue, hours := range user {
		if hours > 0 {
			out[strings.ToLower(strings.TrimSpace(venue))] = hours
		}
	}
	return out
}

func validate(cfg *Config) error {
	enabled := 0
	for venue, vc := range cfg.Exchange {
		if venue == "" {
			return errors.New("exchange table has an empty venue name")
		}
		if vc.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoVenuesEnabled
	}

	arb := cfg.Arbitrage
	if arb.GapWarningPct < 0 || arb.GapCutoffPct < 0 || arb.GapPenaltyWeight < 0 || arb.DefaultSpreadBps < 0 {
		return errors.New("arbitrage thresholds must not be negative")
	}
	if arb.GapWarningPct > arb.GapCutoffPct {
		return fmt.Errorf("gap_warning_pct %.3f exceeds gap_cutoff_pct %.3f", arb.GapWarningPct, arb.GapCutoffPct)
	}
	if cfg.App.MinVolume24h < 0 {
		return errors.New("min_volume_24h must not be negative")
	}

	if err := checkScales("weights", cfg.Squeeze.Weights); err != nil {
		return err
	}
	if err := checkScales("maxima", cfg.Squeeze.Maxima); err != nil {
		return err
	}
	if cfg.Squeeze.ExtremeFundingPct < 0 {
		return errors.New("extreme_funding_pct must not be negative")
	}

	if cfg.Redis.Enabled && strings.TrimSpace(cfg.Redis.Addr) == "" {
		return errors.New("redis.addr empty but enabled")
	}
	return nil
}

func checkScales(name string, s SqueezeScales) error {
	for _, v := range []float64{s.OI, s.Price, s.Crowding, s.Accel, s.Liquidity} {
		if v <= 0 {
			return fmt.Errorf("squeeze %s must be positive", name)
		}
	}
	return nil
}

func normalizeVenueList(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, s := range in {
		v := strings.ToLower(strings.TrimSpace(s))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
