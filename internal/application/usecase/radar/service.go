package radar

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"arbradar/internal/application/port"
	"arbradar/internal/domain/engine"
	"arbradar/internal/domain/model"
	"arbradar/internal/infrastructure/metrics"

	"github.com/rs/zerolog/log"
)

var ErrNoCollectors = errors.New("no collectors enabled")

const defaultBoardSymbols = 6

// ServiceDeps wires the radar loop. CommonSymbols groups per-venue listings
// by normalized name and keeps the multi-venue ones; it lives here as a
// function so the loop stays free of symbol-mapping details.
type ServiceDeps struct {
	Collectors []port.Collector
	Feeds      []port.PriceFeed
	Sink       port.Sink
	Publisher  port.Publisher

	RefreshEvery     time.Duration
	TopRows          int
	MinVolume        float64 // 24h quote volume floor for arb candidates
	BoardSymbols     int     // live line width, in symbols
	SqueezeExchanges []string
	FundingIntervals map[string]int // venue -> hours, overrides collector defaults

	ArbConfig     engine.ArbConfig
	SqueezeConfig engine.SqueezeConfig

	CommonSymbols func(listings map[string][]string) map[string]map[string]string
}

// Service drives the refresh loop: pull every venue, run both engines, print
// the cycle tables and keep the live line current between cycles.
type Service struct {
	deps ServiceDeps
	arb  *engine.FundingArbEngine
	sqz  *engine.SqueezeEngine
	fmt  *Formatter

	board      *Board
	nativeNorm map[string]map[string]string // venue -> NATIVE -> normalized

	prevFunding map[string]float64 // engine.PrevFundingKey -> last cycle's funding
	squeezeSet  map[string]bool    // nil means every venue

	now func() time.Time
}

func NewService(deps ServiceDeps) *Service {
	if deps.RefreshEvery <= 0 {
		deps.RefreshEvery = 10 * time.Second
	}
	if deps.TopRows <= 0 {
		deps.TopRows = 50
	}
	if deps.BoardSymbols <= 0 {
		deps.BoardSymbols = defaultBoardSymbols
	}

	var squeezeSet map[string]bool
	if len(deps.SqueezeExchanges) > 0 {
		squeezeSet = make(map[string]bool, len(deps.SqueezeExchanges))
		for _, ex := range deps.SqueezeExchanges {
			squeezeSet[strings.ToLower(strings.TrimSpace(ex))] = true
		}
	}

	return &Service{
		deps:        deps,
		arb:         engine.NewFundingArbEngine(deps.ArbConfig),
		sqz:         engine.NewSqueezeEngine(deps.SqueezeConfig),
		fmt:         NewFormatter(deps.ArbConfig.GapWarningPct*100, deps.TopRows),
		prevFunding: make(map[string]float64),
		squeezeSet:  squeezeSet,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks until ctx is done. The first cycle runs before any stream
// starts; its listings decide which symbols the live board tracks.
func (s *Service) Run(ctx context.Context) error {
	if len(s.deps.Collectors) == 0 {
		return ErrNoCollectors
	}

	log.Info().
		Int("collectors", len(s.deps.Collectors)).
		Int("feeds", len(s.deps.Feeds)).
		Dur("refresh", s.deps.RefreshEvery).
		Msg("radar starting")

	snap := s.cycle(ctx)
	s.emit(ctx, snap)

	ticks, err := s.startFeeds(ctx, snap)
	if err != nil {
		return err
	}

	refresh := time.NewTicker(s.deps.RefreshEvery)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = s.deps.Sink.NewLine()
			return ctx.Err()

		case <-refresh.C:
			snap := s.cycle(ctx)
			if ctx.Err() != nil {
				continue // the Done case exits
			}
			s.emit(ctx, snap)

		case t := <-ticks:
			s.applyTick(t)
		}
	}
}

// cycle pulls every venue concurrently and runs both engines over the merged
// snapshot. A failed venue is logged and reported in the snapshot errors, it
// never aborts the cycle.
func (s *Service) cycle(ctx context.Context) *model.RadarSnapshot {
	started := time.Now()

	type result struct {
		name    string
		tickers []*model.Ticker
		err     error
	}
	results := make(chan result, len(s.deps.Collectors))
	for _, c := range s.deps.Collectors {
		go func(c port.Collector) {
			tickers, err := c.FetchAll(ctx)
			results <- result{name: c.Name(), tickers: tickers, err: err}
		}(c)
	}

	byExchange := make(map[string][]*model.Ticker, len(s.deps.Collectors))
	errs := make(map[string]string)
	for range s.deps.Collectors {
		r := <-results
		if r.err != nil {
			log.Warn().Err(r.err).Str("exchange", r.name).Msg("collect failed")
			metrics.CollectErrors.WithLabelValues(r.name).Inc()
			errs[r.name] = r.err.Error()
			continue
		}
		byExchange[r.name] = r.tickers
		metrics.TickersTotal.WithLabelValues(r.name).Add(float64(len(r.tickers)))
	}

	for venue, tickers := range byExchange {
		if hours, ok := s.deps.FundingIntervals[venue]; ok && hours > 0 {
			for _, t := range tickers {
				t.FundingIntervalHours = hours
			}
		}
	}

	venues := make([]string, 0, len(byExchange))
	for v := range byExchange {
		venues = append(venues, v)
	}
	sort.Strings(venues)

	var all, squeezeIn []*model.Ticker
	for _, v := range venues {
		all = append(all, byExchange[v]...)
		if s.squeezeSet == nil || s.squeezeSet[v] {
			squeezeIn = append(squeezeIn, byExchange[v]...)
		}
	}

	opps := s.arb.FindOpportunities(model.BuildTickerMap(byExchange), s.deps.MinVolume)
	signals := s.sqz.AnalyzeAll(squeezeIn, s.prevFunding)

	// refresh after scoring so this cycle's deltas compare against the
	// previous cycle, not against themselves
	for _, t := range squeezeIn {
		if t.FundingRate != nil {
			s.prevFunding[engine.PrevFundingKey(t.Exchange, t.Symbol)] = *t.FundingRate
		}
	}

	metrics.Opportunities.Set(float64(len(opps)))
	for _, c := range s.deps.Collectors {
		metrics.SqueezeSignals.WithLabelValues(c.Name()).Set(0)
	}
	for _, sig := range signals {
		metrics.SqueezeSignals.WithLabelValues(sig.Exchange).Inc()
	}
	metrics.CycleSeconds.Observe(time.Since(started).Seconds())

	if len(errs) == 0 {
		errs = nil
	}
	return &model.RadarSnapshot{
		Tickers:       all,
		Opportunities: opps,
		Signals:       signals,
		Errors:        errs,
		Timestamp:     s.now(),
	}
}

func (s *Service) emit(ctx context.Context, snap *model.RadarSnapshot) {
	_ = s.deps.Sink.WriteBlock(snap.Timestamp, s.fmt.CycleBlock(snap))
	if s.board != nil {
		_ = s.deps.Sink.WriteLive(s.fmt.LiveLine(s.board))
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishSnapshot(ctx, snap); err != nil {
			log.Warn().Err(err).Msg("snapshot publish failed")
		}
	}
}

// startFeeds picks the highest-volume symbols listed on at least two
// streaming venues, builds the board around them and merges every feed into
// one channel. Returns nil when nothing can stream.
func (s *Service) startFeeds(ctx context.Context, snap *model.RadarSnapshot) (<-chan port.Tick, error) {
	if len(s.deps.Feeds) == 0 || s.deps.CommonSymbols == nil {
		return nil, nil
	}

	feedVenues := make(map[string]bool, len(s.deps.Feeds))
	for _, f := range s.deps.Feeds {
		feedVenues[f.Name()] = true
	}

	listings := make(map[string][]string)
	for _, t := range snap.Tickers {
		if feedVenues[t.Exchange] {
			listings[t.Exchange] = append(listings[t.Exchange], t.Symbol)
		}
	}

	common := s.deps.CommonSymbols(listings)
	if len(common) == 0 {
		log.Warn().Msg("no symbols shared across streaming venues")
		return nil, nil
	}

	volume := make(map[string]float64, len(common))
	for _, t := range snap.Tickers {
		if feedVenues[t.Exchange] && common[t.NormalizedSymbol] != nil && t.Volume24h != nil {
			volume[t.NormalizedSymbol] += *t.Volume24h
		}
	}

	names := make([]string, 0, len(common))
	for n := range common {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if volume[names[i]] != volume[names[j]] {
			return volume[names[i]] > volume[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > s.deps.BoardSymbols {
		names = names[:s.deps.BoardSymbols]
	}

	s.nativeNorm = make(map[string]map[string]string)
	for _, n := range names {
		for venue, native := range common[n] {
			if s.nativeNorm[venue] == nil {
				s.nativeNorm[venue] = make(map[string]string)
			}
			s.nativeNorm[venue][strings.ToUpper(native)] = n
		}
	}

	merged := make(chan port.Tick, 1024)
	started := make([]string, 0, len(s.deps.Feeds))
	for _, feed := range s.deps.Feeds {
		natives := make([]string, 0, len(names))
		for _, n := range names {
			if native, ok := common[n][feed.Name()]; ok {
				natives = append(natives, native)
			}
		}
		if len(natives) == 0 {
			log.Warn().Str("feed", feed.Name()).Msg("nothing to stream on this venue")
			continue
		}

		ch, err := feed.Subscribe(ctx, natives)
		if err != nil {
			return nil, err
		}
		go func(in <-chan port.Tick) {
			for {
				select {
				case <-ctx.Done():
					return
				case t, ok := <-in:
					if !ok {
						return
					}
					merged <- t
				}
			}
		}(ch)

		log.Info().Str("feed", feed.Name()).Strs("symbols", natives).Msg("feed started")
		started = append(started, feed.Name())
	}
	if len(started) == 0 {
		return nil, nil
	}

	s.board = NewBoard(names, started)
	_ = s.deps.Sink.WriteLive(s.fmt.LiveLine(s.board))
	return merged, nil
}

func (s *Service) applyTick(t port.Tick) {
	if s.board == nil {
		return
	}
	norm := s.nativeNorm[t.Exchange][strings.ToUpper(t.Symbol)]
	if norm == "" {
		return
	}
	if s.board.Apply(t.Exchange, norm, t.Mark, t.Funding) {
		_ = s.deps.Sink.WriteLive(s.fmt.LiveLine(s.board))
	}
}
