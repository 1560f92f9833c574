// Package engine orchestrates the per-cycle pipeline: fetch markets,
// classify and match, compute features and forecasts, rank candidates,
// and gate emission through the admission ledger.
package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/cryptomagiciian/sali-bot/internal/classify"
	"github.com/cryptomagiciian/sali-bot/internal/kalshi"
	"github.com/cryptomagiciian/sali-bot/internal/models"
	"github.com/cryptomagiciian/sali-bot/internal/scoring"
)

// MarketSource provides market listings and orderbooks.
type MarketSource interface {
	ListMarkets(ctx context.Context, status string, limit int) ([]kalshi.MarketInfo, error)
	GetOrderbook(ctx context.Context, ticker string) (*kalshi.Orderbook, error)
}

// Store is the persistence surface the engine writes through.
type Store interface {
	LedgerStore
	SaveSnapshot(snap models.Snapshot) error
	SaveAgentOutput(out models.AgentOutput) error
	SavePrediction(ts time.Time, ticker string, pMarket, pModel, edge, confidence float64) error
	SaveSignal(sig *models.Signal) error
	WatchlistAdd(ticker, vertical string) error
	WatchlistAll() (map[string]string, error)
}

// Notifier delivers signals, best effort. Failures are logged and never
// retried within the same cycle.
type Notifier interface {
	SendSignal(sig models.Signal) error
	SendPicks(picks []models.CategoryPicks) error
}

// Config holds the engine's admission thresholds and cycle behavior.
type Config struct {
	EdgeThreshold       float64
	ConfidenceThreshold float64
	SpreadThreshold     float64
	// DefaultSpreadPct is assumed when no ask price is known.
	DefaultSpreadPct float64
	// TopNOverride, when positive, replaces every category's top-N.
	TopNOverride int
	// CategoryScan selects the cross-category scan over the legacy
	// watchlist loop.
	CategoryScan bool
	// DiscoveryInterval refreshes the watchlist every Nth cycle.
	DiscoveryInterval int
	MarketLimit       int
	// DryRun computes and persists but records no alerts and sends
	// no notifications.
	DryRun bool
}

// Engine runs one admission-controlled signal cycle at a time.
type Engine struct {
	source     MarketSource
	store      Store
	ledger     *Ledger
	agent      *scoring.Agent
	forecaster *scoring.Forecaster
	classifier *classify.Classifier
	matcher    *classify.CategoryMatcher
	notifier   Notifier
	cfg        Config

	cycle int
	now   func() time.Time
}

// New creates an Engine. notifier may be nil to disable delivery.
func New(source MarketSource, store Store, ledger *Ledger, agent *scoring.Agent,
	classifier *classify.Classifier, matcher *classify.CategoryMatcher,
	notifier Notifier, cfg Config) *Engine {
	if cfg.DefaultSpreadPct <= 0 {
		cfg.DefaultSpreadPct = 0.10
	}
	if cfg.DiscoveryInterval <= 0 {
		cfg.DiscoveryInterval = 20
	}
	if cfg.MarketLimit <= 0 {
		cfg.MarketLimit = 1000
	}
	return &Engine{
		source:     source,
		store:      store,
		ledger:     ledger,
		agent:      agent,
		forecaster: scoring.NewForecaster(),
		classifier: classifier,
		matcher:    matcher,
		notifier:   notifier,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RunCycle executes one poll cycle. Per-ticker failures are skipped;
// only a failed market listing fails the whole cycle.
func (e *Engine) RunCycle(ctx context.Context) error {
	e.cycle++
	start := e.now()

	markets, err := e.source.ListMarkets(ctx, "open", e.cfg.MarketLimit)
	if err != nil {
		return fmt.Errorf("failed to list markets: %w", err)
	}
	marketMap := make(map[string]kalshi.MarketInfo, len(markets))
	for _, m := range markets {
		if m.Ticker != "" {
			marketMap[m.Ticker] = m
		}
	}
	log.Debug().Int("markets", len(marketMap)).Int("cycle", e.cycle).Msg("Fetched market listings")

	if e.cfg.CategoryScan {
		e.runCategoryScan(ctx, markets, marketMap)
	} else {
		e.runWatchlist(ctx, markets, marketMap)
	}

	log.Info().Int("cycle", e.cycle).Dur("took", e.now().Sub(start)).Msg("Cycle completed")
	return nil
}

type candidate struct {
	signal     *models.Signal
	categories []string
}

// runCategoryScan matches every market against all categories, scores each
// matching ticker once under its first-matched category, ranks it in every
// matched category, and admits each ticker at most once for the cycle.
func (e *Engine) runCategoryScan(ctx context.Context, markets []kalshi.MarketInfo, marketMap map[string]kalshi.MarketInfo) {
	var candidates []candidate
	for _, m := range markets {
		if m.Ticker == "" {
			continue
		}
		matches := e.matcher.Match(m.Title, m.Subtitle, m.EventTicker, m.EventTitle, m.Ticker)
		if len(matches) == 0 {
			continue
		}

		// First-matched category drives feature scoring; the final
		// signal carries the union of all categories and keywords.
		primary := matches[0].Category
		var allCats, allKeywords []string
		seenCat := make(map[string]bool)
		seenKw := make(map[string]bool)
		for _, match := range matches {
			if !seenCat[match.Category] {
				seenCat[match.Category] = true
				allCats = append(allCats, match.Category)
			}
			for _, kw := range match.Keywords {
				if !seenKw[kw] {
					seenKw[kw] = true
					allKeywords = append(allKeywords, kw)
				}
			}
		}

		sig := e.processMarket(ctx, m.Ticker, primary, marketMap)
		if sig == nil {
			continue
		}
		sig.Categories = allCats
		sig.MatchedKeywords = allKeywords
		candidates = append(candidates, candidate{signal: sig, categories: allCats})
	}

	// Rank per matched category, stable so input order breaks ties. A
	// multi-category signal competes in every list it matched.
	byCategory := make(map[string][]*models.Signal)
	for _, c := range candidates {
		for _, cat := range c.categories {
			byCategory[cat] = append(byCategory[cat], c.signal)
		}
	}
	for cat, sigs := range byCategory {
		sort.SliceStable(sigs, func(i, j int) bool {
			return sigs[i].SignalScore > sigs[j].SignalScore
		})
		topN := e.cfg.TopNOverride
		if topN <= 0 {
			topN = e.matcher.TopN(cat, 3)
		}
		if len(sigs) > topN {
			sigs = sigs[:topN]
		}
		byCategory[cat] = sigs
	}

	// Admission pass: each ticker is ledger-checked exactly once per
	// cycle, however many category lists it ranked in.
	decisions := make(map[string]bool)
	var picks []models.CategoryPicks
	for _, rule := range e.matcher.Rules() {
		ranked := byCategory[rule.Name]
		if len(ranked) == 0 {
			continue
		}
		group := models.CategoryPicks{Category: rule.Name}
		for _, sig := range ranked {
			admitted, seen := decisions[sig.Ticker]
			if !seen {
				var err error
				if e.cfg.DryRun {
					admitted, err = e.ledger.Allowed(sig.Ticker)
				} else {
					admitted, err = e.ledger.Admit(sig.Ticker)
				}
				if err != nil {
					log.Warn().Err(err).Str("ticker", sig.Ticker).Msg("Admission check failed")
					admitted = false
				}
				decisions[sig.Ticker] = admitted

				if err := e.store.SaveSignal(sig); err != nil {
					log.Warn().Err(err).Str("ticker", sig.Ticker).Msg("Failed to persist signal")
				}
			}

			if admitted {
				group.Signals = append(group.Signals, models.RankedSignal{Signal: *sig, Admitted: true})
			}
		}
		if len(group.Signals) > 0 {
			picks = append(picks, group)
		}
	}

	total := 0
	for _, g := range picks {
		total += len(g.Signals)
	}
	log.Info().Int("categories", len(picks)).Int("picks", total).Msg("Category scan complete")

	if total > 0 && e.notifier != nil && !e.cfg.DryRun {
		if err := e.notifier.SendPicks(picks); err != nil {
			log.Error().Err(err).Msg("Failed to send category picks")
		}
	}
}

// runWatchlist iterates the persisted watchlist, refreshing it by
// classification-based discovery every Nth cycle.
func (e *Engine) runWatchlist(ctx context.Context, markets []kalshi.MarketInfo, marketMap map[string]kalshi.MarketInfo) {
	watchlist, err := e.store.WatchlistAll()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load watchlist")
		return
	}

	if e.cycle%e.cfg.DiscoveryInterval == 1 {
		added := e.discover(markets, watchlist)
		log.Info().Int("added", added).Int("watchlist", len(watchlist)).Msg("Watchlist discovery")
	}

	tickers := make([]string, 0, len(watchlist))
	for ticker := range watchlist {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	sent := 0
	for _, ticker := range tickers {
		sig := e.processMarket(ctx, ticker, watchlist[ticker], marketMap)
		if sig == nil {
			continue
		}

		var admitted bool
		if e.cfg.DryRun {
			admitted, err = e.ledger.Allowed(ticker)
		} else {
			admitted, err = e.ledger.Admit(ticker)
		}
		if err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("Admission check failed")
			continue
		}

		if err := e.store.SaveSignal(sig); err != nil {
			log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to persist signal")
		}
		if admitted && e.notifier != nil && !e.cfg.DryRun {
			if err := e.notifier.SendSignal(*sig); err != nil {
				log.Error().Err(err).Str("ticker", ticker).Msg("Failed to send signal")
			} else {
				sent++
			}
		}
	}
	log.Info().Int("processed", len(tickers)).Int("sent", sent).Msg("Watchlist cycle complete")
}

// discover classifies all fetched markets and adds new tickers to the
// watchlist. Existing entries keep their vertical.
func (e *Engine) discover(markets []kalshi.MarketInfo, watchlist map[string]string) int {
	added := 0
	for _, m := range markets {
		if m.Ticker == "" || m.Title == "" {
			continue
		}
		if _, exists := watchlist[m.Ticker]; exists {
			continue
		}
		vertical, ok := e.classifier.Classify(m.Title, m.Ticker)
		if !ok {
			continue
		}
		if err := e.store.WatchlistAdd(m.Ticker, vertical); err != nil {
			log.Warn().Err(err).Str("ticker", m.Ticker).Msg("Failed to add watchlist entry")
			continue
		}
		watchlist[m.Ticker] = vertical
		added++
	}
	return added
}

// processMarket runs the per-ticker pipeline: orderbook fetch, snapshot
// persistence, feature computation, forecast, and threshold gating.
// Returns nil when the ticker is skipped or below thresholds; missing
// data never fails the cycle.
func (e *Engine) processMarket(ctx context.Context, ticker, vertical string, marketMap map[string]kalshi.MarketInfo) *models.Signal {
	book, err := e.source.GetOrderbook(ctx, ticker)
	if err != nil {
		log.Debug().Err(err).Str("ticker", ticker).Msg("Skipping ticker: no orderbook")
		return nil
	}
	yesBid := book.TopYesBid()
	if yesBid == nil {
		return nil
	}
	info, ok := marketMap[ticker]
	if !ok {
		return nil
	}

	market := &models.Market{
		Ticker:       ticker,
		Title:        info.Title,
		YesBid:       yesBid,
		NoBid:        book.TopNoBid(),
		Volume:       info.Volume,
		OpenInterest: info.OpenInterest,
	}
	if market.Title == "" {
		market.Title = ticker
	}

	now := e.now()
	if err := e.store.SaveSnapshot(models.Snapshot{
		Timestamp:    now,
		Ticker:       ticker,
		YesBid:       market.YesBid,
		NoBid:        market.NoBid,
		YesAsk:       market.YesAsk,
		NoAsk:        market.NoAsk,
		Volume:       market.Volume,
		OpenInterest: market.OpenInterest,
	}); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to persist snapshot")
	}

	pMarket := float64(*yesBid) / 100

	out := e.agent.Process(market, vertical)
	if err := e.store.SaveAgentOutput(out); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to persist agent output")
	}

	pModel, edge := e.forecaster.Predict(out.Features, pMarket)
	if err := e.store.SavePrediction(now, ticker, pMarket, pModel, edge, out.Confidence); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("Failed to persist prediction")
	}

	spreadPct := e.cfg.DefaultSpreadPct
	if market.YesBid != nil && market.YesAsk != nil {
		spreadPct = float64(*market.YesAsk-*market.YesBid) / 100
		if spreadPct < 0 {
			spreadPct = 0
		}
	}

	if edge < e.cfg.EdgeThreshold ||
		out.Confidence < e.cfg.ConfidenceThreshold ||
		spreadPct > e.cfg.SpreadThreshold {
		return nil
	}

	score := scoring.SignalScore(edge, out.Confidence, market.Volume, market.OpenInterest, spreadPct, 0)
	return &models.Signal{
		ID:           uuid.New().String(),
		Ticker:       ticker,
		Title:        market.Title,
		Vertical:     vertical,
		YesPrice:     *yesBid,
		PMarket:      pMarket,
		PModel:       pModel,
		Edge:         edge,
		Confidence:   out.Confidence,
		Why:          out.Why,
		Timestamp:    now,
		SignalScore:  score,
		Volume:       market.Volume,
		OpenInterest: market.OpenInterest,
	}
}
