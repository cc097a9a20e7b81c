package usecase

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"ExtremeScan/internal/domain/models"
	domsvc "ExtremeScan/internal/domain/service"
	"ExtremeScan/internal/repository"
	"ExtremeScan/internal/services/analysis"
	"ExtremeScan/pkg/cache"
)

type fakeStrategy struct {
	name    string
	weight  float64
	bias    models.Bias
	conf    float64
	silent  bool
	explode bool
}

func (s fakeStrategy) Name() string    { return s.name }
func (s fakeStrategy) Weight() float64 { return s.weight }

func (s fakeStrategy) Evaluate(string, *models.MarketSnapshot) *models.StrategyContribution {
	if s.explode {
		panic("boom")
	}
	if s.silent {
		return nil
	}
	return &models.StrategyContribution{Name: s.name, Weight: s.weight, Bias: s.bias, Confidence: s.conf, Details: s.name + " details"}
}

func snapshot(n int, volume float64) *models.MarketSnapshot {
	cs := make([]models.Candle, n)
	for i := range cs {
		cs[i] = models.Candle{Timestamp: int64(i) * 3_600_000, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	return &models.MarketSnapshot{Candles: cs, CurrentPrice: 100, Volume24hUSD: volume}
}

var fixedNow = time.UnixMilli(1_700_000_000_000)

func newTestCombiner(strategies ...domsvc.Strategy) (*StrategyCombiner, *repository.MemorySignalStore) {
	store := repository.NewMemorySignalStore()
	factory := NewSignalFactory(
		WithFactoryClock(func() time.Time { return fixedNow }),
		WithIDGenerator(func(symbol string, _ time.Time) string { return "ep_" + symbol }),
	)
	return NewStrategyCombiner(strategies, nil, store, factory, nil, nil), store
}

func TestCombine(t *testing.T) {
	bias, conf := Combine([]models.StrategyContribution{
		{Weight: 0.25, Bias: models.Bullish, Confidence: 80},
		{Weight: 0.20, Bias: models.Bullish, Confidence: 70},
	})
	if bias != models.Bullish || math.Abs(conf-34.0/45*100) > 1e-9 {
		t.Fatalf("got %s %.4f", bias, conf)
	}

	bias, conf = Combine([]models.StrategyContribution{
		{Weight: 0.2, Bias: models.Bullish, Confidence: 80},
		{Weight: 0.2, Bias: models.Bearish, Confidence: 80},
	})
	if bias != models.Neutral || conf != 0 {
		t.Fatalf("tie should be neutral, got %s %.2f", bias, conf)
	}

	bias, _ = Combine([]models.StrategyContribution{
		{Weight: 0.2, Bias: models.Bearish, Confidence: 25},
		{Weight: 0.2, Bias: models.Neutral, Confidence: 90},
	})
	if bias != models.Neutral {
		t.Fatalf("weak side should not win, got %s", bias)
	}

	if bias, _ := Combine(nil); bias != models.Neutral {
		t.Fatalf("empty input should be neutral")
	}
}

func TestDetectOutcomes(t *testing.T) {
	strong := []domsvc.Strategy{
		fakeStrategy{name: "a", weight: 0.25, bias: models.Bearish, conf: 80},
		fakeStrategy{name: "b", weight: 0.20, bias: models.Bearish, conf: 80},
	}
	cases := []struct {
		name       string
		strategies []domsvc.Strategy
		snap       *models.MarketSnapshot
		want       models.Outcome
	}{
		{"nil snapshot", strong, nil, models.OutcomeInsufficientData},
		{"short series", strong, snapshot(49, 5e6), models.OutcomeInsufficientData},
		{"low volume", strong, snapshot(60, 1_999_999), models.OutcomeBelowVolume},
		{"one vote", []domsvc.Strategy{strong[0], fakeStrategy{name: "c", silent: true}}, snapshot(60, 5e6), models.OutcomeInsufficientStrategies},
		{"panic is absent vote", []domsvc.Strategy{strong[0], fakeStrategy{name: "p", explode: true}}, snapshot(60, 5e6), models.OutcomeInsufficientStrategies},
		{"neutral", []domsvc.Strategy{
			fakeStrategy{name: "a", weight: 0.2, bias: models.Bullish, conf: 70},
			fakeStrategy{name: "b", weight: 0.2, bias: models.Bearish, conf: 70},
		}, snapshot(60, 5e6), models.OutcomeNeutral},
		{"below confidence", []domsvc.Strategy{
			fakeStrategy{name: "a", weight: 0.2, bias: models.Bullish, conf: 55},
			fakeStrategy{name: "b", weight: 0.2, bias: models.Bullish, conf: 55},
		}, snapshot(60, 5e6), models.OutcomeBelowConfidence},
		{"accepted", strong, snapshot(60, 5e6), models.OutcomeAccepted},
	}
	for _, tc := range cases {
		c, store := newTestCombiner(tc.strategies...)
		det, err := c.Detect(context.Background(), "BTCUSDT", tc.snap)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if det.Outcome != tc.want {
			t.Errorf("%s: outcome = %s, want %s", tc.name, det.Outcome, tc.want)
		}
		if got := len(store.All()); (tc.want == models.OutcomeAccepted) != (got == 1) {
			t.Errorf("%s: store holds %d signals", tc.name, got)
		}
	}
}

func TestDetectAcceptedSignal(t *testing.T) {
	c, store := newTestCombiner(
		fakeStrategy{name: "a", weight: 0.25, bias: models.Bullish, conf: 90},
		fakeStrategy{name: "b", weight: 0.20, bias: models.Bullish, conf: 70},
		fakeStrategy{name: "c", weight: 0.20, silent: true},
	)
	det, err := c.Detect(context.Background(), "ETHUSDT", snapshot(60, 5e6))
	if err != nil || !det.Accepted() {
		t.Fatalf("expected accepted detection, got %+v err=%v", det, err)
	}
	sig := det.Signal
	if sig.SignalType != models.Buy || sig.Classification != models.PotentialLow {
		t.Errorf("unexpected side %s/%s", sig.SignalType, sig.Classification)
	}
	if sig.Confidence < 60 || sig.Confidence > 100 || len(sig.Strategies) < 2 {
		t.Errorf("signal breaks acceptance bounds: %+v", sig)
	}
	if sig.ExpiresAt-sig.Timestamp != 4*60*60*1000 {
		t.Errorf("ttl = %d", sig.ExpiresAt-sig.Timestamp)
	}
	if len(sig.Reasoning) != 2 || sig.Reasoning[0] != "a details" {
		t.Errorf("reasoning = %v", sig.Reasoning)
	}
	if _, ok := store.Get("ep_ETHUSDT"); !ok {
		t.Errorf("signal not stored")
	}
}

func TestDetectRaisedThreshold(t *testing.T) {
	c, _ := newTestCombiner(
		fakeStrategy{name: "a", weight: 0.2, bias: models.Bullish, conf: 70},
		fakeStrategy{name: "b", weight: 0.2, bias: models.Bullish, conf: 70},
	)
	c.SetMinConfidence(75)
	det, _ := c.Detect(context.Background(), "X", snapshot(60, 5e6))
	if det.Outcome != models.OutcomeBelowConfidence {
		t.Fatalf("outcome = %s", det.Outcome)
	}
	c.SetMinConfidence(10)
	if det, _ := c.Detect(context.Background(), "X", snapshot(60, 5e6)); det.Outcome != models.OutcomeAccepted {
		t.Fatalf("threshold below 60 should clamp to 60, outcome = %s", det.Outcome)
	}
}

func TestDetectCancelled(t *testing.T) {
	c, _ := newTestCombiner(fakeStrategy{name: "a", weight: 0.2, bias: models.Bullish, conf: 90})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Detect(ctx, "X", snapshot(60, 5e6)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSignalFactoryLevels(t *testing.T) {
	f := NewSignalFactory(WithFactoryClock(func() time.Time { return fixedNow }))

	buy := f.Build("BTCUSDT", 100, 3e6, models.Bullish, 72.6, nil)
	if buy.TargetPrice != 103 || buy.StopLoss != 98.5 || buy.RiskReward != 2 || buy.Confidence != 73 {
		t.Errorf("unexpected buy levels %+v", buy)
	}
	sell := f.Build("BTCUSDT", 100, 3e6, models.Bearish, 61, nil)
	if sell.SignalType != models.Sell || sell.TargetPrice != 97 || sell.StopLoss != 101.5 {
		t.Errorf("unexpected sell levels %+v", sell)
	}
	if buy.Status != models.StatusActive || buy.Timestamp != fixedNow.UnixMilli() {
		t.Errorf("unexpected metadata %+v", buy)
	}

	id := SignalID("BTCUSDT", fixedNow)
	prefix := "ep_BTCUSDT_1700000000000_"
	if len(id) != len(prefix)+8 || id[:len(prefix)] != prefix {
		t.Errorf("id = %q", id)
	}
	if id == SignalID("BTCUSDT", fixedNow) {
		t.Errorf("ids at the same instant must differ")
	}
}

func series(n int, candle func(i int) models.Candle) *models.MarketSnapshot {
	cs := make([]models.Candle, n)
	for i := range cs {
		cs[i] = candle(i)
		cs[i].Timestamp = fixedNow.UnixMilli() - int64(n-1-i)*3_600_000
	}
	return &models.MarketSnapshot{Candles: cs, CurrentPrice: cs[n-1].Close, Volume24hUSD: 5e6}
}

func newAnalysisCombiner() (*StrategyCombiner, *repository.MemorySignalStore) {
	mc := cache.NewMemoryCache(cache.WithMemoryCleanup(0))
	lines := repository.NewCachedTrendlines(mc, time.Hour, nil)
	store := repository.NewMemorySignalStore()
	strategies := analysis.DefaultStrategies(analysis.NewTrendlineAnalyzer(lines))
	factory := NewSignalFactory(WithFactoryClock(func() time.Time { return fixedNow }))
	return NewStrategyCombiner(strategies, lines, store, factory, nil, nil), store
}

func TestDetectMonotonicSeriesHasNoSignal(t *testing.T) {
	c, store := newAnalysisCombiner()
	snap := series(100, func(i int) models.Candle {
		p := 100 + float64(i)
		return models.Candle{Open: p - 0.5, High: p + 1, Low: p - 1, Close: p, Volume: 10}
	})
	det, err := c.Detect(context.Background(), "BTCUSDT", snap)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if det.Outcome != models.OutcomeInsufficientStrategies || len(det.Contributions) != 0 {
		t.Fatalf("outcome = %s with %d votes", det.Outcome, len(det.Contributions))
	}
	if n := len(store.All()); n != 0 {
		t.Fatalf("store holds %d signals", n)
	}
}

// A flat 99..101 range makes every interior bar both a swing high and a
// swing low. Trendline and S/R vote support, Elliott ends on wave C with
// equal legs (95%), harmonic sees XA == 0 and volume is flat.
func TestDetectRangeNearSupportIsBuy(t *testing.T) {
	c, store := newAnalysisCombiner()
	snap := series(60, func(int) models.Candle {
		return models.Candle{Open: 100, High: 101, Low: 99, Close: 100, Volume: 10}
	})
	snap.CurrentPrice = 99.5

	det, err := c.Detect(context.Background(), "ETHUSDT", snap)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if det.Outcome != models.OutcomeAccepted {
		t.Fatalf("outcome = %s votes=%+v", det.Outcome, det.Contributions)
	}

	want := []string{analysis.NameTrendline, analysis.NameElliottWave, analysis.NameSupportResistance}
	if len(det.Contributions) != len(want) {
		t.Fatalf("votes = %+v", det.Contributions)
	}
	for i, v := range det.Contributions {
		if v.Name != want[i] || v.Bias != models.Bullish {
			t.Errorf("vote %d = %s/%s, want %s/BULLISH", i, v.Name, v.Bias, want[i])
		}
	}
	if math.Abs(det.Confidence-64.0/65*100) > 1e-9 {
		t.Errorf("confidence = %v", det.Confidence)
	}

	sig := det.Signal
	if sig.SignalType != models.Buy || sig.Confidence != 98 || sig.Price != 99.5 {
		t.Errorf("signal = %s conf=%v price=%v", sig.SignalType, sig.Confidence, sig.Price)
	}
	if !strings.HasPrefix(sig.ID, "ep_ETHUSDT_") || len(sig.Reasoning) != 3 {
		t.Errorf("id=%s reasoning=%v", sig.ID, sig.Reasoning)
	}
	if _, ok := store.Get(sig.ID); !ok {
		t.Errorf("signal not stored")
	}
	if lines := c.Trendlines("ETHUSDT"); len(lines) == 0 || lines[0].Type != models.Support {
		t.Errorf("trendline table = %+v", lines)
	}
}
