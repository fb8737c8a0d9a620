package whale

import (
	"context"
	"errors"
	"testing"
	"time"

	"covered-call-lab/internal/domain"
)

var whaleNow = time.Date(2025, 6, 2, 16, 0, 0, 0, time.UTC)

func newTestDetector(avgVolume AvgVolumeFn) *Detector {
	d := NewDetector(Config{}, avgVolume)
	d.now = func() time.Time { return whaleNow }
	return d
}

// whaleRecord passes every detection gate: $50K premium on cheap
// contracts, 25x volume, sweep, 30 DTE, tight spread.
func whaleRecord() *domain.RawActivityRecord {
	return &domain.RawActivityRecord{
		Timestamp:       whaleNow.Add(-10 * time.Minute),
		Symbol:          "AAPL",
		UnderlyingPrice: 200,
		TradeType:       "sweep",
		OptionType:      "call",
		Strike:          210,
		Expiration:      whaleNow.AddDate(0, 0, 30),
		Contracts:       1000,
		Premium:         0.50,
		Bid:             0.45,
		Ask:             0.55,
		Volume:          5000,
		AvgVolume:       200,
		OpenInterest:    8000,
	}
}

func TestDetect_PremiumThresholdExact(t *testing.T) {
	d := newTestDetector(nil)
	ctx := context.Background()

	// 999 contracts at $0.50: $49,950 total, under the bar.
	small := whaleRecord()
	small.Contracts = 999

	// 1000 contracts: exactly $50,000.
	exact := whaleRecord()

	flows, errs := d.Detect(ctx, []*domain.RawActivityRecord{small, exact})
	if len(errs) != 0 {
		t.Fatalf("errs = %v, want none", errs)
	}
	if len(flows) != 1 {
		t.Fatalf("len(flows) = %d, want 1 (only the $50,000 record)", len(flows))
	}
	if flows[0].TotalPremium != 50_000 {
		t.Errorf("TotalPremium = %.0f, want 50000", flows[0].TotalPremium)
	}
	if flows[0].ID == "" {
		t.Error("flow ID not set")
	}
}

func TestDetect_GateRejections(t *testing.T) {
	d := newTestDetector(nil)
	ctx := context.Background()

	breakGate := []struct {
		name   string
		mutate func(*domain.RawActivityRecord)
	}{
		{"expensive contract", func(r *domain.RawActivityRecord) { r.Premium = 1.50; r.Bid = 1.40; r.Ask = 1.60 }},
		{"weak volume ratio", func(r *domain.RawActivityRecord) { r.AvgVolume = 1000 }},
		{"too far out", func(r *domain.RawActivityRecord) { r.Expiration = whaleNow.AddDate(0, 0, 60) }},
		{"plain trade type", func(r *domain.RawActivityRecord) { r.TradeType = "single" }},
		{"no bid", func(r *domain.RawActivityRecord) { r.Bid = 0 }},
		{"wide spread", func(r *domain.RawActivityRecord) { r.Bid = 0.30; r.Ask = 0.55 }},
	}

	for _, tt := range breakGate {
		t.Run(tt.name, func(t *testing.T) {
			r := whaleRecord()
			tt.mutate(r)
			flows, errs := d.Detect(ctx, []*domain.RawActivityRecord{r})
			if len(flows) != 0 || len(errs) != 0 {
				t.Errorf("Detect() = %d flows, %d errs; want record silently gated out", len(flows), len(errs))
			}
		})
	}
}

func TestDetect_MalformedRecordsTagged(t *testing.T) {
	d := newTestDetector(nil)
	ctx := context.Background()

	noSymbol := whaleRecord()
	noSymbol.Symbol = "  "
	badType := whaleRecord()
	badType.OptionType = "straddle"
	negative := whaleRecord()
	negative.Premium = -2

	flows, errs := d.Detect(ctx, []*domain.RawActivityRecord{noSymbol, whaleRecord(), badType, negative, nil})
	if len(flows) != 1 {
		t.Fatalf("len(flows) = %d, want the one clean record", len(flows))
	}
	if len(errs) != 4 {
		t.Fatalf("len(errs) = %d, want 4", len(errs))
	}
	if errs[0].Index != 0 || errs[1].Index != 2 || errs[2].Index != 3 || errs[3].Index != 4 {
		t.Errorf("error indexes = %v, want [0 2 3 4]", []int{errs[0].Index, errs[1].Index, errs[2].Index, errs[3].Index})
	}
	for _, e := range errs {
		if e.Reason == "" {
			t.Error("error without a reason")
		}
	}
}

func TestDetect_AvgVolumeFallback(t *testing.T) {
	ctx := context.Background()

	r := whaleRecord()
	r.AvgVolume = 0 // feed did not carry a baseline

	// Archive baseline of 100 makes the 5000 volume a 50x spike.
	d := newTestDetector(func(ctx context.Context, symbol string) (float64, error) {
		return 100, nil
	})
	if flows, _ := d.Detect(ctx, []*domain.RawActivityRecord{r}); len(flows) != 1 {
		t.Errorf("len(flows) = %d, want 1 with archive baseline", len(flows))
	}

	// Archive baseline of 1000 makes it a 5x non-event.
	d = newTestDetector(func(ctx context.Context, symbol string) (float64, error) {
		return 1000, nil
	})
	if flows, _ := d.Detect(ctx, []*domain.RawActivityRecord{whaleRecordNoAvg()}); len(flows) != 0 {
		t.Errorf("len(flows) = %d, want 0 with weak baseline", len(flows))
	}

	// No baseline anywhere: the ratio gate cannot be applied.
	d = newTestDetector(func(ctx context.Context, symbol string) (float64, error) {
		return 0, errors.New("no history")
	})
	if flows, _ := d.Detect(ctx, []*domain.RawActivityRecord{whaleRecordNoAvg()}); len(flows) != 1 {
		t.Errorf("len(flows) = %d, want 1 when no baseline exists", len(flows))
	}
}

func whaleRecordNoAvg() *domain.RawActivityRecord {
	r := whaleRecord()
	r.AvgVolume = 0
	return r
}

func TestClassifySentiment(t *testing.T) {
	tests := []struct {
		name       string
		optionType string
		strike     float64
		want       domain.Sentiment
	}{
		{"far OTM call", "call", 225, domain.SentimentVeryBullish}, // > +10%
		{"near OTM call", "call", 205, domain.SentimentBullish},
		{"ITM call", "call", 190, domain.SentimentStrongBullish},
		{"far OTM put", "put", 175, domain.SentimentVeryBearish}, // < -10%
		{"near OTM put", "put", 195, domain.SentimentBearish},
		{"ITM put", "put", 210, domain.SentimentStrongBearish},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := whaleRecord()
			r.OptionType = tt.optionType
			r.Strike = tt.strike
			if got := classifySentiment(r); got != tt.want {
				t.Errorf("classifySentiment() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifyAggressiveness(t *testing.T) {
	tests := []struct {
		dte  int
		want domain.Aggressiveness
	}{
		{3, domain.AggressivenessExtreme},
		{7, domain.AggressivenessExtreme},
		{14, domain.AggressivenessHigh},
		{21, domain.AggressivenessHigh},
		{35, domain.AggressivenessModerate},
	}
	for _, tt := range tests {
		if got := classifyAggressiveness(tt.dte); got != tt.want {
			t.Errorf("classifyAggressiveness(%d) = %s, want %s", tt.dte, got, tt.want)
		}
	}
}

func TestClassifyPattern(t *testing.T) {
	d := newTestDetector(nil)

	sweep := whaleRecord()
	sweep.Volume = 15_000
	if pattern, confidence := d.classifyPattern(sweep); pattern != "AGGRESSIVE_SWEEP" || confidence != 85 {
		t.Errorf("sweep = (%s, %.0f), want (AGGRESSIVE_SWEEP, 85)", pattern, confidence)
	}

	block := whaleRecord()
	block.TradeType = "block"
	block.Premium = 0.90
	block.Contracts = 2000 // $180K
	block.Volume = 5000
	if pattern, confidence := d.classifyPattern(block); pattern != "INSTITUTIONAL_BLOCK" || confidence != 80 {
		t.Errorf("block = (%s, %.0f), want (INSTITUTIONAL_BLOCK, 80)", pattern, confidence)
	}

	opening := whaleRecord()
	opening.TradeType = "split_block"
	opening.Volume = 5000
	opening.OpenInterest = 8000 // ratio 0.625
	if pattern, confidence := d.classifyPattern(opening); pattern != "POSITION_OPENING" || confidence != 75 {
		t.Errorf("opening = (%s, %.0f), want (POSITION_OPENING, 75)", pattern, confidence)
	}

	plain := whaleRecord()
	plain.TradeType = "split_block"
	plain.Volume = 1000
	plain.OpenInterest = 8000
	if pattern, confidence := d.classifyPattern(plain); pattern != "LARGE_TRADE" || confidence != 70 {
		t.Errorf("plain = (%s, %.0f), want (LARGE_TRADE, 70)", pattern, confidence)
	}

	// Deep OTM conviction bonus: strike 25% above spot.
	deep := whaleRecord()
	deep.TradeType = "split_block"
	deep.Volume = 1000
	deep.OpenInterest = 8000
	deep.Strike = 250
	if _, confidence := d.classifyPattern(deep); confidence != 80 {
		t.Errorf("deep OTM confidence = %.0f, want 70+10", confidence)
	}
}
