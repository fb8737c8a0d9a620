package whale

import (
	"context"
	"math"
	"strings"
	"time"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/idhash"
)

// Config tunes the detection gate. DefaultConfig returns the standard
// thresholds.
type Config struct {
	MinTotalPremium    float64 // dollars
	MaxPremiumPerShare float64 // cheap-contract focus
	MinVolumeRatio     float64 // volume vs average volume
	MaxDTE             int
	MaxSpreadPct       float64 // fraction of ask
	SweepVolumeBar     int64   // sweep volume for AGGRESSIVE_SWEEP
	BlockPremiumBar    float64 // block premium for INSTITUTIONAL_BLOCK
	DeepOTMPct         float64 // OTM distance earning the conviction bonus
}

// DefaultConfig returns the standard detection thresholds.
func DefaultConfig() Config {
	return Config{
		MinTotalPremium:    50_000,
		MaxPremiumPerShare: 1.00,
		MinVolumeRatio:     20,
		MaxDTE:             45,
		MaxSpreadPct:       0.30,
		SweepVolumeBar:     10_000,
		BlockPremiumBar:    100_000,
		DeepOTMPct:         0.20,
	}
}

// AvgVolumeFn resolves a symbol's average option volume when the feed
// record does not carry one. Returning an error means unknown.
type AvgVolumeFn func(ctx context.Context, symbol string) (float64, error)

// RecordError tags one malformed feed record. The batch never fails for
// a single bad record.
type RecordError struct {
	Index  int    `json:"index"`
	Symbol string `json:"symbol,omitempty"`
	Reason string `json:"reason"`
}

// Detector screens raw options activity for whale flows.
type Detector struct {
	cfg       Config
	avgVolume AvgVolumeFn
	now       func() time.Time
}

// NewDetector creates a Detector. avgVolume may be nil; the volume-ratio
// gate is then skipped for records without an avg_volume of their own.
func NewDetector(cfg Config, avgVolume AvgVolumeFn) *Detector {
	if cfg.MinTotalPremium == 0 {
		cfg = DefaultConfig()
	}
	return &Detector{
		cfg:       cfg,
		avgVolume: avgVolume,
		now:       time.Now,
	}
}

// WithClock overrides the time source, for replaying historical feeds.
func (d *Detector) WithClock(now func() time.Time) *Detector {
	d.now = now
	return d
}

// Detect screens a feed batch. Records that fail the gate are simply not
// whales; records that cannot be scored at all come back as RecordErrors.
func (d *Detector) Detect(ctx context.Context, records []*domain.RawActivityRecord) ([]*domain.WhaleFlow, []RecordError) {
	var flows []*domain.WhaleFlow
	var errs []RecordError

	for i, r := range records {
		if reason := validateRecord(r); reason != "" {
			errs = append(errs, RecordError{Index: i, Symbol: recordSymbol(r), Reason: reason})
			continue
		}
		if !d.passesGate(ctx, r) {
			continue
		}
		flows = append(flows, d.build(r))
	}
	return flows, errs
}

// validateRecord returns a reason when the record cannot be scored at all.
func validateRecord(r *domain.RawActivityRecord) string {
	switch {
	case r == nil:
		return "nil record"
	case strings.TrimSpace(r.Symbol) == "":
		return "missing symbol"
	case r.UnderlyingPrice <= 0:
		return "non-positive underlying price"
	case r.Contracts <= 0:
		return "non-positive contract count"
	case r.Premium <= 0 || math.IsNaN(r.Premium) || math.IsInf(r.Premium, 0):
		return "invalid premium"
	case r.Strike <= 0:
		return "non-positive strike"
	case r.Expiration.IsZero():
		return "missing expiration"
	case r.OptionType != string(domain.OptionCall) && r.OptionType != string(domain.OptionPut):
		return "unknown option type"
	}
	return ""
}

func (d *Detector) passesGate(ctx context.Context, r *domain.RawActivityRecord) bool {
	if r.TotalPremium() < d.cfg.MinTotalPremium {
		return false
	}
	if r.Premium > d.cfg.MaxPremiumPerShare {
		return false
	}
	switch domain.FlowType(r.TradeType) {
	case domain.FlowSweep, domain.FlowBlock, domain.FlowSplitBlock:
	default:
		return false
	}
	if dte := daysBetween(d.now(), r.Expiration); dte > d.cfg.MaxDTE || dte < 0 {
		return false
	}
	if r.Bid <= 0 || r.Ask <= 0 {
		return false
	}
	if (r.Ask-r.Bid)/r.Ask > d.cfg.MaxSpreadPct {
		return false
	}

	avg := float64(r.AvgVolume)
	if avg == 0 && d.avgVolume != nil {
		if fallback, err := d.avgVolume(ctx, r.Symbol); err == nil {
			avg = fallback
		}
	}
	// Unknown baseline: the ratio gate cannot be applied.
	if avg > 0 && float64(r.Volume)/avg < d.cfg.MinVolumeRatio {
		return false
	}
	return true
}

func (d *Detector) build(r *domain.RawActivityRecord) *domain.WhaleFlow {
	dte := daysBetween(d.now(), r.Expiration)
	pattern, confidence := d.classifyPattern(r)

	var unusual float64
	if r.AvgVolume > 0 {
		unusual = float64(r.Volume) / float64(r.AvgVolume)
	}

	f := &domain.WhaleFlow{
		ID:              idhash.ComputeFlowID(r.Symbol, r.OptionType, r.Strike, r.Expiration, r.Timestamp, r.Contracts),
		Timestamp:       r.Timestamp,
		Symbol:          strings.ToUpper(r.Symbol),
		UnderlyingPrice: r.UnderlyingPrice,
		FlowType:        domain.FlowType(r.TradeType),
		OptionType:      domain.OptionType(r.OptionType),
		Strike:          r.Strike,
		Expiration:      r.Expiration,
		DaysToExp:       dte,
		Contracts:       r.Contracts,
		PremiumPerShare: r.Premium,
		TotalPremium:    r.TotalPremium(),
		UnusualFactor:   unusual,
		Sentiment:       classifySentiment(r),
		Aggressiveness:  classifyAggressiveness(dte),
		Pattern:         pattern,
		Confidence:      confidence,
	}
	f.WhaleScore = ScoreRecord(r, dte).WhaleScore
	return f
}

// classifySentiment reads direction from option type and moneyness.
func classifySentiment(r *domain.RawActivityRecord) domain.Sentiment {
	price := r.UnderlyingPrice

	switch domain.OptionType(r.OptionType) {
	case domain.OptionCall:
		switch {
		case r.Strike > price*1.10:
			return domain.SentimentVeryBullish
		case r.Strike > price:
			return domain.SentimentBullish
		default:
			return domain.SentimentStrongBullish
		}
	case domain.OptionPut:
		switch {
		case r.Strike < price*0.90:
			return domain.SentimentVeryBearish
		case r.Strike < price:
			return domain.SentimentBearish
		default:
			return domain.SentimentStrongBearish
		}
	}
	return domain.SentimentNeutral
}

func classifyAggressiveness(dte int) domain.Aggressiveness {
	switch {
	case dte <= 7:
		return domain.AggressivenessExtreme
	case dte <= 21:
		return domain.AggressivenessHigh
	default:
		return domain.AggressivenessModerate
	}
}

// classifyPattern names the trade shape and its base confidence.
func (d *Detector) classifyPattern(r *domain.RawActivityRecord) (string, float64) {
	var pattern string
	var confidence float64

	switch {
	case domain.FlowType(r.TradeType) == domain.FlowSweep && r.Volume > d.cfg.SweepVolumeBar:
		pattern, confidence = "AGGRESSIVE_SWEEP", 85
	case domain.FlowType(r.TradeType) == domain.FlowBlock && r.TotalPremium() > d.cfg.BlockPremiumBar:
		pattern, confidence = "INSTITUTIONAL_BLOCK", 80
	case r.OpenInterest > 0 && float64(r.Volume)/float64(r.OpenInterest) > 0.5:
		pattern, confidence = "POSITION_OPENING", 75
	default:
		pattern, confidence = "LARGE_TRADE", 70
	}

	if otmDistance(r) > d.cfg.DeepOTMPct {
		confidence = math.Min(confidence+10, 100)
	}
	return pattern, confidence
}

// otmDistance is the strike's distance out of the money, fractional,
// in the direction the option points.
func otmDistance(r *domain.RawActivityRecord) float64 {
	if r.UnderlyingPrice <= 0 {
		return 0
	}
	switch domain.OptionType(r.OptionType) {
	case domain.OptionCall:
		return (r.Strike - r.UnderlyingPrice) / r.UnderlyingPrice
	case domain.OptionPut:
		return (r.UnderlyingPrice - r.Strike) / r.UnderlyingPrice
	}
	return 0
}

func recordSymbol(r *domain.RawActivityRecord) string {
	if r == nil {
		return ""
	}
	return r.Symbol
}

// daysBetween counts calendar days from a to b, ignoring time of day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	start := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	end := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}
