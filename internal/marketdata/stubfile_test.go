package marketdata

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadStubFile(t *testing.T) {
	content := `{
		"quotes": [{"Symbol": "XOM", "Price": 105, "IVRank": 55}],
		"chains": {
			"XOM": {
				"2025-07-03": [
					{"Strike": 110, "Expiration": "2025-07-03T00:00:00Z", "Bid": 1.1, "Ask": 1.3, "OpenInterest": 300}
				]
			}
		},
		"records": [
			{"symbol": "XOM", "timestamp": "2025-06-02T14:00:00Z", "trade_type": "sweep", "option_type": "call", "contracts": 1000, "premium": 0.5}
		]
	}`

	path := filepath.Join(t.TempDir(), "fixture.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	src, err := LoadStubFile(path)
	if err != nil {
		t.Fatalf("LoadStubFile: %v", err)
	}

	ctx := context.Background()
	q, err := src.GetQuote(ctx, "xom")
	if err != nil {
		t.Fatalf("GetQuote: %v", err)
	}
	if q.Price != 105 || q.IVRank != 55 {
		t.Errorf("quote = %+v", q)
	}

	chain, err := src.GetOptionChain(ctx, "XOM")
	if err != nil {
		t.Fatalf("GetOptionChain: %v", err)
	}
	if len(chain["2025-07-03"]) != 1 || chain["2025-07-03"][0].Strike != 110 {
		t.Errorf("chain = %+v", chain)
	}

	records, err := src.GetWhaleFlowFeed(ctx, time.Time{})
	if err != nil {
		t.Fatalf("GetWhaleFlowFeed: %v", err)
	}
	if len(records) != 1 || records[0].TradeType != "sweep" {
		t.Errorf("records = %+v", records)
	}
}

func TestLoadStubFile_Missing(t *testing.T) {
	if _, err := LoadStubFile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadStubFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if _, err := LoadStubFile(path); err == nil {
		t.Error("expected parse error")
	}
}
