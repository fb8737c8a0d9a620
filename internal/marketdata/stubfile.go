package marketdata

import (
	"encoding/json"
	"fmt"
	"os"

	"covered-call-lab/internal/domain"
)

// StubFile is the JSON fixture format consumed by LoadStubFile. Chains
// are keyed by symbol, then by expiration date.
type StubFile struct {
	Quotes  []*domain.Quote               `json:"quotes"`
	Chains  map[string]domain.OptionChain `json:"chains"`
	Records []*domain.RawActivityRecord   `json:"records"`
}

// LoadStubFile reads a fixture file into a StubSource, for dry runs
// and one-shot scans without a live vendor connection.
func LoadStubFile(path string) (*StubSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stub file: %w", err)
	}

	var f StubFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse stub file %s: %w", path, err)
	}

	return NewStubSource(f.Quotes, f.Chains, f.Records), nil
}
