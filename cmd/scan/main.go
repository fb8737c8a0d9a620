package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/growth"
	"covered-call-lab/internal/ledger"
	"covered-call-lab/internal/marketdata"
	"covered-call-lab/internal/scanner"
	"covered-call-lab/internal/storage"
	"covered-call-lab/internal/storage/memory"
	pgstore "covered-call-lab/internal/storage/postgres"
)

func main() {
	dataFile := flag.String("data-file", "", "Market data fixture file (quotes, chains, activity)")
	positionsFile := flag.String("positions", "", "JSON file with positions to scan (alternative to --postgres-dsn)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string holding the position ledger")
	minYield := flag.Float64("min-yield", 0, "Minimum monthly static return, fractional (e.g. 0.02)")
	best := flag.Bool("best", false, "Show only the best opportunity per symbol")
	flag.Parse()

	ctx := context.Background()

	if *dataFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --data-file is required")
		os.Exit(1)
	}
	if *positionsFile == "" && *postgresDSN == "" {
		fmt.Fprintln(os.Stderr, "Error: one of --positions or --postgres-dsn is required")
		os.Exit(1)
	}

	stub, err := marketdata.LoadStubFile(*dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading market data: %v\n", err)
		os.Exit(1)
	}
	source := marketdata.NewNormalizer(stub)

	positions, err := loadPositions(ctx, *positionsFile, *postgresDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading positions: %v\n", err)
		os.Exit(1)
	}
	if len(positions) == 0 {
		fmt.Println("No positions with at least one covered call lot. Nothing to scan.")
		return
	}

	quotes := make(map[string]*domain.Quote)
	chains := make(map[string]domain.OptionChain)
	for _, p := range positions {
		quote, err := source.GetQuote(ctx, p.Symbol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: no quote for %s, skipping: %v\n", p.Symbol, err)
			continue
		}
		chain, err := source.GetOptionChain(ctx, p.Symbol)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: no option chain for %s, skipping: %v\n", p.Symbol, err)
			continue
		}
		quotes[p.Symbol] = quote
		chains[p.Symbol] = chain
	}

	sc := scanner.New(scanner.Config{}, growth.NewClassifier(growth.DefaultConfig()))
	opportunities := sc.Scan(positions, quotes, chains)

	if *minYield > 0 {
		opportunities = scanner.FilterByCriteria(opportunities, scanner.Criteria{MinYield: minYield})
	}
	if *best {
		byNameBest := scanner.BestBySymbol(opportunities)
		opportunities = opportunities[:0]
		for _, o := range byNameBest {
			opportunities = append(opportunities, o)
		}
		sort.Slice(opportunities, func(i, j int) bool {
			return opportunities[i].ConfidenceScore > opportunities[j].ConfidenceScore
		})
	}

	printOpportunities(opportunities)
}

// loadPositions reads the ledger either from a JSON file or from Postgres.
// The file path goes through an in-memory store so the same validation
// applies in both modes.
func loadPositions(ctx context.Context, path, dsn string) ([]*domain.Position, error) {
	var store storage.PositionStore

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var specs []struct {
			Symbol      string  `json:"symbol"`
			Shares      int     `json:"shares"`
			CostBasis   float64 `json:"cost_basis"`
			AccountType string  `json:"account_type"`
			Notes       string  `json:"notes"`
		}
		if err := json.Unmarshal(data, &specs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}

		store = memory.NewPositionStore()
		manager := ledger.NewManager(store)
		for _, spec := range specs {
			_, err := manager.Add(ctx, spec.Symbol, spec.Shares, spec.CostBasis,
				domain.AccountType(spec.AccountType), spec.Notes)
			if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
				return nil, fmt.Errorf("position %s: %w", spec.Symbol, err)
			}
		}
		return manager.EligiblePositions(ctx, 0)
	}

	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()
	store = pgstore.NewPositionStore(pool)
	return ledger.NewManager(store).EligiblePositions(ctx, 0)
}

func printOpportunities(opportunities []*domain.Opportunity) {
	if len(opportunities) == 0 {
		fmt.Println("No opportunities matched.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tSTRIKE\tEXP\tDTE\tPREMIUM\tMO.YIELD\tDELTA\tWIN%\tCONF\tSTRATEGY\tEARNINGS")
	for _, o := range opportunities {
		earnings := ""
		if o.EarningsBeforeExp {
			earnings = "BEFORE EXP"
		}
		fmt.Fprintf(w, "%s\t%.2f\t%s\t%d\t%.2f\t%.2f%%\t%.2f\t%.0f\t%.0f\t%s\t%s\n",
			o.Symbol, o.Strike, o.Expiration.Format("2006-01-02"), o.DaysToExp,
			o.Premium, o.StaticReturnMonthly*100, o.Delta,
			o.WinProbability, o.ConfidenceScore, o.Strategy, earnings)
	}
	w.Flush()
	fmt.Printf("\n%d opportunities across the eligible lots.\n", len(opportunities))
}
