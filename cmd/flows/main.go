package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"covered-call-lab/internal/marketdata"
	"covered-call-lab/internal/whale"
)

func main() {
	dataFile := flag.String("data-file", "", "Market data fixture file with raw options activity")
	asOf := flag.String("as-of", "", "Evaluate DTE as of this date, yyyy-mm-dd (default: today)")
	avgVolume := flag.Float64("avg-volume", 0, "Fallback average option volume for records without one")
	minConfidence := flag.Float64("min-confidence", 0, "Show only flows at or above this confidence")
	plans := flag.Bool("plans", false, "Print follow plans for the detected flows")
	flag.Parse()

	ctx := context.Background()

	if *dataFile == "" {
		fmt.Fprintln(os.Stderr, "Error: --data-file is required")
		os.Exit(1)
	}

	stub, err := marketdata.LoadStubFile(*dataFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading market data: %v\n", err)
		os.Exit(1)
	}
	records, err := stub.GetWhaleFlowFeed(ctx, time.Time{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading activity records: %v\n", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		fmt.Println("No activity records in the data file.")
		return
	}

	detector := whale.NewDetector(whale.DefaultConfig(), fallbackVolume(*avgVolume))
	if *asOf != "" {
		t, err := time.Parse("2006-01-02", *asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: malformed --as-of date %q\n", *asOf)
			os.Exit(1)
		}
		detector.WithClock(func() time.Time { return t })
	}

	flows, recordErrs := detector.Detect(ctx, records)
	for _, re := range recordErrs {
		fmt.Fprintf(os.Stderr, "Warning: record %d (%s) skipped: %s\n", re.Index, re.Symbol, re.Reason)
	}

	if *minConfidence > 0 {
		flows = whale.FilterFlows(flows, whale.FlowFilter{MinConfidence: *minConfidence})
	}
	if len(flows) == 0 {
		fmt.Printf("No whale flows detected in %d records.\n", len(records))
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tTYPE\tSTRIKE\tEXP\tDTE\tCONTRACTS\tPREMIUM\tSENTIMENT\tPATTERN\tCONF\tSCORE")
	for _, f := range flows {
		fmt.Fprintf(w, "%s\t%s %s\t%.2f\t%s\t%d\t%d\t$%.0f\t%s\t%s\t%.0f\t%.0f\n",
			f.Symbol, f.FlowType, f.OptionType, f.Strike,
			f.Expiration.Format("2006-01-02"), f.DaysToExp,
			f.Contracts, f.TotalPremium,
			f.Sentiment, f.Pattern, f.Confidence, f.WhaleScore)
	}
	w.Flush()

	summary := whale.DailySummary(flows)
	fmt.Printf("\n%d flows, %d bullish / %d bearish, $%.0f total premium, avg confidence %.0f\n",
		summary.TotalFlows, summary.BullishCount, summary.BearishCount,
		summary.TotalPremium, summary.AvgConfidence)
	for _, row := range summary.TopSymbols {
		fmt.Printf("  %-6s %d flows  $%.0f\n", row.Symbol, row.Flows, row.TotalPremium)
	}

	if *plans {
		fmt.Println()
		for _, f := range flows {
			plan, ok := whale.FollowTrade(f)
			if !ok {
				continue
			}
			fmt.Println(plan.Recommendation)
		}
	}
}

// fallbackVolume returns an AvgVolumeFn serving one flat baseline, or nil
// when no baseline was given.
func fallbackVolume(v float64) whale.AvgVolumeFn {
	if v <= 0 {
		return nil
	}
	return func(context.Context, string) (float64, error) {
		return v, nil
	}
}
