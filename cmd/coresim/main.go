// Command coresim drives the cross-margin core from the command line: it
// bootstraps a small demo book and replays a script of bid/ask ticks
// through it, printing the batched outcome of each tick.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/my-cfd-platform/cross-margin-core/aggregate"
	"github.com/my-cfd-platform/cross-margin-core/config"
	"github.com/my-cfd-platform/cross-margin-core/core"
)

var scriptPath string

var rootCmd = &cobra.Command{
	Use:   "coresim",
	Short: "Replay a tick script through the cross-margin core",
	RunE:  runSim,
}

func init() {
	rootCmd.Flags().StringVarP(&scriptPath, "script", "s", "", "(required) path to a newline-delimited JSON tick script")
	_ = rootCmd.MarkFlagRequired("script")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// tick is the on-disk shape of one line of the script file.
type tick struct {
	AssetPair string  `json:"asset_pair"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Base      string  `json:"base"`
	Quote     string  `json:"quote"`
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	agg, err := bootstrapDemoBook(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	f, err := os.Open(scriptPath)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		var t tick
		if err := json.Unmarshal([]byte(line), &t); err != nil {
			return fmt.Errorf("decode tick line %q: %w", line, err)
		}

		ba := core.BidAsk{
			AssetPair: t.AssetPair,
			Bid:       t.Bid,
			Ask:       t.Ask,
			Base:      t.Base,
			Quote:     t.Quote,
			Date:      time.Now(),
		}

		result, err := agg.HandleBidAsk(ba, uuid.NewString())
		if err != nil {
			fmt.Printf("tick %s failed: %v\n", t.AssetPair, err)
			continue
		}
		printResult(t.AssetPair, result)
	}
	return scanner.Err()
}

func printResult(pair string, result aggregate.TickResult) {
	fmt.Printf("tick %s: %d closed, %d executed, %d failed\n",
		pair, len(result.Closed), len(result.Executed), len(result.Failed))
	for _, c := range result.Closed {
		fmt.Printf("  closed %s reason=%s pl=%.2f\n", c.Position.ID, c.Reason, c.Position.PL)
	}
	for _, e := range result.Executed {
		fmt.Printf("  executed %s\n", e.ID)
	}
	for _, r := range result.Failed {
		fmt.Printf("  failed %s reason=%s\n", r.Position.ID, r.Reason)
	}
}

// bootstrapDemoBook seeds a single demo account with no open positions
// against a small EUR/USD + USD/JPY instrument universe. Synthetic crosses
// are registered only for (currency, account currency) pairs that neither
// instrument quotes; for the default USD account there are none.
func bootstrapDemoBook(cfg *config.Config) (*aggregate.Aggregate, error) {
	account := &core.Account{
		ID:       uuid.NewString(),
		TraderID: uuid.NewString(),
		Currency: cfg.DefaultAccount.Currency,
		Balance:  cfg.DefaultAccount.Balance,
		Leverage: cfg.DefaultAccount.Leverage,
		StopOut:  cfg.DefaultAccount.StopOut,
	}

	instruments := []core.Instrument{
		{ID: "EURUSD", Base: "EUR", Quote: "USD"},
		{ID: "USDJPY", Base: "USD", Quote: "JPY"},
	}

	seedPrices := []core.BidAsk{
		{AssetPair: "EURUSD", Bid: 1.1000, Ask: 1.1002, Base: "EUR", Quote: "USD"},
		{AssetPair: "USDJPY", Bid: 157.00, Ask: 157.03, Base: "USD", Quote: "JPY"},
	}

	return aggregate.New(
		[]*core.Account{account},
		nil,
		nil,
		instruments,
		[]string{cfg.DefaultAccount.Currency},
		seedPrices,
	)
}
