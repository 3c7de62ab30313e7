package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	billingdomain "github.com/smallbiznis/milkseller/internal/billing/domain"
	"github.com/smallbiznis/milkseller/internal/clock"
	"github.com/smallbiznis/milkseller/internal/config"
	pricingservice "github.com/smallbiznis/milkseller/internal/pricing/service"
	ratedomain "github.com/smallbiznis/milkseller/internal/ratehistory/domain"
	rateservice "github.com/smallbiznis/milkseller/internal/ratehistory/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var breakdownInput string

// breakdownCmd computes a breakdown from a JSON file without touching the
// database or the upstream API. Prices come from the configured rate card.
var breakdownCmd = &cobra.Command{
	Use:   "breakdown",
	Short: "Compute a billing breakdown from a JSON ledger",
	Long: `Reads {"history", "deliveries", "start_date", "end_date", "milk_type"} from --input
(or stdin) and prints the breakdown as JSON.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if breakdownInput != "" && breakdownInput != "-" {
			f, err := os.Open(breakdownInput)
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}

		var req billingdomain.ComputeRequest
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("decode input: %w", err)
		}

		out, err := computeOffline(cmd, req)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	breakdownCmd.Flags().StringVarP(&breakdownInput, "input", "i", "", "ledger JSON file, - for stdin")
}

func computeOffline(cmd *cobra.Command, req billingdomain.ComputeRequest) (ratedomain.Breakdown, error) {
	log := zap.NewNop()
	cfg := config.Load()
	cfg.PricingSource = config.PricingSourceConfig
	clk := clock.New()

	lookup := ratedomain.NoPricing
	if req.MilkType != "" {
		if !req.MilkType.Valid() {
			return ratedomain.Breakdown{}, billingdomain.ErrInvalidMilkType
		}
		holder, err := config.NewPricingConfigHolder(log)
		if err != nil {
			return ratedomain.Breakdown{}, err
		}
		pricing := pricingservice.New(pricingservice.Params{
			Log:     log,
			Clock:   clk,
			Config:  cfg,
			Pricing: holder,
		})
		card, err := pricing.RateCard(cmd.Context(), req.MilkType)
		if err != nil {
			return ratedomain.Breakdown{}, err
		}
		lookup = card
	}

	rates := rateservice.NewService(rateservice.ServiceParam{Log: log, Clock: clk, Config: cfg})
	return rates.BuildBillingBreakdown(ratedomain.BreakdownInput{
		History:    req.History,
		Deliveries: req.Deliveries,
		Start:      req.Start,
		End:        req.End,
		MilkType:   req.MilkType,
		Pricing:    lookup,
	}), nil
}
