package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tickrx/internal/market"
	"tickrx/internal/ranking"
)

var (
	rankSnapshot string
	rankFormat   string
	rankPreset   string
	rankLimit    int
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Rank a market snapshot and print the candidates",
	Long: `Rank a snapshot without calling the language model.

With --snapshot the file is read instead of calling CoinGecko. The file is either
a raw /coins/markets response (--format coingecko) or an array of instruments as
served by the API (--format instruments).`,
	RunE: runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)
	rankCmd.Flags().StringVar(&rankSnapshot, "snapshot", "", "snapshot file (default: live CoinGecko scan)")
	rankCmd.Flags().StringVar(&rankFormat, "format", "coingecko", "snapshot format (coingecko|instruments)")
	rankCmd.Flags().StringVar(&rankPreset, "preset", "crypto", "ranking preset (crypto|stocks|lookup)")
	rankCmd.Flags().IntVar(&rankLimit, "limit", 0, "result limit (default: preset scan limit)")
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}

	var rc ranking.Config
	switch rankPreset {
	case "crypto":
		rc = rankingConfig(cfg.Ranking.Crypto)
	case "stocks":
		rc = rankingConfig(cfg.Ranking.Stocks)
	case "lookup":
		rc = rankingConfig(cfg.Ranking.Crypto).Unfiltered()
	default:
		return fmt.Errorf("unknown preset %q", rankPreset)
	}
	if rankLimit > 0 {
		rc.ResultLimit = rankLimit
	}

	var snapshot []market.Instrument
	if rankSnapshot != "" {
		snapshot, err = readSnapshot(rankSnapshot, rankFormat)
	} else {
		snapshot, err = newCoinGecko(cfg, log).Markets(cmd.Context())
	}
	if err != nil {
		return err
	}

	out := ranking.Rank(snapshot, rc)
	log.WithFields(map[string]any{"snapshot": len(snapshot), "candidates": len(out)}).Info("ranked")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readSnapshot(path, format string) ([]market.Instrument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	switch format {
	case "coingecko":
		return market.DecodeCoinGeckoMarkets(raw)
	case "instruments":
		var out []market.Instrument
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode instruments: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown snapshot format %q", format)
	}
}
