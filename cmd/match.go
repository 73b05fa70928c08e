package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/lifelink-health/donormatch/internal/model"
)

var (
	matchBloodType string
	matchSeekerID  string
	matchLat       float64
	matchLng       float64
	matchCity      string
	matchDistrict  string
	matchFormat    string
	matchLimit     int
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run a one-shot match request against the donor pool",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		req := model.MatchRequest{
			BloodType: matchBloodType,
			SeekerID:  matchSeekerID,
			City:      matchCity,
			District:  matchDistrict,
		}
		if cmd.Flags().Changed("lat") && cmd.Flags().Changed("lng") {
			req.Latitude = &matchLat
			req.Longitude = &matchLng
		}

		resp, err := env.Matcher.FindMatches(ctx, req)
		if err != nil {
			return eris.Wrap(err, "find matches")
		}

		if matchLimit > 0 && len(resp.Candidates) > matchLimit {
			resp.Candidates = resp.Candidates[:matchLimit]
		}

		switch matchFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(resp)
		case "table":
			printCandidateTable(resp)
			return nil
		default:
			return eris.Errorf("unknown format: %q", matchFormat)
		}
	},
}

func printCandidateTable(resp *model.MatchResponse) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DONOR\tTYPE\tDISTANCE\tSCORE\tCONFIDENCE")
	for _, c := range resp.Candidates {
		dist := "unresolved"
		if c.DistanceKm != nil {
			dist = fmt.Sprintf("%.1f km", *c.DistanceKm)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			c.Name, c.BloodType, dist, c.SuitabilityScore, c.Confidence)
	}
	w.Flush()
	fmt.Printf("\n%d candidates for %s (request %s)\n",
		len(resp.Candidates), resp.BloodType, resp.RequestID)
}

func init() {
	f := matchCmd.Flags()
	f.StringVar(&matchBloodType, "blood-type", "", "requested blood type (required)")
	f.StringVar(&matchSeekerID, "seeker-id", "", "seeker identifier for outcome logging")
	f.Float64Var(&matchLat, "lat", 0, "seeker latitude")
	f.Float64Var(&matchLng, "lng", 0, "seeker longitude")
	f.StringVar(&matchCity, "city", "", "seeker city (gazetteer fallback)")
	f.StringVar(&matchDistrict, "district", "", "seeker district (gazetteer fallback)")
	f.StringVar(&matchFormat, "format", "table", "output format (table, json)")
	f.IntVar(&matchLimit, "limit", 0, "show at most N candidates (0 = all)")
	_ = matchCmd.MarkFlagRequired("blood-type")
	rootCmd.AddCommand(matchCmd)
}
