package main

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lifelink-health/donormatch/internal/model"
)

var importCSVPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import donors from a CSV file",
	Long: `Import donor records from a CSV file with a header row.

Recognized columns: id, name, phone, email, blood_type, latitude,
longitude, city, district, state, last_donation (YYYY-MM-DD),
total_donations, available. Rows are upserted by id; rows without an id
get a generated one.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		f, err := os.Open(importCSVPath)
		if err != nil {
			return eris.Wrapf(err, "open %s", importCSVPath)
		}
		defer f.Close()

		r := csv.NewReader(f)
		header, err := r.Read()
		if err != nil {
			return eris.Wrap(err, "read csv header")
		}
		cols := make(map[string]int, len(header))
		for i, h := range header {
			cols[strings.ToLower(strings.TrimSpace(h))] = i
		}
		if _, ok := cols["name"]; !ok {
			return eris.New("csv missing required column: name")
		}
		if _, ok := cols["blood_type"]; !ok {
			return eris.New("csv missing required column: blood_type")
		}

		var imported, skipped int
		for {
			record, err := r.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				return eris.Wrap(err, "read csv row")
			}

			donor, err := donorFromRecord(record, cols)
			if err != nil {
				zap.L().Warn("skipping row", zap.Error(err))
				skipped++
				continue
			}
			if err := st.UpsertDonor(ctx, *donor); err != nil {
				return eris.Wrapf(err, "upsert donor %s", donor.Name)
			}
			imported++
		}

		zap.L().Info("import complete",
			zap.Int("imported", imported),
			zap.Int("skipped", skipped),
			zap.String("csv", importCSVPath),
		)
		return nil
	},
}

func donorFromRecord(record []string, cols map[string]int) (*model.Donor, error) {
	field := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	d := &model.Donor{
		ID:        field("id"),
		Name:      field("name"),
		Phone:     field("phone"),
		Email:     field("email"),
		BloodType: model.NormalizeBloodType(field("blood_type")),
		City:      field("city"),
		District:  field("district"),
		State:     field("state"),
		Available: true,
	}
	if d.Name == "" || d.BloodType == "" {
		return nil, eris.New("row missing name or blood_type")
	}

	if v := field("latitude"); v != "" {
		lat, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse latitude %q", v)
		}
		d.Latitude = &lat
	}
	if v := field("longitude"); v != "" {
		lng, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, eris.Wrapf(err, "parse longitude %q", v)
		}
		d.Longitude = &lng
	}
	if v := field("last_donation"); v != "" {
		ts, err := time.Parse("2006-01-02", v)
		if err != nil {
			return nil, eris.Wrapf(err, "parse last_donation %q", v)
		}
		d.LastDonation = &ts
	}
	if v := field("total_donations"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, eris.Wrapf(err, "parse total_donations %q", v)
		}
		d.TotalDonations = n
	}
	if v := field("available"); v != "" {
		avail, err := strconv.ParseBool(v)
		if err != nil {
			return nil, eris.Wrapf(err, "parse available %q", v)
		}
		d.Available = avail
	}

	return d, nil
}

func init() {
	importCmd.Flags().StringVar(&importCSVPath, "csv", "", "path to CSV file (required)")
	_ = importCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(importCmd)
}
