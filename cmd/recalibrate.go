package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate",
	Short: "Recalibrate the predictive model from recorded outcomes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEngine(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		snap, err := env.Model.Recalibrate(ctx, env.Store)
		if err != nil {
			return eris.Wrap(err, "recalibrate")
		}

		zap.L().Info("recalibration complete", zap.Float64("bias", snap.Bias))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recalibrateCmd)
}
