package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/harborops/berthd/app"
	"github.com/harborops/berthd/config"
	"github.com/harborops/berthd/core/model"
)

var planHorizonHours int

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Run one global optimization over the pending vessels and print the plan",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().IntVar(&planHorizonHours, "horizon", 48, "planning horizon in hours")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	horizon := model.NewWindow(time.Now(), time.Duration(planHorizonHours)*time.Hour)
	res, err := svc.Manager.OptimizeGlobal(context.Background(), horizon, nil)
	if err != nil {
		return err
	}
	for _, a := range res.Assignments {
		cmd.Printf("%s\t%s\t%s - %s\tscore %.1f\n", a.VesselID, a.BerthID,
			a.Window.From.Format(time.RFC3339), a.Window.To.Format(time.RFC3339), a.Score)
	}
	for _, u := range res.Unassigned {
		cmd.Printf("%s\tunassigned\t%s\n", u.VesselID, u.Reason)
	}
	cmd.Printf("cost %.1f, optimal %t, %d iterations in %s\n",
		res.Cost, res.Optimal, res.Iterations, res.Elapsed.Round(time.Millisecond))
	return nil
}
