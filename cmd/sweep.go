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

var sweepHorizonHours int

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one conflict detection pass and print the open conflicts",
	RunE:  runSweep,
}

func init() {
	sweepCmd.Flags().IntVar(&sweepHorizonHours, "horizon", 48, "detection horizon in hours")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	horizon := model.NewWindow(time.Now(), time.Duration(sweepHorizonHours)*time.Hour)
	open := svc.Manager.DetectConflicts(context.Background(), horizon)
	if len(open) == 0 {
		cmd.Println("no open conflicts")
		return nil
	}
	for _, c := range open {
		cmd.Printf("%s\t%s\t%s\t%s\n", c.Severity, c.Type, c.ID, c.Detail)
	}
	return nil
}
