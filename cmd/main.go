package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/retail-intelligence/internal/app"
	"github.com/yungbote/retail-intelligence/internal/jobs/orchestrator"
)

var version = "dev"

type flags struct {
	input      string
	out        string
	k          int
	segmentMap string
	driver     string
	jsonOut    bool
}

func main() {
	f := &flags{}
	root := &cobra.Command{
		Use:           "retail",
		Short:         "Online retail warehouse, segmentation and churn pipeline",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.input, "input", "", "transaction file (.csv or .xlsx); overrides RETAIL_INPUT")
	pf.StringVar(&f.out, "out", "", "artifact directory; overrides RETAIL_OUTPUT_DIR")
	pf.IntVar(&f.k, "k", 0, "cluster count; overrides CLUSTER_K")
	pf.StringVar(&f.segmentMap, "segment-map", "", "segment map YAML; overrides SEGMENT_MAP")
	pf.StringVar(&f.driver, "driver", "", "warehouse driver (postgres|sqlite|none); overrides WAREHOUSE_DRIVER")
	pf.BoolVar(&f.jsonOut, "json", false, "print the run state as JSON")

	root.AddCommand(
		stageCmd(f, "load", "Load the transaction file into the star-schema warehouse", app.StagesLoad),
		stageCmd(f, "features", "Aggregate per-customer features from the warehouse", app.StagesFeatures),
		stageCmd(f, "segment", "Cluster customers into named segments", app.StagesSegment),
		stageCmd(f, "label", "Label customers as churned by inactivity", app.StagesLabel),
		stageCmd(f, "train", "Train the churn classifier and publish artifacts", app.StagesTrain),
		stageCmd(f, "score", "Score customers with the active models", app.StagesScore),
		stageCmd(f, "elbow", "Compute the k-means inertia curve", app.StagesElbow),
		stageCmd(f, "run", "Run the full pipeline end to end", app.StagesRun),
		migrateCmd(f),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (f *flags) apply(c *app.Config) {
	if f.input != "" {
		c.InputPath = f.input
	}
	if f.out != "" {
		c.OutputDir = f.out
	}
	if f.k > 0 {
		c.ClusterK = f.k
	}
	if f.segmentMap != "" {
		c.SegmentMapPath = f.segmentMap
	}
	if f.driver != "" {
		c.Driver = strings.ToLower(f.driver)
	}
}

func stageCmd(f *flags, use, short string, stages []string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, f.apply)
			if err != nil {
				return err
			}
			defer a.Close()

			st, runErr := a.RunStages(ctx, stages...)
			if st != nil {
				if err := printState(f, st); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func migrateCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the warehouse schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// app.New migrates on startup; this command only opens the warehouse.
			a, err := app.New(context.Background(), f.apply)
			if err != nil {
				return err
			}
			defer a.Close()
			if a.DB == nil {
				return fmt.Errorf("migrate: no warehouse configured (driver %q)", a.Cfg.Driver)
			}
			fmt.Printf("warehouse schema up to date (%s)\n", a.Cfg.Driver)
			return nil
		},
	}
}

func printState(f *flags, st *orchestrator.RunState) error {
	if f.jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}
	fmt.Printf("run %s: %s\n", st.RunID, st.Status)
	for _, name := range st.Order {
		ss := st.Stages[name]
		line := fmt.Sprintf("  %-18s %-10s attempts=%d", name, ss.Status, ss.Attempts)
		if ss.LastError != "" {
			line += "  error=" + ss.LastError
		}
		fmt.Println(line)
	}
	return nil
}
