package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"github.com/spf13/cobra"

	"github.com/runpod-serverless-metrics/runner/exporter"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Validate a textfile and summarize the series per endpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open textfile: %w", err)
			}
			defer f.Close()

			parser := expfmt.NewTextParser(model.UTF8Validation)
			families, err := parser.TextToMetricFamilies(f)
			if err != nil {
				return fmt.Errorf("invalid exposition format in %s: %w", args[0], err)
			}

			perEndpoint := map[string]int{}
			series := 0
			for _, family := range families {
				for _, m := range family.GetMetric() {
					series++
					for _, label := range m.GetLabel() {
						if label.GetName() == exporter.LabelEndpoint {
							perEndpoint[label.GetValue()]++
						}
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d families, %d series\n", args[0], len(families), series)

			endpoints := make([]string, 0, len(perEndpoint))
			for name := range perEndpoint {
				endpoints = append(endpoints, name)
			}
			sort.Strings(endpoints)
			for _, name := range endpoints {
				fmt.Fprintf(out, "  endpoint=%q series=%d\n", name, perEndpoint[name])
			}

			return nil
		},
	}
}
