// Command utmctl checks and builds campaign links offline against the marketing config.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"erpsite/api/campaign"
	"erpsite/api/logger"
	"erpsite/api/models"
	"erpsite/api/roi"
	"erpsite/api/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	configPath string
	outputJSON bool
	verbose    bool
}

func (o *options) marketing() (*campaign.Config, error) {
	if o.configPath == "" {
		return campaign.Default(), nil
	}
	return campaign.LoadFile(o.configPath)
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "utmctl",
		Short: "Inspect and build UTM-tagged campaign links",
		Long: `Inspect and build UTM-tagged campaign links against the marketing taxonomy.

Examples:
  utmctl parse "https://example.com/?utm_source=google&utm_medium=cpc"
  utmctl validate "https://example.com/?utm_source=myspace"
  utmctl match "https://example.com/?utm_source=google&utm_medium=cpc&utm_campaign=brand"
  utmctl url brand_search_erp https://example.com/pricing
  utmctl roi --cost 50000 --users 50 --support 20000 --employees 100 --gain 15 --timeline 3
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.verbose {
				return logger.Init("development")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("MARKETING_CONFIG"), "Marketing config YAML (defaults to the built-in config)")
	cmd.PersistentFlags().BoolVar(&opts.outputJSON, "json", false, "Output results as JSON")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(parseCmd(opts), validateCmd(opts), matchCmd(opts), urlCmd(opts), roiCmd(opts))
	return cmd
}

func parseCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <url>",
		Short: "Print the UTM parameters of a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			utm := utils.ParseUTM(args[0])
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), utm)
			}
			if utm.IsEmpty() {
				fmt.Fprintln(cmd.OutOrStdout(), "no UTM parameters")
				return nil
			}
			printUTM(cmd.OutOrStdout(), utm)
			return nil
		},
	}
}

func validateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <url>",
		Short: "Check a URL's UTM parameters against the taxonomy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.marketing()
			if err != nil {
				return err
			}
			res := cfg.Taxonomy.Validate(utils.ParseUTM(args[0]))
			if opts.outputJSON {
				if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
					return err
				}
			} else if res.IsValid {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
			} else {
				for _, e := range res.Errors {
					fmt.Fprintln(cmd.OutOrStdout(), e)
				}
			}
			if !res.IsValid {
				return fmt.Errorf("%d taxonomy violation(s)", len(res.Errors))
			}
			return nil
		},
	}
}

func matchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "match <url>",
		Short: "Find the campaign template a URL belongs to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.marketing()
			if err != nil {
				return err
			}
			tmpl, ok := cfg.Catalog().Match(utils.ParseUTM(args[0]))
			if opts.outputJSON {
				if !ok {
					return writeJSON(cmd.OutOrStdout(), nil)
				}
				return writeJSON(cmd.OutOrStdout(), tmpl)
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no matching template")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s / %s)\n", tmpl.Name, tmpl.Source, tmpl.Medium)
			if tmpl.Description != "" {
				fmt.Fprintln(cmd.OutOrStdout(), tmpl.Description)
			}
			return nil
		},
	}
}

func urlCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "url <template> <base-url>",
		Short: "Tag a landing page URL with a template's parameters",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.marketing()
			if err != nil {
				return err
			}
			tmpl, err := cfg.Catalog().Template(args[0])
			if err != nil {
				return err
			}
			tagged, err := tmpl.URL(args[1])
			if err != nil {
				return fmt.Errorf("invalid base URL: %w", err)
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"template": tmpl.Name, "url": tagged})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tagged)
			return nil
		},
	}
}

func roiCmd(opts *options) *cobra.Command {
	var in models.ROIInputs

	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Run the ROI calculator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := roi.NewCalculator().Calculate(context.Background(), in)
			if err != nil {
				return err
			}
			if opts.outputJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Annual savings:    %.2f\n", res.AnnualSavings)
			fmt.Fprintf(w, "Efficiency value:  %.2f\n", res.EfficiencyValue)
			fmt.Fprintf(w, "Three-year total:  %.2f\n", res.TotalSavings)
			fmt.Fprintf(w, "Three-year ROI:    %.2f\n", res.ThreeYearROI)
			if res.PaybackReachable {
				fmt.Fprintf(w, "Payback period:    %.2f months\n", res.PaybackPeriod)
			} else {
				fmt.Fprintln(w, "Payback period:    not reachable")
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&in.CurrentERPCost, "cost", 0, "Current yearly ERP cost")
	cmd.Flags().Float64Var(&in.CurrentERPUsers, "users", 0, "Current ERP users")
	cmd.Flags().Float64Var(&in.CurrentERPSupportCost, "support", 0, "Current yearly support cost")
	cmd.Flags().Float64Var(&in.Employees, "employees", 0, "Employees")
	cmd.Flags().Float64Var(&in.ExpectedEfficiencyGain, "gain", 0, "Expected efficiency gain in percent")
	cmd.Flags().Float64Var(&in.ImplementationTimeline, "timeline", 0, "Implementation timeline in months")
	return cmd
}

func printUTM(w io.Writer, utm models.UTMParams) {
	for _, name := range models.UTMParamNames {
		if v := utm.Get(name); v != "" {
			fmt.Fprintf(w, "%-13s %s\n", name+":", v)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
