package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/segment-cli/internal/model"
	"github.com/sells-group/segment-cli/internal/money"
)

var (
	segmentsFormat string
	segmentsLimit  int
)

// summaryRow is one line of the lifetime segment summary.
type summaryRow struct {
	CustomerKey       string  `json:"customer_key" yaml:"customer_key"`
	Name              string  `json:"name" yaml:"name"`
	Segment           string  `json:"segment" yaml:"segment"`
	Profit            float64 `json:"profit" yaml:"profit"`
	BudgetProfit      float64 `json:"budget_profit" yaml:"budget_profit"`
	Income            float64 `json:"income" yaml:"income"`
	PercentCompliance float64 `json:"percent_compliance" yaml:"percent_compliance"`
}

var segmentsCmd = &cobra.Command{
	Use:   "segments",
	Short: "Print the lifetime customer segment summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := buildDataset(cfg)
		if err != nil {
			return err
		}
		return renderSegments(cmd.OutOrStdout(), ds.Customers(), segmentsFormat, segmentsLimit)
	},
}

func renderSegments(w io.Writer, customers []model.CustomerSegment, format string, limit int) error {
	if limit > 0 && limit < len(customers) {
		customers = customers[:limit]
	}

	rows := make([]summaryRow, len(customers))
	for i, c := range customers {
		rows[i] = summaryRow{
			CustomerKey:       c.CustomerKey,
			Name:              c.Name,
			Segment:           c.Segment.String(),
			Profit:            money.Round(c.Profit),
			BudgetProfit:      money.Round(c.BudgetProfit),
			Income:            money.Round(c.Income),
			PercentCompliance: money.Round(c.PercentCompliance),
		}
	}

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(rows), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(rows); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	case "table", "":
		return renderTable(w, rows)
	default:
		return eris.Errorf("unsupported output format %q (table, json, yaml)", format)
	}
}

func renderTable(w io.Writer, rows []summaryRow) error {
	p := message.NewPrinter(language.English)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(tw, "CUSTOMER\tNAME\tSEGMENT\tPROFIT\tBUDGET\tINCOME\tCOMPLIANCE %\t")
	for _, r := range rows {
		p.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.1f\t\n",
			r.CustomerKey, r.Name, r.Segment, r.Profit, r.BudgetProfit, r.Income, r.PercentCompliance)
	}
	return eris.Wrap(tw.Flush(), "flush table")
}

func init() {
	segmentsCmd.Flags().StringVar(&segmentsFormat, "format", "table", "output format: table, json, yaml")
	segmentsCmd.Flags().IntVar(&segmentsLimit, "limit", 0, "maximum rows to print (0 = all)")
	rootCmd.AddCommand(segmentsCmd)
}
