package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/model"
)

// outputFormat is the persistent --output flag.
var outputFormat string

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "json", "output format: json, yaml or summary")
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "", "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "output: encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "output: encode yaml")
		}
		return eris.Wrap(enc.Close(), "output: encode yaml")
	case "summary":
		return writeSummary(w, v)
	default:
		return eris.Errorf("output: unknown format %q (want json, yaml or summary)", format)
	}
}

var printer = message.NewPrinter(language.English)

// writeSummary prints a short human-readable digest with grouped numbers.
func writeSummary(w io.Writer, v any) error {
	var err error
	switch r := v.(type) {
	case *mapsearch.ClustersResult:
		_, err = printer.Fprintf(w, "%s mode, zoom %d: %d clusters covering %d records", r.Mode, r.Zoom, len(r.Clusters), r.TotalCount)
		if r.Truncated {
			_, _ = printer.Fprintf(w, " (capped, %d bins in view)", r.BinCount)
		}
		_, _ = fmt.Fprintln(w)
		for _, c := range r.Clusters {
			_, _ = printer.Fprintf(w, "  %-36s %7d  %.5f,%.5f  %s\n", c.ID, c.Count, c.Center.Lat, c.Center.Lng, money(c.AvgPrice))
		}
	case *mapsearch.DetailResult:
		_, err = printer.Fprintf(w, "page %d of %d, %d records total\n", r.Page, r.TotalPages, r.TotalCount)
		for _, rec := range r.Records {
			_, _ = fmt.Fprintf(w, "  %s  %s, %s  %s\n", rec.ID, rec.Address, rec.City, rec.SalePrice)
		}
	case *model.ViewStatistics:
		_, err = printer.Fprintf(w, "%d records, avg sale %s, avg size %s\n", r.TotalCount, money(r.SalePrice.Avg), number(r.BuildingSize.Avg))
		for _, tc := range r.PropertyTypes {
			_, _ = printer.Fprintf(w, "  %-20s %7d  %6.2f%%\n", tc.PropertyType, tc.Count, tc.Percentage)
		}
		for _, cs := range r.TopCities {
			_, _ = printer.Fprintf(w, "  %-20s %7d  %s\n", cs.City, cs.Count, money(cs.AvgPrice))
		}
	default:
		return writeOutput(w, "yaml", v)
	}
	return eris.Wrap(err, "output: write summary")
}

func money(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("$%.0f", *v)
}

func number(v *float64) string {
	if v == nil {
		return "-"
	}
	return printer.Sprintf("%.0f", *v)
}
