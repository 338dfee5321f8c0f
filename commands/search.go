package commands

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"busroute-scraper/models"
)

var searchCmd = &cobra.Command{
	Use:   "search [--route <name>] [--departure \"HH:MM - HH:MM\"] [--min-price N] ...",
	Short: "Queries stored routes with the same filters as the search UI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		store, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		routes, err := store.Search(cmd.Context(), filter)
		if err != nil {
			return err
		}
		renderRoutes(cmd.OutOrStdout(), routes)
		return nil
	},
}

func init() {
	addSearchFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

func addSearchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("route", "", "Exact stored route name, e.g. \"KSRTC_Bangalore to Mysore\".")
	f.String("departure", models.AnyTime, "Departure window \"HH:MM - HH:MM\".")
	f.String("arrival", models.AnyTime, "Arrival window \"HH:MM - HH:MM\".")
	f.Int("min-seats", 0, "Minimum total seats.")
	f.Int("min-window-seats", 0, "Minimum window seats.")
	f.Float64("min-price", 0, "Minimum price in INR.")
	f.Float64("max-price", 0, "Maximum price in INR.")
	f.Float64("min-rating", 0, "Minimum star rating.")
}

// filterFromFlags applies only the flags the user actually set.
func filterFromFlags(cmd *cobra.Command) (models.SearchFilter, error) {
	flags := cmd.Flags()
	var filter models.SearchFilter
	var err error

	if filter.RouteName, err = flags.GetString("route"); err != nil {
		return filter, err
	}

	departure, _ := flags.GetString("departure")
	if filter.Departure, err = models.ParseTimeRange(departure); err != nil {
		return filter, fmt.Errorf("--departure: %w", err)
	}
	arrival, _ := flags.GetString("arrival")
	if filter.Arrival, err = models.ParseTimeRange(arrival); err != nil {
		return filter, fmt.Errorf("--arrival: %w", err)
	}

	if flags.Changed("min-seats") {
		v, _ := flags.GetInt("min-seats")
		filter.MinSeats = &v
	}
	if flags.Changed("min-window-seats") {
		v, _ := flags.GetInt("min-window-seats")
		filter.MinWindowSeats = &v
	}
	if flags.Changed("min-price") {
		v, _ := flags.GetFloat64("min-price")
		filter.MinPrice = &v
	}
	if flags.Changed("max-price") {
		v, _ := flags.GetFloat64("max-price")
		filter.MaxPrice = &v
	}
	if flags.Changed("min-rating") {
		v, _ := flags.GetFloat64("min-rating")
		filter.MinRating = &v
	}
	return filter, nil
}

func renderRoutes(w io.Writer, routes []*models.BusRoute) {
	if len(routes) == 0 {
		fmt.Fprintln(w, "No buses found matching your criteria.")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Route", "Bus", "Type", "Departs", "Duration", "Arrives", "Rating", "Price (₹)", "Seats", "Window"})
	for _, r := range routes {
		t.AppendRow(table.Row{
			r.RouteName,
			r.BusName,
			r.BusType,
			r.DepartingTime.String(),
			r.Duration,
			r.ReachingTime.String(),
			fmt.Sprintf("%.1f", r.StarRating),
			fmt.Sprintf("%.2f", r.PriceINR),
			r.TotalSeats,
			r.WindowSeats,
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", "Total", len(routes)})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight},
		{Number: 8, Align: text.AlignRight},
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
}
