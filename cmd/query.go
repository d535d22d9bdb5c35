package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sells-group/compmap/internal/mapsearch"
	"github.com/sells-group/compmap/internal/model"
)

// viewFlags holds the viewport, scope and filter flags shared by the query
// subcommands.
type viewFlags struct {
	north, south, east, west float64

	role, account, user string

	propertyType, city              []string
	typ, state, search              string
	leaseType, compStatus, compType string
	soldFrom, soldTo                string
	buildingMin, buildingMax        float64
	landMin, landMax                float64
	capMin, capMax                  float64
	ppuMin, ppuMax                  float64
	sortField                       string
	sortAsc                         bool
}

var (
	qf           viewFlags
	queryZoom    int
	queryPage    int
	queryPerPage int
)

func (f *viewFlags) register(fs *pflag.FlagSet) {
	fs.Float64Var(&f.north, "north", 0, "north edge of the viewport")
	fs.Float64Var(&f.south, "south", 0, "south edge of the viewport")
	fs.Float64Var(&f.east, "east", 0, "east edge of the viewport")
	fs.Float64Var(&f.west, "west", 0, "west edge of the viewport")

	fs.StringVar(&f.role, "role", "superadmin", "caller role: superadmin, dev, admin or user")
	fs.StringVar(&f.account, "account", "", "account id for the admin role")
	fs.StringVar(&f.user, "user", "", "user id for the user role")

	fs.StringSliceVar(&f.propertyType, "property-type", nil, "property types to include")
	fs.StringSliceVar(&f.city, "city", nil, "cities to include")
	fs.StringVar(&f.typ, "type", "", "comp type filter (sale, lease)")
	fs.StringVar(&f.state, "state", "", "state filter")
	fs.StringVar(&f.search, "search", "", "substring of address, city or zip code")
	fs.StringVar(&f.leaseType, "lease-type", "", "lease type filter")
	fs.StringVar(&f.compStatus, "comp-status", "", "comp status filter")
	fs.StringVar(&f.compType, "comp-type", "", "comp category filter")
	fs.StringVar(&f.soldFrom, "sold-from", "", "earliest sold date (YYYY-MM-DD)")
	fs.StringVar(&f.soldTo, "sold-to", "", "latest sold date (YYYY-MM-DD)")
	fs.Float64Var(&f.buildingMin, "building-size-min", 0, "minimum building size")
	fs.Float64Var(&f.buildingMax, "building-size-max", 0, "maximum building size")
	fs.Float64Var(&f.landMin, "land-size-min", 0, "minimum land size")
	fs.Float64Var(&f.landMax, "land-size-max", 0, "maximum land size")
	fs.Float64Var(&f.capMin, "cap-rate-min", 0, "minimum cap rate")
	fs.Float64Var(&f.capMax, "cap-rate-max", 0, "maximum cap rate")
	fs.Float64Var(&f.ppuMin, "price-per-unit-min", 0, "minimum price per unit")
	fs.Float64Var(&f.ppuMax, "price-per-unit-max", 0, "maximum price per unit")
	fs.StringVar(&f.sortField, "sort", "", "detail sort field: createdAt, soldDate, salePrice, buildingSize or city")
	fs.BoolVar(&f.sortAsc, "asc", false, "sort ascending")
}

func (f *viewFlags) bounds() model.Bounds {
	return model.Bounds{North: f.north, South: f.south, East: f.east, West: f.west}
}

func (f *viewFlags) scope() model.AccessScope {
	return model.AccessScope{Role: model.ParseRole(f.role), AccountID: f.account, UserID: f.user}
}

// filters only sets ranges whose flags were given, so an explicit 0 still
// constrains.
func (f *viewFlags) filters(fs *pflag.FlagSet) (model.FilterSet, error) {
	out := model.FilterSet{
		Type:          f.typ,
		State:         f.state,
		PropertyTypes: f.propertyType,
		Cities:        f.city,
		Search:        f.search,
		LeaseType:     f.leaseType,
		CompStatus:    f.compStatus,
		CompType:      f.compType,
		BuildingSize:  flagRange(fs, "building-size", f.buildingMin, f.buildingMax),
		LandSize:      flagRange(fs, "land-size", f.landMin, f.landMax),
		CapRate:       flagRange(fs, "cap-rate", f.capMin, f.capMax),
		PricePerUnit:  flagRange(fs, "price-per-unit", f.ppuMin, f.ppuMax),
	}

	from, err := flagDate("sold-from", f.soldFrom)
	if err != nil {
		return out, err
	}
	to, err := flagDate("sold-to", f.soldTo)
	if err != nil {
		return out, err
	}
	if from != nil || to != nil {
		out.SoldDate = &model.DateRange{From: from, To: to}
	}

	if f.sortField != "" {
		out.Sort = &model.SortSpec{Field: model.SortField(f.sortField), Asc: f.sortAsc}
	}
	return out, nil
}

func flagRange(fs *pflag.FlagSet, prefix string, lo, hi float64) *model.Range {
	var r model.Range
	if fs.Changed(prefix + "-min") {
		r.Min = &lo
	}
	if fs.Changed(prefix + "-max") {
		r.Max = &hi
	}
	if r.IsZero() {
		return nil
	}
	return &r
}

func flagDate(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, eris.Wrapf(err, "--%s", name)
	}
	return &t, nil
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a map search against the store and print the result",
}

var queryClustersCmd = &cobra.Command{
	Use:   "clusters",
	Short: "Clusters (or individual pins above the cutoff zoom) for a viewport",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filters, err := qf.filters(cmd.Flags())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), "query", false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := newEngine(st).GetClusters(cmd.Context(), mapsearch.ViewportQuery{
			Bounds:  qf.bounds(),
			Zoom:    queryZoom,
			Filters: filters,
			Scope:   qf.scope(),
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

var queryDetailsCmd = &cobra.Command{
	Use:   "details",
	Short: "One page of the records in a viewport",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filters, err := qf.filters(cmd.Flags())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), "query", false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		engine := newEngine(st)
		pageSize := queryPerPage
		if pageSize == 0 {
			pageSize = engine.Options().DefaultPageSize
		}
		res, err := engine.GetClusterDetails(cmd.Context(), mapsearch.DetailQuery{
			Bounds:   qf.bounds(),
			Filters:  filters,
			Scope:    qf.scope(),
			Page:     queryPage,
			PageSize: pageSize,
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

var queryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summary statistics for a viewport",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filters, err := qf.filters(cmd.Flags())
		if err != nil {
			return err
		}
		st, err := openStore(cmd.Context(), "query", false)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		res, err := newEngine(st).GetViewStatistics(cmd.Context(), mapsearch.StatsQuery{
			Bounds:  qf.bounds(),
			Filters: filters,
			Scope:   qf.scope(),
		})
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), outputFormat, res)
	},
}

func init() {
	qf.register(queryCmd.PersistentFlags())
	queryClustersCmd.Flags().IntVar(&queryZoom, "zoom", 10, "map zoom level")
	queryDetailsCmd.Flags().IntVar(&queryPage, "page", 1, "page number (1-based)")
	queryDetailsCmd.Flags().IntVar(&queryPerPage, "page-size", 0, "records per page (default from config)")

	queryCmd.AddCommand(queryClustersCmd, queryDetailsCmd, queryStatsCmd)
	rootCmd.AddCommand(queryCmd)
}
