package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"busroute-scraper/config"
	"busroute-scraper/scraper/redbus"
	"busroute-scraper/services"
	"busroute-scraper/storage"
	"busroute-scraper/utils"
)

var errNoListings = errors.New("no listings were scraped")

type scrapeRunner interface {
	Scrape(ctx context.Context) (*redbus.Result, error)
}

type pipeline struct {
	cfg     *config.Config
	logger  *utils.Logger
	scraper scrapeRunner
	open    func(ctx context.Context) (storage.RouteWriter, error)
	backups func() (storage.RawListingWriter, error)
	now     func() time.Time
	out     io.Writer
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrapes agencies, routes and bus listings and appends them to PostgreSQL.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}

		p := &pipeline{
			cfg:     cfg,
			logger:  logger,
			scraper: redbus.New(cfg, logger),
			open: func(ctx context.Context) (storage.RouteWriter, error) {
				return openStore(ctx, cfg, logger)
			},
			backups: func() (storage.RawListingWriter, error) {
				return storage.NewCSVWriter(cfg.RawCSVPath)
			},
			now: time.Now,
			out: cmd.OutOrStdout(),
		}
		return p.run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func (p *pipeline) run(ctx context.Context) error {
	p.logger.Info("=== redbus scraping run starting ===")
	p.logger.Info("Config: agencies: %d | scroll probes: %d | navigate interval: %dms",
		p.cfg.MaxAgencies, p.cfg.MaxScrollProbes, p.cfg.NavigateIntervalMs)

	started := p.now()
	res, err := p.scraper.Scrape(ctx)
	if res == nil {
		return err
	}
	if err != nil {
		p.logger.Error("Scrape stopped early, keeping partial results: %v", err)
	}
	if len(res.Listings) == 0 {
		return errNoListings
	}

	p.logger.Info("Scraped %d raw listings, writing to CSV...", len(res.Listings))
	p.backup(res)

	cleaner := services.NewCleaner(p.logger, p.cfg.TargetYear(started))
	routes := cleaner.Clean(res.Listings, started)

	store, err := p.open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := store.CreateSchema(ctx); err != nil {
		p.logger.Error("Schema creation failed: %v", err)
	}
	if err := store.AppendRows(ctx, routes); err != nil {
		p.logger.Error("PostgreSQL write failed: %v", err)
	} else {
		p.logger.Info("Clean rows stored in PostgreSQL (table: %s)", p.cfg.TableName)
	}

	insights := services.NewInsightService(p.logger)
	insights.Print(p.out, insights.Generate(routes, res.Routes.Len()))

	fmt.Fprintf(p.out, "  Done in %v. Raw CSV → %s | Clean data → PostgreSQL (%s table)\n\n",
		p.now().Sub(started).Round(time.Second), p.cfg.RawCSVPath, p.cfg.TableName)
	return nil
}

// backup writes the raw listings to CSV. A failure is logged only.
func (p *pipeline) backup(res *redbus.Result) {
	w, err := p.backups()
	if err != nil {
		p.logger.Error("Failed to create raw backup writer: %v", err)
		return
	}
	defer w.Close()

	if err := w.WriteRaw(res.Listings); err != nil {
		p.logger.Error("CSV write failed: %v", err)
		return
	}
	p.logger.Info("Raw listings saved to %s", p.cfg.RawCSVPath)
}
