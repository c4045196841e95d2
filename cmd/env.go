package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sitrep-cli/internal/config"
	"github.com/sells-group/sitrep-cli/internal/extract"
	"github.com/sells-group/sitrep-cli/internal/fetcher"
	"github.com/sells-group/sitrep-cli/internal/levels"
	"github.com/sells-group/sitrep-cli/internal/ocr"
	"github.com/sells-group/sitrep-cli/internal/pipeline"
	"github.com/sells-group/sitrep-cli/internal/registry"
	"github.com/sells-group/sitrep-cli/internal/resolve"
	"github.com/sells-group/sitrep-cli/internal/rows"
)

// extractEnv holds the reference tables, level store and processor needed
// by the extract command.
type extractEnv struct {
	Countries registry.Countries
	Ratios    *registry.HouseholdRatios
	Levels    levels.Store
	Processor *pipeline.Processor
}

// Close releases the level store.
func (e *extractEnv) Close() {
	if e.Levels != nil {
		if err := e.Levels.Close(); err != nil {
			zap.L().Warn("close level store", zap.Error(err))
		}
	}
}

// loadReference reads the country table and household ratios concurrently.
// A missing country table leaves country scoping empty; a table that exists
// but cannot be read is fatal.
func loadReference(ctx context.Context, ref config.ReferenceConfig) (registry.Countries, *registry.HouseholdRatios, error) {
	var countries registry.Countries
	ratios := registry.NewHouseholdRatios(ref.HouseholdSizePath, ref.HouseholdOverrides, ref.DefaultPeoplePerHH)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := os.Stat(ref.CountriesPath); errors.Is(err, fs.ErrNotExist) {
			zap.L().Warn("country table not found, reports will not be scoped", zap.String("path", ref.CountriesPath))
			return nil
		}
		c, err := registry.LoadCountries(gctx, ref.CountriesPath)
		if err != nil {
			return eris.Wrap(err, "load countries")
		}
		countries = c
		return nil
	})
	g.Go(func() error {
		return eris.Wrap(ratios.Load(gctx), "load household ratios")
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	zap.L().Info("reference tables loaded", zap.Int("countries", len(countries)))
	return countries, ratios, nil
}

// initExtract validates config, loads reference tables, opens the level
// store and builds the processor. Callers should defer env.Close().
func initExtract(ctx context.Context, c *config.Config) (*extractEnv, error) {
	if err := c.Validate("extract"); err != nil {
		return nil, err
	}

	countries, ratios, err := loadReference(ctx, c.Reference)
	if err != nil {
		return nil, err
	}

	engine, err := ocr.NewEngine(c.OCR)
	if err != nil {
		return nil, eris.Wrap(err, "init text recovery")
	}

	store, err := levels.Open(ctx, c.Levels)
	if err != nil {
		return nil, eris.Wrap(err, "open level store")
	}

	docs := fetcher.NewDocumentCache(c.Cache.Dir,
		fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  c.Fetch.UserAgent,
			Timeout:    c.Fetch.Timeout(),
			MaxRetries: c.Fetch.MaxRetries,
		}),
		fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: c.Fetch.Timeout()}),
	)

	proc := pipeline.NewProcessor(c.Pipeline, c.OCR, pipeline.Deps{
		Documents: docs,
		Text:      engine,
		Info:      ocr.NewPDFReader(),
		Extractor: extract.New(),
		Resolver:  resolve.New(ratios),
		Builder:   rows.New(store, rows.WithSourceTag(c.Pipeline.SourceTag)),
		Countries: countries,
	})

	return &extractEnv{
		Countries: countries,
		Ratios:    ratios,
		Levels:    store,
		Processor: proc,
	}, nil
}
