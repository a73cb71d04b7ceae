package sources

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/openqsrx/qumi-codes/descriptor"
	"github.com/openqsrx/qumi-codes/entities"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
)

// Compile-time check to ensure Loader implements the Loader interface
var _ interfaces.Loader = (*Loader)(nil)

// Paths locates the pipeline inputs.
type Paths struct {
	Package string
	Product string
	RxNorm  string
}

// Loader reads the registry tables and the RxNorm database concurrently.
type Loader struct {
	paths Paths
}

// NewLoader creates a Loader for the given inputs.
func NewLoader(paths Paths) *Loader {
	return &Loader{paths: paths}
}

// Load reads every input. The first failure cancels the others.
func (l *Loader) Load(ctx context.Context) (*entities.Dataset, error) {
	start := time.Now()
	ds := &entities.Dataset{}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rows, err := ReadRegistry(l.paths.Package, PackageColumns)
		if err != nil {
			return fmt.Errorf("package table: %w", err)
		}
		ds.Packages = rows
		return nil
	})

	g.Go(func() error {
		rows, err := ReadRegistry(l.paths.Product, ProductColumns)
		if err != nil {
			return fmt.Errorf("product table: %w", err)
		}
		ds.Products = rows
		return nil
	})

	g.Go(func() error {
		return l.loadRxNorm(ctx, ds)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Info("Sources loaded",
		"packages", len(ds.Packages),
		"products", len(ds.Products),
		"ndc_links", len(ds.NDCLinks),
		"relations", len(ds.Relations),
		"concepts", len(ds.Concepts),
		"duration", time.Since(start))

	return ds, nil
}

func (l *Loader) loadRxNorm(ctx context.Context, ds *entities.Dataset) error {
	x, err := OpenRxNorm(l.paths.RxNorm)
	if err != nil {
		return err
	}
	defer func() {
		if err := x.Close(); err != nil {
			logging.Warn("Failed to close rxnorm database", "error", err)
		}
	}()

	links, err := x.NDCLinks(ctx)
	if err != nil {
		return err
	}
	relations, err := x.Relations(ctx, descriptor.Relations)
	if err != nil {
		return err
	}
	concepts, err := x.Concepts(ctx, descriptor.TermTypes)
	if err != nil {
		return err
	}

	ds.NDCLinks, ds.Relations, ds.Concepts = links, relations, concepts
	return nil
}
