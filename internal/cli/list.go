package cli

import (
	"context"
	"fmt"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/config"
	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/listing"
	"github.com/bayleafwalker/msrv/internal/metadata"
	"github.com/bayleafwalker/msrv/internal/resolver"
)

func (a *App) list(ctx context.Context, args []string) error {
	logger := log.FromContext(ctx).WithName("list")

	fs := newFlagSet("list", a.Stderr, "list [options]")
	var c common
	c.register(fs)
	metadataPath := fs.String("metadata", "", "Read cargo metadata output from this file instead of running cargo.")
	noScan := fs.Bool("no-manifest-scan", false, "Do not read dependency manifests when metadata carries no requirement.")
	metadataKey := fs.String("metadata-key", resolver.DefaultMetadataKey, "Key under [package.metadata] holding a fallback requirement.")

	if err := fs.Parse(args); err != nil {
		return parseFailure(err)
	}
	if fs.NArg() != 0 {
		return usageErrorf("list: unexpected arguments %q", fs.Args())
	}

	cfg, err := resolveConfig(fs, c, func(cfg *config.Config, name string) {
		switch name {
		case "metadata":
			cfg.MetadataPath = *metadataPath
		case "no-manifest-scan":
			cfg.ManifestScan = !*noScan
		case "metadata-key":
			cfg.MetadataKey = *metadataKey
		}
	})
	if err != nil {
		return err
	}

	g, err := loadGraph(ctx, cfg)
	if err != nil {
		return err
	}

	r := resolver.NewDefault(
		resolver.WithMetadataKey(cfg.MetadataKey),
		resolver.WithManifestScan(cfg.ManifestScan),
	)
	res, err := listing.Aggregate(ctx, g, r)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	logger.Info("grouped dependencies by requirement",
		"packages", g.Len(), "requirements", len(res.Buckets), "highest", res.Highest().String())

	switch cfg.OutputFormat {
	case config.OutputJSON:
		data, err := listing.RenderDocument(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(a.Stdout, string(data))
		return err
	default:
		_, err := fmt.Fprintln(a.Stdout, listing.RenderTable(res))
		return err
	}
}

func loadGraph(ctx context.Context, cfg config.Config) (*graph.DependencyGraph, error) {
	if cfg.MetadataPath != "" {
		return metadata.LoadFile(cfg.MetadataPath)
	}
	return metadata.Load(ctx, cfg.Cargo, cfg.ManifestPath)
}
