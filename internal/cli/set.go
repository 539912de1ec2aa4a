package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/config"
	"github.com/bayleafwalker/msrv/internal/event"
	"github.com/bayleafwalker/msrv/internal/manifest"
	"github.com/bayleafwalker/msrv/internal/releases"
	"github.com/bayleafwalker/msrv/internal/reporter"
	"github.com/bayleafwalker/msrv/internal/semver"
)

const defaultManifest = "Cargo.toml"

var ErrUnknownRelease = errors.New("not a released Rust version")

func (a *App) set(ctx context.Context, args []string) (err error) {
	logger := log.FromContext(ctx).WithName("set")

	fs := newFlagSet("set", a.Stderr, "set [options] VERSION")
	var c common
	c.register(fs)
	fallback := fs.Bool("metadata-fallback", false, "Write the version to [package.metadata] msrv instead of rust-version.")
	checkIndex := fs.String("check-index", "", "Verify VERSION against a release index: 'rust_changelog' or 'rust_dist'.")
	natsURL := fs.String("nats-url", "", "Also publish events to this NATS server.")
	natsSubject := fs.String("nats-subject", "", "Subject prefix for published events.")

	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return parseFailure(err)
	}
	if len(positional) != 1 {
		fs.Usage()
		return usageErrorf("set: expected exactly one VERSION argument, got %d", len(positional))
	}
	version, err := semver.ParseBareVersion(positional[0])
	if err != nil {
		return usageErrorf("set: %v", err)
	}

	var source event.ReleaseSource
	if *checkIndex != "" {
		var ok bool
		if source, ok = event.ParseReleaseSource(*checkIndex); !ok {
			return usageErrorf("set: unknown release index %q", *checkIndex)
		}
	}

	cfg, err := resolveConfig(fs, c, func(cfg *config.Config, name string) {
		switch name {
		case "nats-url":
			cfg.NATS.URL = *natsURL
		case "nats-subject":
			cfg.NATS.Subject = *natsSubject
		}
	})
	if err != nil {
		return err
	}

	manifestPath := cfg.ManifestPath
	if manifestPath == "" {
		manifestPath = defaultManifest
	}
	kind := event.MsrvKindRustVersion
	if *fallback {
		kind = event.MsrvKindMetadataFallback
	}

	rep := reporter.New(reporter.WithLogger(logger.WithName("reporter")))
	var conn EventConn
	defer func() {
		// The sinks drain before the bus connection goes away.
		closeErr := rep.Close(context.WithoutCancel(ctx))
		var drainErr error
		if conn != nil {
			drainErr = conn.Drain()
		}
		if closeErr != nil || drainErr != nil {
			err = utilerrors.NewAggregate([]error{err, closeErr, drainErr})
		}
	}()
	if conn, err = a.subscribe(rep, cfg); err != nil {
		return err
	}

	if source != "" {
		fetcher := releases.NewFetcher(rep)
		fetcher.Client = a.HTTPClient
		fetcher.ChangelogURL = a.ChangelogURL
		fetcher.DistURL = a.DistURL

		known, err := fetcher.Fetch(ctx, source)
		if err != nil {
			return err
		}
		if !releases.Contains(known, version.Version()) {
			return fmt.Errorf("set: %s: %w (index %s)", version, ErrUnknownRelease, source)
		}
	}

	if err := manifest.SetRustVersion(manifestPath, version, kind); err != nil {
		return err
	}
	logger.Info("recorded minimum supported Rust version", "version", version.String(), "manifest", manifestPath, "kind", kind)

	if err := rep.Publish(event.New(event.NewAuxiliaryOutput(event.File(manifestPath), event.Msrv(kind)))); err != nil {
		return err
	}

	toolchain, found, err := manifest.FindToolchainFile(filepath.Dir(manifestPath))
	if err != nil {
		return err
	}
	if found {
		if err := rep.Publish(event.New(event.NewAuxiliaryOutput(event.File(toolchain), event.ToolchainFile(event.ToolchainFileKindToml)))); err != nil {
			return err
		}
	}

	return rep.Publish(event.New(event.NewSetOutput(version, manifestPath)))
}

func (a *App) subscribe(rep *reporter.Reporter, cfg config.Config) (EventConn, error) {
	var printer reporter.Sink = reporter.NewHumanPrinter(a.Stdout)
	if cfg.OutputFormat == config.OutputJSON {
		printer = reporter.NewJSONPrinter(a.Stdout)
	}
	if err := rep.Subscribe("stdout", printer); err != nil {
		return nil, err
	}

	if cfg.NATS.URL == "" {
		return nil, nil
	}
	conn, err := a.Dial(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("set: connect to %s: %w", cfg.NATS.URL, err)
	}
	if err := rep.Subscribe("nats", reporter.NewNATSSink(conn, cfg.NATS.Subject)); err != nil {
		return conn, err
	}
	return conn, nil
}
