package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const workspaceMetadata = "../metadata/testdata/workspace.json"

func newTestApp() (*App, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	app := New(&stdout, &stderr)
	app.Dial = func(url string) (EventConn, error) {
		return nil, fmt.Errorf("unexpected dial to %s", url)
	}
	return app, &stdout, &stderr
}

func writeManifest(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "Cargo.toml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestRun_NoCommand(t *testing.T) {
	app, _, stderr := newTestApp()

	err := app.Run(context.Background(), nil)
	require.Error(t, err)
	require.Equal(t, ExitUsage, ExitCode(err))
	require.Contains(t, stderr.String(), "msrv list")
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _, _ := newTestApp()

	err := app.Run(context.Background(), []string{"verify"})
	require.Equal(t, ExitUsage, ExitCode(err))
	require.Contains(t, err.Error(), `"verify"`)
}

func TestExitCode(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	require.Equal(t, ExitUsage, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: ExitUsage, Message: "bad flag"})))
}

func TestList_JSON(t *testing.T) {
	app, stdout, _ := newTestApp()

	err := app.Run(context.Background(), []string{
		"list", "--metadata", workspaceMetadata, "--no-manifest-scan", "--output-format", "json",
		"--manifest-path", filepath.Join(t.TempDir(), "Cargo.toml"),
	})
	require.NoError(t, err)

	want := `{"reason":"list","variant":"ordered-by-msrv","success":true,"list":[` +
		`{"requirement":"1.31.0","dependencies":["serde"]},` +
		`{"requirement":"1.60.0","dependencies":["log"]},` +
		`{"requirement":"unknown","dependencies":["app","log"]}]}` + "\n"
	require.Equal(t, want, stdout.String())
}

func TestList_Human(t *testing.T) {
	app, stdout, _ := newTestApp()

	err := app.Run(context.Background(), []string{
		"list", "--metadata", workspaceMetadata, "--no-manifest-scan",
		"--manifest-path", filepath.Join(t.TempDir(), "Cargo.toml"),
	})
	require.NoError(t, err)

	out := stdout.String()
	require.Contains(t, out, "MSRV")
	require.Contains(t, out, "Dependency")
	require.Less(t, strings.Index(out, "1.31.0"), strings.Index(out, "1.60.0"))
	require.Less(t, strings.Index(out, "1.60.0"), strings.Index(out, "unknown"))
	require.Contains(t, out, "app, log")
}

func TestList_ConfigFileBesideManifest(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".msrv.yaml"), []byte("output_format: json\nmanifest_scan: false\n"), 0o644))

	app, stdout, _ := newTestApp()
	err := app.Run(context.Background(), []string{
		"list", "--metadata", workspaceMetadata, "--manifest-path", filepath.Join(dir, "Cargo.toml"),
	})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stdout.String(), `{"reason":"list"`), stdout.String())

	// Flags win over the file.
	stdout.Reset()
	err = app.Run(context.Background(), []string{
		"list", "--metadata", workspaceMetadata, "--manifest-path", filepath.Join(dir, "Cargo.toml"),
		"--output-format", "human",
	})
	require.NoError(t, err)
	require.Contains(t, stdout.String(), "Dependency")
}

func TestList_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"unknown flag":    {"list", "--frobnicate"},
		"bad format":      {"list", "--output-format", "xml", "--manifest-path", "testdata/none/Cargo.toml"},
		"positional":      {"list", "extra"},
		"bad config file": {"list", "--config", "testdata/invalid.yaml"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			app, _, _ := newTestApp()
			err := app.Run(context.Background(), args)
			require.Error(t, err)
			require.Equal(t, ExitUsage, ExitCode(err))
		})
	}
}

func TestList_Help(t *testing.T) {
	app, _, stderr := newTestApp()

	require.NoError(t, app.Run(context.Background(), []string{"list", "-h"}))
	require.Contains(t, stderr.String(), "-metadata-key")
}

func TestList_MissingMetadataFile(t *testing.T) {
	app, _, _ := newTestApp()

	err := app.Run(context.Background(), []string{
		"list", "--metadata", filepath.Join(t.TempDir(), "missing.json"),
		"--manifest-path", filepath.Join(t.TempDir(), "Cargo.toml"),
	})
	require.Error(t, err)
	require.Equal(t, ExitFailure, ExitCode(err))
}

func TestSet_Human(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"demo\"\n")
	toolchain := filepath.Join(dir, "rust-toolchain.toml")
	require.NoError(t, os.WriteFile(toolchain, []byte("[toolchain]\nchannel = \"stable\"\n"), 0o644))

	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run(context.Background(), []string{"set", "1.56", "--manifest-path", path}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[package]\nname = \"demo\"\nrust-version = \"1.56\"\n", string(data))

	require.Equal(t, strings.Join([]string{
		"Wrote MSRV (rust_version) to " + path,
		"Found toolchain file (toml) at " + toolchain,
		"Set minimum supported Rust version 1.56 in " + path,
	}, "\n")+"\n", stdout.String())
}

func TestSet_JSONMetadataFallback(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"demo\"\n")

	app, stdout, _ := newTestApp()
	require.NoError(t, app.Run(context.Background(), []string{
		"set", "--metadata-fallback", "--output-format", "json", "--manifest-path", path, "1.38.0",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "[package.metadata]\nmsrv = \"1.38.0\"\n")

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Equal(t, []string{
		fmt.Sprintf(`{"destination":{"file":%q},"item":{"msrv":{"kind":"metadata_fallback"}},"type":"auxiliary_output"}`, path),
		fmt.Sprintf(`{"manifest_path":%q,"type":"set_output","version":"1.38.0"}`, path),
	}, lines)
}

func TestSet_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"no version":       {"set"},
		"two versions":     {"set", "1.56", "1.57"},
		"bad version":      {"set", "1.x"},
		"prerelease":       {"set", "1.56.0-beta.1"},
		"unknown index":    {"set", "1.56", "--check-index", "crates_io"},
		"bad nats subject": {"set", "1.56", "--nats-url", "nats://localhost:4222", "--nats-subject", "msrv.>"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			app, _, _ := newTestApp()
			err := app.Run(context.Background(), append(args, "--manifest-path", filepath.Join(t.TempDir(), "Cargo.toml")))
			require.Error(t, err)
			require.Equal(t, ExitUsage, ExitCode(err))
		})
	}
}

func TestSet_MissingManifest(t *testing.T) {
	app, stdout, _ := newTestApp()

	err := app.Run(context.Background(), []string{"set", "1.56", "--manifest-path", filepath.Join(t.TempDir(), "Cargo.toml")})
	require.Error(t, err)
	require.Equal(t, ExitFailure, ExitCode(err))
	require.Empty(t, stdout.String())
}

func releaseIndex(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, "static.rust-lang.org/dist/2021-10-21/channel-rust-1.56.0.toml")
		fmt.Fprintln(w, "static.rust-lang.org/dist/2021-11-01/channel-rust-1.56.1.toml")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSet_CheckIndex(t *testing.T) {
	srv := releaseIndex(t)
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"demo\"\n")

	app, stdout, _ := newTestApp()
	app.HTTPClient = srv.Client()
	app.DistURL = srv.URL

	require.NoError(t, app.Run(context.Background(), []string{"set", "1.56.1", "--check-index", "rust-dist", "--manifest-path", path}))
	require.True(t, strings.HasPrefix(stdout.String(), "Fetching release index from rust_dist\n"), stdout.String())

	stdout.Reset()
	err := app.Run(context.Background(), []string{"set", "1.99", "--check-index", "rust_dist", "--manifest-path", path})
	require.ErrorIs(t, err, ErrUnknownRelease)
	require.Equal(t, ExitFailure, ExitCode(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `rust-version = "1.56.1"`, "manifest must not change for an unknown release")
}

type fakeConn struct {
	mu       sync.Mutex
	subjects []string
	drained  bool
}

func (c *fakeConn) Publish(subject string, _ []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subjects = append(c.subjects, subject)
	return nil
}

func (c *fakeConn) Drain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drained = true
	return nil
}

func TestSet_MirrorsEventsToNATS(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"demo\"\n")

	conn := &fakeConn{}
	app, _, _ := newTestApp()
	app.Dial = func(url string) (EventConn, error) {
		require.Equal(t, "nats://127.0.0.1:4222", url)
		return conn, nil
	}

	require.NoError(t, app.Run(context.Background(), []string{
		"set", "1.56", "--manifest-path", path, "--nats-url", "nats://127.0.0.1:4222", "--nats-subject", "ci.msrv",
	}))

	require.True(t, conn.drained)
	require.Equal(t, []string{"ci.msrv.auxiliary_output", "ci.msrv.set_output"}, conn.subjects)
}

func TestSet_DialFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[package]\nname = \"demo\"\n")

	app, _, _ := newTestApp()
	err := app.Run(context.Background(), []string{"set", "1.56", "--manifest-path", path, "--nats-url", "nats://127.0.0.1:1"})
	require.Error(t, err)
	require.Equal(t, ExitFailure, ExitCode(err))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotContains(t, string(data), "rust-version")
}
