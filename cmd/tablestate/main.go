// Command tablestate pushes a table state payload through the write-behind
// cache to the settings API. It is mainly useful for checking a deployment's
// gateway configuration and for replaying payloads captured from the UI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sboagy/tablestate"
	"github.com/sboagy/tablestate/pkg/gateway"
	"github.com/sboagy/tablestate/pkg/zaplog"
)

var (
	version = "dev"
	commit  = "unknown"
)

// CLI is the top-level command structure.
type CLI struct {
	Version  kong.VersionFlag `help:"Show version." short:"V"`
	Config   string           `help:"Gateway config file (YAML)." default:"tablestate.yaml" type:"path"`
	Verbose  bool             `help:"Log at debug level." short:"v"`
	Flush    FlushCmd         `cmd:"" help:"Cache a partial state and flush it immediately."`
	Validate ValidateCmd      `cmd:"" help:"Decode and validate a partial state without sending it."`
}

// FlushCmd caches a partial state for one key and writes it through the gateway.
type FlushCmd struct {
	User     int64  `help:"User id." required:""`
	Purpose  string `help:"Table purpose: ${purposes}." required:"" enum:"${purposes}"`
	Resource int64  `help:"Resource (playlist) id." required:""`
	State    string `help:"JSON file with the partial state, - for stdin." default:"-"`
	Override string `help:"JSON file with a state applied on top at flush time."`
}

// ValidateCmd decodes a partial state and prints its normalized form.
type ValidateCmd struct {
	Purpose string `help:"Table purpose: ${purposes}." required:"" enum:"${purposes}"`
	State   string `arg:"" optional:"" help:"JSON file with the partial state, - for stdin." default:"-"`
}

var errStdinTwice = errors.New("--state and --override cannot both read stdin")

// statusError reports a flush the server did not confirm.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("gateway answered %d", e.status)
}

// Run executes the flush command.
func (c *FlushCmd) Run(cli *CLI) error {
	cfg, err := gateway.LoadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	gw, err := gateway.NewHTTPGateway(*cfg)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	logger, err := newLogger(cli.Verbose)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err = runFlush(ctx, c, gw, logger, os.Stdin, os.Stdout)
	return multierr.Append(err, ignoreSyncErr(logger.Sync()))
}

func runFlush(ctx context.Context, c *FlushCmd, gw tablestate.Gateway, logger *zap.Logger, stdin io.Reader, stdout io.Writer) error {
	purpose, err := tablestate.ParsePurpose(c.Purpose)
	if err != nil {
		return err
	}
	key := tablestate.NewKey(c.User, purpose, c.Resource)
	if !key.Valid() {
		return fmt.Errorf("%w: %s", tablestate.ErrInvalidKey, key)
	}

	if c.State == "-" && c.Override == "-" {
		return fmt.Errorf("flush: %w", errStdinTwice)
	}

	partial, err := readState(purpose, c.State, stdin)
	if err != nil {
		return fmt.Errorf("flush: state: %w", err)
	}
	var override *tablestate.TableState
	if c.Override != "" {
		decoded, err := readState(purpose, c.Override, stdin)
		if err != nil {
			return fmt.Errorf("flush: override: %w", err)
		}
		override = &decoded
	}

	cache := tablestate.New(gw, tablestate.WithFlushLogger(zaplog.New(logger)))
	cache.Update(key, partial)
	status, err := cache.FlushImmediate(ctx, key, override)
	if err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	stats := cache.Stats()
	fmt.Fprintf(stdout, "%s status=%d entries=%d dirty=%d\n", key, status, stats.TotalEntries, stats.DirtyEntries)
	if !tablestate.IsSuccess(status) {
		return &statusError{status: status}
	}
	return nil
}

// Run executes the validate command.
func (c *ValidateCmd) Run() error {
	return runValidate(c, os.Stdin, os.Stdout)
}

func runValidate(c *ValidateCmd, stdin io.Reader, stdout io.Writer) error {
	purpose, err := tablestate.ParsePurpose(c.Purpose)
	if err != nil {
		return err
	}
	state, err := readState(purpose, c.State, stdin)
	if err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(state)
}

func readState(purpose tablestate.Purpose, path string, stdin io.Reader) (tablestate.TableState, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return tablestate.TableState{}, err
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return tablestate.TableState{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return tablestate.DecodePartial(purpose, payload)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Sync on a terminal stderr fails with EINVAL or ENOTTY; that is not worth
// reporting.
func ignoreSyncErr(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return nil
	}
	return err
}

// cliVars feeds kong's tag interpolation.
func cliVars() kong.Vars {
	purposes := make([]string, 0, len(tablestate.Purposes()))
	for _, p := range tablestate.Purposes() {
		purposes = append(purposes, string(p))
	}
	return kong.Vars{
		"version":  version + " " + commit,
		"purposes": strings.Join(purposes, ","),
	}
}

func exitCode(err error) int {
	var status *statusError
	if errors.As(err, &status) {
		return 2
	}
	return 1
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("tablestate"),
		kong.Description("Write-behind table state cache tooling."),
		cliVars(),
		kong.Bind(&cli),
	)
	if err := ctx.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
