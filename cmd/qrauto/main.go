// qrauto - QR-driven screen automation
//
// qrauto reads a JSON automation payload from a QR code (webcam, image file,
// serial scanner, MQTT command or literal text), checks every step against
// the screen, and replays the pointer actions with a corner failsafe. Each
// run is recorded in SQLite with before/after screenshots.
//
// Usage:
//
//	qrauto [-config path] <command> [arguments]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/qrauto/internal/infrastructure/config"
	"github.com/nerrad567/qrauto/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

const usageText = `usage: qrauto [-config path] <command> [arguments]

commands:
  camera             scan a QR code with the webcam and run it
  image <path>       run the payload in a QR code image
  text <payload|->   run a payload given as text ("-" reads stdin)
  serial             scan with a serial QR scanner and run it
                     (the run commands accept -dry-run: move only, no clicks)
  sample [-qr file]  print the sample payload, optionally as a QR code PNG
  listen             run payloads received over MQTT
  history [-n N]     list recent runs
  rollback [-n N]    revert the newest N schema migrations (default 1)
  version            print version information
`

// errUsage is returned for a missing or unknown command.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usageText)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - args: Command line without the program name
//   - stdin: Source for "text -"
//   - stdout: Destination for reports and listings
//
// Returns:
//   - error: nil on success, or error describing the failure. A failed run
//     is an error so the process exits non-zero.
func run(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("qrauto", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("%w: no command given", errUsage)
	}
	command, cmdArgs := fs.Arg(0), fs.Args()[1:]

	if command == "version" {
		fmt.Fprintf(stdout, "qrauto %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	configPath, explicit := getConfigPath(*configFlag)
	cfg, err := loadConfig(configPath, explicit, logging.Default())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(cfg.Logging, version).With("site", cfg.Site.ID)
	log.Debug("configuration loaded", "path", configPath, "command", command)

	switch command {
	case "sample":
		return runSample(cmdArgs, stdout)
	case "history":
		return withApp(ctx, cfg, log, func(a *app) error { return a.history(ctx, cmdArgs, stdout) })
	case "camera", "image", "text", "serial":
		return withApp(ctx, cfg, log, func(a *app) error { return a.runOnce(ctx, command, cmdArgs, stdin, stdout) })
	case "listen":
		return withApp(ctx, cfg, log, func(a *app) error { return a.listen(ctx) })
	case "rollback":
		return rollback(ctx, cfg, log, cmdArgs, stdout)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

// getConfigPath returns the configuration file path and whether the
// operator named it. The -config flag wins over QRAUTO_CONFIG.
func getConfigPath(flagValue string) (string, bool) {
	if flagValue != "" {
		return flagValue, true
	}
	if path := os.Getenv("QRAUTO_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigPath, false
}

// loadConfig loads path. A missing default file falls back to built-in
// defaults; a missing file the operator named is an error.
func loadConfig(path string, explicit bool, log *logging.Logger) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			log.Info("no config file, using built-in defaults", "path", path)
			return config.Defaults()
		}
	}
	return config.Load(path)
}
