package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	qrgen "github.com/skip2/go-qrcode"

	"github.com/nerrad567/qrauto/internal/audit"
	"github.com/nerrad567/qrauto/internal/automation"
	"github.com/nerrad567/qrauto/internal/infrastructure/config"
	"github.com/nerrad567/qrauto/internal/infrastructure/database"
	"github.com/nerrad567/qrauto/internal/infrastructure/logging"
	"github.com/nerrad567/qrauto/internal/infrastructure/mqtt"
	"github.com/nerrad567/qrauto/internal/platform"
	"github.com/nerrad567/qrauto/internal/runner"
	"github.com/nerrad567/qrauto/migrations"
)

const (
	sampleQRSize   = 512
	historyDefault = 20
)

// errRunFailed marks a run that ended without success. The report has
// already been printed.
var errRunFailed = errors.New("automation run failed")

// errBusy is returned to the MQTT handler when a run is in progress.
var errBusy = errors.New("a run is already in progress")

// runOnce performs a single run from the source named by command.
// -dry-run moves the pointer over each step without clicking.
func (a *app) runOnce(ctx context.Context, command string, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "move the pointer through each step without clicking")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	args = fs.Args()

	deps := a.deps(*dryRun)

	var report runner.Report
	switch command {
	case "camera":
		preview := platform.NewPreview("qrauto - press q to cancel")
		defer preview.Close() //nolint:errcheck // window teardown
		deps.Camera = a.cameraLoop(preview)
		report = runner.New(deps).RunFromCapture(ctx)

	case "serial":
		if len(args) != 0 {
			return fmt.Errorf("%w: serial takes no arguments", errUsage)
		}
		report = runner.New(deps).RunFromSerial(ctx)

	case "image":
		if len(args) != 1 {
			return fmt.Errorf("%w: image needs exactly one path", errUsage)
		}
		report = runner.New(deps).RunFromImage(ctx, args[0])

	case "text":
		if len(args) != 1 {
			return fmt.Errorf("%w: text needs exactly one payload argument", errUsage)
		}
		text := args[0]
		if text == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return fmt.Errorf("reading payload from stdin: %w", err)
			}
			text = string(data)
		}
		report = runner.New(deps).RunFromText(ctx, text)
	}

	if err := printReport(stdout, report); err != nil {
		return err
	}
	if !report.Success {
		return fmt.Errorf("%w: %s in %s stage: %s", errRunFailed, report.Kind, report.Stage, report.Reason)
	}
	return nil
}

func printReport(w io.Writer, report runner.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// listen runs every payload published to the command topic until ctx ends.
// Commands that arrive while a run is in progress are rejected.
func (a *app) listen(ctx context.Context) error {
	if a.mqtt == nil {
		return errors.New("listen requires a reachable MQTT broker (mqtt.enabled)")
	}

	topic := mqtt.Topics{}.CommandRun()
	log := a.log.With("topic", topic)
	r := runner.New(a.deps(false))
	commands := make(chan string)

	err := a.mqtt.Subscribe(topic, byte(a.cfg.MQTT.QoS), func(_ string, payload []byte) error { //nolint:gosec // QoS validated 0-2
		select {
		case commands <- string(payload):
			return nil
		default:
			return errBusy
		}
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	defer a.mqtt.Unsubscribe(topic) //nolint:errcheck // shutting down

	log.Info("listening for automation commands")
	for {
		select {
		case <-ctx.Done():
			log.Info("listener stopped")
			return nil
		case text := <-commands:
			report := r.RunFromMessage(ctx, text)
			log.Debug("remote run finished", "run_id", report.RunID, "success", report.Success)
		}
	}
}

// history prints the most recent runs.
func (a *app) history(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	limit := fs.Int("n", historyDefault, "number of runs to list")
	source := fs.String("source", "", "only runs from this source")
	status := fs.String("status", "", "only runs with this status")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	runs, err := a.runs.List(ctx, audit.Filter{
		Source: audit.Source(*source),
		Status: audit.Status(*status),
		Limit:  *limit,
	})
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSOURCE\tSTATUS\tSTEPS\tDURATION\tREASON")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%s\t%s\n",
			run.StartedAt.Local().Format(time.DateTime),
			run.Source,
			run.Status,
			run.StepsCompleted, run.StepsTotal,
			run.Duration.Round(time.Millisecond),
			oneLine(run.Reason),
		)
	}
	return tw.Flush()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// runSample prints the sample payload and optionally renders it as a QR code.
func runSample(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	qrPath := fs.String("qr", "", "write the payload as a QR code PNG to this file")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	payload, err := automation.SamplePayload(time.Now())
	if err != nil {
		return fmt.Errorf("building sample payload: %w", err)
	}
	if _, err := fmt.Fprintln(stdout, payload); err != nil {
		return err
	}

	if *qrPath != "" {
		if err := qrgen.WriteFile(payload, qrgen.Medium, sampleQRSize, *qrPath); err != nil {
			return fmt.Errorf("writing QR code: %w", err)
		}
	}
	return nil
}

// rollback reverts the newest schema migrations. It opens the database
// directly so the pending migrations are not re-applied first.
func rollback(ctx context.Context, cfg *config.Config, log *logging.Logger, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("rollback", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	steps := fs.Int("n", 1, "number of migrations to revert")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}
	if *steps < 1 || fs.NArg() != 0 {
		return fmt.Errorf("%w: rollback takes only -n N with N >= 1", errUsage)
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // nothing to recover on close

	reverted, err := db.MigrateDown(ctx, migrations.FS, *steps)
	if err != nil {
		return fmt.Errorf("rolling back migrations: %w", err)
	}
	log.Info("database migrations rolled back", "count", reverted)
	_, err = fmt.Fprintf(stdout, "rolled back %d migration(s)\n", reverted)
	return err
}
