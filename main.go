// Program qrzlogger is an interactive terminal logger for QRZ.com: it looks
// up a callsign in the XML directory, shows earlier QSOs with that station
// from the operator's logbook, and uploads a new QSO to the logbook.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"qrzlogger/config"
	"qrzlogger/journal"
	"qrzlogger/lotw"
	"qrzlogger/qrz"
	"qrzlogger/refdata"
	"qrzlogger/session"
	"qrzlogger/ui"

	"github.com/spf13/cobra"
)

// Version will be set at build time
var Version = "dev"

const (
	exitFailure = 1
	exitConfig  = 2
	exitAuth    = 3
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGHUP)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func newRootCommand() *cobra.Command {
	var contest bool
	cmd := &cobra.Command{
		Use:   "qrzlogger",
		Short: "Log QSOs to the QRZ.com logbook from the terminal",
		Long: `qrzlogger looks up callsigns on QRZ.com, shows the QSOs already in your
logbook and uploads new ones.

On first start a configuration template is written; edit it and start
qrzlogger again.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{
				contest: contest,
				stdout:  cmd.OutOrStdout(),
				input:   openReadline,
			})
		},
	}
	cmd.Flags().BoolVarP(&contest, "contest", "c", false, "contest mode: only prompt the fields that change between QSOs")
	return cmd
}

type inputFactory func(historyFile string) (session.Input, io.Closer, error)

type runOptions struct {
	contest bool
	stdout  io.Writer
	input   inputFactory
}

func openReadline(historyFile string) (session.Input, io.Closer, error) {
	rl, err := ui.NewReadlineInput(historyFile)
	if err != nil {
		return nil, nil, err
	}
	return rl, rl, nil
}

// Purpose: Load the configuration, prepare every collaborator and run the
// interactive session.
// Key aspects: Only configuration and authentication problems are returned;
// reference data and journal failures degrade the session instead.
// Upstream: root command.
// Downstream: config, refdata.Refresh, journal.Open, qrz clients, session.Run.
func run(ctx context.Context, opts runOptions) error {
	cfg, created, err := loadConfig()
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(opts.stdout, "A configuration template was written to %s\n", cfg.LoadedFrom)
		fmt.Fprintln(opts.stdout, "Enter your QRZ.com credentials and API key, then start qrzlogger again.")
		return nil
	}

	logOut, err := setupLogging(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging: %v\n", err)
	}
	log.SetFlags(0)
	log.SetOutput(logOut)
	defer logOut.Close()
	log.Printf("qrzlogger %s starting, config %s", Version, cfg.LoadedFrom)

	presenter := ui.NewPresenter(opts.stdout, ui.Options{
		Color:       ui.ColorEnabled(cfg.Colors.UseColors, stdoutFile(opts.stdout)),
		Palette:     ui.PaletteFromConfig(cfg.Colors),
		StationGrid: cfg.QRZ.StationGrid,
	})
	sessOpts := session.OptionsFromConfig(cfg, opts.contest)
	presenter.Banner(Version, cfg.QRZ.StationCall, sessOpts.Contest)

	data := refdata.Refresh(ctx, refdataOptions(cfg))
	presenter.RefdataStatus(data.Status)

	deps := session.Deps{Annotator: data, UI: presenter}
	if jr, err := journal.Open(cfg.Files.JournalFile); err != nil {
		log.Printf("[JOURNAL] disabled: %v", err)
		presenter.Warnf("Upload journal unavailable: %v", err)
	} else {
		defer jr.Close()
		log.Printf("[JOURNAL] open %s", jr.Path())
		deps.Journal = jr
	}

	directory := qrz.NewDirectory(qrz.DirectoryConfig{
		URL:     cfg.QRZ.XMLURL,
		User:    cfg.QRZ.User,
		Pass:    cfg.QRZ.Pass,
		Agent:   cfg.QRZ.Agent,
		Timeout: cfg.QRZTimeout(),
	})
	logbook := qrz.NewLogbook(qrz.LogbookConfig{
		URL:         cfg.QRZ.APIURL,
		APIKey:      cfg.QRZ.APIKey,
		StationCall: cfg.QRZ.StationCall,
		Agent:       cfg.QRZ.Agent,
		Timeout:     cfg.QRZTimeout(),
	})
	if err := checkAccounts(ctx, directory, logbook, presenter); err != nil {
		return err
	}
	deps.Directory = directory
	deps.Logbook = logbook

	in, closer, err := opts.input(cfg.Files.HistoryFile)
	if err != nil {
		return fmt.Errorf("open terminal input: %w", err)
	}
	defer closer.Close()
	deps.Input = in
	if term, ok := in.(interface{ Stdout() io.Writer }); ok {
		presenter.SetOutput(term.Stdout())
	}

	err = session.New(deps, sessOpts).Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		log.Printf("session ended: %v", err)
		return err
	}
	log.Printf("session ended")
	presenter.Infof("73!")
	return nil
}

// loadConfig writes the template on first start and otherwise returns a
// validated configuration with its directories in place.
func loadConfig() (*config.Config, bool, error) {
	path, err := config.DefaultPath()
	if err != nil {
		return nil, false, err
	}
	created, err := config.EnsureFile(path)
	if err != nil {
		return nil, false, err
	}
	if created {
		return &config.Config{LoadedFrom: path}, true, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("%w (edit %s)", err, path)
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, false, fmt.Errorf("%w: %w", config.ErrConfig, err)
	}
	return cfg, false, nil
}

func refdataOptions(cfg *config.Config) refdata.Options {
	opts := refdata.Options{
		Dir:         cfg.Files.DataDir,
		TTL:         cfg.RefreshTTL(),
		CTYURL:      cfg.Files.CTYURL,
		ActivityURL: cfg.Files.ActivityURL,
		LoTWMode:    cfg.LoTW.Mode,
		Timeout:     cfg.DownloadTimeout(),
		UserAgent:   cfg.QRZ.Agent,
	}
	if cfg.LoTWEnabled() {
		opts.ReportURL = lotw.ReportURL(cfg.Files.ReportURL, cfg.LoTW.User, cfg.LoTW.Pass)
	}
	return opts
}

// Purpose: Verify both QRZ.com credentials before the first prompt.
// Key aspects: Rejected credentials are fatal; an unreachable service is only
// reported because lookups log in again on demand.
// Upstream: run.
// Downstream: qrz.Directory.Login, qrz.Logbook.Status.
func checkAccounts(ctx context.Context, directory *qrz.Directory, logbook *qrz.Logbook, p *ui.Presenter) error {
	sess, err := directory.Login(ctx)
	switch {
	case errors.Is(err, qrz.ErrAuth):
		p.Errorf("QRZ.com login rejected: %v", err)
		return err
	case err != nil:
		p.Warnf("QRZ.com login failed, will retry on first lookup: %v", err)
	case !sess.Subscriber():
		p.Warnf("No QRZ.com XML subscription: lookups return limited data")
	}

	status, err := logbook.Status(ctx)
	switch {
	case errors.Is(err, qrz.ErrAuth):
		p.Errorf("QRZ.com logbook API key rejected: %v", err)
		return err
	case err != nil:
		p.Warnf("QRZ.com logbook status unavailable: %v", err)
	default:
		name := strings.TrimSpace(status["BOOK_NAME"])
		if name == "" {
			name = "logbook"
		}
		p.Infof("QRZ.com %s ready, %s QSOs", name, valueOr(status["COUNT"], "0"))
	}
	return nil
}

func stdoutFile(w io.Writer) *os.File {
	if f, ok := w.(*os.File); ok {
		return f
	}
	return nil
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, config.ErrConfig):
		return exitConfig
	case errors.Is(err, qrz.ErrAuth):
		return exitAuth
	default:
		return exitFailure
	}
}
