package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/d1nch8g/packbridge/archive"
	"github.com/d1nch8g/packbridge/config"
	"github.com/d1nch8g/packbridge/convert"
	"github.com/d1nch8g/packbridge/history"
	"github.com/d1nch8g/packbridge/layout"
	"github.com/d1nch8g/packbridge/logger"
	"github.com/d1nch8g/packbridge/staging"
	"github.com/d1nch8g/packbridge/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "convert":
		convertCmd(os.Args[2:])
	case "runs":
		runsCmd(os.Args[2:])
	case "versions":
		versionsCmd()
	default:
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `packbridge

Usage:
  packbridge convert [flags]
  packbridge runs [flags]
  packbridge versions

Commands:
  convert    Stage a resource pack, migrate its custom model data items and build a distributable archive.
  runs       List recorded conversion runs.
  versions   List supported target game versions.

`)
}

type convertArgs struct {
	input       string
	output      string
	mode        string
	historyPath string
	stagingRoot string
	keepStaging bool
	version     version.Version
	encoding    version.Encoding
}

func convertCmd(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)

	cfg := config.New()

	in := fs.String("in", "", "Input resource pack: a directory or a .zip archive")
	out := fs.String("out", "", "Output archive path (default converted_<timestamp>.zip)")
	mode := fs.String("mode", "cmd", "Conversion mode: cmd|item")
	target := fs.String("target", cfg.TargetVersion, "Target game version (empty: default from the version table)")
	encoding := fs.String("encoding", cfg.Encoding, "Descriptor encoding in cmd mode: range_dispatch|select (empty: version default)")
	historyPath := fs.String("history", cfg.HistoryPath, "Run journal location")
	stagingRoot := fs.String("staging", cfg.StagingRoot, "Staging base directory (empty: system temp)")
	keepStaging := fs.Bool("keep-staging", false, "Keep the staging directory after the run")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug|info|warn|error")

	_ = fs.Parse(args)

	logger.Setup(*logLevel)

	if *in == "" {
		fs.Usage()
		os.Exit(2)
	}
	if *mode != "cmd" && *mode != "item" {
		fmt.Fprintf(os.Stderr, "unknown mode %q: want cmd or item\n", *mode)
		os.Exit(2)
	}

	ver, err := version.Lookup(*target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}
	enc, err := version.ParseEncoding(*encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown on SIGINT/SIGTERM.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		cancel()
	}()

	err = runConvert(ctx, convertArgs{
		input:       *in,
		output:      *out,
		mode:        *mode,
		historyPath: *historyPath,
		stagingRoot: *stagingRoot,
		keepStaging: *keepStaging,
		version:     ver,
		encoding:    enc,
	})
	if err != nil {
		if ctx.Err() != nil {
			fmt.Fprintln(os.Stderr, "interrupted")
		} else {
			fmt.Fprintf(os.Stderr, "conversion failed: %v\n", err)
		}
		os.Exit(1)
	}
}

func runConvert(ctx context.Context, args convertArgs) error {
	area, err := staging.New(args.stagingRoot)
	if err != nil {
		return fmt.Errorf("create staging area: %w", err)
	}
	if !args.keepStaging {
		defer area.Remove()
	}

	sink := &consoleSink{}

	staged, err := area.Stage(ctx, args.input, sink)
	if err != nil {
		return fmt.Errorf("stage %s: %w", args.input, err)
	}
	logrus.Infof("staged %d files from %s", staged, args.input)

	opts := convert.Options{
		Sink:     sink,
		Version:  args.version,
		Encoding: args.encoding,
	}

	var report *convert.Report
	switch args.mode {
	case "cmd":
		report, err = convert.CustomModelData(ctx, area.Input, area.Output, opts)
		if err == nil {
			err = layout.Normalize(ctx, area.Output, layout.Options{
				Sink:    sink,
				Version: args.version,
			})
		}
	case "item":
		report, err = convert.ItemModel(ctx, area.Input, area.Output, opts)
	}
	if err != nil {
		return err
	}

	dest := args.output
	if dest == "" {
		dest = "converted_" + time.Now().Format("20060102_150405") + ".zip"
	}

	sum, err := archive.Build(ctx, area.Output, dest, sink)
	if err != nil {
		return fmt.Errorf("build archive: %w", err)
	}

	recordRun(args.historyPath, report)
	printReport(report)

	fmt.Printf("✓ %s (sha256 %s)\n", dest, sum)
	if args.keepStaging {
		fmt.Printf("Staging kept at %s\n", area.Root())
	}
	return nil
}

// recordRun files the report in the journal. A finished conversion is not
// failed over a journal problem.
func recordRun(path string, report *convert.Report) {
	journal, err := history.Open(path)
	if err != nil {
		logrus.Warnf("run journal unavailable: %v", err)
		return
	}
	defer journal.Close()

	key, err := journal.Record(report)
	if err != nil {
		logrus.Warnf("unable to record run: %v", err)
		return
	}
	logrus.Debugf("run recorded as %s", key)
}

func printReport(r *convert.Report) {
	fmt.Printf("Mode:      %s\n", r.Mode)
	fmt.Printf("Version:   %s (%s)\n", r.Version, r.Encoding)
	fmt.Printf("Scanned:   %d\n", r.Scanned)
	fmt.Printf("Rewritten: %d\n", r.Rewritten)
	fmt.Printf("Generated: %d\n", r.Generated)
	fmt.Printf("Copied:    %d\n", r.Copied)
	fmt.Printf("Skipped:   %d\n", r.Skipped)
	if len(r.Parse) > 0 {
		fmt.Printf("Parse failures:\n")
		for _, p := range r.Parse {
			fmt.Printf("  %s: %s\n", p.Path, p.Reason)
		}
	}
}

func runsCmd(args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)

	cfg := config.New()

	historyPath := fs.String("history", cfg.HistoryPath, "Run journal location")
	limit := fs.Int("limit", cfg.RunLimit, "Most recent runs to show (0 shows all)")

	_ = fs.Parse(args)

	journal, err := history.Open(*historyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to open run journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	entries, err := journal.List(*limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to list runs: %v\n", err)
		os.Exit(1)
	}

	if len(entries) == 0 {
		fmt.Println("No recorded runs.")
		return
	}

	for _, entry := range entries {
		r := entry.Report
		fmt.Printf("%s  %-17s %-7s scanned=%d rewritten=%d generated=%d copied=%d skipped=%d\n",
			r.Started.Format("2006-01-02 15:04:05"), r.Mode, r.Version,
			r.Scanned, r.Rewritten, r.Generated, r.Copied, r.Skipped)
	}
}

func versionsCmd() {
	def := version.Default()
	for _, id := range version.IDs() {
		v, err := version.Lookup(id)
		if err != nil {
			continue
		}
		marker := " "
		if v.ID == def.ID {
			marker = "*"
		}
		fmt.Printf("%s %-8s pack_format %d, %s\n", marker, v.ID, v.PackFormat, v.Encoding)
	}
}

// consoleSink prints coarse progress while a phase works through its files.
type consoleSink struct {
	last int
}

func (s *consoleSink) Report(completed, total int) {
	if total == 0 {
		return
	}
	if completed < s.last {
		// New phase started counting from the beginning.
		s.last = 0
	}
	step := total / 10
	if step < 1 {
		step = 1
	}
	if completed == total || completed >= s.last+step {
		fmt.Printf("  %d/%d\n", completed, total)
		s.last = completed
	}
}

func (s *consoleSink) Message(text string) {
	logrus.Debug(text)
}
