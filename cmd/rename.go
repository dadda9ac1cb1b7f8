package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/badge-rename/internal/badge"
	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/kozaktomas/badge-rename/internal/face"
	"github.com/kozaktomas/badge-rename/internal/imageio"
	"github.com/kozaktomas/badge-rename/internal/matcher"
	"github.com/kozaktomas/badge-rename/internal/ocr"
	"github.com/kozaktomas/badge-rename/internal/output"
	"github.com/kozaktomas/badge-rename/internal/roster"
)

var renameCmd = &cobra.Command{
	Use:   "rename <roster> <input-dir> <output-dir>",
	Short: "Rename photos by badge",
	Long: `Scan the photos in input-dir in file name order. Badge shots are matched
against the roster by OCR, the photos right after a badge with the same face
are filed under the badge holder, and remaining photos are attributed to a
nearby badge with a matching face. Everything else goes to the unmatched folder.`,
	Args: cobra.ExactArgs(3),
	RunE: runRename,
}

func init() {
	rootCmd.AddCommand(renameCmd)

	renameCmd.Flags().String("unmatched-dir", constants.DefaultUnmatchedDir, "Folder for unmatched images (relative paths are inside output-dir)")
	renameCmd.Flags().Bool("first-last", false, "Roster has first and last name columns instead of a name column")
	renameCmd.Flags().Int("skip-rows", 0, "Roster rows to skip before the header")
	renameCmd.Flags().String("ocr", "tesseract", "OCR engine: tesseract, openai, gemini, ollama")
	renameCmd.Flags().String("lang", constants.DefaultOCRLanguage, "Tesseract language")
	renameCmd.Flags().String("detector", "haar", "Face detector: haar, server")
	renameCmd.Flags().String("cascade", "", "Path to the Haar cascade XML file")
	renameCmd.Flags().Float64("threshold", constants.FaceThreshold, "Face distance below which two faces match")
	renameCmd.Flags().Int("window", constants.WindowSize, "Neighbouring photos searched on each side")
	renameCmd.Flags().Int("window-workers", 1, "Parallel evaluations within one window")
	renameCmd.Flags().Int("quality", constants.DefaultJPEGQuality, "JPEG quality of renamed photos")
	renameCmd.Flags().Bool("dry-run", false, "Report decisions without writing any files")
	renameCmd.Flags().Bool("fail-fast", false, "Abort on the first OCR or face detector error")
	renameCmd.Flags().String("manifest", "", "Write a YAML report of every decision to this file")
}

func runRename(cmd *cobra.Command, args []string) error {
	rosterPath, inputDir, outputDir := args[0], args[1], args[2]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dryRun := mustGetBool(cmd, "dry-run")
	manifestPath := mustGetString(cmd, "manifest")

	names, err := roster.Load(rosterPath, roster.Options{
		FirstLast: mustGetBool(cmd, "first-last"),
		SkipRows:  mustGetInt(cmd, "skip-rows"),
	})
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}

	paths, err := imageio.ListImages(inputDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Println("No images found")
		return nil
	}

	// Set up context with signal handling for graceful cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine, err := ocr.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create OCR engine: %w", err)
	}
	defer engine.Close()

	detector, err := face.NewDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to create face detector: %w", err)
	}
	defer detector.Close()

	writer := output.New(outputDir, cfg.Output.UnmatchedDir, output.Options{
		Quality: cfg.Output.JPEGQuality,
		DryRun:  dryRun,
	})
	if err := writer.Prepare(); err != nil {
		return err
	}

	interactive := isTerminal(os.Stderr)
	level := slog.LevelInfo
	if interactive {
		// Decision lines would tear the progress bar apart.
		level = slog.LevelWarn
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(level)

	fmt.Printf("Roster: %d names\n", len(names))
	fmt.Printf("Images: %d\n", len(paths))
	fmt.Printf("OCR: %s, faces: %s\n", engine.Name(), cfg.Face.Detector)
	if dryRun {
		fmt.Println("Mode: DRY RUN (no files will be written)")
	}
	fmt.Println()

	var bar *progressbar.ProgressBar
	if interactive {
		bar = newProgressBar(len(paths))
	}

	m := matcher.New(names,
		badge.New(engine, names),
		face.NewEmbedder(detector, constants.PatchSize),
		imageio.Loader{},
		writer,
		matcher.Options{
			Threshold:     cfg.Match.FaceThreshold,
			Window:        cfg.Match.Window,
			WindowWorkers: cfg.Match.WindowWorkers,
			FailFast:      cfg.Match.FailFast,
			Logger:        logger,
			OnProgress: func(p matcher.ProgressInfo) {
				if bar != nil {
					bar.Describe(fmt.Sprintf("Renaming photos (%d placed)", p.Placed))
					_ = bar.Set(p.Current)
				}
			},
		},
	)

	report, err := m.Run(ctx, paths)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return errors.New("interrupted, output is incomplete")
		}
		return fmt.Errorf("rename failed: %w", err)
	}

	printSummary(report, writer)

	if manifestPath != "" {
		if err := report.WriteYAML(manifestPath); err != nil {
			return err
		}
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if reporter, ok := engine.(ocr.UsageReporter); ok {
		usage := reporter.GetUsage()
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			fmt.Printf("\nAPI Usage:\n")
			fmt.Printf("  Requests: %d\n", usage.Requests)
			fmt.Printf("  Input tokens: %d\n", usage.InputTokens)
			fmt.Printf("  Output tokens: %d\n", usage.OutputTokens)
			fmt.Printf("  Total cost: $%.4f\n", usage.TotalCost)
		}
	}

	return nil
}

func printSummary(report *matcher.Report, writer *output.Writer) {
	rows := make([][]string, 0)
	for _, t := range report.Totals() {
		rows = append(rows, []string{t.Name, strconv.Itoa(t.Badges), strconv.Itoa(t.Photos)})
	}
	if len(rows) > 0 {
		fmt.Println(renderTable([]string{"Name", "Badges", "Photos"}, rows, []columnAlignment{alignLeft, alignRight, alignRight}))
	}

	fmt.Printf("\nProcessed: %d images\n", report.Images)
	fmt.Printf("Named: %d (%d badges, %d photos) in %s\n",
		report.Count(matcher.OutcomeBadge)+report.Count(matcher.OutcomePhoto),
		report.Count(matcher.OutcomeBadge), report.Count(matcher.OutcomePhoto),
		writer.OutputDir())

	unmatched := report.Unmatched()
	fmt.Printf("Unmatched: %d in %s\n", len(unmatched), writer.UnmatchedDir())
	if verbose {
		for _, src := range unmatched {
			fmt.Printf("  - %s\n", filepath.Base(src))
		}
	}
}

func newProgressBar(count int) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("Renaming photos"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
