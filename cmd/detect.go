package cmd

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/badge-rename/internal/badge"
	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/kozaktomas/badge-rename/internal/face"
	"github.com/kozaktomas/badge-rename/internal/imageio"
	"github.com/kozaktomas/badge-rename/internal/ocr"
	"github.com/kozaktomas/badge-rename/internal/roster"
)

var detectCmd = &cobra.Command{
	Use:   "detect <image>...",
	Short: "Show what the OCR engine and face detector see in images",
	Long: `Run badge and face detection on the given images and print the recognized
text, the matched roster name, the first face box and the face distance
between every pair of images. Useful for tuning the threshold.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("roster", "", "Roster file to match the text against")
	detectCmd.Flags().String("ocr", "tesseract", "OCR engine: tesseract, openai, gemini, ollama")
	detectCmd.Flags().String("lang", constants.DefaultOCRLanguage, "Tesseract language")
	detectCmd.Flags().String("detector", "haar", "Face detector: haar, server")
	detectCmd.Flags().String("cascade", "", "Path to the Haar cascade XML file")
	detectCmd.Flags().Float64("threshold", constants.FaceThreshold, "Face distance below which two faces match")
}

// detection is what was found in one image.
type detection struct {
	path   string
	result badge.Result
	box    image.Rectangle
	faces  int
	emb    face.Embedding
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	var names []string
	if rosterPath := mustGetString(cmd, "roster"); rosterPath != "" {
		names, err = roster.Load(rosterPath, roster.Options{})
		if err != nil {
			return fmt.Errorf("failed to load roster: %w", err)
		}
	}

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

	reader := badge.New(engine, names)
	embedder := face.NewEmbedder(detector, constants.PatchSize)

	detections := make([]detection, 0, len(args))
	rows := make([][]string, 0, len(args))
	for _, path := range args {
		img, err := imageio.Load(path)
		if err != nil {
			rows = append(rows, []string{filepath.Base(path), "", "", err.Error()})
			continue
		}

		d := detection{path: path}
		if d.result, err = reader.Detect(ctx, img); err != nil {
			return err
		}
		faces, err := detector.Detect(ctx, imageio.Grayscale(img))
		if err != nil {
			return err
		}
		d.faces = len(faces)
		if len(faces) > 0 {
			d.box = faces[0]
		}
		if d.emb, err = embedder.Embed(ctx, img); err != nil {
			return err
		}
		detections = append(detections, d)

		faceCol := "none"
		if d.faces > 0 {
			faceCol = fmt.Sprintf("%v (%d found)", d.box, d.faces)
		}
		rows = append(rows, []string{
			filepath.Base(path),
			strings.Join(strings.Fields(d.result.Text), " "),
			d.result.Name,
			faceCol,
		})
	}

	fmt.Println(renderTable([]string{"Image", "Text", "Name", "Face"}, rows, nil))

	var pairs [][]string
	for i := range detections {
		for j := i + 1; j < len(detections); j++ {
			a, b := detections[i], detections[j]
			if a.emb == nil || b.emb == nil {
				continue
			}
			dist := face.Distance(a.emb, b.emb)
			match := "no"
			if dist < cfg.Match.FaceThreshold {
				match = "yes"
			}
			pairs = append(pairs, []string{
				filepath.Base(a.path),
				filepath.Base(b.path),
				fmt.Sprintf("%.2f", dist),
				match,
			})
		}
	}
	if len(pairs) > 0 {
		fmt.Println()
		fmt.Println(renderTable([]string{"Image", "Image", "Distance", "Match"}, pairs,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
	}

	return nil
}
