// Package matcher decides, for an ordered sequence of event photos, which
// images are badge shots, which are photos of a badge holder and which cannot
// be attributed to anyone.
package matcher

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/badge-rename/internal/badge"
	"github.com/kozaktomas/badge-rename/internal/constants"
	"github.com/kozaktomas/badge-rename/internal/face"
	"github.com/kozaktomas/badge-rename/internal/output"
)

// ErrBackend marks failures of the OCR engine or the face detector.
var ErrBackend = errors.New("backend failure")

type NameDetector interface {
	Detect(ctx context.Context, img image.Image) (badge.Result, error)
}

type FaceEmbedder interface {
	Embed(ctx context.Context, img image.Image) (face.Embedding, error)
}

type ImageLoader interface {
	Load(path string) (image.Image, error)
}

type OutputWriter interface {
	Save(img image.Image, a output.Assignment) (string, error)
	CopyUnmatched(src string) (string, error)
}

// ProgressInfo contains progress information for callbacks
type ProgressInfo struct {
	Current int
	Total   int
	Placed  int // images with a final location, including lookahead matches
	Path    string
}

type Options struct {
	Threshold     float64 // face distance below which two faces match
	Window        int     // neighbours searched on each side
	WindowWorkers int     // parallel candidate evaluations within one window
	FailFast      bool    // abort on the first OCR or face detector error
	Logger        *slog.Logger
	OnProgress    func(ProgressInfo) // Optional progress callback
}

type Matcher struct {
	names    []string
	detector NameDetector
	embedder FaceEmbedder
	loader   ImageLoader
	writer   OutputWriter
	opts     Options
	log      *slog.Logger
}

func New(names []string, detector NameDetector, embedder FaceEmbedder, loader ImageLoader, writer OutputWriter, opts Options) *Matcher {
	if opts.Threshold <= 0 {
		opts.Threshold = constants.FaceThreshold
	}
	if opts.Window <= 0 {
		opts.Window = constants.WindowSize
	}
	if opts.WindowWorkers <= 0 {
		opts.WindowWorkers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Matcher{
		names:    names,
		detector: detector,
		embedder: embedder,
		loader:   loader,
		writer:   writer,
		opts:     opts,
		log:      logger.With("component", "matcher"),
	}
}

// run holds everything that lives for exactly one Run call.
type run struct {
	*Matcher
	paths  []string
	state  *State
	report *Report
}

// Run processes paths in order and returns the report of where every image
// went. If ctx is cancelled, Run stops at the next image boundary and returns
// the context error without sweeping the remaining images.
func (m *Matcher) Run(ctx context.Context, paths []string) (*Report, error) {
	r := &run{
		Matcher: m,
		paths:   paths,
		state:   NewState(),
		report: &Report{
			RunID:     uuid.NewString(),
			StartedAt: time.Now(),
			Images:    len(paths),
		},
	}

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !r.state.IsUsed(i) {
			if err := r.process(ctx, i); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				if !errors.Is(err, ErrBackend) || m.opts.FailFast {
					return nil, err
				}
				m.log.Warn("image left unprocessed", "image", filepath.Base(path), "error", err)
			}
		}
		if m.opts.OnProgress != nil {
			m.opts.OnProgress(ProgressInfo{
				Current: i + 1,
				Total:   len(paths),
				Placed:  r.state.UsedCount(),
				Path:    path,
			})
		}
	}

	if err := r.finalize(); err != nil {
		return nil, err
	}
	r.report.FinishedAt = time.Now()
	return r.report, nil
}

// process decides the fate of the unused image at index i.
func (r *run) process(ctx context.Context, i int) error {
	path := r.paths[i]
	img, err := r.loader.Load(path)
	if err != nil {
		r.log.Warn("failed to load image", "image", filepath.Base(path), "error", err)
		return nil
	}

	res, err := r.detector.Detect(ctx, img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackend, filepath.Base(path), err)
	}

	if res.Matched {
		return r.processBadge(ctx, i, img, res.Name, ReasonBadgeText)
	}
	if res.HasText {
		if remaining := r.state.Remaining(r.names); len(remaining) == 1 {
			return r.processBadge(ctx, i, img, remaining[0], ReasonLastRemaining)
		}
	}
	return r.attributePhoto(ctx, i, img)
}

// lookaheadMatch is a neighbour whose face matches a badge.
type lookaheadMatch struct {
	index   int
	img     image.Image
	isBadge bool
}

func (r *run) processBadge(ctx context.Context, i int, img image.Image, name, reason string) error {
	path := r.paths[i]
	enc, err := r.embedder.Embed(ctx, img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackend, filepath.Base(path), err)
	}
	if enc == nil {
		r.log.Info("no face found on badge", "image", filepath.Base(path), "name", name)
		return r.unmatched(i, ReasonNoBadgeFace)
	}

	matches, err := r.lookahead(ctx, i, enc)
	if err != nil {
		return err
	}

	count := r.state.IncrementBadgeCount(name)
	if err := r.save(i, img, output.Assignment{Source: path, Name: name, Kind: output.KindBadge, Number: count}, reason); err != nil {
		return err
	}

	photoNum := 1
	for _, match := range matches {
		a := output.Assignment{Source: r.paths[match.index], Name: name}
		why := ReasonLookahead
		if match.isBadge {
			count++
			a.Kind = output.KindBadge
			a.Number = count
			why = ReasonLookaheadBadge
		} else {
			a.Kind = output.KindPhoto
			a.Number = photoNum
			photoNum++
		}
		if err := r.save(match.index, match.img, a, why); err != nil {
			return err
		}
	}

	r.state.SetBadgeCount(name, count)
	r.state.MarkAssigned(name)
	return nil
}

// lookahead finds unused images right after i showing the same face. It does
// not cascade into the neighbours of a match.
func (r *run) lookahead(ctx context.Context, i int, enc face.Embedding) ([]lookaheadMatch, error) {
	var indices []int
	for j := i + 1; j <= i+r.opts.Window && j < len(r.paths); j++ {
		if !r.state.IsUsed(j) {
			indices = append(indices, j)
		}
	}

	results := r.evaluate(ctx, indices, false, func(ctx context.Context, j int) candidate {
		img, err := r.loader.Load(r.paths[j])
		if err != nil {
			return candidate{}
		}
		other, err := r.embedder.Embed(ctx, img)
		if err != nil {
			return candidate{err: err}
		}
		if other == nil || !face.Match(enc, other, r.opts.Threshold) {
			return candidate{}
		}
		res, err := r.detector.Detect(ctx, img)
		if err != nil {
			return candidate{err: err}
		}
		return candidate{ok: true, img: img, name: res.Name, isBadge: res.Matched}
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matches []lookaheadMatch
	for k, c := range results {
		if err := r.checkCandidate(indices[k], c); err != nil {
			return nil, err
		}
		if c.ok {
			matches = append(matches, lookaheadMatch{index: indices[k], img: c.img, isBadge: c.isBadge})
		}
	}
	return matches, nil
}

// attributePhoto files a non-badge image under the first nearby badge
// holder with a matching face.
func (r *run) attributePhoto(ctx context.Context, i int, img image.Image) error {
	path := r.paths[i]
	enc, err := r.embedder.Embed(ctx, img)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrBackend, filepath.Base(path), err)
	}
	if enc == nil {
		return r.unmatched(i, ReasonNoFace)
	}

	var indices []int
	for j := max(0, i-r.opts.Window); j <= i+r.opts.Window && j < len(r.paths); j++ {
		if j != i {
			indices = append(indices, j)
		}
	}

	results := r.evaluate(ctx, indices, true, func(ctx context.Context, j int) candidate {
		other, err := r.loader.Load(r.paths[j])
		if err != nil {
			return candidate{}
		}
		res, err := r.detector.Detect(ctx, other)
		if err != nil {
			return candidate{err: err}
		}
		if !res.Matched {
			return candidate{}
		}
		otherEnc, err := r.embedder.Embed(ctx, other)
		if err != nil {
			return candidate{err: err}
		}
		if otherEnc == nil || !face.Match(otherEnc, enc, r.opts.Threshold) {
			return candidate{}
		}
		return candidate{ok: true, name: res.Name}
	})
	if err := ctx.Err(); err != nil {
		return err
	}

	for k, c := range results {
		if err := r.checkCandidate(indices[k], c); err != nil {
			return err
		}
		if !c.ok {
			continue
		}
		count := r.state.BadgeCount(c.name)
		if count == 0 {
			count = 1
		}
		return r.save(i, img, output.Assignment{Source: path, Name: c.name, Kind: output.KindPhoto, Number: count}, ReasonNearbyBadge)
	}

	return r.unmatched(i, ReasonNoMatch)
}

// checkCandidate applies the backend error policy to a window candidate.
func (r *run) checkCandidate(j int, c candidate) error {
	if c.err == nil {
		return nil
	}
	if r.opts.FailFast {
		return fmt.Errorf("%w: %s: %w", ErrBackend, filepath.Base(r.paths[j]), c.err)
	}
	r.log.Warn("skipping window candidate", "image", filepath.Base(r.paths[j]), "error", c.err)
	return nil
}

// finalize copies every image that never got a final location.
func (r *run) finalize() error {
	for i := range r.paths {
		if r.state.IsUsed(i) {
			continue
		}
		if err := r.unmatched(i, ReasonNotProcessed); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) save(i int, img image.Image, a output.Assignment, reason string) error {
	dest, err := r.writer.Save(img, a)
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", filepath.Base(a.Source), err)
	}
	outcome := OutcomePhoto
	if a.Kind == output.KindBadge {
		outcome = OutcomeBadge
	}
	r.record(i, Decision{Outcome: outcome, Name: a.Name, Destination: dest, Reason: reason})
	return nil
}

func (r *run) unmatched(i int, reason string) error {
	dest, err := r.writer.CopyUnmatched(r.paths[i])
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", filepath.Base(r.paths[i]), err)
	}
	r.record(i, Decision{Outcome: OutcomeUnmatched, Destination: dest, Reason: reason})
	return nil
}

func (r *run) record(i int, d Decision) {
	r.state.MarkUsed(i)
	d.Index = i
	d.Source = r.paths[i]
	r.report.Decisions = append(r.report.Decisions, d)
	r.log.Info("decision",
		"image", filepath.Base(d.Source),
		"outcome", d.Outcome,
		"name", d.Name,
		"destination", d.Destination,
		"reason", d.Reason,
	)
}

// candidate is the evaluation of one window position.
type candidate struct {
	ok      bool
	img     image.Image
	name    string
	isBadge bool
	err     error
}

// evaluate runs fn for every index and returns the results in index order.
// Sequential evaluation stops early at the first decisive result when
// firstOnly is set; parallel evaluation computes all positions, which leaves
// the in-order outcome unchanged.
func (r *run) evaluate(ctx context.Context, indices []int, firstOnly bool, fn func(context.Context, int) candidate) []candidate {
	results := make([]candidate, len(indices))

	if r.opts.WindowWorkers <= 1 || len(indices) <= 1 {
		for k, j := range indices {
			if ctx.Err() != nil {
				break
			}
			results[k] = fn(ctx, j)
			if firstOnly && (results[k].ok || (results[k].err != nil && r.opts.FailFast)) {
				return results[:k+1]
			}
		}
		return results
	}

	semaphore := make(chan struct{}, r.opts.WindowWorkers)
	var wg sync.WaitGroup
	for k, j := range indices {
		wg.Add(1)
		go func(k, j int) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if ctx.Err() != nil {
				return
			}
			results[k] = fn(ctx, j)
		}(k, j)
	}
	wg.Wait()
	return results
}
