// Package badge decides whether a photo shows a name badge for someone on the
// roster by matching OCR text against the roster names.
package badge

import (
	"context"
	"fmt"
	"image"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// TextExtractor returns the free text found in an image.
type TextExtractor interface {
	Text(ctx context.Context, img image.Image) (string, error)
}

// Result is the outcome of reading a photo.
type Result struct {
	Name    string // matched roster name, empty when Matched is false
	Matched bool
	HasText bool // any letters or digits were recognized
	Text    string
}

// Detector matches recognized text against a fixed roster.
type Detector struct {
	ocr        TextExtractor
	names      []string
	normalized []string
}

func New(ocr TextExtractor, names []string) *Detector {
	normalized := make([]string, len(names))
	for i, name := range names {
		normalized[i] = Normalize(name)
	}
	return &Detector{
		ocr:        ocr,
		names:      names,
		normalized: normalized,
	}
}

// Detect runs OCR over the whole image and returns the first roster name, in
// roster order, whose normalized form occurs in the normalized text.
func (d *Detector) Detect(ctx context.Context, img image.Image) (Result, error) {
	text, err := d.ocr.Text(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("ocr failed: %w", err)
	}
	return d.Match(text), nil
}

// Match applies the roster matching rules to already extracted text.
func (d *Detector) Match(text string) Result {
	cleaned := Clean(text)
	normalized := Normalize(cleaned)
	res := Result{HasText: cleaned != "", Text: cleaned}

	for i, name := range d.names {
		if d.normalized[i] == "" {
			continue
		}
		if strings.Contains(normalized, d.normalized[i]) {
			res.Name = name
			res.Matched = true
			return res
		}
	}
	return res
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Clean keeps letters, digits and whitespace and trims the result.
func Clean(s string) string {
	t := runes.Remove(runes.Predicate(func(r rune) bool {
		return !isAlnum(r) && !unicode.IsSpace(r)
	}))
	result, _, _ := transform.String(t, s)
	return strings.TrimSpace(result)
}

// Normalize keeps only letters and digits, lower-cased ("Mary-Jane O'Neil" -> "maryjaneoneil").
func Normalize(s string) string {
	t := transform.Chain(runes.Remove(runes.Predicate(func(r rune) bool {
		return !isAlnum(r)
	})), cases.Lower(language.Und))
	result, _, _ := transform.String(t, s)
	return result
}
