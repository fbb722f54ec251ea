// Package extract resolves record fields through ordered locator fallback
// chains. Amazon's markup varies by product, locale and experiment, so
// every field carries several candidate selectors; the first one that
// yields non-empty text (or a configured attribute) wins, and exhausting
// the chain produces the "N/A" sentinel rather than an error.
package extract

import (
	"errors"
	"regexp"
	"strings"

	"github.com/profitstory/amazon-review-scraper/internal/dom"
	"github.com/profitstory/amazon-review-scraper/internal/models"
)

// Strategy is one candidate locator for a field. When Attribute is empty
// the element's text content is used.
type Strategy struct {
	Selector  string
	Attribute string
}

// FieldSpec is the ordered locator chain for one field.
type FieldSpec struct {
	Name       string
	Strategies []Strategy
}

// Result carries the extracted value plus which strategy matched, for
// diagnostics. Found is false only when every strategy failed, in which
// case Value holds the sentinel.
type Result struct {
	Value  string
	Source string
	Found  bool
}

// Extract tries each strategy in order against the record element and
// returns the first non-empty match. Lookup failures fall through to the
// next strategy; only a closed session aborts.
func Extract(record dom.Element, spec FieldSpec) (Result, error) {
	for _, strat := range spec.Strategies {
		value, err := apply(record, strat)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return Result{}, err
			}
			continue
		}
		if value != "" {
			return Result{Value: value, Source: strat.Selector, Found: true}, nil
		}
	}

	return Result{Value: models.FieldUnavailable}, nil
}

func apply(record dom.Element, strat Strategy) (string, error) {
	el, err := record.Query(strat.Selector)
	if err != nil {
		return "", err
	}
	if el == nil {
		return "", nil
	}

	var raw string
	if strat.Attribute != "" {
		raw, err = el.Attribute(strat.Attribute)
	} else {
		raw, err = el.Text()
	}
	if err != nil {
		return "", err
	}

	return normalize(raw), nil
}

var whitespace = regexp.MustCompile(`\s+`)

func normalize(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

var starClass = regexp.MustCompile(`a-star-(\d)`)

// Rating resolves the star rating from the a-star-<N> class token on the
// first matching candidate. Absence of the token yields the sentinel.
func Rating(record dom.Element, spec FieldSpec) (Result, error) {
	for _, strat := range spec.Strategies {
		el, err := record.Query(strat.Selector)
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return Result{}, err
			}
			continue
		}
		if el == nil {
			continue
		}

		class, err := el.Attribute("class")
		if err != nil {
			if errors.Is(err, dom.ErrSessionClosed) {
				return Result{}, err
			}
			continue
		}

		if m := starClass.FindStringSubmatch(class); m != nil {
			return Result{Value: m[1], Source: strat.Selector, Found: true}, nil
		}
	}

	return Result{Value: models.FieldUnavailable}, nil
}

// Presence maps an element's existence to "Yes"/"No". Absence is a valid
// negative here (e.g. an unverified purchase), not a missing value.
func Presence(record dom.Element, selector string) (Result, error) {
	el, err := record.Query(selector)
	if err != nil {
		if errors.Is(err, dom.ErrSessionClosed) {
			return Result{}, err
		}
		return Result{Value: "No", Source: selector}, nil
	}
	if el == nil {
		return Result{Value: "No", Source: selector}, nil
	}
	return Result{Value: "Yes", Source: selector, Found: true}, nil
}

// negativeFill marks negative-sentiment aspect icons. The color probe is a
// nicety, not authoritative, so failures default to positive.
const negativeFill = "#DE7921"

// Sentiment probes the aspect chip's icon fill color. Fail-open: any probe
// failure or missing marker reports positive.
func Sentiment(aspect dom.Element) models.Sentiment {
	icon, err := aspect.Query("svg path")
	if err != nil || icon == nil {
		return models.SentimentPositive
	}

	fill, err := icon.Attribute("fill")
	if err != nil {
		return models.SentimentPositive
	}

	if strings.Contains(strings.ToUpper(fill), negativeFill) {
		return models.SentimentNegative
	}
	return models.SentimentPositive
}
