// Package rai scans text for PII/PHI through a three-tier detection pipeline.
//
// Tiers run in strict precedence order over a set of claimed byte ranges
// scoped to a single Scan call:
//
//  1. keyword-anchored high-specificity patterns (credit card with Luhn
//     validation, medical record number, date of birth);
//  2. unanchored medium-specificity patterns (SSN, email, US phone), skipped
//     where they overlap a claimed range;
//  3. statistical entity recognition via an external Recognizer, with
//     overlapping entities discarded.
//
// A lower tier never re-flags text a higher tier has already claimed — even
// a Luhn-rejected card candidate claims its range so the digit run cannot be
// misread as, say, a phone number.
package rai

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Category is a closed PII/PHI category.
type Category string

const (
	CategoryCreditCard   Category = "CREDIT_CARD"
	CategoryMRN          Category = "MRN"
	CategoryDateOfBirth  Category = "DATE_OF_BIRTH"
	CategorySSN          Category = "SSN"
	CategoryEmail        Category = "EMAIL"
	CategoryPhoneUS      Category = "PHONE_NUMBER_US"
	CategoryPersonName   Category = "PERSON_NAME"
	CategoryLocation     Category = "LOCATION"
	CategoryDateEntity   Category = "DATE_ENTITY"
	CategoryOrganization Category = "ORGANIZATION"
)

// Finding is one detected PII/PHI occurrence. Start and End are byte offsets
// into the scanned text.
type Finding struct {
	Category Category
	Detail   string
	Start    int
	End      int
}

// Result is the outcome of one Scan call.
type Result struct {
	PIIFound bool
	Count    int
	Findings []Finding
}

// Entity is a named entity returned by a Recognizer. Start and End are byte
// offsets into the scanned text.
type Entity struct {
	Text  string
	Label string
	Start int
	End   int
}

// Recognizer is the statistical named-entity recognition capability consumed
// by tier 3. Implementations must be safe for concurrent use.
type Recognizer interface {
	Entities(ctx context.Context, text string) ([]Entity, error)
}

// AlertFunc receives one alert per finding, for forwarding to the metrics
// aggregator and the telemetry sink.
type AlertFunc func(category Category, detail string)

type pattern struct {
	category Category
	re       *regexp.Regexp
}

// Tier-1 patterns: a keyword anchor followed by the sensitive token.
// Order is fixed; findings preserve it.
var anchoredPatterns = []pattern{
	{CategoryCreditCard, regexp.MustCompile(`(?i)\b(?:credit card|card|cc)[\s\w:;#-]*?((?:\d[ -]*?){13,16})\b`)},
	{CategoryMRN, regexp.MustCompile(`(?i)\b(?:mrn|medical record|patient id|medical number|medical id)[\s\w:;#-]*?(\w[\w-]*\w)\b`)},
	{CategoryDateOfBirth, regexp.MustCompile(`(?i)\b(?:dob|date of birth|birthday|birth date)[\s\w:;#-]*?(\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{1,2},?\s+\d{2,4})\b`)},
}

// Tier-2 patterns: self-contained shapes with no anchor keyword.
var unanchoredPatterns = []pattern{
	{CategorySSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{CategoryEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)},
	{CategoryPhoneUS, regexp.MustCompile(`\b\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

var cardSeparators = regexp.MustCompile(`[\s-]`)

// entityCategories maps Recognizer labels to the closed category set.
// Unmapped labels are ignored.
var entityCategories = map[string]Category{
	"PERSON": CategoryPersonName,
	"GPE":    CategoryLocation,
	"LOC":    CategoryLocation,
	"DATE":   CategoryDateEntity,
	"ORG":    CategoryOrganization,
}

// claims tracks byte ranges already attributed to a finding in one scan.
type claims struct {
	ranges [][2]int
}

func (c *claims) overlaps(start, end int) bool {
	for _, r := range c.ranges {
		if start < r[1] && end > r[0] {
			return true
		}
	}
	return false
}

func (c *claims) add(start, end int) {
	c.ranges = append(c.ranges, [2]int{start, end})
}

// Scanner runs the detection pipeline. A nil recognizer disables tier 3;
// Scan still succeeds. Scanner holds no per-call state and is safe for
// concurrent use.
type Scanner struct {
	recognizer Recognizer
	alert      AlertFunc
	logger     *slog.Logger
}

// NewScanner creates a Scanner. recognizer may be nil. alert may be nil when
// no downstream reporting is wanted.
func NewScanner(recognizer Recognizer, alert AlertFunc, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{recognizer: recognizer, alert: alert, logger: logger}
}

// Scan inspects text and reports every finding to the alert func, as a
// redacted annotation event on span, and in the returned Result. Findings
// are ordered by tier, then by match order within a tier.
func (s *Scanner) Scan(ctx context.Context, text string, span trace.Span) Result {
	var findings []Finding
	cl := &claims{}

	// Tier 1: anchored patterns. A credit-card candidate that fails the Luhn
	// check is dropped but still claims its range, so the noisy digit run is
	// off-limits to the weaker tiers.
	for _, p := range anchoredPatterns {
		for _, m := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[0], m[1]
			if p.category == CategoryCreditCard {
				number := cardSeparators.ReplaceAllString(text[m[2]:m[3]], "")
				if !luhnValid(number) {
					cl.add(start, end)
					s.logger.Debug("credit-card-like pattern failed Luhn check; range claimed",
						"start", start, "end", end)
					continue
				}
			}
			cl.add(start, end)
			findings = append(findings, s.report(span, p.category, text[start:end], start, end))
		}
	}

	// Tier 2: unanchored patterns. A match touching a claimed range is
	// skipped entirely — neither reported nor claimed.
	for _, p := range unanchoredPatterns {
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			start, end := m[0], m[1]
			if cl.overlaps(start, end) {
				continue
			}
			cl.add(start, end)
			findings = append(findings, s.report(span, p.category, text[start:end], start, end))
		}
	}

	// Tier 3: statistical entities. Never claims — no weaker tier follows.
	if s.recognizer != nil {
		entities, err := s.recognizer.Entities(ctx, text)
		if err != nil {
			s.logger.Warn("entity recognition failed; skipping statistical tier", "error", err)
		}
		for _, ent := range entities {
			if cl.overlaps(ent.Start, ent.End) {
				s.logger.Debug("entity overlaps a higher-precision match; discarding",
					"label", ent.Label, "start", ent.Start)
				continue
			}
			cat, ok := entityCategories[ent.Label]
			if !ok {
				continue
			}
			findings = append(findings, s.report(span, cat, ent.Text, ent.Start, ent.End))
		}
	}

	result := Result{
		PIIFound: len(findings) > 0,
		Count:    len(findings),
		Findings: findings,
	}
	span.SetAttributes(
		attribute.Bool("rai.pii_found", result.PIIFound),
		attribute.Int("rai.findings_count", result.Count),
	)
	return result
}

// report records one finding on every side channel and returns it. The span
// annotation carries only a category placeholder, never the matched text.
func (s *Scanner) report(span trace.Span, cat Category, matched string, start, end int) Finding {
	if s.alert != nil {
		s.alert(cat, fmt.Sprintf("Found at index %d", start))
	}
	span.AddEvent("rai_alert", trace.WithAttributes(
		attribute.String("type", string(cat)),
		attribute.String("match_text", Redacted(cat)),
	))
	return Finding{
		Category: cat,
		Detail:   fmt.Sprintf("Found %q at index %d", matched, start),
		Start:    start,
		End:      end,
	}
}

// Redacted returns the placeholder used in span annotations for a category.
func Redacted(cat Category) string {
	return "[" + string(cat) + "_REDACTED]"
}
