// Package extractor turns free-text price target sentences into announcement records.
//
// Every function here is pure: malformed text degrades individual fields, it never fails.
package extractor

import (
	"regexp"
	"strings"

	"AnalystScanner/internal/domain"
)

// Whitespace classes include Unicode separators such as NBSP; a trailing newline still ends the target.
var (
	phraseExpr    = regexp.MustCompile(`(?i)price target`)
	raisedExpr    = regexp.MustCompile(`(?i)target raised`)
	analystExpr   = regexp.MustCompile(`.* at[\s\p{Z}]+(.*)`)
	priceTargetRE = regexp.MustCompile(`(?i)to[\s\p{Z}]+(.*?)(?:[\s\p{Z}]+from|[\s\p{Z}]+at|[\s\p{Z}]*$)`)
)

// Qualifies reports whether the text mentions a price target in any case.
func Qualifies(text string) bool {
	return phraseExpr.MatchString(text)
}

// ExtractAll converts every qualifying fragment into one announcement, keeping input order.
// Fragments without the "price target" phrase are skipped.
func ExtractAll(fragments []domain.RawFragment) []domain.Announcement {
	records := make([]domain.Announcement, 0, len(fragments))
	for _, fragment := range fragments {
		if !Qualifies(fragment.Text) {
			continue
		}
		records = append(records, Extract(fragment.Text))
	}
	return records
}

// Extract builds the record for a single qualifying text.
func Extract(text string) domain.Announcement {
	return domain.Announcement{
		CompanyName: SplitCompanyName(text),
		Direction:   DetectDirection(text),
		Analyst:     ExtractAnalyst(text),
		PriceTarget: ExtractPriceTarget(text),
	}
}

// SplitCompanyName returns the trimmed text before the first "price target".
func SplitCompanyName(text string) string {
	loc := phraseExpr.FindStringIndex(text)
	if loc == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(text[:loc[0]])
}

// ExtractAnalyst returns what follows the last " at " of the text.
// Text without such a clause is returned unchanged.
func ExtractAnalyst(text string) string {
	if !analystExpr.MatchString(text) {
		return text
	}
	return strings.TrimSpace(analystExpr.ReplaceAllString(text, "${1}"))
}

// ExtractPriceTarget returns the value between the first "to" and the next "from" or "at".
func ExtractPriceTarget(text string) *string {
	m := priceTargetRE.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	target := strings.TrimSpace(m[1])
	return &target
}

// DetectDirection is Raised when the text says "target raised"; anything else is Lowered.
func DetectDirection(text string) domain.Direction {
	if raisedExpr.MatchString(text) {
		return domain.Raised
	}
	return domain.Lowered
}
