// Package canonical maps free-form payer and client names to a comparable
// canonical form.
//
// Remittance payer names are noisy: spacing is arbitrary, katakana arrives in
// half-width form, and company markers appear as bank abbreviations (カ）) or
// as the formal suffix written out. Canonical forms are used only for
// comparison, never displayed.
package canonical

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"remittance-reconciliation-service/pkg/logger"
)

// companyMarkers are tokens that identify the corporate form rather than the
// company, in the forms they appear in bank exports: abbreviated with a
// closing bracket, formal kanji, and the phonetic rendering the bank prints.
var companyMarkers = []string{
	"株式会社",
	"有限会社",
	"合同会社",
	"カブシキガイシャ",
	"カブシキカイシャ",
	"ユウゲンガイシャ",
	"カ）",
	"カ)",
	"ユ）",
	"ユ)",
	"ド）",
	"ド)",
}

// bracketStripper removes bracket characters in both ASCII and full-width
// forms. Pairs are not balanced-checked; stray brackets are ledger noise.
var bracketStripper = strings.NewReplacer(
	"(", "", ")", "",
	"（", "", "）", "",
	"「", "", "」", "",
	"【", "", "】", "",
)

// whitespaceStripper removes ASCII whitespace and the ideographic space.
var whitespaceStripper = strings.NewReplacer(
	" ", "", "\t", "", "\r", "", "\n", "", "　", "",
)

// Normalize maps a name to its canonical comparison form: whitespace
// stripped, company markers and brackets removed, half-width katakana folded
// to full-width. Applying Normalize twice yields the same string as once.
func Normalize(name string) string {
	s := whitespaceStripper.Replace(name)
	// Widen before marker removal so abbreviations written in half-width
	// katakana (ｶ）) are recognized.
	s = widenKatakana(s)
	s = stripMarkers(s)
	s = bracketStripper.Replace(s)
	// Bracket removal may join fragments into a marker.
	s = stripMarkers(s)
	return s
}

// stripMarkers removes company-marker tokens until none remain, so that
// removal cannot leave a freshly-joined marker behind.
func stripMarkers(s string) string {
	for {
		next := s
		for _, marker := range companyMarkers {
			next = strings.ReplaceAll(next, marker, "")
		}
		if next == s {
			return next
		}
		s = next
	}
}

// widenKatakana folds runs of half-width katakana (U+FF61..U+FF9F) to their
// full-width equivalents, composing voiced marks. Other scripts pass through
// untouched.
func widenKatakana(s string) string {
	var b strings.Builder
	var run strings.Builder

	flush := func() {
		if run.Len() > 0 {
			b.WriteString(norm.NFKC.String(run.String()))
			run.Reset()
		}
	}

	for _, r := range s {
		if r >= 0xFF61 && r <= 0xFF9F {
			run.WriteRune(r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()

	return b.String()
}

// ContainsKanji reports whether the name carries at least one Han ideograph
// and is therefore eligible for phonetic transliteration.
func ContainsKanji(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// Transliterator is the capability interface for the external phonetic
// transliteration service. One ordered list in, one ordered list out; the
// output may be shorter than the input when the service degrades.
type Transliterator interface {
	TransliterateBatch(ctx context.Context, names []string) ([]string, error)
}

// CanonicalNames normalizes every name and, for names containing kanji,
// upgrades the canonical form with a phonetic rendering fetched in a single
// batched call. A failed or short response degrades the affected names to
// their normalized form; this never returns an error.
func CanonicalNames(ctx context.Context, names []string, translit Transliterator) []string {
	log := logger.GetGlobalLogger().WithComponent("canonicalizer")

	canonical := make([]string, len(names))
	var kanjiIdx []int
	var kanjiNames []string

	for i, name := range names {
		canonical[i] = Normalize(name)
		if ContainsKanji(canonical[i]) {
			kanjiIdx = append(kanjiIdx, i)
			kanjiNames = append(kanjiNames, canonical[i])
		}
	}

	if len(kanjiNames) == 0 || translit == nil {
		return canonical
	}

	readings, err := translit.TransliterateBatch(ctx, kanjiNames)
	if err != nil {
		log.WithError(err).WithField("names", len(kanjiNames)).
			Warn("transliteration failed, keeping normalized forms")
		return canonical
	}

	if len(readings) < len(kanjiNames) {
		log.WithFields(logger.Fields{
			"requested": len(kanjiNames),
			"received":  len(readings),
		}).Warn("transliteration returned fewer readings than requested")
	}

	for pos, idx := range kanjiIdx {
		if pos >= len(readings) {
			break
		}
		reading := Normalize(readings[pos])
		if reading == "" {
			continue
		}
		canonical[idx] = reading
	}

	return canonical
}
