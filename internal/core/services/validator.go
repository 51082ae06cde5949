package services

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`[\s\x00-\x1f\x7f]+`)
)

// QueryValidator performs structural and content validation of raw queries.
type QueryValidator struct {
	blocklist []string
}

// NewQueryValidator creates a validator using the admin blocklist terms.
func NewQueryValidator(blocklist []string) *QueryValidator {
	return &QueryValidator{blocklist: blocklist}
}

// Validate checks raw and returns its sanitized and normalized forms.
// Rejections are *domain.RejectionError values.
func (v *QueryValidator) Validate(raw string) (domain.ValidQuery, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "empty")
	}
	if !utf8.ValidString(trimmed) {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "encoding")
	}

	runes := utf8.RuneCountInString(trimmed)
	if runes < domain.MinQueryRunes {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "too short")
	}
	if runes > domain.MaxQueryRunes {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "too long")
	}
	if len(trimmed) > domain.MaxQueryBytes {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "too many bytes")
	}

	if rule, ok := DetectSQLInjection(trimmed); ok {
		logger.Debug("Query rejected: sql injection (%s)", rule)
		return domain.ValidQuery{}, reject(domain.RejectSQLInjection, rule)
	}
	if rule, ok := DetectSpam(trimmed, v.blocklist); ok {
		logger.Debug("Query rejected: spam (%s)", rule)
		return domain.ValidQuery{}, reject(domain.RejectSpam, rule)
	}

	sanitized := SanitizeQuery(trimmed)
	if utf8.RuneCountInString(sanitized) < domain.MinQueryRunes {
		return domain.ValidQuery{}, reject(domain.RejectInvalid, "empty after sanitizing")
	}
	return domain.ValidQuery{
		Raw:        raw,
		Sanitized:  sanitized,
		Normalized: domain.NormalizeQuery(sanitized),
	}, nil
}

// SanitizeQuery strips tags and control characters for storage.
func SanitizeQuery(q string) string {
	q = tagPattern.ReplaceAllString(q, "")
	q = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, q)
	return strings.Join(strings.Fields(q), " ")
}

// DetectSQLInjection reports whether q looks like an injection attempt and
// which rule family matched.
func DetectSQLInjection(q string) (string, bool) {
	if countAny(q, sqlSpecialChars) > maxSQLSpecialChars {
		return "special characters", true
	}

	normalized := normalizeForSQLCheck(q)

	families := []struct {
		name     string
		patterns []*regexp.Regexp
	}{
		{"keyword", sqlKeywordPatterns},
		{"function", sqlFunctionPatterns},
		{"vendor", sqlVendorPatterns},
		{"boolean", sqlBooleanPatterns},
		{"terminator", sqlTerminatorPatterns},
	}
	for _, family := range families {
		for _, p := range family.patterns {
			if p.MatchString(normalized) {
				return family.name, true
			}
		}
	}
	return "", false
}

// normalizeForSQLCheck lowercases, URL-decodes, strips comments and
// collapses whitespace and control characters.
func normalizeForSQLCheck(q string) string {
	s := strings.ToLower(q)
	// Two passes catch double encoding.
	for i := 0; i < 2; i++ {
		decoded, err := url.QueryUnescape(s)
		if err != nil || decoded == s {
			break
		}
		s = decoded
	}
	s = sqlCommentPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// DetectSpam runs the ordered spam checks; the first match wins.
func DetectSpam(q string, blocklist []string) (string, bool) {
	for _, p := range urlPatterns {
		if p.MatchString(q) {
			return "url", true
		}
	}
	if emailPattern.MatchString(q) {
		return "email", true
	}
	if phoneDigits.MatchString(phoneSeparators.ReplaceAllString(q, "")) {
		return "phone number", true
	}
	if hasRepeatedRunes(q, maxRepeatedChars) {
		return "repeated characters", true
	}
	if hasRepeatedWords(q, maxRepeatedWords) {
		return "repeated words", true
	}
	if spamPhrasePattern.MatchString(q) {
		return "spam phrase", true
	}
	upper := strings.ToUpper(q)
	for _, name := range cgiVariables {
		if strings.Contains(upper, name) {
			return "server variable", true
		}
	}
	if isGibberish(q) {
		return "gibberish", true
	}
	lower := strings.ToLower(q)
	for _, term := range blocklist {
		if term != "" && strings.Contains(lower, strings.ToLower(term)) {
			return "blocklist", true
		}
	}
	return "", false
}

// hasRepeatedRunes reports whether any rune repeats n or more times in a row.
func hasRepeatedRunes(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		if run > 0 && r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// hasRepeatedWords reports whether any word repeats n or more times consecutively.
func hasRepeatedWords(s string, n int) bool {
	words := strings.Fields(strings.ToLower(s))
	run := 0
	for i, w := range words {
		if i > 0 && w == words[i-1] {
			run++
		} else {
			run = 1
		}
		if run >= n {
			return true
		}
	}
	return false
}

// isGibberish reports whether fewer than half of the non-space characters are
// letters or digits, for inputs longer than gibberishMinRunes.
func isGibberish(s string) bool {
	if utf8.RuneCountInString(s) <= gibberishMinRunes {
		return false
	}
	var alnum, total int
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			alnum++
		}
	}
	if total == 0 {
		return true
	}
	return float64(alnum)/float64(total) < gibberishMinAlnumRatio
}

func countAny(s, chars string) int {
	n := 0
	for _, r := range s {
		if strings.ContainsRune(chars, r) {
			n++
		}
	}
	return n
}

func reject(reason domain.RejectionReason, detail string) error {
	return &domain.RejectionError{Reason: reason, Detail: detail}
}
