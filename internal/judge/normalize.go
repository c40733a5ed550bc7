package judge

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// NormalizeScore applies the score normalization law of spec.md §4.3/§8:
// accept an int, float, or numeric string; values ≤1.0 are treated as a
// 0-1 ratio and multiplied by 100; the result is clamped to [1,100]; an
// unparsable value normalizes to 1.
func NormalizeScore(raw any) int {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 1
	case float64:
		f = v
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 1
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 1
		}
		f = parsed
	default:
		return 1
	}

	if f <= 1.0 {
		f *= 100
	}
	return clamp(int(math.Round(f)), 1, 100)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// bestAnswerVocabulary maps the permissive input vocabulary spec.md §4.3
// names onto the closed {A,B,AB} set. Matching is case-insensitive against
// the normalized (trimmed, punctuation-stripped) input.
var bestAnswerVocabulary = map[string]BestAnswer{
	"a":          BestAnswerA,
	"answera":    BestAnswerA,
	"answer a":   BestAnswerA,
	"responsea":  BestAnswerA,
	"response a": BestAnswerA,

	"b":          BestAnswerB,
	"answerb":    BestAnswerB,
	"answer b":   BestAnswerB,
	"responseb":  BestAnswerB,
	"response b": BestAnswerB,

	"ab":       BestAnswerAB,
	"a and b":  BestAnswerAB,
	"tie":      BestAnswerAB,
	"equal":    BestAnswerAB,
	"identical": BestAnswerAB,
	"both":     BestAnswerAB,
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)

// NormalizeBestAnswer maps raw into {A,B,AB}, or BestAnswerNone if it
// cannot be recognized (spec.md §4.3, §8 "best-answer domain").
func NormalizeBestAnswer(raw string) BestAnswer {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.ReplaceAll(key, "_", " ")
	key = nonAlnum.ReplaceAllString(key, "")
	key = strings.Join(strings.Fields(key), " ")
	if v, ok := bestAnswerVocabulary[key]; ok {
		return v
	}
	return BestAnswerNone
}

// reasonFieldNames are checked case-insensitively, in order, when
// extracting the free-text reason from a parsed JSON object.
var reasonFieldNames = []string{"reason", "response", "explanation"}

// reasonRepairCascade is a sequence of increasingly lenient regexes tried,
// in order, against a raw response body that failed to parse as JSON, to
// recover a plausible reason string (spec.md §4.3).
var reasonRepairCascade = []*regexp.Regexp{
	regexp.MustCompile(`(?is)"reason"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	regexp.MustCompile(`(?is)"response"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	regexp.MustCompile(`(?is)"explanation"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	regexp.MustCompile(`(?is)reason\s*[:=]\s*"([^"]*)"`),
	regexp.MustCompile(`(?is)reason\s*[:=]\s*(.+)$`),
}

// ExtractReason pulls a reason string out of a parsed JSON object via
// case-insensitive lookup over reasonFieldNames.
func ExtractReason(obj map[string]any) (string, bool) {
	lower := make(map[string]any, len(obj))
	for k, v := range obj {
		lower[strings.ToLower(k)] = v
	}
	for _, name := range reasonFieldNames {
		if v, ok := lower[name]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// RepairTruncatedJSON attempts to balance an unterminated JSON object by
// closing any open string, then appending closers for any unmatched
// brackets/braces, tracking string interiors and escapes so structural
// characters inside string literals are never counted.
func RepairTruncatedJSON(raw string) string {
	var stack []byte
	inString := false
	escaped := false

	for _, r := range raw {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, byte(r))
		case '}':
			if len(stack) > 0 && stack[len(stack)-1] == '{' {
				stack = stack[:len(stack)-1]
			}
		case ']':
			if len(stack) > 0 && stack[len(stack)-1] == '[' {
				stack = stack[:len(stack)-1]
			}
		}
	}

	var b strings.Builder
	b.WriteString(raw)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// ExtractReasonFromRaw tries the full fallback chain spec.md §4.3
// describes: parse as JSON and look up reasonFieldNames; on failure,
// repair truncation and retry; on failure, fall through the regex
// cascade. Returns "" if every strategy fails.
func ExtractReasonFromRaw(raw string) string {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err == nil {
		if reason, ok := ExtractReason(obj); ok {
			return reason
		}
	}

	repaired := RepairTruncatedJSON(raw)
	if repaired != raw {
		if err := json.Unmarshal([]byte(repaired), &obj); err == nil {
			if reason, ok := ExtractReason(obj); ok {
				return reason
			}
		}
	}

	for _, re := range reasonRepairCascade {
		if m := re.FindStringSubmatch(raw); len(m) > 1 {
			candidate := strings.TrimSpace(m[1])
			if candidate != "" {
				return candidate
			}
		}
	}
	return ""
}
