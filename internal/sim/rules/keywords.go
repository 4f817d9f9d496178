package rules

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

// Keywords with special meaning in rule lines.
const (
	KeywordLocked     = "locked"
	KeywordFrozen     = "frozen"
	KeywordAutoRefill = "autorefill"
	KeywordNothing    = "nothing"

	keywordAutoReplace = "autoreplace"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for a
// "did you mean" hint.
const suggestThreshold = 0.85

var (
	bareIDPattern  = regexp.MustCompile(`^[0-9-]*$`)
	hasUpperRegexp = regexp.MustCompile(`^\w*[A-Z]\w*$`)
)

// Variants lists the spellings tried when a keyword is not in the tree:
// plurals stripped, "en" dropped, wood/gold expanded, and camel-cased
// words rotated at each capital.
func Variants(keyword string) []string {
	var out []string
	if strings.HasSuffix(keyword, "es") {
		out = append(out, keyword[:len(keyword)-2])
	}
	if strings.HasSuffix(keyword, "s") {
		out = append(out, keyword[:len(keyword)-1])
	}
	if strings.Contains(keyword, "en") {
		out = append(out, strings.ReplaceAll(keyword, "en", ""))
	} else {
		if strings.Contains(keyword, "wood") {
			out = append(out, strings.ReplaceAll(keyword, "wood", "wooden"))
		}
		if strings.Contains(keyword, "gold") {
			out = append(out, strings.ReplaceAll(keyword, "gold", "golden"))
		}
	}
	if hasUpperRegexp.MatchString(keyword) {
		for i := 0; i < len(keyword); i++ {
			if keyword[i] < 'A' || keyword[i] > 'Z' {
				continue
			}
			swapped := strings.ToLower(keyword[i:] + keyword[:i])
			out = append(out, swapped)
			out = append(out, Variants(swapped)...)
		}
	}
	return out
}

// resolveKeyword returns the keyword to use for a rule, or ok=false when
// neither the keyword, a bare item id, nor any variant is known.
func resolveKeyword(tree Tree, keyword string) (string, bool) {
	if tree.IsKeywordValid(keyword) || bareIDPattern.MatchString(keyword) {
		return keyword, true
	}
	for _, v := range Variants(keyword) {
		v = strings.ToLower(v)
		if tree.IsKeywordValid(v) {
			return v, true
		}
	}
	return keyword, false
}

// Suggest returns the known keyword closest to keyword, or "" when nothing
// is similar enough.
func Suggest(tree Tree, keyword string) string {
	best, bestScore := "", 0.0
	for _, candidate := range tree.Keywords() {
		score := matchr.JaroWinkler(keyword, candidate, false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore < suggestThreshold {
		return ""
	}
	return best
}
