package normalize

import (
	"regexp"
	"strings"
)

// Pass is a single named text transformation.
type Pass struct {
	Name  string
	Apply func(string) string
}

var (
	inlineCodeRe  = regexp.MustCompile("`[^`\n]+`")
	linkRe        = regexp.MustCompile(`!?\[([^\]\n]*)\]\([^)\n]*\)`)
	imageRe       = regexp.MustCompile(`!\[[^\]\n]*\]\([^)\n]*\)`)
	headingRe     = regexp.MustCompile(`(?m)^[ \t]{0,3}(?:#{1,6}(?:[ \t]+|$))+`)
	boldStarRe    = regexp.MustCompile(`\*\*([^*\n]+?)\*\*`)
	boldUnderRe   = regexp.MustCompile(`\b__([^_\n]+?)__\b`)
	italStarRe    = regexp.MustCompile(`\*([^*\s](?:[^*\n]*[^*\s])?)\*`)
	italUnderRe   = regexp.MustCompile(`\b_([^_\s](?:[^_\n]*[^_\s])?)_\b`)
	ruleRe        = regexp.MustCompile(`(?m)^[ \t]*(?:(?:-[ \t]*){3,}|(?:\*[ \t]*){3,}|(?:_[ \t]*){3,})$`)
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	htmlTagRe     = regexp.MustCompile(`</?[A-Za-z][A-Za-z0-9-]*(?:\s[^<>]*)?/?>`)
	bulletRe      = regexp.MustCompile(`(?m)^[ \t]*[*+-][ \t]+`)
	trailingWSRe  = regexp.MustCompile(`(?m)[ \t]+$`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// StripCode removes fenced code blocks and inline code spans.
//
// A fence opens on a line that starts with three or more backticks or
// tildes and closes on a later line holding only the same character, at
// least as many times. The whole block becomes one empty line. A fence
// marker that is never closed, or that appears mid-line, is kept as text.
func StripCode(s string) string {
	return inlineCodeRe.ReplaceAllString(stripFences(s), "")
}

func stripFences(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for i := 0; i < len(lines); i++ {
		marker := fenceOpener(lines[i])
		if marker == "" {
			out = append(out, lines[i])
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if isFenceCloser(lines[j], marker) {
				end = j
				break
			}
		}
		if end < 0 {
			out = append(out, lines[i])
			continue
		}
		out = append(out, "")
		i = end
	}
	return strings.Join(out, "\n")
}

// fenceOpener returns the fence marker that line opens, or "".
func fenceOpener(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if len(line)-len(trimmed) > 3 || trimmed == "" {
		return ""
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return ""
	}
	// A backtick info string cannot itself hold backticks.
	if c == '`' && strings.IndexByte(trimmed[n:], '`') >= 0 {
		return ""
	}
	return trimmed[:n]
}

func isFenceCloser(line, marker string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) < len(marker) {
		return false
	}
	for i := 0; i < len(trimmed); i++ {
		if trimmed[i] != marker[0] {
			return false
		}
	}
	return true
}

// UnwrapLinks replaces [label](target) with label. Images are left for
// StripImages.
func UnwrapLinks(s string) string {
	return linkRe.ReplaceAllStringFunc(s, func(m string) string {
		if strings.HasPrefix(m, "!") {
			return m
		}
		return linkRe.FindStringSubmatch(m)[1]
	})
}

// StripImages removes image syntax including the alt text.
func StripImages(s string) string {
	return imageRe.ReplaceAllString(s, "")
}

// StripHeadings removes leading heading markers, keeping the heading text.
func StripHeadings(s string) string {
	return headingRe.ReplaceAllString(s, "")
}

// StripEmphasis removes bold and italic markers, keeping the enclosed text.
// Nested markers are removed until none remain. Underscores inside words are
// not emphasis and are kept.
func StripEmphasis(s string) string {
	for {
		next := stripEmphasisOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func stripEmphasisOnce(s string) string {
	s = boldStarRe.ReplaceAllString(s, "$1")
	s = boldUnderRe.ReplaceAllString(s, "$1")
	s = italStarRe.ReplaceAllString(s, "$1")
	return italUnderRe.ReplaceAllString(s, "$1")
}

// StripRules removes horizontal-rule lines.
func StripRules(s string) string {
	return ruleRe.ReplaceAllString(s, "")
}

// StripHTML removes HTML comments and tags.
func StripHTML(s string) string {
	s = htmlCommentRe.ReplaceAllString(s, "")
	return htmlTagRe.ReplaceAllString(s, "")
}

// NormalizeBullets rewrites *, - and + list markers to "- ".
func NormalizeBullets(s string) string {
	return bulletRe.ReplaceAllString(s, "- ")
}

// CollapseBlankLines strips trailing whitespace from every line and reduces
// runs of blank lines to a single blank line.
func CollapseBlankLines(s string) string {
	s = trailingWSRe.ReplaceAllString(s, "")
	return blankRunRe.ReplaceAllString(s, "\n\n")
}

// TrimDocument trims leading and trailing whitespace of the whole document.
func TrimDocument(s string) string {
	return strings.TrimSpace(s)
}

// Passes returns the normalization passes in application order. Later passes
// assume the artifacts of earlier ones are already gone.
func Passes() []Pass {
	return []Pass{
		{Name: "code", Apply: StripCode},
		{Name: "links", Apply: UnwrapLinks},
		{Name: "images", Apply: StripImages},
		{Name: "headings", Apply: StripHeadings},
		{Name: "emphasis", Apply: StripEmphasis},
		{Name: "rules", Apply: StripRules},
		{Name: "html", Apply: StripHTML},
		{Name: "bullets", Apply: NormalizeBullets},
		{Name: "blank-lines", Apply: CollapseBlankLines},
		{Name: "trim", Apply: TrimDocument},
	}
}

var defaultPasses = Passes()

// Once applies every pass a single time, in order.
func Once(s string) string {
	for _, p := range defaultPasses {
		s = p.Apply(s)
	}
	return s
}

// Normalize converts Markdown/HTML-bearing text into clean prose.
// It repeats the pass sequence until the text stops changing, which makes
// Normalize idempotent: Normalize(Normalize(x)) == Normalize(x).
//
// The loop always ends: every pass either shortens the text or, for list
// markers, rewrites them to the canonical "- " form, which no pass undoes.
func Normalize(markdown string) string {
	s := markdown
	for {
		next := Once(s)
		if next == s {
			return s
		}
		s = next
	}
}
