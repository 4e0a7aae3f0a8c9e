package chunking

import (
	"regexp"
	"strings"
)

const (
	markerWeight        = 3
	questionMarkBonus   = 1
	minQuestionMarks    = 3
	minQuestionHeadings = 2
	minQAPairs          = 2
	structuredThreshold = 3
)

var (
	// each marker counts once, however often it occurs
	structuralMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bFAQs?\b`),
		regexp.MustCompile(`(?i)frequently\s+asked\s+questions`),
		regexp.MustCompile(`(?im)^[ \t]*Q[ \t]*\d*[ \t]*[:.]`),
		regexp.MustCompile(`(?im)^[ \t]*Question[ \t]*\d*[ \t]*[:.]`),
		regexp.MustCompile(`(?im)^[ \t]*A[ \t]*\d*[ \t]*[:.]`),
		regexp.MustCompile(`(?im)^[ \t]*Answer[ \t]*\d*[ \t]*[:.]`),
	}

	headingLine         = regexp.MustCompile(`^[ \t]{0,3}#{1,6}[ \t]+\S`)
	questionHeadingLine = regexp.MustCompile(`^[ \t]{0,3}#{1,6}[ \t]+.*\?[ \t]*$`)
)

type Classification struct {
	Score      int
	Structured bool
}

// Classify scores text for question-and-answer structure.
func Classify(text string) Classification {
	score := 0
	for _, marker := range structuralMarkers {
		if marker.MatchString(text) {
			score += markerWeight
		}
	}

	questionHeadings, qaPairs := countQuestionHeadings(text)
	if questionHeadings >= minQuestionHeadings {
		score += questionHeadings
	}
	if strings.Count(text, "?") >= minQuestionMarks {
		score += questionMarkBonus
	}
	if qaPairs >= minQAPairs {
		score += 2 * qaPairs
	}

	return Classification{Score: score, Structured: score >= structuredThreshold}
}

// countQuestionHeadings returns the number of headings ending in "?" and how many
// of them are followed by a non-heading paragraph.
func countQuestionHeadings(text string) (headings int, pairs int) {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if !questionHeadingLine.MatchString(line) {
			continue
		}
		headings++
		for _, next := range lines[i+1:] {
			if strings.TrimSpace(next) == "" {
				continue
			}
			if !headingLine.MatchString(next) {
				pairs++
			}
			break
		}
	}
	return headings, pairs
}

func isHeading(line string) bool {
	return headingLine.MatchString(line)
}
