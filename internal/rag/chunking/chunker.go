package chunking

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/domain/commonModels"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	StrategyStructured = "structured"
	StrategyProse      = "prose"
)

// paragraph -> line -> sentence -> word -> character
var proseSeparators = []string{"\n\n", "\n", ". ", " ", ""}

var paragraphBreak = regexp.MustCompile(`\n[ \t]*\n`)

type Chunker struct {
	chunkSize int
	overlap   int
	budget    int
	prose     textsplitter.TextSplitter
	oversized textsplitter.TextSplitter
}

// New builds a chunker whose structured sections may grow to faqFactor times
// the chunk size before they are split.
func New(chunkSize, overlap, faqFactor int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = config.DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = 0
	}
	if faqFactor < 1 {
		faqFactor = config.DefaultFAQChunkFactor
	}
	budget := faqFactor * chunkSize
	return &Chunker{
		chunkSize: chunkSize,
		overlap:   overlap,
		budget:    budget,
		prose:     newRecursive(chunkSize, overlap),
		oversized: newRecursive(budget, overlap),
	}
}

func newRecursive(size, overlap int) textsplitter.RecursiveCharacter {
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(proseSeparators),
	)
}

// Split classifies the joined text of all units once, then chunks each unit with
// the chosen strategy. Chunk indexes run across the whole document.
func (c *Chunker) Split(units []commonModels.Unit) ([]commonModels.Chunk, Classification, error) {
	texts := make([]string, 0, len(units))
	for _, u := range units {
		texts = append(texts, u.Text)
	}
	class := Classify(strings.Join(texts, "\n\n"))

	strategy := StrategyProse
	if class.Structured {
		strategy = StrategyStructured
	}

	var chunks []commonModels.Chunk
	for _, unit := range units {
		var pieces []string
		var err error
		if class.Structured {
			pieces, err = c.splitStructured(unit.Text)
		} else {
			pieces, err = c.splitProse(unit.Text)
		}
		if err != nil {
			return nil, class, err
		}

		for _, piece := range pieces {
			metadata := commonModels.CopyMetadata(unit.Metadata)
			metadata["chunk_index"] = len(chunks)
			metadata["chunking_strategy"] = strategy
			chunks = append(chunks, commonModels.Chunk{
				Text:     piece,
				Metadata: metadata,
				Index:    len(chunks),
			})
		}
	}
	return chunks, class, nil
}

func (c *Chunker) splitProse(text string) ([]string, error) {
	pieces, err := c.prose.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("prose split: %w", err)
	}
	return nonBlank(pieces), nil
}

// splitStructured keeps every heading section whole while it fits the inflated
// budget; larger sections are packed by paragraph with the heading repeated.
func (c *Chunker) splitStructured(text string) ([]string, error) {
	var out []string
	for _, section := range splitSections(text) {
		section = strings.TrimSpace(section)
		if countNonEmptyLines(section) < 2 {
			continue
		}
		if runeLen(section) <= c.budget {
			out = append(out, section)
			continue
		}

		packed, err := c.packParagraphs(section)
		if err != nil {
			return nil, err
		}
		out = append(out, packed...)
	}
	return out, nil
}

func (c *Chunker) packParagraphs(section string) ([]string, error) {
	heading := ""
	if first, _, _ := strings.Cut(section, "\n"); isHeading(first) {
		heading = strings.TrimSpace(first)
	}

	var out []string
	current := ""
	// a heading alone carries no content; the next sub-chunk repeats it
	flush := func() {
		if current != "" && current != heading {
			out = append(out, withHeading(current, heading))
		}
		current = ""
	}

	for _, paragraph := range paragraphBreak.Split(section, -1) {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}

		if runeLen(paragraph) > c.budget {
			flush()
			pieces, err := c.oversized.SplitText(paragraph)
			if err != nil {
				return nil, fmt.Errorf("structured split: %w", err)
			}
			for _, piece := range nonBlank(pieces) {
				if strings.TrimSpace(piece) == heading {
					continue
				}
				out = append(out, withHeading(piece, heading))
			}
			continue
		}

		candidate := paragraph
		if current != "" {
			candidate = current + "\n\n" + paragraph
		}
		if runeLen(candidate) <= c.budget {
			current = candidate
			continue
		}
		flush()
		current = paragraph
	}
	flush()
	return out, nil
}

func splitSections(text string) []string {
	var sections []string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if isHeading(line) && len(current) > 0 {
			sections = append(sections, strings.Join(current, "\n"))
			current = nil
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}
	return sections
}

func withHeading(chunk, heading string) string {
	if heading == "" {
		return chunk
	}
	first, _, _ := strings.Cut(chunk, "\n")
	if isHeading(first) {
		return chunk
	}
	return heading + "\n\n" + chunk
}

func countNonEmptyLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func nonBlank(pieces []string) []string {
	out := pieces[:0]
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
