// Package preprocessor cleans converted text and splits it into bounded
// passages, the unit of embedding and storage. Splitting never re-orders
// content; passage order is document order.
package preprocessor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
)

// Split units supported by SplitBy.
const (
	SplitBySentence = "sentence"
	SplitByWord     = "word"
	SplitByPassage  = "passage"
	SplitByToken    = "token"
)

// Params configure the cleanup passes and the splitting policy. Every field
// can be overridden per request; zero-value fields of an override fall back
// to the configured defaults.
type Params struct {
	CleanWhitespace              bool
	CleanEmptyLines              bool
	CleanHeaderFooter            bool
	SplitBy                      string
	SplitLength                  int
	SplitOverlap                 int
	SplitRespectSentenceBoundary bool
}

// Preprocessor is the merge point of the converter branches: whichever
// converter produced a document feeds into it.
type Preprocessor struct {
	params    Params
	tokenizer *tiktoken.Tiktoken
}

// New creates a Preprocessor and validates the splitting policy.
func New(params Params) (*Preprocessor, error) {
	switch params.SplitBy {
	case SplitBySentence, SplitByWord, SplitByPassage, SplitByToken:
	default:
		return nil, fmt.Errorf("unsupported split_by %q", params.SplitBy)
	}
	if params.SplitLength <= 0 {
		return nil, fmt.Errorf("split_length must be positive, got %d", params.SplitLength)
	}
	if params.SplitOverlap < 0 || params.SplitOverlap >= params.SplitLength {
		return nil, fmt.Errorf("split_overlap %d must be non-negative and smaller than split_length %d",
			params.SplitOverlap, params.SplitLength)
	}

	p := &Preprocessor{params: params}
	if params.SplitBy == SplitByToken {
		tke, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("failed to get tiktoken encoding: %w", err)
		}
		p.tokenizer = tke
	}
	return p, nil
}

// Run replaces the converted documents in the payload with cleaned, bounded
// passages. Each passage carries a copy of its source metadata plus its
// position within the document.
func (pp *Preprocessor) Run(ctx context.Context, p *pipeline.Payload) (string, error) {
	var passages []*schema.Document
	for _, doc := range p.Docs {
		splitID := 0
		for _, text := range pp.split(pp.clean(doc.Text)) {
			meta := schema.CopyMetadata(doc.Metadata)
			meta[schema.MetaKeySplitID] = splitID
			passages = append(passages, &schema.Document{
				ID:       schema.ContentID(text),
				Text:     text,
				Metadata: meta,
			})
			splitID++
		}
	}
	if len(passages) == 0 {
		return "", nil
	}
	p.Docs = passages
	return pipeline.DefaultOutput, nil
}

var (
	emptyLinesRegex = regexp.MustCompile(`\n{3,}`)
	innerSpaceRegex = regexp.MustCompile(`[ \t]+`)
	sentenceRegex   = regexp.MustCompile(`(?m)(?U)[^.!?]+[.!?]`)
)

// clean applies the enabled cleanup passes. Header/footer detection runs
// first because it relies on the page breaks converters leave in the text.
func (pp *Preprocessor) clean(text string) string {
	if pp.params.CleanHeaderFooter {
		text = stripHeaderFooter(text)
	}
	// Page breaks have served their purpose by now.
	text = strings.ReplaceAll(text, "\f", "\n")

	if pp.params.CleanWhitespace {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(innerSpaceRegex.ReplaceAllString(line, " "))
		}
		text = strings.Join(lines, "\n")
	}
	if pp.params.CleanEmptyLines {
		text = emptyLinesRegex.ReplaceAllString(text, "\n\n")
	}
	return strings.TrimSpace(text)
}

// stripHeaderFooter removes lines repeated at the same page edge on every
// page, the typical running header or page footer. Up to three lines are
// checked at each edge. Single-page documents are left alone.
func stripHeaderFooter(text string) string {
	pages := strings.Split(text, "\f")
	if len(pages) < 2 {
		return text
	}

	pageLines := make([][]string, len(pages))
	for i, page := range pages {
		pageLines[i] = strings.Split(page, "\n")
	}

	for pass := 0; pass < 3; pass++ {
		if line, ok := commonEdgeLine(pageLines, true); ok && line != "" {
			for i := range pageLines {
				pageLines[i] = trimEdgeLine(pageLines[i], line, true)
			}
			continue
		}
		break
	}
	for pass := 0; pass < 3; pass++ {
		if line, ok := commonEdgeLine(pageLines, false); ok && line != "" {
			for i := range pageLines {
				pageLines[i] = trimEdgeLine(pageLines[i], line, false)
			}
			continue
		}
		break
	}

	joined := make([]string, len(pageLines))
	for i, lines := range pageLines {
		joined[i] = strings.Join(lines, "\n")
	}
	return strings.Join(joined, "\f")
}

// commonEdgeLine returns the first (or last) non-empty line when it is
// identical across all pages.
func commonEdgeLine(pageLines [][]string, head bool) (string, bool) {
	var common string
	for i, lines := range pageLines {
		line, ok := edgeLine(lines, head)
		if !ok {
			return "", false
		}
		if i == 0 {
			common = line
		} else if line != common {
			return "", false
		}
	}
	return common, true
}

func edgeLine(lines []string, head bool) (string, bool) {
	if head {
		for _, l := range lines {
			if strings.TrimSpace(l) != "" {
				return strings.TrimSpace(l), true
			}
		}
	} else {
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.TrimSpace(lines[i]) != "" {
				return strings.TrimSpace(lines[i]), true
			}
		}
	}
	return "", false
}

func trimEdgeLine(lines []string, target string, head bool) []string {
	if head {
		for i, l := range lines {
			if strings.TrimSpace(l) == "" {
				continue
			}
			if strings.TrimSpace(l) == target {
				return lines[i+1:]
			}
			break
		}
		return lines
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if strings.TrimSpace(lines[i]) == target {
			return lines[:i]
		}
		break
	}
	return lines
}

// split applies the configured splitting policy. Empty passages are never
// emitted.
func (pp *Preprocessor) split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	switch pp.params.SplitBy {
	case SplitBySentence:
		return window(splitSentences(text), pp.params.SplitLength, pp.params.SplitOverlap, " ")
	case SplitByWord:
		if pp.params.SplitRespectSentenceBoundary {
			return pp.splitWordsBySentence(text)
		}
		return window(strings.Fields(text), pp.params.SplitLength, pp.params.SplitOverlap, " ")
	case SplitByPassage:
		return window(splitParagraphs(text), pp.params.SplitLength, pp.params.SplitOverlap, "\n\n")
	case SplitByToken:
		return pp.splitTokens(text)
	}
	return nil
}

// splitSentences cuts text at sentence-ending punctuation. Any trailing text
// without terminal punctuation becomes a final sentence of its own.
func splitSentences(text string) []string {
	var sentences []string
	last := 0
	for _, loc := range sentenceRegex.FindAllStringIndex(text, -1) {
		sentences = append(sentences, strings.TrimSpace(text[loc[0]:loc[1]]))
		last = loc[1]
	}
	if rest := strings.TrimSpace(text[last:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs = append(paragraphs, strings.TrimSpace(p))
		}
	}
	return paragraphs
}

// window groups units into passages of at most length units, advancing by
// length-overlap each step.
func window(units []string, length, overlap int, sep string) []string {
	if len(units) == 0 {
		return nil
	}
	step := length - overlap
	var out []string
	for start := 0; start < len(units); start += step {
		end := start + length
		if end > len(units) {
			end = len(units)
		}
		out = append(out, strings.Join(units[start:end], sep))
		if end == len(units) {
			break
		}
	}
	return out
}

// splitWordsBySentence packs whole sentences into passages of roughly
// SplitLength words. A sentence longer than the limit becomes a passage of
// its own rather than being cut. Overlap carries trailing sentences of the
// previous passage into the next, up to SplitOverlap words.
func (pp *Preprocessor) splitWordsBySentence(text string) []string {
	sentences := splitSentences(text)
	var (
		out     []string
		current []string
		words   int
	)
	flush := func() {
		if len(current) == 0 {
			return
		}
		out = append(out, strings.Join(current, " "))
		if pp.params.SplitOverlap > 0 {
			carried, carriedWords := overlapTail(current, pp.params.SplitOverlap)
			current, words = carried, carriedWords
		} else {
			current, words = nil, 0
		}
	}
	for _, sentence := range sentences {
		n := len(strings.Fields(sentence))
		if words+n > pp.params.SplitLength && len(current) > 0 {
			flush()
		}
		current = append(current, sentence)
		words += n
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}

// overlapTail returns the trailing sentences totalling at most maxWords.
func overlapTail(sentences []string, maxWords int) ([]string, int) {
	var tail []string
	words := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		n := len(strings.Fields(sentences[i]))
		if words+n > maxWords {
			break
		}
		tail = append([]string{sentences[i]}, tail...)
		words += n
	}
	return tail, words
}

// splitTokens windows over cl100k_base tokens and decodes each window back
// to text.
func (pp *Preprocessor) splitTokens(text string) []string {
	tokens := pp.tokenizer.Encode(text, nil, nil)
	step := pp.params.SplitLength - pp.params.SplitOverlap
	var out []string
	for start := 0; start < len(tokens); start += step {
		end := start + pp.params.SplitLength
		if end > len(tokens) {
			end = len(tokens)
		}
		out = append(out, pp.tokenizer.Decode(tokens[start:end]))
		if end == len(tokens) {
			break
		}
	}
	return out
}

var _ pipeline.Node = (*Preprocessor)(nil)
