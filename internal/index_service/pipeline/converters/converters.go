// Package converters turns one file-type-specific blob into normalized plain
// text. Exactly one converter runs per file, selected by the classifier's
// output channel.
package converters

import (
	"fmt"
	"strings"
	"unicode"

	"docindex/internal/index_service/pipeline"
	"docindex/internal/index_service/pipeline/schema"
	"docindex/pkg/logger"
)

// Params are the converter settings shared by all branches. Requests may
// override them per call; absent overrides fall back to pipeline defaults.
type Params struct {
	// RemoveNumericTables drops lines that look like numeric table rows:
	// mostly digits and not ending in a period.
	RemoveNumericTables bool

	// ValidLanguages lists the languages the text is expected to be in.
	// The check is best-effort; a mismatch logs a warning and never fails
	// the file.
	ValidLanguages []string
}

// base carries the shared converter behavior: normalizing extracted text and
// wrapping it in a single Document inheriting the file's metadata.
type base struct {
	params Params
	log    *logger.Logger
}

// document builds the pipeline Document for a converted file.
func (b *base) document(p *pipeline.Payload, text string) *schema.Document {
	if b.params.RemoveNumericTables {
		text = removeNumericTableLines(text)
	}
	if !matchesValidLanguages(text, b.params.ValidLanguages) {
		b.log.Warn(fmt.Sprintf("File %s does not appear to be in the configured languages %v", p.FilePath, b.params.ValidLanguages))
	}
	return &schema.Document{
		ID:       schema.ContentID(text),
		Text:     text,
		Metadata: schema.CopyMetadata(p.Meta),
	}
}

// removeNumericTableLines drops lines whose words are more than 40% numeric,
// unless the line reads like prose and ends with a period.
func removeNumericTableLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		words := strings.Fields(line)
		if len(words) == 0 {
			kept = append(kept, line)
			continue
		}
		digits := 0
		for _, w := range words {
			if isNumericWord(w) {
				digits++
			}
		}
		if float64(digits)/float64(len(words)) > 0.4 && !strings.HasSuffix(strings.TrimSpace(line), ".") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func isNumericWord(word string) bool {
	hasDigit := false
	for _, r := range word {
		switch {
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLetter(r):
			return false
		}
	}
	return hasDigit
}

// matchesValidLanguages is a cheap script-level check: for latin-script
// languages the bulk of the letters must be latin. The exact language
// identification is out of scope, this only catches gross mismatches.
func matchesValidLanguages(text string, languages []string) bool {
	if len(languages) == 0 {
		return true
	}
	letters, latin := 0, 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		letters++
		if r < 0x250 {
			latin++
		}
		if letters >= 4096 {
			break
		}
	}
	if letters == 0 {
		return true
	}
	return float64(latin)/float64(letters) >= 0.5
}
