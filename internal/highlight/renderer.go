// Package highlight turns source files into highlighted HTML table rows and
// groups those rows into size bounded chunks.
package highlight

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"

	"github.com/sha1n/heline-indexer/internal/classify"
)

// ErrRenderFailed is returned when a source file cannot be highlighted.
var ErrRenderFailed = errors.New("render failed")

// Table markup emitted by ChromaRenderer.
const (
	TableClass = "highlight-table"
	NumClass   = "hl-num"
	CodeClass  = "hl-code"
)

// Renderer converts source text into HTML containing a highlight table with
// one row per source line.
type Renderer interface {
	Render(source, language string) (string, error)
}

// languageLexers maps language tags to chroma lexer names where the tag is
// not itself a chroma name or alias.
var languageLexers = map[string]string{
	"Shell":    "bash",
	"Gemfile":  "ruby",
	"Rakefile": "ruby",
	"Raw":      "plaintext",
	"edn":      "clojure",
	"C#":       "csharp",
	"C++":      "cpp",
}

// ChromaRenderer renders with chroma lexers. It is stateless and safe for
// concurrent use.
type ChromaRenderer struct{}

// NewChromaRenderer creates a ChromaRenderer.
func NewChromaRenderer() *ChromaRenderer {
	return &ChromaRenderer{}
}

// Render tokenises source with the lexer for language and writes a
// highlight table.
func (r *ChromaRenderer) Render(source, language string) (string, error) {
	lexer := chroma.Coalesce(lexerFor(language, source))

	it, err := lexer.Tokenise(nil, source)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrRenderFailed, language, err)
	}

	var b strings.Builder
	b.WriteString(`<table class="` + TableClass + `"><tbody>`)

	line := 1
	inRow := false
	openRow := func() {
		b.WriteString(`<tr><td class="` + NumClass + `" id="L`)
		b.WriteString(strconv.Itoa(line))
		b.WriteString(`"></td><td class="` + CodeClass + `">`)
		inRow = true
	}
	closeRow := func() {
		b.WriteString("</td></tr>")
		inRow = false
		line++
	}

	for tok := it(); tok != chroma.EOF; tok = it() {
		for part := range strings.SplitAfterSeq(tok.Value, "\n") {
			text := strings.TrimSuffix(part, "\n")
			if text != "" {
				if !inRow {
					openRow()
				}
				writeToken(&b, tok.Type, text)
			}
			if len(text) < len(part) {
				if !inRow {
					openRow()
				}
				closeRow()
			}
		}
	}
	if inRow {
		closeRow()
	}

	b.WriteString("</tbody></table>")
	return b.String(), nil
}

func writeToken(b *strings.Builder, t chroma.TokenType, text string) {
	class := tokenClass(t)
	if class == "" {
		b.WriteString(html.EscapeString(text))
		return
	}
	b.WriteString(`<span class="`)
	b.WriteString(class)
	b.WriteString(`">`)
	b.WriteString(html.EscapeString(text))
	b.WriteString("</span>")
}

func tokenClass(t chroma.TokenType) string {
	if class := chroma.StandardTypes[t]; class != "" {
		return class
	}
	if class := chroma.StandardTypes[t.SubCategory()]; class != "" {
		return class
	}
	return chroma.StandardTypes[t.Category()]
}

// lexerFor resolves the lexer of a language tag. Tags unknown to chroma fall
// back to the interpreter line of the source, then to plain text.
func lexerFor(language, source string) chroma.Lexer {
	name := language
	if alias, ok := languageLexers[language]; ok {
		name = alias
	}
	if lexer := lexers.Get(name); lexer != nil {
		return lexer
	}

	if sniffed, ok := classify.SniffInterpreter([]byte(source)); ok {
		if alias, ok := languageLexers[sniffed]; ok {
			sniffed = alias
		}
		if lexer := lexers.Get(sniffed); lexer != nil {
			return lexer
		}
	}
	return lexers.Fallback
}
