package lsp

import (
	"context"
	"sort"
	"strings"

	"go.lsp.dev/protocol"
)

// WordCompleter completes the identifier before the cursor from the words
// already present in the document and a fixed keyword list.
type WordCompleter struct {
	Keywords []string
	// MinPrefix is the number of characters typed before words are
	// offered. Zero offers completions for an empty prefix too.
	MinPrefix int
}

var _ CompletionProvider = (*WordCompleter)(nil)

func (c *WordCompleter) Complete(ctx context.Context, doc *Document, pos protocol.Position) ([]protocol.CompletionItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := doc.PrefixAt(pos)
	if len([]rune(prefix)) < c.MinPrefix {
		return []protocol.CompletionItem{}, nil
	}

	seen := map[string]bool{prefix: true}
	var items []protocol.CompletionItem
	for _, kw := range c.Keywords {
		if strings.HasPrefix(kw, prefix) && !seen[kw] {
			seen[kw] = true
			items = append(items, protocol.CompletionItem{
				Label: kw,
				Kind:  protocol.CompletionItemKindKeyword,
			})
		}
	}

	var words []string
	for _, word := range strings.FieldsFunc(doc.Text, func(r rune) bool { return !isWordRune(r) }) {
		if strings.HasPrefix(word, prefix) && !seen[word] {
			seen[word] = true
			words = append(words, word)
		}
	}
	sort.Strings(words)
	for _, word := range words {
		items = append(items, protocol.CompletionItem{
			Label: word,
			Kind:  protocol.CompletionItemKindText,
		})
	}

	if items == nil {
		items = []protocol.CompletionItem{}
	}
	return items, nil
}
