package lsp

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
)

// Document is an immutable snapshot of an open text document. Positions
// use LSP conventions: 0-based lines and UTF-16 code unit characters.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int32
	Text       string

	// lineStarts holds the byte offset of the start of every line.
	lineStarts []int
}

// NewDocument creates a snapshot of text. Most callers get documents from a
// DocumentStore instead.
func NewDocument(u protocol.DocumentURI, languageID string, version int32, text string) *Document {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &Document{
		URI:        u,
		LanguageID: languageID,
		Version:    version,
		Text:       text,
		lineStarts: starts,
	}
}

// Filename returns the local path for file URIs and the raw URI otherwise.
func (d *Document) Filename() string {
	u := uri.URI(d.URI)
	if strings.HasPrefix(string(u), "file://") {
		return u.Filename()
	}
	return string(u)
}

// LineCount returns the number of lines. A trailing newline starts an
// empty final line.
func (d *Document) LineCount() int {
	return len(d.lineStarts)
}

// Line returns line n (0-based) without its terminator.
func (d *Document) Line(n int) string {
	if n < 0 || n >= len(d.lineStarts) {
		return ""
	}
	start, end := d.lineBounds(n)
	return d.Text[start:end]
}

// lineBounds returns the byte range of line n excluding \n and \r\n.
func (d *Document) lineBounds(n int) (int, int) {
	start := d.lineStarts[n]
	end := len(d.Text)
	if n+1 < len(d.lineStarts) {
		end = d.lineStarts[n+1] - 1
	}
	if end > start && d.Text[end-1] == '\r' {
		end--
	}
	return start, end
}

// Offset converts pos to a byte offset. A character past the end of the
// line is clamped to the line end.
func (d *Document) Offset(pos protocol.Position) (int, error) {
	line := int(pos.Line)
	if line >= len(d.lineStarts) {
		if line == len(d.lineStarts) && pos.Character == 0 {
			return len(d.Text), nil
		}
		return 0, fmt.Errorf("position %d:%d is beyond the last line (%d lines)", pos.Line, pos.Character, len(d.lineStarts))
	}

	start, end := d.lineBounds(line)
	want := int(pos.Character)
	units := 0
	offset := start
	for offset < end && units < want {
		r, size := utf8.DecodeRuneInString(d.Text[offset:end])
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > want {
			// Inside a surrogate pair: stay before the rune.
			break
		}
		units += n
		offset += size
	}
	return offset, nil
}

// PositionAt converts a byte offset to a position. Offsets are clamped to
// the document.
func (d *Document) PositionAt(offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(d.Text) {
		offset = len(d.Text)
	}
	line := sort.Search(len(d.lineStarts), func(i int) bool { return d.lineStarts[i] > offset }) - 1
	return protocol.Position{
		Line:      uint32(line),
		Character: uint32(utf16Len(d.Text[d.lineStarts[line]:offset])),
	}
}

// LinePosition converts a byte column within line (both 0-based) to a
// position. Columns past the end of the line are clamped.
func (d *Document) LinePosition(line, byteColumn int) protocol.Position {
	if line < 0 {
		return protocol.Position{}
	}
	if line >= len(d.lineStarts) {
		return d.PositionAt(len(d.Text))
	}
	start, end := d.lineBounds(line)
	offset := start + byteColumn
	if offset > end {
		offset = end
	}
	return d.PositionAt(offset)
}

// WordAt returns the identifier touching pos and its range. The word is
// empty when pos is not on an identifier.
func (d *Document) WordAt(pos protocol.Position) (string, protocol.Range) {
	offset, err := d.Offset(pos)
	if err != nil {
		return "", protocol.Range{Start: pos, End: pos}
	}
	line := int(pos.Line)
	if line >= len(d.lineStarts) {
		return "", protocol.Range{Start: pos, End: pos}
	}
	lineStart, lineEnd := d.lineBounds(line)

	start := offset
	for start > lineStart {
		r, size := utf8.DecodeLastRuneInString(d.Text[lineStart:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	end := offset
	for end < lineEnd {
		r, size := utf8.DecodeRuneInString(d.Text[end:lineEnd])
		if !isWordRune(r) {
			break
		}
		end += size
	}
	return d.Text[start:end], protocol.Range{Start: d.PositionAt(start), End: d.PositionAt(end)}
}

// PrefixAt returns the identifier characters immediately before pos.
func (d *Document) PrefixAt(pos protocol.Position) string {
	offset, err := d.Offset(pos)
	if err != nil || int(pos.Line) >= len(d.lineStarts) {
		return ""
	}
	lineStart, _ := d.lineBounds(int(pos.Line))
	start := offset
	for start > lineStart {
		r, size := utf8.DecodeLastRuneInString(d.Text[lineStart:start])
		if !isWordRune(r) {
			break
		}
		start -= size
	}
	return d.Text[start:offset]
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// TextChange is one content change. A nil Range replaces the whole
// document.
type TextChange struct {
	Range *protocol.Range
	Text  string
}

// apply returns the text produced by applying c to d.
func (d *Document) apply(c TextChange) (string, error) {
	if c.Range == nil {
		return c.Text, nil
	}
	start, err := d.Offset(c.Range.Start)
	if err != nil {
		return "", err
	}
	end, err := d.Offset(c.Range.End)
	if err != nil {
		return "", err
	}
	if end < start {
		return "", fmt.Errorf("change range end %d:%d precedes start %d:%d",
			c.Range.End.Line, c.Range.End.Character, c.Range.Start.Line, c.Range.Start.Character)
	}
	return d.Text[:start] + c.Text + d.Text[end:], nil
}

// ErrDocumentNotOpen is returned for operations on a URI that is not open.
var ErrDocumentNotOpen = errors.New("document not open")

// DocumentStore holds the open documents of one session.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[protocol.DocumentURI]*Document)}
}

// Open records a document, replacing any previous version.
func (s *DocumentStore) Open(u protocol.DocumentURI, languageID string, version int32, text string) *Document {
	doc := NewDocument(u, languageID, version, text)
	s.mu.Lock()
	s.docs[u] = doc
	s.mu.Unlock()
	return doc
}

// Change applies changes in order and stores the result as version.
func (s *DocumentStore) Change(u protocol.DocumentURI, version int32, changes []TextChange) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[u]
	if !ok {
		return nil, fmt.Errorf("%s: %w", u, ErrDocumentNotOpen)
	}
	next := NewDocument(u, doc.LanguageID, version, doc.Text)
	for _, c := range changes {
		text, err := next.apply(c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", u, err)
		}
		next = NewDocument(u, doc.LanguageID, version, text)
	}
	s.docs[u] = next
	return next, nil
}

// Close forgets a document. It reports whether the document was open.
func (s *DocumentStore) Close(u protocol.DocumentURI) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[u]
	delete(s.docs, u)
	return ok
}

// Get returns the current snapshot of a document.
func (s *DocumentStore) Get(u protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[u]
	return doc, ok
}

// URIs returns the open document URIs in sorted order.
func (s *DocumentStore) URIs() []protocol.DocumentURI {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]protocol.DocumentURI, 0, len(s.docs))
	for u := range s.docs {
		uris = append(uris, u)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })
	return uris
}

// Len returns the number of open documents.
func (s *DocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
