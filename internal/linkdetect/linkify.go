// Package linkdetect finds bare URLs in plain text.
package linkdetect

import (
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"mdedit/pkg/styled"
)

// Detector returns the rune ranges of URL-like substrings of s, in ascending
// order.
type Detector func(s string) []styled.Range

// None detects nothing.
func None(string) []styled.Range { return nil }

var linkify = goldmark.New(goldmark.WithExtensions(extension.Linkify))

// Linkify finds http(s), ftp, www. and e-mail links the way GFM autolinking
// does.
func Linkify(s string) []styled.Range {
	if s == "" {
		return nil
	}
	source := []byte(s)
	root := linkify.Parser().Parse(text.NewReader(source))

	var spans [][2]int
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.AutoLink:
			if span, ok := labelSpan(source, n.Label(source)); ok {
				spans = append(spans, span)
			}
			return ast.WalkSkipChildren, nil
		case *ast.CodeSpan, *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil
	}
	return toRuneRanges(s, spans)
}

// labelSpan locates label inside source. Labels are subslices of the parsed
// source, so the distance between capacities is the byte offset.
func labelSpan(source, label []byte) ([2]int, bool) {
	if len(label) == 0 {
		return [2]int{}, false
	}
	start := cap(source) - cap(label)
	if start < 0 || start+len(label) > len(source) || string(source[start:start+len(label)]) != string(label) {
		return [2]int{}, false
	}
	return [2]int{start, start + len(label)}, true
}

// toRuneRanges converts ascending byte spans into rune ranges.
func toRuneRanges(s string, spans [][2]int) []styled.Range {
	out := make([]styled.Range, 0, len(spans))
	runeAt, byteAt := 0, 0
	advance := func(to int) {
		runeAt += utf8.RuneCountInString(s[byteAt:to])
		byteAt = to
	}
	for _, sp := range spans {
		if sp[0] < byteAt || sp[1] > len(s) || sp[1] <= sp[0] {
			continue
		}
		advance(sp[0])
		start := runeAt
		advance(sp[1])
		out = append(out, styled.Range{Location: start, Length: runeAt - start})
	}
	return out
}
