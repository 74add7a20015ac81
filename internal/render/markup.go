package render

import (
	"fmt"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var (
	markdown     goldmark.Markdown
	markdownOnce sync.Once
)

func markdownParser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))
	})
	return markdown
}

// Line is one laid-out line of a text note before wrapping.
type Line struct {
	Text string
	Bold bool
}

// Flatten parses note markup and reduces it to plain lines. Headings become
// bold lines, list items get a bullet or their number, code blocks keep
// their lines verbatim and inline styling is dropped.
func Flatten(markup string) []Line {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	source := []byte(markup)
	doc := markdownParser().Parser().Parse(text.NewReader(source))

	f := &flattener{source: source}
	_ = ast.Walk(doc, f.walk)
	f.flush()
	return f.lines
}

type flattener struct {
	source  []byte
	lines   []Line
	current strings.Builder
	heading bool
}

func (f *flattener) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Heading:
		if entering {
			f.flush()
			f.heading = true
		} else {
			f.flush()
			f.heading = false
		}
	case *ast.Paragraph, *ast.TextBlock, *ast.Blockquote:
		if !entering {
			f.flush()
		}
	case *ast.ListItem:
		if entering {
			f.flush()
			f.current.WriteString(bullet(node))
		} else {
			f.flush()
		}
	case *ast.FencedCodeBlock, *ast.CodeBlock:
		if entering {
			f.flush()
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				f.lines = append(f.lines, Line{Text: strings.TrimRight(string(seg.Value(f.source)), "\r\n")})
			}
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock, *ast.RawHTML:
		return ast.WalkSkipChildren, nil
	case *ast.Text:
		if !entering {
			return ast.WalkContinue, nil
		}
		f.current.Write(node.Segment.Value(f.source))
		switch {
		case node.HardLineBreak():
			f.flush()
		case node.SoftLineBreak():
			f.current.WriteByte(' ')
		}
	case *ast.String:
		if entering {
			f.current.Write(node.Value)
		}
	}
	return ast.WalkContinue, nil
}

func (f *flattener) flush() {
	s := strings.TrimSpace(f.current.String())
	f.current.Reset()
	if s == "" {
		return
	}
	f.lines = append(f.lines, Line{Text: s, Bold: f.heading})
}

func bullet(item *ast.ListItem) string {
	list, ok := item.Parent().(*ast.List)
	if !ok || !list.IsOrdered() {
		return "• "
	}
	n := list.Start
	for sib := item.PreviousSibling(); sib != nil; sib = sib.PreviousSibling() {
		n++
	}
	return fmt.Sprintf("%d. ", n)
}
