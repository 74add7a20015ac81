package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenEmpty(t *testing.T) {
	assert.Nil(t, Flatten(""))
	assert.Nil(t, Flatten("  \n\t"))
}

func TestFlattenPlainParagraphs(t *testing.T) {
	lines := Flatten("first paragraph\ncontinues here\n\nsecond one")

	assert.Equal(t, []Line{
		{Text: "first paragraph continues here"},
		{Text: "second one"},
	}, lines)
}

func TestFlattenHeadingIsBold(t *testing.T) {
	lines := Flatten("# Plan\nbody text")

	assert.Equal(t, []Line{
		{Text: "Plan", Bold: true},
		{Text: "body text"},
	}, lines)
}

func TestFlattenDropsInlineStyling(t *testing.T) {
	lines := Flatten("some **bold** and _italic_ and `code` and ~~gone~~")

	assert.Equal(t, []Line{{Text: "some bold and italic and code and gone"}}, lines)
}

func TestFlattenLists(t *testing.T) {
	lines := Flatten("- milk\n- eggs\n\n3. third\n4. fourth")

	assert.Equal(t, []Line{
		{Text: "• milk"},
		{Text: "• eggs"},
		{Text: "3. third"},
		{Text: "4. fourth"},
	}, lines)
}

func TestFlattenCodeBlockKeepsLines(t *testing.T) {
	lines := Flatten("```\nx := 1\n  y := 2\n```")

	assert.Equal(t, []Line{{Text: "x := 1"}, {Text: "  y := 2"}}, lines)
}

func TestFlattenHardBreak(t *testing.T) {
	lines := Flatten("line one  \nline two")

	assert.Equal(t, []Line{{Text: "line one"}, {Text: "line two"}}, lines)
}

func TestFlattenSkipsHTML(t *testing.T) {
	lines := Flatten("<div>hidden</div>\n\nshown")

	assert.Equal(t, []Line{{Text: "shown"}}, lines)
}
