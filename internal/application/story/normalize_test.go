package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStripsEmphasis(t *testing.T) {
	assert.Equal(t, "The Storm: a tale", Normalize("**The Storm**: a tale"))
	assert.Equal(t, "plain text", Normalize("plain text"))
}

func TestNormalizeJoinsMidParagraphWraps(t *testing.T) {
	assert.Equal(t, "Mara walked in. She paused.", Normalize("**Mara** walked in.\nShe paused."))
	// 连续误断行全部合并
	assert.Equal(t, "a b c", Normalize("a\nb\nc"))
}

func TestNormalizeStripsEmphasisAcrossWrap(t *testing.T) {
	// 跨断行的强调对先由合并落到同一行，再被单次调用内去除
	assert.Equal(t, "Mara walked in.", Normalize("**Mara\nwalked** in."))
	assert.Equal(t, "a b c d", Normalize("**a\nb** **c\nd**"))
}

func TestNormalizeKeepsParagraphBreaks(t *testing.T) {
	// 换行紧邻空白字符时不在两个非空白之间，段落边界得以保留
	in := "First paragraph.\n\nSecond paragraph."
	assert.Equal(t, in, Normalize(in))
}

func TestNormalizeCollapsesBlankRuns(t *testing.T) {
	assert.Equal(t, "a\n\nb", Normalize("a\n\n\n\n\nb"))
	assert.Equal(t, "a\n\nb", Normalize("a\n\n\nb"))
}

func TestNormalizeTrims(t *testing.T) {
	assert.Equal(t, "story", Normalize("  \n\nstory\n\n  "))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"**Mara** walked in.\nShe paused.",
		"**Mara\nwalked** in.",
		"a\nb\nc",
		"First.\n\n\n\nSecond.",
		"  **bold** and\nwrapped  ",
		"",
		"already clean text",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   \n\n   "))
	assert.Equal(t, "all emphasis", Normalize("**all emphasis**"))
}
