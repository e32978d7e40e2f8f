package sim

import (
	"strings"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, s string) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(s))
	return doc.Root()
}

func TestDummyTagPlainText(t *testing.T) {
	e := parse(t, "<source>Hello world</source>")
	assert.Equal(t, "Hello world", DummyTag(e))
}

func TestDummyTagStandaloneCodes(t *testing.T) {
	e := parse(t, "<source>Click <ph id=\"1\"/>here<ph id=\"2\"/></source>")
	got := []rune(DummyTag(e))
	want := append([]rune("Click "), rune(0xF301))
	want = append(want, []rune("here")...)
	want = append(want, rune(0xF302))
	assert.Equal(t, string(want), string(got))
}

func TestDummyTagPairedSpans(t *testing.T) {
	e := parse(t, "<source><pc id=\"1\">bold</pc> text</source>")
	got := []rune(DummyTag(e))
	require.Len(t, got, 11)
	assert.Equal(t, rune(0xF301), got[0])
	assert.Equal(t, "bold", string(got[1:5]))
	assert.Equal(t, rune(0xF302), got[5])
	assert.Equal(t, " text", string(got[6:]))
}

func TestDummyTagNumberingRestartsPerCall(t *testing.T) {
	a := parse(t, "<source>a <ph id=\"x\"/> b</source>")
	b := parse(t, "<source>a <ph id=\"y\"/> b</source>")
	assert.Equal(t, DummyTag(a), DummyTag(b))
}

func TestDummyTagNil(t *testing.T) {
	assert.Equal(t, "", DummyTag(nil))
}

func TestSimilarityEqual(t *testing.T) {
	assert.Equal(t, 100, Similarity("same", "same"))
	assert.Equal(t, 100, Similarity("", ""))
}

func TestSimilarityDisjoint(t *testing.T) {
	assert.Equal(t, 0, Similarity("abcd", "wxyz"))
	assert.Equal(t, 0, Similarity("abcd", ""))
}

func TestSimilarityScaled(t *testing.T) {
	// One substitution over four runes.
	assert.Equal(t, 75, Similarity("abcd", "abce"))
	// One insertion: distance 1 over the longer length 5.
	assert.Equal(t, 80, Similarity("abcd", "abcde"))
}

func TestSimilarityAroundThreshold(t *testing.T) {
	base := strings.Repeat("a", 100)
	above := strings.Repeat("a", 61) + strings.Repeat("b", 39)
	at := strings.Repeat("a", 60) + strings.Repeat("b", 40)

	assert.Equal(t, 61, Similarity(base, above))
	assert.Greater(t, Similarity(base, above), Threshold)

	assert.Equal(t, 60, Similarity(base, at))
	assert.False(t, Similarity(base, at) > Threshold)
}

func TestTagDifferences(t *testing.T) {
	a := parse(t, "<source>x <ph id=\"1\"/> y <ph id=\"2\"/></source>")
	b := parse(t, "<source>x y <ph id=\"1\"/></source>")
	c := parse(t, "<source>x y</source>")

	assert.Equal(t, 1, TagDifferences(a, b))
	assert.Equal(t, 1, TagDifferences(b, a))
	assert.Equal(t, 2, TagDifferences(a, c))
	assert.Equal(t, 0, TagDifferences(a, a))
}
