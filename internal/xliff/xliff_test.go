package xliff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndToString(t *testing.T) {
	e, err := Parse(`<source xml:lang="en">Hello <ph id="1"/>world</source>`)
	require.NoError(t, err)
	assert.Equal(t, "source", e.Tag)
	assert.Equal(t, "en", e.SelectAttrValue("lang", ""))

	out := ToString(e)
	assert.Contains(t, out, `<ph id="1"/>`)
	assert.Contains(t, out, "Hello ")
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestPureText(t *testing.T) {
	e, err := Parse(`<source>Click <pc id="1">here</pc> or <ph id="2"/>press <mrk id="m1">enter</mrk></source>`)
	require.NoError(t, err)
	assert.Equal(t, "Click here or press enter", PureText(e))
}

func TestCodeTable(t *testing.T) {
	e, err := Parse(`<source>a<ph id="1" dataRef="d1"/>b<pc id="2" canDelete="no">c</pc>d<cp hex="001A"/></source>`)
	require.NoError(t, err)

	table := CodeTable(e)
	assert.Equal(t, `<ph id="1" dataRef="d1"/>`, table["1"])
	assert.Equal(t, `<pc id="2" canDelete="no">`, table["2"])
	assert.Equal(t, "</pc>", table["/2"])
	assert.Equal(t, `<cp hex="001A"/>`, table["cp001A"])
}

func TestHeaderEscapesAttributes(t *testing.T) {
	e, err := Parse(`<mrk id="m1" value="a&quot;b"/>`)
	require.NoError(t, err)
	assert.Equal(t, `<mrk id="m1" value="a&quot;b">`, Header(e))
	assert.Equal(t, "</mrk>", Tail(e))
}

func TestEscapeText(t *testing.T) {
	assert.Equal(t, "a &amp; b &lt;c&gt;", EscapeText("a & b <c>"))
	assert.Equal(t, "plain", EscapeText("plain"))
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "say &quot;hi&quot;", Unquote(`say "hi"`))
}

func TestCountWordsSpaceSeparated(t *testing.T) {
	assert.Equal(t, 3, CountWords("one two three", "en"))
	assert.Equal(t, 0, CountWords("   ", "en"))
	assert.Equal(t, 2, CountWords("bonjour le-monde", "fr-FR"))
}

func TestCountWordsScriptCounted(t *testing.T) {
	// Each ideograph counts as one word.
	assert.Equal(t, 4, CountWords("你好世界", "zh-CN"))
	// Embedded latin runs count once per run.
	assert.Equal(t, 3, CountWords("你好 OK", "zh"))
	assert.Equal(t, 5, CountWords("こんにちは", "ja"))
}

func TestCountWordsBadTagFallsBack(t *testing.T) {
	assert.Equal(t, 2, CountWords("two words", "not-a-language-tag"))
}
