package xliff

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderPlainText(t *testing.T) {
	seg, err := Parse("<source>5 &lt; 10 &amp; true</source>")
	require.NoError(t, err)

	r := NewRenderer("images/")
	assert.Equal(t, "5 &lt; 10 &amp; true", r.Render(seg, nil))
}

func TestRenderStandaloneCode(t *testing.T) {
	seg, err := Parse(`<source>Press <ph id="1" dataRef="d1"/> now</source>`)
	require.NoError(t, err)
	data := map[string]string{"d1": "<b>"}

	r := NewRenderer("images/")
	out := r.Render(seg, data)
	assert.Equal(t, `Press <img data-ref='1' src='images/1.svg' align='bottom' alt='' title="&lt;b&gt;"/> now`, out)
}

func TestRenderPairedSpan(t *testing.T) {
	seg, err := Parse(`<source><mrk id="m1" type="term">cat</mrk></source>`)
	require.NoError(t, err)

	r := NewRenderer("img/")
	out := r.Render(seg, nil)

	assert.True(t, strings.HasPrefix(out, "<img data-ref='m1' src='img/1.svg'"))
	assert.Contains(t, out, StyleSpan+"cat</span>")
	assert.Contains(t, out, "<img data-ref='/m1' src='img/2.svg'")
}

func TestRenderCachesPlaceholdersAcrossReset(t *testing.T) {
	source, err := Parse(`<source>a <ph id="1" dataRef="d1"/> b</source>`)
	require.NoError(t, err)
	target, err := Parse(`<target>x <ph id="1" dataRef="d1"/> y</target>`)
	require.NoError(t, err)
	data := map[string]string{"d1": "<br/>"}

	r := NewRenderer("images/")
	src := r.Render(source, data)
	r.Reset()
	tgt := r.Render(target, data)

	srcImg := src[strings.Index(src, "<img"):]
	tgtImg := tgt[strings.Index(tgt, "<img"):]
	assert.Equal(t, strings.TrimSuffix(srcImg, " b"), strings.TrimSuffix(tgtImg, " y"))
}

func TestRenderFilteredHighlights(t *testing.T) {
	seg, err := Parse("<source>The Cat sat on the cat mat</source>")
	require.NoError(t, err)

	r := NewRenderer("images/")
	out := r.RenderFiltered(seg, nil, "cat", false, nil)
	assert.Equal(t, 2, strings.Count(out, StyleSpan))
	assert.Contains(t, out, StyleSpan+"Cat</span>")
	assert.Contains(t, out, StyleSpan+"cat</span>")

	r = NewRenderer("images/")
	out = r.RenderFiltered(seg, nil, "cat", true, nil)
	assert.Equal(t, 1, strings.Count(out, StyleSpan))
}

func TestRenderFilteredRegexp(t *testing.T) {
	seg, err := Parse("<source>item1 item2 thing</source>")
	require.NoError(t, err)

	r := NewRenderer("images/")
	out := r.RenderFiltered(seg, nil, "", false, regexp.MustCompile(`item\d`))
	assert.Equal(t, 2, strings.Count(out, StyleSpan))
	assert.Contains(t, out, StyleSpan+"item1</span>")
}

func TestHarvestPlaceholders(t *testing.T) {
	text := `hello <img data-ref='d1' src='images/1.svg' align='bottom' alt='' title=""/> world ` +
		`<img data-ref='/m1' src='images/2.svg' align='bottom' alt='' title=""/>`

	got := HarvestPlaceholders(text)
	require.Len(t, got, 2)
	assert.Equal(t, "d1", got[0].Ref)
	assert.Equal(t, "/m1", got[1].Ref)
	assert.True(t, strings.HasPrefix(got[0].Raw, "<img data-ref='d1'"))
}

func TestHarvestIgnoresOtherMarkup(t *testing.T) {
	got := HarvestPlaceholders(`a <span class="highlighted">b</span> <img src="x.svg"/> c`)
	assert.Empty(t, got)
}

func TestRestoreCodesRoundTrip(t *testing.T) {
	seg, err := Parse(`<source>Press <ph id="d1" dataRef="d1"/> then <pc id="2">save</pc></source>`)
	require.NoError(t, err)
	data := map[string]string{"d1": "<b/>"}
	codes := CodeTable(seg)

	r := NewRenderer("images/")
	rendered := r.Render(seg, data)
	restored := RestoreCodes(rendered, codes)

	assert.Equal(t, `Press <ph id="d1" dataRef="d1"/> then <pc id="2">save</pc>`, restored)
}

func TestRestoreCodesRoundTripDistinctDataRef(t *testing.T) {
	// The data-ref carries the code's id even when it differs from the
	// dataRef pointing into the unit's original data.
	seg, err := Parse(`<source>Press <ph id="1" dataRef="d1"/> now</source>`)
	require.NoError(t, err)
	data := map[string]string{"d1": "<b>"}

	r := NewRenderer("images/")
	rendered := r.Render(seg, data)
	assert.Contains(t, rendered, "data-ref='1'")

	restored := RestoreCodes(rendered, CodeTable(seg))
	assert.Equal(t, `Press <ph id="1" dataRef="d1"/> now`, restored)
}

func TestHighlightFoldedRuneLength(t *testing.T) {
	// U+023A lowercases to U+2C65, which is one byte longer.
	seg, err := Parse("<source>aȺ b</source>")
	require.NoError(t, err)

	r := NewRenderer("images/")
	out := r.RenderFiltered(seg, nil, "ⱥ", false, nil)
	assert.Equal(t, "a"+StyleSpan+"Ⱥ</span> b", out)

	r = NewRenderer("images/")
	out = r.RenderFiltered(seg, nil, "Ⱥ b", false, nil)
	assert.Equal(t, "a"+StyleSpan+"Ⱥ b</span>", out)
}

func TestRestoreCodesUnknownRefDropped(t *testing.T) {
	text := `a <img data-ref='ghost' src='images/1.svg' align='bottom' alt='' title=""/> b`
	assert.Equal(t, "a  b", RestoreCodes(text, map[string]string{}))
}
