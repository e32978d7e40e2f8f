package xliff

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/beevik/etree"
)

// StyleSpan wraps highlighted text and the content of paired spans in the
// editing view.
const StyleSpan = `<span class="highlighted">`

// Renderer turns segment markup into the placeholder representation the
// editor works with. Each inline code becomes an image reference whose
// data-ref attribute carries the code id and whose tooltip shows the
// original markup.
//
// A Renderer is valid for one render pass: its placeholder cache guarantees
// that the same code id always produces the same placeholder within the
// pass, which the harvesting side depends on. It is not safe for concurrent
// use.
type Renderer struct {
	imagesURL string
	cache     map[string]string
	next      int
}

// NewRenderer starts a render pass. imagesURL is the base location of the
// placeholder glyphs.
func NewRenderer(imagesURL string) *Renderer {
	return &Renderer{imagesURL: imagesURL, cache: make(map[string]string), next: 1}
}

// Reset restarts glyph numbering while keeping the placeholder cache, so a
// target renders with the same placeholders as its source.
func (r *Renderer) Reset() { r.next = 1 }

// Render produces the placeholder view of a segment element. data maps code
// ids to their original markup and feeds standalone-code tooltips.
func (r *Renderer) Render(seg *etree.Element, data map[string]string) string {
	return r.render(seg, data, "", false, nil)
}

// RenderFiltered is Render with filter-term highlighting in text runs.
// When pattern is non-nil it wins over filterText.
func (r *Renderer) RenderFiltered(seg *etree.Element, data map[string]string, filterText string, caseSensitive bool, pattern *regexp.Regexp) string {
	return r.render(seg, data, filterText, caseSensitive, pattern)
}

func (r *Renderer) render(seg *etree.Element, data map[string]string, filterText string, caseSensitive bool, pattern *regexp.Regexp) string {
	if seg == nil {
		return ""
	}
	var sb strings.Builder
	for _, tok := range seg.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(r.renderText(t.Data, filterText, caseSensitive, pattern))
		case *etree.Element:
			switch t.Tag {
			case "pc":
				id := t.SelectAttrValue("id", "")
				sb.WriteString(r.placeholder("pc"+id, id, Header(t)))
				sb.WriteString(r.render(t, data, filterText, caseSensitive, pattern))
				sb.WriteString(r.placeholder("/pc"+id, "/"+id, Tail(t)))
			case "mrk":
				id := t.SelectAttrValue("id", "")
				sb.WriteString(r.placeholder("mrk"+id, id, Header(t)))
				sb.WriteString(StyleSpan)
				sb.WriteString(r.render(t, data, filterText, caseSensitive, pattern))
				sb.WriteString("</span>")
				sb.WriteString(r.placeholder("/mrk"+id, "/"+id, Tail(t)))
			case "cp":
				key := "cp" + t.SelectAttrValue("hex", "")
				sb.WriteString(r.placeholder(key, key, ToString(t)))
			default:
				id := t.SelectAttrValue("id", "")
				sb.WriteString(r.placeholder(id, id, data[t.SelectAttrValue("dataRef", "")]))
			}
		}
	}
	return sb.String()
}

func (r *Renderer) placeholder(key, ref, title string) string {
	if img, ok := r.cache[key]; ok {
		return img
	}
	img := fmt.Sprintf("<img data-ref='%s' src='%s%d.svg' align='bottom' alt='' title=\"%s\"/>",
		ref, r.imagesURL, r.next, Unquote(CleanAngles(title)))
	r.next++
	r.cache[key] = img
	return img
}

func (r *Renderer) renderText(s, filterText string, caseSensitive bool, pattern *regexp.Regexp) string {
	if pattern != nil {
		return highlightPattern(s, pattern)
	}
	escaped := EscapeText(s)
	if filterText == "" {
		return escaped
	}
	return highlight(escaped, EscapeText(filterText), caseSensitive)
}

// highlight wraps every occurrence of term in the styling span. The
// case-insensitive search runs over a per-rune lowercase folding; folding can
// change a rune's byte length, so match offsets are mapped back through the
// recorded rune boundaries instead of being reused on the original string.
func highlight(s, term string, caseSensitive bool) string {
	if term == "" || s == "" {
		return s
	}
	haystack := s
	needle := term
	var back map[int]int
	if !caseSensitive {
		needle = strings.ToLower(term)
		back = make(map[int]int, len(s)+1)
		var folded strings.Builder
		for i, r := range s {
			back[folded.Len()] = i
			folded.WriteRune(unicode.ToLower(r))
		}
		back[folded.Len()] = len(s)
		haystack = folded.String()
	}
	var sb strings.Builder
	last, from := 0, 0
	for {
		i := strings.Index(haystack[from:], needle)
		if i < 0 {
			break
		}
		hs, he := from+i, from+i+len(needle)
		start, end := hs, he
		if back != nil {
			var ok bool
			if start, ok = back[hs]; !ok {
				from = hs + 1
				continue
			}
			if end, ok = back[he]; !ok {
				from = hs + 1
				continue
			}
		}
		sb.WriteString(s[last:start])
		sb.WriteString(StyleSpan)
		sb.WriteString(s[start:end])
		sb.WriteString("</span>")
		last = end
		from = he
	}
	sb.WriteString(s[last:])
	return sb.String()
}

func highlightPattern(s string, pattern *regexp.Regexp) string {
	locs := pattern.FindAllStringIndex(s, -1)
	if len(locs) == 0 {
		return EscapeText(s)
	}
	var sb strings.Builder
	last := 0
	for _, loc := range locs {
		sb.WriteString(EscapeText(s[last:loc[0]]))
		sb.WriteString(StyleSpan)
		sb.WriteString(EscapeText(s[loc[0]:loc[1]]))
		sb.WriteString("</span>")
		last = loc[1]
	}
	sb.WriteString(EscapeText(s[last:]))
	return sb.String()
}
