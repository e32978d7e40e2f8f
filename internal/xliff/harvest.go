package xliff

import (
	"strings"

	"golang.org/x/net/html"
)

// Placeholder is one inline-code image found in editor-submitted text.
// Raw is the placeholder exactly as it appeared, so it can be replaced
// by substring substitution.
type Placeholder struct {
	Ref string
	Raw string
}

// HarvestPlaceholders scans editor text for placeholder images and returns
// them in document order. Anything that is not an img element with a
// data-ref attribute passes through untouched.
func HarvestPlaceholders(text string) []Placeholder {
	var out []Placeholder
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return out
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}
		raw := string(z.Raw())
		name, hasAttr := z.TagName()
		if string(name) != "img" || !hasAttr {
			continue
		}
		for {
			key, val, more := z.TagAttr()
			if string(key) == "data-ref" {
				out = append(out, Placeholder{Ref: string(val), Raw: raw})
			}
			if !more {
				break
			}
		}
	}
}

// RestoreCodes maps every placeholder in text back to its original markup
// using the segment's code table. Placeholders with no table entry collapse
// to nothing.
func RestoreCodes(text string, codes map[string]string) string {
	for _, p := range HarvestPlaceholders(text) {
		code, ok := codes[p.Ref]
		if !ok {
			code = ""
		}
		text = strings.ReplaceAll(text, p.Raw, code)
	}
	return text
}
