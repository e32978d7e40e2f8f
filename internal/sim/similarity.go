// Package sim scores the textual similarity of marked-up segments.
//
// Segments are compared on a dummy-tagged projection: text runs keep their
// characters, inline codes collapse to reserved private-use characters.
// A normalized edit distance over that projection captures both wording and
// markup-shape differences with a single number.
package sim

import "github.com/beevik/etree"

// Threshold is the minimum combined score (exclusive) for a candidate to be
// worth recording during propagation.
const Threshold = 60

// dummyBase is the first reserved character used for inline codes.
const dummyBase = 0xF300

// DummyTag projects a segment element onto its comparison string. Paired
// spans (mrk, pc) contribute an opening marker, their recursively projected
// content, and a closing marker; every other inline code contributes a
// single marker. Marker numbering restarts on each call, so two segments
// with the same shape project onto the same markers.
func DummyTag(e *etree.Element) string {
	if e == nil {
		return ""
	}
	dummy := 1
	out := make([]rune, 0, 32)
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			out = append(out, []rune(t.Data)...)
		case *etree.Element:
			if t.Tag == "mrk" || t.Tag == "pc" {
				out = append(out, rune(dummyBase+dummy))
				dummy++
				out = append(out, []rune(DummyTag(t))...)
				out = append(out, rune(dummyBase+dummy))
				dummy++
			} else {
				out = append(out, rune(dummyBase+dummy))
				dummy++
			}
		}
	}
	return string(out)
}

// Similarity returns the percentage similarity of two strings, 100 for
// equal strings, scaled by edit distance over the longer length.
func Similarity(a, b string) int {
	if a == b {
		return 100
	}
	ra := []rune(a)
	rb := []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 100
	}
	return 100 * (longest - distance(ra, rb)) / longest
}

// TagDifferences is the tag-structure penalty: the absolute difference in
// top-level inline code counts between two segments.
func TagDifferences(a, b *etree.Element) int {
	na := len(a.ChildElements())
	nb := len(b.ChildElements())
	if na > nb {
		return na - nb
	}
	return nb - na
}

// distance is the Levenshtein edit distance computed over two rows.
func distance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			m := del
			if ins < m {
				m = ins
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
