// Package xliff holds the XLIFF 2.0 element helpers shared by the store:
// fragment parsing, plain-text extraction, the inline-code table used to
// translate editor placeholders back into markup, and the placeholder
// renderer itself.
package xliff

import (
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// Parse reads a single XML fragment, such as a stored <source> or <target>
// column, and returns its root element.
func Parse(fragment string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(fragment); err != nil {
		return nil, err
	}
	root := doc.Root()
	if root == nil {
		return nil, errors.New("empty fragment")
	}
	return root, nil
}

// ToString serializes an element back to markup.
func ToString(e *etree.Element) string {
	doc := etree.NewDocument()
	doc.SetRoot(e.Copy())
	s, _ := doc.WriteToString()
	return strings.TrimRight(s, "\n")
}

// PureText returns the textual content of a segment element: character data
// plus the text inside paired spans (mrk, pc). All other inline codes
// contribute nothing.
func PureText(e *etree.Element) string {
	var sb strings.Builder
	for _, tok := range e.Child {
		switch t := tok.(type) {
		case *etree.CharData:
			sb.WriteString(t.Data)
		case *etree.Element:
			if t.Tag == "mrk" || t.Tag == "pc" {
				sb.WriteString(PureText(t))
			}
		}
	}
	return sb.String()
}

// CodeTable maps each placeholder reference appearing in a rendered segment
// to the literal markup it stands for. Paired spans contribute two entries,
// one for the opening marker and one ("/"+id) for the closing marker.
func CodeTable(root *etree.Element) map[string]string {
	table := make(map[string]string)
	for _, e := range root.ChildElements() {
		switch e.Tag {
		case "mrk", "pc":
			id := e.SelectAttrValue("id", "")
			table[id] = Header(e)
			table["/"+id] = Tail(e)
		case "cp":
			table["cp"+e.SelectAttrValue("hex", "")] = ToString(e)
		default:
			table[e.SelectAttrValue("id", "")] = ToString(e)
		}
	}
	return table
}

// Header returns the opening tag of an element, attributes included.
func Header(e *etree.Element) string {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(e.FullTag())
	for _, a := range e.Attr {
		sb.WriteByte(' ')
		if a.Space != "" {
			sb.WriteString(a.Space)
			sb.WriteByte(':')
		}
		sb.WriteString(a.Key)
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(a.Value))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')
	return sb.String()
}

// Tail returns the closing tag of an element.
func Tail(e *etree.Element) string {
	return "</" + e.FullTag() + ">"
}

// EscapeText makes character data safe for the HTML editing view.
func EscapeText(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// CleanAngles prepares raw markup for inclusion in a tooltip.
func CleanAngles(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// Unquote escapes double quotes so a string can sit inside a quoted
// HTML attribute.
func Unquote(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}

func escapeAttr(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
