package document

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedTags are the rich text elements kept from editor output.
var allowedTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.Strong:     true,
	atom.B:          true,
	atom.Em:         true,
	atom.I:          true,
	atom.U:          true,
	atom.S:          true,
	atom.Ul:         true,
	atom.Ol:         true,
	atom.Li:         true,
	atom.A:          true,
	atom.H3:         true,
	atom.H4:         true,
	atom.Blockquote: true,
}

// droppedTags are removed together with their content.
var droppedTags = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Iframe:   true,
	atom.Object:   true,
	atom.Embed:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Form:     true,
}

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

// SanitizeRichText reduces editor HTML to a small formatting allowlist.
// Unknown elements are unwrapped, attributes other than a safe link href
// are removed, and scripts are dropped with their content.
func SanitizeRichText(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}
	parent := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		return html.EscapeString(fragment)
	}

	var sb strings.Builder
	for _, n := range nodes {
		writeClean(&sb, n)
	}
	return strings.TrimSpace(sb.String())
}

func writeClean(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
		return
	case html.ElementNode:
	default:
		writeChildren(sb, n)
		return
	}

	if droppedTags[n.DataAtom] {
		return
	}
	if !allowedTags[n.DataAtom] {
		writeChildren(sb, n)
		return
	}

	sb.WriteString("<")
	sb.WriteString(n.Data)
	if n.DataAtom == atom.A {
		if href, ok := safeHref(n); ok {
			sb.WriteString(` href="`)
			sb.WriteString(html.EscapeString(href))
			sb.WriteString(`"`)
		}
	}
	sb.WriteString(">")
	if n.DataAtom == atom.Br {
		return
	}
	writeChildren(sb, n)
	sb.WriteString("</")
	sb.WriteString(n.Data)
	sb.WriteString(">")
}

func writeChildren(sb *strings.Builder, n *html.Node) {
	if n.Type == html.CommentNode {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeClean(sb, c)
	}
}

func safeHref(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key != "href" {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil || !allowedSchemes[strings.ToLower(u.Scheme)] {
			return "", false
		}
		return u.String(), true
	}
	return "", false
}
