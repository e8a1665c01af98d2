package document

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/policy.html.tmpl
var templateFS embed.FS

var policyTemplate = template.Must(template.New("policy.html.tmpl").Funcs(template.FuncMap{
	"imageURL":      imageURL,
	"rich":          func(s string) template.HTML { return template.HTML(SanitizeRichText(s)) },
	"ehcp":          func() string { return EHCPStatement },
	"tieOnDistance": TieOnDistance,
}).ParseFS(templateFS, "templates/policy.html.tmpl"))

// imageURL admits inline image data URIs only. Anything else renders as no
// image at all.
func imageURL(src string) template.URL {
	if !strings.HasPrefix(src, "data:image/") {
		return ""
	}
	return template.URL(src)
}

// HTML writes the document as a standalone HTML page ready for the
// renderer. The vision statement is the only markup taken from the answers
// and is sanitized again on output.
func HTML(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := policyTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("execute policy template: %w", err)
	}
	return buf.Bytes(), nil
}
