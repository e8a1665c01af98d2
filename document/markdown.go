package document

import (
	"fmt"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/escape"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

var excessiveLinesRe = regexp.MustCompile(`\n{3,}`)

// text escapes a user-supplied value for inline markdown. Inline HTML is
// escaped too.
func text(s string) string {
	return strings.ReplaceAll(escape.MarkdownCharacters(s), "<", `\<`)
}

var linkTargetReplacer = strings.NewReplacer(" ", "%20", "(", "%28", ")", "%29", "<", "%3C", ">", "%3E")

// MarkdownWriter converts an assembled Document to markdown for preview.
type MarkdownWriter struct {
	converter *md.Converter
}

// NewMarkdownWriter creates a writer with GitHub flavoured conversion of
// rich text.
func NewMarkdownWriter() *MarkdownWriter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &MarkdownWriter{converter: converter}
}

// Markdown is a convenience wrapper around a fresh MarkdownWriter.
func Markdown(doc *Document) (string, error) {
	return NewMarkdownWriter().Write(doc)
}

// Write renders doc as markdown.
func (w *MarkdownWriter) Write(doc *Document) (string, error) {
	var sb strings.Builder

	sb.WriteString("# Admission Arrangements\n\n")
	sb.WriteString("**")
	sb.WriteString(text(orNA(doc.SchoolName)))
	sb.WriteString("**\n\nAdmission Year: ")
	sb.WriteString(text(orNA(doc.AdmissionYear)))
	sb.WriteString("\n\n")

	w.heading(&sb, 2, fmt.Sprintf("%d. School Details", SchoolDetailsSection))
	writeRows(&sb, doc.Details)
	if doc.Vision != "" {
		vision, err := w.converter.ConvertString(doc.Vision)
		if err != nil {
			return "", fmt.Errorf("convert vision statement: %w", err)
		}
		w.heading(&sb, 3, "Vision Statement")
		sb.WriteString(strings.TrimSpace(vision))
		sb.WriteString("\n\n")
	}
	w.heading(&sb, 3, "Previous Year Information")
	writeRows(&sb, doc.PreviousYear)

	w.heading(&sb, 2, fmt.Sprintf("%d. Published Admission Number (PAN)", PANSection))
	writeRows(&sb, doc.PAN)
	w.heading(&sb, 3, "Key Dates")
	sb.WriteString("| Event | Date |\n| --- | --- |\n")
	for _, r := range doc.KeyDates {
		sb.WriteString("| ")
		sb.WriteString(r.Label)
		sb.WriteString(" | ")
		sb.WriteString(text(r.Value))
		sb.WriteString(" |\n")
	}
	sb.WriteString("\n")

	w.heading(&sb, 2, fmt.Sprintf("%d. Oversubscription Criteria", CriteriaSection))
	sb.WriteString(EHCPStatement)
	sb.WriteString("\n\n")
	if len(doc.Criteria) == 0 {
		sb.WriteString("No criteria specified.\n\n")
	}
	for _, c := range doc.Criteria {
		fmt.Fprintf(&sb, "%d. **%s**\n", c.Number, text(c.Title))
		for _, p := range c.Body.Paragraphs {
			sb.WriteString("   ")
			sb.WriteString(text(p))
			sb.WriteString("\n")
		}
		for _, f := range c.Body.Fields {
			fmt.Fprintf(&sb, "   **%s:** %s\n", f.Label, text(f.Value))
		}
		if c.Body.Image != nil {
			fmt.Fprintf(&sb, "   _%s attached_\n", c.Body.Image.Alt)
		}
		sb.WriteString("\n")
	}

	if t := doc.Tiebreaker; t != nil {
		w.heading(&sb, 2, fmt.Sprintf("%d. Tiebreaker", t.Number))
		w.heading(&sb, 3, "Distance from school")
		sb.WriteString("**Measure used:** ")
		sb.WriteString(text(t.Text))
		sb.WriteString("\n\n")
		sb.WriteString(TieOnDistance())
		sb.WriteString("\n\n")
	}

	if s := doc.SupportDocuments; s != nil {
		w.heading(&sb, 2, fmt.Sprintf("%d. Support Documents", s.Number))
		for _, d := range s.Items {
			if d.URL != "" {
				fmt.Fprintf(&sb, "- [%s](%s)\n", text(d.Name), linkTargetReplacer.Replace(d.URL))
			} else {
				fmt.Fprintf(&sb, "- %s\n", text(d.Name))
			}
		}
		sb.WriteString("\n")
	}

	if c := doc.Contact; c != nil {
		w.heading(&sb, 2, fmt.Sprintf("%d. Contact Information", c.Number))
		if c.Email != "" {
			fmt.Fprintf(&sb, "- **Email:** %s\n", text(c.Email))
		}
		if c.Phone != "" {
			fmt.Fprintf(&sb, "- **Phone:** %s\n", text(c.Phone))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	sb.WriteString("Generated by NSE Policy Generator on ")
	sb.WriteString(doc.GeneratedOn)
	sb.WriteString("\n")

	return excessiveLinesRe.ReplaceAllString(sb.String(), "\n\n"), nil
}

func (w *MarkdownWriter) heading(sb *strings.Builder, level int, title string) {
	sb.WriteString(strings.Repeat("#", level))
	sb.WriteString(" ")
	sb.WriteString(title)
	sb.WriteString("\n\n")
}

func writeRows(sb *strings.Builder, rows []Row) {
	for _, r := range rows {
		sb.WriteString("- **")
		sb.WriteString(r.Label)
		sb.WriteString(":** ")
		sb.WriteString(text(r.Value))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}
