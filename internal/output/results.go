package output

import (
	"fmt"
	"strings"

	"github.com/xkfz007/shardsearch/internal/result"
)

// ShardRow is one line of the shards table.
type ShardRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	RootPath  string `json:"root_path"`
	IndexPath string `json:"index_path"`
	Corrupted bool   `json:"corrupted"`
	Error     string `json:"error,omitempty"`
}

// Documents prints docs numbered from first.
func (w *Writer) Documents(docs []*result.Document, first int) {
	for i, d := range docs {
		w.document(first+i, d)
	}
}

// Page prints a result page with its position header.
func (w *Writer) Page(p *result.Page) {
	if p.HitCount == 0 {
		_, _ = fmt.Fprintln(w.out, "No documents found.")
		return
	}
	header := fmt.Sprintf("Page %d of %d, %d document%s",
		p.PageIndex+1, p.PageCount, p.HitCount, pluralS(p.HitCount))
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(header))
	w.Newline()

	first := 1
	if n := len(p.Documents); n > 0 {
		first = p.HitCount - n + 1
		if p.PageIndex < p.PageCount-1 {
			first = p.PageIndex*n + 1
		}
	}
	w.Documents(p.Documents, first)
}

// Results prints an unpaged result list with a count header.
func (w *Writer) Results(docs []*result.Document) {
	if len(docs) == 0 {
		_, _ = fmt.Fprintln(w.out, "No documents found.")
		return
	}
	header := fmt.Sprintf("%d document%s", len(docs), pluralS(len(docs)))
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(header))
	w.Newline()
	w.Documents(docs, 1)
}

// Shards prints the registered shards as an aligned table.
func (w *Writer) Shards(rows []ShardRow) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w.out, "No shards registered.")
		return
	}
	idw, namew := len("ID"), len("NAME")
	for _, r := range rows {
		idw = max(idw, len(r.ID))
		namew = max(namew, len(r.Name))
	}
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(
		fmt.Sprintf("%-*s  %-*s  %-9s  %s", idw, "ID", namew, "NAME", "STATUS", "FOLDER")))
	for _, r := range rows {
		status := w.styles.Success.Render(fmt.Sprintf("%-9s", "ok"))
		if r.Corrupted {
			status = w.styles.Error.Render(fmt.Sprintf("%-9s", "corrupted"))
		}
		_, _ = fmt.Fprintf(w.out, "%-*s  %-*s  %s  %s\n", idw, r.ID, namew, r.Name, status, r.RootPath)
		if r.Error != "" {
			_, _ = fmt.Fprintf(w.out, "%*s  %s\n", idw, "", w.styles.Meta.Render(r.Error))
		}
	}
}

func (w *Writer) document(n int, d *result.Document) {
	title := d.Title
	if title == "" {
		title = d.Filename
	}
	_, _ = fmt.Fprintf(w.out, "%3d. %s  %s\n", n,
		w.styles.Title.Render(title),
		w.styles.Score.Render(fmt.Sprintf("%.3f", d.Score)))
	_, _ = fmt.Fprintf(w.out, "     %s\n", w.styles.Path.Render(d.Path))

	meta := []string{d.Type, fmt.Sprintf("%d bytes", d.Size)}
	if !d.Modified.IsZero() {
		meta = append(meta, d.Modified.Format("2006-01-02"))
	}
	if d.Author != "" {
		meta = append(meta, d.Author)
	}
	_, _ = fmt.Fprintf(w.out, "     %s\n", w.styles.Meta.Render(strings.Join(meta, " | ")))

	if d.Snippet != "" {
		_, _ = fmt.Fprintf(w.out, "     %s\n", w.highlight(strings.Join(strings.Fields(d.Snippet), " ")))
	}
	w.Newline()
}

// highlight replaces the engine's <mark> tags with the highlight style, or
// drops them in plain mode.
func (w *Writer) highlight(s string) string {
	var sb strings.Builder
	for {
		open := strings.Index(s, "<mark>")
		if open < 0 {
			break
		}
		end := strings.Index(s[open:], "</mark>")
		if end < 0 {
			break
		}
		end += open
		sb.WriteString(s[:open])
		sb.WriteString(w.styles.Highlight.Render(s[open+len("<mark>") : end]))
		s = s[end+len("</mark>"):]
	}
	sb.WriteString(s)
	return sb.String()
}

func pluralS(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
