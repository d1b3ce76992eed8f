package mcp

import (
	"fmt"
	"strings"
)

var markToBold = strings.NewReplacer("<mark>", "**", "</mark>", "**")

// FormatSearch renders search tool output as markdown.
func FormatSearch(out SearchOutput) string {
	if len(out.Documents) == 0 {
		return fmt.Sprintf("No documents found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	fmt.Fprintf(&sb, "Found %s", plural(out.Total, "document"))
	if out.Total > len(out.Documents) {
		fmt.Fprintf(&sb, ", showing the first %d", len(out.Documents))
	}
	sb.WriteString("\n\n")
	formatDocuments(&sb, out.Documents, 1)
	return sb.String()
}

// FormatPage renders paged_search output as markdown.
func FormatPage(out PageOutput) string {
	if out.HitCount == 0 {
		return fmt.Sprintf("No documents found for \"%s\"", out.Query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Search Results for \"%s\"\n\n", out.Query)
	fmt.Fprintf(&sb, "Page %d of %d (%s)\n\n", out.PageIndex+1, out.PageCount, plural(out.HitCount, "document"))
	first := 1
	if len(out.Documents) > 0 && out.PageCount > 0 {
		first = out.HitCount - len(out.Documents) + 1
		if out.PageIndex < out.PageCount-1 {
			first = out.PageIndex*len(out.Documents) + 1
		}
	}
	formatDocuments(&sb, out.Documents, first)
	return sb.String()
}

// FormatLookup renders lookup output as markdown.
func FormatLookup(out LookupOutput) string {
	if len(out.Documents) == 0 {
		return "No documents found for the given UIDs"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "## Documents\n\n")
	formatDocuments(&sb, out.Documents, 1)
	return sb.String()
}

// FormatShards renders the shards tool output as markdown.
func FormatShards(out ShardsOutput) string {
	var sb strings.Builder
	sb.WriteString("## Shards\n\n")
	fmt.Fprintf(&sb, "%s registered, %d open, %d corrupted, %s searchable\n\n",
		plural(out.Stats.Shards, "shard"), out.Stats.Open, out.Stats.Corrupted,
		plural(int(out.Stats.Documents), "document"))

	if len(out.Shards) == 0 {
		sb.WriteString("No folders are indexed yet.\n")
		return sb.String()
	}

	sb.WriteString("| ID | Name | Folder | Status |\n|---|---|---|---|\n")
	for _, s := range out.Shards {
		status := "ok"
		if s.Corrupted {
			status = "corrupted"
			if s.Error != "" {
				status += ": " + s.Error
			}
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", s.ID, s.Name, s.RootPath, status)
	}
	return sb.String()
}

func formatDocuments(sb *strings.Builder, docs []DocumentOutput, first int) {
	for i, d := range docs {
		title := d.Title
		if title == "" {
			title = d.UID
		}
		fmt.Fprintf(sb, "### %d. %s (score: %.2f)\n", first+i, title, d.Score)
		fmt.Fprintf(sb, "`%s` | %s | %d bytes", d.Path, d.Type, d.Size)
		if d.Modified != "" {
			fmt.Fprintf(sb, " | %s", d.Modified)
		}
		fmt.Fprintf(sb, "\nUID: `%s`\n\n", d.UID)
		if d.Snippet != "" {
			fmt.Fprintf(sb, "> %s\n\n", markToBold.Replace(strings.ReplaceAll(d.Snippet, "\n", " ")))
		}
	}
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
