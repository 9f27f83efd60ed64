package exporter

import (
	"fmt"
	"html"
	"strings"

	"github.com/nikbrunner/quickmark/internal/model"
)

// ExportHTML exports the collection to Netscape bookmark HTML format.
// Records with a folder are grouped under it, in order of first appearance;
// records without one are written at the root after the folders.
func ExportHTML(c model.Collection) string {
	var b strings.Builder

	// Header
	b.WriteString("<!DOCTYPE NETSCAPE-Bookmark-file-1>\n")
	b.WriteString("<META HTTP-EQUIV=\"Content-Type\" CONTENT=\"text/html; charset=UTF-8\">\n")
	b.WriteString("<TITLE>Bookmarks</TITLE>\n")
	b.WriteString("<H1>Bookmarks</H1>\n")
	b.WriteString("<DL><p>\n")

	var folders []string
	byFolder := make(map[string]model.Collection)
	var root model.Collection
	for _, r := range c {
		if r.Folder == "" {
			root = append(root, r)
			continue
		}
		if _, ok := byFolder[r.Folder]; !ok {
			folders = append(folders, r.Folder)
		}
		byFolder[r.Folder] = append(byFolder[r.Folder], r)
	}

	prefix := "    "
	for _, folder := range folders {
		fmt.Fprintf(&b, "%s<DT><H3>%s</H3>\n", prefix, html.EscapeString(folder))
		fmt.Fprintf(&b, "%s<DL><p>\n", prefix)
		writeRecords(&b, byFolder[folder], prefix+"    ")
		fmt.Fprintf(&b, "%s</DL><p>\n", prefix)
	}
	writeRecords(&b, root, prefix)

	// Footer
	b.WriteString("</DL><p>\n")

	return b.String()
}

func writeRecords(b *strings.Builder, records model.Collection, prefix string) {
	for _, r := range records {
		fmt.Fprintf(b,
			"%s<DT><A HREF=\"%s\" ADD_DATE=\"%d\"",
			prefix,
			html.EscapeString(r.URL),
			r.CreatedAt.Unix(),
		)
		if len(r.Tags) > 0 {
			fmt.Fprintf(b, " TAGS=\"%s\"", html.EscapeString(strings.Join(r.Tags, ",")))
		}
		fmt.Fprintf(b, ">%s</A>\n", html.EscapeString(r.Title))
		if r.Description != "" {
			fmt.Fprintf(b, "%s<DD>%s\n", prefix, html.EscapeString(r.Description))
		}
	}
}
