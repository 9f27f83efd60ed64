package importer

import (
	"io"
	"strconv"
	"strings"

	"github.com/nikbrunner/quickmark/internal/tree"
	"golang.org/x/net/html"
)

// htmlItem is a mutable tree entry used while walking the document.
type htmlItem struct {
	title     string
	url       string
	dateAdded int64
	children  []*htmlItem
}

// ParseHTMLTree parses Netscape bookmark HTML into a bookmark tree.
// The result holds one untitled root whose children are the top-level entries.
func ParseHTMLTree(r io.Reader) ([]tree.Node, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	root := &htmlItem{}

	// Track current folder stack for hierarchy
	stack := []*htmlItem{root}
	var pendingFolder *htmlItem // folder waiting to be pushed on next DL

	var parse func(*html.Node)
	parse = func(n *html.Node) {
		if n.Type == html.ElementNode {
			parent := stack[len(stack)-1]

			switch strings.ToLower(n.Data) {
			case "h3":
				folder := &htmlItem{
					title:     getTextContent(n),
					dateAdded: parseAddDate(n),
				}
				parent.children = append(parent.children, folder)

				// Mark this folder as pending - will be pushed when we see the next DL
				pendingFolder = folder
				return // Don't recurse into H3

			case "a":
				href := getAttr(n, "href")
				if href == "" {
					// Skip bookmarks without URL
					return
				}

				// A blank title stays blank; extraction falls back to the URL.
				parent.children = append(parent.children, &htmlItem{
					title:     getTextContent(n),
					url:       href,
					dateAdded: parseAddDate(n),
				})
				return // Don't recurse into A

			case "dl":
				pushed := false
				if pendingFolder != nil {
					stack = append(stack, pendingFolder)
					pendingFolder = nil
					pushed = true
				}

				for c := n.FirstChild; c != nil; c = c.NextSibling {
					parse(c)
				}

				if pushed {
					stack = stack[:len(stack)-1]
				}
				return // Don't recurse further, we handled children
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			parse(c)
		}
	}

	parse(doc)

	nextID := 0
	return []tree.Node{root.toNode(&nextID)}, nil
}

// toNode converts the item and its descendants, numbering them in pre-order.
func (it *htmlItem) toNode(nextID *int) tree.Node {
	n := tree.Node{
		ID:        strconv.Itoa(*nextID),
		Title:     it.title,
		URL:       it.url,
		DateAdded: it.dateAdded,
	}
	*nextID++

	for _, child := range it.children {
		n.Children = append(n.Children, child.toNode(nextID))
	}
	return n
}

// parseAddDate reads ADD_DATE (seconds since epoch) as milliseconds.
// Returns 0 when missing or malformed.
func parseAddDate(n *html.Node) int64 {
	addDate := getAttr(n, "add_date")
	if addDate == "" {
		return 0
	}
	ts, err := strconv.ParseInt(addDate, 10, 64)
	if err != nil || ts <= 0 {
		return 0
	}
	return ts * 1000
}

// getTextContent returns the text content of a node.
func getTextContent(n *html.Node) string {
	var text strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			text.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(text.String())
}

// getAttr returns the value of an attribute, case-insensitive.
func getAttr(n *html.Node, key string) string {
	key = strings.ToLower(key)
	for _, attr := range n.Attr {
		if strings.ToLower(attr.Key) == key {
			return attr.Val
		}
	}
	return ""
}
