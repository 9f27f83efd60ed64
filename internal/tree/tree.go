// Package tree flattens a browser bookmark hierarchy into merge candidates.
package tree

import (
	"strings"
	"time"

	"github.com/nikbrunner/quickmark/internal/model"
)

// UnnamedFolder labels bookmarks whose parent folder has no title.
const UnnamedFolder = "Unnamed folder"

// Node is an entry of the native bookmark tree: a folder with children or a
// leaf with a URL. The JSON shape matches the browser bookmarks API.
type Node struct {
	ID        string `json:"id,omitempty"`
	Title     string `json:"title"`
	URL       string `json:"url,omitempty"`
	DateAdded int64  `json:"dateAdded,omitempty"` // ms since epoch, 0 = unknown
	Children  []Node `json:"children,omitempty"`
}

// IsLeaf reports whether the node is a bookmark rather than a folder.
func (n Node) IsLeaf() bool {
	return n.URL != ""
}

// FolderInfo describes one folder found in a forest.
type FolderInfo struct {
	Node   *Node
	Title  string
	Depth  int
	Leaves int
}

// ExtractAll flattens the whole forest.
func ExtractAll(forest []Node) []model.Candidate {
	return Extract(forest, "")
}

// ExtractFolder flattens a single subtree.
func ExtractFolder(node Node) []model.Candidate {
	return Extract([]Node{node}, "")
}

// Extract walks nodes depth-first in pre-order and returns one candidate per
// leaf. Each candidate carries the title of its immediate parent folder.
// Top-level nodes without URL or title are synthetic roots and do not change
// the folder context.
func Extract(nodes []Node, folder string) []model.Candidate {
	var out []model.Candidate
	extract(nodes, folder, true, &out)
	return out
}

func extract(nodes []Node, folder string, top bool, out *[]model.Candidate) {
	for _, n := range nodes {
		if n.IsLeaf() {
			*out = append(*out, leafCandidate(n, folder))
			continue
		}

		if top && isSyntheticRoot(n) {
			extract(n.Children, folder, false, out)
			continue
		}

		extract(n.Children, folderTitle(n), false, out)
	}
}

func leafCandidate(n Node, folder string) model.Candidate {
	c := model.Candidate{
		URL:     n.URL,
		Tags:    []string{},
		Favicon: model.FaviconURL(n.URL),
		Folder:  folder,
	}
	if strings.TrimSpace(n.Title) != "" {
		title := n.Title
		c.Title = &title
	}
	if n.DateAdded > 0 {
		created := time.UnixMilli(n.DateAdded).UTC()
		c.CreatedAt = &created
	}
	return c
}

func folderTitle(n Node) string {
	if strings.TrimSpace(n.Title) == "" {
		return UnnamedFolder
	}
	return n.Title
}

func isSyntheticRoot(n Node) bool {
	return n.URL == "" && strings.TrimSpace(n.Title) == ""
}

// CountLeaves returns the number of bookmarks below nodes, at any depth.
func CountLeaves(nodes []Node) int {
	count := 0
	for _, n := range nodes {
		if n.IsLeaf() {
			count++
			continue
		}
		count += CountLeaves(n.Children)
	}
	return count
}

// Folders lists every folder of the forest in pre-order with its leaf count.
// Synthetic roots are skipped and their children listed at depth 0.
func Folders(forest []Node) []FolderInfo {
	var out []FolderInfo
	collectFolders(forest, 0, true, &out)
	return out
}

func collectFolders(nodes []Node, depth int, top bool, out *[]FolderInfo) {
	for i := range nodes {
		n := &nodes[i]
		if n.IsLeaf() {
			continue
		}
		if top && isSyntheticRoot(*n) {
			collectFolders(n.Children, depth, false, out)
			continue
		}
		*out = append(*out, FolderInfo{
			Node:   n,
			Title:  folderTitle(*n),
			Depth:  depth,
			Leaves: CountLeaves(n.Children),
		})
		collectFolders(n.Children, depth+1, false, out)
	}
}

// FindFolder returns the first folder in pre-order whose title matches.
func FindFolder(forest []Node, title string) (*Node, bool) {
	for _, f := range Folders(forest) {
		if f.Title == title {
			return f.Node, true
		}
	}
	return nil, false
}
