package contentdocs

import (
	"cmp"
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/plugin"
)

// Sidebar item types.
const (
	ItemDoc      = "doc"
	ItemCategory = "category"
)

// SidebarItem is a doc link or a category grouping the docs of one directory.
type SidebarItem struct {
	Type      string        `json:"type"`
	ID        string        `json:"id,omitempty"`
	Label     string        `json:"label"`
	Permalink string        `json:"permalink,omitempty"`
	Position  int           `json:"position"`
	Items     []SidebarItem `json:"items,omitempty"`
}

// buildSidebar groups docs by directory. Items are ordered by position, then
// label. A category's position is the lowest position among its items.
func buildSidebar(docs []Doc) []SidebarItem {
	root := &sidebarNode{children: map[string]*sidebarNode{}}
	for _, doc := range docs {
		node := root
		if dir := path.Dir(doc.ID); dir != "." {
			for _, seg := range strings.Split(dir, "/") {
				node = node.child(seg)
			}
		}
		node.docs = append(node.docs, SidebarItem{
			Type:      ItemDoc,
			ID:        doc.ID,
			Label:     doc.Label,
			Permalink: doc.Permalink,
			Position:  doc.Position,
		})
	}
	return root.items()
}

type sidebarNode struct {
	name     string
	docs     []SidebarItem
	children map[string]*sidebarNode
}

func (n *sidebarNode) child(name string) *sidebarNode {
	c, ok := n.children[name]
	if !ok {
		c = &sidebarNode{name: name, children: map[string]*sidebarNode{}}
		n.children[name] = c
	}
	return c
}

func (n *sidebarNode) items() []SidebarItem {
	items := append([]SidebarItem{}, n.docs...)
	for _, c := range n.children {
		sub := c.items()
		category := SidebarItem{
			Type:  ItemCategory,
			Label: labelFromName(c.name),
			Items: sub,
		}
		if len(sub) > 0 {
			category.Position = slices.MinFunc(sub, comparePosition).Position
		}
		items = append(items, category)
	}
	slices.SortStableFunc(items, func(a, b SidebarItem) int {
		if c := comparePosition(a, b); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return items
}

func comparePosition(a, b SidebarItem) int {
	return cmp.Compare(a.Position, b.Position)
}

// labelFromName turns a file or directory name such as "getting-started"
// into "Getting Started". Casers are stateful, so each call builds its own.
func labelFromName(name string) string {
	name = strings.NewReplacer("-", " ", "_", " ").Replace(name)
	return cases.Title(language.English).String(strings.Join(strings.Fields(name), " "))
}

// createJSON serializes v and hands it to the host as a data module.
func createJSON(actions plugin.Actions, name string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", derrors.WrapError(err, derrors.CategoryInternal, "encode data module").
			WithContext("name", name).
			Build()
	}
	p, err := actions.CreateData(name, data)
	if err != nil {
		return "", fmt.Errorf("create data %s: %w", name, err)
	}
	return p, nil
}
