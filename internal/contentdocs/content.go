package contentdocs

// LoadedContent is what one content-docs instance loads.
type LoadedContent struct {
	InstanceID    string        `json:"instanceId"`
	RouteBasePath string        `json:"routeBasePath"`
	Docs          []Doc         `json:"docs"`
	Sidebar       []SidebarItem `json:"sidebar"`
}

// Doc is one rendered document.
type Doc struct {
	// ID is the slash-separated path relative to the docs directory, without
	// extension and with ordering prefixes removed (e.g. "guides/install").
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Permalink   string         `json:"permalink"`
	Source      string         `json:"source"`
	Fingerprint string         `json:"fingerprint"`
	Position    int            `json:"sidebarPosition"`
	Label       string         `json:"sidebarLabel"`
	Frontmatter map[string]any `json:"frontMatter,omitempty"`
	HTML        string         `json:"html"`
}

// Doc looks up a document by ID.
func (c *LoadedContent) Doc(id string) (Doc, bool) {
	for _, d := range c.Docs {
		if d.ID == id {
			return d, true
		}
	}
	return Doc{}, false
}
