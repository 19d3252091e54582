package contentdocs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/inful/mdfp"
	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"gopkg.in/yaml.v3"

	derrors "git.home.luguber.info/inful/multidocs/internal/foundation/errors"
	"git.home.luguber.info/inful/multidocs/internal/logfields"
)

// ErrMissingClosingDelimiter indicates a document opened a YAML frontmatter
// block but never closed it.
var ErrMissingClosingDelimiter = errors.New("yaml frontmatter start delimiter found but closing delimiter is missing")

// numberPrefix matches ordering prefixes such as "01-" or "2_".
var numberPrefix = regexp.MustCompile(`^(\d+)[-_.]`)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func (p *Plugin) loadDocs(ctx context.Context) ([]Doc, error) {
	var docs []Doc
	err := filepath.WalkDir(p.docsDir, func(full string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if full != p.docsDir && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !slices.Contains(p.extensions, strings.ToLower(filepath.Ext(name))) {
			return nil
		}

		rel, err := filepath.Rel(p.docsDir, full)
		if err != nil {
			return err
		}
		doc, ok, err := p.loadDoc(full, filepath.ToSlash(rel))
		if err != nil {
			return derrors.WrapError(err, derrors.CategoryBuild, "load document").
				WithContext(logfields.KeyPath, full).
				Build()
		}
		if ok {
			docs = append(docs, doc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if dup := firstDuplicatePermalink(docs); dup != "" {
		return nil, derrors.ValidationError(fmt.Sprintf("duplicate permalink %s", dup)).
			WithContext(logfields.KeyPath, p.docsDir).
			Build()
	}
	return docs, nil
}

// loadDoc parses one file. ok is false for drafts that are not shown.
func (p *Plugin) loadDoc(full, rel string) (Doc, bool, error) {
	raw, err := os.ReadFile(full)
	if err != nil {
		return Doc{}, false, err
	}
	fmRaw, body, err := splitFrontmatter(raw)
	if err != nil {
		return Doc{}, false, err
	}
	fields, err := parseFrontmatter(fmRaw)
	if err != nil {
		return Doc{}, false, fmt.Errorf("parse frontmatter: %w", err)
	}
	if draft, _ := fields["draft"].(bool); draft && !p.showDrafts {
		return Doc{}, false, nil
	}

	id, position := docID(rel)
	if v, ok := fields["id"].(string); ok && v != "" {
		id = path.Join(path.Dir(id), v)
	}
	if v, ok := intField(fields, "sidebar_position"); ok {
		position = v
	}

	root := markdown.Parser().Parse(text.NewReader(body))
	var rendered bytes.Buffer
	if err := markdown.Renderer().Render(&rendered, body, root); err != nil {
		return Doc{}, false, fmt.Errorf("render markdown: %w", err)
	}

	title, _ := fields["title"].(string)
	if title == "" {
		title = firstHeading(root, body)
	}
	if title == "" {
		title = labelFromName(path.Base(id))
	}
	label, _ := fields["sidebar_label"].(string)
	if label == "" {
		label = title
	}
	description, _ := fields["description"].(string)
	if description == "" {
		description = excerpt(rendered.String())
	}

	permalink := joinURL(p.baseURL, p.routeBasePath, docPath(id))
	if slug, ok := fields["slug"].(string); ok && slug != "" {
		permalink = joinURL(p.baseURL, p.routeBasePath, slug)
	}

	fp, err := fingerprint(fields, body)
	if err != nil {
		return Doc{}, false, fmt.Errorf("fingerprint: %w", err)
	}

	return Doc{
		ID:          id,
		Title:       title,
		Description: description,
		Permalink:   permalink,
		Source:      rel,
		Fingerprint: fp,
		Position:    position,
		Label:       label,
		Frontmatter: fields,
		HTML:        rendered.String(),
	}, true, nil
}

// splitFrontmatter separates a leading `---` YAML block from the Markdown body.
func splitFrontmatter(content []byte) (frontmatter, body []byte, err error) {
	normalized := bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return nil, normalized, nil
	}
	rest := normalized[len("---\n"):]
	if bytes.HasPrefix(rest, []byte("---\n")) {
		return nil, rest[len("---\n"):], nil
	}
	idx := bytes.Index(rest, []byte("\n---\n"))
	if idx < 0 {
		if bytes.HasSuffix(rest, []byte("\n---")) {
			return rest[:len(rest)-len("---")], nil, nil
		}
		return nil, nil, ErrMissingClosingDelimiter
	}
	return rest[:idx+1], rest[idx+len("\n---\n"):], nil
}

func parseFrontmatter(raw []byte) (map[string]any, error) {
	fields := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}
	return fields, nil
}

// fingerprint hashes the canonical frontmatter and the body with mdfp.
// Fields that change without the content changing are excluded, and the
// remaining fields are serialized with sorted keys.
func fingerprint(fields map[string]any, body []byte) (string, error) {
	forHash := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == mdfp.FingerprintField || k == "lastmod" {
			continue
		}
		forHash[k] = v
	}

	frontmatter := ""
	if len(forHash) > 0 {
		serialized, err := yaml.Marshal(forHash)
		if err != nil {
			return "", err
		}
		frontmatter = strings.TrimSuffix(string(serialized), "\n")
	}
	return mdfp.CalculateFingerprintFromParts(frontmatter, string(body)), nil
}

// docID strips the extension and ordering prefixes from a slash-separated
// relative path. The file's own prefix, if any, becomes its position.
func docID(rel string) (string, int) {
	rel = strings.TrimSuffix(rel, path.Ext(rel))
	segments := strings.Split(rel, "/")
	position := 0
	for i, seg := range segments {
		m := numberPrefix.FindStringSubmatch(seg)
		if m == nil {
			continue
		}
		segments[i] = seg[len(m[0]):]
		if i == len(segments)-1 {
			position, _ = strconv.Atoi(m[1])
		}
	}
	id := strings.Join(segments, "/")
	if base := path.Base(id); strings.EqualFold(base, "readme") {
		id = path.Join(path.Dir(id), "index")
	}
	return strings.TrimPrefix(id, "./"), position
}

// docPath maps a doc ID to its URL path below the route base path. Index
// documents take their directory's path.
func docPath(id string) string {
	if path.Base(id) != "index" {
		return id
	}
	if dir := path.Dir(id); dir != "." {
		return dir
	}
	return ""
}

func intField(fields map[string]any, key string) (int, bool) {
	switch v := fields[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	case string:
		n, err := strconv.Atoi(v)
		return n, err == nil
	default:
		return 0, false
	}
}

// firstHeading returns the text of the first level-1 heading.
func firstHeading(root gmast.Node, source []byte) string {
	var title string
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level != 1 {
			return gmast.WalkContinue, nil
		}
		title = strings.TrimSpace(inlineText(h, source))
		return gmast.WalkStop, nil
	})
	return title
}

func inlineText(n gmast.Node, source []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *gmast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *gmast.String:
			b.Write(t.Value)
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}

// excerpt returns the text of the first paragraph in rendered HTML.
func excerpt(rendered string) string {
	doc, err := html.Parse(strings.NewReader(rendered))
	if err != nil {
		return ""
	}
	p := findElement(doc, atom.P)
	if p == nil {
		return ""
	}
	return strings.Join(strings.Fields(nodeText(p)), " ")
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

func firstDuplicatePermalink(docs []Doc) string {
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.Permalink]; ok {
			return d.Permalink
		}
		seen[d.Permalink] = struct{}{}
	}
	return ""
}

// joinURL joins URL path segments with single slashes and a leading slash.
func joinURL(parts ...string) string {
	var segs []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			segs = append(segs, p)
		}
	}
	return "/" + strings.Join(segs, "/")
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

func sanitizeName(s string) string {
	return unsafeName.ReplaceAllString(s, "-")
}
