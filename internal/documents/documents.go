// Package documents holds the read-only catalog of policy documents that can
// be sent for signature.
package documents

import (
	"bufio"
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/parisxmas/OxiDB/OxiSign/internal/models"
)

//go:embed catalog/*.md
var builtin embed.FS

var ErrNotFound = errors.New("document not found")

var idPattern = regexp.MustCompile(`^[a-z_]+$`)

// ValidID reports whether id has the shape of a document id.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

type frontMatter struct {
	Title string `yaml:"title"`
}

// Catalog is immutable after Load and safe for concurrent use.
type Catalog struct {
	docs map[string]*models.Document
	ids  []string
}

// Load reads every <id>.md file from dir, or the built-in catalog when dir
// is empty.
func Load(dir string) (*Catalog, error) {
	var fsys fs.FS
	root := "catalog"
	if dir != "" {
		fsys = os.DirFS(dir)
		root = "."
	} else {
		fsys = builtin
	}
	return LoadFS(fsys, root)
}

func LoadFS(fsys fs.FS, root string) (*Catalog, error) {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	c := &Catalog{docs: make(map[string]*models.Document)}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".md")
		if !ValidID(id) {
			continue
		}
		raw, err := fs.ReadFile(fsys, path.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		doc, err := parse(md, id, raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", e.Name(), err)
		}
		c.docs[id] = doc
		c.ids = append(c.ids, id)
	}
	if len(c.ids) == 0 {
		return nil, errors.New("catalog is empty")
	}
	sort.Strings(c.ids)
	return c, nil
}

func parse(md goldmark.Markdown, id string, raw []byte) (*models.Document, error) {
	meta, body, err := splitFrontMatter(raw)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(meta.Title)
	if title == "" {
		first, _, _ := strings.Cut(strings.TrimLeft(body, "\n"), "\n")
		title = strings.TrimSpace(strings.Trim(first, "# "))
	}
	if title == "" {
		title = DisplayName(id)
	}

	var html bytes.Buffer
	if err := md.Convert([]byte(body), &html); err != nil {
		return nil, err
	}

	return &models.Document{
		ID:      id,
		Name:    DisplayName(id),
		Title:   title,
		Content: body,
		HTML:    html.String(),
	}, nil
}

// splitFrontMatter separates an optional leading "---" YAML block from the
// markdown body.
func splitFrontMatter(raw []byte) (frontMatter, string, error) {
	var meta frontMatter
	text := strings.ReplaceAll(string(raw), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return meta, text, nil
	}

	sc := bufio.NewScanner(strings.NewReader(text[4:]))
	var yml strings.Builder
	consumed := 4
	closed := false
	for sc.Scan() {
		line := sc.Text()
		consumed += len(line) + 1
		if strings.TrimSpace(line) == "---" {
			closed = true
			break
		}
		yml.WriteString(line)
		yml.WriteByte('\n')
	}
	if !closed {
		return meta, "", errors.New("unterminated front matter")
	}
	if err := yaml.Unmarshal([]byte(yml.String()), &meta); err != nil {
		return meta, "", fmt.Errorf("invalid front matter: %w", err)
	}
	if consumed > len(text) {
		consumed = len(text)
	}
	return meta, text[consumed:], nil
}

// DisplayName turns company_policy into "Company Policy".
func DisplayName(id string) string {
	words := strings.Fields(strings.ReplaceAll(id, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func (c *Catalog) Get(id string) (*models.Document, error) {
	doc, ok := c.docs[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	cp := *doc
	return &cp, nil
}

func (c *Catalog) List() []models.DocumentSummary {
	out := make([]models.DocumentSummary, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.docs[id].Summary())
	}
	return out
}
