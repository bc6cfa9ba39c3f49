// Package pageadapter renders the landing page from markdown with a yaml
// frontmatter block into an html layout.
package pageadapter

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"

	_ "embed"

	"github.com/spf13/afero"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	defaultTitle = "Video Downloader"
)

//go:embed index.md
var defaultPage []byte

//go:embed layout.html
var defaultLayout string

type Frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
}

type PageContext struct {
	Title       string
	Description string
	Content     template.HTML
}

type pageAdapter struct {
	fs       afero.Fs
	fileName string
	md       goldmark.Markdown
	layout   *template.Template
	log      *slog.Logger
}

// NewPageAdapter renders fileName from fs when it is set, the built in page
// otherwise. The file is read on every render so it can be edited in place.
func NewPageAdapter(fs afero.Fs, fileName string, log *slog.Logger) (*pageAdapter, error) {
	layout, err := template.New("layout").Parse(defaultLayout)
	if err != nil {
		return nil, fmt.Errorf("cannot parse layout: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			&frontmatter.Extender{},
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &pageAdapter{
		fs:       fs,
		fileName: fileName,
		md:       md,
		layout:   layout,
		log:      log.With(slog.String("item", "PageAdapter")),
	}, nil
}

func (a *pageAdapter) GetPage(_ context.Context) (string, error) {
	src, err := a.source()
	if err != nil {
		return "", err
	}

	pc := parser.NewContext()

	var buf bytes.Buffer
	if err := a.md.Convert(src, &buf, parser.WithContext(pc)); err != nil {
		return "", fmt.Errorf("cannot convert markdown: %w", err)
	}

	page := &PageContext{
		Title:   defaultTitle,
		Content: template.HTML(buf.String()),
	}

	if data := frontmatter.Get(pc); data != nil {
		var fm Frontmatter
		if err := data.Decode(&fm); err != nil {
			return "", fmt.Errorf("cannot decode frontmatter: %w", err)
		}

		if fm.Title != "" {
			page.Title = fm.Title
		}
		page.Description = fm.Description
	}

	var out bytes.Buffer
	if err := a.layout.Execute(&out, page); err != nil {
		return "", fmt.Errorf("cannot execute layout: %w", err)
	}

	return out.String(), nil
}

func (a *pageAdapter) source() ([]byte, error) {
	if a.fileName == "" {
		return defaultPage, nil
	}

	data, err := afero.ReadFile(a.fs, a.fileName)
	if err != nil {
		return nil, fmt.Errorf("cannot read page file %s: %w", a.fileName, err)
	}

	return data, nil
}
