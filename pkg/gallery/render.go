package gallery

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

//go:embed assets/index.tmpl
var indexTmpl string

//go:embed assets/view.tmpl
var viewTmpl string

//go:embed assets/style.css
var styleText string

// Render writes index.html and one view page per entry into g.OutDir.
func Render(g *Gallery) error {
	if err := writeIndex(g); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	if err := writeViews(g); err != nil {
		return fmt.Errorf("write views: %w", err)
	}

	return nil
}

func writeIndex(g *Gallery) error {
	klog.V(1).Infof("writing index with %d images ...", len(g.Entries))
	tmpl, err := template.New("index").Funcs(tmplFunctions()).Parse(indexTmpl)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	cell := 0
	for _, e := range g.Entries {
		cell = max(cell, e.Thumb.X, e.Thumb.Y)
	}

	data := struct {
		Title    string
		Gallery  *Gallery
		CellSize int
		Style    template.CSS
	}{
		Title:    g.Title,
		Gallery:  g,
		CellSize: cell,
		Style:    template.CSS(styleText),
	}

	return execute(tmpl, data, filepath.Join(g.OutDir, "index.html"))
}

func writeViews(g *Gallery) error {
	tmpl, err := template.New("view").Funcs(tmplFunctions()).Parse(viewTmpl)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	for idx, e := range g.Entries {
		data := struct {
			Title string
			Entry *Entry
			Prev  *Entry
			Next  *Entry
			Style template.CSS
		}{
			Title: g.Title,
			Entry: e,
			Style: template.CSS(styleText),
		}
		if idx > 0 {
			data.Prev = g.Entries[idx-1]
		}
		if idx < len(g.Entries)-1 {
			data.Next = g.Entries[idx+1]
		}

		if err := execute(tmpl, data, filepath.Join(g.OutDir, filepath.FromSlash(e.ViewRel))); err != nil {
			return fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return nil
}

func execute(tmpl *template.Template, data any, dest string) error {
	var tpl bytes.Buffer
	if err := tmpl.Execute(&tpl, data); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	klog.V(1).Infof("writing %s", dest)
	return os.WriteFile(dest, tpl.Bytes(), 0o644)
}

// tmplFunctions are functions available to our templates.
func tmplFunctions() template.FuncMap {
	return template.FuncMap{
		"URLPath": func(p string) string {
			parts := strings.Split(p, "/")
			for i, s := range parts {
				parts[i] = url.PathEscape(s)
			}
			return strings.Join(parts, "/")
		},
		"BasePath": path.Base,
	}
}
