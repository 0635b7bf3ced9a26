package outwriter

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/huangsam/monoscope/internal/contract"
	"github.com/huangsam/monoscope/schema"
)

//go:embed templates/page.html.tmpl
var templateFS embed.FS

//go:embed assets
var assetsFS embed.FS

const (
	pageTemplate = "page.html.tmpl"
	assetsDir    = "assets"
	reportJSON   = "report.json"
	reportHTML   = "index.html"
)

var pageTmpl = template.Must(template.New(pageTemplate).Funcs(template.FuncMap{
	"f2": func(v float64) string {
		fmtFloat, _ := createFormatters(2)
		return fmtFloat(v)
	},
	"label": func(s schema.Summary) string {
		if s.Files == 0 {
			return "-"
		}
		return contract.GetPlainLabel(s.AverageMaintainability)
	},
	"lower": strings.ToLower,
}).ParseFS(templateFS, "templates/"+pageTemplate))

// FileEmitter writes a JSON and HTML report at every level of the tree:
//
//	<root>/report.json, index.html
//	<root>/<owner>/report.json, index.html
//	<root>/<owner>/<category>/<module>/report.json, index.html
//
// The stylesheet bundle is copied to <root>/assets.
type FileEmitter struct {
	Root string
}

var _ contract.Emitter = &FileEmitter{} // Compile-time check

// Name implements contract.Emitter.
func (e *FileEmitter) Name() string { return "files" }

// Emit implements contract.Emitter.
func (e *FileEmitter) Emit(ctx context.Context, view schema.TreeView) error {
	if err := copyAssets(filepath.Join(e.Root, assetsDir)); err != nil {
		return fmt.Errorf("failed to copy report assets: %w", err)
	}

	var leaves int
	for _, o := range view.Owners {
		ownerDir := filepath.Join(e.Root, contract.PathSegment(o.Owner))
		for _, c := range o.Categories {
			segments := moduleSegments(c)
			for _, m := range c.Modules {
				if err := ctx.Err(); err != nil {
					return err
				}
				dir := filepath.Join(ownerDir, string(c.Category), segments[m.Module.Dir])
				if err := writeReport(dir, moduleDoc(o.Owner, c.Category, m), modulePage(o.Owner, c.Category, m)); err != nil {
					return err
				}
				leaves++
			}
		}
		if err := writeReport(ownerDir, ownerDoc(o), ownerPage(o)); err != nil {
			return err
		}
	}
	if err := writeReport(e.Root, indexDoc(view), indexPage(view)); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "💾 Wrote %d module reports to %s\n", leaves, e.Root)
	return nil
}

// moduleSegments maps each module Dir of the category to its report directory.
func moduleSegments(c schema.CategoryView) map[string]string {
	refs := make([]schema.ModuleRef, len(c.Modules))
	for i, m := range c.Modules {
		refs[i] = m.Module
	}
	return schema.UniqueSegments(refs)
}

// writeReport writes the JSON document and the rendered page into dir.
func writeReport(dir string, doc any, p page) error {
	if err := writeWithFile(filepath.Join(dir, reportJSON), func(w io.Writer) error {
		return writeJSON(w, doc)
	}, ""); err != nil {
		return err
	}
	return writeWithFile(filepath.Join(dir, reportHTML), func(w io.Writer) error {
		return pageTmpl.ExecuteTemplate(w, pageTemplate, p)
	}, "")
}

// copyAssets mirrors the embedded bundle into dst.
func copyAssets(dst string) error {
	return fs.WalkDir(assetsFS, assetsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(assetsDir, filepath.FromSlash(path))
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		data, err := assetsFS.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// --- JSON documents ---

type moduleReport struct {
	Owner    string           `json:"owner"`
	Category schema.Category  `json:"category"`
	Module   schema.ModuleRef `json:"module"`
	Summary  schema.Summary   `json:"summary"`
	Failed   bool             `json:"failed"`
	Error    string           `json:"error,omitempty"`
	Report   schema.Report    `json:"report"`
}

type ownerReport struct {
	Owner      string           `json:"owner"`
	Summary    schema.Summary   `json:"summary"`
	Categories []categoryReport `json:"categories"`
}

type categoryReport struct {
	Category schema.Category `json:"category"`
	Summary  schema.Summary  `json:"summary"`
	Modules  []moduleEntry   `json:"modules"`
}

type moduleEntry struct {
	Module  schema.ModuleRef `json:"module"`
	Summary schema.Summary   `json:"summary"`
	Failed  bool             `json:"failed"`
	Error   string           `json:"error,omitempty"`
}

type indexReport struct {
	Summary schema.Summary `json:"summary"`
	Owners  []ownerEntry   `json:"owners"`
}

type ownerEntry struct {
	Owner   string         `json:"owner"`
	Summary schema.Summary `json:"summary"`
}

func moduleDoc(owner string, category schema.Category, m schema.ModuleView) moduleReport {
	report := m.Report
	if report == nil {
		report = schema.Report{}
	}
	return moduleReport{
		Owner:    owner,
		Category: category,
		Module:   m.Module,
		Summary:  m.Summary,
		Failed:   m.Failed,
		Error:    m.Error,
		Report:   report,
	}
}

// ownerDoc leaves raw records out; they live in the module documents.
func ownerDoc(o schema.OwnerView) ownerReport {
	doc := ownerReport{Owner: o.Owner, Summary: o.Summary, Categories: []categoryReport{}}
	for _, c := range o.Categories {
		cr := categoryReport{Category: c.Category, Summary: c.Summary, Modules: []moduleEntry{}}
		for _, m := range c.Modules {
			cr.Modules = append(cr.Modules, moduleEntry{Module: m.Module, Summary: m.Summary, Failed: m.Failed, Error: m.Error})
		}
		doc.Categories = append(doc.Categories, cr)
	}
	return doc
}

func indexDoc(view schema.TreeView) indexReport {
	doc := indexReport{Summary: view.Summary, Owners: []ownerEntry{}}
	for _, o := range view.Owners {
		doc.Owners = append(doc.Owners, ownerEntry{Owner: o.Owner, Summary: o.Summary})
	}
	return doc
}

// --- HTML pages ---

type page struct {
	Title     string
	Assets    string
	Crumbs    []link
	Summary   schema.Summary
	Error     string
	ChildKind string
	Children  []child
	Report    schema.Report
}

type link struct {
	Name string
	Href string
}

type child struct {
	Name    string
	Href    string
	Summary schema.Summary
	Failed  bool
}

// hrefOf joins escaped path segments into a relative link.
func hrefOf(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.Join(escaped, "/")
}

func indexPage(view schema.TreeView) page {
	p := page{Title: "All owners", Assets: assetsDir, Summary: view.Summary, ChildKind: "Owners"}
	for _, o := range view.Owners {
		p.Children = append(p.Children, child{
			Name:    o.Owner,
			Href:    hrefOf(contract.PathSegment(o.Owner), reportHTML),
			Summary: o.Summary,
		})
	}
	return p
}

func ownerPage(o schema.OwnerView) page {
	p := page{
		Title:     o.Owner,
		Assets:    "../" + assetsDir,
		Crumbs:    []link{{Name: "All owners", Href: "../" + reportHTML}},
		Summary:   o.Summary,
		ChildKind: "Modules",
	}
	for _, c := range o.Categories {
		segments := moduleSegments(c)
		for _, m := range c.Modules {
			p.Children = append(p.Children, child{
				Name:    fmt.Sprintf("%s (%s)", m.Module.Title, c.Category),
				Href:    hrefOf(string(c.Category), segments[m.Module.Dir], reportHTML),
				Summary: m.Summary,
				Failed:  m.Failed,
			})
		}
	}
	return p
}

func modulePage(owner string, category schema.Category, m schema.ModuleView) page {
	return page{
		Title:  fmt.Sprintf("%s (%s)", m.Module.Title, category),
		Assets: "../../../" + assetsDir,
		Crumbs: []link{
			{Name: "All owners", Href: "../../../" + reportHTML},
			{Name: owner, Href: "../../" + reportHTML},
		},
		Summary: m.Summary,
		Error:   m.Error,
		Report:  m.Report,
	}
}
