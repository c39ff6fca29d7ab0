// Package report renders the static HTML report: overview, journal, group
// and per-author pages, the coauthorship networks, their JSON data and a
// BibTeX file of the publication set.
package report

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/export"
	"github.com/scholarlyreport/scholarly/internal/logging"
	"github.com/scholarlyreport/scholarly/internal/network"
	"github.com/scholarlyreport/scholarly/internal/stats"
	"github.com/scholarlyreport/scholarly/internal/storage"
	"github.com/scholarlyreport/scholarly/internal/store"
	"github.com/scholarlyreport/scholarly/internal/viz"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/style.css
var styleCSS []byte

// pageTemplates is parsed at init time to fail fast on template errors.
var pageTemplates *template.Template

func init() {
	pageTemplates = template.Must(template.New("report").ParseFS(templateFS, "templates/*.html"))
}

// Colors are the theme colours of the generated pages, as CSS hex values.
type Colors struct {
	Primary    string `json:"primary"`
	Accent     string `json:"accent"`
	Link       string `json:"link"`
	Background string `json:"background"`
}

// DefaultColors returns the default theme.
func DefaultColors() Colors {
	return Colors{
		Primary:    "#343a40",
		Accent:     "#007bff",
		Link:       "#3b5aff",
		Background: "#f8f9fa",
	}
}

// Options configures a Generator.
type Options struct {
	OutputDir     string
	InstituteName string
	Period        stats.Period
	Colors        Colors

	// Now is the clock for the footer date; nil means time.Now.
	Now func() time.Time
}

// Result describes a finished report.
type Result struct {
	OutputDir    string   `json:"output_dir"`
	Authors      int      `json:"authors"`
	Groups       int      `json:"groups"`
	Publications int      `json:"publications"`
	Edges        int      `json:"edges"`
	Files        []string `json:"files"`
}

// Generator writes the report for a populated store.
type Generator struct {
	opts   Options
	logger *zap.Logger
}

// New returns a Generator. Empty colour fields take the default theme.
func New(opts Options, logger *zap.Logger) *Generator {
	def := DefaultColors()
	if opts.Colors.Primary == "" {
		opts.Colors.Primary = def.Primary
	}
	if opts.Colors.Accent == "" {
		opts.Colors.Accent = def.Accent
	}
	if opts.Colors.Link == "" {
		opts.Colors.Link = def.Link
	}
	if opts.Colors.Background == "" {
		opts.Colors.Background = def.Background
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Generator{opts: opts, logger: logging.OrNop(logger)}
}

// Generate renders every page and data file into the output directory.
// Existing files are replaced one by one.
func (g *Generator) Generate(s *store.Store) (*Result, error) {
	if g.opts.OutputDir == "" {
		return nil, fmt.Errorf("output directory not set")
	}

	authorGraph := network.Build(s)
	groupGraph := network.BuildGroups(s)
	groups := s.Registry().Groups()
	slugs := groupSlugs(groups)

	res := &Result{
		OutputDir:    g.opts.OutputDir,
		Authors:      s.Registry().Len(),
		Groups:       len(groups),
		Publications: len(stats.Filter(s.Publications(), g.opts.Period)),
		Edges:        len(authorGraph.Links),
	}
	meta := g.meta(len(groups) > 0)

	if err := g.write(res, "css/style.css", styleCSS); err != nil {
		return nil, err
	}

	if err := g.writeJSON(res, "data/network.json", authorGraph); err != nil {
		return nil, err
	}
	if err := g.writeJSON(res, "data/group_network.json", groupGraph); err != nil {
		return nil, err
	}
	pubs := stats.Filter(s.Publications(), g.opts.Period)
	if err := g.writeJSON(res, "data/journals.json", stats.JournalRanking(pubs)); err != nil {
		return nil, err
	}
	if err := g.write(res, "data/publications.bib", []byte(export.ToBibTeXList(pubs))); err != nil {
		return nil, err
	}

	authorNet := viz.FromNetwork(authorGraph, viz.NodeAuthor, func(id string) string {
		return "authors/" + id + ".html"
	})
	if err := g.writeNetwork(res, "network.html", authorNet, "Co-Authorship Network"); err != nil {
		return nil, err
	}
	if len(groups) > 0 {
		groupNet := viz.FromNetwork(groupGraph, viz.NodeGroup, func(id string) string {
			return "groups/" + slugs[id] + ".html"
		})
		if err := g.writeNetwork(res, "group_network.html", groupNet, "Research Group Network"); err != nil {
			return nil, err
		}
	}

	index := buildIndex(s, g.opts.Period)
	index.Page = meta.with("Overview", "index", ".")
	if err := g.render(res, "index.html", "index", index); err != nil {
		return nil, err
	}

	journals := journalsPage{Journals: stats.JournalRanking(pubs)}
	journals.Page = meta.with("Journals", "journals", ".")
	if err := g.render(res, "journals.html", "journals", journals); err != nil {
		return nil, err
	}

	for _, a := range s.Authors() {
		page := buildAuthorPage(s, authorGraph, a.ID, g.opts.Period)
		if group, ok := a.Group(); ok {
			page.GroupSlug = slugs[group]
		}
		page.Page = meta.with(a.Name(), "", "..")
		if err := g.render(res, "authors/"+a.ID+".html", "author", page); err != nil {
			return nil, err
		}
	}

	if len(groups) > 0 {
		overview := buildGroupsPage(s, groups, slugs, g.opts.Period)
		overview.Page = meta.with("Research Groups", "groups", ".")
		if err := g.render(res, "groups.html", "groups", overview); err != nil {
			return nil, err
		}
		for _, grp := range groups {
			page := buildGroupPage(s, grp, g.opts.Period)
			page.Page = meta.with(grp.Name, "groups", "..")
			if err := g.render(res, "groups/"+slugs[grp.Name]+".html", "group", page); err != nil {
				return nil, err
			}
		}
	}

	g.logger.Info("report generated",
		zap.String("output_dir", g.opts.OutputDir),
		zap.Int("authors", res.Authors),
		zap.Int("groups", res.Groups),
		zap.Int("publications", res.Publications),
		zap.Int("files", len(res.Files)))
	return res, nil
}

func (g *Generator) meta(hasGroups bool) pageMeta {
	return pageMeta{
		Institute:   g.opts.InstituteName,
		Colors:      g.opts.Colors,
		Generated:   g.opts.Now().Format("January 2, 2006"),
		PeriodLabel: PeriodLabel(g.opts.Period),
		HasGroups:   hasGroups,
	}
}

func (g *Generator) render(res *Result, rel, name string, data any) error {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", rel, err)
	}
	return g.write(res, rel, buf.Bytes())
}

func (g *Generator) writeNetwork(res *Result, rel string, data *viz.GraphData, title string) error {
	opts := viz.DefaultOptions()
	opts.Title = title
	html, err := viz.GenerateHTML(data, opts)
	if err != nil {
		return fmt.Errorf("rendering %s: %w", rel, err)
	}
	return g.write(res, rel, []byte(html))
}

func (g *Generator) writeJSON(res *Result, rel string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", rel, err)
	}
	return g.write(res, rel, append(data, '\n'))
}

func (g *Generator) write(res *Result, rel string, data []byte) error {
	path := filepath.Join(g.opts.OutputDir, filepath.FromSlash(rel))
	if err := storage.WriteFile(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	g.logger.Debug("wrote report file", zap.String("path", rel), zap.Int("bytes", len(data)))
	res.Files = append(res.Files, rel)
	return nil
}

// PeriodLabel describes a period for page footers, "" when open.
func PeriodLabel(p stats.Period) string {
	switch {
	case p.MinYear != 0 && p.MaxYear != 0:
		return fmt.Sprintf("from %d to %d", p.MinYear, p.MaxYear)
	case p.MinYear != 0:
		return fmt.Sprintf("since %d", p.MinYear)
	case p.MaxYear != 0:
		return fmt.Sprintf("up to %d", p.MaxYear)
	default:
		return ""
	}
}
