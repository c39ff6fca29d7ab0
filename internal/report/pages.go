package report

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/scholarlyreport/scholarly/internal/name"
	"github.com/scholarlyreport/scholarly/internal/network"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/source"
	"github.com/scholarlyreport/scholarly/internal/stats"
	"github.com/scholarlyreport/scholarly/internal/store"
)

// TopJournals is the number of venues listed on author and group pages.
const TopJournals = 10

// pageMeta is shared by the header and footer of every page.
type pageMeta struct {
	Title       string
	Prefix      string // Relative path from the page to the report root
	Institute   string
	Active      string
	Generated   string
	PeriodLabel string
	Colors      Colors
	HasGroups   bool
}

func (m pageMeta) with(title, active, prefix string) pageMeta {
	m.Title = title
	m.Active = active
	m.Prefix = prefix
	return m
}

// chartData feeds the Chart.js year charts. Unknown years are left out.
type chartData struct {
	Labels       []int
	Publications []int
	Citations    []int
}

func yearChart(years []stats.YearCount) chartData {
	c := chartData{Labels: []int{}, Publications: []int{}, Citations: []int{}}
	for _, y := range years {
		if y.Year == 0 {
			continue
		}
		c.Labels = append(c.Labels, y.Year)
		c.Publications = append(c.Publications, y.Publications)
		c.Citations = append(c.Citations, y.Citations)
	}
	return c
}

type pubRow struct {
	Year      int
	Title     string
	URL       string
	Journal   string
	Citations int
}

// publicationRows orders pubs newest first, most cited first within a year.
func publicationRows(pubs []reference.Publication) []pubRow {
	sorted := append([]reference.Publication(nil), pubs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Year != sorted[j].Year {
			return sorted[i].Year > sorted[j].Year
		}
		return sorted[i].Citations > sorted[j].Citations
	})
	rows := make([]pubRow, 0, len(sorted))
	for _, p := range sorted {
		rows = append(rows, pubRow{
			Year:      p.Year,
			Title:     p.Title,
			URL:       p.URL,
			Journal:   p.Journal,
			Citations: p.Citations,
		})
	}
	return rows
}

func topJournals(pubs []reference.Publication) []stats.JournalStat {
	ranking := stats.JournalRanking(pubs)
	if len(ranking) > TopJournals {
		ranking = ranking[:TopJournals]
	}
	return ranking
}

// authorRow is one researcher in the overview and group member tables.
type authorRow struct {
	ID                string
	Name              string
	Publications      int
	Citations         int
	AvgCitations      float64
	HIndex            int
	LifetimeCitations int
	LifetimeHIndex    int
}

func newAuthorRow(a reference.Author, sum stats.Summary) authorRow {
	row := authorRow{
		ID:                a.ID,
		Name:              a.Name(),
		Publications:      sum.Publications,
		Citations:         sum.Citations,
		HIndex:            sum.HIndex,
		LifetimeCitations: a.LifetimeCitations,
		LifetimeHIndex:    a.LifetimeHIndex,
	}
	if sum.Publications > 0 {
		row.AvgCitations = float64(sum.Citations) / float64(sum.Publications)
	}
	return row
}

type indexPage struct {
	Page                pageMeta
	MinYear             int
	MaxYear             int
	Publications        int
	Citations           int
	Authors             int
	Chart               chartData
	CumulativeCitations []int
	AuthorRows          []authorRow
}

func buildIndex(s *store.Store, period stats.Period) indexPage {
	pubs := stats.Filter(s.Publications(), period)
	page := indexPage{
		Publications: len(pubs),
		Citations:    stats.Sum(stats.Citations(pubs)),
		Authors:      s.Registry().Len(),
		Chart:        yearChart(stats.YearlyCounts(pubs)),
	}
	page.MinYear, page.MaxYear = yearRange(pubs)

	running := 0
	page.CumulativeCitations = make([]int, 0, len(page.Chart.Citations))
	for _, c := range page.Chart.Citations {
		running += c
		page.CumulativeCitations = append(page.CumulativeCitations, running)
	}

	for _, a := range s.Authors() {
		sum, _ := stats.AuthorSummary(s, a.ID, period)
		page.AuthorRows = append(page.AuthorRows, newAuthorRow(a, sum))
	}
	sort.SliceStable(page.AuthorRows, func(i, j int) bool {
		return page.AuthorRows[i].LifetimeCitations > page.AuthorRows[j].LifetimeCitations
	})
	return page
}

// yearRange returns the earliest and latest known publication years.
func yearRange(pubs []reference.Publication) (first, last int) {
	for _, p := range pubs {
		if p.Year == 0 {
			continue
		}
		if first == 0 || p.Year < first {
			first = p.Year
		}
		if p.Year > last {
			last = p.Year
		}
	}
	return first, last
}

type positionRow struct {
	Position stats.Position
	Count    int
}

type coauthorRow struct {
	ID     string
	Name   string
	Shared int
}

type authorPage struct {
	Page         pageMeta
	Author       reference.Author
	Name         string
	Role         string
	Group        string
	GroupSlug    string
	ProfileURL   string
	Summary      stats.Summary
	Publications []pubRow
	Positions    []positionRow
	Coauthors    []coauthorRow
	Chart        chartData
	TopJournals  []stats.JournalStat
}

func buildAuthorPage(s *store.Store, g *network.Graph, authorID string, period stats.Period) authorPage {
	a, _ := s.Registry().Get(authorID)
	pubs := stats.Filter(s.AuthorPublications(authorID), period)
	sum, _ := stats.AuthorSummary(s, authorID, period)

	page := authorPage{
		Author:       a,
		Name:         a.Name(),
		ProfileURL:   ProfileURL(a.ID),
		Summary:      sum,
		Publications: publicationRows(pubs),
		Chart:        yearChart(sum.Years),
		TopJournals:  topJournals(pubs),
	}
	if a.Role != nil {
		page.Role = *a.Role
	}
	page.Group, _ = a.Group()

	for _, pos := range stats.Positions {
		if n := sum.Positions[pos]; n > 0 {
			page.Positions = append(page.Positions, positionRow{Position: pos, Count: n})
		}
	}

	for _, nb := range g.Neighbors(authorID) {
		row := coauthorRow{ID: nb.ID, Name: nb.ID, Shared: nb.Weight}
		if co, ok := s.Registry().Get(nb.ID); ok {
			row.Name = co.Name()
		}
		page.Coauthors = append(page.Coauthors, row)
	}
	return page
}

// ProfileURL links an author to their public profile.
func ProfileURL(scholarID string) string {
	return source.BaseURL + "/citations?hl=en&user=" + url.QueryEscape(scholarID)
}

type journalsPage struct {
	Page     pageMeta
	Journals []stats.JournalStat
}

type groupRow struct {
	Name         string
	Slug         string
	Members      int
	Publications int
	Citations    int
	HIndex       int
}

type groupsPage struct {
	Page   pageMeta
	Groups []groupRow
}

func buildGroupsPage(s *store.Store, groups []reference.ResearchGroup, slugs map[string]string, period stats.Period) groupsPage {
	var page groupsPage
	for _, grp := range groups {
		sum := stats.GroupSummary(s, grp, period)
		page.Groups = append(page.Groups, groupRow{
			Name:         grp.Name,
			Slug:         slugs[grp.Name],
			Members:      len(grp.MemberIDs),
			Publications: sum.Publications,
			Citations:    sum.Citations,
			HIndex:       sum.HIndex,
		})
	}
	return page
}

type groupPage struct {
	Page         pageMeta
	Name         string
	Summary      stats.Summary
	Members      []authorRow
	Chart        chartData
	Publications []pubRow
	TopJournals  []stats.JournalStat
}

func buildGroupPage(s *store.Store, grp reference.ResearchGroup, period stats.Period) groupPage {
	pubs := stats.GroupPublications(s, grp, period)
	sum := stats.GroupSummary(s, grp, period)
	page := groupPage{
		Name:         grp.Name,
		Summary:      sum,
		Chart:        yearChart(sum.Years),
		Publications: publicationRows(pubs),
		TopJournals:  topJournals(pubs),
	}
	for _, id := range grp.MemberIDs {
		a, ok := s.Registry().Get(id)
		if !ok {
			continue
		}
		msum, _ := stats.AuthorSummary(s, id, period)
		page.Members = append(page.Members, newAuthorRow(a, msum))
	}
	sort.SliceStable(page.Members, func(i, j int) bool {
		return page.Members[i].Publications > page.Members[j].Publications
	})
	return page
}

// Slug turns a group name into a file name: "Ökologie & Evolution" becomes
// "okologie-evolution".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name.StripDiacritics(s)) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "group"
	}
	return out
}

// groupSlugs assigns each group a unique slug, suffixing repeats.
func groupSlugs(groups []reference.ResearchGroup) map[string]string {
	slugs := make(map[string]string, len(groups))
	used := make(map[string]int)
	for _, grp := range groups {
		base := Slug(grp.Name)
		slug := base
		if n := used[base]; n > 0 {
			slug = base + "-" + strconv.Itoa(n+1)
		}
		used[base]++
		slugs[grp.Name] = slug
	}
	return slugs
}
