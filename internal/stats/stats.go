// Package stats computes the per-author, per-group and per-journal figures
// shown in the report.
package stats

import (
	"math"
	"sort"

	"github.com/scholarlyreport/scholarly/internal/author"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/store"
)

// Period restricts publications to a year range. A zero bound is open.
type Period struct {
	MinYear int `json:"min_year,omitempty"`
	MaxYear int `json:"max_year,omitempty"`
}

// Contains reports whether year falls inside the period.
func (p Period) Contains(year int) bool {
	if p.MinYear != 0 && year < p.MinYear {
		return false
	}
	if p.MaxYear != 0 && year > p.MaxYear {
		return false
	}
	return true
}

// IsOpen reports whether the period has no bounds.
func (p Period) IsOpen() bool {
	return p.MinYear == 0 && p.MaxYear == 0
}

// Filter returns the publications inside the period, preserving order.
func Filter(pubs []reference.Publication, period Period) []reference.Publication {
	if period.IsOpen() {
		return pubs
	}
	out := make([]reference.Publication, 0, len(pubs))
	for _, p := range pubs {
		if period.Contains(p.Year) {
			out = append(out, p)
		}
	}
	return out
}

// Position is where an author appears in a publication's author list.
type Position string

const (
	Solo   Position = "solo"
	First  Position = "first"
	Last   Position = "last"
	Middle Position = "middle"
)

// Positions lists every position in display order.
var Positions = []Position{Solo, First, Middle, Last}

// PositionOf classifies the author's place in the publication's author list
// using strict name matching. It reports false when the author cannot be
// located.
func PositionOf(reg *author.Registry, authorID string, pub reference.Publication) (Position, bool) {
	idx, ok := reg.FindIndex(authorID, pub.AuthorList)
	if !ok {
		return "", false
	}
	n := len(pub.AuthorList)
	switch {
	case n == 1:
		return Solo, true
	case idx == 0:
		return First, true
	case idx == n-1:
		return Last, true
	default:
		return Middle, true
	}
}

// PositionDistribution counts the author's positions across pubs.
// Publications where the author cannot be located are skipped.
func PositionDistribution(reg *author.Registry, authorID string, pubs []reference.Publication) map[Position]int {
	dist := make(map[Position]int)
	for _, p := range pubs {
		if pos, ok := PositionOf(reg, authorID, p); ok {
			dist[pos]++
		}
	}
	return dist
}

// HIndex returns the largest h such that h publications have at least h
// citations each.
func HIndex(citations []int) int {
	sorted := append([]int(nil), citations...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	h := 0
	for i, c := range sorted {
		if c >= i+1 {
			h = i + 1
		} else {
			break
		}
	}
	return h
}

// I10Index returns the number of publications with at least 10 citations.
func I10Index(citations []int) int {
	n := 0
	for _, c := range citations {
		if c >= 10 {
			n++
		}
	}
	return n
}

// Citations returns the citation counts of pubs.
func Citations(pubs []reference.Publication) []int {
	out := make([]int, len(pubs))
	for i, p := range pubs {
		out[i] = p.Citations
	}
	return out
}

// Sum adds up counts.
func Sum(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

// JournalStat is one row of the journal ranking.
type JournalStat struct {
	Journal      string  `json:"journal"`
	Publications int     `json:"publications"`
	Citations    int     `json:"citations"`
	AvgCitations float64 `json:"avg_citations"`
}

// JournalRanking groups pubs by normalized journal, ordered by publication
// count descending, then journal name.
func JournalRanking(pubs []reference.Publication) []JournalStat {
	byJournal := make(map[string]*JournalStat)
	for _, p := range pubs {
		js, ok := byJournal[p.Journal]
		if !ok {
			js = &JournalStat{Journal: p.Journal}
			byJournal[p.Journal] = js
		}
		js.Publications++
		js.Citations += p.Citations
	}

	out := make([]JournalStat, 0, len(byJournal))
	for _, js := range byJournal {
		js.AvgCitations = round1(float64(js.Citations) / float64(js.Publications))
		out = append(out, *js)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Publications != out[j].Publications {
			return out[i].Publications > out[j].Publications
		}
		return out[i].Journal < out[j].Journal
	})
	return out
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// YearCount aggregates one publication year.
type YearCount struct {
	Year         int `json:"year"`
	Publications int `json:"publications"`
	Citations    int `json:"citations"`
}

// YearlyCounts returns publication and citation totals per year, oldest
// first.
func YearlyCounts(pubs []reference.Publication) []YearCount {
	byYear := make(map[int]*YearCount)
	for _, p := range pubs {
		yc, ok := byYear[p.Year]
		if !ok {
			yc = &YearCount{Year: p.Year}
			byYear[p.Year] = yc
		}
		yc.Publications++
		yc.Citations += p.Citations
	}
	out := make([]YearCount, 0, len(byYear))
	for _, yc := range byYear {
		out = append(out, *yc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// Summary holds the figures for one author or group over a period.
type Summary struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Publications int              `json:"publications"`
	Citations    int              `json:"citations"`
	HIndex       int              `json:"h_index"`
	I10Index     int              `json:"i10_index"`
	Positions    map[Position]int `json:"positions,omitempty"`
	Years        []YearCount      `json:"years"`
}

func summarize(id, name string, pubs []reference.Publication) Summary {
	cites := Citations(pubs)
	return Summary{
		ID:           id,
		Name:         name,
		Publications: len(pubs),
		Citations:    Sum(cites),
		HIndex:       HIndex(cites),
		I10Index:     I10Index(cites),
		Years:        YearlyCounts(pubs),
	}
}

// AuthorSummary computes the figures for one registry author.
func AuthorSummary(s *store.Store, authorID string, period Period) (Summary, bool) {
	a, ok := s.Registry().Get(authorID)
	if !ok {
		return Summary{}, false
	}
	pubs := Filter(s.AuthorPublications(authorID), period)
	sum := summarize(a.ID, a.Name(), pubs)
	sum.Positions = PositionDistribution(s.Registry(), authorID, pubs)
	return sum, true
}

// GroupPublications returns the distinct publications of every member of
// the group, sorted like store.Publications.
func GroupPublications(s *store.Store, group reference.ResearchGroup, period Period) []reference.Publication {
	seen := make(map[string]bool)
	var pubs []reference.Publication
	for _, id := range group.MemberIDs {
		for _, p := range s.AuthorPublications(id) {
			if seen[p.Fingerprint] || !period.Contains(p.Year) {
				continue
			}
			seen[p.Fingerprint] = true
			pubs = append(pubs, p)
		}
	}
	store.SortPublications(pubs)
	return pubs
}

// GroupSummary computes the figures for a research group. Shared
// publications are counted once.
func GroupSummary(s *store.Store, group reference.ResearchGroup, period Period) Summary {
	return summarize(group.Name, group.Name, GroupPublications(s, group, period))
}
