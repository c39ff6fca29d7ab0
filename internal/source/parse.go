package source

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/scholarlyreport/scholarly/internal/reconcile"
	"github.com/scholarlyreport/scholarly/internal/reference"
)

// Row is one publication row of a profile page, as displayed.
type Row struct {
	Title     string
	Link      string // Detail page href, possibly relative
	Authors   string // Possibly truncated with "..."
	Venue     string
	Year      string
	Citations string
}

// ParseProfile extracts author metadata and publication rows from a
// profile page. A page without an author name is rejected.
func ParseProfile(html string) (reference.Author, []Row, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return reference.Author{}, nil, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}

	name := strings.ReplaceAll(text(doc.Find("#gsc_prf_in").First()), ".", "")
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return reference.Author{}, nil, fmt.Errorf("%w: no author name", ErrInvalidProfile)
	}

	a := reference.Author{
		PrimaryName: name,
		Affiliation: text(doc.Find(".gsc_prf_il").First()),
	}

	// Columns alternate "all" and "since"; the lifetime values are at 0, 2, 4.
	stats := doc.Find(".gsc_rsb_std")
	stat := func(i int) int {
		if i >= stats.Length() {
			return 0
		}
		return reconcile.ParseCount(text(stats.Eq(i)))
	}
	a.LifetimeCitations = stat(0)
	a.LifetimeHIndex = stat(2)
	a.LifetimeI10Index = stat(4)

	var rows []Row
	doc.Find("tr.gsc_a_tr").Each(func(_ int, s *goquery.Selection) {
		title := s.Find("a.gsc_a_at").First()
		href, _ := title.Attr("href")
		if href == "" {
			href, _ = title.Attr("data-href")
		}
		gray := s.Find("div.gs_gray")
		row := Row{
			Title:     text(title),
			Link:      href,
			Authors:   text(gray.Eq(0)),
			Venue:     text(gray.Eq(1)),
			Year:      text(s.Find("td.gsc_a_y").First()),
			Citations: strings.TrimSpace(strings.ReplaceAll(text(s.Find("td.gsc_a_c a").First()), "*", "")),
		}
		if row.Citations == "" {
			row.Citations = strings.TrimSpace(strings.ReplaceAll(text(s.Find("td.gsc_a_c").First()), "*", ""))
		}
		if row.Citations == "" {
			row.Citations = "0"
		}
		rows = append(rows, row)
	})

	return a, rows, nil
}

// ParseDetail returns the full author list from a publication detail page,
// or "" when the page has none.
func ParseDetail(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	authors := text(doc.Find(".gsc_oci_value").First())
	if alt := text(doc.Find("#gsc_oci_title_authors .gsc_oci_value").First()); alt != "" {
		authors = alt
	}
	return authors
}

// HasMoreRows reports whether the profile page offers further rows.
func HasMoreRows(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	more := doc.Find("#gsc_bpf_more").First()
	if more.Length() == 0 {
		return false
	}
	_, disabled := more.Attr("disabled")
	return !disabled
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
