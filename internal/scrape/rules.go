package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// SelectorChain is an ordered list of CSS selectors tried in sequence; the
// first selector yielding a non-empty selection wins. Chains absorb minor
// markup changes on the scraped sites.
type SelectorChain []string

// Find returns the first non-empty selection produced by the chain, or nil.
func (c SelectorChain) Find(root *goquery.Selection) *goquery.Selection {
	for _, sel := range c {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// Text returns the collapsed text of the chain's first match, or "".
func (c SelectorChain) Text(root *goquery.Selection) string {
	found := c.Find(root)
	if found == nil {
		return ""
	}
	return strings.Join(strings.Fields(found.First().Text()), " ")
}

// Attr returns the named attribute of the chain's first match, or "".
func (c SelectorChain) Attr(root *goquery.Selection, name string) string {
	found := c.Find(root)
	if found == nil {
		return ""
	}
	val, _ := found.First().Attr(name)
	return strings.TrimSpace(val)
}

// Texts returns the collapsed text of every element the chain matches.
func (c SelectorChain) Texts(root *goquery.Selection) []string {
	found := c.Find(root)
	if found == nil {
		return nil
	}
	var out []string
	found.Each(func(_ int, s *goquery.Selection) {
		if t := strings.Join(strings.Fields(s.Text()), " "); t != "" {
			out = append(out, t)
		}
	})
	return out
}

// Rules describe how to extract candidate postings from one source's markup.
type Rules struct {
	Listing      SelectorChain // per-posting container fragments
	Title        SelectorChain
	Company      SelectorChain
	Location     SelectorChain
	Salary       SelectorChain
	JobType      SelectorChain
	PostedDate   SelectorChain
	Description  SelectorChain
	Requirements SelectorChain
	Link         SelectorChain // anchor with the posting URL
}

// DefaultRules covers the markup conventions common to generic job boards.
func DefaultRules() Rules {
	return Rules{
		Listing:      SelectorChain{".job-card", ".job-listing", "article.job", "li.result", ".jobsearch-result"},
		Title:        SelectorChain{".job-title", "h2 a", "h2", "h3 a", "h3"},
		Company:      SelectorChain{".company-name", ".company", ".employer", "[data-company]"},
		Location:     SelectorChain{".job-location", ".location", "[data-location]"},
		Salary:       SelectorChain{".salary", ".job-salary", ".compensation"},
		JobType:      SelectorChain{".job-type", ".employment-type", ".type"},
		PostedDate:   SelectorChain{".posted-date", ".date", "time", ".age"},
		Description:  SelectorChain{".job-description", ".description", ".summary", ".snippet"},
		Requirements: SelectorChain{".requirements li", ".job-requirements li", ".qualifications li"},
		Link:         SelectorChain{"a.job-link", "h2 a", "h3 a", "a"},
	}
}

// rulesRegistry holds per-source overrides of the default rules. Sources
// without an entry use DefaultRules.
var rulesRegistry = map[string]func() Rules{
	"techboard": func() Rules {
		r := DefaultRules()
		r.Listing = SelectorChain{"div.posting", ".job-card"}
		r.Title = SelectorChain{"h5[data-qa=\"posting-name\"]", ".job-title", "h5"}
		r.Location = SelectorChain{".posting-categories .location", ".location"}
		r.Description = SelectorChain{".posting-description", ".description"}
		return r
	},
	"remotehub": func() Rules {
		r := DefaultRules()
		r.Listing = SelectorChain{"tr.job", ".job-card"}
		r.Title = SelectorChain{"td.position h2", ".job-title"}
		r.Company = SelectorChain{"td.company h3", ".company-name"}
		r.Salary = SelectorChain{".salary", "td.salary"}
		return r
	},
}

// RulesFor returns the extraction rules registered for source, falling back
// to DefaultRules.
func RulesFor(source string) Rules {
	if build, ok := rulesRegistry[strings.ToLower(source)]; ok {
		return build()
	}
	return DefaultRules()
}
