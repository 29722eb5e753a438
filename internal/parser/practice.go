package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

var (
	leadingNumberPattern = regexp.MustCompile(`^\d+\s*%?\s*`)
	trailingPercent      = regexp.MustCompile(`\s*%$`)
	practiceHeading      = regexp.MustCompile(`(?i)Practice Areas`)
	expandedClass        = regexp.MustCompile(`(?i)expand`)
)

func (p *ProfileParser) extractPractice(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.PracticeAreas = mergeAll(pg, tr, "practice_areas", cleanPracticeArea,
		listStrategy{name: "span.practice-area-list", run: practiceAreaList},
		listStrategy{name: "span.profile-practice-area", fallback: true, run: func(pg *page) []string {
			return texts(pg.root.Find("span.profile-practice-area"))
		}},
		listStrategy{name: "a.practice-area-title", run: practiceAreaTitleLinks},
		listStrategy{name: "strong.practice-area-title", run: func(pg *page) []string {
			return texts(pg.root.Find("strong.practice-area-title"))
		}},
		listStrategy{name: "div.practice-area-detail", run: practiceAreaDetails},
		listStrategy{name: "a lawyer strong", fallback: true, run: func(pg *page) []string {
			return texts(pg.root.Find(`a[href*="-lawyer/"] strong`))
		}},
		listStrategy{name: "practice areas heading", fallback: true, run: practiceAreaHeading},
		listStrategy{name: "payload.specialtyName", fallback: true, run: func(pg *page) []string {
			if name, ok := firstOf(pg, Trace{}, "specialty_name", payloadString("specialtyName")); ok {
				return []string{name}
			}
			return nil
		}},
	)
	if len(rec.PracticeAreas) > 0 {
		rec.PrimaryPracticeArea = rec.PracticeAreas[0]
	}

	rec.LawyerAtLocation, _ = firstOf(pg, tr, "lawyer_at_location", strategy[string]{name: "grid-with-icon", run: lawyerAtLocation})
	rec.PracticeAreaPercentages = practiceAreaShares(pg.root)
}

// cleanPracticeArea drops numbers, percentages and very short fragments.
func cleanPracticeArea(candidate string) (string, bool) {
	s := strings.TrimSpace(candidate)
	if s == "" || isDigits(s) || strings.Contains(s, "%") || len(s) <= 2 {
		return "", false
	}
	s = leadingNumberPattern.ReplaceAllString(s, "")
	s = trailingPercent.ReplaceAllString(s, "")
	return s, s != ""
}

func practiceAreaList(pg *page) []string {
	var out []string
	for _, part := range strings.Split(textOf(pg.root.Find("span.practice-area-list")), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func practiceAreaTitleLinks(pg *page) []string {
	var out []string
	pg.root.Find("a.practice-area-title").Each(func(_ int, link *goquery.Selection) {
		if strong := link.Find("strong"); strong.Length() > 0 {
			out = append(out, textOf(strong))
			return
		}
		out = append(out, textOf(link))
	})
	return out
}

func practiceAreaDetails(pg *page) []string {
	var out []string
	pg.root.Find("div.practice-area-detail").Each(func(_ int, detail *goquery.Selection) {
		title := practiceAreaTitle(detail)
		if title.Length() == 0 || title.Find("strong").Length() == 0 {
			return
		}
		out = append(out, textOf(title.Find("strong")))

		expanded := detail.Find("div[class]").FilterFunction(func(_ int, d *goquery.Selection) bool {
			class, _ := d.Attr("class")
			return expandedClass.MatchString(class)
		}).First()
		expanded.Find("p").Each(func(_ int, para *goquery.Selection) {
			t := textOf(para)
			if !strings.Contains(t, ",") || len(t) <= 5 {
				return
			}
			for _, part := range strings.Split(t, ",") {
				part = strings.TrimSpace(part)
				if containsAny(part, "years", "case", "read more", "see more") {
					continue
				}
				out = append(out, part)
			}
		})
	})
	return out
}

func practiceAreaTitle(detail *goquery.Selection) *goquery.Selection {
	if title := detail.Find("div.practice-area-title").First(); title.Length() > 0 {
		return title
	}
	return detail.Find("a.practice-area-title").First()
}

func practiceAreaHeading(pg *page) []string {
	heading := findByOwnText(pg.root, "h3", practiceHeading)
	if heading.Length() == 0 {
		return nil
	}

	var out []string
	heading.Parent().Find(`a[href*="lawyer"]`).Each(func(_ int, link *goquery.Selection) {
		t := textOf(link)
		if containsAny(t, "more", "see", "view", "all", "page") {
			return
		}
		out = append(out, t)
	})
	return out
}

// lawyerAtLocation builds "<Practice> Lawyer at <City, ST>" from the profile header.
func lawyerAtLocation(pg *page) Result[string] {
	var summary string
	pg.root.Find("i.icon-practice-area").EachWithBreak(func(_ int, icon *goquery.Selection) bool {
		grid := icon.Closest("div.grid-with-icon")
		area := grid.Find("span.profile-practice-area")
		location := grid.Find("span.profile-location")
		if area.Length() == 0 || location.Length() == 0 {
			return true
		}
		summary = textOf(area) + " Lawyer at " + strings.TrimPrefix(textOf(location), "at ")
		return false
	})
	if summary == "" {
		return absent[string]()
	}
	return found(summary)
}

func practiceAreaShares(root *goquery.Selection) []models.PracticeAreaShare {
	shares := make([]models.PracticeAreaShare, 0)
	root.Find("div.practice-area-contents").First().Find("div.practice-area-detail").Each(func(_ int, detail *goquery.Selection) {
		strongs := practiceAreaTitle(detail).Find("strong")
		if strongs.Length() < 2 {
			return
		}
		name, percent := textOf(strongs.Eq(0)), textOf(strongs.Eq(1))
		if name != "" && strings.Contains(percent, "%") {
			shares = append(shares, models.PracticeAreaShare{Name: name, Percent: percent})
		}
	})
	return shares
}
