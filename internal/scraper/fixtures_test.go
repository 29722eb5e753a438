package scraper

import (
	"fmt"
	"strings"
	"time"
)

const testProfileURL = "https://www.avvo.com/attorneys/94401-ca-haitham-ballout-336338.html"

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type review struct {
	name  string
	date  string
	title string
}

func daysAgo(n int) string {
	return testNow.AddDate(0, 0, -n).Format("January 2, 2006")
}

func recent(names ...string) []review {
	out := make([]review, 0, len(names))
	for i, n := range names {
		out = append(out, review{name: n, date: daysAgo(10 + i), title: "Review by " + n})
	}
	return out
}

func renderReviews(reviews []review) string {
	var b strings.Builder
	for _, r := range reviews {
		fmt.Fprintf(&b, `<div class="client-review">
			<i class="icon-star-yellow"></i><i class="icon-star-yellow"></i>
			<div class="client-review-header"><p>Posted by %s | %s</p></div>
			<h4>%s</h4>
			<div class="client-review-content"><p><span>Body of %s</span></p></div>
		</div>`, r.name, r.date, r.title, r.name)
	}
	return b.String()
}

func profilePage(reviews []review, extra string) string {
	return `<html><head><link rel="canonical" href="` + testProfileURL + `"></head><body>
		<h1 class="profile-name">Haitham Ballout</h1>
		<p id="masthead-location">San Mateo, CA 94401</p>` +
		renderReviews(reviews) + extra + `</body></html>`
}

func listingPage(reviews []review, extra string) string {
	return "<html><body>" + renderReviews(reviews) + extra + "</body></html>"
}

func paginationLinks(pages ...int) string {
	var b strings.Builder
	b.WriteString(`<div class="pagination">`)
	for _, p := range pages {
		fmt.Fprintf(&b, `<a href="%s?page=%d">%d</a>`, testProfileURL, p, p)
	}
	b.WriteString(`</div>`)
	return b.String()
}
