package parser

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

const ReviewSelector = "div.client-review"

const responseSelector = "div.attorney-review-response-container"

var skippedFragments = map[string]bool{
	"...":             true,
	"…":               true,
	"See Full Review": true,
}

type ReviewParser struct {
	postedByPattern *regexp.Regexp
	repliedPattern  *regexp.Regexp
}

func NewReviewParser() *ReviewParser {
	return &ReviewParser{
		postedByPattern: regexp.MustCompile(`Posted by (.+?)\s*\|\s*(.+?)(?:\s*\|)?$`),
		repliedPattern:  regexp.MustCompile(`(?i)Replied last (.+)`),
	}
}

type reviewHeader struct {
	name       string
	date       string
	reviewType string
	tooltip    string
}

// ExtractReviews extracts every review container below sel in document order,
// skipping reviews without title and text.
func (p *ReviewParser) ExtractReviews(sel *goquery.Selection) []*models.ReviewRecord {
	reviews := make([]*models.ReviewRecord, 0)
	sel.Find(ReviewSelector).Each(func(_ int, container *goquery.Selection) {
		if r, ok := p.ExtractReview(container); ok {
			reviews = append(reviews, r)
		}
	})
	return reviews
}

func (p *ReviewParser) ExtractReview(container *goquery.Selection) (*models.ReviewRecord, bool) {
	h := p.parseHeader(container)

	r := &models.ReviewRecord{
		Rating: container.Find("i.icon-star-yellow").Length(),
		Type:   h.reviewType,
		Title:  textOf(reviewTitle(container)),
		Text:   reviewText(container),
	}
	if h.name != "" {
		r.ReviewerName = &h.name
	}
	if h.tooltip != "" {
		r.Tooltip = &h.tooltip
	}
	r.Date = parseDatePtr(h.date)
	r.Response = p.parseResponse(container)

	if !r.Valid() {
		return nil, false
	}
	return r, true
}

// ReviewDate is the posted date from the review header, used by the
// recency cutoff.
func (p *ReviewParser) ReviewDate(container *goquery.Selection) (time.Time, bool) {
	return ParseDate(p.parseHeader(container).date)
}

func (p *ReviewParser) parseHeader(container *goquery.Selection) reviewHeader {
	var h reviewHeader

	header := container.Find("div.client-review-header").First()
	if header.Length() == 0 {
		return h
	}
	h.tooltip = textOf(header.Find("span.tooltiptext"))

	para := header.Find("p").First()
	if para.Length() == 0 {
		return h
	}

	if span := para.Find("span").First(); span.Length() > 0 && span.Closest("div.tooltip").Length() == 0 {
		t := strings.TrimSpace(strings.Trim(textOf(span), "|"))
		if t != "" && !strings.Contains(t, "This review is from") {
			h.reviewType = t
		}
	}

	clean := para.Clone()
	clean.Find("div.tooltip, span.tooltiptext").Remove()
	line := joinedText(clean, " ")
	if h.reviewType != "" {
		line = strings.TrimSpace(strings.ReplaceAll(line, "| "+h.reviewType, ""))
	}

	if m := p.postedByPattern.FindStringSubmatch(line); m != nil {
		h.name = strings.TrimSpace(m[1])
		h.date = strings.TrimSpace(strings.SplitN(m[2], "|", 2)[0])
	}
	return h
}

func reviewTitle(container *goquery.Selection) *goquery.Selection {
	return container.Find("h4").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Closest(responseSelector).Length() == 0
	}).First()
}

func reviewText(container *goquery.Selection) string {
	var parts []string
	container.Find("div.client-review-content").First().Find("p").Each(func(_ int, para *goquery.Selection) {
		para.Find("span").Each(func(_ int, span *goquery.Selection) {
			if t := textOf(span); t != "" && !skippedFragments[t] {
				parts = append(parts, t)
			}
		})
	})
	return strings.TrimSpace(strings.Join(parts, " "))
}

func (p *ReviewParser) parseResponse(container *goquery.Selection) *models.AttorneyResponse {
	block := container.Find(responseSelector).First()
	if block.Length() == 0 {
		return nil
	}

	resp := &models.AttorneyResponse{
		Name: textOf(block.Find("h4")),
		Text: textOf(block.Find("p")),
	}
	if m := p.repliedPattern.FindStringSubmatch(textOf(block.Find("span"))); m != nil {
		resp.Date = parseDatePtr(m[1])
	}
	return resp
}
