package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

type ProfileParser struct {
	now func() time.Time

	stateZipPattern      *regexp.Regexp
	clientReviewsPattern *regexp.Regexp
	parenCountPattern    *regexp.Regexp
	avvoRatingPattern    *regexp.Regexp
	licensedPattern      *regexp.Regexp
	contingencyPattern   *regexp.Regexp
	hourlyPattern        *regexp.Regexp
}

func NewProfileParser() *ProfileParser {
	return &ProfileParser{
		now:                  time.Now,
		stateZipPattern:      regexp.MustCompile(`^([A-Z]{2})\s*,?\s*(\d{5}(?:-\d{4})?)?`),
		clientReviewsPattern: regexp.MustCompile(`(\d+)\s+Client Reviews`),
		parenCountPattern:    regexp.MustCompile(`\((\d+)\)`),
		avvoRatingPattern:    regexp.MustCompile(`Rating:\s*([\d.]+)`),
		licensedPattern:      regexp.MustCompile(`Licensed for (\d+) years`),
		contingencyPattern:   regexp.MustCompile(`Contingency.*?(\d+)%|(\d+)%.*?Contingency`),
		hourlyPattern:        regexp.MustCompile(`\$(\d[\d,]*)`),
	}
}

// WithClock replaces the time source used for ScrapedAt and the derived
// license year.
func (p *ProfileParser) WithClock(now func() time.Time) *ProfileParser {
	p.now = now
	return p
}

func (p *ProfileParser) ExtractProfile(doc *goquery.Document) *models.ProfileRecord {
	rec, _ := p.ExtractProfileTrace(doc)
	return rec
}

// ExtractProfileTrace extracts the profile and reports how every field was
// resolved. It never fails: unresolved fields keep their defaults.
func (p *ProfileParser) ExtractProfileTrace(doc *goquery.Document) (*models.ProfileRecord, Trace) {
	pg := newPage(doc, p.now())
	tr := make(Trace)
	rec := models.NewProfile()
	rec.ScrapedAt = pg.now

	p.extractIdentity(pg, tr, rec)
	p.extractLocation(pg, tr, rec)
	p.extractContact(pg, tr, rec)
	p.extractRatings(pg, tr, rec)
	p.extractLicensing(pg, tr, rec)
	p.extractPractice(pg, tr, rec)
	p.extractFlags(pg, tr, rec)
	p.extractCommercial(pg, tr, rec)
	p.extractSections(pg, tr, rec)
	p.extractPayload(pg, tr, rec)
	p.extractLinks(pg, tr, rec)

	return rec, tr
}

func (p *ProfileParser) extractIdentity(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.FullName, _ = firstOf(pg, tr, "attorney_full_name", text("h1.profile-name"))
	rec.ProfileURL, _ = firstOf(pg, tr, "profile_url",
		attr(`link[rel="canonical"]`, "href", nonEmpty),
		attr(`meta[property="og:url"]`, "content", nonEmpty),
	)
	rec.FirmName, _ = firstOf(pg, tr, "firm_name", text("div.location-detail h4"))

	if n, ok := NomenclatureFromURL(rec.ProfileURL); ok {
		rec.NomenclatureID = n.ID
		rec.NomenclatureZip = n.Zip
		rec.NomenclatureState = n.State
		rec.NomenclatureName = n.Name
		rec.NomenclatureProfileID = n.ProfileID
	}
}

func (p *ProfileParser) extractLocation(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.Address, _ = firstOf(pg, tr, "company_address",
		text("p#masthead-location"),
		businessString("address", "streetAddress"),
	)

	city, state, zip := p.splitAddress(rec.Address)
	rec.City, _ = firstOf(pg, tr, "company_city", value("company_address", city), businessString("address", "addressLocality"))
	rec.State, _ = firstOf(pg, tr, "company_state", value("company_address", state), businessString("address", "addressRegion"))
	rec.Zip, _ = firstOf(pg, tr, "company_zip", value("company_address", zip), businessString("address", "postalCode"))
}

// splitAddress reads "street, City, ST 12345": the last part carries state
// and zip, the one before it the city.
func (p *ProfileParser) splitAddress(address string) (city, state, zip string) {
	parts := strings.Split(address, ",")
	if len(parts) < 2 {
		return "", "", ""
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	if m := p.stateZipPattern.FindStringSubmatch(parts[len(parts)-1]); m != nil {
		state, zip = m[1], m[2]
	}
	return parts[len(parts)-2], state, zip
}

func (p *ProfileParser) extractContact(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.Phone, _ = firstOf(pg, tr, "company_phone_number",
		text("span.overridable-lawyer-phone-copy"),
		text(`a[href^="tel:"]`),
		strategy[string]{name: "tel href", run: func(pg *page) Result[string] {
			href, _ := pg.root.Find(`a[href^="tel:"]`).First().Attr("href")
			if number := strings.TrimSpace(strings.TrimPrefix(href, "tel:")); number != "" {
				return found(number)
			}
			return absent[string]()
		}},
		businessString("telephone"),
	)

	rec.Fax, _ = firstOf(pg, tr, "company_fax_number", strategy[string]{name: "span.fax < a", run: func(pg *page) Result[string] {
		if t := textOf(pg.root.Find("span.fax").First().Closest("a")); t != "" {
			return found(t)
		}
		return absent[string]()
	}})

	rec.Website, _ = firstOf(pg, tr, "company_website",
		businessString("sameAs"),
		attr("a.cta-website", "href", externalLink),
		attr("a.contact-website", "href", externalLink),
	)
}

func (p *ProfileParser) extractRatings(pg *page, tr Trace, rec *models.ProfileRecord) {
	if v, ok := firstOf(pg, tr, "overall_average_rating",
		businessFloat("aggregateRating", "ratingValue"),
		payloadFloat("reviewScore"),
		floatText("span.aggregated-ratings-count"),
	); ok {
		rec.OverallRating = &v
	}

	rec.TotalReviewCount, _ = firstOf(pg, tr, "total_review_count",
		asInt(businessFloat("aggregateRating", "reviewCount")),
		asInt(payloadFloat("reviews")),
		matchInt("p.aggregated-ratings-description", p.clientReviewsPattern),
	)
	rec.AvvoReviewsCount, _ = firstOf(pg, tr, "avvo_reviews_count",
		matchInt("p.aggregrated-reviews-total:not(.total-ldc)", p.parenCountPattern))
	rec.LawyersComReviewsCount, _ = firstOf(pg, tr, "lawyers_com_reviews_count",
		matchInt("p.aggregrated-reviews-total.total-ldc", p.parenCountPattern))

	if v, ok := firstOf(pg, tr, "avvo_rating",
		payloadFloat("rating"),
		matchFloat("span.avvo-rating-count", p.avvoRatingPattern),
	); ok {
		rec.AvvoRating = &v
	}
	rec.AvvoRatingDescription, _ = firstOf(pg, tr, "avvo_rating_description", text("span.attorney-rating-level"))
}

func (p *ProfileParser) extractLicensing(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.YearsLicensedText, _ = firstOf(pg, tr, "years_licensed_text", strategy[string]{name: "p licensed for", run: func(pg *page) Result[string] {
		if t := textOf(findByOwnText(pg.root, "p", p.licensedPattern)); t != "" {
			return found(t)
		}
		return absent[string]()
	}})

	if m := p.licensedPattern.FindStringSubmatch(rec.YearsLicensedText); m != nil {
		if years, err := strconv.Atoi(m[1]); err == nil {
			since := pg.now.Year() - years
			rec.YearsLicensed = &years
			rec.YearLicensed = &since
		}
	}

	rec.Licenses = licenses(pg.root)
	rec.BarAdmissions = texts(pg.root.Find("section.license-container div.license h4.license-title"))
}

func licenses(root *goquery.Selection) []models.License {
	out := make([]models.License, 0)
	root.Find("section.license-container").First().Find("div.license").Each(func(_ int, item *goquery.Selection) {
		l := models.License{
			State:      textOf(item.Find("span.state")),
			Acquired:   textOf(item.Find("span.date")),
			Status:     textOf(item.Find("span.status-pill")),
			StatusText: textOf(item.Find("p.license-status")),
		}
		if l.State != "" {
			out = append(out, l)
		}
	})
	return out
}

func (p *ProfileParser) extractFlags(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.IsPro = pg.root.Find("div.pro").Length() > 0
	rec.FreeConsultation = findByOwnText(pg.root, "p", freeConsultationPattern).Length() > 0
	rec.VirtualConsultation = virtualConsultation(pg.root)
}

var (
	freeConsultationPattern = regexp.MustCompile(`Free Consultation`)
	virtualAvailablePattern = regexp.MustCompile(`(?i)Virtual Consultation Available`)
	virtualPattern          = regexp.MustCompile(`(?i)Virtual`)
)

func virtualConsultation(root *goquery.Selection) bool {
	if findByOwnText(root, "p", virtualAvailablePattern).Length() > 0 {
		return true
	}

	row := root.Find("i.icon-video").First().Closest("div.flex-row-with-border-radius")
	return row.Length() > 0 && findByOwnText(row, "p", virtualPattern).Length() > 0
}

func (p *ProfileParser) extractCommercial(pg *page, tr Trace, rec *models.ProfileRecord) {
	feeSections := []string{"section.fees-section", "section.fees-and-rates-container"}

	var contingency, hourly []strategy[string]
	for _, selector := range feeSections {
		contingency = append(contingency, lineMatch(selector, p.contingencyPattern, "%s%%"))
		hourly = append(hourly, lineMatch(selector, p.hourlyPattern, "$%s"))
	}
	rec.ContingencyFee, _ = firstOf(pg, tr, "contingency_fee", contingency...)
	rec.HourlyRate, _ = firstOf(pg, tr, "hourly_rate", hourly...)

	offer := businessString("makesOffer")
	feesRetainer := strategy[string]{name: "fees retainer", run: func(pg *page) Result[string] {
		label := findByOwnText(pg.root.Find("section.fees-and-rates-container"), "strong", retainerPattern)
		if t := textOf(label.Closest("div").Find("p")); t != "" {
			return found("Retainer: " + t)
		}
		return absent[string]()
	}}
	rec.RetainerInfo, _ = firstOf(pg, tr, "retainer_info", offer, feesRetainer)
	// an offer backed by a fees retainer drops its trailing percent signs
	if tr["retainer_info"].Strategy == offer.name && strings.Contains(rec.RetainerInfo, "%") &&
		feesRetainer.run(pg).Status == Found {
		rec.RetainerInfo = strings.TrimRight(rec.RetainerInfo, "%")
	}

	rec.PaymentMethods, _ = firstOf(pg, tr, "payment_methods",
		businessString("paymentAccepted"),
		strategy[string]{name: "fees ul li", run: func(pg *page) Result[string] {
			items := texts(pg.root.Find("section.fees-and-rates-container").First().Find("ul").First().Find("li"))
			if len(items) > 0 {
				return found(strings.Join(items, ", "))
			}
			return absent[string]()
		}},
	)
	rec.CurrenciesAccepted, _ = firstOf(pg, tr, "currencies_accepted", businessString("currenciesAccepted"))
	rec.CostDetails, _ = firstOf(pg, tr, "cost_details", strategy[string]{name: "fees cost", run: costDetails})
}

var (
	retainerPattern = regexp.MustCompile(`(?i)Retainer`)
	costPattern     = regexp.MustCompile(`(?i)Cost`)
)

func costDetails(pg *page) Result[string] {
	fees := pg.root.Find("section.fees-and-rates-container").First()
	body := findByOwnText(fees, "h4", costPattern).Closest("div.frc-sub-section-body")
	if body.Length() == 0 {
		return absent[string]()
	}

	var entries []string
	body.Find("div[style]").Each(func(_ int, d *goquery.Selection) {
		style, _ := d.Attr("style")
		if !strings.Contains(style, "flex-direction: column") {
			return
		}
		label, val := textOf(d.Find("strong")), textOf(d.Find("p"))
		if label != "" && val != "" {
			entries = append(entries, label+": "+val)
		}
	})
	if len(entries) == 0 {
		return absent[string]()
	}
	return found(strings.Join(entries, models.ListSeparator))
}

func (p *ProfileParser) extractSections(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.LanguagesSpoken = texts(pg.root.Find("div.languages-list").First().Find("p"))
	rec.Education = education(pg.root)
	rec.HonorsAwards = texts(pg.root.Find("section.honors-container").First().Find("div.experience"))
	rec.Associations = texts(pg.root.Find("section.associations-container").First().Find("div.experience strong"))
	rec.WorkExperience = texts(pg.root.Find("section.work-experience-container").First().Find("div.experience"))
	rec.AdditionalPracticeAreas = texts(pg.root.Find("aside.additional-practice-areas-container").First().Find("a"))

	rec.EndorsementsReceived, _ = firstOf(pg, tr, "endorsements_received", intText("label.endorsement-received-button span"))
	rec.EndorsementsGiven, _ = firstOf(pg, tr, "endorsements_given", intText("label.endorsement-given-button span"))
	rec.LegalAnswers, _ = firstOf(pg, tr, "legal_answers", intText("section.legal-answers-count strong"))

	rec.Biography, _ = firstOf(pg, tr, "biography", strategy[string]{name: "section.about-container", run: func(pg *page) Result[string] {
		if t := joinedText(pg.root.Find("section.about-container").First(), " "); t != "" {
			return found(t)
		}
		return absent[string]()
	}})
}

// education renders each entry as "School (Degree) - Year".
func education(root *goquery.Selection) []string {
	out := make([]string, 0)
	root.Find("section.education-container").First().Find("div.experience").Each(func(_ int, item *goquery.Selection) {
		school := textOf(item.Find("strong"))
		if school == "" {
			return
		}
		paragraphs := item.Find("p")
		year := textOf(paragraphs.Eq(0))
		degree := textOf(paragraphs.Eq(1))
		out = append(out, school+" ("+degree+") - "+year)
	})
	return out
}

func (p *ProfileParser) extractPayload(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.ProfessionalID, _ = firstOf(pg, tr, "professional_id", payloadString("professionalId"))
	rec.SpecialtyID, _ = firstOf(pg, tr, "specialty_id", payloadString("specialty_id"))
	rec.SpecialtyName, _ = firstOf(pg, tr, "specialty_name", payloadString("specialtyName"))
	rec.ClaimStatus, _ = firstOf(pg, tr, "claim_status", payloadString("claimStatus"))
	rec.IsClaimed = strings.EqualFold(rec.ClaimStatus, "claimed")
}

func (p *ProfileParser) extractLinks(pg *page, tr Trace, rec *models.ProfileRecord) {
	rec.SendMessageLink, _ = firstOf(pg, tr, "send_message_link",
		attr("a.v-cta-message", "href", nonEmpty),
		attr(`a[data-pp="msg_initiated"]`, "href", nonEmpty),
	)
	rec.DirectionsLink, _ = firstOf(pg, tr, "google_map_directions_link",
		strategy[string]{name: "a get directions", run: func(pg *page) Result[string] {
			href, _ := findByOwnText(pg.root, "a", directionsPattern).Attr("href")
			if href != "" {
				return found(href)
			}
			return absent[string]()
		}},
		attr(`a[aria_label="Get Directions"]`, "href", nonEmpty),
		attr(`a[aria-label="Get Directions"]`, "href", nonEmpty),
	)
	rec.PhotoURL, _ = firstOf(pg, tr, "profile_photo_url",
		businessString("image"),
		strategy[string]{name: "img headshot", run: func(pg *page) Result[string] {
			img := pg.root.Find("img[alt]").FilterFunction(func(_ int, s *goquery.Selection) bool {
				alt, _ := s.Attr("alt")
				return containsAny(alt, "headshot")
			}).First()
			if src, _ := img.Attr("src"); src != "" {
				return found(src)
			}
			return absent[string]()
		}},
		attr(`img[src*="head_shot"]`, "src", nonEmpty),
	)

	if v, ok := firstOf(pg, tr, "latitude", businessFloat("geo", "latitude")); ok {
		rec.Latitude = &v
	}
	if v, ok := firstOf(pg, tr, "longitude", businessFloat("geo", "longitude")); ok {
		rec.Longitude = &v
	}
}

var directionsPattern = regexp.MustCompile(`(?i)Get Directions`)

func text(selector string) strategy[string] {
	return strategy[string]{name: selector, run: func(pg *page) Result[string] {
		if t := textOf(pg.root.Find(selector)); t != "" {
			return found(t)
		}
		return absent[string]()
	}}
}

func attr(selector, name string, accept func(string) bool) strategy[string] {
	return strategy[string]{name: selector + "@" + name, run: func(pg *page) Result[string] {
		v, ok := pg.root.Find(selector).First().Attr(name)
		v = strings.TrimSpace(v)
		if !ok || !accept(v) {
			return absent[string]()
		}
		return found(v)
	}}
}

func value(name, v string) strategy[string] {
	return strategy[string]{name: name, run: func(*page) Result[string] {
		if v == "" {
			return absent[string]()
		}
		return found(v)
	}}
}

func intText(selector string) strategy[int] {
	return strategy[int]{name: selector, run: func(pg *page) Result[int] {
		sel := pg.root.Find(selector).First()
		if sel.Length() == 0 {
			return absent[int]()
		}
		raw := textOf(sel)
		i, err := strconv.Atoi(strings.ReplaceAll(raw, ",", ""))
		if err != nil {
			return parseFailed[int]("%s: %q is not an integer", selector, raw)
		}
		return found(i)
	}}
}

func floatText(selector string) strategy[float64] {
	return strategy[float64]{name: selector, run: func(pg *page) Result[float64] {
		sel := pg.root.Find(selector).First()
		if sel.Length() == 0 {
			return absent[float64]()
		}
		raw := textOf(sel)
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return parseFailed[float64]("%s: %q is not a number", selector, raw)
		}
		return found(f)
	}}
}

func matchInt(selector string, pattern *regexp.Regexp) strategy[int] {
	return strategy[int]{name: selector, run: func(pg *page) Result[int] {
		sel := pg.root.Find(selector).First()
		if sel.Length() == 0 {
			return absent[int]()
		}
		m := pattern.FindStringSubmatch(sel.Text())
		if m == nil {
			return parseFailed[int]("%s: no match for %s", selector, pattern)
		}
		i, err := strconv.Atoi(m[1])
		if err != nil {
			return parseFailed[int]("%s: %v", selector, err)
		}
		return found(i)
	}}
}

func matchFloat(selector string, pattern *regexp.Regexp) strategy[float64] {
	return strategy[float64]{name: selector, run: func(pg *page) Result[float64] {
		sel := pg.root.Find(selector).First()
		if sel.Length() == 0 {
			return absent[float64]()
		}
		m := pattern.FindStringSubmatch(sel.Text())
		if m == nil {
			return parseFailed[float64]("%s: no match for %s", selector, pattern)
		}
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return parseFailed[float64]("%s: %v", selector, err)
		}
		return found(f)
	}}
}

// lineMatch scans the text lines of a section for pattern and formats the
// first non-empty capture group.
func lineMatch(selector string, pattern *regexp.Regexp, format string) strategy[string] {
	return strategy[string]{name: selector, run: func(pg *page) Result[string] {
		section := pg.root.Find(selector).First()
		if section.Length() == 0 {
			return absent[string]()
		}
		for _, line := range strings.Split(joinedText(section, "\n"), "\n") {
			m := pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			for _, group := range m[1:] {
				if group != "" {
					return found(fmt.Sprintf(format, group))
				}
			}
		}
		return absent[string]()
	}}
}

func asInt(s strategy[float64]) strategy[int] {
	return strategy[int]{name: s.name, run: func(pg *page) Result[int] {
		r := s.run(pg)
		if r.Status != Found {
			return Result[int]{Status: r.Status, Reason: r.Reason}
		}
		return found(int(r.Value))
	}}
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := textOf(s); t != "" {
			out = append(out, t)
		}
	})
	return out
}

func nonEmpty(s string) bool {
	return s != ""
}

func externalLink(href string) bool {
	return href != "" && !strings.HasPrefix(href, "#") && !strings.Contains(href, "avvo.com")
}
