package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

type column struct {
	name    string
	profile func(*ProfileRecord) string
	review  func(*ReviewRecord) string
}

var profileColumns = []column{
	{name: "attorney_full_name", profile: func(p *ProfileRecord) string { return p.FullName }},
	{name: "profile_url", profile: func(p *ProfileRecord) string { return p.ProfileURL }},
	{name: "firm_name", profile: func(p *ProfileRecord) string { return p.FirmName }},
	{name: "company_address", profile: func(p *ProfileRecord) string { return p.Address }},
	{name: "company_city", profile: func(p *ProfileRecord) string { return p.City }},
	{name: "company_state", profile: func(p *ProfileRecord) string { return p.State }},
	{name: "company_zip", profile: func(p *ProfileRecord) string { return p.Zip }},
	{name: "company_country", profile: func(p *ProfileRecord) string { return p.Country }},
	{name: "company_phone_number", profile: func(p *ProfileRecord) string { return p.Phone }},
	{name: "company_fax_number", profile: func(p *ProfileRecord) string { return p.Fax }},
	{name: "company_website", profile: func(p *ProfileRecord) string { return p.Website }},
	{name: "overall_average_rating", profile: func(p *ProfileRecord) string { return formatFloat(p.OverallRating) }},
	{name: "total_review_count", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.TotalReviewCount) }},
	{name: "avvo_reviews_count", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.AvvoReviewsCount) }},
	{name: "lawyers_com_reviews_count", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.LawyersComReviewsCount) }},
	{name: "avvo_rating", profile: func(p *ProfileRecord) string { return formatFloat(p.AvvoRating) }},
	{name: "avvo_rating_description", profile: func(p *ProfileRecord) string { return p.AvvoRatingDescription }},
	{name: "years_licensed", profile: func(p *ProfileRecord) string { return formatInt(p.YearsLicensed) }},
	{name: "year_licensed", profile: func(p *ProfileRecord) string { return formatInt(p.YearLicensed) }},
	{name: "years_licensed_text", profile: func(p *ProfileRecord) string { return p.YearsLicensedText }},
	{name: "practice_areas", profile: func(p *ProfileRecord) string { return strings.Join(p.PracticeAreas, PracticeAreaSeparator) }},
	{name: "primary_practice_area", profile: func(p *ProfileRecord) string { return p.PrimaryPracticeArea }},
	{name: "lawyer_at_location", profile: func(p *ProfileRecord) string { return p.LawyerAtLocation }},
	{name: "languages_spoken", profile: func(p *ProfileRecord) string { return strings.Join(p.LanguagesSpoken, PracticeAreaSeparator) }},
	{name: "is_pro", profile: func(p *ProfileRecord) string { return formatBool(p.IsPro) }},
	{name: "is_claimed", profile: func(p *ProfileRecord) string { return formatBool(p.IsClaimed) }},
	{name: "free_consultation", profile: func(p *ProfileRecord) string { return formatBool(p.FreeConsultation) }},
	{name: "virtual_consultation_available", profile: func(p *ProfileRecord) string { return formatBool(p.VirtualConsultation) }},
	{name: "contingency_fee", profile: func(p *ProfileRecord) string { return p.ContingencyFee }},
	{name: "hourly_rate", profile: func(p *ProfileRecord) string { return p.HourlyRate }},
	{name: "retainer_info", profile: func(p *ProfileRecord) string { return p.RetainerInfo }},
	{name: "cost_details", profile: func(p *ProfileRecord) string { return p.CostDetails }},
	{name: "payment_methods", profile: func(p *ProfileRecord) string { return p.PaymentMethods }},
	{name: "currencies_accepted", profile: func(p *ProfileRecord) string { return p.CurrenciesAccepted }},
	{name: "education", profile: func(p *ProfileRecord) string { return strings.Join(p.Education, ListSeparator) }},
	{name: "bar_admissions", profile: func(p *ProfileRecord) string { return strings.Join(p.BarAdmissions, ListSeparator) }},
	{name: "license_details", profile: func(p *ProfileRecord) string { return p.LicenseDetails() }},
	{name: "send_message_link", profile: func(p *ProfileRecord) string { return p.SendMessageLink }},
	{name: "google_map_directions_link", profile: func(p *ProfileRecord) string { return p.DirectionsLink }},
	{name: "profile_photo_url", profile: func(p *ProfileRecord) string { return p.PhotoURL }},
	{name: "latitude", profile: func(p *ProfileRecord) string { return formatFloat(p.Latitude) }},
	{name: "longitude", profile: func(p *ProfileRecord) string { return formatFloat(p.Longitude) }},
	{name: "practice_area_percentages", profile: func(p *ProfileRecord) string { return p.PracticeAreaPercentagesText() }},
	{name: "honors_awards", profile: func(p *ProfileRecord) string { return strings.Join(p.HonorsAwards, ListSeparator) }},
	{name: "associations", profile: func(p *ProfileRecord) string { return strings.Join(p.Associations, ListSeparator) }},
	{name: "work_experience", profile: func(p *ProfileRecord) string { return strings.Join(p.WorkExperience, ListSeparator) }},
	{name: "endorsements_received", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.EndorsementsReceived) }},
	{name: "endorsements_given", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.EndorsementsGiven) }},
	{name: "legal_answers", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.LegalAnswers) }},
	{name: "biography", profile: func(p *ProfileRecord) string { return p.Biography }},
	{name: "professional_id", profile: func(p *ProfileRecord) string { return p.ProfessionalID }},
	{name: "specialty_id", profile: func(p *ProfileRecord) string { return p.SpecialtyID }},
	{name: "specialty_name", profile: func(p *ProfileRecord) string { return p.SpecialtyName }},
	{name: "claim_status", profile: func(p *ProfileRecord) string { return p.ClaimStatus }},
	{name: "additional_practice_areas", profile: func(p *ProfileRecord) string { return strings.Join(p.AdditionalPracticeAreas, ListSeparator) }},
	{name: "total_reviews_extracted", profile: func(p *ProfileRecord) string { return strconv.Itoa(p.TotalReviewsExtracted) }},
	{name: "scraped_at", profile: func(p *ProfileRecord) string { return p.ScrapedAt.Format(ScrapedAtLayout) }},
	{name: "review_date_filter", profile: func(p *ProfileRecord) string { return p.ReviewDateFilter }},
	{name: "nomenclature_source", profile: func(p *ProfileRecord) string { return p.NomenclatureSource }},
	{name: "nomenclature_id", profile: func(p *ProfileRecord) string { return p.NomenclatureID }},
	{name: "nomenclature_zip_code", profile: func(p *ProfileRecord) string { return p.NomenclatureZip }},
	{name: "nomenclature_state_code", profile: func(p *ProfileRecord) string { return p.NomenclatureState }},
	{name: "nomenclature_name", profile: func(p *ProfileRecord) string { return p.NomenclatureName }},
	{name: "nomenclature_profile_id", profile: func(p *ProfileRecord) string { return p.NomenclatureProfileID }},
}

var reviewColumns = []column{
	{name: "reviewer_name", review: func(r *ReviewRecord) string { return deref(r.ReviewerName) }},
	{name: "review_date", review: func(r *ReviewRecord) string { return formatDate(r.Date) }},
	{name: "review_rating", review: func(r *ReviewRecord) string { return strconv.Itoa(r.Rating) }},
	{name: "review_title", review: func(r *ReviewRecord) string { return r.Title }},
	{name: "review_text", review: func(r *ReviewRecord) string { return r.Text }},
	{name: "review_type", review: func(r *ReviewRecord) string { return r.Type }},
	{name: "review_tooltip", review: func(r *ReviewRecord) string { return deref(r.Tooltip) }},
	{name: "attorney_response_name", review: func(r *ReviewRecord) string {
		if r.Response == nil {
			return ""
		}
		return r.Response.Name
	}},
	{name: "attorney_response_date", review: func(r *ReviewRecord) string {
		if r.Response == nil {
			return ""
		}
		return formatDate(r.Response.Date)
	}},
	{name: "attorney_response_text", review: func(r *ReviewRecord) string {
		if r.Response == nil {
			return ""
		}
		return r.Response.Text
	}},
}

// Columns returns the fixed output column order: profile columns then review columns.
func Columns() []string {
	names := make([]string, 0, len(profileColumns)+len(reviewColumns))
	for _, c := range profileColumns {
		names = append(names, c.name)
	}
	for _, c := range reviewColumns {
		names = append(names, c.name)
	}
	return names
}

func ProfileColumnCount() int {
	return len(profileColumns)
}

// FlatRow is one output row. Profile is shared by every row of a profile,
// Review is nil for the single row of a profile without reviews.
type FlatRow struct {
	Profile *ProfileRecord
	Review  *ReviewRecord
}

// Materialize produces one row per review in order, or exactly one row with
// empty review cells when there are no reviews.
func Materialize(p *ProfileRecord, reviews []*ReviewRecord) []FlatRow {
	if len(reviews) == 0 {
		return []FlatRow{{Profile: p}}
	}

	rows := make([]FlatRow, 0, len(reviews))
	for _, r := range reviews {
		rows = append(rows, FlatRow{Profile: p, Review: r})
	}
	return rows
}

// Values renders the row's cells in Columns() order with free text cleaned.
func (r FlatRow) Values() []string {
	values := make([]string, 0, len(profileColumns)+len(reviewColumns))
	for _, c := range profileColumns {
		values = append(values, CleanText(c.profile(r.Profile)))
	}
	for _, c := range reviewColumns {
		if r.Review == nil {
			values = append(values, "")
			continue
		}
		values = append(values, CleanText(c.review(r.Review)))
	}
	return values
}

func (r FlatRow) Map() map[string]string {
	names := Columns()
	values := r.Values()
	m := make(map[string]string, len(names))
	for i, name := range names {
		m[name] = values[i]
	}
	return m
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// CleanText collapses newlines, tabs and whitespace runs into single spaces.
func CleanText(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
