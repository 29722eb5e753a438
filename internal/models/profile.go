package models

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultCountry        = "United States"
	NomenclatureSource    = "avvo"
	ScrapedAtLayout       = "2006-01-02 15:04:05"
	DateLayout            = "2006-01-02"
	ListSeparator         = " | "
	PracticeAreaSeparator = ", "
)

// ProfileRecord holds everything extracted from one attorney profile page.
// Text fields use "" for absent, optional numbers use nil.
type ProfileRecord struct {
	FullName   string `json:"attorney_full_name"`
	ProfileURL string `json:"profile_url"`
	FirmName   string `json:"firm_name"`

	Address string `json:"company_address"`
	City    string `json:"company_city"`
	State   string `json:"company_state"`
	Zip     string `json:"company_zip"`
	Country string `json:"company_country"`

	Phone   string `json:"company_phone_number"`
	Fax     string `json:"company_fax_number"`
	Website string `json:"company_website"`

	OverallRating          *float64 `json:"overall_average_rating"`
	TotalReviewCount       int      `json:"total_review_count"`
	AvvoReviewsCount       int      `json:"avvo_reviews_count"`
	LawyersComReviewsCount int      `json:"lawyers_com_reviews_count"`
	AvvoRating             *float64 `json:"avvo_rating"`
	AvvoRatingDescription  string   `json:"avvo_rating_description"`

	YearsLicensed     *int   `json:"years_licensed"`
	YearLicensed      *int   `json:"year_licensed"`
	YearsLicensedText string `json:"years_licensed_text"`

	PracticeAreas       []string `json:"practice_areas"`
	PrimaryPracticeArea string   `json:"primary_practice_area"`
	LawyerAtLocation    string   `json:"lawyer_at_location"`
	LanguagesSpoken     []string `json:"languages_spoken"`

	IsPro               bool `json:"is_pro"`
	IsClaimed           bool `json:"is_claimed"`
	FreeConsultation    bool `json:"free_consultation"`
	VirtualConsultation bool `json:"virtual_consultation_available"`

	ContingencyFee     string `json:"contingency_fee"`
	HourlyRate         string `json:"hourly_rate"`
	RetainerInfo       string `json:"retainer_info"`
	CostDetails        string `json:"cost_details"`
	PaymentMethods     string `json:"payment_methods"`
	CurrenciesAccepted string `json:"currencies_accepted"`

	Education               []string  `json:"education"`
	BarAdmissions           []string  `json:"bar_admissions"`
	Licenses                []License `json:"licenses"`
	HonorsAwards            []string  `json:"honors_awards"`
	Associations            []string  `json:"associations"`
	WorkExperience          []string  `json:"work_experience"`
	AdditionalPracticeAreas []string  `json:"additional_practice_areas"`

	SendMessageLink string `json:"send_message_link"`
	DirectionsLink  string `json:"google_map_directions_link"`
	PhotoURL        string `json:"profile_photo_url"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	PracticeAreaPercentages []PracticeAreaShare `json:"practice_area_percentages"`

	EndorsementsReceived int `json:"endorsements_received"`
	EndorsementsGiven    int `json:"endorsements_given"`
	LegalAnswers         int `json:"legal_answers"`

	ProfessionalID string `json:"professional_id"`
	SpecialtyID    string `json:"specialty_id"`
	SpecialtyName  string `json:"specialty_name"`
	ClaimStatus    string `json:"claim_status"`

	Biography string `json:"biography"`

	TotalReviewsExtracted int       `json:"total_reviews_extracted"`
	ScrapedAt             time.Time `json:"scraped_at"`
	ReviewDateFilter      string    `json:"review_date_filter"`

	NomenclatureSource    string `json:"nomenclature_source"`
	NomenclatureID        string `json:"nomenclature_id"`
	NomenclatureZip       string `json:"nomenclature_zip_code"`
	NomenclatureState     string `json:"nomenclature_state_code"`
	NomenclatureName      string `json:"nomenclature_name"`
	NomenclatureProfileID string `json:"nomenclature_profile_id"`
}

type License struct {
	State      string `json:"state"`
	Acquired   string `json:"acquired"`
	Status     string `json:"status"`
	StatusText string `json:"status_text"`
}

// String renders "State (Acquired: X, Status: Y, text)" leaving out empty parts.
func (l License) String() string {
	var parts []string
	if l.Acquired != "" {
		parts = append(parts, "Acquired: "+l.Acquired)
	}
	if l.Status != "" {
		parts = append(parts, "Status: "+l.Status)
	}
	if l.StatusText != "" {
		parts = append(parts, l.StatusText)
	}
	if len(parts) == 0 {
		return l.State
	}
	return fmt.Sprintf("%s (%s)", l.State, strings.Join(parts, ", "))
}

type PracticeAreaShare struct {
	Name    string `json:"name"`
	Percent string `json:"percent"`
}

func (s PracticeAreaShare) String() string {
	return fmt.Sprintf("%s: %s", s.Name, s.Percent)
}

func NewProfile() *ProfileRecord {
	return &ProfileRecord{
		Country:                 DefaultCountry,
		NomenclatureSource:      NomenclatureSource,
		PracticeAreas:           make([]string, 0),
		LanguagesSpoken:         make([]string, 0),
		Education:               make([]string, 0),
		BarAdmissions:           make([]string, 0),
		Licenses:                make([]License, 0),
		HonorsAwards:            make([]string, 0),
		Associations:            make([]string, 0),
		WorkExperience:          make([]string, 0),
		AdditionalPracticeAreas: make([]string, 0),
		PracticeAreaPercentages: make([]PracticeAreaShare, 0),
		ScrapedAt:               time.Now(),
	}
}

// Found reports whether the page yielded a usable profile.
func (p *ProfileRecord) Found() bool {
	return p.FullName != "" || p.ProfileURL != ""
}

func (p *ProfileRecord) LicenseDetails() string {
	details := make([]string, 0, len(p.Licenses))
	for _, l := range p.Licenses {
		details = append(details, l.String())
	}
	return strings.Join(details, ListSeparator)
}

func (p *ProfileRecord) PracticeAreaPercentagesText() string {
	shares := make([]string, 0, len(p.PracticeAreaPercentages))
	for _, s := range p.PracticeAreaPercentages {
		shares = append(shares, s.String())
	}
	return strings.Join(shares, PracticeAreaSeparator)
}

// OutputName is the file name a single-profile export is written to.
func (p *ProfileRecord) OutputName() string {
	if p.NomenclatureID != "" {
		return p.NomenclatureID + ".csv"
	}
	return "avvo_profile.csv"
}
