package parser

import (
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/maltedev/avvo-profile-scraper/internal/models"
)

type ProfileExtractor interface {
	ExtractProfile(doc *goquery.Document) *models.ProfileRecord
}

type ReviewExtractor interface {
	ExtractReview(sel *goquery.Selection) (*models.ReviewRecord, bool)
	ExtractReviews(sel *goquery.Selection) []*models.ReviewRecord
	ReviewDate(sel *goquery.Selection) (time.Time, bool)
}
