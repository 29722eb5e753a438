package parser

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const profileHTML = `<html><head>
<link rel="canonical" href="https://www.avvo.com/attorneys/94401-ca-haitham-ballout-336338.html">
<script type="application/ld+json">{"@context":"https://schema.org","@type":"BreadcrumbList"}</script>
<script type="application/ld+json">{
  "@type": "LocalBusiness",
  "image": "https://images.avvo.com/avatars/head_shot.jpg",
  "geo": {"@type": "GeoCoordinates", "latitude": 37.5630, "longitude": -122.3255},
  "paymentAccepted": "Check, Credit Card",
  "currenciesAccepted": "USD",
  "aggregateRating": {"reviewCount": 42, "ratingValue": 4.9},
  "sameAs": "https://www.ballout-law.com"
}</script>
</head><body>
<h1 class="profile-name">Haitham Ballout</h1>
<div class="pro">PRO</div>
<div class="grid-with-icon"><i class="icon-practice-area"></i>
  <span class="profile-practice-area">Immigration</span>
  <span class="profile-location">at San Mateo, CA</span>
</div>
<div class="location-detail"><h4>Ballout Law Firm</h4>
  <p id="masthead-location">1 Main St, Suite 200, San Mateo, CA 94401</p>
  <a href="tel:+16505550100"><span class="overridable-lawyer-phone-copy">(650) 555-0100</span></a>
  <a href="#"><span class="fax"></span>(650) 555-0101</a>
  <a class="cta-website" href="https://www.avvo.com/redirect">Website</a>
  <a href="https://maps.google.com/?q=San+Mateo">Get Directions</a>
</div>
<a class="v-cta-message" href="/messages/new?pro=336338">Message</a>
<span class="aggregated-ratings-count">4.5</span>
<p class="aggregated-ratings-description">40 Client Reviews</p>
<p class="aggregrated-reviews-total">Avvo (30)</p>
<p class="aggregrated-reviews-total total-ldc">Lawyers.com (12)</p>
<span class="avvo-rating-count">Rating: 10.0</span>
<span class="attorney-rating-level">Superb</span>
<p>Licensed for 20 years</p>
<p>Free Consultation</p>
<div class="flex-row-with-border-radius"><i class="icon-video"></i><p>Virtual consultations</p></div>
<span class="practice-area-list">Immigration, Family, 12, Visa%</span>
<div class="practice-area-contents">
  <div class="practice-area-detail">
    <div class="practice-area-title"><strong>Immigration</strong><strong>80%</strong></div>
    <div class="expandedElement"><p>Green Cards, Asylum, 15 years</p></div>
  </div>
  <div class="practice-area-detail">
    <a class="practice-area-title" href="/business-lawyer/"><strong>Business</strong><strong>20%</strong></a>
  </div>
</div>
<div class="languages-list"><p>English</p><p>Arabic</p></div>
<section class="fees-section"><p>Contingency fee: 33%</p><p>Hourly rate: $350</p></section>
<section class="fees-and-rates-container">
  <div><strong>Retainer</strong><p>$2,500</p></div>
  <ul><li>Cash</li><li>Check</li></ul>
  <div class="frc-sub-section-body"><h4>Cost</h4>
    <div style="display: flex; flex-direction: column"><strong>Consultation</strong><p>Free</p></div>
    <div style="display: flex; flex-direction: column"><strong>Hourly</strong><p>$350</p></div>
  </div>
</section>
<label class="endorsement-received-button"><span>15</span></label>
<label class="endorsement-given-button"><span>n/a</span></label>
<section class="legal-answers-count"><strong>120</strong></section>
<section class="education-container">
  <div class="experience"><p>2004</p><strong>Stanford Law School</strong><p>JD</p></div>
</section>
<section class="license-container">
  <div class="license"><h4 class="license-title">California</h4>
    <span class="state">California</span><span class="date">2004</span>
    <span class="status-pill">Active</span><p class="license-status">In good standing</p>
  </div>
</section>
<section class="honors-container"><div class="experience">Super Lawyers 2020</div></section>
<section class="associations-container"><div class="experience"><strong>State Bar of California</strong></div></section>
<section class="work-experience-container"><div class="experience">Partner, Ballout Law</div></section>
<section class="about-container"><p>Helping families
  since 2004.</p><p>Free consultations.</p></section>
<aside class="additional-practice-areas-container"><a href="/a">Criminal Defense</a><a href="/b">DUI</a></aside>
<div id="payload" data-payload='{"professionalId":336338,"specialty_id":"42","specialtyName":"Immigration","claimStatus":"claimed","reviewScore":4.7,"reviews":41,"rating":9.8}'></div>
</body></html>`
