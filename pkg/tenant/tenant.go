package tenant

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one municipal council with its own isolated storage and
// configuration. Subdomain and DatabaseID are globally unique and immutable
// after creation; changing either would orphan existing sessions and pooled
// connections.
type Tenant struct {
	ID         uuid.UUID `json:"id"`
	Subdomain  string    `json:"subdomain"`
	DatabaseID string    `json:"database_id"`
	Name       string    `json:"name"`
	Active     bool      `json:"active"`
	Features   Features  `json:"features"`
	Branding   Branding  `json:"branding"`
	Legal      Legal     `json:"legal"`
	Limits     Limits    `json:"limits"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Features holds per-council feature toggles.
type Features struct {
	AllowExternalCityRegistration bool `json:"allow_external_city_registration"`
	RequireIncomeForLegalServices bool `json:"require_income_for_legal_services"`
	PublishNews                   bool `json:"publish_news"`
	PublishEvents                 bool `json:"publish_events"`
	PublishVacancies              bool `json:"publish_vacancies"`
}

// Branding holds per-council presentation settings.
type Branding struct {
	PrimaryColor   string `json:"primary_color"`
	SecondaryColor string `json:"secondary_color"`
	LogoURL        string `json:"logo_url"`
}

// Legal holds the council's legal document texts.
type Legal struct {
	TermsOfService string `json:"terms_of_service"`
	PrivacyPolicy  string `json:"privacy_policy"`
}

// Limits holds per-council numeric limits.
type Limits struct {
	// LegalServicesIncomeCeiling is the income ceiling (in minor currency
	// units) above which residents do not qualify for free legal services.
	LegalServicesIncomeCeiling int64 `json:"legal_services_income_ceiling"`
}
