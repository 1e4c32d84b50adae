/*
Package profile provides JSON to Go branding profile conversion.

PURPOSE:
  The same invoicing engine is used by more than one organization. A
  profile carries everything that differs between them: organization name,
  document title and wording, who signs, whether a phone number is
  mandatory, and the default rates. Profiles are JSON so a new club can be
  added without code changes.

JSON SCHEMA:
  {
    "id": "ieee",
    "organization": "IEEE SB GCEK",
    "title": "IEEE Acknowledgement Form",
    "currency": "Rs",
    "issuer": {"label": "Chairperson", "role": "Chairperson"},
    "require_phone": true,
    "body": "This letter serves as an acknowledgment of ...",
    "note": "Note: Please return rented components ...",
    "defaults": {"discount_pct": 0, "tax_pct": 18}
  }

DEFAULTS:
  currency "Rs", tax 18, discount 0, title "<organization> Acknowledgement
  Form", body naming the organization. Issuer role defaults to the label.

USAGE:
  f := NewFactory()
  p, err := f.Preset("robocek")        // built-in
  p, err := f.Load("./club.json")      // custom

  session, err := billing.NewSession(ctx, numbers, p.BillingDefaults())

SEE ALSO:
  - presets.go: Built-in profiles
  - export/pdf.go: Uses title, body, note and currency
*/
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/billing-engine/billing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ProfileJSON is the JSON representation of a profile.
type ProfileJSON struct {
	ID           string        `json:"id"`
	Organization string        `json:"organization"`
	Title        string        `json:"title,omitempty"`
	Currency     string        `json:"currency,omitempty"`
	Issuer       IssuerJSON    `json:"issuer"`
	RequirePhone bool          `json:"require_phone"`
	Body         string        `json:"body,omitempty"`
	Note         string        `json:"note,omitempty"`
	Defaults     *DefaultsJSON `json:"defaults,omitempty"`
}

// IssuerJSON describes the signing side.
type IssuerJSON struct {
	Label string `json:"label"`          // shown next to the name field
	Name  string `json:"name,omitempty"` // prefilled signer
	Role  string `json:"role,omitempty"` // printed under the name
}

// DefaultsJSON holds the rates a new invoice starts with.
type DefaultsJSON struct {
	DiscountPct *float64 `json:"discount_pct,omitempty"`
	TaxPct      *float64 `json:"tax_pct,omitempty"`
}

// =============================================================================
// PROFILE
// =============================================================================

// Profile is a parsed, defaulted branding profile.
type Profile struct {
	ID           string          `json:"id"`
	Organization string          `json:"organization"`
	Title        string          `json:"title"`
	Currency     string          `json:"currency"`
	IssuerLabel  string          `json:"issuer_label"`
	Issuer       billing.Issuer  `json:"issuer"`
	RequirePhone bool            `json:"require_phone"`
	Body         string          `json:"body"`
	Note         string          `json:"note"`
	DiscountPct  decimal.Decimal `json:"discount_pct"`
	TaxPct       decimal.Decimal `json:"tax_pct"`
}

// BillingDefaults returns what a session resets to under this profile.
func (p *Profile) BillingDefaults() billing.Defaults {
	return billing.Defaults{
		DiscountPct: p.DiscountPct,
		TaxPct:      p.TaxPct,
		Issuer:      p.Issuer,
	}
}

// =============================================================================
// PROFILE FACTORY
// =============================================================================

// Factory converts JSON profiles to Profiles.
type Factory struct {
	presets map[string]func() string
}

func NewFactory() *Factory {
	return &Factory{presets: map[string]func() string{
		"ieee":    IEEEJSON,
		"robocek": RobocekJSON,
	}}
}

// Presets lists the built-in profile ids.
func (f *Factory) Presets() []string {
	return []string{"ieee", "robocek"}
}

// Parse parses a JSON string into a Profile.
func (f *Factory) Parse(jsonStr string) (*Profile, error) {
	var pj ProfileJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse profile JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// Preset returns a built-in profile by id.
func (f *Factory) Preset(id string) (*Profile, error) {
	build, ok := f.presets[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, &billing.ConfigError{
			Capability: fmt.Sprintf("profile %q", id),
			Guidance:   "use one of " + strings.Join(f.Presets(), ", ") + " or set profile.file",
		}
	}
	return f.Parse(build())
}

// Load reads a profile from a JSON file.
func (f *Factory) Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	return f.Parse(string(data))
}

// FromJSON validates pj and fills defaults.
func (f *Factory) FromJSON(pj ProfileJSON) (*Profile, error) {
	org := strings.TrimSpace(pj.Organization)
	if strings.TrimSpace(pj.ID) == "" {
		return nil, &billing.ValidationError{Field: "id", Message: "profile id is required"}
	}
	if org == "" {
		return nil, &billing.ValidationError{Field: "organization", Message: "organization is required"}
	}

	p := &Profile{
		ID:           strings.TrimSpace(pj.ID),
		Organization: org,
		Title:        orDefault(pj.Title, org+" Acknowledgement Form"),
		Currency:     orDefault(pj.Currency, "Rs"),
		IssuerLabel:  orDefault(pj.Issuer.Label, "Issuer"),
		RequirePhone: pj.RequirePhone,
		Body: orDefault(pj.Body, "This letter serves as an acknowledgment of the components rented from "+
			org+". The following components have been rented:"),
		Note:   strings.TrimSpace(pj.Note),
		TaxPct: billing.DefaultTaxPct,
	}
	p.Issuer = billing.Issuer{
		Organization: org,
		Name:         strings.TrimSpace(pj.Issuer.Name),
		Role:         orDefault(pj.Issuer.Role, p.IssuerLabel),
	}

	if d := pj.Defaults; d != nil {
		if d.DiscountPct != nil {
			p.DiscountPct = billing.ParsePercent(*d.DiscountPct)
		}
		if d.TaxPct != nil {
			p.TaxPct = billing.ParsePercent(*d.TaxPct)
		}
	}
	return p, nil
}

// ToJSON converts a Profile back to its JSON form.
func (f *Factory) ToJSON(p *Profile) ProfileJSON {
	discount, _ := p.DiscountPct.Float64()
	tax, _ := p.TaxPct.Float64()
	return ProfileJSON{
		ID:           p.ID,
		Organization: p.Organization,
		Title:        p.Title,
		Currency:     p.Currency,
		Issuer:       IssuerJSON{Label: p.IssuerLabel, Name: p.Issuer.Name, Role: p.Issuer.Role},
		RequirePhone: p.RequirePhone,
		Body:         p.Body,
		Note:         p.Note,
		Defaults:     &DefaultsJSON{DiscountPct: &discount, TaxPct: &tax},
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return def
}
