// Package jurisdiction holds per-issuing-region knowledge about driver's
// licenses: expiration semantics, plausible validity spans, license-number
// shapes, and known security features. It is a pure lookup table rendered
// into model instructions; unknown regions fall back to a default profile.
package jurisdiction

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Profile describes the license rules of one issuing region.
type Profile struct {
	Name                string   `yaml:"name"`
	ExpirationPolicy    string   `yaml:"expiration_policy"`
	AgeBasedExpiration  bool     `yaml:"age_based_expiration"`
	ExpirationAge       int      `yaml:"expiration_age"`
	MaxValidityYears    int      `yaml:"max_validity_years"`
	LicenseNumberFormat string   `yaml:"license_number_format"`
	SecurityFeatures    []string `yaml:"security_features"`
	Quirks              []string `yaml:"quirks"`
}

// DefaultProfile is returned for issuing regions not present in the table.
// Its rendered rules state the generic validity assumption explicitly so the
// model does not invent region-specific math.
var DefaultProfile = Profile{
	Name: "Unknown jurisdiction",
	ExpirationPolicy: "Assume a generic 4-8 year validity period from issuance. " +
		"Rely on the printed expiration date; do not apply region-specific expiration math.",
	MaxValidityYears:    8,
	LicenseNumberFormat: "No known format; accept any plausible alphanumeric identifier.",
	SecurityFeatures:    []string{"photo", "signature", "barcode on reverse"},
}

type Set struct {
	profiles map[string]Profile
}

// Load parses the embedded profile table. It fails only if the embedded
// document is malformed, which is a build defect rather than a runtime
// condition.
func Load() (*Set, error) {
	var doc struct {
		Profiles map[string]Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(profilesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse jurisdiction profiles: %w", err)
	}
	if len(doc.Profiles) == 0 {
		return nil, fmt.Errorf("jurisdiction profile table is empty")
	}
	return &Set{profiles: doc.Profiles}, nil
}

// Lookup returns the profile for a two-letter issuing code, or the default
// profile when the code is unknown. It never fails.
func (s *Set) Lookup(code string) (Profile, bool) {
	p, ok := s.profiles[normalizeCode(code)]
	if !ok {
		return DefaultProfile, false
	}
	return p, true
}

// Codes lists the known issuing codes in stable order.
func (s *Set) Codes() []string {
	codes := make([]string, 0, len(s.profiles))
	for code := range s.profiles {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// RuleBlock renders the rules for one jurisdiction as instruction text. For
// unknown codes the block carries the default profile's generic assumptions.
func (s *Set) RuleBlock(code string) string {
	profile, known := s.Lookup(code)
	var b strings.Builder
	if known {
		fmt.Fprintf(&b, "Issuing jurisdiction: %s (%s)\n", profile.Name, normalizeCode(code))
	} else {
		b.WriteString("Issuing jurisdiction: unknown or not in the reference table\n")
	}
	renderProfile(&b, profile)
	return b.String()
}

// Reference renders every known jurisdiction into one block, suitable for a
// cacheable instruction prefix.
func (s *Set) Reference() string {
	var b strings.Builder
	b.WriteString("Jurisdiction reference (driver's license rules by issuing region):\n\n")
	for _, code := range s.Codes() {
		profile := s.profiles[code]
		fmt.Fprintf(&b, "%s — %s\n", code, profile.Name)
		renderProfile(&b, profile)
		b.WriteString("\n")
	}
	b.WriteString("Any other jurisdiction:\n")
	renderProfile(&b, DefaultProfile)
	return b.String()
}

func renderProfile(b *strings.Builder, p Profile) {
	fmt.Fprintf(b, "  Expiration: %s\n", p.ExpirationPolicy)
	if p.AgeBasedExpiration {
		fmt.Fprintf(b, "  If the expiration field is blank, compute it as the holder's date of birth plus %d years.\n", p.ExpirationAge)
	}
	fmt.Fprintf(b, "  Maximum plausible validity span: %d years\n", p.MaxValidityYears)
	fmt.Fprintf(b, "  License number format: %s\n", p.LicenseNumberFormat)
	if len(p.SecurityFeatures) > 0 {
		fmt.Fprintf(b, "  Known security features: %s\n", strings.Join(p.SecurityFeatures, ", "))
	}
	for _, quirk := range p.Quirks {
		fmt.Fprintf(b, "  Note: %s\n", quirk)
	}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
