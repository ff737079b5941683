package domain

import "time"

// ValidityConfidenceThreshold is the minimum overall confidence for a document
// to be considered valid. Fixed pending a policy decision on per-deployment
// configurability.
const ValidityConfidenceThreshold = 70

type AssessmentOutcome string

const (
	AssessmentPass   AssessmentOutcome = "PASS"
	AssessmentReview AssessmentOutcome = "REVIEW"
	AssessmentFail   AssessmentOutcome = "FAIL"
)

type QualityRating string

const (
	QualityGood QualityRating = "good"
	QualityFair QualityRating = "fair"
	QualityPoor QualityRating = "poor"
)

// ExtractedField is one identity attribute read from the document. Confidence
// is reported even when Value is empty; RawText preserves what was literally
// read, independent of normalization.
type ExtractedField struct {
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
	RawText    string `json:"raw_text"`
}

type ExtractedFields struct {
	FullName            ExtractedField `json:"full_name"`
	DateOfBirth         ExtractedField `json:"date_of_birth"`
	ExpirationDate      ExtractedField `json:"expiration_date"`
	LicenseNumber       ExtractedField `json:"license_number"`
	IssuingJurisdiction ExtractedField `json:"issuing_jurisdiction"`
	Address             ExtractedField `json:"address"`
}

// SecurityFeatures buckets known security features by what the photo shows.
// A feature landing in NotDetected is not automatically suspicious; it may be
// a resolution artifact.
type SecurityFeatures struct {
	Detected    []string          `json:"detected"`
	NotDetected []string          `json:"not_detected"`
	Obscured    []string          `json:"obscured"`
	Assessment  AssessmentOutcome `json:"assessment"`
}

// PhotoQuality holds five independent ratings. It contextualizes flags and
// never fails a document on its own.
type PhotoQuality struct {
	Lighting QualityRating `json:"lighting"`
	Angle    QualityRating `json:"angle"`
	Focus    QualityRating `json:"focus"`
	Glare    QualityRating `json:"glare"`
	Cropping QualityRating `json:"cropping"`
}

type JurisdictionAssessment struct {
	Jurisdiction     string `json:"jurisdiction"`
	FormatConsistent bool   `json:"format_consistent"`
	Notes            string `json:"notes,omitempty"`
}

type VerificationPath string

const (
	PathPrimary   VerificationPath = "primary"
	PathEscalated VerificationPath = "escalated"
	PathBatch     VerificationPath = "batch"
)

// VerificationResult is the aggregate outcome of one verification attempt.
// Constructed once, immutable after return; persistence belongs to the caller.
type VerificationResult struct {
	Success    bool `json:"success"`
	Confidence int  `json:"confidence"`

	Fields           ExtractedFields        `json:"fields"`
	SecurityFeatures SecurityFeatures       `json:"security_features"`
	PhotoQuality     PhotoQuality           `json:"photo_quality"`
	Jurisdiction     JurisdictionAssessment `json:"jurisdiction"`

	IsExpired   bool `json:"is_expired"`
	IsAuthentic bool `json:"is_authentic"`
	IsValid     bool `json:"is_valid"`

	CriticalFlags      []string `json:"critical_flags"`
	InformationalFlags []string `json:"informational_flags"`
	// RedFlags is CriticalFlags followed by InformationalFlags, kept for
	// consumers that predate the severity split.
	RedFlags []string `json:"red_flags"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	Path    VerificationPath `json:"path"`
	Model   string           `json:"model,omitempty"`
	Summary string           `json:"summary,omitempty"`
}

// NameComparisonResult reports whether a document name and a booking name
// refer to the same person.
type NameComparisonResult struct {
	Match bool `json:"match"`

	DocumentFirst  string `json:"document_first"`
	DocumentMiddle string `json:"document_middle,omitempty"`
	DocumentLast   string `json:"document_last"`
	BookingFirst   string `json:"booking_first"`
	BookingMiddle  string `json:"booking_middle,omitempty"`
	BookingLast    string `json:"booking_last"`

	// Mismatch holds a reviewer-facing diagnostic when Match is false.
	Mismatch string `json:"mismatch,omitempty"`
}

// Booking is the slice of a reservation record this core reads and writes.
type Booking struct {
	ID             string              `json:"id"`
	GuestName      string              `json:"guest_name"`
	DocumentFront  string              `json:"document_front"`
	DocumentBack   string              `json:"document_back,omitempty"`
	Jurisdiction   string              `json:"jurisdiction,omitempty"`
	Verification   *VerificationResult `json:"verification,omitempty"`
	VerifiedAt     *time.Time          `json:"verified_at,omitempty"`
	VerifiedBy     string              `json:"verified_by,omitempty"`
	VerifConfScore int                 `json:"verification_confidence,omitempty"`
}
