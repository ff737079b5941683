// Package analysis assembles vision-model requests for document verification:
// an ordered multi-modal content sequence plus a strict output schema. All
// construction is pure; the policy encoded in the instruction text is what
// keeps the pipeline usable against real phone photos.
package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/driveon/idverify/internal/core/domain"
	"github.com/driveon/idverify/internal/core/jurisdiction"
)

// ImageTransformer constrains an image reference to the dimensions, quality,
// and format the model should receive. Unrecognized references pass through.
type ImageTransformer interface {
	Constrain(ref string) string
}

type Builder struct {
	rules  *jurisdiction.Set
	images ImageTransformer
}

func NewBuilder(rules *jurisdiction.Set, images ImageTransformer) *Builder {
	return &Builder{rules: rules, images: images}
}

// System returns the cacheable instruction prefix: the analyst role plus the
// full jurisdiction reference. It is identical across requests so providers
// can cache it.
func (b *Builder) System() string {
	var s strings.Builder
	s.WriteString("You are a document verification analyst for a vehicle rental platform. ")
	s.WriteString("You examine photographs of driver's licenses, extract identity fields, ")
	s.WriteString("and assess authenticity. You are reviewing photos taken by ordinary ")
	s.WriteString("people on phone cameras, not scanner images.\n\n")
	s.WriteString(b.rules.Reference())
	return s.String()
}

// Build produces the ordered content sequence for one document: image blocks
// first (front before back), then the analysis instructions. Every image
// reference is passed through the transformer before placement.
func (b *Builder) Build(frontImage, backImage, jurisdictionHint string, now time.Time) []domain.ContentBlock {
	blocks := make([]domain.ContentBlock, 0, 3)
	blocks = append(blocks, domain.Image(b.images.Constrain(frontImage)))
	if backImage != "" {
		blocks = append(blocks, domain.Image(b.images.Constrain(backImage)))
	}
	blocks = append(blocks, domain.Text(b.instructions(jurisdictionHint, backImage != "", now)))
	return blocks
}

func (b *Builder) instructions(jurisdictionHint string, hasBack bool, now time.Time) string {
	var s strings.Builder

	if hasBack {
		s.WriteString("Analyze the driver's license shown in the two images above. ")
		s.WriteString("The first image is the front of the card, the second is the back.\n\n")
	} else {
		s.WriteString("Analyze the driver's license shown in the image above.\n\n")
	}

	fmt.Fprintf(&s, "Today's date is %s.\n\n", now.Format("January 2, 2006"))

	if jurisdictionHint != "" {
		s.WriteString(b.rules.RuleBlock(jurisdictionHint))
		s.WriteString("\n")
	}

	s.WriteString(`Extract every identity field. For each field report the normalized value, a 0-100 confidence, and the raw text as literally printed. Report confidence even when a field is absent or unreadable.

Grading policy, apply exactly:
- Ordinary phone-camera artifacts (mild blur, glare, reflections, wear, slight rotation) are expected. Never raise a flag for them; describe them only in the photo quality ratings.
- The phrase "NOT VALID FOR OFFICIAL FEDERAL PURPOSES" or similar non-Real-ID boilerplate is standard card text. It is never a flag.
- If the document says "IDENTIFICATION CARD" rather than "DRIVER LICENSE" or "DRIVER'S LICENSE", it is the wrong document type. Raise a critical flag and mark the document not authentic.
- If the expiration field is blank and the jurisdiction uses age-based expiration, compute the expiration as the date of birth plus the stated age. Otherwise leave the value empty. Never invent an expiration date that is neither printed nor derivable from the jurisdiction rules.
- A security feature you cannot see is not by itself suspicious; photo resolution commonly hides holograms and microprint. Put it in the not-detected bucket and weigh it only alongside other signals.
- Report the full name in natural "first middle last" order regardless of how the card orders its name fields.

Classify anomalies by severity: critical flags are blocking problems (wrong document type, signs of fabrication or tampering, unreadable identity fields); informational flags are worth a reviewer's attention but not disqualifying.`)

	return s.String()
}
