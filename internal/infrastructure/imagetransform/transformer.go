// Package imagetransform rewrites document image URLs so the CDN serves a
// bounded, recompressed rendition instead of the original upload. Smaller
// inputs keep vision costs down without touching pixel data ourselves.
package imagetransform

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	defaultMaxDimension = 1568
	defaultQuality      = 80
)

type Transformer struct {
	host         string
	maxDimension int
	quality      int
}

// New builds a transformer scoped to one storage host. References on any
// other host pass through untouched; we cannot assume foreign CDNs honor our
// resize parameters.
func New(host string, maxDimension, quality int) *Transformer {
	if maxDimension <= 0 {
		maxDimension = defaultMaxDimension
	}
	if quality <= 0 || quality > 100 {
		quality = defaultQuality
	}
	return &Transformer{
		host:         strings.ToLower(host),
		maxDimension: maxDimension,
		quality:      quality,
	}
}

func (t *Transformer) Constrain(ref string) string {
	if t.host == "" {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil || !strings.EqualFold(parsed.Host, t.host) {
		return ref
	}

	query := parsed.Query()
	query.Set("w", strconv.Itoa(t.maxDimension))
	query.Set("h", strconv.Itoa(t.maxDimension))
	query.Set("fit", "inside")
	query.Set("q", strconv.Itoa(t.quality))
	query.Set("fm", "jpeg")
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
