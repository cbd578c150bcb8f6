package utils

import (
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// NewReferralCode builds the invite token shared in deep-links, e.g.
// "bob-3f2a91c4". The slug keeps codes readable, the suffix keeps them
// unique even for identical display names.
func NewReferralCode(username string) string {
	base := slug.Make(username)
	if base == "" {
		base = "player"
	}
	if len(base) > 24 {
		base = base[:24]
	}
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return base + "-" + suffix
}
