package content

import (
	"fmt"
	"strings"

	"github.com/propline/promopost/internal/types"
)

// buildPrompt assembles the drafting prompt for one listing.
func buildPrompt(item types.ListingItem, agencyTag string) string {
	var b strings.Builder

	b.WriteString("Write a short, engaging social media post promoting this property listing. ")
	b.WriteString("Plain text only, no markdown, no hashtag spam (at most three), under 120 words. ")
	b.WriteString("Lead with the most attractive feature and end with a call to action.\n\n")

	b.WriteString("Listing details:\n")
	fmt.Fprintf(&b, "- Address: %s\n", item.Address)
	fmt.Fprintf(&b, "- Price: %s\n", item.Price)
	if item.Bedrooms > 0 {
		fmt.Fprintf(&b, "- Bedrooms: %d\n", item.Bedrooms)
	}
	if item.Bathrooms > 0 {
		fmt.Fprintf(&b, "- Bathrooms: %g\n", item.Bathrooms)
	}
	if item.SquareFeet > 0 {
		fmt.Fprintf(&b, "- Square feet: %d\n", item.SquareFeet)
	}
	if len(item.Features) > 0 {
		fmt.Fprintf(&b, "- Features: %s\n", strings.Join(item.Features, ", "))
	}
	if agencyTag != "" {
		fmt.Fprintf(&b, "\nSign off with: %s\n", agencyTag)
	}

	b.WriteString("\nRespond with the post text only.")
	return b.String()
}
