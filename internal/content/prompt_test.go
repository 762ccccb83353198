package content

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/propline/promopost/internal/types"
)

func TestBuildPromptIncludesListingDetails(t *testing.T) {
	item := types.ListingItem{
		ID:         "lst-1",
		Address:    "12 Elm St",
		Price:      "$450,000",
		Bedrooms:   3,
		Bathrooms:  2.5,
		SquareFeet: 1800,
		Features:   []string{"garage", "garden"},
	}

	prompt := buildPrompt(item, "Propline Realty")

	assert.Contains(t, prompt, "12 Elm St")
	assert.Contains(t, prompt, "$450,000")
	assert.Contains(t, prompt, "Bedrooms: 3")
	assert.Contains(t, prompt, "Bathrooms: 2.5")
	assert.Contains(t, prompt, "Square feet: 1800")
	assert.Contains(t, prompt, "garage, garden")
	assert.Contains(t, prompt, "Propline Realty")
}

func TestBuildPromptOmitsUnknownFields(t *testing.T) {
	item := types.ListingItem{ID: "lst-2", Address: "9 Oak Ave", Price: "$310,000"}

	prompt := buildPrompt(item, "")

	assert.NotContains(t, prompt, "Bedrooms")
	assert.NotContains(t, prompt, "Bathrooms")
	assert.NotContains(t, prompt, "Square feet")
	assert.NotContains(t, prompt, "Features")
	assert.NotContains(t, prompt, "Sign off")
}
