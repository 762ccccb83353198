package selector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// UI roles the publisher needs. Every role must have a non-empty candidate
// set; Registry.Verify enforces that at startup.
const (
	RoleLoginEmail     = "login-email-field"
	RoleLoginPassword  = "login-password-field"
	RoleLoginSubmit    = "login-submit-button"
	RoleAuthedMarker   = "authenticated-indicator"
	RoleComposerOpen   = "composer-open-button"
	RoleComposerText   = "composer-text-field"
	RoleMediaInput     = "media-file-input"
	RoleSubmitButton   = "post-submit-button"
	RolePostedMarker   = "posted-indicator"
)

// Registry maps a role name to its ordered candidate set.
type Registry map[string]CandidateSet

// Default candidate sets for the target site.
// These are isolated here because the site changes its DOM frequently;
// update these (or ship a YAML override) when publishing breaks.
func DefaultRegistry() Registry {
	return Registry{
		RoleLoginEmail: {Role: RoleLoginEmail, Candidates: []Candidate{
			{Name: "id-email", Query: `input#email`},
			{Name: "name-email", Query: `input[name="email"]`},
			{Name: "type-email", Query: `form input[type="email"]`},
		}},
		RoleLoginPassword: {Role: RoleLoginPassword, Candidates: []Candidate{
			{Name: "id-pass", Query: `input#pass`},
			{Name: "name-pass", Query: `input[name="pass"]`},
			{Name: "type-password", Query: `form input[type="password"]`},
		}},
		RoleLoginSubmit: {Role: RoleLoginSubmit, Candidates: []Candidate{
			{Name: "name-login", Query: `button[name="login"]`},
			{Name: "id-loginbutton", Query: `#loginbutton`},
			{Name: "type-submit", Query: `form button[type="submit"]`},
		}},
		RoleAuthedMarker: {Role: RoleAuthedMarker, Candidates: []Candidate{
			{Name: "aria-your-profile", Query: `[aria-label="Your profile"]`},
			{Name: "aria-account", Query: `[aria-label="Account"]`},
			{Name: "nav-bookmarks", Query: `a[href*="/bookmarks"]`},
		}},
		RoleComposerOpen: {Role: RoleComposerOpen, Candidates: []Candidate{
			{Name: "aria-create-post", Query: `[aria-label="Create a post"]`},
			{Name: "whats-on-your-mind", Query: `div[role="button"] span`},
			{Name: "status-placeholder", Query: `[data-testid="status-attachment-mentions-input"]`},
		}},
		RoleComposerText: {Role: RoleComposerText, Candidates: []Candidate{
			{Name: "composer-textbox", Query: `div[role="dialog"] div[role="textbox"]`},
			{Name: "contenteditable", Query: `div[contenteditable="true"][role="textbox"]`},
			{Name: "aria-whats-on-your-mind", Query: `[aria-label*="mind"]`},
		}},
		RoleMediaInput: {Role: RoleMediaInput, Candidates: []Candidate{
			{Name: "dialog-file-input", Query: `div[role="dialog"] input[type="file"]`},
			{Name: "accept-image-input", Query: `input[type="file"][accept*="image"]`},
			{Name: "any-file-input", Query: `input[type="file"]`},
		}},
		RoleSubmitButton: {Role: RoleSubmitButton, Candidates: []Candidate{
			{Name: "aria-post", Query: `div[role="dialog"] [aria-label="Post"]`},
			{Name: "dialog-submit", Query: `div[role="dialog"] div[role="button"][tabindex="0"]`},
			{Name: "button-post-text", Query: `div[role="dialog"] button`},
		}},
		RolePostedMarker: {Role: RolePostedMarker, Candidates: []Candidate{
			{Name: "toast-posted", Query: `[role="alert"]`},
			{Name: "dialog-gone-feed", Query: `div[role="feed"]`},
			{Name: "story-permalink", Query: `a[href*="/posts/"]`},
		}},
	}
}

// LoadOverrides replaces registry entries from a YAML file. Roles absent from
// the file keep their defaults; a role present with no candidates is an error
// rather than a silent removal.
func (r Registry) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var sets []CandidateSet
	if err := yaml.Unmarshal(data, &sets); err != nil {
		return fmt.Errorf("failed to parse selector overrides: %w", err)
	}

	for _, set := range sets {
		if set.Role == "" {
			return fmt.Errorf("selector override with empty role")
		}
		if len(set.Candidates) == 0 {
			return fmt.Errorf("selector override for role %q has no candidates", set.Role)
		}
		r[set.Role] = set
	}
	return nil
}

// Verify checks that every role in roles has a non-empty candidate set.
func (r Registry) Verify(roles ...string) error {
	for _, role := range roles {
		set, ok := r[role]
		if !ok || len(set.Candidates) == 0 {
			return fmt.Errorf("role %q has no selector candidates", role)
		}
	}
	return nil
}

// AllRoles lists every role the publisher uses, in flow order.
func AllRoles() []string {
	return []string{
		RoleLoginEmail, RoleLoginPassword, RoleLoginSubmit, RoleAuthedMarker,
		RoleComposerOpen, RoleComposerText, RoleMediaInput, RoleSubmitButton,
		RolePostedMarker,
	}
}
