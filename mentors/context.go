// Package mentors serves the huddle-scoped mentor directory and renders it
// into the context documents the chat layer feeds to the model.
package mentors

import (
	"fmt"
	"strings"

	"github.com/alumnihuddle/huddle-gateway/store"
)

const (
	maxSkillsLen = 200
	maxPriorLen  = 150
)

// DirectoryURL is where members find mentor contact information.
func DirectoryURL(slug, baseDomain string) string {
	return fmt.Sprintf("https://%s.%s", slug, baseDomain)
}

func profileURL(slug, baseDomain, mentorID string) string {
	return fmt.Sprintf("https://%s.%s/profile/%s", slug, baseDomain, mentorID)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// FormatMentorEntry renders one mentor in the strict directory format:
// Name - Class of Year / Title, Company (Industry), then indented detail lines.
func FormatMentorEntry(m *store.MentorProfile, slug, baseDomain string) string {
	header := fmt.Sprintf("%s - Class of %d", m.FullName, m.ClassYear)
	role := ""
	switch {
	case m.Title != "" && m.CurrentCompany != "":
		role = m.Title + ", " + m.CurrentCompany
	case m.Title != "":
		role = m.Title
	case m.CurrentCompany != "":
		role = m.CurrentCompany
	}
	if m.Industry != "" {
		if role != "" {
			role += " "
		}
		role += "(" + m.Industry + ")"
	}
	if role != "" {
		header += " / " + role
	}

	lines := []string{
		header,
		"  Location: " + m.MetroArea,
		"  Profile: " + profileURL(slug, baseDomain, m.ID),
	}
	if link := strings.TrimSpace(m.LinkedinURL); link != "" && link != "www.linkedin.com/in/" {
		lines = append(lines, "  LinkedIn: "+link)
	}
	if m.SkillsExperience != "" {
		lines = append(lines, "  Skills & Expertise: "+truncate(m.SkillsExperience, maxSkillsLen))
	}
	if m.PriorRoles != "" {
		lines = append(lines, "  Prior Experience: "+truncate(m.PriorRoles, maxPriorLen))
	}
	return strings.Join(lines, "\n")
}

// DirectoryDocument renders the full mentor directory for a huddle, one entry
// per mentor separated by blank lines. Empty when the huddle has no mentors.
func DirectoryDocument(huddle *store.Huddle, profiles []store.MentorProfile, baseDomain string) string {
	if len(profiles) == 0 {
		return ""
	}
	entries := make([]string, 0, len(profiles))
	for i := range profiles {
		entries = append(entries, FormatMentorEntry(&profiles[i], huddle.Slug, baseDomain))
	}
	return strings.Join(entries, "\n\n")
}

// BuildSystemPrompt assembles the per-huddle mentor matcher prompt around the
// rendered directory. With no mentors yet it degrades to general coaching.
func BuildSystemPrompt(huddle *store.Huddle, directory string, mentorCount int, baseDomain string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are AlumniHuddle Mentor Matcher, an assistant that helps members of %s connect with the best possible alumni mentors and provides career coaching when appropriate.\n\n", huddle.Name)

	fmt.Fprintf(&b, `## KNOWLEDGE BASE

You have read-only access to a verified and authoritative mentor database for the %s network: full name, class year, current role, industry, location, LinkedIn URL, skills and prior experience where available. Treat it as complete. Never say you cannot access the database and never mention internal constraints or system mechanics.

## MENTOR MATCHING

When a member asks for a mentor match, gather their year, background, target roles or industries, locations and what they want help with, then recommend 3 to 5 mentors. Prefer a mix of at least one senior alum and one recent graduate when available; relevance always outweighs variety. Rank by industry alignment, career path relevance, seniority, shared background, location fit, then class year proximity.

For each mentor present, in order: **Full Name** - Class Year / Current Job Title, Current Company (Industry), the profile link from the database, the LinkedIn URL only if one exists, and a short paragraph on why they fit. Never invent mentors or details and never guess URLs; omit anything missing.

After recommendations include 1-2 tailored conversation starters per mentor, a short first-call agenda, a copy-paste outreach email template, and this note: "You can find each mentor's contact information directly in your AlumniHuddle directory: %s"

## CAREER COACHING

If the member wants coaching only, ask them to describe their goal in their own words and give focused, actionable guidance.

## GUARDRAILS

Keep responses concise, specific and human. When information is sufficient, proceed confidently.

`, huddle.Name, DirectoryURL(huddle.Slug, baseDomain))

	if directory != "" {
		fmt.Fprintf(&b, "## MENTOR DATABASE (%d mentors available)\n\nThe following is the complete mentor directory for %s. Use this data to make recommendations.\n\n%s\n", mentorCount, huddle.Name, directory)
	} else {
		fmt.Fprintf(&b, "## NOTE\n\nThe mentor directory for %s is currently being set up. Help members with general career advice for now.\n", huddle.Name)
	}
	return b.String()
}
