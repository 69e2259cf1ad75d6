// Package store is the manual-SQL data access layer for the tables this
// gateway shares with the main AlumniHuddle application: huddles and member
// profiles. Gateway-owned tables (users, chat models) live in the gorm layer
// instead.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const DefaultHuddleSlug = "default"

// MentorStatus marks a profile as listed in the mentor directory.
const MentorStatus = "Willing to mentor"

// Huddle is one tenant, a university team or group identified by its slug.
type Huddle struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Slug            string       `db:"slug" json:"slug"`
	LogoURL         string       `db:"logo_url" json:"logo_url,omitempty"`
	CoverPhotoURL   string       `db:"cover_photo_url" json:"cover_photo_url,omitempty"`
	PrimaryColor    string       `db:"primary_color" json:"primary_color,omitempty"`
	SecondaryColor  string       `db:"secondary_color" json:"secondary_color,omitempty"`
	RequireApproval bool         `db:"require_approval" json:"require_approval"`
	AdminEmail      string       `db:"admin_email" json:"admin_email,omitempty"`
	Description     string       `db:"description" json:"description,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	DeletedAt       sql.NullTime `db:"deleted_at" json:"-"`
}

// MentorProfile is a member profile restricted to the fields the mentor
// directory exposes. Contact details stay out on purpose.
type MentorProfile struct {
	ID               string       `db:"id" json:"id"`
	HuddleID         string       `db:"huddle_id" json:"huddle_id"`
	FullName         string       `db:"full_name" json:"full_name"`
	ClassYear        int          `db:"class_year" json:"class_year"`
	MetroArea        string       `db:"metro_area" json:"metro_area"`
	CurrentCompany   string       `db:"current_company" json:"current_company,omitempty"`
	Title            string       `db:"title" json:"title,omitempty"`
	PriorRoles       string       `db:"prior_roles" json:"prior_roles,omitempty"`
	Industry         string       `db:"industry" json:"industry,omitempty"`
	SkillsExperience string       `db:"skills_experience" json:"skills_experience,omitempty"`
	LinkedinURL      string       `db:"linkedin_url" json:"linkedin_url,omitempty"`
	PhotoURL         string       `db:"photo_url" json:"photo_url,omitempty"`
	MentorshipStatus string       `db:"mentorship_status" json:"-"`
	DeletedAt        sql.NullTime `db:"deleted_at" json:"-"`
}

// Store provides manual-SQL data access.
type Store struct {
	DB *DB
}

func New(db *DB) *Store {
	return &Store{DB: db}
}

func (s *Store) ensureDB() (*sqlx.DB, error) {
	if s == nil || s.DB == nil || s.DB.DB == nil {
		return nil, fmt.Errorf("nil db")
	}
	return s.DB.DB, nil
}

// EnsureHuddle guarantees a huddle row exists for the slug, creating a
// minimal one on first boot. Used for the configured default tenant.
func (s *Store) EnsureHuddle(ctx context.Context, slug, name string) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if slug == "" {
		slug = DefaultHuddleSlug
	}
	if name == "" {
		name = slug
	}
	stmt := s.DB.Rebind(`INSERT INTO huddles(id, name, slug, require_approval, created_at)
		VALUES(?, ?, ?, FALSE, ?) ON CONFLICT(slug) DO NOTHING`)
	_, err = db.ExecContext(ctx, stmt, uuid.NewString(), name, strings.ToLower(slug), time.Now().UTC())
	return err
}

func (s *Store) GetHuddleByID(ctx context.Context, huddleID string) (*Huddle, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	stmt := s.DB.Rebind("SELECT * FROM huddles WHERE id = ? AND deleted_at IS NULL")
	var huddle Huddle
	if err := db.GetContext(ctx, &huddle, stmt, huddleID); err != nil {
		return nil, err
	}
	return &huddle, nil
}

// GetHuddleBySlug resolves the subdomain slug to a huddle, used on every
// tenanted request (behind the redis cache).
func (s *Store) GetHuddleBySlug(ctx context.Context, slug string) (*Huddle, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	stmt := s.DB.Rebind("SELECT * FROM huddles WHERE slug = ? AND deleted_at IS NULL")
	var huddle Huddle
	if err := db.GetContext(ctx, &huddle, stmt, strings.ToLower(slug)); err != nil {
		return nil, err
	}
	return &huddle, nil
}

func (s *Store) ListHuddles(ctx context.Context, includeDeleted bool, skip, limit int) ([]Huddle, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	query := "SELECT * FROM huddles"
	if !includeDeleted {
		query += " WHERE deleted_at IS NULL"
	}
	query += " ORDER BY name ASC LIMIT ? OFFSET ?"
	stmt := s.DB.Rebind(query)
	huddles := []Huddle{}
	if err := db.SelectContext(ctx, &huddles, stmt, limit, skip); err != nil {
		return nil, err
	}
	return huddles, nil
}

// ListMentorsByHuddle returns the huddle's mentor directory, name-ordered.
// Only profiles that opted into mentoring are listed.
func (s *Store) ListMentorsByHuddle(ctx context.Context, huddleID string, skip, limit int) ([]MentorProfile, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}
	stmt := s.DB.Rebind(`SELECT id, huddle_id, full_name, class_year, metro_area, current_company, title,
		prior_roles, industry, skills_experience, linkedin_url, photo_url, mentorship_status, deleted_at
		FROM profiles
		WHERE huddle_id = ? AND mentorship_status = ? AND deleted_at IS NULL
		ORDER BY full_name ASC LIMIT ? OFFSET ?`)
	mentors := []MentorProfile{}
	if err := db.SelectContext(ctx, &mentors, stmt, huddleID, MentorStatus, limit, skip); err != nil {
		return nil, err
	}
	return mentors, nil
}

func (s *Store) GetMentorByID(ctx context.Context, mentorID string) (*MentorProfile, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	stmt := s.DB.Rebind(`SELECT id, huddle_id, full_name, class_year, metro_area, current_company, title,
		prior_roles, industry, skills_experience, linkedin_url, photo_url, mentorship_status, deleted_at
		FROM profiles
		WHERE id = ? AND mentorship_status = ? AND deleted_at IS NULL`)
	var mentor MentorProfile
	if err := db.GetContext(ctx, &mentor, stmt, mentorID, MentorStatus); err != nil {
		return nil, err
	}
	return &mentor, nil
}

func (s *Store) CountMentorsByHuddle(ctx context.Context, huddleID string) (int, error) {
	db, err := s.ensureDB()
	if err != nil {
		return 0, err
	}
	stmt := s.DB.Rebind("SELECT COUNT(*) FROM profiles WHERE huddle_id = ? AND mentorship_status = ? AND deleted_at IS NULL")
	var count int
	if err := db.GetContext(ctx, &count, stmt, huddleID, MentorStatus); err != nil {
		return 0, err
	}
	return count, nil
}

// HuddleIDsWithMentors lists every huddle that has at least one mentor, the
// input to the directory reindex job.
func (s *Store) HuddleIDsWithMentors(ctx context.Context) ([]string, error) {
	db, err := s.ensureDB()
	if err != nil {
		return nil, err
	}
	stmt := s.DB.Rebind("SELECT DISTINCT huddle_id FROM profiles WHERE mentorship_status = ? AND deleted_at IS NULL")
	var ids []string
	if err := db.SelectContext(ctx, &ids, stmt, MentorStatus); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateMentorProfile inserts a profile row. The gateway itself never does
// this in production (profiles belong to the main application) but seeding is
// needed for tests and local development.
func (s *Store) CreateMentorProfile(ctx context.Context, profile *MentorProfile) error {
	db, err := s.ensureDB()
	if err != nil {
		return err
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	if profile.MentorshipStatus == "" {
		profile.MentorshipStatus = MentorStatus
	}
	now := time.Now().UTC()
	stmt := s.DB.Rebind(`INSERT INTO profiles(
		id, huddle_id, full_name, class_year, metro_area, current_company, title,
		prior_roles, industry, skills_experience, linkedin_url, photo_url, mentorship_status, created_at, updated_at
	) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = db.ExecContext(ctx, stmt,
		profile.ID,
		profile.HuddleID,
		profile.FullName,
		profile.ClassYear,
		profile.MetroArea,
		profile.CurrentCompany,
		profile.Title,
		profile.PriorRoles,
		profile.Industry,
		profile.SkillsExperience,
		profile.LinkedinURL,
		profile.PhotoURL,
		profile.MentorshipStatus,
		now,
		now,
	)
	return err
}

// ErrNotFound returns true if the provided error is a not found error.
func ErrNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, sql.ErrNoRows) || strings.Contains(err.Error(), "no rows")
}
