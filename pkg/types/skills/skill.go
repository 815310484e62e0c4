// Package skills defines the entities, commands, collaborator contracts and
// domain events of the skill store: versioned SKILL.md documents owned by a
// space, their immutable version history and the supporting files attached
// to each version.
package skills

import (
	"time"

	"github.com/google/uuid"
)

// SkillFileName is the primary descriptor of a skill bundle. Its fields are
// extracted into the SkillVersion and it is never stored as a SkillFile.
const SkillFileName = "SKILL.md"

type (
	// SkillID identifies a Skill
	SkillID string
	// SkillVersionID identifies a SkillVersion
	SkillVersionID string
	// SkillFileID identifies a SkillFile
	SkillFileID string
	// SpaceID identifies a Space
	SpaceID string
	// OrganizationID identifies an Organization
	OrganizationID string
	// UserID identifies a User
	UserID string
)

// NewSkillID returns a fresh random skill id
func NewSkillID() SkillID { return SkillID(uuid.NewString()) }

// NewSkillVersionID returns a fresh random skill version id
func NewSkillVersionID() SkillVersionID { return SkillVersionID(uuid.NewString()) }

// NewSkillFileID returns a fresh random skill file id
func NewSkillFileID() SkillFileID { return SkillFileID(uuid.NewString()) }

// Content holds the versioned fields shared by Skill and SkillVersion.
// Optional text fields use the empty string for "absent".
type Content struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Prompt        string            `json:"prompt"`
	AllowedTools  string            `json:"allowedTools,omitempty"`
	License       string            `json:"license,omitempty"`
	Compatibility string            `json:"compatibility,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Skill is the current-state projection of a skill. Version always mirrors
// the most recently created SkillVersion.
type Skill struct {
	ID      SkillID `json:"id"`
	SpaceID SpaceID `json:"spaceId"`
	UserID  UserID  `json:"userId"`
	Slug    string  `json:"slug"`
	Version int     `json:"version"`
	Content

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// SkillVersion is an immutable snapshot of a skill's content.
// Versions of one skill form the dense sequence 1..N.
type SkillVersion struct {
	ID      SkillVersionID `json:"id"`
	SkillID SkillID        `json:"skillId"`
	UserID  UserID         `json:"userId"`
	Slug    string         `json:"slug"`
	Version int            `json:"version"`
	Content

	CreatedAt time.Time `json:"createdAt"`
}

// SkillFile is a supporting file owned by exactly one SkillVersion
type SkillFile struct {
	ID             SkillFileID    `json:"id"`
	SkillVersionID SkillVersionID `json:"skillVersionId"`
	Path           string         `json:"path"`
	Content        string         `json:"content"`
	Permissions    string         `json:"permissions"`
	IsBase64       bool           `json:"isBase64"`
}

// SkillFileInput is one file of an uploaded bundle
type SkillFileInput struct {
	Path        string `json:"path"`
	Content     string `json:"content"`
	Permissions string `json:"permissions"`
	IsBase64    bool   `json:"isBase64,omitempty"`
}

// SkillWithFiles bundles a skill with its latest version and that version's files
type SkillWithFiles struct {
	Skill         Skill        `json:"skill"`
	LatestVersion SkillVersion `json:"latestVersion"`
	Files         []SkillFile  `json:"files"`
}

// NewVersionFromSkill snapshots the skill's current content as a new version record
func NewVersionFromSkill(skill Skill, userID UserID, now time.Time) SkillVersion {
	return SkillVersion{
		ID:        NewSkillVersionID(),
		SkillID:   skill.ID,
		UserID:    userID,
		Slug:      skill.Slug,
		Version:   skill.Version,
		Content:   skill.Content.Clone(),
		CreatedAt: now,
	}
}

// Clone returns a deep copy of the content
func (c Content) Clone() Content {
	out := c
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// IsDeleted reports whether the skill has been soft-deleted
func (s Skill) IsDeleted() bool {
	return s.DeletedAt != nil
}
