package sqlite

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// JSONField is a generic type for handling JSON marshaling/unmarshaling in database
type JSONField[T any] struct {
	Data T
}

// Scan implements the sql.Scanner interface for reading from database
func (j *JSONField[T]) Scan(value any) error {
	if value == nil {
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.Errorf("cannot scan %T into JSONField", value)
		}
		bytes = []byte(str)
	}

	return json.Unmarshal(bytes, &j.Data)
}

// Value implements the driver.Valuer interface for writing to database
func (j JSONField[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.Data)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// dbContent holds the versioned columns shared by skills and skill_versions
type dbContent struct {
	Name          string                       `db:"name"`
	Description   string                       `db:"description"`
	Prompt        string                       `db:"prompt"`
	AllowedTools  string                       `db:"allowed_tools"`
	License       string                       `db:"license"`
	Compatibility string                       `db:"compatibility"`
	Metadata      JSONField[map[string]string] `db:"metadata"`
}

// dbSkill represents the skills table structure
type dbSkill struct {
	ID      string `db:"id"`
	SpaceID string `db:"space_id"`
	UserID  string `db:"user_id"`
	Slug    string `db:"slug"`
	Version int    `db:"version"`
	dbContent
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"` // NULL while active
}

// dbSkillVersion represents the skill_versions table structure
type dbSkillVersion struct {
	ID      string `db:"id"`
	SkillID string `db:"skill_id"`
	UserID  string `db:"user_id"`
	Slug    string `db:"slug"`
	Version int    `db:"version"`
	dbContent
	CreatedAt time.Time `db:"created_at"`
}

// dbSkillFile represents the skill_files table structure
type dbSkillFile struct {
	ID             string `db:"id"`
	SkillVersionID string `db:"skill_version_id"`
	Path           string `db:"path"`
	Content        string `db:"content"`
	Permissions    string `db:"permissions"`
	IsBase64       bool   `db:"is_base64"`
}

// dbSkillEvent represents the skill_events table structure
type dbSkillEvent struct {
	ID             int64     `db:"id"`
	Type           string    `db:"type"`
	SkillID        string    `db:"skill_id"`
	SpaceID        string    `db:"space_id"`
	OrganizationID string    `db:"organization_id"`
	UserID         string    `db:"user_id"`
	Source         string    `db:"source"`
	FileCount      *int      `db:"file_count"` // NULL when the operation carries no files
	CreatedAt      time.Time `db:"created_at"`
}

func fromContent(c skilltypes.Content) dbContent {
	return dbContent{
		Name:          c.Name,
		Description:   c.Description,
		Prompt:        c.Prompt,
		AllowedTools:  c.AllowedTools,
		License:       c.License,
		Compatibility: c.Compatibility,
		Metadata:      JSONField[map[string]string]{Data: c.Metadata},
	}
}

func (c dbContent) toContent() skilltypes.Content {
	out := skilltypes.Content{
		Name:          c.Name,
		Description:   c.Description,
		Prompt:        c.Prompt,
		AllowedTools:  c.AllowedTools,
		License:       c.License,
		Compatibility: c.Compatibility,
	}
	if len(c.Metadata.Data) > 0 {
		out.Metadata = c.Metadata.Data
	}
	return out
}

func fromSkill(s skilltypes.Skill) *dbSkill {
	return &dbSkill{
		ID:        string(s.ID),
		SpaceID:   string(s.SpaceID),
		UserID:    string(s.UserID),
		Slug:      s.Slug,
		Version:   s.Version,
		dbContent: fromContent(s.Content),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
		DeletedAt: s.DeletedAt,
	}
}

// ToSkill converts database record to domain model
func (d *dbSkill) ToSkill() skilltypes.Skill {
	return skilltypes.Skill{
		ID:        skilltypes.SkillID(d.ID),
		SpaceID:   skilltypes.SpaceID(d.SpaceID),
		UserID:    skilltypes.UserID(d.UserID),
		Slug:      d.Slug,
		Version:   d.Version,
		Content:   d.toContent(),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		DeletedAt: d.DeletedAt,
	}
}

func fromSkillVersion(v skilltypes.SkillVersion) *dbSkillVersion {
	return &dbSkillVersion{
		ID:        string(v.ID),
		SkillID:   string(v.SkillID),
		UserID:    string(v.UserID),
		Slug:      v.Slug,
		Version:   v.Version,
		dbContent: fromContent(v.Content),
		CreatedAt: v.CreatedAt,
	}
}

// ToSkillVersion converts database record to domain model
func (d *dbSkillVersion) ToSkillVersion() skilltypes.SkillVersion {
	return skilltypes.SkillVersion{
		ID:        skilltypes.SkillVersionID(d.ID),
		SkillID:   skilltypes.SkillID(d.SkillID),
		UserID:    skilltypes.UserID(d.UserID),
		Slug:      d.Slug,
		Version:   d.Version,
		Content:   d.toContent(),
		CreatedAt: d.CreatedAt,
	}
}

func fromSkillFile(f skilltypes.SkillFile) dbSkillFile {
	return dbSkillFile{
		ID:             string(f.ID),
		SkillVersionID: string(f.SkillVersionID),
		Path:           f.Path,
		Content:        f.Content,
		Permissions:    f.Permissions,
		IsBase64:       f.IsBase64,
	}
}

// ToSkillFile converts database record to domain model
func (d *dbSkillFile) ToSkillFile() skilltypes.SkillFile {
	return skilltypes.SkillFile{
		ID:             skilltypes.SkillFileID(d.ID),
		SkillVersionID: skilltypes.SkillVersionID(d.SkillVersionID),
		Path:           d.Path,
		Content:        d.Content,
		Permissions:    d.Permissions,
		IsBase64:       d.IsBase64,
	}
}

func fromEvent(e skilltypes.Event, at time.Time) *dbSkillEvent {
	p := e.Payload()
	return &dbSkillEvent{
		Type:           string(e.Type()),
		SkillID:        string(p.SkillID),
		SpaceID:        string(p.SpaceID),
		OrganizationID: string(p.OrganizationID),
		UserID:         string(p.UserID),
		Source:         string(p.Source),
		FileCount:      p.FileCount,
		CreatedAt:      at,
	}
}

// ToEventRecord converts database record to domain model
func (d *dbSkillEvent) ToEventRecord() skilltypes.EventRecord {
	return skilltypes.EventRecord{
		ID:   d.ID,
		Type: skilltypes.EventType(d.Type),
		EventPayload: skilltypes.EventPayload{
			SkillID:        skilltypes.SkillID(d.SkillID),
			SpaceID:        skilltypes.SpaceID(d.SpaceID),
			OrganizationID: skilltypes.OrganizationID(d.OrganizationID),
			UserID:         skilltypes.UserID(d.UserID),
			Source:         skilltypes.Source(d.Source),
			FileCount:      d.FileCount,
		},
		CreatedAt: d.CreatedAt,
	}
}
