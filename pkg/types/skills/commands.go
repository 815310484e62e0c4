package skills

// Actor identifies the caller and the scope an operation runs in
type Actor struct {
	UserID         UserID         `json:"userId"`
	OrganizationID OrganizationID `json:"organizationId"`
	SpaceID        SpaceID        `json:"spaceId"`
}

// CreateSkillCommand creates a skill from explicit fields (UI path)
type CreateSkillCommand struct {
	Actor
	Content
}

// UpdateSkillCommand applies a partial update (UI path). Nil fields are left unchanged.
type UpdateSkillCommand struct {
	Actor
	SkillID       SkillID            `json:"skillId"`
	Name          *string            `json:"name,omitempty"`
	Description   *string            `json:"description,omitempty"`
	Prompt        *string            `json:"prompt,omitempty"`
	AllowedTools  *string            `json:"allowedTools,omitempty"`
	License       *string            `json:"license,omitempty"`
	Compatibility *string            `json:"compatibility,omitempty"`
	Metadata      *map[string]string `json:"metadata,omitempty"`
}

// UploadSkillCommand uploads a complete file bundle (CLI path)
type UploadSkillCommand struct {
	Actor
	Files []SkillFileInput `json:"files"`
}

// UploadSkillResult reports the resulting skill and whether a version was written
type UploadSkillResult struct {
	Skill          Skill `json:"skill"`
	VersionCreated bool  `json:"versionCreated"`
}

// SaveSkillVersionCommand stores a fully formed version payload for an existing skill
type SaveSkillVersionCommand struct {
	Actor
	SkillID SkillID `json:"skillId"`
	Content
	Files []SkillFileInput `json:"files,omitempty"`
}

// DeleteSkillCommand soft-deletes one skill
type DeleteSkillCommand struct {
	Actor
	SkillID SkillID `json:"skillId"`
}

// DeleteSkillsBatchCommand soft-deletes several skills with all-or-nothing validation
type DeleteSkillsBatchCommand struct {
	Actor
	SkillIDs []SkillID `json:"skillIds"`
}

// GetSkillByIDQuery addresses a skill by id
type GetSkillByIDQuery struct {
	Actor
	SkillID SkillID `json:"skillId"`
}

// FindSkillBySlugQuery addresses a skill by slug within the actor's space
type FindSkillBySlugQuery struct {
	Actor
	Slug string `json:"slug"`
}

// GetSkillVersionQuery addresses one version of a skill
type GetSkillVersionQuery struct {
	Actor
	SkillID SkillID `json:"skillId"`
	Version int     `json:"version"`
}
