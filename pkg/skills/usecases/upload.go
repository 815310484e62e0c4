package usecases

import (
	"context"
	"encoding/base64"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// UploadSkill ingests a complete bundle. A new slug creates a skill, an
// existing one gets a new version unless the bundle matches the latest
// version exactly.
type UploadSkill struct {
	deps
}

// NewUploadSkill creates the UploadSkill use case
func NewUploadSkill(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *UploadSkill {
	return &UploadSkill{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute parses and validates SKILL.md before touching the store, so parse
// and validation failures have no side effects
func (uc *UploadSkill) Execute(ctx context.Context, cmd skilltypes.UploadSkillCommand) (*skilltypes.UploadSkillResult, error) {
	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return nil, err
	}

	content, err := parseBundle(cmd.Files)
	if err != nil {
		return nil, err
	}
	fileCount := len(newFiles("", cmd.Files))
	log := logger.G(ctx).WithFields(logrus.Fields{
		"spaceId": space.ID,
		"name":    content.Name,
		"files":   fileCount,
	})

	var (
		result skilltypes.UploadSkillResult
		event  skilltypes.Event
	)
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, repos skilltypes.Repositories) error {
		existing, err := findUploadTarget(ctx, repos.Skills(), space.ID, content.Name)
		if err != nil {
			return err
		}

		if existing == nil {
			skill, err := uc.create(ctx, repos, cmd, space, content)
			if err != nil {
				return err
			}
			result = skilltypes.UploadSkillResult{Skill: *skill, VersionCreated: true}
			event = skilltypes.SkillCreated{
				EventPayload: payload(cmd.Actor, skill.ID, space.ID, skilltypes.SourceCLI, skilltypes.FileCount(fileCount)),
			}
			return nil
		}

		latest, err := repos.Versions().FindLatest(ctx, existing.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to load latest version of skill %s", existing.ID)
		}
		if latest != nil {
			latestFiles, err := repos.Files().ListByVersion(ctx, latest.ID)
			if err != nil {
				return errors.Wrapf(err, "failed to load files of version %d", latest.Version)
			}
			if skills.IsIdentical(*latest, latestFiles, content, cmd.Files) {
				result = skilltypes.UploadSkillResult{Skill: *existing, VersionCreated: false}
				return nil
			}
		}

		skill, err := uc.bump(ctx, repos, cmd, existing, latest, content)
		if err != nil {
			return err
		}
		result = skilltypes.UploadSkillResult{Skill: *skill, VersionCreated: true}
		event = skilltypes.SkillUpdated{
			EventPayload: payload(cmd.Actor, skill.ID, space.ID, skilltypes.SourceCLI, skilltypes.FileCount(fileCount)),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.VersionCreated {
		log.WithField("skillId", result.Skill.ID).Info("skill content unchanged, no version created")
		return &result, nil
	}

	log.WithFields(logrus.Fields{
		"skillId": result.Skill.ID,
		"slug":    result.Skill.Slug,
		"version": result.Skill.Version,
	}).Info("skill uploaded")
	uc.emit(ctx, event)
	return &result, nil
}

func (uc *UploadSkill) create(ctx context.Context, repos skilltypes.Repositories, cmd skilltypes.UploadSkillCommand, space *skilltypes.Space, content skilltypes.Content) (*skilltypes.Skill, error) {
	// Soft-deleted skills keep their slugs reserved
	slugs, err := repos.Skills().ListSlugs(ctx, space.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list slugs")
	}

	now := uc.now()
	skill := skilltypes.Skill{
		ID:        skilltypes.NewSkillID(),
		SpaceID:   space.ID,
		UserID:    cmd.UserID,
		Slug:      skills.AllocateSlug(content.Name, slugs, ""),
		Version:   1,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repos.Skills().Add(ctx, skill); err != nil {
		return nil, errors.Wrap(err, "failed to add skill")
	}
	if err := writeVersion(ctx, repos, skilltypes.NewVersionFromSkill(skill, cmd.UserID, now), cmd.Files); err != nil {
		return nil, err
	}
	return &skill, nil
}

func (uc *UploadSkill) bump(ctx context.Context, repos skilltypes.Repositories, cmd skilltypes.UploadSkillCommand, existing *skilltypes.Skill, latest *skilltypes.SkillVersion, content skilltypes.Content) (*skilltypes.Skill, error) {
	next := existing.Version + 1
	if latest != nil {
		next = latest.Version + 1
	}

	now := uc.now()
	skill := *existing
	skill.Content = content
	skill.Version = next
	skill.UpdatedAt = now

	if err := repos.Skills().Update(ctx, skill); err != nil {
		return nil, errors.Wrap(err, "failed to update skill")
	}
	if err := writeVersion(ctx, repos, skilltypes.NewVersionFromSkill(skill, cmd.UserID, now), cmd.Files); err != nil {
		return nil, err
	}
	return &skill, nil
}

// findUploadTarget returns the live skill an upload of name applies to: the
// one holding the name's slug, or else the one carrying the same name under a
// suffixed slug.
func findUploadTarget(ctx context.Context, repo skilltypes.SkillRepository, spaceID skilltypes.SpaceID, name string) (*skilltypes.Skill, error) {
	skill, err := repo.FindBySlug(ctx, spaceID, skills.Slugify(name))
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up skill by slug")
	}
	if skill != nil {
		return skill, nil
	}

	live, err := repo.ListBySpace(ctx, spaceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list skills")
	}
	for i := range live {
		if live[i].Name == name {
			return &live[i], nil
		}
	}
	return nil, nil
}

// writeVersion persists a version together with its supporting file set
func writeVersion(ctx context.Context, repos skilltypes.Repositories, version skilltypes.SkillVersion, inputs []skilltypes.SkillFileInput) error {
	if err := repos.Versions().Add(ctx, version); err != nil {
		return errors.Wrap(err, "failed to add skill version")
	}
	if files := newFiles(version.ID, inputs); len(files) > 0 {
		if err := repos.Files().AddMany(ctx, files); err != nil {
			return errors.Wrap(err, "failed to add skill files")
		}
	}
	return nil
}

// parseBundle extracts and validates the versioned fields from SKILL.md
func parseBundle(files []skilltypes.SkillFileInput) (skilltypes.Content, error) {
	var descriptor *skilltypes.SkillFileInput
	for i := range files {
		if files[i].Path == skilltypes.SkillFileName {
			descriptor = &files[i]
			break
		}
	}
	if descriptor == nil {
		return skilltypes.Content{}, skills.ErrMissingSkillFile(skilltypes.SkillFileName)
	}

	raw := descriptor.Content
	if descriptor.IsBase64 {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return skilltypes.Content{}, errors.Wrapf(err, "failed to decode %s", skilltypes.SkillFileName)
		}
		raw = string(decoded)
	}

	doc, err := skills.ParseFrontmatter(raw)
	if err != nil {
		return skilltypes.Content{}, err
	}
	if err := skills.ValidateOrError(doc.Frontmatter); err != nil {
		return skilltypes.Content{}, err
	}
	return doc.ToContent(), nil
}
