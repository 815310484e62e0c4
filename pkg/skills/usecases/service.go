package usecases

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// SkillServiceInterface is the full set of skill operations
type SkillServiceInterface interface {
	CreateSkill(ctx context.Context, cmd skilltypes.CreateSkillCommand) (*skilltypes.Skill, error)
	UpdateSkill(ctx context.Context, cmd skilltypes.UpdateSkillCommand) (*skilltypes.Skill, error)
	UploadSkill(ctx context.Context, cmd skilltypes.UploadSkillCommand) (*skilltypes.UploadSkillResult, error)
	SaveSkillVersion(ctx context.Context, cmd skilltypes.SaveSkillVersionCommand) (*skilltypes.SkillVersion, error)
	DeleteSkill(ctx context.Context, cmd skilltypes.DeleteSkillCommand) error
	DeleteSkillsBatch(ctx context.Context, cmd skilltypes.DeleteSkillsBatchCommand) error

	GetSkillByID(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.Skill, error)
	FindSkillBySlug(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.Skill, error)
	ListSkills(ctx context.Context, actor skilltypes.Actor) ([]skilltypes.Skill, error)
	GetSkillVersion(ctx context.Context, query skilltypes.GetSkillVersionQuery) (*skilltypes.SkillVersion, error)
	GetLatestVersion(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.SkillVersion, error)
	ListSkillVersions(ctx context.Context, query skilltypes.GetSkillByIDQuery) ([]skilltypes.SkillVersion, error)
	GetSkillWithFiles(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.SkillWithFiles, error)
	GetVersionFiles(ctx context.Context, query skilltypes.GetSkillVersionQuery) ([]skilltypes.SkillFile, error)
}

// Service wires every use case against one set of collaborators and wraps
// each call in a log line and a trace span
type Service struct {
	create      *CreateSkill
	update      *UpdateSkill
	upload      *UploadSkill
	saveVersion *SaveSkillVersion
	deleteOne   *DeleteSkill
	deleteBatch *DeleteSkillsBatch
	queries     *Queries
}

var _ SkillServiceInterface = (*Service)(nil)

// NewService creates a Service
func NewService(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *Service {
	return &Service{
		create:      NewCreateSkill(store, members, spaces, sink, opts...),
		update:      NewUpdateSkill(store, members, spaces, sink, opts...),
		upload:      NewUploadSkill(store, members, spaces, sink, opts...),
		saveVersion: NewSaveSkillVersion(store, members, spaces, sink, opts...),
		deleteOne:   NewDeleteSkill(store, members, spaces, sink, opts...),
		deleteBatch: NewDeleteSkillsBatch(store, members, spaces, sink, opts...),
		queries:     NewQueries(store, members, spaces, opts...),
	}
}

// begin attaches the actor's fields to the context logger and logs the call
func begin(ctx context.Context, op string, actor skilltypes.Actor, fields logrus.Fields) context.Context {
	f := logrus.Fields{
		"op":             op,
		"spaceId":        actor.SpaceID,
		"organizationId": actor.OrganizationID,
		"userId":         logger.MaskID(string(actor.UserID)),
	}
	ctx = logger.WithFields(ctx, f)
	logger.G(ctx).WithFields(fields).Info("executing skill operation")
	return ctx
}

func actorAttrs(actor skilltypes.Actor, extra ...attribute.KeyValue) []attribute.KeyValue {
	return append([]attribute.KeyValue{
		telemetry.AttrSpaceID.String(string(actor.SpaceID)),
		telemetry.AttrOrgID.String(string(actor.OrganizationID)),
	}, extra...)
}

// CreateSkill creates a skill from explicit fields
func (s *Service) CreateSkill(ctx context.Context, cmd skilltypes.CreateSkillCommand) (*skilltypes.Skill, error) {
	ctx = begin(ctx, "CreateSkill", cmd.Actor, logrus.Fields{"name": cmd.Name})
	return telemetry.WithSpanValue(ctx, "skills.CreateSkill", func(ctx context.Context) (*skilltypes.Skill, error) {
		skill, err := s.create.Execute(ctx, cmd)
		if err == nil {
			telemetry.SetAttributes(ctx, telemetry.AttrSkillID.String(string(skill.ID)), telemetry.AttrSkillSlug.String(skill.Slug))
		}
		return skill, err
	}, actorAttrs(cmd.Actor)...)
}

// UpdateSkill applies a partial update
func (s *Service) UpdateSkill(ctx context.Context, cmd skilltypes.UpdateSkillCommand) (*skilltypes.Skill, error) {
	ctx = begin(ctx, "UpdateSkill", cmd.Actor, logrus.Fields{"skillId": cmd.SkillID})
	return telemetry.WithSpanValue(ctx, "skills.UpdateSkill", func(ctx context.Context) (*skilltypes.Skill, error) {
		skill, err := s.update.Execute(ctx, cmd)
		if err == nil {
			telemetry.SetAttributes(ctx, telemetry.AttrSkillVersion.Int(skill.Version))
		}
		return skill, err
	}, actorAttrs(cmd.Actor, telemetry.AttrSkillID.String(string(cmd.SkillID)))...)
}

// UploadSkill ingests a complete bundle
func (s *Service) UploadSkill(ctx context.Context, cmd skilltypes.UploadSkillCommand) (*skilltypes.UploadSkillResult, error) {
	ctx = begin(ctx, "UploadSkill", cmd.Actor, logrus.Fields{"files": len(cmd.Files)})
	return telemetry.WithSpanValue(ctx, "skills.UploadSkill", func(ctx context.Context) (*skilltypes.UploadSkillResult, error) {
		result, err := s.upload.Execute(ctx, cmd)
		if err == nil {
			telemetry.SetAttributes(ctx,
				telemetry.AttrSkillID.String(string(result.Skill.ID)),
				telemetry.AttrSkillSlug.String(result.Skill.Slug),
				telemetry.AttrSkillVersion.Int(result.Skill.Version),
				attribute.Bool("skillvault.version_created", result.VersionCreated),
			)
		}
		return result, err
	}, actorAttrs(cmd.Actor, telemetry.AttrFileCount.Int(len(cmd.Files)))...)
}

// SaveSkillVersion stores a version payload for an existing skill
func (s *Service) SaveSkillVersion(ctx context.Context, cmd skilltypes.SaveSkillVersionCommand) (*skilltypes.SkillVersion, error) {
	ctx = begin(ctx, "SaveSkillVersion", cmd.Actor, logrus.Fields{"skillId": cmd.SkillID})
	return telemetry.WithSpanValue(ctx, "skills.SaveSkillVersion", func(ctx context.Context) (*skilltypes.SkillVersion, error) {
		version, err := s.saveVersion.Execute(ctx, cmd)
		if err == nil {
			telemetry.SetAttributes(ctx, telemetry.AttrSkillVersion.Int(version.Version))
		}
		return version, err
	}, actorAttrs(cmd.Actor, telemetry.AttrSkillID.String(string(cmd.SkillID)))...)
}

// DeleteSkill soft-deletes one skill
func (s *Service) DeleteSkill(ctx context.Context, cmd skilltypes.DeleteSkillCommand) error {
	ctx = begin(ctx, "DeleteSkill", cmd.Actor, logrus.Fields{"skillId": cmd.SkillID})
	return telemetry.WithSpan(ctx, "skills.DeleteSkill", func(ctx context.Context) error {
		return s.deleteOne.Execute(ctx, cmd)
	}, actorAttrs(cmd.Actor, telemetry.AttrSkillID.String(string(cmd.SkillID)))...)
}

// DeleteSkillsBatch soft-deletes several skills
func (s *Service) DeleteSkillsBatch(ctx context.Context, cmd skilltypes.DeleteSkillsBatchCommand) error {
	ctx = begin(ctx, "DeleteSkillsBatch", cmd.Actor, logrus.Fields{"count": len(cmd.SkillIDs)})
	return telemetry.WithSpan(ctx, "skills.DeleteSkillsBatch", func(ctx context.Context) error {
		return s.deleteBatch.Execute(ctx, cmd)
	}, actorAttrs(cmd.Actor, attribute.Int("skillvault.batch_size", len(cmd.SkillIDs)))...)
}

// GetSkillByID returns a skill addressed by id, or nil
func (s *Service) GetSkillByID(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.Skill, error) {
	ctx = begin(ctx, "GetSkillByID", query.Actor, logrus.Fields{"skillId": query.SkillID})
	return telemetry.WithSpanValue(ctx, "skills.GetSkillByID", func(ctx context.Context) (*skilltypes.Skill, error) {
		return s.queries.GetSkillByID(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillID.String(string(query.SkillID)))...)
}

// FindSkillBySlug returns a skill by slug, or nil
func (s *Service) FindSkillBySlug(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.Skill, error) {
	ctx = begin(ctx, "FindSkillBySlug", query.Actor, logrus.Fields{"slug": query.Slug})
	return telemetry.WithSpanValue(ctx, "skills.FindSkillBySlug", func(ctx context.Context) (*skilltypes.Skill, error) {
		return s.queries.FindSkillBySlug(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillSlug.String(query.Slug))...)
}

// ListSkills returns the skills of the actor's space
func (s *Service) ListSkills(ctx context.Context, actor skilltypes.Actor) ([]skilltypes.Skill, error) {
	ctx = begin(ctx, "ListSkills", actor, nil)
	return telemetry.WithSpanValue(ctx, "skills.ListSkills", func(ctx context.Context) ([]skilltypes.Skill, error) {
		return s.queries.ListSkills(ctx, actor)
	}, actorAttrs(actor)...)
}

// GetSkillVersion returns one version of a skill, or nil
func (s *Service) GetSkillVersion(ctx context.Context, query skilltypes.GetSkillVersionQuery) (*skilltypes.SkillVersion, error) {
	ctx = begin(ctx, "GetSkillVersion", query.Actor, logrus.Fields{"skillId": query.SkillID, "version": query.Version})
	return telemetry.WithSpanValue(ctx, "skills.GetSkillVersion", func(ctx context.Context) (*skilltypes.SkillVersion, error) {
		return s.queries.GetSkillVersion(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillID.String(string(query.SkillID)), telemetry.AttrSkillVersion.Int(query.Version))...)
}

// GetLatestVersion returns the latest version of a skill
func (s *Service) GetLatestVersion(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.SkillVersion, error) {
	ctx = begin(ctx, "GetLatestVersion", query.Actor, logrus.Fields{"skillId": query.SkillID})
	return telemetry.WithSpanValue(ctx, "skills.GetLatestVersion", func(ctx context.Context) (*skilltypes.SkillVersion, error) {
		return s.queries.GetLatestVersion(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillID.String(string(query.SkillID)))...)
}

// ListSkillVersions returns every version of a skill, newest first
func (s *Service) ListSkillVersions(ctx context.Context, query skilltypes.GetSkillByIDQuery) ([]skilltypes.SkillVersion, error) {
	ctx = begin(ctx, "ListSkillVersions", query.Actor, logrus.Fields{"skillId": query.SkillID})
	return telemetry.WithSpanValue(ctx, "skills.ListSkillVersions", func(ctx context.Context) ([]skilltypes.SkillVersion, error) {
		return s.queries.ListSkillVersions(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillID.String(string(query.SkillID)))...)
}

// GetSkillWithFiles returns a skill by slug with its latest version and files
func (s *Service) GetSkillWithFiles(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.SkillWithFiles, error) {
	ctx = begin(ctx, "GetSkillWithFiles", query.Actor, logrus.Fields{"slug": query.Slug})
	return telemetry.WithSpanValue(ctx, "skills.GetSkillWithFiles", func(ctx context.Context) (*skilltypes.SkillWithFiles, error) {
		return s.queries.GetSkillWithFiles(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillSlug.String(query.Slug))...)
}

// GetVersionFiles returns the files of one version of a skill
func (s *Service) GetVersionFiles(ctx context.Context, query skilltypes.GetSkillVersionQuery) ([]skilltypes.SkillFile, error) {
	ctx = begin(ctx, "GetVersionFiles", query.Actor, logrus.Fields{"skillId": query.SkillID, "version": query.Version})
	return telemetry.WithSpanValue(ctx, "skills.GetVersionFiles", func(ctx context.Context) ([]skilltypes.SkillFile, error) {
		return s.queries.GetVersionFiles(ctx, query)
	}, actorAttrs(query.Actor, telemetry.AttrSkillID.String(string(query.SkillID)))...)
}
