package usecases

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/telemetry"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

func TestService_TracesEveryCall(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(orig) })

	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	cmd := skilltypes.UploadSkillCommand{Actor: env.actor, Files: bundle(skillMarkdown("traced", "d", "b"))}
	uploaded, err := svc.UploadSkill(ctx, cmd)
	require.NoError(t, err)
	_, err = svc.UploadSkill(ctx, cmd)
	require.NoError(t, err)
	_, err = svc.GetSkillByID(ctx, skilltypes.GetSkillByIDQuery{Actor: env.inSpace(otherSpace), SkillID: uploaded.Skill.ID})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	assert.Equal(t, "skills.UploadSkill", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), telemetry.AttrSpaceID.String(string(testSpaceID)))
	assert.Contains(t, spans[0].Attributes(), telemetry.AttrSkillSlug.String("traced"))
	assert.Contains(t, spans[0].Attributes(), attribute.Bool("skillvault.version_created", true))
	assert.Contains(t, spans[1].Attributes(), attribute.Bool("skillvault.version_created", false))

	assert.Equal(t, "skills.GetSkillByID", spans[2].Name())
	assert.Equal(t, codes.Error, spans[2].Status().Code)
}

func TestService_LogsWithMaskedUser(t *testing.T) {
	var buf bytes.Buffer
	orig := logger.L.Logger.Out
	logger.SetLogOutput(&buf)
	defer logger.SetLogOutput(orig)

	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	cmd := skilltypes.UploadSkillCommand{Actor: env.actor, Files: bundle(skillMarkdown("logged", "d", "b"))}
	_, err := svc.UploadSkill(ctx, cmd)
	require.NoError(t, err)
	_, err = svc.UploadSkill(ctx, cmd)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "executing skill operation")
	assert.Contains(t, out, "op=UploadSkill")
	assert.Contains(t, out, "userId=\"user-1*\"")
	assert.NotContains(t, out, string(testUserID))
	assert.Contains(t, out, "skill content unchanged, no version created")
}
