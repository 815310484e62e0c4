package events

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillvault/pkg/logger"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Emit(ctx context.Context, event skilltypes.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func created() skilltypes.Event {
	return skilltypes.SkillCreated{EventPayload: skilltypes.EventPayload{
		SkillID:        "skill-1",
		SpaceID:        "space-1",
		OrganizationID: "org-1",
		UserID:         "user-123456",
		Source:         skilltypes.SourceCLI,
		FileCount:      skilltypes.FileCount(3),
	}}
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Emit(context.Background(), skilltypes.SkillDeleted{})
		}()
	}
	wg.Wait()

	require.NoError(t, r.Emit(context.Background(), created()))
	events := r.Events()
	assert.Len(t, events, 11)
	assert.Equal(t, skilltypes.EventSkillCreated, r.Types()[10])

	r.Reset()
	assert.Empty(t, r.Events())
}

func TestFanout(t *testing.T) {
	ctx := context.Background()
	event := created()

	first := &mockSink{}
	first.On("Emit", ctx, event).Return(errors.New("first down")).Once()
	second := &mockSink{}
	second.On("Emit", ctx, event).Return(nil).Once()
	third := &Recorder{}

	err := Fanout{first, second, third}.Emit(ctx, event)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first down")

	first.AssertExpectations(t)
	second.AssertExpectations(t)
	assert.Len(t, third.Events(), 1, "a failing sink does not block the rest")

	assert.NoError(t, Fanout{}.Emit(ctx, event))
	assert.NoError(t, Fanout{third}.Emit(ctx, event))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	orig := logger.L.Logger.Out
	logger.SetLogOutput(&buf)
	defer logger.SetLogOutput(orig)

	require.NoError(t, LogSink{}.Emit(context.Background(), created()))

	line := buf.String()
	assert.Contains(t, line, "skill event")
	assert.Contains(t, line, "event=SkillCreated")
	assert.Contains(t, line, "fileCount=3")
	assert.Contains(t, line, "userId=\"user-1*\"")
	assert.NotContains(t, line, "user-123456")
}
