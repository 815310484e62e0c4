package skills

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"my-skill", "my-skill"},
		{"My Skill", "my-skill"},
		{"Café Crème", "cafe-creme"},
		{"Déjà Vu 2", "deja-vu-2"},
		{"  --Hello__World--  ", "hello-world"},
		{"PDF/Excel  tools!", "pdf-excel-tools"},
		{"!!!", "skill"},
		{"", "skill"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.input))
		})
	}
}

func TestAllocateSlug(t *testing.T) {
	t.Run("free base", func(t *testing.T) {
		assert.Equal(t, "my-skill", AllocateSlug("My Skill", nil, ""))
	})

	t.Run("first free suffix", func(t *testing.T) {
		assert.Equal(t, "my-skill-1", AllocateSlug("My Skill", []string{"my-skill"}, ""))
		assert.Equal(t, "my-skill-2", AllocateSlug("My Skill", []string{"my-skill", "my-skill-1"}, ""))
		assert.Equal(t, "my-skill-1", AllocateSlug("My Skill", []string{"my-skill", "my-skill-2"}, ""))
	})

	t.Run("own slug excluded", func(t *testing.T) {
		assert.Equal(t, "my-skill", AllocateSlug("my-skill", []string{"my-skill", "other"}, "my-skill"))
		assert.Equal(t, "other-1", AllocateSlug("other", []string{"my-skill", "other"}, "my-skill"))
	})

	t.Run("deterministic and collision free", func(t *testing.T) {
		r := rand.New(rand.NewSource(42))
		names := []string{"alpha", "Alpha", "ALPHA!", "beta", "Beta Gamma", "beta-gamma"}
		for i := 0; i < 200; i++ {
			n := r.Intn(20)
			taken := make([]string, 0, n)
			for j := 0; j < n; j++ {
				taken = append(taken, AllocateSlug(names[r.Intn(len(names))], taken, ""))
			}
			name := names[r.Intn(len(names))]
			got := AllocateSlug(name, taken, "")

			assert.NotContains(t, taken, got, fmt.Sprintf("iteration %d", i))
			assert.Equal(t, got, AllocateSlug(name, taken, ""))
		}
	})
}
