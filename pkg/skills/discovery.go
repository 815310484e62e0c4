package skills

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// LocalSkill is a skill bundle found on disk
type LocalSkill struct {
	Name      string // Name from frontmatter
	Directory string // Full path to the bundle directory
	Document  *Document
}

// Discovery locates skill bundles, directories holding a SKILL.md, under a
// set of root directories
type Discovery struct {
	skillDirs []string
}

// Option is a function that configures a Discovery
type Option func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs searches the repo-local and user-global skill directories
func WithDefaultDirs() Option {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.skillvault/skills",                          // Repo-local (highest precedence)
			filepath.Join(homeDir, ".skillvault", "skills"), // User-global
		}
		return nil
	}
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		opts = []Option{WithDefaultDirs()}
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}

	return d, nil
}

// DiscoverSkills finds the bundles directly below each configured directory.
// When two directories hold a skill of the same name the first one wins.
// Bundles with an unparsable SKILL.md are skipped.
func (d *Discovery) DiscoverSkills() (map[string]*LocalSkill, error) {
	skills := make(map[string]*LocalSkill)
	for _, dir := range d.skillDirs {
		d.discoverSkillsFromDir(dir, skills)
	}
	return skills, nil
}

func (d *Discovery) discoverSkillsFromDir(dir string, skills map[string]*LocalSkill) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		// Stat follows symlinks so linked bundle directories are picked up
		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skill, err := LoadLocalSkill(entryPath)
		if err != nil {
			continue
		}
		if _, exists := skills[skill.Name]; !exists {
			skills[skill.Name] = skill
		}
	}
}

// LoadLocalSkill parses the SKILL.md of a single bundle directory
func LoadLocalSkill(dir string) (*LocalSkill, error) {
	raw, err := os.ReadFile(filepath.Join(dir, skilltypes.SkillFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	doc, err := ParseFrontmatter(string(raw))
	if err != nil {
		return nil, err
	}

	name, _ := doc.Frontmatter.String("name")
	if name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}

	return &LocalSkill{Name: name, Directory: dir, Document: doc}, nil
}

// SelectSkills returns the discovered bundles named in only, ordered by
// name, along with the requested names that were not found. An empty only
// selects every bundle.
func SelectSkills(found map[string]*LocalSkill, only []string) (selected []*LocalSkill, unknown []string) {
	names := only
	if len(names) == 0 {
		names = make([]string, 0, len(found))
		for name := range found {
			names = append(names, name)
		}
	}
	names = append([]string(nil), names...)
	sort.Strings(names)

	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		if skill, ok := found[name]; ok {
			selected = append(selected, skill)
		} else {
			unknown = append(unknown, name)
		}
	}
	return selected, unknown
}
