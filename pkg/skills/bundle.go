package skills

import (
	"encoding/base64"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
	"github.com/jingkaihe/skillvault/pkg/utils"
)

// DefaultBundleExcludes are skipped when reading a bundle from disk
var DefaultBundleExcludes = []string{".git/**", "**/.DS_Store"}

// ReadBundle collects every regular file under dir as an upload file set.
// Paths are slash separated and relative to dir. Binary files are base64
// encoded. Paths matching any of the doublestar patterns in excludes are
// skipped along with DefaultBundleExcludes.
func ReadBundle(dir string, excludes []string) ([]skilltypes.SkillFileInput, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat bundle directory %s", dir)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", dir)
	}

	patterns := append(append([]string{}, DefaultBundleExcludes...), excludes...)
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid exclude pattern %q", p)
		}
	}

	var files []skilltypes.SkillFileInput
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if excluded(patterns, rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", rel)
		}

		file := skilltypes.SkillFileInput{
			Path:        rel,
			Permissions: utils.FormatPermissions(fi.Mode()),
		}
		if utils.IsBinaryContent(data) {
			file.Content = base64.StdEncoding.EncodeToString(data)
			file.IsBase64 = true
		} else {
			file.Content = string(data)
		}
		files = append(files, file)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read bundle %s", dir)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

func excluded(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// WriteBundle materializes a stored version into dir: SKILL.md rendered from
// content plus every supporting file with its recorded permissions.
func WriteBundle(dir string, content skilltypes.Content, files []skilltypes.SkillFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}

	skillMD := filepath.Join(dir, skilltypes.SkillFileName)
	if err := os.WriteFile(skillMD, []byte(BuildSkillMarkdown(content)), 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", skillMD)
	}

	for _, f := range files {
		clean := path.Clean(f.Path)
		if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
			return errors.Errorf("refusing to write %q outside of %s", f.Path, dir)
		}

		data := []byte(f.Content)
		if f.IsBase64 {
			decoded, err := base64.StdEncoding.DecodeString(f.Content)
			if err != nil {
				return errors.Wrapf(err, "failed to decode %s", f.Path)
			}
			data = decoded
		}

		mode := fs.FileMode(0o644)
		if f.Permissions != "" {
			parsed, err := utils.ParsePermissions(f.Permissions)
			if err != nil {
				return errors.Wrapf(err, "file %s", f.Path)
			}
			mode = parsed
		}

		target := filepath.Join(dir, filepath.FromSlash(clean))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return errors.Wrapf(err, "failed to create directory for %s", f.Path)
		}
		if err := os.WriteFile(target, data, mode); err != nil {
			return errors.Wrapf(err, "failed to write %s", f.Path)
		}
		// WriteFile only applies mode on create
		if err := os.Chmod(target, mode); err != nil {
			return errors.Wrapf(err, "failed to chmod %s", f.Path)
		}
	}
	return nil
}
