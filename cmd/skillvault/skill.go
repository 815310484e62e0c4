package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillvault/pkg/presenter"
	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

var skillCmd = &cobra.Command{
	Use:   "skill",
	Short: "Manage skills of the current space",
	Long:  `Upload, author, inspect and delete the skills stored in the current space.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

// SkillUploadConfig holds configuration for the upload command
type SkillUploadConfig struct {
	Excludes     []string
	All          bool
	Only         []string
	Watch        bool
	DebounceTime int
}

// NewSkillUploadConfig creates a new SkillUploadConfig with default values
func NewSkillUploadConfig() *SkillUploadConfig {
	return &SkillUploadConfig{
		DebounceTime: 500,
	}
}

var skillUploadCmd = withTracing(&cobra.Command{
	Use:   "upload [dir...]",
	Short: "Upload a skill bundle directory",
	Long: `Upload a directory holding a SKILL.md and its supporting files. The skill is
matched by the slug of its frontmatter name: a new skill is created, a changed
bundle becomes a new version and an unchanged bundle is left alone.

With --all every bundle found directly below the given directories (or the
default ./.skillvault/skills and ~/.skillvault/skills) is uploaded. --only
limits it to the named skills.

Examples:
  skillvault skill upload ./pdf-tools
  skillvault skill upload ./pdf-tools --exclude 'tmp/**' --watch
  skillvault skill upload --all
  skillvault skill upload --all --only pdf-tools --only doc-writer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		config := getSkillUploadConfigFromFlags(cmd)
		ctx := cmd.Context()

		if !config.All && len(args) != 1 {
			return errors.New("expected exactly one bundle directory (or --all)")
		}
		if config.All && config.Watch {
			return errors.New("--watch cannot be combined with --all")
		}
		if !config.All && len(config.Only) > 0 {
			return errors.New("--only requires --all")
		}

		return withApp(ctx, func(a *app) error {
			if config.All {
				return uploadAll(ctx, a, args, config)
			}
			if _, err := uploadDir(ctx, a, args[0], config.Excludes); err != nil {
				return err
			}
			if config.Watch {
				return watchBundle(ctx, a, args[0], config)
			}
			return nil
		})
	},
})

// uploadDir reads one bundle from disk and uploads it
func uploadDir(ctx context.Context, a *app, dir string, excludes []string) (*skilltypes.UploadSkillResult, error) {
	files, err := skills.ReadBundle(dir, excludes)
	if err != nil {
		return nil, err
	}

	result, err := a.service.UploadSkill(ctx, skilltypes.UploadSkillCommand{Actor: a.actor, Files: files})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload %s", dir)
	}

	if result.VersionCreated {
		presenter.Success(fmt.Sprintf("%s is now at version %d", result.Skill.Slug, result.Skill.Version))
	} else {
		presenter.Warning(fmt.Sprintf("%s is unchanged (version %d)", result.Skill.Slug, result.Skill.Version))
	}
	return result, nil
}

// uploadAll uploads every discovered bundle, or the ones named by --only
func uploadAll(ctx context.Context, a *app, roots []string, config *SkillUploadConfig) error {
	opts := []skills.Option{}
	if len(roots) > 0 {
		opts = append(opts, skills.WithSkillDirs(roots...))
	}
	discovery, err := skills.NewDiscovery(opts...)
	if err != nil {
		return err
	}
	found, err := discovery.DiscoverSkills()
	if err != nil {
		return err
	}
	selected, unknown := skills.SelectSkills(found, config.Only)
	if len(unknown) > 0 {
		return errors.Errorf("no bundle found for %s", strings.Join(unknown, ", "))
	}
	if len(selected) == 0 {
		presenter.Warning("No skill bundles found")
		return nil
	}

	var failed int
	for _, local := range selected {
		if _, err := uploadDir(ctx, a, local.Directory, config.Excludes); err != nil {
			presenter.Error(err, local.Name)
			failed++
		}
	}
	if failed > 0 {
		return errors.Errorf("%d of %d bundles failed to upload", failed, len(selected))
	}
	return nil
}

// SkillContentConfig holds the field flags shared by create and update
type SkillContentConfig struct {
	Name          string
	Description   string
	Prompt        string
	PromptFile    string
	AllowedTools  string
	License       string
	Compatibility string
	Meta          []string
}

func addContentFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Skill name")
	cmd.Flags().String("description", "", "Skill description")
	cmd.Flags().String("prompt", "", "Prompt body")
	cmd.Flags().String("prompt-file", "", "Read the prompt body from a file")
	cmd.Flags().String("allowed-tools", "", "Space separated list of allowed tools")
	cmd.Flags().String("license", "", "License")
	cmd.Flags().String("compatibility", "", "Compatibility notes")
	cmd.Flags().StringArray("meta", nil, "Metadata entry as key=value (repeatable)")
}

func getSkillContentConfigFromFlags(cmd *cobra.Command) *SkillContentConfig {
	config := &SkillContentConfig{}
	config.Name, _ = cmd.Flags().GetString("name")
	config.Description, _ = cmd.Flags().GetString("description")
	config.Prompt, _ = cmd.Flags().GetString("prompt")
	config.PromptFile, _ = cmd.Flags().GetString("prompt-file")
	config.AllowedTools, _ = cmd.Flags().GetString("allowed-tools")
	config.License, _ = cmd.Flags().GetString("license")
	config.Compatibility, _ = cmd.Flags().GetString("compatibility")
	config.Meta, _ = cmd.Flags().GetStringArray("meta")
	return config
}

// prompt returns the prompt text, reading --prompt-file when given
func (c *SkillContentConfig) prompt() (string, error) {
	if c.PromptFile == "" {
		return c.Prompt, nil
	}
	if c.Prompt != "" {
		return "", errors.New("--prompt and --prompt-file are mutually exclusive")
	}
	raw, err := os.ReadFile(c.PromptFile)
	if err != nil {
		return "", errors.Wrap(err, "failed to read prompt file")
	}
	return string(raw), nil
}

// parseMetadata turns repeated key=value flags into a map. Nil means no entries.
func parseMetadata(entries []string) (map[string]string, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		key, value, ok := strings.Cut(e, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, errors.Errorf("invalid metadata entry %q, expected key=value", e)
		}
		out[key] = value
	}
	return out, nil
}

var skillCreateCmd = withTracing(&cobra.Command{
	Use:   "create",
	Short: "Create a skill from explicit fields",
	Long: `Create a skill from explicit fields. The slug is derived from the name and
suffixed when it is already taken in the space.

Example:
  skillvault skill create --name "PDF Tools" --description "Work with PDFs" --prompt-file prompt.md`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getSkillContentConfigFromFlags(cmd)
		prompt, err := config.prompt()
		if err != nil {
			return err
		}
		metadata, err := parseMetadata(config.Meta)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			skill, err := a.service.CreateSkill(ctx, skilltypes.CreateSkillCommand{
				Actor: a.actor,
				Content: skilltypes.Content{
					Name:          config.Name,
					Description:   config.Description,
					Prompt:        prompt,
					AllowedTools:  config.AllowedTools,
					License:       config.License,
					Compatibility: config.Compatibility,
					Metadata:      metadata,
				},
			})
			if err != nil {
				return err
			}
			presenter.Success(fmt.Sprintf("Created %s (%s)", skill.Slug, skill.ID))
			return nil
		})
	},
})

var skillUpdateCmd = withTracing(&cobra.Command{
	Use:   "update <skill-id>",
	Short: "Update fields of a skill",
	Long: `Update fields of a skill. Only the flags given on the command line are
changed; every update creates a new version.

Example:
  skillvault skill update 5f0c... --description "Now with OCR" --meta owner=docs`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := buildUpdateCommand(cmd, skilltypes.SkillID(args[0]))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			update.Actor = a.actor
			skill, err := a.service.UpdateSkill(ctx, update)
			if err != nil {
				return err
			}
			presenter.Success(fmt.Sprintf("%s is now at version %d", skill.Slug, skill.Version))
			return nil
		})
	},
})

// buildUpdateCommand maps the flags that were set onto the partial update
func buildUpdateCommand(cmd *cobra.Command, id skilltypes.SkillID) (skilltypes.UpdateSkillCommand, error) {
	config := getSkillContentConfigFromFlags(cmd)
	update := skilltypes.UpdateSkillCommand{SkillID: id}
	changed := cmd.Flags().Changed

	if changed("name") {
		update.Name = &config.Name
	}
	if changed("description") {
		update.Description = &config.Description
	}
	if changed("prompt") || changed("prompt-file") {
		prompt, err := config.prompt()
		if err != nil {
			return update, err
		}
		update.Prompt = &prompt
	}
	if changed("allowed-tools") {
		update.AllowedTools = &config.AllowedTools
	}
	if changed("license") {
		update.License = &config.License
	}
	if changed("compatibility") {
		update.Compatibility = &config.Compatibility
	}
	if changed("meta") {
		metadata, err := parseMetadata(config.Meta)
		if err != nil {
			return update, err
		}
		update.Metadata = &metadata
	}
	return update, nil
}

var skillSaveVersionCmd = withTracing(&cobra.Command{
	Use:   "save-version <skill-id>",
	Short: "Store a SKILL.md as the next version of a skill",
	Long: `Store a SKILL.md as the next version of an existing skill. Unlike upload a
version is always created, even when nothing changed. With --dir the
supporting files of that bundle directory are stored with the version.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		dir, _ := cmd.Flags().GetString("dir")
		excludes, _ := cmd.Flags().GetStringArray("exclude")

		content, err := readSkillFile(file)
		if err != nil {
			return err
		}
		save := skilltypes.SaveSkillVersionCommand{SkillID: skilltypes.SkillID(args[0]), Content: content}
		if dir != "" {
			files, err := skills.ReadBundle(dir, uploadExcludes(excludes))
			if err != nil {
				return err
			}
			save.Files = files
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			save.Actor = a.actor
			version, err := a.service.SaveSkillVersion(ctx, save)
			if err != nil {
				return err
			}
			presenter.Success(fmt.Sprintf("Saved version %d of %s", version.Version, version.Slug))
			return nil
		})
	},
})

// readSkillFile parses and validates a SKILL.md from disk
func readSkillFile(path string) (skilltypes.Content, error) {
	if path == "" {
		return skilltypes.Content{}, errors.New("--file is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return skilltypes.Content{}, errors.Wrapf(err, "failed to read %s", path)
	}
	doc, err := skills.ParseFrontmatter(string(raw))
	if err != nil {
		return skilltypes.Content{}, err
	}
	if err := skills.ValidateOrError(doc.Frontmatter); err != nil {
		return skilltypes.Content{}, err
	}
	return doc.ToContent(), nil
}

var skillDeleteCmd = withTracing(&cobra.Command{
	Use:   "delete <skill-id>...",
	Short: "Delete one or more skills",
	Long: `Delete one or more skills of the current space. Version history is kept.
When several ids are given either all of them are deleted or, if any id is
unknown or belongs to another space, none is.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			answer := presenter.Prompt(fmt.Sprintf("Delete %d skill(s)?", len(args)), "y", "N")
			if !strings.EqualFold(answer, "y") {
				presenter.Info("Aborted")
				return nil
			}
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			if len(args) == 1 {
				if err := a.service.DeleteSkill(ctx, skilltypes.DeleteSkillCommand{Actor: a.actor, SkillID: skilltypes.SkillID(args[0])}); err != nil {
					return err
				}
			} else {
				ids := make([]skilltypes.SkillID, len(args))
				for i, id := range args {
					ids[i] = skilltypes.SkillID(id)
				}
				if err := a.service.DeleteSkillsBatch(ctx, skilltypes.DeleteSkillsBatchCommand{Actor: a.actor, SkillIDs: ids}); err != nil {
					return err
				}
			}
			presenter.Success(fmt.Sprintf("Deleted %d skill(s)", len(args)))
			return nil
		})
	},
})

// uploadExcludes merges flag excludes with the upload.exclude config list
func uploadExcludes(flagExcludes []string) []string {
	return append(viper.GetStringSlice("upload.exclude"), flagExcludes...)
}

func init() {
	uploadDefaults := NewSkillUploadConfig()
	skillUploadCmd.Flags().StringArrayP("exclude", "x", nil, "Glob of bundle paths to skip, e.g. 'tmp/**' (repeatable)")
	skillUploadCmd.Flags().BoolP("all", "a", uploadDefaults.All, "Upload every bundle found below the given (or default) directories")
	skillUploadCmd.Flags().StringSlice("only", nil, "With --all, upload only the skills with these names")
	skillUploadCmd.Flags().BoolP("watch", "w", uploadDefaults.Watch, "Re-upload whenever the bundle changes")
	skillUploadCmd.Flags().IntP("debounce", "d", uploadDefaults.DebounceTime, "Debounce time in milliseconds for file change events")

	addContentFlags(skillCreateCmd)
	addContentFlags(skillUpdateCmd)

	skillSaveVersionCmd.Flags().StringP("file", "f", "", "Path to the SKILL.md to store")
	skillSaveVersionCmd.Flags().String("dir", "", "Bundle directory whose supporting files are stored with the version")
	skillSaveVersionCmd.Flags().StringArrayP("exclude", "x", nil, "Glob of bundle paths to skip (repeatable)")

	skillDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	skillCmd.AddCommand(skillUploadCmd)
	skillCmd.AddCommand(skillCreateCmd)
	skillCmd.AddCommand(skillUpdateCmd)
	skillCmd.AddCommand(skillSaveVersionCmd)
	skillCmd.AddCommand(skillDeleteCmd)
}

func getSkillUploadConfigFromFlags(cmd *cobra.Command) *SkillUploadConfig {
	config := NewSkillUploadConfig()
	if excludes, err := cmd.Flags().GetStringArray("exclude"); err == nil {
		config.Excludes = uploadExcludes(excludes)
	}
	if all, err := cmd.Flags().GetBool("all"); err == nil {
		config.All = all
	}
	if only, err := cmd.Flags().GetStringSlice("only"); err == nil {
		config.Only = only
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}
	if debounce, err := cmd.Flags().GetInt("debounce"); err == nil {
		config.DebounceTime = debounce
	}
	return config
}
