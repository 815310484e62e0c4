package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/presenter"
	"github.com/jingkaihe/skillvault/pkg/skills/sqlite"
	"github.com/jingkaihe/skillvault/pkg/skills/usecases"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// EventsConfig holds the filters of the events command
type EventsConfig struct {
	SkillID string
	Type    string
	Limit   int
}

// NewEventsConfig creates an EventsConfig with default values
func NewEventsConfig() *EventsConfig {
	return &EventsConfig{Limit: 50}
}

var eventsCmd = withTracing(&cobra.Command{
	Use:   "events",
	Short: "List recorded skill events of the current space",
	Long: `List the SkillCreated, SkillUpdated and SkillDeleted events recorded for
the current space, newest first.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		config := getEventsConfigFromFlags(cmd)
		ctx := cmd.Context()

		return withApp(ctx, func(a *app) error {
			if _, err := usecases.NewAuthorizer(a.dir, a.dir).Authorize(ctx, a.actor); err != nil {
				return err
			}

			records, err := a.eventLog.ListEvents(ctx, sqlite.EventQuery{
				SpaceID: a.actor.SpaceID,
				SkillID: skilltypes.SkillID(config.SkillID),
				Type:    skilltypes.EventType(config.Type),
				Limit:   config.Limit,
			})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				presenter.Info("No events recorded")
				return nil
			}

			presenter.Table([]string{"ID", "TYPE", "SKILL", "SOURCE", "FILES", "USER", "AT"}, eventRows(records))
			return nil
		})
	},
})

func eventRows(records []skilltypes.EventRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		files := "-"
		if r.FileCount != nil {
			files = fmt.Sprint(*r.FileCount)
		}
		rows = append(rows, []string{
			fmt.Sprint(r.ID),
			string(r.Type),
			string(r.SkillID),
			string(r.Source),
			files,
			logger.MaskID(string(r.UserID)),
			r.CreatedAt.Local().Format(time.DateTime),
		})
	}
	return rows
}

func init() {
	defaults := NewEventsConfig()
	eventsCmd.Flags().String("skill", defaults.SkillID, "Only show events of this skill id")
	eventsCmd.Flags().String("type", defaults.Type, "Only show events of this type (SkillCreated, SkillUpdated, SkillDeleted)")
	eventsCmd.Flags().IntP("limit", "n", defaults.Limit, "Maximum number of events to show (0 for all)")
}

func getEventsConfigFromFlags(cmd *cobra.Command) *EventsConfig {
	config := NewEventsConfig()
	if skillID, err := cmd.Flags().GetString("skill"); err == nil {
		config.SkillID = skillID
	}
	if eventType, err := cmd.Flags().GetString("type"); err == nil {
		config.Type = eventType
	}
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		config.Limit = limit
	}
	return config
}
