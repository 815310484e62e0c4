package main

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/jingkaihe/skillvault/pkg/db"
	"github.com/jingkaihe/skillvault/pkg/directory"
	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/skills/events"
	"github.com/jingkaihe/skillvault/pkg/skills/sqlite"
	"github.com/jingkaihe/skillvault/pkg/skills/usecases"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// app holds everything a skill command needs
type app struct {
	store    *sqlite.Store
	eventLog *sqlite.EventLog
	dir      *directory.Directory
	service  usecases.SkillServiceInterface
	actor    skilltypes.Actor
}

// newApp opens the store and wires the service from the active configuration
func newApp(ctx context.Context) (*app, error) {
	actor, err := actorFromConfig()
	if err != nil {
		return nil, err
	}

	dir, err := directory.FromViper(viper.GetViper())
	if err != nil {
		return nil, err
	}

	dbPath, err := databasePath()
	if err != nil {
		return nil, err
	}
	store, err := sqlite.NewStore(ctx, dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open skill store at %s", dbPath)
	}
	logger.G(ctx).WithField("db", dbPath).Debug("opened skill store")

	eventLog := sqlite.NewEventLog(store)
	sink := events.Fanout{events.LogSink{}, eventLog}

	return &app{
		store:    store,
		eventLog: eventLog,
		dir:      dir,
		service:  usecases.NewService(store, dir, dir, sink),
		actor:    actor,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withApp runs fn against a freshly wired app and closes it afterwards
func withApp(ctx context.Context, fn func(a *app) error) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// actorFromConfig resolves the caller identity from flags, env and config
func actorFromConfig() (skilltypes.Actor, error) {
	actor := skilltypes.Actor{
		UserID:         skilltypes.UserID(viper.GetString("user_id")),
		OrganizationID: skilltypes.OrganizationID(viper.GetString("organization_id")),
		SpaceID:        skilltypes.SpaceID(viper.GetString("space_id")),
	}

	var missing []string
	if actor.UserID == "" {
		missing = append(missing, "--user")
	}
	if actor.OrganizationID == "" {
		missing = append(missing, "--org")
	}
	if actor.SpaceID == "" {
		missing = append(missing, "--space")
	}
	if len(missing) > 0 {
		return actor, errors.Errorf("caller identity incomplete, set %v or the matching config keys", missing)
	}
	return actor, nil
}

// databasePath returns db_path or the default location
func databasePath() (string, error) {
	if p := viper.GetString("db_path"); p != "" {
		return p, nil
	}
	return db.DefaultDBPath()
}
