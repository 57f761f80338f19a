package bunstore

import (
	"context"

	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/activitymap"
)

// ActivityLog persists activity events and keeps the last sign-in time of
// users current.
type ActivityLog struct {
	store  *Store
	mapper *activitymap.Mapper
}

// ActivityLog returns an authist.ActivitySink backed by s.
func (s *Store) ActivityLog(opts ...activitymap.Option) *ActivityLog {
	return &ActivityLog{store: s, mapper: activitymap.New(opts...)}
}

// Record implements authist.ActivitySink.
func (l *ActivityLog) Record(ctx context.Context, event authist.ActivityEvent) error {
	normalized := l.mapper.Map(event)

	model := &ActivityModel{
		ActorID:    normalized.ActorID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Metadata:   normalized.Metadata,
		OccurredAt: normalized.OccurredAt,
	}
	if _, err := l.store.db.NewInsert().Model(model).Exec(ctx); err != nil {
		return err
	}

	if event.EventType.IsSignIn() && event.UserID != "" {
		return l.store.TouchSignIn(ctx, event.UserID)
	}
	return nil
}

// Recent returns the latest activity for actorID, newest first.
func (l *ActivityLog) Recent(ctx context.Context, actorID string, limit int) ([]ActivityModel, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []ActivityModel
	err := l.store.db.NewSelect().
		Model(&models).
		Where("actor_id = ?", actorID).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	return models, err
}
