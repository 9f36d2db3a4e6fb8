package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowdesk/pkg/editor"
	"github.com/dukex/flowdesk/pkg/events"
	"github.com/dukex/flowdesk/pkg/exchange"
	"github.com/dukex/flowdesk/pkg/mocks"
	"github.com/dukex/flowdesk/pkg/models"
	"github.com/dukex/flowdesk/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessions(t *testing.T, config SessionsConfig) (*Sessions, *Template, *mocks.MockEventBus) {
	t.Helper()

	templates, bus := newTemplateService(t)

	return NewSessions(templates, bus, slog.Default(), config), templates, bus
}

func eventsOfType(bus *mocks.MockEventBus, eventType events.EventType) []any {
	var out []any

	for _, event := range bus.PublishedEvents() {
		if event.GetType() == eventType {
			out = append(out, event)
		}
	}

	return out
}

func TestSessions_OpenNewTemplateAndSave(t *testing.T) {
	t.Parallel()

	sessions, templates, bus := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	info, err := sessions.Open(ctx, OpenRequest{Name: "Contractor onboarding", Session: hr})
	require.NoError(t, err)
	assert.NotEmpty(t, info.TemplateID)
	assert.Equal(t, hr, info.User)
	require.Len(t, eventsOfType(bus, events.SessionOpenedEvent), 1)

	err = sessions.Mutate(ctx, info.ID, func(ctx context.Context, ed *editor.Editor) error {
		start, err := ed.AddNode(models.NodeTypeStart, 0, 0)
		if err != nil {
			return err
		}

		end, err := ed.AddNode(models.NodeTypeEnd, 300, 0)
		if err != nil {
			return err
		}

		if _, err := ed.AddEdge(start.ID, end.ID, ""); err != nil {
			return err
		}

		_, err = ed.Save(ctx)

		return err
	})
	require.NoError(t, err)

	stored, err := templates.FetchByID(ctx, info.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
	assert.Len(t, stored.Nodes, 2)
	assert.Len(t, stored.Edges, 1)
	assert.Equal(t, "hr-42", stored.UpdatedBy)
	assert.Equal(t, models.TemplateTypeCustom, stored.Type)
}

func TestSessions_OpenRejects(t *testing.T) {
	t.Parallel()

	sessions, _, _ := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	_, err := sessions.Open(ctx, OpenRequest{Session: hr})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = sessions.Open(ctx, OpenRequest{Name: "Leave", EdgePolicies: []string{"no_loops"}, Session: hr})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = sessions.Open(ctx, OpenRequest{TemplateID: "missing", Session: hr})
	assert.True(t, IsNotFoundError(err))
}

func TestSessions_EdgePoliciesApply(t *testing.T) {
	t.Parallel()

	sessions, templates, _ := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	created, err := templates.Create(ctx, hr, testutil.CreateTestTemplate())
	require.NoError(t, err)

	info, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, EdgePolicies: []string{"self_loops"}, Session: hr})
	require.NoError(t, err)

	err = sessions.Mutate(ctx, info.ID, func(_ context.Context, ed *editor.Editor) error {
		_, err := ed.AddEdge("review", "review", "")

		return err
	})
	assert.ErrorIs(t, err, editor.ErrEdgeRejected)
	assert.True(t, IsValidationError(err))
}

func TestSessions_ConcurrentEditorsConflict(t *testing.T) {
	t.Parallel()

	sessions, templates, _ := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	created, err := templates.Create(ctx, hr, testutil.CreateTestTemplate())
	require.NoError(t, err)

	first, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, Session: hr})
	require.NoError(t, err)

	second, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, Session: models.SessionContext{UserID: "hr-7"}})
	require.NoError(t, err)

	save := func(ctx context.Context, ed *editor.Editor) error {
		_, err := ed.Save(ctx)

		return err
	}

	require.NoError(t, sessions.Mutate(ctx, first.ID, save))

	err = sessions.Mutate(ctx, second.ID, save)
	assert.ErrorIs(t, err, ErrVersionConflict)

	assert.Len(t, sessions.List(created.ID), 2)
}

func TestSessions_ReadOnly(t *testing.T) {
	t.Parallel()

	sessions, templates, _ := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	created, err := templates.Create(ctx, hr, testutil.CreateTestTemplate())
	require.NoError(t, err)

	info, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, ReadOnly: true, Session: hr})
	require.NoError(t, err)
	assert.True(t, info.ReadOnly)

	called := false
	err = sessions.Mutate(ctx, info.ID, func(context.Context, *editor.Editor) error {
		called = true

		return nil
	})
	assert.ErrorIs(t, err, ErrReadOnlySession)
	assert.True(t, IsConflictError(err))
	assert.False(t, called)

	err = sessions.With(ctx, info.ID, func(_ context.Context, ed *editor.Editor) error {
		ed.SetZoom(1.5)

		return ed.SelectNode("review")
	})
	assert.NoError(t, err)
}

func TestSessions_Export(t *testing.T) {
	t.Parallel()

	sessions, templates, bus := newSessions(t, SessionsConfig{})
	ctx := context.Background()

	created, err := templates.Create(ctx, hr, testutil.CreateTestTemplate())
	require.NoError(t, err)

	info, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, ReadOnly: true, Session: hr})
	require.NoError(t, err)

	err = sessions.With(WithExportFormat(ctx, exchange.FormatYAML), info.ID, func(ctx context.Context, ed *editor.Editor) error {
		return ed.Export(ctx)
	})
	require.NoError(t, err)

	exported := eventsOfType(bus, events.TemplateExportRequestedEvent)
	require.Len(t, exported, 1)

	event := exported[0].(events.TemplateExportRequested)
	assert.Equal(t, info.ID, event.SessionID)
	assert.Equal(t, "yaml", event.Format)
	assert.Contains(t, event.Document, "Manager review")
}

func TestSessions_CloseAndReap(t *testing.T) {
	t.Parallel()

	sessions, templates, bus := newSessions(t, SessionsConfig{TTL: time.Minute})
	ctx := context.Background()

	created, err := templates.Create(ctx, hr, testutil.CreateTestTemplate())
	require.NoError(t, err)

	idle, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, Session: hr})
	require.NoError(t, err)

	active, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, Session: hr})
	require.NoError(t, err)

	closing, err := sessions.Open(ctx, OpenRequest{TemplateID: created.ID, Session: hr})
	require.NoError(t, err)

	require.NoError(t, sessions.Close(ctx, closing.ID))
	assert.True(t, IsSessionNotFound(sessions.Close(ctx, closing.ID)))

	later := time.Now().UTC().Add(2 * time.Minute)
	sessions.now = func() time.Time { return later }

	require.NoError(t, sessions.With(ctx, active.ID, func(context.Context, *editor.Editor) error { return nil }))

	assert.Equal(t, 1, sessions.Reap(ctx, later.Add(time.Second)))

	_, err = sessions.Get(idle.ID)
	assert.True(t, IsNotFoundError(err))

	got, err := sessions.Get(active.ID)
	require.NoError(t, err)
	assert.Equal(t, later, got.LastUsed)

	closed := eventsOfType(bus, events.SessionClosedEvent)
	require.Len(t, closed, 2)
	assert.Equal(t, events.CloseReasonClosed, closed[0].(events.SessionClosed).Reason)
	assert.Equal(t, events.CloseReasonExpired, closed[1].(events.SessionClosed).Reason)
}

func TestSessions_WithOnEndedSession(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		end  func(ctx context.Context, sessions *Sessions, id string)
	}{
		{
			name: "closed",
			end: func(ctx context.Context, sessions *Sessions, id string) {
				require.NoError(t, sessions.Close(ctx, id))
			},
		},
		{
			name: "reaped",
			end: func(ctx context.Context, sessions *Sessions, _ string) {
				assert.Equal(t, 1, sessions.Reap(ctx, time.Now().UTC().Add(time.Hour)))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sessions, _, _ := newSessions(t, SessionsConfig{TTL: time.Minute})
			ctx := context.Background()

			info, err := sessions.Open(ctx, OpenRequest{Name: "Exit interview", Session: hr})
			require.NoError(t, err)

			// A With that looked the session up before it ended still holds it.
			stale, err := sessions.lookup(info.ID)
			require.NoError(t, err)

			tt.end(ctx, sessions, info.ID)

			sessions.mu.Lock()
			sessions.sessions[info.ID] = stale
			sessions.mu.Unlock()

			ran := false
			err = sessions.With(ctx, info.ID, func(context.Context, *editor.Editor) error {
				ran = true

				return nil
			})
			assert.True(t, IsSessionNotFound(err), "got %v", err)
			assert.False(t, ran)

			_, err = sessions.Get(info.ID)
			assert.True(t, IsSessionNotFound(err), "got %v", err)
		})
	}
}

func TestSessions_StartStop(t *testing.T) {
	t.Parallel()

	sessions, _, _ := newSessions(t, SessionsConfig{ReapSchedule: "@every 1h"})

	require.NoError(t, sessions.Start(context.Background()))
	sessions.Stop()
	sessions.Stop()

	bad, _, _ := newSessions(t, SessionsConfig{ReapSchedule: "every so often"})
	assert.Error(t, bad.Start(context.Background()))
}
