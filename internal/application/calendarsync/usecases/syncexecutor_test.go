package usecases

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/domain/finance"
	"aegiswallet/internal/shared/logger"
)

func discardLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type executorEnv struct {
	now          time.Time
	credRepo     *fakeCredentialRepo
	settingsRepo *fakeSettingsRepo
	mappingRepo  *fakeMappingRepo
	eventRepo    *fakeEventRepo
	auditRepo    *fakeAuditRepo
	queueRepo    *fakeQueueRepo
	provider     *fakeProvider
	oauth        *fakeOAuth
	tokens       *TokenService
	audit        *AuditRecorder
	executor     *SyncExecutor
}

func newExecutorEnv(t *testing.T) *executorEnv {
	t.Helper()
	env := &executorEnv{
		now:          time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		credRepo:     newFakeCredentialRepo(),
		settingsRepo: newFakeSettingsRepo(),
		mappingRepo:  newFakeMappingRepo(),
		eventRepo:    newFakeEventRepo(),
		auditRepo:    newFakeAuditRepo(),
		queueRepo:    newFakeQueueRepo(),
		oauth:        &fakeOAuth{},
	}
	env.provider = newFakeProvider(env.now)

	log := discardLogger()
	env.audit = NewAuditRecorder(env.auditRepo, log)
	env.tokens = NewTokenService(env.credRepo, env.oauth, env.audit, log)
	env.tokens.nowFn = func() time.Time { return env.now }

	env.executor = NewSyncExecutor(
		env.settingsRepo,
		env.mappingRepo,
		env.eventRepo,
		env.provider,
		env.tokens,
		calendarsync.NewLoopGuard(5*time.Second),
		env.audit,
		SyncWindowConfig{Past: 30 * 24 * time.Hour, Future: 365 * 24 * time.Hour},
		log,
	)
	env.executor.nowFn = func() time.Time { return env.now }

	return env
}

func (env *executorEnv) connect(t *testing.T, userID string) {
	t.Helper()
	ctx := context.Background()
	credential := calendarsync.NewOAuthCredential(userID, "access", "refresh", "calendar", env.now.Add(time.Hour))
	require.NoError(t, env.credRepo.Save(ctx, credential))
	settings := calendarsync.NewSyncSettings(userID, "primary")
	require.NoError(t, env.settingsRepo.Save(ctx, settings))
}

func (env *executorEnv) addLocalEvent(t *testing.T, userID, title string, cents int64) *finance.Event {
	t.Helper()
	event := finance.NewEvent(userID, title, env.now.Add(24*time.Hour), env.now.Add(25*time.Hour))
	event.AmountCents = cents
	event.Category = "moradia"
	event.UpdatedAt = env.now.Add(-time.Hour)
	require.NoError(t, env.eventRepo.Create(context.Background(), event))
	return event
}

func (env *executorEnv) foreignExternal(id, summary string) *calendarsync.ExternalEvent {
	return &calendarsync.ExternalEvent{
		ID:          id,
		ETag:        `"` + id + `"`,
		Summary:     summary,
		Description: "Particular\n\nR$ 200,00",
		StartAt:     env.now.Add(48 * time.Hour),
		EndAt:       env.now.Add(49 * time.Hour),
		UpdatedAt:   env.now.Add(-time.Hour),
	}
}

func (env *executorEnv) clearSyncToken(t *testing.T, userID string) {
	t.Helper()
	settings, err := env.settingsRepo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	settings.ClearSyncToken(env.now)
	require.NoError(t, env.settingsRepo.Update(context.Background(), settings))
}

func TestSyncExecutor_FullSync(t *testing.T) {
	t.Run("pushes unmapped locals and imports foreign externals", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Equal(t, 1, env.provider.insertCalls)
		assert.Equal(t, 2, env.eventRepo.count())
		assert.Equal(t, 2, env.mappingRepo.count())

		pushed := env.provider.events["ext-1"]
		require.NotNil(t, pushed)
		assert.Equal(t, local.ID, pushed.AppEventID)
		assert.Equal(t, "moradia", pushed.AppCategory)

		imported, err := env.mappingRepo.GetByExternalEventID(context.Background(), "user-1", "foreign-1")
		require.NoError(t, err)
		localImport, err := env.eventRepo.FindByID(context.Background(), imported.LocalEventID())
		require.NoError(t, err)
		assert.Equal(t, "Consulta", localImport.Title)
		assert.Equal(t, int64(20000), localImport.AmountCents)
		assert.Equal(t, finance.DefaultCategory, localImport.Category)

		settings, err := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "window-token", settings.SyncToken)
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionFullSync)
	})

	t.Run("running twice creates no duplicates", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))
		env.clearSyncToken(t, "user-1")
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Equal(t, 1, env.provider.insertCalls)
		assert.Equal(t, 2, env.eventRepo.count())
		assert.Equal(t, 2, env.mappingRepo.count())
	})

	t.Run("relinks tagged external without inserting a duplicate", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		ext := env.foreignExternal("ext-existing", "Aluguel")
		ext.AppEventID = local.ID
		ext.AppCategory = "moradia"
		env.provider.addEvent(ext)

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Zero(t, env.provider.insertCalls)
		assert.Equal(t, 1, env.mappingRepo.count())
		mapping, err := env.mappingRepo.GetByLocalEventID(context.Background(), "user-1", local.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-existing", mapping.ExternalEventID())
	})

	t.Run("outbound-only direction imports nothing", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.Direction = calendarsync.DirectionToExternal
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Equal(t, 0, env.eventRepo.count())
		assert.Equal(t, 0, env.mappingRepo.count())
	})

	t.Run("disallowed category stays local", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.AllowedCategories = []string{"transporte"}
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))
		env.addLocalEvent(t, "user-1", "Aluguel", 123456)

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Zero(t, env.provider.insertCalls)
	})

	t.Run("sync disabled is reported", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.Enabled = false
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))

		err := env.executor.RunSync(context.Background(), "user-1")
		assert.ErrorIs(t, err, calendarsync.ErrSyncDisabled)
	})
}

func TestSyncExecutor_IncrementalSync(t *testing.T) {
	t.Run("imports a new external event", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		env.now = env.now.Add(10 * time.Minute)
		change := env.foreignExternal("foreign-2", "Dentista")
		change.UpdatedAt = env.now
		env.provider.changes = []*calendarsync.ExternalEvent{change}

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		mapping, err := env.mappingRepo.GetByExternalEventID(context.Background(), "user-1", "foreign-2")
		require.NoError(t, err)
		local, err := env.eventRepo.FindByID(context.Background(), mapping.LocalEventID())
		require.NoError(t, err)
		assert.Equal(t, "Dentista", local.Title)
		assert.Equal(t, int64(20000), local.AmountCents)

		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		assert.Equal(t, "next-token", settings.SyncToken)
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionIncrementalSync)
	})

	t.Run("cancelled external event deletes its local twin", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))
		require.Equal(t, 1, env.eventRepo.count())

		env.now = env.now.Add(10 * time.Minute)
		env.provider.changes = []*calendarsync.ExternalEvent{{ID: "foreign-1", Cancelled: true}}

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Equal(t, 0, env.eventRepo.count())
		assert.Equal(t, 0, env.mappingRepo.count())
	})

	t.Run("own push echo within the window is suppressed", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		echo := *env.provider.events["ext-1"]
		echo.Summary = "MUTADO"
		echo.UpdatedAt = env.now
		env.provider.changes = []*calendarsync.ExternalEvent{&echo}

		env.now = env.now.Add(2 * time.Second)
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		unchanged, err := env.eventRepo.FindByID(context.Background(), local.ID)
		require.NoError(t, err)
		assert.Equal(t, "Aluguel", unchanged.Title)
		assert.Zero(t, env.provider.patchCalls)
	})

	t.Run("stale cursor falls back to full sync in the same call", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.RecordFullSync("old-token", env.now.Add(-time.Hour))
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))
		env.provider.stale = true
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		settings, _ = env.settingsRepo.GetByUserID(context.Background(), "user-1")
		assert.Equal(t, "window-token", settings.SyncToken)
		assert.Equal(t, 1, env.eventRepo.count())
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionFullSync)
	})

	t.Run("newer external change wins over older local", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		env.now = env.now.Add(time.Hour)
		edited := *env.provider.events["ext-1"]
		edited.Summary = "Aluguel reajustado"
		edited.Description = "Novo valor\n\nR$ 1.500,00"
		edited.UpdatedAt = env.now.Add(-time.Minute)
		env.provider.changes = []*calendarsync.ExternalEvent{&edited}

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		updated, err := env.eventRepo.FindByID(context.Background(), local.ID)
		require.NoError(t, err)
		assert.Equal(t, "Aluguel reajustado", updated.Title)
		assert.Equal(t, int64(150000), updated.AmountCents)
	})

	t.Run("newer local wins and patches the external copy", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		env.now = env.now.Add(time.Hour)
		local.Title = "Aluguel novo"
		local.UpdatedAt = env.now.Add(-time.Minute)
		require.NoError(t, env.eventRepo.Update(context.Background(), local))

		edited := *env.provider.events["ext-1"]
		edited.UpdatedAt = env.now.Add(-30 * time.Minute)
		env.provider.changes = []*calendarsync.ExternalEvent{&edited}

		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		assert.Equal(t, 1, env.provider.patchCalls)
		assert.Equal(t, "Aluguel novo", env.provider.events["ext-1"].Summary)
	})
}

func TestSyncExecutor_PushEvent(t *testing.T) {
	t.Run("unmapped event is inserted with a new mapping", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)

		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		assert.Equal(t, 1, env.provider.insertCalls)
		mapping, err := env.mappingRepo.GetByLocalEventID(context.Background(), "user-1", local.ID)
		require.NoError(t, err)
		assert.Equal(t, calendarsync.MappingStatusSynced, mapping.Status())
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionEventPushed)
	})

	t.Run("mapped event is patched", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)
		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		env.now = env.now.Add(time.Minute)
		local.Title = "Mercado do mês"
		require.NoError(t, env.eventRepo.Update(context.Background(), local))

		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		assert.Equal(t, 1, env.provider.insertCalls)
		assert.Equal(t, 1, env.provider.patchCalls)
		assert.Equal(t, "Mercado do mês", env.provider.events["ext-1"].Summary)
	})

	t.Run("deleted local removes the external twin", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)
		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))
		require.NoError(t, env.eventRepo.Delete(context.Background(), local.ID))

		env.now = env.now.Add(time.Minute)
		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		assert.Equal(t, 1, env.provider.deleteCalls)
		assert.NotContains(t, env.provider.events, "ext-1")
		assert.Equal(t, 0, env.mappingRepo.count())
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionEventDeleted)
	})

	t.Run("losing the mapping insert race resolves into an update", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)
		env.mappingRepo.conflictOnce = true

		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		assert.Equal(t, 1, env.mappingRepo.count())
		mapping, err := env.mappingRepo.GetByLocalEventID(context.Background(), "user-1", local.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-1", mapping.ExternalEventID())
		assert.Equal(t, calendarsync.MappingStatusSynced, mapping.Status())
	})

	t.Run("vanished external event is recreated on patch", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)
		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		env.now = env.now.Add(time.Minute)
		delete(env.provider.events, "ext-1")
		local.Title = "Mercado"
		local.UpdatedAt = env.now
		require.NoError(t, env.eventRepo.Update(context.Background(), local))

		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))

		assert.Equal(t, 2, env.provider.insertCalls)
		mapping, err := env.mappingRepo.GetByLocalEventID(context.Background(), "user-1", local.ID)
		require.NoError(t, err)
		assert.Equal(t, "ext-2", mapping.ExternalEventID())
	})

	t.Run("inbound-only direction pushes nothing", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.Direction = calendarsync.DirectionFromExternal
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))
		local := env.addLocalEvent(t, "user-1", "Mercado", 8990)

		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", local.ID))
		assert.Zero(t, env.provider.insertCalls)
	})

	t.Run("fresh inbound apply suppresses the echo push", func(t *testing.T) {
		env := newExecutorEnv(t)
		env.connect(t, "user-1")
		env.provider.addEvent(env.foreignExternal("foreign-1", "Consulta"))
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))

		mapping, err := env.mappingRepo.GetByExternalEventID(context.Background(), "user-1", "foreign-1")
		require.NoError(t, err)

		env.now = env.now.Add(2 * time.Second)
		require.NoError(t, env.executor.PushEvent(context.Background(), "user-1", mapping.LocalEventID()))
		assert.Zero(t, env.provider.patchCalls)
	})
}
