package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegiswallet/internal/domain/calendarsync"
	apperrors "aegiswallet/internal/shared/errors"
)

type connectEnv struct {
	*executorEnv
	stateStore *fakeStateStore
	queue      *QueueService
	initiate   *InitiateConnectUseCase
	callback   *HandleConnectCallbackUseCase
	disconnect *DisconnectUseCase
	status     *GetSyncStatusUseCase
}

func newConnectEnv(t *testing.T) *connectEnv {
	t.Helper()
	env := newExecutorEnv(t)
	log := discardLogger()
	stateStore := newFakeStateStore()
	queue := NewQueueService(env.queueRepo, calendarsync.DefaultMaxRetries, log)
	registry := newChannelRegistry(env)

	return &connectEnv{
		executorEnv: env,
		stateStore:  stateStore,
		queue:       queue,
		initiate:    NewInitiateConnectUseCase(env.oauth, stateStore, log),
		callback: NewHandleConnectCallbackUseCase(
			env.oauth, stateStore, env.credRepo, env.settingsRepo, queue, registry, env.audit, log),
		disconnect: NewDisconnectUseCase(
			env.oauth, env.credRepo, env.settingsRepo, env.mappingRepo, env.queueRepo, registry, env.audit, log),
		status: NewGetSyncStatusUseCase(env.credRepo, env.settingsRepo, env.queueRepo),
	}
}

func TestConnectFlow(t *testing.T) {
	t.Run("initiate produces a consent URL bound to the user", func(t *testing.T) {
		env := newConnectEnv(t)

		result, err := env.initiate.Execute(context.Background(), InitiateConnectCommand{UserID: "user-1"})
		require.NoError(t, err)
		assert.Contains(t, result.AuthURL, result.State)

		userID, err := env.stateStore.VerifyAndGet(context.Background(), result.State)
		require.NoError(t, err)
		assert.Equal(t, "user-1", userID)
	})

	t.Run("callback stores the credential and bootstraps sync", func(t *testing.T) {
		env := newConnectEnv(t)
		env.oauth.exchanged = &calendarsync.TokenSet{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    env.now.Add(time.Hour),
			Scope:        "calendar.events",
		}
		initiated, err := env.initiate.Execute(context.Background(), InitiateConnectCommand{UserID: "user-1"})
		require.NoError(t, err)

		result, err := env.callback.Execute(context.Background(), HandleConnectCallbackCommand{
			Code:  "auth-code",
			State: initiated.State,
		})
		require.NoError(t, err)
		assert.Equal(t, "user-1", result.UserID)

		credential, err := env.credRepo.GetByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "refresh", credential.RefreshToken)
		assert.True(t, credential.Valid)

		settings, err := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, settings.Enabled)
		assert.Equal(t, DefaultCalendarID, settings.CalendarID)
		assert.True(t, settings.HasChannel())

		items := env.queueRepo.byUser("user-1")
		require.Len(t, items, 1)
		assert.Equal(t, calendarsync.JobInbound, items[0].Direction())
		assert.Equal(t, calendarsync.PriorityHigh, items[0].Priority())
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionCredentialSaved)
	})

	t.Run("reconnect keeps existing settings", func(t *testing.T) {
		env := newConnectEnv(t)
		env.oauth.exchanged = &calendarsync.TokenSet{
			AccessToken:  "access",
			RefreshToken: "refresh",
			ExpiresAt:    env.now.Add(time.Hour),
		}
		settings := calendarsync.NewSyncSettings("user-1", "work-calendar")
		settings.Direction = calendarsync.DirectionToExternal
		require.NoError(t, env.settingsRepo.Save(context.Background(), settings))

		initiated, _ := env.initiate.Execute(context.Background(), InitiateConnectCommand{UserID: "user-1"})
		_, err := env.callback.Execute(context.Background(), HandleConnectCallbackCommand{Code: "c", State: initiated.State})
		require.NoError(t, err)

		kept, err := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Equal(t, "work-calendar", kept.CalendarID)
		assert.Equal(t, calendarsync.DirectionToExternal, kept.Direction)
	})

	t.Run("unknown state is rejected", func(t *testing.T) {
		env := newConnectEnv(t)

		_, err := env.callback.Execute(context.Background(), HandleConnectCallbackCommand{Code: "c", State: "forged"})
		require.True(t, apperrors.IsAppError(err))
		assert.Equal(t, 400, apperrors.GetAppError(err).Code)
		_, getErr := env.credRepo.GetByUserID(context.Background(), "user-1")
		assert.True(t, apperrors.IsNotFoundError(getErr))
	})

	t.Run("missing refresh token aborts the connection", func(t *testing.T) {
		env := newConnectEnv(t)
		env.oauth.exchanged = &calendarsync.TokenSet{
			AccessToken: "access",
			ExpiresAt:   env.now.Add(time.Hour),
		}
		initiated, _ := env.initiate.Execute(context.Background(), InitiateConnectCommand{UserID: "user-1"})

		_, err := env.callback.Execute(context.Background(), HandleConnectCallbackCommand{Code: "c", State: initiated.State})
		require.Error(t, err)
		_, getErr := env.credRepo.GetByUserID(context.Background(), "user-1")
		assert.True(t, apperrors.IsNotFoundError(getErr))
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("severs the connection but keeps local events", func(t *testing.T) {
		env := newConnectEnv(t)
		env.connect(t, "user-1")
		local := env.addLocalEvent(t, "user-1", "Aluguel", 123456)
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))
		require.NoError(t, env.queue.EnqueueInbound(context.Background(), "user-1", calendarsync.PriorityNormal))

		require.NoError(t, env.disconnect.Execute(context.Background(), DisconnectCommand{UserID: "user-1"}))

		_, err := env.credRepo.GetByUserID(context.Background(), "user-1")
		assert.True(t, apperrors.IsNotFoundError(err))
		_, err = env.settingsRepo.GetByUserID(context.Background(), "user-1")
		assert.True(t, apperrors.IsNotFoundError(err))
		assert.Zero(t, env.mappingRepo.count())

		pending, err := env.queueRepo.CountPendingByUser(context.Background(), "user-1")
		require.NoError(t, err)
		assert.Zero(t, pending)

		kept, err := env.eventRepo.FindByID(context.Background(), local.ID)
		require.NoError(t, err)
		assert.Equal(t, "Aluguel", kept.Title)
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionDisconnected)

		assert.Equal(t, 1, env.oauth.revokeCalls)
		assert.Equal(t, "refresh", env.oauth.revokedToken)
	})

	t.Run("failed remote revocation does not block the disconnect", func(t *testing.T) {
		env := newConnectEnv(t)
		env.connect(t, "user-1")
		env.oauth.revokeErr = apperrors.NewUnavailableError("revoke endpoint down")

		require.NoError(t, env.disconnect.Execute(context.Background(), DisconnectCommand{UserID: "user-1"}))

		assert.Equal(t, 1, env.oauth.revokeCalls)
		_, err := env.credRepo.GetByUserID(context.Background(), "user-1")
		assert.True(t, apperrors.IsNotFoundError(err))
	})

	t.Run("disconnecting an unconnected user fails", func(t *testing.T) {
		env := newConnectEnv(t)
		err := env.disconnect.Execute(context.Background(), DisconnectCommand{UserID: "user-1"})
		assert.True(t, apperrors.IsNotFoundError(err))
	})
}

func TestGetSyncStatus(t *testing.T) {
	t.Run("unconnected user reports nothing", func(t *testing.T) {
		env := newConnectEnv(t)

		result, err := env.status.Execute(context.Background(), "user-1")
		require.NoError(t, err)
		assert.False(t, result.Connected)
		assert.False(t, result.Enabled)
	})

	t.Run("connected user reports settings and queue depth", func(t *testing.T) {
		env := newConnectEnv(t)
		env.connect(t, "user-1")
		require.NoError(t, env.executor.RunSync(context.Background(), "user-1"))
		require.NoError(t, env.queue.EnqueueInbound(context.Background(), "user-1", calendarsync.PriorityNormal))

		result, err := env.status.Execute(context.Background(), "user-1")
		require.NoError(t, err)
		assert.True(t, result.Connected)
		assert.True(t, result.CredentialValid)
		assert.True(t, result.Enabled)
		assert.Equal(t, calendarsync.DirectionBidirectional, result.Direction)
		assert.Equal(t, "primary", result.CalendarID)
		require.NotNil(t, result.LastFullSyncAt)
		assert.Equal(t, int64(1), result.PendingJobs)
		assert.False(t, result.ChannelActive)
	})
}
