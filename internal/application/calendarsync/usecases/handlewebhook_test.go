package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aegiswallet/internal/domain/calendarsync"
)

func newWebhookEnv(t *testing.T) (*executorEnv, *HandleWebhookUseCase) {
	t.Helper()
	env := newExecutorEnv(t)
	env.connect(t, "user-1")

	settings, err := env.settingsRepo.GetByUserID(context.Background(), "user-1")
	require.NoError(t, err)
	settings.SetChannel("chan-1", "res-1", "channel-secret", env.now.Add(168*time.Hour), env.now)
	require.NoError(t, env.settingsRepo.Update(context.Background(), settings))

	log := discardLogger()
	queue := NewQueueService(env.queueRepo, calendarsync.DefaultMaxRetries, log)
	return env, NewHandleWebhookUseCase(env.settingsRepo, queue, env.audit, log)
}

func TestHandleWebhook(t *testing.T) {
	t.Run("valid notification queues a high priority inbound sync", func(t *testing.T) {
		env, uc := newWebhookEnv(t)

		err := uc.Execute(context.Background(), HandleWebhookCommand{
			ChannelID:     "chan-1",
			ResourceID:    "res-1",
			ResourceState: "exists",
			Token:         "channel-secret",
		})
		require.NoError(t, err)

		items := env.queueRepo.byUser("user-1")
		require.Len(t, items, 1)
		assert.Equal(t, calendarsync.JobInbound, items[0].Direction())
		assert.Equal(t, calendarsync.PriorityHigh, items[0].Priority())
	})

	t.Run("initial sync ping confirms without queuing", func(t *testing.T) {
		env, uc := newWebhookEnv(t)

		err := uc.Execute(context.Background(), HandleWebhookCommand{
			ChannelID:     "chan-1",
			ResourceID:    "res-1",
			ResourceState: "sync",
			Token:         "channel-secret",
		})
		require.NoError(t, err)
		assert.Empty(t, env.queueRepo.byUser("user-1"))
	})

	t.Run("forged token is dropped and audited", func(t *testing.T) {
		env, uc := newWebhookEnv(t)

		err := uc.Execute(context.Background(), HandleWebhookCommand{
			ChannelID:     "chan-1",
			ResourceID:    "res-1",
			ResourceState: "exists",
			Token:         "wrong-secret",
		})
		require.NoError(t, err)
		assert.Empty(t, env.queueRepo.byUser("user-1"))
		assert.Contains(t, env.auditRepo.actions("user-1"), calendarsync.AuditActionWebhookRejected)
	})

	t.Run("unknown channel is dropped and audited", func(t *testing.T) {
		env, uc := newWebhookEnv(t)

		err := uc.Execute(context.Background(), HandleWebhookCommand{
			ChannelID:     "chan-unknown",
			ResourceID:    "res-unknown",
			ResourceState: "exists",
			Token:         "channel-secret",
		})
		require.NoError(t, err)
		assert.Empty(t, env.queueRepo.byUser("user-1"))
		assert.Contains(t, env.auditRepo.actions(""), calendarsync.AuditActionWebhookRejected)
	})

	t.Run("missing channel headers are dropped silently", func(t *testing.T) {
		env, uc := newWebhookEnv(t)

		err := uc.Execute(context.Background(), HandleWebhookCommand{ResourceState: "exists"})
		require.NoError(t, err)
		assert.Empty(t, env.queueRepo.byUser("user-1"))
		assert.Empty(t, env.auditRepo.actions(""))
	})

	t.Run("outbound-only direction queues nothing", func(t *testing.T) {
		env, uc := newWebhookEnv(t)
		settings, _ := env.settingsRepo.GetByUserID(context.Background(), "user-1")
		settings.Direction = calendarsync.DirectionToExternal
		require.NoError(t, env.settingsRepo.Update(context.Background(), settings))

		err := uc.Execute(context.Background(), HandleWebhookCommand{
			ChannelID:     "chan-1",
			ResourceID:    "res-1",
			ResourceState: "exists",
			Token:         "channel-secret",
		})
		require.NoError(t, err)
		assert.Empty(t, env.queueRepo.byUser("user-1"))
	})
}
