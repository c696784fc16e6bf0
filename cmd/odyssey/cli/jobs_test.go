package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	_, err := c.Trigger(context.Background(), "mail:send")
	require.ErrorContains(t, err, "unsupported job")
}

func TestRunValidatesArguments(t *testing.T) {
	c := NewJobsCLI(asynq.RedisClientOpt{Addr: "127.0.0.1:0"}, time.Hour)
	t.Cleanup(func() { _ = c.Close() })

	var out bytes.Buffer
	require.ErrorContains(t, c.Run(context.Background(), nil, &out), "usage")
	require.ErrorContains(t, c.Run(context.Background(), []string{"trigger"}, &out), "usage")
	require.ErrorContains(t, c.Run(context.Background(), []string{"purge"}, &out), "unknown command")
	require.Empty(t, out.String())
}

func TestNilCLIIsNotConfigured(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "ledger:gl_integrity")
	require.ErrorContains(t, err, "not configured")
	_, err = c.InspectQueue()
	require.ErrorContains(t, err, "not configured")
}
