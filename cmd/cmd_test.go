package cmd

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	for _, sub := range []string{"serve", "migrate"} {
		assert.Contains(t, buf.String(), sub, "Help missing %q command", sub)
	}
}

func TestMigrateCommand_HasUpAndDown(t *testing.T) {
	cmd := NewMigrateCmd()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"up", "down"}, names)
}

func TestAPIServer_ShutsDownOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var ran []string
	cleanup := func(name string) func(context.Context) error {
		return func(context.Context) error {
			ran = append(ran, name)
			return nil
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- APIServer(ctx, http.NotFoundHandler(), "0", zap.NewNop(), cleanup("janitor"), cleanup("mailer"))
	}()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	assert.Equal(t, []string{"janitor", "mailer"}, ran)
}

func TestAPIServer_ReportsCleanupErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := APIServer(ctx, http.NotFoundHandler(), "0", zap.NewNop(), func(context.Context) error {
		return errors.New("queue not drained")
	})
	assert.ErrorContains(t, err, "queue not drained")
}
