package handlers_test

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/r2/internal/config"
	"github.com/cory-johannsen/r2/internal/dice"
	"github.com/cory-johannsen/r2/internal/macros"
	"github.com/cory-johannsen/r2/internal/roll"
	"github.com/cory-johannsen/r2/internal/server/handlers"
	"github.com/cory-johannsen/r2/internal/server/telnet"
	"github.com/cory-johannsen/r2/internal/testutil"
)

// startServer spins up an acceptor on an ephemeral port and returns its
// address.
func startServer(t *testing.T, src dice.Source, mgr *macros.Manager) string {
	t.Helper()

	logger := zaptest.NewLogger(t)
	evaluator := roll.NewLoggedEvaluator(roll.NewEvaluator(src, roll.DefaultLimits()), logger)
	handler := handlers.NewRollHandler(evaluator, mgr, logger)

	var counter atomic.Int64
	newID := func() string {
		return fmt.Sprintf("test-session-%d", counter.Add(1))
	}

	cfg := config.ServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	acceptor := telnet.NewAcceptor(cfg, handler, newID, logger)

	go func() {
		_ = acceptor.ListenAndServe()
	}()
	t.Cleanup(acceptor.Stop)

	deadline := time.Now().Add(5 * time.Second)
	for acceptor.Addr() == "" {
		if time.Now().After(deadline) {
			t.Fatal("acceptor did not start listening")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return acceptor.Addr()
}

func TestSessionEvaluatesExpression(t *testing.T) {
	addr := startServer(t, testutil.NewScriptedSource(3, 5), nil)

	client := testutil.NewTelnetClient(t, addr)
	client.ReadUntil("roll server", 5*time.Second)

	out := client.Roll("2d6", "= 8")
	require.Contains(t, telnet.StripANSI(out), "[3 5] = 8")
}

func TestSessionReportsErrors(t *testing.T) {
	addr := startServer(t, testutil.NewScriptedSource(), nil)

	client := testutil.NewTelnetClient(t, addr)
	client.ReadUntil("roll server", 5*time.Second)

	out := client.Roll("2d6k9", "error")
	require.Contains(t, telnet.StripANSI(out), "error:")
}

func TestSessionHelpAndQuit(t *testing.T) {
	addr := startServer(t, testutil.NewScriptedSource(), nil)

	client := testutil.NewTelnetClient(t, addr)
	client.ReadUntil("roll server", 5*time.Second)

	out := client.Roll("help", "Savage Worlds")
	require.Contains(t, telnet.StripANSI(out), "keep the 3 highest")
	require.Contains(t, telnet.StripANSI(out), "2d20adv")

	out = client.Roll("quit", "Goodbye")
	require.Contains(t, out, "Goodbye.")
}

func TestSessionExpandsAliases(t *testing.T) {
	dir := t.TempDir()
	aliasPath := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(aliasPath, []byte("aliases:\n  atk: 2d6+$1\n"), 0o644))

	logger := zaptest.NewLogger(t)
	mgr := macros.NewManager(0, logger)
	require.NoError(t, mgr.LoadAliases(aliasPath))
	t.Cleanup(mgr.Close)

	addr := startServer(t, testutil.NewScriptedSource(3, 5), mgr)

	client := testutil.NewTelnetClient(t, addr)
	client.ReadUntil("roll server", 5*time.Second)

	out := client.Roll("atk 4", "= 12")
	require.Contains(t, telnet.StripANSI(out), "[3 5] +4 = 12")
}

func TestSessionListsMacros(t *testing.T) {
	dir := t.TempDir()
	aliasPath := filepath.Join(dir, "aliases.yaml")
	require.NoError(t, os.WriteFile(aliasPath, []byte("aliases:\n  atk: 2d6\n  dmg: d8\n"), 0o644))

	logger := zaptest.NewLogger(t)
	mgr := macros.NewManager(0, logger)
	require.NoError(t, mgr.LoadAliases(aliasPath))
	t.Cleanup(mgr.Close)

	addr := startServer(t, testutil.NewScriptedSource(), mgr)

	client := testutil.NewTelnetClient(t, addr)
	client.ReadUntil("roll server", 5*time.Second)

	out := client.Roll("macros", "atk")
	require.Contains(t, telnet.StripANSI(out), "atk, dmg")
}

// TestSessionAuditLog drives a session over an in-memory pipe with the
// logged evaluator wrapper and checks every evaluation reaches the log.
func TestSessionAuditLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	evaluator := roll.NewLoggedEvaluator(
		roll.NewEvaluator(testutil.NewScriptedSource(3, 5), roll.DefaultLimits()), logger)
	handler := handlers.NewRollHandler(evaluator, nil, logger)

	serverSide, clientSide := net.Pipe()
	conn := telnet.NewConn(serverSide, 5*time.Second, 5*time.Second)

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.Handle(conn, "audit-session")
	}()

	go func() {
		_, _ = clientSide.Write([]byte("2d6\r\nquit\r\n"))
	}()
	buf := make([]byte, 4096)
	deadline := time.Now().Add(5 * time.Second)
	var out string
	for !strings.Contains(out, "Goodbye.") {
		_ = clientSide.SetReadDeadline(deadline)
		n, err := clientSide.Read(buf)
		require.NoError(t, err)
		out += string(buf[:n])
	}
	clientSide.Close()
	<-done

	entries := logs.FilterMessage("roll evaluated").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "2d6", fields["expression"])
	require.EqualValues(t, 8, fields["total"])
}

func TestMultipleConcurrentSessions(t *testing.T) {
	addr := startServer(t, dice.NewSeededSource(42), nil)

	for i := 0; i < 3; i++ {
		client := testutil.NewTelnetClient(t, addr)
		client.ReadUntil("roll server", 5*time.Second)
		out := client.Roll("d20", "=")
		require.Contains(t, telnet.StripANSI(out), "=")
		client.Close()
	}
}
