package runtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasrohde/botlang/pkg/diagnostics"
	"github.com/thomasrohde/botlang/pkg/evaluator"
)

func TestSessionKeepsGlobals(t *testing.T) {
	var lines []string
	s, err := instant().NewSession(Hooks{Output: func(l string) { lines = append(lines, l) }})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Eval(ctx, "var n = 2;"))
	require.NoError(t, s.Eval(ctx, "function twice(x) { return x * n; }"))
	require.NoError(t, s.Eval(ctx, "n = 5; print twice(3);"))
	assert.Equal(t, []string{"15"}, lines)

	v, err := s.Globals().Get("n")
	require.NoError(t, err)
	assert.Equal(t, "5", evaluator.ValueToString(v))
}

func TestSessionSurvivesFaults(t *testing.T) {
	var lines []string
	s, err := instant().NewSession(Hooks{Output: func(l string) { lines = append(lines, l) }})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Eval(ctx, "var a = 1;"))

	err = s.Eval(ctx, "print a +;")
	require.Error(t, err)
	assert.Equal(t, diagnostics.EParse, Diagnostics(err)[0].Code)

	err = s.Eval(ctx, "print a + nil;")
	require.Error(t, err)
	assert.Equal(t, ExitRuntime, ExitCode(err))

	// redeclaring a global is a fault, but the old binding survives
	err = s.Eval(ctx, "var a = 2;")
	require.Error(t, err)

	require.NoError(t, s.Eval(ctx, "print a;"))
	assert.Equal(t, []string{"1"}, lines)
}

func TestSessionRobotPersists(t *testing.T) {
	s, err := instant().NewSession(Hooks{})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Eval(ctx, "moveFwd(50);"))
	require.NoError(t, s.Eval(ctx, "rotate(90); moveFwd(50);"))
	assert.Len(t, s.Turtle().Shapes(), 2)
	assert.InDelta(t, 350, s.Turtle().Pos().X, 1e-9)
	assert.InDelta(t, 250, s.Turtle().Pos().Y, 1e-9)
}

func TestSessionKillIsPerEval(t *testing.T) {
	s, err := instant().NewSession(Hooks{})
	require.NoError(t, err)
	defer s.Close()

	s.Kill()
	// every evaluation starts with a fresh kill switch
	require.NoError(t, s.Eval(context.Background(), "var ok = true;"))
}

func TestSessionCancelledContext(t *testing.T) {
	s, err := instant().NewSession(Hooks{})
	require.NoError(t, err)
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Eval(ctx, "print 1;")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "killed")
}
