package application

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-ballot/infrastructure/ballots"
	"github.com/ahrav/go-ballot/infrastructure/middleware"
	"github.com/ahrav/go-ballot/infrastructure/rules"
	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
	"github.com/ahrav/go-ballot/internal/testutils"
)

// stubRule elects a fixed winner, or fails with err.
type stubRule struct {
	name        string
	winner      domain.Alternative
	err         error
	validateErr error
	calls       atomic.Int32
}

func (s *stubRule) Name() string    { return s.name }
func (s *stubRule) Validate() error { return s.validateErr }
func (s *stubRule) Execute(_ context.Context, state domain.State) (domain.State, error) {
	s.calls.Add(1)
	if s.err != nil {
		return state, s.err
	}
	return domain.With(state, domain.KeyOutcome, domain.Outcome{Rule: "stub", Winner: s.winner}), nil
}

// countingCollector counts calls per metric name.
type countingCollector struct {
	mu     sync.Mutex
	counts map[string]int
}

func (c *countingCollector) inc(metric string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	c.counts[metric]++
}

func (c *countingCollector) RecordLatency(op string, _ time.Duration, _ map[string]string) {
	c.inc(op)
}
func (c *countingCollector) RecordCounter(m string, _ float64, _ map[string]string)   { c.inc(m) }
func (c *countingCollector) RecordGauge(m string, _ float64, _ map[string]string)     { c.inc(m) }
func (c *countingCollector) RecordHistogram(m string, _ float64, _ map[string]string) { c.inc(m) }

var _ ports.MetricsCollector = (*countingCollector)(nil)

func TestNewPanel_Errors(t *testing.T) {
	tests := []struct {
		name    string
		rules   []ports.Rule
		wantErr error
		wantMsg string
	}{
		{name: "no rules", wantErr: ErrEmptyPanel},
		{
			name:    "duplicate ids",
			rules:   []ports.Rule{&stubRule{name: "a"}, &stubRule{name: "a"}},
			wantErr: ErrDuplicateRule,
		},
		{
			name:    "nil rule",
			rules:   []ports.Rule{&stubRule{name: "a"}, nil},
			wantMsg: "rule 1 is nil",
		},
		{
			name:    "invalid rule",
			rules:   []ports.Rule{&stubRule{name: "a", validateErr: errors.New("not configured")}},
			wantMsg: "rule a: not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panel, err := NewPanel("p", tt.rules)
			require.Error(t, err)
			assert.Nil(t, panel)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestPanel_Run(t *testing.T) {
	borda, err := rules.NewPositionalRule("borda", rules.DefaultPositionalConfig())
	require.NoError(t, err)
	stv, err := rules.NewSTVRule("stv", rules.TieBreakConfig{})
	require.NoError(t, err)

	panel, err := NewPanel("reference", []ports.Rule{borda, stv})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyProfile, testutils.ReferenceProfile(t))
	out, err := panel.Run(context.Background(), state)
	require.NoError(t, err)

	id, ok := domain.Get(out, domain.KeyElectionID)
	require.True(t, ok)
	_, err = uuid.Parse(id)
	assert.NoError(t, err, "election id should be a uuid")

	outcomes, ok := domain.Get(out, domain.KeyOutcomes)
	require.True(t, ok)
	assert.Equal(t, testutils.AltB, outcomes["borda"].Winner)
	assert.Equal(t, testutils.AltB, outcomes["stv"].Winner)

	_, ok = domain.Get(state, domain.KeyOutcomes)
	assert.False(t, ok, "input state must not change")
}

func TestPanel_RunKeepsElectionID(t *testing.T) {
	panel, err := NewPanel("p", []ports.Rule{&stubRule{name: "s", winner: 1}})
	require.NoError(t, err)

	state := domain.With(domain.NewState(), domain.KeyElectionID, "fixed-id")
	out, err := panel.Run(context.Background(), state)
	require.NoError(t, err)

	id, _ := domain.Get(out, domain.KeyElectionID)
	assert.Equal(t, "fixed-id", id)
}

func TestPanel_DefaultTieBreak(t *testing.T) {
	// Two opposite ballots: plurality ties between 1 and 2.
	p, err := domain.NewProfile(domain.Ranking{1, 2}, domain.Ranking{2, 1})
	require.NoError(t, err)

	plurality, err := rules.NewPositionalRule("plurality", rules.PositionalConfig{Method: rules.MethodPlurality})
	require.NoError(t, err)

	panel, err := NewPanel("p", []ports.Rule{plurality}, WithDefaultTieBreak(domain.TieBreakMin()))
	require.NoError(t, err)

	t.Run("panel default applies", func(t *testing.T) {
		outcomes, err := panel.Elect(context.Background(), p, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.Alternative(1), outcomes["plurality"].Winner)
	})

	t.Run("state tie-break wins over panel default", func(t *testing.T) {
		state := domain.With(domain.NewState(), domain.KeyProfile, p)
		state = domain.With(state, domain.KeyTieBreak, domain.TieBreakMax())

		out, err := panel.Run(context.Background(), state)
		require.NoError(t, err)
		outcomes, _ := domain.Get(out, domain.KeyOutcomes)
		assert.Equal(t, domain.Alternative(2), outcomes["plurality"].Winner)
	})
}

func TestPanel_RuleFailure(t *testing.T) {
	boom := errors.New("boom")
	panel, err := NewPanel("p", []ports.Rule{
		&stubRule{name: "ok", winner: 1},
		&stubRule{name: "bad", err: boom},
	})
	require.NoError(t, err)

	_, err = panel.Run(context.Background(), domain.NewState())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "panel p")
}

func TestPanel_MissingInput(t *testing.T) {
	rangeRule, err := rules.NewRangeRule("range", rules.TieBreakConfig{})
	require.NoError(t, err)
	panel, err := NewPanel("p", []ports.Rule{rangeRule})
	require.NoError(t, err)

	_, err = panel.Elect(context.Background(), testutils.ReferenceProfile(t), nil)
	assert.ErrorIs(t, err, ports.ErrMissingInput)
}

func TestPanel_CancelledContext(t *testing.T) {
	stub := &stubRule{name: "s", winner: 1}
	panel, err := NewPanel("p", []ports.Rule{stub})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = panel.Run(ctx, domain.NewState())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stub.calls.Load())
}

func TestPanel_ConcurrencyLimit(t *testing.T) {
	stubs := make([]ports.Rule, 8)
	for i := range stubs {
		stubs[i] = &stubRule{name: string(rune('a' + i)), winner: domain.Alternative(i + 1)}
	}

	panel, err := NewPanel("p", stubs, WithConcurrencyLimit(1))
	require.NoError(t, err)

	out, err := panel.Run(context.Background(), domain.NewState())
	require.NoError(t, err)
	outcomes, _ := domain.Get(out, domain.KeyOutcomes)
	require.Len(t, outcomes, 8)
	assert.Equal(t, domain.Alternative(8), outcomes["h"].Winner)
}

func TestPanel_LoggingAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	collector := &countingCollector{}

	panel, err := NewPanel("observed",
		[]ports.Rule{&stubRule{name: "s", winner: 1}},
		WithLogger(logger),
		WithMetricsCollector(collector),
		WithTracer(nil),
	)
	require.NoError(t, err)

	_, err = panel.Run(context.Background(), domain.NewState())
	require.NoError(t, err)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"election completed"`)
	assert.Contains(t, logs, `"msg":"rule decided"`)
	assert.Contains(t, logs, `"panel":"observed"`)

	collector.mu.Lock()
	defer collector.mu.Unlock()
	assert.Equal(t, 1, collector.counts["elections_total"])
	assert.Equal(t, 1, collector.counts["election"])
	assert.Equal(t, 1, collector.counts["winner_score"])
}

func TestPanel_NeutralityCheck(t *testing.T) {
	borda, err := rules.NewPositionalRule("borda", rules.DefaultPositionalConfig())
	require.NoError(t, err)

	t.Run("neutral rule passes", func(t *testing.T) {
		panel, err := NewPanel("p", []ports.Rule{borda}, WithNeutralityCheck())
		require.NoError(t, err)

		outcomes, err := panel.Elect(context.Background(), testutils.ReferenceProfile(t), nil)
		require.NoError(t, err)
		assert.Equal(t, testutils.AltB, outcomes["borda"].Winner)
	})

	t.Run("fixed winner fails", func(t *testing.T) {
		// Always electing 2 is not neutral: after relabeling 2 means c.
		stub := &stubRule{name: "fixed", winner: 2}
		panel, err := NewPanel("p", []ports.Rule{stub}, WithNeutralityCheck())
		require.NoError(t, err)

		_, err = panel.Elect(context.Background(), testutils.ReferenceProfile(t), nil)
		assert.ErrorIs(t, err, middleware.ErrNeutralityViolation)
		assert.Equal(t, int32(2), stub.calls.Load())
	})
}

func TestPanel_RateLimit(t *testing.T) {
	stubs := []ports.Rule{&stubRule{name: "a", winner: 1}, &stubRule{name: "b", winner: 2}}

	t.Run("burst admits every rule", func(t *testing.T) {
		panel, err := NewPanel("p", stubs, WithRateLimit(rate.Every(time.Hour), 2))
		require.NoError(t, err)

		_, err = panel.Run(context.Background(), domain.NewState())
		require.NoError(t, err)
	})

	t.Run("exhausted bucket fails at the deadline", func(t *testing.T) {
		panel, err := NewPanel("p", stubs, WithRateLimit(rate.Every(time.Hour), 1))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = panel.Run(ctx, domain.NewState())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rate limit")
	})
}

func TestPanel_ElectBallots(t *testing.T) {
	borda, err := rules.NewPositionalRule("borda", rules.DefaultPositionalConfig())
	require.NoError(t, err)
	catalog, err := ballots.NewCatalog("a", "b", "c", "d")
	require.NoError(t, err)

	t.Run("without catalog", func(t *testing.T) {
		panel, err := NewPanel("p", []ports.Rule{borda})
		require.NoError(t, err)

		_, ok := panel.Catalog()
		assert.False(t, ok)
		_, err = panel.ElectBallots(context.Background(), []string{"a > b"}, nil)
		assert.ErrorIs(t, err, ErrNoCatalog)

		labels := panel.WinnerLabels(map[string]domain.Outcome{"borda": {Winner: 3}})
		assert.Equal(t, map[string]string{"borda": "3"}, labels)
	})

	t.Run("unknown label suggests a match", func(t *testing.T) {
		panel, err := NewPanel("p", []ports.Rule{borda}, WithCatalog(catalog))
		require.NoError(t, err)

		_, err = panel.ElectBallots(context.Background(), []string{"a > b > c > d", "a > bb > c > d"}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ballots.ErrUnknownLabel)
		var labelErr *ballots.LabelError
		require.True(t, errors.As(err, &labelErr))
		assert.Equal(t, "b", labelErr.Suggestion)
	})

	t.Run("labelled election", func(t *testing.T) {
		var logs bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
		panel, err := NewPanel("p", []ports.Rule{borda}, WithCatalog(catalog), WithLogger(logger))
		require.NoError(t, err)

		outcomes, err := panel.ElectBallots(context.Background(), []string{
			"a > b > d > c",
			"b > a > c > d",
			"b > c > a > d",
			"d > c > a > b",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, testutils.AltB, outcomes["borda"].Winner)
		assert.Equal(t, map[string]string{"borda": "b"}, panel.WinnerLabels(outcomes))
		assert.Contains(t, logs.String(), `"winner":"b"`)
	})
}
