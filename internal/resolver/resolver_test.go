package resolver

import (
	"bytes"
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/mnemo/internal/chunk"
	"github.com/hpungsan/mnemo/internal/keywords"
)

type probeCall struct{ kind, code, user string }

type fakeService struct {
	mu      sync.Mutex
	calls   []probeCall
	answers map[string][]string
	err     error
	delay   time.Duration
}

func (f *fakeService) Lookup(ctx context.Context, kind, code, userID string) ([]string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, probeCall{kind, code, userID})
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.answers[kind+":"+code], nil
}

func defaultResolver(svc Service) *Resolver {
	return New([]Tier{
		StaticTier{Table: keywords.MustDefault()},
		ServiceTier{Service: svc, UserID: "local", Timeout: 200 * time.Millisecond},
	})
}

func TestResolve_StaticTwoDigit(t *testing.T) {
	svc := &fakeService{}
	r := defaultResolver(svc)

	words := r.Resolve(context.Background(), chunk.Chunk{Value: "11"})
	want, _ := keywords.MustDefault().Lookup("11")
	assert.Equal(t, want, words)
	assert.Empty(t, svc.calls, "static hit must not reach the service")
}

func TestResolve_ThreeDigitViaService(t *testing.T) {
	svc := &fakeService{answers: map[string][]string{"3-digit:115": {"고구마", "고구마", " "}}}
	r := defaultResolver(svc)

	words := r.Resolve(context.Background(), chunk.Chunk{Value: "115"})
	assert.Equal(t, []string{"고구마"}, words)
	require.Len(t, svc.calls, 1)
	assert.Equal(t, probeCall{"3-digit", "115", "local"}, svc.calls[0])
}

func TestResolve_SingleDigitProbePlan(t *testing.T) {
	svc := &fakeService{answers: map[string][]string{"2-digit:07": {"아사"}}}
	r := defaultResolver(svc)

	words := r.Resolve(context.Background(), chunk.Chunk{Value: "7"})
	assert.Equal(t, []string{"아사"}, words)
	require.Len(t, svc.calls, 2)
	assert.Equal(t, "1-digit", svc.calls[0].kind)
	assert.Equal(t, probeCall{"2-digit", "07", "local"}, svc.calls[1])
}

func TestServiceTier_CustomFiller(t *testing.T) {
	tier := ServiceTier{Filler: "9"}
	plan := tier.Plan(chunk.Chunk{Value: "3"})
	assert.Equal(t, []Probe{{"1-digit", "3"}, {"2-digit", "93"}}, plan)
	assert.Nil(t, tier.Plan(chunk.Chunk{Value: "1234"}))
}

func TestServiceTier_ExactOnlySkipsPaddedProbe(t *testing.T) {
	tier := ServiceTier{Filler: "9", ExactOnly: true}
	assert.Equal(t, []Probe{{"1-digit", "3"}}, tier.Plan(chunk.Chunk{Value: "3"}))
	assert.Equal(t, []Probe{{"2-digit", "93"}}, tier.Plan(chunk.Chunk{Value: "93"}))

	taught := &fakeService{answers: map[string][]string{"2-digit:07": {"이슬"}}}
	r := New(nil, WithPreferred(ServiceTier{Service: taught, ExactOnly: true}))
	assert.Equal(t, []string{"7"}, r.Resolve(context.Background(), chunk.Chunk{Value: "7"}))
	require.Len(t, taught.calls, 1)
	assert.Equal(t, "1-digit", taught.calls[0].kind)
}

func TestResolve_FallbackOnMiss(t *testing.T) {
	r := defaultResolver(&fakeService{})
	assert.Equal(t, []string{"999"}, r.Resolve(context.Background(), chunk.Chunk{Value: "999"}))
}

func TestResolve_ServiceErrorDegradesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	svc := &fakeService{err: stderrors.New("connection refused")}
	r := New([]Tier{ServiceTier{Service: svc, Logger: logger}})

	words := r.Resolve(context.Background(), chunk.Chunk{Value: "115"})
	assert.Equal(t, []string{"115"}, words)
	assert.Contains(t, buf.String(), "RESOLUTION_DEGRADED")
}

func TestResolve_TimeoutFallsThrough(t *testing.T) {
	svc := &fakeService{delay: 500 * time.Millisecond, answers: map[string][]string{"3-digit:115": {"고구마"}}}
	r := New([]Tier{ServiceTier{Service: svc, Timeout: 20 * time.Millisecond}})

	start := time.Now()
	words := r.Resolve(context.Background(), chunk.Chunk{Value: "115"})
	assert.Equal(t, []string{"115"}, words)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestResolve_NeverEmpty(t *testing.T) {
	r := defaultResolver(&fakeService{})
	for n := 1; n <= 60; n++ {
		digits := ""
		for i := 0; i < n; i++ {
			digits += string(rune('0' + (i*7)%10))
		}
		chunks, err := chunk.Split(digits)
		require.NoError(t, err)
		for _, c := range chunks {
			assert.NotEmpty(t, r.Resolve(context.Background(), c), "chunk %q", c.Value)
		}
	}
}

func TestResolve_CancelledContextStillAnswers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := defaultResolver(&fakeService{})
	assert.Equal(t, []string{"11"}, r.Resolve(ctx, chunk.Chunk{Value: "11"}))
}

func TestResolveAll_PreservesOrder(t *testing.T) {
	svc := &fakeService{
		delay:   5 * time.Millisecond,
		answers: map[string][]string{"3-digit:010": {"원숭이"}},
	}
	r := New([]Tier{
		StaticTier{Table: keywords.MustDefault()},
		ServiceTier{Service: svc, Timeout: time.Second},
	}, WithConcurrency(2))

	chunks, err := chunk.Split("010-1234-5678")
	require.NoError(t, err)

	got := r.ResolveAll(context.Background(), chunks)
	require.Len(t, got, len(chunks))
	assert.Equal(t, "원숭이", got[0][0])
	for i, c := range chunks[1:] {
		want, _ := keywords.MustDefault().Lookup(c.Value)
		assert.Equal(t, want, got[i+1])
	}
}

func TestTiers(t *testing.T) {
	r := defaultResolver(nil)
	assert.Equal(t, []string{"static", "service", "fallback"}, r.Tiers())
}

func TestResolve_PreferredGoesFirst(t *testing.T) {
	taught := ServiceTier{Service: ServiceFunc(func(_ context.Context, _, code, _ string) ([]string, error) {
		if code == "11" || code == "7" {
			return []string{"곰국", "고기"}, nil
		}
		return nil, nil
	})}
	r := New([]Tier{StaticTier{Table: keywords.MustDefault()}}, WithPreferred(taught))

	words := r.Resolve(context.Background(), chunk.Chunk{Value: "11"})
	static, _ := keywords.MustDefault().Lookup("11")
	require.Len(t, words, len(static)+1)
	assert.Equal(t, "곰국", words[0])
	assert.Equal(t, "고기", words[1], "duplicate of a static keyword is kept once")

	// Nothing else answers a single digit here; the preferred words still beat the fallback.
	assert.Equal(t, []string{"곰국", "고기"}, r.Resolve(context.Background(), chunk.Chunk{Value: "7"}))
	assert.Equal(t, []string{"345"}, r.Resolve(context.Background(), chunk.Chunk{Value: "345"}))
}
