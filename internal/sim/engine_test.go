package sim

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4a3/weathervane/internal/config"
	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/storage/memory"
	"github.com/m4a3/weathervane/internal/weathervane"
)

func testConfig() Config {
	return Config{
		OriginLat: 52.52,
		OriginLon: 13.405,
		TickHz:    100,
		StartAltM: 20,
		Wind:      Calm(),
		Controller: weathervane.Config{
			Direction:           weathervane.DirectionNoseIn,
			Gain:                1,
			MinDeadzoneAngleDeg: 1,
		},
	}
}

func startEngine(t *testing.T, cfg Config, deps Dependencies) *Engine {
	t.Helper()

	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Backend == nil {
		deps.Backend = memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	}
	if deps.FlightContext == nil {
		deps.FlightContext = flight.NewContext()
	}
	require.NoError(t, deps.Backend.Init())

	e, err := New(cfg, deps)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func waitForPhase(t *testing.T, e *Engine, want Phase, timeout time.Duration) Snapshot {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := e.GetState(context.Background())
		require.NoError(t, err)
		if st.Phase == want {
			return st
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("phase %s not reached within %s", want, timeout)
	return Snapshot{}
}

func TestEngine_InvalidControllerConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Controller.Gain = -1

	_, err := New(cfg, Dependencies{Logger: slog.New(slog.DiscardHandler)})
	assert.Error(t, err)
}

func TestEngine_StartsLanded(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	st, err := e.GetState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseLanded, st.Phase)
	assert.InDelta(t, 52.52, st.Lat, 0.001)
	assert.Zero(t, st.RollCdeg)
}

func TestEngine_TakeoffReachesHover(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: 1})

	st := waitForPhase(t, e, PhaseHover, 3*time.Second)
	assert.InDelta(t, 1.0, st.HeightAGLM, 0.2)
}

func TestEngine_LandingReturnsToGround(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: 0.5})
	waitForPhase(t, e, PhaseHover, 3*time.Second)

	e.Submit(LandCommand{At: time.Now()})
	st := waitForPhase(t, e, PhaseLanded, 3*time.Second)
	assert.InDelta(t, 0, st.HeightAGLM, 0.1)
}

func TestEngine_WeathervaneTurnsTowardWind(t *testing.T) {
	if testing.Short() {
		t.Skip("takes several seconds of wall clock")
	}

	cfg := testConfig()
	cfg.Wind = Wind{SpeedMS: 8, FromDeg: 90}
	cfg.Controller.Gain = 2
	cfg.Controller.MinHeightM = 0

	e := startEngine(t, cfg, Dependencies{})

	e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: 0.5})
	waitForPhase(t, e, PhaseHover, 3*time.Second)

	// The controller needs its 2 s of stable conditions, then starts
	// yawing the nose toward the wind source at 090.
	time.Sleep(4 * time.Second)

	st, err := e.GetState(context.Background())
	require.NoError(t, err)
	assert.True(t, st.ControllerActive)
	assert.Greater(t, st.HeadingDeg, 5.0)
	assert.Less(t, st.HeadingDeg, 120.0)
}

func TestEngine_PilotYawOverrides(t *testing.T) {
	cfg := testConfig()
	cfg.Wind = Wind{SpeedMS: 8, FromDeg: 90}
	cfg.Controller.MinHeightM = 0

	e := startEngine(t, cfg, Dependencies{})

	e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: 0.5})
	waitForPhase(t, e, PhaseHover, 3*time.Second)

	e.Submit(PilotYawCommand{At: time.Now(), RateCds: -2000})
	time.Sleep(500 * time.Millisecond)

	st, err := e.GetState(context.Background())
	require.NoError(t, err)
	assert.False(t, st.ControllerActive)
	// -20 deg/s for ~0.5 s, wrapped to just below 360. Loose lower
	// bound so slow CI schedulers don't flake it.
	assert.Greater(t, st.HeadingDeg, 325.0)
}

func TestEngine_SetWind(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	e.Submit(SetWindCommand{At: time.Now(), SpeedMS: 12, FromDeg: 45})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		st, err := e.GetState(context.Background())
		require.NoError(t, err)
		if st.WindSpeedMS == 12 && st.WindFromDeg == 45 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("wind change not applied")
}

func TestEngine_FlightRecording(t *testing.T) {
	backend := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	flightCtx := flight.NewContext()

	e := startEngine(t, testConfig(), Dependencies{
		Backend:       backend,
		FlightContext: flightCtx,
	})

	e.Submit(StartFlightCommand{At: time.Now(), Name: "rec-test", Tag: "unit"})
	e.Submit(TakeoffCommand{At: time.Now(), TargetAltM: 0.5})
	waitForPhase(t, e, PhaseHover, 3*time.Second)

	require.NotNil(t, flightCtx.Get())
	assert.Equal(t, "rec-test", flightCtx.Get().Name)

	e.Submit(EndFlightCommand{At: time.Now()})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if backend.GetExportedFilePath() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NotEmpty(t, backend.GetExportedFilePath())
	assert.FileExists(t, backend.GetExportedFilePath())
	assert.Nil(t, flightCtx.Get())

	meta := backend.GetExportMetadata()
	assert.Equal(t, "rec-test", meta.FlightName)
	assert.Equal(t, "unit", meta.Tag)
}

func TestEngine_SubscribePublishesTicks(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	ctx := context.Background()
	ch, unsub := e.Subscribe(ctx)
	defer unsub()

	// First frame is the subscription snapshot, then per-tick frames.
	var frames int
	timeout := time.After(2 * time.Second)
	for frames < 5 {
		select {
		case _, ok := <-ch:
			require.True(t, ok)
			frames++
		case <-timeout:
			t.Fatalf("only %d frames received", frames)
		}
	}
}

func TestEngine_SetParams(t *testing.T) {
	e := startEngine(t, testConfig(), Dependencies{})

	newCfg := testConfig().Controller
	newCfg.Direction = weathervane.DirectionOff
	e.Submit(SetParamsCommand{At: time.Now(), Config: newCfg})

	// Invalid params are rejected without replacing the controller.
	bad := testConfig().Controller
	bad.Gain = -5
	e.Submit(SetParamsCommand{At: time.Now(), Config: bad})

	time.Sleep(100 * time.Millisecond)
	_, err := e.GetState(context.Background())
	assert.NoError(t, err)
}
