package sim

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m4a3/weathervane/internal/dispatcher"
)

func newHandlerFixture(t *testing.T) *dispatcher.Dispatcher {
	t.Helper()

	e, err := New(testConfig(), Dependencies{Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)

	d, err := dispatcher.New(slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	e.RegisterHandlers(d)
	return d
}

func TestRegisterHandlers_AllCommandsWired(t *testing.T) {
	d := newHandlerFixture(t)

	for _, cmd := range []string{
		dispatcher.CmdTakeoff,
		dispatcher.CmdLand,
		dispatcher.CmdPilotYaw,
		dispatcher.CmdRelax,
		dispatcher.CmdSetWind,
		dispatcher.CmdSetParams,
		dispatcher.CmdStartFlight,
		dispatcher.CmdEndFlight,
	} {
		assert.True(t, d.HasHandler(cmd), "missing handler for %s", cmd)
	}
}

func TestHandlers_PilotYawRequiresRate(t *testing.T) {
	d := newHandlerFixture(t)

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdPilotYaw})
	assert.Error(t, err)

	res, err := d.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdPilotYaw,
		Payload: map[string]any{"rateCds": 1500.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", res)
}

func TestHandlers_SetWindRequiresSpeed(t *testing.T) {
	d := newHandlerFixture(t)

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdSetWind})
	assert.Error(t, err)

	_, err = d.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdSetWind,
		Payload: map[string]any{"speedMS": 6.0, "fromDeg": 180.0},
	})
	assert.NoError(t, err)
}

func TestHandlers_SetParamsValidation(t *testing.T) {
	d := newHandlerFixture(t)

	_, err := d.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdSetParams,
		Payload: map[string]any{"direction": "sideways"},
	})
	assert.Error(t, err)

	_, err = d.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdSetParams,
		Payload: map[string]any{"direction": "side_in", "gain": 0.8},
	})
	assert.NoError(t, err)
}

func TestHandlers_StartFlightRequiresName(t *testing.T) {
	d := newHandlerFixture(t)

	_, err := d.Dispatch(dispatcher.Event{Command: dispatcher.CmdStartFlight})
	assert.Error(t, err)

	_, err = d.Dispatch(dispatcher.Event{
		Command: dispatcher.CmdStartFlight,
		Payload: map[string]any{"name": "morning-hover"},
	})
	assert.NoError(t, err)
}
