package weathervane

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/m4a3/weathervane/internal/weathervane"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
