package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineMeters(t *testing.T) {
	// Same point.
	assert.InDelta(t, 0, HaversineMeters(77.0, 12.9, 77.0, 12.9), 0.001)

	// One degree of latitude is roughly 111.2km everywhere.
	d := HaversineMeters(77.0, 12.0, 77.0, 13.0)
	assert.InDelta(t, 111200, d, 1000)

	// Bangalore MG Road to Whitefield, roughly 13.5km as the crow flies.
	d = HaversineMeters(77.6190, 12.9757, 77.7500, 12.9698)
	assert.InDelta(t, 14200, d, 1000)

	// Symmetry.
	assert.InDelta(t,
		HaversineMeters(77.0, 12.9, 78.0, 13.5),
		HaversineMeters(78.0, 13.5, 77.0, 12.9),
		0.001,
	)
}
