package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	point := Point{Lat: -6.2, Lon: 106.8}

	distance, err := Distance(point, point)
	require.NoError(t, err)
	require.Zero(t, distance)
}

func TestDistanceIsSymmetric(t *testing.T) {
	a := Point{Lat: -6.2, Lon: 106.8}
	b := Point{Lat: -6.9, Lon: 107.6}

	forward, err := Distance(a, b)
	require.NoError(t, err)
	backward, err := Distance(b, a)
	require.NoError(t, err)
	require.InDelta(t, forward, backward, 1e-9)
}

func TestDistanceOneDegreeLatitude(t *testing.T) {
	a := Point{Lat: 0, Lon: 0}
	b := Point{Lat: 1, Lon: 0}

	distance, err := Distance(a, b)
	require.NoError(t, err)
	// One degree of latitude is roughly 111.2 km on the mean Earth radius.
	require.InDelta(t, 111195, distance, 100)
}

func TestDistanceRejectsInvalidCoordinates(t *testing.T) {
	cases := []struct {
		name  string
		point Point
	}{
		{"latitude above range", Point{Lat: 90.1, Lon: 0}},
		{"latitude below range", Point{Lat: -90.1, Lon: 0}},
		{"longitude above range", Point{Lat: 0, Lon: 180.1}},
		{"longitude below range", Point{Lat: 0, Lon: -180.1}},
		{"nan latitude", Point{Lat: math.NaN(), Lon: 0}},
		{"nan longitude", Point{Lat: 0, Lon: math.NaN()}},
	}

	valid := Point{Lat: 0, Lon: 0}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Distance(tc.point, valid)
			require.ErrorIs(t, err, ErrInvalidCoordinate)

			_, err = Distance(valid, tc.point)
			require.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestWithinRadiusBoundaryIsInside(t *testing.T) {
	center := Point{Lat: 0, Lon: 0}
	point := Point{Lat: 0, Lon: 0.001}

	distance, err := Distance(point, center)
	require.NoError(t, err)

	within, reported, err := WithinRadius(point, center, distance)
	require.NoError(t, err)
	require.True(t, within)
	require.InDelta(t, distance, reported, 1e-9)

	within, _, err = WithinRadius(point, center, distance-1)
	require.NoError(t, err)
	require.False(t, within)
}

func TestWithinRadiusPropagatesValidationErrors(t *testing.T) {
	_, _, err := WithinRadius(Point{Lat: 200, Lon: 0}, Point{}, 100)
	require.ErrorIs(t, err, ErrInvalidCoordinate)
}
