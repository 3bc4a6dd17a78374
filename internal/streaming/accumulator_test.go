package streaming

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAccumulator(t *testing.T) {
	var a Accumulator
	a.Apply(TextDelta("Hel"))
	a.Apply(TextDelta("lo"))
	a.Apply(ErrorDelta(errors.New("ignored")))
	a.Apply(DoneDelta())
	require.Equal(t, "Hello", a.String())
	require.Equal(t, 5, a.Len())
	require.False(t, a.Replaced())

	a.Apply(FinalDelta("Hello, world"))
	require.Equal(t, "Hello, world", a.String())
	require.True(t, a.Replaced())
}
