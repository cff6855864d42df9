package room

import (
	"errors"
	"regexp"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequence returns the given codes in order, repeating the last one.
func sequence(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		c := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return c, nil
	}
}

func TestRegistry_CreateDefaults(t *testing.T) {
	clock := clockwork.NewFakeClock()
	reg := NewRegistry(WithClock(clock))

	r, err := reg.Create()
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9]{6}$`), r.Code)
	assert.Equal(t, DefaultTotalRounds, r.TotalRounds)
	assert.Equal(t, 0, r.RoundNumber)
	assert.False(t, r.IsStarted)
	assert.Nil(t, r.CurrentRound)
	assert.Equal(t, PhaseIdle, r.Phase)
	assert.Equal(t, clock.Now(), r.CreatedAt)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_CreateRetriesOnCollision(t *testing.T) {
	reg := NewRegistry(WithCodeGenerator(sequence("AAAAAA", "AAAAAA", "bbbbbb")))

	first, err := reg.Create()
	require.NoError(t, err)
	second, err := reg.Create()
	require.NoError(t, err)

	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)
	assert.Equal(t, 2, reg.Len())
}

func TestRegistry_CreateGivesUp(t *testing.T) {
	reg := NewRegistry(WithCodeGenerator(sequence("SAME")))
	_, err := reg.Create()
	require.NoError(t, err)

	_, err = reg.Create()
	assert.ErrorIs(t, err, ErrCodeSpaceExhausted)
}

func TestRegistry_CreatePropagatesGeneratorError(t *testing.T) {
	boom := errors.New("entropy gone")
	reg := NewRegistry(WithCodeGenerator(func() (string, error) { return "", boom }))

	_, err := reg.Create()
	assert.ErrorIs(t, err, boom)
}

func TestRegistry_GetIsCaseInsensitive(t *testing.T) {
	reg := NewRegistry(WithCodeGenerator(sequence("AB12CD")))
	r, err := reg.Create()
	require.NoError(t, err)

	got, ok := reg.Get(" ab12cd ")
	require.True(t, ok)
	assert.Same(t, r, got)

	_, ok = reg.Get("ZZZZZZ")
	assert.False(t, ok)
}

func TestRegistry_RemoveOnlyMatchingRoom(t *testing.T) {
	reg := NewRegistry(WithCodeGenerator(sequence("ROOM01")))
	r, err := reg.Create()
	require.NoError(t, err)

	stale := &Room{Code: "ROOM01"}
	assert.False(t, reg.Remove(stale))
	assert.True(t, reg.Holds(r))

	r.Lock()
	assert.True(t, reg.Remove(r))
	r.Unlock()
	assert.True(t, r.Closed())
	assert.False(t, reg.Holds(r))
	_, ok := reg.Get("ROOM01")
	assert.False(t, ok)
}

func TestRegistry_Delete(t *testing.T) {
	reg := NewRegistry(WithCodeGenerator(sequence("DEL001")))
	r, err := reg.Create()
	require.NoError(t, err)

	reg.Delete("del001")
	reg.Delete("missing")

	assert.Equal(t, 0, reg.Len())
	assert.True(t, r.Closed())
}

func TestRegistry_Options(t *testing.T) {
	reg := NewRegistry(WithTotalRounds(3), WithCodeLength(4))
	r, err := reg.Create()
	require.NoError(t, err)

	assert.Len(t, r.Code, 4)
	assert.Equal(t, 3, r.TotalRounds)
	assert.Len(t, reg.Rooms(), 1)
}
