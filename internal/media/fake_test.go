package media

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeEngine_Create_InvalidURL(t *testing.T) {
	e := NewFakeEngine()

	for _, bad := range []string{"", "not a url", "/relative/path", "cdn.example/v1"} {
		_, err := e.Create(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, "url %q", bad)
	}

	assert.Equal(t, 0, e.CreatedCount(), "no resource allocated for invalid urls")
}

func TestFakeEngine_Create_ValidURL(t *testing.T) {
	e := NewFakeEngine()

	h, err := e.Create("https://cdn.example/v/abc.m3u8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v/abc.m3u8", h.URL())
	assert.Equal(t, 1, e.LiveCount())
}

func TestFakeEngine_FailOn(t *testing.T) {
	e := NewFakeEngine()
	e.FailOn("https://cdn.example/v/refused.m3u8")

	_, err := e.Create("https://cdn.example/v/refused.m3u8")
	require.Error(t, err)

	var ce *CreateError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "https://cdn.example/v/refused.m3u8", ce.URL)
}

func TestFakeHandle_PlayPause(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)

	fh := h.(*FakeHandle)
	assert.False(t, fh.Playing())

	h.Play()
	assert.True(t, fh.Playing())

	h.Pause()
	assert.False(t, fh.Playing())
}

func TestFakeHandle_SeekHeldUntilFinishSeek(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)
	fh := h.(*FakeHandle)

	fh.FireEndOfStream()
	assert.False(t, fh.AtStart())

	completed := false
	h.SeekToStart(func() { completed = true })
	assert.False(t, completed, "seek completion held until FinishSeek")

	fh.FinishSeek()
	assert.True(t, completed)
	assert.True(t, fh.AtStart())
}

func TestFakeHandle_EndOfStreamSubscription(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)
	fh := h.(*FakeHandle)

	fired := 0
	cancel := h.OnEndOfStream(func() { fired++ })

	fh.FireEndOfStream()
	assert.Equal(t, 1, fired)

	cancel()
	fh.FireEndOfStream()
	assert.Equal(t, 1, fired, "no delivery after cancel")

	assert.NotPanics(t, cancel, "cancel is idempotent")
}

func TestFakeHandle_Teardown_Idempotent(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)
	fh := h.(*FakeHandle)

	h.Teardown()
	assert.NotPanics(t, h.Teardown)
	assert.True(t, fh.TornDown())
	assert.Equal(t, 0, e.LiveCount())
}

func TestFakeHandle_Teardown_DropsPendingSeek(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)
	fh := h.(*FakeHandle)

	completed := false
	h.SeekToStart(func() { completed = true })
	h.Teardown()

	fh.FinishSeek()
	assert.False(t, completed, "torn-down handle never invokes seek completion")
}

func TestFakeHandle_Teardown_DropsEndOfStream(t *testing.T) {
	e := NewFakeEngine()
	h, err := e.Create("https://cdn.example/v/a.m3u8")
	require.NoError(t, err)
	fh := h.(*FakeHandle)

	fired := false
	h.OnEndOfStream(func() { fired = true })
	h.Teardown()

	fh.FireEndOfStream()
	assert.False(t, fired)
}
