package anonymize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	out, err := r.Redact(context.Background(), "Send it to jane.doe+work@example.co.uk please")
	require.NoError(t, err)
	assert.Equal(t, "Send it to [email] please", out)
}

func TestRedactPhone(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	cases := map[string]string{
		"Call me at +1 (555) 123-4567 tomorrow": "Call me at [phone] tomorrow",
		"My number is 0171 555 0123":            "My number is [phone]",
	}
	for in, want := range cases {
		out, err := r.Redact(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	}
}

func TestRedactNames(t *testing.T) {
	r, err := New([]string{"Jane Doe", "bob"})
	require.NoError(t, err)

	out, err := r.Redact(context.Background(), "Jane Doe told BOB about the plan")
	require.NoError(t, err)
	assert.Equal(t, "[name] told [name] about the plan", out)
}

func TestRedactNamesRespectWordBoundaries(t *testing.T) {
	r, err := New([]string{"bob"})
	require.NoError(t, err)

	out, err := r.Redact(context.Background(), "the bobsled team met bob")
	require.NoError(t, err)
	assert.Equal(t, "the bobsled team met [name]", out)
}

func TestRedactPlainTextUnchanged(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	out, err := r.Redact(context.Background(), "nothing sensitive here")
	require.NoError(t, err)
	assert.Equal(t, "nothing sensitive here", out)
}

func TestRedactCancelledContext(t *testing.T) {
	r, err := New(nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Redact(ctx, "anything")
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewSkipsBlankNames(t *testing.T) {
	r, err := New([]string{"  ", ""})
	require.NoError(t, err)

	out, err := r.Redact(context.Background(), "unchanged")
	require.NoError(t, err)
	assert.Equal(t, "unchanged", out)
}
