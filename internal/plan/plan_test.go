package plan

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/rajasatyajit/apikey-authorizer/internal/errors"
)

func TestParseStep(t *testing.T) {
	tests := []struct {
		text string
		want Step
	}{
		{"authorization:bearer(plain)", BearerStep{Encoding: EncodingPlain}},
		{"authorization:bearer(base64)", BearerStep{Encoding: EncodingBase64}},
		{" authorization:bearer(plain) ", BearerStep{Encoding: EncodingPlain}},
		{"header:X-Api-Key()", HeaderStep{Name: "X-Api-Key"}},
		{"header:x()", HeaderStep{Name: "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := ParseStep(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestParseStepUnrecognized(t *testing.T) {
	for _, text := range []string{
		"authorization:bearer(hex)",
		"authorization:bearer",
		"header:()",
		"header:X-Api-Key",
		"query:api_key()",
		"",
	} {
		_, err := ParseStep(text)
		assert.ErrorIs(t, err, ErrUnrecognizedStep, "text %q", text)
	}
}

func TestBearerStep(t *testing.T) {
	plain := BearerStep{Encoding: EncodingPlain}
	b64 := BearerStep{Encoding: EncodingBase64}

	tests := []struct {
		name      string
		step      BearerStep
		headers   map[string]string
		want      string
		wantFound bool
	}{
		{"absent", plain, map[string]string{}, "", false},
		{"bearer", plain, map[string]string{"authorization": "bearer hello"}, "hello", true},
		{"mixed case scheme", plain, map[string]string{"Authorization": "Bearer hello"}, "hello", true},
		{"not bearer", plain, map[string]string{"authorization": "foobar hello"}, "", false},
		{"single part", plain, map[string]string{"authorization": "hello"}, "", false},
		{"empty token", plain, map[string]string{"authorization": "bearer "}, "", false},
		{"token keeps remaining spaces", plain, map[string]string{"authorization": "bearer a b"}, "a b", true},
		{"comma truncates header first", plain, map[string]string{"authorization": "bearer a,b"}, "a", true},
		{"base64", b64, map[string]string{"authorization": "bearer aGVsbG8="}, "hello", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found, err := tt.step.Extract(tt.headers)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBearerStepInvalidBase64(t *testing.T) {
	step := BearerStep{Encoding: EncodingBase64}

	_, _, err := step.Extract(map[string]string{"authorization": "bearer not-base64!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidBearerEncoding)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	// 0xff is not valid UTF-8
	_, _, err = step.Extract(map[string]string{"authorization": "bearer /w=="})
	assert.ErrorIs(t, err, ErrInvalidBearerEncoding)
}

func TestHeaderStep(t *testing.T) {
	step := HeaderStep{Name: "X-Api-Key"}

	got, found, err := step.Extract(map[string]string{"x-api-key": "k1,k2"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "k1", got)

	_, found, err = step.Extract(map[string]string{"x-other": "v"})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPlanOrdering(t *testing.T) {
	p := Parse([]string{"authorization:bearer(plain)", "header:X()"})
	require.Len(t, p.Steps(), 2)

	both := map[string]string{"authorization": "bearer from-auth", "x": "from-header"}
	got, found, err := p.Evaluate(both)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-auth", got)

	onlyHeader := map[string]string{"X": "from-header"}
	got, found, err = p.Evaluate(onlyHeader)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "from-header", got)

	_, found, err = p.Evaluate(map[string]string{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPlanSkipsUnrecognizedSteps(t *testing.T) {
	p := Parse([]string{"cookie:session()", "", "header:X-Api-Key()"})
	require.Len(t, p.Steps(), 1)

	got, found, err := p.Evaluate(map[string]string{"X-Api-Key": "secret"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "secret", got)
}

func TestPlanShortCircuits(t *testing.T) {
	calls := 0
	counting := stepFunc(func(map[string]string) (string, bool, error) {
		calls++
		return "", false, nil
	})
	p := New(HeaderStep{Name: "x"}, counting)

	_, found, err := p.Evaluate(map[string]string{"x": "v"})
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0, calls, "later steps must not run after a match")
}

func TestPlanPropagatesDecodeFailure(t *testing.T) {
	p := Parse([]string{"authorization:bearer(base64)", "header:x()"})

	_, _, err := p.Evaluate(map[string]string{"authorization": "bearer %%%", "x": "fallback"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidBearerEncoding))
}

type stepFunc func(map[string]string) (string, bool, error)

func (f stepFunc) Extract(h map[string]string) (string, bool, error) { return f(h) }
func (f stepFunc) String() string                                    { return "func" }
