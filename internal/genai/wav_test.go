package genai

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPcmSampleRate(t *testing.T) {
	cases := []struct {
		mime string
		rate int
		ok   bool
	}{
		{"audio/L16;codec=pcm;rate=24000", 24000, true},
		{"audio/L16; rate=16000", 16000, true},
		{"audio/L16", 24000, true}, // default rate
		{"audio/wav", 0, false},
		{"audio/mpeg", 0, false},
	}
	for _, tc := range cases {
		rate, ok := pcmSampleRate(tc.mime)
		assert.Equal(t, tc.ok, ok, tc.mime)
		if tc.ok {
			assert.Equal(t, tc.rate, rate, tc.mime)
		}
	}
}

func TestWavFromPCM(t *testing.T) {
	pcm := make([]byte, 480)
	wav := wavFromPCM(pcm, 24000)

	require.Len(t, wav, 44+len(pcm))
	assert.Equal(t, "RIFF", string(wav[0:4]))
	assert.Equal(t, "WAVE", string(wav[8:12]))
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(wav[24:28]))
	assert.Equal(t, uint32(len(pcm)), binary.LittleEndian.Uint32(wav[40:44]))
}
