package audio

import "encoding/binary"

// samplesToPCM encodes interleaved 16-bit samples as little-endian bytes.
func samplesToPCM(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, v := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(v))
	}
	return buf
}

// pcmToSamples decodes little-endian 16-bit PCM into dst and returns the number of
// samples written. A trailing odd byte is ignored.
func pcmToSamples(dst []int16, pcm []byte) int {
	n := len(pcm) / 2
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		dst[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return n
}
