package audio

import (
	"bytes"
	"testing"
)

func TestSamplesToPCM_LittleEndian(t *testing.T) {
	got := samplesToPCM([]int16{1, -1, 32767, -32768})
	want := []byte{0x01, 0x00, 0xff, 0xff, 0xff, 0x7f, 0x00, 0x80}
	if !bytes.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestPCMToSamples(t *testing.T) {
	tests := []struct {
		name  string
		pcm   []byte
		dst   int
		wantN int
		want  []int16
	}{
		{name: "exact", pcm: []byte{0x01, 0x00, 0xff, 0xff}, dst: 2, wantN: 2, want: []int16{1, -1}},
		{name: "odd trailing byte", pcm: []byte{0x02, 0x00, 0x05}, dst: 2, wantN: 1, want: []int16{2, 0}},
		{name: "destination too small", pcm: []byte{0x01, 0x00, 0x02, 0x00}, dst: 1, wantN: 1, want: []int16{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]int16, tt.dst)
			n := pcmToSamples(dst, tt.pcm)
			if n != tt.wantN {
				t.Fatalf("expected %d samples, got %d", tt.wantN, n)
			}
			for i := range tt.want {
				if dst[i] != tt.want[i] {
					t.Fatalf("sample %d: expected %d, got %d", i, tt.want[i], dst[i])
				}
			}
		})
	}
}
