package audio

import (
	"encoding/binary"
	"io"
)

// writeWAV wraps raw PCM in a RIFF/WAVE container with a single PCM fmt
// chunk followed by the data chunk.
func writeWAV(w io.Writer, pcm []byte, sampleRate, channels, bitDepth int) error {
	blockAlign := channels * bitDepth / 8
	byteRate := sampleRate * blockAlign

	var header struct {
		RIFF      [4]byte
		ChunkSize uint32
		WAVE      [4]byte
		Fmt       [4]byte
		FmtSize   uint32
		Format    uint16
		Channels  uint16
		Rate      uint32
		ByteRate  uint32
		Align     uint16
		Bits      uint16
		Data      [4]byte
		DataSize  uint32
	}
	copy(header.RIFF[:], "RIFF")
	header.ChunkSize = uint32(36 + len(pcm))
	copy(header.WAVE[:], "WAVE")
	copy(header.Fmt[:], "fmt ")
	header.FmtSize = 16
	header.Format = 1 // PCM
	header.Channels = uint16(channels)
	header.Rate = uint32(sampleRate)
	header.ByteRate = uint32(byteRate)
	header.Align = uint16(blockAlign)
	header.Bits = uint16(bitDepth)
	copy(header.Data[:], "data")
	header.DataSize = uint32(len(pcm))

	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
