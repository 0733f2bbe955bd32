package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"voice-events-go/internal/logger"
)

// Recording format mirrors a typical voice-note capture: mono 16-bit PCM
// at 44.1kHz, read in 1024-frame buffers.
const (
	SampleRate = 44100
	Channels   = 1
	BitDepth   = 16
	chunkSize  = 1024
)

// Clip is one recorded voice note on disk. It is consumed exactly once by
// transcription and removed by the pipeline afterwards.
type Clip struct {
	Path       string
	SampleRate int
	Channels   int
	BitDepth   int
}

// Remove deletes the underlying file.
func (c Clip) Remove() error {
	return os.Remove(c.Path)
}

// Device opens a raw PCM capture stream (signed 16-bit little-endian, mono,
// 44.1kHz). The stream stays open for the duration of one recording.
type Device interface {
	Open() (io.ReadCloser, error)
}

// Recorder captures microphone input into temporary WAV files.
type Recorder struct {
	dev Device
	log *logger.Logger
}

func NewRecorder(dev Device, log *logger.Logger) *Recorder {
	return &Recorder{dev: dev, log: log}
}

// Record captures audio into a temp WAV file and returns the clip. A positive
// duration records for that long; otherwise recording continues until stop is
// closed. The stop signal is observed between buffer reads, so the recording
// ends within one chunk of the request. The device stream is closed before
// this returns.
func (r *Recorder) Record(ctx context.Context, duration time.Duration, stop <-chan struct{}) (Clip, error) {
	stream, err := r.dev.Open()
	if err != nil {
		return Clip{}, fmt.Errorf("open audio device: %w", err)
	}
	defer stream.Close()

	bytesPerChunk := chunkSize * Channels * BitDepth / 8
	buf := make([]byte, bytesPerChunk)
	var frames bytes.Buffer

	if duration > 0 {
		chunks := int(duration.Seconds() * SampleRate / chunkSize)
		for i := 0; i < chunks; i++ {
			if err := ctx.Err(); err != nil {
				return Clip{}, err
			}
			n, err := io.ReadFull(stream, buf)
			frames.Write(buf[:n])
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			if err != nil {
				return Clip{}, fmt.Errorf("read audio device: %w", err)
			}
		}
	} else {
	capture:
		for {
			select {
			case <-stop:
				break capture
			case <-ctx.Done():
				return Clip{}, ctx.Err()
			default:
			}
			n, err := io.ReadFull(stream, buf)
			frames.Write(buf[:n])
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			if err != nil {
				return Clip{}, fmt.Errorf("read audio device: %w", err)
			}
		}
	}

	f, err := os.CreateTemp("", "voice-note-*.wav")
	if err != nil {
		return Clip{}, fmt.Errorf("create temp file: %w", err)
	}
	if err := writeWAV(f, frames.Bytes(), SampleRate, Channels, BitDepth); err != nil {
		f.Close()
		os.Remove(f.Name())
		return Clip{}, fmt.Errorf("write wav: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return Clip{}, fmt.Errorf("close wav: %w", err)
	}

	clip := Clip{Path: f.Name(), SampleRate: SampleRate, Channels: Channels, BitDepth: BitDepth}
	r.log.WithField("path", clip.Path).WithField("bytes", frames.Len()).Info("recording saved")
	return clip, nil
}
