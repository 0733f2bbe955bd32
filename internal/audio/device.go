package audio

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"
)

// FFmpegDevice captures raw PCM from a microphone by shelling out to ffmpeg,
// which handles the per-platform capture backends. Output is s16le mono at
// the package sample rate, streamed over stdout.
type FFmpegDevice struct {
	// Format is the ffmpeg input format (pulse, alsa, avfoundation, dshow).
	// Empty picks a platform default.
	Format string
	// Input is the device name understood by the format, e.g. "default".
	Input string
}

func (d *FFmpegDevice) Open() (io.ReadCloser, error) {
	format := d.Format
	if format == "" {
		switch runtime.GOOS {
		case "darwin":
			format = "avfoundation"
		case "windows":
			format = "dshow"
		default:
			format = "pulse"
		}
	}
	input := d.Input
	if input == "" {
		input = "default"
		if format == "avfoundation" {
			input = ":0"
		}
	}

	cmd := exec.Command("ffmpeg",
		"-loglevel", "quiet",
		"-f", format, "-i", input,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-f", "s16le", "-",
	)
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg start: %w", err)
	}
	return &captureStream{cmd: cmd, out: out}, nil
}

type captureStream struct {
	cmd *exec.Cmd
	out io.ReadCloser
}

func (s *captureStream) Read(p []byte) (int, error) {
	return s.out.Read(p)
}

func (s *captureStream) Close() error {
	s.out.Close()
	if s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.cmd.Wait()
	return nil
}
