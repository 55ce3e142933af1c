package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gordonklaus/portaudio"
)

const (
	DefaultSampleRate      = 16000
	DefaultFramesPerBuffer = 1024
)

// PortAudio wraps library init/teardown and exposes device listing and
// metering. It is safe for concurrent use.
type PortAudio struct {
	logger *slog.Logger

	mu    sync.Mutex
	users int
}

func NewPortAudio(logger *slog.Logger) *PortAudio {
	if logger == nil {
		logger = slog.Default().With("component", "audio")
	}

	return &PortAudio{logger: logger}
}

func (p *PortAudio) acquire() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.users == 0 {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("initialize portaudio: %w", err)
		}
	}
	p.users++

	return nil
}

func (p *PortAudio) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users--
	if p.users == 0 {
		if err := portaudio.Terminate(); err != nil {
			p.logger.Warn("terminate portaudio", "error", err)
		}
	}
}

// InputDevices lists the names of devices with at least one input channel.
func (p *PortAudio) InputDevices(context.Context) ([]string, error) {
	if err := p.acquire(); err != nil {
		return nil, err
	}
	defer p.release()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list audio devices: %w", err)
	}
	out := make([]string, 0, len(devices))
	seen := make(map[string]bool, len(devices))
	for _, dev := range devices {
		if dev.MaxInputChannels <= 0 || seen[dev.Name] {
			continue
		}
		seen[dev.Name] = true
		out = append(out, dev.Name)
	}

	return out, nil
}

// Meter reads mono float32 buffers from the named device (empty for the
// system default) until ctx is done, passing each buffer to onBuffer.
func (p *PortAudio) Meter(ctx context.Context, deviceName string, sampleRate int, onBuffer func([]float32)) error {
	if err := p.acquire(); err != nil {
		return err
	}
	defer p.release()

	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	buffer := make([]float32, DefaultFramesPerBuffer)
	stream, err := p.openStream(deviceName, float64(sampleRate), buffer)
	if err != nil {
		return err
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("start audio stream: %w", err)
	}
	defer func() {
		if err := stream.Stop(); err != nil {
			p.logger.Debug("stop audio stream", "error", err)
		}
	}()
	p.logger.Info("metering started", "device", deviceName, "sample_rate", sampleRate)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("metering stopped")

			return nil
		default:
		}
		if err := stream.Read(); err != nil {
			if err == portaudio.InputOverflowed {
				continue
			}

			return fmt.Errorf("read audio stream: %w", err)
		}
		onBuffer(buffer)
	}
}

func (p *PortAudio) openStream(deviceName string, sampleRate float64, buffer []float32) (*portaudio.Stream, error) {
	if deviceName != "" {
		device, err := findInputDevice(deviceName)
		if err != nil {
			p.logger.Warn("input device not found, using default", "device", deviceName, "error", err)
		} else {
			params := portaudio.StreamParameters{
				Input: portaudio.StreamDeviceParameters{
					Device:   device,
					Channels: 1,
					Latency:  device.DefaultLowInputLatency,
				},
				SampleRate:      sampleRate,
				FramesPerBuffer: len(buffer),
			}
			stream, err := portaudio.OpenStream(params, buffer)
			if err != nil {
				return nil, fmt.Errorf("open audio stream on %q: %w", deviceName, err)
			}

			return stream, nil
		}
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, len(buffer), buffer)
	if err != nil {
		return nil, fmt.Errorf("open default audio stream: %w", err)
	}

	return stream, nil
}

func findInputDevice(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	for _, dev := range devices {
		if dev.Name == name && dev.MaxInputChannels > 0 {
			return dev, nil
		}
	}

	return nil, fmt.Errorf("device not found: %s", name)
}
