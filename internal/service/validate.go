package service

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const DefaultOllamaURL = "http://localhost:11434"

var allowedSampleRates = []float64{8000, 16000, 22050, 44100, 48000}

// normalizeValue validates a root-level value and returns the form that is
// stored. Keys without rules pass through unchanged.
func normalizeValue(key string, value any) (any, error) {
	switch key {
	case "sample_rate":
		return normalizeSampleRate(value)
	case "silence_duration_sec":
		return clampNumber(key, value, 0.5, 10)
	case "noise_gate_threshold_db":
		return clampNumber(key, value, settings.MinMeterDB, settings.MaxMeterDB)
	case "preview_auto_hide_delay":
		return clampNumber(key, value, 0, 10)
	case "audio_feedback_volume":
		v, err := clampNumber(key, value, 0, 100)
		if err != nil {
			return nil, err
		}

		return math.Trunc(v), nil
	case "ollama_url":
		return normalizeOllamaURL(value), nil
	case "custom_fillers":
		return normalizeWordList(key, value, true)
	case "custom_vocabulary":
		return normalizeWordList(key, value, false)
	case "custom_dictionary":
		return validatePairs(key, value, "from", "to", "Dictionary")
	case "custom_commands":
		return validatePairs(key, value, "trigger", "replacement", "Shortcut")
	case "input_device":
		return normalizeInputDevice(value)
	case "start_with_windows":
		b, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("%s must be a boolean", key)
		}

		return b, nil
	default:
		return value, nil
	}
}

func numberValue(key string, value any) (float64, error) {
	if f, ok := settings.AsFloat(value); ok {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%s must be a finite number", key)
		}

		return f, nil
	}
	if s, ok := value.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f, nil
		}
	}

	return 0, fmt.Errorf("%s must be a number", key)
}

func clampNumber(key string, value any, lo, hi float64) (float64, error) {
	f, err := numberValue(key, value)
	if err != nil {
		return 0, err
	}

	return math.Max(lo, math.Min(hi, f)), nil
}

func normalizeSampleRate(value any) (any, error) {
	f, err := numberValue("sample_rate", value)
	if err != nil {
		return nil, err
	}
	for _, rate := range allowedSampleRates {
		if f == rate {
			return rate, nil
		}
	}

	return nil, fmt.Errorf("sample_rate must be one of 8000, 16000, 22050, 44100, 48000")
}

// normalizeOllamaURL keeps http(s) URLs with a host and falls back to the
// local default for anything else.
func normalizeOllamaURL(value any) string {
	raw, _ := value.(string)
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return DefaultOllamaURL
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return raw
	default:
		return DefaultOllamaURL
	}
}

func normalizeWordList(key string, value any, lower bool) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}
	out := make([]any, 0, len(list))
	seen := make(map[string]bool, len(list))
	for _, item := range list {
		word, ok := item.(string)
		if !ok {
			continue
		}
		word = strings.TrimSpace(word)
		if lower {
			word = strings.ToLower(word)
		}
		if word == "" {
			continue
		}
		if lower {
			if seen[word] {
				continue
			}
			seen[word] = true
		}
		out = append(out, word)
	}

	return out, nil
}

func validatePairs(key string, value any, first, second, label string) ([]any, error) {
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("%s must be an array", key)
	}
	for i, item := range list {
		row, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s entry %d must be an object", label, i)
		}
		_, hasFirst := row[first]
		_, hasSecond := row[second]
		if !hasFirst || !hasSecond {
			return nil, fmt.Errorf("%s entry %d missing '%s' or '%s' keys", label, i, first, second)
		}
		if strings.TrimSpace(fmt.Sprint(row[first])) == "" {
			return nil, fmt.Errorf("%s entry %d has empty '%s' value", label, i, first)
		}
	}

	return list, nil
}

// normalizeInputDevice stores nil for the system default and {"name": id}
// for a specific device.
func normalizeInputDevice(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}

		return map[string]any{"name": v}, nil
	case map[string]any:
		name, _ := v["name"].(string)
		if strings.TrimSpace(name) == "" {
			return nil, nil
		}

		return map[string]any{"name": name}, nil
	default:
		return nil, errors.New("input_device must be a device id or empty")
	}
}

// inputDeviceName extracts the device name from a stored input_device value.
func inputDeviceName(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case map[string]any:
		name, _ := v["name"].(string)

		return name
	default:
		return ""
	}
}
