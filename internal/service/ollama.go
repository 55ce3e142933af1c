package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const ollamaProbeTimeout = 5 * time.Second

// runOllamaTest lists the models of an Ollama server. An unreachable server
// is a successful run with connected=false.
func (s *Service) runOllamaTest(ctx context.Context, args settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	raw, _ := args["url"].(string)
	if strings.TrimSpace(raw) == "" {
		tree, err := s.current(ctx)
		if err != nil {
			return nil, err
		}
		raw, _ = tree["ollama_url"].(string)
	}
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	base, err := url.Parse(raw)
	if err != nil || base.Host == "" || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, fmt.Errorf("invalid Ollama URL: %q", raw)
	}

	listener.OnProgress(0, "Connecting to "+raw+"...")
	probeCtx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	resp, err := api.NewClient(base, s.client).List(probeCtx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Info("ollama not reachable", "url", raw, "error", err)

		return settings.TaskResult{"connected": false, "url": raw, "error": err.Error()}, nil
	}

	models := make([]any, 0, len(resp.Models))
	for _, m := range resp.Models {
		models = append(models, m.Name)
	}
	listener.OnProgress(100, fmt.Sprintf("Connected, %d models available", len(models)))

	return settings.TaskResult{"connected": true, "url": raw, "models": models}, nil
}
