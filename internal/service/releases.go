package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const releaseRequestTimeout = 15 * time.Second

// ReleaseInfo describes one published release.
type ReleaseInfo struct {
	Version     string
	Body        string
	HTMLURL     string
	DownloadURL string
	PublishedAt time.Time
}

type githubRelease struct {
	TagName     string    `json:"tag_name"`
	Body        string    `json:"body"`
	HTMLURL     string    `json:"html_url"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []struct {
		Name               string `json:"name"`
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (s *Service) runCheckUpdates(ctx context.Context, _ settings.TaskArgs, listener settings.TaskListener) (settings.TaskResult, error) {
	endpoint := strings.TrimSpace(s.opts.ReleaseFeedURL)
	if endpoint == "" {
		return nil, errors.New("release feed is not configured")
	}
	listener.OnProgress(0, "Checking for updates...")

	releases, err := s.fetchReleases(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return nil, errors.New("release feed is empty")
	}

	latest := releases[0]
	current := strings.TrimSpace(s.opts.CurrentVersion)
	available := isReleaseNewer(current, latest.Version)
	s.logger.Info("update check completed",
		"current_version", current,
		"latest_version", latest.Version,
		"update_available", available,
	)
	listener.OnProgress(100, "Done")

	return settings.TaskResult{
		"update_available": available,
		"latest_version":   latest.Version,
		"current_version":  current,
		"download_url":     latest.DownloadURL,
		"release_notes":    latest.Body,
	}, nil
}

// fetchReleases returns published non-draft, non-prerelease releases in
// feed order.
func (s *Service) fetchReleases(ctx context.Context, endpoint string) ([]ReleaseInfo, error) {
	reqCtx, cancel := context.WithTimeout(ctx, releaseRequestTimeout)
	defer cancel()

	req, err := s.newRequest(reqCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("create releases request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request releases: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		trimmedBody := strings.TrimSpace(string(body))
		if trimmedBody == "" {
			return nil, fmt.Errorf("request releases: unexpected status %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("request releases: unexpected status %d: %s", resp.StatusCode, trimmedBody)
	}

	var payload []githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode releases response: %w", err)
	}

	releases := make([]ReleaseInfo, 0, len(payload))
	for _, item := range payload {
		version := strings.TrimSpace(item.TagName)
		if version == "" || item.Draft || item.Prerelease {
			continue
		}
		releases = append(releases, ReleaseInfo{
			Version:     version,
			Body:        strings.TrimSpace(item.Body),
			HTMLURL:     strings.TrimSpace(item.HTMLURL),
			DownloadURL: installerURL(item),
			PublishedAt: item.PublishedAt,
		})
	}

	return releases, nil
}

// installerURL prefers a Windows installer asset and falls back to the
// release page.
func installerURL(release githubRelease) string {
	for _, asset := range release.Assets {
		name := strings.ToLower(asset.Name)
		if strings.HasSuffix(name, ".exe") || strings.HasSuffix(name, ".msi") {
			return strings.TrimSpace(asset.BrowserDownloadURL)
		}
	}

	return strings.TrimSpace(release.HTMLURL)
}

func isReleaseNewer(currentVersion string, latestVersion string) bool {
	current := normalizeSemver(currentVersion)
	latest := normalizeSemver(latestVersion)

	if !semver.IsValid(latest) {
		return false
	}
	if !semver.IsValid(current) {
		return true
	}

	return semver.Compare(current, latest) < 0
}

func normalizeSemver(version string) string {
	trimmed := strings.TrimSpace(version)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "v") {
		return "v" + trimmed
	}

	return trimmed
}
