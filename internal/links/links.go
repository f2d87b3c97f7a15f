// Package links derives the artifact download links for a build.
package links

import (
	"fmt"
	"net/url"
)

// DownloadLink is a download URL and the name its artifact is saved under.
type DownloadLink struct {
	URL      string
	Filename string
}

// UnsupportedPlatformError is returned for platforms without an artifact table.
type UnsupportedPlatformError struct {
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("unexpected platform: %s", e.Platform)
}

var suffixes = map[string][]string{
	"windows":    {".exe", ".msi"},
	"windows-86": {".exe"},
	"linux": {
		"-x86_64.deb",
		"-x86_64.rpm",
		"-suse-x86_64.rpm",
		"-x86_64.pkg.tar.zst",
		"-aarch64.deb",
		"-aarch64.rpm",
		"-suse-aarch64.rpm",
		"-aarch64.pkg.tar.zst",
		"-x86_64.AppImage",
		"-aarch64.AppImage",
		"-x86_64.flatpak",
		"-aarch64.flatpak",
	},
	"android": {"-aarch64.apk", "-x86_64.apk", "-armv7.apk"},
	"macos":   {"-x86_64.dmg", "-aarch64.dmg"},
}

var platforms = []string{"windows", "windows-86", "linux", "android", "macos"}

// Platforms returns the supported platform identifiers in a stable order.
func Platforms() []string {
	return append([]string(nil), platforms...)
}

// Suffixes returns the artifact suffixes produced for platform.
func Suffixes(platform string) ([]string, error) {
	s, ok := suffixes[platform]
	if !ok {
		return nil, &UnsupportedPlatformError{Platform: platform}
	}
	return append([]string(nil), s...), nil
}

// Build returns the ordered download links for one build. The result has the
// shape {base}/download?filename={filename}{suffix}&uuid={uuid}.
func Build(baseURL, filename, platform, uuid string) ([]DownloadLink, error) {
	sfx, err := Suffixes(platform)
	if err != nil {
		return nil, err
	}

	out := make([]DownloadLink, 0, len(sfx))
	for _, s := range sfx {
		name := filename + s
		out = append(out, DownloadLink{
			URL:      fmt.Sprintf("%s/download?filename=%s&uuid=%s", baseURL, url.QueryEscape(name), url.QueryEscape(uuid)),
			Filename: name,
		})
	}
	return out, nil
}

// FilenameFromURL returns the filename query parameter of a download URL.
func FilenameFromURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse download url: %w", err)
	}
	name := u.Query().Get("filename")
	if name == "" {
		return "", fmt.Errorf("download url %q has no filename parameter", rawURL)
	}
	return name, nil
}
