package conf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile describes how the bridge presents itself as an IRC server
type Profile struct {
	Network            string   `yaml:"network"`
	Welcome            string   `yaml:"welcome"`
	NoticePrefix       string   `yaml:"notice_prefix"`
	ParseModes         []string `yaml:"parse_modes"`
	NickLen            int      `yaml:"nick_len"`
	MultilineBatchType string   `yaml:"multiline_batch_type"`
	WaitingMessage     string   `yaml:"waiting_message"`
}

// DefaultProfile returns the built-in profile
func DefaultProfile() *Profile {
	return &Profile{
		Network:            "Telegram",
		Welcome:            "Welcome to Telegram",
		NoticePrefix:       "Notice: ",
		ParseModes:         []string{"IRC", "HTML", "Markdown"},
		NickLen:            500,
		MultilineBatchType: "draft/multiline",
		WaitingMessage:     "Waiting for PASS with bot token",
	}
}

// LoadProfile loads the server profile from YAML. An empty path searches
// the default locations and falls back to DefaultProfile.
func LoadProfile(configPath string) (*Profile, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/profile.yaml",
			"/etc/ircbridge/profile.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "profile.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read profile: %w", err)
		}
	}

	if data == nil {
		slog.Debug("no profile.yaml found, using defaults", "component", "Config")
		return DefaultProfile(), nil
	}

	slog.Debug("loading profile", "component", "Config", "path", loadedPath)

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}

	profile.fillDefaults()
	return &profile, nil
}

// fillDefaults fills in default values for empty fields
func (p *Profile) fillDefaults() {
	defaults := DefaultProfile()

	if p.Network == "" {
		p.Network = defaults.Network
	}
	if p.Welcome == "" {
		p.Welcome = defaults.Welcome
	}
	if p.NoticePrefix == "" {
		p.NoticePrefix = defaults.NoticePrefix
	}
	if len(p.ParseModes) == 0 {
		p.ParseModes = defaults.ParseModes
	}
	if p.NickLen == 0 {
		p.NickLen = defaults.NickLen
	}
	if p.MultilineBatchType == "" {
		p.MultilineBatchType = defaults.MultilineBatchType
	}
	if p.WaitingMessage == "" {
		p.WaitingMessage = defaults.WaitingMessage
	}
}

// ISupport returns the 005 tokens advertised after NICK
func (p *Profile) ISupport() []string {
	return []string{
		"NETWORK=" + strings.ReplaceAll(p.Network, " ", "_"),
		"CASEMAPPING=ascii",
		"CHANTYPES=#&!+",
		"TPARSEMODE=" + strings.Join(p.ParseModes, ","),
		"NICKLEN=" + strconv.Itoa(p.NickLen),
	}
}
