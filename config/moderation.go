package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"twitch-chat-guard/classifier"
	"twitch-chat-guard/moderation"
)

// Moderation — правила модерации из YAML файла.
type Moderation struct {
	Classifier classifier.Config
	Settings   moderation.Settings
}

type moderationFile struct {
	Blacklist      []string            `yaml:"blacklist"`
	BlockAllLinks  bool                `yaml:"block_all_links"`
	AllowedDomains *[]string           `yaml:"allowed_domains"`
	Actions        moderation.Settings `yaml:"actions"`
}

// LoadModeration читает правила из файла. Пустой путь означает правила по умолчанию.
// Без allowed_domains действуют домены по умолчанию; явный пустой список
// означает, что разрешённых доменов нет.
func LoadModeration(path string) (Moderation, error) {
	if path == "" {
		return Moderation{Classifier: classifier.DefaultConfig(), Settings: moderation.DefaultSettings()}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Moderation{}, fmt.Errorf("load moderation: read file: %w", err)
	}

	file := moderationFile{Actions: moderation.DefaultSettings()}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Moderation{}, fmt.Errorf("load moderation: decode yaml: %w", err)
	}

	allowed := classifier.DefaultAllowedDomains
	if file.AllowedDomains != nil {
		allowed = *file.AllowedDomains
	}

	return Moderation{
		Classifier: classifier.NewConfig(file.Blacklist, file.BlockAllLinks, allowed),
		Settings:   file.Actions,
	}, nil
}
