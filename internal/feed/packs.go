package feed

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"dailybrief/internal/model"
)

//go:embed packs.yaml
var packsYAML []byte

// Pack is a pre-configured bundle of weighted feeds sharing a language and
// category.
type Pack struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Language    string     `yaml:"language"`
	Category    string     `yaml:"category"`
	Topics      []string   `yaml:"topics"`
	Feeds       []PackFeed `yaml:"feeds"`
}

type PackFeed struct {
	Name   string  `yaml:"name"`
	URL    string  `yaml:"url"`
	Weight float64 `yaml:"weight"`
}

type packsFile struct {
	Packs []Pack `yaml:"packs"`
}

var (
	packsOnce sync.Once
	packsByID map[string]Pack
	packsErr  error
)

func loadPacks() {
	var f packsFile
	if err := yaml.Unmarshal(packsYAML, &f); err != nil {
		packsErr = fmt.Errorf("parse embedded content packs: %w", err)
		return
	}
	packsByID = make(map[string]Pack, len(f.Packs))
	for _, p := range f.Packs {
		packsByID[p.ID] = p
	}
}

// Packs returns all built-in content packs keyed by id.
func Packs() (map[string]Pack, error) {
	packsOnce.Do(loadPacks)
	return packsByID, packsErr
}

// SourcesFromPacks expands pack ids into transient content sources. Unknown
// ids are skipped; the caller decides whether an empty result is fatal.
func SourcesFromPacks(packIDs []string) ([]model.ContentSource, error) {
	packs, err := Packs()
	if err != nil {
		return nil, err
	}

	var sources []model.ContentSource
	for _, id := range packIDs {
		pack, ok := packs[id]
		if !ok {
			continue
		}
		for _, f := range pack.Feeds {
			weight := f.Weight
			if weight == 0 {
				weight = 1.0
			}
			sources = append(sources, model.ContentSource{
				Name:     f.Name,
				URL:      f.URL,
				Category: pack.Category,
				Language: pack.Language,
				Enabled:  true,
				Weight:   weight,
			})
		}
	}
	return sources, nil
}

// CustomFeedsConfig is the YAML shape for user-supplied ad-hoc feeds.
//
// feeds:
//   - name: My Blog
//     url: https://example.org/feed.xml
//     language: en
//     weight: 1.0
type CustomFeedsConfig struct {
	Feeds []struct {
		Name     string  `yaml:"name"`
		URL      string  `yaml:"url"`
		Category string  `yaml:"category"`
		Language string  `yaml:"language"`
		Weight   float64 `yaml:"weight"`
	} `yaml:"feeds"`
}

// ParseCustomFeeds converts a custom feeds YAML document into transient
// content sources.
func ParseCustomFeeds(raw []byte) ([]model.ContentSource, error) {
	var cfg CustomFeedsConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse custom feeds: %w", err)
	}

	sources := make([]model.ContentSource, 0, len(cfg.Feeds))
	for _, f := range cfg.Feeds {
		if f.URL == "" {
			continue
		}
		name := f.Name
		if name == "" {
			name = "Custom Feed"
		}
		category := f.Category
		if category == "" {
			category = "general"
		}
		lang := f.Language
		if lang == "" {
			lang = "en"
		}
		weight := f.Weight
		if weight == 0 {
			weight = 1.0
		}
		sources = append(sources, model.ContentSource{
			Name:     name,
			URL:      f.URL,
			Category: category,
			Language: lang,
			Enabled:  true,
			Weight:   weight,
		})
	}
	return sources, nil
}
