package themes

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nobelvoices/laureate-rag/internal/core/domain"
)

type lexiconFile struct {
	Themes map[string][]string `yaml:"themes"`
}

// Lexicon is a YAML-backed theme-to-keywords mapping. Reads are lock-free
// on the snapshot; Reload parses the file and swaps the whole snapshot so
// concurrent readers never see a partial update.
type Lexicon struct {
	path string

	mu       sync.RWMutex
	themes   map[string][]string
	keywords []string
}

func NewLexicon(path string) (*Lexicon, error) {
	l := &Lexicon{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Lexicon) Reload() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("read theme lexicon %s: %w", l.path, err)
	}

	var file lexiconFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "parse theme lexicon", err)
	}
	themes, keywords, err := normalize(file.Themes)
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "parse theme lexicon", err)
	}

	l.mu.Lock()
	l.themes = themes
	l.keywords = keywords
	l.mu.Unlock()
	return nil
}

func (l *Lexicon) Themes() map[string][]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.themes
}

func (l *Lexicon) Keywords() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.keywords
}

func normalize(raw map[string][]string) (map[string][]string, []string, error) {
	if len(raw) == 0 {
		return nil, nil, errors.New("no themes defined")
	}

	themes := make(map[string][]string, len(raw))
	seen := make(map[string]struct{})
	for theme, keywords := range raw {
		theme = strings.ToLower(strings.TrimSpace(theme))
		if theme == "" {
			return nil, nil, errors.New("empty theme name")
		}
		if len(keywords) == 0 {
			return nil, nil, fmt.Errorf("theme %q has no keywords", theme)
		}
		cleaned := make([]string, 0, len(keywords))
		for _, keyword := range keywords {
			keyword = strings.ToLower(strings.TrimSpace(keyword))
			if keyword == "" {
				continue
			}
			cleaned = append(cleaned, keyword)
			seen[keyword] = struct{}{}
		}
		if len(cleaned) == 0 {
			return nil, nil, fmt.Errorf("theme %q has no usable keywords", theme)
		}
		sort.Strings(cleaned)
		themes[theme] = cleaned
	}

	keywords := make([]string, 0, len(seen))
	for keyword := range seen {
		keywords = append(keywords, keyword)
	}
	sort.Strings(keywords)
	return themes, keywords, nil
}
