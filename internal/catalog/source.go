package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lex-dialog/internal/integrations/paramstore"
)

// ErrBotNotFound is returned by a Source that has no definition for a bot
// alias.
var ErrBotNotFound = errors.New("catalog: bot not found")

// Source loads the definition of one bot alias.
type Source interface {
	Load(ctx context.Context, bot, alias string) (*Bot, error)
}

// Enumerator is implemented by sources that can list every definition they
// hold. Catalog.Warm preloads from it.
type Enumerator interface {
	All(ctx context.Context) ([]*Bot, error)
}

// DirSource serves definitions parsed from the *.yaml, *.yml and *.json files
// of a directory. Files are read once, when the source is created.
type DirSource struct {
	bots map[string]*Bot
}

func NewDirSource(dir string) (*DirSource, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("catalog: directory is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("catalog: read dir %s: %w", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	src := &DirSource{bots: make(map[string]*Bot, len(names))}
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("catalog: read %s: %w", name, err)
		}
		bot, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		key := cacheKey(bot.Name, bot.Alias)
		if _, dup := src.bots[key]; dup {
			return nil, fmt.Errorf("catalog: %s: bot %s alias %s defined twice", name, bot.Name, bot.Alias)
		}
		src.bots[key] = bot
	}
	return src, nil
}

func (s *DirSource) Load(_ context.Context, bot, alias string) (*Bot, error) {
	b, ok := s.bots[cacheKey(bot, alias)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrBotNotFound, bot, alias)
	}
	return b, nil
}

// All returns the definitions ordered by bot then alias.
func (s *DirSource) All(context.Context) ([]*Bot, error) {
	keys := make([]string, 0, len(s.bots))
	for k := range s.bots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]*Bot, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.bots[k])
	}
	return out, nil
}

type definitionGetter interface {
	BotDefinition(ctx context.Context, prefix, bot, alias string) (string, error)
}

type definitionLister interface {
	BotDefinitions(ctx context.Context, prefix string) ([]paramstore.Definition, error)
}

// ParamSource reads definitions from SSM parameters named
// <prefix>/bots/<bot>/<alias>.
type ParamSource struct {
	params definitionGetter
	prefix string
}

func NewParamSource(params definitionGetter, prefix string) (*ParamSource, error) {
	if params == nil {
		return nil, errors.New("catalog: param getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("catalog: parameter prefix must not be empty")
	}
	return &ParamSource{params: params, prefix: prefix}, nil
}

func (s *ParamSource) Load(ctx context.Context, bot, alias string) (*Bot, error) {
	raw, err := s.params.BotDefinition(ctx, s.prefix, bot, alias)
	if err != nil {
		if errors.Is(err, paramstore.ErrParameterNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrBotNotFound, bot, alias)
		}
		return nil, fmt.Errorf("catalog: load %s/%s: %w", bot, alias, err)
	}
	b, err := Parse([]byte(raw))
	if err != nil {
		return nil, err
	}
	if b.Name != bot || b.Alias != alias {
		return nil, fmt.Errorf("catalog: parameter for %s/%s defines %s/%s", bot, alias, b.Name, b.Alias)
	}
	return b, nil
}

// All parses every definition under the prefix. It needs a getter that can
// also list parameters, such as *paramstore.Client.
func (s *ParamSource) All(ctx context.Context) ([]*Bot, error) {
	lister, ok := s.params.(definitionLister)
	if !ok {
		return nil, errors.New("catalog: parameter getter cannot list definitions")
	}
	defs, err := lister.BotDefinitions(ctx, s.prefix)
	if err != nil {
		return nil, fmt.Errorf("catalog: list definitions: %w", err)
	}
	out := make([]*Bot, 0, len(defs))
	for _, d := range defs {
		b, err := Parse([]byte(d.Raw))
		if err != nil {
			return nil, fmt.Errorf("catalog: %s/%s: %w", d.Bot, d.Alias, err)
		}
		if b.Name != d.Bot || b.Alias != d.Alias {
			return nil, fmt.Errorf("catalog: parameter for %s/%s defines %s/%s", d.Bot, d.Alias, b.Name, b.Alias)
		}
		out = append(out, b)
	}
	return out, nil
}
