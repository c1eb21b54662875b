package messages

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

// BaseLocale is the locale every other catalog falls back to.
const BaseLocale = "en-US"

// Notice is a message addressed to one player: a catalog key and its positional arguments.
type Notice struct {
	Key  string `json:"key"`
	Args []any  `json:"args,omitempty"`
}

// New builds a Notice.
func New(key string, args ...any) Notice {
	return Notice{Key: key, Args: args}
}

type catalogFile struct {
	Locale    string            `yaml:"locale"`
	Namespace string            `yaml:"namespace"`
	Messages  map[string]string `yaml:"messages"`
}

// Catalog renders notices in the locales loaded from YAML files.
type Catalog struct {
	builder *catalog.Builder
	locales map[string]language.Tag
	base    map[string]string
}

//go:embed locales/*/*.yaml
var embeddedFS embed.FS

// LoadEmbedded loads the catalogs shipped with the binary.
func LoadEmbedded() (*Catalog, error) {
	return LoadFromFS(embeddedFS)
}

// LoadFromFS loads locales/<locale>/<namespace>.yaml files from fsys.
func LoadFromFS(fsys fs.FS) (*Catalog, error) {
	paths, err := fs.Glob(fsys, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("messages: glob catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("messages: no catalog files found")
	}
	sort.Strings(paths)

	byLocale := make(map[string]map[string]string)
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("messages: read %s: %w", path, err)
		}
		var file catalogFile
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("messages: parse %s: %w", path, err)
		}

		locale := strings.TrimSpace(file.Locale)
		if dir := filepath.Base(filepath.Dir(path)); locale != dir {
			return nil, fmt.Errorf("messages: %s: locale %q must match directory %q", path, locale, dir)
		}
		if byLocale[locale] == nil {
			byLocale[locale] = make(map[string]string)
		}
		for key, value := range file.Messages {
			key = strings.TrimSpace(key)
			if key == "" {
				return nil, fmt.Errorf("messages: %s: blank key", path)
			}
			if _, dup := byLocale[locale][key]; dup {
				return nil, fmt.Errorf("messages: %s: duplicate key %q", path, key)
			}
			byLocale[locale][key] = value
		}
	}

	base, ok := byLocale[BaseLocale]
	if !ok {
		return nil, fmt.Errorf("messages: base locale %s is not defined", BaseLocale)
	}

	c := &Catalog{
		builder: catalog.NewBuilder(catalog.Fallback(language.MustParse(BaseLocale))),
		locales: make(map[string]language.Tag, len(byLocale)),
		base:    base,
	}
	for locale, msgs := range byLocale {
		tag, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("messages: parse locale %q: %w", locale, err)
		}
		c.locales[locale] = tag
		for key, value := range base {
			if translated, ok := msgs[key]; ok {
				value = translated
			}
			if err := c.builder.SetString(tag, key, value); err != nil {
				return nil, fmt.Errorf("messages: register %s/%s: %w", locale, key, err)
			}
		}
	}
	return c, nil
}

// Has reports whether key is defined in the base locale.
func (c *Catalog) Has(key string) bool {
	_, ok := c.base[key]
	return ok
}

// Keys returns every key defined in the base locale, sorted.
func (c *Catalog) Keys() []string {
	keys := make([]string, 0, len(c.base))
	for key := range c.base {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Render formats the notice for locale, falling back to the base locale. Unknown keys
// render as the key itself.
func (c *Catalog) Render(locale string, n Notice) string {
	if !c.Has(n.Key) {
		return n.Key
	}
	tag, ok := c.locales[strings.TrimSpace(locale)]
	if !ok {
		tag = c.locales[BaseLocale]
	}
	return message.NewPrinter(tag, message.Catalog(c.builder)).Sprintf(n.Key, n.Args...)
}
