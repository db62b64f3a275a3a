package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

//go:embed *.json
var catalogFS embed.FS

// DefaultLocale is used when nothing better matches.
const DefaultLocale = "en"

var (
	mu       sync.RWMutex
	catalogs = make(map[string]map[string]string) // "es" -> "toast.error_title" -> "Error"
	matcher  = language.NewMatcher([]language.Tag{language.English})
	locales  = []string{DefaultLocale}
)

// Load reads every embedded <locale>.json catalog. Nested objects become
// dotted keys. It returns the number of keys loaded per locale.
func Load() (map[string]int, error) {
	entries, err := catalogFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded catalogs: %w", err)
	}

	loaded := make(map[string]map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		content, err := catalogFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", name, err)
		}
		var tree map[string]any
		if err := json.Unmarshal(content, &tree); err != nil {
			return nil, fmt.Errorf("failed to parse catalog %s: %w", name, err)
		}
		flat := make(map[string]string)
		flatten("", tree, flat)
		loaded[strings.TrimSuffix(name, ".json")] = flat
	}
	if _, ok := loaded[DefaultLocale]; !ok {
		return nil, fmt.Errorf("catalog %s.json is missing", DefaultLocale)
	}

	install(loaded)

	counts := make(map[string]int, len(loaded))
	for lang, flat := range loaded {
		counts[lang] = len(flat)
	}
	return counts, nil
}

func install(loaded map[string]map[string]string) {
	names := make([]string, 0, len(loaded))
	for lang := range loaded {
		if lang != DefaultLocale {
			names = append(names, lang)
		}
	}
	sort.Strings(names)
	names = append([]string{DefaultLocale}, names...)

	tags := make([]language.Tag, len(names))
	for i, n := range names {
		tags[i] = language.Make(n)
	}

	mu.Lock()
	catalogs = loaded
	locales = names
	matcher = language.NewMatcher(tags)
	mu.Unlock()
}

func flatten(prefix string, tree map[string]any, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch child := v.(type) {
		case map[string]any:
			flatten(key, child, out)
		case string:
			out[key] = child
		default:
			out[key] = fmt.Sprint(child)
		}
	}
}

// Supported lists loaded locales, default first.
func Supported() []string {
	mu.RLock()
	defer mu.RUnlock()
	return append([]string(nil), locales...)
}

// Match picks the best supported locale for a list of preferences such as
// a lang query value or an Accept-Language header.
func Match(prefs ...string) string {
	mu.RLock()
	m, names := matcher, locales
	mu.RUnlock()

	var tags []language.Tag
	for _, p := range prefs {
		if p == "" {
			continue
		}
		parsed, _, err := language.ParseAcceptLanguage(p)
		if err != nil {
			continue
		}
		tags = append(tags, parsed...)
	}
	if len(tags) == 0 {
		return DefaultLocale
	}
	_, idx, conf := m.Match(tags...)
	if conf == language.No || idx >= len(names) {
		return DefaultLocale
	}
	return names[idx]
}

// T translates key into the locale carried by ctx.
func T(ctx context.Context, key string, args ...map[string]interface{}) string {
	return Translate(GetLocale(ctx), key, args...)
}

// Translate looks key up in lang, then in the default locale, and finally
// returns the key itself. {name} placeholders are filled from args.
func Translate(lang, key string, args ...map[string]interface{}) string {
	mu.RLock()
	defer mu.RUnlock()

	if val, ok := catalogs[lang][key]; ok {
		return format(val, args...)
	}
	if val, ok := catalogs[DefaultLocale][key]; ok {
		return format(val, args...)
	}
	return key
}

func format(text string, args ...map[string]interface{}) string {
	if len(args) == 0 {
		return text
	}
	for k, v := range args[0] {
		text = strings.ReplaceAll(text, "{"+k+"}", fmt.Sprint(v))
	}
	return text
}

type contextKey string

// LocaleContextKey stores the request locale in a context.Context.
const LocaleContextKey contextKey = "locale"

// WithLocale returns a copy of ctx carrying lang.
func WithLocale(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, LocaleContextKey, lang)
}

// GetLocale returns the locale set by the locale middleware, or the default.
func GetLocale(ctx context.Context) string {
	if lang, ok := ctx.Value(LocaleContextKey).(string); ok && lang != "" {
		return lang
	}
	return DefaultLocale
}
