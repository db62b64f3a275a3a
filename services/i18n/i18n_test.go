package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCatalogs(t *testing.T, loaded map[string]map[string]string) {
	t.Helper()
	mu.RLock()
	oldCatalogs, oldLocales, oldMatcher := catalogs, locales, matcher
	mu.RUnlock()

	install(loaded)
	t.Cleanup(func() {
		mu.Lock()
		catalogs, locales, matcher = oldCatalogs, oldLocales, oldMatcher
		mu.Unlock()
	})
}

func TestFlatten(t *testing.T) {
	nested := map[string]any{
		"toast": map[string]any{
			"error_title": "Error",
			"submit": map[string]any{
				"failed": "Failed to submit milestone. Please try again.",
			},
		},
		"count": 123,
	}

	flat := make(map[string]string)
	flatten("", nested, flat)

	assert.Equal(t, "Error", flat["toast.error_title"])
	assert.Equal(t, "Failed to submit milestone. Please try again.", flat["toast.submit.failed"])
	assert.Equal(t, "123", flat["count"])
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		args     map[string]interface{}
		expected string
	}{
		{name: "No placeholders", text: "Budget", expected: "Budget"},
		{name: "Single placeholder", text: "{name} has been created.", args: map[string]interface{}{"name": "Clinic"}, expected: "Clinic has been created."},
		{name: "Numbers", text: "{completed} of {total} milestones", args: map[string]interface{}{"completed": 1, "total": 4}, expected: "1 of 4 milestones"},
		{name: "Missing argument", text: "Due {date}", args: map[string]interface{}{"other": "x"}, expected: "Due {date}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result string
			if tt.args == nil {
				result = format(tt.text)
			} else {
				result = format(tt.text, tt.args)
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetLocale(t *testing.T) {
	assert.Equal(t, "en", GetLocale(context.Background()))
	assert.Equal(t, "es", GetLocale(WithLocale(context.Background(), "es")))
	assert.Equal(t, "en", GetLocale(WithLocale(context.Background(), "")))
}

func TestTranslateFallbacks(t *testing.T) {
	withCatalogs(t, map[string]map[string]string{
		"en": {"common.retry": "Retry", "toast.create.success": "{name} has been created."},
		"es": {"common.retry": "Reintentar"},
	})

	assert.Equal(t, "Reintentar", Translate("es", "common.retry"))
	assert.Equal(t, "Retry", Translate("en", "common.retry"))
	assert.Equal(t, "Road has been created.", Translate("es", "toast.create.success", map[string]interface{}{"name": "Road"}))
	assert.Equal(t, "missing.key", Translate("es", "missing.key"))
	assert.Equal(t, "Retry", Translate("fr", "common.retry"))
}

func TestT(t *testing.T) {
	withCatalogs(t, map[string]map[string]string{
		"en": {"common.due": "Due {date}"},
		"es": {"common.due": "Vence {date}"},
	})

	ctx := WithLocale(context.Background(), "es")
	assert.Equal(t, "Vence 2024-03-01", T(ctx, "common.due", map[string]interface{}{"date": "2024-03-01"}))
}

func TestMatch(t *testing.T) {
	withCatalogs(t, map[string]map[string]string{"en": {}, "es": {}})

	tests := []struct {
		prefs []string
		want  string
	}{
		{nil, "en"},
		{[]string{"es"}, "es"},
		{[]string{"es-MX,es;q=0.9,en;q=0.8"}, "es"},
		{[]string{"fr-FR"}, "en"},
		{[]string{"", "es-AR"}, "es"},
		{[]string{"not a tag!!"}, "en"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Match(tt.prefs...), "prefs %v", tt.prefs)
	}
}

func TestLoadEmbeddedCatalogs(t *testing.T) {
	counts, err := Load()
	require.NoError(t, err)
	assert.NotZero(t, counts["en"])
	assert.Equal(t, counts["en"], counts["es"], "catalogs should carry the same keys")
	assert.Equal(t, []string{"en", "es"}, Supported())

	assert.Equal(t, "Milestone Submitted", Translate("en", "toast.submit.success_title"))
	assert.Equal(t, "Your milestone has been submitted for verification.", Translate("en", "toast.submit.success"))
	assert.Equal(t, "No projects found.", Translate("en", "common.empty_projects"))
}
