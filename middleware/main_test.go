package middleware

import (
	"os"
	"testing"

	"milestone_dashboard/services/i18n"
)

func TestMain(m *testing.M) {
	if _, err := i18n.Load(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
