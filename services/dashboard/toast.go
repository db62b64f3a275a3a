package dashboard

import (
	"context"

	"github.com/google/uuid"

	"milestone_dashboard/services/i18n"
)

type ToastVariant string

const (
	ToastDefault     ToastVariant = "default"
	ToastDestructive ToastVariant = "destructive"
)

// Toast is a transient notification rendered once by the client.
type Toast struct {
	ID          string
	Title       string
	Description string
	Variant     ToastVariant
}

func (t Toast) IsZero() bool {
	return t.Title == "" && t.Description == ""
}

func newToast(ctx context.Context, variant ToastVariant, titleKey, descKey string, args ...map[string]interface{}) Toast {
	return Toast{
		ID:          uuid.NewString(),
		Title:       i18n.T(ctx, titleKey, args...),
		Description: i18n.T(ctx, descKey, args...),
		Variant:     variant,
	}
}

// ErrorToast is the generic destructive toast with the given description.
func ErrorToast(ctx context.Context, descKey string, args ...map[string]interface{}) Toast {
	return newToast(ctx, ToastDestructive, "toast.error_title", descKey, args...)
}

// SuccessToast is a default toast for outcomes outside the dashboard
// services, such as evidence uploads.
func SuccessToast(ctx context.Context, titleKey, descKey string, args ...map[string]interface{}) Toast {
	return newToast(ctx, ToastDefault, titleKey, descKey, args...)
}
