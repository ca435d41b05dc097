package compliance

import "context"

// WindowRepository persists alert window rows.  Several rows may exist for a
// scope when concurrent first reads raced; FindByScope returns them ordered
// by ascending id so the caller can keep the oldest.
type WindowRepository interface {
	FindByScope(ctx context.Context, scope string) ([]AlertWindows, error)
	Create(ctx context.Context, w *AlertWindows) error
	Update(ctx context.Context, w *AlertWindows) error
}
