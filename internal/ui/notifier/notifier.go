package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pomodoro/internal/core/notify"
	"pomodoro/internal/storage"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/sirupsen/logrus"
)

// KeyPermission is the notify namespace key of the stored permission.
const KeyPermission = "permission"

const persistTimeout = 3 * time.Second

// ErrNoParent is returned when the permission prompt has no window to attach to.
var ErrNoParent = errors.New("no parent window for permission prompt")

// Parent is the window hosting the permission dialog. Show must bring it to
// the front, since completions usually arrive while it is hidden in the tray.
type Parent interface {
	Fyne() fyne.Window
	Show()
}

// promptFunc asks the user and reports the answer through answer exactly once.
type promptFunc func(answer func(granted bool))

// Notifier is a notify.Sink backed by fyne desktop notifications. The
// permission is asked once through a confirm dialog and stored in the notify
// bucket.
type Notifier struct {
	app    fyne.App
	writer *storage.Writer
	logger logrus.FieldLogger
	prompt promptFunc

	mu         sync.Mutex
	permission notify.Permission
}

// New loads the stored permission. parent hosts the confirm dialog and may be
// nil, in which case requests fail with ErrNoParent.
func New(ctx context.Context, fyneApp fyne.App, parent Parent, bucket *storage.Bucket, logger logrus.FieldLogger) *Notifier {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	value, _ := bucket.String(ctx, KeyPermission)
	notifier := &Notifier{
		app:        fyneApp,
		writer:     storage.NewWriter(bucket, persistTimeout),
		logger:     logger.WithField("component", "notifier"),
		permission: notify.ParsePermission(value),
	}
	if parent != nil {
		notifier.prompt = confirmPrompt(parent)
	}
	return notifier
}

func confirmPrompt(parent Parent) promptFunc {
	return func(answer func(granted bool)) {
		fyne.Do(func() {
			parent.Show()
			dialog.ShowConfirm("Enable notifications",
				"Show a desktop notification when a work session or break ends?",
				answer, parent.Fyne())
		})
	}
}

// Permission returns the stored permission.
func (notifier *Notifier) Permission() notify.Permission {
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	return notifier.permission
}

// RequestPermission shows the prompt and waits for the answer or ctx.
func (notifier *Notifier) RequestPermission(ctx context.Context) (notify.Permission, error) {
	if notifier.prompt == nil {
		return notify.PermissionUnrequested, ErrNoParent
	}

	answers := make(chan bool, 1)
	var once sync.Once
	notifier.prompt(func(granted bool) {
		once.Do(func() { answers <- granted })
	})

	select {
	case <-ctx.Done():
		return notify.PermissionUnrequested, fmt.Errorf("permission prompt: %w", ctx.Err())
	case granted := <-answers:
		permission := notify.PermissionDenied
		if granted {
			permission = notify.PermissionGranted
		}
		notifier.store(permission)
		notifier.logger.WithField("permission", permission).Info("notification permission answered")
		return permission, nil
	}
}

// Reset forgets the stored answer so the next completion asks again.
func (notifier *Notifier) Reset() {
	notifier.store(notify.PermissionUnrequested)
}

// Fire sends a desktop notification.
func (notifier *Notifier) Fire(title, body string) error {
	if notifier.app == nil {
		return errors.New("no fyne app")
	}
	notifier.app.SendNotification(fyne.NewNotification(title, body))
	return nil
}

// Close writes a pending permission change.
func (notifier *Notifier) Close() {
	notifier.writer.Close()
}

func (notifier *Notifier) store(permission notify.Permission) {
	notifier.mu.Lock()
	notifier.permission = permission
	notifier.mu.Unlock()
	notifier.writer.SetString(KeyPermission, string(permission))
}
