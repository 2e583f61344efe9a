package notify

import "github.com/gen2brain/beeep"

type Notifier interface {
	Notify(title, body string) error
}

type beeepNotifier struct{}

func (beeepNotifier) Notify(title, body string) error {
	// empty icon path, per-platform icon handling is up to beeep
	return beeep.Notify(title, body, "")
}

func New() Notifier {
	return beeepNotifier{}
}
