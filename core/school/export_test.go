package school

import "time"

// SetNowFunc replaces the service clock until the returned func is called.
func SetNowFunc(f func() time.Time) (restore func()) {
	nowFunc = f
	return func() { nowFunc = time.Now }
}
