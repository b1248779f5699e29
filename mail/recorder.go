package mail

import (
	"context"
	"sync"

	goAccount "github.com/MrEthical07/goAccount"
)

// Recorder keeps every sent message in memory. Set Err to make Send fail.
type Recorder struct {
	mu   sync.Mutex
	sent []goAccount.Email
	Err  error
}

func (r *Recorder) Send(_ context.Context, msg goAccount.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the delivered messages in send order.
func (r *Recorder) Sent() []goAccount.Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]goAccount.Email, len(r.sent))
	copy(out, r.sent)
	return out
}

// Last returns the most recent message, or false when none was sent.
func (r *Recorder) Last() (goAccount.Email, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return goAccount.Email{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// SetErr changes the error returned by subsequent sends.
func (r *Recorder) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}
