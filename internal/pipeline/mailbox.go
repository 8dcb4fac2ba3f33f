package pipeline

import "sync"

// Mailbox holds one Result. Put overwrites; Take reads and resets to idle in
// one step, so a success is observed by at most one poll.
type Mailbox struct {
	mu     sync.Mutex
	result Result
}

func NewMailbox() *Mailbox {
	return &Mailbox{result: IdleResult}
}

func (m *Mailbox) Put(r Result) {
	m.mu.Lock()
	m.result = r
	m.mu.Unlock()
}

func (m *Mailbox) Take() Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.result
	m.result = IdleResult
	return r
}

func (m *Mailbox) Reset() {
	m.Put(IdleResult)
}
