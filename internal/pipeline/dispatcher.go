package pipeline

import "sync"

// Dispatcher routes transport traffic through a single installed Hooks
// instance. Transports call Inbound/Outbound for every message and Closed and
// Error for lifecycle events; the dispatcher applies the hooks unless the
// channel was ejected or interception was flushed.
type Dispatcher struct {
	mu      sync.RWMutex
	hooks   Hooks
	ejected map[Channel]struct{}
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Install attaches hooks and returns the removal handle. Only one hooks
// instance may be installed at a time.
func (d *Dispatcher) Install(h Hooks) (Injection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.hooks != nil {
		return nil, ErrAlreadyInstalled
	}
	d.hooks = h
	d.ejected = make(map[Channel]struct{})
	return &injection{d: d}, nil
}

// Inbound runs an inbound message through the hooks. The returned message is
// what the transport should deliver onward; nil means drop. Hook errors are
// routed to Exception and swallow the message.
func (d *Dispatcher) Inbound(ch Channel, msg any) any {
	h := d.active(ch)
	if h == nil {
		return msg
	}
	out, err := h.Read(ch, msg)
	if err != nil {
		h.Exception(ch, err)
		return nil
	}
	return out
}

// Outbound runs an outbound message through the hooks before it is encoded.
func (d *Dispatcher) Outbound(ch Channel, msg any) any {
	h := d.active(ch)
	if h == nil {
		return msg
	}
	out, err := h.Write(ch, msg)
	if err != nil {
		h.Exception(ch, err)
		return nil
	}
	return out
}

// Closed reports a channel close to the hooks. A dead channel cannot carry
// traffic anymore, so its eject mark is reclaimed here.
func (d *Dispatcher) Closed(ch Channel) {
	if h := d.active(ch); h != nil {
		h.Closed(ch)
	}

	d.mu.Lock()
	if d.ejected != nil {
		delete(d.ejected, ch)
	}
	d.mu.Unlock()
}

// Error reports a transport failure on a channel to the hooks.
func (d *Dispatcher) Error(ch Channel, cause error) {
	if h := d.active(ch); h != nil {
		h.Exception(ch, cause)
	}
}

func (d *Dispatcher) active(ch Channel) Hooks {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.hooks == nil {
		return nil
	}
	if _, ok := d.ejected[ch]; ok {
		return nil
	}
	return d.hooks
}

type injection struct {
	d    *Dispatcher
	once sync.Once
}

func (in *injection) Eject(ch Channel) {
	in.d.mu.Lock()
	defer in.d.mu.Unlock()
	if in.d.ejected != nil {
		in.d.ejected[ch] = struct{}{}
	}
}

func (in *injection) Flush() error {
	in.once.Do(func() {
		in.d.mu.Lock()
		defer in.d.mu.Unlock()
		in.d.hooks = nil
		in.d.ejected = nil
	})
	return nil
}
