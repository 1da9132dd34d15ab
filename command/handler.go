package command

import (
	"sync"
)

// Responder sends the response to a request. Only the first response is
// sent; later calls are ignored.
type Responder interface {
	// Return responds OK with params.
	Return(params map[string]string) error
	// Reject responds NOK with params.
	Reject(params map[string]string) error
	// Fail responds ERROR with the error message.
	Fail(err error) error
	// Send responds with any response type.
	Send(typ ResponseType, params map[string]string) error
}

// Handler responds to a request.
type Handler interface {
	RespondCommand(Responder, *Request)
}

// HandlerFunc adapts a function to a Handler.
type HandlerFunc func(Responder, *Request)

func (f HandlerFunc) RespondCommand(resp Responder, req *Request) {
	f(resp, req)
}

// RespondMux dispatches requests to handlers registered by name. Requests
// with no handler are answered NOT_FOUND.
type RespondMux struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRespondMux returns an empty RespondMux.
func NewRespondMux() *RespondMux {
	return &RespondMux{handlers: make(map[string]Handler)}
}

// Handle registers h for requests named name.
func (m *RespondMux) Handle(name string, h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[name] = h
}

// HandleFunc registers fn for requests named name.
func (m *RespondMux) HandleFunc(name string, fn func(Responder, *Request)) {
	m.Handle(name, HandlerFunc(fn))
}

// Remove unregisters the handler for name.
func (m *RespondMux) Remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.handlers, name)
}

// Names returns the registered command names.
func (m *RespondMux) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.handlers))
	for name := range m.handlers {
		names = append(names, name)
	}
	return names
}

func (m *RespondMux) RespondCommand(resp Responder, req *Request) {
	m.mu.RLock()
	h, ok := m.handlers[req.Name]
	m.mu.RUnlock()
	if !ok {
		resp.Send(NotFound, map[string]string{ErrorParam: "unknown command " + req.Name})
		return
	}
	h.RespondCommand(resp, req)
}

// responder writes a single response through a send function.
type responder struct {
	id        string
	write     func(*Response) error
	responded bool
	err       error
}

func (r *responder) Return(params map[string]string) error {
	return r.Send(OK, params)
}

func (r *responder) Reject(params map[string]string) error {
	return r.Send(NOK, params)
}

func (r *responder) Fail(err error) error {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return r.Send(Error, map[string]string{ErrorParam: msg})
}

func (r *responder) Send(typ ResponseType, params map[string]string) error {
	if r.responded {
		return nil
	}
	r.responded = true
	if params == nil {
		params = map[string]string{}
	}
	r.err = r.write(&Response{ID: r.id, Type: typ, Params: params})
	return r.err
}
