// Package command implements the agent command protocol: requests and
// responses carrying a name and a parameter block, exchanged as framed
// messages over a transport channel.
package command

import (
	"errors"
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/pipeframe/pipeframe/decoding"
	pkgerrors "github.com/pkg/errors"
	"github.com/rs/xid"
)

var (
	// ErrTruncated is returned when a message ends inside a field.
	ErrTruncated = errors.New("command: truncated message")
	// ErrTrailingData is returned when bytes follow the parameter block.
	ErrTrailingData = errors.New("command: trailing data")
	// ErrIDMismatch is returned when a response answers another request.
	ErrIDMismatch = errors.New("command: response id mismatch")
	// ErrClientClosed is returned by calls on a closed client. A client
	// closes itself when a call fails on its channel or is ended by its
	// context.
	ErrClientClosed = errors.New("command: client closed")
)

// RemoteError is an error that has been returned from
// the remote side of the command channel.
type RemoteError string

func (e RemoteError) Error() string {
	return fmt.Sprintf("remote: %s", string(e))
}

// ErrorParam is the response parameter carrying an error message.
const ErrorParam = "error"

// Request asks the remote side to run a named command.
type Request struct {
	ID     string
	Name   string
	Params map[string]string
}

// NewRequest returns a request with a fresh ID.
func NewRequest(name string, params map[string]string) *Request {
	if params == nil {
		params = map[string]string{}
	}
	return &Request{
		ID:     xid.New().String(),
		Name:   name,
		Params: params,
	}
}

// MarshalBinary encodes the request as its ID, name and parameter block.
func (r *Request) MarshalBinary() ([]byte, error) {
	b := decoding.AppendString(nil, r.ID)
	b = decoding.AppendString(b, r.Name)
	return decoding.AppendParameters(b, r.Params), nil
}

// UnmarshalBinary decodes a complete request message.
func (r *Request) UnmarshalBinary(b []byte) error {
	params, err := unmarshal(b, &r.ID, &r.Name)
	if err != nil {
		return pkgerrors.Wrap(err, "command: request")
	}
	r.Params = params
	return nil
}

// Bind decodes the request parameters into the struct pointed to by v.
// Fields are matched by their `param` tag or name, and string values are
// converted to the field types.
func (r *Request) Bind(v interface{}) error {
	return bind(r.Params, v)
}

// ResponseType is the outcome of a request.
type ResponseType string

const (
	OK       ResponseType = "OK"
	NOK      ResponseType = "NOK"
	Error    ResponseType = "ERROR"
	NotFound ResponseType = "NOT_FOUND"
)

// Response answers the request with the same ID.
type Response struct {
	ID     string
	Type   ResponseType
	Params map[string]string
}

// MarshalBinary encodes the response as its ID, type and parameter block.
func (r *Response) MarshalBinary() ([]byte, error) {
	b := decoding.AppendString(nil, r.ID)
	b = decoding.AppendString(b, string(r.Type))
	return decoding.AppendParameters(b, r.Params), nil
}

// UnmarshalBinary decodes a complete response message.
func (r *Response) UnmarshalBinary(b []byte) error {
	var typ string
	params, err := unmarshal(b, &r.ID, &typ)
	if err != nil {
		return pkgerrors.Wrap(err, "command: response")
	}
	r.Type = ResponseType(typ)
	r.Params = params
	return nil
}

// Bind decodes the response parameters into the struct pointed to by v.
func (r *Response) Bind(v interface{}) error {
	return bind(r.Params, v)
}

// Err returns the remote error carried by an ERROR or NOT_FOUND response.
func (r *Response) Err() error {
	if r.Type != Error && r.Type != NotFound {
		return nil
	}
	return RemoteError(r.Params[ErrorParam])
}

// unmarshal decodes strings into fields followed by a parameter block from
// a complete message.
func unmarshal(b []byte, fields ...*string) (map[string]string, error) {
	var buf decoding.Buffer
	buf.Write(b)
	for _, f := range fields {
		ctx, err := buf.NextString()
		if err != nil {
			return nil, err
		}
		if ctx.State != decoding.ValueRead {
			return nil, pkgerrors.Wrapf(ErrTruncated, "%s", ctx.State)
		}
		*f = ctx.Value
	}
	ctx, err := buf.NextParameters()
	if err != nil {
		return nil, err
	}
	if ctx.State != decoding.AllParametersRead {
		return nil, pkgerrors.Wrapf(ErrTruncated, "%s", ctx.State)
	}
	if buf.Len() != 0 {
		return nil, pkgerrors.Wrapf(ErrTrailingData, "%d bytes", buf.Len())
	}
	return ctx.Params, nil
}

func bind(params map[string]string, v interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "param",
		Result:           v,
	})
	if err != nil {
		return fmt.Errorf("command: mapstructure: %s", err.Error())
	}
	if err := dec.Decode(params); err != nil {
		return fmt.Errorf("command: mapstructure: %s", err.Error())
	}
	return nil
}
