package settle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// jsonObjectWriter writes the fields of a ledger command in a fixed order,
// so that the ledger file stays diff friendly. Its zero value is ready to
// use, and the first error sticks.
type jsonObjectWriter struct {
	bytes.Buffer
	err error
}

// Header writes the fields common to all commands.
func (w *jsonObjectWriter) Header(c baseCmd) *jsonObjectWriter {
	return w.Append("command", c.Command).Append("date", c.Date).Optional("memo", c.Memo)
}

// Append writes a field.
func (w *jsonObjectWriter) Append(key string, value any) *jsonObjectWriter {
	if w.err != nil {
		return w
	}
	data, err := json.Marshal(value)
	if err != nil {
		w.err = fmt.Errorf("field %q: %w", key, err)
		return w
	}
	if w.Len() > 0 {
		w.WriteByte(',')
	}
	fmt.Fprintf(w, "%q:", key)
	w.Write(data)
	return w
}

// Optional writes a field unless value is zero. Values with an IsZero
// method (Money, Date, decimals) use it.
func (w *jsonObjectWriter) Optional(key string, value any) *jsonObjectWriter {
	if z, ok := value.(interface{ IsZero() bool }); ok {
		if z.IsZero() {
			return w
		}
		return w.Append(key, value)
	}
	if v := reflect.ValueOf(value); !v.IsValid() || v.IsZero() {
		return w
	}
	return w.Append(key, value)
}

// Money writes an amount in two fields, key and "currency". The currency is
// omitted when it is the book's default, left empty.
func (w *jsonObjectWriter) Money(key string, m Money) *jsonObjectWriter {
	return w.Append(key, m.Decimal()).Optional("currency", m.Currency())
}

// MarshalJSON returns the object written so far.
func (w *jsonObjectWriter) MarshalJSON() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	out := make([]byte, 0, w.Len()+2)
	out = append(out, '{')
	out = append(out, w.Bytes()...)
	return append(out, '}'), nil
}
