package emit

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/danmuck/litelog/internal/entry"
)

// Console prints one numbered line per entry:
//
//	[1] log_time="2024-01-02 03:04:05" log_level=INFO log_type=MSG msg="hello world"
type Console struct {
	w io.Writer
	n int
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Emit(e entry.Entry) error {
	c.n++
	_, err := fmt.Fprintf(c.w, "[%d] %s\n", c.n, Format(e))
	return err
}

func (c *Console) Close() error {
	return nil
}

// Format renders e as space separated key=value pairs in field order.
func Format(e entry.Entry) string {
	var b strings.Builder
	for i, f := range e.Fields() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	return b.String()
}

func formatValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	if s == "" || strings.ContainsAny(s, " \t\r\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
