package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/newsintel/internal/transport"
)

// render writes v in the configured format; text uses the command's own layout
func render(w io.Writer, format string, v any, text func(w io.Writer) error) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)

	case "yaml":
		// round-trip through JSON so keys match the API field names
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		var generic any
		if err := json.Unmarshal(data, &generic); err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(generic); err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		return enc.Close()

	default:
		return text(w)
	}
}

// table is a tab-aligned writer that remembers the first write error
type table struct {
	tw  *tabwriter.Writer
	err error
}

func newTable(w io.Writer, header ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	if len(header) > 0 {
		t.row(toAny(header)...)
	}
	return t
}

func (t *table) row(cols ...any) {
	if t.err != nil {
		return
	}
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	_, t.err = fmt.Fprintln(t.tw, strings.Join(parts, "\t"))
}

func (t *table) flush() error {
	if t.err != nil {
		return t.err
	}
	return t.tw.Flush()
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// printer writes lines and keeps the first error
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, a ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, a...)
}

// score formats an optional sentiment score
func score(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f", *v)
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// FormatError renders a command error for the terminal
func FormatError(err error) string {
	if errors.Is(err, transport.ErrUnauthorized) {
		return "Authentication failed. Set admin.username and NEWSINTEL_ADMIN_PASSWORD (or pass --user / --password) and try again."
	}

	var (
		netErr    *transport.NetworkError
		httpErr   *transport.HTTPError
		decodeErr *transport.DecodeError
		appErr    *transport.ApplicationError
	)
	if errors.As(err, &netErr) || errors.As(err, &httpErr) || errors.As(err, &decodeErr) || errors.As(err, &appErr) {
		return transport.UserMessage(err)
	}
	return err.Error()
}
