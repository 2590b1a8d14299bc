package printing

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

// unspecifiedAdministration labels requesters without a Direction
const unspecifiedAdministration = "Non renseignée"

var statusLabels = map[string]string{
	"pending":   "En attente",
	"approved":  "Approuvée",
	"rejected":  "Rejetée",
	"delivered": "Livrée",
}

// TemplateEngine renders invoices with French formatting
type TemplateEngine struct {
	lang     language.Tag
	unit     currency.Unit
	location *time.Location
	printer  *message.Printer
	invoice  *template.Template
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine) error

// WithCurrency sets the ISO 4217 currency of amounts
func WithCurrency(code string) TemplateEngineOption {
	return func(e *TemplateEngine) error {
		unit, err := currency.ParseISO(code)
		if err != nil {
			return fmt.Errorf("invalid currency %q: %w", code, err)
		}
		e.unit = unit
		return nil
	}
}

// WithLanguage sets the locale used for number grouping
func WithLanguage(tag language.Tag) TemplateEngineOption {
	return func(e *TemplateEngine) error {
		e.lang = tag
		return nil
	}
}

// WithLocation sets the time zone dates are printed in
func WithLocation(loc *time.Location) TemplateEngineOption {
	return func(e *TemplateEngine) error {
		e.location = loc
		return nil
	}
}

// NewTemplateEngine parses the embedded templates
func NewTemplateEngine(opts ...TemplateEngineOption) (*TemplateEngine, error) {
	e := &TemplateEngine{
		lang:     language.French,
		unit:     currency.MustParseISO("XOF"),
		location: time.UTC,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.printer = message.NewPrinter(e.lang)

	tmpl, err := template.New("invoice.html").Funcs(e.funcMap()).ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse invoice template: %w", err)
	}
	e.invoice = tmpl
	return e, nil
}

func (e *TemplateEngine) funcMap() template.FuncMap {
	return template.FuncMap{
		"formatMoney":         e.FormatMoney,
		"formatInt":           e.FormatInt,
		"formatDateTime":      e.FormatDateTime,
		"statusLabel":         StatusLabel,
		"administrationLabel": administrationLabel,
	}
}

// RenderInvoice executes the invoice template
func (e *TemplateEngine) RenderInvoice(ctx context.Context, inv *Invoice) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := e.invoice.Execute(&buf, inv); err != nil {
		return "", NewRenderError(ErrCodeTemplateFailed, "failed to render invoice template", err)
	}
	return buf.String(), nil
}

// FormatMoney rounds to the currency's standard scale, groups digits the
// locale's way and appends the ISO code ("1 250 000 XOF")
func (e *TemplateEngine) FormatMoney(v decimal.Decimal) string {
	scale, _ := currency.Standard.Rounding(e.unit)
	rounded := v.Round(int32(scale))

	intPart := rounded.Truncate(0)
	s := e.printer.Sprintf("%d", intPart.IntPart())
	if intPart.IsZero() && rounded.IsNegative() {
		s = "-" + s
	}
	if scale > 0 {
		frac := rounded.Sub(intPart).Abs().Shift(int32(scale)).IntPart()
		s += e.decimalSeparator() + fmt.Sprintf("%0*d", scale, frac)
	}
	return s + " " + e.unit.String()
}

// FormatInt groups digits the locale's way
func (e *TemplateEngine) FormatInt(n int) string {
	return e.printer.Sprintf("%d", n)
}

// FormatDateTime prints t as dd/mm/yyyy hh:mm in the engine's zone
func (e *TemplateEngine) FormatDateTime(t any) string {
	switch v := t.(type) {
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.In(e.location).Format("02/01/2006 15:04")
	case *time.Time:
		if v == nil {
			return ""
		}
		return e.FormatDateTime(*v)
	}
	return ""
}

func (e *TemplateEngine) decimalSeparator() string {
	// the printer formats 1.5 with the locale separator between the digits
	s := e.printer.Sprintf("%.1f", 1.5)
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}

// StatusLabel translates an order status for display
func StatusLabel(status string) string {
	if l, ok := statusLabels[status]; ok {
		return l
	}
	return status
}

func administrationLabel(a string) string {
	if strings.TrimSpace(a) == "" {
		return unspecifiedAdministration
	}
	return a
}
