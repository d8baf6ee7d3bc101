package receipt

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/money"
)

const textWidth = 40

// RenderText writes the on-screen version of the ticket.
func RenderText(w io.Writer, t Ticket) error {
	var b strings.Builder
	sep := strings.Repeat("═", textWidth)
	thin := strings.Repeat("─", textWidth)

	b.WriteString(sep + "\n")
	b.WriteString(center(t.StoreName) + "\n")
	b.WriteString(sep + "\n")
	fmt.Fprintf(&b, "Ticket #%s\n", t.Number)
	fmt.Fprintf(&b, "Date: %s  Time: %s\n", t.Date, t.Time)
	b.WriteString(thin + "\n")
	for _, l := range t.Lines {
		b.WriteString(row(l.Name, money.FormatCurrency(l.Price)) + "\n")
	}
	b.WriteString(thin + "\n")
	if t.ShowDiscount() {
		b.WriteString(row("Discount", money.FormatCurrency(t.Discount.Neg())) + "\n")
	}
	b.WriteString(row("TOTAL", money.FormatCurrency(t.Total)) + "\n")
	b.WriteString(sep + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func row(label, amount string) string {
	pad := textWidth - len([]rune(label)) - len([]rune(amount))
	if pad < 1 {
		pad = 1
	}
	return label + strings.Repeat(" ", pad) + amount
}

func center(s string) string {
	n := len([]rune(s))
	if n >= textWidth {
		return s
	}
	return strings.Repeat(" ", (textWidth-n)/2) + s
}

var printable = template.Must(template.New("ticket").Funcs(template.FuncMap{
	"currency": money.FormatCurrency,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Ticket #{{.Number}}</title>
<style>
  body { font-family: "Courier New", monospace; width: 80mm; margin: 0 auto; padding: 4mm; color: #000; background: #fff; }
  h1 { font-size: 16px; text-align: center; margin: 0 0 4px; }
  .meta { text-align: center; font-size: 12px; }
  table { width: 100%; border-collapse: collapse; font-size: 12px; }
  td.amount { text-align: right; }
  tr.discount td, tr.total td { border-top: 1px dashed #000; }
  tr.total td { font-weight: bold; font-size: 14px; }
  .actions { text-align: center; margin-top: 8px; }
  @media print { body { width: auto; } .actions { display: none; } }
</style>
</head>
<body{{if .AutoPrint}} onload="window.print()"{{end}}>
<h1>{{.StoreName}}</h1>
<div class="meta">Ticket #{{.Number}}<br>{{.Date}} {{.Time}}</div>
<table>
{{- range .Lines}}
<tr><td>{{.Name}}</td><td class="amount">{{currency .Price}}</td></tr>
{{- end}}
{{- if .ShowDiscount}}
<tr class="discount"><td>Discount</td><td class="amount">{{currency .Discount.Neg}}</td></tr>
{{- end}}
<tr class="total"><td>TOTAL</td><td class="amount">{{currency .Total}}</td></tr>
</table>
<div class="actions"><button type="button" onclick="window.print()">Print</button></div>
</body>
</html>
`))

type HTMLOptions struct {
	// AutoPrint opens the print dialog as soon as the document loads.
	AutoPrint bool
}

// RenderHTML writes a standalone document suitable for printing. It carries
// its own styles so it renders the same outside the application. Printing
// starts from the document's Print button unless AutoPrint is set.
func RenderHTML(w io.Writer, t Ticket, opts HTMLOptions) error {
	return printable.Execute(w, struct {
		Ticket
		AutoPrint bool
	}{t, opts.AutoPrint})
}
