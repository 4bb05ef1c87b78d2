package pos

import (
	"fmt"
	"strings"
)

const receiptWidth = 40

// RenderReceipt produces the plain-text till slip for a sale.
func RenderReceipt(info ReceiptInfo, sale SaleRecord) string {
	var b strings.Builder
	divider := strings.Repeat("-", receiptWidth)

	writeCentered(&b, info.CompanyName)
	if info.CompanyAddress != "" {
		writeCentered(&b, info.CompanyAddress)
	}
	if info.CompanyPhone != "" {
		writeCentered(&b, info.CompanyPhone)
	}
	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "Sale: %s\n", sale.Number)
	fmt.Fprintf(&b, "Date: %s\n", sale.SoldAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Till: %s\n", sale.TerminalID)
	b.WriteString(divider + "\n")

	for _, line := range sale.Lines {
		fmt.Fprintf(&b, "%s %s x%g @ %.2f = %.2f\n",
			line.StockCode, line.Description, line.Qty, line.UnitPrice, line.LineTotal)
	}

	b.WriteString(divider + "\n")
	fmt.Fprintf(&b, "%-20s %19.2f\n", "Subtotal", sale.Subtotal)
	fmt.Fprintf(&b, "%-20s %19.2f\n", "VAT", sale.Tax)
	fmt.Fprintf(&b, "%-20s %19.2f\n", "TOTAL", sale.Total)
	if sale.Method == PayCash {
		fmt.Fprintf(&b, "%-20s %19.2f\n", "Tendered", sale.Tendered)
		fmt.Fprintf(&b, "%-20s %19.2f\n", "Change", sale.Change)
	} else {
		fmt.Fprintf(&b, "%-20s %19s\n", "Paid by", strings.ToUpper(string(sale.Method)))
	}
	if sale.CustomerCode != "" {
		fmt.Fprintf(&b, "%-20s %19s\n", "Account", sale.CustomerCode)
	}
	b.WriteString(divider + "\n")
	if info.Footer != "" {
		writeCentered(&b, info.Footer)
	}
	return b.String()
}

func writeCentered(b *strings.Builder, text string) {
	if len(text) >= receiptWidth {
		b.WriteString(text + "\n")
		return
	}
	pad := (receiptWidth - len(text)) / 2
	b.WriteString(strings.Repeat(" ", pad) + text + "\n")
}
