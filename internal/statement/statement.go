// Package statement renders account statements as PDF.
package statement

import (
	"io"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"

	"osryn.bank/internal/ledger"
	"osryn.bank/internal/money"
)

// MaxRows caps the rows printed; older rows are summarised as truncated.
const MaxRows = 200

var (
	colW    = []float64{30, 22, 70, 30, 30}
	headers = []string{"DATE", "REF", "DESCRIPTION", "AMOUNT", "BALANCE"}
	aligns  = []string{"C", "C", "L", "R", "R"}
)

// Render writes a PDF statement for acc. txs are expected most recent first.
func Render(w io.Writer, acc ledger.Account, txs []ledger.Transaction, at time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetTitle("Osryn Bank statement "+acc.ID, false)
	pdf.SetAuthor("Osryn Bank", false)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "Osryn Bank Statement")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(80, 80, 80)
	pdf.Cell(0, 6, tr("Account holder: "+acc.DisplayName))
	pdf.Ln(5)
	pdf.Cell(0, 6, "Account number: "+maskID(acc.ID)+" ("+string(acc.Kind)+")")
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+at.UTC().Format(time.RFC1123))
	pdf.Ln(10)

	var in, out int64
	for _, tx := range txs {
		if tx.Amount >= 0 {
			in += tx.Amount
		} else {
			out -= tx.Amount
		}
	}

	pdf.SetDrawColor(200, 200, 200)
	pdf.SetFillColor(248, 248, 248)
	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 11)
	sumW := []float64{60, 60, 62}
	pdf.CellFormat(sumW[0], 10, "Money in ("+money.Code+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[1], 10, "Money out ("+money.Code+")", "1", 0, "C", true, 0, "")
	pdf.CellFormat(sumW[2], 10, "Balance ("+money.Code+")", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(sumW[0], 10, money.Plain(in), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[1], 10, money.Plain(out), "1", 0, "C", false, 0, "")
	pdf.CellFormat(sumW[2], 10, money.Plain(acc.Balance), "1", 1, "C", false, 0, "")
	pdf.Ln(6)

	tableHeader(pdf)
	if len(txs) == 0 {
		pdf.CellFormat(0, 8, "No transactions.", "1", 1, "C", false, 0, "")
	}
	for i, tx := range txs {
		if i >= MaxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, "truncated: older transactions omitted", "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			tableHeader(pdf)
		}
		cells := []string{
			tx.CreatedAt.UTC().Format("2006-01-02 15:04"),
			tx.Reference,
			tr(trimTo(tx.Description, 48)),
			money.Plain(tx.Amount),
			money.Plain(tx.BalanceAfter),
		}
		for j, c := range cells {
			ln := 0
			if j == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(colW[j], 7, c, "1", ln, aligns[j], false, 0, "")
		}
	}

	pdf.SetAutoPageBreak(false, 0)
	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, "Amounts in "+money.Code+". This statement lists the most recent activity first.", "", 0, "C", false, 0, "")

	return pdf.Output(w)
}

func tableHeader(pdf *gofpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.SetTextColor(20, 20, 20)
	for i, h := range headers {
		ln := 0
		if i == len(headers)-1 {
			ln = 1
		}
		pdf.CellFormat(colW[i], 8, h, "1", ln, "C", true, 0, "")
	}
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(30, 30, 30)
}

// maskID keeps the last four digits of an account number.
func maskID(id string) string {
	if len(id) <= 4 {
		return id
	}
	return strings.Repeat("*", len(id)-4) + id[len(id)-4:]
}

func trimTo(s string, max int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= max {
		return string(r)
	}
	return string(r[:max-3]) + "..."
}
