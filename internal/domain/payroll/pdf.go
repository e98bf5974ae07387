package payroll

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// RenderPayslipPDF builds a downloadable A4 payslip document.
func (s *Service) RenderPayslipPDF(ctx context.Context, companyID, payslipID string) ([]byte, string, error) {
	data, err := s.Store.PayslipPDFData(ctx, companyID, payslipID)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Company: %s", data.CompanyName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", data.EmployeeName))
	pdf.Ln(7)
	if data.Designation != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Designation: %s", data.Designation))
		pdf.Ln(7)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s to %s", data.PeriodStart.Format("2006-01-02"), data.PeriodEnd.Format("2006-01-02")))
	pdf.Ln(10)

	snapshot := data.Payslip.Snapshot
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Earnings")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Base pay: %s", snapshot.BasePay.StringFixed(2)))
	pdf.Ln(6)
	for _, name := range sortedKeys(snapshot.Allowances) {
		pdf.Cell(0, 7, fmt.Sprintf("%s: %s", name, snapshot.Allowances[name].StringFixed(2)))
		pdf.Ln(6)
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Deductions")
	pdf.Ln(7)
	pdf.SetFont("Helvetica", "", 11)
	for _, name := range sortedKeys(snapshot.DeductionsFixed) {
		pdf.Cell(0, 7, fmt.Sprintf("%s: %s", name, snapshot.DeductionsFixed[name].StringFixed(2)))
		pdf.Ln(6)
	}
	for _, name := range sortedKeys(snapshot.DeductionsPercent) {
		pdf.Cell(0, 7, fmt.Sprintf("%s: %s%%", name, snapshot.DeductionsPercent[name].String()))
		pdf.Ln(6)
	}
	if snapshot.UnpaidLeaveDays > 0 {
		pdf.Cell(0, 7, fmt.Sprintf("Unpaid leave (%d days): %s", snapshot.UnpaidLeaveDays, snapshot.LeaveDeduction.StringFixed(2)))
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Gross: %s", data.Payslip.Gross.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total deductions: %s", data.Payslip.TotalDeductions.StringFixed(2)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Net: %s", data.Payslip.Net.StringFixed(2)))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("payslip_%s.pdf", data.PeriodStart.Format("2006_01"))
	return buf.Bytes(), filename, nil
}

func sortedKeys(amounts map[string]decimal.Decimal) []string {
	keys := make([]string, 0, len(amounts))
	for name := range amounts {
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys
}
