package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/weddia/escrow-api/internal/repository"
	"github.com/xuri/excelize/v2"
)

// ExportService renders escrow transaction reports as CSV and XLSX
// downloads.
type ExportService struct {
	transactionRepo repository.TransactionRepository
	escrowRepo      repository.EscrowRepository
}

func NewExportService(transactionRepo repository.TransactionRepository, escrowRepo repository.EscrowRepository) *ExportService {
	return &ExportService{
		transactionRepo: transactionRepo,
		escrowRepo:      escrowRepo,
	}
}

// ExportTransactionsCSV renders all ledger entries as CSV
func (s *ExportService) ExportTransactionsCSV(ctx context.Context, limit, offset int) ([]byte, string, error) {
	entries, _, err := s.transactionRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	writer := csv.NewWriter(buf)

	_ = writer.Write([]string{"Escrow Transactions Report", time.Now().Format("2006-01-02 15:04")})
	_ = writer.Write([]string{""})
	_ = writer.Write([]string{"ID", "Escrow Account", "Type", "Amount", "From", "To", "Reference", "Created At"})

	for _, entry := range entries {
		reference := ""
		if entry.Reference != nil {
			reference = *entry.Reference
		}
		_ = writer.Write([]string{
			fmt.Sprintf("%d", entry.ID),
			fmt.Sprintf("%d", entry.EscrowAccountID),
			entry.Type,
			fmt.Sprintf("%.2f", entry.Amount),
			entry.FromParty,
			entry.ToParty,
			reference,
			entry.CreatedAt.Format(time.RFC3339),
		})
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("escrow_transactions_%s.csv", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportTransactionsXLSX renders the ledger entries as XLSX
func (s *ExportService) ExportTransactionsXLSX(ctx context.Context, limit, offset int) ([]byte, string, error) {
	entries, _, err := s.transactionRepo.ListAll(ctx, limit, offset)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Transactions"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", "Escrow Transactions Report")
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	_ = f.SetCellValue(sheet, "A3", "ID")
	_ = f.SetCellValue(sheet, "B3", "Escrow Account")
	_ = f.SetCellValue(sheet, "C3", "Type")
	_ = f.SetCellValue(sheet, "D3", "Amount")
	_ = f.SetCellValue(sheet, "E3", "From")
	_ = f.SetCellValue(sheet, "F3", "To")
	_ = f.SetCellValue(sheet, "G3", "Reference")
	_ = f.SetCellValue(sheet, "H3", "Created At")

	row := 4
	for _, entry := range entries {
		reference := ""
		if entry.Reference != nil {
			reference = *entry.Reference
		}
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.ID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.EscrowAccountID)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.Type)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), entry.Amount)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), entry.FromParty)
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), entry.ToParty)
		_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), reference)
		_ = f.SetCellValue(sheet, fmt.Sprintf("H%d", row), entry.CreatedAt.Format("2006-01-02 15:04"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("escrow_transactions_%s.xlsx", time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

// ExportAccountStatementXLSX renders one account's statement as XLSX
func (s *ExportService) ExportAccountStatementXLSX(ctx context.Context, escrowAccountID uint) ([]byte, string, error) {
	account, err := s.escrowRepo.FindByID(ctx, escrowAccountID)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.transactionRepo.FindByEscrowAccountID(ctx, escrowAccountID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Statement"
	_ = f.SetSheetName("Sheet1", sheet)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})

	_ = f.SetCellValue(sheet, "A1", fmt.Sprintf("Escrow Statement - Booking %d", account.BookingID))
	_ = f.SetCellStyle(sheet, "A1", "A1", headerStyle)

	_ = f.SetCellValue(sheet, "A3", "Status")
	_ = f.SetCellValue(sheet, "B3", account.Status)
	_ = f.SetCellValue(sheet, "A4", "Total Amount")
	_ = f.SetCellValue(sheet, "B4", account.TotalAmount)
	_ = f.SetCellValue(sheet, "A5", "Released")
	_ = f.SetCellValue(sheet, "B5", account.ReleasedAmount)
	_ = f.SetCellValue(sheet, "A6", "Refunded")
	_ = f.SetCellValue(sheet, "B6", account.RefundedAmount)
	_ = f.SetCellValue(sheet, "A7", "Commission")
	_ = f.SetCellValue(sheet, "B7", account.CommissionAmount)
	_ = f.SetCellValue(sheet, "A8", "Remaining")
	_ = f.SetCellValue(sheet, "B8", account.RemainingBalance())

	_ = f.SetCellValue(sheet, "A10", "Type")
	_ = f.SetCellValue(sheet, "B10", "Amount")
	_ = f.SetCellValue(sheet, "C10", "From")
	_ = f.SetCellValue(sheet, "D10", "To")
	_ = f.SetCellValue(sheet, "E10", "Date")

	row := 11
	for _, entry := range entries {
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), entry.Type)
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.Amount)
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.FromParty)
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), entry.ToParty)
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), entry.CreatedAt.Format("2006-01-02 15:04"))
		row++
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("escrow_statement_%d_%s.xlsx", account.BookingID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}
