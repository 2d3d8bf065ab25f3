package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/weddia/escrow-api/internal/repository"
)

// DocumentService renders contracts and escrow statements as PDFs.
type DocumentService struct {
	contractRepo    repository.ContractRepository
	escrowRepo      repository.EscrowRepository
	transactionRepo repository.TransactionRepository
}

func NewDocumentService(
	contractRepo repository.ContractRepository,
	escrowRepo repository.EscrowRepository,
	transactionRepo repository.TransactionRepository,
) *DocumentService {
	return &DocumentService{
		contractRepo:    contractRepo,
		escrowRepo:      escrowRepo,
		transactionRepo: transactionRepo,
	}
}

// ContractPDF renders a contract with its milestone schedule and
// signature block.
func (s *DocumentService) ContractPDF(ctx context.Context, contractID uint) ([]byte, string, error) {
	contract, err := s.contractRepo.FindByID(ctx, contractID)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Contract %s", contract.ContractNumber))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 8, "Booking:")
	pdf.Cell(40, 8, fmt.Sprintf("%d", contract.BookingID))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Total Amount:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f USD", contract.TotalAmount))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Status:")
	pdf.Cell(40, 8, contract.Status)
	pdf.Ln(6)
	if contract.EventDate != nil {
		pdf.Cell(60, 8, "Event Date:")
		pdf.Cell(40, 8, contract.EventDate.Format("2006-01-02"))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Terms")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(0, 5, contract.Body, "", "L", false)
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Payment Schedule")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	for _, m := range contract.Milestones {
		pdf.Cell(10, 8, fmt.Sprintf("%d.", m.MilestoneNumber))
		pdf.Cell(70, 8, m.Title)
		pdf.Cell(30, 8, fmt.Sprintf("%.2f%%", m.PaymentPercentage))
		pdf.Cell(30, 8, fmt.Sprintf("%.2f", m.PaymentAmount))
		pdf.Cell(30, 8, m.DueDate.Format("2006-01-02"))
		pdf.Ln(6)
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Signatures")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 8, "Customer:")
	pdf.Cell(40, 8, signedLabel(contract.CustomerSigned, contract.CustomerSignedAt))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Vendor:")
	pdf.Cell(40, 8, signedLabel(contract.VendorSigned, contract.VendorSignedAt))
	pdf.Ln(6)

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("contract_%s.pdf", contract.ContractNumber)
	return buf.Bytes(), filename, nil
}

// EscrowStatementPDF renders an account's balances and transaction log.
func (s *DocumentService) EscrowStatementPDF(ctx context.Context, escrowAccountID uint) ([]byte, string, error) {
	account, err := s.escrowRepo.FindByID(ctx, escrowAccountID)
	if err != nil {
		return nil, "", err
	}
	entries, err := s.transactionRepo.FindByEscrowAccountID(ctx, escrowAccountID)
	if err != nil {
		return nil, "", err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, fmt.Sprintf("Escrow Statement - Booking %d", account.BookingID))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(60, 8, "Status:")
	pdf.Cell(40, 8, account.Status)
	pdf.Ln(6)
	pdf.Cell(60, 8, "Total Amount:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", account.TotalAmount))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Released:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", account.ReleasedAmount))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Refunded:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", account.RefundedAmount))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Commission:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", account.CommissionAmount))
	pdf.Ln(6)
	pdf.Cell(60, 8, "Remaining:")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", account.RemainingBalance()))
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(40, 10, "Transactions")
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 9)
	for _, entry := range entries {
		pdf.Cell(35, 6, entry.CreatedAt.Format("2006-01-02 15:04"))
		pdf.Cell(30, 6, entry.Type)
		pdf.Cell(30, 6, fmt.Sprintf("%.2f", entry.Amount))
		pdf.Cell(40, 6, fmt.Sprintf("%s -> %s", entry.FromParty, entry.ToParty))
		pdf.Ln(5)
	}

	buf := new(bytes.Buffer)
	if err := pdf.Output(buf); err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("escrow_statement_%d_%s.pdf", account.BookingID, time.Now().Format("2006-01-02"))
	return buf.Bytes(), filename, nil
}

func signedLabel(signed bool, at *time.Time) string {
	if !signed || at == nil {
		return "pending"
	}
	return "signed " + at.Format("2006-01-02 15:04")
}
