package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

// Column layouts of the admin CSV files
var (
	ContactCSVHeader     = []string{"id", "name", "email", "desc", "phonenumber"}
	ContactImportHeaders = []string{"name", "email", "desc", "phonenumber"}
	OrderCSVHeader       = []string{"order_id", "items_json", "amount", "name", "email", "address1", "address2", "city", "state", "zip_code", "oid", "amountpaid", "paymentstatus", "phone"}
	OrderImportHeaders   = OrderCSVHeader[1:]
)

var ErrInvalidCSV = errors.New("invalid CSV file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// MissingHeadersError lists required columns absent from an uploaded file
type MissingHeadersError struct {
	Headers []string
}

func (e *MissingHeadersError) Error() string {
	return "missing headers: " + strings.Join(e.Headers, ", ")
}

// ImportResult counts the rows of an import
type ImportResult struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// CSVService defines bulk export and import of contacts and orders.
// Exports take an optional id subset; an empty subset exports everything.
type CSVService interface {
	ExportContacts(ctx context.Context, w io.Writer, ids []int64) error
	ImportContacts(ctx context.Context, r io.Reader) (*ImportResult, error)
	ExportOrders(ctx context.Context, w io.Writer, ids []int64) error
	ExportOrdersXLSX(ctx context.Context, w io.Writer, ids []int64) error
	ImportOrders(ctx context.Context, r io.Reader) (*ImportResult, error)
}

type csvService struct {
	contactRepo repository.ContactRepository
	orderRepo   repository.OrderRepository
	logger      *zap.Logger
}

// NewCSVService creates a new instance of CSVService
func NewCSVService(contactRepo repository.ContactRepository, orderRepo repository.OrderRepository, logger *zap.Logger) CSVService {
	return &csvService{
		contactRepo: contactRepo,
		orderRepo:   orderRepo,
		logger:      logger,
	}
}

func (s *csvService) ExportContacts(ctx context.Context, w io.Writer, ids []int64) error {
	contacts, err := s.contactRepo.List(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list contacts: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ContactCSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, c := range contacts {
		record := []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Email,
			c.Description,
			strconv.FormatInt(c.PhoneNumber, 10),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write contact %d: %w", c.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *csvService) ImportContacts(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, skipped, err := readRows(r, ContactImportHeaders, s.logger)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Skipped: skipped}
	for _, row := range rows {
		phone, err := parseIntCell(row["phonenumber"])
		if err != nil {
			result.Skipped++
			continue
		}

		contact := &domain.Contact{
			Name:        row["name"],
			Email:       row["email"],
			Description: row["desc"],
			PhoneNumber: phone,
		}
		if err := s.contactRepo.Create(ctx, contact); err != nil {
			s.logger.Debug("Skipping contact row", zap.Error(err))
			result.Skipped++
			continue
		}
		result.Created++
	}

	s.logger.Info("Contacts imported", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
	return result, nil
}

func (s *csvService) ExportOrders(ctx context.Context, w io.Writer, ids []int64) error {
	orders, err := s.orderRepo.List(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(OrderCSVHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, o := range orders {
		if err := cw.Write(orderRecord(o)); err != nil {
			return fmt.Errorf("failed to write order %d: %w", o.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportOrdersXLSX writes the order columns as a single-sheet workbook
func (s *csvService) ExportOrdersXLSX(ctx context.Context, w io.Writer, ids []int64) error {
	orders, err := s.orderRepo.List(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to list orders: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range OrderCSVHeader {
		headerRow.AddCell().SetString(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		for i, value := range orderRecord(o) {
			cell := row.AddCell()
			// order_id and amount stay numeric in the sheet
			switch i {
			case 0:
				cell.SetInt64(o.ID)
			case 2:
				cell.SetInt(o.Amount)
			default:
				cell.SetString(value)
			}
		}
	}

	if err := file.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (s *csvService) ImportOrders(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, skipped, err := readRows(r, OrderImportHeaders, s.logger)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Skipped: skipped}
	for _, row := range rows {
		amount, err := parseIntCell(row["amount"])
		if err != nil {
			result.Skipped++
			continue
		}

		order := &domain.Order{
			ItemsJSON:      row["items_json"],
			Amount:         int(amount),
			Name:           row["name"],
			Email:          row["email"],
			Address1:       row["address1"],
			Address2:       row["address2"],
			City:           row["city"],
			State:          row["state"],
			ZipCode:        row["zip_code"],
			GatewayOrderID: row["oid"],
			AmountPaid:     row["amountpaid"],
			PaymentStatus:  row["paymentstatus"],
			Phone:          row["phone"],
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			s.logger.Debug("Skipping order row", zap.Error(err))
			result.Skipped++
			continue
		}
		result.Created++
	}

	s.logger.Info("Orders imported", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
	return result, nil
}

func orderRecord(o *domain.Order) []string {
	return []string{
		strconv.FormatInt(o.ID, 10),
		o.ItemsJSON,
		strconv.Itoa(o.Amount),
		o.Name,
		o.Email,
		o.Address1,
		o.Address2,
		o.City,
		o.State,
		o.ZipCode,
		o.GatewayOrderID,
		o.AmountPaid,
		o.PaymentStatus,
		o.Phone,
	}
}

// readRows decodes a CSV upload into trimmed rows keyed by header. A leading
// byte order mark is ignored and stray quotes are kept as text. Data rows the
// reader cannot parse, such as rows whose width differs from the header, are
// counted in skipped and left out.
func readRows(r io.Reader, required []string, logger *zap.Logger) (rows []map[string]string, skipped int, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.LazyQuotes = true
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		if _, seen := index[name]; !seen {
			index[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, 0, &MissingHeadersError{Headers: missing}
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			logger.Debug("Skipping malformed CSV row", zap.Int("line", parseErr.StartLine), zap.Error(err))
			skipped++
			continue
		}
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}

		row := make(map[string]string, len(required))
		for _, name := range required {
			if i := index[name]; i < len(record) {
				row[name] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, skipped, nil
}

// parseIntCell treats an empty cell as zero
func parseIntCell(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	return strconv.ParseInt(value, 10, 64)
}
