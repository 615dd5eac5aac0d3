package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/iamsyg/artisian-dashboard/internal/domain"
	"github.com/iamsyg/artisian-dashboard/internal/gate"
	"github.com/iamsyg/artisian-dashboard/internal/repository"
	apperrors "github.com/iamsyg/artisian-dashboard/pkg/errors"
)

const (
	catalogSheet   = "Sheet1"
	maxImportRows  = 1000
	exportPageSize = 100
)

// RowError reports why one spreadsheet row was not imported. Row is the
// 1-based row number as shown by spreadsheet applications.
type RowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportResult summarises a catalog import.
type ImportResult struct {
	Created []domain.Product `json:"created"`
	Errors  []RowError       `json:"errors"`
}

// CatalogService imports and exports product catalogs as XLSX workbooks.
type CatalogService struct {
	products *ProductService
	gate     *gate.Checker
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(products *ProductService, checker *gate.Checker, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, gate: checker, logger: logger}
}

// Import creates one product per data row of the workbook. The header row is
// skipped; columns are name, price, description and language. A failing row
// is reported and does not stop the others.
func (s *CatalogService) Import(ctx context.Context, subject string, r io.Reader) (*ImportResult, error) {
	if _, err := s.gate.Check(ctx, subject, gate.ScopeCreate, gate.Resource{Kind: "product"}); err != nil {
		return nil, err
	}

	xlsx, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.Validation("file is not a valid XLSX workbook")
	}
	defer xlsx.Close()

	sheet := catalogSheet
	if idx, _ := xlsx.GetSheetIndex(sheet); idx < 0 {
		sheets := xlsx.GetSheetList()
		if len(sheets) == 0 {
			return nil, apperrors.Validation("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := xlsx.GetRows(sheet)
	if err != nil {
		return nil, apperrors.Validation(fmt.Sprintf("could not read sheet %q", sheet))
	}
	if len(rows) > maxImportRows+1 {
		return nil, apperrors.Validation(fmt.Sprintf("at most %d products can be imported at once", maxImportRows))
	}

	result := &ImportResult{Created: []domain.Product{}, Errors: []RowError{}}
	for i, row := range rows {
		if i == 0 || blankRow(row) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		product, err := s.importRow(ctx, subject, row)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: i + 1, Error: rowErrorMessage(err)})
			continue
		}
		result.Created = append(result.Created, *product)
	}

	s.logger.InfoContext(ctx, "catalog imported",
		slog.String("sheet", sheet),
		slog.Int("created", len(result.Created)),
		slog.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func (s *CatalogService) importRow(ctx context.Context, subject string, row []string) (*domain.Product, error) {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	price, err := domain.ParsePrice(cell(1))
	if err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	fields := domain.ProductFields{
		Name:        cell(0),
		Price:       price,
		Description: cell(2),
	}
	if lang := cell(3); lang != "" {
		fields.Language = &lang
	}

	return s.products.Create(ctx, subject, &CreateProductInput{Fields: fields})
}

// Export writes the products of subject's seller as a workbook to w.
func (s *CatalogService) Export(ctx context.Context, subject string, w io.Writer) error {
	seller, err := s.gate.Check(ctx, subject, gate.ScopeProfile, gate.Resource{})
	if err != nil {
		return err
	}

	xlsx := excelize.NewFile()
	defer xlsx.Close()

	if err := xlsx.SetSheetRow(catalogSheet, "A1", &[]any{"name", "price", "description", "language", "ai_description", "image_url", "created_at"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := xlsx.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = xlsx.SetRowStyle(catalogSheet, 1, 1, style)
	}
	_ = xlsx.SetColWidth(catalogSheet, "A", "A", 32)
	_ = xlsx.SetColWidth(catalogSheet, "C", "C", 60)

	rowNum := 2
	for page := 1; ; page++ {
		products, total, err := s.products.List(ctx, repository.ProductFilter{
			SellerID: &seller.ID,
			Page:     page,
			PerPage:  exportPageSize,
		})
		if err != nil {
			return err
		}

		for _, p := range products {
			cell, err := excelize.CoordinatesToCellName(1, rowNum)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			values := []any{
				p.Name,
				p.Price.StringFixed(2),
				p.Description,
				deref(p.Language),
				deref(p.AIDescription),
				deref(p.ImageURL),
				p.CreatedAt.Format("2006-01-02 15:04:05"),
			}
			if err := xlsx.SetSheetRow(catalogSheet, cell, &values); err != nil {
				return fmt.Errorf("write row %d: %w", rowNum, err)
			}
			rowNum++
		}

		if len(products) == 0 || page*exportPageSize >= total {
			break
		}
	}

	if err := xlsx.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	s.logger.InfoContext(ctx, "catalog exported",
		slog.String("seller_id", seller.ID),
		slog.Int("rows", rowNum-2),
	)
	return nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func rowErrorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
