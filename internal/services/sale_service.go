package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"homeessence/internal/domain"
	"homeessence/internal/metrics"
	"homeessence/internal/repos"
	"homeessence/internal/validate"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type SaleService struct {
	DB      *sqlx.DB
	Clients *repos.ClientRepo
	Prods   *repos.ProductRepo
	Inv     *repos.InventoryRepo
	Sales   *repos.SaleRepo
	Now     func() time.Time
}

func NewSaleService(db *sqlx.DB, clients *repos.ClientRepo, prods *repos.ProductRepo, inv *repos.InventoryRepo, sales *repos.SaleRepo) *SaleService {
	return &SaleService{DB: db, Clients: clients, Prods: prods, Inv: inv, Sales: sales, Now: time.Now}
}

type SaleLineInput struct {
	Code      string
	Quantity  int
	UnitPrice *decimal.Decimal // nil means current product price
}

type SaleInput struct {
	ClientID      string
	PaymentMethod string
	Date          string // YYYY-MM-DD or DD/MM/YYYY; empty means today
	Lines         []SaleLineInput
}

// mergeLines folds repeated product codes into one line. The first explicit
// unit price wins.
func mergeLines(lines []SaleLineInput) ([]SaleLineInput, error) {
	var out []SaleLineInput
	idx := map[string]int{}
	for _, l := range lines {
		code, ok := validate.ProductCode(l.Code)
		if !ok {
			if strings.TrimSpace(l.Code) == "" && l.Quantity == 0 {
				continue // blank form row
			}
			return nil, invalid("lines", fmt.Sprintf("invalid product code %q", l.Code))
		}
		if l.Quantity <= 0 {
			return nil, invalid("lines", fmt.Sprintf("quantity for %s must be at least 1", code))
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return nil, invalid("lines", fmt.Sprintf("unit price for %s must not be negative", code))
		}
		if i, seen := idx[code]; seen {
			out[i].Quantity += l.Quantity
			if out[i].UnitPrice == nil {
				out[i].UnitPrice = l.UnitPrice
			}
			continue
		}
		l.Code = code
		idx[code] = len(out)
		out = append(out, l)
	}
	if len(out) == 0 {
		return nil, invalid("lines", "add at least one product")
	}
	return out, nil
}

// Register records a sale: it validates the client and every product,
// checks stock for every line, then writes the sale, its lines and the
// stock decrements in one transaction. Any failure rolls everything back.
func (s *SaleService) Register(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	sale, err := s.register(ctx, in)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			metrics.SalesFailed.WithLabelValues("validation").Inc()
		case errors.Is(err, ErrInsufficientStock):
			metrics.SalesFailed.WithLabelValues("stock").Inc()
		default:
			metrics.SalesFailed.WithLabelValues("db").Inc()
		}
		return nil, err
	}
	metrics.SalesRegistered.Inc()
	metrics.Revenue.Add(sale.Total.InexactFloat64())
	return sale, nil
}

func (s *SaleService) register(ctx context.Context, in SaleInput) (*domain.Sale, error) {
	clientID, ok := validate.ID(in.ClientID)
	if !ok {
		return nil, invalid("client_id", "choose a client")
	}
	payment, ok := validate.OneOf(in.PaymentMethod, domain.PaymentMethods)
	if !ok {
		return nil, invalid("payment_method", "choose a payment method")
	}
	date := s.Now().Format("2006-01-02")
	if strings.TrimSpace(in.Date) != "" {
		if date, ok = validate.Date(in.Date); !ok {
			return nil, invalid("date", "date must be DD/MM/YYYY")
		}
	}
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, err
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	client, err := s.Clients.GetTx(tx, clientID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, invalid("client_id", "client "+clientID+" not found")
	}
	if err != nil {
		return nil, err
	}

	sale := &domain.Sale{ClientID: client.ID, ClientName: client.Name, PaymentMethod: payment, Date: date}
	for _, l := range lines {
		p, err := s.Prods.GetTx(tx, l.Code)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalid("lines", "product "+l.Code+" not found")
		}
		if err != nil {
			return nil, err
		}
		if p.Stock < l.Quantity {
			return nil, &StockError{Code: p.Code, Requested: l.Quantity, Available: p.Stock}
		}
		unit := p.Price
		if l.UnitPrice != nil {
			unit = l.UnitPrice.Round(2)
		}
		sale.Items = append(sale.Items, domain.SaleItem{
			ProductCode: p.Code,
			ProductName: p.Name,
			Category:    p.Category,
			Quantity:    l.Quantity,
			UnitPrice:   unit,
			LineTotal:   unit.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		})
	}
	sale.Total = sale.ItemsTotal()

	if sale.ID, err = s.Sales.NextID(tx); err != nil {
		return nil, err
	}
	if err := s.Sales.Insert(tx, sale); err != nil {
		return nil, err
	}
	for i := range sale.Items {
		it := &sale.Items[i]
		it.SaleID = sale.ID
		if err := s.Sales.InsertItem(tx, *it); err != nil {
			return nil, err
		}
		if err := s.Inv.Decrement(tx, it.ProductCode, it.Quantity); err != nil {
			if errors.Is(err, repos.ErrInsufficientStock) {
				return nil, &StockError{Code: it.ProductCode, Requested: it.Quantity}
			}
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sale, nil
}

// CancelResult reports the products whose stock could not be returned
// because they were deleted after the sale.
type CancelResult struct {
	Sale    *domain.Sale
	Skipped []string
}

// Cancel deletes a sale and its lines. With restoreStock the sold
// quantities go back to products that still exist.
func (s *SaleService) Cancel(ctx context.Context, id string, restoreStock bool) (*CancelResult, error) {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	sale, err := s.Sales.GetTx(tx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	res := &CancelResult{Sale: sale}
	// sales before products, the same order Register locks them in
	if err := s.Sales.Delete(tx, id); err != nil {
		return nil, err
	}
	if restoreStock {
		for _, it := range sale.Items {
			ok, err := s.Inv.Restore(tx, it.ProductCode, it.Quantity)
			if err != nil {
				return nil, err
			}
			if !ok {
				res.Skipped = append(res.Skipped, it.ProductCode)
			}
		}
	}
	return res, tx.Commit()
}

func (s *SaleService) Get(id string) (*domain.Sale, error) {
	sale, err := s.Sales.Get(id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return sale, err
}

func (s *SaleService) List(f repos.SaleFilter) ([]domain.Sale, error) {
	return s.Sales.List(f)
}
