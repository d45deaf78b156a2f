package services

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"homeessence/internal/domain"
	"homeessence/internal/repos"
	"homeessence/internal/validate"

	"github.com/shopspring/decimal"
)

type ProductService struct {
	Prods *repos.ProductRepo
}

func NewProductService(prods *repos.ProductRepo) *ProductService {
	return &ProductService{Prods: prods}
}

// ProductInput carries raw form values.
type ProductInput struct {
	Code     string
	Name     string
	Category string
	Cost     string
	Price    string
	Stock    string
}

func (in ProductInput) parse(withStock bool) (*domain.Product, error) {
	code, ok := validate.ProductCode(in.Code)
	if !ok {
		return nil, invalid("code", "code is required (letters, digits, - or _)")
	}
	name, ok := validate.Name(in.Name)
	if !ok {
		return nil, invalid("name", "name is required")
	}
	cost, ok := validate.Money(in.Cost)
	if !ok || !cost.IsPositive() {
		return nil, invalid("cost", "cost must be greater than zero")
	}
	price, ok := validate.Money(in.Price)
	if !ok || !price.IsPositive() {
		return nil, invalid("price", "price must be greater than zero")
	}
	category, ok := validate.Name(in.Category)
	if !ok {
		return nil, invalid("category", "category is required")
	}
	p := &domain.Product{
		Code:     code,
		Name:     name,
		Category: category,
		Cost:     cost.Round(2),
		Price:    price.Round(2),
	}
	if withStock {
		if st := strings.TrimSpace(in.Stock); st != "" {
			n, err := strconv.Atoi(st)
			if err != nil || n < 0 {
				return nil, invalid("stock", "stock must be zero or a positive whole number")
			}
			p.Stock = n
		}
	}
	return p, nil
}

// Register validates and stores a new product. The code must be unique.
func (s *ProductService) Register(in ProductInput) (*domain.Product, error) {
	p, err := in.parse(true)
	if err != nil {
		return nil, err
	}
	exists, err := s.Prods.Exists(p.Code)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateCode
	}
	if err := s.Prods.Create(p); err != nil {
		if errors.Is(err, repos.ErrDuplicate) {
			return nil, ErrDuplicateCode
		}
		return nil, err
	}
	return p, nil
}

// UpdateInfo edits name, category, cost and price. Stock is untouched.
func (s *ProductService) UpdateInfo(code string, in ProductInput) (*domain.Product, error) {
	in.Code = code
	p, err := in.parse(false)
	if err != nil {
		return nil, err
	}
	if err := s.Prods.Update(p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.Get(p.Code)
}

func (s *ProductService) Get(code string) (*domain.Product, error) {
	p, err := s.Prods.Get(code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (s *ProductService) List(f repos.ProductFilter) ([]domain.Product, error) {
	return s.Prods.List(f)
}

func (s *ProductService) Categories() ([]string, error) { return s.Prods.Categories() }

// Delete removes the product. Past sale lines keep their snapshot.
func (s *ProductService) Delete(code string) error {
	err := s.Prods.Delete(code)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// Quote previews a sale line at the current price.
type Quote struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
	Stock     int             `json:"stock"`
	Enough    bool            `json:"enough"`
}

func (s *ProductService) Quote(code string, qty int) (*Quote, error) {
	p, err := s.Get(code)
	if err != nil {
		return nil, err
	}
	return &Quote{
		Code:      p.Code,
		Name:      p.Name,
		Quantity:  qty,
		UnitPrice: p.Price,
		LineTotal: p.Price.Mul(decimal.NewFromInt(int64(qty))),
		Stock:     p.Stock,
		Enough:    p.Stock >= qty,
	}, nil
}
