// Package csvio moves data between the database and the legacy CSV files
// (products.csv, clients.csv, sales.csv, sales_items.csv).
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"homeessence/internal/domain"
	applog "homeessence/internal/log"
	"homeessence/internal/repos"
	"homeessence/internal/validate"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// MigrationName is recorded in the migrations table once an import commits.
const MigrationName = "csv_import_v1"

const (
	FileProducts  = "products.csv"
	FileClients   = "clients.csv"
	FileSales     = "sales.csv"
	FileSaleItems = "sales_items.csv"
)

var (
	ErrAlreadyImported = errors.New("csv import already applied (use --force to run again)")
	ErrMissingFiles    = errors.New("missing csv files")
)

// Legacy headers, one per column, in file order.
var (
	ProductHeader  = []string{"CODIGO", "PRODUTO", "CATEGORIA", "CUSTO", "VALOR", "ESTOQUE"}
	ClientHeader   = []string{"ID_CLIENTE", "CLIENTE", "VENDEDOR", "TIPO", "IDADE", "GENERO", "PROFISSAO", "CPF_CNPJ", "TELEFONE", "ENDERECO"}
	SaleHeader     = []string{"ID_VENDA", "ID_CLIENTE", "CLIENTE", "MEIO", "DATA", "VALOR_TOTAL_VENDA"}
	SaleItemHeader = []string{"ID_VENDA", "PRODUTO", "CATEGORIA", "CODIGO", "QUANTIDADE", "PRECO_UNIT", "PRECO_TOTAL"}
)

type Importer struct {
	DB      *sqlx.DB
	Archive *repos.ArchiveRepo
}

func NewImporter(db *sqlx.DB) *Importer {
	return &Importer{DB: db, Archive: repos.NewArchiveRepo(db)}
}

// Report counts inserted rows per file and lists rejected ones.
type Report struct {
	Products  int
	Clients   int
	Sales     int
	SaleItems int
	// Merged counts sale lines folded into an earlier line of the same
	// sale and product.
	Merged  int
	Skipped []string
}

func (r *Report) skip(file string, line int, format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf("%s:%d: %s", file, line, fmt.Sprintf(format, args...)))
}

// Import reads the four files from dir in one transaction: clients,
// products, sales, then sale lines. Rows that break the data rules are
// skipped and reported; a database error aborts everything.
func (im *Importer) Import(dir string, force bool) (*Report, error) {
	var missing []string
	for _, f := range []string{FileProducts, FileClients, FileSales, FileSaleItems} {
		if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(missing, ", "))
	}

	tx, err := im.DB.Beginx()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	done, err := im.Archive.Applied(tx, MigrationName)
	if err != nil {
		return nil, err
	}
	if done && !force {
		return nil, ErrAlreadyImported
	}

	rep := &Report{}
	steps := []struct {
		file string
		fn   func(*sqlx.Tx, *Report, []row) error
	}{
		{FileClients, im.clients},
		{FileProducts, im.products},
		{FileSales, im.sales},
		{FileSaleItems, im.items},
	}
	for _, st := range steps {
		rows, err := readFile(filepath.Join(dir, st.file))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", st.file, err)
		}
		if err := st.fn(tx, rep, rows); err != nil {
			return nil, fmt.Errorf("%s: %w", st.file, err)
		}
	}
	if err := im.Archive.FillTotals(tx); err != nil {
		return nil, err
	}
	if err := im.Archive.FillClientSince(tx); err != nil {
		return nil, err
	}
	if err := im.Archive.MarkApplied(tx, MigrationName); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	applog.Info(nil, "csv.import", map[string]any{
		"clients": rep.Clients, "products": rep.Products, "sales": rep.Sales,
		"sale_items": rep.SaleItems, "merged": rep.Merged, "skipped": len(rep.Skipped),
	})
	return rep, nil
}

// row is one CSV record keyed by upper-case header.
type row struct {
	line int
	v    map[string]string
}

func (r row) get(k string) string { return strings.TrimSpace(r.v[k]) }

func readFile(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readRows(f)
}

func readRows(in io.Reader) ([]row, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i, h := range header {
		header[i] = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}
	var out []row
	line := 1
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		line++
		if err != nil {
			return nil, err
		}
		v := make(map[string]string, len(header))
		blank := true
		for i, h := range header {
			if i < len(rec) {
				v[h] = rec[i]
				if strings.TrimSpace(rec[i]) != "" {
					blank = false
				}
			}
		}
		if !blank {
			out = append(out, row{line: line, v: v})
		}
	}
}

// amount parses legacy money columns; empty means zero.
func amount(s string) (decimal.Decimal, bool) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, true
	}
	d, ok := validate.Money(s)
	return d.Round(2), ok
}

// whole parses legacy integer columns, which sometimes carry "3.0" or "3,0".
func whole(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	d, err := decimal.NewFromString(strings.Replace(s, ",", ".", 1))
	if err != nil {
		return 0, false
	}
	return int(d.IntPart()), true
}

func (im *Importer) clients(tx *sqlx.Tx, rep *Report, rows []row) error {
	for _, r := range rows {
		id, ok := validate.ID(r.get("ID_CLIENTE"))
		if !ok {
			rep.skip(FileClients, r.line, "missing ID_CLIENTE")
			continue
		}
		name, ok := validate.Name(r.get("CLIENTE"))
		if !ok {
			rep.skip(FileClients, r.line, "missing CLIENTE")
			continue
		}
		c := &domain.Client{
			ID:          id,
			Name:        name,
			Salesperson: r.get("VENDEDOR"),
			Type:        legacyType(r.get("TIPO")),
			Profession:  r.get("PROFISSAO"),
			TaxID:       r.get("CPF_CNPJ"),
			Phone:       r.get("TELEFONE"),
			Address:     r.get("ENDERECO"),
		}
		if c.IsCompany() {
			if c.TaxID == "" || c.Address == "" {
				rep.skip(FileClients, r.line, "company %s needs CPF_CNPJ and ENDERECO", id)
				continue
			}
			if d, err := validate.CNPJ(c.TaxID); err == nil {
				c.TaxID = validate.FormatCNPJ(d)
			}
		} else {
			c.AgeRange = r.get("IDADE")
			c.Gender = r.get("GENERO")
			if c.AgeRange == "" || c.Gender == "" {
				rep.skip(FileClients, r.line, "person %s needs IDADE and GENERO", id)
				continue
			}
			if d, err := validate.CPF(c.TaxID); err == nil {
				c.TaxID = validate.FormatCPF(d)
			}
		}
		if p, ok := validate.Phone(c.Phone); ok {
			c.Phone = p
		}
		ok, err := im.Archive.InsertClient(tx, c)
		if err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
		if ok {
			rep.Clients++
		}
	}
	return nil
}

func legacyType(s string) domain.ClientType {
	s = strings.ToLower(s)
	if strings.Contains(s, "empresa") || s == "pj" {
		return domain.ClientCompany
	}
	return domain.ClientPerson
}

func (im *Importer) products(tx *sqlx.Tx, rep *Report, rows []row) error {
	for _, r := range rows {
		code, ok := validate.ProductCode(r.get("CODIGO"))
		if !ok {
			rep.skip(FileProducts, r.line, "bad CODIGO %q", r.get("CODIGO"))
			continue
		}
		name, ok := validate.Name(r.get("PRODUTO"))
		if !ok {
			rep.skip(FileProducts, r.line, "missing PRODUTO")
			continue
		}
		cost, okCost := amount(r.get("CUSTO"))
		price, okPrice := amount(r.get("VALOR"))
		if !okCost || !okPrice || !cost.IsPositive() || !price.IsPositive() {
			rep.skip(FileProducts, r.line, "%s needs positive CUSTO and VALOR", code)
			continue
		}
		category, ok := validate.Name(r.get("CATEGORIA"))
		if !ok {
			rep.skip(FileProducts, r.line, "%s needs CATEGORIA", code)
			continue
		}
		stock, ok := whole(r.get("ESTOQUE"))
		if !ok || stock < 0 {
			rep.skip(FileProducts, r.line, "%s has bad ESTOQUE %q", code, r.get("ESTOQUE"))
			continue
		}
		p := &domain.Product{Code: code, Name: name, Category: category, Cost: cost, Price: price, Stock: stock}
		if err := im.Archive.UpsertProduct(tx, p); err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
		rep.Products++
	}
	return nil
}

func (im *Importer) sales(tx *sqlx.Tx, rep *Report, rows []row) error {
	clients, err := im.Archive.IDs(tx, "clients")
	if err != nil {
		return err
	}
	for _, r := range rows {
		id, ok := validate.ID(r.get("ID_VENDA"))
		if !ok {
			rep.skip(FileSales, r.line, "missing ID_VENDA")
			continue
		}
		clientID := r.get("ID_CLIENTE")
		if !clients[clientID] {
			rep.skip(FileSales, r.line, "%s references unknown client %q", id, clientID)
			continue
		}
		date, ok := validate.Date(r.get("DATA"))
		if !ok {
			rep.skip(FileSales, r.line, "%s has bad DATA %q", id, r.get("DATA"))
			continue
		}
		total, ok := amount(r.get("VALOR_TOTAL_VENDA"))
		if !ok || total.IsNegative() {
			rep.skip(FileSales, r.line, "%s has bad VALOR_TOTAL_VENDA", id)
			continue
		}
		s := &domain.Sale{
			ID:            id,
			ClientID:      clientID,
			ClientName:    r.get("CLIENTE"),
			PaymentMethod: strings.ToLower(r.get("MEIO")),
			Date:          date,
			Total:         total,
		}
		ok, err := im.Archive.InsertSale(tx, s)
		if err != nil {
			return fmt.Errorf("line %d: %w", r.line, err)
		}
		if ok {
			rep.Sales++
		}
	}
	return nil
}

// items folds repeated (sale, product) rows into one line before writing,
// since a sale holds one line per product.
func (im *Importer) items(tx *sqlx.Tx, rep *Report, rows []row) error {
	sales, err := im.Archive.IDs(tx, "sales")
	if err != nil {
		return err
	}
	type pending struct {
		item *domain.SaleItem
		line int
	}
	var lines []pending
	seen := map[string]*domain.SaleItem{}
	for _, r := range rows {
		saleID := r.get("ID_VENDA")
		if !sales[saleID] {
			rep.skip(FileSaleItems, r.line, "unknown sale %q", saleID)
			continue
		}
		code, ok := validate.ProductCode(r.get("CODIGO"))
		if !ok {
			rep.skip(FileSaleItems, r.line, "bad CODIGO %q", r.get("CODIGO"))
			continue
		}
		qty, ok := whole(r.get("QUANTIDADE"))
		if !ok || qty <= 0 {
			rep.skip(FileSaleItems, r.line, "%s/%s needs a positive QUANTIDADE", saleID, code)
			continue
		}
		unit, okUnit := amount(r.get("PRECO_UNIT"))
		lineTotal, okTotal := amount(r.get("PRECO_TOTAL"))
		if !okUnit || !okTotal || unit.IsNegative() || lineTotal.IsNegative() {
			rep.skip(FileSaleItems, r.line, "%s/%s has bad prices", saleID, code)
			continue
		}
		q := decimal.NewFromInt(int64(qty))
		switch {
		case lineTotal.IsZero():
			lineTotal = unit.Mul(q).Round(2)
		case unit.IsZero():
			unit = lineTotal.Div(q).Round(2)
		}
		key := saleID + "|" + code
		if prev, dup := seen[key]; dup {
			prev.Quantity += qty
			prev.LineTotal = prev.LineTotal.Add(lineTotal)
			prev.UnitPrice = prev.LineTotal.Div(decimal.NewFromInt(int64(prev.Quantity))).Round(2)
			rep.Merged++
			continue
		}
		it := &domain.SaleItem{
			SaleID:      saleID,
			ProductCode: code,
			ProductName: r.get("PRODUTO"),
			Category:    r.get("CATEGORIA"),
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   lineTotal,
		}
		seen[key] = it
		lines = append(lines, pending{item: it, line: r.line})
	}
	for _, l := range lines {
		ok, err := im.Archive.InsertItem(tx, l.item)
		if err != nil {
			return fmt.Errorf("line %d: %w", l.line, err)
		}
		if ok {
			rep.SaleItems++
		}
	}
	return nil
}
