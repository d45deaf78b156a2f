package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"homeessence/internal/domain"
	applog "homeessence/internal/log"
	"homeessence/internal/repos"
)

// Backup writes the four tables under dir/<timestamp>/ with the legacy
// headers, so the folder can be fed back to Import. It returns that folder.
func Backup(archive *repos.ArchiveRepo, dir string, now time.Time) (string, error) {
	out := filepath.Join(dir, now.Format("20060102_150405"))
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", err
	}

	products, err := archive.Products()
	if err != nil {
		return "", err
	}
	clients, err := archive.Clients()
	if err != nil {
		return "", err
	}
	sales, err := archive.Sales()
	if err != nil {
		return "", err
	}
	items, err := archive.Items()
	if err != nil {
		return "", err
	}

	files := []struct {
		name string
		fn   func(io.Writer) error
	}{
		{FileProducts, func(w io.Writer) error { return WriteProducts(w, products) }},
		{FileClients, func(w io.Writer) error { return WriteClients(w, clients) }},
		{FileSales, func(w io.Writer) error { return WriteSales(w, sales) }},
		{FileSaleItems, func(w io.Writer) error { return WriteSaleItems(w, items) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(out, f.name), f.fn); err != nil {
			return "", fmt.Errorf("%s: %w", f.name, err)
		}
	}
	applog.Info(nil, "csv.backup", map[string]any{
		"dir": out, "products": len(products), "clients": len(clients), "sales": len(sales), "sale_items": len(items),
	})
	return out, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// legacyDate renders an ISO date as DD/MM/YYYY; anything else passes through.
func legacyDate(iso string) string {
	t, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	return t.Format("02/01/2006")
}

func writeAll(w io.Writer, header []string, n int, rec func(i int) []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(rec(i)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteProducts(w io.Writer, ps []domain.Product) error {
	return writeAll(w, ProductHeader, len(ps), func(i int) []string {
		p := ps[i]
		return []string{p.Code, p.Name, p.Category, p.Cost.StringFixed(2), p.Price.StringFixed(2), strconv.Itoa(p.Stock)}
	})
}

func WriteClients(w io.Writer, cs []domain.Client) error {
	return writeAll(w, ClientHeader, len(cs), func(i int) []string {
		c := cs[i]
		return []string{c.ID, c.Name, c.Salesperson, string(c.Type), c.AgeRange, c.Gender, c.Profession, c.TaxID, c.Phone, c.Address}
	})
}

func WriteSales(w io.Writer, ss []domain.Sale) error {
	return writeAll(w, SaleHeader, len(ss), func(i int) []string {
		s := ss[i]
		return []string{s.ID, s.ClientID, s.ClientName, s.PaymentMethod, legacyDate(s.Date), s.Total.StringFixed(2)}
	})
}

func WriteSaleItems(w io.Writer, items []domain.SaleItem) error {
	return writeAll(w, SaleItemHeader, len(items), func(i int) []string {
		it := items[i]
		return []string{it.SaleID, it.ProductName, it.Category, it.ProductCode, strconv.Itoa(it.Quantity), it.UnitPrice.StringFixed(2), it.LineTotal.StringFixed(2)}
	})
}

// SaleLinesHeader is the flat export of sale lines joined with their sale.
var SaleLinesHeader = []string{"ID_VENDA", "DATA", "ID_CLIENTE", "CLIENTE", "MEIO", "CODIGO", "PRODUTO", "CATEGORIA", "QUANTIDADE", "PRECO_UNIT", "PRECO_TOTAL"}

func WriteSaleLines(w io.Writer, lines []repos.SaleLine) error {
	return writeAll(w, SaleLinesHeader, len(lines), func(i int) []string {
		l := lines[i]
		return []string{
			l.SaleID, legacyDate(l.Date), l.ClientID, l.ClientName, l.PaymentMethod,
			l.ProductCode, l.ProductName, l.Category, strconv.Itoa(l.Quantity),
			l.UnitPrice.StringFixed(2), l.LineTotal.StringFixed(2),
		}
	})
}
