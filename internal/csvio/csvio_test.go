package csvio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homeessence/internal/csvio"
	"homeessence/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(repos.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var legacy = map[string]string{
	csvio.FileClients: `ID_CLIENTE,CLIENTE,VENDEDOR,TIPO,IDADE,GENERO,PROFISSAO,CPF_CNPJ,TELEFONE,ENDERECO
CLI001,Ana Souza,Carla,Pessoa,25-34,Feminino,Professora,52998224725,11987654321,
CLI002,Hotel Sol,Carla,Empresa,,,,11222333000181,,"Rua A, 1"
CLI003,Sem Idade,,pessoa,,,,,,
,,,,,,,,,
`,
	csvio.FileProducts: `CODIGO,PRODUTO,CATEGORIA,CUSTO,VALOR,ESTOQUE
hs-hav,Home Spray 300ml,Havana,"20,00","R$ 50,00",5
DIF-LAV,Difusor de Varetas,Lavanda,30.5,"1.080,00",2.0
BAD,Sem preco,X,0,10,1
VEL-01,Vela sem categoria,,10,30,1
`,
	csvio.FileSales: `ID_VENDA,ID_CLIENTE,CLIENTE,MEIO,DATA,VALOR_TOTAL_VENDA
VND001,CLI001,Ana Souza,Pix,02/05/2024,"100,00"
VND002,CLI002,Hotel Sol,boleto,2024-05-03,
VND003,CLI999,Ghost,pix,03/05/2024,10
VND004,CLI001,Ana Souza,pix,31/02/2024,10
`,
	csvio.FileSaleItems: `ID_VENDA,PRODUTO,CATEGORIA,CODIGO,QUANTIDADE,PRECO_UNIT,PRECO_TOTAL
VND001,Home Spray 300ml,Havana,HS-HAV,2,"50,00","100,00"
VND002,Difusor de Varetas,Lavanda,DIF-LAV,3,"80,00",
VND003,x,x,HS-HAV,1,10,10
`,
}

func legacyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range legacy {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestImport_LegacyFiles(t *testing.T) {
	db := memdb(t)
	im := csvio.NewImporter(db)

	rep, err := im.Import(legacyDir(t), false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Clients)
	assert.Equal(t, 2, rep.Products)
	assert.Equal(t, 2, rep.Sales)
	assert.Equal(t, 2, rep.SaleItems)
	assert.Len(t, rep.Skipped, 6, strings.Join(rep.Skipped, "\n"))
	assert.Zero(t, rep.Merged)

	prods := repos.NewProductRepo(db)
	p, err := prods.Get("HS-HAV")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, 5, p.Stock)
	p, err = prods.Get("DIF-LAV")
	require.NoError(t, err)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1080)), p.Price.String())
	assert.True(t, p.Cost.Equal(decimal.RequireFromString("30.5")))
	assert.Equal(t, 2, p.Stock)

	c, err := repos.NewClientRepo(db).Get("CLI001")
	require.NoError(t, err)
	assert.Equal(t, "529.982.247-25", c.TaxID)
	assert.Equal(t, "(11) 98765-4321", c.Phone)
	assert.Equal(t, "2024-05-02", c.CreatedAt, "imported clients are dated by their first sale")

	clients := repos.NewClientRepo(db)
	n, err := clients.CreatedSince(time.Now().UTC().Format("2006-01") + "-01")
	require.NoError(t, err)
	assert.Zero(t, n, "legacy clients are not new this month")
	n, err = clients.CreatedSince("2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sales := repos.NewSaleRepo(db)
	s, err := sales.Get("VND001")
	require.NoError(t, err)
	assert.Equal(t, "2024-05-02", s.Date)
	assert.Equal(t, "pix", s.PaymentMethod)
	s, err = sales.Get("VND002")
	require.NoError(t, err)
	assert.True(t, s.Total.Equal(decimal.NewFromInt(240)), s.Total.String())
	require.Len(t, s.Items, 1)
	assert.True(t, s.Items[0].LineTotal.Equal(decimal.NewFromInt(240)))

	// new sales continue after the imported ids
	tx := db.MustBegin()
	id, err := sales.NextID(tx)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.Equal(t, "VND003", id)
}

func TestImport_MergesRepeatedSaleLines(t *testing.T) {
	dir := legacyDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, csvio.FileSales), []byte(`ID_VENDA,ID_CLIENTE,CLIENTE,MEIO,DATA,VALOR_TOTAL_VENDA
VND001,CLI001,Ana Souza,pix,02/05/2024,"230,00"
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, csvio.FileSaleItems), []byte(`ID_VENDA,PRODUTO,CATEGORIA,CODIGO,QUANTIDADE,PRECO_UNIT,PRECO_TOTAL
VND001,Home Spray 300ml,Havana,HS-HAV,1,"50,00","50,00"
VND001,Difusor de Varetas,Lavanda,DIF-LAV,1,"80,00","80,00"
VND001,Home Spray 300ml,Havana,hs-hav,2,"50,00","100,00"
`), 0o644))

	db := memdb(t)
	rep, err := csvio.NewImporter(db).Import(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.SaleItems)
	assert.Equal(t, 1, rep.Merged)

	s, err := repos.NewSaleRepo(db).Get("VND001")
	require.NoError(t, err)
	require.Len(t, s.Items, 2)
	assert.True(t, s.Total.Equal(s.ItemsTotal()), "total %s, lines %s", s.Total, s.ItemsTotal())
	for _, it := range s.Items {
		if it.ProductCode == "HS-HAV" {
			assert.Equal(t, 3, it.Quantity)
			assert.True(t, it.LineTotal.Equal(decimal.NewFromInt(150)), it.LineTotal.String())
			assert.True(t, it.UnitPrice.Equal(decimal.NewFromInt(50)), it.UnitPrice.String())
		}
	}

	// a forced re-run leaves the merged line as it is
	rep, err = csvio.NewImporter(db).Import(dir, true)
	require.NoError(t, err)
	assert.Zero(t, rep.SaleItems)
	s, err = repos.NewSaleRepo(db).Get("VND001")
	require.NoError(t, err)
	assert.True(t, s.Total.Equal(s.ItemsTotal()))
}

func TestImport_RunsOnceUnlessForced(t *testing.T) {
	db := memdb(t)
	im := csvio.NewImporter(db)
	dir := legacyDir(t)

	_, err := im.Import(dir, false)
	require.NoError(t, err)

	_, err = im.Import(dir, false)
	assert.ErrorIs(t, err, csvio.ErrAlreadyImported)

	rep, err := im.Import(dir, true)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Products)
	assert.Zero(t, rep.Clients)
	assert.Zero(t, rep.Sales)
	assert.Zero(t, rep.SaleItems)
}

func TestImport_MissingFiles(t *testing.T) {
	db := memdb(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, csvio.FileProducts), []byte(legacy[csvio.FileProducts]), 0o644))

	_, err := csvio.NewImporter(db).Import(dir, false)
	assert.ErrorIs(t, err, csvio.ErrMissingFiles)
	assert.Contains(t, err.Error(), csvio.FileSaleItems)

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM products`))
	assert.Zero(t, n)
}

func TestBackup_RoundTrip(t *testing.T) {
	src := memdb(t)
	_, err := csvio.NewImporter(src).Import(legacyDir(t), false)
	require.NoError(t, err)

	at := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)
	out, err := csvio.Backup(repos.NewArchiveRepo(src), t.TempDir(), at)
	require.NoError(t, err)
	assert.Equal(t, "20240601_103000", filepath.Base(out))

	raw, err := os.ReadFile(filepath.Join(out, csvio.FileSales))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "ID_VENDA,ID_CLIENTE,CLIENTE,MEIO,DATA,VALOR_TOTAL_VENDA\n"))
	assert.Contains(t, string(raw), "VND001,CLI001,Ana Souza,pix,02/05/2024,100.00")

	dst := memdb(t)
	rep, err := csvio.NewImporter(dst).Import(out, false)
	require.NoError(t, err)
	assert.Empty(t, rep.Skipped)
	assert.Equal(t, 2, rep.Clients)
	assert.Equal(t, 2, rep.Products)
	assert.Equal(t, 2, rep.Sales)
	assert.Equal(t, 2, rep.SaleItems)
}

func TestWriteSaleLines(t *testing.T) {
	var buf bytes.Buffer
	err := csvio.WriteSaleLines(&buf, []repos.SaleLine{{
		ClientID: "CLI001", ClientName: "Ana, Souza", PaymentMethod: "pix", Date: "2024-05-02",
	}})
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(csvio.SaleLinesHeader, ","), lines[0])
	assert.Contains(t, lines[1], `"Ana, Souza"`)
	assert.Contains(t, lines[1], "02/05/2024")
	assert.Contains(t, lines[1], "0.00")
}
