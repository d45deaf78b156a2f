package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCPF(t *testing.T) {
	t.Run("valid formatted", func(t *testing.T) {
		d, err := CPF("529.982.247-25")
		require.NoError(t, err)
		assert.Equal(t, "52998224725", d)
		assert.Equal(t, "529.982.247-25", FormatCPF(d))
	})
	t.Run("valid bare", func(t *testing.T) {
		_, err := CPF("52998224725")
		require.NoError(t, err)
	})
	t.Run("wrong check digit", func(t *testing.T) {
		_, err := CPF("529.982.247-24")
		assert.ErrorIs(t, err, ErrTaxIDChecksum)
	})
	t.Run("repeated digits", func(t *testing.T) {
		_, err := CPF("111.111.111-11")
		assert.ErrorIs(t, err, ErrTaxIDChecksum)
	})
	t.Run("short", func(t *testing.T) {
		_, err := CPF("5299822472")
		assert.ErrorIs(t, err, ErrTaxIDLength)
	})
}

func TestCNPJ(t *testing.T) {
	d, err := CNPJ("11.222.333/0001-81")
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", d)
	assert.Equal(t, "11.222.333/0001-81", FormatCNPJ(d))

	_, err = CNPJ("11.222.333/0001-82")
	assert.ErrorIs(t, err, ErrTaxIDChecksum)

	_, err = CNPJ("00000000000000")
	assert.ErrorIs(t, err, ErrTaxIDChecksum)

	_, err = CNPJ("52998224725")
	assert.ErrorIs(t, err, ErrTaxIDLength)
}

func TestPhone(t *testing.T) {
	p, ok := Phone("11987654321")
	require.True(t, ok)
	assert.Equal(t, "(11) 98765-4321", p)

	p, ok = Phone("(11) 3456-7890")
	require.True(t, ok)
	assert.Equal(t, "(11) 3456-7890", p)

	p, ok = Phone("  ")
	assert.True(t, ok)
	assert.Empty(t, p)

	_, ok = Phone("12345")
	assert.False(t, ok)
}

func TestMoney(t *testing.T) {
	cases := map[string]string{
		"129,90":    "129.9",
		"1.234,56":  "1234.56",
		"R$ 10":     "10",
		"10.5":      "10.5",
		"1,234.56":  "1234.56",
		"1.234.567": "1234567",
	}
	for in, want := range cases {
		got, ok := Money(in)
		require.True(t, ok, in)
		assert.Equal(t, want, got.String(), in)
	}
	_, ok := Money("abc")
	assert.False(t, ok)
	_, ok = Money("")
	assert.False(t, ok)
}

func TestDate(t *testing.T) {
	d, ok := Date("05/03/2024")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", d)

	d, ok = Date("2024-03-05")
	require.True(t, ok)
	assert.Equal(t, "2024-03-05", d)

	_, ok = Date("31/02/2024")
	assert.False(t, ok)
}

func TestProductCodeAndQty(t *testing.T) {
	c, ok := ProductCode(" hs-001 ")
	require.True(t, ok)
	assert.Equal(t, "HS-001", c)

	_, ok = ProductCode("bad code")
	assert.False(t, ok)

	n, ok := Qty("3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	_, ok = Qty("0")
	assert.False(t, ok)

	d, ok := Delta("-2")
	assert.True(t, ok)
	assert.Equal(t, -2, d)
	_, ok = Delta("0")
	assert.False(t, ok)
}

func TestOneOf(t *testing.T) {
	v, ok := OneOf("PIX", []string{"pix", "boleto"})
	assert.True(t, ok)
	assert.Equal(t, "pix", v)
	_, ok = OneOf("cheque", []string{"pix", "boleto"})
	assert.False(t, ok)
}
