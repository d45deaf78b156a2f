package handlers_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestProductFormValidation(t *testing.T) {
	ta := newTestApp(t, 0)
	seedShop(t, ta)
	sid := ta.session(t, "u-seller")

	cases := []struct {
		form url.Values
		want int
	}{
		{url.Values{"code": {"VELA-01"}, "name": {""}, "cost": {"10"}, "price": {"30"}}, http.StatusBadRequest},
		{url.Values{"code": {"VELA-01"}, "name": {"Vela"}, "cost": {"0"}, "price": {"30"}}, http.StatusBadRequest},
		{url.Values{"code": {"VELA-01"}, "name": {"Vela"}, "cost": {"10"}, "price": {"abc"}}, http.StatusBadRequest},
		{url.Values{"code": {"<script>"}, "name": {"Vela"}, "cost": {"10"}, "price": {"30"}}, http.StatusBadRequest},
		{url.Values{"code": {"VELA-01"}, "name": {"Vela"}, "category": {""}, "cost": {"10"}, "price": {"30"}}, http.StatusBadRequest},
		{url.Values{"code": {"HS-HAV"}, "name": {"Outro"}, "category": {"Havana"}, "cost": {"10"}, "price": {"30"}}, http.StatusConflict},
	}
	for _, tc := range cases {
		resp := ta.post(t, "/products", sid, tc.form)
		if resp.StatusCode != tc.want {
			t.Fatalf("%v: expected %d, got %d", tc.form, tc.want, resp.StatusCode)
		}
	}

	resp := ta.post(t, "/products", sid, url.Values{"code": {"vela-01"}, "name": {"Vela Aromática"}, "category": {"Baunilha"}, "cost": {"12,50"}, "price": {"39,90"}, "stock": {"4"}})
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("valid product: expected redirect, got %d", resp.StatusCode)
	}
	p, err := ta.deps.Products.Get("VELA-01")
	if err != nil {
		t.Fatalf("product code should be stored upper case: %v", err)
	}
	if p.Price.StringFixed(2) != "39.90" || p.Stock != 4 {
		t.Fatalf("unexpected product: %+v", p)
	}

	if resp := ta.get(t, "/products?q="+url.QueryEscape("<script>alert(1)</script>"), sid); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad search: expected 400, got %d", resp.StatusCode)
	}
}

func TestClientFormValidatesTaxIDs(t *testing.T) {
	ta := newTestApp(t, 0)
	sid := ta.session(t, "u-seller")

	person := url.Values{"name": {"João Lima"}, "type": {"pessoa"}, "age_range": {"35-44"}, "gender": {"Masculino"}}
	bad := url.Values{}
	for k, v := range person {
		bad[k] = v
	}
	bad.Set("tax_id", "111.111.111-11")
	resp := ta.post(t, "/clients", sid, bad)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid CPF: expected 400, got %d", resp.StatusCode)
	}
	if b := body(t, resp); !strings.Contains(b, "invalid CPF") {
		t.Fatalf("CPF error missing; body=%s", b)
	}

	person.Set("tax_id", "52998224725")
	resp = ta.post(t, "/clients", sid, person)
	if resp.StatusCode != http.StatusFound || !strings.HasPrefix(resp.Header.Get("Location"), "/clients/") {
		t.Fatalf("valid CPF: expected redirect to the client, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	// same CPF twice
	resp = ta.post(t, "/clients", sid, person)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("duplicate CPF: expected 400, got %d", resp.StatusCode)
	}

	company := url.Values{"name": {"Spa Aroma Ltda"}, "type": {"empresa"}, "tax_id": {"11.222.333/0001-81"}}
	if resp := ta.post(t, "/clients", sid, company); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("company without address: expected 400, got %d", resp.StatusCode)
	}
	company.Set("address", "Rua das Flores, 10")
	if resp := ta.post(t, "/clients", sid, company); resp.StatusCode != http.StatusFound {
		t.Fatalf("valid company: expected redirect, got %d", resp.StatusCode)
	}
}
