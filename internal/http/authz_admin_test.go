package handlers_test

import (
	"net/http"
	"net/url"
	"testing"
)

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ta := newTestApp(t, 0)
	seedShop(t, ta)
	seller := ta.session(t, "u-seller")
	admin := ta.session(t, "u-admin")

	// Anonymous -> login
	resp := ta.get(t, "/products/HS-HAV/stock", "")
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("anonymous: expected redirect, got %d", resp.StatusCode)
	}

	// Seller -> 403 plus a security log line
	var code int
	entries := captureLogs(t, func() {
		code = ta.get(t, "/products/HS-HAV/stock", seller).StatusCode
	})
	if code != http.StatusForbidden {
		t.Fatalf("seller: expected 403, got %d", code)
	}
	e := findLog(entries, "access.denied.admin")
	if e == nil {
		t.Fatal("access.denied.admin log not found")
	}
	if e.Level != "warn" {
		t.Fatalf("access.denied.admin level: expected warn, got %s", e.Level)
	}
	if e.Fields["sid"] != seller {
		t.Fatalf("access.denied.admin should carry the sid, got %v", e.Fields["sid"])
	}

	// Admin -> 200
	if resp := ta.get(t, "/products/HS-HAV/stock", admin); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", resp.StatusCode)
	}
}

func TestSellerCannotDeleteOrEditExpenses(t *testing.T) {
	ta := newTestApp(t, 0)
	client := seedShop(t, ta)
	seller := ta.session(t, "u-seller")

	for _, tc := range []struct {
		path string
		form url.Values
	}{
		{"/products/HS-HAV/delete", nil},
		{"/clients/" + client.ID + "/delete", nil},
		{"/expenses/fixed", url.Values{"id": {"aluguel"}, "name": {"Aluguel"}, "value": {"1500"}}},
		{"/products/HS-HAV/stock", url.Values{"delta": {"10"}}},
	} {
		resp := ta.post(t, tc.path, seller, tc.form)
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("%s: expected 403 for seller, got %d", tc.path, resp.StatusCode)
		}
	}
	if got := stockOf(t, ta, "HS-HAV"); got != 5 {
		t.Fatalf("stock changed by a forbidden request: %d", got)
	}
	if _, err := ta.deps.Clients.Get(client.ID); err != nil {
		t.Fatalf("client removed by a forbidden request: %v", err)
	}
}

func TestAdminDeletesProductAndClient(t *testing.T) {
	ta := newTestApp(t, 0)
	client := seedShop(t, ta)
	admin := ta.session(t, "u-admin")

	if resp := ta.post(t, "/products/HS-HAV/delete", admin, nil); resp.StatusCode != http.StatusFound {
		t.Fatalf("delete product: expected redirect, got %d", resp.StatusCode)
	}
	if resp := ta.get(t, "/products/HS-HAV/edit", admin); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted product: expected 404, got %d", resp.StatusCode)
	}
	if resp := ta.post(t, "/clients/"+client.ID+"/delete", admin, nil); resp.StatusCode != http.StatusFound {
		t.Fatalf("delete client: expected redirect, got %d", resp.StatusCode)
	}
	if resp := ta.get(t, "/clients/"+client.ID, admin); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted client: expected 404, got %d", resp.StatusCode)
	}
}
