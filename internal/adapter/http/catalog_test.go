package http_test

import (
	"encoding/json"
	"net/http"
	"testing"

	adapter "github.com/zrclouddev-oss/saas-starter-vue/internal/adapter/http"
)

func TestListPlans_Seeded(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodGet, srv.URL+"/api/v1/plans", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	var plans []adapter.PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&plans); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(plans) != 4 {
		t.Fatalf("got %d plans, want 4 seeded", len(plans))
	}
	if plans[0].Slug != "free" {
		t.Errorf("first plan = %q, want free (cheapest first)", plans[0].Slug)
	}
}

func TestPlanLifecycle(t *testing.T) {
	srv := newTestServer(t)

	// Create a feature to attach.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/features",
		`{"name":"Seats","code":"seats","description":"Number of seats"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create feature: status = %d", resp.StatusCode)
	}
	var feature adapter.FeatureResponse
	if err := json.NewDecoder(resp.Body).Decode(&feature); err != nil {
		t.Fatalf("decode feature: %v", err)
	}
	resp.Body.Close()

	body := `{"name":"Team","slug":"team","price_cents":4900,"features":[{"feature_id":` +
		jsonInt(feature.ID) + `,"value":"25"}]}`
	resp = doRequest(t, http.MethodPost, srv.URL+"/api/v1/plans", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create plan: status = %d", resp.StatusCode)
	}

	var plan adapter.PlanResponse
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		t.Fatalf("decode plan: %v", err)
	}

	if plan.PriceCents != 4900 {
		t.Errorf("PriceCents = %d, want 4900", plan.PriceCents)
	}
	if len(plan.Features) != 1 || plan.Features[0].Code != "seats" || *plan.Features[0].Value != "25" {
		t.Errorf("Features = %v, want seats=25", plan.Features)
	}

	// Defaults applied by the API schema.
	if plan.Currency != "USD" || plan.DurationDays != 30 {
		t.Errorf("defaults: currency=%q duration=%d, want USD/30", plan.Currency, plan.DurationDays)
	}

	// Retire it and confirm it disappears from the catalog.
	del := doRequest(t, http.MethodDelete, srv.URL+"/api/v1/plans/"+jsonInt(plan.ID), "")
	del.Body.Close()
	if del.StatusCode != http.StatusNoContent {
		t.Fatalf("delete plan: status = %d, want %d", del.StatusCode, http.StatusNoContent)
	}

	get := doRequest(t, http.MethodGet, srv.URL+"/api/v1/plans/"+jsonInt(plan.ID), "")
	defer get.Body.Close()
	if get.StatusCode != http.StatusNotFound {
		t.Errorf("get retired plan: status = %d, want %d", get.StatusCode, http.StatusNotFound)
	}
}

func TestCreatePlan_DuplicateSlug(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/plans", `{"name":"Free Again","slug":"free","price_cents":0}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusConflict)
	}
}

func TestSubscriptions(t *testing.T) {
	srv := newTestServer(t)
	tenant := mustCreateTenant(t, srv, "Acme", "acme")

	// Plan 2 is the seeded starter plan.
	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants/"+tenant.ID+"/subscriptions",
		`{"plan_id":2}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create subscription: status = %d", resp.StatusCode)
	}

	var sub adapter.SubscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sub.Quantity != 1 {
		t.Errorf("Quantity = %d, want default 1", sub.Quantity)
	}

	resp2 := doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants/"+tenant.ID+"/subscriptions",
		`{"plan_id":3,"quantity":5}`)
	resp2.Body.Close()

	cur := doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenants/"+tenant.ID+"/subscriptions/current", "")
	defer cur.Body.Close()

	var current adapter.SubscriptionResponse
	if err := json.NewDecoder(cur.Body).Decode(&current); err != nil {
		t.Fatalf("decode current: %v", err)
	}
	if current.PlanID != 3 || current.Quantity != 5 {
		t.Errorf("current = plan %d qty %d, want plan 3 qty 5", current.PlanID, current.Quantity)
	}

	list := doRequest(t, http.MethodGet, srv.URL+"/api/v1/tenants/"+tenant.ID+"/subscriptions", "")
	defer list.Body.Close()

	var subs []adapter.SubscriptionResponse
	if err := json.NewDecoder(list.Body).Decode(&subs); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(subs) != 2 {
		t.Errorf("got %d subscriptions, want 2", len(subs))
	}
}

func TestSubscriptions_UnknownTenant(t *testing.T) {
	srv := newTestServer(t)

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants/nonexistent/subscriptions", `{"plan_id":1}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestSubscriptions_UnknownPlan(t *testing.T) {
	srv := newTestServer(t)
	tenant := mustCreateTenant(t, srv, "Acme", "acme")

	resp := doRequest(t, http.MethodPost, srv.URL+"/api/v1/tenants/"+tenant.ID+"/subscriptions", `{"plan_id":999}`)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func jsonInt(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
