package curation

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"sellerhub/internal/hub"
	"sellerhub/internal/model"
)

func TestPostProcessItemDetails_AllFieldsDefined(t *testing.T) {
	items := []model.Item{
		{
			Code:        "item-1",
			SellerEmail: "a@example.com",
			// 其余字段全部留空，整形后仍然必须有定义好的默认值
		},
	}

	details := PostProcessItemDetails(items, nil, nil)
	if len(details) != 1 {
		t.Fatalf("expected 1 item, got %d", len(details))
	}

	raw, err := json.Marshal(details[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var asMap map[string]any
	if err := json.Unmarshal(raw, &asMap); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	for _, field := range []string{
		"code", "item_name", "description", "keywords", "has_image",
		"image_url", "country", "price", "seller_email", "company",
		"category", "created_at", "view_count",
	} {
		if _, ok := asMap[field]; !ok {
			t.Fatalf("field %q missing from post-processed item", field)
		}
	}
}

func TestPostProcessItemDetails_ResolvesReferences(t *testing.T) {
	items := []model.Item{
		{Code: "item-1", SellerEmail: "a@example.com", CategoryName: "Electronics"},
		{Code: "item-2", SellerEmail: "ghost@example.com", CategoryName: "Missing"},
	}
	sellers := map[string]model.Seller{
		"a@example.com": {Email: "a@example.com", Company: "Acme Ltd"},
	}
	categories := map[string]model.Category{
		"Electronics": {Name: "Electronics", Parent: model.RootCategory},
	}

	details := PostProcessItemDetails(items, sellers, categories)

	if details[0].Company != "Acme Ltd" {
		t.Fatalf("expected company resolved, got %q", details[0].Company)
	}
	if details[0].Category != "Electronics" {
		t.Fatalf("expected category resolved, got %q", details[0].Category)
	}
	// 引用缺失时降级为默认值，不报错
	if details[1].Company != "" || details[1].Category != "" {
		t.Fatalf("expected missing references to default, got %q / %q",
			details[1].Company, details[1].Category)
	}
}

func TestPostProcessItemDetails_Deterministic(t *testing.T) {
	items := []model.Item{
		{Code: "item-1", SellerEmail: "a@example.com", CreatedAt: time.Unix(1000, 0)},
		{Code: "item-2", SellerEmail: "b@example.com", CreatedAt: time.Unix(2000, 0)},
	}
	sellers := map[string]model.Seller{
		"a@example.com": {Email: "a@example.com", Company: "Acme"},
		"b@example.com": {Email: "b@example.com", Company: "Bolt"},
	}

	first := PostProcessItemDetails(items, sellers, nil)
	second := PostProcessItemDetails(items, sellers, nil)

	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Fatalf("expected identical output for identical input")
	}
}

func TestMergeDedupe(t *testing.T) {
	a := []model.Item{{Code: "x"}, {Code: "y"}}
	b := []model.Item{{Code: "y"}, {Code: "z"}, {Code: "x"}}

	merged := MergeDedupe(a, b)

	codes := make([]string, 0, len(merged))
	for _, it := range merged {
		codes = append(codes, it.Code)
	}
	want := []string{"x", "y", "z"}
	if len(codes) != len(want) {
		t.Fatalf("expected %v, got %v", want, codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, codes)
		}
	}
}

func TestBuildQueryFilters_KeywordAndSellerOverride(t *testing.T) {
	in := []Filter{
		{Field: "seller", Op: OpEquals, Value: "old@example.com"},
		{Field: "country", Op: OpEquals, Value: "India"},
	}

	out := BuildQueryFilters("lamp", "new@example.com", in)

	var sellerCount int
	var sellerValue string
	var hasKeyword bool
	for _, f := range out {
		if f.Field == "seller" {
			sellerCount++
			sellerValue = f.Value
		}
		if f.Field == "keywords" && f.Op == OpLike && f.Value == "lamp" {
			hasKeyword = true
		}
	}
	if sellerCount != 1 || sellerValue != "new@example.com" {
		t.Fatalf("expected seller filter overridden, got count=%d value=%q", sellerCount, sellerValue)
	}
	if !hasKeyword {
		t.Fatalf("expected keyword filter to be appended")
	}
}

func TestFilter_Validate(t *testing.T) {
	cases := []struct {
		name    string
		filter  Filter
		wantErr bool
	}{
		{"equals ok", Filter{Field: "country", Op: OpEquals, Value: "India"}, false},
		{"in ok", Filter{Field: "code", Op: OpIn, Values: []string{"a", "b"}}, false},
		{"like ok", Filter{Field: "keywords", Op: OpLike, Value: "lamp"}, false},
		{"unknown field", Filter{Field: "password", Op: OpEquals, Value: "x"}, true},
		{"unknown op", Filter{Field: "country", Op: Op("gt"), Value: "x"}, true},
		{"in without values", Filter{Field: "code", Op: OpIn}, true},
		{"eq without value", Filter{Field: "country", Op: OpEquals}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.filter.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr {
				var verr *hub.ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestParseFilters(t *testing.T) {
	filters, err := ParseFilters(`[{"field":"country","op":"eq","value":"India"}]`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(filters) != 1 || filters[0].Field != "country" {
		t.Fatalf("unexpected filters: %+v", filters)
	}

	if _, err := ParseFilters(`[{"field":"nope","op":"eq","value":"x"}]`); err == nil {
		t.Fatalf("expected validation error for unknown field")
	}
	if _, err := ParseFilters(`{bad json`); err == nil {
		t.Fatalf("expected error for invalid json")
	}
	if filters, err := ParseFilters("  "); err != nil || filters != nil {
		t.Fatalf("expected empty input to yield nil filters")
	}
}

func TestEscapeLike(t *testing.T) {
	got := escapeLike(`50%_off\`)
	want := `50\%\_off\\`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}
